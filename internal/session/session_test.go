package session

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/ironsheep/leakzone-mcp/internal/catalog"
	"github.com/ironsheep/leakzone-mcp/internal/geometry"
	"github.com/ironsheep/leakzone-mcp/internal/store"
	"github.com/ironsheep/leakzone-mcp/internal/zone"
)

// blankPlan is a uniform raster of a fixed size that allocates no pixels.
type blankPlan struct {
	*image.Uniform
	w, h int
}

func (p blankPlan) Bounds() image.Rectangle { return image.Rect(0, 0, p.w, p.h) }

func newPlan(w, h int) image.Image {
	return blankPlan{Uniform: image.NewUniform(color.White), w: w, h: h}
}

type countingObserver struct {
	hits, misses int
	zones        int
}

func (o *countingObserver) ObserveHit(found bool) {
	if found {
		o.hits++
	} else {
		o.misses++
	}
}

func (o *countingObserver) ObserveZones(n int) { o.zones = n }

func strPtr(s string) *string { return &s }

func newSession(t *testing.T, opts ...Option) (*Session, *store.MemoryBackend) {
	t.Helper()
	backend := store.NewMemoryBackend()
	s, err := New(context.Background(), store.New(backend), catalog.Default(), newPlan(480, 360), 1200, opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s, backend
}

func mustCreate(t *testing.T, s *Session, box geometry.Box, d zone.Draft) zone.Record {
	t.Helper()
	r, err := s.Create(context.Background(), box, d)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return r
}

func TestNew_Empty(t *testing.T) {
	s, _ := newSession(t)
	if s.Registry().Len() != 0 {
		t.Errorf("expected empty registry, got %d", s.Registry().Len())
	}
	if s.Space().CanonicalWidth() != 1200 {
		t.Errorf("canonical width: got %v", s.Space().CanonicalWidth())
	}
	if !s.Available() {
		t.Error("new session should be available")
	}
}

func TestNew_RejectsEmptyPlan(t *testing.T) {
	_, err := New(context.Background(), store.New(store.NewMemoryBackend()), catalog.Default(), newPlan(0, 0), 1200)
	if err == nil {
		t.Error("expected error for empty plan")
	}
}

func TestCreate(t *testing.T) {
	s, backend := newSession(t)
	r := mustCreate(t, s, geometry.Box{X1: 100, Y1: 100, X2: 200, Y2: 150}, zone.Draft{FluidType: "Air", Area: "Press"})

	if r.ID != 0 || r.Key == "" {
		t.Errorf("created record: %+v", r)
	}
	if r.Category != "Small" || r.AnnualCost != 120 {
		t.Errorf("derived fields: %s/%v", r.Category, r.AnnualCost)
	}
	if backend.Len() != 1 {
		t.Errorf("backend rows: got %d, want 1", backend.Len())
	}

	second := mustCreate(t, s, geometry.Box{X1: 300, Y1: 300, X2: 400, Y2: 350}, zone.Draft{FluidType: "Water"})
	if second.ID != 1 {
		t.Errorf("second id: got %d, want 1", second.ID)
	}
}

func TestCreate_LegacyHeaderKeepsKey(t *testing.T) {
	backend := store.NewMemoryBackend(store.Columns[:14]...)
	s, err := New(context.Background(), store.New(backend), catalog.Default(), newPlan(480, 360), 1200)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	r := mustCreate(t, s, geometry.Box{X1: 100, Y1: 100, X2: 200, Y2: 150}, zone.Draft{FluidType: "Air"})
	if r.ID != 0 || r.Key == "" {
		t.Fatalf("created record: id=%d key=%q", r.ID, r.Key)
	}

	updated, err := s.UpdateByKey(context.Background(), r.Key, zone.Edit{Label: strPtr("north wall")})
	if err != nil {
		t.Fatalf("UpdateByKey with the returned key failed: %v", err)
	}
	if updated.Label != "north wall" || updated.ID != 0 {
		t.Errorf("updated: %+v", updated)
	}
}

func TestCreate_InvalidBoxPersistsNothing(t *testing.T) {
	s, backend := newSession(t)
	ctx := context.Background()

	tests := []struct {
		name string
		box  geometry.Box
		want error
	}{
		{"zero width", geometry.Box{X1: 50, Y1: 10, X2: 50, Y2: 90}, geometry.ErrDegenerateBox},
		{"inverted", geometry.Box{X1: 90, Y1: 90, X2: 10, Y2: 10}, geometry.ErrInvertedBox},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Create(ctx, tt.box, zone.Draft{FluidType: "Air"}); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
	if backend.Len() != 0 {
		t.Errorf("backend rows: got %d, want 0", backend.Len())
	}
}

func TestCreateFromMap(t *testing.T) {
	backend := store.NewMemoryBackend()
	s, err := New(context.Background(), store.New(backend), catalog.Default(), newPlan(4800, 3600), 1200)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	r, err := s.CreateFromMap(context.Background(), geometry.MapBounds{XMin: 100, XMax: 300, YMin: 200, YMax: 500}, zone.Draft{FluidType: "Gas"})
	if err != nil {
		t.Fatalf("CreateFromMap failed: %v", err)
	}
	want := geometry.Box{X1: 25, Y1: 775, X2: 75, Y2: 850}
	if r.Box != want {
		t.Errorf("box: got %+v, want %+v", r.Box, want)
	}
}

func TestCreateFromDisplay(t *testing.T) {
	s, _ := newSession(t)
	r, err := s.CreateFromDisplay(context.Background(), geometry.Box{X1: 200, Y1: 200, X2: 400, Y2: 300}, 2400, zone.Draft{FluidType: "Oil"})
	if err != nil {
		t.Fatalf("CreateFromDisplay failed: %v", err)
	}
	want := geometry.Box{X1: 100, Y1: 100, X2: 200, Y2: 150}
	if r.Box != want {
		t.Errorf("box: got %+v, want %+v", r.Box, want)
	}
	if _, err := s.CreateFromDisplay(context.Background(), r.Box, 0, zone.Draft{FluidType: "Oil"}); err == nil {
		t.Error("expected error for zero zoom")
	}
}

func TestUpdate_FluidChangePersists(t *testing.T) {
	s, _ := newSession(t)
	ctx := context.Background()
	mustCreate(t, s, geometry.Box{X1: 10, Y1: 10, X2: 50, Y2: 50}, zone.Draft{FluidType: "Air", Category: "Critical"})

	r, err := s.Update(ctx, 0, zone.Edit{FluidType: strPtr("Helium")})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if r.Category != "Micro" || r.AnnualCost != 900 {
		t.Errorf("got %s/%v, want Micro/900", r.Category, r.AnnualCost)
	}

	// A fresh reload sees the same values.
	if err := s.Reload(ctx); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	got, _ := s.Registry().Get(0)
	if got.FluidType != catalog.FluidHelium || got.Category != "Micro" {
		t.Errorf("after reload: %+v", got)
	}

	if _, err := s.Update(ctx, 9, zone.Edit{State: strPtr("Completed")}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("missing id: got %v, want ErrNotFound", err)
	}
}

func TestUpdate_InspectionOK(t *testing.T) {
	s, _ := newSession(t)
	mustCreate(t, s, geometry.Box{X1: 10, Y1: 10, X2: 50, Y2: 50}, zone.Draft{FluidType: "Gas", Category: "Major"})

	r, err := s.Update(context.Background(), 0, zone.Edit{FluidType: strPtr("Inspection-OK")})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if r.State != zone.StateCompleted || r.AnnualCost != 0 {
		t.Errorf("got %s/%v, want Completed/0", r.State, r.AnnualCost)
	}
}

func TestKeyOperationsSurviveShifts(t *testing.T) {
	s, _ := newSession(t)
	ctx := context.Background()
	first := mustCreate(t, s, geometry.Box{X1: 0, Y1: 0, X2: 10, Y2: 10}, zone.Draft{FluidType: "Air", Label: "first"})
	mustCreate(t, s, geometry.Box{X1: 20, Y1: 0, X2: 30, Y2: 10}, zone.Draft{FluidType: "Air", Label: "second"})
	third := mustCreate(t, s, geometry.Box{X1: 40, Y1: 0, X2: 50, Y2: 10}, zone.Draft{FluidType: "Air", Label: "third"})

	if err := s.DeleteByKey(ctx, first.Key); err != nil {
		t.Fatalf("DeleteByKey failed: %v", err)
	}
	r, err := s.UpdateByKey(ctx, third.Key, zone.Edit{State: strPtr("In-Repair")})
	if err != nil {
		t.Fatalf("UpdateByKey failed: %v", err)
	}
	if r.Label != "third" || r.ID != 1 || r.State != zone.StateInRepair {
		t.Errorf("updated record: %+v", r)
	}
	if err := s.DeleteByKey(ctx, first.Key); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("repeat delete: got %v, want ErrNotFound", err)
	}
}

func TestDelete_ShiftsIDs(t *testing.T) {
	s, _ := newSession(t)
	ctx := context.Background()
	for _, label := range []string{"a", "b", "c", "d", "e"} {
		mustCreate(t, s, geometry.Box{X1: 0, Y1: 0, X2: 10, Y2: 10}, zone.Draft{FluidType: "Air", Label: label})
	}
	held, _ := s.Registry().Get(2)

	if err := s.Delete(ctx, 2); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	now, _ := s.Registry().Get(2)
	if now.Key == held.Key || now.Label != "d" {
		t.Errorf("id 2 after delete: got %s, want d", now.Label)
	}
	if s.Registry().Len() != 4 {
		t.Errorf("Len: got %d, want 4", s.Registry().Len())
	}
}

func TestLocate(t *testing.T) {
	obs := &countingObserver{}
	s, _ := newSession(t, WithObserver(obs))
	mustCreate(t, s, geometry.Box{X1: 100, Y1: 100, X2: 300, Y2: 300}, zone.Draft{FluidType: "Air", Label: "early"})
	mustCreate(t, s, geometry.Box{X1: 200, Y1: 200, X2: 400, Y2: 400}, zone.Draft{FluidType: "Water", Label: "late"})

	r, ok := s.LocateCanonical(geometry.Point{X: 250, Y: 250}, zone.Filter{})
	if !ok || r.Label != "early" {
		t.Errorf("overlap: got %+v %v, want early", r, ok)
	}

	// Filtering out the earlier zone exposes the later one.
	r, ok = s.LocateCanonical(geometry.Point{X: 250, Y: 250}, zone.Filter{FluidTypes: []catalog.Fluid{catalog.FluidWater}})
	if !ok || r.Label != "late" {
		t.Errorf("filtered: got %+v %v, want late", r, ok)
	}

	// Display click at zoom 600 (scale 0.5): (175,175) is canonical (350,350).
	r, ok = s.LocateDisplay(geometry.Point{X: 175, Y: 175}, 600, zone.Filter{})
	if !ok || r.Label != "late" {
		t.Errorf("display: got %+v %v, want late", r, ok)
	}

	// Map point: canonical (150,150) is map (60, 360-60=300).
	r, ok = s.LocateMap(geometry.Point{X: 60, Y: 300}, zone.Filter{})
	if !ok || r.Label != "early" {
		t.Errorf("map: got %+v %v, want early", r, ok)
	}

	if _, ok := s.LocateCanonical(geometry.Point{X: 1000, Y: 50}, zone.Filter{}); ok {
		t.Error("expected miss")
	}

	if obs.hits != 4 || obs.misses != 1 {
		t.Errorf("observer: hits=%d misses=%d", obs.hits, obs.misses)
	}
	if obs.zones != 2 {
		t.Errorf("observer zones: got %d, want 2", obs.zones)
	}
}

func TestLocateAll_ObservesHits(t *testing.T) {
	obs := &countingObserver{}
	s, _ := newSession(t, WithObserver(obs))
	mustCreate(t, s, geometry.Box{X1: 100, Y1: 100, X2: 300, Y2: 300}, zone.Draft{FluidType: "Air", Label: "early"})
	mustCreate(t, s, geometry.Box{X1: 200, Y1: 200, X2: 400, Y2: 400}, zone.Draft{FluidType: "Water", Label: "late"})

	got := s.LocateAll(geometry.Point{X: 250, Y: 250}, zone.Filter{})
	if len(got) != 2 || got[0].Label != "early" || got[1].Label != "late" {
		t.Errorf("overlap: got %+v", got)
	}
	if got := s.LocateAll(geometry.Point{X: 1000, Y: 50}, zone.Filter{}); len(got) != 0 {
		t.Errorf("miss: got %+v", got)
	}
	if obs.hits != 1 || obs.misses != 1 {
		t.Errorf("observer: hits=%d misses=%d", obs.hits, obs.misses)
	}
}

func TestZones_FluidFilterAcceptsAliases(t *testing.T) {
	s, _ := newSession(t)
	mustCreate(t, s, geometry.Box{X1: 100, Y1: 100, X2: 200, Y2: 200}, zone.Draft{FluidType: "Air"})
	mustCreate(t, s, geometry.Box{X1: 300, Y1: 100, X2: 400, Y2: 200}, zone.Draft{FluidType: "Water"})

	tests := []struct {
		name   string
		fluids []catalog.Fluid
		want   int
	}{
		{"canonical", []catalog.Fluid{"Air"}, 1},
		{"lower case", []catalog.Fluid{"air"}, 1},
		{"legacy alias", []catalog.Fluid{"Aire"}, 1},
		{"mixed", []catalog.Fluid{"aire", "AGUA"}, 2},
		{"unknown", []catalog.Fluid{"Steam"}, 0},
		{"empty", []catalog.Fluid{}, 0},
		{"nil", nil, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := zone.Filter{FluidTypes: tt.fluids}
			if got := s.Zones(f); len(got) != tt.want {
				t.Errorf("got %d zones, want %d", len(got), tt.want)
			}
		})
	}
}

func TestZones_StateFilterIgnoresCase(t *testing.T) {
	s, _ := newSession(t)
	mustCreate(t, s, geometry.Box{X1: 100, Y1: 100, X2: 200, Y2: 200}, zone.Draft{FluidType: "Air"})
	mustCreate(t, s, geometry.Box{X1: 300, Y1: 100, X2: 400, Y2: 200}, zone.Draft{FluidType: "Air", State: "Completed"})

	if got := s.Zones(zone.Filter{States: []zone.State{"in repair", "completado"}}); len(got) != 1 || got[0].State != zone.StateCompleted {
		t.Errorf("got %+v, want the completed zone", got)
	}
}

func TestUnavailableStore(t *testing.T) {
	s, backend := newSession(t)
	ctx := context.Background()
	mustCreate(t, s, geometry.Box{X1: 0, Y1: 0, X2: 10, Y2: 10}, zone.Draft{FluidType: "Air"})

	backend.Fail(errors.New("sheet deleted"))
	if err := s.Reload(ctx); !errors.Is(err, store.ErrUnavailable) {
		t.Fatalf("Reload: got %v, want ErrUnavailable", err)
	}
	if s.Registry().Len() != 0 {
		t.Errorf("registry should be empty, got %d", s.Registry().Len())
	}
	if s.Available() {
		t.Error("session should report unavailable")
	}

	backend.Fail(nil)
	if _, err := s.Create(ctx, geometry.Box{X1: 0, Y1: 0, X2: 10, Y2: 10}, zone.Draft{FluidType: "Air"}); !errors.Is(err, store.ErrUnavailable) {
		t.Errorf("Create: got %v, want ErrUnavailable", err)
	}
	if err := s.Delete(ctx, 0); !errors.Is(err, store.ErrUnavailable) {
		t.Errorf("Delete: got %v, want ErrUnavailable", err)
	}
}

func TestNew_UnavailableStoreStartsEmpty(t *testing.T) {
	backend := store.NewMemoryBackend()
	backend.Fail(errors.New("no credentials"))
	s, err := New(context.Background(), store.New(backend), catalog.Default(), newPlan(100, 100), 1200)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if s.Registry().Len() != 0 || s.Available() {
		t.Error("expected an empty, unavailable session")
	}
}

func TestReload_MalformedRowsReported(t *testing.T) {
	backend := store.NewMemoryBackend("x1", "y1", "x2", "y2", "label", "fluidType")
	backend.AppendRaw("1", "2", "3", "4", "ok", "Agua")
	backend.AppendRaw("5", "x", "7", "8", "broken", "Air")
	backend.AppendRaw("10", "10", "20", "20", "ok2", "Aire")

	s, err := New(context.Background(), store.New(backend), catalog.Default(), newPlan(480, 360), 1200)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if s.Registry().Len() != 2 {
		t.Errorf("Len: got %d, want 2", s.Registry().Len())
	}
	if err := s.Reload(context.Background()); !errors.Is(err, zone.ErrMalformed) {
		t.Errorf("Reload: got %v, want ErrMalformed", err)
	}
	if r, ok := s.Registry().Get(2); !ok || r.Label != "ok2" {
		t.Errorf("Get(2): got %+v %v", r, ok)
	}
}

func TestSummary(t *testing.T) {
	s, _ := newSession(t)
	mustCreate(t, s, geometry.Box{X1: 0, Y1: 0, X2: 10, Y2: 10}, zone.Draft{FluidType: "Air", Category: "Medium"})
	mustCreate(t, s, geometry.Box{X1: 0, Y1: 0, X2: 10, Y2: 10}, zone.Draft{FluidType: "Gas", Category: "Major"})

	sum := s.Summary(zone.Filter{})
	if sum.Total != 2 || sum.TotalAnnualCost != 480+5200 {
		t.Errorf("summary: %+v", sum)
	}
	air := s.Summary(zone.Filter{FluidTypes: []catalog.Fluid{catalog.FluidAir}})
	if air.Total != 1 {
		t.Errorf("filtered summary: %+v", air)
	}
}

func TestImages(t *testing.T) {
	backend := store.NewMemoryBackend()
	plan := image.NewNRGBA(image.Rect(0, 0, 480, 360))
	s, err := New(context.Background(), store.New(backend), catalog.Default(), plan, 1200)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	mustCreate(t, s, geometry.Box{X1: 100, Y1: 100, X2: 300, Y2: 200}, zone.Draft{FluidType: "Air"})

	view, err := s.RenderInteractive(600, zone.Filter{})
	if err != nil {
		t.Fatalf("RenderInteractive failed: %v", err)
	}
	if b := view.Bounds(); b.Dx() != 600 || b.Dy() != 450 {
		t.Errorf("interactive size: %v", b)
	}

	if b := s.RenderExport(zone.Filter{}).Bounds(); b != plan.Bounds() {
		t.Errorf("export size: %v", b)
	}

	thumb, err := s.Thumbnail(0, 1)
	if err != nil {
		t.Fatalf("Thumbnail failed: %v", err)
	}
	// Canonical 200x100 at 0.4 is 80x40 native.
	if b := thumb.Bounds(); b.Dx() != 80 || b.Dy() != 40 {
		t.Errorf("thumbnail size: %v", b)
	}
	if _, err := s.Thumbnail(5, 1); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("missing thumbnail: got %v", err)
	}

	preview, err := s.Preview(geometry.Box{X1: 0, Y1: 0, X2: 100, Y2: 50}, "Water")
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	if b := preview.Bounds(); b.Dx() != 40 || b.Dy() != 20 {
		t.Errorf("preview size: %v", b)
	}
	if _, err := s.Preview(geometry.Box{X1: 5, Y1: 5, X2: 5, Y2: 9}, "Water"); !errors.Is(err, geometry.ErrDegenerateBox) {
		t.Errorf("degenerate preview: got %v", err)
	}
}
