// Package session ties the zone store, registry, coordinate space and
// renderer together for one editor.
//
// A Session assumes it is the only writer to its store. Ordinal ids are only
// valid against the snapshot they were read from; every mutation reloads the
// registry, and the key-based operations resolve the target row from a fresh
// read. Two sessions editing the same store by id can silently hit each
// other's rows.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"sync"

	"github.com/ironsheep/leakzone-mcp/internal/catalog"
	"github.com/ironsheep/leakzone-mcp/internal/geometry"
	"github.com/ironsheep/leakzone-mcp/internal/raster"
	"github.com/ironsheep/leakzone-mcp/internal/render"
	"github.com/ironsheep/leakzone-mcp/internal/store"
	"github.com/ironsheep/leakzone-mcp/internal/zone"
)

// Observer receives hit-test outcomes and registry sizes.
type Observer interface {
	ObserveHit(found bool)
	ObserveZones(n int)
}

// Session is one editor's view of a zone store over a floor plan.
type Session struct {
	store    *store.Store
	catalog  *catalog.Catalog
	plan     image.Image
	space    geometry.Space
	observer Observer

	mu  sync.RWMutex
	reg *zone.Registry
}

// Option configures a Session.
type Option func(*Session)

// WithObserver reports hit tests and registry sizes to o.
func WithObserver(o Observer) Option {
	return func(s *Session) { s.observer = o }
}

// New builds the coordinate space from plan and loads the registry.
//
// A store that is already unavailable does not fail New: the session starts
// with an empty, read-only registry and every mutation returns
// store.ErrUnavailable.
func New(ctx context.Context, st *store.Store, cat *catalog.Catalog, plan image.Image, canonicalWidth float64, opts ...Option) (*Session, error) {
	b := plan.Bounds()
	space, err := geometry.NewSpace(canonicalWidth, b.Dx(), b.Dy())
	if err != nil {
		return nil, fmt.Errorf("failed to build coordinate space: %w", err)
	}
	s := &Session{
		store:   st,
		catalog: cat,
		plan:    plan,
		space:   space,
		reg:     zone.Empty(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.refresh(ctx); err != nil {
		log.Printf("Starting with an empty registry: %v", err)
	}
	return s, nil
}

// Space returns the session's coordinate space.
func (s *Session) Space() geometry.Space { return s.space }

// Catalog returns the fluid catalog.
func (s *Session) Catalog() *catalog.Catalog { return s.catalog }

// Plan returns the floor-plan raster.
func (s *Session) Plan() image.Image { return s.plan }

// Available reports whether the store still accepts reads and writes.
func (s *Session) Available() bool { return s.store.Available() }

// Registry returns the current snapshot.
func (s *Session) Registry() *zone.Registry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reg
}

// Reload rebuilds the registry from the store. Malformed rows are skipped and
// reported through the returned error; the registry is replaced either way.
func (s *Session) Reload(ctx context.Context) error {
	rows, err := s.store.LoadAll(ctx)
	if err != nil {
		s.setRegistry(zone.Empty())
		return err
	}
	reg, err := zone.Build(rows, s.catalog)
	s.setRegistry(reg)
	return err
}

// refresh reloads after a mutation; malformed rows are logged, not returned.
func (s *Session) refresh(ctx context.Context) error {
	err := s.Reload(ctx)
	if errors.Is(err, zone.ErrMalformed) {
		log.Printf("Skipped zone rows: %v", err)
		return nil
	}
	return err
}

func (s *Session) setRegistry(reg *zone.Registry) {
	s.mu.Lock()
	s.reg = reg
	s.mu.Unlock()
	if s.observer != nil {
		s.observer.ObserveZones(reg.Len())
	}
}

// Create validates d and box (canonical space), appends the zone and reloads.
// Nothing is written when validation fails.
func (s *Session) Create(ctx context.Context, box geometry.Box, d zone.Draft) (zone.Record, error) {
	rec, err := zone.NewRecord(d, box, s.catalog)
	if err != nil {
		return zone.Record{}, err
	}
	if err := s.store.Append(ctx, rec.Row()); err != nil {
		return zone.Record{}, fmt.Errorf("failed to append zone: %w", err)
	}
	if err := s.refresh(ctx); err != nil {
		return zone.Record{}, err
	}
	reg := s.Registry()
	if created, ok := reg.ByKey(rec.Key); ok {
		return created, nil
	}
	// A backend that cannot hold keys still appends in order.
	if all := reg.ListAll(); len(all) > 0 {
		return all[len(all)-1], nil
	}
	return zone.Record{}, fmt.Errorf("%w: appended zone missing after reload", store.ErrNotFound)
}

// CreateFromMap creates a zone from map-widget bounds (Y up).
func (s *Session) CreateFromMap(ctx context.Context, m geometry.MapBounds, d zone.Draft) (zone.Record, error) {
	return s.Create(ctx, s.space.FromMap(m), d)
}

// CreateFromDisplay creates a zone from a box drawn on a view zoom pixels wide.
func (s *Session) CreateFromDisplay(ctx context.Context, box geometry.Box, zoom float64, d zone.Draft) (zone.Record, error) {
	if zoom <= 0 {
		return zone.Record{}, fmt.Errorf("zoom must be positive, got %v", zoom)
	}
	return s.Create(ctx, s.space.ToCanonical(box, zoom), d)
}

// Update applies e to the zone with snapshot id, writing only changed columns.
func (s *Session) Update(ctx context.Context, id int, e zone.Edit) (zone.Record, error) {
	cur, ok := s.Registry().Get(id)
	if !ok {
		return zone.Record{}, fmt.Errorf("%w: id %d", store.ErrNotFound, id)
	}
	next, changed, err := zone.Apply(cur, e, s.catalog)
	if err != nil {
		return zone.Record{}, err
	}
	if len(changed) == 0 {
		return cur, nil
	}
	if err := s.store.UpdateFields(ctx, id, changed); err != nil {
		return zone.Record{}, fmt.Errorf("failed to update zone %d: %w", id, err)
	}
	if err := s.refresh(ctx); err != nil {
		return zone.Record{}, err
	}
	if updated, ok := s.Registry().Get(id); ok {
		return updated, nil
	}
	return next, nil
}

// UpdateByKey applies e to the zone with the given durable key.
func (s *Session) UpdateByKey(ctx context.Context, key string, e zone.Edit) (zone.Record, error) {
	cur, ok := s.Registry().ByKey(key)
	if !ok {
		return zone.Record{}, fmt.Errorf("%w: key %s", store.ErrNotFound, key)
	}
	next, changed, err := zone.Apply(cur, e, s.catalog)
	if err != nil {
		return zone.Record{}, err
	}
	if len(changed) == 0 {
		return cur, nil
	}
	if err := s.store.UpdateByKey(ctx, key, changed); err != nil {
		return zone.Record{}, fmt.Errorf("failed to update zone %s: %w", key, err)
	}
	if err := s.refresh(ctx); err != nil {
		return zone.Record{}, err
	}
	if updated, ok := s.Registry().ByKey(key); ok {
		return updated, nil
	}
	return next, nil
}

// Delete removes the zone with snapshot id and reloads. Ids above id shift
// down by one.
func (s *Session) Delete(ctx context.Context, id int) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete zone %d: %w", id, err)
	}
	return s.refresh(ctx)
}

// DeleteByKey removes the zone with the given durable key and reloads.
func (s *Session) DeleteByKey(ctx context.Context, key string) error {
	if err := s.store.DeleteByKey(ctx, key); err != nil {
		return fmt.Errorf("failed to delete zone %s: %w", key, err)
	}
	return s.refresh(ctx)
}

// Zones returns the zones matching f in store order. Filter fluids and states
// are resolved like stored values, so aliases and any case select the same
// zones as the canonical name; unknown names match nothing.
func (s *Session) Zones(f zone.Filter) []zone.Record {
	if f.FluidTypes != nil {
		fluids := make([]catalog.Fluid, len(f.FluidTypes))
		for i, name := range f.FluidTypes {
			fluids[i] = name
			if fl, ok := s.catalog.ParseFluid(string(name)); ok {
				fluids[i] = fl
			}
		}
		f.FluidTypes = fluids
	}
	if f.States != nil {
		states := make([]zone.State, len(f.States))
		for i, name := range f.States {
			states[i] = name
			if st, ok := zone.ParseState(string(name)); ok {
				states[i] = st
			}
		}
		f.States = states
	}
	return s.Registry().Filter(f)
}

// Summary aggregates the zones matching f.
func (s *Session) Summary(f zone.Filter) zone.Summary {
	return zone.Summarize(s.Zones(f))
}

// LocateCanonical returns the earliest zone matching f that contains p.
func (s *Session) LocateCanonical(p geometry.Point, f zone.Filter) (zone.Record, bool) {
	r, ok := zone.Locate(p, s.Zones(f))
	if s.observer != nil {
		s.observer.ObserveHit(ok)
	}
	return r, ok
}

// LocateAll returns every zone matching f that contains p, in store order.
func (s *Session) LocateAll(p geometry.Point, f zone.Filter) []zone.Record {
	zones := zone.LocateAll(p, s.Zones(f))
	if s.observer != nil {
		s.observer.ObserveHit(len(zones) > 0)
	}
	return zones
}

// LocateDisplay hit-tests a click on a view zoom pixels wide.
func (s *Session) LocateDisplay(p geometry.Point, zoom float64, f zone.Filter) (zone.Record, bool) {
	if zoom <= 0 {
		return zone.Record{}, false
	}
	return s.LocateCanonical(s.space.PointToCanonical(p, zoom), f)
}

// LocateMap hit-tests a click in map-widget coordinates (Y up).
func (s *Session) LocateMap(p geometry.Point, f zone.Filter) (zone.Record, bool) {
	return s.LocateCanonical(s.space.PointFromMap(p), f)
}

// RenderInteractive draws the zones matching f on a view zoom pixels wide.
func (s *Session) RenderInteractive(zoom int, f zone.Filter) (*image.NRGBA, error) {
	return render.Interactive(s.plan, s.Zones(f), s.catalog, s.space, zoom)
}

// RenderExport draws the zones matching f on the native-resolution plan.
func (s *Session) RenderExport(f zone.Filter) *image.NRGBA {
	return render.Export(s.plan, s.Zones(f), s.catalog, s.space)
}

// Preview crops a canonical box out of the plan and tints it with the
// fluid's colour, as shown while a zone is being drawn.
func (s *Session) Preview(box geometry.Box, fluid string) (*image.RGBA, error) {
	if err := box.Validate(); err != nil {
		return nil, err
	}
	f, _ := s.catalog.ParseFluid(fluid)
	return raster.Preview(s.plan, s.nativeRect(box), s.catalog.Color(f))
}

// Thumbnail crops the zone with snapshot id out of the plan.
func (s *Session) Thumbnail(id int, scale float64) (*image.NRGBA, error) {
	r, ok := s.Registry().Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: id %d", store.ErrNotFound, id)
	}
	return raster.Crop(s.plan, s.nativeRect(r.Box), scale)
}

// nativeRect maps a canonical box onto plan pixels.
func (s *Session) nativeRect(b geometry.Box) image.Rectangle {
	n := b.Scale(s.space.ExportScale())
	origin := s.plan.Bounds().Min
	return image.Rect(int(n.X1), int(n.Y1), int(n.X2+0.5), int(n.Y2+0.5)).Add(origin)
}
