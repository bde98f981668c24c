package render

import (
	"image"
	"image/color"
	"testing"

	"github.com/ironsheep/leakzone-mcp/internal/catalog"
	"github.com/ironsheep/leakzone-mcp/internal/geometry"
	"github.com/ironsheep/leakzone-mcp/internal/zone"
)

var (
	blue   = color.NRGBA{0, 0, 255, 255}
	orange = color.NRGBA{255, 165, 0, 255}
	white  = color.NRGBA{255, 255, 255, 255}
)

func createInMemoryImage(width, height int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func testZone(id int, fluid catalog.Fluid, x1, y1, x2, y2 float64) zone.Record {
	return zone.Record{
		ID:        id,
		FluidType: fluid,
		Box:       geometry.Box{X1: x1, Y1: y1, X2: x2, Y2: y2},
		Area:      "Hall B",
	}
}

func TestRender_OutlineInward(t *testing.T) {
	src := createInMemoryImage(200, 200, white)
	zones := []zone.Record{testZone(0, catalog.FluidAir, 20, 20, 80, 80)}

	out := Render(src, zones, catalog.Default(), Options{Scale: 1, StrokeWidth: 4})

	tests := []struct {
		name string
		x, y int
		want color.NRGBA
	}{
		{"top-left corner", 20, 20, blue},
		{"inside stroke", 23, 50, blue},
		{"past stroke", 24, 50, white},
		{"right edge inward", 79, 50, blue},
		{"outside box", 80, 50, white},
		{"interior", 50, 50, white},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := out.NRGBAAt(tt.x, tt.y); got != tt.want {
				t.Errorf("pixel (%d,%d): got %v, want %v", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestRender_DoesNotMutateSource(t *testing.T) {
	src := createInMemoryImage(100, 100, white)
	zones := []zone.Record{testZone(0, catalog.FluidGas, 10, 10, 60, 60)}

	_ = Render(src, zones, catalog.Default(), Options{Scale: 1, StrokeWidth: 3, Labels: true, LabelOffset: 20})

	if got := src.NRGBAAt(10, 10); got != white {
		t.Errorf("source mutated: %v", got)
	}
}

func TestRender_EarliestZoneOnTop(t *testing.T) {
	src := createInMemoryImage(200, 200, white)
	zones := []zone.Record{
		testZone(0, catalog.FluidAir, 0, 0, 100, 100),
		testZone(1, catalog.FluidGas, 50, 50, 150, 150),
	}
	out := Render(src, zones, catalog.Default(), Options{Scale: 1, StrokeWidth: 4})

	// (98,51) lies on the Air box's right stroke and the Gas box's top stroke.
	if got := out.NRGBAAt(98, 51); got != blue {
		t.Errorf("overlap pixel: got %v, want Air blue", got)
	}
	if got := out.NRGBAAt(120, 51); got != orange {
		t.Errorf("gas-only pixel: got %v, want Gas orange", got)
	}

	// The hit tester agrees with what is drawn.
	hit, ok := zone.Locate(geometry.Point{X: 98, Y: 51}, zones)
	if !ok || hit.FluidType != catalog.FluidAir {
		t.Errorf("Locate: got %+v %v, want the Air zone", hit, ok)
	}
}

func TestRender_UnknownFluidIsRed(t *testing.T) {
	src := createInMemoryImage(50, 50, white)
	zones := []zone.Record{testZone(0, catalog.Fluid("Steam"), 5, 5, 40, 40)}
	out := Render(src, zones, catalog.Default(), Options{Scale: 1, StrokeWidth: 1})

	if got := out.NRGBAAt(5, 5); got != (color.NRGBA{255, 0, 0, 255}) {
		t.Errorf("got %v, want red", got)
	}
}

func TestRender_LabelDrawnAboveBox(t *testing.T) {
	src := createInMemoryImage(200, 200, white)
	zones := []zone.Record{testZone(3, catalog.FluidAir, 40, 100, 120, 160)}
	out := Render(src, zones, catalog.Default(), Options{Scale: 1, StrokeWidth: 2, Labels: true, LabelOffset: 20})

	changed := false
	for y := 78; y < 98 && !changed; y++ {
		for x := 40; x < 90; x++ {
			if out.NRGBAAt(x, y) != white {
				changed = true
				break
			}
		}
	}
	if !changed {
		t.Error("no label pixels found above the box")
	}
}

func TestRender_LabelClampedInside(t *testing.T) {
	src := createInMemoryImage(120, 120, white)
	// Box at the top edge: the label would start above the image.
	zones := []zone.Record{testZone(0, catalog.FluidWater, 0, 0, 60, 60)}
	out := Render(src, zones, catalog.Default(), Options{Scale: 1, StrokeWidth: 1, Labels: true, LabelOffset: 20})

	if out.Bounds() != src.Bounds() {
		t.Fatalf("bounds changed: %v", out.Bounds())
	}
	if got := out.NRGBAAt(5, 5); got == white {
		t.Error("expected the clamped label near the top-left corner")
	}
}

func TestInteractive(t *testing.T) {
	plan := createInMemoryImage(480, 360, white)
	space, err := geometry.NewSpace(1200, 480, 360)
	if err != nil {
		t.Fatalf("NewSpace failed: %v", err)
	}
	zones := []zone.Record{testZone(0, catalog.FluidAir, 100, 100, 400, 300)}

	out, err := Interactive(plan, zones, catalog.Default(), space, 600)
	if err != nil {
		t.Fatalf("Interactive failed: %v", err)
	}
	if b := out.Bounds(); b.Dx() != 600 || b.Dy() != 450 {
		t.Errorf("size: got %dx%d, want 600x450", b.Dx(), b.Dy())
	}
	// Canonical (100,100) at zoom 600 is display (50,50).
	if got := out.NRGBAAt(50, 60); got != blue {
		t.Errorf("outline pixel: got %v, want blue", got)
	}

	if _, err := Interactive(plan, zones, catalog.Default(), space, 0); err == nil {
		t.Error("expected error for zero zoom")
	}
}

func TestExport(t *testing.T) {
	plan := createInMemoryImage(480, 360, white)
	space, _ := geometry.NewSpace(1200, 480, 360)
	zones := []zone.Record{testZone(0, catalog.FluidGas, 300, 300, 900, 800)}

	out := Export(plan, zones, catalog.Default(), space)
	if out.Bounds() != plan.Bounds() {
		t.Fatalf("export must keep native size, got %v", out.Bounds())
	}
	// Canonical 300 * 0.4 = 120 native; stroke 15 reaches x=134.
	if got := out.NRGBAAt(134, 200); got != orange {
		t.Errorf("stroke pixel: got %v, want orange", got)
	}
	if got := out.NRGBAAt(136, 200); got != white {
		t.Errorf("interior pixel: got %v, want white", got)
	}
}

func TestLabelText(t *testing.T) {
	z := testZone(7, catalog.FluidWater, 0, 0, 1, 1)
	if got := idLabel(z); got != "ID:7" {
		t.Errorf("idLabel: got %q", got)
	}
	if got := areaLabel(z); got != "Hall B (Water)" {
		t.Errorf("areaLabel: got %q", got)
	}
}

func TestResolveFontFace(t *testing.T) {
	small := resolveFontFace(0)
	if small.Metrics().Height.Ceil() != 13 {
		t.Errorf("bitmap face height: got %d", small.Metrics().Height.Ceil())
	}
	big := resolveFontFace(ExportFontSize)
	if big.Metrics().Height.Ceil() <= 13 {
		t.Errorf("vector face height: got %d", big.Metrics().Height.Ceil())
	}
	if resolveFontFace(ExportFontSize) != big {
		t.Error("faces should be cached per size")
	}
}
