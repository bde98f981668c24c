// Package render paints leak-zone outlines and labels over floor-plan images.
//
// Every entry point copies its source first; the floor plan itself is never
// drawn on.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/leakzone-mcp/internal/catalog"
	"github.com/ironsheep/leakzone-mcp/internal/geometry"
	"github.com/ironsheep/leakzone-mcp/internal/zone"
)

// Interactive and export presets.
const (
	InteractiveStroke      = 4
	InteractiveLabelOffset = 20
	ExportStroke           = 15
	ExportLabelOffset      = 65
	ExportFontSize         = 48
)

// Options controls how zones are painted.
type Options struct {
	// Scale maps canonical coordinates onto the target raster.
	Scale float64

	// StrokeWidth is the outline thickness in pixels, drawn inward.
	StrokeWidth int

	// Labels enables a text label above each box.
	Labels bool

	// LabelOffset is how far above the box's top edge the label starts.
	LabelOffset int

	// FontSize selects a Go Regular face at that size; 0 uses the 7x13 bitmap face.
	FontSize float64

	// LabelText produces the label for a zone. Defaults to "ID:<id>".
	LabelText func(zone.Record) string
}

// Render copies src and paints zones onto the copy.
//
// Zones are painted newest first so that, where boxes overlap, the
// earliest-registered zone is drawn on top. zone.Locate resolves clicks to
// the same zone the user sees.
func Render(src image.Image, zones []zone.Record, cat *catalog.Catalog, opts Options) *image.NRGBA {
	dst := imaging.Clone(src)
	if opts.Scale <= 0 {
		opts.Scale = 1
	}
	if opts.LabelText == nil {
		opts.LabelText = idLabel
	}
	face := resolveFontFace(opts.FontSize)

	for i := len(zones) - 1; i >= 0; i-- {
		z := zones[i]
		fluid := cat.Color(z.FluidType)
		c := toRGBA(fluid)
		r := pixelRect(z.Box.Scale(opts.Scale))
		strokeRect(dst, r, c, opts.StrokeWidth)
		if opts.Labels {
			drawLabel(dst, opts.LabelText(z), r.Min.X, r.Min.Y-opts.LabelOffset, c, labelBackground(fluid), face)
		}
	}
	return dst
}

// Interactive renders the pan/zoom view: the plan resized to zoom pixels wide
// with thin outlines and "ID:<id>" labels.
func Interactive(plan image.Image, zones []zone.Record, cat *catalog.Catalog, space geometry.Space, zoom int) (*image.NRGBA, error) {
	if zoom <= 0 {
		return nil, fmt.Errorf("zoom must be positive, got %d", zoom)
	}
	w, h := space.DisplaySize(zoom)
	resized := imaging.Resize(plan, w, h, imaging.Linear)
	return Render(resized, zones, cat, Options{
		Scale:       float64(zoom) / space.CanonicalWidth(),
		StrokeWidth: InteractiveStroke,
		Labels:      true,
		LabelOffset: InteractiveLabelOffset,
	}), nil
}

// Export renders the report image at native resolution with heavy outlines
// and "<area> (<fluid>)" labels.
func Export(plan image.Image, zones []zone.Record, cat *catalog.Catalog, space geometry.Space) *image.NRGBA {
	return Render(plan, zones, cat, Options{
		Scale:       space.ExportScale(),
		StrokeWidth: ExportStroke,
		Labels:      true,
		LabelOffset: ExportLabelOffset,
		FontSize:    ExportFontSize,
		LabelText:   areaLabel,
	})
}

func idLabel(z zone.Record) string { return fmt.Sprintf("ID:%d", z.ID) }

func areaLabel(z zone.Record) string { return fmt.Sprintf("%s (%s)", z.Area, z.FluidType) }

func pixelRect(b geometry.Box) image.Rectangle {
	return image.Rect(
		int(math.Round(b.X1)), int(math.Round(b.Y1)),
		int(math.Round(b.X2)), int(math.Round(b.Y2)),
	)
}

func toRGBA(c colorful.Color) color.RGBA {
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// labelBackground is a pale, mostly opaque tint of the fluid colour.
func labelBackground(c colorful.Color) color.NRGBA {
	pale := c.BlendLab(colorful.Color{R: 1, G: 1, B: 1}, 0.85).Clamped()
	r, g, b := pale.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 200}
}

// strokeRect outlines r with lines of the given width drawn inward.
func strokeRect(img draw.Image, r image.Rectangle, c color.Color, width int) {
	if width <= 0 {
		width = 1
	}
	src := &image.Uniform{C: c}
	for i := 0; i < width; i++ {
		x1, y1, x2, y2 := r.Min.X+i, r.Min.Y+i, r.Max.X-i, r.Max.Y-i
		if x1 >= x2 || y1 >= y2 {
			break
		}
		draw.Draw(img, image.Rect(x1, y1, x2, y1+1), src, image.Point{}, draw.Over)
		draw.Draw(img, image.Rect(x1, y2-1, x2, y2), src, image.Point{}, draw.Over)
		draw.Draw(img, image.Rect(x1, y1, x1+1, y2), src, image.Point{}, draw.Over)
		draw.Draw(img, image.Rect(x2-1, y1, x2, y2), src, image.Point{}, draw.Over)
	}
}

// drawLabel writes text with its top-left corner at (x, y), kept inside img.
func drawLabel(img draw.Image, text string, x, y int, fg, bg color.Color, face font.Face) {
	bounds := img.Bounds()
	m := face.Metrics()
	w := font.MeasureString(face, text).Ceil()
	h := m.Height.Ceil()
	const pad = 2

	x = min(max(x, bounds.Min.X+pad), bounds.Max.X-w-pad)
	y = min(max(y, bounds.Min.Y+pad), bounds.Max.Y-h-pad)

	box := image.Rect(x-pad, y-pad, x+w+pad, y+h+pad)
	draw.Draw(img, box, &image.Uniform{C: bg}, image.Point{}, draw.Over)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(fg),
		Face: face,
		Dot:  fixed.P(x, y+m.Ascent.Ceil()),
	}
	d.DrawString(text)
}
