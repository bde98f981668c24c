package geometry

import (
	"errors"
	"fmt"
	"math"
)

// DefaultCanonicalWidth is the logical width of canonical space used by the
// floor-plan tools. Changing it invalidates every stored box.
const DefaultCanonicalWidth = 1200.0

var (
	// ErrDegenerateBox is returned for rectangles with zero width or height.
	ErrDegenerateBox = errors.New("zone box has zero area")

	// ErrInvertedBox is returned when x1 > x2 or y1 > y2.
	ErrInvertedBox = errors.New("zone box is inverted")
)

// Point is a position in any of the coordinate spaces.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Box is an axis-aligned rectangle. (X1,Y1) is the top-left corner in canonical
// and display space.
type Box struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Validate reports whether b can be stored as a zone.
func (b Box) Validate() error {
	if b.X1 == b.X2 || b.Y1 == b.Y2 {
		return fmt.Errorf("%w: (%g,%g)-(%g,%g)", ErrDegenerateBox, b.X1, b.Y1, b.X2, b.Y2)
	}
	if b.X1 > b.X2 || b.Y1 > b.Y2 {
		return fmt.Errorf("%w: (%g,%g)-(%g,%g)", ErrInvertedBox, b.X1, b.Y1, b.X2, b.Y2)
	}
	for _, v := range []float64{b.X1, b.Y1, b.X2, b.Y2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("zone box has non-finite coordinate %g", v)
		}
	}
	return nil
}

// Contains reports whether p lies inside b, edges included.
func (b Box) Contains(p Point) bool {
	return b.X1 <= p.X && p.X <= b.X2 && b.Y1 <= p.Y && p.Y <= b.Y2
}

// Scale multiplies every coordinate by f.
func (b Box) Scale(f float64) Box {
	return Box{X1: b.X1 * f, Y1: b.Y1 * f, X2: b.X2 * f, Y2: b.Y2 * f}
}

// Width returns X2 - X1.
func (b Box) Width() float64 { return b.X2 - b.X1 }

// Height returns Y2 - Y1.
func (b Box) Height() float64 { return b.Y2 - b.Y1 }

// MapBounds is a rectangle in map space, as reported by the map widget's draw
// tool. Y grows upward, so YMax is the top edge.
type MapBounds struct {
	XMin float64 `json:"xmin"`
	XMax float64 `json:"xmax"`
	YMin float64 `json:"ymin"`
	YMax float64 `json:"ymax"`
}

// Space binds canonical space to one floor-plan raster.
type Space struct {
	canonicalWidth float64
	realWidth      float64
	realHeight     float64
}

// NewSpace creates the coordinate space for a raster of realWidth x realHeight
// pixels. canonicalWidth <= 0 selects DefaultCanonicalWidth.
func NewSpace(canonicalWidth float64, realWidth, realHeight int) (Space, error) {
	if canonicalWidth <= 0 {
		canonicalWidth = DefaultCanonicalWidth
	}
	if realWidth <= 0 || realHeight <= 0 {
		return Space{}, fmt.Errorf("invalid raster size %dx%d", realWidth, realHeight)
	}
	return Space{
		canonicalWidth: canonicalWidth,
		realWidth:      float64(realWidth),
		realHeight:     float64(realHeight),
	}, nil
}

// CanonicalWidth returns C.
func (s Space) CanonicalWidth() float64 { return s.canonicalWidth }

// CanonicalHeight returns the canonical height implied by the raster aspect ratio.
func (s Space) CanonicalHeight() float64 { return s.realHeight * s.Scale() }

// RealSize returns the native raster dimensions.
func (s Space) RealSize() (width, height int) {
	return int(s.realWidth), int(s.realHeight)
}

// Scale returns s = C / realWidth, the factor from native pixels to canonical units.
func (s Space) Scale() float64 { return s.canonicalWidth / s.realWidth }

// ExportScale returns the factor from canonical units to native pixels (1/s).
func (s Space) ExportScale() float64 { return s.realWidth / s.canonicalWidth }

// DisplaySize returns the raster size at zoom width z.
func (s Space) DisplaySize(zoom int) (width, height int) {
	return zoom, int(math.Round(s.realHeight * float64(zoom) / s.realWidth))
}

// ToDisplay converts a canonical box to display space at zoom width z.
func (s Space) ToDisplay(b Box, zoom float64) Box {
	return b.Scale(zoom / s.canonicalWidth)
}

// ToCanonical converts a display-space box at zoom width z back to canonical space.
func (s Space) ToCanonical(b Box, zoom float64) Box {
	return b.Scale(s.canonicalWidth / zoom)
}

// PointToCanonical converts a display-space click at zoom width z to canonical space.
func (s Space) PointToCanonical(p Point, zoom float64) Point {
	f := s.canonicalWidth / zoom
	return Point{X: p.X * f, Y: p.Y * f}
}

// ToMap converts a canonical box to map-space bounds.
func (s Space) ToMap(b Box) MapBounds {
	k := s.Scale()
	return MapBounds{
		XMin: b.X1 / k,
		XMax: b.X2 / k,
		YMin: s.realHeight - b.Y2/k,
		YMax: s.realHeight - b.Y1/k,
	}
}

// FromMap converts map-space bounds drawn on the map widget to a canonical box.
func (s Space) FromMap(m MapBounds) Box {
	k := s.Scale()
	return Box{
		X1: m.XMin * k,
		Y1: (s.realHeight - m.YMax) * k,
		X2: m.XMax * k,
		Y2: (s.realHeight - m.YMin) * k,
	}
}

// PointFromMap converts a map-space click to canonical space.
func (s Space) PointFromMap(p Point) Point {
	k := s.Scale()
	return Point{X: p.X * k, Y: (s.realHeight - p.Y) * k}
}
