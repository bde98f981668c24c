// Package geometry maps leak-zone rectangles between the three coordinate spaces
// used by the floor-plan tools.
//
// # Coordinate Spaces
//
// Canonical space is the persisted, resolution-independent space. It has a fixed
// logical width C (1200 by default) and a height derived from the floor plan's
// aspect ratio. Origin is top-left, Y increases downward.
//
// Display space is the raster resized to a zoom width Z in pixels. A canonical
// value v is displayed at v * (Z / C).
//
// Map space is the planar space of the pan/zoom map widget. It spans the native
// raster's pixel extent with the origin at the bottom-left and Y increasing
// upward. With s = C / realWidth, a canonical x is x/s on the map and a canonical
// y is realHeight - y/s.
//
// # Rectangles
//
// Boxes are axis-aligned and stored as (X1,Y1)-(X2,Y2) with X1 < X2 and Y1 < Y2.
// Containment is inclusive on all four edges. Zero-area and inverted boxes are
// rejected by Validate; the conversion functions assume valid input.
//
// All conversions are exact inverses of each other up to floating-point rounding.
package geometry
