// Package raster loads the floor-plan image and produces the small derived
// images the editor shows: zone thumbnails and tinted previews of a box being
// drawn.
//
// # Coordinate System
//
// Rectangles here are raster pixels at native resolution, (0,0) top-left,
// X right, Y down. Min is inclusive and Max exclusive. Callers convert from
// canonical space with geometry.Space.ExportScale before cropping.
//
// # Thread Safety
//
// Cache is safe for concurrent use. Crop, Tint and Encode never mutate their
// input and may run concurrently on the same source image.
//
// # Output
//
// Images handed to the MCP client are PNG, base64 encoded, wrapped in an
// ImageResult.
package raster
