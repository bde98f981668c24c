package raster

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/blend"
	"github.com/disintegration/imaging"
)

// PreviewOpacity is how strongly a drawn box is tinted with its fluid colour.
const PreviewOpacity = 0.3

// ImageResult is an encoded image ready to hand to a client.
type ImageResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// Encode renders img as a base64 PNG.
func Encode(img image.Image) (*ImageResult, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	b := img.Bounds()
	return &ImageResult{
		Width:       b.Dx(),
		Height:      b.Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// Crop copies r out of img, clamped to the image bounds. A scale other than 1
// resizes the result; scale <= 0 is treated as 1.
func Crop(img image.Image, r image.Rectangle, scale float64) (*image.NRGBA, error) {
	bounds := img.Bounds()
	clipped := r.Canon().Intersect(bounds)
	if clipped.Empty() {
		return nil, fmt.Errorf("crop region %v outside image bounds %v", r, bounds)
	}

	cropped := imaging.Crop(img, clipped)

	if scale != 1.0 && scale > 0 {
		w := max(1, int(float64(cropped.Bounds().Dx())*scale))
		h := max(1, int(float64(cropped.Bounds().Dy())*scale))
		cropped = imaging.Resize(cropped, w, h, imaging.Lanczos)
	}
	return cropped, nil
}

// Tint blends img with a solid c at the given opacity (0..1).
func Tint(img image.Image, c color.Color, opacity float64) *image.RGBA {
	opacity = min(max(opacity, 0), 1)
	b := img.Bounds()
	overlay := imaging.New(b.Dx(), b.Dy(), c)
	// bild works in a zero-origin frame.
	base := imaging.Clone(img)
	return blend.Opacity(base, overlay, opacity)
}

// Preview crops r from img and tints it with c at PreviewOpacity. It is what
// the editor shows while a zone is being drawn.
func Preview(img image.Image, r image.Rectangle, c color.Color) (*image.RGBA, error) {
	cropped, err := Crop(img, r, 1)
	if err != nil {
		return nil, err
	}
	return Tint(cropped, c, PreviewOpacity), nil
}
