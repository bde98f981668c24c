package render

import (
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

var (
	gofontOnce      sync.Once
	gofontFaceCache = make(map[float64]font.Face)
	gofontErr       error
	gofontMu        sync.Mutex
	gofontData      *opentype.Font
)

// resolveFontFace returns a Go Regular face at size, or the 7x13 bitmap face
// when size is zero or the vector font cannot be loaded.
func resolveFontFace(size float64) font.Face {
	if size <= 0 {
		return basicfont.Face7x13
	}
	if face := getGoFontFace(size); face != nil {
		return face
	}
	return basicfont.Face7x13
}

func getGoFontFace(size float64) font.Face {
	gofontOnce.Do(func() {
		gofontData, gofontErr = opentype.Parse(goregular.TTF)
	})
	if gofontErr != nil || gofontData == nil {
		return nil
	}
	gofontMu.Lock()
	defer gofontMu.Unlock()
	if face, ok := gofontFaceCache[size]; ok {
		return face
	}
	face, err := opentype.NewFace(gofontData, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil
	}
	gofontFaceCache[size] = face
	return face
}
