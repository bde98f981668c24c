package raster

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"sync"
)

// Cache keeps decoded floor plans keyed by file path.
//
// The floor plan is immutable for the life of the process, so a plan is decoded
// once and every session shares the same image.Image. Cache is safe for
// concurrent use.
//
// # Example Usage
//
//	cache := raster.NewCache()
//	plan, err := cache.Load("/srv/plans/hall-b.png")
//	if err != nil {
//	    log.Fatal(err)
//	}
type Cache struct {
	mu     sync.RWMutex
	images map[string]cached
}

type cached struct {
	img    image.Image
	format string
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		images: make(map[string]cached),
	}
}

// Load returns the decoded image at path, reading it from disk on first use.
//
// Supported formats are PNG, JPEG and GIF. The image is cached under the exact
// path string; relative and absolute spellings of one file are separate
// entries.
func (c *Cache) Load(path string) (image.Image, error) {
	e, err := c.load(path)
	if err != nil {
		return nil, err
	}
	return e.img, nil
}

func (c *Cache) load(path string) (cached, error) {
	c.mu.RLock()
	if e, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return e, nil
	}
	c.mu.RUnlock()

	f, err := os.Open(path)
	if err != nil {
		return cached{}, fmt.Errorf("failed to open floor plan: %w", err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return cached{}, fmt.Errorf("failed to decode floor plan: %w", err)
	}
	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return cached{}, fmt.Errorf("floor plan %s has no pixels", path)
	}

	e := cached{img: img, format: format}
	c.mu.Lock()
	c.images[path] = e
	c.mu.Unlock()

	return e, nil
}

// Evict drops path from the cache. The next Load reads from disk.
func (c *Cache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

// Info describes a floor-plan file.
type Info struct {
	// Path is the file the plan was loaded from.
	Path string `json:"path"`

	// Width and Height are the native raster size in pixels.
	Width  int `json:"width"`
	Height int `json:"height"`

	// Format is the decoder that read the file: "png", "jpeg" or "gif".
	Format string `json:"format"`

	// HasAlpha reports whether the decoded image carries transparency.
	HasAlpha bool `json:"has_alpha"`

	// FileSizeBytes is the size of the file on disk.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadInfo loads path through cache and describes it.
//
// Unlike extension sniffing, Format reports the decoder that actually read the
// file.
func LoadInfo(cache *Cache, path string) (*Info, error) {
	e, err := cache.load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat floor plan: %w", err)
	}

	hasAlpha := false
	switch e.img.(type) {
	case *image.RGBA, *image.NRGBA, *image.RGBA64, *image.NRGBA64, *image.Paletted:
		hasAlpha = true
	}

	b := e.img.Bounds()
	return &Info{
		Path:          path,
		Width:         b.Dx(),
		Height:        b.Dy(),
		Format:        e.format,
		HasAlpha:      hasAlpha,
		FileSizeBytes: stat.Size(),
	}, nil
}
