// Package catalog holds the static fluid lookup used to classify leak zones.
//
// A catalog maps fluid -> category -> {flow-rate range, annual cost}. Category
// sets differ per fluid. A Catalog is immutable once built and is shared by
// pointer; callers that change a zone's fluid must pick a category from the
// new fluid's set themselves (see zone.Record.Apply).
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Fluid identifies the medium leaking from a zone.
type Fluid string

// Fluids known to the default catalog.
const (
	FluidAir          Fluid = "Air"
	FluidGas          Fluid = "Gas"
	FluidWater        Fluid = "Water"
	FluidHelium       Fluid = "Helium"
	FluidOil          Fluid = "Oil"
	FluidInspectionOK Fluid = "Inspection-OK"
)

var (
	// ErrUnknownFluid is returned for fluids missing from the catalog.
	ErrUnknownFluid = errors.New("unknown fluid")

	// ErrUnknownCategory is returned when a category is not in the fluid's set.
	ErrUnknownCategory = errors.New("category not valid for fluid")
)

// unknownColor marks zones whose fluid is not in the catalog.
var unknownColor = colorful.Color{R: 1, G: 0, B: 0}

// Entry is the derived data for one (fluid, category) pair.
type Entry struct {
	FlowRateRange string  `json:"flow_rate_range"`
	AnnualCost    float64 `json:"annual_cost"`
}

// Category is one named leak class of a fluid.
type Category struct {
	Name string `json:"name"`
	Entry
}

// FluidSpec describes one fluid: its display colour and ordered categories.
// The first category is the default chosen when a zone switches to this fluid.
type FluidSpec struct {
	Fluid      Fluid      `json:"fluid"`
	Color      string     `json:"color"`
	Aliases    []string   `json:"aliases,omitempty"`
	Categories []Category `json:"categories"`
}

// Catalog is an immutable fluid lookup.
type Catalog struct {
	specs   []FluidSpec
	index   map[Fluid]int
	aliases map[string]Fluid
	colors  map[Fluid]colorful.Color
}

// New builds a catalog from specs. Each fluid needs a parseable "#RRGGBB"
// colour and at least one category; names must be unique.
func New(specs ...FluidSpec) (*Catalog, error) {
	c := &Catalog{
		specs:   make([]FluidSpec, 0, len(specs)),
		index:   make(map[Fluid]int, len(specs)),
		aliases: make(map[string]Fluid),
		colors:  make(map[Fluid]colorful.Color, len(specs)),
	}
	for _, spec := range specs {
		if spec.Fluid == "" {
			return nil, fmt.Errorf("fluid name is empty")
		}
		if _, dup := c.index[spec.Fluid]; dup {
			return nil, fmt.Errorf("duplicate fluid %q", spec.Fluid)
		}
		if len(spec.Categories) == 0 {
			return nil, fmt.Errorf("fluid %q has no categories", spec.Fluid)
		}
		seen := make(map[string]bool, len(spec.Categories))
		for _, cat := range spec.Categories {
			if cat.Name == "" || seen[cat.Name] {
				return nil, fmt.Errorf("fluid %q has empty or duplicate category %q", spec.Fluid, cat.Name)
			}
			seen[cat.Name] = true
		}
		col, err := colorful.Hex(spec.Color)
		if err != nil {
			return nil, fmt.Errorf("failed to parse color for %q: %w", spec.Fluid, err)
		}

		cp := spec
		cp.Categories = append([]Category(nil), spec.Categories...)
		cp.Aliases = append([]string(nil), spec.Aliases...)
		c.index[spec.Fluid] = len(c.specs)
		c.specs = append(c.specs, cp)
		c.colors[spec.Fluid] = col
		c.aliases[strings.ToLower(string(spec.Fluid))] = spec.Fluid
		for _, a := range spec.Aliases {
			c.aliases[strings.ToLower(a)] = spec.Fluid
		}
	}
	return c, nil
}

// Fluids returns the catalog's fluids in declaration order.
func (c *Catalog) Fluids() []Fluid {
	out := make([]Fluid, len(c.specs))
	for i, s := range c.specs {
		out[i] = s.Fluid
	}
	return out
}

// Specs returns a copy of every fluid specification.
func (c *Catalog) Specs() []FluidSpec {
	out := make([]FluidSpec, len(c.specs))
	for i, s := range c.specs {
		s.Categories = append([]Category(nil), s.Categories...)
		s.Aliases = append([]string(nil), s.Aliases...)
		out[i] = s
	}
	return out
}

// Has reports whether f is in the catalog.
func (c *Catalog) Has(f Fluid) bool {
	_, ok := c.index[f]
	return ok
}

// ParseFluid resolves a stored fluid name, accepting legacy aliases
// case-insensitively.
func (c *Catalog) ParseFluid(s string) (Fluid, bool) {
	f, ok := c.aliases[strings.ToLower(strings.TrimSpace(s))]
	return f, ok
}

// CategoriesFor returns the ordered category names of f, or nil if f is unknown.
func (c *Catalog) CategoriesFor(f Fluid) []string {
	i, ok := c.index[f]
	if !ok {
		return nil
	}
	names := make([]string, len(c.specs[i].Categories))
	for j, cat := range c.specs[i].Categories {
		names[j] = cat.Name
	}
	return names
}

// DefaultCategory returns the first category of f.
func (c *Catalog) DefaultCategory(f Fluid) (string, error) {
	i, ok := c.index[f]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownFluid, f)
	}
	return c.specs[i].Categories[0].Name, nil
}

// ValidCategory reports whether category belongs to f.
func (c *Catalog) ValidCategory(f Fluid, category string) bool {
	_, err := c.DeriveFields(f, category)
	return err == nil
}

// DeriveFields looks up the flow-rate range and annual cost of (f, category).
func (c *Catalog) DeriveFields(f Fluid, category string) (Entry, error) {
	i, ok := c.index[f]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrUnknownFluid, f)
	}
	for _, cat := range c.specs[i].Categories {
		if cat.Name == category {
			return cat.Entry, nil
		}
	}
	return Entry{}, fmt.Errorf("%w: %q is not a %s category", ErrUnknownCategory, category, f)
}

// Color returns the outline colour of f; unknown fluids are red.
func (c *Catalog) Color(f Fluid) colorful.Color {
	if col, ok := c.colors[f]; ok {
		return col
	}
	return unknownColor
}
