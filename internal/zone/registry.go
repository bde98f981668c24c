package zone

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ironsheep/leakzone-mcp/internal/catalog"
	"github.com/ironsheep/leakzone-mcp/internal/store"
)

// MalformedError lists the rows Build skipped.
type MalformedError struct {
	Problems []error
}

func (e *MalformedError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.Error()
	}
	return fmt.Sprintf("%d malformed zone row(s): %s", len(e.Problems), strings.Join(msgs, "; "))
}

// Unwrap exposes each row problem; every one matches ErrMalformed.
func (e *MalformedError) Unwrap() []error { return e.Problems }

// Registry is an immutable snapshot of the zones in a store.
type Registry struct {
	zones []Record
	byID  map[int]int
	byKey map[string]int
}

// Empty returns a registry with no zones.
func Empty() *Registry {
	return &Registry{byID: map[int]int{}, byKey: map[string]int{}}
}

// Build materializes rows, in store order. Rows that cannot be read are
// skipped and reported through a *MalformedError; the registry is returned
// either way and surviving records keep their row position as ID.
func Build(rows []store.Row, cat *catalog.Catalog) (*Registry, error) {
	reg := Empty()
	reg.zones = make([]Record, 0, len(rows))
	var problems []error
	for i, row := range rows {
		r, err := FromRow(i, row, cat)
		if err != nil {
			problems = append(problems, err)
			continue
		}
		reg.byID[r.ID] = len(reg.zones)
		if r.Key != "" {
			reg.byKey[r.Key] = len(reg.zones)
		}
		reg.zones = append(reg.zones, r)
	}
	if len(problems) > 0 {
		return reg, &MalformedError{Problems: problems}
	}
	return reg, nil
}

// Len returns the number of readable zones.
func (g *Registry) Len() int { return len(g.zones) }

// ListAll returns every zone, oldest first.
func (g *Registry) ListAll() []Record {
	return slices.Clone(g.zones)
}

// Get returns the zone at snapshot position id.
func (g *Registry) Get(id int) (Record, bool) {
	i, ok := g.byID[id]
	if !ok {
		return Record{}, false
	}
	return g.zones[i], true
}

// ByKey returns the zone with durable key key.
func (g *Registry) ByKey(key string) (Record, bool) {
	i, ok := g.byKey[key]
	if !ok {
		return Record{}, false
	}
	return g.zones[i], true
}

// Filter selects zones. Predicates are ANDed. A nil slice places no
// constraint on its dimension; a non-nil empty slice matches nothing.
type Filter struct {
	FluidTypes []catalog.Fluid `json:"fluid_types,omitempty"`
	States     []State         `json:"states,omitempty"`
	Areas      []string        `json:"areas,omitempty"`

	// Text matches label, area, machine id and installation type, ignoring case.
	Text string `json:"text,omitempty"`
}

// Match reports whether r satisfies f.
func (f Filter) Match(r Record) bool {
	if f.FluidTypes != nil && !slices.Contains(f.FluidTypes, r.FluidType) {
		return false
	}
	if f.States != nil && !slices.Contains(f.States, r.State) {
		return false
	}
	if f.Areas != nil && !slices.Contains(f.Areas, r.Area) {
		return false
	}
	if q := normalize(f.Text); q != "" {
		fields := []string{r.Label, r.Area, r.MachineID, r.InstallationType}
		found := false
		for _, v := range fields {
			if strings.Contains(strings.ToLower(v), q) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Filter returns the zones matching f, in store order.
func (g *Registry) Filter(f Filter) []Record {
	out := make([]Record, 0, len(g.zones))
	for _, r := range g.zones {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// Areas returns the distinct areas in first-seen order.
func (g *Registry) Areas() []string {
	var out []string
	for _, r := range g.zones {
		if !slices.Contains(out, r.Area) {
			out = append(out, r.Area)
		}
	}
	return out
}

// Summary aggregates a set of zones for reporting.
type Summary struct {
	Total           int                   `json:"total"`
	ByFluid         map[catalog.Fluid]int `json:"by_fluid"`
	ByState         map[State]int         `json:"by_state"`
	TotalAnnualCost float64               `json:"total_annual_cost"`
}

// Summarize counts zones per fluid and state and totals their annual cost.
func Summarize(zones []Record) Summary {
	s := Summary{
		Total:   len(zones),
		ByFluid: make(map[catalog.Fluid]int),
		ByState: make(map[State]int),
	}
	for _, r := range zones {
		s.ByFluid[r.FluidType]++
		s.ByState[r.State]++
		s.TotalAnnualCost += r.AnnualCost
	}
	return s
}
