// Package zone materializes leak-zone records from store rows and answers
// queries over the current snapshot: listing, filtering, hit-testing and
// summaries.
//
// A Registry is a read-only snapshot. It is rebuilt from the store after every
// mutation and never patched in place. Record ids are positional (the row's
// index in the snapshot); Record keys are durable.
package zone

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ironsheep/leakzone-mcp/internal/catalog"
	"github.com/ironsheep/leakzone-mcp/internal/geometry"
	"github.com/ironsheep/leakzone-mcp/internal/store"
)

// Severity ranks how urgent a leak is.
type Severity string

// Severities.
const (
	SeverityLow    Severity = "Low"
	SeverityMedium Severity = "Medium"
	SeverityHigh   Severity = "High"
)

// State is the repair state of a zone.
type State string

// Repair states.
const (
	StateDamaged   State = "Damaged"
	StateInRepair  State = "In-Repair"
	StateCompleted State = "Completed"
)

// Installation types.
const (
	InstallationGround = "Ground"
	InstallationAerial = "Aerial"
)

// ErrMalformed is matched by errors describing unreadable stored rows.
var ErrMalformed = errors.New("malformed zone data")

var severityAliases = map[string]Severity{
	"low": SeverityLow, "baja": SeverityLow,
	"medium": SeverityMedium, "media": SeverityMedium,
	"high": SeverityHigh, "alta": SeverityHigh,
}

var stateAliases = map[string]State{
	"damaged": StateDamaged, "dañado": StateDamaged, "danado": StateDamaged,
	"in-repair": StateInRepair, "in repair": StateInRepair, "en reparación": StateInRepair, "en reparacion": StateInRepair,
	"completed": StateCompleted, "completado": StateCompleted,
}

var installationAliases = map[string]string{
	"ground": InstallationGround, "suelo": InstallationGround,
	"aerial": InstallationAerial, "aérea": InstallationAerial, "aerea": InstallationAerial,
}

// ParseSeverity resolves a stored severity, accepting legacy labels.
func ParseSeverity(s string) (Severity, bool) {
	v, ok := severityAliases[normalize(s)]
	return v, ok
}

// ParseState resolves a stored repair state, accepting legacy labels.
func ParseState(s string) (State, bool) {
	v, ok := stateAliases[normalize(s)]
	return v, ok
}

// Record is one materialized leak zone.
type Record struct {
	ID               int           `json:"id"`
	Key              string        `json:"key,omitempty"`
	Box              geometry.Box  `json:"box"`
	Label            string        `json:"label"`
	FluidType        catalog.Fluid `json:"fluid_type"`
	Category         string        `json:"category"`
	FlowRateRange    string        `json:"flow_rate_range"`
	AnnualCost       float64       `json:"annual_cost"`
	Severity         Severity      `json:"severity"`
	State            State         `json:"state"`
	Area             string        `json:"area"`
	MachineID        string        `json:"machine_id"`
	InstallationType string        `json:"installation_type"`
}

// Row encodes r in the store's column layout.
func (r Record) Row() store.Row {
	return store.Row{
		store.ColX1:               formatNumber(r.Box.X1),
		store.ColY1:               formatNumber(r.Box.Y1),
		store.ColX2:               formatNumber(r.Box.X2),
		store.ColY2:               formatNumber(r.Box.Y2),
		store.ColLabel:            r.Label,
		store.ColFluidType:        string(r.FluidType),
		store.ColArea:             r.Area,
		store.ColInstallationType: r.InstallationType,
		store.ColMachineID:        r.MachineID,
		store.ColSeverity:         string(r.Severity),
		store.ColCategory:         r.Category,
		store.ColFlowRateRange:    r.FlowRateRange,
		store.ColAnnualCost:       formatNumber(r.AnnualCost),
		store.ColState:            string(r.State),
		store.ColKey:              r.Key,
	}
}

// FromRow materializes the row at snapshot position id. Derived fields are
// recomputed from cat; a category outside the fluid's set is reset to the
// fluid's first category.
func FromRow(id int, row store.Row, cat *catalog.Catalog) (Record, error) {
	var box geometry.Box
	coords := []struct {
		col string
		dst *float64
	}{
		{store.ColX1, &box.X1}, {store.ColY1, &box.Y1},
		{store.ColX2, &box.X2}, {store.ColY2, &box.Y2},
	}
	for _, c := range coords {
		v, err := strconv.ParseFloat(strings.TrimSpace(row.Get(c.col)), 64)
		if err != nil {
			return Record{}, fmt.Errorf("%w: row %d: %s=%q is not a number", ErrMalformed, store.RowFor(id), c.col, row.Get(c.col))
		}
		*c.dst = v
	}
	if err := box.Validate(); err != nil {
		return Record{}, fmt.Errorf("%w: row %d: %v", ErrMalformed, store.RowFor(id), err)
	}

	fluid, ok := cat.ParseFluid(row.Get(store.ColFluidType))
	if !ok {
		return Record{}, fmt.Errorf("%w: row %d: unknown fluid %q", ErrMalformed, store.RowFor(id), row.Get(store.ColFluidType))
	}

	r := Record{
		ID:               id,
		Key:              row.Get(store.ColKey),
		Box:              box,
		Label:            row.Get(store.ColLabel),
		FluidType:        fluid,
		Category:         row.Get(store.ColCategory),
		FlowRateRange:    row.Get(store.ColFlowRateRange),
		AnnualCost:       ParseCost(row.Get(store.ColAnnualCost)),
		Area:             row.Get(store.ColArea),
		MachineID:        row.Get(store.ColMachineID),
		InstallationType: row.Get(store.ColInstallationType),
	}
	if sev, ok := ParseSeverity(row.Get(store.ColSeverity)); ok {
		r.Severity = sev
	} else {
		r.Severity = SeverityMedium
	}
	if st, ok := ParseState(row.Get(store.ColState)); ok {
		r.State = st
	} else {
		r.State = StateDamaged
	}
	if it, ok := installationAliases[normalize(r.InstallationType)]; ok {
		r.InstallationType = it
	}

	if !cat.ValidCategory(r.FluidType, r.Category) {
		r.Category, _ = cat.DefaultCategory(r.FluidType)
	}
	if err := r.derive(cat); err != nil {
		return Record{}, fmt.Errorf("%w: row %d: %v", ErrMalformed, store.RowFor(id), err)
	}
	return r, nil
}

// derive refreshes the catalog-derived fields and the Inspection-OK rule.
func (r *Record) derive(cat *catalog.Catalog) error {
	e, err := cat.DeriveFields(r.FluidType, r.Category)
	if err != nil {
		return err
	}
	r.FlowRateRange = e.FlowRateRange
	r.AnnualCost = e.AnnualCost
	if r.FluidType == catalog.FluidInspectionOK {
		r.State = StateCompleted
	}
	return nil
}

// ParseCost reads a stored cost cell; non-numeric values count as zero.
func ParseCost(s string) float64 {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "$"))
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
