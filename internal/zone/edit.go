package zone

import (
	"fmt"

	"github.com/ironsheep/leakzone-mcp/internal/catalog"
	"github.com/ironsheep/leakzone-mcp/internal/store"
)

// Edit is a partial update of a zone's metadata. Nil fields are left alone.
// The box is not editable; redraw the zone instead.
type Edit struct {
	Label            *string `json:"label,omitempty"`
	FluidType        *string `json:"fluid_type,omitempty"`
	Category         *string `json:"category,omitempty"`
	Severity         *string `json:"severity,omitempty"`
	State            *string `json:"state,omitempty"`
	Area             *string `json:"area,omitempty"`
	MachineID        *string `json:"machine_id,omitempty"`
	InstallationType *string `json:"installation_type,omitempty"`
}

// Empty reports whether e changes nothing.
func (e Edit) Empty() bool {
	return e.Label == nil && e.FluidType == nil && e.Category == nil && e.Severity == nil &&
		e.State == nil && e.Area == nil && e.MachineID == nil && e.InstallationType == nil
}

// Apply returns r with e applied and the store columns whose value changed.
//
// Changing the fluid resets the category to the new fluid's first category
// unless e also names a category valid for it. Derived fields are recomputed
// from cat, and Inspection-OK always ends in state Completed.
func Apply(r Record, e Edit, cat *catalog.Catalog) (Record, map[string]string, error) {
	next := r

	if e.FluidType != nil {
		fluid, ok := cat.ParseFluid(*e.FluidType)
		if !ok {
			return r, nil, fmt.Errorf("%w: %w: %q", ErrInvalidDraft, catalog.ErrUnknownFluid, *e.FluidType)
		}
		if fluid != r.FluidType {
			next.FluidType = fluid
			next.Category, _ = cat.DefaultCategory(fluid)
			if e.Category != nil && cat.ValidCategory(fluid, *e.Category) {
				next.Category = *e.Category
			}
		}
	}
	if e.Category != nil && (e.FluidType == nil || next.FluidType == r.FluidType) {
		if !cat.ValidCategory(next.FluidType, *e.Category) {
			return r, nil, fmt.Errorf("%w: %w: %q is not a %s category", ErrInvalidDraft, catalog.ErrUnknownCategory, *e.Category, next.FluidType)
		}
		next.Category = *e.Category
	}
	if e.Severity != nil {
		sev, err := severityInput(*e.Severity)
		if err != nil {
			return r, nil, err
		}
		next.Severity = sev
	}
	if e.State != nil {
		st, err := stateInput(*e.State)
		if err != nil {
			return r, nil, err
		}
		next.State = st
	}
	if e.InstallationType != nil {
		it, err := installationInput(*e.InstallationType)
		if err != nil {
			return r, nil, err
		}
		next.InstallationType = it
	}
	if e.Label != nil {
		next.Label = orDefault(*e.Label)
	}
	if e.Area != nil {
		next.Area = orDefault(*e.Area)
	}
	if e.MachineID != nil {
		next.MachineID = orDefault(*e.MachineID)
	}

	if err := next.derive(cat); err != nil {
		return r, nil, err
	}
	return next, changedColumns(r.Row(), next.Row()), nil
}

func changedColumns(before, after store.Row) map[string]string {
	out := make(map[string]string)
	for _, c := range store.Columns {
		if before.Get(c) != after.Get(c) {
			out[c] = after.Get(c)
		}
	}
	return out
}

// severityInput, stateInput and installationInput resolve operator input for
// both new and edited zones. Case is ignored and the legacy Spanish labels
// are accepted.
func severityInput(s string) (Severity, error) {
	v, ok := ParseSeverity(s)
	if !ok {
		return "", fmt.Errorf("%w: severity %q must be one of Low Medium High", ErrInvalidDraft, s)
	}
	return v, nil
}

func stateInput(s string) (State, error) {
	v, ok := ParseState(s)
	if !ok {
		return "", fmt.Errorf("%w: state %q must be one of Damaged In-Repair Completed", ErrInvalidDraft, s)
	}
	return v, nil
}

func installationInput(s string) (string, error) {
	v, ok := installationAliases[normalize(s)]
	if !ok {
		return "", fmt.Errorf("%w: installation type %q must be one of Ground Aerial", ErrInvalidDraft, s)
	}
	return v, nil
}
