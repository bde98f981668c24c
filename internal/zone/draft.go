package zone

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/ironsheep/leakzone-mcp/internal/catalog"
	"github.com/ironsheep/leakzone-mcp/internal/geometry"
	"github.com/ironsheep/leakzone-mcp/internal/store"
)

// Draft is the operator input for a new zone. The box is supplied separately
// because it may arrive in any coordinate space.
type Draft struct {
	Label            string `json:"label" validate:"max=200"`
	FluidType        string `json:"fluid_type" validate:"required"`
	Category         string `json:"category,omitempty"`
	Severity         string `json:"severity,omitempty"`
	State            string `json:"state,omitempty"`
	Area             string `json:"area,omitempty" validate:"max=200"`
	MachineID        string `json:"machine_id,omitempty" validate:"max=100"`
	InstallationType string `json:"installation_type,omitempty"`
}

// ErrInvalidDraft is matched by draft and edit validation failures.
var ErrInvalidDraft = errors.New("invalid zone input")

var validate = validator.New()

// NewRecord validates d and box and builds the record to append. Derived
// fields come from cat, the category defaults to the fluid's first one and a
// fresh key is assigned. Severity, state and installation type follow the same
// lenient parsing as Apply. The returned record has no meaningful ID until the
// registry is rebuilt.
func NewRecord(d Draft, box geometry.Box, cat *catalog.Catalog) (Record, error) {
	if err := validate.Struct(d); err != nil {
		return Record{}, validationError(err)
	}
	if err := box.Validate(); err != nil {
		return Record{}, err
	}
	fluid, ok := cat.ParseFluid(d.FluidType)
	if !ok {
		return Record{}, fmt.Errorf("%w: %w: %q", ErrInvalidDraft, catalog.ErrUnknownFluid, d.FluidType)
	}

	r := Record{
		ID:               -1,
		Key:              uuid.NewString(),
		Box:              box,
		Label:            orDefault(d.Label),
		FluidType:        fluid,
		Category:         d.Category,
		Severity:         SeverityMedium,
		State:            StateDamaged,
		Area:             orDefault(d.Area),
		MachineID:        orDefault(d.MachineID),
		InstallationType: InstallationGround,
	}
	var err error
	if strings.TrimSpace(d.Severity) != "" {
		if r.Severity, err = severityInput(d.Severity); err != nil {
			return Record{}, err
		}
	}
	if strings.TrimSpace(d.State) != "" {
		if r.State, err = stateInput(d.State); err != nil {
			return Record{}, err
		}
	}
	if strings.TrimSpace(d.InstallationType) != "" {
		if r.InstallationType, err = installationInput(d.InstallationType); err != nil {
			return Record{}, err
		}
	}
	if r.Category == "" {
		r.Category, _ = cat.DefaultCategory(fluid)
	}
	if !cat.ValidCategory(fluid, r.Category) {
		return Record{}, fmt.Errorf("%w: %w: %q is not a %s category", ErrInvalidDraft, catalog.ErrUnknownCategory, r.Category, fluid)
	}
	if err = r.derive(cat); err != nil {
		return Record{}, err
	}
	return r, nil
}

// validationError flattens validator output into one readable error.
func validationError(err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return fmt.Errorf("%w: %v", ErrInvalidDraft, err)
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field(), validationMessage(fe)))
	}
	return fmt.Errorf("%w: %s", ErrInvalidDraft, strings.Join(msgs, "; "))
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed validation: %s", fe.Tag())
	}
}

func orDefault(s string) string {
	if strings.TrimSpace(s) == "" {
		return store.DefaultCell
	}
	return s
}
