package workflow

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/san-kum/timelag/internal/permeation"
	"github.com/san-kum/timelag/internal/stabilisation"
)

const (
	DefaultDt             = 1.0
	DefaultSpaceDivisions = 50
)

// Params describes one analysis. Thickness and Diameter are in cm, FlowRate
// in ml/min. A nil FlowRate means each raw sample carries its own.
type Params struct {
	Experiment string   `validate:"required"`
	Thickness  float64  `validate:"gt=0"`
	Diameter   float64  `validate:"gt=0"`
	FlowRate   *float64 `validate:"omitempty,gt=0"`

	Override  permeation.Override
	Detection stabilisation.Options

	// Simulation time step in s; the spatial step is Thickness/SpaceDivisions.
	Dt             float64 `validate:"gt=0"`
	SpaceDivisions int     `validate:"gte=1"`
}

// DefaultParams returns the standard settings for an experiment.
func DefaultParams(experiment string, thickness, diameter float64) Params {
	return Params{
		Experiment:     experiment,
		Thickness:      thickness,
		Diameter:       diameter,
		Detection:      stabilisation.WorkflowOptions(),
		Dt:             DefaultDt,
		SpaceDivisions: DefaultSpaceDivisions,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the parameter ranges and the override window.
func (p Params) Validate() error {
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed %q (got %v)", permeation.ErrInvalidParameter, fe.Field(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("%w: %v", permeation.ErrInvalidParameter, err)
	}
	return p.Override.Validate()
}
