package vrx

import (
	"fmt"

	"github.com/robotalks/backpack/pkg/config"
	"github.com/robotalks/backpack/pkg/hal"
)

// Deps carries what backends may need. Unused fields may be nil.
type Deps struct {
	Clock     hal.Clock
	Port      hal.Port
	PinSelect hal.Pin
	PinClock  hal.Pin
	PinData   hal.Pin
	Settings  *config.Settings
	Config    config.VRXConfig
}

// Kinds lists the known backends.
var Kinds = []string{"rx5808", "steadyview", "rapidfire", "hdzero", "orqa", "fusion"}

// New creates the backend named kind.
func New(kind string, deps Deps) (Adapter, error) {
	switch kind {
	case "rx5808", "steadyview", "rapidfire":
		if deps.PinSelect == nil || deps.PinClock == nil || deps.PinData == nil {
			return nil, fmt.Errorf("vrx %s: pins not configured", kind)
		}
	case "hdzero", "orqa", "fusion":
		if deps.Port == nil {
			return nil, fmt.Errorf("vrx %s: serial port required", kind)
		}
	default:
		return nil, fmt.Errorf("vrx %q unknown", kind)
	}
	if deps.Clock == nil {
		deps.Clock = hal.NewHostClock()
	}
	switch kind {
	case "rx5808":
		return NewRX5808(deps), nil
	case "steadyview":
		return NewSteadyView(deps), nil
	case "rapidfire":
		return NewRapidfire(deps), nil
	case "hdzero":
		return NewHDZero(deps), nil
	case "orqa":
		return NewOrqa(deps), nil
	default:
		return NewFusion(deps), nil
	}
}
