package alerts

import (
	"errors"
	"fmt"
	"time"

	"github.com/canchaya/canchaya/pkg/model"
)

// ErrMalformedThreshold means the threshold shape does not fit the condition.
var ErrMalformedThreshold = errors.New("malformed threshold")

// Matches reports whether value satisfies the definition's condition.
// between is inclusive on both ends.
func Matches(def model.AlertDefinition, value float64) (bool, error) {
	if def.Condition == model.ConditionBetween {
		lo, hi, ok := def.Threshold.Bounds()
		if !ok {
			return false, fmt.Errorf("%w: between needs [min, max], got %s", ErrMalformedThreshold, def.Threshold)
		}
		return value >= lo && value <= hi, nil
	}

	threshold, ok := def.Threshold.Scalar()
	if !ok {
		return false, fmt.Errorf("%w: %s needs a single number, got %s", ErrMalformedThreshold, def.Condition, def.Threshold)
	}

	switch def.Condition {
	case model.ConditionGreater:
		return value > threshold, nil
	case model.ConditionLess:
		return value < threshold, nil
	case model.ConditionGreaterEqual:
		return value >= threshold, nil
	case model.ConditionLessEqual:
		return value <= threshold, nil
	case model.ConditionEqual:
		return value == threshold, nil
	default:
		return false, fmt.Errorf("unknown condition %q", def.Condition)
	}
}

// State is where a definition sits in its firing lifecycle.
type State string

const (
	StateInactive    State = "INACTIVE"
	StateCoolingDown State = "COOLING_DOWN"
	StateReady       State = "READY"
)

// StateOf derives the state at now. Cooldown lapses once now-lastTriggered
// reaches the configured cooldown; there is no timer.
func StateOf(def model.AlertDefinition, now time.Time) State {
	if !def.Active {
		return StateInactive
	}
	if def.LastTriggered == nil {
		return StateReady
	}
	if now.Sub(*def.LastTriggered) >= def.Cooldown() {
		return StateReady
	}
	return StateCoolingDown
}

// ReadyAt returns when a cooling-down definition may fire again.
func ReadyAt(def model.AlertDefinition) time.Time {
	if def.LastTriggered == nil {
		return time.Time{}
	}
	return def.LastTriggered.Add(def.Cooldown())
}
