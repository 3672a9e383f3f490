package model

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared struct validator.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks field constraints and the threshold shape against the condition.
func (d *AlertDefinition) Validate() error {
	if err := Validator().Struct(d); err != nil {
		return fmt.Errorf("invalid alert definition: %s", describe(err))
	}
	if !d.Condition.Valid() {
		return fmt.Errorf("invalid alert definition: unknown condition %q", d.Condition)
	}
	if err := d.CheckThreshold(); err != nil {
		return fmt.Errorf("invalid alert definition: %w", err)
	}
	return nil
}

// CheckThreshold reports whether the threshold shape fits the condition.
func (d *AlertDefinition) CheckThreshold() error {
	if d.Condition == ConditionBetween {
		lo, hi, ok := d.Threshold.Bounds()
		if !ok {
			return fmt.Errorf("condition between needs [min, max], got %s", d.Threshold)
		}
		if lo > hi {
			return fmt.Errorf("condition between needs min <= max, got %s", d.Threshold)
		}
		return nil
	}
	if _, ok := d.Threshold.Scalar(); !ok {
		return fmt.Errorf("condition %s needs a single threshold, got %s", d.Condition, d.Threshold)
	}
	return nil
}

// ValidEmail reports whether addr is a syntactically valid email address.
func ValidEmail(addr string) bool {
	return Validator().Var(addr, "required,email") == nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
