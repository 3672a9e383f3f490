package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Threshold is either a single number or a [min, max] pair.
// It keeps whatever shape it was decoded from so that a malformed
// range can be detected at evaluation time instead of being coerced.
type Threshold struct {
	values []float64
}

// Scalar builds a single-number threshold.
func Scalar(v float64) Threshold {
	return Threshold{values: []float64{v}}
}

// Range builds a [min, max] threshold.
func Range(lo, hi float64) Threshold {
	return Threshold{values: []float64{lo, hi}}
}

// ThresholdOf builds a threshold from raw values, in any shape.
func ThresholdOf(values ...float64) Threshold {
	return Threshold{values: append([]float64(nil), values...)}
}

// Values returns a copy of the raw values.
func (t Threshold) Values() []float64 {
	return append([]float64(nil), t.values...)
}

// Scalar returns the single value when the threshold holds exactly one.
func (t Threshold) Scalar() (float64, bool) {
	if len(t.values) != 1 {
		return 0, false
	}
	return t.values[0], true
}

// Bounds returns min and max when the threshold holds exactly two values.
func (t Threshold) Bounds() (lo, hi float64, ok bool) {
	if len(t.values) != 2 {
		return 0, 0, false
	}
	return t.values[0], t.values[1], true
}

func (t Threshold) String() string {
	if v, ok := t.Scalar(); ok {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	parts := make([]string, len(t.values))
	for i, v := range t.values {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (t Threshold) MarshalJSON() ([]byte, error) {
	if v, ok := t.Scalar(); ok {
		return json.Marshal(v)
	}
	if t.values == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(t.values)
}

func (t *Threshold) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		t.values = nil
		return nil
	case len(data) > 0 && data[0] == '[':
		var vs []float64
		if err := json.Unmarshal(data, &vs); err != nil {
			return fmt.Errorf("decode threshold range: %w", err)
		}
		t.values = vs
		return nil
	default:
		var v float64
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("decode threshold: %w", err)
		}
		t.values = []float64{v}
		return nil
	}
}

func (t Threshold) MarshalYAML() (any, error) {
	if v, ok := t.Scalar(); ok {
		return v, nil
	}
	return t.values, nil
}

func (t *Threshold) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var vs []float64
		if err := node.Decode(&vs); err != nil {
			return fmt.Errorf("decode threshold range: %w", err)
		}
		t.values = vs
	case yaml.ScalarNode:
		var v float64
		if err := node.Decode(&v); err != nil {
			return fmt.Errorf("decode threshold: %w", err)
		}
		t.values = []float64{v}
	default:
		return fmt.Errorf("decode threshold: unexpected yaml node kind %d", node.Kind)
	}
	return nil
}
