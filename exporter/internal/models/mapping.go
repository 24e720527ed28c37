package models

import (
	"errors"
	"fmt"
	"strings"
)

// MetricType describes how consumers should treat a measurement's value over time.
type MetricType string

const (
	MetricTypeGauge   MetricType = "gauge"
	MetricTypeCounter MetricType = "counter"
)

// Valid reports whether t is a known metric type. The empty type is valid and means gauge.
func (t MetricType) Valid() bool {
	switch t {
	case "", MetricTypeGauge, MetricTypeCounter:
		return true
	default:
		return false
	}
}

// Mapping validation errors.
var (
	ErrNoRules         = errors.New("mapping has no rules")
	ErrEmptyField      = errors.New("rule has empty source field")
	ErrEmptyMetric     = errors.New("rule has empty metric name")
	ErrDuplicateField  = errors.New("duplicate source field")
	ErrBadMetricType   = errors.New("unknown metric type")
	ErrMixedMetricType = errors.New("metric declared with more than one metric type")
)

// Rule maps one raw device field onto one canonical measurement.
type Rule struct {
	Field      string     `yaml:"field" json:"field"`
	Metric     string     `yaml:"metric" json:"metric"`
	Unit       string     `yaml:"unit,omitempty" json:"unit,omitempty"`
	Entity     string     `yaml:"entity,omitempty" json:"entity,omitempty"`
	Name       string     `yaml:"name,omitempty" json:"name,omitempty"`
	MetricType MetricType `yaml:"metric_type,omitempty" json:"metric_type,omitempty"`
}

// Mapping is the validated, ordered rule list for a run.
// It cannot be modified after construction.
type Mapping struct {
	location string
	rules    []Rule
}

// NewMapping validates rules and returns an immutable Mapping.
// Field keys are trimmed; they must be non-empty and unique.
func NewMapping(location string, rules []Rule) (*Mapping, error) {
	if len(rules) == 0 {
		return nil, ErrNoRules
	}

	seen := make(map[string]int, len(rules))
	types := make(map[string]int, len(rules))
	normalized := make([]Rule, len(rules))

	for i, r := range rules {
		r.Field = strings.TrimSpace(r.Field)
		r.Metric = strings.TrimSpace(r.Metric)

		if r.Field == "" {
			return nil, fmt.Errorf("rule %d: %w", i, ErrEmptyField)
		}
		if r.Metric == "" {
			return nil, fmt.Errorf("rule %d (%s): %w", i, r.Field, ErrEmptyMetric)
		}
		if !r.MetricType.Valid() {
			return nil, fmt.Errorf("rule %d (%s): %w %q", i, r.Field, ErrBadMetricType, r.MetricType)
		}
		if first, dup := seen[r.Field]; dup {
			return nil, fmt.Errorf("rule %d: %w %q (first declared by rule %d)", i, ErrDuplicateField, r.Field, first)
		}
		if r.MetricType == "" {
			r.MetricType = MetricTypeGauge
		}
		if first, ok := types[r.Metric]; ok && normalized[first].MetricType != r.MetricType {
			return nil, fmt.Errorf("rule %d (%s): %w: %q is %s in rule %d and %s here",
				i, r.Field, ErrMixedMetricType, r.Metric, normalized[first].MetricType, first, r.MetricType)
		} else if !ok {
			types[r.Metric] = i
		}

		seen[r.Field] = i
		normalized[i] = r
	}

	return &Mapping{
		location: strings.TrimSpace(location),
		rules:    normalized,
	}, nil
}

// Rules returns a copy of the rules in declaration order.
func (m *Mapping) Rules() []Rule {
	out := make([]Rule, len(m.rules))
	copy(out, m.rules)
	return out
}

// Len returns the number of rules.
func (m *Mapping) Len() int {
	return len(m.rules)
}

// Location returns the optional location label of the mapped device.
func (m *Mapping) Location() string {
	return m.location
}
