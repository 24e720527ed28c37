package models

import (
	"errors"
	"time"
)

// ErrEmptyEnvelope is returned when an envelope without measurements is published.
var ErrEmptyEnvelope = errors.New("envelope has no measurements")

// Measurement is one canonical value derived from one mapping rule.
// Field order is the wire order. Field names the device key it was read from
// and is not serialized.
type Measurement struct {
	Field      string     `json:"-" yaml:"field"`
	Metric     string     `json:"metric" yaml:"metric"`
	Value      float64    `json:"value" yaml:"value"`
	Unit       string     `json:"unit,omitempty" yaml:"unit,omitempty"`
	Entity     string     `json:"entity,omitempty" yaml:"entity,omitempty"`
	Name       string     `json:"name,omitempty" yaml:"name,omitempty"`
	MetricType MetricType `json:"metric_type" yaml:"metric_type"`
	Timestamp  time.Time  `json:"timestamp" yaml:"timestamp"`
}

// Envelope is the set of measurements published for one run.
// Measurements mirror the mapping's rule order. ID travels in message
// headers only, so the payload of two runs differs in timestamps alone.
type Envelope struct {
	ID           string        `json:"-" yaml:"id"`
	Source       string        `json:"source" yaml:"source"`
	Location     string        `json:"location,omitempty" yaml:"location,omitempty"`
	CollectedAt  time.Time     `json:"collected_at" yaml:"collected_at"`
	Measurements []Measurement `json:"measurements" yaml:"measurements"`
}

// Validate checks that the envelope is eligible for publishing.
func (e *Envelope) Validate() error {
	if e == nil || len(e.Measurements) == 0 {
		return ErrEmptyEnvelope
	}
	return nil
}
