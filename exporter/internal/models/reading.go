package models

import (
	"sort"
	"time"
)

// RawReading is one snapshot of device field values.
// It cannot be modified after construction.
type RawReading struct {
	fields     map[string]float64
	capturedAt time.Time
}

// NewRawReading copies fields into a new RawReading captured at capturedAt.
func NewRawReading(fields map[string]float64, capturedAt time.Time) *RawReading {
	copied := make(map[string]float64, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	return &RawReading{
		fields:     copied,
		capturedAt: capturedAt,
	}
}

// Value returns the value for key and whether it was present.
func (r *RawReading) Value(key string) (float64, bool) {
	v, ok := r.fields[key]
	return v, ok
}

// CapturedAt returns when the snapshot was received.
func (r *RawReading) CapturedAt() time.Time {
	return r.capturedAt
}

// Len returns the number of fields.
func (r *RawReading) Len() int {
	return len(r.fields)
}

// Keys returns the field keys in sorted order.
func (r *RawReading) Keys() []string {
	keys := make([]string, 0, len(r.fields))
	for k := range r.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
