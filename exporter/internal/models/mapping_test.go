package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMapping_Valid(t *testing.T) {
	rules := []Rule{
		{Field: "p1", Metric: "power_watts", Unit: "W", Entity: "device"},
		{Field: " p2 ", Metric: "power_watts_phase2", MetricType: MetricTypeCounter},
	}

	m, err := NewMapping(" My Home ", rules)
	require.NoError(t, err)

	assert.Equal(t, 2, m.Len())
	assert.Equal(t, "My Home", m.Location())

	got := m.Rules()
	assert.Equal(t, "p1", got[0].Field)
	assert.Equal(t, MetricTypeGauge, got[0].MetricType, "empty metric type defaults to gauge")
	assert.Equal(t, "p2", got[1].Field, "field keys are trimmed")
	assert.Equal(t, MetricTypeCounter, got[1].MetricType)
}

func TestNewMapping_IsImmutable(t *testing.T) {
	rules := []Rule{{Field: "p1", Metric: "power_watts"}}

	m, err := NewMapping("", rules)
	require.NoError(t, err)

	rules[0].Field = "changed"
	assert.Equal(t, "p1", m.Rules()[0].Field, "mapping must not alias the input slice")

	out := m.Rules()
	out[0].Metric = "changed"
	assert.Equal(t, "power_watts", m.Rules()[0].Metric, "Rules must return a copy")
}

func TestNewMapping_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		rules   []Rule
		wantErr error
	}{
		{
			name:    "no rules",
			rules:   nil,
			wantErr: ErrNoRules,
		},
		{
			name:    "empty field",
			rules:   []Rule{{Field: "", Metric: "m"}},
			wantErr: ErrEmptyField,
		},
		{
			name:    "whitespace field",
			rules:   []Rule{{Field: "   ", Metric: "m"}},
			wantErr: ErrEmptyField,
		},
		{
			name:    "empty metric",
			rules:   []Rule{{Field: "p1"}},
			wantErr: ErrEmptyMetric,
		},
		{
			name: "duplicate field",
			rules: []Rule{
				{Field: "p1", Metric: "a"},
				{Field: "p1", Metric: "b"},
			},
			wantErr: ErrDuplicateField,
		},
		{
			name: "duplicate after trimming",
			rules: []Rule{
				{Field: "p1", Metric: "a"},
				{Field: "p1 ", Metric: "b"},
			},
			wantErr: ErrDuplicateField,
		},
		{
			name: "metric name with mixed types",
			rules: []Rule{
				{Field: "p1", Metric: "power_watts"},
				{Field: "p2", Metric: "power_watts", MetricType: MetricTypeCounter},
			},
			wantErr: ErrMixedMetricType,
		},
		{
			name: "mixed types after defaulting",
			rules: []Rule{
				{Field: "p1", Metric: "energy", MetricType: MetricTypeCounter},
				{Field: "p2", Metric: " energy "},
			},
			wantErr: ErrMixedMetricType,
		},
		{
			name:    "unknown metric type",
			rules:   []Rule{{Field: "p1", Metric: "a", MetricType: "histogram"}},
			wantErr: ErrBadMetricType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMapping("", tt.rules)
			assert.Nil(t, m)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNewMapping_SharedMetricName(t *testing.T) {
	m, err := NewMapping("", []Rule{
		{Field: "active_power_l1_w", Metric: "power_watts", Name: "l1"},
		{Field: "active_power_l2_w", Metric: "power_watts", Name: "l2", MetricType: MetricTypeGauge},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())
}

func TestNewMapping_DuplicateNamesKey(t *testing.T) {
	_, err := NewMapping("", []Rule{
		{Field: "active_power_w", Metric: "a"},
		{Field: "active_power_w", Metric: "b"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"active_power_w"`)
}

func TestMetricType_Valid(t *testing.T) {
	assert.True(t, MetricType("").Valid())
	assert.True(t, MetricTypeGauge.Valid())
	assert.True(t, MetricTypeCounter.Valid())
	assert.False(t, MetricType("summary").Valid())
}
