package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/JorritSalverda/jarvis-homewizard-exporter/exporter/internal/models"
)

// field keeps series apart when several rules share a metric name and labels.
var measurementLabels = []string{"source", "location", "field", "entity", "name", "unit"}

// envelopeCollector exposes one envelope's measurements as constant metrics
// stamped with their collection time.
type envelopeCollector struct {
	env *models.Envelope
}

// Describe sends one descriptor per metric name; several rules may share a
// name and differ only in their labels.
func (c *envelopeCollector) Describe(ch chan<- *prometheus.Desc) {
	seen := make(map[string]bool, len(c.env.Measurements))
	for _, m := range c.env.Measurements {
		name := MetricName(m.Metric)
		if seen[name] {
			continue
		}
		seen[name] = true
		ch <- describe(name)
	}
}

func describe(name string) *prometheus.Desc {
	return prometheus.NewDesc(name, fmt.Sprintf("HomeWizard measurement %s.", name), measurementLabels, nil)
}

func (c *envelopeCollector) Collect(ch chan<- prometheus.Metric) {
	for _, m := range c.env.Measurements {
		metric, err := c.metric(m)
		if err != nil {
			ch <- prometheus.NewInvalidMetric(prometheus.NewInvalidDesc(err), err)
			continue
		}
		ch <- prometheus.NewMetricWithTimestamp(m.Timestamp, metric)
	}
}

func (c *envelopeCollector) metric(m models.Measurement) (prometheus.Metric, error) {
	name := MetricName(m.Metric)
	desc := describe(name)

	valueType := prometheus.GaugeValue
	if m.MetricType == models.MetricTypeCounter {
		if m.Value < 0 {
			return nil, fmt.Errorf("counter %s has negative value %v", name, m.Value)
		}
		valueType = prometheus.CounterValue
	}

	return prometheus.NewConstMetric(desc, valueType, m.Value,
		c.env.Source, c.env.Location, m.Field, m.Entity, m.Name, m.Unit)
}

// checkTypes rejects envelopes where one exposed name would carry both a
// gauge and a counter. Names are compared after sanitizing.
func checkTypes(env *models.Envelope) error {
	types := make(map[string]models.Measurement, len(env.Measurements))
	for _, m := range env.Measurements {
		name := MetricName(m.Metric)
		first, ok := types[name]
		if !ok {
			types[name] = m
			continue
		}
		if first.MetricType != m.MetricType {
			return fmt.Errorf("%w: %s is %s for %q and %s for %q",
				models.ErrMixedMetricType, name, first.MetricType, first.Metric, m.MetricType, m.Metric)
		}
	}
	return nil
}

// Gather collects the envelope into metric families, sorted by name.
func Gather(env *models.Envelope) ([]*dto.MetricFamily, error) {
	if err := checkTypes(env); err != nil {
		return nil, err
	}
	reg := prometheus.NewPedanticRegistry()
	if err := reg.Register(&envelopeCollector{env: env}); err != nil {
		return nil, fmt.Errorf("register measurements: %w", err)
	}
	families, err := reg.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather measurements: %w", err)
	}
	return families, nil
}

// Prometheus writes env in the Prometheus text exposition format.
func Prometheus(w io.Writer, env *models.Envelope) error {
	families, err := Gather(env)
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// MetricName maps a measurement name onto the legacy Prometheus name charset.
func MetricName(metric string) string {
	var b strings.Builder
	for i, r := range metric {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_', r == ':':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}
