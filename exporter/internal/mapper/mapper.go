// Package mapper turns a raw device reading into a measurement envelope.
package mapper

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/JorritSalverda/jarvis-homewizard-exporter/exporter/internal/failure"
	"github.com/JorritSalverda/jarvis-homewizard-exporter/exporter/internal/models"
)

// Stage is the name the mapping stage reports in errors and logs.
const Stage = "map"

// ErrNoReading is returned when Apply is given no reading.
var ErrNoReading = errors.New("no reading to map")

// envelopeNamespace scopes envelope IDs to this exporter.
var envelopeNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/JorritSalverda/jarvis-homewizard-exporter/envelope"))

// Mapper applies a mapping to readings on behalf of one source.
type Mapper struct {
	source string
}

// New creates a Mapper that stamps envelopes with source.
func New(source string) *Mapper {
	return &Mapper{source: source}
}

// Apply produces one measurement per rule, in rule order. A rule whose field
// is absent from the reading fails the whole envelope with a MappingError
// naming that field. Values are copied as read; units are metadata only.
func (m *Mapper) Apply(mapping *models.Mapping, reading *models.RawReading) (*models.Envelope, error) {
	if mapping == nil || mapping.Len() == 0 {
		return nil, failure.New(failure.KindMapping, Stage, models.ErrNoRules)
	}
	if reading == nil {
		return nil, failure.New(failure.KindMapping, Stage, ErrNoReading)
	}

	capturedAt := reading.CapturedAt()
	rules := mapping.Rules()
	measurements := make([]models.Measurement, 0, len(rules))

	for _, rule := range rules {
		value, ok := reading.Value(rule.Field)
		if !ok {
			return nil, failure.MissingField(Stage, rule.Field)
		}

		measurements = append(measurements, models.Measurement{
			Field:      rule.Field,
			Metric:     rule.Metric,
			Value:      value,
			Unit:       rule.Unit,
			Entity:     rule.Entity,
			Name:       rule.Name,
			MetricType: rule.MetricType,
			Timestamp:  capturedAt,
		})
	}

	return &models.Envelope{
		ID:           EnvelopeID(m.source, mapping.Location(), capturedAt),
		Source:       m.source,
		Location:     mapping.Location(),
		CollectedAt:  capturedAt,
		Measurements: measurements,
	}, nil
}

// EnvelopeID derives a stable name-based UUID, so re-sending the same
// collection yields the same ID. It is carried in message headers, never in
// the payload.
func EnvelopeID(source, location string, collectedAt time.Time) string {
	name := source + "\x00" + location + "\x00" + collectedAt.UTC().Format(time.RFC3339Nano)
	return uuid.NewSHA1(envelopeNamespace, []byte(name)).String()
}
