// Package mapping loads the field-mapping document that tells the exporter
// which device fields to publish and under which metric names.
//
// The document is YAML:
//
//	location: My Home
//	rules:
//	  - field: active_power_w
//	    metric: power_watts
//	    unit: W
//	    entity: device
//	  - field: total_power_import_t1_kwh
//	    metric: energy_import_t1
//	    unit: kWh
//	    entity: tariff
//	    metric_type: counter
//
// Unknown keys are rejected.
package mapping

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/JorritSalverda/jarvis-homewizard-exporter/exporter/internal/failure"
	"github.com/JorritSalverda/jarvis-homewizard-exporter/exporter/internal/models"
)

// Stage is the name the mapping stage reports in errors and logs.
const Stage = "load_mapping"

// ErrEmptyDocument is returned for a document with no content.
var ErrEmptyDocument = errors.New("mapping document is empty")

type document struct {
	Location string        `yaml:"location"`
	Rules    []models.Rule `yaml:"rules"`
}

// Load reads and validates the mapping document at path.
// Every failure is a ConfigError.
func Load(path string) (*models.Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, failure.Config(Stage, fmt.Errorf("read %s: %w", path, err))
	}

	m, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, failure.Config(Stage, fmt.Errorf("%s: %w", path, err))
	}
	return m, nil
}

// Parse decodes and validates a mapping document.
func Parse(r io.Reader) (*models.Mapping, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyDocument
		}
		return nil, fmt.Errorf("parse mapping: %w", err)
	}

	m, err := models.NewMapping(doc.Location, doc.Rules)
	if err != nil {
		return nil, fmt.Errorf("invalid mapping: %w", err)
	}
	return m, nil
}
