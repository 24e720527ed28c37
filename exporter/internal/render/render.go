// Package render formats measurement envelopes for the inspect command.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/JorritSalverda/jarvis-homewizard-exporter/exporter/internal/models"
)

// Format selects an output renderer.
type Format string

const (
	FormatTable      Format = "table"
	FormatJSON       Format = "json"
	FormatYAML       Format = "yaml"
	FormatPrometheus Format = "prometheus"
)

// Formats lists every supported format.
var Formats = []Format{FormatTable, FormatJSON, FormatYAML, FormatPrometheus}

// ParseFormat resolves a --output value. Matching is case-insensitive.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown output format %q (want table, json, yaml or prometheus)", s)
}

// Envelope writes env to w in the requested format.
func Envelope(w io.Writer, env *models.Envelope, format Format) error {
	switch format {
	case FormatTable:
		return EnvelopeTable(w, env)
	case FormatJSON:
		return JSON(w, env)
	case FormatYAML:
		return YAML(w, env)
	case FormatPrometheus:
		return Prometheus(w, env)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// EnvelopeTable writes a header block followed by one row per measurement.
func EnvelopeTable(w io.Writer, env *models.Envelope) error {
	fmt.Fprintf(w, "Envelope:  %s\n", env.ID)
	fmt.Fprintf(w, "Source:    %s\n", env.Source)
	if env.Location != "" {
		fmt.Fprintf(w, "Location:  %s\n", env.Location)
	}
	fmt.Fprintf(w, "Collected: %s\n\n", env.CollectedAt.UTC().Format(time.RFC3339))

	table := NewTable("METRIC", "VALUE", "UNIT", "TYPE", "ENTITY", "NAME")
	for _, m := range env.Measurements {
		table.AddRow(
			m.Metric,
			strconv.FormatFloat(m.Value, 'f', -1, 64),
			m.Unit,
			string(m.MetricType),
			m.Entity,
			m.Name,
		)
	}
	table.Render(w)
	return nil
}

// JSON writes v as indented JSON.
func JSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// YAML writes v as a YAML document.
func YAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
