package logging

import (
	"log/slog"
	"time"
)

// Common field names for consistent logging across the exporter.
const (
	FieldService   = "service"
	FieldRunID     = "run_id"
	FieldStage     = "stage"
	FieldErrorKind = "error_kind"
	FieldError     = "error"
	FieldDuration  = "duration_ms"
	FieldSubject   = "subject"
	FieldEndpoint  = "endpoint"
	FieldCount     = "count"
	FieldPath      = "path"
)

// Service returns a slog attribute for the service name.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// RunID returns a slog attribute for the run ID.
func RunID(id string) slog.Attr {
	return slog.String(FieldRunID, id)
}

// Stage returns a slog attribute for the pipeline stage.
func Stage(name string) slog.Attr {
	return slog.String(FieldStage, name)
}

// ErrorKind returns a slog attribute for the error kind.
func ErrorKind(kind string) slog.Attr {
	return slog.String(FieldErrorKind, kind)
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(FieldError, "")
	}
	return slog.String(FieldError, err.Error())
}

// Duration returns a slog attribute for a duration in milliseconds.
func Duration(d time.Duration) slog.Attr {
	return slog.Int64(FieldDuration, d.Milliseconds())
}

// Subject returns a slog attribute for a message bus subject.
func Subject(subject string) slog.Attr {
	return slog.String(FieldSubject, subject)
}

// Endpoint returns a slog attribute for a network endpoint.
func Endpoint(endpoint string) slog.Attr {
	return slog.String(FieldEndpoint, endpoint)
}

// Count returns a slog attribute for a count.
func Count(n int) slog.Attr {
	return slog.Int(FieldCount, n)
}

// Path returns a slog attribute for a filesystem path.
func Path(path string) slog.Attr {
	return slog.String(FieldPath, path)
}
