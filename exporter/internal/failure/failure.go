// Package failure defines the exporter's error taxonomy and maps each kind
// of failure onto a process exit status.
//
// Every stage of a run reports failures as *Error values. A run either
// succeeds completely or fails with exactly one Kind; TimeoutError replaces
// whatever kind the in-flight stage would otherwise have reported.
package failure

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a run failure.
type Kind int

const (
	// KindUnknown is any error not produced by a pipeline stage.
	KindUnknown Kind = iota
	// KindConfig covers a missing, malformed or invalid mapping document or configuration.
	KindConfig
	// KindDeviceUnreachable covers connection failures, non-success responses and unparseable bodies.
	KindDeviceUnreachable
	// KindMapping is a mapping rule whose source field is absent from the reading.
	KindMapping
	// KindPublish covers broker connection and send failures.
	KindPublish
	// KindTimeout means the run's overall deadline elapsed.
	KindTimeout
)

// String returns the name used in logs.
func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "ConfigError"
	case KindDeviceUnreachable:
		return "DeviceUnreachableError"
	case KindMapping:
		return "MappingError"
	case KindPublish:
		return "PublishError"
	case KindTimeout:
		return "TimeoutError"
	default:
		return "UnknownError"
	}
}

// Exit statuses. Only zero versus non-zero matters to the scheduler;
// distinct values make failed runs easier to tell apart.
const (
	ExitOK                = 0
	ExitUnknown           = 1
	ExitConfig            = 2
	ExitDeviceUnreachable = 3
	ExitMapping           = 4
	ExitPublish           = 5
	ExitTimeout           = 6
)

// ExitCode returns the exit status for k.
func (k Kind) ExitCode() int {
	switch k {
	case KindConfig:
		return ExitConfig
	case KindDeviceUnreachable:
		return ExitDeviceUnreachable
	case KindMapping:
		return ExitMapping
	case KindPublish:
		return ExitPublish
	case KindTimeout:
		return ExitTimeout
	default:
		return ExitUnknown
	}
}

// Error is a classified pipeline failure.
type Error struct {
	Kind  Kind
	Stage string
	// Key is the offending source field for MappingError.
	Key string
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Stage != "" {
		msg += " in " + e.Stage
	}
	if e.Key != "" {
		msg += fmt.Sprintf(" (field %q)", e.Key)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind, so errors.Is(err, &Error{Kind: KindMapping}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Key == "" || t.Key == e.Key)
}

// New wraps err as a failure of kind in stage.
func New(kind Kind, stage string, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Err: err}
}

// Config wraps err as a ConfigError.
func Config(stage string, err error) *Error {
	return New(KindConfig, stage, err)
}

// DeviceUnreachable wraps err as a DeviceUnreachableError.
func DeviceUnreachable(stage string, err error) *Error {
	return New(KindDeviceUnreachable, stage, err)
}

// Publish wraps err as a PublishError.
func Publish(stage string, err error) *Error {
	return New(KindPublish, stage, err)
}

// Timeout wraps err as a TimeoutError.
func Timeout(stage string, err error) *Error {
	if err == nil {
		err = context.DeadlineExceeded
	}
	return New(KindTimeout, stage, err)
}

// MissingField returns the MappingError for a rule whose source key is absent.
func MissingField(stage, key string) *Error {
	return &Error{
		Kind:  KindMapping,
		Stage: stage,
		Key:   key,
		Err:   errors.New("source field missing from reading"),
	}
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// ExitCode returns the process exit status for err; nil maps to ExitOK.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	return KindOf(err).ExitCode()
}

// IsDeadline reports whether err (or the state of ctx) says the deadline elapsed.
func IsDeadline(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return ctx != nil && errors.Is(ctx.Err(), context.DeadlineExceeded)
}

// Classify wraps a stage error as kind, unless the run deadline is the real
// cause, in which case it becomes a TimeoutError. Errors that are already
// classified keep their kind unless the deadline has passed.
func Classify(ctx context.Context, kind Kind, stage string, err error) error {
	if err == nil {
		return nil
	}
	if IsDeadline(ctx, err) {
		if KindOf(err) == KindTimeout {
			return err
		}
		return Timeout(stage, err)
	}
	var fe *Error
	if errors.As(err, &fe) {
		return err
	}
	return New(kind, stage, err)
}
