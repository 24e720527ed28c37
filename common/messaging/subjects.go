package messaging

import "strings"

// Subject and header names shared by measurement producers and consumers.
const (
	// SubjectMeasurements is the default subject measurement envelopes are published to.
	SubjectMeasurements = "jarvis-measurements"

	// StreamMeasurements is the JetStream stream capturing measurement envelopes.
	StreamMeasurements = "JARVIS_MEASUREMENTS"

	HeaderContentType = "Content-Type"
	HeaderEnvelopeID  = "Envelope-Id"
	HeaderSource      = "Source"

	ContentTypeJSON = "application/json"
)

// ValidSubject reports whether subject is a publishable NATS subject:
// non-empty, no whitespace, no empty tokens and no wildcards.
func ValidSubject(subject string) bool {
	if subject == "" || strings.ContainsAny(subject, " \t\r\n") {
		return false
	}
	for _, token := range strings.Split(subject, ".") {
		if token == "" || token == "*" || token == ">" {
			return false
		}
	}
	return true
}
