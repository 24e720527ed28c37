// Package messaging provides abstractions for message broker communication.
// It defines interfaces that allow the exporter to publish messages
// without being coupled to a specific broker implementation.
package messaging

import "context"

// Ack describes the broker's acceptance of a published message.
type Ack struct {
	// Subject the message was accepted on.
	Subject string

	// Stream is the persisting stream, empty for core (non-persisted) publishes.
	Stream string

	// Sequence is the stream sequence assigned by the broker, 0 for core publishes.
	Sequence uint64

	// Duplicate is set when the broker recognised the message ID as already stored.
	Duplicate bool
}

// Publisher publishes messages to subjects.
type Publisher interface {
	// Publish sends data to subject and returns once the broker has accepted it.
	Publish(ctx context.Context, subject string, data []byte, opts ...PublishOption) (*Ack, error)

	// Close releases any resources held by the publisher.
	Close() error
}

// PublishOption configures message publishing behavior.
type PublishOption func(*PublishOptions)

// PublishOptions holds the resolved options for a single publish.
type PublishOptions struct {
	Headers map[string]string
	MsgID   string
}

// ApplyPublishOptions resolves opts into a PublishOptions value.
func ApplyPublishOptions(opts ...PublishOption) PublishOptions {
	var o PublishOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithHeader adds a header to the published message.
func WithHeader(key, value string) PublishOption {
	return func(o *PublishOptions) {
		if o.Headers == nil {
			o.Headers = make(map[string]string)
		}
		o.Headers[key] = value
	}
}

// WithMsgID sets a message ID the broker can use for duplicate detection.
func WithMsgID(id string) PublishOption {
	return func(o *PublishOptions) {
		o.MsgID = id
	}
}
