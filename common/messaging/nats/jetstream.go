package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/JorritSalverda/jarvis-homewizard-exporter/common/messaging"
)

// JetStreamClient extends Client with JetStream publish acknowledgments.
type JetStreamClient struct {
	*Client
	js jetstream.JetStream
}

// StreamConfig defines a JetStream stream configuration.
type StreamConfig struct {
	// Name is the stream name.
	Name string

	// Subjects are the subjects this stream captures.
	Subjects []string

	// MaxAge is the maximum age of messages in the stream.
	MaxAge time.Duration

	// MaxBytes is the maximum total size of the stream.
	MaxBytes int64

	// DuplicateWindow is how long message IDs are remembered for dedup.
	DuplicateWindow time.Duration

	// Retention policy (LimitsPolicy, InterestPolicy, WorkQueuePolicy).
	Retention jetstream.RetentionPolicy

	// Storage type (FileStorage, MemoryStorage).
	Storage jetstream.StorageType
}

// DefaultStreamConfig returns sensible defaults for a measurement stream.
func DefaultStreamConfig(name string, subjects []string) StreamConfig {
	return StreamConfig{
		Name:            name,
		Subjects:        subjects,
		MaxAge:          7 * 24 * time.Hour,
		MaxBytes:        1024 * 1024 * 1024, // 1GB
		DuplicateWindow: 2 * time.Minute,
		Retention:       jetstream.LimitsPolicy,
		Storage:         jetstream.FileStorage,
	}
}

// ConnectJetStream creates a JetStream-enabled client.
func ConnectJetStream(ctx context.Context, cfg Config) (*JetStreamClient, error) {
	client, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	js, err := jetstream.New(client.conn)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &JetStreamClient{
		Client: client,
		js:     js,
	}, nil
}

// CreateOrUpdateStream creates or updates a stream.
func (c *JetStreamClient) CreateOrUpdateStream(ctx context.Context, cfg StreamConfig) (jetstream.Stream, error) {
	streamCfg := jetstream.StreamConfig{
		Name:       cfg.Name,
		Subjects:   cfg.Subjects,
		MaxAge:     cfg.MaxAge,
		MaxBytes:   cfg.MaxBytes,
		Duplicates: cfg.DuplicateWindow,
		Retention:  cfg.Retention,
		Storage:    cfg.Storage,
	}

	stream, err := c.js.CreateOrUpdateStream(ctx, streamCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create/update stream %s: %w", cfg.Name, err)
	}

	return stream, nil
}

// Publish sends data to subject and waits for the stream's PubAck.
// A subject not captured by any stream fails with jetstream.ErrNoStreamResponse.
func (c *JetStreamClient) Publish(ctx context.Context, subject string, data []byte, opts ...messaging.PublishOption) (*messaging.Ack, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !c.IsConnected() {
		return nil, ErrNotConnected
	}

	o := messaging.ApplyPublishOptions(opts...)
	msg := buildMsg(subject, data, o)

	var pubOpts []jetstream.PublishOpt
	if o.MsgID != "" {
		pubOpts = append(pubOpts, jetstream.WithMsgID(o.MsgID))
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	pubAck, err := c.js.PublishMsg(ctx, msg, pubOpts...)
	if err != nil {
		return nil, fmt.Errorf("jetstream publish to %s: %w", subject, err)
	}

	return &messaging.Ack{
		Subject:   subject,
		Stream:    pubAck.Stream,
		Sequence:  pubAck.Sequence,
		Duplicate: pubAck.Duplicate,
	}, nil
}
