// Package publisher serializes measurement envelopes and hands them to the broker.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/JorritSalverda/jarvis-homewizard-exporter/common/messaging"
	natsclient "github.com/JorritSalverda/jarvis-homewizard-exporter/common/messaging/nats"
	"github.com/JorritSalverda/jarvis-homewizard-exporter/exporter/internal/config"
	"github.com/JorritSalverda/jarvis-homewizard-exporter/exporter/internal/failure"
	"github.com/JorritSalverda/jarvis-homewizard-exporter/exporter/internal/models"
)

// Stage is the name the publish stage reports in errors and logs.
const Stage = "publish"

// Dialer opens a fresh broker connection. The Publisher closes it.
type Dialer func(ctx context.Context) (messaging.Publisher, error)

// Publisher sends one envelope per call over its own connection.
type Publisher struct {
	dial    Dialer
	subject string
}

// New creates a Publisher for subject.
func New(dial Dialer, subject string) *Publisher {
	return &Publisher{
		dial:    dial,
		subject: subject,
	}
}

// Encode serializes an envelope. Field order follows the struct definitions,
// so equal envelopes always encode to equal bytes.
func Encode(env *models.Envelope) ([]byte, error) {
	if err := env.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return data, nil
}

// Publish encodes env and returns once the broker has acknowledged it.
// The connection is closed before Publish returns, whatever the outcome.
func (p *Publisher) Publish(ctx context.Context, env *models.Envelope) (*messaging.Ack, error) {
	if err := ctx.Err(); err != nil {
		return nil, failure.Classify(ctx, failure.KindPublish, Stage, err)
	}

	data, err := Encode(env)
	if err != nil {
		return nil, failure.Publish(Stage, err)
	}

	conn, err := p.dial(ctx)
	if err != nil {
		return nil, failure.Classify(ctx, failure.KindPublish, Stage, fmt.Errorf("connect: %w", err))
	}
	defer conn.Close()

	ack, err := conn.Publish(ctx, p.subject, data,
		messaging.WithHeader(messaging.HeaderContentType, messaging.ContentTypeJSON),
		messaging.WithHeader(messaging.HeaderEnvelopeID, env.ID),
		messaging.WithHeader(messaging.HeaderSource, env.Source),
		messaging.WithMsgID(env.ID),
	)
	if err != nil {
		return nil, failure.Classify(ctx, failure.KindPublish, Stage, err)
	}

	return ack, nil
}

// NATSDialer returns a Dialer for the configured broker and ack mode.
// In jetstream mode the stream is created or updated first when EnsureStream is set.
func NATSDialer(cfg config.NATSConfig) Dialer {
	return func(ctx context.Context) (messaging.Publisher, error) {
		natsCfg := natsclient.DefaultConfig()
		natsCfg.URL = cfg.URL()
		if cfg.ClientName != "" {
			natsCfg.Name = cfg.ClientName
		}

		if cfg.AckMode != config.AckModeJetStream {
			client, err := natsclient.Connect(ctx, natsCfg)
			if err != nil {
				return nil, err
			}
			return client, nil
		}

		client, err := natsclient.ConnectJetStream(ctx, natsCfg)
		if err != nil {
			return nil, err
		}
		if cfg.EnsureStream {
			streamCfg := natsclient.DefaultStreamConfig(cfg.Stream, []string{cfg.Subject})
			if _, err := client.CreateOrUpdateStream(ctx, streamCfg); err != nil {
				client.Close()
				return nil, err
			}
		}
		return client, nil
	}
}
