// Package nats provides a NATS implementation of the messaging interfaces.
package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/JorritSalverda/jarvis-homewizard-exporter/common/messaging"
)

// ErrNotConnected is returned when publishing on a closed or disconnected client.
var ErrNotConnected = errors.New("not connected to NATS")

// Client implements messaging.Publisher using core NATS.
// A Client is meant to live for a single run: connect, publish, close.
type Client struct {
	conn    *nats.Conn
	timeout time.Duration
}

// Config holds NATS client configuration.
type Config struct {
	// URL is the NATS server URL (e.g., "nats://localhost:4222").
	URL string

	// Name is the client name for connection identification.
	Name string

	// Timeout bounds connecting and flushing when the caller's
	// context carries no deadline of its own.
	Timeout time.Duration

	// Username for authentication (optional).
	Username string

	// Password for authentication (optional).
	Password string

	// Token for token-based authentication (optional).
	Token string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		URL:     nats.DefaultURL,
		Name:    "jarvis-homewizard-exporter",
		Timeout: 5 * time.Second,
	}
}

// Connect dials the NATS server. The dial is bounded by whichever is shorter
// of cfg.Timeout and the time left on ctx. The connection never reconnects.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timeout := boundedTimeout(ctx, cfg.Timeout)
	if timeout <= 0 {
		return nil, context.DeadlineExceeded
	}

	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.Timeout(timeout),
		nats.NoReconnect(),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("NATS disconnected", slog.String("error", err.Error()))
			}
		}),
	}

	if cfg.Username != "" && cfg.Password != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &Client{
		conn:    conn,
		timeout: timeout,
	}, nil
}

// Publish sends data to subject and flushes the connection. The flush is a
// PING/PONG round trip, so a nil error means the server has processed the message.
func (c *Client) Publish(ctx context.Context, subject string, data []byte, opts ...messaging.PublishOption) (*messaging.Ack, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c == nil || c.conn == nil || !c.conn.IsConnected() {
		return nil, ErrNotConnected
	}

	msg := buildMsg(subject, data, messaging.ApplyPublishOptions(opts...))
	if err := c.conn.PublishMsg(msg); err != nil {
		return nil, fmt.Errorf("publish to %s: %w", subject, err)
	}

	if err := c.flush(ctx); err != nil {
		return nil, fmt.Errorf("flush after publish to %s: %w", subject, err)
	}

	return &messaging.Ack{Subject: subject}, nil
}

// flush waits for the server to acknowledge everything sent so far.
// FlushWithContext requires a deadline, so fall back to the configured timeout.
func (c *Client) flush(ctx context.Context) error {
	if _, ok := ctx.Deadline(); ok {
		return c.conn.FlushWithContext(ctx)
	}
	return c.conn.FlushTimeout(c.timeout)
}

// Close releases the connection. Safe to call more than once.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	c.conn.Close()
	return nil
}

// IsConnected returns true if connected to NATS.
func (c *Client) IsConnected() bool {
	return c != nil && c.conn != nil && c.conn.IsConnected()
}

// buildMsg converts a subject, payload and resolved options into a NATS message.
func buildMsg(subject string, data []byte, o messaging.PublishOptions) *nats.Msg {
	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
	}

	if len(o.Headers) > 0 {
		msg.Header = make(nats.Header)
		for k, v := range o.Headers {
			msg.Header.Set(k, v)
		}
	}

	return msg
}

// boundedTimeout returns the smaller of fallback and the time left on ctx.
func boundedTimeout(ctx context.Context, fallback time.Duration) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return fallback
	}
	remaining := time.Until(deadline)
	if fallback <= 0 || remaining < fallback {
		return remaining
	}
	return fallback
}
