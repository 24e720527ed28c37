// Package device reads telemetry snapshots from a HomeWizard energy meter's
// local HTTP API (GET /api/{version}/data).
package device

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/JorritSalverda/jarvis-homewizard-exporter/exporter/internal/failure"
	"github.com/JorritSalverda/jarvis-homewizard-exporter/exporter/internal/models"
)

// Stage is the name the fetch stage reports in errors and logs.
const Stage = "fetch_device"

// maxBodyBytes caps the telemetry body; real responses are a few hundred bytes.
const maxBodyBytes = 1 << 20

// Client fetches one snapshot per call and never retries.
type Client struct {
	endpoint   string
	httpClient *http.Client
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithClock replaces the clock used to stamp readings.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// New creates a client for the telemetry endpoint, e.g. http://192.168.1.20/api/v1/data.
func New(endpoint string, opts ...Option) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DisableKeepAlives = true

	c := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Transport: transport},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch issues a single request bounded by timeout and by ctx.
// Network failures, non-2xx responses and unparseable bodies are
// DeviceUnreachableErrors; running out of time is a TimeoutError.
func (c *Client) Fetch(ctx context.Context, timeout time.Duration) (*models.RawReading, error) {
	if timeout <= 0 {
		return nil, failure.Timeout(Stage, nil)
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	fields, err := c.get(reqCtx)
	if err != nil {
		return nil, failure.Classify(reqCtx, failure.KindDeviceUnreachable, Stage, err)
	}

	return models.NewRawReading(fields, c.now().UTC()), nil
}

func (c *Client) get(ctx context.Context) (map[string]float64, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	request.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the error can carry the device's message
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	fields, err := Flatten(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return fields, nil
}

// StatusError is a non-success HTTP response from the device.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("device returned HTTP %d", e.Code)
	}
	return fmt.Sprintf("device returned HTTP %d: %s", e.Code, e.Body)
}

// ErrNotObject is returned when the telemetry body is valid JSON but not an object.
var ErrNotObject = errors.New("telemetry body is not a JSON object")

// ErrAmbiguousField is returned when a literal dotted key and a nested object
// flatten to the same key, e.g. {"a.b": 1, "a": {"b": 2}}.
var ErrAmbiguousField = errors.New("field appears more than once after flattening")

// Flatten decodes a JSON object into numeric fields. Nested objects become
// dot-joined keys, booleans become 1 or 0, and strings, nulls and arrays are skipped.
func Flatten(r io.Reader) (map[string]float64, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var body interface{}
	if err := dec.Decode(&body); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after telemetry object")
	}

	obj, ok := body.(map[string]interface{})
	if !ok {
		return nil, ErrNotObject
	}

	fields := make(map[string]float64, len(obj))
	if err := flattenInto(fields, "", obj); err != nil {
		return nil, err
	}
	return fields, nil
}

func flattenInto(dst map[string]float64, prefix string, obj map[string]interface{}) error {
	for k, raw := range obj {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}

		switch v := raw.(type) {
		case json.Number:
			f, err := v.Float64()
			if err != nil {
				return fmt.Errorf("field %q: %w", key, err)
			}
			if err := set(dst, key, f); err != nil {
				return err
			}
		case bool:
			var f float64
			if v {
				f = 1
			}
			if err := set(dst, key, f); err != nil {
				return err
			}
		case map[string]interface{}:
			if err := flattenInto(dst, key, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func set(dst map[string]float64, key string, v float64) error {
	if _, dup := dst[key]; dup {
		return fmt.Errorf("%w: %q", ErrAmbiguousField, key)
	}
	dst[key] = v
	return nil
}
