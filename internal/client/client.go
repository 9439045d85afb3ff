// Package client talks to the city API over HTTP/JSON. It checks status
// codes before decoding and validates every decoded city, so callers see
// transport, status and decoding failures as distinct error types.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-worldwise/internal/types"
)

// DefaultBaseURL is where the city API listens when nothing else is configured.
const DefaultBaseURL = "http://localhost:9000"

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 4 << 20

type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the instrumented default HTTP client. The client
// is copied, never modified. A nil client keeps the default.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds every request. Zero means no client-side timeout.
// It overrides the timeout of a client given with WithHTTPClient.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New returns a client for the city API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL: u,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		timeout: -1,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	hc := *c.httpClient
	if c.timeout >= 0 {
		hc.Timeout = c.timeout
	}
	c.httpClient = &hc
	return c, nil
}

// BaseURL returns the address the client sends requests to.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// ListCities fetches GET /cities.
func (c *Client) ListCities(ctx context.Context) ([]types.City, error) {
	const op = "ListCities"
	ctx, span := otel.Tracer("CityClient").Start(ctx, op)
	defer span.End()

	body, err := c.do(ctx, op, http.MethodGet, "/cities", nil)
	if err != nil {
		return nil, c.fail(span, err)
	}

	var cities []types.City
	if err := json.Unmarshal(body, &cities); err != nil {
		return nil, c.fail(span, &DecodeError{Op: op, Err: err})
	}
	if cities == nil {
		return nil, c.fail(span, &DecodeError{Op: op, Err: errors.New("expected a JSON array, got null")})
	}
	seen := make(map[uuid.UUID]struct{}, len(cities))
	for i, city := range cities {
		if err := city.Validate(); err != nil {
			return nil, c.fail(span, &DecodeError{Op: op, Err: fmt.Errorf("city at index %d: %w", i, err)})
		}
		if _, dup := seen[city.ID]; dup {
			return nil, c.fail(span, &DecodeError{Op: op, Err: fmt.Errorf("duplicate city id %s", city.ID)})
		}
		seen[city.ID] = struct{}{}
	}

	span.SetAttributes(attribute.Int("cities.count", len(cities)))
	span.SetStatus(codes.Ok, "Cities fetched")
	return cities, nil
}

// GetCity fetches GET /cities/{id}.
func (c *Client) GetCity(ctx context.Context, id uuid.UUID) (types.City, error) {
	const op = "GetCity"
	ctx, span := otel.Tracer("CityClient").Start(ctx, op, trace.WithAttributes(
		attribute.String("city.id", id.String()),
	))
	defer span.End()

	body, err := c.do(ctx, op, http.MethodGet, "/cities/"+id.String(), nil)
	if err != nil {
		return types.City{}, c.fail(span, err)
	}

	city, err := decodeCity(op, body)
	if err != nil {
		return types.City{}, c.fail(span, err)
	}
	if city.ID != id {
		return types.City{}, c.fail(span, &DecodeError{Op: op, Err: fmt.Errorf("asked for city %s, got %s", id, city.ID)})
	}

	span.SetStatus(codes.Ok, "City fetched")
	return city, nil
}

// CreateCity posts newCity to POST /cities and returns the stored record.
func (c *Client) CreateCity(ctx context.Context, newCity types.NewCity) (types.City, error) {
	const op = "CreateCity"
	ctx, span := otel.Tracer("CityClient").Start(ctx, op, trace.WithAttributes(
		attribute.String("city.name", newCity.CityName),
	))
	defer span.End()

	payload, err := json.Marshal(newCity)
	if err != nil {
		return types.City{}, c.fail(span, fmt.Errorf("%s: encode request: %w", op, err))
	}

	body, err := c.do(ctx, op, http.MethodPost, "/cities", payload)
	if err != nil {
		return types.City{}, c.fail(span, err)
	}

	city, err := decodeCity(op, body)
	if err != nil {
		return types.City{}, c.fail(span, err)
	}

	span.SetAttributes(attribute.String("city.id", city.ID.String()))
	span.SetStatus(codes.Ok, "City created")
	return city, nil
}

// DeleteCity issues DELETE /cities/{id}. Any 2xx status confirms the delete.
func (c *Client) DeleteCity(ctx context.Context, id uuid.UUID) error {
	const op = "DeleteCity"
	ctx, span := otel.Tracer("CityClient").Start(ctx, op, trace.WithAttributes(
		attribute.String("city.id", id.String()),
	))
	defer span.End()

	if _, err := c.do(ctx, op, http.MethodDelete, "/cities/"+id.String(), nil); err != nil {
		return c.fail(span, err)
	}

	span.SetStatus(codes.Ok, "City deleted")
	return nil
}

func (c *Client) do(ctx context.Context, op, method, path string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reqBody)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	l := c.logger.With(slog.String("method", op), slog.String("url", req.URL.String()))
	l.DebugContext(ctx, "Sending request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		l.WarnContext(ctx, "Request failed", slog.Any("error", err))
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		l.WarnContext(ctx, "Failed to read response body", slog.Any("error", err))
		return nil, &TransportError{Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		l.WarnContext(ctx, "Unexpected response status", slog.Int("status", resp.StatusCode))
		return nil, &StatusError{Op: op, StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}

	l.DebugContext(ctx, "Request completed", slog.Int("status", resp.StatusCode), slog.Int("bytes", len(body)))
	return body, nil
}

func (c *Client) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func decodeCity(op string, body []byte) (types.City, error) {
	var city types.City
	if err := json.Unmarshal(body, &city); err != nil {
		return types.City{}, &DecodeError{Op: op, Err: err}
	}
	if err := city.Validate(); err != nil {
		return types.City{}, &DecodeError{Op: op, Err: err}
	}
	return city, nil
}

// errorMessage extracts the "error" field of the API's error envelope,
// falling back to the trimmed raw body.
func errorMessage(body []byte) string {
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != "" {
		return envelope.Error
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
