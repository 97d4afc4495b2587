// Package httpclient is the single entry point for talking to the storefront
// backend. Every call passes through the rate limiter and the timeout guard,
// and every failure is normalized into an *apierr.Error.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/KoduruNani/Flipkart-2/apierr"
	"github.com/KoduruNani/Flipkart-2/internal/metrics"
)

// DefaultTimeout is applied to requests that do not set their own.
const DefaultTimeout = 5 * time.Second

// Limiter admits or rejects a request.
type Limiter interface {
	CheckLimit() error
}

// Request describes one backend call. The zero value is a GET without body.
type Request struct {
	Method  string
	Body    any
	Headers map[string]string
	// Timeout overrides the client default when positive.
	Timeout time.Duration
	// Route is the metric label for the endpoint, e.g. "/products/{id}".
	Route string
	// Authenticated attaches the configured API key as a bearer token.
	Authenticated bool
}

// Client performs rate-limited, deadline-bounded JSON requests.
type Client struct {
	http      *http.Client
	baseURL   string
	apiKey    string
	limiter   Limiter
	timeout   time.Duration
	logger    zerolog.Logger
	metrics   *metrics.Collector
	requestID func() string
}

// New creates a Client for baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, apierr.InvalidArgument("base URL is required")
	}

	c := &Client{
		http:      &http.Client{},
		baseURL:   baseURL,
		timeout:   DefaultTimeout,
		logger:    zerolog.Nop(),
		requestID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Call issues req against endpoint and returns the raw JSON body. A nil
// result with a nil error means the response was a success without a JSON
// body.
func (c *Client) Call(ctx context.Context, endpoint string, req Request) (json.RawMessage, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	route := req.Route
	if route == "" {
		route = endpoint
	}

	var payload []byte
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, apierr.InvalidArgument("encode request body: %v", err)
		}
		payload = b
	}

	if req.Authenticated && c.apiKey == "" {
		return nil, apierr.InvalidArgument("API key is not configured")
	}

	// Invalid requests never reach the limiter and so never use a slot.
	if c.limiter != nil {
		if err := c.limiter.CheckLimit(); err != nil {
			c.metrics.RecordRateLimited()
			c.logger.Warn().Str("method", method).Str("endpoint", endpoint).Msg("rate limit exceeded")
			return nil, err
		}
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}

	requestID := c.requestID()
	start := time.Now()
	res, err := WithTimeout(ctx, timeout, endpoint, func(ctx context.Context) (response, error) {
		return c.do(ctx, method, endpoint, requestID, payload, req)
	})
	if err != nil {
		err = c.classify(ctx, endpoint, err)
		c.fail(method, route, endpoint, requestID, time.Since(start), err)
		return nil, err
	}
	elapsed := time.Since(start)
	c.metrics.RecordRequest(method, route, res.status, elapsed)

	if res.status < 200 || res.status > 299 {
		err := apierr.API(endpoint, res.status, decodeBody(res.body))
		c.fail(method, route, endpoint, requestID, elapsed, err)
		return nil, err
	}

	if !strings.Contains(res.contentType, "application/json") {
		return nil, nil
	}
	if len(bytes.TrimSpace(res.body)) == 0 {
		return nil, nil
	}
	if !json.Valid(res.body) {
		err := apierr.Transport(endpoint, errors.New("malformed JSON response"))
		c.fail(method, route, endpoint, requestID, elapsed, err)
		return nil, err
	}
	return json.RawMessage(res.body), nil
}

type response struct {
	status      int
	contentType string
	body        []byte
}

func (c *Client) do(ctx context.Context, method, endpoint, requestID string, payload []byte, req Request) (response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return response{}, errors.Wrap(err, "build request")
	}
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("X-Request-ID", requestID)
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if req.Authenticated {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return response{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return response{}, errors.Wrap(err, "read response body")
	}
	return response{
		status:      resp.StatusCode,
		contentType: resp.Header.Get("Content-Type"),
		body:        data,
	}, nil
}

func (c *Client) classify(ctx context.Context, endpoint string, err error) error {
	if _, ok := apierr.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return apierr.Timeout(endpoint, err)
	case errors.Is(err, context.Canceled):
		return apierr.Canceled(endpoint, err)
	default:
		return apierr.Transport(endpoint, err)
	}
}

func (c *Client) fail(method, route, endpoint, requestID string, elapsed time.Duration, err error) {
	kind, _ := apierr.KindOf(err)
	c.metrics.RecordError(method, route, kind.String())

	level := zerolog.ErrorLevel
	if kind == apierr.KindAPI && apierr.StatusOf(err) < http.StatusInternalServerError {
		level = zerolog.WarnLevel
	}
	c.logger.WithLevel(level).
		Err(err).
		Str("method", method).
		Str("endpoint", endpoint).
		Str("request_id", requestID).
		Int("status", apierr.StatusOf(err)).
		Dur("duration", elapsed).
		Msg("request failed")
}

func decodeBody(data []byte) any {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil
	}
	return v
}
