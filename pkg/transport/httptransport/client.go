// Package httptransport talks to a form backend over HTTP. It implements
// session.Transport and session.LabelSource.
//
// Step lists are posted as a JSON array to {base}/forms/{key}; labels are
// read from {base}/forms/{key}/labels.
package httptransport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/session"
)

const (
	defaultTimeout  = 30 * time.Second
	maxResponseSize = 5 << 20
)

// StatusError reports a response status the protocol does not define a body
// for.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("httptransport: %s %s: unexpected status %d", e.Method, e.URL, e.StatusCode)
}

// Client is an HTTP form backend client.
type Client struct {
	base    *url.URL
	http    *http.Client
	headers http.Header
	logger  *slog.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers.Add(key, value)
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New constructs a client for the backend rooted at baseURL.
func New(baseURL string, options ...Option) (*Client, error) {
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("httptransport: parse base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("httptransport: unsupported scheme %q", parsed.Scheme)
	}
	c := &Client{
		base:    parsed,
		http:    &http.Client{Timeout: defaultTimeout},
		headers: make(http.Header),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

var _ session.Transport = (*Client)(nil)
var _ session.LabelSource = (*Client)(nil)

// Submit posts the step list. Bodies of 2xx, 400, 422 and 510 responses are
// decoded; any other status is returned as a *StatusError.
func (c *Client) Submit(ctx context.Context, req session.Request) (session.Response, error) {
	steps := req.Steps
	if steps == nil {
		steps = []map[string]any{}
	}
	body, err := json.Marshal(steps)
	if err != nil {
		return session.Response{}, fmt.Errorf("httptransport: encode steps: %w", err)
	}

	endpoint := c.endpoint(req.FormKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return session.Response{}, fmt.Errorf("httptransport: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	var resp session.Response
	status, err := c.do(httpReq, &resp)
	if err != nil {
		return session.Response{}, err
	}
	c.logger.Debug("form submitted",
		slog.String("form", req.FormKey),
		slog.Int("steps", len(steps)),
		slog.Int("status", status),
		slog.Int("validation_errors", len(resp.ValidationErrors)),
	)
	return resp, nil
}

// Labels fetches the label set of a form. A 404 yields an empty set.
func (c *Client) Labels(ctx context.Context, formKey string) (model.Labels, error) {
	endpoint := c.endpoint(formKey, "labels")
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.Labels{}, fmt.Errorf("httptransport: build request: %w", err)
	}

	var labels model.Labels
	if _, err := c.do(httpReq, &labels); err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return model.Labels{}, nil
		}
		return model.Labels{}, err
	}
	return labels, nil
}

func (c *Client) endpoint(formKey string, extra ...string) string {
	segments := append([]string{"forms", formKey}, extra...)
	return c.base.JoinPath(segments...).String()
}

func (c *Client) do(req *http.Request, target any) (int, error) {
	req.Header.Set("Accept", "application/json")
	for key, values := range c.headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	res, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("httptransport: %s %s: %w", req.Method, req.URL, err)
	}
	defer res.Body.Close()

	if !decodable(req.Method, res.StatusCode) {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, maxResponseSize))
		return res.StatusCode, &StatusError{Method: req.Method, URL: req.URL.String(), StatusCode: res.StatusCode}
	}

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseSize+1))
	if err != nil {
		return res.StatusCode, fmt.Errorf("httptransport: read body: %w", err)
	}
	if len(raw) > maxResponseSize {
		return res.StatusCode, fmt.Errorf("httptransport: response exceeds %d bytes", maxResponseSize)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return res.StatusCode, nil
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return res.StatusCode, fmt.Errorf("httptransport: decode %s response: %w", req.URL, err)
	}
	return res.StatusCode, nil
}

func decodable(method string, status int) bool {
	if status >= 200 && status < 300 {
		return true
	}
	if method != http.MethodPost {
		return false
	}
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusNotExtended:
		return true
	}
	return false
}
