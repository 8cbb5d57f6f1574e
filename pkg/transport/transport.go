// Package transport is the HTTP layer in front of the Safe transaction
// service. It resolves relative API paths against one base URL and sorts
// failures into NetworkError, ServiceError and DecodeError. It never retries.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"safe-core/pkg/logger"
	"safe-core/pkg/monitor"
)

const maxBodySize = 10 << 20

// Client talks to one service endpoint. It is safe for concurrent use.
type Client struct {
	base      *url.URL
	http      *http.Client
	userAgent string
}

type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout bounds each request; context deadlines still apply.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		h := *c.http
		h.Timeout = d
		c.http = &h
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// New builds a Client for baseURL, which must be absolute.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	c := &Client{
		base:      u,
		http:      &http.Client{Timeout: 30 * time.Second},
		userAgent: "safe-core",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the endpoint every path is resolved against.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Get fetches path with the encoded query and decodes the JSON body into
// out. A nil out discards the body.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	u, err := c.resolve(path)
	if err != nil {
		return err
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return c.do(ctx, http.MethodGet, u, nil, out)
}

// GetURL follows an absolute continuation link such as a page's "next".
// The link must stay under the configured endpoint.
func (c *Client) GetURL(ctx context.Context, rawURL string, out any) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	if !u.IsAbs() || !strings.EqualFold(u.Host, c.base.Host) || !strings.HasPrefix(u.Path, c.base.Path) {
		return fmt.Errorf("%w: %s is outside %s", ErrInvalidPath, rawURL, c.base)
	}
	// Services behind TLS-terminating proxies sometimes advertise http links.
	u.Scheme = c.base.Scheme
	return c.do(ctx, http.MethodGet, u, nil, out)
}

// Post sends body as JSON to path and decodes the response into out.
func (c *Client) Post(ctx context.Context, path string, body any, out any) error {
	u, err := c.resolve(path)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request body: %w", err)
	}
	return c.do(ctx, http.MethodPost, u, payload, out)
}

func (c *Client) resolve(path string) (*url.URL, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	if ref.IsAbs() || ref.Host != "" || strings.HasPrefix(ref.Path, "/") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	for _, seg := range strings.Split(ref.Path, "/") {
		if seg == ".." || seg == "." {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
	}
	return c.base.ResolveReference(ref), nil
}

func (c *Client) do(ctx context.Context, method string, u *url.URL, payload []byte, out any) error {
	endpoint := monitor.EndpointLabel(strings.TrimPrefix(u.Path, c.base.Path))
	target := u.String()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return &NetworkError{Method: method, URL: target, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	logger.Debug("safe service request", zap.String("method", method), zap.String("url", target))

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		monitor.ObserveRequest(method, endpoint, "error", time.Since(start))
		return &NetworkError{Method: method, URL: target, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	monitor.ObserveRequest(method, endpoint, strconv.Itoa(resp.StatusCode), time.Since(start))
	if err != nil {
		return &NetworkError{Method: method, URL: target, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Warn("unexpected response from transaction service",
			zap.String("method", method),
			zap.String("url", target),
			zap.Int("status", resp.StatusCode),
			zap.String("body", truncate(string(body), 1024)),
		)
		return newServiceError(method, target, resp.StatusCode, body)
	}

	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return &DecodeError{URL: target, Err: errEmptyBody}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &DecodeError{URL: target, Body: truncate(string(body), 1024), Err: err}
	}
	return nil
}

func newServiceError(method, target string, status int, body []byte) *ServiceError {
	se := &ServiceError{Method: method, URL: target, Status: status, Body: string(body)}
	var apiErr APIError
	if json.Unmarshal(body, &apiErr) == nil && (apiErr.Code != 0 || apiErr.Message != "") {
		se.API = &apiErr
	}
	return se
}
