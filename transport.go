package antrian

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultMaxBodyBytes bounds how much of a response body HTTPTransport reads.
const DefaultMaxBodyBytes = 10 * 1024 * 1024

// HeaderFunc adds per-call headers such as authorization.
type HeaderFunc func(ctx context.Context, h http.Header) error

// HTTPTransport sends requests with net/http. Relative request URLs are
// resolved against BaseURL.
type HTTPTransport struct {
	Client       *http.Client
	BaseURL      string
	Headers      HeaderFunc
	MaxBodyBytes int64
}

// NewHTTPTransport creates a transport on client; a nil client gets a 30s
// timeout.
func NewHTTPTransport(client *http.Client, baseURL string) *HTTPTransport {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPTransport{
		Client:       client,
		BaseURL:      strings.TrimRight(baseURL, "/"),
		MaxBodyBytes: DefaultMaxBodyBytes,
	}
}

// Send implements Transport. Any status code is returned as a Response; an
// error means no response was obtained.
func (t *HTTPTransport) Send(ctx context.Context, req *Request) (*Response, error) {
	target := req.URL
	if !strings.Contains(target, "://") {
		target = t.BaseURL + target
	}
	if len(req.Params) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + req.Params.Encode()
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	method := normalizeMethod(req.Method)

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if len(req.Body) > 0 && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if t.Headers != nil {
		if err := t.Headers(ctx, httpReq.Header); err != nil {
			return nil, fmt.Errorf("request headers: %w", err)
		}
	}

	resp, err := t.Client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	limit := t.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       data,
	}, nil
}
