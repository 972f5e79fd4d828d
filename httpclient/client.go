package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Client sends requests with default headers, bearer credentials and
// classified errors.
type Client struct {
	http    *http.Client
	cfg     Config
	headers http.Header
}

// New validates cfg and builds a client with its own transport.
func New(cfg Config) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tlsCfg, err := cfg.TLS.ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("httpclient: %w", err)
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if tlsCfg != nil {
		transport.TLSClientConfig = tlsCfg
	}

	headers := make(http.Header, len(cfg.Headers))
	for k, v := range cfg.Headers {
		headers.Set(k, v)
	}
	return &Client{
		http:    &http.Client{Transport: transport, Timeout: cfg.Timeout},
		cfg:     cfg,
		headers: headers,
	}, nil
}

// Do sends req and reads the whole response. A non-2xx status returns the
// response together with a classified *Error.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		var te interface{ Timeout() bool }
		if ctx.Err() != nil || (errors.As(err, &te) && te.Timeout()) {
			return nil, NewTimeoutError(err)
		}
		return nil, NewConnectionError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxBodyBytes))
	if err != nil {
		return nil, NewConnectionError(fmt.Errorf("read response: %w", err))
	}

	out := &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}
	if err := ClassifyStatusCode(resp.StatusCode, body); err != nil {
		return out, err
	}
	return out, nil
}

func (c *Client) url(path string) string {
	if c.cfg.BaseURL == "" {
		return path
	}
	if u, err := url.Parse(path); err == nil && u.IsAbs() {
		return path
	}
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

func (c *Client) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	var (
		body        io.ReadCloser
		contentType string
	)
	if req.Body != nil {
		body, contentType = req.Body.encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.url(req.Path), body)
	if err != nil {
		if body != nil {
			_ = body.Close()
		}
		return nil, &Error{Kind: KindRejected, Message: "create request", Err: err}
	}

	httpReq.Header = c.headers.Clone()
	for k, vs := range req.Header {
		httpReq.Header[k] = vs
	}
	if contentType != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if req.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	}
	return httpReq, nil
}
