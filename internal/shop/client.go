// Package shop is the HTTP client for the e-commerce API under test.
// Each simulated user owns a Client with its own cookie jar; clients share
// one pooled transport.
package shop

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"trafficgen/internal/core"
)

// maxBodySize limits how much of a response body is kept.
const maxBodySize = 10 * 1024 * 1024

// Limiter gates outgoing requests. ratelimit.RateLimiter satisfies it.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Options configures a Client.
type Options struct {
	BaseURL   string
	Endpoints map[string]string // resolved paths; nil means DefaultPaths
	Timeout   time.Duration     // per request, 0 = no timeout
	Transport http.RoundTripper // shared across clients; nil = http.DefaultTransport
	Limiter   Limiter           // optional
	Debug     *DebugLogger      // optional
}

// Response is the part of an HTTP response actions care about.
type Response struct {
	StatusCode int
	Body       []byte
	Duration   time.Duration
}

// Is2xx reports whether the status code is in [200, 300).
func (r *Response) Is2xx() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Client talks to the target API on behalf of one simulated user.
type Client struct {
	base      *url.URL
	endpoints map[string]string
	http      *http.Client
	timeout   time.Duration
	limiter   Limiter
	debug     *DebugLogger
}

// NewClient builds a client with a fresh cookie jar.
func NewClient(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q is not absolute", opts.BaseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}

	endpoints := opts.Endpoints
	if endpoints == nil {
		endpoints = DefaultPaths
	}

	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	return &Client{
		base:      base,
		endpoints: endpoints,
		http:      &http.Client{Transport: transport, Jar: jar},
		timeout:   opts.Timeout,
		limiter:   opts.Limiter,
		debug:     opts.Debug,
	}, nil
}

// NewTransport returns a transport sized for maxConns concurrent users.
func NewTransport(maxConns int) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	if maxConns > 0 {
		t.MaxIdleConns = maxConns * 2
		t.MaxIdleConnsPerHost = maxConns
	}
	return t
}

// Root fetches the base URL itself.
func (c *Client) Root(ctx context.Context) (*Response, error) {
	return c.do(ctx, "main_page", http.MethodGet, c.base.String(), nil, "")
}

// Get fetches a named endpoint with optional query parameters.
func (c *Client) Get(ctx context.Context, endpoint string, query url.Values) (*Response, error) {
	u, err := c.url(endpoint, query)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, endpoint, http.MethodGet, u, nil, "")
}

// PostForm sends form as application/x-www-form-urlencoded to a named endpoint.
func (c *Client) PostForm(ctx context.Context, endpoint string, form url.Values) (*Response, error) {
	u, err := c.url(endpoint, nil)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, endpoint, http.MethodPost, u, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
}

func (c *Client) url(endpoint string, query url.Values) (string, error) {
	path, ok := c.endpoints[endpoint]
	if !ok {
		return "", fmt.Errorf("unknown endpoint %q", endpoint)
	}
	u := *c.base
	u.Path = c.base.Path + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String(), nil
}

func (c *Client) do(ctx context.Context, name, method, rawURL string, body io.Reader, contentType string) (*Response, error) {
	actorID := core.ActorIDFromContext(ctx)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	c.debug.LogRequest(actorID, name, req)

	resp, err := c.http.Do(req)
	if err != nil {
		c.debug.LogError(actorID, name, err, time.Since(start))
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	_, _ = io.Copy(io.Discard, resp.Body)
	duration := time.Since(start)
	if err != nil {
		c.debug.LogError(actorID, name, err, duration)
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	c.debug.LogResponse(actorID, name, resp, respBody, duration)

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       respBody,
		Duration:   duration,
	}, nil
}
