package jirastore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// API is the minimal Jira REST surface the store needs. A transport-level
// failure returns a nil response; HTTP-level failures come back as a Response
// with the status Jira sent.
type API interface {
	Do(ctx context.Context, method, path string, query url.Values, body any) (*Response, error)
}

// Response is one raw Jira reply.
type Response struct {
	StatusCode int
	Body       []byte
}

// Client talks to one Jira site with basic auth. The API token is held only
// here and travels only in the Authorization header; it never appears in
// URLs, logs or error text.
type Client struct {
	baseURL string
	email   string
	token   string
	http    *http.Client
}

// ClientOption adjusts a Client during construction.
type ClientOption func(*Client)

// WithTimeout caps each request round trip.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.http.Timeout = d }
}

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// NewClient builds a Client for the given site.
func NewClient(baseURL, email, token string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		email:   email,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do sends one request and reads the full reply.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body any) (*Response, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("jirastore: encode request body: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("jirastore: build request: %w", err)
	}
	req.SetBasicAuth(c.email, c.token)
	req.Header.Set("Accept", "application/json")
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("jirastore: read response: %w", err)
	}
	return &Response{StatusCode: resp.StatusCode, Body: data}, nil
}
