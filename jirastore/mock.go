package jirastore

import (
	"context"
	"net/http"
	"net/url"
	"sync"
)

// RecordedCall is one request the MockAPI saw.
type RecordedCall struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
}

// MockAPI implements API with an overridable function field. Unset, it
// answers every request with 200 and an empty JSON object. Calls are
// recorded so tests can assert what left the store.
type MockAPI struct {
	DoFn func(ctx context.Context, method, path string, query url.Values, body any) (*Response, error)

	mu    sync.Mutex
	calls []RecordedCall
}

func (m *MockAPI) Do(ctx context.Context, method, path string, query url.Values, body any) (*Response, error) {
	m.mu.Lock()
	m.calls = append(m.calls, RecordedCall{Method: method, Path: path, Query: query, Body: body})
	m.mu.Unlock()

	if m.DoFn != nil {
		return m.DoFn(ctx, method, path, query, body)
	}
	return &Response{StatusCode: http.StatusOK, Body: []byte("{}")}, nil
}

// CallCount reports how many requests the mock saw.
func (m *MockAPI) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Calls returns a copy of the recorded requests.
func (m *MockAPI) Calls() []RecordedCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RecordedCall, len(m.calls))
	copy(out, m.calls)
	return out
}
