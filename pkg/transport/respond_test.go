package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medassureai/artifact-gateway/gateway"
)

// envelopeBody is the wire shape of a result envelope as tests see it.
type envelopeBody struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	ErrorKind string `json:"error_kind"`
}

func testLogger() zerolog.Logger { return zerolog.Nop() }

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func doRaw(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst))
}

func TestStatusFor(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation is a caller fault", gateway.NewValidationError("summary", "is required"), http.StatusBadRequest},
		{"not found", gateway.Permanent(gateway.KindNotFound, cause), http.StatusNotFound},
		{"permission", gateway.Permanent(gateway.KindPermission, cause), http.StatusForbidden},
		{"conflict", gateway.Permanent(gateway.KindConflict, cause), http.StatusConflict},
		{"transient is an upstream fault", gateway.Transient(cause), http.StatusBadGateway},
		{"exhausted retries is an upstream fault", &gateway.ExhaustedRetriesError{Op: "get_item", Attempts: 4, Err: cause}, http.StatusBadGateway},
		{"permanent", gateway.Permanent(gateway.KindPermanent, cause), http.StatusInternalServerError},
		{"unclassified defaults to internal", cause, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestDecodeJSONMalformedBodyIsValidation(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString("{nope"))
	var dst map[string]any
	err := DecodeJSON(req, &dst)
	require.Error(t, err)
	assert.True(t, gateway.IsValidation(err))
	assert.Equal(t, http.StatusBadRequest, StatusFor(err))
}

func TestWriteErrorRendersEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, "get_issue", gateway.Permanent(gateway.KindNotFound, errors.New("issue MED-9 does not exist")))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body envelopeBody
	decodeBody(t, rec, &body)
	assert.False(t, body.Success)
	assert.Equal(t, "not_found", body.ErrorKind)
	assert.Contains(t, body.Error, "get_issue")
}
