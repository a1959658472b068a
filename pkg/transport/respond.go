package transport

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/medassureai/artifact-gateway/gateway"
)

// StatusFor maps a classified error to the HTTP status its kind deserves.
// Transient and exhausted-retries failures are upstream faults, so they map
// to 502 rather than blaming the caller or this process.
func StatusFor(err error) int {
	switch gateway.KindOf(err) {
	case gateway.KindValidation:
		return http.StatusBadRequest
	case gateway.KindNotFound:
		return http.StatusNotFound
	case gateway.KindPermission:
		return http.StatusForbidden
	case gateway.KindConflict:
		return http.StatusConflict
	case gateway.KindTransient, gateway.KindExhausted:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSON renders one JSON response body.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteError renders the failed envelope for a verb with the status its kind
// maps to.
func WriteError(w http.ResponseWriter, verb string, err error) {
	WriteJSON(w, StatusFor(err), gateway.Fail(verb, "", err))
}

// DecodeJSON reads one JSON request body. Malformed bodies surface as
// validation errors so they map to 400.
func DecodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return gateway.NewValidationError("body", fmt.Sprintf("is not valid JSON: %v", err))
	}
	return nil
}

type serviceDescriptor struct {
	Service string `json:"service"`
	Status  string `json:"status"`
}

// serviceInfo answers the root probe with the service name.
func serviceInfo(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, serviceDescriptor{Service: name, Status: "ok"})
	}
}

func health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
