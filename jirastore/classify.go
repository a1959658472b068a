package jirastore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"github.com/medassureai/artifact-gateway/gateway"
)

// classifyStatus sorts a non-2xx Jira reply into the gateway taxonomy.
//
// Retryable: 429 and every 5xx. Terminal: 401/403 (permission), 404
// (not-found), 409 (conflict) and everything else, 400 included, since a
// request Jira rejected will be rejected again.
func classifyStatus(status int, body []byte) error {
	err := fmt.Errorf("jirastore: HTTP %d: %s", status, errorMessage(status, body))
	switch {
	case status == http.StatusTooManyRequests || status >= 500:
		return gateway.Transient(err)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return gateway.Permanent(gateway.KindPermission, err)
	case status == http.StatusNotFound:
		return gateway.Permanent(gateway.KindNotFound, err)
	case status == http.StatusConflict:
		return gateway.Permanent(gateway.KindConflict, err)
	default:
		return gateway.Permanent(gateway.KindPermanent, err)
	}
}

// classifyTransport sorts a failure that happened before any reply arrived.
// With the caller's context still live the request is worth another attempt;
// connection resets and per-request timeouts are the usual causes.
func classifyTransport(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return gateway.Permanent(gateway.KindPermanent, err)
	}
	return gateway.Transient(err)
}

type errorBody struct {
	ErrorMessages []string          `json:"errorMessages"`
	Errors        map[string]string `json:"errors"`
}

// errorMessage extracts Jira's own diagnosis from an error reply, falling
// back to the status text.
func errorMessage(status int, body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		if len(eb.ErrorMessages) > 0 {
			return eb.ErrorMessages[0]
		}
		if len(eb.Errors) > 0 {
			fields := make([]string, 0, len(eb.Errors))
			for field := range eb.Errors {
				fields = append(fields, field)
			}
			sort.Strings(fields)
			return fmt.Sprintf("%s: %s", fields[0], eb.Errors[fields[0]])
		}
	}
	return http.StatusText(status)
}
