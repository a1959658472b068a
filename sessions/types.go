package sessions

import (
	"errors"
	"time"
)

// ErrSessionNotFound is returned when no session lives under the given id,
// either because it never existed or because its TTL lapsed.
var ErrSessionNotFound = errors.New("sessions: session not found")

// Status is the lifecycle state of a generation session.
type Status string

const (
	StatusActive   Status = "active"
	StatusComplete Status = "complete"
	StatusExpired  Status = "expired"
	StatusError    Status = "error"
)

func (s Status) valid() bool {
	switch s {
	case StatusActive, StatusComplete, StatusExpired, StatusError:
		return true
	}
	return false
}

// Message is one conversation turn recorded on a session.
type Message struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	SentAt  time.Time `json:"sent_at"`
}

// Session is the unit of conversational state, stored as JSON under
// session:<id> with a sliding TTL.
type Session struct {
	ID        string         `json:"id"`
	ProjectID string         `json:"project_id"`
	Type      string         `json:"type"`
	Status    Status         `json:"status"`
	Context   map[string]any `json:"context,omitempty"`
	Messages  []Message      `json:"messages,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// CreateRequest opens a new session bound to a project.
type CreateRequest struct {
	ProjectID string         `json:"project_id"`
	Type      string         `json:"type"`
	Context   map[string]any `json:"context,omitempty"`
}
