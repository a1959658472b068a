package jirastore

import (
	"github.com/medassureai/artifact-gateway/gateway"
)

// Issue is the normalized projection of a Jira issue. Only the fields the
// artifact workflow consumes survive; everything else Jira returns is dropped.
type Issue struct {
	Key         string `json:"key"`
	ID          string `json:"id"`
	URL         string `json:"url"`
	Summary     string `json:"summary"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Type        string `json:"type"`
	Project     string `json:"project"`
}

// CreateIssueRequest creates one issue. Extra Fields are merged into the
// payload last, so they can override anything the named fields set.
type CreateIssueRequest struct {
	ProjectKey  string         `json:"project_key" validate:"required"`
	Summary     string         `json:"summary" validate:"required"`
	Description string         `json:"description,omitempty"`
	IssueType   string         `json:"issue_type,omitempty"` // defaults to Task
	Fields      map[string]any `json:"fields,omitempty"`
}

// UpdateIssueRequest replaces the named fields on an existing issue.
type UpdateIssueRequest struct {
	IssueKey string         `json:"issue_key" validate:"required"`
	Fields   map[string]any `json:"fields" validate:"required,min=1"`
}

// GetIssueRequest fetches one issue by key.
type GetIssueRequest struct {
	IssueKey string `json:"issue_key" validate:"required"`
}

// DeleteIssueRequest removes one issue by key.
type DeleteIssueRequest struct {
	IssueKey string `json:"issue_key" validate:"required"`
}

// SearchRequest runs a JQL search over a paging window. The next_cursor of a
// truncated result is the next offset as a decimal string; passing it back as
// start_at continues the scan.
type SearchRequest struct {
	JQL        string `json:"jql" validate:"required"`
	MaxResults int    `json:"max_results,omitempty" validate:"gte=0,lte=100"`
	StartAt    int    `json:"start_at,omitempty" validate:"gte=0"`
}

// CreateBatchRequest creates a sequence of issues. All items are validated
// before the first one is sent.
type CreateBatchRequest struct {
	Issues []CreateIssueRequest `json:"issues"`
}

// CreateResult confirms a created issue.
type CreateResult struct {
	gateway.Envelope
	Key string `json:"issue_key,omitempty"`
	ID  string `json:"id,omitempty"`
	URL string `json:"url,omitempty"`
}

// IssueResult carries one projected issue.
type IssueResult struct {
	gateway.Envelope
	Issue *Issue `json:"issue,omitempty"`
}

// UpdateResult confirms an update.
type UpdateResult struct {
	gateway.Envelope
	Key string `json:"issue_key,omitempty"`
}

// DeleteResult confirms a delete.
type DeleteResult struct {
	gateway.Envelope
	Key string `json:"issue_key,omitempty"`
}

// SearchResult carries one page of a JQL search.
type SearchResult struct {
	gateway.Envelope
	Issues     []Issue `json:"issues"`
	Count      int     `json:"count"`
	Total      int     `json:"total"`
	NextCursor string  `json:"next_cursor,omitempty"`
}

// BatchFailure records one issue of a batch that could not be created.
type BatchFailure struct {
	Index int          `json:"index"`
	Error string       `json:"error"`
	Kind  gateway.Kind `json:"error_kind"`
}

// BatchCreateResult reports a batch create. Unlike single-verb results it can
// carry partial payload next to an error: issues created before a failure are
// listed so the caller can reconcile.
type BatchCreateResult struct {
	gateway.Envelope
	Created []CreateResult `json:"created"`
	Failed  []BatchFailure `json:"failed,omitempty"`
}
