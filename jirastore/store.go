package jirastore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/medassureai/artifact-gateway/gateway"
	"github.com/medassureai/artifact-gateway/pkg/observability"
)

const defaultPageSize = 50

// Store normalizes ticket verbs against one Jira site. Requests are validated
// before any call leaves the process, replies are classified into the gateway
// taxonomy, and transient failures are retried under the configured policy.
type Store struct {
	api      API
	baseURL  string
	pageSize int
	policy   gateway.Policy
	metrics  observability.Provider
	validate *validator.Validate
}

// Option adjusts a Store during construction.
type Option func(*Store)

// WithPolicy overrides the default retry policy.
func WithPolicy(p gateway.Policy) Option {
	return func(s *Store) { s.policy = p }
}

// WithMetrics emits call and retry counters to the given provider.
func WithMetrics(m observability.Provider) Option {
	return func(s *Store) { s.metrics = m }
}

// WithPageSize sets the search window used when a request does not name one.
func WithPageSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// New builds a Store. baseURL is the Jira site root, used for browse links.
func New(api API, baseURL string, opts ...Option) *Store {
	s := &Store{
		api:      api,
		baseURL:  strings.TrimRight(baseURL, "/"),
		pageSize: defaultPageSize,
		policy:   gateway.DefaultPolicy(),
		validate: newValidate(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.metrics != nil && s.policy.OnRetry == nil {
		s.policy.OnRetry = func(op string, attempt int, delay time.Duration) {
			_ = s.metrics.Count("jira.retries", 1, []string{"operation:" + op})
		}
	}
	return s
}

// CreateIssue creates one issue and returns its key and browse URL.
func (s *Store) CreateIssue(ctx context.Context, req CreateIssueRequest) (CreateResult, error) {
	if err := s.validateRequest(req); err != nil {
		s.observe("create_issue", err)
		return CreateResult{Envelope: gateway.Fail("create_issue", "", err)}, err
	}

	out, err := call[createResponse](ctx, s, "create_issue", http.MethodPost, "/rest/api/2/issue", nil, buildCreatePayload(req))
	s.observe("create_issue", err)
	if err != nil {
		return CreateResult{Envelope: gateway.Fail("create_issue", req.ProjectKey, err)}, err
	}
	return CreateResult{
		Envelope: gateway.OK(),
		Key:      out.Key,
		ID:       out.ID,
		URL:      s.browseURL(out.Key),
	}, nil
}

// GetIssue fetches one issue and projects it.
func (s *Store) GetIssue(ctx context.Context, req GetIssueRequest) (IssueResult, error) {
	if err := s.validateRequest(req); err != nil {
		s.observe("get_issue", err)
		return IssueResult{Envelope: gateway.Fail("get_issue", "", err)}, err
	}

	raw, err := call[rawIssue](ctx, s, "get_issue", http.MethodGet, "/rest/api/2/issue/"+url.PathEscape(req.IssueKey), nil, nil)
	s.observe("get_issue", err)
	if err != nil {
		return IssueResult{Envelope: gateway.Fail("get_issue", req.IssueKey, err)}, err
	}

	issue := projectIssue(raw, s.browseURL)
	return IssueResult{Envelope: gateway.OK(), Issue: &issue}, nil
}

// UpdateIssue replaces the named fields on an issue.
func (s *Store) UpdateIssue(ctx context.Context, req UpdateIssueRequest) (UpdateResult, error) {
	if err := s.validateRequest(req); err != nil {
		s.observe("update_issue", err)
		return UpdateResult{Envelope: gateway.Fail("update_issue", "", err)}, err
	}

	body := map[string]any{"fields": req.Fields}
	_, err := call[struct{}](ctx, s, "update_issue", http.MethodPut, "/rest/api/2/issue/"+url.PathEscape(req.IssueKey), nil, body)
	s.observe("update_issue", err)
	if err != nil {
		return UpdateResult{Envelope: gateway.Fail("update_issue", req.IssueKey, err)}, err
	}
	return UpdateResult{Envelope: gateway.OK(), Key: req.IssueKey}, nil
}

// DeleteIssue removes an issue.
func (s *Store) DeleteIssue(ctx context.Context, req DeleteIssueRequest) (DeleteResult, error) {
	if err := s.validateRequest(req); err != nil {
		s.observe("delete_issue", err)
		return DeleteResult{Envelope: gateway.Fail("delete_issue", "", err)}, err
	}

	_, err := call[struct{}](ctx, s, "delete_issue", http.MethodDelete, "/rest/api/2/issue/"+url.PathEscape(req.IssueKey), nil, nil)
	s.observe("delete_issue", err)
	if err != nil {
		return DeleteResult{Envelope: gateway.Fail("delete_issue", req.IssueKey, err)}, err
	}
	return DeleteResult{Envelope: gateway.OK(), Key: req.IssueKey}, nil
}

// SearchIssues runs one page of a JQL search.
func (s *Store) SearchIssues(ctx context.Context, req SearchRequest) (SearchResult, error) {
	if err := s.validateRequest(req); err != nil {
		s.observe("search_issues", err)
		return SearchResult{Envelope: gateway.Fail("search_issues", "", err)}, err
	}

	window := req.MaxResults
	if window == 0 {
		window = s.pageSize
	}

	query := url.Values{}
	query.Set("jql", req.JQL)
	query.Set("maxResults", strconv.Itoa(window))
	query.Set("startAt", strconv.Itoa(req.StartAt))

	out, err := call[searchResponse](ctx, s, "search_issues", http.MethodGet, "/rest/api/2/search", query, nil)
	s.observe("search_issues", err)
	if err != nil {
		return SearchResult{Envelope: gateway.Fail("search_issues", req.JQL, err)}, err
	}

	issues := make([]Issue, 0, len(out.Issues))
	for _, raw := range out.Issues {
		issues = append(issues, projectIssue(raw, s.browseURL))
	}

	result := SearchResult{
		Envelope: gateway.OK(),
		Issues:   issues,
		Count:    len(issues),
		Total:    out.Total,
	}
	if next := req.StartAt + len(issues); next < out.Total && len(issues) > 0 {
		result.NextCursor = strconv.Itoa(next)
	}
	return result, nil
}

// CreateIssuesBatch creates a sequence of issues. Every item is validated
// before the first request is sent; after that, failed items are recorded and
// the rest of the batch continues unless the context is gone.
func (s *Store) CreateIssuesBatch(ctx context.Context, req CreateBatchRequest) (BatchCreateResult, error) {
	if len(req.Issues) == 0 {
		err := gateway.NewValidationError("issues", "is required")
		s.observe("create_batch", err)
		return BatchCreateResult{Envelope: gateway.Fail("create_batch", "", err)}, err
	}
	for i, item := range req.Issues {
		if err := s.validateRequest(item); err != nil {
			var verr *gateway.ValidationError
			if errors.As(err, &verr) {
				err = gateway.NewValidationError(fmt.Sprintf("issues[%d].%s", i, verr.Field), verr.Message)
			}
			s.observe("create_batch", err)
			return BatchCreateResult{Envelope: gateway.Fail("create_batch", "", err)}, err
		}
	}

	created := make([]CreateResult, 0, len(req.Issues))
	var failed []BatchFailure
	for i, item := range req.Issues {
		res, err := s.CreateIssue(ctx, item)
		if err != nil {
			failed = append(failed, BatchFailure{Index: i, Error: res.Error, Kind: res.ErrorKind})
			if ctx.Err() != nil {
				break
			}
			continue
		}
		created = append(created, res)
	}

	if len(failed) > 0 {
		err := gateway.Permanent(gateway.KindPermanent,
			fmt.Errorf("jirastore: %d of %d issues failed", len(failed), len(req.Issues)))
		return BatchCreateResult{
			Envelope: gateway.Fail("create_batch", "", err),
			Created:  created,
			Failed:   failed,
		}, err
	}
	return BatchCreateResult{Envelope: gateway.OK(), Created: created}, nil
}

// call sends one request under the retry policy and decodes a 2xx body into T.
func call[T any](ctx context.Context, s *Store, op, method, path string, query url.Values, body any) (T, error) {
	var decoded T

	resp, err := gateway.Do(ctx, op, s.policy, func(ctx context.Context) (*Response, error) {
		resp, err := s.api.Do(ctx, method, path, query, body)
		if err != nil {
			return nil, classifyTransport(ctx, err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, classifyStatus(resp.StatusCode, resp.Body)
		}
		return resp, nil
	})
	if err != nil {
		return decoded, err
	}

	if len(resp.Body) > 0 {
		if uerr := json.Unmarshal(resp.Body, &decoded); uerr != nil {
			return decoded, gateway.Permanent(gateway.KindPermanent, fmt.Errorf("jirastore: decode response: %w", uerr))
		}
	}
	return decoded, nil
}

func (s *Store) browseURL(key string) string {
	return s.baseURL + "/browse/" + key
}

func (s *Store) validateRequest(req any) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return gateway.NewValidationError(fe.Field(), validationMessage(fe))
	}
	return gateway.NewValidationError("request", err.Error())
}

// newValidate reports failures under JSON field names, so an error about a
// missing project key literally says "project_key".
func newValidate() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must not be empty"
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}

func (s *Store) observe(verb string, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	_ = s.metrics.Count("jira.calls", 1, []string{"verb:" + verb, "outcome:" + outcome})
}
