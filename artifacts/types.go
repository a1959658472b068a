package artifacts

import (
	"errors"
	"time"
)

// ErrProjectNotFound is returned when a project has no items in the table.
var ErrProjectNotFound = errors.New("artifacts: project not found")

// Project is the root of a test-artifact tree. IDs become sort-key segments,
// so they must not contain '#'.
type Project struct {
	ID          string `json:"id" validate:"required,excludesall=#"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description,omitempty"`
	Epics       []Epic `json:"epics,omitempty" validate:"dive"`
}

type Epic struct {
	ID          string    `json:"id" validate:"required,excludesall=#"`
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description,omitempty"`
	JiraKey     string    `json:"jira_key,omitempty"`
	Features    []Feature `json:"features,omitempty" validate:"dive"`
}

type Feature struct {
	ID          string    `json:"id" validate:"required,excludesall=#"`
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description,omitempty"`
	JiraKey     string    `json:"jira_key,omitempty"`
	UseCases    []UseCase `json:"use_cases,omitempty" validate:"dive"`
}

type UseCase struct {
	ID          string     `json:"id" validate:"required,excludesall=#"`
	Title       string     `json:"title" validate:"required"`
	Description string     `json:"description,omitempty"`
	JiraKey     string     `json:"jira_key,omitempty"`
	TestCases   []TestCase `json:"test_cases,omitempty" validate:"dive"`
}

type TestCase struct {
	ID             string   `json:"id" validate:"required,excludesall=#"`
	Title          string   `json:"title" validate:"required"`
	Steps          []string `json:"steps,omitempty"`
	ExpectedResult string   `json:"expected_result,omitempty"`
	Priority       string   `json:"priority,omitempty" validate:"omitempty,oneof=low medium high critical"`
	ComplianceRefs []string `json:"compliance_refs,omitempty"`
	JiraKey        string   `json:"jira_key,omitempty"`
}

// Summary is the METADATA rollup of one project.
type Summary struct {
	ProjectID   string    `json:"project_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Epics       int       `json:"epics"`
	Features    int       `json:"features"`
	UseCases    int       `json:"use_cases"`
	TestCases   int       `json:"test_cases"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TicketRefRequest records a pushed Jira issue key on one artifact. The
// deepest id present selects the item: an epic, one of its features, a use
// case, or a single test case.
type TicketRefRequest struct {
	ProjectID  string `json:"project_id" validate:"required,excludesall=#"`
	EpicID     string `json:"epic_id" validate:"required,excludesall=#"`
	FeatureID  string `json:"feature_id,omitempty" validate:"omitempty,excludesall=#"`
	UseCaseID  string `json:"use_case_id,omitempty" validate:"omitempty,excludesall=#"`
	TestCaseID string `json:"test_case_id,omitempty" validate:"omitempty,excludesall=#"`
	IssueKey   string `json:"issue_key" validate:"required"`
}
