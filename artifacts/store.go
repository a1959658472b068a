package artifacts

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/medassureai/artifact-gateway/dynstore"
	"github.com/medassureai/artifact-gateway/gateway"
)

// Store persists artifact trees in the single-table layout: one partition per
// project, METADATA rollup plus one item per epic, feature, use case and test
// case. All reads and writes go through the document store, so retry and
// classification behavior is inherited from it.
type Store struct {
	docs     *dynstore.Store
	validate *validator.Validate
	now      func() time.Time
}

type Option func(*Store)

// WithClock overrides the timestamp source used for METADATA rollups.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(docs *dynstore.Store, opts ...Option) *Store {
	s := &Store{
		docs:     docs,
		validate: newValidate(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save validates the whole tree, flattens it and writes every item in one
// batched operation. The returned summary matches the METADATA item written.
func (s *Store) Save(ctx context.Context, p Project) (Summary, error) {
	if err := s.validateStruct(p); err != nil {
		return Summary{}, err
	}
	items, summary, err := flatten(p, s.now())
	if err != nil {
		return Summary{}, gateway.Permanent(gateway.KindPermanent, err)
	}
	if _, err := s.docs.BatchPut(ctx, dynstore.BatchPutRequest{Items: items}); err != nil {
		return Summary{}, err
	}
	return summary, nil
}

// Load reads the METADATA rollup and queries the partition's artifact items,
// rebuilding the nested tree. Children come back ordered by sort key. Other
// item families sharing the partition (document status records) are excluded
// by the EPIC# key prefix.
func (s *Store) Load(ctx context.Context, projectID string) (Project, error) {
	if projectID == "" {
		return Project{}, gateway.NewValidationError("project_id", "is required")
	}
	summary, err := s.Summary(ctx, projectID)
	if err != nil {
		return Project{}, err
	}
	items, err := s.queryArtifacts(ctx, projectID)
	if err != nil {
		return Project{}, err
	}

	project := Project{
		ID:          projectID,
		Name:        summary.Name,
		Description: summary.Description,
	}
	if err := attachChildren(&project, items); err != nil {
		return Project{}, gateway.Permanent(gateway.KindPermanent, err)
	}
	return project, nil
}

// Summary reads only the METADATA rollup.
func (s *Store) Summary(ctx context.Context, projectID string) (Summary, error) {
	if projectID == "" {
		return Summary{}, gateway.NewValidationError("project_id", "is required")
	}
	res, err := s.docs.Get(ctx, dynstore.GetRequest{Key: map[string]any{
		"PK": projectPK(projectID),
		"SK": metadataSK,
	}})
	if err != nil {
		if gateway.KindOf(err) == gateway.KindNotFound {
			return Summary{}, gateway.Permanent(gateway.KindNotFound, ErrProjectNotFound)
		}
		return Summary{}, err
	}
	var summary Summary
	if err := decodeItem(res.Item, &summary); err != nil {
		return Summary{}, gateway.Permanent(gateway.KindPermanent, err)
	}
	summary.ProjectID, _ = res.Item["id"].(string)
	return summary, nil
}

// SetTicketRef records a pushed Jira issue key on one artifact item. The item
// must exist already; a ticket ref never creates artifacts.
func (s *Store) SetTicketRef(ctx context.Context, req TicketRefRequest) error {
	if err := s.validateStruct(req); err != nil {
		return err
	}
	sk, err := refSortKey(req)
	if err != nil {
		return err
	}
	key := map[string]any{"PK": projectPK(req.ProjectID), "SK": sk}
	if _, err := s.docs.Get(ctx, dynstore.GetRequest{Key: key}); err != nil {
		return err
	}
	_, err = s.docs.Update(ctx, dynstore.UpdateRequest{
		Key:     key,
		Updates: map[string]any{"jira_key": req.IssueKey},
	})
	return err
}

func (s *Store) queryArtifacts(ctx context.Context, projectID string) ([]map[string]any, error) {
	var items []map[string]any
	cursor := ""
	for {
		res, err := s.docs.Query(ctx, dynstore.QueryRequest{
			KeyCondition: "PK = :pk AND begins_with(SK, :prefix)",
			Values: map[string]any{
				":pk":     projectPK(projectID),
				":prefix": "EPIC#",
			},
			Cursor: cursor,
		})
		if err != nil {
			return nil, err
		}
		items = append(items, res.Items...)
		if res.NextCursor == "" {
			return items, nil
		}
		cursor = res.NextCursor
	}
}

// refSortKey resolves the addressed item from the deepest id present and
// checks the intermediate levels are filled in.
func refSortKey(req TicketRefRequest) (string, error) {
	switch {
	case req.TestCaseID != "":
		if req.FeatureID == "" || req.UseCaseID == "" {
			return "", gateway.NewValidationError("test_case_id", "requires feature_id and use_case_id")
		}
		return testCaseSK(req.EpicID, req.FeatureID, req.UseCaseID, req.TestCaseID), nil
	case req.UseCaseID != "":
		if req.FeatureID == "" {
			return "", gateway.NewValidationError("use_case_id", "requires feature_id")
		}
		return useCaseSK(req.EpicID, req.FeatureID, req.UseCaseID), nil
	case req.FeatureID != "":
		return featureSK(req.EpicID, req.FeatureID), nil
	default:
		return epicSK(req.EpicID), nil
	}
}

func (s *Store) validateStruct(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return gateway.NewValidationError(fieldPath(fe), validationMessage(fe))
	}
	return gateway.NewValidationError("", err.Error())
}

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

// fieldPath reports the json path of the failing field, e.g.
// "epics[0].features[1].id".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "excludesall":
		return "must not contain '#'"
	case "oneof":
		return fmt.Sprintf("must be one of %s", strings.Join(strings.Fields(fe.Param()), ", "))
	default:
		return "is invalid"
	}
}
