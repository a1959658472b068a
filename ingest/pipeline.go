package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/medassureai/artifact-gateway/dynstore"
	"github.com/medassureai/artifact-gateway/gateway"
	"github.com/medassureai/artifact-gateway/pkg/observability"
)

// Config wires the pipeline to its infrastructure.
type Config struct {
	// Bucket receives uploaded documents and, later, their extracted text.
	Bucket string
	// SNSTopicARN is where Textract publishes job completion notifications.
	SNSTopicARN string
	// RoleARN is the role Textract assumes to publish to the topic.
	RoleARN string
	// ReviewQueueURL is the human-review queue fed with extracted text.
	ReviewQueueURL string
}

// Pipeline drives a document from upload through text detection to reviewed
// text. Status items live in the same table partition as the project's
// artifacts, under their own DOCUMENT# sort keys, and every mutation goes
// through the document store so the whole path shares one retry policy.
type Pipeline struct {
	docs    *dynstore.Store
	s3c     S3API
	ocr     TextractAPI
	queue   SQSAPI
	cfg     Config
	policy  gateway.Policy
	metrics observability.Provider
	now     func() time.Time
	newID   func() string
}

// Option tweaks pipeline construction.
type Option func(*Pipeline)

// WithPolicy replaces the default retry policy.
func WithPolicy(policy gateway.Policy) Option {
	return func(p *Pipeline) { p.policy = policy }
}

// WithMetrics emits call and retry counters through the given provider.
func WithMetrics(metrics observability.Provider) Option {
	return func(p *Pipeline) { p.metrics = metrics }
}

// WithClock overrides the timestamp source. Tests use it to pin item times.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithIDSource overrides file id generation.
func WithIDSource(newID func() string) Option {
	return func(p *Pipeline) { p.newID = newID }
}

// New builds a Pipeline around the document store and the AWS clients.
func New(docs *dynstore.Store, s3c S3API, ocr TextractAPI, queue SQSAPI, cfg Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		docs:   docs,
		s3c:    s3c,
		ocr:    ocr,
		queue:  queue,
		cfg:    cfg,
		policy: gateway.DefaultPolicy(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.metrics != nil && p.policy.OnRetry == nil {
		p.policy.OnRetry = func(op string, attempt int, delay time.Duration) {
			_ = p.metrics.Count("ingest.retries", 1, []string{"operation:" + op})
		}
	}
	return p
}

// Upload validates the request, stores the object and writes the document's
// status item. The returned record carries the generated file id callers poll
// with.
func (p *Pipeline) Upload(ctx context.Context, req UploadRequest) (Document, error) {
	if err := validateUpload(req); err != nil {
		return Document{}, err
	}

	now := p.now().UTC().Truncate(time.Second)
	doc := Document{
		ProjectID:   req.ProjectID,
		FileID:      p.newID(),
		Filename:    req.Filename,
		Bucket:      p.cfg.Bucket,
		ContentType: contentTypes[strings.ToLower(filepath.Ext(req.Filename))],
		SizeBytes:   req.Size,
		Status:      StatusUploaded,
		UploadedAt:  now,
		UpdatedAt:   now,
	}
	doc.ObjectKey = objectKey(doc.ProjectID, doc.FileID, doc.Filename)

	_, err := gateway.Do(ctx, "s3.put_object", p.policy, func(ctx context.Context) (*s3.PutObjectOutput, error) {
		if _, err := req.Body.Seek(0, io.SeekStart); err != nil {
			return nil, gateway.Permanent(gateway.KindPermanent, fmt.Errorf("ingest: rewind upload body: %w", err))
		}
		out, err := p.s3c.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(p.cfg.Bucket),
			Key:           aws.String(doc.ObjectKey),
			Body:          req.Body,
			ContentType:   aws.String(doc.ContentType),
			ContentLength: aws.Int64(req.Size),
		})
		if err != nil {
			return nil, classify(err)
		}
		return out, nil
	})
	p.observe("s3.put_object", err)
	if err != nil {
		return Document{}, err
	}

	item, err := documentItem(doc)
	if err != nil {
		return Document{}, err
	}
	if _, err := p.docs.Put(ctx, dynstore.PutRequest{Item: item}); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Status reads one document's status item.
func (p *Pipeline) Status(ctx context.Context, projectID, fileID string) (Document, error) {
	if projectID == "" {
		return Document{}, gateway.NewValidationError("project_id", "is required")
	}
	if fileID == "" {
		return Document{}, gateway.NewValidationError("file_id", "is required")
	}
	res, err := p.docs.Get(ctx, dynstore.GetRequest{Key: statusKey(projectID, fileID)})
	if err != nil {
		if gateway.KindOf(err) == gateway.KindNotFound {
			return Document{}, gateway.Permanent(gateway.KindNotFound, ErrDocumentNotFound)
		}
		return Document{}, err
	}
	var doc Document
	if err := decodeDocument(res.Item, &doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

func validateUpload(req UploadRequest) error {
	if req.ProjectID == "" {
		return gateway.NewValidationError("project_id", "is required")
	}
	if strings.ContainsAny(req.ProjectID, "#/") {
		return gateway.NewValidationError("project_id", "must not contain '#' or '/'")
	}
	if req.Filename == "" {
		return gateway.NewValidationError("filename", "is required")
	}
	if strings.Contains(req.Filename, "/") {
		return gateway.NewValidationError("filename", "must not contain '/'")
	}
	if _, ok := contentTypes[strings.ToLower(filepath.Ext(req.Filename))]; !ok {
		return gateway.NewValidationError("filename", "must end in .pdf, .doc or .docx")
	}
	if req.Body == nil {
		return gateway.NewValidationError("file", "is required")
	}
	if req.Size <= 0 {
		return gateway.NewValidationError("file", "is empty")
	}
	if req.Size > MaxUploadSize {
		return gateway.NewValidationError("file", "exceeds the 50 MB limit")
	}
	return nil
}

// setStatus patches the document's status item and refreshes updated_at.
// Timestamps travel as RFC 3339 strings so stored items keep one
// representation regardless of which path wrote them.
func (p *Pipeline) setStatus(ctx context.Context, projectID, fileID string, updates map[string]any) error {
	updates["updated_at"] = p.now().UTC().Truncate(time.Second).Format(time.RFC3339)
	_, err := p.docs.Update(ctx, dynstore.UpdateRequest{
		Key:     statusKey(projectID, fileID),
		Updates: updates,
	})
	return err
}

func statusKey(projectID, fileID string) map[string]any {
	return map[string]any{
		"PK": "PROJECT#" + projectID,
		"SK": "DOCUMENT#" + fileID,
	}
}

func documentItem(doc Document) (map[string]any, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, gateway.Permanent(gateway.KindPermanent, fmt.Errorf("ingest: encode document item: %w", err))
	}
	item := map[string]any{}
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, gateway.Permanent(gateway.KindPermanent, fmt.Errorf("ingest: encode document item: %w", err))
	}
	item["PK"] = "PROJECT#" + doc.ProjectID
	item["SK"] = "DOCUMENT#" + doc.FileID
	item["entity_type"] = "document"
	return item, nil
}

func decodeDocument(item map[string]any, doc *Document) error {
	raw, err := json.Marshal(item)
	if err != nil {
		return gateway.Permanent(gateway.KindPermanent, fmt.Errorf("ingest: decode document item: %w", err))
	}
	if err := json.Unmarshal(raw, doc); err != nil {
		return gateway.Permanent(gateway.KindPermanent, fmt.Errorf("ingest: decode document item: %w", err))
	}
	return nil
}

func (p *Pipeline) observe(op string, err error) {
	if p.metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	_ = p.metrics.Count("ingest.calls", 1, []string{"operation:" + op, "outcome:" + outcome})
}
