package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/textract"
)

// MaxUploadSize caps document uploads at 50 MB.
const MaxUploadSize = 50 << 20

// Document lifecycle states.
const (
	StatusUploaded   = "uploaded"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// ErrDocumentNotFound is returned when no status item exists for a document.
var ErrDocumentNotFound = errors.New("ingest: document not found")

// S3API is the slice of the S3 client used by the pipeline.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// TextractAPI covers the two async text-detection calls.
type TextractAPI interface {
	StartDocumentTextDetection(ctx context.Context, params *textract.StartDocumentTextDetectionInput, optFns ...func(*textract.Options)) (*textract.StartDocumentTextDetectionOutput, error)
	GetDocumentTextDetection(ctx context.Context, params *textract.GetDocumentTextDetectionInput, optFns ...func(*textract.Options)) (*textract.GetDocumentTextDetectionOutput, error)
}

// SQSAPI is the slice of the SQS client used by the pipeline.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// UploadRequest is one multipart document upload. The body must be seekable
// so a retried store attempt can rewind it.
type UploadRequest struct {
	ProjectID string
	Filename  string
	Size      int64
	Body      io.ReadSeeker
}

// Document is the status record kept under DOCUMENT#<fileID> in the project
// partition, advanced by the pipeline stages.
type Document struct {
	ProjectID    string    `json:"project_id"`
	FileID       string    `json:"file_id"`
	Filename     string    `json:"filename"`
	Bucket       string    `json:"bucket"`
	ObjectKey    string    `json:"object_key"`
	ContentType  string    `json:"content_type"`
	SizeBytes    int64     `json:"size_bytes"`
	Status       string    `json:"status"`
	JobID        string    `json:"job_id,omitempty"`
	ExtractedKey string    `json:"extracted_key,omitempty"`
	Error        string    `json:"error,omitempty"`
	UploadedAt   time.Time `json:"uploaded_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// contentTypes maps the accepted upload extensions. Uploads outside this
// table are rejected before anything leaves the process.
var contentTypes = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

func objectKey(projectID, fileID, filename string) string {
	return fmt.Sprintf("projects/%s/documents/%s/%s", projectID, fileID, filename)
}

func extractedKey(projectID, fileID string) string {
	return fmt.Sprintf("extracted/%s/%s.txt", projectID, fileID)
}

// parseObjectKey splits projects/<projectID>/documents/<fileID>/<filename>
// back into its parts. Keys outside that layout (extracted text, foreign
// objects in the bucket) are reported as non-documents.
func parseObjectKey(key string) (projectID, fileID, filename string, err error) {
	parts := strings.Split(key, "/")
	if len(parts) < 5 || parts[0] != "projects" || parts[2] != "documents" ||
		parts[1] == "" || parts[3] == "" || parts[4] == "" {
		return "", "", "", fmt.Errorf("ingest: object key %q is not a document upload", key)
	}
	return parts[1], parts[3], strings.Join(parts[4:], "/"), nil
}
