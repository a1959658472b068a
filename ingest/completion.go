package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
	"github.com/rs/zerolog"

	"github.com/medassureai/artifact-gateway/gateway"
)

// textractNotification is the SNS payload Textract publishes when an async
// job finishes. Field names follow the notification format, not our own
// conventions.
type textractNotification struct {
	JobID            string `json:"JobId"`
	Status           string `json:"Status"`
	API              string `json:"API"`
	DocumentLocation struct {
		Bucket string `json:"S3Bucket"`
		Key    string `json:"S3ObjectName"`
	} `json:"DocumentLocation"`
}

// reviewMessage is what the human-review queue receives for each document
// whose text was extracted.
type reviewMessage struct {
	ProjectID    string `json:"project_id"`
	FileID       string `json:"file_id"`
	ExtractedKey string `json:"extracted_key"`
	JobID        string `json:"job_id"`
}

// HandleCompletion reacts to Textract completion notifications. Successful
// jobs get their text collected, written next to the source document and
// queued for review; anything else marks the document failed with the
// reported status.
func (p *Pipeline) HandleCompletion(ctx context.Context, event events.SNSEvent) error {
	log := zerolog.Ctx(ctx)

	var errs []error
	for _, record := range event.Records {
		var note textractNotification
		if err := json.Unmarshal([]byte(record.SNS.Message), &note); err != nil {
			errs = append(errs, fmt.Errorf("ingest: decode completion notification: %w", err))
			continue
		}

		projectID, fileID, _, err := parseObjectKey(note.DocumentLocation.Key)
		if err != nil {
			errs = append(errs, fmt.Errorf("ingest: completion for unexpected object %q: %w", note.DocumentLocation.Key, err))
			continue
		}

		if note.Status != string(types.JobStatusSucceeded) {
			log.Warn().
				Str("job_id", note.JobID).
				Str("status", note.Status).
				Str("file_id", fileID).
				Msg("text detection did not succeed")
			if err := p.setStatus(ctx, projectID, fileID, map[string]any{
				"status": StatusFailed,
				"error":  fmt.Sprintf("text detection ended with status %s", note.Status),
			}); err != nil {
				errs = append(errs, fmt.Errorf("ingest: mark %s failed: %w", fileID, err))
			}
			continue
		}

		if err := p.finishDocument(ctx, projectID, fileID, note.JobID); err != nil {
			errs = append(errs, fmt.Errorf("ingest: finish document %s: %w", fileID, err))
			continue
		}

		log.Info().
			Str("project_id", projectID).
			Str("file_id", fileID).
			Str("job_id", note.JobID).
			Msg("extracted text stored and queued for review")
	}
	return errors.Join(errs...)
}

// finishDocument collects the job's text, stores it under the extracted/
// prefix, enqueues the review message and completes the status item.
func (p *Pipeline) finishDocument(ctx context.Context, projectID, fileID, jobID string) error {
	text, err := p.collectText(ctx, jobID)
	if err != nil {
		return err
	}

	key := extractedKey(projectID, fileID)
	_, err = gateway.Do(ctx, "s3.put_object", p.policy, func(ctx context.Context) (*s3.PutObjectOutput, error) {
		out, err := p.s3c.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(p.cfg.Bucket),
			Key:         aws.String(key),
			Body:        strings.NewReader(text),
			ContentType: aws.String("text/plain"),
		})
		if err != nil {
			return nil, classify(err)
		}
		return out, nil
	})
	p.observe("s3.put_object", err)
	if err != nil {
		return err
	}

	if err := p.enqueueReview(ctx, reviewMessage{
		ProjectID:    projectID,
		FileID:       fileID,
		ExtractedKey: key,
		JobID:        jobID,
	}); err != nil {
		return err
	}

	return p.setStatus(ctx, projectID, fileID, map[string]any{
		"status":        StatusCompleted,
		"extracted_key": key,
	})
}

// collectText pages through the job results and joins every LINE block in
// reading order.
func (p *Pipeline) collectText(ctx context.Context, jobID string) (string, error) {
	var sb strings.Builder
	var nextToken *string
	for {
		input := &textract.GetDocumentTextDetectionInput{
			JobId:     aws.String(jobID),
			NextToken: nextToken,
		}
		out, err := gateway.Do(ctx, "textract.get", p.policy, func(ctx context.Context) (*textract.GetDocumentTextDetectionOutput, error) {
			out, err := p.ocr.GetDocumentTextDetection(ctx, input)
			if err != nil {
				return nil, classify(err)
			}
			return out, nil
		})
		p.observe("textract.get", err)
		if err != nil {
			return "", err
		}
		for _, block := range out.Blocks {
			if block.BlockType == types.BlockTypeLine {
				sb.WriteString(aws.ToString(block.Text))
				sb.WriteByte('\n')
			}
		}
		if out.NextToken == nil {
			return sb.String(), nil
		}
		nextToken = out.NextToken
	}
}

func (p *Pipeline) enqueueReview(ctx context.Context, msg reviewMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return gateway.Permanent(gateway.KindPermanent, fmt.Errorf("ingest: encode review message: %w", err))
	}
	_, err = gateway.Do(ctx, "sqs.send", p.policy, func(ctx context.Context) (*sqs.SendMessageOutput, error) {
		out, err := p.queue.SendMessage(ctx, &sqs.SendMessageInput{
			QueueUrl:    aws.String(p.cfg.ReviewQueueURL),
			MessageBody: aws.String(string(body)),
		})
		if err != nil {
			return nil, classify(err)
		}
		return out, nil
	})
	p.observe("sqs.send", err)
	return err
}
