package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
	"github.com/rs/zerolog"

	"github.com/medassureai/artifact-gateway/gateway"
)

// HandleUpload reacts to object-created events. Each uploaded document gets
// an async text-detection job with an SNS completion channel, and its status
// item advances to processing. Objects outside the document key layout, such
// as the extracted text this pipeline writes itself, are skipped so the
// trigger cannot loop on its own output.
func (p *Pipeline) HandleUpload(ctx context.Context, event events.S3Event) error {
	log := zerolog.Ctx(ctx)

	var errs []error
	for _, record := range event.Records {
		key := record.S3.Object.Key
		if unescaped, err := url.QueryUnescape(key); err == nil {
			key = unescaped
		}

		projectID, fileID, _, err := parseObjectKey(key)
		if err != nil {
			log.Debug().Str("key", key).Msg("skipping non-document object")
			continue
		}

		jobID, err := p.startDetection(ctx, record.S3.Bucket.Name, key)
		if err != nil {
			errs = append(errs, fmt.Errorf("ingest: start detection for %s: %w", key, err))
			continue
		}

		if err := p.setStatus(ctx, projectID, fileID, map[string]any{
			"status": StatusProcessing,
			"job_id": jobID,
		}); err != nil {
			errs = append(errs, fmt.Errorf("ingest: record job for %s: %w", key, err))
			continue
		}

		log.Info().
			Str("project_id", projectID).
			Str("file_id", fileID).
			Str("job_id", jobID).
			Msg("text detection started")
	}
	return errors.Join(errs...)
}

func (p *Pipeline) startDetection(ctx context.Context, bucket, key string) (string, error) {
	out, err := gateway.Do(ctx, "textract.start", p.policy, func(ctx context.Context) (*textract.StartDocumentTextDetectionOutput, error) {
		out, err := p.ocr.StartDocumentTextDetection(ctx, &textract.StartDocumentTextDetectionInput{
			DocumentLocation: &types.DocumentLocation{
				S3Object: &types.S3Object{
					Bucket: aws.String(bucket),
					Name:   aws.String(key),
				},
			},
			NotificationChannel: &types.NotificationChannel{
				SNSTopicArn: aws.String(p.cfg.SNSTopicARN),
				RoleArn:     aws.String(p.cfg.RoleARN),
			},
		})
		if err != nil {
			return nil, classify(err)
		}
		return out, nil
	})
	p.observe("textract.start", err)
	if err != nil {
		return "", err
	}
	return aws.ToString(out.JobId), nil
}
