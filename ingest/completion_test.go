package ingest

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	texttypes "github.com/aws/aws-sdk-go-v2/service/textract/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medassureai/artifact-gateway/dynstore"
)

func snsRecord(message string) events.SNSEventRecord {
	return events.SNSEventRecord{SNS: events.SNSEntity{Message: message}}
}

func completionMessage(status string) string {
	note := map[string]any{
		"JobId":  "job-42",
		"Status": status,
		"API":    "StartDocumentTextDetection",
		"DocumentLocation": map[string]string{
			"S3Bucket":     testBucket,
			"S3ObjectName": "projects/p-100/documents/file-1/srs.pdf",
		},
	}
	raw, _ := json.Marshal(note)
	return string(raw)
}

func TestHandleCompletionStoresTextAndQueuesReview(t *testing.T) {
	ocr := &mockTextract{
		GetFn: func(ctx context.Context, params *textract.GetDocumentTextDetectionInput, _ ...func(*textract.Options)) (*textract.GetDocumentTextDetectionOutput, error) {
			assert.Equal(t, "job-42", aws.ToString(params.JobId))
			if params.NextToken == nil {
				return &textract.GetDocumentTextDetectionOutput{
					Blocks: []texttypes.Block{
						{BlockType: texttypes.BlockTypeLine, Text: aws.String("1.1 The pump shall alarm on occlusion")},
						{BlockType: texttypes.BlockTypeWord, Text: aws.String("alarm")},
						{BlockType: texttypes.BlockTypeLine, Text: aws.String("within 5 seconds.")},
					},
					NextToken: aws.String("page-2"),
				}, nil
			}
			assert.Equal(t, "page-2", aws.ToString(params.NextToken))
			return &textract.GetDocumentTextDetectionOutput{
				Blocks: []texttypes.Block{
					{BlockType: texttypes.BlockTypeLine, Text: aws.String("1.2 Audit records shall be immutable.")},
				},
			}, nil
		},
	}
	var storedText string
	s3c := &mockS3{
		PutObjectFn: func(ctx context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
			assert.Equal(t, testBucket, aws.ToString(params.Bucket))
			assert.Equal(t, "extracted/p-100/file-1.txt", aws.ToString(params.Key))
			assert.Equal(t, "text/plain", aws.ToString(params.ContentType))
			raw, err := io.ReadAll(params.Body)
			require.NoError(t, err)
			storedText = string(raw)
			return &s3.PutObjectOutput{}, nil
		},
	}
	var review reviewMessage
	queue := &mockSQS{
		SendMessageFn: func(ctx context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
			assert.Equal(t, "https://sqs.us-east-1.amazonaws.com/123456789012/review", aws.ToString(params.QueueUrl))
			require.NoError(t, json.Unmarshal([]byte(aws.ToString(params.MessageBody)), &review))
			return &sqs.SendMessageOutput{}, nil
		},
	}
	var update *dynamodb.UpdateItemInput
	client := &dynstore.MockClient{
		UpdateItemFn: func(ctx context.Context, params *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
			update = params
			return &dynamodb.UpdateItemOutput{}, nil
		},
	}
	p := testPipeline(client, s3c, ocr, queue)

	err := p.HandleCompletion(context.Background(), events.SNSEvent{Records: []events.SNSEventRecord{
		snsRecord(completionMessage("SUCCEEDED")),
	}})
	require.NoError(t, err)

	assert.Equal(t, 2, ocr.getCalls, "all result pages must be read")
	assert.Equal(t, "1.1 The pump shall alarm on occlusion\nwithin 5 seconds.\n1.2 Audit records shall be immutable.\n", storedText)
	assert.Equal(t, reviewMessage{
		ProjectID:    "p-100",
		FileID:       "file-1",
		ExtractedKey: "extracted/p-100/file-1.txt",
		JobID:        "job-42",
	}, review)

	require.NotNil(t, update)
	assert.Equal(t, &types.AttributeValueMemberS{Value: "PROJECT#p-100"}, update.Key["PK"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "DOCUMENT#file-1"}, update.Key["SK"])
	values := make([]types.AttributeValue, 0, len(update.ExpressionAttributeValues))
	for _, v := range update.ExpressionAttributeValues {
		values = append(values, v)
	}
	assert.Contains(t, values, &types.AttributeValueMemberS{Value: StatusCompleted})
	assert.Contains(t, values, &types.AttributeValueMemberS{Value: "extracted/p-100/file-1.txt"})
}

func TestHandleCompletionMarksFailedJobs(t *testing.T) {
	ocr := &mockTextract{}
	s3c := &mockS3{}
	queue := &mockSQS{}
	var update *dynamodb.UpdateItemInput
	client := &dynstore.MockClient{
		UpdateItemFn: func(ctx context.Context, params *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
			update = params
			return &dynamodb.UpdateItemOutput{}, nil
		},
	}
	p := testPipeline(client, s3c, ocr, queue)

	err := p.HandleCompletion(context.Background(), events.SNSEvent{Records: []events.SNSEventRecord{
		snsRecord(completionMessage("FAILED")),
	}})
	require.NoError(t, err)

	assert.Zero(t, ocr.getCalls, "failed jobs have no text to collect")
	assert.Zero(t, s3c.calls)
	assert.Zero(t, queue.calls)

	require.NotNil(t, update)
	values := make([]types.AttributeValue, 0, len(update.ExpressionAttributeValues))
	for _, v := range update.ExpressionAttributeValues {
		values = append(values, v)
	}
	assert.Contains(t, values, &types.AttributeValueMemberS{Value: StatusFailed})
	assert.Contains(t, values, &types.AttributeValueMemberS{Value: "text detection ended with status FAILED"})
}

func TestHandleCompletionRejectsMalformedNotifications(t *testing.T) {
	ocr := &mockTextract{}
	client := &dynstore.MockClient{}
	p := testPipeline(client, &mockS3{}, ocr, &mockSQS{})

	err := p.HandleCompletion(context.Background(), events.SNSEvent{Records: []events.SNSEventRecord{
		snsRecord("not a notification"),
	}})
	require.Error(t, err)
	assert.Zero(t, ocr.getCalls)
	assert.Zero(t, client.CallCount("UpdateItem"))
}

func TestHandleCompletionRetriesTransientResultReads(t *testing.T) {
	var delays []time.Duration
	attempts := 0
	ocr := &mockTextract{
		GetFn: func(ctx context.Context, params *textract.GetDocumentTextDetectionInput, _ ...func(*textract.Options)) (*textract.GetDocumentTextDetectionOutput, error) {
			attempts++
			if attempts == 1 {
				return nil, fakeTimeout{}
			}
			return &textract.GetDocumentTextDetectionOutput{
				Blocks: []texttypes.Block{
					{BlockType: texttypes.BlockTypeLine, Text: aws.String("Recovered line.")},
				},
			}, nil
		},
	}
	var storedText string
	s3c := &mockS3{
		PutObjectFn: func(ctx context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
			raw, err := io.ReadAll(params.Body)
			require.NoError(t, err)
			storedText = string(raw)
			return &s3.PutObjectOutput{}, nil
		},
	}
	client := &dynstore.MockClient{}
	p := testPipeline(client, s3c, ocr, &mockSQS{}, WithPolicy(instantPolicy(&delays)))

	err := p.HandleCompletion(context.Background(), events.SNSEvent{Records: []events.SNSEventRecord{
		snsRecord(completionMessage("SUCCEEDED")),
	}})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, []time.Duration{time.Second}, delays)
	assert.Equal(t, "Recovered line.\n", storedText)
}
