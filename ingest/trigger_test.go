package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medassureai/artifact-gateway/dynstore"
)

func s3Record(bucket, key string) events.S3EventRecord {
	return events.S3EventRecord{S3: events.S3Entity{
		Bucket: events.S3Bucket{Name: bucket},
		Object: events.S3Object{Key: key},
	}}
}

func TestHandleUploadStartsDetection(t *testing.T) {
	ocr := &mockTextract{
		StartFn: func(ctx context.Context, params *textract.StartDocumentTextDetectionInput, _ ...func(*textract.Options)) (*textract.StartDocumentTextDetectionOutput, error) {
			require.NotNil(t, params.DocumentLocation)
			require.NotNil(t, params.DocumentLocation.S3Object)
			assert.Equal(t, testBucket, aws.ToString(params.DocumentLocation.S3Object.Bucket))
			assert.Equal(t, "projects/p-100/documents/file-1/requirements v2.pdf", aws.ToString(params.DocumentLocation.S3Object.Name))
			require.NotNil(t, params.NotificationChannel)
			assert.Equal(t, "arn:aws:sns:us-east-1:123456789012:textract-complete", aws.ToString(params.NotificationChannel.SNSTopicArn))
			assert.Equal(t, "arn:aws:iam::123456789012:role/textract-publish", aws.ToString(params.NotificationChannel.RoleArn))
			return &textract.StartDocumentTextDetectionOutput{JobId: aws.String("job-42")}, nil
		},
	}
	var update *dynamodb.UpdateItemInput
	client := &dynstore.MockClient{
		UpdateItemFn: func(ctx context.Context, params *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
			update = params
			return &dynamodb.UpdateItemOutput{}, nil
		},
	}
	p := testPipeline(client, &mockS3{}, ocr, &mockSQS{})

	err := p.HandleUpload(context.Background(), events.S3Event{Records: []events.S3EventRecord{
		s3Record(testBucket, "projects/p-100/documents/file-1/requirements+v2.pdf"),
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, ocr.startCalls)

	require.NotNil(t, update, "the status item must advance to processing")
	assert.Equal(t, &types.AttributeValueMemberS{Value: "PROJECT#p-100"}, update.Key["PK"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "DOCUMENT#file-1"}, update.Key["SK"])
	values := make([]types.AttributeValue, 0, len(update.ExpressionAttributeValues))
	for _, v := range update.ExpressionAttributeValues {
		values = append(values, v)
	}
	assert.Contains(t, values, &types.AttributeValueMemberS{Value: StatusProcessing})
	assert.Contains(t, values, &types.AttributeValueMemberS{Value: "job-42"})
}

func TestHandleUploadSkipsForeignObjects(t *testing.T) {
	ocr := &mockTextract{}
	client := &dynstore.MockClient{}
	p := testPipeline(client, &mockS3{}, ocr, &mockSQS{})

	err := p.HandleUpload(context.Background(), events.S3Event{Records: []events.S3EventRecord{
		s3Record(testBucket, "extracted/p-100/file-1.txt"),
		s3Record(testBucket, "access-logs/2025-11-03.gz"),
	}})
	require.NoError(t, err)
	assert.Zero(t, ocr.startCalls, "non-document objects must not start jobs")
	assert.Zero(t, client.CallCount("UpdateItem"))
}

func TestHandleUploadKeepsGoingAfterFailures(t *testing.T) {
	ocr := &mockTextract{
		StartFn: func(ctx context.Context, params *textract.StartDocumentTextDetectionInput, _ ...func(*textract.Options)) (*textract.StartDocumentTextDetectionOutput, error) {
			if strings.Contains(aws.ToString(params.DocumentLocation.S3Object.Name), "file-bad") {
				return nil, errors.New("unsupported document format")
			}
			return &textract.StartDocumentTextDetectionOutput{JobId: aws.String("job-43")}, nil
		},
	}
	client := &dynstore.MockClient{}
	p := testPipeline(client, &mockS3{}, ocr, &mockSQS{})

	err := p.HandleUpload(context.Background(), events.S3Event{Records: []events.S3EventRecord{
		s3Record(testBucket, "projects/p-100/documents/file-bad/srs.pdf"),
		s3Record(testBucket, "projects/p-100/documents/file-good/srs.pdf"),
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file-bad")
	assert.Equal(t, 2, ocr.startCalls, "one bad record must not stop the batch")
	assert.Equal(t, 1, client.CallCount("UpdateItem"))
}
