package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/textract"

	"github.com/medassureai/artifact-gateway/dynstore"
	"github.com/medassureai/artifact-gateway/ingest"
	"github.com/medassureai/artifact-gateway/pkg/awsconf"
	"github.com/medassureai/artifact-gateway/pkg/config"
	"github.com/medassureai/artifact-gateway/pkg/logger"
)

func main() {
	ctx := context.Background()

	var cfg config.TriggerConfig
	if err := config.Load(&cfg); err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	lg := logger.Configure(cfg.Logging)

	dynamo, err := awsconf.NewDynamoClient(ctx, cfg.Dynamo.Region, cfg.Dynamo.EndpointURL)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	awsCfg, err := awsconf.Load(ctx, cfg.Dynamo.Region)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	docs := dynstore.New(dynamo, dynstore.TableConfig{
		TableName:    cfg.Dynamo.TableName,
		PartitionKey: cfg.Dynamo.PartitionKey,
		SortKey:      cfg.Dynamo.SortKey,
	}, dynstore.WithPolicy(cfg.Retry.Policy()))

	// This stage only starts detection jobs; S3 and SQS belong to the
	// upload API and the completion handler.
	pipe := ingest.New(docs, nil, textract.NewFromConfig(awsCfg), nil, ingest.Config{
		SNSTopicARN: cfg.SNSTopicARN,
		RoleARN:     cfg.RoleARN,
	}, ingest.WithPolicy(cfg.Retry.Policy()))

	lambda.Start(func(ctx context.Context, event events.S3Event) error {
		return pipe.HandleUpload(lg.WithContext(ctx), event)
	})
}
