package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/textract"

	"github.com/medassureai/artifact-gateway/dynstore"
	"github.com/medassureai/artifact-gateway/ingest"
	"github.com/medassureai/artifact-gateway/pkg/awsconf"
	"github.com/medassureai/artifact-gateway/pkg/config"
	"github.com/medassureai/artifact-gateway/pkg/logger"
)

func main() {
	ctx := context.Background()

	var cfg config.CompletionConfig
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

	pipe := ingest.New(docs, s3.NewFromConfig(awsCfg), textract.NewFromConfig(awsCfg),
		sqs.NewFromConfig(awsCfg), ingest.Config{
			Bucket:         cfg.Bucket,
			ReviewQueueURL: cfg.ReviewQueueURL,
		}, ingest.WithPolicy(cfg.Retry.Policy()))

	lambda.Start(func(ctx context.Context, event events.SNSEvent) error {
		return pipe.HandleCompletion(lg.WithContext(ctx), event)
	})
}
