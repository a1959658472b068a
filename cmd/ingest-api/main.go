package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/medassureai/artifact-gateway/dynstore"
	"github.com/medassureai/artifact-gateway/ingest"
	"github.com/medassureai/artifact-gateway/pkg/awsconf"
	"github.com/medassureai/artifact-gateway/pkg/config"
	"github.com/medassureai/artifact-gateway/pkg/logger"
	"github.com/medassureai/artifact-gateway/pkg/observability"
	"github.com/medassureai/artifact-gateway/pkg/transport"
	"github.com/medassureai/artifact-gateway/sessions"
)

func main() {
	if err := run(context.Background()); err != nil {
		log.Fatalf("FATAL: %v", err)
	}
}

func run(ctx context.Context) error {
	configFile := flag.String("config", "", "optional YAML file of configuration overrides")
	flag.Parse()

	_ = godotenv.Load()
	if *configFile != "" {
		if err := config.ApplyFile(*configFile); err != nil {
			return err
		}
	}

	var cfg config.IngestServiceConfig
	if err := config.Load(&cfg); err != nil {
		return err
	}

	lg := logger.Configure(cfg.Logging)
	metrics, err := observability.Setup(cfg.Metrics)
	if err != nil {
		return err
	}

	dynamo, err := awsconf.NewDynamoClient(ctx, cfg.Dynamo.Region, cfg.Dynamo.EndpointURL)
	if err != nil {
		return err
	}
	awsCfg, err := awsconf.Load(ctx, cfg.Dynamo.Region)
	if err != nil {
		return err
	}

	docs := dynstore.New(dynamo, dynstore.TableConfig{
		TableName:    cfg.Dynamo.TableName,
		PartitionKey: cfg.Dynamo.PartitionKey,
		SortKey:      cfg.Dynamo.SortKey,
	}, dynstore.WithPolicy(cfg.Retry.Policy()), dynstore.WithMetrics(metrics))

	// Textract and SQS stay nil here: the OCR stages run in the Lambda
	// handlers, this service only uploads and reads status.
	pipe := ingest.New(docs, s3.NewFromConfig(awsCfg), nil, nil,
		ingest.Config{Bucket: cfg.Upload.Bucket},
		ingest.WithPolicy(cfg.Retry.Policy()),
		ingest.WithMetrics(metrics))

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	sess := sessions.New(rdb, cfg.Redis.SessionTTL,
		sessions.WithPolicy(cfg.Retry.Policy()),
		sessions.WithMetrics(metrics))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lg.Info().Str("bucket", cfg.Upload.Bucket).Msg("starting ingest-api")
	srv := transport.NewServer(fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		transport.IngestRoutes(pipe, sess, lg, metrics), lg)
	return srv.Run(ctx)
}
