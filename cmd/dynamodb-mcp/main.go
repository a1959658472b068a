package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/medassureai/artifact-gateway/artifacts"
	"github.com/medassureai/artifact-gateway/dynstore"
	"github.com/medassureai/artifact-gateway/pkg/awsconf"
	"github.com/medassureai/artifact-gateway/pkg/config"
	"github.com/medassureai/artifact-gateway/pkg/logger"
	"github.com/medassureai/artifact-gateway/pkg/observability"
	"github.com/medassureai/artifact-gateway/pkg/transport"
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

	var cfg config.DynamoServiceConfig
	if err := config.Load(&cfg); err != nil {
		return err
	}

	lg := logger.Configure(cfg.Logging)
	metrics, err := observability.Setup(cfg.Metrics)
	if err != nil {
		return err
	}

	client, err := awsconf.NewDynamoClient(ctx, cfg.Dynamo.Region, cfg.Dynamo.EndpointURL)
	if err != nil {
		return err
	}
	docs := dynstore.New(client, dynstore.TableConfig{
		TableName:    cfg.Dynamo.TableName,
		PartitionKey: cfg.Dynamo.PartitionKey,
		SortKey:      cfg.Dynamo.SortKey,
	}, dynstore.WithPolicy(cfg.Retry.Policy()), dynstore.WithMetrics(metrics))
	arts := artifacts.New(docs)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lg.Info().Str("table", cfg.Dynamo.TableName).Msg("starting dynamodb-mcp")
	srv := transport.NewServer(fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		transport.DynamoRoutes(docs, arts, lg, metrics), lg)
	return srv.Run(ctx)
}
