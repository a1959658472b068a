package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/joho/godotenv"

	"github.com/medassureai/artifact-gateway/jirastore"
	"github.com/medassureai/artifact-gateway/pkg/awsconf"
	"github.com/medassureai/artifact-gateway/pkg/config"
	"github.com/medassureai/artifact-gateway/pkg/credentials"
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

	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()
	if *configFile != "" {
		if err := config.ApplyFile(*configFile); err != nil {
			return err
		}
	}

	var cfg config.JiraServiceConfig
	if err := config.Load(&cfg); err != nil {
		return err
	}

	lg := logger.Configure(cfg.Logging)
	metrics, err := observability.Setup(cfg.Metrics)
	if err != nil {
		return err
	}

	creds, err := resolveCredentials(ctx, cfg)
	if err != nil {
		return err
	}

	client := jirastore.NewClient(cfg.Jira.BaseURL, creds.Email, creds.APIToken,
		jirastore.WithTimeout(cfg.Jira.Timeout))
	store := jirastore.New(client, cfg.Jira.BaseURL,
		jirastore.WithPolicy(cfg.Retry.Policy()),
		jirastore.WithMetrics(metrics),
		jirastore.WithPageSize(cfg.Jira.PageSize))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lg.Info().Str("jira_url", cfg.Jira.BaseURL).Msg("starting jira-mcp")
	srv := transport.NewServer(fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		transport.JiraRoutes(store, lg, metrics), lg)
	return srv.Run(ctx)
}

// resolveCredentials goes to AWS only when no literal token is configured.
func resolveCredentials(ctx context.Context, cfg config.JiraServiceConfig) (credentials.Credentials, error) {
	if cfg.Jira.APIToken != "" {
		return credentials.Credentials{Email: cfg.Jira.Email, APIToken: cfg.Jira.APIToken}, nil
	}
	awsCfg, err := awsconf.Load(ctx, cfg.Region)
	if err != nil {
		return credentials.Credentials{}, err
	}
	resolver := credentials.NewResolver(
		secretsmanager.NewFromConfig(awsCfg),
		ssm.NewFromConfig(awsCfg))
	return resolver.Resolve(ctx, cfg.Jira)
}
