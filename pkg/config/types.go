package config

import (
	"time"

	"github.com/medassureai/artifact-gateway/gateway"
)

// LoggingConfig controls zerolog output.
type LoggingConfig struct {
	Enabled bool   `env:"LOG_ENABLED" envDefault:"true"`
	Level   string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=trace debug info warn error"`
	Format  string `env:"LOG_FORMAT" envDefault:"json" validate:"oneof=json console"`
}

// RetryConfig is the gateway retry budget. BaseDelay and MaxDelay accept Go
// duration strings ("1s", "250ms").
type RetryConfig struct {
	MaxRetries    int           `env:"MAX_RETRIES" envDefault:"3" validate:"gte=0"`
	BackoffFactor float64       `env:"RETRY_BACKOFF_FACTOR" envDefault:"2.0" validate:"gte=1"`
	BaseDelay     time.Duration `env:"RETRY_BASE_DELAY" envDefault:"1s"`
	MaxDelay      time.Duration `env:"RETRY_MAX_DELAY" envDefault:"60s"`
}

// Policy converts the configuration into a gateway backoff policy.
func (r RetryConfig) Policy() gateway.Policy {
	return gateway.Policy{
		MaxRetries:    r.MaxRetries,
		BackoffFactor: r.BackoffFactor,
		BaseDelay:     r.BaseDelay,
		MaxDelay:      r.MaxDelay,
	}
}

func (r RetryConfig) validateSemantics() error {
	if r.MaxDelay > 0 && r.MaxDelay < r.BaseDelay {
		return &SemanticError{Msg: "RETRY_MAX_DELAY must not be lower than RETRY_BASE_DELAY"}
	}
	return nil
}

// MetricsConfig controls the Datadog statsd provider.
type MetricsConfig struct {
	Enabled   bool   `env:"METRICS_ENABLED" envDefault:"false"`
	Addr      string `env:"DD_AGENT_ADDR" envDefault:"127.0.0.1:8125" validate:"required_if=Enabled true"`
	Namespace string `env:"METRICS_NAMESPACE" envDefault:"artifact_gateway"`
}

// DynamoConfig locates the artifacts table. EndpointURL switches the client
// to a local endpoint with static credentials.
type DynamoConfig struct {
	Region       string `env:"AWS_REGION" envDefault:"us-east-1" validate:"required"`
	TableName    string `env:"DYNAMODB_TABLE_NAME" envDefault:"MedAssureAI_Artifacts" validate:"required"`
	EndpointURL  string `env:"DYNAMODB_ENDPOINT_URL" validate:"omitempty,url"`
	PartitionKey string `env:"DYNAMODB_PK_ATTRIBUTE" envDefault:"PK" validate:"required"`
	SortKey      string `env:"DYNAMODB_SK_ATTRIBUTE" envDefault:"SK"`
}

// JiraConfig locates the ticket store. One credential source must be
// configured: a literal token, a Secrets Manager secret, or an SSM parameter.
type JiraConfig struct {
	BaseURL             string        `env:"JIRA_URL" validate:"required,url"`
	Email               string        `env:"JIRA_EMAIL" validate:"omitempty,email"`
	APIToken            string        `env:"JIRA_API_TOKEN"`
	CredentialsSecretID string        `env:"JIRA_CREDENTIALS_SECRET_ID"`
	TokenParameter      string        `env:"JIRA_TOKEN_SSM_PARAM"`
	PageSize            int           `env:"DEFAULT_PAGE_SIZE" envDefault:"50" validate:"gt=0,lte=100"`
	Timeout             time.Duration `env:"JIRA_HTTP_TIMEOUT" envDefault:"30s"`
}

func (j JiraConfig) validateSemantics() error {
	if j.APIToken == "" && j.CredentialsSecretID == "" && j.TokenParameter == "" {
		return &SemanticError{Msg: "one of JIRA_API_TOKEN, JIRA_CREDENTIALS_SECRET_ID or JIRA_TOKEN_SSM_PARAM must be set"}
	}
	return nil
}

// RedisConfig locates the session store.
type RedisConfig struct {
	Addr       string        `env:"REDIS_ADDR" envDefault:"localhost:6379" validate:"required,hostname_port"`
	Password   string        `env:"REDIS_PASSWORD"`
	DB         int           `env:"REDIS_DB" envDefault:"0" validate:"gte=0"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"24h"`
}

// UploadConfig locates the document bucket for the ingest API.
type UploadConfig struct {
	Bucket string `env:"DOCUMENTS_BUCKET" validate:"required"`
}

// JiraServiceConfig is the full configuration of the jira-mcp service.
type JiraServiceConfig struct {
	Host    string `env:"HOST" envDefault:"0.0.0.0"`
	Port    int    `env:"PORT" envDefault:"8001" validate:"gt=0,lte=65535"`
	Region  string `env:"AWS_REGION" envDefault:"us-east-1"`
	Logging LoggingConfig
	Metrics MetricsConfig
	Retry   RetryConfig
	Jira    JiraConfig
}

func (c *JiraServiceConfig) validateSemantics() error {
	if err := c.Retry.validateSemantics(); err != nil {
		return err
	}
	return c.Jira.validateSemantics()
}

// DynamoServiceConfig is the full configuration of the dynamodb-mcp service.
type DynamoServiceConfig struct {
	Host    string `env:"HOST" envDefault:"0.0.0.0"`
	Port    int    `env:"PORT" envDefault:"8002" validate:"gt=0,lte=65535"`
	Logging LoggingConfig
	Metrics MetricsConfig
	Retry   RetryConfig
	Dynamo  DynamoConfig
}

func (c *DynamoServiceConfig) validateSemantics() error {
	return c.Retry.validateSemantics()
}

// IngestServiceConfig is the full configuration of the ingest-api service.
type IngestServiceConfig struct {
	Host    string `env:"HOST" envDefault:"0.0.0.0"`
	Port    int    `env:"PORT" envDefault:"8003" validate:"gt=0,lte=65535"`
	Logging LoggingConfig
	Metrics MetricsConfig
	Retry   RetryConfig
	Dynamo  DynamoConfig
	Redis   RedisConfig
	Upload  UploadConfig
}

func (c *IngestServiceConfig) validateSemantics() error {
	return c.Retry.validateSemantics()
}

// TriggerConfig configures the textract-trigger Lambda.
type TriggerConfig struct {
	Logging     LoggingConfig
	Retry       RetryConfig
	Dynamo      DynamoConfig
	SNSTopicARN string `env:"TEXTRACT_SNS_TOPIC_ARN" validate:"required"`
	RoleARN     string `env:"TEXTRACT_ROLE_ARN" validate:"required"`
}

func (c *TriggerConfig) validateSemantics() error {
	return c.Retry.validateSemantics()
}

// CompletionConfig configures the textract-completion Lambda.
type CompletionConfig struct {
	Logging        LoggingConfig
	Retry          RetryConfig
	Dynamo         DynamoConfig
	Bucket         string `env:"DOCUMENTS_BUCKET" validate:"required"`
	ReviewQueueURL string `env:"REVIEW_QUEUE_URL" validate:"required,url"`
}

func (c *CompletionConfig) validateSemantics() error {
	return c.Retry.validateSemantics()
}
