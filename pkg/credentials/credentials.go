package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/medassureai/artifact-gateway/pkg/config"
)

// SecretsAPI is the slice of the Secrets Manager client used here.
type SecretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SSMAPI is the slice of the SSM client used here.
type SSMAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Credentials carry the ticket-store identity. Values must never be written
// to logs or error text; errors name the source, not its contents.
type Credentials struct {
	Email    string
	APIToken string
}

// Resolver loads credentials from the first configured source: the literal
// env token, then a Secrets Manager JSON secret, then an SSM SecureString.
// Resolution happens once at process start.
type Resolver struct {
	secrets SecretsAPI
	ssm     SSMAPI
}

func NewResolver(secrets SecretsAPI, ssmClient SSMAPI) *Resolver {
	return &Resolver{secrets: secrets, ssm: ssmClient}
}

func (r *Resolver) Resolve(ctx context.Context, cfg config.JiraConfig) (Credentials, error) {
	switch {
	case cfg.APIToken != "":
		return Credentials{Email: cfg.Email, APIToken: cfg.APIToken}, nil
	case cfg.CredentialsSecretID != "":
		return r.fromSecret(ctx, cfg)
	case cfg.TokenParameter != "":
		return r.fromParameter(ctx, cfg)
	}
	return Credentials{}, errors.New("credentials: no credential source configured")
}

// fromSecret expects a JSON secret of the shape {"email": ..., "api_token": ...}.
// An explicit JIRA_EMAIL overrides the email stored in the secret.
func (r *Resolver) fromSecret(ctx context.Context, cfg config.JiraConfig) (Credentials, error) {
	if r.secrets == nil {
		return Credentials{}, errors.New("credentials: no Secrets Manager client configured")
	}
	out, err := r.secrets.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(cfg.CredentialsSecretID),
	})
	if err != nil {
		return Credentials{}, fmt.Errorf("credentials: reading secret %s: %w", cfg.CredentialsSecretID, err)
	}
	if out.SecretString == nil {
		return Credentials{}, fmt.Errorf("credentials: secret %s has no string payload", cfg.CredentialsSecretID)
	}

	var payload struct {
		Email    string `json:"email"`
		APIToken string `json:"api_token"`
	}
	if err := json.Unmarshal([]byte(*out.SecretString), &payload); err != nil {
		return Credentials{}, fmt.Errorf("credentials: secret %s is not the expected JSON shape", cfg.CredentialsSecretID)
	}
	if payload.APIToken == "" {
		return Credentials{}, fmt.Errorf("credentials: secret %s carries no api_token", cfg.CredentialsSecretID)
	}

	email := payload.Email
	if cfg.Email != "" {
		email = cfg.Email
	}
	return Credentials{Email: email, APIToken: payload.APIToken}, nil
}

func (r *Resolver) fromParameter(ctx context.Context, cfg config.JiraConfig) (Credentials, error) {
	if r.ssm == nil {
		return Credentials{}, errors.New("credentials: no SSM client configured")
	}
	out, err := r.ssm.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(cfg.TokenParameter),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return Credentials{}, fmt.Errorf("credentials: reading parameter %s: %w", cfg.TokenParameter, err)
	}
	if out.Parameter == nil || aws.ToString(out.Parameter.Value) == "" {
		return Credentials{}, fmt.Errorf("credentials: parameter %s is empty", cfg.TokenParameter)
	}
	return Credentials{Email: cfg.Email, APIToken: aws.ToString(out.Parameter.Value)}, nil
}
