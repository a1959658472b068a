package awsconf

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

var (
	sharedCfg  aws.Config
	sharedOnce sync.Once
	sharedErr  error
)

// Load resolves the AWS configuration (env vars, profile, IAM role) once per
// process. The first caller's region wins.
func Load(ctx context.Context, region string) (aws.Config, error) {
	sharedOnce.Do(func() {
		opts := []func(*awsconfig.LoadOptions) error{}
		if region != "" {
			opts = append(opts, awsconfig.WithRegion(region))
		}
		sharedCfg, sharedErr = awsconfig.LoadDefaultConfig(ctx, opts...)
	})
	return sharedCfg, sharedErr
}

// NewDynamoClient builds the DynamoDB client. A non-empty endpoint switches
// to a local instance (DynamoDB Local, LocalStack) with static credentials.
func NewDynamoClient(ctx context.Context, region, endpoint string) (*dynamodb.Client, error) {
	if endpoint != "" {
		cfg := aws.Config{
			Region:      region,
			Credentials: credentials.NewStaticCredentialsProvider("local", "local", ""),
		}
		return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		}), nil
	}

	cfg, err := Load(ctx, region)
	if err != nil {
		return nil, err
	}
	return dynamodb.NewFromConfig(cfg), nil
}
