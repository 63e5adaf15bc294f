package store

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// NewAWSConfig loads the default AWS configuration. A non-empty localEndpoint
// means a local emulator, which gets a fixed region and dummy credentials.
func NewAWSConfig(ctx context.Context, localEndpoint string) (aws.Config, error) {
	if localEndpoint == "" {
		return config.LoadDefaultConfig(ctx)
	}

	log.Debug().Str("endpoint", localEndpoint).Msg("Using local AWS endpoint")
	return config.LoadDefaultConfig(ctx,
		config.WithRegion("local"),
		config.WithClientLogMode(aws.LogRetries),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("local", "local", "")),
	)
}

// NewDynamoClient creates a DynamoDB client, pointed at endpoint when it is set
func NewDynamoClient(ctx context.Context, endpoint string) (*dynamodb.Client, error) {
	cfg, err := NewAWSConfig(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	if endpoint == "" {
		return dynamodb.NewFromConfig(cfg), nil
	}
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	}), nil
}

func NewS3Client(cfg aws.Config) *s3.Client {
	return s3.NewFromConfig(cfg)
}
