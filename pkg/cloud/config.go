// Package cloud holds the AWS-backed implementations of the outbound ports.
// Each adapter wraps the narrow subset of an SDK client it calls so tests can
// substitute a fake.
package cloud

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// Options selects the region, credentials and endpoint of every client
type Options struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// Clients bundles the SDK clients built from one aws.Config
type Clients struct {
	SNS        *sns.Client
	SQS        *sqs.Client
	CloudWatch *cloudwatch.Client
	DynamoDB   *dynamodb.Client
	S3         *s3.Client
}

// LoadConfig resolves an aws.Config. Static credentials are used when both
// keys are set; otherwise the default provider chain applies. A non-empty
// Endpoint routes every service to it, as LocalStack expects.
func LoadConfig(ctx context.Context, opts Options) (aws.Config, error) {
	loaders := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loaders = append(loaders, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if opts.Endpoint != "" {
		cfg.BaseEndpoint = aws.String(opts.Endpoint)
	}

	return cfg, nil
}

// NewClients builds every SDK client from cfg
func NewClients(cfg aws.Config) *Clients {
	return &Clients{
		SNS:        sns.NewFromConfig(cfg),
		SQS:        sqs.NewFromConfig(cfg),
		CloudWatch: cloudwatch.NewFromConfig(cfg),
		DynamoDB:   dynamodb.NewFromConfig(cfg),
		S3: s3.NewFromConfig(cfg, func(o *s3.Options) {
			// emulators serve buckets by path, not by virtual host
			o.UsePathStyle = cfg.BaseEndpoint != nil
		}),
	}
}
