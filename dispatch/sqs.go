package dispatch

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// SQSDispatcher publishes envelopes to an AWS SQS queue. SQS's own
// at-least-once redelivery and visibility timeout provide the delivery
// guarantee the engine assumes of its dispatcher.
type SQSDispatcher struct {
	client   *sqs.Client
	queueURL string
}

// SQSOptions configures the queue client: region and an optional static
// credential override for local/dev environments (e.g. LocalStack).
type SQSOptions struct {
	Region          string
	QueueURL        string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
}

// NewSQSDispatcher builds a dispatcher from opts on top of
// awsconfig.LoadDefaultConfig, so ambient AWS configuration (env,
// profile, instance role) applies unless explicitly overridden.
func NewSQSDispatcher(ctx context.Context, opts SQSOptions) (*SQSDispatcher, error) {
	var configOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		configOpts = append(configOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" {
		configOpts = append(configOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, fmt.Errorf("sqs dispatcher: load aws config: %w", err)
	}

	client := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})

	return &SQSDispatcher{client: client, queueURL: opts.QueueURL}, nil
}

func (d *SQSDispatcher) Dispatch(ctx context.Context, rawPayload []byte, _ any) error {
	body := string(rawPayload)
	_, err := d.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(d.queueURL),
		MessageBody: aws.String(body),
	})
	if err != nil {
		return fmt.Errorf("sqs dispatch: %w", err)
	}
	return nil
}

var _ Dispatcher = (*SQSDispatcher)(nil)
