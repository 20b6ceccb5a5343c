package cloud

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// ErrQueueNotConfigured is returned by Send when no queue URL is set
var ErrQueueNotConfigured = errors.New("sqs queue is not configured")

// SQSAPI is the subset of *sqs.Client used by Queue
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Queue sends messages to one SQS queue
type Queue struct {
	client   SQSAPI
	queueURL string
}

// NewQueue creates a queue sender for queueURL
func NewQueue(client SQSAPI, queueURL string) *Queue {
	return &Queue{client: client, queueURL: queueURL}
}

// Send enqueues body and returns the message id
func (q *Queue) Send(ctx context.Context, body string) (string, error) {
	if q.queueURL == "" {
		return "", ErrQueueNotConfigured
	}

	out, err := q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(body),
	})
	if err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}

	return aws.ToString(out.MessageId), nil
}
