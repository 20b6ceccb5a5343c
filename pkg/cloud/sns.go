package cloud

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// ErrTopicNotConfigured is returned by Publish when no topic ARN is set
var ErrTopicNotConfigured = errors.New("sns topic is not configured")

// SNSAPI is the subset of *sns.Client used by Notifier
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
	ListTopics(ctx context.Context, params *sns.ListTopicsInput, optFns ...func(*sns.Options)) (*sns.ListTopicsOutput, error)
}

// Notifier publishes on one SNS topic and sends direct SMS
type Notifier struct {
	client   SNSAPI
	topicARN string
}

// NewNotifier creates a notifier for topicARN. SMS works without a topic.
func NewNotifier(client SNSAPI, topicARN string) *Notifier {
	return &Notifier{client: client, topicARN: topicARN}
}

// Publish publishes message with subject on the topic
func (n *Notifier) Publish(ctx context.Context, subject, message string) (string, error) {
	if n.topicARN == "" {
		return "", ErrTopicNotConfigured
	}

	out, err := n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Subject:  aws.String(truncateSubject(subject)),
		Message:  aws.String(message),
	})
	if err != nil {
		return "", fmt.Errorf("failed to publish to %s: %w", n.topicARN, err)
	}

	return aws.ToString(out.MessageId), nil
}

// SendSMS sends message directly to an E.164 phone number as a transactional SMS
func (n *Notifier) SendSMS(ctx context.Context, phone, message string) (string, error) {
	out, err := n.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(phone),
		Message:     aws.String(message),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"AWS.SNS.SMS.SMSType": {
				DataType:    aws.String("String"),
				StringValue: aws.String("Transactional"),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to send sms: %w", err)
	}

	return aws.ToString(out.MessageId), nil
}

// Ping checks that SNS is reachable
func (n *Notifier) Ping(ctx context.Context) error {
	if _, err := n.client.ListTopics(ctx, &sns.ListTopicsInput{}); err != nil {
		return fmt.Errorf("sns unreachable: %w", err)
	}
	return nil
}

// SNS rejects subjects longer than 100 characters
const maxSubjectLen = 100

func truncateSubject(subject string) string {
	runes := []rune(subject)
	if len(runes) <= maxSubjectLen {
		return subject
	}
	return string(runes[:maxSubjectLen])
}
