package events

import (
	"context"

	awsevents "github.com/aws/aws-lambda-go/events"
	"github.com/prperemyshlev/platform-services/internal/lambdaio"
)

// HandleSQS is the Lambda entry point for an SQS-triggered batch
func (d *Dispatcher) HandleSQS(ctx context.Context, event awsevents.SQSEvent) (lambdaio.Response, error) {
	batch := make([]Message, 0, len(event.Records))
	for _, record := range event.Records {
		batch = append(batch, Message{ID: record.MessageId, Body: record.Body})
	}

	return lambdaio.OK(d.Dispatch(ctx, batch))
}
