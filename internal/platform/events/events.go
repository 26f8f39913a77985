// Package events delivers leave lifecycle events to the notification queue.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"hrleave/internal/domain/leave"
	"hrleave/internal/platform/telemetry"
)

const EventTypeAttribute = "EventType"

type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

type SQSPublisher struct {
	client   SQSSender
	queueURL string
}

func NewSQSPublisher(client SQSSender, queueURL string) *SQSPublisher {
	return &SQSPublisher{client: client, queueURL: queueURL}
}

func (p *SQSPublisher) Publish(ctx context.Context, event leave.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	attrs := map[string]types.MessageAttributeValue{
		EventTypeAttribute: {
			DataType:    aws.String("String"),
			StringValue: aws.String(string(event.Type)),
		},
	}
	telemetry.InjectSQS(ctx, attrs)

	if _, err := p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:          aws.String(p.queueURL),
		MessageBody:       aws.String(string(body)),
		MessageAttributes: attrs,
	}); err != nil {
		return fmt.Errorf("send event to queue: %w", err)
	}
	return nil
}

// LogPublisher is used when no queue is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, event leave.Event) error {
	slog.Info("leave event", "type", event.Type, "request_id", event.RequestID, "employee_id", event.EmployeeID, "status", event.Status)
	return nil
}

type PublishRecorder interface {
	RecordPublish(err error)
}

// Instrumented counts publish outcomes around another publisher.
type Instrumented struct {
	Next     leave.Publisher
	Recorder PublishRecorder
}

func (i Instrumented) Publish(ctx context.Context, event leave.Event) error {
	err := i.Next.Publish(ctx, event)
	if i.Recorder != nil {
		i.Recorder.RecordPublish(err)
	}
	return err
}
