// Package worker consumes leave events from SQS.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"hrleave/internal/platform/telemetry"
)

type SQSClient interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
	ChangeMessageVisibility(ctx context.Context, params *sqs.ChangeMessageVisibilityInput, optFns ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error)
}

// Processor handles one message. shouldRetry with a non-nil error makes the
// message visible again after retryDelay seconds; a non-retryable error
// leaves it for the queue's redrive policy.
type Processor interface {
	Process(ctx context.Context, msg types.Message) (shouldRetry bool, retryDelay int32, err error)
}

type Worker struct {
	client      SQSClient
	queueURL    string
	processor   Processor
	Concurrency int
	WaitSeconds int32
	ErrorPause  time.Duration
}

func New(client SQSClient, queueURL string, proc Processor) *Worker {
	return &Worker{
		client:      client,
		queueURL:    queueURL,
		processor:   proc,
		Concurrency: 10,
		WaitSeconds: 20,
		ErrorPause:  time.Second,
	}
}

// Start polls until ctx is cancelled and returns once in-flight messages
// are done.
func (w *Worker) Start(ctx context.Context) {
	slog.Info("sqs worker started", "queue", w.queueURL, "concurrency", w.Concurrency)
	messages := make(chan types.Message, w.Concurrency)

	var wg sync.WaitGroup
	for i := 0; i < w.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for msg := range messages {
				w.handle(ctx, msg)
			}
		}()
	}

	w.poll(ctx, messages)
	wg.Wait()
	slog.Info("sqs worker stopped")
}

func (w *Worker) poll(ctx context.Context, messages chan<- types.Message) {
	defer close(messages)
	for {
		if ctx.Err() != nil {
			return
		}
		out, err := w.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:                    aws.String(w.queueURL),
			MaxNumberOfMessages:         int32(min(w.Concurrency, 10)),
			WaitTimeSeconds:             w.WaitSeconds,
			MessageAttributeNames:       []string{"All"},
			MessageSystemAttributeNames: []types.MessageSystemAttributeName{types.MessageSystemAttributeNameApproximateReceiveCount},
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("sqs receive failed", "err", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.ErrorPause):
			}
			continue
		}
		for _, msg := range out.Messages {
			messages <- msg
		}
	}
}

func (w *Worker) handle(ctx context.Context, msg types.Message) {
	ctx, span := telemetry.StartSQSSpan(ctx, msg)
	defer span.End()

	shouldRetry, retryDelay, err := w.processor.Process(ctx, msg)
	// Acks must outlive cancellation of ctx.
	ackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	switch {
	case err == nil:
		if _, delErr := w.client.DeleteMessage(ackCtx, &sqs.DeleteMessageInput{
			QueueUrl:      aws.String(w.queueURL),
			ReceiptHandle: msg.ReceiptHandle,
		}); delErr != nil {
			slog.Warn("sqs delete failed", "err", delErr, "message_id", aws.ToString(msg.MessageId))
		}
	case shouldRetry:
		span.RecordError(err)
		slog.Warn("message processing failed, will retry", "err", err, "retry_delay", retryDelay, "message_id", aws.ToString(msg.MessageId))
		if _, visErr := w.client.ChangeMessageVisibility(ackCtx, &sqs.ChangeMessageVisibilityInput{
			QueueUrl:          aws.String(w.queueURL),
			ReceiptHandle:     msg.ReceiptHandle,
			VisibilityTimeout: retryDelay,
		}); visErr != nil {
			slog.Warn("sqs visibility change failed", "err", visErr)
		}
	default:
		span.RecordError(err)
		slog.Error("message processing failed permanently", "err", err, "message_id", aws.ToString(msg.MessageId))
	}
}
