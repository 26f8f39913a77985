package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"hrleave/internal/domain/leave"
)

// MaxAttempts bounds redelivery of a failing notification.
const MaxAttempts = 5

type Notifier interface {
	Notify(ctx context.Context, event leave.Event) error
}

type NotifyProcessor struct {
	Notifier Notifier
}

func (p NotifyProcessor) Process(ctx context.Context, msg types.Message) (bool, int32, error) {
	var event leave.Event
	if err := json.Unmarshal([]byte(aws.ToString(msg.Body)), &event); err != nil {
		return false, 0, fmt.Errorf("decode leave event: %w", err)
	}
	if event.Type == "" || event.RequestID == "" {
		return false, 0, fmt.Errorf("leave event missing type or request id")
	}

	if err := p.Notifier.Notify(ctx, event); err != nil {
		attempt := receiveCount(msg)
		if attempt >= MaxAttempts {
			return false, 0, fmt.Errorf("giving up after %d attempts: %w", attempt, err)
		}
		return true, Backoff(attempt), err
	}
	return false, 0, nil
}

func receiveCount(msg types.Message) int {
	n, err := strconv.Atoi(msg.Attributes[string(types.MessageSystemAttributeNameApproximateReceiveCount)])
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// Backoff grows exponentially from 20s and is capped at one hour.
func Backoff(attempt int) int32 {
	delay := math.Pow(2, float64(attempt)) * 10
	if delay > 3600 {
		return 3600
	}
	return int32(delay)
}
