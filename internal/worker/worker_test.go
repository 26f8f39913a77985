package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"hrleave/internal/domain/leave"
)

type fakeSQS struct {
	mu         sync.Mutex
	pending    []types.Message
	deleted    []string
	visibility map[string]int32
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, _ *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	f.mu.Lock()
	if len(f.pending) > 0 {
		msgs := f.pending
		f.pending = nil
		f.mu.Unlock()
		return &sqs.ReceiveMessageOutput{Messages: msgs}, nil
	}
	f.mu.Unlock()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(10 * time.Millisecond):
		return &sqs.ReceiveMessageOutput{}, nil
	}
}

func (f *fakeSQS) DeleteMessage(_ context.Context, params *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func (f *fakeSQS) ChangeMessageVisibility(_ context.Context, params *sqs.ChangeMessageVisibilityInput, _ ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visibility[aws.ToString(params.ReceiptHandle)] = params.VisibilityTimeout
	return &sqs.ChangeMessageVisibilityOutput{}, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	seen []string
	fail map[string]error
}

func (n *fakeNotifier) Notify(_ context.Context, event leave.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.seen = append(n.seen, event.RequestID)
	return n.fail[event.RequestID]
}

func message(t *testing.T, handle string, event any, receives string) types.Message {
	t.Helper()
	body, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return types.Message{
		MessageId:     aws.String("id-" + handle),
		ReceiptHandle: aws.String(handle),
		Body:          aws.String(string(body)),
		Attributes:    map[string]string{"ApproximateReceiveCount": receives},
	}
}

func TestWorkerAcksRetriesAndDrops(t *testing.T) {
	client := &fakeSQS{visibility: map[string]int32{}}
	client.pending = []types.Message{
		message(t, "ok", leave.Event{Type: leave.EventApproved, RequestID: "r-ok"}, "1"),
		message(t, "flaky", leave.Event{Type: leave.EventApproved, RequestID: "r-flaky"}, "2"),
		message(t, "bad", map[string]string{"nonsense": "x"}, "1"),
	}
	notifier := &fakeNotifier{fail: map[string]error{"r-flaky": errors.New("ses throttled")}}

	w := New(client, "queue", NotifyProcessor{Notifier: notifier})
	w.Concurrency = 2
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		client.mu.Lock()
		settled := len(client.deleted) == 1 && len(client.visibility) == 1
		client.mu.Unlock()
		if settled {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("messages not settled: deleted=%v visibility=%v", client.deleted, client.visibility)
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done

	if client.deleted[0] != "ok" {
		t.Fatalf("expected ok deleted, got %v", client.deleted)
	}
	if client.visibility["flaky"] != Backoff(2) {
		t.Fatalf("expected backoff %d, got %v", Backoff(2), client.visibility)
	}
}

func TestProcessGivesUpAfterMaxAttempts(t *testing.T) {
	notifier := &fakeNotifier{fail: map[string]error{"r-1": errors.New("down")}}
	p := NotifyProcessor{Notifier: notifier}
	retry, _, err := p.Process(context.Background(), message(t, "h", leave.Event{Type: leave.EventRejected, RequestID: "r-1"}, "5"))
	if retry || err == nil {
		t.Fatalf("expected permanent failure, got retry=%v err=%v", retry, err)
	}
}

func TestBackoff(t *testing.T) {
	cases := map[int]int32{1: 20, 2: 40, 3: 80, 12: 3600}
	for attempt, want := range cases {
		if got := Backoff(attempt); got != want {
			t.Fatalf("Backoff(%d) = %d, want %d", attempt, got, want)
		}
	}
}
