package notify

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/trainerhub/trainerhub/pkg/logging"
)

type recordingQueue struct {
	*MemoryQueue
	deleted []string
}

func (q *recordingQueue) Delete(ctx context.Context, receiptHandle string) error {
	q.deleted = append(q.deleted, receiptHandle)
	return nil
}

func TestWorkerHandleDispatchesAndDeletes(t *testing.T) {
	queue := &recordingQueue{MemoryQueue: NewMemoryQueue(4)}
	sender := &fakeSender{}
	dispatcher := newTestDispatcher(sender, nil)
	w := NewWorker(queue, dispatcher, nil, logging.New("error"))

	task := Task{
		Kind:        KindSessionReminder,
		ProviderID:  uuid.New(),
		Destination: "5511987654321",
		Message:     "lembrete",
	}
	_, body, err := encodeTask(task)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	w.handle(context.Background(), queueMessage{ID: "m1", Body: body, ReceiptHandle: "r1"})

	if sender.calls != 1 {
		t.Fatalf("sender calls %d, want 1", sender.calls)
	}
	if len(queue.deleted) != 1 || queue.deleted[0] != "r1" {
		t.Fatalf("message must be deleted after dispatch, got %v", queue.deleted)
	}
}

func TestWorkerDropsPoisonMessages(t *testing.T) {
	queue := &recordingQueue{MemoryQueue: NewMemoryQueue(4)}
	sender := &fakeSender{}
	w := NewWorker(queue, newTestDispatcher(sender, nil), nil, logging.New("error"))

	w.handle(context.Background(), queueMessage{ID: "m1", Body: "{not json", ReceiptHandle: "r1"})

	if sender.calls != 0 {
		t.Fatal("poison message must not reach the sender")
	}
	if len(queue.deleted) != 1 {
		t.Fatalf("poison message must be deleted, got %v", queue.deleted)
	}
}

func TestWorkerDeletesFailedDispatches(t *testing.T) {
	queue := &recordingQueue{MemoryQueue: NewMemoryQueue(4)}
	sender := &fakeSender{err: context.DeadlineExceeded}
	w := NewWorker(queue, newTestDispatcher(sender, nil), nil, logging.New("error"))

	_, body, err := encodeTask(Task{Kind: KindTest, Destination: "5511987654321"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	w.handle(context.Background(), queueMessage{ID: "m1", Body: body, ReceiptHandle: "r1"})

	// Failed sends are not retried; redelivery would risk duplicate texts.
	if len(queue.deleted) != 1 {
		t.Fatalf("failed dispatch must still delete the message, got %v", queue.deleted)
	}
}

func TestMemoryQueueRoundTrip(t *testing.T) {
	q := NewMemoryQueue(4)
	ctx := context.Background()

	if err := q.Send(ctx, "one"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := q.Send(ctx, "two"); err != nil {
		t.Fatalf("send: %v", err)
	}

	msgs, err := q.Receive(ctx, 5, 0)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("received %d messages, want 2", len(msgs))
	}
	if msgs[0].Body != "one" || msgs[1].Body != "two" {
		t.Fatalf("unexpected order: %v", msgs)
	}
}

func TestMemoryQueueReceiveTimesOut(t *testing.T) {
	q := NewMemoryQueue(1)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	msgs, err := q.Receive(ctx, 1, 10)
	if err == nil && len(msgs) != 0 {
		t.Fatalf("expected no messages, got %v", msgs)
	}
}
