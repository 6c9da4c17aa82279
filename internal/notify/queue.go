package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

type queueClient interface {
	Send(ctx context.Context, body string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]queueMessage, error)
	Delete(ctx context.Context, receiptHandle string) error
}

// Queue is satisfied by both the SQS and in-memory transports so the
// startup code can pick one from configuration.
type Queue = queueClient

type queueMessage struct {
	ID            string
	Body          string
	ReceiptHandle string
}

func encodeTask(task Task) (Task, string, error) {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	body, err := json.Marshal(task)
	if err != nil {
		return Task{}, "", fmt.Errorf("notify: encode task: %w", err)
	}
	return task, string(body), nil
}

func decodeTask(body string) (Task, error) {
	var task Task
	if err := json.Unmarshal([]byte(body), &task); err != nil {
		return Task{}, fmt.Errorf("notify: decode task: %w", err)
	}
	return task, nil
}
