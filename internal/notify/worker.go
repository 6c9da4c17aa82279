package notify

import (
	"context"
	"errors"
	"time"

	"github.com/trainerhub/trainerhub/internal/observability/metrics"
	"github.com/trainerhub/trainerhub/pkg/logging"
)

// Worker drains the outbound queue through the dispatcher. Run one or more
// per process; SQS visibility (or the memory channel) keeps tasks from being
// double-consumed.
type Worker struct {
	queue      queueClient
	dispatcher *Dispatcher
	metrics    *metrics.NotifyMetrics
	logger     *logging.Logger

	batchSize   int
	waitSeconds int
	errorPause  time.Duration
}

func NewWorker(queue queueClient, dispatcher *Dispatcher, m *metrics.NotifyMetrics, logger *logging.Logger) *Worker {
	if queue == nil {
		panic("notify: queue required")
	}
	if dispatcher == nil {
		panic("notify: dispatcher required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Worker{
		queue:       queue,
		dispatcher:  dispatcher,
		metrics:     m,
		logger:      logger,
		batchSize:   5,
		waitSeconds: 10,
		errorPause:  2 * time.Second,
	}
}

// Run consumes tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("notification worker started")
	for {
		if ctx.Err() != nil {
			w.logger.Info("notification worker stopped")
			return
		}
		messages, err := w.queue.Receive(ctx, w.batchSize, w.waitSeconds)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			w.logger.Error("notification receive failed", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(w.errorPause):
			}
			continue
		}
		for _, msg := range messages {
			w.handle(ctx, msg)
		}
	}
}

func (w *Worker) handle(ctx context.Context, msg queueMessage) {
	w.metrics.IncInflight()
	defer w.metrics.DecInflight()

	task, err := decodeTask(msg.Body)
	if err != nil {
		// Poison message: drop it rather than loop forever.
		w.logger.Error("notification task undecodable, dropping", "message_id", msg.ID, "error", err)
		if delErr := w.queue.Delete(ctx, msg.ReceiptHandle); delErr != nil {
			w.logger.Error("notification delete failed", "message_id", msg.ID, "error", delErr)
		}
		return
	}
	// Dispatch failures are already logged and recorded in the notification
	// log; the task is still deleted. Retrying a WhatsApp text risks
	// duplicate client messages, which is worse than a missed one.
	_ = w.dispatcher.Dispatch(ctx, task)
	if err := w.queue.Delete(ctx, msg.ReceiptHandle); err != nil {
		w.logger.Error("notification delete failed", "message_id", msg.ID, "error", err)
	}
}
