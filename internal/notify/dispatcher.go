package notify

import (
	"context"
	"math/rand"
	"time"

	"github.com/trainerhub/trainerhub/internal/gateway/evolution"
	"github.com/trainerhub/trainerhub/internal/observability/metrics"
	"github.com/trainerhub/trainerhub/pkg/logging"
)

// TextSender is the gateway surface the dispatcher needs.
type TextSender interface {
	SendText(ctx context.Context, instance, number, text string) error
}

// EvolutionSender adapts the Evolution client to TextSender.
type EvolutionSender struct {
	client *evolution.Client
}

func NewEvolutionSender(client *evolution.Client) *EvolutionSender {
	return &EvolutionSender{client: client}
}

func (s *EvolutionSender) SendText(ctx context.Context, instance, number, text string) error {
	_, err := s.client.SendText(ctx, instance, number, text)
	return err
}

// DispatcherConfig controls normalization and anti-throttle behavior.
// Location frames the dedup recheck's day window for bulk tasks.
type DispatcherConfig struct {
	CountryPrefix string
	JitterMin     time.Duration
	JitterMax     time.Duration
	Location      *time.Location
}

// Dispatcher sends one task through the gateway and records the outcome in
// the notification log. A nil sender means the gateway is not configured:
// dispatch degrades to a warning no-op so business logic never blocks on
// messaging.
type Dispatcher struct {
	sender  TextSender
	logs    *LogStore
	metrics *metrics.NotifyMetrics
	logger  *logging.Logger
	cfg     DispatcherConfig
	jitter  func(min, max time.Duration) time.Duration
	now     func() time.Time
}

func NewDispatcher(sender TextSender, logs *LogStore, m *metrics.NotifyMetrics, cfg DispatcherConfig, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.JitterMin <= 0 {
		cfg.JitterMin = 2 * time.Second
	}
	if cfg.JitterMax < cfg.JitterMin {
		cfg.JitterMax = cfg.JitterMin
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Dispatcher{
		sender:  sender,
		logs:    logs,
		metrics: m,
		logger:  logger,
		cfg:     cfg,
		jitter:  randomJitter,
		now:     time.Now,
	}
}

func randomJitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}

// Dispatch sends one task. Bulk tasks sleep a randomized delay first so
// background fan-outs do not trip the gateway's abuse detection. The outcome
// is always written to the notification log; log-write failures are logged
// and swallowed.
func (d *Dispatcher) Dispatch(ctx context.Context, task Task) error {
	if d.sender == nil {
		d.logger.Warn("gateway not configured, dropping notification",
			"kind", task.Kind,
			"provider_id", task.ProviderID)
		return nil
	}
	number := NormalizeNumber(task.Destination, d.cfg.CountryPrefix)
	if number == "" {
		d.record(ctx, task, StatusFailed)
		d.logger.Warn("notification dropped, empty destination",
			"kind", task.Kind,
			"provider_id", task.ProviderID)
		return nil
	}
	if task.Bulk {
		delay := d.jitter(d.cfg.JitterMin, d.cfg.JitterMax)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		// The trigger scans recheck the log at enqueue time, but under queue
		// backlog two ticks can both enqueue before the first sent row lands.
		// Recheck here, right before the send.
		if d.alreadySentToday(ctx, task) {
			d.logger.Info("notification already sent today, skipping",
				"kind", task.Kind,
				"provider_id", task.ProviderID)
			return nil
		}
	}

	err := d.sender.SendText(ctx, task.Instance, number, task.Message)
	status := StatusSent
	if err != nil {
		status = StatusFailed
		d.logger.Error("notification send failed",
			"kind", task.Kind,
			"provider_id", task.ProviderID,
			"error", err)
	}
	d.record(ctx, task, status)
	d.metrics.ObserveDispatch(string(task.Kind), string(status))
	return err
}

func (d *Dispatcher) alreadySentToday(ctx context.Context, task Task) bool {
	if d.logs == nil {
		return false
	}
	local := d.now().In(d.cfg.Location)
	from := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, d.cfg.Location)
	sent, err := d.logs.WasSent(ctx, task.ProviderID, task.Kind, task.AppointmentID, task.ContractID, from, from.AddDate(0, 0, 1))
	if err != nil {
		d.logger.Error("notification dedup recheck failed",
			"kind", task.Kind,
			"provider_id", task.ProviderID,
			"error", err)
		return false
	}
	return sent
}

func (d *Dispatcher) record(ctx context.Context, task Task, status SendStatus) {
	if d.logs == nil {
		return
	}
	entry := &LogEntry{
		ProviderID:    task.ProviderID,
		ClientID:      task.ClientID,
		Kind:          task.Kind,
		Channel:       "whatsapp",
		Message:       task.Message,
		Status:        status,
		AppointmentID: task.AppointmentID,
		ContractID:    task.ContractID,
	}
	if err := d.logs.Insert(ctx, entry); err != nil {
		d.logger.Error("notification log write failed",
			"kind", task.Kind,
			"provider_id", task.ProviderID,
			"error", err)
	}
}
