package webhook

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/trainerhub/trainerhub/internal/contracts"
	"github.com/trainerhub/trainerhub/internal/notify"
	"github.com/trainerhub/trainerhub/internal/observability/metrics"
	"github.com/trainerhub/trainerhub/internal/providers"
	"github.com/trainerhub/trainerhub/internal/scheduling"
	"github.com/trainerhub/trainerhub/pkg/logging"
)

type providerResolver interface {
	GetByPhone(ctx context.Context, digits string) (*providers.Provider, error)
}

type scheduleReader interface {
	ListScheduledBetween(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]scheduling.Appointment, error)
}

type dueReader interface {
	ListDueForProvider(ctx context.Context, providerID uuid.UUID, to time.Time) ([]contracts.Contract, error)
}

type replyPublisher interface {
	Publish(ctx context.Context, task notify.Task) error
}

type dedupStore interface {
	MarkProcessed(ctx context.Context, hash string) (bool, error)
}

// InboundMessage is the normalized shape of one gateway webhook event.
type InboundMessage struct {
	Instance  string
	Sender    string
	FromMe    bool
	Text      string
	Timestamp int64
}

// Outcome labels what Process did with one message, for metrics and logs.
type Outcome string

const (
	OutcomeReplied   Outcome = "replied"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeError     Outcome = "error"
)

// ProcessorConfig carries the knobs the processor needs.
type ProcessorConfig struct {
	// DefaultLocation renders replies when the provider has no timezone.
	DefaultLocation *time.Location
	// DueLookaheadDays bounds the VENCIMENTOS horizon.
	DueLookaheadDays int
}

// Processor turns inbound messages into schedule replies. Only registered
// provider numbers get answers; everyone else is silently ignored.
type Processor struct {
	dedup     dedupStore
	providers providerResolver
	schedule  scheduleReader
	contracts dueReader
	publisher replyPublisher
	metrics   *metrics.NotifyMetrics
	logger    *logging.Logger
	cfg       ProcessorConfig
	now       func() time.Time
}

func NewProcessor(dedup dedupStore, providerDir providerResolver, schedule scheduleReader, contractsDir dueReader, publisher replyPublisher, m *metrics.NotifyMetrics, cfg ProcessorConfig, logger *logging.Logger) *Processor {
	if dedup == nil {
		panic("webhook: dedup store required")
	}
	if providerDir == nil {
		panic("webhook: provider resolver required")
	}
	if publisher == nil {
		panic("webhook: publisher required")
	}
	if cfg.DefaultLocation == nil {
		cfg.DefaultLocation = time.UTC
	}
	if cfg.DueLookaheadDays <= 0 {
		cfg.DueLookaheadDays = 7
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Processor{
		dedup:     dedup,
		providers: providerDir,
		schedule:  schedule,
		contracts: contractsDir,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Process handles one inbound message end to end. It never panics and the
// caller always acknowledges the gateway with success; the returned outcome
// is for observability only.
func (p *Processor) Process(ctx context.Context, msg InboundMessage) Outcome {
	started := p.now()
	outcome := p.process(ctx, msg)
	p.metrics.ObserveInbound(string(outcome))
	p.metrics.ObserveWebhookLatency(string(outcome), time.Since(started).Seconds())
	return outcome
}

func (p *Processor) process(ctx context.Context, msg InboundMessage) Outcome {
	// Messages sent by our own instances echo back through the webhook;
	// answering them would loop forever.
	if msg.FromMe || msg.Text == "" || msg.Sender == "" {
		return OutcomeIgnored
	}

	hash := ContentHash(msg.Sender, msg.Text, msg.Timestamp)
	inserted, err := p.dedup.MarkProcessed(ctx, hash)
	if err != nil {
		p.logger.Error("webhook dedup failed", "error", err)
		return OutcomeError
	}
	if !inserted {
		return OutcomeDuplicate
	}

	digits := notify.NormalizeNumber(msg.Sender, "")
	provider, err := p.providers.GetByPhone(ctx, digits)
	if err != nil {
		p.logger.Error("webhook provider lookup failed", "error", err)
		return OutcomeError
	}
	if provider == nil {
		return OutcomeIgnored
	}

	loc := p.cfg.DefaultLocation
	if provider.Timezone != "" {
		if l, err := time.LoadLocation(provider.Timezone); err == nil {
			loc = l
		}
	}

	reply, err := p.reply(ctx, provider, ParseCommand(msg.Text), loc)
	if err != nil {
		p.logger.Error("webhook command query failed",
			"provider_id", provider.ID,
			"error", err)
		return OutcomeError
	}

	// Replies go back through whichever instance delivered the message, so
	// multi-instance setups answer on the same line they were asked on.
	instance := msg.Instance
	if instance == "" {
		instance = provider.WhatsAppInstance
	}
	task := notify.Task{
		Kind:        notify.KindInboundCommand,
		ProviderID:  provider.ID,
		Instance:    instance,
		Destination: digits,
		Message:     reply,
	}
	if err := p.publisher.Publish(ctx, task); err != nil {
		p.logger.Error("webhook reply enqueue failed",
			"provider_id", provider.ID,
			"error", err)
		return OutcomeError
	}
	return OutcomeReplied
}

func (p *Processor) reply(ctx context.Context, provider *providers.Provider, cmd Command, loc *time.Location) (string, error) {
	now := p.now().In(loc)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	switch cmd {
	case CommandToday:
		appts, err := p.schedule.ListScheduledBetween(ctx, provider.ID, dayStart, dayStart.AddDate(0, 0, 1))
		if err != nil {
			return "", err
		}
		return notify.ScheduleReply("Hoje", appts, loc), nil
	case CommandTomorrow:
		appts, err := p.schedule.ListScheduledBetween(ctx, provider.ID, dayStart.AddDate(0, 0, 1), dayStart.AddDate(0, 0, 2))
		if err != nil {
			return "", err
		}
		return notify.ScheduleReply("Amanhã", appts, loc), nil
	case CommandWeek:
		appts, err := p.schedule.ListScheduledBetween(ctx, provider.ID, dayStart, dayStart.AddDate(0, 0, 7))
		if err != nil {
			return "", err
		}
		return notify.ScheduleReply("Semana", appts, loc), nil
	case CommandDue:
		due, err := p.contracts.ListDueForProvider(ctx, provider.ID, now.AddDate(0, 0, p.cfg.DueLookaheadDays))
		if err != nil {
			return "", err
		}
		return notify.DueReply(due, loc), nil
	default:
		return notify.HelpReply(), nil
	}
}
