package webhook

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/trainerhub/trainerhub/internal/contracts"
	"github.com/trainerhub/trainerhub/internal/notify"
	"github.com/trainerhub/trainerhub/internal/providers"
	"github.com/trainerhub/trainerhub/internal/scheduling"
	"github.com/trainerhub/trainerhub/pkg/logging"
)

type fakeDedup struct {
	seen map[string]bool
}

func (f *fakeDedup) MarkProcessed(ctx context.Context, hash string) (bool, error) {
	if f.seen == nil {
		f.seen = make(map[string]bool)
	}
	if f.seen[hash] {
		return false, nil
	}
	f.seen[hash] = true
	return true, nil
}

type fakeProviderDir struct {
	byDigits map[string]*providers.Provider
}

func (f *fakeProviderDir) GetByPhone(ctx context.Context, digits string) (*providers.Provider, error) {
	return f.byDigits[digits], nil
}

type fakeSchedule struct {
	appts    []scheduling.Appointment
	lastFrom time.Time
	lastTo   time.Time
}

func (f *fakeSchedule) ListScheduledBetween(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]scheduling.Appointment, error) {
	f.lastFrom, f.lastTo = from, to
	return f.appts, nil
}

type fakeDue struct {
	due []contracts.Contract
}

func (f *fakeDue) ListDueForProvider(ctx context.Context, providerID uuid.UUID, to time.Time) ([]contracts.Contract, error) {
	return f.due, nil
}

type capturePublisher struct {
	tasks []notify.Task
}

func (c *capturePublisher) Publish(ctx context.Context, task notify.Task) error {
	c.tasks = append(c.tasks, task)
	return nil
}

func newTestProcessor(provider *providers.Provider, schedule *fakeSchedule, due *fakeDue, publisher *capturePublisher) *Processor {
	dir := &fakeProviderDir{byDigits: map[string]*providers.Provider{}}
	if provider != nil {
		dir.byDigits[notify.NormalizeNumber(provider.Phone, "")] = provider
	}
	return NewProcessor(&fakeDedup{}, dir, schedule, due, publisher, nil, ProcessorConfig{
		DefaultLocation:  time.UTC,
		DueLookaheadDays: 7,
	}, logging.New("error"))
}

func testProvider() *providers.Provider {
	return &providers.Provider{
		ID:               uuid.New(),
		Name:             "Carlos",
		Phone:            "+55 11 98765-4321",
		WhatsAppInstance: "trainer-main",
		Timezone:         "UTC",
	}
}

func TestProcessRepliesToTodayCommand(t *testing.T) {
	provider := testProvider()
	schedule := &fakeSchedule{appts: []scheduling.Appointment{{
		StartsAt:    time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC),
		ClientName:  "Maria",
		ServiceName: "Treino Funcional",
	}}}
	publisher := &capturePublisher{}
	p := newTestProcessor(provider, schedule, &fakeDue{}, publisher)
	p.now = func() time.Time { return time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC) }

	outcome := p.Process(context.Background(), InboundMessage{
		Instance:  "trainer-main",
		Sender:    "5511987654321@s.whatsapp.net",
		Text:      "HOJE",
		Timestamp: 1717405200,
	})
	if outcome != OutcomeReplied {
		t.Fatalf("outcome %q, want replied", outcome)
	}
	if len(publisher.tasks) != 1 {
		t.Fatalf("expected 1 reply, got %d", len(publisher.tasks))
	}
	task := publisher.tasks[0]
	if task.Kind != notify.KindInboundCommand {
		t.Fatalf("kind %q", task.Kind)
	}
	if task.Destination != "5511987654321" {
		t.Fatalf("destination %q", task.Destination)
	}
	// The query window must cover exactly today.
	wantFrom := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	if !schedule.lastFrom.Equal(wantFrom) || !schedule.lastTo.Equal(wantFrom.AddDate(0, 0, 1)) {
		t.Fatalf("window [%v, %v)", schedule.lastFrom, schedule.lastTo)
	}
}

func TestProcessDuplicateDeliveryRepliesOnce(t *testing.T) {
	provider := testProvider()
	publisher := &capturePublisher{}
	p := newTestProcessor(provider, &fakeSchedule{}, &fakeDue{}, publisher)

	msg := InboundMessage{Sender: "5511987654321", Text: "HOJE", Timestamp: 1717405200}
	if outcome := p.Process(context.Background(), msg); outcome != OutcomeReplied {
		t.Fatalf("first delivery outcome %q", outcome)
	}
	if outcome := p.Process(context.Background(), msg); outcome != OutcomeDuplicate {
		t.Fatalf("second delivery outcome %q", outcome)
	}
	if len(publisher.tasks) != 1 {
		t.Fatalf("expected exactly one reply, got %d", len(publisher.tasks))
	}
}

func TestProcessIgnoresOwnMessages(t *testing.T) {
	publisher := &capturePublisher{}
	p := newTestProcessor(testProvider(), &fakeSchedule{}, &fakeDue{}, publisher)

	outcome := p.Process(context.Background(), InboundMessage{
		Sender: "5511987654321", Text: "HOJE", FromMe: true, Timestamp: 1,
	})
	if outcome != OutcomeIgnored {
		t.Fatalf("outcome %q, want ignored", outcome)
	}
	if len(publisher.tasks) != 0 {
		t.Fatal("own messages must never be answered")
	}
}

func TestProcessIgnoresUnknownSenders(t *testing.T) {
	publisher := &capturePublisher{}
	p := newTestProcessor(testProvider(), &fakeSchedule{}, &fakeDue{}, publisher)

	outcome := p.Process(context.Background(), InboundMessage{
		Sender: "5599000000000", Text: "HOJE", Timestamp: 1,
	})
	if outcome != OutcomeIgnored {
		t.Fatalf("outcome %q, want ignored", outcome)
	}
	if len(publisher.tasks) != 0 {
		t.Fatal("unknown numbers must be silently ignored")
	}
}

func TestProcessRepliesOnReceivingInstance(t *testing.T) {
	provider := testProvider()
	publisher := &capturePublisher{}
	p := newTestProcessor(provider, &fakeSchedule{}, &fakeDue{}, publisher)

	p.Process(context.Background(), InboundMessage{
		Instance: "trainer-backup", Sender: "5511987654321", Text: "HOJE", Timestamp: 1,
	})
	if publisher.tasks[0].Instance != "trainer-backup" {
		t.Fatalf("reply instance %q, want the receiving one", publisher.tasks[0].Instance)
	}

	// Without an instance on the event, fall back to the provider's own.
	p.Process(context.Background(), InboundMessage{
		Sender: "5511987654321", Text: "HOJE", Timestamp: 2,
	})
	if publisher.tasks[1].Instance != "trainer-main" {
		t.Fatalf("fallback instance %q", publisher.tasks[1].Instance)
	}
}

func TestProcessUnknownCommandSendsHelp(t *testing.T) {
	publisher := &capturePublisher{}
	p := newTestProcessor(testProvider(), &fakeSchedule{}, &fakeDue{}, publisher)

	if outcome := p.Process(context.Background(), InboundMessage{
		Sender: "5511987654321", Text: "bom dia!", Timestamp: 1,
	}); outcome != OutcomeReplied {
		t.Fatalf("outcome %q, want replied", outcome)
	}
	if got := publisher.tasks[0].Message; got != notify.HelpReply() {
		t.Fatalf("expected help text, got %q", got)
	}
}

func TestProcessDueCommandListsContracts(t *testing.T) {
	due := &fakeDue{due: []contracts.Contract{{
		ClientName:         "Joao",
		DueDate:            time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
		MonthlyAmountCents: 18000,
	}}}
	publisher := &capturePublisher{}
	p := newTestProcessor(testProvider(), &fakeSchedule{}, due, publisher)

	if outcome := p.Process(context.Background(), InboundMessage{
		Sender: "5511987654321", Text: "vencimentos", Timestamp: 1,
	}); outcome != OutcomeReplied {
		t.Fatalf("outcome %q, want replied", outcome)
	}
	if msg := publisher.tasks[0].Message; msg == notify.HelpReply() {
		t.Fatalf("expected due listing, got help: %q", msg)
	}
}

func TestContentHashStableAndSensitive(t *testing.T) {
	a := ContentHash("5511987654321", "HOJE", 1717405200)
	b := ContentHash("5511987654321", "HOJE", 1717405200)
	if a != b {
		t.Fatal("identical tuples must hash equal")
	}
	if a == ContentHash("5511987654321", "HOJE", 1717405201) {
		t.Fatal("timestamp must change the hash")
	}
	if a == ContentHash("5511987654321", "AMANHA", 1717405200) {
		t.Fatal("text must change the hash")
	}
}
