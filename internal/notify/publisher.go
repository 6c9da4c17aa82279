package notify

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/trainerhub/trainerhub/internal/clients"
	"github.com/trainerhub/trainerhub/internal/providers"
	"github.com/trainerhub/trainerhub/internal/scheduling"
	"github.com/trainerhub/trainerhub/pkg/logging"
)

type clientDirectory interface {
	Get(ctx context.Context, providerID, id uuid.UUID) (*clients.Client, error)
}

type providerDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*providers.Provider, error)
}

// Publisher composes lifecycle messages and puts them on the outbound queue.
// It satisfies scheduling.Notifier. Enqueue failures are logged, never
// propagated: messaging must not fail a booking.
type Publisher struct {
	queue     queueClient
	clients   clientDirectory
	providers providerDirectory
	loc       *time.Location
	logger    *logging.Logger
}

func NewPublisher(queue queueClient, clientDir clientDirectory, providerDir providerDirectory, loc *time.Location, logger *logging.Logger) *Publisher {
	if queue == nil {
		panic("notify: queue required")
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Publisher{
		queue:     queue,
		clients:   clientDir,
		providers: providerDir,
		loc:       loc,
		logger:    logger,
	}
}

// Publish encodes a task and puts it on the queue.
func (p *Publisher) Publish(ctx context.Context, task Task) error {
	task, body, err := encodeTask(task)
	if err != nil {
		return err
	}
	if err := p.queue.Send(ctx, body); err != nil {
		return err
	}
	p.logger.Debug("notification enqueued", "kind", task.Kind, "provider_id", task.ProviderID)
	return nil
}

// delivery resolves the client's contact channel and the provider's gateway
// instance. ok is false when the client opted out or has no phone.
func (p *Publisher) delivery(ctx context.Context, providerID, clientID uuid.UUID) (phone, instance string, ok bool) {
	client, err := p.clients.Get(ctx, providerID, clientID)
	if err != nil {
		p.logger.Error("notify delivery lookup failed", "client_id", clientID, "error", err)
		return "", "", false
	}
	if client == nil || client.WhatsAppPhone == "" || !client.NotificationsEnabled {
		return "", "", false
	}
	if p.providers != nil {
		if prov, err := p.providers.Get(ctx, providerID); err == nil && prov != nil {
			instance = prov.WhatsAppInstance
		}
	}
	return client.WhatsAppPhone, instance, true
}

func (p *Publisher) enqueue(ctx context.Context, task Task) {
	if err := p.Publish(ctx, task); err != nil {
		p.logger.Error("notification enqueue failed",
			"kind", task.Kind,
			"provider_id", task.ProviderID,
			"error", err)
	}
}

// AppointmentBooked sends the single or series confirmation to the client.
func (p *Publisher) AppointmentBooked(ctx context.Context, appts []scheduling.Appointment) {
	if len(appts) == 0 {
		return
	}
	first := appts[0]
	phone, instance, ok := p.delivery(ctx, first.ProviderID, first.ClientID)
	if !ok {
		return
	}
	message := BookingConfirmed(first, p.loc)
	if len(appts) > 1 {
		message = BookingSeriesConfirmed(appts, p.loc)
	}
	apptID := first.ID
	clientID := first.ClientID
	p.enqueue(ctx, Task{
		Kind:          KindBookingConfirmed,
		ProviderID:    first.ProviderID,
		ClientID:      &clientID,
		AppointmentID: &apptID,
		Instance:      instance,
		Destination:   phone,
		Message:       message,
	})
}

// AppointmentCancelled sends the cancellation notice to the client.
func (p *Publisher) AppointmentCancelled(ctx context.Context, appt scheduling.Appointment) {
	phone, instance, ok := p.delivery(ctx, appt.ProviderID, appt.ClientID)
	if !ok {
		return
	}
	apptID := appt.ID
	clientID := appt.ClientID
	p.enqueue(ctx, Task{
		Kind:          KindCancelled,
		ProviderID:    appt.ProviderID,
		ClientID:      &clientID,
		AppointmentID: &apptID,
		Instance:      instance,
		Destination:   phone,
		Message:       Cancelled(appt, p.loc),
	})
}

// AppointmentRescheduled sends the move notice to the client.
func (p *Publisher) AppointmentRescheduled(ctx context.Context, previous, next scheduling.Appointment) {
	phone, instance, ok := p.delivery(ctx, next.ProviderID, next.ClientID)
	if !ok {
		return
	}
	apptID := next.ID
	clientID := next.ClientID
	p.enqueue(ctx, Task{
		Kind:          KindRescheduled,
		ProviderID:    next.ProviderID,
		ClientID:      &clientID,
		AppointmentID: &apptID,
		Instance:      instance,
		Destination:   phone,
		Message:       Rescheduled(previous, next, p.loc),
	})
}
