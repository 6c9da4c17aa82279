package scheduling

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/trainerhub/trainerhub/pkg/logging"
)

var schedulingTracer = otel.Tracer("trainerhub.internal.scheduling")

// ContractChecker gates booking, rescheduling and completion on an active
// contract for the (client, service) pair.
type ContractChecker interface {
	HasActiveContract(ctx context.Context, providerID, clientID, serviceID uuid.UUID) (bool, error)
}

// Notifier receives lifecycle events for client messaging. Implementations
// must not block the scheduling path; enqueue failures are theirs to log.
type Notifier interface {
	AppointmentBooked(ctx context.Context, appts []Appointment)
	AppointmentCancelled(ctx context.Context, appt Appointment)
	AppointmentRescheduled(ctx context.Context, previous, next Appointment)
}

type schedulerStore interface {
	GetService(ctx context.Context, providerID, serviceID uuid.UUID) (*Service, error)
	Get(ctx context.Context, providerID, id uuid.UUID) (*Appointment, error)
	Insert(ctx context.Context, q Querier, a *Appointment) error
	InsertBatch(ctx context.Context, appts []*Appointment) error
	Reschedule(ctx context.Context, successor *Appointment, originalID uuid.UUID, reason string) (bool, error)
	SetStatus(ctx context.Context, q Querier, providerID, id uuid.UUID, status Status, notes string) (bool, error)
	UpdateDetails(ctx context.Context, providerID, id uuid.UUID, serviceID uuid.UUID, notes *string, status Status) (bool, error)
	CancelFutureWeekly(ctx context.Context, providerID, clientID, serviceID uuid.UUID, from time.Time) (int64, error)
	List(ctx context.Context, providerID uuid.UUID, filter ListFilter) ([]Appointment, error)
}

// Scheduler owns the appointment lifecycle. Book and Reschedule are
// serialized per provider with an in-process lock, so the check-then-insert
// window cannot race for a single provider's calendar.
type Scheduler struct {
	store     schedulerStore
	conflicts *ConflictDetector
	contracts ContractChecker
	notifier  Notifier
	logger    *logging.Logger

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// NewScheduler constructs the scheduling service. notifier may be nil when
// messaging is disabled.
func NewScheduler(store *Store, contracts ContractChecker, notifier Notifier, logger *logging.Logger) *Scheduler {
	if store == nil {
		panic("scheduling: store required")
	}
	if contracts == nil {
		panic("scheduling: contract checker required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Scheduler{
		store:     store,
		conflicts: NewConflictDetector(store),
		contracts: contracts,
		notifier:  notifier,
		logger:    logger,
		locks:     make(map[uuid.UUID]*sync.Mutex),
	}
}

func (s *Scheduler) providerLock(providerID uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[providerID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[providerID] = lock
	}
	return lock
}

// BookRequest carries the fields of a booking call.
type BookRequest struct {
	ClientID   uuid.UUID
	ServiceID  uuid.UUID
	StartsAt   time.Time
	Recurrence Recurrence
	Months     int
	Notes      string
}

// Book creates one appointment, or a weekly series when the request asks for
// recurrence. The whole series shares one contract and conflict check on the
// base slot; later instances are inserted as-is.
func (s *Scheduler) Book(ctx context.Context, providerID uuid.UUID, req BookRequest) ([]Appointment, error) {
	ctx, span := schedulingTracer.Start(ctx, "scheduling.book")
	defer span.End()
	span.SetAttributes(
		attribute.String("trainerhub.provider_id", providerID.String()),
		attribute.String("trainerhub.client_id", req.ClientID.String()),
	)

	if req.ClientID == uuid.Nil || req.ServiceID == uuid.Nil {
		return nil, &ValidationError{Reason: "client_id and service_id are required"}
	}
	if req.StartsAt.IsZero() {
		return nil, &ValidationError{Reason: "starts_at is required"}
	}
	if req.Recurrence == "" {
		req.Recurrence = RecurrenceSingle
	}
	if req.Recurrence != RecurrenceSingle && req.Recurrence != RecurrenceWeekly {
		return nil, &ValidationError{Reason: fmt.Sprintf("unknown recurrence %q", req.Recurrence)}
	}

	lock := s.providerLock(providerID)
	lock.Lock()
	defer lock.Unlock()

	svc, err := s.store.GetService(ctx, providerID, req.ServiceID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if svc == nil {
		return nil, &NotFoundError{Entity: "service"}
	}

	active, err := s.contracts.HasActiveContract(ctx, providerID, req.ClientID, req.ServiceID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !active {
		return nil, ErrNoActiveContract()
	}

	start := req.StartsAt
	end := start.Add(svc.Duration())
	conflict, err := s.conflicts.HasConflict(ctx, providerID, svc.Kind, start, end, uuid.Nil)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if conflict {
		return nil, &ConflictError{Reason: "time slot overlaps an existing appointment"}
	}

	slots := []Slot{{StartsAt: start, EndsAt: end}}
	if req.Recurrence == RecurrenceWeekly {
		slots = ExpandWeekly(start, end, req.Months)
	}

	appts := make([]*Appointment, 0, len(slots))
	for _, slot := range slots {
		appts = append(appts, &Appointment{
			ID:          uuid.New(),
			ProviderID:  providerID,
			ClientID:    req.ClientID,
			ServiceID:   req.ServiceID,
			StartsAt:    slot.StartsAt,
			EndsAt:      slot.EndsAt,
			Recurrence:  req.Recurrence,
			Status:      StatusScheduled,
			Notes:       req.Notes,
			ServiceName: svc.Name,
			ServiceKind: svc.Kind,
		})
	}
	if len(appts) == 1 {
		err = s.store.Insert(ctx, nil, appts[0])
	} else {
		err = s.store.InsertBatch(ctx, appts)
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	out := make([]Appointment, len(appts))
	for i, a := range appts {
		out[i] = *a
	}
	s.logger.Info("appointments booked",
		"provider_id", providerID,
		"client_id", req.ClientID,
		"count", len(out),
		"recurrence", req.Recurrence)
	if s.notifier != nil {
		s.notifier.AppointmentBooked(ctx, out)
	}
	return out, nil
}

// Cancel cancels one scheduled appointment; with cascadeFuture it also
// cancels every later scheduled instance of the same weekly series.
// Completed and already-cancelled appointments are never touched.
func (s *Scheduler) Cancel(ctx context.Context, providerID, id uuid.UUID, cascadeFuture bool) (*Appointment, int64, error) {
	ctx, span := schedulingTracer.Start(ctx, "scheduling.cancel")
	defer span.End()
	span.SetAttributes(attribute.String("trainerhub.appointment_id", id.String()))

	appt, err := s.store.Get(ctx, providerID, id)
	if err != nil {
		span.RecordError(err)
		return nil, 0, err
	}
	if appt == nil {
		return nil, 0, &NotFoundError{Entity: "appointment"}
	}
	if appt.Status != StatusScheduled {
		return nil, 0, &PolicyError{Reason: fmt.Sprintf("cannot cancel an appointment in status %q", appt.Status)}
	}

	var cascaded int64
	if cascadeFuture && appt.Recurrence == RecurrenceWeekly {
		cascaded, err = s.store.CancelFutureWeekly(ctx, providerID, appt.ClientID, appt.ServiceID, appt.StartsAt)
		if err != nil {
			span.RecordError(err)
			return nil, 0, err
		}
	} else {
		ok, err := s.store.SetStatus(ctx, nil, providerID, id, StatusCancelled, "")
		if err != nil {
			span.RecordError(err)
			return nil, 0, err
		}
		if !ok {
			return nil, 0, &NotFoundError{Entity: "appointment"}
		}
		cascaded = 1
	}
	appt.Status = StatusCancelled

	s.logger.Info("appointment cancelled",
		"provider_id", providerID,
		"appointment_id", id,
		"cascade", cascadeFuture,
		"affected", cascaded)
	if s.notifier != nil {
		s.notifier.AppointmentCancelled(ctx, *appt)
	}
	return appt, cascaded, nil
}

// Reschedule moves a scheduled appointment to a new start. A successor row is
// created with a predecessor link and the original flips to rescheduled.
func (s *Scheduler) Reschedule(ctx context.Context, providerID, id uuid.UUID, newStart time.Time, reason string) (*Appointment, error) {
	ctx, span := schedulingTracer.Start(ctx, "scheduling.reschedule")
	defer span.End()
	span.SetAttributes(attribute.String("trainerhub.appointment_id", id.String()))

	if newStart.IsZero() {
		return nil, &ValidationError{Reason: "new_starts_at is required"}
	}

	lock := s.providerLock(providerID)
	lock.Lock()
	defer lock.Unlock()

	appt, err := s.store.Get(ctx, providerID, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if appt == nil {
		return nil, &NotFoundError{Entity: "appointment"}
	}
	if appt.Status != StatusScheduled {
		return nil, &PolicyError{Reason: fmt.Sprintf("cannot reschedule an appointment in status %q", appt.Status)}
	}

	active, err := s.contracts.HasActiveContract(ctx, providerID, appt.ClientID, appt.ServiceID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !active {
		return nil, ErrNoActiveContract()
	}

	duration := appt.EndsAt.Sub(appt.StartsAt)
	newEnd := newStart.Add(duration)
	conflict, err := s.conflicts.HasConflict(ctx, providerID, appt.ServiceKind, newStart, newEnd, appt.ID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if conflict {
		return nil, &ConflictError{Reason: "new time slot overlaps an existing appointment"}
	}

	predecessorID := appt.ID
	successor := &Appointment{
		ID:            uuid.New(),
		ProviderID:    providerID,
		ClientID:      appt.ClientID,
		ServiceID:     appt.ServiceID,
		StartsAt:      newStart,
		EndsAt:        newEnd,
		Recurrence:    RecurrenceSingle,
		Status:        StatusScheduled,
		Notes:         appt.Notes,
		PredecessorID: &predecessorID,
		ClientName:    appt.ClientName,
		ClientPhone:   appt.ClientPhone,
		ServiceName:   appt.ServiceName,
		ServiceKind:   appt.ServiceKind,
	}
	ok, err := s.store.Reschedule(ctx, successor, appt.ID, reason)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !ok {
		return nil, &NotFoundError{Entity: "appointment"}
	}

	s.logger.Info("appointment rescheduled",
		"provider_id", providerID,
		"appointment_id", appt.ID,
		"successor_id", successor.ID)
	if s.notifier != nil {
		s.notifier.AppointmentRescheduled(ctx, *appt, *successor)
	}
	return successor, nil
}

// Complete marks a scheduled appointment as done. The contract must still be
// active at completion time.
func (s *Scheduler) Complete(ctx context.Context, providerID, id uuid.UUID) (*Appointment, error) {
	ctx, span := schedulingTracer.Start(ctx, "scheduling.complete")
	defer span.End()
	span.SetAttributes(attribute.String("trainerhub.appointment_id", id.String()))

	appt, err := s.store.Get(ctx, providerID, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if appt == nil {
		return nil, &NotFoundError{Entity: "appointment"}
	}
	if appt.Status != StatusScheduled {
		return nil, &PolicyError{Reason: fmt.Sprintf("cannot complete an appointment in status %q", appt.Status)}
	}

	active, err := s.contracts.HasActiveContract(ctx, providerID, appt.ClientID, appt.ServiceID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !active {
		return nil, ErrNoActiveContract()
	}

	if _, err := s.store.SetStatus(ctx, nil, providerID, id, StatusCompleted, ""); err != nil {
		span.RecordError(err)
		return nil, err
	}
	appt.Status = StatusCompleted
	s.logger.Info("appointment completed", "provider_id", providerID, "appointment_id", id)
	return appt, nil
}

// Reopen flips a completed appointment back to scheduled. There is no
// contract re-check here; a finished session can always be reopened to fix a
// mistaken completion.
func (s *Scheduler) Reopen(ctx context.Context, providerID, id uuid.UUID) (*Appointment, error) {
	ctx, span := schedulingTracer.Start(ctx, "scheduling.reopen")
	defer span.End()
	span.SetAttributes(attribute.String("trainerhub.appointment_id", id.String()))

	appt, err := s.store.Get(ctx, providerID, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if appt == nil {
		return nil, &NotFoundError{Entity: "appointment"}
	}
	if appt.Status != StatusCompleted {
		return nil, &PolicyError{Reason: fmt.Sprintf("cannot reopen an appointment in status %q", appt.Status)}
	}

	if _, err := s.store.SetStatus(ctx, nil, providerID, id, StatusScheduled, ""); err != nil {
		span.RecordError(err)
		return nil, err
	}
	appt.Status = StatusScheduled
	s.logger.Info("appointment reopened", "provider_id", providerID, "appointment_id", id)
	return appt, nil
}

// UpdateRequest patches an appointment's non-lifecycle fields.
type UpdateRequest struct {
	ServiceID uuid.UUID
	Notes     *string
	Status    Status
}

// Update applies a generic patch. Status changes through Update are limited
// to the same values the lifecycle operations produce; lifecycle invariants
// (predecessor links, cascades) are not enforced here, mirroring a plain
// admin edit.
func (s *Scheduler) Update(ctx context.Context, providerID, id uuid.UUID, req UpdateRequest) (*Appointment, error) {
	ctx, span := schedulingTracer.Start(ctx, "scheduling.update")
	defer span.End()

	if req.Status != "" {
		switch req.Status {
		case StatusScheduled, StatusCompleted, StatusCancelled, StatusRescheduled:
		default:
			return nil, &ValidationError{Reason: fmt.Sprintf("unknown status %q", req.Status)}
		}
	}
	ok, err := s.store.UpdateDetails(ctx, providerID, id, req.ServiceID, req.Notes, req.Status)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !ok {
		return nil, &NotFoundError{Entity: "appointment"}
	}
	return s.getExisting(ctx, providerID, id)
}

// List returns appointments for the provider in the filter's range.
func (s *Scheduler) List(ctx context.Context, providerID uuid.UUID, filter ListFilter) ([]Appointment, error) {
	if filter.From.IsZero() || filter.To.IsZero() {
		return nil, &ValidationError{Reason: "from and to are required"}
	}
	if filter.To.Before(filter.From) {
		return nil, &ValidationError{Reason: "to must not precede from"}
	}
	return s.store.List(ctx, providerID, filter)
}

// Get returns one appointment or NotFoundError.
func (s *Scheduler) Get(ctx context.Context, providerID, id uuid.UUID) (*Appointment, error) {
	return s.getExisting(ctx, providerID, id)
}

func (s *Scheduler) getExisting(ctx context.Context, providerID, id uuid.UUID) (*Appointment, error) {
	appt, err := s.store.Get(ctx, providerID, id)
	if err != nil {
		return nil, err
	}
	if appt == nil {
		return nil, &NotFoundError{Entity: "appointment"}
	}
	return appt, nil
}
