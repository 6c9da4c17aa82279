package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

var apptRowColumns = []string{
	"id", "provider_id", "client_id", "service_id",
	"starts_at", "ends_at", "recurrence", "status", "notes",
	"predecessor_id", "created_at", "updated_at",
	"client_name", "client_phone", "service_name", "service_kind",
}

func apptRow(rows *pgxmock.Rows, id, providerID uuid.UUID, start time.Time) *pgxmock.Rows {
	return rows.AddRow(
		id, providerID, uuid.New(), uuid.New(),
		start, start.Add(time.Hour), "single", "scheduled", "",
		(*uuid.UUID)(nil), start, start,
		"Maria", "5511987654321", "Treino Funcional", "in_person",
	)
}

func TestStoreInsertAppointment(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := &Store{pool: mock}
	appt := &Appointment{
		ID:         uuid.New(),
		ProviderID: uuid.New(),
		ClientID:   uuid.New(),
		ServiceID:  uuid.New(),
		StartsAt:   time.Now(),
		EndsAt:     time.Now().Add(time.Hour),
		Recurrence: RecurrenceSingle,
		Status:     StatusScheduled,
	}
	mock.ExpectExec("INSERT INTO appointments").
		WithArgs(appt.ID, appt.ProviderID, appt.ClientID, appt.ServiceID,
			appt.StartsAt, appt.EndsAt, appt.Recurrence, appt.Status, "", (*uuid.UUID)(nil)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := store.Insert(context.Background(), nil, appt); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestStoreGetServiceMissingReturnsNil(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := &Store{pool: mock}
	serviceID := uuid.New()
	providerID := uuid.New()
	mock.ExpectQuery("SELECT id, provider_id, name, kind, duration_minutes").
		WithArgs(serviceID, providerID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "provider_id", "name", "kind", "duration_minutes"}))

	svc, err := store.GetService(context.Background(), providerID, serviceID)
	if err != nil {
		t.Fatalf("get service: %v", err)
	}
	if svc != nil {
		t.Fatalf("expected nil for missing service, got %+v", svc)
	}
}

func TestStoreListOverlappingUsesHalfOpenBounds(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := &Store{pool: mock}
	providerID := uuid.New()
	start := time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	// starts_at is compared to the candidate end, ends_at to the start.
	mock.ExpectQuery("SELECT").
		WithArgs(providerID, end, start, uuid.Nil).
		WillReturnRows(apptRow(pgxmock.NewRows(apptRowColumns), uuid.New(), providerID, start))

	appts, err := store.ListOverlapping(context.Background(), providerID, start, end, uuid.Nil)
	if err != nil {
		t.Fatalf("list overlapping: %v", err)
	}
	if len(appts) != 1 {
		t.Fatalf("expected 1 row, got %d", len(appts))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestStoreListPassesNilOptionalFilters(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := &Store{pool: mock}
	providerID := uuid.New()
	from := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	mock.ExpectQuery("SELECT").
		WithArgs(providerID, from, to, nil, nil).
		WillReturnRows(pgxmock.NewRows(apptRowColumns))

	if _, err := store.List(context.Background(), providerID, ListFilter{From: from, To: to}); err != nil {
		t.Fatalf("list: %v", err)
	}

	clientID := uuid.New()
	mock.ExpectQuery("SELECT").
		WithArgs(providerID, from, to, clientID, "scheduled").
		WillReturnRows(pgxmock.NewRows(apptRowColumns))

	if _, err := store.List(context.Background(), providerID, ListFilter{
		From: from, To: to, ClientID: clientID, Status: StatusScheduled,
	}); err != nil {
		t.Fatalf("list with filters: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestStoreSetStatusReportsMissingRow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := &Store{pool: mock}
	providerID := uuid.New()
	id := uuid.New()
	mock.ExpectExec("UPDATE appointments").
		WithArgs(StatusCancelled, "", id, providerID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err := store.SetStatus(context.Background(), nil, providerID, id, StatusCancelled, "")
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if ok {
		t.Fatal("expected false when no row matched")
	}
}

func TestStoreCancelFutureWeeklyReturnsAffected(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := &Store{pool: mock}
	providerID := uuid.New()
	clientID := uuid.New()
	serviceID := uuid.New()
	from := time.Now()

	mock.ExpectExec("UPDATE appointments").
		WithArgs(providerID, clientID, serviceID, from).
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))

	n, err := store.CancelFutureWeekly(context.Background(), providerID, clientID, serviceID, from)
	if err != nil {
		t.Fatalf("cancel future weekly: %v", err)
	}
	if n != 3 {
		t.Fatalf("affected %d, want 3", n)
	}
}

func TestStoreInsertBatchRunsInTransaction(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := &Store{pool: mock}
	appts := []*Appointment{
		{ID: uuid.New(), Recurrence: RecurrenceWeekly, Status: StatusScheduled},
		{ID: uuid.New(), Recurrence: RecurrenceWeekly, Status: StatusScheduled},
	}

	mock.ExpectBegin()
	for range appts {
		mock.ExpectExec("INSERT INTO appointments").
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	mock.ExpectCommit()
	mock.ExpectRollback()

	if err := store.InsertBatch(context.Background(), appts); err != nil {
		t.Fatalf("insert batch: %v", err)
	}
}

func TestStoreRescheduleRunsInTransaction(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := &Store{pool: mock}
	providerID := uuid.New()
	originalID := uuid.New()
	successor := &Appointment{
		ID:            uuid.New(),
		ProviderID:    providerID,
		ClientID:      uuid.New(),
		ServiceID:     uuid.New(),
		StartsAt:      time.Now(),
		EndsAt:        time.Now().Add(time.Hour),
		Recurrence:    RecurrenceSingle,
		Status:        StatusScheduled,
		PredecessorID: &originalID,
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO appointments").
		WithArgs(successor.ID, providerID, successor.ClientID, successor.ServiceID,
			successor.StartsAt, successor.EndsAt, successor.Recurrence, successor.Status, "", &originalID).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE appointments").
		WithArgs(StatusRescheduled, "cliente pediu", originalID, providerID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()
	mock.ExpectRollback()

	ok, err := store.Reschedule(context.Background(), successor, originalID, "cliente pediu")
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if !ok {
		t.Fatal("expected true when the original matched")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestStoreRescheduleRollsBackWhenStatusUpdateFails(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := &Store{pool: mock}
	providerID := uuid.New()
	originalID := uuid.New()
	successor := &Appointment{
		ID:            uuid.New(),
		ProviderID:    providerID,
		Recurrence:    RecurrenceSingle,
		Status:        StatusScheduled,
		PredecessorID: &originalID,
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE appointments").
		WithArgs(StatusRescheduled, "", originalID, providerID).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	if _, err := store.Reschedule(context.Background(), successor, originalID, ""); err == nil {
		t.Fatal("expected error when the status update fails")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestStoreRescheduleMissingOriginalRollsBack(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := &Store{pool: mock}
	providerID := uuid.New()
	originalID := uuid.New()
	successor := &Appointment{
		ID:            uuid.New(),
		ProviderID:    providerID,
		Recurrence:    RecurrenceSingle,
		Status:        StatusScheduled,
		PredecessorID: &originalID,
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE appointments").
		WithArgs(StatusRescheduled, "", originalID, providerID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	ok, err := store.Reschedule(context.Background(), successor, originalID, "")
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if ok {
		t.Fatal("expected false when the original vanished")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestStoreCountByStatusBetween(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := &Store{pool: mock}
	providerID := uuid.New()
	from := time.Now()
	to := from.AddDate(0, 0, 7)

	mock.ExpectQuery("SELECT count").
		WithArgs(providerID, StatusCompleted, from, to).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(5))

	n, err := store.CountByStatusBetween(context.Background(), providerID, StatusCompleted, from, to)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 5 {
		t.Fatalf("count %d, want 5", n)
	}
}
