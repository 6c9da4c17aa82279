package notify

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestLogStoreInsertDefaultsIDAndTimestamp(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := &LogStore{pool: mock}
	entry := &LogEntry{
		ProviderID: uuid.New(),
		Kind:       KindDailySummary,
		Channel:    "whatsapp",
		Message:    "agenda",
		Status:     StatusSent,
	}
	mock.ExpectExec("INSERT INTO notification_log").
		WithArgs(pgxmock.AnyArg(), entry.ProviderID, (*uuid.UUID)(nil), entry.Kind,
			"whatsapp", "agenda", StatusSent, (*uuid.UUID)(nil), (*uuid.UUID)(nil),
			false, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := store.Insert(context.Background(), entry); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if entry.ID == uuid.Nil {
		t.Fatal("insert must assign an ID")
	}
	if entry.SentAt.IsZero() {
		t.Fatal("insert must assign a timestamp")
	}
}

func TestLogStoreWasSentMatchesNilRelatedIDs(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := &LogStore{pool: mock}
	providerID := uuid.New()
	from := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(providerID, KindDailySummary, (*uuid.UUID)(nil), (*uuid.UUID)(nil), from, to).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	sent, err := store.WasSent(context.Background(), providerID, KindDailySummary, nil, nil, from, to)
	if err != nil {
		t.Fatalf("was sent: %v", err)
	}
	if !sent {
		t.Fatal("expected sent=true")
	}

	apptID := uuid.New()
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(providerID, KindSessionReminder, &apptID, (*uuid.UUID)(nil), from, to).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	sent, err = store.WasSent(context.Background(), providerID, KindSessionReminder, &apptID, nil, from, to)
	if err != nil {
		t.Fatalf("was sent with appointment: %v", err)
	}
	if sent {
		t.Fatal("expected sent=false")
	}
}

func TestLogStoreListCapsLimit(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := &LogStore{pool: mock}
	providerID := uuid.New()
	cols := []string{"id", "provider_id", "client_id", "kind", "channel", "message", "status",
		"appointment_id", "contract_id", "read", "sent_at"}

	// Out-of-range limits fall back to 100.
	mock.ExpectQuery("SELECT").
		WithArgs(providerID, 100).
		WillReturnRows(pgxmock.NewRows(cols))

	if _, err := store.List(context.Background(), providerID, 9999); err != nil {
		t.Fatalf("list: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestLogStoreMarkAllRead(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := &LogStore{pool: mock}
	providerID := uuid.New()
	mock.ExpectExec("UPDATE notification_log").
		WithArgs(providerID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 7))

	n, err := store.MarkAllRead(context.Background(), providerID)
	if err != nil {
		t.Fatalf("mark all read: %v", err)
	}
	if n != 7 {
		t.Fatalf("acknowledged %d, want 7", n)
	}
}

func TestLogStorePurgeOlderThan(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := &LogStore{pool: mock}
	cutoff := time.Now().AddDate(0, 0, -90)
	mock.ExpectExec("DELETE FROM notification_log").
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 42))

	n, err := store.PurgeOlderThan(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 42 {
		t.Fatalf("purged %d, want 42", n)
	}
}
