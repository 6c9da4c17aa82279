package clients

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

var clientRowColumns = []string{
	"id", "provider_id", "name", "whatsapp_phone", "notifications_enabled",
	"notes", "created_at", "updated_at",
}

func TestStoreInsertAssignsID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := &Store{pool: mock}
	c := &Client{
		ProviderID:           uuid.New(),
		Name:                 "Maria",
		WhatsAppPhone:        "(11) 98765-4321",
		NotificationsEnabled: true,
	}

	mock.ExpectExec("INSERT INTO clients").
		WithArgs(pgxmock.AnyArg(), c.ProviderID, "Maria", "(11) 98765-4321", true, "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := store.Insert(context.Background(), c); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if c.ID == uuid.Nil {
		t.Fatal("insert must assign an id")
	}
}

func TestStoreGetScopesToProvider(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := &Store{pool: mock}
	providerID := uuid.New()
	id := uuid.New()
	now := time.Now()

	mock.ExpectQuery("FROM clients").
		WithArgs(id, providerID).
		WillReturnRows(pgxmock.NewRows(clientRowColumns).AddRow(
			id, providerID, "Maria", "5511987654321", true, "", now, now,
		))

	c, err := store.Get(context.Background(), providerID, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if c == nil || c.ID != id {
		t.Fatalf("wrong client: %+v", c)
	}

	mock.ExpectQuery("FROM clients").
		WithArgs(id, uuid.Nil).
		WillReturnRows(pgxmock.NewRows(clientRowColumns))

	c, err = store.Get(context.Background(), uuid.Nil, id)
	if err != nil {
		t.Fatalf("get miss: %v", err)
	}
	if c != nil {
		t.Fatalf("other provider's client must be invisible, got %+v", c)
	}
}

func TestStoreListOrdersRoster(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := &Store{pool: mock}
	providerID := uuid.New()
	now := time.Now()

	mock.ExpectQuery("FROM clients").
		WithArgs(providerID).
		WillReturnRows(pgxmock.NewRows(clientRowColumns).
			AddRow(uuid.New(), providerID, "Ana", "5511911111111", true, "", now, now).
			AddRow(uuid.New(), providerID, "Bruno", "5511922222222", false, "mensal", now, now))

	out, err := store.List(context.Background(), providerID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d clients, want 2", len(out))
	}
	if out[1].Notes != "mensal" {
		t.Fatalf("notes %q", out[1].Notes)
	}
}

func TestStoreUpdateReportsMissingRow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := &Store{pool: mock}
	c := &Client{ID: uuid.New(), ProviderID: uuid.New(), Name: "Maria"}

	mock.ExpectExec("UPDATE clients").
		WithArgs("Maria", "", false, "", c.ID, c.ProviderID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err := store.Update(context.Background(), c)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if ok {
		t.Fatal("missing row must not report an update")
	}
}

func TestStoreSetNotificationsEnabled(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := &Store{pool: mock}
	providerID := uuid.New()
	id := uuid.New()

	mock.ExpectExec("UPDATE clients").
		WithArgs(false, id, providerID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	ok, err := store.SetNotificationsEnabled(context.Background(), providerID, id, false)
	if err != nil {
		t.Fatalf("set notifications: %v", err)
	}
	if !ok {
		t.Fatal("expected the toggle to land")
	}
}

func TestStoreSoftDelete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := &Store{pool: mock}
	providerID := uuid.New()
	id := uuid.New()

	mock.ExpectExec("UPDATE clients").
		WithArgs(id, providerID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	ok, err := store.SoftDelete(context.Background(), providerID, id)
	if err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if !ok {
		t.Fatal("expected the delete to land")
	}

	mock.ExpectExec("UPDATE clients").
		WithArgs(id, providerID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err = store.SoftDelete(context.Background(), providerID, id)
	if err != nil {
		t.Fatalf("soft delete again: %v", err)
	}
	if ok {
		t.Fatal("second delete must be a no-op")
	}
}
