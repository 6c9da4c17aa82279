package webhook

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestMarkProcessedFirstInsertWins(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := newProcessedStoreWithExec(mock)
	hash := ContentHash("5511987654321", "HOJE", 1717405200)

	mock.ExpectExec("INSERT INTO inbound_messages").
		WithArgs(hash).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO inbound_messages").
		WithArgs(hash).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	first, err := store.MarkProcessed(context.Background(), hash)
	if err != nil {
		t.Fatalf("mark processed: %v", err)
	}
	if !first {
		t.Fatal("first insert must win")
	}

	second, err := store.MarkProcessed(context.Background(), hash)
	if err != nil {
		t.Fatalf("mark processed again: %v", err)
	}
	if second {
		t.Fatal("conflicting insert must report already processed")
	}
}

func TestAlreadyProcessed(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := newProcessedStoreWithExec(mock)
	hash := ContentHash("5511987654321", "HOJE", 1)

	mock.ExpectQuery("SELECT 1 FROM inbound_messages").
		WithArgs(hash).
		WillReturnRows(pgxmock.NewRows([]string{"one"}).AddRow(1))

	seen, err := store.AlreadyProcessed(context.Background(), hash)
	if err != nil {
		t.Fatalf("already processed: %v", err)
	}
	if !seen {
		t.Fatal("expected seen=true")
	}

	mock.ExpectQuery("SELECT 1 FROM inbound_messages").
		WithArgs(hash).
		WillReturnRows(pgxmock.NewRows([]string{"one"}))

	seen, err = store.AlreadyProcessed(context.Background(), hash)
	if err != nil {
		t.Fatalf("already processed miss: %v", err)
	}
	if seen {
		t.Fatal("expected seen=false for missing hash")
	}
}

func TestProcessedPurgeOlderThan(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := newProcessedStoreWithExec(mock)
	cutoff := time.Now().AddDate(0, 0, -90)

	mock.ExpectExec("DELETE FROM inbound_messages").
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 12))

	n, err := store.PurgeOlderThan(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 12 {
		t.Fatalf("purged %d, want 12", n)
	}
}
