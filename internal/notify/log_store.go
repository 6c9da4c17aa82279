package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the pool surface the log store needs.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// LogStore persists notification log entries in Postgres.
type LogStore struct {
	pool PgxPool
}

func NewLogStore(pool PgxPool) *LogStore {
	if pool == nil {
		return nil
	}
	return &LogStore{pool: pool}
}

// Insert records one dispatch attempt.
func (st *LogStore) Insert(ctx context.Context, e *LogEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.SentAt.IsZero() {
		e.SentAt = time.Now()
	}
	query := `
		INSERT INTO notification_log (
			id, provider_id, client_id, kind, channel, message, status,
			appointment_id, contract_id, read, sent_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`
	_, err := st.pool.Exec(ctx, query,
		e.ID, e.ProviderID, e.ClientID, e.Kind, e.Channel, e.Message, e.Status,
		e.AppointmentID, e.ContractID, e.Read, e.SentAt)
	if err != nil {
		return fmt.Errorf("notify: insert log entry: %w", err)
	}
	return nil
}

// WasSent reports whether a sent entry exists for the dedup tuple inside
// [from, to). Nil related IDs match only entries with the same nil column, so
// per-provider kinds (summaries) and per-entity kinds (reminders) do not
// shadow each other.
func (st *LogStore) WasSent(ctx context.Context, providerID uuid.UUID, kind Kind, appointmentID, contractID *uuid.UUID, from, to time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM notification_log
			WHERE provider_id = $1
			  AND kind = $2
			  AND status = 'sent'
			  AND appointment_id IS NOT DISTINCT FROM $3
			  AND contract_id IS NOT DISTINCT FROM $4
			  AND sent_at >= $5
			  AND sent_at < $6
		)
	`
	var exists bool
	err := st.pool.QueryRow(ctx, query, providerID, kind, appointmentID, contractID, from, to).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("notify: check sent: %w", err)
	}
	return exists, nil
}

// List returns the provider's newest entries, capped at limit.
func (st *LogStore) List(ctx context.Context, providerID uuid.UUID, limit int) ([]LogEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := `
		SELECT id, provider_id, client_id, kind, channel, message, status,
			appointment_id, contract_id, read, sent_at
		FROM notification_log
		WHERE provider_id = $1
		ORDER BY sent_at DESC
		LIMIT $2
	`
	rows, err := st.pool.Query(ctx, query, providerID, limit)
	if err != nil {
		return nil, fmt.Errorf("notify: list log: %w", err)
	}
	defer rows.Close()

	var out []LogEntry
	for rows.Next() {
		var e LogEntry
		if err := rows.Scan(
			&e.ID, &e.ProviderID, &e.ClientID, &e.Kind, &e.Channel, &e.Message, &e.Status,
			&e.AppointmentID, &e.ContractID, &e.Read, &e.SentAt,
		); err != nil {
			return nil, fmt.Errorf("notify: scan log entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountUnread returns how many entries the provider has not acknowledged.
func (st *LogStore) CountUnread(ctx context.Context, providerID uuid.UUID) (int, error) {
	var n int
	err := st.pool.QueryRow(ctx,
		`SELECT count(*) FROM notification_log WHERE provider_id = $1 AND NOT read`,
		providerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("notify: count unread: %w", err)
	}
	return n, nil
}

// MarkAllRead acknowledges every unread entry for the provider.
func (st *LogStore) MarkAllRead(ctx context.Context, providerID uuid.UUID) (int64, error) {
	ct, err := st.pool.Exec(ctx,
		`UPDATE notification_log SET read = TRUE WHERE provider_id = $1 AND NOT read`,
		providerID)
	if err != nil {
		return 0, fmt.Errorf("notify: mark all read: %w", err)
	}
	return ct.RowsAffected(), nil
}

// PurgeOlderThan drops entries sent before the cutoff. Retention keeps the
// audit log bounded; the dedup window is always today, so old rows are dead
// weight.
func (st *LogStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	ct, err := st.pool.Exec(ctx,
		`DELETE FROM notification_log WHERE sent_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("notify: purge log: %w", err)
	}
	return ct.RowsAffected(), nil
}
