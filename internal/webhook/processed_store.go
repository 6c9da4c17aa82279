// Package webhook receives inbound gateway messages, deduplicates them by
// content hash and answers short schedule commands.
package webhook

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type rowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ProcessedStore records inbound messages that were already handled, keyed
// by a content hash of (sender, text, gateway timestamp).
type ProcessedStore struct {
	pool rowQuerier
}

func NewProcessedStore(pool *pgxpool.Pool) *ProcessedStore {
	if pool == nil {
		panic("webhook: pgx pool required")
	}
	return &ProcessedStore{pool: pool}
}

func newProcessedStoreWithExec(exec rowQuerier) *ProcessedStore {
	if exec == nil {
		panic("webhook: exec required")
	}
	return &ProcessedStore{pool: exec}
}

// ContentHash derives the dedup key for one inbound message. The gateway
// retries deliveries with identical payloads, so identical tuples must map
// to the same hash.
func ContentHash(sender, text string, timestamp int64) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s|%s|%d", sender, text, timestamp))
	return hex.EncodeToString(sum[:])
}

// MarkProcessed inserts a hash, returning false when it was already present.
// The insert is the idempotency gate, so concurrent duplicate deliveries
// cannot both win.
func (s *ProcessedStore) MarkProcessed(ctx context.Context, hash string) (bool, error) {
	query := `
		INSERT INTO inbound_messages (hash)
		VALUES ($1)
		ON CONFLICT DO NOTHING
	`
	ct, err := s.pool.Exec(ctx, query, hash)
	if err != nil {
		return false, fmt.Errorf("webhook: mark processed: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

// AlreadyProcessed checks whether a hash was seen before.
func (s *ProcessedStore) AlreadyProcessed(ctx context.Context, hash string) (bool, error) {
	var exists int
	err := s.pool.QueryRow(ctx,
		`SELECT 1 FROM inbound_messages WHERE hash = $1`, hash).Scan(&exists)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("webhook: check processed: %w", err)
	}
	return true, nil
}

// PurgeOlderThan drops hashes recorded before the cutoff. Gateway retries
// arrive within minutes, so old hashes only take up index space.
func (s *ProcessedStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	ct, err := s.pool.Exec(ctx,
		`DELETE FROM inbound_messages WHERE received_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("webhook: purge processed: %w", err)
	}
	return ct.RowsAffected(), nil
}
