// Package providers holds the trainer accounts that own calendars, clients
// and messaging instances.
package providers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Provider is one trainer account. Phone is the registered WhatsApp number
// used to resolve inbound commands; WhatsAppInstance is the gateway instance
// that sends on the provider's behalf.
type Provider struct {
	ID               uuid.UUID
	Name             string
	Email            string
	Phone            string
	WhatsAppInstance string
	Timezone         string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// PgxPool is the pool surface the store needs.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists providers in Postgres.
type Store struct {
	pool PgxPool
}

func NewStore(pool PgxPool) *Store {
	if pool == nil {
		return nil
	}
	return &Store{pool: pool}
}

const providerColumns = `
	id, name, email, phone, COALESCE(whatsapp_instance, ''), timezone,
	created_at, updated_at`

func scanProvider(row pgx.Row) (*Provider, error) {
	var p Provider
	if err := row.Scan(
		&p.ID, &p.Name, &p.Email, &p.Phone, &p.WhatsAppInstance, &p.Timezone,
		&p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

// Get loads one provider; nil when absent.
func (st *Store) Get(ctx context.Context, id uuid.UUID) (*Provider, error) {
	query := `
		SELECT ` + providerColumns + `
		FROM providers
		WHERE id = $1 AND deleted_at IS NULL
	`
	p, err := scanProvider(st.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("providers: get: %w", err)
	}
	return p, nil
}

// GetByPhone resolves a provider from an inbound sender number. The match is
// on digits only, so gateway formats like "5511999998888@s.whatsapp.net"
// must be stripped by the caller first.
func (st *Store) GetByPhone(ctx context.Context, digits string) (*Provider, error) {
	query := `
		SELECT ` + providerColumns + `
		FROM providers
		WHERE regexp_replace(phone, '\D', '', 'g') = $1 AND deleted_at IS NULL
	`
	p, err := scanProvider(st.pool.QueryRow(ctx, query, digits))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("providers: get by phone: %w", err)
	}
	return p, nil
}

// ListAll returns every provider, used by the scheduled trigger runner.
func (st *Store) ListAll(ctx context.Context) ([]Provider, error) {
	query := `
		SELECT ` + providerColumns + `
		FROM providers
		WHERE deleted_at IS NULL
		ORDER BY created_at ASC
	`
	rows, err := st.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("providers: list all: %w", err)
	}
	defer rows.Close()

	var out []Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, fmt.Errorf("providers: scan: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// UpdateInstance sets the provider's gateway instance name.
func (st *Store) UpdateInstance(ctx context.Context, id uuid.UUID, instance string) (bool, error) {
	query := `
		UPDATE providers
		SET whatsapp_instance = $1, updated_at = now()
		WHERE id = $2 AND deleted_at IS NULL
	`
	ct, err := st.pool.Exec(ctx, query, instance, id)
	if err != nil {
		return false, fmt.Errorf("providers: update instance: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}
