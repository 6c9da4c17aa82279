package contracts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the pool surface the store needs.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists contracts in Postgres.
type Store struct {
	pool PgxPool
}

func NewStore(pool PgxPool) *Store {
	if pool == nil {
		return nil
	}
	return &Store{pool: pool}
}

const contractColumns = `
	ct.id, ct.provider_id, ct.client_id, ct.service_id, ct.status,
	ct.start_date, ct.due_date, ct.monthly_amount_cents,
	ct.created_at, ct.updated_at, c.name, s.name`

const contractJoins = `
	JOIN clients c ON c.id = ct.client_id
	JOIN services s ON s.id = ct.service_id`

func scanContract(row pgx.Row) (*Contract, error) {
	var c Contract
	if err := row.Scan(
		&c.ID, &c.ProviderID, &c.ClientID, &c.ServiceID, &c.Status,
		&c.StartDate, &c.DueDate, &c.MonthlyAmountCents,
		&c.CreatedAt, &c.UpdatedAt, &c.ClientName, &c.ServiceName,
	); err != nil {
		return nil, err
	}
	return &c, nil
}

// HasActiveContract reports whether the (client, service) pair has at least
// one active contract under the provider.
func (st *Store) HasActiveContract(ctx context.Context, providerID, clientID, serviceID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM contracts
			WHERE provider_id = $1
			  AND client_id = $2
			  AND service_id = $3
			  AND status = 'active'
			  AND deleted_at IS NULL
		)
	`
	var exists bool
	if err := st.pool.QueryRow(ctx, query, providerID, clientID, serviceID).Scan(&exists); err != nil {
		return false, fmt.Errorf("contracts: check active: %w", err)
	}
	return exists, nil
}

// Insert persists one contract row.
func (st *Store) Insert(ctx context.Context, c *Contract) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = StatusActive
	}
	query := `
		INSERT INTO contracts (
			id, provider_id, client_id, service_id, status,
			start_date, due_date, monthly_amount_cents
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`
	_, err := st.pool.Exec(ctx, query,
		c.ID, c.ProviderID, c.ClientID, c.ServiceID, c.Status,
		c.StartDate, c.DueDate, c.MonthlyAmountCents)
	if err != nil {
		return fmt.Errorf("contracts: insert: %w", err)
	}
	return nil
}

// Get loads one contract scoped to the provider; nil when absent.
func (st *Store) Get(ctx context.Context, providerID, id uuid.UUID) (*Contract, error) {
	query := `
		SELECT ` + contractColumns + `
		FROM contracts ct` + contractJoins + `
		WHERE ct.id = $1 AND ct.provider_id = $2 AND ct.deleted_at IS NULL
	`
	c, err := scanContract(st.pool.QueryRow(ctx, query, id, providerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("contracts: get: %w", err)
	}
	return c, nil
}

// List returns the provider's contracts, optionally narrowed by client and
// status, newest first.
func (st *Store) List(ctx context.Context, providerID uuid.UUID, clientID uuid.UUID, status Status) ([]Contract, error) {
	query := `
		SELECT ` + contractColumns + `
		FROM contracts ct` + contractJoins + `
		WHERE ct.provider_id = $1
		  AND ct.deleted_at IS NULL
		  AND ($2::uuid IS NULL OR ct.client_id = $2)
		  AND ($3::text IS NULL OR ct.status = $3)
		ORDER BY ct.created_at DESC
	`
	var client any
	if clientID != uuid.Nil {
		client = clientID
	}
	var st2 any
	if status != "" {
		st2 = string(status)
	}
	rows, err := st.pool.Query(ctx, query, providerID, client, st2)
	if err != nil {
		return nil, fmt.Errorf("contracts: list: %w", err)
	}
	defer rows.Close()

	var out []Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, fmt.Errorf("contracts: scan: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// SetStatus updates one contract's status, returning false when no row
// matched.
func (st *Store) SetStatus(ctx context.Context, providerID, id uuid.UUID, status Status) (bool, error) {
	query := `
		UPDATE contracts
		SET status = $1, updated_at = now()
		WHERE id = $2 AND provider_id = $3 AND deleted_at IS NULL
	`
	ct, err := st.pool.Exec(ctx, query, status, id, providerID)
	if err != nil {
		return false, fmt.Errorf("contracts: set status: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

// AdvanceDueDate moves the due date one month forward, used after a payment
// is registered.
func (st *Store) AdvanceDueDate(ctx context.Context, providerID, id uuid.UUID) (bool, error) {
	query := `
		UPDATE contracts
		SET due_date = due_date + interval '1 month', updated_at = now()
		WHERE id = $1 AND provider_id = $2 AND status = 'active' AND deleted_at IS NULL
	`
	ct, err := st.pool.Exec(ctx, query, id, providerID)
	if err != nil {
		return false, fmt.Errorf("contracts: advance due date: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

// ListExpiringWithin returns active contracts across all providers whose due
// date falls inside [from, to], with client and provider delivery data.
func (st *Store) ListExpiringWithin(ctx context.Context, from, to time.Time) ([]ExpiringContract, error) {
	query := `
		SELECT ` + contractColumns + `,
			c.whatsapp_phone, c.notifications_enabled, COALESCE(p.whatsapp_instance, '')
		FROM contracts ct` + contractJoins + `
		JOIN providers p ON p.id = ct.provider_id
		WHERE ct.status = 'active'
		  AND ct.deleted_at IS NULL
		  AND ct.due_date >= $1
		  AND ct.due_date <= $2
		ORDER BY ct.due_date ASC
	`
	rows, err := st.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("contracts: list expiring: %w", err)
	}
	defer rows.Close()

	var out []ExpiringContract
	for rows.Next() {
		var ec ExpiringContract
		if err := rows.Scan(
			&ec.ID, &ec.ProviderID, &ec.ClientID, &ec.ServiceID, &ec.Status,
			&ec.StartDate, &ec.DueDate, &ec.MonthlyAmountCents,
			&ec.CreatedAt, &ec.UpdatedAt, &ec.ClientName, &ec.ServiceName,
			&ec.ClientPhone, &ec.NotificationsEnabled, &ec.ProviderInstance,
		); err != nil {
			return nil, fmt.Errorf("contracts: scan expiring: %w", err)
		}
		out = append(out, ec)
	}
	return out, rows.Err()
}

// ListDueForProvider returns the provider's active contracts with due dates
// up to the horizon, used by the VENCIMENTOS inbound command.
func (st *Store) ListDueForProvider(ctx context.Context, providerID uuid.UUID, to time.Time) ([]Contract, error) {
	query := `
		SELECT ` + contractColumns + `
		FROM contracts ct` + contractJoins + `
		WHERE ct.provider_id = $1
		  AND ct.status = 'active'
		  AND ct.deleted_at IS NULL
		  AND ct.due_date <= $2
		ORDER BY ct.due_date ASC
	`
	rows, err := st.pool.Query(ctx, query, providerID, to)
	if err != nil {
		return nil, fmt.Errorf("contracts: list due: %w", err)
	}
	defer rows.Close()

	var out []Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, fmt.Errorf("contracts: scan due: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}
