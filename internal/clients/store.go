// Package clients persists the provider's client roster.
package clients

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Client is one student/customer of a provider. WhatsAppPhone is stored as
// entered; normalization happens at dispatch time.
type Client struct {
	ID                   uuid.UUID
	ProviderID           uuid.UUID
	Name                 string
	WhatsAppPhone        string
	NotificationsEnabled bool
	Notes                string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// PgxPool is the pool surface the store needs.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists clients in Postgres.
type Store struct {
	pool PgxPool
}

func NewStore(pool PgxPool) *Store {
	if pool == nil {
		return nil
	}
	return &Store{pool: pool}
}

const clientColumns = `
	id, provider_id, name, whatsapp_phone, notifications_enabled,
	notes, created_at, updated_at`

func scanClient(row pgx.Row) (*Client, error) {
	var c Client
	if err := row.Scan(
		&c.ID, &c.ProviderID, &c.Name, &c.WhatsAppPhone, &c.NotificationsEnabled,
		&c.Notes, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &c, nil
}

// Insert persists one client row.
func (st *Store) Insert(ctx context.Context, c *Client) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	query := `
		INSERT INTO clients (id, provider_id, name, whatsapp_phone, notifications_enabled, notes)
		VALUES ($1,$2,$3,$4,$5,$6)
	`
	_, err := st.pool.Exec(ctx, query,
		c.ID, c.ProviderID, c.Name, c.WhatsAppPhone, c.NotificationsEnabled, c.Notes)
	if err != nil {
		return fmt.Errorf("clients: insert: %w", err)
	}
	return nil
}

// Get loads one client scoped to the provider; nil when absent.
func (st *Store) Get(ctx context.Context, providerID, id uuid.UUID) (*Client, error) {
	query := `
		SELECT ` + clientColumns + `
		FROM clients
		WHERE id = $1 AND provider_id = $2 AND deleted_at IS NULL
	`
	c, err := scanClient(st.pool.QueryRow(ctx, query, id, providerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("clients: get: %w", err)
	}
	return c, nil
}

// List returns the provider's clients ordered by name.
func (st *Store) List(ctx context.Context, providerID uuid.UUID) ([]Client, error) {
	query := `
		SELECT ` + clientColumns + `
		FROM clients
		WHERE provider_id = $1 AND deleted_at IS NULL
		ORDER BY name ASC
	`
	rows, err := st.pool.Query(ctx, query, providerID)
	if err != nil {
		return nil, fmt.Errorf("clients: list: %w", err)
	}
	defer rows.Close()

	var out []Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("clients: scan: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// Update patches the mutable fields of a client.
func (st *Store) Update(ctx context.Context, c *Client) (bool, error) {
	query := `
		UPDATE clients
		SET name = $1, whatsapp_phone = $2, notifications_enabled = $3,
			notes = $4, updated_at = now()
		WHERE id = $5 AND provider_id = $6 AND deleted_at IS NULL
	`
	ct, err := st.pool.Exec(ctx, query,
		c.Name, c.WhatsAppPhone, c.NotificationsEnabled, c.Notes, c.ID, c.ProviderID)
	if err != nil {
		return false, fmt.Errorf("clients: update: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

// SetNotificationsEnabled toggles the client's reminder opt-in.
func (st *Store) SetNotificationsEnabled(ctx context.Context, providerID, id uuid.UUID, enabled bool) (bool, error) {
	query := `
		UPDATE clients
		SET notifications_enabled = $1, updated_at = now()
		WHERE id = $2 AND provider_id = $3 AND deleted_at IS NULL
	`
	ct, err := st.pool.Exec(ctx, query, enabled, id, providerID)
	if err != nil {
		return false, fmt.Errorf("clients: set notifications: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

// SoftDelete hides a client from all queries without dropping history.
func (st *Store) SoftDelete(ctx context.Context, providerID, id uuid.UUID) (bool, error) {
	query := `
		UPDATE clients
		SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND provider_id = $2 AND deleted_at IS NULL
	`
	ct, err := st.pool.Exec(ctx, query, id, providerID)
	if err != nil {
		return false, fmt.Errorf("clients: soft delete: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}
