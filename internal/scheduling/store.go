package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of pgx executed by store helpers, satisfied by pools,
// connections and transactions.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgxPool is the pool surface the store needs.
type PgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists appointments and services in Postgres.
type Store struct {
	pool PgxPool
}

func NewStore(pool PgxPool) *Store {
	if pool == nil {
		return nil
	}
	return &Store{pool: pool}
}

const appointmentColumns = `
	a.id, a.provider_id, a.client_id, a.service_id,
	a.starts_at, a.ends_at, a.recurrence, a.status, a.notes,
	a.predecessor_id, a.created_at, a.updated_at,
	c.name, c.whatsapp_phone, s.name, s.kind`

const appointmentJoins = `
	JOIN clients c ON c.id = a.client_id
	JOIN services s ON s.id = a.service_id`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	if err := row.Scan(
		&a.ID, &a.ProviderID, &a.ClientID, &a.ServiceID,
		&a.StartsAt, &a.EndsAt, &a.Recurrence, &a.Status, &a.Notes,
		&a.PredecessorID, &a.CreatedAt, &a.UpdatedAt,
		&a.ClientName, &a.ClientPhone, &a.ServiceName, &a.ServiceKind,
	); err != nil {
		return nil, err
	}
	return &a, nil
}

// GetService loads a service owned by the provider; nil when absent.
func (st *Store) GetService(ctx context.Context, providerID, serviceID uuid.UUID) (*Service, error) {
	query := `
		SELECT id, provider_id, name, kind, duration_minutes
		FROM services
		WHERE id = $1 AND provider_id = $2 AND deleted_at IS NULL
	`
	var s Service
	err := st.pool.QueryRow(ctx, query, serviceID, providerID).
		Scan(&s.ID, &s.ProviderID, &s.Name, &s.Kind, &s.DurationMinutes)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scheduling: get service: %w", err)
	}
	return &s, nil
}

// Get loads one appointment scoped to the provider; nil when absent.
func (st *Store) Get(ctx context.Context, providerID, id uuid.UUID) (*Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments a` + appointmentJoins + `
		WHERE a.id = $1 AND a.provider_id = $2 AND a.deleted_at IS NULL
	`
	appt, err := scanAppointment(st.pool.QueryRow(ctx, query, id, providerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scheduling: get appointment: %w", err)
	}
	return appt, nil
}

// Insert persists one appointment row.
func (st *Store) Insert(ctx context.Context, q Querier, a *Appointment) error {
	if q == nil {
		q = st.pool
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	query := `
		INSERT INTO appointments (
			id, provider_id, client_id, service_id,
			starts_at, ends_at, recurrence, status, notes, predecessor_id
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`
	_, err := q.Exec(ctx, query,
		a.ID, a.ProviderID, a.ClientID, a.ServiceID,
		a.StartsAt, a.EndsAt, a.Recurrence, a.Status, a.Notes, a.PredecessorID)
	if err != nil {
		return fmt.Errorf("scheduling: insert appointment: %w", err)
	}
	return nil
}

// InsertBatch persists a recurrence series atomically.
func (st *Store) InsertBatch(ctx context.Context, appts []*Appointment) error {
	tx, err := st.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("scheduling: begin insert batch: %w", err)
	}
	defer tx.Rollback(ctx)
	for _, a := range appts {
		if err := st.Insert(ctx, tx, a); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("scheduling: commit insert batch: %w", err)
	}
	return nil
}

// Reschedule persists the successor and flips the original to rescheduled in
// one transaction, so a failed status update never leaves both rows
// scheduled. Returns false when the original no longer matches.
func (st *Store) Reschedule(ctx context.Context, successor *Appointment, originalID uuid.UUID, reason string) (bool, error) {
	tx, err := st.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("scheduling: begin reschedule: %w", err)
	}
	defer tx.Rollback(ctx)
	if err := st.Insert(ctx, tx, successor); err != nil {
		return false, err
	}
	ok, err := st.SetStatus(ctx, tx, successor.ProviderID, originalID, StatusRescheduled, reason)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("scheduling: commit reschedule: %w", err)
	}
	return true, nil
}

// ListOverlapping returns the provider's scheduled/completed appointments
// whose [starts_at, ends_at) interval overlaps [start, end), excluding
// excludeID. Callers still need to filter non-blocking service kinds.
func (st *Store) ListOverlapping(ctx context.Context, providerID uuid.UUID, start, end time.Time, excludeID uuid.UUID) ([]Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments a` + appointmentJoins + `
		WHERE a.provider_id = $1
		  AND a.status IN ('scheduled', 'completed')
		  AND a.deleted_at IS NULL
		  AND a.starts_at < $2
		  AND a.ends_at > $3
		  AND a.id <> $4
	`
	rows, err := st.pool.Query(ctx, query, providerID, end, start, excludeID)
	if err != nil {
		return nil, fmt.Errorf("scheduling: query overlapping: %w", err)
	}
	defer rows.Close()
	return collectAppointments(rows)
}

// List returns appointments in the filter's date range, ordered by start time.
func (st *Store) List(ctx context.Context, providerID uuid.UUID, filter ListFilter) ([]Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments a` + appointmentJoins + `
		WHERE a.provider_id = $1
		  AND a.deleted_at IS NULL
		  AND a.starts_at >= $2
		  AND a.starts_at <= $3
		  AND ($4::uuid IS NULL OR a.client_id = $4)
		  AND ($5::text IS NULL OR a.status = $5)
		ORDER BY a.starts_at ASC
	`
	var clientID any
	if filter.ClientID != uuid.Nil {
		clientID = filter.ClientID
	}
	var status any
	if filter.Status != "" {
		status = string(filter.Status)
	}
	rows, err := st.pool.Query(ctx, query, providerID, filter.From, filter.To, clientID, status)
	if err != nil {
		return nil, fmt.Errorf("scheduling: list appointments: %w", err)
	}
	defer rows.Close()
	return collectAppointments(rows)
}

// ListScheduledBetween returns the provider's scheduled appointments starting
// inside [from, to), ordered by start time.
func (st *Store) ListScheduledBetween(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments a` + appointmentJoins + `
		WHERE a.provider_id = $1
		  AND a.status = 'scheduled'
		  AND a.deleted_at IS NULL
		  AND a.starts_at >= $2
		  AND a.starts_at < $3
		ORDER BY a.starts_at ASC
	`
	rows, err := st.pool.Query(ctx, query, providerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("scheduling: list scheduled: %w", err)
	}
	defer rows.Close()
	return collectAppointments(rows)
}

// ReminderCandidate is one appointment due for a pre-session reminder, with
// the delivery data the dispatcher needs.
type ReminderCandidate struct {
	Appointment
	NotificationsEnabled bool
	ProviderInstance     string
	ProviderTimezone     string
}

// ListRemindersDue returns scheduled appointments across all providers
// starting inside [from, to).
func (st *Store) ListRemindersDue(ctx context.Context, from, to time.Time) ([]ReminderCandidate, error) {
	query := `
		SELECT ` + appointmentColumns + `,
			c.notifications_enabled, COALESCE(p.whatsapp_instance, ''), COALESCE(p.timezone, '')
		FROM appointments a` + appointmentJoins + `
		JOIN providers p ON p.id = a.provider_id
		WHERE a.status = 'scheduled'
		  AND a.deleted_at IS NULL
		  AND a.starts_at >= $1
		  AND a.starts_at < $2
		ORDER BY a.starts_at ASC
	`
	rows, err := st.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("scheduling: list reminders due: %w", err)
	}
	defer rows.Close()

	var out []ReminderCandidate
	for rows.Next() {
		var rc ReminderCandidate
		if err := rows.Scan(
			&rc.ID, &rc.ProviderID, &rc.ClientID, &rc.ServiceID,
			&rc.StartsAt, &rc.EndsAt, &rc.Recurrence, &rc.Status, &rc.Notes,
			&rc.PredecessorID, &rc.CreatedAt, &rc.UpdatedAt,
			&rc.ClientName, &rc.ClientPhone, &rc.ServiceName, &rc.ServiceKind,
			&rc.NotificationsEnabled, &rc.ProviderInstance, &rc.ProviderTimezone,
		); err != nil {
			return nil, fmt.Errorf("scheduling: scan reminder candidate: %w", err)
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}

// SetStatus updates one appointment's status (and notes when non-empty),
// returning false when no row matched.
func (st *Store) SetStatus(ctx context.Context, q Querier, providerID, id uuid.UUID, status Status, notes string) (bool, error) {
	if q == nil {
		q = st.pool
	}
	query := `
		UPDATE appointments
		SET status = $1,
			notes = CASE WHEN $2 <> '' THEN $2 ELSE notes END,
			updated_at = now()
		WHERE id = $3 AND provider_id = $4 AND deleted_at IS NULL
	`
	ct, err := q.Exec(ctx, query, status, notes, id, providerID)
	if err != nil {
		return false, fmt.Errorf("scheduling: set status: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

// UpdateDetails patches the mutable non-lifecycle fields of an appointment.
func (st *Store) UpdateDetails(ctx context.Context, providerID, id uuid.UUID, serviceID uuid.UUID, notes *string, status Status) (bool, error) {
	query := `
		UPDATE appointments
		SET service_id = COALESCE($1, service_id),
			notes = COALESCE($2, notes),
			status = CASE WHEN $3 <> '' THEN $3 ELSE status END,
			updated_at = now()
		WHERE id = $4 AND provider_id = $5 AND deleted_at IS NULL
	`
	var svc any
	if serviceID != uuid.Nil {
		svc = serviceID
	}
	ct, err := st.pool.Exec(ctx, query, svc, notes, string(status), id, providerID)
	if err != nil {
		return false, fmt.Errorf("scheduling: update details: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

// CancelFutureWeekly cancels every scheduled appointment of the same weekly
// series (provider, client, service) starting at or after from.
func (st *Store) CancelFutureWeekly(ctx context.Context, providerID, clientID, serviceID uuid.UUID, from time.Time) (int64, error) {
	query := `
		UPDATE appointments
		SET status = 'cancelled', updated_at = now()
		WHERE provider_id = $1
		  AND client_id = $2
		  AND service_id = $3
		  AND recurrence = 'weekly'
		  AND status = 'scheduled'
		  AND deleted_at IS NULL
		  AND starts_at >= $4
	`
	ct, err := st.pool.Exec(ctx, query, providerID, clientID, serviceID, from)
	if err != nil {
		return 0, fmt.Errorf("scheduling: cancel future weekly: %w", err)
	}
	return ct.RowsAffected(), nil
}

// CancelFutureForClient cancels every scheduled appointment for the client
// from the given instant on, regardless of service. Used when a contract is
// terminated.
func (st *Store) CancelFutureForClient(ctx context.Context, providerID, clientID uuid.UUID, from time.Time) (int64, error) {
	query := `
		UPDATE appointments
		SET status = 'cancelled', updated_at = now()
		WHERE provider_id = $1
		  AND client_id = $2
		  AND status = 'scheduled'
		  AND deleted_at IS NULL
		  AND starts_at >= $3
	`
	ct, err := st.pool.Exec(ctx, query, providerID, clientID, from)
	if err != nil {
		return 0, fmt.Errorf("scheduling: cancel future for client: %w", err)
	}
	return ct.RowsAffected(), nil
}

// CountByStatusBetween counts the provider's appointments in one status with
// starts_at inside [from, to]. Used by the weekly summary.
func (st *Store) CountByStatusBetween(ctx context.Context, providerID uuid.UUID, status Status, from, to time.Time) (int, error) {
	query := `
		SELECT count(*)
		FROM appointments
		WHERE provider_id = $1
		  AND status = $2
		  AND deleted_at IS NULL
		  AND starts_at >= $3
		  AND starts_at <= $4
	`
	var n int
	if err := st.pool.QueryRow(ctx, query, providerID, status, from, to).Scan(&n); err != nil {
		return 0, fmt.Errorf("scheduling: count by status: %w", err)
	}
	return n, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	var out []Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scheduling: scan appointment: %w", err)
		}
		out = append(out, *appt)
	}
	return out, rows.Err()
}
