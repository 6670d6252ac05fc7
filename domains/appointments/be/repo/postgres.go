package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/torqueware/shopboard/domains/appointments/be/service"
)

const appointmentColumns = `id, tenant_id, technician_id, scheduled_start, scheduled_end, status, position, version, check_in_at, check_out_at, created_at`

// PostgresStore implements service.Store on top of pgx. The compare-and-swap
// is a single conditional UPDATE keyed on (id, tenant_id, version): Postgres
// guarantees the row match and the write happen atomically, so concurrent
// movers racing on the same appointment resolve without any lock in Go.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a store backed by the shared connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("postgres pool is required")
	}
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Get(ctx context.Context, tenantID, id uuid.UUID) (service.Appointment, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1 AND tenant_id = $2
	`, id, tenantID)

	appt, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return service.Appointment{}, service.ErrNotFound
		}
		return service.Appointment{}, fmt.Errorf("get appointment: %w", err)
	}
	return appt, nil
}

func (s *PostgresStore) ListRange(ctx context.Context, tenantID uuid.UUID, technicianID *uuid.UUID, from, to time.Time) ([]service.Appointment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE tenant_id = $1
			AND ($2::uuid IS NULL OR technician_id = $2)
			AND scheduled_start < $4
			AND scheduled_end > $3
		ORDER BY scheduled_start ASC, id ASC
	`, tenantID, technicianID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	var appts []service.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		appts = append(appts, appt)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("list appointments: %w", rows.Err())
	}
	return appts, nil
}

func (s *PostgresStore) CompareAndSwap(ctx context.Context, tenantID, id uuid.UUID, expectedVersion int64, next service.Appointment) (service.Appointment, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE appointments
		SET technician_id = $4,
			scheduled_start = $5,
			scheduled_end = $6,
			status = $7,
			position = $8,
			version = $9,
			check_in_at = $10,
			check_out_at = $11
		WHERE id = $1 AND tenant_id = $2 AND version = $3
		RETURNING `+appointmentColumns+`
	`, id, tenantID, expectedVersion,
		next.TechnicianID, next.ScheduledStart, next.ScheduledEnd, string(next.Status),
		next.Position, next.Version, next.CheckInAt, next.CheckOutAt)

	appt, err := scanAppointment(row)
	if err == nil {
		return appt, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return service.Appointment{}, fmt.Errorf("compare-and-swap appointment: %w", err)
	}

	// Zero rows matched: either the row is gone or someone else won the race.
	var exists bool
	if err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM appointments WHERE id = $1 AND tenant_id = $2)
	`, id, tenantID).Scan(&exists); err != nil {
		return service.Appointment{}, fmt.Errorf("compare-and-swap existence check: %w", err)
	}
	if !exists {
		return service.Appointment{}, service.ErrNotFound
	}
	return service.Appointment{}, service.ErrVersionConflict
}

func (s *PostgresStore) Create(ctx context.Context, appt service.Appointment) (service.Appointment, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO appointments
			(id, tenant_id, technician_id, scheduled_start, scheduled_end, status, position, version, check_in_at, check_out_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+appointmentColumns+`
	`, appt.ID, appt.TenantID, appt.TechnicianID, appt.ScheduledStart, appt.ScheduledEnd,
		string(appt.Status), appt.Position, appt.Version, appt.CheckInAt, appt.CheckOutAt, appt.CreatedAt)

	created, err := scanAppointment(row)
	if err != nil {
		return service.Appointment{}, fmt.Errorf("create appointment: %w", err)
	}
	return created, nil
}

func scanAppointment(row pgx.Row) (service.Appointment, error) {
	var appt service.Appointment
	var status string
	err := row.Scan(
		&appt.ID,
		&appt.TenantID,
		&appt.TechnicianID,
		&appt.ScheduledStart,
		&appt.ScheduledEnd,
		&status,
		&appt.Position,
		&appt.Version,
		&appt.CheckInAt,
		&appt.CheckOutAt,
		&appt.CreatedAt,
	)
	if err != nil {
		return service.Appointment{}, err
	}

	parsed, err := service.ParseStatus(status)
	if err != nil {
		return service.Appointment{}, err
	}
	appt.Status = parsed
	return appt, nil
}
