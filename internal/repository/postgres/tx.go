package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/clinicore/clinic-api/internal/model"
	"github.com/clinicore/clinic-api/internal/repository"
)

type txRunner struct {
	db *sqlx.DB
}

func NewTxRunner(db *sqlx.DB) repository.TxRunner {
	return &txRunner{db: db}
}

// Serializable runs fn inside a transaction at the strictest isolation
// level. Two concurrent bookings for the same slot cannot both observe
// "no conflict": the database aborts one of them, which surfaces here
// as repository.ErrSerialization. The abort is not retried at this
// layer; the caller maps it to a conflict for the client to retry.
func (r *txRunner) Serializable(ctx context.Context, fn func(tx repository.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&bookingTx{tx: tx}); err != nil {
		tx.Rollback()
		if isSerializationFailure(err) {
			return repository.ErrSerialization
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		if isSerializationFailure(err) {
			return repository.ErrSerialization
		}
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type bookingTx struct {
	tx *sqlx.Tx
}

func (t *bookingTx) ListClinicianDay(ctx context.Context, clinicianID uuid.UUID, from, to time.Time, exclude *uuid.UUID) ([]*model.Appointment, error) {
	query := `
		SELECT id, patient_id, clinician_id, start_time, duration_minutes,
			   status, type, notes, created_at, updated_at
		FROM appointments
		WHERE clinician_id = $1
		AND start_time >= $2 AND start_time < $3
		AND status NOT IN ('CANCELLED', 'NO_SHOW')
	`
	args := []interface{}{clinicianID, from, to}

	if exclude != nil {
		query += " AND id != $4"
		args = append(args, *exclude)
	}

	query += " ORDER BY start_time ASC"

	var appointments []*model.Appointment
	if err := t.tx.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list clinician day: %w", err)
	}
	return appointments, nil
}

func (t *bookingTx) CreateAppointment(ctx context.Context, apt *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, patient_id, clinician_id, start_time, duration_minutes,
			status, type, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := t.tx.ExecContext(ctx, query,
		apt.ID,
		apt.PatientID,
		apt.ClinicianID,
		apt.StartTime,
		apt.DurationMinutes,
		apt.Status,
		apt.Type,
		apt.Notes,
		apt.CreatedAt,
		apt.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (t *bookingTx) UpdateAppointmentSlot(ctx context.Context, id uuid.UUID, start time.Time, durationMinutes int) error {
	query := `
		UPDATE appointments
		SET start_time = $1, duration_minutes = $2, updated_at = $3
		WHERE id = $4
	`
	result, err := t.tx.ExecContext(ctx, query, start, durationMinutes, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to reschedule appointment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("appointment: %w", repository.ErrNotFound)
	}
	return nil
}

func (t *bookingTx) CreateOutboxEvent(ctx context.Context, event *model.OutboxEvent) error {
	return insertOutboxEvent(ctx, t.tx, event)
}
