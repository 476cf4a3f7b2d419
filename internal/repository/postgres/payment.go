package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinic-api/internal/model"
	"github.com/clinicore/clinic-api/internal/repository"
)

func (r *paymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	query := `
		INSERT INTO payments (
			id, appointment_id, amount_cents, method, status,
			paid_at, refunded_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		payment.ID,
		payment.AppointmentID,
		payment.AmountCents,
		payment.Method,
		payment.Status,
		payment.PaidAt,
		payment.RefundedAt,
		payment.CreatedAt,
		payment.UpdatedAt,
	)
	if err != nil {
		// payments.appointment_id carries a unique index: one payment
		// per appointment, whatever its status.
		if isUniqueViolation(err) {
			return fmt.Errorf("payment for appointment %s: %w", payment.AppointmentID, repository.ErrDuplicate)
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (r *paymentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	query := `
		SELECT id, appointment_id, amount_cents, method, status,
			   paid_at, refunded_at, created_at, updated_at
		FROM payments
		WHERE id = $1
	`
	var payment model.Payment
	if err := r.db.GetContext(ctx, &payment, query, id); err != nil {
		return nil, wrapNotFound(err, "failed to get payment")
	}
	return &payment, nil
}

func (r *paymentRepository) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.Payment, error) {
	query := `
		SELECT id, appointment_id, amount_cents, method, status,
			   paid_at, refunded_at, created_at, updated_at
		FROM payments
		WHERE appointment_id = $1
	`
	var payment model.Payment
	if err := r.db.GetContext(ctx, &payment, query, appointmentID); err != nil {
		return nil, wrapNotFound(err, "failed to get payment by appointment")
	}
	return &payment, nil
}

func (r *paymentRepository) Update(ctx context.Context, payment *model.Payment) error {
	query := `
		UPDATE payments
		SET status = $1, paid_at = $2, refunded_at = $3, updated_at = $4
		WHERE id = $5
	`
	payment.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		payment.Status,
		payment.PaidAt,
		payment.RefundedAt,
		payment.UpdatedAt,
		payment.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("payment: %w", repository.ErrNotFound)
	}
	return nil
}

const paymentRowColumns = `
	p.id, p.appointment_id, p.amount_cents, p.method, p.status,
	p.paid_at, p.refunded_at, p.created_at, p.updated_at,
	a.start_time AS appointment_start,
	a.clinician_id, c.name AS clinician_name,
	a.patient_id, pt.name AS patient_name
`

// ListRowsInRange prefetches every payment whose effective instant may
// land in [from, to). Each status uses its own timestamp column; the
// service re-filters by civil date so day boundaries stay consistent
// with the requested timezone.
func (r *paymentRepository) ListRowsInRange(ctx context.Context, from, to time.Time, clinicianID *uuid.UUID) ([]*model.PaymentRow, error) {
	query := `
		SELECT ` + paymentRowColumns + `
		FROM payments p
		JOIN appointments a ON a.id = p.appointment_id
		JOIN clinicians c ON c.id = a.clinician_id
		JOIN patients pt ON pt.id = a.patient_id
		WHERE (
			(p.status = 'PAID' AND p.paid_at >= $1 AND p.paid_at < $2)
			OR (p.status IN ('PENDING', 'CANCELLED') AND a.start_time >= $1 AND a.start_time < $2)
			OR (p.status = 'REFUNDED' AND p.refunded_at >= $1 AND p.refunded_at < $2)
		)
	`
	args := []interface{}{from, to}

	if clinicianID != nil {
		query += " AND a.clinician_id = $3"
		args = append(args, *clinicianID)
	}

	query += " ORDER BY a.start_time ASC"

	var rows []*model.PaymentRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list payment rows: %w", err)
	}
	return rows, nil
}

func (r *paymentRepository) ListPendingRows(ctx context.Context, from, to time.Time, clinicianID *uuid.UUID) ([]*model.PaymentRow, error) {
	query := `
		SELECT ` + paymentRowColumns + `
		FROM payments p
		JOIN appointments a ON a.id = p.appointment_id
		JOIN clinicians c ON c.id = a.clinician_id
		JOIN patients pt ON pt.id = a.patient_id
		WHERE p.status = 'PENDING'
		AND a.start_time >= $1 AND a.start_time < $2
	`
	args := []interface{}{from, to}

	if clinicianID != nil {
		query += " AND a.clinician_id = $3"
		args = append(args, *clinicianID)
	}

	query += " ORDER BY a.start_time ASC"

	var rows []*model.PaymentRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list pending payment rows: %w", err)
	}
	return rows, nil
}
