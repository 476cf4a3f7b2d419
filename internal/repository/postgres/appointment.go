package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/clinicore/clinic-api/internal/model"
)

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `
		SELECT id, patient_id, clinician_id, start_time, duration_minutes,
			   status, type, notes, created_at, updated_at
		FROM appointments
		WHERE id = $1
	`
	var apt model.Appointment
	if err := r.db.GetContext(ctx, &apt, query, id); err != nil {
		return nil, wrapNotFound(err, "failed to get appointment")
	}
	return &apt, nil
}

func (r *appointmentRepository) GetDetail(ctx context.Context, id uuid.UUID) (*model.AppointmentDetail, error) {
	query := `
		SELECT a.id, a.patient_id, a.clinician_id, a.start_time, a.duration_minutes,
			   a.status, a.type, a.notes, a.created_at, a.updated_at,
			   p.name AS patient_name, c.name AS clinician_name
		FROM appointments a
		JOIN patients p ON p.id = a.patient_id
		JOIN clinicians c ON c.id = a.clinician_id
		WHERE a.id = $1
	`
	var detail model.AppointmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, wrapNotFound(err, "failed to get appointment detail")
	}

	if err := r.attachSummaries(ctx, []*model.AppointmentDetail{&detail}); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (r *appointmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus) error {
	query := `
		UPDATE appointments
		SET status = $1, updated_at = $2
		WHERE id = $3
	`
	result, err := r.db.ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update appointment status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return wrapNotFound(sql.ErrNoRows, "failed to update appointment status")
	}
	return nil
}

func (r *appointmentRepository) UpdateNotes(ctx context.Context, id uuid.UUID, notes string) error {
	query := `
		UPDATE appointments
		SET notes = $1, updated_at = $2
		WHERE id = $3
	`
	result, err := r.db.ExecContext(ctx, query, notes, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update appointment notes: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return wrapNotFound(sql.ErrNoRows, "failed to update appointment notes")
	}
	return nil
}

func (r *appointmentRepository) ListDay(ctx context.Context, from, to time.Time, clinicianID *uuid.UUID) ([]*model.AppointmentDetail, error) {
	query := `
		SELECT a.id, a.patient_id, a.clinician_id, a.start_time, a.duration_minutes,
			   a.status, a.type, a.notes, a.created_at, a.updated_at,
			   p.name AS patient_name, c.name AS clinician_name
		FROM appointments a
		JOIN patients p ON p.id = a.patient_id
		JOIN clinicians c ON c.id = a.clinician_id
		WHERE a.start_time >= $1 AND a.start_time < $2
	`
	args := []interface{}{from, to}

	if clinicianID != nil {
		query += " AND a.clinician_id = $3"
		args = append(args, *clinicianID)
	}

	query += " ORDER BY a.start_time ASC"

	var details []*model.AppointmentDetail
	if err := r.db.SelectContext(ctx, &details, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list day appointments: %w", err)
	}

	if err := r.attachSummaries(ctx, details); err != nil {
		return nil, err
	}
	return details, nil
}

func (r *appointmentRepository) ListPatientHistory(ctx context.Context, patientID uuid.UUID) ([]*model.PatientHistoryEntry, error) {
	query := `
		SELECT a.id, a.patient_id, a.clinician_id, a.start_time, a.duration_minutes,
			   a.status, a.type, a.notes, a.created_at, a.updated_at,
			   p.name AS patient_name, c.name AS clinician_name
		FROM appointments a
		JOIN patients p ON p.id = a.patient_id
		JOIN clinicians c ON c.id = a.clinician_id
		WHERE a.patient_id = $1
		ORDER BY a.start_time DESC
	`
	var details []*model.AppointmentDetail
	if err := r.db.SelectContext(ctx, &details, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list patient history: %w", err)
	}

	if err := r.attachSummaries(ctx, details); err != nil {
		return nil, err
	}

	entries := make([]*model.PatientHistoryEntry, 0, len(details))
	for _, d := range details {
		entries = append(entries, &model.PatientHistoryEntry{
			AppointmentID: d.ID,
			StartTime:     d.StartTime,
			Status:        d.Status,
			Type:          d.Type,
			ClinicianName: d.ClinicianName,
			Notes:         d.Notes,
			Payment:       d.Payment,
			MedicalRecord: d.MedicalRecord,
		})
	}
	return entries, nil
}

// attachSummaries joins payments and medical records onto appointment
// details in two batched lookups instead of per-row queries.
func (r *appointmentRepository) attachSummaries(ctx context.Context, details []*model.AppointmentDetail) error {
	if len(details) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(details))
	byID := make(map[uuid.UUID]*model.AppointmentDetail, len(details))
	for _, d := range details {
		ids = append(ids, d.ID)
		byID[d.ID] = d
	}

	payQuery, payArgs, err := sqlx.In(`
		SELECT id, appointment_id, amount_cents, method, status,
			   paid_at, refunded_at, created_at, updated_at
		FROM payments
		WHERE appointment_id IN (?)`, ids)
	if err != nil {
		return fmt.Errorf("failed to build payment query: %w", err)
	}

	var payments []*model.Payment
	if err := r.db.SelectContext(ctx, &payments, r.db.Rebind(payQuery), payArgs...); err != nil {
		return fmt.Errorf("failed to load payments: %w", err)
	}
	for _, p := range payments {
		if d, ok := byID[p.AppointmentID]; ok {
			d.Payment = p
		}
	}

	recQuery, recArgs, err := sqlx.In(`
		SELECT id, appointment_id, clinician_id, status,
			   subjective, objective, assessment, plan, notes,
			   created_at, updated_at
		FROM medical_records
		WHERE appointment_id IN (?)`, ids)
	if err != nil {
		return fmt.Errorf("failed to build record query: %w", err)
	}

	var records []*model.MedicalRecord
	if err := r.db.SelectContext(ctx, &records, r.db.Rebind(recQuery), recArgs...); err != nil {
		return fmt.Errorf("failed to load medical records: %w", err)
	}
	for _, rec := range records {
		if d, ok := byID[rec.AppointmentID]; ok {
			d.MedicalRecord = rec
		}
	}

	return nil
}
