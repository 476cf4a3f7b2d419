package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinic-api/internal/model"
	"github.com/clinicore/clinic-api/internal/repository"
)

func (r *medicalRecordRepository) Create(ctx context.Context, record *model.MedicalRecord) error {
	query := `
		INSERT INTO medical_records (
			id, appointment_id, clinician_id, status,
			subjective, objective, assessment, plan, notes,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.AppointmentID,
		record.ClinicianID,
		record.Status,
		record.Subjective,
		record.Objective,
		record.Assessment,
		record.Plan,
		record.Notes,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("medical record for appointment %s: %w", record.AppointmentID, repository.ErrDuplicate)
		}
		return fmt.Errorf("failed to create medical record: %w", err)
	}
	return nil
}

func (r *medicalRecordRepository) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.MedicalRecord, error) {
	query := `
		SELECT id, appointment_id, clinician_id, status,
			   subjective, objective, assessment, plan, notes,
			   created_at, updated_at
		FROM medical_records
		WHERE appointment_id = $1
	`
	var record model.MedicalRecord
	if err := r.db.GetContext(ctx, &record, query, appointmentID); err != nil {
		return nil, wrapNotFound(err, "failed to get medical record")
	}
	return &record, nil
}

func (r *medicalRecordRepository) Update(ctx context.Context, record *model.MedicalRecord) error {
	query := `
		UPDATE medical_records
		SET subjective = $1, objective = $2, assessment = $3,
			plan = $4, notes = $5, updated_at = $6
		WHERE id = $7
	`
	record.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		record.Subjective,
		record.Objective,
		record.Assessment,
		record.Plan,
		record.Notes,
		record.UpdatedAt,
		record.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update medical record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("medical record: %w", repository.ErrNotFound)
	}
	return nil
}

func (r *medicalRecordRepository) Finalize(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE medical_records
		SET status = $1, updated_at = $2
		WHERE id = $3
	`
	result, err := r.db.ExecContext(ctx, query, model.MedicalRecordStatusFinal, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to finalize medical record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("medical record: %w", repository.ErrNotFound)
	}
	return nil
}

func (r *medicalRecordRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.MedicalRecord, error) {
	query := `
		SELECT mr.id, mr.appointment_id, mr.clinician_id, mr.status,
			   mr.subjective, mr.objective, mr.assessment, mr.plan, mr.notes,
			   mr.created_at, mr.updated_at
		FROM medical_records mr
		JOIN appointments a ON a.id = mr.appointment_id
		WHERE a.patient_id = $1
		ORDER BY mr.created_at DESC
	`
	var records []*model.MedicalRecord
	if err := r.db.SelectContext(ctx, &records, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list medical records: %w", err)
	}
	return records, nil
}
