package medical

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/clinicore/clinic-api/internal/model"
	"github.com/clinicore/clinic-api/internal/repository"
	"github.com/clinicore/clinic-api/internal/service/audit"
	apperrors "github.com/clinicore/clinic-api/pkg/errors"
)

type Service struct {
	repo    repository.MedicalRecordRepository
	auditor *audit.Service
}

func NewService(repo repository.MedicalRecordRepository, auditor *audit.Service) *Service {
	return &Service{repo: repo, auditor: auditor}
}

func (s *Service) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.MedicalRecord, error) {
	record, err := s.repo.GetByAppointment(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("medical record", err)
		}
		return nil, apperrors.NewInternal(err)
	}
	return record, nil
}

// Update writes clinical content into a DRAFT record. Finalized
// records are immutable.
func (s *Service) Update(ctx context.Context, actorID, appointmentID uuid.UUID, req *model.UpdateMedicalRecordRequest) (*model.MedicalRecord, error) {
	record, err := s.GetByAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	if record.Status != model.MedicalRecordStatusDraft {
		return nil, apperrors.NewPreconditionFailed("cannot edit a finalized medical record", map[string]interface{}{
			"record_id": record.ID,
			"status":    record.Status,
		})
	}

	if req.Subjective != nil {
		record.Subjective = *req.Subjective
	}
	if req.Objective != nil {
		record.Objective = *req.Objective
	}
	if req.Assessment != nil {
		record.Assessment = *req.Assessment
	}
	if req.Plan != nil {
		record.Plan = *req.Plan
	}
	if req.Notes != nil {
		record.Notes = *req.Notes
	}

	if err := s.repo.Update(ctx, record); err != nil {
		return nil, apperrors.NewInternal(err)
	}

	s.auditor.Emit(ctx, actorID, "medical_record.updated", "medical_record", record.ID, nil)
	return record, nil
}

// Finalize locks the record, which in turn unlocks encounter
// completion for its appointment.
func (s *Service) Finalize(ctx context.Context, actorID, appointmentID uuid.UUID) (*model.MedicalRecord, error) {
	record, err := s.GetByAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	if record.Status != model.MedicalRecordStatusDraft {
		return nil, apperrors.NewPreconditionFailed("medical record is already finalized", map[string]interface{}{
			"record_id": record.ID,
			"status":    record.Status,
		})
	}

	if err := s.repo.Finalize(ctx, record.ID); err != nil {
		return nil, apperrors.NewInternal(err)
	}
	record.Status = model.MedicalRecordStatusFinal

	s.auditor.Emit(ctx, actorID, "medical_record.finalized", "medical_record", record.ID, nil)
	return record, nil
}
