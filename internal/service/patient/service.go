package patient

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/clinicore/clinic-api/internal/model"
	"github.com/clinicore/clinic-api/internal/repository"
	apperrors "github.com/clinicore/clinic-api/pkg/errors"
)

type Service struct {
	repo    repository.PatientRepository
	records repository.MedicalRecordRepository
	apts    repository.AppointmentRepository
}

func NewService(repo repository.PatientRepository, records repository.MedicalRecordRepository, apts repository.AppointmentRepository) *Service {
	return &Service{repo: repo, records: records, apts: apts}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.PatientDetail, error) {
	patient, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("patient", err)
		}
		return nil, apperrors.NewInternal(err)
	}

	records, err := s.records.ListByPatient(ctx, id)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}

	return &model.PatientDetail{Patient: *patient, MedicalRecords: records}, nil
}

func (s *Service) History(ctx context.Context, id uuid.UUID) ([]*model.PatientHistoryEntry, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("patient", err)
		}
		return nil, apperrors.NewInternal(err)
	}

	entries, err := s.apts.ListPatientHistory(ctx, id)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}
	return entries, nil
}
