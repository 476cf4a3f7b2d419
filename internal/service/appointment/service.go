package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinic-api/internal/model"
	"github.com/clinicore/clinic-api/internal/repository"
	"github.com/clinicore/clinic-api/internal/service/audit"
	"github.com/clinicore/clinic-api/pkg/calendar"
	apperrors "github.com/clinicore/clinic-api/pkg/errors"
	"github.com/clinicore/clinic-api/pkg/metrics"
)

// Business rules for bookable slots. Durations are capped low enough
// that an appointment never crosses the clinic's local midnight, which
// is why the conflict search window is a single civil day.
const (
	MinDurationMinutes = 15
	MaxDurationMinutes = 120
)

type Service struct {
	repo     repository.AppointmentRepository
	records  repository.MedicalRecordRepository
	txRunner repository.TxRunner
	auditor  *audit.Service
	metrics  *metrics.Metrics
	clinicTZ string
}

func NewService(
	repo repository.AppointmentRepository,
	records repository.MedicalRecordRepository,
	txRunner repository.TxRunner,
	auditor *audit.Service,
	m *metrics.Metrics,
	clinicTimezone string,
) *Service {
	return &Service{
		repo:     repo,
		records:  records,
		txRunner: txRunner,
		auditor:  auditor,
		metrics:  m,
		clinicTZ: clinicTimezone,
	}
}

func (s *Service) validateSlot(durationMinutes int) error {
	if durationMinutes < MinDurationMinutes || durationMinutes > MaxDurationMinutes {
		return apperrors.NewBadRequest(
			fmt.Sprintf("duration must be between %d and %d minutes", MinDurationMinutes, MaxDurationMinutes), nil)
	}
	return nil
}

// checkNoConflict loads every non-cancelled appointment of the
// clinician in the civil day containing start and tests half-open
// interval overlap. It runs inside the booking transaction so the
// check and the write are one atomic unit.
//
// The search window is exactly one civil day in the clinic timezone; a
// booking deliberately spanning local midnight would not be checked
// against the next day. The duration caps keep that from occurring,
// but it is a known limitation rather than a verified invariant.
func (s *Service) checkNoConflict(ctx context.Context, tx repository.Tx, clinicianID uuid.UUID, start time.Time, durationMinutes int, exclude *uuid.UUID) error {
	dayStart, dayEnd, _, err := calendar.DayRangeAt(start, s.clinicTZ)
	if err != nil {
		return err
	}

	existing, err := tx.ListClinicianDay(ctx, clinicianID, dayStart, dayEnd, exclude)
	if err != nil {
		return apperrors.NewInternal(err)
	}

	end := start.Add(time.Duration(durationMinutes) * time.Minute)
	for _, apt := range existing {
		if apt.Overlaps(start, end) {
			return apperrors.NewConflict("clinician already has an appointment in this time window", map[string]interface{}{
				"clinician_id":   clinicianID,
				"window_start":   apt.StartTime,
				"window_end":     apt.EndTime(),
				"appointment_id": apt.ID,
			})
		}
	}
	return nil
}

// mapTxErr converts a serialization abort into the same conflict error
// an observed overlap produces: either way the caller lost the slot
// race and should retry.
func (s *Service) mapTxErr(err error, clinicianID uuid.UUID, start, end time.Time) error {
	if errors.Is(err, repository.ErrSerialization) {
		s.metrics.BookingSerializationAborts.Inc()
		return apperrors.NewConflict("clinician already has an appointment in this time window", map[string]interface{}{
			"clinician_id": clinicianID,
			"window_start": start,
			"window_end":   end,
		})
	}
	if _, ok := apperrors.AsAppError(err); ok {
		return err
	}
	return apperrors.NewInternal(err)
}

// Book creates a new SCHEDULED appointment if the clinician's day has
// room for it.
func (s *Service) Book(ctx context.Context, actorID uuid.UUID, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	if err := s.validateSlot(req.DurationMinutes); err != nil {
		return nil, err
	}

	s.metrics.BookingAttempts.Inc()

	apt := &model.Appointment{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		},
		PatientID:       req.PatientID,
		ClinicianID:     req.ClinicianID,
		StartTime:       req.StartTime.UTC(),
		DurationMinutes: req.DurationMinutes,
		Status:          model.AppointmentStatusScheduled,
		Type:            req.Type,
		Notes:           req.Notes,
	}

	err := s.txRunner.Serializable(ctx, func(tx repository.Tx) error {
		if err := s.checkNoConflict(ctx, tx, apt.ClinicianID, apt.StartTime, apt.DurationMinutes, nil); err != nil {
			return err
		}
		if err := tx.CreateAppointment(ctx, apt); err != nil {
			return err
		}
		return s.auditor.EmitTx(ctx, tx, actorID, "appointment.booked", "appointment", apt.ID, apt)
	})
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrConflict) || errors.Is(err, repository.ErrSerialization) {
			s.metrics.BookingConflicts.Inc()
		}
		return nil, s.mapTxErr(err, apt.ClinicianID, apt.StartTime, apt.EndTime())
	}

	return apt, nil
}

// Reschedule moves an existing appointment to a new slot, excluding
// itself from the conflict scan.
func (s *Service) Reschedule(ctx context.Context, actorID uuid.UUID, id uuid.UUID, req *model.RescheduleAppointmentRequest) (*model.Appointment, error) {
	if err := s.validateSlot(req.DurationMinutes); err != nil {
		return nil, err
	}

	apt, err := s.getAppointment(ctx, id)
	if err != nil {
		return nil, err
	}

	if apt.Status.IsTerminal() {
		return nil, apperrors.NewPreconditionFailed(
			fmt.Sprintf("cannot reschedule a %s appointment", apt.Status), map[string]interface{}{
				"status": apt.Status,
			})
	}

	start := req.StartTime.UTC()
	end := start.Add(time.Duration(req.DurationMinutes) * time.Minute)

	err = s.txRunner.Serializable(ctx, func(tx repository.Tx) error {
		if err := s.checkNoConflict(ctx, tx, apt.ClinicianID, start, req.DurationMinutes, &id); err != nil {
			return err
		}
		if err := tx.UpdateAppointmentSlot(ctx, id, start, req.DurationMinutes); err != nil {
			return err
		}
		return s.auditor.EmitTx(ctx, tx, actorID, "appointment.rescheduled", "appointment", id, map[string]interface{}{
			"start_time":       start,
			"duration_minutes": req.DurationMinutes,
		})
	})
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrConflict) || errors.Is(err, repository.ErrSerialization) {
			s.metrics.BookingConflicts.Inc()
		}
		return nil, s.mapTxErr(err, apt.ClinicianID, start, end)
	}

	apt.StartTime = start
	apt.DurationMinutes = req.DurationMinutes
	apt.UpdatedAt = time.Now()
	return apt, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.AppointmentDetail, error) {
	detail, err := s.repo.GetDetail(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("appointment", err)
		}
		return nil, apperrors.NewInternal(err)
	}
	return detail, nil
}

func (s *Service) getAppointment(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("appointment", err)
		}
		return nil, apperrors.NewInternal(err)
	}
	return apt, nil
}

// Transition applies a plain status change after checking it against
// the lifecycle table. Composite transitions (starting and completing
// an encounter) have their own entry points.
func (s *Service) Transition(ctx context.Context, actorID uuid.UUID, id uuid.UUID, to model.AppointmentStatus) (*model.Appointment, error) {
	if !to.IsValid() {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("unknown status %q", to), nil)
	}

	apt, err := s.getAppointment(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.applyTransition(ctx, actorID, apt, to); err != nil {
		return nil, err
	}
	return apt, nil
}

func (s *Service) applyTransition(ctx context.Context, actorID uuid.UUID, apt *model.Appointment, to model.AppointmentStatus) error {
	from := apt.Status
	if !from.CanTransitionTo(to) {
		return apperrors.NewPreconditionFailed(
			fmt.Sprintf("illegal transition from %s to %s", from, to), map[string]interface{}{
				"from": from,
				"to":   to,
			})
	}

	if err := s.repo.UpdateStatus(ctx, apt.ID, to); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFound("appointment", err)
		}
		return apperrors.NewInternal(err)
	}
	apt.Status = to
	apt.UpdatedAt = time.Now()

	if err := s.auditor.Emit(ctx, actorID, "appointment.status_changed", "appointment", apt.ID, map[string]interface{}{
		"from": from,
		"to":   to,
	}); err != nil {
		// Audit emission is best effort outside the booking path; the
		// transition itself already committed.
		return nil
	}
	return nil
}

// StartEncounter moves the appointment to IN_PROGRESS and makes sure a
// medical record exists for the clinician to write into, creating an
// empty DRAFT one when absent.
func (s *Service) StartEncounter(ctx context.Context, actorID uuid.UUID, id uuid.UUID) (*model.Appointment, error) {
	apt, err := s.getAppointment(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.applyTransition(ctx, actorID, apt, model.AppointmentStatusInProgress); err != nil {
		return nil, err
	}

	_, err = s.records.GetByAppointment(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		record := &model.MedicalRecord{
			Base: model.Base{
				ID:        uuid.New(),
				CreatedAt: time.Now(),
				UpdatedAt: time.Now(),
			},
			AppointmentID: id,
			ClinicianID:   apt.ClinicianID,
			Status:        model.MedicalRecordStatusDraft,
		}
		if err := s.records.Create(ctx, record); err != nil && !errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewInternal(err)
		}
	} else if err != nil {
		return nil, apperrors.NewInternal(err)
	}

	return apt, nil
}

// CompleteEncounter closes an encounter. The business rule: no billable
// encounter closes without a finalized note, so a missing or DRAFT
// record fails the precondition before any status change.
func (s *Service) CompleteEncounter(ctx context.Context, actorID uuid.UUID, id uuid.UUID) (*model.Appointment, error) {
	apt, err := s.getAppointment(ctx, id)
	if err != nil {
		return nil, err
	}

	record, err := s.records.GetByAppointment(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewPreconditionFailed("finalize the medical record before completing the encounter", map[string]interface{}{
			"appointment_id": id,
			"record_status":  nil,
		})
	} else if err != nil {
		return nil, apperrors.NewInternal(err)
	}

	if !record.IsFinal() {
		return nil, apperrors.NewPreconditionFailed("finalize the medical record before completing the encounter", map[string]interface{}{
			"appointment_id": id,
			"record_status":  record.Status,
		})
	}

	if err := s.applyTransition(ctx, actorID, apt, model.AppointmentStatusCompleted); err != nil {
		return nil, err
	}
	return apt, nil
}
