package payment

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
)

type Service struct {
	repo         repository.PaymentRepository
	appointments repository.AppointmentRepository
	auditor      *audit.Service
	clinicTZ     string
	now          func() time.Time
}

func NewService(
	repo repository.PaymentRepository,
	appointments repository.AppointmentRepository,
	auditor *audit.Service,
	clinicTimezone string,
) *Service {
	return &Service{
		repo:         repo,
		appointments: appointments,
		auditor:      auditor,
		clinicTZ:     clinicTimezone,
		now:          time.Now,
	}
}

// WithClock fixes the service clock; tests use it to freeze "now".
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Create registers a PENDING payment for an appointment. An
// appointment carries at most one payment ever, whatever its status,
// so a second creation is a conflict.
func (s *Service) Create(ctx context.Context, actorID uuid.UUID, req *model.CreatePaymentRequest) (*model.Payment, error) {
	if _, err := s.appointments.Get(ctx, req.AppointmentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("appointment", err)
		}
		return nil, apperrors.NewInternal(err)
	}

	if existing, err := s.repo.GetByAppointment(ctx, req.AppointmentID); err == nil {
		return nil, apperrors.NewConflict("appointment already has a payment", map[string]interface{}{
			"appointment_id": req.AppointmentID,
			"payment_id":     existing.ID,
			"payment_status": existing.Status,
		})
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewInternal(err)
	}

	payment := &model.Payment{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: s.now(),
			UpdatedAt: s.now(),
		},
		AppointmentID: req.AppointmentID,
		AmountCents:   req.AmountCents,
		Method:        req.Method,
		Status:        model.PaymentStatusPending,
	}

	if err := s.repo.Create(ctx, payment); err != nil {
		// The unique index backstops the read-then-create sequence
		// against a concurrent creation.
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("appointment already has a payment", map[string]interface{}{
				"appointment_id": req.AppointmentID,
			})
		}
		return nil, apperrors.NewInternal(err)
	}

	s.auditor.Emit(ctx, actorID, "payment.created", "payment", payment.ID, payment)
	return payment, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	payment, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("payment", err)
		}
		return nil, apperrors.NewInternal(err)
	}
	return payment, nil
}

// MarkPaid moves a PENDING payment to PAID. An optional civil date
// backdates the receipt: paidAt then becomes noon of that date in the
// clinic timezone, recording when the money arrived rather than when
// someone got around to entering it. Marking an already PAID payment
// is idempotent.
func (s *Service) MarkPaid(ctx context.Context, actorID uuid.UUID, id uuid.UUID, req *model.MarkPaymentPaidRequest) (*model.Payment, error) {
	payment, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if payment.Status == model.PaymentStatusPaid {
		return payment, nil
	}

	if payment.Status != model.PaymentStatusPending {
		return nil, apperrors.NewPreconditionFailed(
			fmt.Sprintf("cannot mark a %s payment as paid", payment.Status), map[string]interface{}{
				"payment_id": id,
				"status":     payment.Status,
			})
	}

	paidAt := s.now()
	if req != nil && req.PaidDate != "" {
		paidAt, err = calendar.AtNoonUTC(req.PaidDate, s.clinicTZ)
		if err != nil {
			return nil, err
		}
	}

	payment.Status = model.PaymentStatusPaid
	payment.PaidAt = &paidAt

	if err := s.repo.Update(ctx, payment); err != nil {
		return nil, apperrors.NewInternal(err)
	}

	s.auditor.Emit(ctx, actorID, "payment.paid", "payment", payment.ID, map[string]interface{}{
		"amount_cents": payment.AmountCents,
		"paid_at":      paidAt,
	})
	return payment, nil
}

// Cancel voids a PENDING payment.
func (s *Service) Cancel(ctx context.Context, actorID uuid.UUID, id uuid.UUID) (*model.Payment, error) {
	payment, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if payment.Status != model.PaymentStatusPending {
		return nil, apperrors.NewPreconditionFailed(
			fmt.Sprintf("cannot cancel a %s payment", payment.Status), map[string]interface{}{
				"payment_id": id,
				"status":     payment.Status,
			})
	}

	payment.Status = model.PaymentStatusCancelled

	if err := s.repo.Update(ctx, payment); err != nil {
		return nil, apperrors.NewInternal(err)
	}

	s.auditor.Emit(ctx, actorID, "payment.cancelled", "payment", payment.ID, nil)
	return payment, nil
}

// Refund reverses a PAID payment.
func (s *Service) Refund(ctx context.Context, actorID uuid.UUID, id uuid.UUID) (*model.Payment, error) {
	payment, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if payment.Status != model.PaymentStatusPaid {
		return nil, apperrors.NewPreconditionFailed(
			fmt.Sprintf("cannot refund a %s payment", payment.Status), map[string]interface{}{
				"payment_id": id,
				"status":     payment.Status,
			})
	}

	refundedAt := s.now()
	payment.Status = model.PaymentStatusRefunded
	payment.RefundedAt = &refundedAt

	if err := s.repo.Update(ctx, payment); err != nil {
		return nil, apperrors.NewInternal(err)
	}

	s.auditor.Emit(ctx, actorID, "payment.refunded", "payment", payment.ID, map[string]interface{}{
		"amount_cents": payment.AmountCents,
		"refunded_at":  refundedAt,
	})
	return payment, nil
}
