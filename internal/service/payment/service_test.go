package payment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/clinic-api/internal/model"
	"github.com/clinicore/clinic-api/internal/repository"
	"github.com/clinicore/clinic-api/internal/service/audit"
	apperrors "github.com/clinicore/clinic-api/pkg/errors"
)

type fakePaymentRepo struct {
	byID          map[uuid.UUID]*model.Payment
	byAppointment map[uuid.UUID]*model.Payment
}

func newFakePaymentRepo(payments ...*model.Payment) *fakePaymentRepo {
	r := &fakePaymentRepo{
		byID:          make(map[uuid.UUID]*model.Payment),
		byAppointment: make(map[uuid.UUID]*model.Payment),
	}
	for _, p := range payments {
		r.byID[p.ID] = p
		r.byAppointment[p.AppointmentID] = p
	}
	return r
}

func (r *fakePaymentRepo) Create(_ context.Context, payment *model.Payment) error {
	if _, ok := r.byAppointment[payment.AppointmentID]; ok {
		return repository.ErrDuplicate
	}
	r.byID[payment.ID] = payment
	r.byAppointment[payment.AppointmentID] = payment
	return nil
}

func (r *fakePaymentRepo) Get(_ context.Context, id uuid.UUID) (*model.Payment, error) {
	p, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakePaymentRepo) GetByAppointment(_ context.Context, appointmentID uuid.UUID) (*model.Payment, error) {
	p, ok := r.byAppointment[appointmentID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakePaymentRepo) Update(_ context.Context, payment *model.Payment) error {
	if _, ok := r.byID[payment.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *payment
	r.byID[payment.ID] = &cp
	r.byAppointment[payment.AppointmentID] = &cp
	return nil
}

func (r *fakePaymentRepo) ListRowsInRange(_ context.Context, _, _ time.Time, _ *uuid.UUID) ([]*model.PaymentRow, error) {
	return nil, nil
}

func (r *fakePaymentRepo) ListPendingRows(_ context.Context, _, _ time.Time, _ *uuid.UUID) ([]*model.PaymentRow, error) {
	return nil, nil
}

type fakeAptRepo struct {
	ids map[uuid.UUID]bool
}

func (r *fakeAptRepo) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	if !r.ids[id] {
		return nil, repository.ErrNotFound
	}
	return &model.Appointment{Base: model.Base{ID: id}}, nil
}

func (r *fakeAptRepo) GetDetail(_ context.Context, _ uuid.UUID) (*model.AppointmentDetail, error) {
	return nil, repository.ErrNotFound
}

func (r *fakeAptRepo) UpdateStatus(_ context.Context, _ uuid.UUID, _ model.AppointmentStatus) error {
	return nil
}

func (r *fakeAptRepo) UpdateNotes(_ context.Context, _ uuid.UUID, _ string) error { return nil }

func (r *fakeAptRepo) ListDay(_ context.Context, _, _ time.Time, _ *uuid.UUID) ([]*model.AppointmentDetail, error) {
	return nil, nil
}

func (r *fakeAptRepo) ListPatientHistory(_ context.Context, _ uuid.UUID) ([]*model.PatientHistoryEntry, error) {
	return nil, nil
}

type fakeOutboxRepo struct {
	events []*model.OutboxEvent
}

func (r *fakeOutboxRepo) Create(_ context.Context, event *model.OutboxEvent) error {
	r.events = append(r.events, event)
	return nil
}

func (r *fakeOutboxRepo) GetPendingWithLock(_ context.Context, _ int) ([]*model.OutboxEvent, error) {
	return nil, nil
}

func (r *fakeOutboxRepo) MarkProcessed(_ context.Context, _ uuid.UUID) error        { return nil }
func (r *fakeOutboxRepo) MarkFailed(_ context.Context, _ uuid.UUID, _ string) error { return nil }
func (r *fakeOutboxRepo) DeleteProcessedBefore(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func newTestService(repo *fakePaymentRepo, aptIDs ...uuid.UUID) *Service {
	ids := make(map[uuid.UUID]bool)
	for _, id := range aptIDs {
		ids[id] = true
	}
	svc := NewService(repo, &fakeAptRepo{ids: ids}, audit.NewService(&fakeOutboxRepo{}), "America/Mexico_City")
	return svc.WithClock(func() time.Time {
		return time.Date(2026, 5, 20, 18, 0, 0, 0, time.UTC)
	})
}

func pendingPayment(appointmentID uuid.UUID) *model.Payment {
	return &model.Payment{
		Base:          model.Base{ID: uuid.New()},
		AppointmentID: appointmentID,
		AmountCents:   75000,
		Method:        model.PaymentMethodCard,
		Status:        model.PaymentStatusPending,
	}
}

func TestCreate(t *testing.T) {
	t.Run("creates a pending payment", func(t *testing.T) {
		aptID := uuid.New()
		svc := newTestService(newFakePaymentRepo(), aptID)

		p, err := svc.Create(context.Background(), uuid.New(), &model.CreatePaymentRequest{
			AppointmentID: aptID,
			AmountCents:   75000,
			Method:        model.PaymentMethodCash,
		})
		require.NoError(t, err)
		assert.Equal(t, model.PaymentStatusPending, p.Status)
		assert.EqualValues(t, 75000, p.AmountCents)
		assert.Nil(t, p.PaidAt)
	})

	t.Run("rejects a second payment for the same appointment", func(t *testing.T) {
		aptID := uuid.New()
		svc := newTestService(newFakePaymentRepo(pendingPayment(aptID)), aptID)

		_, err := svc.Create(context.Background(), uuid.New(), &model.CreatePaymentRequest{
			AppointmentID: aptID,
			AmountCents:   10000,
			Method:        model.PaymentMethodCash,
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrConflict))
	})

	t.Run("rejects even when the first payment is cancelled", func(t *testing.T) {
		aptID := uuid.New()
		p := pendingPayment(aptID)
		p.Status = model.PaymentStatusCancelled
		svc := newTestService(newFakePaymentRepo(p), aptID)

		_, err := svc.Create(context.Background(), uuid.New(), &model.CreatePaymentRequest{
			AppointmentID: aptID,
			AmountCents:   10000,
			Method:        model.PaymentMethodCash,
		})
		assert.True(t, apperrors.IsCode(err, apperrors.ErrConflict))
	})

	t.Run("unknown appointment", func(t *testing.T) {
		svc := newTestService(newFakePaymentRepo())

		_, err := svc.Create(context.Background(), uuid.New(), &model.CreatePaymentRequest{
			AppointmentID: uuid.New(),
			AmountCents:   10000,
			Method:        model.PaymentMethodCash,
		})
		assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
	})
}

func TestMarkPaid(t *testing.T) {
	t.Run("marks a pending payment paid now", func(t *testing.T) {
		aptID := uuid.New()
		p := pendingPayment(aptID)
		repo := newFakePaymentRepo(p)
		svc := newTestService(repo, aptID)

		paid, err := svc.MarkPaid(context.Background(), uuid.New(), p.ID, &model.MarkPaymentPaidRequest{})
		require.NoError(t, err)
		assert.Equal(t, model.PaymentStatusPaid, paid.Status)
		require.NotNil(t, paid.PaidAt)
		assert.Equal(t, time.Date(2026, 5, 20, 18, 0, 0, 0, time.UTC), *paid.PaidAt)
	})

	t.Run("backdates to noon of the civil date in the clinic timezone", func(t *testing.T) {
		aptID := uuid.New()
		p := pendingPayment(aptID)
		svc := newTestService(newFakePaymentRepo(p), aptID)

		paid, err := svc.MarkPaid(context.Background(), uuid.New(), p.ID, &model.MarkPaymentPaidRequest{
			PaidDate: "2026-05-18",
		})
		require.NoError(t, err)
		require.NotNil(t, paid.PaidAt)
		// Noon in Mexico City (UTC-6 in May) is 18:00 UTC.
		assert.Equal(t, time.Date(2026, 5, 18, 18, 0, 0, 0, time.UTC), paid.PaidAt.UTC())
	})

	t.Run("is idempotent for an already paid payment", func(t *testing.T) {
		aptID := uuid.New()
		p := pendingPayment(aptID)
		original := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)
		p.Status = model.PaymentStatusPaid
		p.PaidAt = &original
		svc := newTestService(newFakePaymentRepo(p), aptID)

		paid, err := svc.MarkPaid(context.Background(), uuid.New(), p.ID, &model.MarkPaymentPaidRequest{
			PaidDate: "2026-05-19",
		})
		require.NoError(t, err)
		// The earlier receipt date survives a repeated call.
		assert.Equal(t, original, *paid.PaidAt)
	})

	t.Run("refuses cancelled and refunded payments", func(t *testing.T) {
		for _, status := range []model.PaymentStatus{model.PaymentStatusCancelled, model.PaymentStatusRefunded} {
			aptID := uuid.New()
			p := pendingPayment(aptID)
			p.Status = status
			svc := newTestService(newFakePaymentRepo(p), aptID)

			_, err := svc.MarkPaid(context.Background(), uuid.New(), p.ID, nil)
			assert.True(t, apperrors.IsCode(err, apperrors.ErrPreconditionFailed), "status %s", status)
		}
	})
}

func TestCancel(t *testing.T) {
	t.Run("cancels a pending payment", func(t *testing.T) {
		aptID := uuid.New()
		p := pendingPayment(aptID)
		svc := newTestService(newFakePaymentRepo(p), aptID)

		cancelled, err := svc.Cancel(context.Background(), uuid.New(), p.ID)
		require.NoError(t, err)
		assert.Equal(t, model.PaymentStatusCancelled, cancelled.Status)
	})

	t.Run("refuses a paid payment", func(t *testing.T) {
		aptID := uuid.New()
		p := pendingPayment(aptID)
		p.Status = model.PaymentStatusPaid
		svc := newTestService(newFakePaymentRepo(p), aptID)

		_, err := svc.Cancel(context.Background(), uuid.New(), p.ID)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrPreconditionFailed))
	})
}

func TestRefund(t *testing.T) {
	t.Run("refunds a paid payment", func(t *testing.T) {
		aptID := uuid.New()
		p := pendingPayment(aptID)
		paidAt := time.Date(2026, 5, 10, 18, 0, 0, 0, time.UTC)
		p.Status = model.PaymentStatusPaid
		p.PaidAt = &paidAt
		svc := newTestService(newFakePaymentRepo(p), aptID)

		refunded, err := svc.Refund(context.Background(), uuid.New(), p.ID)
		require.NoError(t, err)
		assert.Equal(t, model.PaymentStatusRefunded, refunded.Status)
		require.NotNil(t, refunded.RefundedAt)
		assert.Equal(t, time.Date(2026, 5, 20, 18, 0, 0, 0, time.UTC), *refunded.RefundedAt)
		// The receipt timestamp stays for the refund day accounting.
		assert.Equal(t, paidAt, *refunded.PaidAt)
	})

	t.Run("refuses a pending payment", func(t *testing.T) {
		aptID := uuid.New()
		p := pendingPayment(aptID)
		svc := newTestService(newFakePaymentRepo(p), aptID)

		_, err := svc.Refund(context.Background(), uuid.New(), p.ID)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrPreconditionFailed))
	})

	t.Run("unknown payment", func(t *testing.T) {
		svc := newTestService(newFakePaymentRepo())

		_, err := svc.Refund(context.Background(), uuid.New(), uuid.New())
		assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
	})
}
