package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/clinic-api/internal/model"
)

type fakeAptRepo struct {
	from, to time.Time
	details  []*model.AppointmentDetail
}

func (r *fakeAptRepo) Get(_ context.Context, _ uuid.UUID) (*model.Appointment, error) {
	return nil, nil
}

func (r *fakeAptRepo) GetDetail(_ context.Context, _ uuid.UUID) (*model.AppointmentDetail, error) {
	return nil, nil
}

func (r *fakeAptRepo) UpdateStatus(_ context.Context, _ uuid.UUID, _ model.AppointmentStatus) error {
	return nil
}

func (r *fakeAptRepo) UpdateNotes(_ context.Context, _ uuid.UUID, _ string) error {
	return nil
}

func (r *fakeAptRepo) ListDay(_ context.Context, from, to time.Time, _ *uuid.UUID) ([]*model.AppointmentDetail, error) {
	r.from, r.to = from, to
	return r.details, nil
}

func (r *fakeAptRepo) ListPatientHistory(_ context.Context, _ uuid.UUID) ([]*model.PatientHistoryEntry, error) {
	return nil, nil
}

func detail(status model.AppointmentStatus, start time.Time, opts ...func(*model.AppointmentDetail)) *model.AppointmentDetail {
	d := &model.AppointmentDetail{
		Appointment: model.Appointment{
			Base:            model.Base{ID: uuid.New()},
			PatientID:       uuid.New(),
			ClinicianID:     uuid.New(),
			StartTime:       start,
			DurationMinutes: 30,
			Status:          status,
			Type:            "consultation",
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func withPayment(status model.PaymentStatus, cents int64) func(*model.AppointmentDetail) {
	return func(d *model.AppointmentDetail) {
		d.Payment = &model.Payment{
			Base:          model.Base{ID: uuid.New()},
			AppointmentID: d.ID,
			AmountCents:   cents,
			Method:        model.PaymentMethodCash,
			Status:        status,
		}
	}
}

func withRecord(status model.MedicalRecordStatus) func(*model.AppointmentDetail) {
	return func(d *model.AppointmentDetail) {
		d.MedicalRecord = &model.MedicalRecord{
			Base:          model.Base{ID: uuid.New()},
			AppointmentID: d.ID,
			Status:        status,
		}
	}
}

func TestBuildKPIs(t *testing.T) {
	now := time.Date(2026, 4, 14, 15, 0, 0, 0, time.UTC)

	details := []*model.AppointmentDetail{
		detail(model.AppointmentStatusCompleted, now.Add(-4*time.Hour), withRecord(model.MedicalRecordStatusFinal), withPayment(model.PaymentStatusPaid, 50000)),
		detail(model.AppointmentStatusScheduled, now.Add(2*time.Hour), withPayment(model.PaymentStatusPending, 30000)),
		detail(model.AppointmentStatusCancelled, now.Add(3*time.Hour), withPayment(model.PaymentStatusCancelled, 99900)),
		detail(model.AppointmentStatusNoShow, now.Add(-2*time.Hour)),
		detail(model.AppointmentStatusConfirmed, now.Add(4*time.Hour), withPayment(model.PaymentStatusRefunded, 12300)),
	}

	board := Build("2026-04-14", details, now)

	assert.Equal(t, 5, board.KPIs.Total)
	assert.Equal(t, 2, board.KPIs.Remaining, "completed, cancelled and no-show are done")
	assert.EqualValues(t, 50000, board.KPIs.ReceivedCents)
	assert.EqualValues(t, 30000, board.KPIs.PendingCents, "cancelled and refunded money counts nowhere")
	assert.Equal(t, 1, board.KPIs.ByStatus[model.AppointmentStatusScheduled])
	assert.Equal(t, 0, board.KPIs.ByStatus[model.AppointmentStatusInProgress], "every status is present even at zero")

	// Row count and KPI totals come from one pass over the same rows.
	assert.Len(t, board.Rows, board.KPIs.Total)
	sum := 0
	for _, n := range board.KPIs.ByStatus {
		sum += n
	}
	assert.Equal(t, board.KPIs.Total, sum)
}

func TestBuildFlags(t *testing.T) {
	now := time.Date(2026, 4, 14, 15, 0, 0, 0, time.UTC)

	t.Run("upcomingUnconfirmed", func(t *testing.T) {
		cases := []struct {
			name   string
			d      *model.AppointmentDetail
			expect bool
		}{
			{"scheduled in 30 minutes", detail(model.AppointmentStatusScheduled, now.Add(30*time.Minute)), true},
			{"scheduled exactly 60 minutes out", detail(model.AppointmentStatusScheduled, now.Add(60*time.Minute)), true},
			{"scheduled right now", detail(model.AppointmentStatusScheduled, now), true},
			{"scheduled 61 minutes out", detail(model.AppointmentStatusScheduled, now.Add(61*time.Minute)), false},
			{"already past start", detail(model.AppointmentStatusScheduled, now.Add(-time.Minute)), false},
			{"confirmed in 30 minutes", detail(model.AppointmentStatusConfirmed, now.Add(30*time.Minute)), false},
		}
		for _, tc := range cases {
			board := Build("2026-04-14", []*model.AppointmentDetail{tc.d}, now)
			assert.Equal(t, tc.expect, board.Rows[0].UpcomingUnconfirmed, tc.name)
		}
	})

	t.Run("overdueInProgress", func(t *testing.T) {
		cases := []struct {
			name   string
			d      *model.AppointmentDetail
			expect bool
		}{
			{"in progress 91 minutes", detail(model.AppointmentStatusInProgress, now.Add(-91*time.Minute), withRecord(model.MedicalRecordStatusDraft)), true},
			{"in progress exactly 90 minutes", detail(model.AppointmentStatusInProgress, now.Add(-90*time.Minute), withRecord(model.MedicalRecordStatusDraft)), false},
			{"in progress 10 minutes", detail(model.AppointmentStatusInProgress, now.Add(-10*time.Minute), withRecord(model.MedicalRecordStatusDraft)), false},
			{"completed 3 hours ago", detail(model.AppointmentStatusCompleted, now.Add(-3*time.Hour), withRecord(model.MedicalRecordStatusFinal)), false},
		}
		for _, tc := range cases {
			board := Build("2026-04-14", []*model.AppointmentDetail{tc.d}, now)
			assert.Equal(t, tc.expect, board.Rows[0].OverdueInProgress, tc.name)
		}
	})

	t.Run("missingSoap", func(t *testing.T) {
		cases := []struct {
			name   string
			d      *model.AppointmentDetail
			expect bool
		}{
			{"in progress without record", detail(model.AppointmentStatusInProgress, now), true},
			{"in progress with draft", detail(model.AppointmentStatusInProgress, now, withRecord(model.MedicalRecordStatusDraft)), false},
			{"completed with final record", detail(model.AppointmentStatusCompleted, now, withRecord(model.MedicalRecordStatusFinal)), false},
			{"completed with draft record", detail(model.AppointmentStatusCompleted, now, withRecord(model.MedicalRecordStatusDraft)), true},
			{"completed without record", detail(model.AppointmentStatusCompleted, now), true},
			{"scheduled without record", detail(model.AppointmentStatusScheduled, now), false},
		}
		for _, tc := range cases {
			board := Build("2026-04-14", []*model.AppointmentDetail{tc.d}, now)
			assert.Equal(t, tc.expect, board.Rows[0].MissingSoap, tc.name)
		}
	})
}

func TestDayWindowTimezone(t *testing.T) {
	t.Run("omitted timezone uses the clinic's", func(t *testing.T) {
		repo := &fakeAptRepo{}
		svc := NewService(repo, "America/Mexico_City")

		_, err := svc.Day(context.Background(), "2026-05-11", "", nil)
		require.NoError(t, err)

		// Mexico City is UTC-6, so the local day starts at 06:00 UTC. An
		// evening appointment must land on its local date, not UTC's.
		assert.Equal(t, time.Date(2026, 5, 11, 6, 0, 0, 0, time.UTC), repo.from)
		assert.Equal(t, time.Date(2026, 5, 12, 6, 0, 0, 0, time.UTC), repo.to)
	})

	t.Run("explicit timezone wins", func(t *testing.T) {
		repo := &fakeAptRepo{}
		svc := NewService(repo, "America/Mexico_City")

		_, err := svc.Day(context.Background(), "2026-05-11", "UTC", nil)
		require.NoError(t, err)

		assert.Equal(t, time.Date(2026, 5, 11, 0, 0, 0, 0, time.UTC), repo.from)
		assert.Equal(t, time.Date(2026, 5, 12, 0, 0, 0, 0, time.UTC), repo.to)
	})
}

func TestBuildEmptyDay(t *testing.T) {
	board := Build("2026-04-14", nil, time.Date(2026, 4, 14, 15, 0, 0, 0, time.UTC))

	require.NotNil(t, board)
	assert.Equal(t, 0, board.KPIs.Total)
	assert.Empty(t, board.Rows)
	assert.Len(t, board.KPIs.ByStatus, len(model.AppointmentStatuses))
}
