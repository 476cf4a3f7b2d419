package appointment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/clinic-api/internal/model"
	"github.com/clinicore/clinic-api/internal/repository"
	"github.com/clinicore/clinic-api/internal/service/audit"
	apperrors "github.com/clinicore/clinic-api/pkg/errors"
	"github.com/clinicore/clinic-api/pkg/metrics"
)

type fakeTx struct {
	existing []*model.Appointment
	exclude  *uuid.UUID

	created     []*model.Appointment
	slotUpdates int
	outbox      []*model.OutboxEvent
}

func (t *fakeTx) ListClinicianDay(_ context.Context, _ uuid.UUID, from, to time.Time, exclude *uuid.UUID) ([]*model.Appointment, error) {
	t.exclude = exclude
	var out []*model.Appointment
	for _, apt := range t.existing {
		if exclude != nil && apt.ID == *exclude {
			continue
		}
		if !apt.StartTime.Before(from) && apt.StartTime.Before(to) {
			out = append(out, apt)
		}
	}
	return out, nil
}

func (t *fakeTx) CreateAppointment(_ context.Context, apt *model.Appointment) error {
	t.created = append(t.created, apt)
	return nil
}

func (t *fakeTx) UpdateAppointmentSlot(_ context.Context, _ uuid.UUID, _ time.Time, _ int) error {
	t.slotUpdates++
	return nil
}

func (t *fakeTx) CreateOutboxEvent(_ context.Context, event *model.OutboxEvent) error {
	t.outbox = append(t.outbox, event)
	return nil
}

type fakeTxRunner struct {
	tx  *fakeTx
	err error
}

func (r *fakeTxRunner) Serializable(_ context.Context, fn func(tx repository.Tx) error) error {
	if r.err != nil {
		return r.err
	}
	return fn(r.tx)
}

type fakeAptRepo struct {
	appointments map[uuid.UUID]*model.Appointment
}

func newFakeAptRepo(apts ...*model.Appointment) *fakeAptRepo {
	m := make(map[uuid.UUID]*model.Appointment)
	for _, a := range apts {
		m[a.ID] = a
	}
	return &fakeAptRepo{appointments: m}
}

func (r *fakeAptRepo) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	apt, ok := r.appointments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *apt
	return &cp, nil
}

func (r *fakeAptRepo) GetDetail(_ context.Context, id uuid.UUID) (*model.AppointmentDetail, error) {
	apt, ok := r.appointments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &model.AppointmentDetail{Appointment: *apt}, nil
}

func (r *fakeAptRepo) UpdateStatus(_ context.Context, id uuid.UUID, status model.AppointmentStatus) error {
	apt, ok := r.appointments[id]
	if !ok {
		return repository.ErrNotFound
	}
	apt.Status = status
	return nil
}

func (r *fakeAptRepo) UpdateNotes(_ context.Context, id uuid.UUID, notes string) error {
	apt, ok := r.appointments[id]
	if !ok {
		return repository.ErrNotFound
	}
	apt.Notes = notes
	return nil
}

func (r *fakeAptRepo) ListDay(_ context.Context, _, _ time.Time, _ *uuid.UUID) ([]*model.AppointmentDetail, error) {
	return nil, nil
}

func (r *fakeAptRepo) ListPatientHistory(_ context.Context, _ uuid.UUID) ([]*model.PatientHistoryEntry, error) {
	return nil, nil
}

type fakeRecordRepo struct {
	records map[uuid.UUID]*model.MedicalRecord // keyed by appointment ID
	created int
}

func newFakeRecordRepo(records ...*model.MedicalRecord) *fakeRecordRepo {
	m := make(map[uuid.UUID]*model.MedicalRecord)
	for _, rec := range records {
		m[rec.AppointmentID] = rec
	}
	return &fakeRecordRepo{records: m}
}

func (r *fakeRecordRepo) Create(_ context.Context, record *model.MedicalRecord) error {
	if _, ok := r.records[record.AppointmentID]; ok {
		return repository.ErrDuplicate
	}
	r.records[record.AppointmentID] = record
	r.created++
	return nil
}

func (r *fakeRecordRepo) GetByAppointment(_ context.Context, appointmentID uuid.UUID) (*model.MedicalRecord, error) {
	rec, ok := r.records[appointmentID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return rec, nil
}

func (r *fakeRecordRepo) Update(_ context.Context, record *model.MedicalRecord) error {
	r.records[record.AppointmentID] = record
	return nil
}

func (r *fakeRecordRepo) Finalize(_ context.Context, id uuid.UUID) error {
	for _, rec := range r.records {
		if rec.ID == id {
			rec.Status = model.MedicalRecordStatusFinal
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *fakeRecordRepo) ListByPatient(_ context.Context, _ uuid.UUID) ([]*model.MedicalRecord, error) {
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
	return r.events, nil
}

func (r *fakeOutboxRepo) MarkProcessed(_ context.Context, _ uuid.UUID) error { return nil }

func (r *fakeOutboxRepo) MarkFailed(_ context.Context, _ uuid.UUID, _ string) error { return nil }

func (r *fakeOutboxRepo) DeleteProcessedBefore(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func newTestService(repo *fakeAptRepo, records *fakeRecordRepo, runner *fakeTxRunner) *Service {
	m := metrics.NewMetricsWith(prometheus.NewRegistry(), "test")
	return NewService(repo, records, runner, audit.NewService(&fakeOutboxRepo{}), m, "America/Mexico_City")
}

func aptAt(clinicianID uuid.UUID, start time.Time, minutes int, status model.AppointmentStatus) *model.Appointment {
	return &model.Appointment{
		Base:            model.Base{ID: uuid.New()},
		PatientID:       uuid.New(),
		ClinicianID:     clinicianID,
		StartTime:       start,
		DurationMinutes: minutes,
		Status:          status,
		Type:            "consultation",
	}
}

func TestBook(t *testing.T) {
	clinicianID := uuid.New()
	// 10:00 local on a plain Tuesday.
	start := time.Date(2026, 4, 14, 16, 0, 0, 0, time.UTC)

	t.Run("books a free slot", func(t *testing.T) {
		tx := &fakeTx{}
		svc := newTestService(newFakeAptRepo(), newFakeRecordRepo(), &fakeTxRunner{tx: tx})

		apt, err := svc.Book(context.Background(), uuid.New(), &model.CreateAppointmentRequest{
			PatientID:       uuid.New(),
			ClinicianID:     clinicianID,
			StartTime:       start,
			DurationMinutes: 30,
			Type:            "consultation",
		})
		require.NoError(t, err)
		assert.Equal(t, model.AppointmentStatusScheduled, apt.Status)
		require.Len(t, tx.created, 1)
		require.Len(t, tx.outbox, 1)
		assert.Equal(t, "appointment.booked", tx.outbox[0].EventType)
	})

	t.Run("rejects an overlapping slot", func(t *testing.T) {
		tx := &fakeTx{existing: []*model.Appointment{
			aptAt(clinicianID, start, 60, model.AppointmentStatusConfirmed),
		}}
		svc := newTestService(newFakeAptRepo(), newFakeRecordRepo(), &fakeTxRunner{tx: tx})

		_, err := svc.Book(context.Background(), uuid.New(), &model.CreateAppointmentRequest{
			PatientID:       uuid.New(),
			ClinicianID:     clinicianID,
			StartTime:       start.Add(30 * time.Minute),
			DurationMinutes: 30,
			Type:            "consultation",
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrConflict))
		assert.Empty(t, tx.created)
	})

	t.Run("allows a touching slot", func(t *testing.T) {
		// [10:00, 11:00) then [11:00, 11:30): shared boundary, no overlap.
		tx := &fakeTx{existing: []*model.Appointment{
			aptAt(clinicianID, start, 60, model.AppointmentStatusConfirmed),
		}}
		svc := newTestService(newFakeAptRepo(), newFakeRecordRepo(), &fakeTxRunner{tx: tx})

		_, err := svc.Book(context.Background(), uuid.New(), &model.CreateAppointmentRequest{
			PatientID:       uuid.New(),
			ClinicianID:     clinicianID,
			StartTime:       start.Add(60 * time.Minute),
			DurationMinutes: 30,
			Type:            "consultation",
		})
		require.NoError(t, err)
		require.Len(t, tx.created, 1)
	})

	t.Run("ignores cancelled appointments", func(t *testing.T) {
		tx := &fakeTx{}
		svc := newTestService(newFakeAptRepo(), newFakeRecordRepo(), &fakeTxRunner{tx: tx})

		// The storage layer filters CANCELLED and NO_SHOW out of the
		// day scan; the fake mimics an empty scan result.
		_, err := svc.Book(context.Background(), uuid.New(), &model.CreateAppointmentRequest{
			PatientID:       uuid.New(),
			ClinicianID:     clinicianID,
			StartTime:       start,
			DurationMinutes: 30,
			Type:            "consultation",
		})
		require.NoError(t, err)
	})

	t.Run("maps a serialization abort to a conflict", func(t *testing.T) {
		svc := newTestService(newFakeAptRepo(), newFakeRecordRepo(), &fakeTxRunner{err: repository.ErrSerialization})

		_, err := svc.Book(context.Background(), uuid.New(), &model.CreateAppointmentRequest{
			PatientID:       uuid.New(),
			ClinicianID:     clinicianID,
			StartTime:       start,
			DurationMinutes: 30,
			Type:            "consultation",
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrConflict))
	})

	t.Run("rejects out-of-range durations", func(t *testing.T) {
		svc := newTestService(newFakeAptRepo(), newFakeRecordRepo(), &fakeTxRunner{tx: &fakeTx{}})

		for _, minutes := range []int{0, 10, 14, 121, 600} {
			_, err := svc.Book(context.Background(), uuid.New(), &model.CreateAppointmentRequest{
				PatientID:       uuid.New(),
				ClinicianID:     clinicianID,
				StartTime:       start,
				DurationMinutes: minutes,
				Type:            "consultation",
			})
			assert.True(t, apperrors.IsCode(err, apperrors.ErrBadRequest), "duration %d", minutes)
		}
	})
}

func TestReschedule(t *testing.T) {
	clinicianID := uuid.New()
	start := time.Date(2026, 4, 14, 16, 0, 0, 0, time.UTC)

	t.Run("excludes itself from the conflict scan", func(t *testing.T) {
		apt := aptAt(clinicianID, start, 60, model.AppointmentStatusScheduled)
		tx := &fakeTx{existing: []*model.Appointment{apt}}
		svc := newTestService(newFakeAptRepo(apt), newFakeRecordRepo(), &fakeTxRunner{tx: tx})

		// Shift 30 minutes later; only blocker in the day is itself.
		updated, err := svc.Reschedule(context.Background(), uuid.New(), apt.ID, &model.RescheduleAppointmentRequest{
			StartTime:       start.Add(30 * time.Minute),
			DurationMinutes: 60,
		})
		require.NoError(t, err)
		require.NotNil(t, tx.exclude)
		assert.Equal(t, apt.ID, *tx.exclude)
		assert.Equal(t, 1, tx.slotUpdates)
		assert.Equal(t, start.Add(30*time.Minute), updated.StartTime)
	})

	t.Run("rejects a move onto another appointment", func(t *testing.T) {
		apt := aptAt(clinicianID, start, 30, model.AppointmentStatusScheduled)
		other := aptAt(clinicianID, start.Add(time.Hour), 30, model.AppointmentStatusConfirmed)
		tx := &fakeTx{existing: []*model.Appointment{apt, other}}
		svc := newTestService(newFakeAptRepo(apt), newFakeRecordRepo(), &fakeTxRunner{tx: tx})

		_, err := svc.Reschedule(context.Background(), uuid.New(), apt.ID, &model.RescheduleAppointmentRequest{
			StartTime:       start.Add(time.Hour),
			DurationMinutes: 30,
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrConflict))
		assert.Zero(t, tx.slotUpdates)
	})

	t.Run("rejects terminal appointments", func(t *testing.T) {
		for _, status := range []model.AppointmentStatus{
			model.AppointmentStatusCompleted,
			model.AppointmentStatusCancelled,
			model.AppointmentStatusNoShow,
		} {
			apt := aptAt(clinicianID, start, 30, status)
			svc := newTestService(newFakeAptRepo(apt), newFakeRecordRepo(), &fakeTxRunner{tx: &fakeTx{}})

			_, err := svc.Reschedule(context.Background(), uuid.New(), apt.ID, &model.RescheduleAppointmentRequest{
				StartTime:       start.Add(time.Hour),
				DurationMinutes: 30,
			})
			assert.True(t, apperrors.IsCode(err, apperrors.ErrPreconditionFailed), "status %s", status)
		}
	})

	t.Run("unknown appointment", func(t *testing.T) {
		svc := newTestService(newFakeAptRepo(), newFakeRecordRepo(), &fakeTxRunner{tx: &fakeTx{}})

		_, err := svc.Reschedule(context.Background(), uuid.New(), uuid.New(), &model.RescheduleAppointmentRequest{
			StartTime:       start,
			DurationMinutes: 30,
		})
		assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
	})
}

func TestTransition(t *testing.T) {
	clinicianID := uuid.New()
	start := time.Date(2026, 4, 14, 16, 0, 0, 0, time.UTC)

	t.Run("legal transitions succeed", func(t *testing.T) {
		apt := aptAt(clinicianID, start, 30, model.AppointmentStatusScheduled)
		repo := newFakeAptRepo(apt)
		svc := newTestService(repo, newFakeRecordRepo(), &fakeTxRunner{tx: &fakeTx{}})

		updated, err := svc.Transition(context.Background(), uuid.New(), apt.ID, model.AppointmentStatusConfirmed)
		require.NoError(t, err)
		assert.Equal(t, model.AppointmentStatusConfirmed, updated.Status)
		assert.Equal(t, model.AppointmentStatusConfirmed, repo.appointments[apt.ID].Status)
	})

	t.Run("illegal transitions fail the precondition", func(t *testing.T) {
		cases := []struct {
			from, to model.AppointmentStatus
		}{
			{model.AppointmentStatusScheduled, model.AppointmentStatusCompleted},
			{model.AppointmentStatusCompleted, model.AppointmentStatusScheduled},
			{model.AppointmentStatusCancelled, model.AppointmentStatusConfirmed},
			{model.AppointmentStatusNoShow, model.AppointmentStatusInProgress},
			{model.AppointmentStatusInProgress, model.AppointmentStatusConfirmed},
		}
		for _, tc := range cases {
			apt := aptAt(clinicianID, start, 30, tc.from)
			repo := newFakeAptRepo(apt)
			svc := newTestService(repo, newFakeRecordRepo(), &fakeTxRunner{tx: &fakeTx{}})

			_, err := svc.Transition(context.Background(), uuid.New(), apt.ID, tc.to)
			require.Error(t, err, "%s -> %s", tc.from, tc.to)
			assert.True(t, apperrors.IsCode(err, apperrors.ErrPreconditionFailed), "%s -> %s", tc.from, tc.to)
			// The stored status must not move on a rejected transition.
			assert.Equal(t, tc.from, repo.appointments[apt.ID].Status)
		}
	})

	t.Run("unknown target status", func(t *testing.T) {
		apt := aptAt(clinicianID, start, 30, model.AppointmentStatusScheduled)
		svc := newTestService(newFakeAptRepo(apt), newFakeRecordRepo(), &fakeTxRunner{tx: &fakeTx{}})

		_, err := svc.Transition(context.Background(), uuid.New(), apt.ID, model.AppointmentStatus("ARCHIVED"))
		assert.True(t, apperrors.IsCode(err, apperrors.ErrBadRequest))
	})
}

func TestStartEncounter(t *testing.T) {
	clinicianID := uuid.New()
	start := time.Date(2026, 4, 14, 16, 0, 0, 0, time.UTC)

	t.Run("creates a draft record when none exists", func(t *testing.T) {
		apt := aptAt(clinicianID, start, 30, model.AppointmentStatusConfirmed)
		records := newFakeRecordRepo()
		svc := newTestService(newFakeAptRepo(apt), records, &fakeTxRunner{tx: &fakeTx{}})

		updated, err := svc.StartEncounter(context.Background(), uuid.New(), apt.ID)
		require.NoError(t, err)
		assert.Equal(t, model.AppointmentStatusInProgress, updated.Status)
		assert.Equal(t, 1, records.created)
		assert.Equal(t, model.MedicalRecordStatusDraft, records.records[apt.ID].Status)
	})

	t.Run("keeps an existing record", func(t *testing.T) {
		apt := aptAt(clinicianID, start, 30, model.AppointmentStatusScheduled)
		existing := &model.MedicalRecord{
			Base:          model.Base{ID: uuid.New()},
			AppointmentID: apt.ID,
			ClinicianID:   clinicianID,
			Status:        model.MedicalRecordStatusDraft,
			Subjective:    "headache for two days",
		}
		records := newFakeRecordRepo(existing)
		svc := newTestService(newFakeAptRepo(apt), records, &fakeTxRunner{tx: &fakeTx{}})

		_, err := svc.StartEncounter(context.Background(), uuid.New(), apt.ID)
		require.NoError(t, err)
		assert.Zero(t, records.created)
		assert.Equal(t, "headache for two days", records.records[apt.ID].Subjective)
	})

	t.Run("refuses to start a completed appointment", func(t *testing.T) {
		apt := aptAt(clinicianID, start, 30, model.AppointmentStatusCompleted)
		svc := newTestService(newFakeAptRepo(apt), newFakeRecordRepo(), &fakeTxRunner{tx: &fakeTx{}})

		_, err := svc.StartEncounter(context.Background(), uuid.New(), apt.ID)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrPreconditionFailed))
	})
}

func TestCompleteEncounter(t *testing.T) {
	clinicianID := uuid.New()
	start := time.Date(2026, 4, 14, 16, 0, 0, 0, time.UTC)

	record := func(aptID uuid.UUID, status model.MedicalRecordStatus) *model.MedicalRecord {
		return &model.MedicalRecord{
			Base:          model.Base{ID: uuid.New()},
			AppointmentID: aptID,
			ClinicianID:   clinicianID,
			Status:        status,
		}
	}

	t.Run("completes with a finalized record", func(t *testing.T) {
		apt := aptAt(clinicianID, start, 30, model.AppointmentStatusInProgress)
		svc := newTestService(newFakeAptRepo(apt), newFakeRecordRepo(record(apt.ID, model.MedicalRecordStatusFinal)), &fakeTxRunner{tx: &fakeTx{}})

		updated, err := svc.CompleteEncounter(context.Background(), uuid.New(), apt.ID)
		require.NoError(t, err)
		assert.Equal(t, model.AppointmentStatusCompleted, updated.Status)
	})

	t.Run("refuses with a draft record", func(t *testing.T) {
		apt := aptAt(clinicianID, start, 30, model.AppointmentStatusInProgress)
		repo := newFakeAptRepo(apt)
		svc := newTestService(repo, newFakeRecordRepo(record(apt.ID, model.MedicalRecordStatusDraft)), &fakeTxRunner{tx: &fakeTx{}})

		_, err := svc.CompleteEncounter(context.Background(), uuid.New(), apt.ID)
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrPreconditionFailed))
		assert.Equal(t, model.AppointmentStatusInProgress, repo.appointments[apt.ID].Status)
	})

	t.Run("refuses with no record at all", func(t *testing.T) {
		apt := aptAt(clinicianID, start, 30, model.AppointmentStatusInProgress)
		svc := newTestService(newFakeAptRepo(apt), newFakeRecordRepo(), &fakeTxRunner{tx: &fakeTx{}})

		_, err := svc.CompleteEncounter(context.Background(), uuid.New(), apt.ID)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrPreconditionFailed))
	})

	t.Run("refuses from a non IN_PROGRESS status", func(t *testing.T) {
		apt := aptAt(clinicianID, start, 30, model.AppointmentStatusConfirmed)
		svc := newTestService(newFakeAptRepo(apt), newFakeRecordRepo(record(apt.ID, model.MedicalRecordStatusFinal)), &fakeTxRunner{tx: &fakeTx{}})

		_, err := svc.CompleteEncounter(context.Background(), uuid.New(), apt.ID)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrPreconditionFailed))
	})
}
