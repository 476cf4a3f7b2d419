package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinic-api/internal/model"
)

// Sentinel outcomes the storage layer distinguishes for the services.
var (
	// ErrNotFound is returned when a point lookup matches nothing.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a uniqueness constraint rejects a
	// write (one payment per appointment).
	ErrDuplicate = errors.New("duplicate")
	// ErrSerialization is returned when the database aborts a
	// serializable transaction because of a concurrent conflict. The
	// caller surfaces it as a retryable conflict, never as an internal
	// error.
	ErrSerialization = errors.New("serialization failure")
)

// Tx is the write surface available inside a booking transaction. The
// conflict check and the appointment write share one transaction so no
// intermediate state is observable.
type Tx interface {
	ListClinicianDay(ctx context.Context, clinicianID uuid.UUID, from, to time.Time, exclude *uuid.UUID) ([]*model.Appointment, error)
	CreateAppointment(ctx context.Context, apt *model.Appointment) error
	UpdateAppointmentSlot(ctx context.Context, id uuid.UUID, start time.Time, durationMinutes int) error
	CreateOutboxEvent(ctx context.Context, event *model.OutboxEvent) error
}

// TxRunner opens a transaction at serializable isolation and runs fn
// inside it. A concurrent abort surfaces as ErrSerialization.
type TxRunner interface {
	Serializable(ctx context.Context, fn func(tx Tx) error) error
}

type (
	AppointmentRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		GetDetail(ctx context.Context, id uuid.UUID) (*model.AppointmentDetail, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus) error
		UpdateNotes(ctx context.Context, id uuid.UUID, notes string) error
		ListDay(ctx context.Context, from, to time.Time, clinicianID *uuid.UUID) ([]*model.AppointmentDetail, error)
		ListPatientHistory(ctx context.Context, patientID uuid.UUID) ([]*model.PatientHistoryEntry, error)
	}

	PaymentRepository interface {
		Create(ctx context.Context, payment *model.Payment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Payment, error)
		GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.Payment, error)
		Update(ctx context.Context, payment *model.Payment) error
		// ListRowsInRange prefetches payment rows whose effective
		// instant may fall in [from, to): paid_at for PAID, the
		// appointment start for PENDING and CANCELLED, refunded_at for
		// REFUNDED. Exact civil-date filtering happens in the service.
		ListRowsInRange(ctx context.Context, from, to time.Time, clinicianID *uuid.UUID) ([]*model.PaymentRow, error)
		ListPendingRows(ctx context.Context, from, to time.Time, clinicianID *uuid.UUID) ([]*model.PaymentRow, error)
	}

	MedicalRecordRepository interface {
		Create(ctx context.Context, record *model.MedicalRecord) error
		GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.MedicalRecord, error)
		Update(ctx context.Context, record *model.MedicalRecord) error
		Finalize(ctx context.Context, id uuid.UUID) error
		ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.MedicalRecord, error)
	}

	PatientRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
	}

	ClinicianRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Clinician, error)
		GetByEmail(ctx context.Context, email string) (*model.Clinician, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
		DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	}
)
