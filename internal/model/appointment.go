package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusScheduled  AppointmentStatus = "SCHEDULED"
	AppointmentStatusConfirmed  AppointmentStatus = "CONFIRMED"
	AppointmentStatusInProgress AppointmentStatus = "IN_PROGRESS"
	AppointmentStatusCompleted  AppointmentStatus = "COMPLETED"
	AppointmentStatusCancelled  AppointmentStatus = "CANCELLED"
	AppointmentStatusNoShow     AppointmentStatus = "NO_SHOW"
)

// AppointmentStatuses lists every status the lifecycle knows about.
var AppointmentStatuses = []AppointmentStatus{
	AppointmentStatusScheduled,
	AppointmentStatusConfirmed,
	AppointmentStatusInProgress,
	AppointmentStatusCompleted,
	AppointmentStatusCancelled,
	AppointmentStatusNoShow,
}

// appointmentTransitions is the complete adjacency set of the status
// lifecycle. COMPLETED, CANCELLED and NO_SHOW are terminal: they map to
// an empty set, not a missing key, so the table stays total over all
// statuses and can be checked at startup.
var appointmentTransitions = map[AppointmentStatus]map[AppointmentStatus]bool{
	AppointmentStatusScheduled: {
		AppointmentStatusConfirmed:  true,
		AppointmentStatusInProgress: true,
		AppointmentStatusCancelled:  true,
	},
	AppointmentStatusConfirmed: {
		AppointmentStatusInProgress: true,
		AppointmentStatusCancelled:  true,
		AppointmentStatusNoShow:     true,
	},
	AppointmentStatusInProgress: {
		AppointmentStatusCompleted: true,
	},
	AppointmentStatusCompleted: {},
	AppointmentStatusCancelled: {},
	AppointmentStatusNoShow:    {},
}

func init() {
	for _, s := range AppointmentStatuses {
		if _, ok := appointmentTransitions[s]; !ok {
			panic("appointment transition table missing status " + string(s))
		}
	}
}

// IsValid reports whether s is one of the known statuses.
func (s AppointmentStatus) IsValid() bool {
	_, ok := appointmentTransitions[s]
	return ok
}

// CanTransitionTo reports whether the lifecycle permits moving from s
// to next.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	return appointmentTransitions[s][next]
}

// IsTerminal reports whether s has no outgoing transitions.
func (s AppointmentStatus) IsTerminal() bool {
	return len(appointmentTransitions[s]) == 0
}

type Appointment struct {
	Base
	PatientID       uuid.UUID         `db:"patient_id" json:"patient_id"`
	ClinicianID     uuid.UUID         `db:"clinician_id" json:"clinician_id"`
	StartTime       time.Time         `db:"start_time" json:"start_time"`
	DurationMinutes int               `db:"duration_minutes" json:"duration_minutes"`
	Status          AppointmentStatus `db:"status" json:"status"`
	Type            string            `db:"type" json:"type"`
	Notes           string            `db:"notes" json:"notes,omitempty"`
}

// EndTime derives the appointment's exclusive end instant.
func (a *Appointment) EndTime() time.Time {
	return a.StartTime.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

// Overlaps tests half-open interval overlap with another appointment:
// [s1,e1) and [s2,e2) overlap iff s1 < e2 && s2 < e1.
func (a *Appointment) Overlaps(start, end time.Time) bool {
	return a.StartTime.Before(end) && start.Before(a.EndTime())
}

// AppointmentDetail is an appointment joined with the summaries the
// read endpoints attach. MedicalRecord is nil when none exists yet.
type AppointmentDetail struct {
	Appointment
	PatientName   string         `db:"patient_name" json:"patient_name"`
	ClinicianName string         `db:"clinician_name" json:"clinician_name"`
	Payment       *Payment       `json:"payment,omitempty"`
	MedicalRecord *MedicalRecord `json:"medical_record,omitempty"`
}

type CreateAppointmentRequest struct {
	PatientID       uuid.UUID `json:"patient_id" binding:"required"`
	ClinicianID     uuid.UUID `json:"clinician_id" binding:"required"`
	StartTime       time.Time `json:"start_time" binding:"required"`
	DurationMinutes int       `json:"duration_minutes" binding:"required,min=15,max=120"`
	Type            string    `json:"type" binding:"required,max=120"`
	Notes           string    `json:"notes" binding:"max=2000"`
}

type RescheduleAppointmentRequest struct {
	StartTime       time.Time `json:"start_time" binding:"required"`
	DurationMinutes int       `json:"duration_minutes" binding:"required,min=15,max=120"`
}
