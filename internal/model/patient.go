package model

import (
	"time"

	"github.com/google/uuid"
)

type Patient struct {
	Base
	Name        string `db:"name" json:"name"`
	Email       string `db:"email" json:"email"`
	Phone       string `db:"phone" json:"phone"`
	DateOfBirth string `db:"date_of_birth" json:"date_of_birth"`
}

// PatientDetail attaches the patient's medical record collection; the
// whole collection is dropped for receptionist callers.
type PatientDetail struct {
	Patient
	MedicalRecords []*MedicalRecord `json:"medical_records"`
}

// PatientHistoryEntry is one appointment in a patient's timeline. The
// medical record is nulled (not omitted) under redaction so the
// response shape stays stable for callers.
type PatientHistoryEntry struct {
	AppointmentID uuid.UUID         `json:"appointment_id"`
	StartTime     time.Time         `json:"start_time"`
	Status        AppointmentStatus `json:"status"`
	Type          string            `json:"type"`
	ClinicianName string            `json:"clinician_name"`
	Notes         string            `json:"notes,omitempty"`
	Payment       *Payment          `json:"payment"`
	MedicalRecord *MedicalRecord    `json:"medical_record"`
}
