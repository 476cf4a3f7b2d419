package model

import (
	"github.com/google/uuid"
)

type MedicalRecordStatus string

const (
	MedicalRecordStatusDraft MedicalRecordStatus = "DRAFT"
	MedicalRecordStatusFinal MedicalRecordStatus = "FINAL"
)

// MedicalRecord is the SOAP note attached to an appointment. The
// scheduling core only consults its existence and status; the clinical
// fields are opaque payload and subject to redaction.
type MedicalRecord struct {
	Base
	AppointmentID uuid.UUID           `db:"appointment_id" json:"appointment_id"`
	ClinicianID   uuid.UUID           `db:"clinician_id" json:"clinician_id"`
	Status        MedicalRecordStatus `db:"status" json:"status"`
	Subjective    string              `db:"subjective" json:"subjective,omitempty"`
	Objective     string              `db:"objective" json:"objective,omitempty"`
	Assessment    string              `db:"assessment" json:"assessment,omitempty"`
	Plan          string              `db:"plan" json:"plan,omitempty"`
	Notes         string              `db:"notes" json:"notes,omitempty"`
}

// IsFinal reports whether the record has been finalized by its
// clinician. Encounter completion requires this.
func (r *MedicalRecord) IsFinal() bool {
	return r != nil && r.Status == MedicalRecordStatusFinal
}

type UpdateMedicalRecordRequest struct {
	Subjective *string `json:"subjective" binding:"omitempty,max=10000"`
	Objective  *string `json:"objective" binding:"omitempty,max=10000"`
	Assessment *string `json:"assessment" binding:"omitempty,max=10000"`
	Plan       *string `json:"plan" binding:"omitempty,max=10000"`
	Notes      *string `json:"notes" binding:"omitempty,max=10000"`
}
