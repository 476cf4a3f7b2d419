package model

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusPaid      PaymentStatus = "PAID"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

type PaymentMethod string

const (
	PaymentMethodCash            PaymentMethod = "CASH"
	PaymentMethodCard            PaymentMethod = "CARD"
	PaymentMethodTransfer        PaymentMethod = "TRANSFER"
	PaymentMethodInstantTransfer PaymentMethod = "INSTANT_TRANSFER"
)

// Payment holds a single charge for an appointment. Amounts are integer
// minor currency units; no floating point anywhere in the money path.
// At most one payment exists per appointment at any time.
type Payment struct {
	Base
	AppointmentID uuid.UUID     `db:"appointment_id" json:"appointment_id"`
	AmountCents   int64         `db:"amount_cents" json:"amount_cents"`
	Method        PaymentMethod `db:"method" json:"method"`
	Status        PaymentStatus `db:"status" json:"status"`
	PaidAt        *time.Time    `db:"paid_at" json:"paid_at,omitempty"`
	RefundedAt    *time.Time    `db:"refunded_at" json:"refunded_at,omitempty"`
}

type CreatePaymentRequest struct {
	AppointmentID uuid.UUID     `json:"appointment_id" binding:"required"`
	AmountCents   int64         `json:"amount_cents" binding:"required,gt=0"`
	Method        PaymentMethod `json:"method" binding:"required,oneof=CASH CARD TRANSFER INSTANT_TRANSFER"`
}

type MarkPaymentPaidRequest struct {
	// PaidDate optionally backdates the receipt to a civil date; the
	// stored instant is noon of that date in the clinic timezone.
	PaidDate string `json:"paid_date" binding:"omitempty,datetime=2006-01-02"`
}

// PaymentRow is a payment joined with its appointment for the finance
// aggregations: the appointment start drives the effective date of
// PENDING and CANCELLED payments.
type PaymentRow struct {
	Payment
	AppointmentStart time.Time `db:"appointment_start" json:"appointment_start"`
	ClinicianID      uuid.UUID `db:"clinician_id" json:"clinician_id"`
	ClinicianName    string    `db:"clinician_name" json:"clinician_name"`
	PatientID        uuid.UUID `db:"patient_id" json:"patient_id"`
	PatientName      string    `db:"patient_name" json:"patient_name"`
}
