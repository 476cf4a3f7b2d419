package model

import (
	"time"

	"github.com/google/uuid"
)

// FinanceSummaryRequest bounds a summary query to an inclusive civil
// date range, optionally narrowed to one clinician.
type FinanceSummaryRequest struct {
	StartDate   string     `form:"start_date" binding:"required,datetime=2006-01-02"`
	EndDate     string     `form:"end_date" binding:"required,datetime=2006-01-02"`
	ClinicianID *uuid.UUID `form:"-"`
	Timezone    string     `form:"timezone" binding:"omitempty,timezone"`
}

// DailyAmount is one point of the daily series. Every civil date in the
// requested range gets a point, zero-filled when nothing landed there.
type DailyAmount struct {
	Date        string `json:"date"`
	AmountCents int64  `json:"amount_cents"`
}

// MethodBreakdown tracks received/pending totals and counts for one
// payment method.
type MethodBreakdown struct {
	Method        PaymentMethod `json:"method"`
	ReceivedCents int64         `json:"received_cents"`
	ReceivedCount int           `json:"received_count"`
	PendingCents  int64         `json:"pending_cents"`
	PendingCount  int           `json:"pending_count"`
}

func (b *MethodBreakdown) AddReceived(cents int64) {
	b.ReceivedCents += cents
	b.ReceivedCount++
}

func (b *MethodBreakdown) AddPending(cents int64) {
	b.PendingCents += cents
	b.PendingCount++
}

// ClinicianBreakdown tracks received/pending totals and counts for one
// clinician.
type ClinicianBreakdown struct {
	ClinicianID   uuid.UUID `json:"clinician_id"`
	ClinicianName string    `json:"clinician_name"`
	ReceivedCents int64     `json:"received_cents"`
	ReceivedCount int       `json:"received_count"`
	PendingCents  int64     `json:"pending_cents"`
	PendingCount  int       `json:"pending_count"`
}

func (b *ClinicianBreakdown) AddReceived(cents int64) {
	b.ReceivedCents += cents
	b.ReceivedCount++
}

func (b *ClinicianBreakdown) AddPending(cents int64) {
	b.PendingCents += cents
	b.PendingCount++
}

// PendingPayment is one entry of the top-pending worklist.
type PendingPayment struct {
	PaymentID        uuid.UUID `json:"payment_id"`
	AppointmentID    uuid.UUID `json:"appointment_id"`
	AppointmentStart time.Time `json:"appointment_start"`
	PatientName      string    `json:"patient_name"`
	ClinicianName    string    `json:"clinician_name"`
	AmountCents      int64     `json:"amount_cents"`
}

type FinanceSummary struct {
	StartDate      string                `json:"start_date"`
	EndDate        string                `json:"end_date"`
	ReceivedCents  int64                 `json:"received_cents"`
	PendingCents   int64                 `json:"pending_cents"`
	RefundedCents  int64                 `json:"refunded_cents"`
	CancelledCents int64                 `json:"cancelled_cents"`
	DailyReceived  []DailyAmount         `json:"daily_received"`
	DailyPending   []DailyAmount         `json:"daily_pending"`
	ByMethod       []*MethodBreakdown    `json:"by_method"`
	ByClinician    []*ClinicianBreakdown `json:"by_clinician"`
	TopPending     []*PendingPayment     `json:"top_pending"`
}

// AgingBucket identifies one fixed receivables age range.
type AgingBucket string

const (
	AgingBucket0To7   AgingBucket = "0_7"
	AgingBucket8To15  AgingBucket = "8_15"
	AgingBucket16To30 AgingBucket = "16_30"
	AgingBucket31Plus AgingBucket = "31_plus"
)

// BucketFor classifies a non-negative age in days.
func BucketFor(ageDays int) AgingBucket {
	switch {
	case ageDays <= 7:
		return AgingBucket0To7
	case ageDays <= 15:
		return AgingBucket8To15
	case ageDays <= 30:
		return AgingBucket16To30
	default:
		return AgingBucket31Plus
	}
}

type ReceivablesRequest struct {
	StartDate   string     `form:"start_date" binding:"required,datetime=2006-01-02"`
	EndDate     string     `form:"end_date" binding:"required,datetime=2006-01-02"`
	ClinicianID *uuid.UUID `form:"-"`
	Timezone    string     `form:"timezone" binding:"omitempty,timezone"`
	Limit       int        `form:"limit"`
	Offset      int        `form:"offset"`
}

// ReceivableRow is one pending payment aged against today's civil date.
type ReceivableRow struct {
	PaymentID        uuid.UUID   `json:"payment_id"`
	AppointmentID    uuid.UUID   `json:"appointment_id"`
	AppointmentStart time.Time   `json:"appointment_start"`
	AppointmentDate  string      `json:"appointment_date"`
	PatientName      string      `json:"patient_name"`
	ClinicianName    string      `json:"clinician_name"`
	AmountCents      int64       `json:"amount_cents"`
	AgeDays          int         `json:"age_days"`
	Bucket           AgingBucket `json:"bucket"`
}

// AgingBucketTotal aggregates one bucket over the entire filtered set,
// independent of row pagination.
type AgingBucketTotal struct {
	Bucket      AgingBucket `json:"bucket"`
	AmountCents int64       `json:"amount_cents"`
	Count       int         `json:"count"`
}

type ReceivablesReport struct {
	Total      int                 `json:"total"`
	TotalCents int64               `json:"total_cents"`
	Buckets    []*AgingBucketTotal `json:"buckets"`
	Rows       []*ReceivableRow    `json:"rows"`
}
