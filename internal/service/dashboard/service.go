package dashboard

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinic-api/internal/model"
	"github.com/clinicore/clinic-api/internal/repository"
	"github.com/clinicore/clinic-api/pkg/calendar"
	apperrors "github.com/clinicore/clinic-api/pkg/errors"
)

// Fixed display policy, not configuration.
const (
	// upcomingWindow flags SCHEDULED appointments starting within the
	// next 60 minutes (inclusive) that nobody confirmed yet.
	upcomingWindow = 60 * time.Minute
	// overdueAfter flags IN_PROGRESS appointments whose start was more
	// than 90 minutes ago.
	overdueAfter = 90 * time.Minute
)

type Service struct {
	repo     repository.AppointmentRepository
	clinicTZ string
	now      func() time.Time
}

func NewService(repo repository.AppointmentRepository, clinicTimezone string) *Service {
	return &Service{repo: repo, clinicTZ: clinicTimezone, now: time.Now}
}

// WithClock fixes the service clock; tests use it to freeze "now".
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) timezone(requested string) string {
	if requested != "" {
		return requested
	}
	return s.clinicTZ
}

// Day loads one clinic day's appointments and derives the dashboard
// from them. The day window follows the requested timezone, falling
// back to the clinic's. Reads run at default isolation; a slightly
// stale snapshot is acceptable here.
func (s *Service) Day(ctx context.Context, date, tz string, clinicianID *uuid.UUID) (*model.DayDashboard, error) {
	from, to, err := calendar.DayRange(date, s.timezone(tz))
	if err != nil {
		return nil, err
	}

	details, err := s.repo.ListDay(ctx, from, to, clinicianID)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}

	return Build(date, details, s.now()), nil
}

// Build computes the dashboard as a pure function of the day's rows
// and an explicit "now", so the derived flags are reproducible.
func Build(date string, details []*model.AppointmentDetail, now time.Time) *model.DayDashboard {
	kpis := model.DayKPIs{
		ByStatus: make(map[model.AppointmentStatus]int, len(model.AppointmentStatuses)),
	}
	for _, status := range model.AppointmentStatuses {
		kpis.ByStatus[status] = 0
	}

	rows := make([]*model.DayRow, 0, len(details))
	for _, d := range details {
		kpis.Total++
		kpis.ByStatus[d.Status]++

		if p := d.Payment; p != nil {
			switch p.Status {
			case model.PaymentStatusPaid:
				kpis.ReceivedCents += p.AmountCents
			case model.PaymentStatusPending:
				kpis.PendingCents += p.AmountCents
			}
			// CANCELLED and REFUNDED payments count in neither sum.
		}

		rows = append(rows, &model.DayRow{
			AppointmentDetail:   *d,
			MissingSoap:         missingSoap(d),
			UpcomingUnconfirmed: upcomingUnconfirmed(d, now),
			OverdueInProgress:   overdueInProgress(d, now),
		})
	}

	kpis.Remaining = kpis.Total -
		kpis.ByStatus[model.AppointmentStatusCompleted] -
		kpis.ByStatus[model.AppointmentStatusCancelled] -
		kpis.ByStatus[model.AppointmentStatusNoShow]

	return &model.DayDashboard{
		Date: date,
		KPIs: kpis,
		Rows: rows,
	}
}

// missingSoap surfaces encounters without the note they should have: an
// IN_PROGRESS visit with no record at all, or a COMPLETED visit whose
// record is missing or never finalized. The completion gate is supposed
// to prevent the latter; this is a display-level check that it held.
func missingSoap(d *model.AppointmentDetail) bool {
	switch d.Status {
	case model.AppointmentStatusInProgress:
		return d.MedicalRecord == nil
	case model.AppointmentStatusCompleted:
		return !d.MedicalRecord.IsFinal()
	default:
		return false
	}
}

func upcomingUnconfirmed(d *model.AppointmentDetail, now time.Time) bool {
	if d.Status != model.AppointmentStatusScheduled {
		return false
	}
	until := d.StartTime.Sub(now)
	return until >= 0 && until <= upcomingWindow
}

func overdueInProgress(d *model.AppointmentDetail, now time.Time) bool {
	return d.Status == model.AppointmentStatusInProgress &&
		now.Sub(d.StartTime) > overdueAfter
}
