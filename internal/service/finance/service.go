package finance

import (
	"context"
	"sort"
	"time"

	"github.com/clinicore/clinic-api/internal/model"
	"github.com/clinicore/clinic-api/internal/repository"
	"github.com/clinicore/clinic-api/pkg/calendar"
	apperrors "github.com/clinicore/clinic-api/pkg/errors"
)

const topPendingLimit = 10

const defaultReceivablesLimit = 50

type Service struct {
	repo     repository.PaymentRepository
	clinicTZ string
	now      func() time.Time
}

func NewService(repo repository.PaymentRepository, clinicTimezone string) *Service {
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

// effectiveDate returns the civil date that classifies a payment for
// range filtering and daily bucketing. Each status reads a different
// field: money received counts on the day it arrived, open and voided
// charges count on the visit date, refunds on the day they went out.
func effectiveDate(row *model.PaymentRow, tz string) (string, bool, error) {
	switch row.Status {
	case model.PaymentStatusPaid:
		if row.PaidAt == nil {
			return "", false, nil
		}
		d, err := calendar.CivilDateOf(*row.PaidAt, tz)
		return d, err == nil, err
	case model.PaymentStatusPending, model.PaymentStatusCancelled:
		d, err := calendar.CivilDateOf(row.AppointmentStart, tz)
		return d, err == nil, err
	case model.PaymentStatusRefunded:
		if row.RefundedAt == nil {
			return "", false, nil
		}
		d, err := calendar.CivilDateOf(*row.RefundedAt, tz)
		return d, err == nil, err
	default:
		return "", false, nil
	}
}

// bucketByDate is the single range-filter-and-bucket pass every status
// goes through, parameterized by the effective-date selector above so
// the four status branches cannot drift apart.
func bucketByDate(rows []*model.PaymentRow, tz, startDate, endDate string) (map[string][]*model.PaymentRow, error) {
	buckets := make(map[string][]*model.PaymentRow)
	for _, row := range rows {
		date, ok, err := effectiveDate(row, tz)
		if err != nil {
			return nil, err
		}
		if !ok || date < startDate || date > endDate {
			continue
		}
		buckets[date] = append(buckets[date], row)
	}
	return buckets, nil
}

// Summary aggregates payments over an inclusive civil date range.
func (s *Service) Summary(ctx context.Context, req *model.FinanceSummaryRequest) (*model.FinanceSummary, error) {
	tz := s.timezone(req.Timezone)

	days, err := calendar.EnumerateDays(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	if len(days) == 0 {
		return nil, apperrors.NewBadRequest("end_date precedes start_date", nil)
	}

	from, _, err := calendar.DayRange(req.StartDate, tz)
	if err != nil {
		return nil, err
	}
	_, to, err := calendar.DayRange(req.EndDate, tz)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.ListRowsInRange(ctx, from, to, req.ClinicianID)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}

	byDate, err := bucketByDate(rows, tz, req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	summary := &model.FinanceSummary{
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	}

	dailyReceived := make(map[string]int64, len(days))
	dailyPending := make(map[string]int64, len(days))
	methods := make(map[model.PaymentMethod]*model.MethodBreakdown)
	clinicians := make(map[string]*model.ClinicianBreakdown)
	var pending []*model.PaymentRow

	for date, dateRows := range byDate {
		for _, row := range dateRows {
			switch row.Status {
			case model.PaymentStatusPaid:
				summary.ReceivedCents += row.AmountCents
				dailyReceived[date] += row.AmountCents
				methodFor(methods, row.Method).AddReceived(row.AmountCents)
				clinicianFor(clinicians, row).AddReceived(row.AmountCents)
			case model.PaymentStatusPending:
				summary.PendingCents += row.AmountCents
				dailyPending[date] += row.AmountCents
				methodFor(methods, row.Method).AddPending(row.AmountCents)
				clinicianFor(clinicians, row).AddPending(row.AmountCents)
				pending = append(pending, row)
			case model.PaymentStatusRefunded:
				summary.RefundedCents += row.AmountCents
			case model.PaymentStatusCancelled:
				summary.CancelledCents += row.AmountCents
			}
		}
	}

	// Reproject both series onto every day of the range so charts
	// never have gaps.
	summary.DailyReceived = make([]model.DailyAmount, 0, len(days))
	summary.DailyPending = make([]model.DailyAmount, 0, len(days))
	for _, day := range days {
		summary.DailyReceived = append(summary.DailyReceived, model.DailyAmount{Date: day, AmountCents: dailyReceived[day]})
		summary.DailyPending = append(summary.DailyPending, model.DailyAmount{Date: day, AmountCents: dailyPending[day]})
	}

	summary.ByMethod = sortedMethods(methods)
	summary.ByClinician = sortedClinicians(clinicians)
	summary.TopPending = topPending(pending)

	return summary, nil
}

// topPending is a worklist, not a KPI: the ten pending charges whose
// visits come soonest.
func topPending(pending []*model.PaymentRow) []*model.PendingPayment {
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].AppointmentStart.Before(pending[j].AppointmentStart)
	})

	n := len(pending)
	if n > topPendingLimit {
		n = topPendingLimit
	}

	top := make([]*model.PendingPayment, 0, n)
	for _, row := range pending[:n] {
		top = append(top, &model.PendingPayment{
			PaymentID:        row.ID,
			AppointmentID:    row.AppointmentID,
			AppointmentStart: row.AppointmentStart,
			PatientName:      row.PatientName,
			ClinicianName:    row.ClinicianName,
			AmountCents:      row.AmountCents,
		})
	}
	return top
}

// Receivables ages the pending payments of a date range against
// today's civil date. Ages come from civil date arithmetic, never raw
// instant subtraction, so a visit late yesterday evening is one day
// old this morning regardless of how many hours elapsed.
func (s *Service) Receivables(ctx context.Context, req *model.ReceivablesRequest) (*model.ReceivablesReport, error) {
	tz := s.timezone(req.Timezone)

	from, _, err := calendar.DayRange(req.StartDate, tz)
	if err != nil {
		return nil, err
	}
	_, to, err := calendar.DayRange(req.EndDate, tz)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.ListPendingRows(ctx, from, to, req.ClinicianID)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}

	today, err := calendar.CivilDateOf(s.now(), tz)
	if err != nil {
		return nil, err
	}

	report := &model.ReceivablesReport{
		Buckets: emptyBuckets(),
	}
	totalsByBucket := make(map[model.AgingBucket]*model.AgingBucketTotal, len(report.Buckets))
	for _, b := range report.Buckets {
		totalsByBucket[b.Bucket] = b
	}

	all := make([]*model.ReceivableRow, 0, len(rows))
	for _, row := range rows {
		date, err := calendar.CivilDateOf(row.AppointmentStart, tz)
		if err != nil {
			return nil, err
		}
		if date < req.StartDate || date > req.EndDate {
			continue
		}

		age, err := calendar.DaysBetween(date, today)
		if err != nil {
			return nil, err
		}
		if age < 0 {
			age = 0
		}

		bucket := model.BucketFor(age)
		all = append(all, &model.ReceivableRow{
			PaymentID:        row.ID,
			AppointmentID:    row.AppointmentID,
			AppointmentStart: row.AppointmentStart,
			AppointmentDate:  date,
			PatientName:      row.PatientName,
			ClinicianName:    row.ClinicianName,
			AmountCents:      row.AmountCents,
			AgeDays:          age,
			Bucket:           bucket,
		})

		// Bucket totals cover the entire filtered set so the KPIs are
		// independent of pagination.
		totalsByBucket[bucket].AmountCents += row.AmountCents
		totalsByBucket[bucket].Count++
		report.TotalCents += row.AmountCents
	}
	report.Total = len(all)

	// Oldest debts first, ties broken by natural visit order.
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].AgeDays != all[j].AgeDays {
			return all[i].AgeDays > all[j].AgeDays
		}
		return all[i].AppointmentStart.Before(all[j].AppointmentStart)
	})

	report.Rows = paginate(all, req.Limit, req.Offset)
	return report, nil
}

func emptyBuckets() []*model.AgingBucketTotal {
	return []*model.AgingBucketTotal{
		{Bucket: model.AgingBucket0To7},
		{Bucket: model.AgingBucket8To15},
		{Bucket: model.AgingBucket16To30},
		{Bucket: model.AgingBucket31Plus},
	}
}

func paginate(rows []*model.ReceivableRow, limit, offset int) []*model.ReceivableRow {
	if limit <= 0 {
		limit = defaultReceivablesLimit
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(rows) {
		return []*model.ReceivableRow{}
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}

func methodFor(m map[model.PaymentMethod]*model.MethodBreakdown, method model.PaymentMethod) *model.MethodBreakdown {
	b, ok := m[method]
	if !ok {
		b = &model.MethodBreakdown{Method: method}
		m[method] = b
	}
	return b
}

func clinicianFor(m map[string]*model.ClinicianBreakdown, row *model.PaymentRow) *model.ClinicianBreakdown {
	key := row.ClinicianID.String()
	b, ok := m[key]
	if !ok {
		b = &model.ClinicianBreakdown{ClinicianID: row.ClinicianID, ClinicianName: row.ClinicianName}
		m[key] = b
	}
	return b
}

func sortedMethods(m map[model.PaymentMethod]*model.MethodBreakdown) []*model.MethodBreakdown {
	out := make([]*model.MethodBreakdown, 0, len(m))
	for _, b := range m {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Method < out[j].Method })
	return out
}

func sortedClinicians(m map[string]*model.ClinicianBreakdown) []*model.ClinicianBreakdown {
	out := make([]*model.ClinicianBreakdown, 0, len(m))
	for _, b := range m {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClinicianName < out[j].ClinicianName })
	return out
}
