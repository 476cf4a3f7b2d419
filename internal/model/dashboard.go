package model

// DayKPIs is the rollup for one clinic day. remaining counts
// appointments still in play: total minus the day's terminal outcomes.
type DayKPIs struct {
	Total         int                       `json:"total"`
	ByStatus      map[AppointmentStatus]int `json:"by_status"`
	Remaining     int                       `json:"remaining"`
	ReceivedCents int64                     `json:"received_cents"`
	PendingCents  int64                     `json:"pending_cents"`
}

// DayRow is one appointment in the day dashboard with its derived
// operational flags. Flags are computed at read time against the
// request's "now"; they are never persisted.
type DayRow struct {
	AppointmentDetail
	MissingSoap         bool `json:"missing_soap"`
	UpcomingUnconfirmed bool `json:"upcoming_unconfirmed"`
	OverdueInProgress   bool `json:"overdue_in_progress"`
}

type DayDashboard struct {
	Date string    `json:"date"`
	KPIs DayKPIs   `json:"kpis"`
	Rows []*DayRow `json:"rows"`
}
