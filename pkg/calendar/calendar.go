package calendar

import (
	"fmt"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/clinicore/clinic-api/pkg/errors"
)

// CivilDateLayout is the wire format for dates with no time-of-day
// component, e.g. "2026-02-20".
const CivilDateLayout = "2006-01-02"

// locations caches resolved *time.Location values. Zone lookups hit the
// filesystem on first use and every request carries a timezone name.
var locations = cache.New(24*time.Hour, 1*time.Hour)

// Location resolves a timezone name, serving repeat lookups from cache.
func Location(tz string) (*time.Location, error) {
	if loc, ok := locations.Get(tz); ok {
		return loc.(*time.Location), nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, errors.NewBadRequest(fmt.Sprintf("unknown timezone %q", tz), err)
	}
	locations.Set(tz, loc, cache.DefaultExpiration)
	return loc, nil
}

// ParseCivilDate validates a civil date string. Malformed input fails
// fast; there is no clamping or silent correction.
func ParseCivilDate(date string) (time.Time, error) {
	t, err := time.Parse(CivilDateLayout, date)
	if err != nil {
		return time.Time{}, errors.NewBadRequest(fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", date), err)
	}
	return t, nil
}

// DayRange converts a civil date to the half-open UTC window
// [startUTC, endUTC) covering that date's local wall-clock day in tz.
// time.Date resolves the wall clock against the zone's offset at that
// instant, so the window is 23, 24 or 25 hours across DST transitions.
func DayRange(date, tz string) (time.Time, time.Time, error) {
	d, err := ParseCivilDate(date)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	loc, err := Location(tz)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	end := time.Date(d.Year(), d.Month(), d.Day()+1, 0, 0, 0, 0, loc)
	return start.UTC(), end.UTC(), nil
}

// DayRangeAt returns the UTC day window containing the given instant,
// along with the civil date it resolved to.
func DayRangeAt(instant time.Time, tz string) (time.Time, time.Time, string, error) {
	date, err := CivilDateOf(instant, tz)
	if err != nil {
		return time.Time{}, time.Time{}, "", err
	}
	start, end, err := DayRange(date, tz)
	if err != nil {
		return time.Time{}, time.Time{}, "", err
	}
	return start, end, date, nil
}

// CivilDateOf buckets a UTC instant into the civil date it belongs to
// in tz.
func CivilDateOf(instant time.Time, tz string) (string, error) {
	loc, err := Location(tz)
	if err != nil {
		return "", err
	}
	return instant.In(loc).Format(CivilDateLayout), nil
}

// EnumerateDays lists every civil date from start to end inclusive,
// ascending. Calendar arithmetic only; no timezone involved. An empty
// slice is returned when end precedes start.
func EnumerateDays(start, end string) ([]string, error) {
	s, err := ParseCivilDate(start)
	if err != nil {
		return nil, err
	}
	e, err := ParseCivilDate(end)
	if err != nil {
		return nil, err
	}

	var days []string
	for d := s; !d.After(e); d = d.AddDate(0, 0, 1) {
		days = append(days, d.Format(CivilDateLayout))
	}
	return days, nil
}

// AtNoonUTC returns the instant at 12:00 local wall-clock on the given
// civil date. Used when an operation needs one unambiguous instant for
// a date (payment backdating); noon avoids the day-rollback artifacts
// midnight suffers from under offset arithmetic.
func AtNoonUTC(date, tz string) (time.Time, error) {
	d, err := ParseCivilDate(date)
	if err != nil {
		return time.Time{}, err
	}
	loc, err := Location(tz)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 12, 0, 0, 0, loc).UTC(), nil
}

// DaysBetween returns the whole calendar days from date a to date b
// (b - a), negative when b precedes a.
func DaysBetween(a, b string) (int, error) {
	ta, err := ParseCivilDate(a)
	if err != nil {
		return 0, err
	}
	tb, err := ParseCivilDate(b)
	if err != nil {
		return 0, err
	}
	return int(tb.Sub(ta).Hours() / 24), nil
}
