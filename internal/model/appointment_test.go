package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTransitionTableCompleteness(t *testing.T) {
	allowed := map[AppointmentStatus][]AppointmentStatus{
		AppointmentStatusScheduled:  {AppointmentStatusConfirmed, AppointmentStatusInProgress, AppointmentStatusCancelled},
		AppointmentStatusConfirmed:  {AppointmentStatusInProgress, AppointmentStatusCancelled, AppointmentStatusNoShow},
		AppointmentStatusInProgress: {AppointmentStatusCompleted},
		AppointmentStatusCompleted:  {},
		AppointmentStatusCancelled:  {},
		AppointmentStatusNoShow:     {},
	}

	for _, from := range AppointmentStatuses {
		set := map[AppointmentStatus]bool{}
		for _, to := range allowed[from] {
			set[to] = true
		}
		for _, to := range AppointmentStatuses {
			assert.Equalf(t, set[to], from.CanTransitionTo(to),
				"transition %s -> %s", from, to)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	assert.False(t, AppointmentStatusScheduled.IsTerminal())
	assert.False(t, AppointmentStatusConfirmed.IsTerminal())
	assert.False(t, AppointmentStatusInProgress.IsTerminal())
	assert.True(t, AppointmentStatusCompleted.IsTerminal())
	assert.True(t, AppointmentStatusCancelled.IsTerminal())
	assert.True(t, AppointmentStatusNoShow.IsTerminal())
}

func TestStatusIsValid(t *testing.T) {
	for _, s := range AppointmentStatuses {
		assert.True(t, s.IsValid())
	}
	assert.False(t, AppointmentStatus("BOOKED").IsValid())
	assert.False(t, AppointmentStatus("").IsValid())
}

func TestOverlapSymmetry(t *testing.T) {
	base := time.Date(2026, 2, 20, 15, 0, 0, 0, time.UTC)
	mk := func(start time.Time, minutes int) *Appointment {
		return &Appointment{StartTime: start, DurationMinutes: minutes}
	}

	cases := []struct {
		name string
		a, b *Appointment
		want bool
	}{
		{"identical", mk(base, 30), mk(base, 30), true},
		{"contained", mk(base, 60), mk(base.Add(10*time.Minute), 20), true},
		{"partial", mk(base, 30), mk(base.Add(20*time.Minute), 30), true},
		{"adjacent", mk(base, 30), mk(base.Add(30*time.Minute), 30), false},
		{"disjoint", mk(base, 30), mk(base.Add(2*time.Hour), 30), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.a.Overlaps(tc.b.StartTime, tc.b.EndTime()))
			// overlaps(A,B) == overlaps(B,A)
			assert.Equal(t, tc.want, tc.b.Overlaps(tc.a.StartTime, tc.a.EndTime()))
		})
	}

	// Any non-empty interval overlaps itself.
	a := mk(base, 45)
	assert.True(t, a.Overlaps(a.StartTime, a.EndTime()))
}

func TestBucketFor(t *testing.T) {
	assert.Equal(t, AgingBucket0To7, BucketFor(0))
	assert.Equal(t, AgingBucket0To7, BucketFor(7))
	assert.Equal(t, AgingBucket8To15, BucketFor(8))
	assert.Equal(t, AgingBucket8To15, BucketFor(15))
	assert.Equal(t, AgingBucket16To30, BucketFor(16))
	assert.Equal(t, AgingBucket16To30, BucketFor(30))
	assert.Equal(t, AgingBucket31Plus, BucketFor(31))
	assert.Equal(t, AgingBucket31Plus, BucketFor(200))
}
