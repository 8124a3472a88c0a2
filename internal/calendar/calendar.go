// Package calendar builds the date universe of a production: the minimal
// contiguous range covering all scheduled activity, with weekend and
// shooting-period lookups for every date in range.
package calendar

import (
	"errors"
	"time"

	"traveldesk/internal/models"
)

// ErrEmptySchedule is returned when no periods and no assignments exist, so
// no date range can be derived.
var ErrEmptySchedule = errors.New("calendar: no shooting periods or assignments to derive a date range from")

// Calendar is a pure value computed from the periods and assignments; it has
// no side effects and never mutates after construction.
type Calendar struct {
	start   time.Time
	end     time.Time
	periods []models.ShootingPeriod
}

// New derives the calendar range from all period and assignment dates.
func New(periods []models.ShootingPeriod, assignments []models.AssignmentRow) (*Calendar, error) {
	var start, end time.Time
	grow := func(d time.Time) {
		d = models.DateOnly(d)
		if start.IsZero() || d.Before(start) {
			start = d
		}
		if end.IsZero() || d.After(end) {
			end = d
		}
	}

	for _, p := range periods {
		grow(p.Start)
		grow(p.End)
	}
	for _, a := range assignments {
		grow(a.Date)
	}

	if start.IsZero() {
		return nil, ErrEmptySchedule
	}

	return &Calendar{start: start, end: end, periods: periods}, nil
}

// Start returns the first date of the range.
func (c *Calendar) Start() time.Time { return c.start }

// End returns the last date of the range (inclusive).
func (c *Calendar) End() time.Time { return c.end }

// Len returns the number of dates in the range.
func (c *Calendar) Len() int {
	return int(c.end.Sub(c.start).Hours()/24) + 1
}

// Contains reports whether d falls inside the range.
func (c *Calendar) Contains(d time.Time) bool {
	d = models.DateOnly(d)
	return !d.Before(c.start) && !d.After(c.end)
}

// IsWeekend reports whether d is a Saturday or Sunday.
func (c *Calendar) IsWeekend(d time.Time) bool {
	return models.IsWeekend(d)
}

// PeriodsOn returns the shooting periods active on d, in store order.
func (c *Calendar) PeriodsOn(d time.Time) []models.ShootingPeriod {
	var active []models.ShootingPeriod
	for _, p := range c.periods {
		if p.Contains(d) {
			active = append(active, p)
		}
	}
	return active
}

// Days returns every date of the range in order.
func (c *Calendar) Days() []time.Time {
	days := make([]time.Time, 0, c.Len())
	for d := c.start; !d.After(c.end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// Clamp snaps d onto the calendar range.
func (c *Calendar) Clamp(d time.Time) time.Time {
	d = models.DateOnly(d)
	if d.Before(c.start) {
		return c.start
	}
	if d.After(c.end) {
		return c.end
	}
	return d
}
