// Package models defines the domain types shared across traveldesk.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Location is a place the production shoots at or a cast member lives in.
// Immutable once referenced by a period or an assignment.
type Location struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// ShootingPeriod is a location-tagged inclusive date range.
type ShootingPeriod struct {
	Name     string    `json:"name"`
	Location string    `json:"location"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}

// Contains reports whether d falls inside the period (inclusive).
func (p ShootingPeriod) Contains(d time.Time) bool {
	d = DateOnly(d)
	return !d.Before(DateOnly(p.Start)) && !d.After(DateOnly(p.End))
}

// CastMember is a member of the cast with reconciliation settings.
type CastMember struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	HomeLocation string `json:"home_location"`
	Include      bool   `json:"include"`
}

// NewCastMember creates a member with a fresh identifier, included by default.
func NewCastMember(name, homeLocation string) CastMember {
	return CastMember{
		ID:           uuid.NewString(),
		Name:         name,
		HomeLocation: homeLocation,
		Include:      true,
	}
}

// AssignmentRow is one normalized schedule entry: the member is required on
// set at Location on Date. Rows are derived from the imported schedule and
// treated as read-only by the engine.
type AssignmentRow struct {
	MemberName string    `json:"member_name"`
	Date       time.Time `json:"date"`
	Location   string    `json:"location"`
	Required   bool      `json:"required"`
}

// WeekendPolicy controls how weekends inside on-location gaps are handled.
type WeekendPolicy string

const (
	// WeekendWorkIfAdjacent keeps weekend days on location only when work is
	// scheduled immediately before and after them.
	WeekendWorkIfAdjacent WeekendPolicy = "work_if_adjacent"
	// WeekendAlwaysHome sends the member home on any non-working gap.
	WeekendAlwaysHome WeekendPolicy = "always_home"
	// WeekendAlwaysStay keeps the member on location through any gap up to
	// the max-gap threshold.
	WeekendAlwaysStay WeekendPolicy = "always_stay"
)

// Valid reports whether the policy value is one of the known constants.
func (w WeekendPolicy) Valid() bool {
	switch w {
	case WeekendWorkIfAdjacent, WeekendAlwaysHome, WeekendAlwaysStay:
		return true
	}
	return false
}

// Policy holds the tunables for one reconciliation run. It never mutates
// during a run.
type Policy struct {
	MaxGapDays          int           `json:"max_gap_days" yaml:"max_gap_days"`
	WeekendPolicy       WeekendPolicy `json:"weekend_policy" yaml:"weekend_policy"`
	ArrivalBufferDays   int           `json:"arrival_buffer_days" yaml:"arrival_buffer_days"`
	DepartureBufferDays int           `json:"departure_buffer_days" yaml:"departure_buffer_days"`
}

// Classification labels a single calendar day for one cast member.
type Classification string

const (
	ClassHome          Classification = "home"
	ClassTravelOut     Classification = "travel_out"
	ClassTravelBack    Classification = "travel_back"
	ClassWork          Classification = "on_location_work"
	ClassAccommodation Classification = "on_location_accommodation"
	ClassGapStay       Classification = "gap_stay"
	ClassGapHome       Classification = "gap_home"
)

// DayRecord is the engine output for one calendar date. Exactly one record
// exists per date per included member.
type DayRecord struct {
	Date     time.Time      `json:"date"`
	Class    Classification `json:"class"`
	Location string         `json:"location"`
}

// Visit is one contiguous stay at a shoot location, from the outbound travel
// leg through the return leg. TravelLegs counts the legs actually taken
// (0, 1 or 2); a leg absorbed by a work day still counts.
type Visit struct {
	Location   string    `json:"location"`
	Arrival    time.Time `json:"arrival"`
	Departure  time.Time `json:"departure"`
	WorkDays   int       `json:"work_days"`
	GapDays    int       `json:"gap_days"`
	Nights     int       `json:"nights"`
	TravelLegs int       `json:"travel_legs"`
}

// Timeline is the full reconciliation output for one cast member.
type Timeline struct {
	MemberID     string      `json:"member_id"`
	MemberName   string      `json:"member_name"`
	HomeLocation string      `json:"home_location"`
	Records      []DayRecord `json:"records"`
	Visits       []Visit     `json:"visits"`
}

// Project is the explicit aggregate passed into the components: no ambient
// globals, the whole state travels together.
type Project struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Locations   []Location       `json:"locations"`
	Periods     []ShootingPeriod `json:"periods"`
	Members     []CastMember     `json:"members"`
	Policy      Policy           `json:"policy"`
	Assignments []AssignmentRow  `json:"assignments"`
}

// DateOnly truncates t to midnight UTC so dates compare reliably.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Date builds a midnight-UTC date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// IsWeekend reports whether d is a Saturday or Sunday.
func IsWeekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
