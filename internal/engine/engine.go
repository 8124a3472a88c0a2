// Package engine implements the schedule-reconciliation algorithm: for one
// cast member it derives a day-by-day classification of the full calendar
// range from the member's assignments, home location and policy parameters.
package engine

import (
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"traveldesk/internal/calendar"
	"traveldesk/internal/models"
	"traveldesk/internal/schedule"
)

// Engine reconciles cast members against the calendar. It holds only
// read-only inputs and no state survives between runs.
type Engine struct {
	cal    *calendar.Calendar
	table  *schedule.AssignmentTable
	policy models.Policy
	logger zerolog.Logger
}

// New creates an engine for one reconciliation run.
func New(cal *calendar.Calendar, table *schedule.AssignmentTable, policy models.Policy, logger zerolog.Logger) *Engine {
	return &Engine{
		cal:    cal,
		table:  table,
		policy: policy,
		logger: logger.With().Str("component", "engine").Logger(),
	}
}

// workDay is one required-on-set date with its resolved location.
type workDay struct {
	date time.Time
	loc  string
}

// visit is one planned contiguous stay at a shoot location.
type visit struct {
	loc         string
	workDates   []time.Time
	returnsHome bool // ends with a travel-back leg rather than a direct move
}

// Reconcile produces the full timeline for one cast member. Excluded members
// are the caller's concern; Reconcile processes whoever it is given.
func (e *Engine) Reconcile(member models.CastMember) (*models.Timeline, error) {
	if err := e.validatePolicy(); err != nil {
		return nil, err
	}

	work, err := e.memberWork(member)
	if err != nil {
		return nil, err
	}

	visits, localWork := e.plan(member, work)
	records, outVisits := e.layout(member, visits, localWork)

	e.logger.Debug().
		Str("member", member.Name).
		Int("work_days", len(work)).
		Int("visits", len(outVisits)).
		Msg("member reconciled")

	return &models.Timeline{
		MemberID:     member.ID,
		MemberName:   member.Name,
		HomeLocation: member.HomeLocation,
		Records:      records,
		Visits:       outVisits,
	}, nil
}

// ReconcileAll runs every included member. A failure for one member is
// collected and does not abort the others.
func (e *Engine) ReconcileAll(members []models.CastMember) ([]*models.Timeline, map[string]error) {
	var timelines []*models.Timeline
	failures := make(map[string]error)

	for _, m := range members {
		if !m.Include {
			continue
		}
		tl, err := e.Reconcile(m)
		if err != nil {
			e.logger.Warn().Err(err).Str("member", m.Name).Msg("member reconciliation failed")
			failures[m.ID] = err
			continue
		}
		timelines = append(timelines, tl)
	}

	return timelines, failures
}

func (e *Engine) validatePolicy() error {
	p := e.policy
	switch {
	case p.MaxGapDays < 0:
		return &InvalidPolicyError{Reason: "max gap days must be non-negative"}
	case p.ArrivalBufferDays < 0:
		return &InvalidPolicyError{Reason: "arrival buffer days must be non-negative"}
	case p.DepartureBufferDays < 0:
		return &InvalidPolicyError{Reason: "departure buffer days must be non-negative"}
	case !p.WeekendPolicy.Valid():
		return &InvalidPolicyError{Reason: "unknown weekend policy " + string(p.WeekendPolicy)}
	case p.ArrivalBufferDays >= e.cal.Len() || p.DepartureBufferDays >= e.cal.Len():
		return &InvalidPolicyError{Reason: "buffers exceed the calendar range"}
	}
	return nil
}

// memberWork resolves the member's work dates, rejecting conflicting
// same-date assignments.
func (e *Engine) memberWork(member models.CastMember) ([]workDay, error) {
	dates := e.table.WorkDates(member.Name)
	work := make([]workDay, 0, len(dates))
	for _, d := range dates {
		locs := e.table.LocationsOn(member.Name, d)
		if len(locs) > 1 {
			return nil, &OverlappingAssignmentError{Member: member.Name, Date: d, Locations: locs}
		}
		loc := ""
		if len(locs) == 1 {
			loc = locs[0]
		}
		work = append(work, workDay{date: d, loc: loc})
	}
	sort.Slice(work, func(i, j int) bool { return work[i].date.Before(work[j].date) })
	return work, nil
}

// plan groups the member's work days into location visits separated by home
// trips, and splits out work at the home location.
func (e *Engine) plan(member models.CastMember, work []workDay) ([]*visit, []time.Time) {
	var (
		visits    []*visit
		localWork []time.Time
		cur       *visit
	)

	closeVisit := func(returnsHome bool) {
		if cur == nil {
			return
		}
		cur.returnsHome = returnsHome
		visits = append(visits, cur)
		cur = nil
	}

	for _, wd := range work {
		if wd.loc == "" || strings.EqualFold(wd.loc, member.HomeLocation) {
			// Working from home forces the member back regardless of gap.
			closeVisit(true)
			localWork = append(localWork, wd.date)
			continue
		}

		if cur == nil {
			cur = &visit{loc: wd.loc, workDates: []time.Time{wd.date}}
			continue
		}

		prev := cur.workDates[len(cur.workDates)-1]
		gap := daysBetween(prev, wd.date) - 1

		if !strings.EqualFold(cur.loc, wd.loc) {
			// Location change: go home first only when the gap policy sends
			// the member home, otherwise move directly (no redundant trip).
			closeVisit(e.sendsHome(prev, wd.date, gap))
			cur = &visit{loc: wd.loc, workDates: []time.Time{wd.date}}
			continue
		}

		if gap > 0 && e.sendsHome(prev, wd.date, gap) {
			closeVisit(true)
			cur = &visit{loc: wd.loc, workDates: []time.Time{wd.date}}
			continue
		}

		cur.workDates = append(cur.workDates, wd.date)
	}
	closeVisit(true)

	return visits, localWork
}

// sendsHome decides whether the gap between two work days (gap = idle days
// strictly between prev and next) forces a round trip home.
//
// The threshold is measured net of the travel-back day: the first idle day is
// spent traveling either way, so only gap-1 days are avoidable accommodation.
// A trip is also suppressed when the gap physically cannot hold the departure
// buffer, the travel-back day and the arrival buffer.
func (e *Engine) sendsHome(prev, next time.Time, gap int) bool {
	if gap <= 0 {
		return false
	}
	if gap < e.policy.DepartureBufferDays+e.policy.ArrivalBufferDays+1 {
		return false
	}

	gapStart := prev.AddDate(0, 0, 1)
	gapEnd := next.AddDate(0, 0, -1)

	switch e.policy.WeekendPolicy {
	case models.WeekendAlwaysHome:
		// Single weekend day bracketed by work days stays on location.
		return !(gap == 1 && models.IsWeekend(gapStart))
	case models.WeekendAlwaysStay:
		return gap-1 > e.policy.MaxGapDays
	default: // WeekendWorkIfAdjacent
		eff := gap
		if allWeekend(gapStart, gapEnd) {
			// Weekend run bounded by work days on both sides is bridged.
			eff = 0
		}
		if eff == 0 {
			return false
		}
		return eff-1 > e.policy.MaxGapDays
	}
}

// layout turns the planned visits into the per-date record sequence covering
// the whole calendar. Work days are placed first and never overwritten, so a
// travel leg colliding with a work day is absorbed by it (work priority).
func (e *Engine) layout(member models.CastMember, visits []*visit, localWork []time.Time) ([]models.DayRecord, []models.Visit) {
	type slot struct {
		class models.Classification
		loc   string
	}
	assigned := make(map[time.Time]slot)
	free := func(d time.Time) bool {
		_, taken := assigned[d]
		return !taken && e.cal.Contains(d)
	}
	set := func(d time.Time, c models.Classification, loc string) bool {
		if !free(d) {
			return false
		}
		assigned[d] = slot{class: c, loc: loc}
		return true
	}

	for _, v := range visits {
		for _, d := range v.workDates {
			set(d, models.ClassWork, v.loc)
		}
	}
	for _, d := range localWork {
		set(d, models.ClassWork, member.HomeLocation)
	}

	outVisits := make([]models.Visit, 0, len(visits))

	for i, v := range visits {
		firstWork := v.workDates[0]
		lastWork := v.workDates[len(v.workDates)-1]

		out := models.Visit{Location: v.loc, WorkDays: len(v.workDates), TravelLegs: 1}

		// Arrival leg: the first free day from firstWork-buffer onward takes
		// the travel-out record, remaining pre-work days are accommodation.
		// No free day before the first work day means the leg is absorbed.
		arrival := firstWork
		arrStart := e.cal.Clamp(firstWork.AddDate(0, 0, -e.policy.ArrivalBufferDays))
		placedTravel := false
		for d := arrStart; d.Before(firstWork); d = d.AddDate(0, 0, 1) {
			if !placedTravel {
				if set(d, models.ClassTravelOut, v.loc) {
					placedTravel = true
					arrival = d
				}
				continue
			}
			set(d, models.ClassAccommodation, v.loc)
		}
		out.Arrival = arrival

		// Gap days between work days stay on location.
		for j := 1; j < len(v.workDates); j++ {
			for d := v.workDates[j-1].AddDate(0, 0, 1); d.Before(v.workDates[j]); d = d.AddDate(0, 0, 1) {
				if set(d, models.ClassGapStay, v.loc) {
					out.GapDays++
				}
			}
		}

		var nextArrStart time.Time
		if i+1 < len(visits) {
			nextArrStart = e.cal.Clamp(visits[i+1].workDates[0].AddDate(0, 0, -e.policy.ArrivalBufferDays))
		}

		// Departure. The buffer never runs into the next arrival sequence.
		d := lastWork.AddDate(0, 0, 1)
		for buf := 0; buf < e.policy.DepartureBufferDays && e.cal.Contains(d); buf++ {
			if !v.returnsHome && !nextArrStart.IsZero() && !d.Before(nextArrStart) {
				break
			}
			set(d, models.ClassAccommodation, v.loc)
			d = d.AddDate(0, 0, 1)
		}

		if v.returnsHome {
			out.TravelLegs++
			departure := d
			if set(d, models.ClassTravelBack, member.HomeLocation) {
				d = d.AddDate(0, 0, 1)
			}
			out.Departure = departure

			// Interior of an induced round trip is home time distinct from
			// the leading/trailing home stretch.
			if i+1 < len(visits) {
				for ; d.Before(nextArrStart); d = d.AddDate(0, 0, 1) {
					set(d, models.ClassGapHome, member.HomeLocation)
				}
			}
		} else {
			// Direct transition: remain on location until the next arrival
			// sequence begins.
			for ; e.cal.Contains(d) && (nextArrStart.IsZero() || d.Before(nextArrStart)); d = d.AddDate(0, 0, 1) {
				if set(d, models.ClassGapStay, v.loc) {
					out.GapDays++
				}
			}
			out.Departure = d
		}

		outVisits = append(outVisits, out)
	}

	// Everything still unassigned is plain home time.
	records := make([]models.DayRecord, 0, e.cal.Len())
	for _, d := range e.cal.Days() {
		s, ok := assigned[d]
		if !ok {
			s = slot{class: models.ClassHome, loc: member.HomeLocation}
		}
		records = append(records, models.DayRecord{Date: d, Class: s.class, Location: s.loc})
	}

	// Nights at a location span the travel-out day through the eve of the
	// travel-back day.
	for i := range outVisits {
		v := &outVisits[i]
		for _, r := range records {
			if r.Location != v.Location {
				continue
			}
			if r.Date.Before(v.Arrival) || !r.Date.Before(v.Departure) {
				continue
			}
			switch r.Class {
			case models.ClassTravelOut, models.ClassWork, models.ClassAccommodation, models.ClassGapStay:
				v.Nights++
			}
		}
	}

	return records, outVisits
}

func daysBetween(a, b time.Time) int {
	return int(models.DateOnly(b).Sub(models.DateOnly(a)).Hours() / 24)
}

func allWeekend(start, end time.Time) bool {
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if !models.IsWeekend(d) {
			return false
		}
	}
	return true
}
