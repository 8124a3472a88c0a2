package schedule

import (
	"sort"
	"time"

	"traveldesk/internal/models"
)

// AssignmentTable is the derived, read-only mapping from (member, date) to
// required-on-set and shoot location. It keeps every distinct location seen
// for a member/date so the engine can surface conflicts instead of silently
// picking one.
type AssignmentTable struct {
	byMember map[string]map[time.Time]map[string]struct{}
	rows     []models.AssignmentRow
}

// BuildTable normalizes the imported rows into a table. Rows without an
// explicit location inherit the shooting period active on their date; dates
// outside every period keep an empty location, which the engine treats as
// local work.
func BuildTable(rows []models.AssignmentRow, periods *PeriodStore) *AssignmentTable {
	t := &AssignmentTable{
		byMember: make(map[string]map[time.Time]map[string]struct{}),
	}

	for _, row := range rows {
		if !row.Required {
			continue
		}
		row.Date = models.DateOnly(row.Date)
		if row.Location == "" && periods != nil {
			row.Location = periods.LocationOn(row.Date)
		}

		dates, ok := t.byMember[row.MemberName]
		if !ok {
			dates = make(map[time.Time]map[string]struct{})
			t.byMember[row.MemberName] = dates
		}
		locs, ok := dates[row.Date]
		if !ok {
			locs = make(map[string]struct{})
			dates[row.Date] = locs
		}
		locs[row.Location] = struct{}{}

		t.rows = append(t.rows, row)
	}

	return t
}

// Members returns every member name present, sorted.
func (t *AssignmentTable) Members() []string {
	names := make([]string, 0, len(t.byMember))
	for name := range t.byMember {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WorkDates returns the dates the member is required on set, sorted.
func (t *AssignmentTable) WorkDates(member string) []time.Time {
	dates := make([]time.Time, 0, len(t.byMember[member]))
	for d := range t.byMember[member] {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// LocationsOn returns the distinct locations the member is scheduled at on d,
// sorted. More than one entry means the schedule is in conflict.
func (t *AssignmentTable) LocationsOn(member string, d time.Time) []string {
	locs := t.byMember[member][models.DateOnly(d)]
	out := make([]string, 0, len(locs))
	for l := range locs {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Required reports whether the member is required on set on d.
func (t *AssignmentTable) Required(member string, d time.Time) bool {
	_, ok := t.byMember[member][models.DateOnly(d)]
	return ok
}

// Rows returns the normalized rows, for calendar-range derivation.
func (t *AssignmentTable) Rows() []models.AssignmentRow {
	out := make([]models.AssignmentRow, len(t.rows))
	copy(out, t.rows)
	return out
}
