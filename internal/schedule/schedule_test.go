package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"traveldesk/internal/models"
)

func date(day int) time.Time { return models.Date(2026, time.February, day) }

func TestPeriodStore_Add(t *testing.T) {
	s, err := NewPeriodStore(
		models.ShootingPeriod{Name: "B", Location: "batumi", Start: date(10), End: date(15)},
		models.ShootingPeriod{Name: "A", Location: "tbilisi", Start: date(1), End: date(5)},
	)
	require.NoError(t, err)

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, "A", list[0].Name, "periods should be sorted by start date")
	assert.Equal(t, "B", list[1].Name)
}

func TestPeriodStore_RejectsInvertedRange(t *testing.T) {
	s := &PeriodStore{}
	err := s.Add(models.ShootingPeriod{Name: "bad", Location: "x", Start: date(5), End: date(1)})
	assert.Error(t, err)
}

func TestPeriodStore_LocationOn(t *testing.T) {
	s, err := NewPeriodStore(
		models.ShootingPeriod{Name: "A", Location: "tbilisi", Start: date(1), End: date(5)},
	)
	require.NoError(t, err)

	assert.Equal(t, "tbilisi", s.LocationOn(date(3)))
	assert.Equal(t, "", s.LocationOn(date(9)))
}

func TestBuildTable_InheritsPeriodLocation(t *testing.T) {
	periods, err := NewPeriodStore(
		models.ShootingPeriod{Name: "A", Location: "tbilisi", Start: date(1), End: date(5)},
	)
	require.NoError(t, err)

	table := BuildTable([]models.AssignmentRow{
		{MemberName: "Ana", Date: date(2), Required: true},
		{MemberName: "Ana", Date: date(9), Required: true}, // outside every period
		{MemberName: "Ana", Date: date(2), Required: true}, // duplicate row collapses
		{MemberName: "Ghost", Date: date(2), Required: false},
	}, periods)

	assert.Equal(t, []string{"Ana"}, table.Members())

	dates := table.WorkDates("Ana")
	require.Len(t, dates, 2)
	assert.True(t, dates[0].Equal(date(2)))
	assert.True(t, dates[1].Equal(date(9)))

	assert.Equal(t, []string{"tbilisi"}, table.LocationsOn("Ana", date(2)))
	assert.Equal(t, []string{""}, table.LocationsOn("Ana", date(9)))
	assert.True(t, table.Required("Ana", date(2)))
	assert.False(t, table.Required("Ana", date(3)))
}

func TestBuildTable_KeepsConflictingLocations(t *testing.T) {
	table := BuildTable([]models.AssignmentRow{
		{MemberName: "Ana", Date: date(2), Location: "tbilisi", Required: true},
		{MemberName: "Ana", Date: date(2), Location: "batumi", Required: true},
	}, nil)

	locs := table.LocationsOn("Ana", date(2))
	assert.Equal(t, []string{"batumi", "tbilisi"}, locs)
}
