package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"traveldesk/internal/calendar"
	"traveldesk/internal/models"
	"traveldesk/internal/schedule"
)

// January 2026: the 1st is a Thursday, so the 3rd/4th and 10th/11th are
// weekends.
func jan(day int) time.Time { return models.Date(2026, time.January, day) }

func ana() models.CastMember {
	return models.CastMember{ID: "m-ana", Name: "Ana", HomeLocation: "tbilisi", Include: true}
}

// newEngine builds an engine over a single batumi shooting block spanning
// January 1-14, so rows without an explicit location resolve to batumi.
func newEngine(t *testing.T, policy models.Policy, rows []models.AssignmentRow) *Engine {
	t.Helper()

	periods, err := schedule.NewPeriodStore(models.ShootingPeriod{
		Name: "block-1", Location: "batumi", Start: jan(1), End: jan(14),
	})
	require.NoError(t, err)

	table := schedule.BuildTable(rows, periods)
	cal, err := calendar.New(periods.List(), table.Rows())
	require.NoError(t, err)

	return New(cal, table, policy, zerolog.Nop())
}

func workOn(member string, days ...int) []models.AssignmentRow {
	rows := make([]models.AssignmentRow, 0, len(days))
	for _, d := range days {
		rows = append(rows, models.AssignmentRow{MemberName: member, Date: jan(d), Required: true})
	}
	return rows
}

func recordByDay(t *testing.T, tl *models.Timeline) map[int]models.DayRecord {
	t.Helper()
	byDay := make(map[int]models.DayRecord, len(tl.Records))
	for _, r := range tl.Records {
		byDay[r.Date.Day()] = r
	}
	return byDay
}

func TestReconcile_GapWithinThresholdStaysOnLocation(t *testing.T) {
	e := newEngine(t, models.Policy{
		MaxGapDays:    3,
		WeekendPolicy: models.WeekendAlwaysStay,
	}, workOn("Ana", 3, 4, 5, 10, 11, 12))

	tl, err := e.Reconcile(ana())
	require.NoError(t, err)

	byDay := recordByDay(t, tl)
	for _, d := range []int{3, 4, 5, 10, 11, 12} {
		assert.Equal(t, models.ClassWork, byDay[d].Class, "day %d", d)
		assert.Equal(t, "batumi", byDay[d].Location, "day %d", d)
	}
	for _, d := range []int{6, 7, 8, 9} {
		assert.Equal(t, models.ClassGapStay, byDay[d].Class, "day %d", d)
		assert.Equal(t, "batumi", byDay[d].Location, "day %d", d)
	}
	assert.Equal(t, models.ClassTravelBack, byDay[13].Class)
	assert.Equal(t, "tbilisi", byDay[13].Location)
	for _, d := range []int{1, 2, 14} {
		assert.Equal(t, models.ClassHome, byDay[d].Class, "day %d", d)
	}

	require.Len(t, tl.Visits, 1)
	v := tl.Visits[0]
	assert.True(t, v.Arrival.Equal(jan(3)), "arrival leg absorbed by the first work day")
	assert.True(t, v.Departure.Equal(jan(13)))
	assert.Equal(t, 6, v.WorkDays)
	assert.Equal(t, 4, v.GapDays)
	assert.Equal(t, 10, v.Nights)
	assert.Equal(t, 2, v.TravelLegs)
}

func TestReconcile_GapBeyondThresholdGoesHome(t *testing.T) {
	e := newEngine(t, models.Policy{
		MaxGapDays:    2,
		WeekendPolicy: models.WeekendAlwaysStay,
	}, workOn("Ana", 3, 4, 5, 10, 11, 12))

	tl, err := e.Reconcile(ana())
	require.NoError(t, err)

	byDay := recordByDay(t, tl)
	assert.Equal(t, models.ClassTravelBack, byDay[6].Class)
	for _, d := range []int{7, 8, 9} {
		assert.Equal(t, models.ClassGapHome, byDay[d].Class, "day %d", d)
		assert.Equal(t, "tbilisi", byDay[d].Location, "day %d", d)
	}
	assert.Equal(t, models.ClassWork, byDay[10].Class)
	assert.Equal(t, models.ClassTravelBack, byDay[13].Class)
	assert.Equal(t, models.ClassHome, byDay[14].Class)

	require.Len(t, tl.Visits, 2)
	assert.Equal(t, 3, tl.Visits[0].Nights)
	assert.Equal(t, 3, tl.Visits[1].Nights)
	assert.Equal(t, 2, tl.Visits[0].TravelLegs)
	assert.True(t, tl.Visits[0].Departure.Equal(jan(6)))
	assert.True(t, tl.Visits[1].Arrival.Equal(jan(10)))
}

func TestReconcile_ArrivalAndDepartureBuffers(t *testing.T) {
	e := newEngine(t, models.Policy{
		MaxGapDays:          3,
		WeekendPolicy:       models.WeekendAlwaysStay,
		ArrivalBufferDays:   1,
		DepartureBufferDays: 1,
	}, workOn("Ana", 5))

	tl, err := e.Reconcile(ana())
	require.NoError(t, err)

	byDay := recordByDay(t, tl)
	assert.Equal(t, models.ClassTravelOut, byDay[4].Class)
	assert.Equal(t, models.ClassWork, byDay[5].Class)
	assert.Equal(t, models.ClassAccommodation, byDay[6].Class)
	assert.Equal(t, models.ClassTravelBack, byDay[7].Class)

	require.Len(t, tl.Visits, 1)
	v := tl.Visits[0]
	assert.True(t, v.Arrival.Equal(jan(4)))
	assert.True(t, v.Departure.Equal(jan(7)))
	assert.Equal(t, 3, v.Nights)
}

func TestReconcile_BuffersApplyToInducedRoundTrips(t *testing.T) {
	// The mid-schedule trip forced by the gap threshold carries the same
	// arrival and departure buffers as the outer legs.
	e := newEngine(t, models.Policy{
		MaxGapDays:          1,
		WeekendPolicy:       models.WeekendAlwaysStay,
		ArrivalBufferDays:   1,
		DepartureBufferDays: 1,
	}, workOn("Ana", 3, 4, 5, 12))

	tl, err := e.Reconcile(ana())
	require.NoError(t, err)

	byDay := recordByDay(t, tl)
	assert.Equal(t, models.ClassTravelOut, byDay[2].Class)
	assert.Equal(t, models.ClassAccommodation, byDay[6].Class)
	assert.Equal(t, models.ClassTravelBack, byDay[7].Class)
	for _, d := range []int{8, 9, 10} {
		assert.Equal(t, models.ClassGapHome, byDay[d].Class, "day %d", d)
	}
	assert.Equal(t, models.ClassTravelOut, byDay[11].Class)
	assert.Equal(t, models.ClassWork, byDay[12].Class)
	assert.Equal(t, models.ClassAccommodation, byDay[13].Class)
	assert.Equal(t, models.ClassTravelBack, byDay[14].Class)

	require.Len(t, tl.Visits, 2)
	assert.Equal(t, 2, tl.Visits[0].TravelLegs)
	assert.Equal(t, 2, tl.Visits[1].TravelLegs)
}

func TestReconcile_WeekendAlwaysHome(t *testing.T) {
	t.Run("single weekend day between work stays", func(t *testing.T) {
		// Friday the 9th and Sunday the 11th bracket Saturday the 10th.
		e := newEngine(t, models.Policy{
			MaxGapDays:    0,
			WeekendPolicy: models.WeekendAlwaysHome,
		}, workOn("Ana", 9, 11))

		tl, err := e.Reconcile(ana())
		require.NoError(t, err)

		byDay := recordByDay(t, tl)
		assert.Equal(t, models.ClassGapStay, byDay[10].Class)
		assert.Len(t, tl.Visits, 1)
	})

	t.Run("midweek gap goes home regardless of max gap", func(t *testing.T) {
		e := newEngine(t, models.Policy{
			MaxGapDays:    10,
			WeekendPolicy: models.WeekendAlwaysHome,
		}, workOn("Ana", 5, 8))

		tl, err := e.Reconcile(ana())
		require.NoError(t, err)

		byDay := recordByDay(t, tl)
		assert.Equal(t, models.ClassTravelBack, byDay[6].Class)
		assert.Equal(t, models.ClassGapHome, byDay[7].Class)
		assert.Len(t, tl.Visits, 2)
	})
}

func TestReconcile_WeekendWorkIfAdjacent(t *testing.T) {
	t.Run("weekend bounded by work is bridged", func(t *testing.T) {
		// Friday the 9th through Monday the 12th.
		e := newEngine(t, models.Policy{
			MaxGapDays:    0,
			WeekendPolicy: models.WeekendWorkIfAdjacent,
		}, workOn("Ana", 9, 12))

		tl, err := e.Reconcile(ana())
		require.NoError(t, err)

		byDay := recordByDay(t, tl)
		assert.Equal(t, models.ClassGapStay, byDay[10].Class)
		assert.Equal(t, models.ClassGapStay, byDay[11].Class)
		assert.Len(t, tl.Visits, 1)
	})

	t.Run("gap with a weekday is not bridged", func(t *testing.T) {
		// Thursday the 8th to Monday the 12th: Friday breaks the bridge.
		e := newEngine(t, models.Policy{
			MaxGapDays:    0,
			WeekendPolicy: models.WeekendWorkIfAdjacent,
		}, workOn("Ana", 8, 12))

		tl, err := e.Reconcile(ana())
		require.NoError(t, err)

		byDay := recordByDay(t, tl)
		assert.Equal(t, models.ClassTravelBack, byDay[9].Class)
		assert.Len(t, tl.Visits, 2)
	})
}

func TestReconcile_HomeLocationWorkClosesVisit(t *testing.T) {
	rows := []models.AssignmentRow{
		{MemberName: "Ana", Date: jan(3), Location: "batumi", Required: true},
		{MemberName: "Ana", Date: jan(5), Location: "tbilisi", Required: true},
		{MemberName: "Ana", Date: jan(7), Location: "batumi", Required: true},
	}
	e := newEngine(t, models.Policy{
		MaxGapDays:    5,
		WeekendPolicy: models.WeekendAlwaysStay,
	}, rows)

	tl, err := e.Reconcile(ana())
	require.NoError(t, err)

	byDay := recordByDay(t, tl)
	assert.Equal(t, models.ClassWork, byDay[3].Class)
	assert.Equal(t, models.ClassTravelBack, byDay[4].Class)
	assert.Equal(t, models.ClassWork, byDay[5].Class)
	assert.Equal(t, "tbilisi", byDay[5].Location, "home work stays at the home location")
	assert.Equal(t, models.ClassGapHome, byDay[6].Class)
	assert.Equal(t, models.ClassWork, byDay[7].Class)
	assert.Equal(t, models.ClassTravelBack, byDay[8].Class)

	assert.Len(t, tl.Visits, 2, "home work splits the stay into two visits")
}

func TestReconcile_DirectTransitionBetweenLocations(t *testing.T) {
	rows := []models.AssignmentRow{
		{MemberName: "Ana", Date: jan(5), Location: "batumi", Required: true},
		{MemberName: "Ana", Date: jan(7), Location: "kutaisi", Required: true},
	}
	e := newEngine(t, models.Policy{
		MaxGapDays:    5,
		WeekendPolicy: models.WeekendAlwaysStay,
	}, rows)

	tl, err := e.Reconcile(ana())
	require.NoError(t, err)

	byDay := recordByDay(t, tl)
	assert.Equal(t, models.ClassWork, byDay[5].Class)
	assert.Equal(t, models.ClassGapStay, byDay[6].Class)
	assert.Equal(t, "batumi", byDay[6].Location, "member waits at the old location")
	assert.Equal(t, models.ClassWork, byDay[7].Class)
	assert.Equal(t, "kutaisi", byDay[7].Location)
	assert.Equal(t, models.ClassTravelBack, byDay[8].Class)

	require.Len(t, tl.Visits, 2)
	assert.Equal(t, 1, tl.Visits[0].TravelLegs, "no return leg on a direct move")
	assert.Equal(t, 2, tl.Visits[0].Nights)
	assert.Equal(t, 1, tl.Visits[1].Nights)
}

func TestReconcile_OverlappingAssignment(t *testing.T) {
	rows := []models.AssignmentRow{
		{MemberName: "Ana", Date: jan(5), Location: "batumi", Required: true},
		{MemberName: "Ana", Date: jan(5), Location: "kutaisi", Required: true},
	}
	e := newEngine(t, models.Policy{WeekendPolicy: models.WeekendAlwaysStay}, rows)

	_, err := e.Reconcile(ana())
	var overlap *OverlappingAssignmentError
	require.ErrorAs(t, err, &overlap)
	assert.Equal(t, "Ana", overlap.Member)
	assert.True(t, overlap.Date.Equal(jan(5)))
	assert.Equal(t, []string{"batumi", "kutaisi"}, overlap.Locations)
}

func TestReconcile_InvalidPolicy(t *testing.T) {
	cases := []struct {
		name   string
		policy models.Policy
	}{
		{"negative max gap", models.Policy{MaxGapDays: -1, WeekendPolicy: models.WeekendAlwaysStay}},
		{"negative arrival buffer", models.Policy{ArrivalBufferDays: -1, WeekendPolicy: models.WeekendAlwaysStay}},
		{"negative departure buffer", models.Policy{DepartureBufferDays: -1, WeekendPolicy: models.WeekendAlwaysStay}},
		{"unknown weekend policy", models.Policy{WeekendPolicy: "long_weekend"}},
		{"buffer exceeds calendar", models.Policy{ArrivalBufferDays: 100, WeekendPolicy: models.WeekendAlwaysStay}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newEngine(t, tc.policy, workOn("Ana", 5))
			_, err := e.Reconcile(ana())
			var invalid *InvalidPolicyError
			assert.ErrorAs(t, err, &invalid)
		})
	}
}

func TestReconcileAll_CollectsFailuresAndSkipsExcluded(t *testing.T) {
	rows := append(workOn("Ana", 3, 4, 5),
		models.AssignmentRow{MemberName: "Boris", Date: jan(5), Location: "batumi", Required: true},
		models.AssignmentRow{MemberName: "Boris", Date: jan(5), Location: "kutaisi", Required: true},
		models.AssignmentRow{MemberName: "Carl", Date: jan(5), Required: true},
	)
	e := newEngine(t, models.Policy{MaxGapDays: 3, WeekendPolicy: models.WeekendAlwaysStay}, rows)

	boris := models.CastMember{ID: "m-boris", Name: "Boris", HomeLocation: "tbilisi", Include: true}
	carl := models.CastMember{ID: "m-carl", Name: "Carl", HomeLocation: "tbilisi", Include: false}

	timelines, failures := e.ReconcileAll([]models.CastMember{ana(), boris, carl})

	require.Len(t, timelines, 1, "the failing member must not abort the others")
	assert.Equal(t, "Ana", timelines[0].MemberName)

	require.Len(t, failures, 1)
	var overlap *OverlappingAssignmentError
	assert.True(t, errors.As(failures["m-boris"], &overlap))
}

func TestReconcile_EveryDateClassifiedExactlyOnce(t *testing.T) {
	e := newEngine(t, models.Policy{
		MaxGapDays:    2,
		WeekendPolicy: models.WeekendWorkIfAdjacent,
	}, workOn("Ana", 3, 5, 9, 12))

	tl, err := e.Reconcile(ana())
	require.NoError(t, err)

	require.Len(t, tl.Records, 14)
	for i, r := range tl.Records {
		assert.True(t, r.Date.Equal(jan(i+1)), "records must cover the range in order")
		assert.NotEmpty(t, r.Class)
		assert.NotEmpty(t, r.Location)
	}
}

func TestReconcile_Deterministic(t *testing.T) {
	e := newEngine(t, models.Policy{
		MaxGapDays:    2,
		WeekendPolicy: models.WeekendWorkIfAdjacent,
	}, workOn("Ana", 3, 5, 9, 12))

	first, err := e.Reconcile(ana())
	require.NoError(t, err)
	second, err := e.Reconcile(ana())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestReconcile_TripCountMonotonicInMaxGap(t *testing.T) {
	rows := workOn("Ana", 3, 4, 5, 10, 11, 12)

	prev := -1
	for maxGap := 5; maxGap >= 0; maxGap-- {
		e := newEngine(t, models.Policy{
			MaxGapDays:    maxGap,
			WeekendPolicy: models.WeekendAlwaysStay,
		}, rows)
		tl, err := e.Reconcile(ana())
		require.NoError(t, err)

		if prev >= 0 {
			assert.GreaterOrEqual(t, len(tl.Visits), prev,
				"shrinking the allowed gap must never merge trips (max gap %d)", maxGap)
		}
		prev = len(tl.Visits)
	}
}
