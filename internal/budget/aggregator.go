// Package budget folds reconciled timelines into the aggregate counts the
// exporters and the API serve. Pure functions over immutable inputs: the same
// timelines always produce the same summaries.
package budget

import (
	"sort"

	"traveldesk/internal/models"
)

// LocationBreakdown is the per-location slice of one member's summary.
type LocationBreakdown struct {
	Location          string `json:"location"`
	WorkDays          int    `json:"work_days"`
	AccommodationDays int    `json:"accommodation_days"`
	GapStayDays       int    `json:"gap_stay_days"`
	TravelDays        int    `json:"travel_days"`
	Nights            int    `json:"nights"`
	Visits            int    `json:"visits"`
}

// Summary is the aggregate view of one member's timeline.
type Summary struct {
	MemberID   string                        `json:"member_id"`
	MemberName string                        `json:"member_name"`
	Counts     map[models.Classification]int `json:"counts"`
	Locations  []LocationBreakdown           `json:"locations"`
	WorkDays   int                           `json:"work_days"`
	TravelDays int                           `json:"travel_days"`
	Nights     int                           `json:"nights"`
	RoundTrips int                           `json:"round_trips"`
	TotalDays  int                           `json:"total_days"`
}

// FleetSummary aggregates every member of a run.
type FleetSummary struct {
	Members         []Summary `json:"members"`
	TotalWorkDays   int       `json:"total_work_days"`
	TotalTravelDays int       `json:"total_travel_days"`
	TotalNights     int       `json:"total_nights"`
	TotalRoundTrips int       `json:"total_round_trips"`
}

// Summarize folds one timeline into its summary.
func Summarize(tl *models.Timeline) Summary {
	s := Summary{
		MemberID:   tl.MemberID,
		MemberName: tl.MemberName,
		Counts:     make(map[models.Classification]int),
	}

	byLoc := make(map[string]*LocationBreakdown)
	loc := func(name string) *LocationBreakdown {
		b, ok := byLoc[name]
		if !ok {
			b = &LocationBreakdown{Location: name}
			byLoc[name] = b
		}
		return b
	}

	for _, r := range tl.Records {
		s.Counts[r.Class]++
		s.TotalDays++

		switch r.Class {
		case models.ClassWork:
			s.WorkDays++
			loc(r.Location).WorkDays++
		case models.ClassAccommodation:
			loc(r.Location).AccommodationDays++
		case models.ClassGapStay:
			loc(r.Location).GapStayDays++
		case models.ClassTravelOut:
			s.TravelDays++
			loc(r.Location).TravelDays++
		case models.ClassTravelBack:
			s.TravelDays++
		}
	}

	for _, v := range tl.Visits {
		s.Nights += v.Nights
		if v.TravelLegs == 2 {
			s.RoundTrips++
		}
		if b, ok := byLoc[v.Location]; ok {
			b.Nights += v.Nights
			b.Visits++
		}
	}

	// Home is not a visited location; the breakdown covers shoot locations.
	delete(byLoc, tl.HomeLocation)

	s.Locations = make([]LocationBreakdown, 0, len(byLoc))
	for _, b := range byLoc {
		s.Locations = append(s.Locations, *b)
	}
	sort.Slice(s.Locations, func(i, j int) bool {
		return s.Locations[i].Location < s.Locations[j].Location
	})

	return s
}

// SummarizeAll folds every timeline of a run into the fleet view.
func SummarizeAll(timelines []*models.Timeline) FleetSummary {
	fleet := FleetSummary{Members: make([]Summary, 0, len(timelines))}
	for _, tl := range timelines {
		s := Summarize(tl)
		fleet.Members = append(fleet.Members, s)
		fleet.TotalWorkDays += s.WorkDays
		fleet.TotalTravelDays += s.TravelDays
		fleet.TotalNights += s.Nights
		fleet.TotalRoundTrips += s.RoundTrips
	}
	sort.Slice(fleet.Members, func(i, j int) bool {
		return fleet.Members[i].MemberName < fleet.Members[j].MemberName
	})
	return fleet
}
