// Package schedule holds the shooting period store and the per-member
// assignment table the reconciliation engine consumes.
package schedule

import (
	"fmt"
	"sort"
	"time"

	"traveldesk/internal/models"
)

// PeriodStore is the ordered collection of location-tagged date ranges
// defining where and when the production shoots.
type PeriodStore struct {
	periods []models.ShootingPeriod
}

// NewPeriodStore validates and stores the given periods sorted by start date.
func NewPeriodStore(periods ...models.ShootingPeriod) (*PeriodStore, error) {
	s := &PeriodStore{}
	for _, p := range periods {
		if err := s.Add(p); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add appends a period, rejecting inverted ranges.
func (s *PeriodStore) Add(p models.ShootingPeriod) error {
	p.Start = models.DateOnly(p.Start)
	p.End = models.DateOnly(p.End)
	if p.End.Before(p.Start) {
		return fmt.Errorf("period %q: end %s before start %s",
			p.Name, p.End.Format("2006-01-02"), p.Start.Format("2006-01-02"))
	}
	s.periods = append(s.periods, p)
	sort.SliceStable(s.periods, func(i, j int) bool {
		return s.periods[i].Start.Before(s.periods[j].Start)
	})
	return nil
}

// List returns the stored periods in start order.
func (s *PeriodStore) List() []models.ShootingPeriod {
	out := make([]models.ShootingPeriod, len(s.periods))
	copy(out, s.periods)
	return out
}

// PeriodOn returns the first period active on d.
func (s *PeriodStore) PeriodOn(d time.Time) (models.ShootingPeriod, bool) {
	for _, p := range s.periods {
		if p.Contains(d) {
			return p, true
		}
	}
	return models.ShootingPeriod{}, false
}

// LocationOn returns the shoot location active on d, or "" when the date
// falls outside every period.
func (s *PeriodStore) LocationOn(d time.Time) string {
	if p, ok := s.PeriodOn(d); ok {
		return p.Location
	}
	return ""
}
