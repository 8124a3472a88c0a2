package engine

import (
	"fmt"

	"github.com/rs/zerolog"

	"traveldesk/internal/calendar"
	"traveldesk/internal/models"
	"traveldesk/internal/schedule"
)

// Run reconciles a whole project: builds the period store, assignment table
// and calendar, then processes every included member.
func Run(p *models.Project, logger zerolog.Logger) ([]*models.Timeline, map[string]error, error) {
	periods, err := schedule.NewPeriodStore(p.Periods...)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid shooting periods: %w", err)
	}

	table := schedule.BuildTable(p.Assignments, periods)

	cal, err := calendar.New(periods.List(), table.Rows())
	if err != nil {
		return nil, nil, err
	}

	e := New(cal, table, p.Policy, logger)
	if err := e.validatePolicy(); err != nil {
		return nil, nil, err
	}

	timelines, failures := e.ReconcileAll(p.Members)
	return timelines, failures, nil
}
