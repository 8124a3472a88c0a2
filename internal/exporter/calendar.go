package exporter

import (
	"fmt"

	"github.com/rs/zerolog"

	"traveldesk/internal/models"
)

// CalendarExporter writes one sheet per cast member in the flat event format
// calendar tools import: Title, Start, End, Description, Location, AllDay.
type CalendarExporter struct {
	logger zerolog.Logger
}

// NewCalendar creates a calendar exporter.
func NewCalendar(logger zerolog.Logger) *CalendarExporter {
	return &CalendarExporter{logger: logger.With().Str("component", "calendar_exporter").Logger()}
}

// Write renders the workbook. Home days carry no event; every other record
// becomes one all-day entry.
func (e *CalendarExporter) Write(w ExcelWriter, timelines []*models.Timeline) error {
	if len(timelines) == 0 {
		return fmt.Errorf("no calendar data to export")
	}

	events := 0
	for _, tl := range timelines {
		if err := w.AddSheet(tl.MemberName); err != nil {
			return err
		}
		if err := w.WriteHeader([]string{"Title", "Start", "End", "Description", "Location", "AllDay"}); err != nil {
			return err
		}

		// Records are date-ordered, so the last visited location is known
		// when the return leg comes up.
		lastLocation := ""
		for _, r := range tl.Records {
			title, desc := "", ""
			switch r.Class {
			case models.ClassTravelOut:
				title = fmt.Sprintf("Travel to %s", r.Location)
				desc = fmt.Sprintf("Travel from %s to %s", tl.HomeLocation, r.Location)
			case models.ClassWork:
				title = fmt.Sprintf("Shooting in %s", r.Location)
				desc = fmt.Sprintf("Shooting day in %s", r.Location)
			case models.ClassGapStay:
				title = fmt.Sprintf("Gap Day in %s", r.Location)
				desc = fmt.Sprintf("Gap day in %s", r.Location)
			case models.ClassAccommodation:
				title = fmt.Sprintf("Accommodation in %s", r.Location)
				desc = fmt.Sprintf("Accommodation day in %s", r.Location)
			case models.ClassTravelBack:
				title = fmt.Sprintf("Travel back to %s", tl.HomeLocation)
				desc = fmt.Sprintf("Travel from %s to %s", lastLocation, tl.HomeLocation)
			default:
				continue
			}

			if r.Location != tl.HomeLocation {
				lastLocation = r.Location
			}

			day := r.Date.Format(dateLayout)
			if err := w.WriteRow([]interface{}{title, day, day, desc, r.Location, "TRUE"}); err != nil {
				return err
			}
			events++
		}

		if err := w.SetColWidth(1, 6, 20); err != nil {
			return err
		}
	}

	e.logger.Info().Int("members", len(timelines)).Int("events", events).Msg("calendar workbook written")
	return nil
}
