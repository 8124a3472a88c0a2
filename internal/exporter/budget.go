package exporter

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"traveldesk/internal/models"
)

const (
	budgetSheet = "Travel and Accommodation"
	dateLayout  = "02.01.2006"

	colAmt      = 2
	colRate     = 7
	colSubtotal = 11
)

var rateLabels = []string{
	"Ticket Rate",
	"Accommodation Rate",
	"Per Diem Shooting Rate",
	"Per Diem Travel Rate",
	"Per Diem Gap Day Rate",
	"Hourly Travel Rate",
}

// rate column offsets inside a rate-table row; column 1 is the location name.
const (
	rateTicket = iota + 2
	rateAccommodation
	ratePerDiemShooting
	ratePerDiemTravel
	ratePerDiemGap
	rateHourlyTravel
	rateTravelHours
)

// BudgetExporter writes the travel-and-accommodation budget workbook: a rate
// table per visited location followed by line items per visit whose subtotals
// reference the rate cells, so production can fill in rates after the fact.
type BudgetExporter struct {
	logger zerolog.Logger
}

// NewBudget creates a budget exporter.
func NewBudget(logger zerolog.Logger) *BudgetExporter {
	return &BudgetExporter{logger: logger.With().Str("component", "budget_exporter").Logger()}
}

// lineItem is one visit flattened for export.
type lineItem struct {
	member          string
	home            string
	location        string
	arrival         time.Time
	departure       time.Time
	workDays        int
	gapDays         int
	nights          int
	arrivalIsWork   bool
	departureIsWork bool
}

// Write renders the workbook for the given timelines.
func (e *BudgetExporter) Write(w ExcelWriter, timelines []*models.Timeline) error {
	items := collectItems(timelines)
	if len(items) == 0 {
		return fmt.Errorf("no travel data to export")
	}

	if err := w.AddSheet(budgetSheet); err != nil {
		return err
	}

	locations := uniqueLocations(items)
	rateRows, err := writeRateTable(w, locations)
	if err != nil {
		return err
	}

	if err := w.WriteRow(nil); err != nil { // spacer
		return err
	}
	if err := w.WriteHeader([]string{
		"Description", "Amt", "Unit", "x", "Currency", "Unit 2",
		"Rate", "Unit 3", "4x", "Unit 4", "Subtotal",
	}); err != nil {
		return err
	}

	for _, it := range items {
		if err := e.writeItem(w, it, rateRows[it.location]); err != nil {
			return err
		}
	}

	if err := w.SetColWidth(1, colSubtotal, 25); err != nil {
		return err
	}

	e.logger.Info().Int("visits", len(items)).Int("locations", len(locations)).Msg("budget workbook written")
	return nil
}

func collectItems(timelines []*models.Timeline) []lineItem {
	var items []lineItem
	for _, tl := range timelines {
		classOn := make(map[time.Time]models.Classification, len(tl.Records))
		for _, r := range tl.Records {
			classOn[r.Date] = r.Class
		}
		for _, v := range tl.Visits {
			items = append(items, lineItem{
				member:          tl.MemberName,
				home:            tl.HomeLocation,
				location:        v.Location,
				arrival:         v.Arrival,
				departure:       v.Departure,
				workDays:        v.WorkDays,
				gapDays:         v.GapDays,
				nights:          v.Nights,
				arrivalIsWork:   classOn[v.Arrival] == models.ClassWork,
				departureIsWork: classOn[v.Departure] == models.ClassWork,
			})
		}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].arrival.Before(items[j].arrival) })
	return items
}

func uniqueLocations(items []lineItem) []string {
	set := make(map[string]struct{})
	for _, it := range items {
		set[it.location] = struct{}{}
	}
	locs := make([]string, 0, len(set))
	for l := range set {
		locs = append(locs, l)
	}
	sort.Strings(locs)
	return locs
}

// writeRateTable emits one zero-filled rate row per location and returns the
// sheet row each location landed on.
func writeRateTable(w ExcelWriter, locations []string) (map[string]int, error) {
	if err := w.WriteHeader(append(append([]string{"Location"}, rateLabels...), "Travel Hours per Route")); err != nil {
		return nil, err
	}

	rows := make(map[string]int, len(locations))
	for _, loc := range locations {
		rows[loc] = w.Row()
		row := []interface{}{loc}
		for i := 0; i < len(rateLabels)+1; i++ {
			row = append(row, 0)
		}
		if err := w.WriteRow(row); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

func (e *BudgetExporter) writeItem(w ExcelWriter, it lineItem, rateRow int) error {
	dates := fmt.Sprintf("%s-%s", it.arrival.Format(dateLayout), it.departure.Format(dateLayout))
	label := func(what string) string {
		return fmt.Sprintf("%s (%s, %s) %s %s", it.member, it.home, it.location, what, dates)
	}

	if err := e.chargeRow(w, label("travel tickets"), 1, "return", rateRow, rateTicket); err != nil {
		return err
	}
	if err := e.chargeRow(w, label("accommodation"), it.nights, "nights", rateRow, rateAccommodation); err != nil {
		return err
	}
	if err := e.chargeRow(w, label("per diems shooting days"), it.workDays, "days", rateRow, ratePerDiemShooting); err != nil {
		return err
	}

	// Travel-day per diems are not due when the leg was absorbed by a
	// shooting day: the shooting per diem already covers it.
	arrivalAmt, departureAmt := 1, 1
	if it.arrivalIsWork {
		arrivalAmt = 0
	}
	if it.departureIsWork {
		departureAmt = 0
	}
	arrivalDesc := fmt.Sprintf("%s (%s, %s) per diem travel day arrival %s",
		it.member, it.home, it.location, it.arrival.Format(dateLayout))
	if err := e.chargeRow(w, arrivalDesc, arrivalAmt, "day", rateRow, ratePerDiemTravel); err != nil {
		return err
	}
	departureDesc := fmt.Sprintf("%s (%s, %s) per diem travel day departure %s",
		it.member, it.home, it.location, it.departure.Format(dateLayout))
	if err := e.chargeRow(w, departureDesc, departureAmt, "day", rateRow, ratePerDiemTravel); err != nil {
		return err
	}

	if it.gapDays > 0 {
		if err := e.chargeRow(w, label("per diems gap days"), it.gapDays, "days", rateRow, ratePerDiemGap); err != nil {
			return err
		}
	}

	// Travel hours pull both the amount and the rate from the rate table.
	r := w.Row()
	if err := w.WriteRow([]interface{}{label("travel hours"), "", "hours", 1, "", "", "", "", 1, "", ""}); err != nil {
		return err
	}
	if err := w.SetFormula(colAmt, r, "="+absRef(rateTravelHours, rateRow)); err != nil {
		return err
	}
	if err := w.SetFormula(colRate, r, "="+absRef(rateHourlyTravel, rateRow)); err != nil {
		return err
	}
	return w.SetFormula(colSubtotal, r, subtotalFormula(r))
}

// chargeRow writes one line item whose rate references the rate table and
// whose subtotal multiplies amount, multiplier, rate and the 4x factor.
func (e *BudgetExporter) chargeRow(w ExcelWriter, desc string, amt int, unit string, rateRow, rateCol int) error {
	r := w.Row()
	if err := w.WriteRow([]interface{}{desc, amt, unit, 1, "", "", "", "", 1, "", ""}); err != nil {
		return err
	}
	if err := w.SetFormula(colRate, r, "="+absRef(rateCol, rateRow)); err != nil {
		return err
	}
	return w.SetFormula(colSubtotal, r, subtotalFormula(r))
}

func subtotalFormula(row int) string {
	return fmt.Sprintf("=B%d*D%d*G%d*I%d", row, row, row, row)
}

func absRef(col, row int) string {
	cell, _ := excelize.CoordinatesToCellName(col, row, true)
	return cell
}
