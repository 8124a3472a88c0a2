// Package google pushes fleet summaries to a shared Google spreadsheet so
// production can watch totals without running the tool.
package google

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"traveldesk/internal/budget"
)

// SheetsService writes summary rows to one sheet of a spreadsheet. A row
// cache maps member IDs to sheet rows so single-member updates touch one row
// instead of rewriting the table.
type SheetsService struct {
	srv           *sheets.Service
	spreadsheetID string
	sheetName     string
	logger        zerolog.Logger

	mu       sync.Mutex
	rowCache map[string]int
}

// NewSheetsService authenticates with a service-account credentials file and
// binds to one spreadsheet.
func NewSheetsService(ctx context.Context, credentialsFile, spreadsheetID, sheetName string, logger zerolog.Logger) (*SheetsService, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials %s: %w", credentialsFile, err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	srv, err := sheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("create sheets client: %w", err)
	}

	return &SheetsService{
		srv:           srv,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		logger:        logger.With().Str("component", "sheets").Logger(),
		rowCache:      make(map[string]int),
	}, nil
}

// PushFleetSummary replaces the summary table with the given fleet view and
// rebuilds the row cache.
func (s *SheetsService) PushFleetSummary(ctx context.Context, fleet budget.FleetSummary) error {
	values := [][]interface{}{summaryHeader()}

	s.mu.Lock()
	s.rowCache = make(map[string]int, len(fleet.Members))
	for i, m := range fleet.Members {
		values = append(values, summaryRowValues(m))
		s.rowCache[m.MemberID] = i + 2 // 1-based, after the header
	}
	s.mu.Unlock()

	values = append(values, []interface{}{
		"TOTAL", fleet.TotalWorkDays, fleet.TotalTravelDays, fleet.TotalNights, fleet.TotalRoundTrips,
	})

	vr := &sheets.ValueRange{Values: values}
	_, err := s.srv.Spreadsheets.Values.
		Update(s.spreadsheetID, s.sheetName+"!A1", vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("update summary sheet: %w", err)
	}

	s.logger.Info().Int("members", len(fleet.Members)).Msg("fleet summary pushed")
	return nil
}

// UpdateMemberSummary rewrites the single row of one member. Members not yet
// in the cache require a full push first.
func (s *SheetsService) UpdateMemberSummary(ctx context.Context, summary budget.Summary) error {
	row, ok := s.getCachedRow(summary.MemberID)
	if !ok {
		return fmt.Errorf("member %s not in sheet, push the fleet summary first", summary.MemberID)
	}

	vr := &sheets.ValueRange{Values: [][]interface{}{summaryRowValues(summary)}}
	_, err := s.srv.Spreadsheets.Values.
		Update(s.spreadsheetID, fmt.Sprintf("%s!A%d", s.sheetName, row), vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("update member row %d: %w", row, err)
	}
	return nil
}

func summaryHeader() []interface{} {
	return []interface{}{"Cast Member", "Work Days", "Travel Days", "Nights", "Round Trips"}
}

func summaryRowValues(s budget.Summary) []interface{} {
	return []interface{}{s.MemberName, s.WorkDays, s.TravelDays, s.Nights, s.RoundTrips}
}

func (s *SheetsService) getCachedRow(memberID string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rowCache[memberID]
	return row, ok
}

func (s *SheetsService) setCachedRow(memberID string, row int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rowCache[memberID] = row
}

func (s *SheetsService) deleteCachedRow(memberID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rowCache, memberID)
}

// ClearCache drops the member-to-row mapping.
func (s *SheetsService) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rowCache = make(map[string]int)
}
