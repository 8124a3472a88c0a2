// Package importer reads the production's shooting schedule from an xlsx
// workbook and normalizes it into assignment rows.
//
// The expected layout is one header row containing SHOOTING DATE and CAST
// columns, then one row per shooting day. The CAST cell is a comma-separated
// list of names as they appear on the call sheet, often prefixed with an
// index ("12. Ana") and suffixed with a count ("Ana (2)"); both decorations
// are stripped.
package importer

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"traveldesk/internal/models"
)

const dateLayout = "02.01.2006"

var (
	leadingIndex  = regexp.MustCompile(`^\d+\.`)
	trailingCount = regexp.MustCompile(`\s*\(\d+\)`)
)

// Importer parses schedule workbooks.
type Importer struct {
	logger zerolog.Logger
}

// New creates an importer.
func New(logger zerolog.Logger) *Importer {
	return &Importer{logger: logger.With().Str("component", "importer").Logger()}
}

// ReadFile parses the workbook at path.
func (im *Importer) ReadFile(path string) ([]models.AssignmentRow, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open schedule %s: %w", path, err)
	}
	defer f.Close()
	return im.read(f)
}

// Read parses a workbook from a stream.
func (im *Importer) Read(r io.Reader) ([]models.AssignmentRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open schedule: %w", err)
	}
	defer f.Close()
	return im.read(f)
}

func (im *Importer) read(f *excelize.File) ([]models.AssignmentRow, error) {
	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %s is empty", sheet)
	}

	dateCol, castCol := -1, -1
	for i, h := range rows[0] {
		switch strings.ToUpper(strings.TrimSpace(h)) {
		case "SHOOTING DATE":
			dateCol = i
		case "CAST":
			castCol = i
		}
	}
	if dateCol < 0 || castCol < 0 {
		return nil, fmt.Errorf("sheet %s: SHOOTING DATE and CAST columns are required", sheet)
	}

	seen := make(map[string]map[time.Time]struct{})
	var out []models.AssignmentRow

	for n, row := range rows[1:] {
		date, cast := cell(row, dateCol), cell(row, castCol)
		if date == "" && cast == "" {
			continue
		}

		d, err := time.ParseInLocation(dateLayout, date, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("row %d: bad shooting date %q: %w", n+2, date, err)
		}
		d = models.DateOnly(d)

		for _, raw := range strings.Split(cast, ",") {
			name := CleanName(raw)
			if name == "" {
				continue
			}
			dates, ok := seen[name]
			if !ok {
				dates = make(map[time.Time]struct{})
				seen[name] = dates
			}
			if _, dup := dates[d]; dup {
				continue
			}
			dates[d] = struct{}{}
			out = append(out, models.AssignmentRow{MemberName: name, Date: d, Required: true})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].MemberName != out[j].MemberName {
			return out[i].MemberName < out[j].MemberName
		}
		return out[i].Date.Before(out[j].Date)
	})

	im.logger.Info().
		Str("sheet", sheet).
		Int("rows", len(rows)-1).
		Int("assignments", len(out)).
		Int("members", len(seen)).
		Msg("schedule imported")

	return out, nil
}

// CleanName strips the call-sheet decorations from one cast name.
func CleanName(raw string) string {
	name := strings.TrimSpace(raw)
	name = leadingIndex.ReplaceAllString(name, "")
	name = trailingCount.ReplaceAllString(name, "")
	return strings.TrimSpace(name)
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
