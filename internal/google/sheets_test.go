package google

import (
	"testing"

	"traveldesk/internal/budget"
)

func TestSummaryRowValues(t *testing.T) {
	s := budget.Summary{
		MemberID:   "m-ana",
		MemberName: "Ana",
		WorkDays:   6,
		TravelDays: 3,
		Nights:     10,
		RoundTrips: 2,
	}

	values := summaryRowValues(s)

	expected := []interface{}{"Ana", 6, 3, 10, 2}
	if len(values) != len(expected) {
		t.Fatalf("Expected %d values, got %d", len(expected), len(values))
	}
	for i, v := range values {
		if v != expected[i] {
			t.Errorf("At index %d: expected %v, got %v", i, expected[i], v)
		}
	}
}

func TestSummaryHeaderMatchesRowWidth(t *testing.T) {
	if len(summaryHeader()) != len(summaryRowValues(budget.Summary{})) {
		t.Errorf("Header and row widths differ")
	}
}

func TestCacheOperations(t *testing.T) {
	s := &SheetsService{
		rowCache: make(map[string]int),
	}

	s.setCachedRow("m-ana", 5)
	row, ok := s.getCachedRow("m-ana")
	if !ok || row != 5 {
		t.Errorf("Expected row 5, got %d (ok=%v)", row, ok)
	}

	s.deleteCachedRow("m-ana")
	_, ok = s.getCachedRow("m-ana")
	if ok {
		t.Errorf("Expected row to be deleted from cache")
	}

	s.setCachedRow("m-boris", 10)
	s.ClearCache()
	_, ok = s.getCachedRow("m-boris")
	if ok {
		t.Errorf("Expected cache to be cleared")
	}
}
