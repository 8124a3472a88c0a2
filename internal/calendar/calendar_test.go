package calendar

import (
	"testing"
	"time"

	"traveldesk/internal/models"
)

func date(day int) time.Time { return models.Date(2026, time.January, day) }

func TestNew_RangeCoversPeriodsAndAssignments(t *testing.T) {
	periods := []models.ShootingPeriod{
		{Name: "Block A", Location: "x", Start: date(3), End: date(5)},
	}
	assignments := []models.AssignmentRow{
		{MemberName: "Ana", Date: date(1), Required: true},
		{MemberName: "Ana", Date: date(14), Required: true},
	}

	cal, err := New(periods, assignments)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !cal.Start().Equal(date(1)) {
		t.Errorf("expected start Jan 1, got %v", cal.Start())
	}
	if !cal.End().Equal(date(14)) {
		t.Errorf("expected end Jan 14, got %v", cal.End())
	}
	if cal.Len() != 14 {
		t.Errorf("expected 14 days, got %d", cal.Len())
	}
	if len(cal.Days()) != 14 {
		t.Errorf("expected 14 day entries, got %d", len(cal.Days()))
	}
}

func TestNew_EmptySchedule(t *testing.T) {
	if _, err := New(nil, nil); err != ErrEmptySchedule {
		t.Fatalf("expected ErrEmptySchedule, got %v", err)
	}
}

func TestCalendar_PeriodsOn(t *testing.T) {
	periods := []models.ShootingPeriod{
		{Name: "Block A", Location: "x", Start: date(3), End: date(5)},
		{Name: "Block B", Location: "y", Start: date(10), End: date(12)},
	}

	cal, err := New(periods, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		day      int
		expected int
		location string
	}{
		{3, 1, "x"},
		{5, 1, "x"},
		{6, 0, ""},
		{10, 1, "y"},
		{13, 0, ""},
	}

	for _, tt := range tests {
		active := cal.PeriodsOn(date(tt.day))
		if len(active) != tt.expected {
			t.Errorf("day %d: expected %d periods, got %d", tt.day, tt.expected, len(active))
			continue
		}
		if tt.expected > 0 && active[0].Location != tt.location {
			t.Errorf("day %d: expected location %q, got %q", tt.day, tt.location, active[0].Location)
		}
	}
}

func TestCalendar_Clamp(t *testing.T) {
	cal, err := New([]models.ShootingPeriod{
		{Name: "A", Location: "x", Start: date(5), End: date(10)},
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !cal.Clamp(date(1)).Equal(date(5)) {
		t.Error("clamp below range should return start")
	}
	if !cal.Clamp(date(20)).Equal(date(10)) {
		t.Error("clamp above range should return end")
	}
	if !cal.Clamp(date(7)).Equal(date(7)) {
		t.Error("clamp inside range should be identity")
	}
}
