package engine

import (
	"fmt"
	"strings"
	"time"
)

// OverlappingAssignmentError reports a member scheduled at two locations on
// the same date. It aborts reconciliation for that member only.
type OverlappingAssignmentError struct {
	Member    string
	Date      time.Time
	Locations []string
}

func (e *OverlappingAssignmentError) Error() string {
	return fmt.Sprintf("member %q assigned to multiple locations on %s: %s",
		e.Member, e.Date.Format("2006-01-02"), strings.Join(e.Locations, ", "))
}

// InvalidPolicyError reports out-of-range policy parameters.
type InvalidPolicyError struct {
	Reason string
}

func (e *InvalidPolicyError) Error() string {
	return "invalid policy: " + e.Reason
}
