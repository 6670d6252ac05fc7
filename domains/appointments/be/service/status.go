package service

import "fmt"

// Status is the closed set of lifecycle states an appointment can be in.
// Anything outside this set is unrepresentable; callers go through ParseStatus
// at the boundary.
type Status string

const (
	StatusScheduled  Status = "SCHEDULED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusReady      Status = "READY"
	StatusCompleted  Status = "COMPLETED"
	StatusNoShow     Status = "NO_SHOW"
)

// Columns is the fixed board column order. Every board projection contains
// exactly these columns, in this order, even when empty.
var Columns = []Status{StatusScheduled, StatusInProgress, StatusReady, StatusCompleted, StatusNoShow}

// transitions is the legal status transition table. A (from, to) pair absent
// from this table is an invalid transition, no exceptions.
var transitions = map[Status][]Status{
	StatusScheduled:  {StatusInProgress, StatusNoShow},
	StatusInProgress: {StatusReady, StatusScheduled},
	StatusReady:      {StatusCompleted, StatusInProgress},
	StatusCompleted:  {},
	StatusNoShow:     {StatusScheduled},
}

// ParseStatus converts a stored or wire string into a Status.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusScheduled, StatusInProgress, StatusReady, StatusCompleted, StatusNoShow:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown appointment status %q", s)
	}
}

// IsTerminal reports whether the status ends the lifecycle. Terminal
// appointments keep their row but no longer participate in conflict checks.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusNoShow
}

// CanTransition reports whether from -> to is in the legal transition table.
// A no-op transition (from == to) is not a transition and is rejected here;
// callers that only reorder within a column never consult the table.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
