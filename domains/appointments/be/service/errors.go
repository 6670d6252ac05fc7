package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Errors returned by the service layer. All four are expected, frequent
// outcomes of concurrent multi-operator scheduling, not crash conditions.
var (
	// ErrNotFound means the appointment id does not exist within the caller's
	// tenant scope. Terminal; not retryable.
	ErrNotFound = errors.New("appointment not found")
	// ErrVersionConflict means the optimistic-concurrency token was stale.
	// Retryable: re-read the record, recompute the changes, resubmit. The
	// service never retries on the caller's behalf.
	ErrVersionConflict = errors.New("appointment version conflict")
	// ErrInvalidWindow means a requested time window has end <= start.
	ErrInvalidWindow = errors.New("scheduled end must be after scheduled start")
)

// InvalidTransitionError reports a status change outside the legal transition
// table. Terminal; usually stale UI state or a caller bug.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}

// SchedulingConflictError reports that a proposed window overlaps existing
// bookings for the same technician. Terminal for the given changes; the caller
// must pick a different slot or technician.
type SchedulingConflictError struct {
	ConflictingIDs []uuid.UUID
}

func (e *SchedulingConflictError) Error() string {
	ids := make([]string, 0, len(e.ConflictingIDs))
	for _, id := range e.ConflictingIDs {
		ids = append(ids, id.String())
	}
	return fmt.Sprintf("scheduling conflict with appointments [%s]", strings.Join(ids, ", "))
}
