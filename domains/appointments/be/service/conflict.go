package service

import (
	"github.com/google/uuid"
)

// DetectConflicts returns the ids of appointments whose windows overlap the
// candidate window for the same technician. Pure: the caller supplies the
// candidate set, typically narrowed to the technician and day by the store.
//
// Rules:
//   - Half-open intervals: [a,b) and [b,c) do not conflict.
//   - selfID is excluded so an appointment never conflicts with itself.
//   - Terminal appointments (COMPLETED, NO_SHOW) never block a window.
//   - A nil technician never conflicts; conflicts are technician-scoped.
//
// The result preserves the order of the input set so callers get deterministic
// conflict lists.
func DetectConflicts(candidate Window, technicianID *uuid.UUID, selfID uuid.UUID, existing []Appointment) []uuid.UUID {
	if technicianID == nil {
		return nil
	}

	var conflicts []uuid.UUID
	for _, other := range existing {
		if other.ID == selfID {
			continue
		}
		if other.Status.IsTerminal() {
			continue
		}
		if other.TechnicianID == nil || *other.TechnicianID != *technicianID {
			continue
		}
		if candidate.Overlaps(other.Window()) {
			conflicts = append(conflicts, other.ID)
		}
	}
	return conflicts
}
