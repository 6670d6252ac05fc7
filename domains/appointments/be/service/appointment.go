package service

import (
	"time"

	"github.com/google/uuid"
)

// Appointment is the board's central record. The tenant id is an opaque
// partition key resolved by upstream middleware; the core never interprets it.
type Appointment struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	TechnicianID   *uuid.UUID
	ScheduledStart time.Time
	ScheduledEnd   time.Time
	Status         Status
	Position       int
	Version        int64
	CheckInAt      *time.Time
	CheckOutAt     *time.Time
	CreatedAt      time.Time
}

// Window returns the booked time window as a half-open interval [start, end).
func (a Appointment) Window() Window {
	return Window{Start: a.ScheduledStart, End: a.ScheduledEnd}
}

// Window is a half-open time interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two half-open windows intersect. Back-to-back
// windows (w.End == other.Start) do not overlap.
func (w Window) Overlaps(other Window) bool {
	return w.Start.Before(other.End) && other.Start.Before(w.End)
}

// MoveChanges describes the requested mutation for ApplyMove. Nil fields are
// left untouched; UnassignTechnician clears the technician and wins over
// TechnicianID when both are set.
type MoveChanges struct {
	Status             *Status
	Position           *int
	TechnicianID       *uuid.UUID
	UnassignTechnician bool
	ScheduledStart     *time.Time
	ScheduledEnd       *time.Time
}

// touchesSchedule reports whether the changes alter the time window or the
// assigned technician, i.e. whether conflict detection must run.
func (c MoveChanges) touchesSchedule() bool {
	return c.ScheduledStart != nil || c.ScheduledEnd != nil || c.TechnicianID != nil || c.UnassignTechnician
}

// ScheduleInput is what the booking collaborator supplies when creating an
// appointment. Customer and vehicle references are resolved externally.
type ScheduleInput struct {
	TenantID       uuid.UUID
	TechnicianID   *uuid.UUID
	ScheduledStart time.Time
	ScheduledEnd   time.Time
	Position       int
}
