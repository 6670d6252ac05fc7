// Package events publishes board change notifications for downstream read
// paths (dashboards, reminder pipelines). Publishing is strictly best-effort:
// a move that landed in the store is done, whatever the broker thinks.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventTypeAppointmentMoved is emitted after every successful ApplyMove.
const EventTypeAppointmentMoved = "appointment.moved"

// AppointmentMoved carries the authoritative post-move record fields that
// read-side consumers care about.
type AppointmentMoved struct {
	EventID        uuid.UUID  `json:"event_id"`
	TenantID       uuid.UUID  `json:"tenant_id"`
	AppointmentID  uuid.UUID  `json:"appointment_id"`
	Status         string     `json:"status"`
	Position       int        `json:"position"`
	TechnicianID   *uuid.UUID `json:"technician_id,omitempty"`
	ScheduledStart time.Time  `json:"scheduled_start"`
	ScheduledEnd   time.Time  `json:"scheduled_end"`
	Version        int64      `json:"version"`
	OccurredAt     time.Time  `json:"occurred_at"`
}

// Publisher abstracts the broker behind the board.
type Publisher interface {
	PublishAppointmentMoved(ctx context.Context, event AppointmentMoved) error
	Close() error
}

// Nop discards events; used when no broker is configured.
type Nop struct{}

func (Nop) PublishAppointmentMoved(ctx context.Context, event AppointmentMoved) error { return nil }

func (Nop) Close() error { return nil }
