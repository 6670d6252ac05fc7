// Package client implements the consumer side of the board protocol: apply a
// move locally right away, reconcile with the server's answer, and roll back
// to the captured snapshot when the server says no. UIs embedding this model
// never patch state ad hoc; optimistic local state and confirmed server state
// are two distinct values reconciled only on response.
package client

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/torqueware/shopboard/domains/appointments/be/service"
)

// Mover is the server entry point the consumer drives, satisfied by
// *service.Service and by HTTP client shims alike.
type Mover interface {
	ApplyMove(ctx context.Context, tenantID, id uuid.UUID, expectedVersion int64, changes service.MoveChanges) (service.Appointment, error)
}

// ErrMoveInFlight means a mutation for the same appointment has not come back
// yet. The protocol allows at most one in-flight move per appointment id to
// avoid version-conflict storms; moves on different ids are independent.
var ErrMoveInFlight = errors.New("a move for this appointment is already in flight")

// Board is a thread-safe local board model. confirmed holds the last
// authoritative records seen from the server; local holds the optimistic
// overlay the UI renders from.
type Board struct {
	mover    Mover
	tenantID uuid.UUID

	mu        sync.Mutex
	confirmed map[uuid.UUID]service.Appointment
	local     map[uuid.UUID]service.Appointment
	inflight  map[uuid.UUID]struct{}
}

// NewBoard constructs a Board for one tenant.
func NewBoard(mover Mover, tenantID uuid.UUID) *Board {
	if mover == nil {
		panic("mover is required")
	}
	return &Board{
		mover:     mover,
		tenantID:  tenantID,
		confirmed: make(map[uuid.UUID]service.Appointment),
		local:     make(map[uuid.UUID]service.Appointment),
		inflight:  make(map[uuid.UUID]struct{}),
	}
}

// Load replaces both confirmed and local state with a fresh server snapshot,
// e.g. after the initial fetch or a full refresh.
func (b *Board) Load(appointments []service.Appointment) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.confirmed = make(map[uuid.UUID]service.Appointment, len(appointments))
	b.local = make(map[uuid.UUID]service.Appointment, len(appointments))
	for _, appt := range appointments {
		b.confirmed[appt.ID] = appt
		b.local[appt.ID] = appt
	}
}

// View projects the current optimistic state into board columns for rendering.
func (b *Board) View() service.Board {
	b.mu.Lock()
	appts := make([]service.Appointment, 0, len(b.local))
	for _, appt := range b.local {
		appts = append(appts, appt)
	}
	b.mu.Unlock()

	return service.BuildBoard(appts)
}

// Move applies the change optimistically, submits it with the last confirmed
// version, and reconciles. On success the returned record (and its new
// version) becomes both confirmed and local truth. On any failure the local
// state reverts to the pre-move snapshot and the server's error comes back to
// the caller; the board is never left in the optimistically-applied state.
func (b *Board) Move(ctx context.Context, id uuid.UUID, changes service.MoveChanges) (service.Appointment, error) {
	b.mu.Lock()
	if _, busy := b.inflight[id]; busy {
		b.mu.Unlock()
		return service.Appointment{}, ErrMoveInFlight
	}
	snapshot, ok := b.local[id]
	if !ok {
		b.mu.Unlock()
		return service.Appointment{}, service.ErrNotFound
	}
	expectedVersion := b.confirmed[id].Version

	b.inflight[id] = struct{}{}
	b.local[id] = applyLocally(snapshot, changes)
	b.mu.Unlock()

	updated, err := b.mover.ApplyMove(ctx, b.tenantID, id, expectedVersion, changes)

	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.inflight, id)

	if err != nil {
		b.local[id] = snapshot
		return service.Appointment{}, err
	}

	b.confirmed[id] = updated
	b.local[id] = updated
	return updated, nil
}

// applyLocally is the optimistic guess at what the server will do. It mirrors
// the merge the orchestrator performs minus side-effect stamps, which only the
// server can author; reconciliation overwrites the guess with server truth.
func applyLocally(appt service.Appointment, changes service.MoveChanges) service.Appointment {
	if changes.Status != nil {
		appt.Status = *changes.Status
	}
	if changes.Position != nil {
		appt.Position = *changes.Position
	}
	if changes.ScheduledStart != nil {
		appt.ScheduledStart = *changes.ScheduledStart
	}
	if changes.ScheduledEnd != nil {
		appt.ScheduledEnd = *changes.ScheduledEnd
	}
	switch {
	case changes.UnassignTechnician:
		appt.TechnicianID = nil
	case changes.TechnicianID != nil:
		techID := *changes.TechnicianID
		appt.TechnicianID = &techID
	}
	appt.Version++
	return appt
}

// FailureMessage maps a Move failure to the operator-facing explanation shown
// next to the rolled-back board.
func FailureMessage(err error) string {
	var invalid *service.InvalidTransitionError
	var conflict *service.SchedulingConflictError
	switch {
	case errors.Is(err, service.ErrVersionConflict):
		return "This card changed while you were editing it. The board has been refreshed; please try again."
	case errors.As(err, &conflict):
		return "This slot was just booked by someone else. Please choose another time or technician."
	case errors.As(err, &invalid):
		return "That status change is not allowed from the card's current state."
	case errors.Is(err, service.ErrNotFound):
		return "This appointment no longer exists on the board."
	case errors.Is(err, ErrMoveInFlight):
		return "Hold on, the previous change to this card is still saving."
	default:
		return "The change could not be saved."
	}
}
