package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/torqueware/shopboard/platform/go/clock"
)

// Store abstracts durable appointment persistence. The compare-and-swap on
// (id, expected version) is the single mutual-exclusion point of the whole
// core; implementations must make it atomic.
type Store interface {
	// Get returns the appointment by id within the tenant, or ErrNotFound.
	Get(ctx context.Context, tenantID, id uuid.UUID) (Appointment, error)
	// ListRange returns appointments whose windows intersect [from, to),
	// optionally narrowed to one technician.
	ListRange(ctx context.Context, tenantID uuid.UUID, technicianID *uuid.UUID, from, to time.Time) ([]Appointment, error)
	// CompareAndSwap writes next only if the stored version still equals
	// expectedVersion, returning the stored result. A lost race yields
	// ErrVersionConflict, a vanished row ErrNotFound.
	CompareAndSwap(ctx context.Context, tenantID, id uuid.UUID, expectedVersion int64, next Appointment) (Appointment, error)
	// Create inserts a fresh appointment (version 1).
	Create(ctx context.Context, appt Appointment) (Appointment, error)
}

// Service orchestrates status and position changes on the board. It keeps no
// mutable state of its own, so a single instance is safe to share across
// concurrent request handlers; races on the same appointment resolve through
// the store's compare-and-swap, never through waiting.
type Service struct {
	store  Store
	clock  clock.Clock
	logger *zap.Logger
}

// New constructs a Service with required dependencies.
func New(store Store, clk clock.Clock, logger *zap.Logger) *Service {
	if store == nil {
		panic("appointments store is required")
	}
	if clk == nil {
		panic("clock is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Service{store: store, clock: clk, logger: logger}
}

// ApplyMove validates and applies a status/position/schedule change against
// the expected version. It returns the new authoritative record on success and
// exactly one of ErrNotFound, ErrVersionConflict, ErrInvalidWindow,
// *InvalidTransitionError or *SchedulingConflictError otherwise. No mutation
// is attempted on any failure path, and failed attempts never bump the
// version. Only ErrVersionConflict is worth retrying, and retrying is the
// caller's job.
func (s *Service) ApplyMove(ctx context.Context, tenantID, id uuid.UUID, expectedVersion int64, changes MoveChanges) (Appointment, error) {
	current, err := s.store.Get(ctx, tenantID, id)
	if err != nil {
		return Appointment{}, err
	}

	if expectedVersion != current.Version {
		return Appointment{}, ErrVersionConflict
	}

	next := current
	if changes.Status != nil && *changes.Status != current.Status {
		if !CanTransition(current.Status, *changes.Status) {
			return Appointment{}, &InvalidTransitionError{From: current.Status, To: *changes.Status}
		}
		next.Status = *changes.Status
		s.applyTransitionStamps(&next)
	}
	if changes.Position != nil {
		next.Position = *changes.Position
	}
	if changes.ScheduledStart != nil {
		next.ScheduledStart = *changes.ScheduledStart
	}
	if changes.ScheduledEnd != nil {
		next.ScheduledEnd = *changes.ScheduledEnd
	}
	switch {
	case changes.UnassignTechnician:
		next.TechnicianID = nil
	case changes.TechnicianID != nil:
		techID := *changes.TechnicianID
		next.TechnicianID = &techID
	}

	if changes.touchesSchedule() {
		if !next.ScheduledEnd.After(next.ScheduledStart) {
			return Appointment{}, ErrInvalidWindow
		}
		if err := s.checkConflicts(ctx, next); err != nil {
			return Appointment{}, err
		}
	}

	next.Version = current.Version + 1

	updated, err := s.store.CompareAndSwap(ctx, tenantID, id, expectedVersion, next)
	if err != nil {
		if errors.Is(err, ErrVersionConflict) {
			s.logger.Debug("move lost compare-and-swap race",
				zap.String("appointment_id", id.String()),
				zap.Int64("expected_version", expectedVersion),
			)
		}
		return Appointment{}, err
	}

	return updated, nil
}

// Board loads the appointments intersecting [from, to) and projects them into
// column-grouped board data. The read is not transactionally consistent with
// in-flight moves; the board self-corrects on the next refresh.
func (s *Service) Board(ctx context.Context, tenantID uuid.UUID, technicianID *uuid.UUID, from, to time.Time) (Board, error) {
	appts, err := s.store.ListRange(ctx, tenantID, technicianID, from, to)
	if err != nil {
		return Board{}, err
	}
	return BuildBoard(appts), nil
}

// Schedule creates a new appointment on behalf of the booking collaborator.
// The record starts life as SCHEDULED with version 1 and is conflict-checked
// against the technician's existing bookings.
func (s *Service) Schedule(ctx context.Context, input ScheduleInput) (Appointment, error) {
	if !input.ScheduledEnd.After(input.ScheduledStart) {
		return Appointment{}, ErrInvalidWindow
	}

	appt := Appointment{
		ID:             uuid.New(),
		TenantID:       input.TenantID,
		TechnicianID:   input.TechnicianID,
		ScheduledStart: input.ScheduledStart,
		ScheduledEnd:   input.ScheduledEnd,
		Status:         StatusScheduled,
		Position:       input.Position,
		Version:        1,
		CreatedAt:      s.clock.Now().UTC(),
	}

	if err := s.checkConflicts(ctx, appt); err != nil {
		return Appointment{}, err
	}

	return s.store.Create(ctx, appt)
}

func (s *Service) checkConflicts(ctx context.Context, candidate Appointment) error {
	if candidate.TechnicianID == nil {
		return nil
	}

	dayFrom, dayTo := dayBounds(candidate.ScheduledStart, candidate.ScheduledEnd)
	existing, err := s.store.ListRange(ctx, candidate.TenantID, candidate.TechnicianID, dayFrom, dayTo)
	if err != nil {
		return err
	}

	conflicts := DetectConflicts(candidate.Window(), candidate.TechnicianID, candidate.ID, existing)
	if len(conflicts) > 0 {
		return &SchedulingConflictError{ConflictingIDs: conflicts}
	}
	return nil
}

// applyTransitionStamps records check-in/check-out side effects. Stamps are
// historical markers: reverts never clear them, and repeat visits to a state
// keep the first recorded time.
func (s *Service) applyTransitionStamps(next *Appointment) {
	switch next.Status {
	case StatusInProgress:
		if next.CheckInAt == nil {
			now := s.clock.Now().UTC()
			next.CheckInAt = &now
		}
	case StatusCompleted:
		if next.CheckOutAt == nil {
			now := s.clock.Now().UTC()
			next.CheckOutAt = &now
		}
	}
}

// dayBounds widens a window to whole UTC days so conflict detection sees every
// appointment sharing a day with the candidate.
func dayBounds(start, end time.Time) (time.Time, time.Time) {
	from := start.UTC().Truncate(24 * time.Hour)
	to := end.UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
	return from, to
}
