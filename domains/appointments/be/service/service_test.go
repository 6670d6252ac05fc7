package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/torqueware/shopboard/domains/appointments/be/repo"
	"github.com/torqueware/shopboard/domains/appointments/be/service"
	"github.com/torqueware/shopboard/platform/go/clock"
)

var day = time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)

type fixture struct {
	store *repo.MemoryStore
	clock *clock.Fake
	svc   *service.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repo.NewMemoryStore()
	clk := clock.NewFake(day.Add(9 * time.Hour))
	return &fixture{
		store: store,
		clock: clk,
		svc:   service.New(store, clk, zap.NewNop()),
	}
}

func (f *fixture) seed(t *testing.T, techID *uuid.UUID, startHour, endHour int, status service.Status) service.Appointment {
	t.Helper()
	appt := service.Appointment{
		ID:             uuid.New(),
		TenantID:       tenantID,
		TechnicianID:   techID,
		ScheduledStart: day.Add(time.Duration(startHour) * time.Hour),
		ScheduledEnd:   day.Add(time.Duration(endHour) * time.Hour),
		Status:         status,
		Version:        1,
		CreatedAt:      day,
	}
	created, err := f.store.Create(context.Background(), appt)
	require.NoError(t, err)
	return created
}

var tenantID = uuid.New()

func statusPtr(s service.Status) *service.Status { return &s }

func intPtr(i int) *int { return &i }

func TestApplyMoveCheckInScenario(t *testing.T) {
	f := newFixture(t)
	tech := uuid.New()
	appt := f.seed(t, &tech, 9, 10, service.StatusScheduled)

	updated, err := f.svc.ApplyMove(context.Background(), tenantID, appt.ID, 1,
		service.MoveChanges{Status: statusPtr(service.StatusInProgress)})
	require.NoError(t, err)
	require.Equal(t, service.StatusInProgress, updated.Status)
	require.Equal(t, int64(2), updated.Version)
	require.NotNil(t, updated.CheckInAt)
	require.Equal(t, f.clock.Now().UTC(), *updated.CheckInAt)

	// A second caller still holding version 1 must be told to re-fetch.
	_, err = f.svc.ApplyMove(context.Background(), tenantID, appt.ID, 1,
		service.MoveChanges{Position: intPtr(3)})
	require.ErrorIs(t, err, service.ErrVersionConflict)
}

func TestApplyMoveSchedulingConflictScenario(t *testing.T) {
	f := newFixture(t)
	tech := uuid.New()
	b := f.seed(t, &tech, 10, 11, service.StatusScheduled)
	c := f.seed(t, nil, 14, 15, service.StatusScheduled)

	start := day.Add(10*time.Hour + 30*time.Minute)
	end := day.Add(11*time.Hour + 30*time.Minute)
	_, err := f.svc.ApplyMove(context.Background(), tenantID, c.ID, 1, service.MoveChanges{
		TechnicianID:   &tech,
		ScheduledStart: &start,
		ScheduledEnd:   &end,
	})

	var conflict *service.SchedulingConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, []uuid.UUID{b.ID}, conflict.ConflictingIDs)

	// Nothing was mutated.
	current, getErr := f.store.Get(context.Background(), tenantID, c.ID)
	require.NoError(t, getErr)
	require.Equal(t, int64(1), current.Version)
	require.Nil(t, current.TechnicianID)
}

func TestApplyMoveNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ApplyMove(context.Background(), tenantID, uuid.New(), 1,
		service.MoveChanges{Position: intPtr(1)})
	require.ErrorIs(t, err, service.ErrNotFound)
}

func TestApplyMoveInvalidTransition(t *testing.T) {
	f := newFixture(t)
	appt := f.seed(t, nil, 9, 10, service.StatusScheduled)

	_, err := f.svc.ApplyMove(context.Background(), tenantID, appt.ID, 1,
		service.MoveChanges{Status: statusPtr(service.StatusCompleted)})

	var invalid *service.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	require.Equal(t, service.StatusScheduled, invalid.From)
	require.Equal(t, service.StatusCompleted, invalid.To)

	current, getErr := f.store.Get(context.Background(), tenantID, appt.ID)
	require.NoError(t, getErr)
	require.Equal(t, int64(1), current.Version, "failed attempts never bump the version")
}

func TestApplyMoveRevertKeepsStamps(t *testing.T) {
	f := newFixture(t)
	tech := uuid.New()
	appt := f.seed(t, &tech, 9, 10, service.StatusScheduled)

	checkedIn, err := f.svc.ApplyMove(context.Background(), tenantID, appt.ID, 1,
		service.MoveChanges{Status: statusPtr(service.StatusInProgress)})
	require.NoError(t, err)
	firstCheckIn := *checkedIn.CheckInAt

	f.clock.Advance(30 * time.Minute)
	reverted, err := f.svc.ApplyMove(context.Background(), tenantID, appt.ID, 2,
		service.MoveChanges{Status: statusPtr(service.StatusScheduled)})
	require.NoError(t, err)
	require.NotNil(t, reverted.CheckInAt, "reverting never clears historical stamps")
	require.Equal(t, firstCheckIn, *reverted.CheckInAt)

	// Re-entering IN_PROGRESS keeps the first recorded check-in.
	again, err := f.svc.ApplyMove(context.Background(), tenantID, appt.ID, 3,
		service.MoveChanges{Status: statusPtr(service.StatusInProgress)})
	require.NoError(t, err)
	require.Equal(t, firstCheckIn, *again.CheckInAt)
}

func TestApplyMoveCompletionStampsCheckOut(t *testing.T) {
	f := newFixture(t)
	appt := f.seed(t, nil, 9, 10, service.StatusReady)

	f.clock.Set(day.Add(11 * time.Hour))
	updated, err := f.svc.ApplyMove(context.Background(), tenantID, appt.ID, 1,
		service.MoveChanges{Status: statusPtr(service.StatusCompleted)})
	require.NoError(t, err)
	require.NotNil(t, updated.CheckOutAt)
	require.Equal(t, day.Add(11*time.Hour), *updated.CheckOutAt)
}

func TestApplyMovePositionOnlyBypassesTransitionsAndConflicts(t *testing.T) {
	f := newFixture(t)
	tech := uuid.New()
	// Two overlapping bookings already exist; position moves must not trip the
	// conflict check because they change neither window nor technician.
	appt := f.seed(t, &tech, 9, 10, service.StatusScheduled)
	f.seed(t, &tech, 9, 10, service.StatusScheduled)

	updated, err := f.svc.ApplyMove(context.Background(), tenantID, appt.ID, 1,
		service.MoveChanges{Position: intPtr(4)})
	require.NoError(t, err)
	require.Equal(t, 4, updated.Position)
	require.Equal(t, int64(2), updated.Version)
	require.Equal(t, service.StatusScheduled, updated.Status)
}

func TestApplyMoveSelfExclusionOnReschedule(t *testing.T) {
	f := newFixture(t)
	tech := uuid.New()
	appt := f.seed(t, &tech, 9, 10, service.StatusScheduled)

	// Shrinking the window within itself must not conflict with the old slot.
	start := day.Add(9*time.Hour + 15*time.Minute)
	end := day.Add(9*time.Hour + 45*time.Minute)
	updated, err := f.svc.ApplyMove(context.Background(), tenantID, appt.ID, 1,
		service.MoveChanges{ScheduledStart: &start, ScheduledEnd: &end})
	require.NoError(t, err)
	require.Equal(t, start, updated.ScheduledStart)
}

func TestApplyMoveRejectsInvalidWindow(t *testing.T) {
	f := newFixture(t)
	tech := uuid.New()
	appt := f.seed(t, &tech, 9, 10, service.StatusScheduled)

	start := day.Add(12 * time.Hour)
	end := day.Add(12 * time.Hour)
	_, err := f.svc.ApplyMove(context.Background(), tenantID, appt.ID, 1,
		service.MoveChanges{ScheduledStart: &start, ScheduledEnd: &end})
	require.ErrorIs(t, err, service.ErrInvalidWindow)
}

func TestApplyMoveNoShowReopen(t *testing.T) {
	f := newFixture(t)
	appt := f.seed(t, nil, 9, 10, service.StatusNoShow)

	updated, err := f.svc.ApplyMove(context.Background(), tenantID, appt.ID, 1,
		service.MoveChanges{Status: statusPtr(service.StatusScheduled)})
	require.NoError(t, err)
	require.Equal(t, service.StatusScheduled, updated.Status)
}

func TestApplyMoveVersionMonotonicity(t *testing.T) {
	f := newFixture(t)
	appt := f.seed(t, nil, 9, 10, service.StatusScheduled)

	version := int64(1)
	for i := 0; i < 5; i++ {
		// Interleave a failed attempt with a stale token before each success.
		_, err := f.svc.ApplyMove(context.Background(), tenantID, appt.ID, version+100,
			service.MoveChanges{Position: intPtr(i)})
		require.ErrorIs(t, err, service.ErrVersionConflict)

		updated, err := f.svc.ApplyMove(context.Background(), tenantID, appt.ID, version,
			service.MoveChanges{Position: intPtr(i)})
		require.NoError(t, err)
		version = updated.Version
	}
	require.Equal(t, int64(6), version, "5 successes on version 1 must land on version 6")
}

func TestApplyMoveConcurrentRaceHasExactlyOneWinner(t *testing.T) {
	f := newFixture(t)
	appt := f.seed(t, nil, 9, 10, service.StatusScheduled)

	const movers = 8
	var wg sync.WaitGroup
	errs := make([]error, movers)

	for i := 0; i < movers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.ApplyMove(context.Background(), tenantID, appt.ID, 1,
				service.MoveChanges{Position: intPtr(i)})
		}(i)
	}
	wg.Wait()

	var successes, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		default:
			require.ErrorIs(t, err, service.ErrVersionConflict)
			conflicts++
		}
	}
	require.Equal(t, 1, successes, "exactly one concurrent mover wins")
	require.Equal(t, movers-1, conflicts)

	current, err := f.store.Get(context.Background(), tenantID, appt.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), current.Version)
}

func TestScheduleCreatesWithVersionOne(t *testing.T) {
	f := newFixture(t)
	tech := uuid.New()

	created, err := f.svc.Schedule(context.Background(), service.ScheduleInput{
		TenantID:       tenantID,
		TechnicianID:   &tech,
		ScheduledStart: day.Add(9 * time.Hour),
		ScheduledEnd:   day.Add(10 * time.Hour),
	})
	require.NoError(t, err)
	require.Equal(t, service.StatusScheduled, created.Status)
	require.Equal(t, int64(1), created.Version)

	// A second booking on the same technician and slot is rejected.
	_, err = f.svc.Schedule(context.Background(), service.ScheduleInput{
		TenantID:       tenantID,
		TechnicianID:   &tech,
		ScheduledStart: day.Add(9*time.Hour + 30*time.Minute),
		ScheduledEnd:   day.Add(10*time.Hour + 30*time.Minute),
	})
	var conflict *service.SchedulingConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, []uuid.UUID{created.ID}, conflict.ConflictingIDs)
}

func TestBoardReadPath(t *testing.T) {
	f := newFixture(t)
	tech := uuid.New()
	f.seed(t, &tech, 9, 10, service.StatusScheduled)
	f.seed(t, &tech, 10, 11, service.StatusInProgress)
	f.seed(t, nil, 11, 12, service.StatusScheduled)

	board, err := f.svc.Board(context.Background(), tenantID, nil, day, day.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, board.Columns, 5)
	require.Len(t, board.Columns[0].Appointments, 2)
	require.Len(t, board.Columns[1].Appointments, 1)

	filtered, err := f.svc.Board(context.Background(), tenantID, &tech, day, day.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, filtered.Columns[0].Appointments, 1)
}
