package repo

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	sqlassets "github.com/torqueware/shopboard/database"
	"github.com/torqueware/shopboard/domains/appointments/be/service"
	"github.com/torqueware/shopboard/platform/go/persistence"
)

func TestPostgresStoreIntegration(t *testing.T) {
	t.Parallel()

	if testing.Short() {
		t.Skip("skipping postgres store integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("shopboard"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(wait.ForListeningPort("5432/tcp").WithStartupTimeout(2*time.Minute)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = pgContainer.Terminate(context.Background())
	})

	connString, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: connString})
	require.NoError(t, err)
	t.Cleanup(func() {
		persistence.ClosePool(pool)
	})

	for _, stmt := range strings.Split(sqlassets.AppointmentsSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		_, err = pool.Exec(ctx, stmt)
		require.NoError(t, err)
	}

	store := NewPostgresStore(pool)
	tenantID := uuid.New()
	tech := uuid.New()
	day := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)

	created, err := store.Create(ctx, service.Appointment{
		ID:             uuid.New(),
		TenantID:       tenantID,
		TechnicianID:   &tech,
		ScheduledStart: day.Add(9 * time.Hour),
		ScheduledEnd:   day.Add(10 * time.Hour),
		Status:         service.StatusScheduled,
		Position:       0,
		Version:        1,
		CreatedAt:      day,
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), created.Version)

	t.Run("get", func(t *testing.T) {
		got, err := store.Get(ctx, tenantID, created.ID)
		require.NoError(t, err)
		require.Equal(t, created.ID, got.ID)
		require.Equal(t, service.StatusScheduled, got.Status)
		require.NotNil(t, got.TechnicianID)
		require.Equal(t, tech, *got.TechnicianID)

		_, err = store.Get(ctx, tenantID, uuid.New())
		require.ErrorIs(t, err, service.ErrNotFound)

		_, err = store.Get(ctx, uuid.New(), created.ID)
		require.ErrorIs(t, err, service.ErrNotFound)
	})

	t.Run("compare_and_swap", func(t *testing.T) {
		next := created
		next.Status = service.StatusInProgress
		checkIn := day.Add(9 * time.Hour)
		next.CheckInAt = &checkIn
		next.Version = 2

		updated, err := store.CompareAndSwap(ctx, tenantID, created.ID, 1, next)
		require.NoError(t, err)
		require.Equal(t, int64(2), updated.Version)
		require.Equal(t, service.StatusInProgress, updated.Status)
		require.NotNil(t, updated.CheckInAt)

		_, err = store.CompareAndSwap(ctx, tenantID, created.ID, 1, next)
		require.ErrorIs(t, err, service.ErrVersionConflict)

		_, err = store.CompareAndSwap(ctx, tenantID, uuid.New(), 1, next)
		require.ErrorIs(t, err, service.ErrNotFound)
	})

	t.Run("list_range", func(t *testing.T) {
		other, err := store.Create(ctx, service.Appointment{
			ID:             uuid.New(),
			TenantID:       tenantID,
			ScheduledStart: day.Add(13 * time.Hour),
			ScheduledEnd:   day.Add(14 * time.Hour),
			Status:         service.StatusScheduled,
			Version:        1,
			CreatedAt:      day,
		})
		require.NoError(t, err)

		appts, err := store.ListRange(ctx, tenantID, nil, day, day.Add(24*time.Hour))
		require.NoError(t, err)
		require.Len(t, appts, 2)
		require.Equal(t, created.ID, appts[0].ID, "ordered by scheduled start")
		require.Equal(t, other.ID, appts[1].ID)

		filtered, err := store.ListRange(ctx, tenantID, &tech, day, day.Add(24*time.Hour))
		require.NoError(t, err)
		require.Len(t, filtered, 1)
		require.Equal(t, created.ID, filtered[0].ID)

		none, err := store.ListRange(ctx, tenantID, nil, day.Add(48*time.Hour), day.Add(72*time.Hour))
		require.NoError(t, err)
		require.Empty(t, none)
	})
}
