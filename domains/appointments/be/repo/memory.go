package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/torqueware/shopboard/domains/appointments/be/service"
)

type memoryKey struct {
	tenantID uuid.UUID
	id       uuid.UUID
}

// MemoryStore is an in-memory service.Store with real compare-and-swap
// semantics, suitable for tests and STORE_BACKEND=memory development runs.
// The mutex makes each CompareAndSwap atomic, which is all the orchestrator
// requires of a store.
type MemoryStore struct {
	mu   sync.RWMutex
	byID map[memoryKey]service.Appointment
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[memoryKey]service.Appointment)}
}

func (s *MemoryStore) Get(ctx context.Context, tenantID, id uuid.UUID) (service.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	appt, ok := s.byID[memoryKey{tenantID: tenantID, id: id}]
	if !ok {
		return service.Appointment{}, service.ErrNotFound
	}
	return appt, nil
}

func (s *MemoryStore) ListRange(ctx context.Context, tenantID uuid.UUID, technicianID *uuid.UUID, from, to time.Time) ([]service.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var appts []service.Appointment
	for key, appt := range s.byID {
		if key.tenantID != tenantID {
			continue
		}
		if technicianID != nil && (appt.TechnicianID == nil || *appt.TechnicianID != *technicianID) {
			continue
		}
		if !appt.ScheduledStart.Before(to) || !from.Before(appt.ScheduledEnd) {
			continue
		}
		appts = append(appts, appt)
	}

	sort.Slice(appts, func(i, j int) bool {
		if !appts[i].ScheduledStart.Equal(appts[j].ScheduledStart) {
			return appts[i].ScheduledStart.Before(appts[j].ScheduledStart)
		}
		return appts[i].ID.String() < appts[j].ID.String()
	})
	return appts, nil
}

func (s *MemoryStore) CompareAndSwap(ctx context.Context, tenantID, id uuid.UUID, expectedVersion int64, next service.Appointment) (service.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memoryKey{tenantID: tenantID, id: id}
	current, ok := s.byID[key]
	if !ok {
		return service.Appointment{}, service.ErrNotFound
	}
	if current.Version != expectedVersion {
		return service.Appointment{}, service.ErrVersionConflict
	}

	s.byID[key] = next
	return next, nil
}

func (s *MemoryStore) Create(ctx context.Context, appt service.Appointment) (service.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byID[memoryKey{tenantID: appt.TenantID, id: appt.ID}] = appt
	return appt, nil
}
