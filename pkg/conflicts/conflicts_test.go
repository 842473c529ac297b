package conflicts

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freightly/manifest/pkg/models"
)

var testLogger = ectologger.NewEctoLogger(func(msg ectologger.EctoLogMessage) {})

type fakeStore struct {
	mu    sync.Mutex
	loads map[string]*models.Load

	failWrites bool
}

func newFakeStore(loads ...*models.Load) *fakeStore {
	s := &fakeStore{loads: make(map[string]*models.Load)}
	for _, l := range loads {
		s.loads[l.ID] = l
	}
	return s
}

func (s *fakeStore) Get(ctx context.Context, tenantID string, id string) (*models.Load, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.loads[id]; ok && l.TenantID == tenantID {
		copied := *l
		return &copied, nil
	}
	return nil, errors.New("not found")
}

func (s *fakeStore) ListActiveByDriver(ctx context.Context, tenantID string, driverID string) ([]models.Load, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Load
	for _, l := range s.loads {
		if l.TenantID == tenantID && !l.Cancelled && l.DriverID != nil && *l.DriverID == driverID && l.HasDates() {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (s *fakeStore) ListActiveByCarrierAndLoadNumber(ctx context.Context, tenantID string, carrierID string, loadNumber string) ([]models.Load, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	normalized := NormalizeLoadNumber(&loadNumber)
	var out []models.Load
	for _, l := range s.loads {
		if l.TenantID == tenantID && !l.Cancelled && l.CarrierID != nil && *l.CarrierID == carrierID && NormalizeLoadNumber(l.LoadNumber) == normalized {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (s *fakeStore) ListActiveWithDates(ctx context.Context, tenantID string) ([]models.Load, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Load
	for _, l := range s.loads {
		if l.TenantID == tenantID && !l.Cancelled && l.HasDates() {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (s *fakeStore) UpdateDriverConflicts(ctx context.Context, tenantID string, id string, conflictIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites {
		return errors.New("write failed")
	}
	if l, ok := s.loads[id]; ok {
		l.DriverConflict = len(conflictIDs) > 0
		l.DriverConflictIDs = conflictIDs
	}
	return nil
}

func (s *fakeStore) UpdateDuplicateConflicts(ctx context.Context, tenantID string, id string, conflictIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites {
		return errors.New("write failed")
	}
	if l, ok := s.loads[id]; ok {
		l.DuplicateConflict = len(conflictIDs) > 0
		l.DuplicateConflictIDs = conflictIDs
	}
	return nil
}

func (s *fakeStore) UpdateDateConflicts(ctx context.Context, tenantID string, id string, conflictIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.loads[id]; ok {
		l.DateConflictIDs = conflictIDs
	}
	return nil
}

func (s *fakeStore) ClearConflicts(ctx context.Context, tenantID string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.loads[id]; ok {
		l.DriverConflict = false
		l.DriverConflictIDs = nil
		l.DuplicateConflict = false
		l.DuplicateConflictIDs = nil
		l.DateConflictIDs = nil
	}
	return nil
}

func (s *fakeStore) RemoveFromConflictLists(ctx context.Context, tenantID string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.loads {
		l.DriverConflictIDs = remove(l.DriverConflictIDs, id)
		l.DriverConflict = len(l.DriverConflictIDs) > 0
		l.DuplicateConflictIDs = remove(l.DuplicateConflictIDs, id)
		l.DuplicateConflict = len(l.DuplicateConflictIDs) > 0
		l.DateConflictIDs = remove(l.DateConflictIDs, id)
	}
	return nil
}

func remove(ids []string, id string) []string {
	var out []string
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func datePtr(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func strPtr(s string) *string { return &s }

func testLoad(id, driverID, pickup, delivery string) *models.Load {
	l := &models.Load{
		ID:           id,
		TenantID:     "t1",
		PickupDate:   datePtr(pickup),
		DeliveryDate: datePtr(delivery),
	}
	if driverID != "" {
		l.DriverID = strPtr(driverID)
	}
	return l
}

func TestDriverEngineRecalculateForDriver(t *testing.T) {
	ctx := context.Background()

	t.Run("overlapping loads flag each other", func(t *testing.T) {
		store := newFakeStore(
			testLoad("a", "d1", "2024-03-11", "2024-03-15"),
			testLoad("b", "d1", "2024-03-13", "2024-03-18"),
			testLoad("c", "d1", "2024-03-20", "2024-03-22"),
		)
		engine := NewDriverEngine(store, testLogger, 2)

		require.NoError(t, engine.RecalculateForDriver(ctx, "t1", "d1"))

		assert.Equal(t, []string{"b"}, []string(store.loads["a"].DriverConflictIDs))
		assert.Equal(t, []string{"a"}, []string(store.loads["b"].DriverConflictIDs))
		assert.True(t, store.loads["a"].DriverConflict)
		assert.True(t, store.loads["b"].DriverConflict)
		assert.False(t, store.loads["c"].DriverConflict)
		assert.Empty(t, store.loads["c"].DriverConflictIDs)
	})

	t.Run("delivery on pickup day is not a conflict", func(t *testing.T) {
		store := newFakeStore(
			testLoad("a", "d1", "2024-03-11", "2024-03-13"),
			testLoad("b", "d1", "2024-03-13", "2024-03-15"),
		)
		engine := NewDriverEngine(store, testLogger, 2)

		require.NoError(t, engine.RecalculateForDriver(ctx, "t1", "d1"))

		assert.False(t, store.loads["a"].DriverConflict)
		assert.False(t, store.loads["b"].DriverConflict)
	})

	t.Run("stale flags are replaced outright", func(t *testing.T) {
		a := testLoad("a", "d1", "2024-03-11", "2024-03-13")
		a.DriverConflict = true
		a.DriverConflictIDs = []string{"ghost"}
		store := newFakeStore(a)
		engine := NewDriverEngine(store, testLogger, 2)

		require.NoError(t, engine.RecalculateForDriver(ctx, "t1", "d1"))

		assert.False(t, store.loads["a"].DriverConflict)
		assert.Empty(t, store.loads["a"].DriverConflictIDs)
	})

	t.Run("cancelled loads do not participate", func(t *testing.T) {
		a := testLoad("a", "d1", "2024-03-11", "2024-03-15")
		b := testLoad("b", "d1", "2024-03-12", "2024-03-14")
		b.Cancelled = true
		store := newFakeStore(a, b)
		engine := NewDriverEngine(store, testLogger, 2)

		require.NoError(t, engine.RecalculateForDriver(ctx, "t1", "d1"))

		assert.False(t, store.loads["a"].DriverConflict)
	})

	t.Run("write failures do not abort the recompute", func(t *testing.T) {
		store := newFakeStore(
			testLoad("a", "d1", "2024-03-11", "2024-03-15"),
			testLoad("b", "d1", "2024-03-13", "2024-03-18"),
		)
		store.failWrites = true
		engine := NewDriverEngine(store, testLogger, 2)

		assert.NoError(t, engine.RecalculateForDriver(ctx, "t1", "d1"))
	})
}

func TestDriverEngineCheckAndUpdateForLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("unassigned load is cleared and removed from peers", func(t *testing.T) {
		a := testLoad("a", "", "2024-03-11", "2024-03-15")
		a.DriverConflict = true
		a.DriverConflictIDs = []string{"b"}
		b := testLoad("b", "d1", "2024-03-12", "2024-03-14")
		b.DriverConflict = true
		b.DriverConflictIDs = []string{"a"}
		store := newFakeStore(a, b)
		engine := NewDriverEngine(store, testLogger, 2)

		require.NoError(t, engine.CheckAndUpdateForLoad(ctx, "t1", a))

		assert.False(t, store.loads["a"].DriverConflict)
		assert.False(t, store.loads["b"].DriverConflict)
		assert.Empty(t, store.loads["b"].DriverConflictIDs)
	})

	t.Run("assigned load recomputes its driver group", func(t *testing.T) {
		a := testLoad("a", "d1", "2024-03-11", "2024-03-15")
		b := testLoad("b", "d1", "2024-03-13", "2024-03-18")
		store := newFakeStore(a, b)
		engine := NewDriverEngine(store, testLogger, 2)

		require.NoError(t, engine.CheckAndUpdateForLoad(ctx, "t1", a))

		assert.True(t, store.loads["a"].DriverConflict)
		assert.True(t, store.loads["b"].DriverConflict)
	})
}

func TestDuplicateEngine(t *testing.T) {
	ctx := context.Background()

	carrierLoad := func(id, loadNumber string) *models.Load {
		return &models.Load{
			ID:         id,
			TenantID:   "t1",
			CarrierID:  strPtr("c1"),
			LoadNumber: strPtr(loadNumber),
		}
	}

	t.Run("normalized duplicates flag each other", func(t *testing.T) {
		store := newFakeStore(
			carrierLoad("a", "A100"),
			carrierLoad("b", " a100 "),
			carrierLoad("c", "A100"),
		)
		engine := NewDuplicateEngine(store, testLogger, 2)

		require.NoError(t, engine.RecalculateForLoadNumber(ctx, "t1", "c1", "A100"))

		assert.Equal(t, []string{"b", "c"}, []string(store.loads["a"].DuplicateConflictIDs))
		assert.Equal(t, []string{"a", "c"}, []string(store.loads["b"].DuplicateConflictIDs))
		assert.Equal(t, []string{"a", "b"}, []string(store.loads["c"].DuplicateConflictIDs))
		assert.True(t, store.loads["a"].DuplicateConflict)
	})

	t.Run("single survivor is cleared", func(t *testing.T) {
		a := carrierLoad("a", "A100")
		a.DuplicateConflict = true
		a.DuplicateConflictIDs = []string{"b"}
		store := newFakeStore(a)
		engine := NewDuplicateEngine(store, testLogger, 2)

		require.NoError(t, engine.RecalculateForLoadNumber(ctx, "t1", "c1", "A100"))

		assert.False(t, store.loads["a"].DuplicateConflict)
		assert.Empty(t, store.loads["a"].DuplicateConflictIDs)
	})

	t.Run("blank load number is a no-op", func(t *testing.T) {
		store := newFakeStore()
		engine := NewDuplicateEngine(store, testLogger, 2)
		assert.NoError(t, engine.RecalculateForLoadNumber(ctx, "t1", "c1", "   "))
	})

	t.Run("load without a usable number is cleared", func(t *testing.T) {
		a := carrierLoad("a", "  ")
		a.DuplicateConflict = true
		a.DuplicateConflictIDs = []string{"b"}
		store := newFakeStore(a)
		engine := NewDuplicateEngine(store, testLogger, 2)

		require.NoError(t, engine.CheckAndUpdateForLoad(ctx, "t1", a))

		assert.False(t, store.loads["a"].DuplicateConflict)
	})
}

func TestDateConflictEngine(t *testing.T) {
	ctx := context.Background()

	t.Run("touching intervals conflict across drivers", func(t *testing.T) {
		a := testLoad("a", "d1", "2024-03-11", "2024-03-13")
		b := testLoad("b", "d2", "2024-03-13", "2024-03-15")
		store := newFakeStore(a, b)
		engine := NewDateConflictEngine(store, testLogger, 2)

		require.NoError(t, engine.RecalculateForTenant(ctx, "t1"))

		assert.Equal(t, []string{"b"}, []string(store.loads["a"].DateConflictIDs))
		assert.Equal(t, []string{"a"}, []string(store.loads["b"].DateConflictIDs))
	})

	t.Run("shared pickup date conflicts even when intervals are disjoint", func(t *testing.T) {
		// same pickup date is enough regardless of interval math
		a := testLoad("a", "d1", "2024-03-11", "2024-03-12")
		b := testLoad("b", "d2", "2024-03-11", "2024-03-20")
		store := newFakeStore(a, b)
		engine := NewDateConflictEngine(store, testLogger, 2)

		require.NoError(t, engine.RecalculateForTenant(ctx, "t1"))

		assert.Equal(t, []string{"b"}, []string(store.loads["a"].DateConflictIDs))
	})

	t.Run("disjoint loads carry no ids", func(t *testing.T) {
		a := testLoad("a", "d1", "2024-03-01", "2024-03-03")
		b := testLoad("b", "d2", "2024-03-10", "2024-03-12")
		store := newFakeStore(a, b)
		engine := NewDateConflictEngine(store, testLogger, 2)

		require.NoError(t, engine.RecalculateForTenant(ctx, "t1"))

		assert.Empty(t, store.loads["a"].DateConflictIDs)
		assert.Empty(t, store.loads["b"].DateConflictIDs)
	})
}

func TestRefresherRefreshBatch(t *testing.T) {
	ctx := context.Background()

	a := testLoad("a", "d1", "2024-03-11", "2024-03-15")
	a.CarrierID = strPtr("c1")
	a.LoadNumber = strPtr("A100")
	b := testLoad("b", "d1", "2024-03-13", "2024-03-18")
	b.CarrierID = strPtr("c1")
	b.LoadNumber = strPtr("a100")
	store := newFakeStore(a, b)

	driverEngine := NewDriverEngine(store, testLogger, 2)
	duplicateEngine := NewDuplicateEngine(store, testLogger, 2)
	refresher := NewRefresher(driverEngine, duplicateEngine, testLogger, 4)

	batch, err := store.ListActiveWithDates(ctx, "t1")
	require.NoError(t, err)

	refresher.RefreshBatch(ctx, "t1", batch)

	assert.True(t, store.loads["a"].DriverConflict)
	assert.True(t, store.loads["b"].DriverConflict)
	assert.True(t, store.loads["a"].DuplicateConflict)
	assert.True(t, store.loads["b"].DuplicateConflict)
}

func TestRefresherDeduplicatesTasks(t *testing.T) {
	loads := []models.Load{
		*testLoad("a", "d1", "2024-03-11", "2024-03-15"),
		*testLoad("b", "d1", "2024-03-13", "2024-03-18"),
	}
	loads[0].CarrierID = strPtr("c1")
	loads[0].LoadNumber = strPtr("A100")
	loads[1].CarrierID = strPtr("c1")
	loads[1].LoadNumber = strPtr(" a100 ")

	refresher := NewRefresher(nil, nil, testLogger, 4)
	tasks := refresher.collectTasks("t1", loads)

	// one driver task and one duplicate task despite two loads
	assert.Len(t, tasks, 2)
}

func TestRefresherSkipsCancelledLoads(t *testing.T) {
	load := testLoad("a", "d1", "2024-03-11", "2024-03-15")
	load.Cancelled = true

	refresher := NewRefresher(nil, nil, testLogger, 4)
	tasks := refresher.collectTasks("t1", []models.Load{*load})

	assert.Empty(t, tasks)
}

func TestRefresherClearsStaleFlagsOnIneligibleLoads(t *testing.T) {
	ctx := context.Background()

	newStack := func(store *fakeStore) *Refresher {
		return NewRefresher(NewDriverEngine(store, testLogger, 2), NewDuplicateEngine(store, testLogger, 2), testLogger, 4)
	}

	t.Run("driverless load with leftover flags is cleared", func(t *testing.T) {
		a := testLoad("a", "", "2024-03-11", "2024-03-15")
		a.DriverConflict = true
		a.DriverConflictIDs = []string{"ghost"}
		a.DuplicateConflict = true
		a.DuplicateConflictIDs = []string{"ghost"}
		store := newFakeStore(a)

		newStack(store).RefreshBatch(ctx, "t1", []models.Load{*a})

		assert.False(t, store.loads["a"].DriverConflict)
		assert.Empty(t, store.loads["a"].DriverConflictIDs)
		assert.False(t, store.loads["a"].DuplicateConflict)
		assert.Empty(t, store.loads["a"].DuplicateConflictIDs)
	})

	t.Run("cancelled load with leftover flags is cleared", func(t *testing.T) {
		a := testLoad("a", "d1", "2024-03-11", "2024-03-15")
		a.Cancelled = true
		a.DriverConflict = true
		a.DriverConflictIDs = []string{"ghost"}
		store := newFakeStore(a)

		newStack(store).RefreshBatch(ctx, "t1", []models.Load{*a})

		assert.False(t, store.loads["a"].DriverConflict)
		assert.Empty(t, store.loads["a"].DriverConflictIDs)
	})

	t.Run("clean ineligible load produces no tasks", func(t *testing.T) {
		a := testLoad("a", "", "2024-03-11", "2024-03-15")

		refresher := NewRefresher(nil, nil, testLogger, 4)
		assert.Empty(t, refresher.collectTasks("t1", []models.Load{*a}))
	})
}
