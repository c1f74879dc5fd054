package session_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/aretw0/waypoint/pkg/ports"
	"github.com/aretw0/waypoint/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SlowStore simulates latency to provoke race conditions if locking is missing.
type SlowStore struct {
	data map[string]*domain.SessionContext
	mu   sync.Mutex
}

func (s *SlowStore) Save(ctx context.Context, sessionID string, sc *domain.SessionContext) error {
	time.Sleep(2 * time.Millisecond) // Simulate IO
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		s.data = make(map[string]*domain.SessionContext)
	}
	s.data[sessionID] = sc.Clone()
	return nil
}

func (s *SlowStore) Load(ctx context.Context, sessionID string) (*domain.SessionContext, error) {
	time.Sleep(2 * time.Millisecond) // Simulate IO
	s.mu.Lock()
	defer s.mu.Unlock()

	if sc, ok := s.data[sessionID]; ok {
		return sc.Clone(), nil
	}
	return nil, domain.ErrSessionNotFound
}

func (s *SlowStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

func (s *SlowStore) List(ctx context.Context) ([]string, error) {
	return nil, nil
}

var testFlow = &domain.Flow{
	ID:          "flow",
	StartNodeID: "start",
	Nodes:       map[string]*domain.Node{"start": {ID: "start", Kind: domain.NodeKindQuestion}},
}

func TestManager_UpdateIsSerialized(t *testing.T) {
	store := &SlowStore{}
	manager := session.NewManager(store)
	ctx := context.Background()
	id := "race-test"

	require.NoError(t, manager.Create(ctx, domain.NewSessionContext(id, testFlow)))

	var wg sync.WaitGroup
	concurrentWrites := 20

	// Read-Modify-Write without locking would lose increments.
	for i := 0; i < concurrentWrites; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := manager.Update(ctx, id, func(sc *domain.SessionContext) error {
				sc.Scores.Add("hits", 1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	sc, err := manager.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, float64(concurrentWrites), sc.Scores.Get("hits"))
}

func TestManager_UpdateFailureLeavesStoreUntouched(t *testing.T) {
	store := &SlowStore{}
	manager := session.NewManager(store)
	ctx := context.Background()
	id := "atomic"

	require.NoError(t, manager.Create(ctx, domain.NewSessionContext(id, testFlow)))

	boom := errors.New("boom")
	_, _, err := manager.Update(ctx, id, func(sc *domain.SessionContext) error {
		sc.Answers["start"] = domain.String("x")
		sc.CurrentNodeID = "elsewhere"
		return boom
	})
	assert.ErrorIs(t, err, boom)

	sc, err := manager.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "start", sc.CurrentNodeID)
	assert.Empty(t, sc.Answers)
}

func TestManager_UpdateReturnsBeforeAndAfter(t *testing.T) {
	manager := session.NewManager(&SlowStore{})
	ctx := context.Background()
	require.NoError(t, manager.Create(ctx, domain.NewSessionContext("s", testFlow)))

	before, after, err := manager.Update(ctx, "s", func(sc *domain.SessionContext) error {
		sc.Variables["goal"] = domain.String("study")
		return nil
	})
	require.NoError(t, err)
	assert.NotContains(t, before.Variables, "goal")
	assert.True(t, after.Variables["goal"].Equal(domain.String("study")))
}

func TestManager_UpdateUnknownSession(t *testing.T) {
	manager := session.NewManager(&SlowStore{})
	_, _, err := manager.Update(context.Background(), "missing", func(*domain.SessionContext) error {
		t.Fatal("fn must not run for a missing session")
		return nil
	})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestManager_CreateIsExclusive(t *testing.T) {
	manager := session.NewManager(&SlowStore{})
	ctx := context.Background()
	id := "atomic-init"

	var wg sync.WaitGroup
	var created atomic.Int32
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := manager.Create(ctx, domain.NewSessionContext(id, testFlow)); err == nil {
				created.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())
}

type recordingLocker struct {
	mu       sync.Mutex
	locked   []string
	unlocked int
	ttl      time.Duration
}

func (l *recordingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.locked = append(l.locked, key)
	l.ttl = ttl
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.unlocked++
		return nil
	}, nil
}

func TestManager_DistributedLocker(t *testing.T) {
	locker := &recordingLocker{}
	manager := session.NewManager(&SlowStore{}, session.WithLocker(locker), session.WithLockTTL(5*time.Second))
	ctx := context.Background()

	require.NoError(t, manager.Create(ctx, domain.NewSessionContext("s1", testFlow)))
	_, err := manager.Load(ctx, "s1")
	require.NoError(t, err)

	assert.Equal(t, []string{"s1", "s1"}, locker.locked)
	assert.Equal(t, 2, locker.unlocked)
	assert.Equal(t, 5*time.Second, locker.ttl)
}
