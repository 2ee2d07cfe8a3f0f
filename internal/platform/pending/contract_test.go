package pending

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

const contractTTL = 30 * time.Minute

type storeUnderTest interface {
	Store
	Purger
}

// runStoreContract checks the behaviour every Store implementation shares.
// newStore must return a store with contractTTL whose clock reads clock.Now.
func runStoreContract(t *testing.T, newStore func(t *testing.T, clock *fakeClock) storeUnderTest) {
	ctx := context.Background()

	hospital := func(name string, capital int64) *Change {
		return &Change{
			Mode:   ModeCreate,
			Token:  "tok-" + name,
			Fields: map[string]any{"hospital_id": "H001", "hospital_name": name, "capital": capital},
		}
	}

	t.Run("put then get", func(t *testing.T) {
		s := newStore(t, newFakeClock())
		require.NoError(t, s.Put(ctx, "sid-a", KindHospital, hospital("Central", 1000)))

		got, err := s.Get(ctx, "sid-a", KindHospital)
		require.NoError(t, err)
		assert.Equal(t, KindHospital, got.Kind)
		assert.Equal(t, ModeCreate, got.Mode)
		assert.Equal(t, "tok-Central", got.Token)
		assert.Equal(t, int64(1000), got.Fields["capital"])
		assert.Equal(t, "Central", got.Fields["hospital_name"])
	})

	t.Run("get missing", func(t *testing.T) {
		s := newStore(t, newFakeClock())
		_, err := s.Get(ctx, "sid-a", KindHospital)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("sessions are isolated", func(t *testing.T) {
		s := newStore(t, newFakeClock())
		require.NoError(t, s.Put(ctx, "sid-a", KindHospital, hospital("A", 1)))
		require.NoError(t, s.Put(ctx, "sid-b", KindHospital, hospital("B", 2)))

		a, err := s.Get(ctx, "sid-a", KindHospital)
		require.NoError(t, err)
		b, err := s.Get(ctx, "sid-b", KindHospital)
		require.NoError(t, err)
		assert.Equal(t, "A", a.Fields["hospital_name"])
		assert.Equal(t, "B", b.Fields["hospital_name"])

		require.NoError(t, s.Clear(ctx, "sid-a", KindHospital))
		_, err = s.Get(ctx, "sid-b", KindHospital)
		assert.NoError(t, err, "clearing one session must not touch another")
	})

	t.Run("kinds are isolated", func(t *testing.T) {
		s := newStore(t, newFakeClock())
		require.NoError(t, s.Put(ctx, "sid-a", KindHospital, hospital("A", 1)))

		_, err := s.Get(ctx, "sid-a", KindSupplier)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("last write wins", func(t *testing.T) {
		s := newStore(t, newFakeClock())
		require.NoError(t, s.Put(ctx, "sid-a", KindHospital, hospital("First", 1)))
		require.NoError(t, s.Put(ctx, "sid-a", KindHospital, hospital("Second", 2)))

		got, err := s.Get(ctx, "sid-a", KindHospital)
		require.NoError(t, err)
		assert.Equal(t, "Second", got.Fields["hospital_name"])
		assert.Equal(t, "tok-Second", got.Token)
	})

	t.Run("clear is idempotent", func(t *testing.T) {
		s := newStore(t, newFakeClock())
		require.NoError(t, s.Put(ctx, "sid-a", KindHospital, hospital("A", 1)))
		require.NoError(t, s.Clear(ctx, "sid-a", KindHospital))
		require.NoError(t, s.Clear(ctx, "sid-a", KindHospital))

		_, err := s.Get(ctx, "sid-a", KindHospital)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("clear session", func(t *testing.T) {
		s := newStore(t, newFakeClock())
		require.NoError(t, s.Put(ctx, "sid-a", KindHospital, hospital("A", 1)))
		require.NoError(t, s.Put(ctx, "sid-a", KindPatient, &Change{Mode: ModeCreate, Fields: map[string]any{"patient_id": "P001"}}))
		require.NoError(t, s.Put(ctx, "sid-b", KindHospital, hospital("B", 2)))

		require.NoError(t, s.ClearSession(ctx, "sid-a"))

		_, err := s.Get(ctx, "sid-a", KindHospital)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.Get(ctx, "sid-a", KindPatient)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.Get(ctx, "sid-b", KindHospital)
		assert.NoError(t, err)
	})

	t.Run("expired change is absent", func(t *testing.T) {
		clock := newFakeClock()
		s := newStore(t, clock)
		require.NoError(t, s.Put(ctx, "sid-a", KindHospital, hospital("A", 1)))

		clock.Advance(contractTTL - time.Second)
		_, err := s.Get(ctx, "sid-a", KindHospital)
		require.NoError(t, err)

		clock.Advance(2 * time.Second)
		_, err = s.Get(ctx, "sid-a", KindHospital)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("purge expired", func(t *testing.T) {
		clock := newFakeClock()
		s := newStore(t, clock)
		require.NoError(t, s.Put(ctx, "sid-old", KindHospital, hospital("Old", 1)))
		clock.Advance(contractTTL)
		require.NoError(t, s.Put(ctx, "sid-new", KindHospital, hospital("New", 2)))

		n, err := s.PurgeExpired(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		_, err = s.Get(ctx, "sid-new", KindHospital)
		assert.NoError(t, err)
	})

	t.Run("empty session rejected", func(t *testing.T) {
		s := newStore(t, newFakeClock())
		assert.ErrorIs(t, s.Put(ctx, "", KindHospital, hospital("A", 1)), ErrNoSession)
		_, err := s.Get(ctx, "", KindHospital)
		assert.ErrorIs(t, err, ErrNoSession)
		assert.ErrorIs(t, s.Clear(ctx, "", KindHospital), ErrNoSession)
		assert.ErrorIs(t, s.ClearSession(ctx, ""), ErrNoSession)
	})

	t.Run("nil change rejected", func(t *testing.T) {
		s := newStore(t, newFakeClock())
		assert.Error(t, s.Put(ctx, "sid-a", KindHospital, nil))
	})

	t.Run("caller mutation does not leak into store", func(t *testing.T) {
		s := newStore(t, newFakeClock())
		ch := hospital("A", 1)
		require.NoError(t, s.Put(ctx, "sid-a", KindHospital, ch))
		ch.Fields["hospital_name"] = "mutated"

		got, err := s.Get(ctx, "sid-a", KindHospital)
		require.NoError(t, err)
		assert.Equal(t, "A", got.Fields["hospital_name"])

		got.Fields["hospital_name"] = "mutated again"
		again, err := s.Get(ctx, "sid-a", KindHospital)
		require.NoError(t, err)
		assert.Equal(t, "A", again.Fields["hospital_name"])
	})

	t.Run("take with matching token", func(t *testing.T) {
		s := newStore(t, newFakeClock())
		require.NoError(t, s.Put(ctx, "sid-a", KindHospital, hospital("A", 1000)))

		got, err := s.Take(ctx, "sid-a", KindHospital, "tok-A")
		require.NoError(t, err)
		assert.Equal(t, int64(1000), got.Fields["capital"])
		assert.Equal(t, "tok-A", got.Token)

		_, err = s.Get(ctx, "sid-a", KindHospital)
		assert.ErrorIs(t, err, ErrNotFound, "taken change is gone")
		_, err = s.Take(ctx, "sid-a", KindHospital, "tok-A")
		assert.ErrorIs(t, err, ErrNotFound, "a change is taken only once")
	})

	t.Run("take with other token keeps the change", func(t *testing.T) {
		s := newStore(t, newFakeClock())
		require.NoError(t, s.Put(ctx, "sid-a", KindHospital, hospital("Newer", 1)))

		_, err := s.Take(ctx, "sid-a", KindHospital, "tok-Older")
		assert.ErrorIs(t, err, ErrTokenMismatch)
		got, err := s.Get(ctx, "sid-a", KindHospital)
		require.NoError(t, err)
		assert.Equal(t, "Newer", got.Fields["hospital_name"])
	})

	t.Run("take expired", func(t *testing.T) {
		clock := newFakeClock()
		s := newStore(t, clock)
		require.NoError(t, s.Put(ctx, "sid-a", KindHospital, hospital("A", 1)))
		clock.Advance(contractTTL)

		_, err := s.Take(ctx, "sid-a", KindHospital, "tok-A")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("concurrent take succeeds once", func(t *testing.T) {
		s := newStore(t, newFakeClock())
		require.NoError(t, s.Put(ctx, "sid-a", KindHospital, hospital("A", 1)))

		var wg sync.WaitGroup
		results := make(chan error, 8)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.Take(ctx, "sid-a", KindHospital, "tok-A")
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		var won int
		for err := range results {
			if err == nil {
				won++
				continue
			}
			assert.ErrorIs(t, err, ErrNotFound)
		}
		assert.Equal(t, 1, won)
	})

	t.Run("restore", func(t *testing.T) {
		s := newStore(t, newFakeClock())
		require.NoError(t, s.Put(ctx, "sid-a", KindHospital, hospital("A", 1)))
		taken, err := s.Take(ctx, "sid-a", KindHospital, "tok-A")
		require.NoError(t, err)

		require.NoError(t, s.Restore(ctx, "sid-a", KindHospital, taken))
		got, err := s.Get(ctx, "sid-a", KindHospital)
		require.NoError(t, err)
		assert.Equal(t, "tok-A", got.Token)
		assert.Equal(t, int64(1), got.Fields["capital"])
	})

	t.Run("restore does not overwrite a newer change", func(t *testing.T) {
		s := newStore(t, newFakeClock())
		require.NoError(t, s.Put(ctx, "sid-a", KindHospital, hospital("Old", 1)))
		taken, err := s.Take(ctx, "sid-a", KindHospital, "tok-Old")
		require.NoError(t, err)
		require.NoError(t, s.Put(ctx, "sid-a", KindHospital, hospital("New", 2)))

		require.NoError(t, s.Restore(ctx, "sid-a", KindHospital, taken))
		got, err := s.Get(ctx, "sid-a", KindHospital)
		require.NoError(t, err)
		assert.Equal(t, "New", got.Fields["hospital_name"])
	})
}
