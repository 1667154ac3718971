package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finsight/statement-hub/internal/logging"
	"finsight/statement-hub/internal/models"
	"finsight/statement-hub/internal/procerr"
)

func newTestStore(ttl time.Duration) *Store {
	return NewStore(ttl, time.Minute, &logging.MockLogger{})
}

func TestCreateAndGet(t *testing.T) {
	store := newTestStore(time.Hour)

	id := store.Create(&models.Session{})
	require.NotEmpty(t, id)

	got, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, id, got.SessionID)
	assert.False(t, got.CreatedAt.IsZero())
	assert.Equal(t, 1, store.Count())
}

func TestGetUnknownSession(t *testing.T) {
	store := newTestStore(time.Hour)

	_, err := store.Get("no-such-session")
	require.Error(t, err)
	var notFound *procerr.SessionNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "no-such-session", notFound.SessionID)
}

func TestGetExpiredSessionBeforeSweep(t *testing.T) {
	store := newTestStore(10 * time.Minute)
	id := store.Create(&models.Session{})

	// Advance the clock past the TTL without running the sweeper.
	store.nowFn = func() time.Time { return time.Now().Add(11 * time.Minute) }

	_, err := store.Get(id)
	var notFound *procerr.SessionNotFoundError
	assert.ErrorAs(t, err, &notFound)
	// The record itself is still held until the sweeper runs.
	assert.Equal(t, 1, store.Count())
}

func TestDeleteIsIdempotent(t *testing.T) {
	store := newTestStore(time.Hour)
	id := store.Create(&models.Session{})

	assert.True(t, store.Delete(id))
	assert.False(t, store.Delete(id))
	assert.Equal(t, 0, store.Count())

	_, err := store.Get(id)
	assert.Error(t, err)
}

func TestSweepReapsExpired(t *testing.T) {
	store := newTestStore(10 * time.Minute)
	expired := store.Create(&models.Session{})

	store.nowFn = func() time.Time { return time.Now().Add(11 * time.Minute) }
	fresh := store.Create(&models.Session{})

	store.sweep()

	assert.Equal(t, 1, store.Count())
	_, err := store.Get(expired)
	assert.Error(t, err)
	_, err = store.Get(fresh)
	assert.NoError(t, err)
}

func TestStopWithoutStart(t *testing.T) {
	store := newTestStore(time.Hour)
	// Must not block.
	store.Stop()
}

func TestStartStopLifecycle(t *testing.T) {
	store := NewStore(time.Hour, 10*time.Millisecond, &logging.MockLogger{})
	store.Start()
	time.Sleep(30 * time.Millisecond)
	store.Stop()
}

func TestConcurrentAccess(t *testing.T) {
	store := newTestStore(time.Hour)

	var wg sync.WaitGroup
	ids := make(chan string, 64)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 8; j++ {
				ids <- store.Create(&models.Session{})
			}
		}()
	}
	wg.Wait()
	close(ids)

	for id := range ids {
		_, err := store.Get(id)
		assert.NoError(t, err)
	}
	assert.Equal(t, 64, store.Count())
}
