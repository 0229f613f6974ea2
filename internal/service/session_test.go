package service

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionManager_Get_ConcurrentTouch(t *testing.T) {
	m := NewSessionManager(time.Hour)
	sess := m.Create("t1")

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				if _, err := m.Get("t1", sess.ID); err != nil {
					t.Errorf("get: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	sess.Lock()
	assert.False(t, sess.LastSeen.IsZero())
	sess.Unlock()
}

func TestSessionManager_Get_WrongTenant(t *testing.T) {
	m := NewSessionManager(time.Hour)
	sess := m.Create("t1")

	_, err := m.Get("t2", sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionManager_PruneExpired(t *testing.T) {
	m := NewSessionManager(time.Minute)
	stale := m.Create("t1")
	stale.Lock()
	stale.LastSeen = time.Now().Add(-2 * time.Minute)
	stale.Unlock()
	fresh := m.Create("t1")

	assert.Equal(t, 1, m.PruneExpired())

	_, err := m.Get("t1", stale.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.Get("t1", fresh.ID)
	require.NoError(t, err)
}
