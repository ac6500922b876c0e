package gate

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/2beens/partnerdesk/internal/accounts"
	"github.com/2beens/partnerdesk/internal/telemetry/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_NewGetRemove(t *testing.T) {
	metricsManager := metrics.NewTestManager()
	r := NewRegistry(metricsManager)
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	r.NowFunc = func() time.Time { return now }

	identity := accounts.Identity{Username: "ana", Role: accounts.RoleViewer}
	session, err := r.New(identity)
	require.NoError(t, err)
	// 32 random bytes, raw url base64
	assert.Len(t, session.Token(), 43)
	assert.Equal(t, now, session.CreatedAt())

	got, found := r.Get(session.Token())
	require.True(t, found)
	assert.Same(t, session, got)
	bound, ok := got.Identity()
	require.True(t, ok)
	assert.Equal(t, identity, bound)
	assert.Equal(t, float64(1), testutil.ToFloat64(metricsManager.GaugeSessions))

	_, found = r.Get("")
	assert.False(t, found)
	_, found = r.Get("unknown")
	assert.False(t, found)

	r.Remove(session.Token())
	_, found = r.Get(session.Token())
	assert.False(t, found)
	assert.Equal(t, 0, r.Count())
	assert.Equal(t, float64(0), testutil.ToFloat64(metricsManager.GaugeSessions))
}

func TestRegistry_TokenErrors(t *testing.T) {
	r := NewRegistry(nil)
	r.RandStringFunc = func(int) (string, error) {
		return "", errors.New("no entropy")
	}
	_, err := r.New(accounts.Identity{Username: "ana"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no entropy")

	r.RandStringFunc = func(int) (string, error) { return "fixed", nil }
	_, err = r.New(accounts.Identity{Username: "ana"})
	require.NoError(t, err)
	_, err = r.New(accounts.Identity{Username: "bob"})
	require.Error(t, err)
	assert.Equal(t, 1, r.Count())
}

func TestRegistry_RefreshAndRevoke(t *testing.T) {
	r := NewRegistry(nil)

	ana1, err := r.New(accounts.Identity{Username: "ana", Role: accounts.RoleViewer})
	require.NoError(t, err)
	ana2, err := r.New(accounts.Identity{Username: "ana", Role: accounts.RoleViewer})
	require.NoError(t, err)
	bob, err := r.New(accounts.Identity{Username: "bob", Role: accounts.RoleAdmin})
	require.NoError(t, err)

	n := r.Refresh(accounts.Identity{Username: "ana", FullName: "Ana", Role: accounts.RoleAdmin})
	assert.Equal(t, 2, n)
	for _, s := range []*Session{ana1, ana2} {
		identity, ok := s.Identity()
		require.True(t, ok)
		assert.Equal(t, "Ana", identity.FullName)
		assert.True(t, identity.IsAdmin())
	}
	bobIdentity, _ := bob.Identity()
	assert.Equal(t, "", bobIdentity.FullName)

	assert.Equal(t, 0, r.Refresh(accounts.Identity{Username: "ghost"}))

	assert.Equal(t, 2, r.Revoke("ana"))
	_, ok := ana1.Identity()
	assert.False(t, ok)
	assert.Equal(t, 1, r.Count())
	assert.Equal(t, 0, r.Revoke("ana"))
}

func TestRegistry_Concurrent(t *testing.T) {
	r := NewRegistry(metrics.NewTestManager())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			username := fmt.Sprintf("user-%d", i%4)
			session, err := r.New(accounts.Identity{Username: username})
			assert.NoError(t, err)
			r.Refresh(accounts.Identity{Username: username, FullName: "x"})
			_, _ = session.Identity()
			if i%2 == 0 {
				r.Remove(session.Token())
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, r.Count())
}

func TestSession_NilSafe(t *testing.T) {
	var s *Session
	assert.Equal(t, "", s.Token())
	assert.True(t, s.CreatedAt().IsZero())
	_, ok := s.Identity()
	assert.False(t, ok)
	s.clear()
}
