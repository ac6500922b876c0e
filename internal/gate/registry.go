package gate

import (
	"fmt"
	"time"

	"github.com/2beens/partnerdesk/internal/accounts"
	"github.com/2beens/partnerdesk/internal/telemetry/metrics"
	"github.com/2beens/partnerdesk/pkg"

	"github.com/patrickmn/go-cache"
)

const tokenBytes = 32

// Registry maps session tokens to live sessions. Sessions do not expire;
// they end at logout or when their account is deleted.
type Registry struct {
	sessions       *cache.Cache
	metricsManager *metrics.Manager

	// injectable for tests
	RandStringFunc func(s int) (string, error)
	NowFunc        func() time.Time
}

func NewRegistry(metricsManager *metrics.Manager) *Registry {
	return &Registry{
		// no default expiration and no janitor goroutine
		sessions:       cache.New(cache.NoExpiration, 0),
		metricsManager: metricsManager,
		RandStringFunc: pkg.GenerateRandomString,
		NowFunc:        time.Now,
	}
}

func (r *Registry) New(identity accounts.Identity) (*Session, error) {
	token, err := r.RandStringFunc(tokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}

	session := &Session{
		token:     token,
		createdAt: r.NowFunc(),
	}
	session.bind(identity)

	if err := r.sessions.Add(token, session, cache.NoExpiration); err != nil {
		return nil, fmt.Errorf("register session: %w", err)
	}
	r.updateGauge()

	return session, nil
}

func (r *Registry) Get(token string) (*Session, bool) {
	if token == "" {
		return nil, false
	}
	v, found := r.sessions.Get(token)
	if !found {
		return nil, false
	}
	session, ok := v.(*Session)
	return session, ok
}

func (r *Registry) Remove(token string) {
	r.sessions.Delete(token)
	r.updateGauge()
}

func (r *Registry) Count() int {
	return r.sessions.ItemCount()
}

func (r *Registry) forUser(username string) []*Session {
	var found []*Session
	for _, item := range r.sessions.Items() {
		session, ok := item.Object.(*Session)
		if !ok {
			continue
		}
		if identity, bound := session.Identity(); bound && identity.Username == username {
			found = append(found, session)
		}
	}
	return found
}

// Refresh rebinds every session of identity.Username to identity.
func (r *Registry) Refresh(identity accounts.Identity) int {
	sessions := r.forUser(identity.Username)
	for _, session := range sessions {
		session.bind(identity)
	}
	return len(sessions)
}

// Revoke clears and drops every session of username.
func (r *Registry) Revoke(username string) int {
	sessions := r.forUser(username)
	for _, session := range sessions {
		session.clear()
		r.sessions.Delete(session.token)
	}
	r.updateGauge()
	return len(sessions)
}

func (r *Registry) updateGauge() {
	if r.metricsManager != nil {
		r.metricsManager.GaugeSessions.Set(float64(r.sessions.ItemCount()))
	}
}
