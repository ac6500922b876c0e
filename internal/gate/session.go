package gate

import (
	"sync"
	"time"

	"github.com/2beens/partnerdesk/internal/accounts"
)

// Session is one client's authentication context. A nil *Session, or one
// with no identity bound, is unauthenticated.
type Session struct {
	token     string
	createdAt time.Time

	mu       sync.RWMutex
	identity *accounts.Identity
}

func (s *Session) Token() string {
	if s == nil {
		return ""
	}
	return s.token
}

func (s *Session) CreatedAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.createdAt
}

func (s *Session) Identity() (accounts.Identity, bool) {
	if s == nil {
		return accounts.Identity{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return accounts.Identity{}, false
	}
	return *s.identity, true
}

func (s *Session) bind(identity accounts.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = &identity
}

func (s *Session) clear() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = nil
}
