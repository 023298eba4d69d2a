package token

import (
	"sync"
	"time"
)

// RevocationList remembers revoked access token IDs. An entry is only needed
// until the token it names expires, after which Prune drops it.
type RevocationList struct {
	mu      sync.Mutex
	expires map[string]time.Time // jti to token expiry
}

func NewRevocationList() *RevocationList {
	return &RevocationList{expires: make(map[string]time.Time)}
}

func (l *RevocationList) Revoke(jti string, exp time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.expires[jti] = exp
}

func (l *RevocationList) Revoked(jti string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.expires[jti]
	return ok
}

// Prune removes entries for tokens that expired before now and reports how many went.
func (l *RevocationList) Prune(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	pruned := 0
	for jti, exp := range l.expires {
		if now.After(exp) {
			delete(l.expires, jti)
			pruned++
		}
	}
	return pruned
}

func (l *RevocationList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.expires)
}
