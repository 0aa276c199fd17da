package assistant

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Registry keeps one Session per user, created on first use.
type Registry struct {
	defaultLocation string

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry(defaultLocation string) *Registry {
	return &Registry{
		defaultLocation: defaultLocation,
		sessions:        make(map[string]*Session),
	}
}

// Get returns the session for id, creating an idle one if needed.
// Fetching a session counts as use, so Prune keeps it.
func (r *Registry) Get(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if session, ok := r.sessions[id]; ok {
		session.touch()
		return session
	}
	session := NewSession(id, r.defaultLocation)
	r.sessions[id] = session
	log.Debug().Str("session", id).Msg("new assistant session")
	return session
}

// Lookup returns the session for id without creating it.
func (r *Registry) Lookup(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	return session, ok
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Prune drops sessions that have not changed for maxAge.
// Sessions with an analysis in flight are kept. Returns the number removed.
func (r *Registry) Prune(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, session := range r.sessions {
		updatedAt, idle := session.idleSince()
		if idle && updatedAt.Before(cutoff) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

// RunPruner prunes idle sessions every interval until ctx is cancelled.
func (r *Registry) RunPruner(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Prune(maxAge); n > 0 {
				log.Info().Int("removed", n).Int("remaining", r.Len()).Msg("pruned idle sessions")
			}
		}
	}
}
