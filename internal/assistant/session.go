package assistant

import (
	"errors"
	"sync"
	"time"

	"github.com/raine/reseller-assistant/internal/llm"
	"github.com/rs/zerolog/log"
)

// State is the lifecycle state of a user's most recent analysis.
type State int

const (
	Idle State = iota
	InFlight
	Succeeded
	Failed
	NeedsClearerPhoto
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case InFlight:
		return "in_flight"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case NeedsClearerPhoto:
		return "needs_clearer_photo"
	default:
		return "unknown"
	}
}

// ErrBusy is returned when a submission arrives while one is already in flight.
var ErrBusy = errors.New("an analysis is already in progress")

var errNoResult = errors.New("analysis returned no result")

// Snapshot is a copy of a session's state at one point in time.
type Snapshot struct {
	State      State
	Progress   string
	Listing    *llm.ListingRecord // Set only when State is Succeeded
	Citations  []llm.Citation
	Err        error
	ErrMessage string // Failure text, or the unclear message when NeedsClearerPhoto
	Location   string
	DraftID    string
	UpdatedAt  time.Time
}

// Session holds the analysis state of one user.
// Only two events move it between states: a submission and its resolution.
type Session struct {
	id  string
	now func() time.Time

	mu       sync.Mutex
	snap     Snapshot
	lastUsed time.Time
}

// NewSession creates an idle session.
func NewSession(id, location string) *Session {
	s := &Session{id: id, now: time.Now}
	s.snap = Snapshot{State: Idle, Location: location, UpdatedAt: s.now()}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Submit starts a new analysis for location, discarding the previous result.
// Returns ErrBusy if an analysis is in flight.
func (s *Session) Submit(location string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snap.State == InFlight {
		return ErrBusy
	}
	s.snap = Snapshot{
		State:     InFlight,
		Location:  location,
		UpdatedAt: s.now(),
	}
	return nil
}

// SetProgress records a status update for the in-flight analysis.
// Updates arriving in any other state are dropped.
func (s *Session) SetProgress(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snap.State != InFlight {
		return
	}
	s.snap.Progress = status
	s.snap.UpdatedAt = s.now()
}

// Resolve completes the in-flight analysis with its outcome.
func (s *Session) Resolve(result *llm.AnalysisResult, err error) Snapshot {
	return s.resolve(result, err, "")
}

func (s *Session) resolve(result *llm.AnalysisResult, err error, draftID string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snap.State != InFlight {
		log.Warn().Str("session", s.id).Str("state", s.snap.State.String()).Msg("ignoring resolution of idle session")
		return s.snap
	}

	if err == nil && (result == nil || result.Listing == nil) {
		err = errNoResult
	}

	next := Snapshot{Location: s.snap.Location, UpdatedAt: s.now()}
	switch {
	case err != nil:
		next.State = Failed
		next.Err = err
		next.ErrMessage = err.Error()
	case result.Listing.IsUnclear:
		next.State = NeedsClearerPhoto
		next.ErrMessage = result.Listing.UnclearMessage
		if next.ErrMessage == "" {
			next.ErrMessage = llm.DefaultUnclearMessage
		}
	default:
		next.State = Succeeded
		next.Listing = result.Listing
		next.Citations = result.Citations
		next.DraftID = draftID
	}

	s.snap = next
	return s.snap
}

// Reset returns the session to Idle, keeping the last location.
// Returns ErrBusy if an analysis is in flight.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snap.State == InFlight {
		return ErrBusy
	}
	s.snap = Snapshot{State: Idle, Location: s.snap.Location, UpdatedAt: s.now()}
	return nil
}

// touch records that a caller fetched the session.
func (s *Session) touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = s.now()
}

// idleSince reports when the session was last changed or fetched and whether
// it can be dropped.
func (s *Session) idleSince() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	last := s.snap.UpdatedAt
	if s.lastUsed.After(last) {
		last = s.lastUsed
	}
	return last, s.snap.State != InFlight
}
