package daemon

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jfmyers9/borahae/internal/refresh"
)

const defaultPersistInterval = 30 * time.Second

// UserState is the outcome of the most recent refreshes of one user
type UserState struct {
	LastAttempt         time.Time    `json:"last_attempt"`
	LastSuccess         time.Time    `json:"last_success"`
	LastError           string       `json:"last_error,omitempty"`
	ConsecutiveFailures int          `json:"consecutive_failures"`
	Mode                refresh.Mode `json:"mode,omitempty"` // Mode of the last saved timeline
	TotalPlays          int          `json:"total_plays"`    // BTS plays in the last saved timeline
	SkippedWeeks        int          `json:"skipped_weeks"`  // Weeks missing from the last saved timeline
	FallbackReason      string       `json:"fallback_reason,omitempty"`
}

// State tracks per-user refresh outcomes with thread-safe access and
// persistence
type State struct {
	mu       sync.RWMutex
	users    map[string]UserState
	filePath string // Path to state file for persistence

	persistInterval time.Duration
	lastPersist     time.Time
	dirty           bool // Changes not yet written to disk
	now             func() time.Time
}

// persistedState is the JSON representation of state for disk storage
type persistedState struct {
	Users map[string]UserState `json:"users"`
}

// NewState creates a new State instance
// If filePath is provided, attempts to restore state from disk
func NewState(filePath string) (*State, error) {
	s := &State{
		users:           make(map[string]UserState),
		filePath:        filePath,
		persistInterval: defaultPersistInterval,
		now:             time.Now,
	}

	// Try to restore state from disk if file exists
	if filePath != "" {
		if err := s.restore(); err != nil && !os.IsNotExist(err) {
			// Not fatal, the daemon can start fresh
			return s, err
		}
	}

	return s, nil
}

// RecordSuccess stores a completed refresh of username
func (s *State) RecordSuccess(username string, out *refresh.Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := normalizeUser(username)
	now := s.now().UTC()

	us := s.users[key]
	us.LastAttempt = now
	us.LastSuccess = now
	us.LastError = ""
	us.ConsecutiveFailures = 0
	if out != nil && out.Timeline != nil {
		us.Mode = out.Timeline.Mode
		us.TotalPlays = out.Timeline.Timeline.TotalPlays
		us.SkippedWeeks = len(out.Timeline.Skipped)
		us.FallbackReason = out.Timeline.FallbackReason
	}
	s.users[key] = us

	return s.throttledPersist()
}

// RecordFailure stores a failed refresh of username. The numbers of the
// last successful refresh are kept.
func (s *State) RecordFailure(username string, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := normalizeUser(username)

	us := s.users[key]
	us.LastAttempt = s.now().UTC()
	us.LastError = err.Error()
	us.ConsecutiveFailures++
	s.users[key] = us

	// Failures skip throttling
	return s.persist()
}

// Get returns the state of username
func (s *State) Get(username string) (UserState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	us, ok := s.users[normalizeUser(username)]
	return us, ok
}

// Users returns the tracked usernames in sorted order
func (s *State) Users() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]string, 0, len(s.users))
	for u := range s.users {
		users = append(users, u)
	}
	sort.Strings(users)
	return users
}

// Flush writes pending changes to disk
func (s *State) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}
	return s.persist()
}

// throttledPersist writes state unless it was written within
// persistInterval, in which case it only marks the state dirty
// Must be called with lock held
func (s *State) throttledPersist() error {
	if !s.lastPersist.IsZero() && s.now().Sub(s.lastPersist) < s.persistInterval {
		s.dirty = true
		return nil
	}
	return s.persist()
}

// persist saves the current state to disk
// Must be called with lock held
func (s *State) persist() error {
	if s.filePath == "" {
		s.dirty = false
		return nil // No persistence configured
	}

	data, err := json.MarshalIndent(persistedState{Users: s.users}, "", "  ")
	if err != nil {
		return err
	}

	// Ensure directory exists
	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	// Write atomically via temp file + rename
	tmpPath := s.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, s.filePath); err != nil {
		return err
	}

	s.lastPersist = s.now()
	s.dirty = false
	return nil
}

// restore loads state from disk
func (s *State) restore() error {
	if s.filePath == "" {
		return nil
	}

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	var ps persistedState
	if err := json.Unmarshal(data, &ps); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for user, us := range ps.Users {
		s.users[normalizeUser(user)] = us
	}

	return nil
}

// ReadState loads a state file without taking ownership of it
func ReadState(filePath string) (map[string]UserState, error) {
	s, err := NewState(filePath)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make(map[string]UserState, len(s.users))
	for u, us := range s.users {
		users[u] = us
	}
	return users, nil
}

// normalizeUser folds usernames the way Last.fm does
func normalizeUser(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
