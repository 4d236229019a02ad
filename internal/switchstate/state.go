// Package switchstate holds the liveness record shared by the heartbeat
// receiver, the check-in emailer and the watchdog.
//
// A single mutex guards the (last heartbeat, armed) pair so that a watchdog
// read and a concurrent heartbeat can never interleave. The lock is only held
// for a compare and/or set; no I/O happens under it.
package switchstate

import (
	"crypto/subtle"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/deadswitch/internal/clock"
	"github.com/dmitrijs2005/deadswitch/internal/common"
)

// State is the process-wide switch record. It is created once at startup and
// shared by pointer; the zero value is not usable.
type State struct {
	clock clock.Clock
	token []byte

	mu            sync.Mutex
	lastHeartbeat time.Time
	armed         bool
}

// Snapshot is a consistent copy of the mutable fields.
type Snapshot struct {
	LastHeartbeat time.Time
	Armed         bool
}

// New creates an armed State whose timer starts now, authenticated by token.
func New(c clock.Clock, token string) *State {
	return &State{
		clock:         c,
		token:         []byte(token),
		lastHeartbeat: c.Now(),
		armed:         true,
	}
}

// NewWithRandomToken creates an armed State with a freshly generated token.
func NewWithRandomToken(c clock.Clock) (*State, error) {
	token, err := common.MakeRandHexString(common.TokenSize)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return New(c, token), nil
}

// RecordHeartbeat resets the inactivity timer if token matches the secret.
// A mismatch leaves the state untouched and returns false; it is not an error.
func (s *State) RecordHeartbeat(token string) bool {
	if subtle.ConstantTimeCompare([]byte(token), s.token) != 1 {
		return false
	}

	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	// never move backwards, even if the wall clock does
	if now.After(s.lastHeartbeat) {
		s.lastHeartbeat = now
	}
	return true
}

// TimeSinceLastHeartbeat returns now minus the last accepted heartbeat.
func (s *State) TimeSinceLastHeartbeat() time.Duration {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	return now.Sub(s.lastHeartbeat)
}

// TryFire disarms the switch. It returns true exactly once per State; the
// caller that receives true owns the activation.
func (s *State) TryFire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.armed {
		return false
	}
	s.armed = false
	return true
}

// LastHeartbeat returns the time of the last accepted heartbeat.
func (s *State) LastHeartbeat() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastHeartbeat
}

// Armed reports whether activation is still possible.
func (s *State) Armed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.armed
}

// Snapshot returns the last heartbeat time and armed flag read together.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{LastHeartbeat: s.lastHeartbeat, Armed: s.armed}
}

// Token returns the reset token. It is meant for composing the check-in
// link and must never be logged.
func (s *State) Token() string {
	return string(s.token)
}
