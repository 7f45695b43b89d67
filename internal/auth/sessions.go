package auth

import (
	"context"
	"sync"
	"time"
)

// SweepInterval is how often Run checks for idle sessions.
const SweepInterval = time.Second

// Sessions tracks which users are signed in and when they were last active.
// A zero timeout means sessions never expire. The application owns the value
// and drives expiry with Run, or by calling Sweep itself.
type Sessions struct {
	mu           sync.Mutex
	lastActivity map[int64]time.Time
	timeout      time.Duration
	now          func() time.Time
}

// NewSessions creates an empty session table.
func NewSessions(timeout time.Duration) *Sessions {
	return &Sessions{
		lastActivity: make(map[int64]time.Time),
		timeout:      timeout,
		now:          time.Now,
	}
}

// SetClock overrides the time source.
func (s *Sessions) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// SetTimeout changes the idle timeout for every session.
func (s *Sessions) SetTimeout(timeout time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeout = timeout
}

// Timeout returns the idle timeout.
func (s *Sessions) Timeout() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeout
}

// Login starts or refreshes a session.
func (s *Sessions) Login(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity[userID] = s.now()
}

// Logout ends a session.
func (s *Sessions) Logout(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lastActivity, userID)
}

// IsAuthenticated reports whether the user has a live session.
func (s *Sessions) IsAuthenticated(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	last, ok := s.lastActivity[userID]
	return ok && !s.expiredLocked(last, s.now())
}

// Touch records activity on a live session. It returns false when the user
// has no session or it has already expired.
func (s *Sessions) Touch(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	last, ok := s.lastActivity[userID]
	if !ok || s.expiredLocked(last, now) {
		delete(s.lastActivity, userID)
		return false
	}
	s.lastActivity[userID] = now
	return true
}

// Sweep ends every session idle for longer than the timeout and returns their users.
func (s *Sessions) Sweep() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var expired []int64
	for userID, last := range s.lastActivity {
		if s.expiredLocked(last, now) {
			expired = append(expired, userID)
			delete(s.lastActivity, userID)
		}
	}
	return expired
}

func (s *Sessions) expiredLocked(last, now time.Time) bool {
	return s.timeout > 0 && now.Sub(last) >= s.timeout
}

// Run sweeps idle sessions every interval until ctx is done, calling
// onExpired for each user whose session ended.
func (s *Sessions) Run(ctx context.Context, interval time.Duration, onExpired func(userID int64)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, userID := range s.Sweep() {
				if onExpired != nil {
					onExpired(userID)
				}
			}
		}
	}
}
