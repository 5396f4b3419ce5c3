// manual.go — Deterministic scheduler for tests.
package frameclock

import "sync"

// ManualScheduler runs frame callbacks only when Step is called, with a
// caller-supplied timestamp. It preserves the Scheduler contract that
// callbacks scheduled during a step run on the next step.
type ManualScheduler struct {
	mu      sync.Mutex
	pending []*pendingFrame
	now     int64
}

// NewManual creates an empty ManualScheduler.
func NewManual() *ManualScheduler {
	return &ManualScheduler{}
}

// RequestFrame implements Scheduler.
func (s *ManualScheduler) RequestFrame(fn FrameFunc) func() {
	p := &pendingFrame{fn: fn}
	s.mu.Lock()
	s.pending = append(s.pending, p)
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		p.cancelled = true
		s.mu.Unlock()
	}
}

// Step runs every callback pending at entry with timestamp ts and returns
// how many ran. Callbacks scheduled by those callbacks stay pending.
// Step also advances the scheduler's clock to ts.
func (s *ManualScheduler) Step(ts int64) int {
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.now = ts
	s.mu.Unlock()

	ran := 0
	for _, p := range batch {
		s.mu.Lock()
		skip := p.cancelled
		s.mu.Unlock()
		if skip {
			continue
		}
		p.fn(ts)
		ran++
	}
	return ran
}

// SetNow sets the scheduler's clock without running callbacks.
func (s *ManualScheduler) SetNow(ts int64) {
	s.mu.Lock()
	s.now = ts
	s.mu.Unlock()
}

// Now implements Clock.
func (s *ManualScheduler) Now() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// PendingCount returns the number of callbacks awaiting the next step,
// including cancelled ones not yet discarded.
func (s *ManualScheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
