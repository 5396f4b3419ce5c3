// scheduler.go — Cooperative animation-frame scheduling.
// All frame callbacks run sequentially on a single goroutine; they interleave
// with other work but never run in parallel with each other.
package frameclock

import (
	"sync"
	"time"
)

// FrameFunc is an animation-frame callback. ts is the frame timestamp in
// milliseconds since an arbitrary monotonic origin; it strictly increases
// across ticks.
type FrameFunc func(ts int64)

// Scheduler requests one-shot frame callbacks. Callbacks scheduled during a
// tick run on the next tick, not the current one.
type Scheduler interface {
	// RequestFrame schedules fn for the next frame tick and returns a cancel
	// func. Cancel is a no-op once fn has started running.
	RequestFrame(fn FrameFunc) (cancel func())
}

// Clock is implemented by schedulers that can report "now" on the same
// monotonic origin as their frame timestamps. Synchronous snapshot triggers
// use it so throttle comparisons never mix time origins.
type Clock interface {
	Now() int64
}

// pendingFrame is one scheduled callback. cancelled is checked at run time
// under the owning scheduler's lock.
type pendingFrame struct {
	fn        FrameFunc
	cancelled bool
}

// TickerScheduler drives frame callbacks off a time.Ticker on one goroutine.
// The tick interval stands in for the browser's frame rate.
type TickerScheduler struct {
	mu      sync.Mutex
	pending []*pendingFrame
	stopped bool

	start time.Time
	stop  chan struct{}
	done  chan struct{}
}

// NewTicker creates a TickerScheduler and starts its frame goroutine.
// Callers must Stop it when finished.
func NewTicker(interval time.Duration) *TickerScheduler {
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	s := &TickerScheduler{
		start: time.Now(),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go s.run(interval)
	return s
}

// RequestFrame implements Scheduler.
func (s *TickerScheduler) RequestFrame(fn FrameFunc) func() {
	p := &pendingFrame{fn: fn}
	s.mu.Lock()
	if !s.stopped {
		s.pending = append(s.pending, p)
	}
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		p.cancelled = true
		s.mu.Unlock()
	}
}

// Now implements Clock: milliseconds since the scheduler started.
func (s *TickerScheduler) Now() int64 {
	return time.Since(s.start).Milliseconds()
}

// Stop terminates the frame goroutine. Pending callbacks are discarded.
// Safe to call multiple times.
func (s *TickerScheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.pending = nil
	s.mu.Unlock()
	close(s.stop)
	<-s.done
}

func (s *TickerScheduler) run(interval time.Duration) {
	defer close(s.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.tick(time.Since(s.start).Milliseconds())
		}
	}
}

// tick runs the callbacks that were pending when the tick started.
// Callbacks scheduled by those callbacks land in the next tick.
func (s *TickerScheduler) tick(ts int64) {
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, p := range batch {
		s.mu.Lock()
		skip := p.cancelled
		s.mu.Unlock()
		if !skip {
			p.fn(ts)
		}
	}
}
