// stamps.go — Frame-boundary detection via stamp comparison.
package frameclock

// Stamps tracks the most recent frame tick (latest) and the frame at which
// draining last started (invoke). A new frame is detected when latest has
// advanced past invoke. This demarcates mutations belonging to the frame
// currently being drained from later ones, so a flush never drains mutations
// recorded after the flush decision was made.
//
// Not synchronized: the owning Manager guards Stamps with its own lock.
type Stamps struct {
	latest  int64
	invoke  int64
	invoked bool
}

// MarkFrame records a frame tick.
func (s *Stamps) MarkFrame(ts int64) {
	s.latest = ts
}

// TouchInvoke applies the drain-boundary rule on intake: if invoke is unset
// or a newer frame has been observed, invoke advances to latest. Once set
// for a frame, invoke does not change until a newer frame is marked.
func (s *Stamps) TouchInvoke() {
	if !s.invoked || s.latest != s.invoke {
		s.invoke = s.latest
		s.invoked = true
	}
}

// Latest returns the most recent frame tick.
func (s *Stamps) Latest() int64 { return s.latest }

// Invoke returns the frame id at which draining last started, and whether it
// has been set at all.
func (s *Stamps) Invoke() (int64, bool) { return s.invoke, s.invoked }

// Reset clears both stamps.
func (s *Stamps) Reset() {
	s.latest = 0
	s.invoke = 0
	s.invoked = false
}
