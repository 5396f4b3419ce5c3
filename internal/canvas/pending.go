// pending.go — Per-canvas ordered queues of unflushed mutation records.
// Grows on intake, drained wholesale on flush. Not synchronized: owned by
// Manager and guarded by Manager.mu.
package canvas

import (
	"github.com/ScreebApp/rrweb/internal/dom"
	"github.com/ScreebApp/rrweb/internal/types"
)

// pendingBuffer maps canvas identity to its pending records. The order slice
// keeps flush order stable across Go's randomized map iteration. Invariant:
// an identity present in queues always has a non-empty record slice, and
// appears in order exactly once.
type pendingBuffer struct {
	queues map[*dom.Canvas][]types.MutationRecord
	order  []*dom.Canvas

	// cap bounds each canvas's queue; 0 = unbounded. When the cap is hit the
	// oldest record for that canvas is dropped.
	cap        int
	capDropped int64
}

func newPendingBuffer(cap int) *pendingBuffer {
	return &pendingBuffer{
		queues: make(map[*dom.Canvas][]types.MutationRecord),
		cap:    cap,
	}
}

// add appends rec to c's queue, creating the queue if absent.
func (b *pendingBuffer) add(c *dom.Canvas, rec types.MutationRecord) {
	q, ok := b.queues[c]
	if !ok {
		b.order = append(b.order, c)
	}
	if b.cap > 0 && len(q) >= b.cap {
		copy(q, q[1:])
		q = q[:len(q)-1]
		b.capDropped++
	}
	b.queues[c] = append(q, rec)
}

// canvases returns the identities with pending records, in intake order.
func (b *pendingBuffer) canvases() []*dom.Canvas {
	out := make([]*dom.Canvas, len(b.order))
	copy(out, b.order)
	return out
}

// take removes and returns c's queue. Returns nil if c has no entry.
func (b *pendingBuffer) take(c *dom.Canvas) []types.MutationRecord {
	q, ok := b.queues[c]
	if !ok {
		return nil
	}
	delete(b.queues, c)
	for i, oc := range b.order {
		if oc == c {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	return q
}

// records returns the total pending record count across all canvases.
func (b *pendingBuffer) records() int {
	n := 0
	for _, q := range b.queues {
		n += len(q)
	}
	return n
}

// len returns the number of canvases with pending records.
func (b *pendingBuffer) len() int {
	return len(b.queues)
}

// clear drops everything. The cap-drop counter is preserved for stats.
func (b *pendingBuffer) clear() {
	b.queues = make(map[*dom.Canvas][]types.MutationRecord)
	b.order = nil
}
