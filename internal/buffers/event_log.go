// event_log.go — Fixed-capacity log of emitted canvas mutation events with
// cursor-based reads. The orchestrator appends every emitted event; the
// consuming pipeline can pull deltas from independent read positions.
// Thread-safe: all access guarded by RWMutex.
package buffers

import (
	"sync"
	"time"

	"github.com/ScreebApp/rrweb/internal/types"
)

// Cursor tracks a read position in an EventLog. Position is monotonic (total
// events ever appended); when the log wraps past it, reads resume from the
// oldest retained event.
type Cursor struct {
	Position  int64
	Timestamp time.Time
}

// EventLog is a fixed-capacity circular log of emitted events. Entries are
// evicted in FIFO order when capacity is reached.
type EventLog struct {
	mu sync.RWMutex

	entries  []types.CanvasMutationEvent
	addedAt  []time.Time // parallel slice: when each entry was appended
	capacity int

	totalAdded int64 // monotonic counter of all entries ever appended
	head       int   // index where the next write goes once full
}

// NewEventLog creates an EventLog with the given capacity.
func NewEventLog(capacity int) *EventLog {
	if capacity <= 0 {
		capacity = 1
	}
	return &EventLog{
		entries:  make([]types.CanvasMutationEvent, 0, capacity),
		addedAt:  make([]time.Time, 0, capacity),
		capacity: capacity,
	}
}

// Append adds one event, evicting the oldest entry if at capacity.
func (l *EventLog) Append(ev types.CanvasMutationEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	if len(l.entries) < l.capacity {
		l.entries = append(l.entries, ev)
		l.addedAt = append(l.addedAt, now)
	} else {
		l.entries[l.head] = ev
		l.addedAt[l.head] = now
	}
	l.head = (l.head + 1) % l.capacity
	l.totalAdded++
}

// ReadFrom reads events appended after the cursor position, oldest first,
// and returns a new cursor for subsequent reads. If the cursor position has
// been evicted, reading resumes from the oldest retained event.
func (l *EventLog) ReadFrom(cursor Cursor) ([]types.CanvasMutationEvent, Cursor) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	next := Cursor{Position: l.totalAdded, Timestamp: time.Now()}
	if len(l.entries) == 0 {
		return nil, next
	}

	oldest := l.totalAdded - int64(len(l.entries))
	start := cursor.Position
	if start < oldest {
		start = oldest
	}
	available := l.totalAdded - start
	if available <= 0 {
		return nil, next
	}

	startIndex := l.positionToIndex(start)
	result := make([]types.CanvasMutationEvent, 0, available)
	for i := int64(0); i < available; i++ {
		idx := int((int64(startIndex) + i) % int64(len(l.entries)))
		result = append(result, l.entries[idx])
	}
	return result, next
}

// ReadLast returns the last n events, oldest first.
func (l *EventLog) ReadLast(n int) []types.CanvasMutationEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.entries) == 0 || n <= 0 {
		return nil
	}
	if n > len(l.entries) {
		n = len(l.entries)
	}

	result := make([]types.CanvasMutationEvent, n)
	if len(l.entries) < l.capacity {
		copy(result, l.entries[len(l.entries)-n:])
		return result
	}
	endIdx := (l.head - 1 + l.capacity) % l.capacity
	for i := n - 1; i >= 0; i-- {
		result[i] = l.entries[endIdx]
		endIdx = (endIdx - 1 + l.capacity) % l.capacity
	}
	return result
}

// Len returns the number of retained events.
func (l *EventLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Cap returns the log capacity.
func (l *EventLog) Cap() int {
	return l.capacity // immutable, no lock needed
}

// TotalAppended returns the monotonic append counter.
func (l *EventLog) TotalAppended() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.totalAdded
}

// Clear drops all retained events. The monotonic counter is preserved so
// existing cursors stay valid.
func (l *EventLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = l.entries[:0]
	l.addedAt = l.addedAt[:0]
	l.head = 0
}

// positionToIndex converts a monotonic position to a slice index.
// Must be called with at least a read lock held.
func (l *EventLog) positionToIndex(position int64) int {
	oldest := l.totalAdded - int64(len(l.entries))
	if len(l.entries) < l.capacity {
		// Not full: entries are in order starting at the oldest position.
		return int(position - oldest)
	}
	return (l.head + int(position-oldest)) % l.capacity
}
