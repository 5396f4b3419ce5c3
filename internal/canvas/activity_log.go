// activity_log.go — Circular buffer of orchestrator activity for operator
// debugging. Kept as a buffer rather than a logger so inspection is a pull,
// not a stream. Thread-safe: own sync.Mutex, independent of Manager.mu.
package canvas

import (
	"sync"
	"time"
)

// ActivityKind labels one activity log entry.
type ActivityKind string

const (
	ActivityFlush       ActivityKind = "flush"
	ActivitySnapshot    ActivityKind = "snapshot"
	ActivityWorkerReply ActivityKind = "worker_reply"
	ActivityReset       ActivityKind = "reset"
	ActivityDrop        ActivityKind = "drop"
)

// ActivityEntry is one recorded orchestrator action.
type ActivityEntry struct {
	Kind   ActivityKind
	At     time.Time
	ID     int // canvas id where applicable, 0 otherwise
	Detail string
}

type activityLog struct {
	mu      sync.Mutex
	entries []ActivityEntry
	index   int
}

func newActivityLog() activityLog {
	return activityLog{entries: make([]ActivityEntry, activityLogSize)}
}

// add records one entry in the circular buffer.
func (al *activityLog) add(kind ActivityKind, id int, detail string) {
	al.mu.Lock()
	al.entries[al.index] = ActivityEntry{Kind: kind, At: time.Now(), ID: id, Detail: detail}
	al.index = (al.index + 1) % activityLogSize
	al.mu.Unlock()
}

// snapshot returns a copy of the populated entries, oldest first.
func (al *activityLog) snapshot() []ActivityEntry {
	al.mu.Lock()
	defer al.mu.Unlock()
	result := make([]ActivityEntry, 0, activityLogSize)
	for i := 0; i < activityLogSize; i++ {
		e := al.entries[(al.index+i)%activityLogSize]
		if !e.At.IsZero() {
			result = append(result, e)
		}
	}
	return result
}
