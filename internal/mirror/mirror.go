// mirror.go — Identity mirror mapping canvas elements to stable numeric ids.
// Emitted events and the snapshot in-flight map key off these ids, never off
// the raw element. Thread-safe: own sync.RWMutex.
package mirror

import (
	"sync"

	"github.com/ScreebApp/rrweb/internal/dom"
)

// UnknownID is returned by GetID for nodes the mirror does not track.
const UnknownID = -1

// Mirror assigns stable numeric ids to observed canvas elements. Ids are
// never reused within one Mirror's lifetime, even after Remove.
type Mirror struct {
	mu     sync.RWMutex
	ids    map[*dom.Canvas]int
	nodes  map[int]*dom.Canvas
	nextID int
}

// New creates an empty Mirror. Ids start at 1; 0 is never assigned.
func New() *Mirror {
	return &Mirror{
		ids:    make(map[*dom.Canvas]int),
		nodes:  make(map[int]*dom.Canvas),
		nextID: 1,
	}
}

// Add registers c and returns its id. Idempotent: re-adding a tracked node
// returns the existing id.
func (m *Mirror) Add(c *dom.Canvas) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.ids[c]; ok {
		return id
	}
	id := m.nextID
	m.nextID++
	m.ids[c] = id
	m.nodes[id] = c
	return id
}

// HasNode reports whether c is tracked.
func (m *Mirror) HasNode(c *dom.Canvas) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.ids[c]
	return ok
}

// GetID returns c's id, or UnknownID when c is not tracked.
func (m *Mirror) GetID(c *dom.Canvas) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id, ok := m.ids[c]; ok {
		return id
	}
	return UnknownID
}

// Node returns the canvas tracked under id, or nil.
func (m *Mirror) Node(id int) *dom.Canvas {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nodes[id]
}

// Remove drops c from the mirror. Its id is retired, not reused.
func (m *Mirror) Remove(c *dom.Canvas) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.ids[c]; ok {
		delete(m.ids, c)
		delete(m.nodes, id)
	}
}

// Len returns the number of tracked nodes.
func (m *Mirror) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ids)
}

// Reset drops all tracked nodes. The id counter keeps advancing so ids stay
// unique across resets.
func (m *Mirror) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids = make(map[*dom.Canvas]int)
	m.nodes = make(map[int]*dom.Canvas)
}
