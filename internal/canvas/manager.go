// manager.go — Main Manager struct, lifecycle surface, and flush path.
// Manager composes the weak registry, pending mutation buffer, frame clock,
// and snapshot pipeline behind the public capture surface.
//
// All mutable state is protected by mu unless noted otherwise. Locks are
// released before invoking external callbacks (emit, observers, error
// handler). Sub-structs with their own locks: events (EventLog RWMutex),
// activity (own Mutex) — independent of Manager.mu.
package canvas

import (
	"sync"
	"time"

	"github.com/ScreebApp/rrweb/internal/buffers"
	"github.com/ScreebApp/rrweb/internal/config"
	"github.com/ScreebApp/rrweb/internal/dom"
	"github.com/ScreebApp/rrweb/internal/encoder"
	"github.com/ScreebApp/rrweb/internal/frameclock"
	"github.com/ScreebApp/rrweb/internal/mirror"
	"github.com/ScreebApp/rrweb/internal/types"
)

// EventFunc receives one emitted mutation event. Invoked off the Manager's
// lock; may do I/O.
type EventFunc func(types.CanvasMutationEvent)

// ErrorFunc is the injected error channel. All recoverable internal failures
// are forwarded here rather than thrown into caller code.
type ErrorFunc func(error)

// IntakeFunc is the mutation-intake callback handed to external observers.
type IntakeFunc func(c *dom.Canvas, rec types.MutationRecord)

// Deps wires the Manager's external collaborators. Mirror and Scheduler are
// created internally when nil; Emit and OnError may be nil (events are then
// only retained in the event log).
type Deps struct {
	Mirror    *mirror.Mirror
	Scheduler frameclock.Scheduler
	Emit      EventFunc
	OnError   ErrorFunc
	Observers Observers
}

// Manager is the canvas capture orchestrator.
type Manager struct {
	mu sync.Mutex

	// Immutable after construction.
	opts      config.Options
	mirror    *mirror.Mirror
	sched     frameclock.Scheduler
	emit      EventFunc
	onError   ErrorFunc
	observers Observers

	// ============================================
	// Pending Mutations & Frame Stamps
	// ============================================

	pending *pendingBuffer
	stamps  frameclock.Stamps

	// ============================================
	// Weak Registry & Snapshot State
	// ============================================

	registry *registry
	inFlight map[int]bool

	worker           *encoder.Worker // nil until first snapshot dispatch or after Reset
	snapshotLoopOn   bool
	lastSnapshotTime int64
	snapshotTaken    bool // lastSnapshotTime is meaningful (first snapshot may be at t=0)

	// ============================================
	// Gates
	// ============================================

	// frozen and locked are independent gates checked only at flush time.
	// Both must be clear for emission; intake continues while gated.
	frozen bool
	locked bool

	// restoreHandlers are teardown funcs run and discarded by Reset.
	restoreHandlers []func()

	// ============================================
	// Observability (Own Locks)
	// ============================================

	events   *buffers.EventLog // emitted-event ring, has own RWMutex
	activity activityLog       // circular activity log, has own Mutex

	framesSeen         int64
	eventsEmitted      int64
	droppedNoID        int64
	throttledSnapshots int64
}

// NewManager creates a Manager, starts the frame-stamp loop and, in "all"
// sampling mode, the per-frame flush loop. Periodic snapshot loops start
// lazily once a window or shadow root is registered.
func NewManager(opts config.Options, deps Deps) (*Manager, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	m := &Manager{
		opts:      opts,
		mirror:    deps.Mirror,
		sched:     deps.Scheduler,
		emit:      deps.Emit,
		onError:   deps.OnError,
		observers: deps.Observers,
		pending:   newPendingBuffer(opts.PendingCap),
		registry:  newRegistry(),
		inFlight:  make(map[int]bool),
		events:    buffers.NewEventLog(opts.EventLogCapacity),
		activity:  newActivityLog(),
	}
	if m.mirror == nil {
		m.mirror = mirror.New()
	}
	if m.sched == nil {
		ts := frameclock.NewTicker(opts.FrameInterval)
		m.sched = ts
		m.addRestoreHandler(ts.Stop)
	}

	m.addRestoreHandler(m.startLoop(m.markFrame))
	if opts.Sampling.All && !opts.ManualSnapshot {
		m.startFlushLoop()
	}
	return m, nil
}

// Mirror returns the identity mirror shared with the host's observers.
func (m *Manager) Mirror() *mirror.Mirror { return m.mirror }

// markFrame stamps one frame tick.
func (m *Manager) markFrame(ts int64) {
	m.mu.Lock()
	m.stamps.MarkFrame(ts)
	m.framesSeen++
	m.mu.Unlock()
}

// startFlushLoop schedules one FlushAll per animation frame, indefinitely,
// until Reset runs the registered teardown.
func (m *Manager) startFlushLoop() {
	m.addRestoreHandler(m.startLoop(func(int64) { m.FlushAll() }))
}

// startLoop runs fn once per frame via self-rescheduling and returns a stop
// func. Stopping cancels the outstanding frame request.
func (m *Manager) startLoop(run func(ts int64)) (stop func()) {
	var loopMu sync.Mutex
	var cancel func()
	stopped := false

	var tick frameclock.FrameFunc
	tick = func(ts int64) {
		loopMu.Lock()
		dead := stopped
		loopMu.Unlock()
		if dead {
			return
		}
		run(ts)
		loopMu.Lock()
		if !stopped {
			cancel = m.sched.RequestFrame(tick)
		}
		loopMu.Unlock()
	}

	loopMu.Lock()
	cancel = m.sched.RequestFrame(tick)
	loopMu.Unlock()

	return func() {
		loopMu.Lock()
		stopped = true
		if cancel != nil {
			cancel()
		}
		loopMu.Unlock()
	}
}

// addRestoreHandler registers a teardown handler run (and discarded) by the
// next Reset.
func (m *Manager) addRestoreHandler(h func()) {
	if h == nil {
		return
	}
	m.mu.Lock()
	m.restoreHandlers = append(m.restoreHandlers, h)
	m.mu.Unlock()
}

// ============================================================================
// Intake & flush
// ============================================================================

// Intake is the mutation-intake callback invoked by external observers for
// each recorded canvas API call. It must not block: work is limited to the
// frame-stamp update and an append to the pending buffer. Intake continues
// while frozen or locked.
func (m *Manager) Intake(c *dom.Canvas, rec types.MutationRecord) {
	if c == nil {
		return
	}
	m.mu.Lock()
	m.stamps.TouchInvoke()
	m.pending.add(c, rec)
	m.mu.Unlock()
}

// FlushAll drains every pending canvas queue into emitted events. Records
// for one canvas flush in intake order; canvases flush independently of each
// other. A no-op while frozen or locked.
func (m *Manager) FlushAll() {
	m.mu.Lock()
	var out []types.CanvasMutationEvent
	for _, c := range m.pending.canvases() {
		if ev, ok := m.flushOneLocked(c); ok {
			out = append(out, ev)
		}
	}
	m.mu.Unlock()

	if len(out) > 0 {
		m.activity.add(ActivityFlush, 0, "")
	}
	for _, ev := range out {
		m.deliver(ev)
	}
}

// flushOneLocked drains one canvas's queue into an event. No-op while frozen
// or locked (the entry is retained). An identity with no valid external id
// is dropped without emission: the node is presumed removed from the tracked
// tree. Caller must hold mu.
func (m *Manager) flushOneLocked(c *dom.Canvas) (types.CanvasMutationEvent, bool) {
	if m.frozen || m.locked {
		return types.CanvasMutationEvent{}, false
	}
	records := m.pending.take(c)
	if len(records) == 0 {
		return types.CanvasMutationEvent{}, false
	}
	id := m.mirror.GetID(c)
	if id == mirror.UnknownID {
		m.droppedNoID++
		m.activity.add(ActivityDrop, 0, "unresolvable identity")
		return types.CanvasMutationEvent{}, false
	}
	commands := make([]types.MutationCommand, len(records))
	for i, rec := range records {
		commands[i] = rec.Command
	}
	return types.CanvasMutationEvent{ID: id, Type: records[0].Type, Commands: commands}, true
}

// deliver appends ev to the event log and hands it to the consuming
// pipeline. Called without mu held.
func (m *Manager) deliver(ev types.CanvasMutationEvent) {
	m.events.Append(ev)
	m.mu.Lock()
	m.eventsEmitted++
	m.mu.Unlock()
	if m.emit != nil {
		m.emit(ev)
	}
}

// ============================================================================
// Gates
// ============================================================================

// Freeze inhibits flush emission. Intake continues; pending mutations
// accumulate until Unfreeze.
func (m *Manager) Freeze() {
	m.mu.Lock()
	m.frozen = true
	m.mu.Unlock()
}

// Unfreeze clears the freeze gate. Accumulated mutations flush, untruncated,
// on the next cycle.
func (m *Manager) Unfreeze() {
	m.mu.Lock()
	m.frozen = false
	m.mu.Unlock()
}

// Lock inhibits flush emission. A separate gate with semantics identical to
// Freeze; both must be clear for emission to proceed.
func (m *Manager) Lock() {
	m.mu.Lock()
	m.locked = true
	m.mu.Unlock()
}

// Unlock clears the lock gate.
func (m *Manager) Unlock() {
	m.mu.Lock()
	m.locked = false
	m.mu.Unlock()
}

// Frozen reports the freeze gate.
func (m *Manager) Frozen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frozen
}

// Locked reports the lock gate.
func (m *Manager) Locked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.locked
}

// ============================================================================
// Registration
// ============================================================================

// AddWindow registers a window for capture unless already registered.
// Unless manual-snapshot mode is configured, the external observers are
// attached to the new window and, in periodic-snapshot mode, the snapshot
// loop is started.
func (m *Manager) AddWindow(win *dom.Window) {
	if win == nil {
		return
	}
	m.mu.Lock()
	if !m.registry.addWindow(win) {
		m.mu.Unlock()
		return
	}
	manual := m.opts.ManualSnapshot
	if !manual && !m.opts.Sampling.All {
		m.startSnapshotLoopLocked()
	}
	m.mu.Unlock()

	if !manual && m.observers.Window != nil {
		m.addRestoreHandler(m.observers.Window(win, m.Intake))
	}
}

// AddShadowRoot registers a shadow root for capture. Shadow roots are never
// deduplicated.
func (m *Manager) AddShadowRoot(root *dom.ShadowRoot) {
	if root == nil {
		return
	}
	m.mu.Lock()
	m.registry.addShadowRoot(root)
	manual := m.opts.ManualSnapshot
	if !manual && !m.opts.Sampling.All {
		m.startSnapshotLoopLocked()
	}
	m.mu.Unlock()

	if !manual && m.observers.ShadowRoot != nil {
		m.addRestoreHandler(m.observers.ShadowRoot(root, m.Intake))
	}
}

// ResetShadowRoots clears shadow-root tracking only.
func (m *Manager) ResetShadowRoots() {
	m.mu.Lock()
	m.registry.resetShadowRoots()
	m.mu.Unlock()
}

// ============================================================================
// Reset
// ============================================================================

// Reset returns the Manager to its just-constructed state: the pending
// buffer and frame stamps are cleared, every registered teardown handler is
// run and discarded (a failing handler never blocks the rest), the weak
// registry and in-flight map are cleared, and the worker is terminated and
// dropped. Idempotent. The freeze/lock gates are left as set.
func (m *Manager) Reset() {
	m.mu.Lock()
	m.pending.clear()
	m.stamps.Reset()
	handlers := m.restoreHandlers
	m.restoreHandlers = nil
	m.registry.reset()
	m.inFlight = make(map[int]bool)
	w := m.worker
	m.worker = nil
	m.snapshotLoopOn = false
	m.lastSnapshotTime = 0
	m.snapshotTaken = false
	m.mu.Unlock()

	for _, h := range handlers {
		runRestoreHandler(h)
	}
	if w != nil {
		w.Terminate()
	}
	m.events.Clear()
	m.activity.add(ActivityReset, 0, "")
}

// runRestoreHandler runs one teardown handler with panic recovery so one
// failing handler does not block the remaining teardown.
func runRestoreHandler(h func()) {
	defer func() { _ = recover() }()
	h()
}

// ============================================================================
// Observability
// ============================================================================

// Stats is a point-in-time view of orchestrator state for health reporting.
type Stats struct {
	PendingCanvases    int
	PendingRecords     int
	CapDropped         int64
	InFlight           int
	LiveWindows        int
	LiveShadowRoots    int
	FramesSeen         int64
	EventsEmitted      int64
	DroppedNoID        int64
	ThrottledSnapshots int64
	Frozen             bool
	Locked             bool
	WorkerActive       bool
}

// Stats returns a thread-safe snapshot of orchestrator state.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	wins, roots := m.registry.liveCounts()
	inFlight := 0
	for _, v := range m.inFlight {
		if v {
			inFlight++
		}
	}
	return Stats{
		PendingCanvases:    m.pending.len(),
		PendingRecords:     m.pending.records(),
		CapDropped:         m.pending.capDropped,
		InFlight:           inFlight,
		LiveWindows:        wins,
		LiveShadowRoots:    roots,
		FramesSeen:         m.framesSeen,
		EventsEmitted:      m.eventsEmitted,
		DroppedNoID:        m.droppedNoID,
		ThrottledSnapshots: m.throttledSnapshots,
		Frozen:             m.frozen,
		Locked:             m.locked,
		WorkerActive:       m.worker != nil,
	}
}

// ReadEvents reads emitted events from the given cursor. Delegates to the
// event log.
func (m *Manager) ReadEvents(cursor buffers.Cursor) ([]types.CanvasMutationEvent, buffers.Cursor) {
	return m.events.ReadFrom(cursor)
}

// LastEvents returns the last n emitted events, oldest first.
func (m *Manager) LastEvents(n int) []types.CanvasMutationEvent {
	return m.events.ReadLast(n)
}

// Activity returns a copy of the recent activity log, oldest first.
func (m *Manager) Activity() []ActivityEntry {
	return m.activity.snapshot()
}

// nowMillis returns the current time on the scheduler's frame-timestamp
// origin when available, so throttle comparisons never mix origins.
func (m *Manager) nowMillis() int64 {
	if c, ok := m.sched.(frameclock.Clock); ok {
		return c.Now()
	}
	return time.Now().UnixMilli()
}
