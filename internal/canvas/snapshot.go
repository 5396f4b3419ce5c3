// snapshot.go — Asynchronous snapshot pipeline.
// Discovers eligible canvases, deduplicates in-flight encode requests,
// applies the WebGL buffer-preservation workaround, and hands bitmaps to the
// encode worker. Worker replies become synthetic "clear + draw image"
// mutation events, so a snapshot replays as if freshly cleared and redrawn,
// independent of prior incremental mutation history.
package canvas

import (
	"fmt"
	"strconv"

	"github.com/ScreebApp/rrweb/internal/dom"
	"github.com/ScreebApp/rrweb/internal/encoder"
	"github.com/ScreebApp/rrweb/internal/types"
	"github.com/ScreebApp/rrweb/internal/util"
)

// SnapshotResult reports whether a snapshot pass dispatched captures or was
// self-throttled.
type SnapshotResult int

const (
	SnapshotTaken SnapshotResult = iota
	SnapshotThrottled
)

// String returns the result name.
func (r SnapshotResult) String() string {
	switch r {
	case SnapshotTaken:
		return "taken"
	case SnapshotThrottled:
		return "throttled"
	default:
		return "unknown"
	}
}

// Snapshot triggers a manual snapshot of one canvas, or of every eligible
// canvas when c is nil. With skipRequestAnimationFrame set the pipeline runs
// synchronously with the current time; otherwise it defers to the next
// animation frame.
func (m *Manager) Snapshot(c *dom.Canvas, skipRequestAnimationFrame bool) {
	if skipRequestAnimationFrame {
		m.takeSnapshot(m.nowMillis(), true, c)
		return
	}
	m.sched.RequestFrame(func(ts int64) {
		m.takeSnapshot(ts, true, c)
	})
}

// startSnapshotLoopLocked starts the self-rescheduling periodic snapshot
// loop. Started at most once per Reset cycle, and only when the registry has
// at least one window or shadow root — otherwise no canvas can ever be
// found. Caller must hold mu.
func (m *Manager) startSnapshotLoopLocked() {
	if m.snapshotLoopOn || !m.registry.hasTargets() {
		return
	}
	m.snapshotLoopOn = true
	stop := m.startLoop(func(ts int64) {
		m.takeSnapshot(ts, false, nil)
	})
	m.restoreHandlers = append(m.restoreHandlers, stop)
}

// takeSnapshot runs one snapshot pass.
//
// Non-manual passes self-throttle to the configured fps: when called within
// 1000/fps ms of the previous pass it returns SnapshotThrottled with no side
// effects. Eligible canvases are marked in-flight and their bitmaps captured
// off the frame goroutine, then posted to the worker. Dispatch is fire and
// forget: the pass does not wait for worker replies.
func (m *Manager) takeSnapshot(timestamp int64, manual bool, target *dom.Canvas) SnapshotResult {
	m.mu.Lock()
	if !manual && m.snapshotTaken && timestamp-m.lastSnapshotTime < m.opts.SnapshotInterval() {
		m.throttledSnapshots++
		m.mu.Unlock()
		return SnapshotThrottled
	}
	m.lastSnapshotTime = timestamp
	m.snapshotTaken = true

	var candidates []*dom.Canvas
	if target != nil {
		candidates = []*dom.Canvas{target}
	} else {
		candidates = m.discoverCanvasesLocked()
	}

	type dispatch struct {
		id         int
		c          *dom.Canvas
		clearColor bool
	}
	var dispatches []dispatch
	for _, c := range candidates {
		if !m.mirror.HasNode(c) {
			continue
		}
		if c.Width == 0 || c.Height == 0 {
			continue
		}
		id := m.mirror.GetID(c)
		if m.inFlight[id] {
			continue
		}
		m.inFlight[id] = true
		dispatches = append(dispatches, dispatch{
			id: id,
			c:  c,
			// Buffer-preservation workaround applies to non-manual snapshots
			// of WebGL canvases recorded without preserveDrawingBuffer.
			clearColor: !manual && c.Kind.IsWebGL() && !c.PreserveDrawingBuffer,
		})
	}
	m.ensureWorkerLocked()
	w := m.worker
	m.mu.Unlock()

	for _, d := range dispatches {
		m.dispatchCapture(w, d.id, d.c, d.clearColor)
	}
	if len(dispatches) > 0 {
		m.activity.add(ActivitySnapshot, 0, "dispatched "+strconv.Itoa(len(dispatches)))
	}
	return SnapshotTaken
}

// discoverCanvasesLocked walks every live document and shadow root and
// collects canvases not excluded by the block predicate. Dead weak entries
// are skipped; a cross-origin window is treated as having no document.
// Caller must hold mu.
func (m *Manager) discoverCanvasesLocked() []*dom.Canvas {
	var out []*dom.Canvas
	seen := make(map[*dom.Canvas]struct{})
	collect := func(canvases []*dom.Canvas) {
		for _, c := range canvases {
			if c == nil {
				continue
			}
			if _, dup := seen[c]; dup {
				continue
			}
			seen[c] = struct{}{}
			if dom.IsBlocked(c, m.opts.BlockClass, m.opts.BlockSelector, m.opts.UnblockSelector) {
				continue
			}
			out = append(out, c)
		}
	}
	m.registry.forEachLiveWindow(func(win *dom.Window) {
		doc, err := win.Document()
		if err != nil || doc == nil {
			return // cross-origin: no document available
		}
		collect(doc.Canvases())
	})
	m.registry.forEachLiveRoot(func(root *dom.ShadowRoot) {
		collect(root.Canvases())
	})
	return out
}

// dispatchCapture captures the canvas bitmap off the frame goroutine and
// posts it to the worker. Failures clear the in-flight flag for the id and
// surface through the error channel; the canvas is eligible again on the
// next cycle.
func (m *Manager) dispatchCapture(w *encoder.Worker, id int, c *dom.Canvas, clearColor bool) {
	width, height := c.Width, c.Height
	util.SafeGo(func() {
		if clearColor && c.ClearColorBuffer != nil {
			// Clearing the color buffer immediately before readback can
			// visibly wipe an uncommitted draw. Accepted: it is the only way
			// to reliably read the buffer when preserveDrawingBuffer is off.
			c.ClearColorBuffer()
		}
		if c.CaptureBitmap == nil {
			m.clearInFlight(id)
			m.fail(fmt.Errorf("canvas snapshot id %d: no capture source", id))
			return
		}
		bmp, err := c.CaptureBitmap()
		if err != nil {
			m.clearInFlight(id)
			m.fail(fmt.Errorf("canvas snapshot id %d: capturing bitmap: %w", id, err))
			return
		}
		ok := w.Post(types.EncodeRequest{
			ID:      id,
			Bitmap:  bmp,
			Width:   width,
			Height:  height,
			Options: m.opts.Encode,
			MaxSize: m.opts.MaxSnapshotSize,
		})
		if !ok {
			m.clearInFlight(id)
			m.fail(fmt.Errorf("canvas snapshot id %d: worker unavailable", id))
		}
	})
}

// ensureWorkerLocked lazily creates the encode worker and its reply pump.
// After Reset the next snapshot pass recreates both. Caller must hold mu.
func (m *Manager) ensureWorkerLocked() {
	if m.worker != nil {
		return
	}
	w := encoder.New()
	m.worker = w
	util.SafeGo(func() {
		// Pump exits when Terminate closes the response channel.
		for resp := range w.Responses() {
			m.handleReply(resp)
		}
	})
}

// handleReply turns one worker reply into a synthetic snapshot mutation
// event. An absent payload means the worker-side encode failed: in-flight is
// cleared and nothing is emitted.
func (m *Manager) handleReply(resp types.EncodeResponse) {
	m.mu.Lock()
	delete(m.inFlight, resp.ID)
	m.mu.Unlock()

	if resp.Base64 == "" {
		m.activity.add(ActivityWorkerReply, resp.ID, "encode failed")
		return
	}
	m.activity.add(ActivityWorkerReply, resp.ID, resp.Type)

	// clearRect spans the canvas's current dimensions; drawImage uses the
	// captured ones, so replay clears whatever is there now and redraws the
	// snapshot at its captured size.
	clearW, clearH := resp.Width, resp.Height
	if node := m.mirror.Node(resp.ID); node != nil {
		clearW, clearH = node.Width, node.Height
	}
	m.deliver(types.CanvasMutationEvent{
		ID:   resp.ID,
		Type: types.Context2D,
		Commands: []types.MutationCommand{
			{Property: "clearRect", Args: []any{0, 0, clearW, clearH}},
			{Property: "drawImage", Args: []any{
				types.ImagePayload{Base64: resp.Base64, Type: resp.Type},
				0, 0, resp.Width, resp.Height,
			}},
		},
	})
}

// clearInFlight marks id eligible for the next snapshot pass.
func (m *Manager) clearInFlight(id int) {
	m.mu.Lock()
	delete(m.inFlight, id)
	m.mu.Unlock()
}
