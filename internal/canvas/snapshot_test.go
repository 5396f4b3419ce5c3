package canvas

import (
	"errors"
	"image"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ScreebApp/rrweb/internal/config"
	"github.com/ScreebApp/rrweb/internal/dom"
	"github.com/ScreebApp/rrweb/internal/types"
)

// waitForActivity polls the activity log for an entry of the given kind.
func waitForActivity(t *testing.T, m *Manager, kind ActivityKind, detail string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		for _, e := range m.Activity() {
			if e.Kind == kind && (detail == "" || e.Detail == detail) {
				return
			}
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s activity, log: %+v", kind, m.Activity())
}

// TestSnapshotThrottling verifies periodic passes self-throttle to the
// configured fps. At 2 fps (500ms interval): a pass at t=0 runs, t=400 is
// throttled, t=600 runs.
func TestSnapshotThrottling(t *testing.T) {
	t.Parallel()
	m, _, _ := newTestManager(t, nil)

	if res := m.takeSnapshot(0, false, nil); res != SnapshotTaken {
		t.Fatalf("Expected first pass at t=0 taken, got %v", res)
	}
	if res := m.takeSnapshot(400, false, nil); res != SnapshotThrottled {
		t.Fatalf("Expected t=400 throttled, got %v", res)
	}
	if res := m.takeSnapshot(600, false, nil); res != SnapshotTaken {
		t.Fatalf("Expected t=600 taken, got %v", res)
	}
	if got := m.Stats().ThrottledSnapshots; got != 1 {
		t.Errorf("Expected 1 throttled pass in stats, got %d", got)
	}
}

// TestManualSnapshotBypassesThrottle verifies manual passes ignore the fps
// throttle.
func TestManualSnapshotBypassesThrottle(t *testing.T) {
	t.Parallel()
	m, _, _ := newTestManager(t, nil)

	if res := m.takeSnapshot(0, false, nil); res != SnapshotTaken {
		t.Fatalf("Expected first pass taken, got %v", res)
	}
	if res := m.takeSnapshot(100, true, nil); res != SnapshotTaken {
		t.Fatalf("Expected manual pass taken despite throttle window, got %v", res)
	}
}

// TestSnapshotEmitsSyntheticEvent runs the full pipeline: discovery through a
// registered window, capture, worker encode, and the synthetic clear-and-draw
// event on the reply.
func TestSnapshotEmitsSyntheticEvent(t *testing.T) {
	t.Parallel()
	m, _, col := newTestManager(t, func(o *config.Options) { o.ManualSnapshot = true })
	c := testCanvas(64, 32)
	id := m.Mirror().Add(c)
	win := dom.NewWindow(dom.NewDocument(c))
	m.AddWindow(win)

	m.Snapshot(nil, true)
	ev := col.waitEvent(t)
	runtime.KeepAlive(win)

	if ev.ID != id || ev.Type != types.Context2D {
		t.Fatalf("Expected id=%d 2d event, got %+v", id, ev)
	}
	if len(ev.Commands) != 2 {
		t.Fatalf("Expected clear and draw commands, got %+v", ev.Commands)
	}
	clear, draw := ev.Commands[0], ev.Commands[1]
	if clear.Property != "clearRect" {
		t.Errorf("Expected clearRect first, got %q", clear.Property)
	}
	if len(clear.Args) != 4 || clear.Args[2] != 64 || clear.Args[3] != 32 {
		t.Errorf("Expected clearRect over 64x32, got %v", clear.Args)
	}
	if draw.Property != "drawImage" || len(draw.Args) != 5 {
		t.Fatalf("Expected 5-arg drawImage, got %+v", draw)
	}
	payload, ok := draw.Args[0].(types.ImagePayload)
	if !ok {
		t.Fatalf("Expected ImagePayload first arg, got %T", draw.Args[0])
	}
	if payload.Type != types.ImagePNG || payload.Base64 == "" {
		t.Errorf("Expected non-empty PNG payload, got type=%q len=%d", payload.Type, len(payload.Base64))
	}
	if draw.Args[3] != 64 || draw.Args[4] != 32 {
		t.Errorf("Expected drawImage at captured 64x32, got %v", draw.Args)
	}
	if got := m.Stats().InFlight; got != 0 {
		t.Errorf("Expected in-flight cleared after reply, got %d", got)
	}
}

// TestClearRectUsesCurrentDimensions verifies the synthetic clearRect spans
// the canvas's dimensions at reply time while drawImage keeps the captured
// ones.
func TestClearRectUsesCurrentDimensions(t *testing.T) {
	t.Parallel()
	m, _, col := newTestManager(t, func(o *config.Options) { o.ManualSnapshot = true })
	gate := make(chan struct{})
	c := &dom.Canvas{
		Width:  40,
		Height: 20,
		CaptureBitmap: func() (*image.RGBA, error) {
			<-gate
			return image.NewRGBA(image.Rect(0, 0, 40, 20)), nil
		},
	}
	m.Mirror().Add(c)

	m.Snapshot(c, true)
	// Resize while the capture is still in flight. The gate orders the
	// writes before the reply-side read.
	c.Width, c.Height = 80, 40
	close(gate)
	ev := col.waitEvent(t)

	clear, draw := ev.Commands[0], ev.Commands[1]
	if clear.Args[2] != 80 || clear.Args[3] != 40 {
		t.Errorf("Expected clearRect over current 80x40, got %v", clear.Args)
	}
	if draw.Args[3] != 40 || draw.Args[4] != 20 {
		t.Errorf("Expected drawImage at captured 40x20, got %v", draw.Args)
	}
}

// TestInFlightDeduplication verifies a canvas with an unanswered encode
// request is skipped by later passes.
func TestInFlightDeduplication(t *testing.T) {
	t.Parallel()
	m, _, col := newTestManager(t, func(o *config.Options) { o.ManualSnapshot = true })
	gate := make(chan struct{})
	var captures atomic.Int32
	c := &dom.Canvas{
		Width:  10,
		Height: 10,
		CaptureBitmap: func() (*image.RGBA, error) {
			captures.Add(1)
			<-gate
			return image.NewRGBA(image.Rect(0, 0, 10, 10)), nil
		},
	}
	m.Mirror().Add(c)

	m.Snapshot(c, true)
	waitForStats(t, m, func(st Stats) bool { return st.InFlight == 1 })
	m.Snapshot(c, true) // skipped: still in flight

	close(gate)
	col.waitEvent(t)
	waitForStats(t, m, func(st Stats) bool { return st.InFlight == 0 })

	if got := captures.Load(); got != 1 {
		t.Errorf("Expected a single capture, got %d", got)
	}
	if got := len(col.all()); got != 1 {
		t.Errorf("Expected a single emitted event, got %d", got)
	}
}

// TestCaptureFailureClearsInFlight verifies capture errors surface through
// the error channel and free the canvas for the next pass.
func TestCaptureFailureClearsInFlight(t *testing.T) {
	t.Parallel()
	m, _, col := newTestManager(t, func(o *config.Options) { o.ManualSnapshot = true })
	c := &dom.Canvas{
		Width:  10,
		Height: 10,
		CaptureBitmap: func() (*image.RGBA, error) {
			return nil, errors.New("context lost")
		},
	}
	m.Mirror().Add(c)

	m.Snapshot(c, true)
	waitForStats(t, m, func(st Stats) bool { return st.InFlight == 0 })

	if col.errCount() != 1 {
		t.Errorf("Expected 1 reported error, got %d", col.errCount())
	}
	if len(col.all()) != 0 {
		t.Errorf("Expected no emitted events, got %d", len(col.all()))
	}
}

// TestMissingCaptureSourceReported verifies a tracked canvas the host cannot
// capture produces an error, not a hang.
func TestMissingCaptureSourceReported(t *testing.T) {
	t.Parallel()
	m, _, col := newTestManager(t, func(o *config.Options) { o.ManualSnapshot = true })
	c := &dom.Canvas{Width: 10, Height: 10}
	m.Mirror().Add(c)

	m.Snapshot(c, true)
	waitForStats(t, m, func(st Stats) bool { return st.InFlight == 0 })
	if col.errCount() != 1 {
		t.Errorf("Expected 1 reported error, got %d", col.errCount())
	}
}

// TestEncodeFailureEmitsNothing verifies a worker reply with no payload is a
// non-fatal skip: in-flight clears, nothing is emitted, no error raised.
func TestEncodeFailureEmitsNothing(t *testing.T) {
	t.Parallel()
	m, _, col := newTestManager(t, func(o *config.Options) { o.ManualSnapshot = true })
	c := &dom.Canvas{
		Width:  10,
		Height: 10,
		CaptureBitmap: func() (*image.RGBA, error) {
			return nil, nil // readback produced nothing
		},
	}
	m.Mirror().Add(c)

	m.Snapshot(c, true)
	waitForActivity(t, m, ActivityWorkerReply, "encode failed")
	waitForStats(t, m, func(st Stats) bool { return st.InFlight == 0 })

	if len(col.all()) != 0 {
		t.Errorf("Expected no emitted events, got %d", len(col.all()))
	}
	if col.errCount() != 0 {
		t.Errorf("Expected no errors for a worker-side skip, got %d", col.errCount())
	}
}

// TestDiscoverySkipsIneligibleCanvases verifies discovery passes over
// blocked, zero-sized, and untracked canvases.
func TestDiscoverySkipsIneligibleCanvases(t *testing.T) {
	t.Parallel()
	m, _, col := newTestManager(t, func(o *config.Options) {
		o.ManualSnapshot = true
		o.BlockClass = "rr-block"
	})

	var blockedCaptured, zeroCaptured atomic.Bool
	blocked := testCanvas(10, 10)
	blocked.Classes = []string{"rr-block"}
	blocked.CaptureBitmap = func() (*image.RGBA, error) {
		blockedCaptured.Store(true)
		return nil, nil
	}
	zero := testCanvas(0, 10)
	zero.CaptureBitmap = func() (*image.RGBA, error) {
		zeroCaptured.Store(true)
		return nil, nil
	}
	untracked := testCanvas(10, 10)
	good := testCanvas(10, 10)

	m.Mirror().Add(blocked)
	m.Mirror().Add(zero)
	goodID := m.Mirror().Add(good)
	win := dom.NewWindow(dom.NewDocument(blocked, zero, untracked, good))
	m.AddWindow(win)

	m.Snapshot(nil, true)
	ev := col.waitEvent(t)
	runtime.KeepAlive(win)

	if ev.ID != goodID {
		t.Errorf("Expected only the eligible canvas captured, got id %d", ev.ID)
	}
	if blockedCaptured.Load() || zeroCaptured.Load() {
		t.Error("Expected blocked and zero-sized canvases to be skipped")
	}
	if len(col.all()) != 1 {
		t.Errorf("Expected 1 event, got %d", len(col.all()))
	}
}

// TestCrossOriginWindowHasNoCanvases verifies a cross-origin window is
// treated as empty rather than failing the pass.
func TestCrossOriginWindowHasNoCanvases(t *testing.T) {
	t.Parallel()
	m, _, col := newTestManager(t, func(o *config.Options) { o.ManualSnapshot = true })
	win := dom.NewCrossOriginWindow()
	m.AddWindow(win)

	if res := m.takeSnapshot(0, true, nil); res != SnapshotTaken {
		t.Fatalf("Expected pass to complete, got %v", res)
	}
	runtime.KeepAlive(win)
	if st := m.Stats(); st.InFlight != 0 {
		t.Errorf("Expected no dispatches, got %d in flight", st.InFlight)
	}
	if col.errCount() != 0 {
		t.Errorf("Expected no errors, got %d", col.errCount())
	}
}

// TestWebGLColorBufferWorkaround verifies periodic passes clear the color
// buffer of WebGL canvases recorded without preserveDrawingBuffer, and leave
// preserved or manually snapshotted ones alone.
func TestWebGLColorBufferWorkaround(t *testing.T) {
	t.Parallel()
	m, _, col := newTestManager(t, nil)

	newGL := func(preserve bool) (*dom.Canvas, *atomic.Bool) {
		var cleared atomic.Bool
		c := &dom.Canvas{
			Width:                 8,
			Height:                8,
			Kind:                  types.ContextWebGL,
			PreserveDrawingBuffer: preserve,
			ClearColorBuffer:      func() { cleared.Store(true) },
			CaptureBitmap: func() (*image.RGBA, error) {
				return image.NewRGBA(image.Rect(0, 0, 8, 8)), nil
			},
		}
		return c, &cleared
	}

	unpreserved, clearedA := newGL(false)
	preserved, clearedB := newGL(true)
	m.Mirror().Add(unpreserved)
	m.Mirror().Add(preserved)
	win := dom.NewWindow(dom.NewDocument(unpreserved, preserved))
	m.AddWindow(win)

	m.takeSnapshot(0, false, nil)
	col.waitEvent(t)
	col.waitEvent(t)
	runtime.KeepAlive(win)

	if !clearedA.Load() {
		t.Error("Expected color buffer cleared for unpreserved WebGL canvas")
	}
	if clearedB.Load() {
		t.Error("Expected preserveDrawingBuffer canvas left alone")
	}

	// Manual snapshots never clear.
	manual, clearedC := newGL(false)
	m.Mirror().Add(manual)
	m.Snapshot(manual, true)
	col.waitEvent(t)
	if clearedC.Load() {
		t.Error("Expected manual snapshot to skip the clear workaround")
	}
}

// TestSnapshotDefersToNextFrame verifies Snapshot without the skip flag waits
// for the next animation frame.
func TestSnapshotDefersToNextFrame(t *testing.T) {
	t.Parallel()
	m, sched, col := newTestManager(t, func(o *config.Options) { o.ManualSnapshot = true })
	c := testCanvas(10, 10)
	m.Mirror().Add(c)

	m.Snapshot(c, false)
	if len(col.all()) != 0 || m.Stats().InFlight != 0 {
		t.Fatal("Expected no dispatch before the frame fires")
	}
	sched.Step(16)
	ev := col.waitEvent(t)
	if ev.ID != m.Mirror().GetID(c) {
		t.Errorf("Unexpected event: %+v", ev)
	}
}

// TestWorkerRecreatedAfterReset verifies Reset terminates the worker and a
// later snapshot lazily recreates it.
func TestWorkerRecreatedAfterReset(t *testing.T) {
	t.Parallel()
	m, _, col := newTestManager(t, func(o *config.Options) { o.ManualSnapshot = true })
	c := testCanvas(10, 10)
	m.Mirror().Add(c)

	m.Snapshot(c, true)
	col.waitEvent(t)
	if !m.Stats().WorkerActive {
		t.Fatal("Expected an active worker after first snapshot")
	}

	m.Reset()
	if m.Stats().WorkerActive {
		t.Fatal("Expected worker terminated by reset")
	}

	m.Mirror().Add(c) // reset did not touch the shared mirror
	m.Snapshot(c, true)
	ev := col.waitEvent(t)
	if ev.ID != m.Mirror().GetID(c) {
		t.Errorf("Unexpected post-reset event: %+v", ev)
	}
	if !m.Stats().WorkerActive {
		t.Error("Expected worker recreated on demand")
	}
}
