// doc.go — Package documentation for the canvas capture orchestrator.

// Package canvas implements the canvas capture orchestrator: it batches live
// canvas mutations into per-frame mutation events and runs the asynchronous
// snapshot pipeline that turns full-frame bitmaps into synthetic mutation
// events.
//
// Core functionality:
//   - Weak registration of windows and shadow roots (never extends lifetime)
//   - Per-canvas ordered mutation batching with per-frame flushing
//   - Freeze/lock gating: emission is inhibited, intake continues
//   - Snapshot pipeline with fps throttling, in-flight dedup, the WebGL
//     preserveDrawingBuffer workaround, and worker hand-off
//
// Scheduling is single-threaded cooperative: orchestration runs on frame
// callbacks from a frameclock.Scheduler, which interleave but never run in
// parallel with each other. The only true concurrency is the encode worker
// boundary (message passing, bitmap ownership transferred) and the bitmap
// capture step, which runs off the frame goroutine before dispatch.
//
// Nothing in this package is fatal to the host page: every failure path
// degrades to "skip this capture" and, where meaningful, is forwarded to the
// injected error handler.
package canvas
