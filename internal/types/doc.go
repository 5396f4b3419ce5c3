// doc.go — Package documentation for foundational cross-cutting types.

// Package types provides the foundational types for the canvas capture
// subsystem.
//
// This package contains the type definitions shared by multiple packages:
//   - Mutation types (commands, records, emitted mutation events)
//   - Encode worker protocol types (requests, responses, options)
//
// Design Principle: Zero Third-Party Dependencies
// This package imports only the Go standard library. It is safe to import
// from any other package without creating circular dependencies. All other
// packages should import from types for canonical type definitions.
//
// Architecture Layer: Foundation
// types is the foundation layer in a 4-layer architecture:
//
//	Layer 1: types (zero deps) ← YOU ARE HERE
//	Layer 2: host-model packages (dom, mirror, weakref, frameclock)
//	Layer 3: domain packages (buffers, encoder, config, sink)
//	Layer 4: orchestration (canvas)
//
// This layering ensures dependency flows only downward, preventing circular
// imports.
package types
