// registry.go — Weak tracking of observed windows and shadow roots.
// Registration never extends a target's lifetime: iteration goes through
// weak references and silently skips collected targets. Dead entries are
// pruned lazily, never removed except on full reset. Not synchronized:
// owned by Manager and guarded by Manager.mu.
package canvas

import (
	"github.com/ScreebApp/rrweb/internal/dom"
	"github.com/ScreebApp/rrweb/internal/weakref"
)

type registry struct {
	windows []weakref.Ref[dom.Window]

	// windowSet deduplicates window registration. Refs are comparable and
	// non-retaining, so membership testing never keeps a window alive. Used
	// only for the membership test, never for iteration.
	windowSet map[weakref.Ref[dom.Window]]struct{}

	// Shadow roots are not deduplicated.
	shadowRoots []weakref.Ref[dom.ShadowRoot]
}

func newRegistry() *registry {
	return &registry{
		windowSet: make(map[weakref.Ref[dom.Window]]struct{}),
	}
}

// addWindow registers win unless already registered. Returns false for
// duplicates.
func (r *registry) addWindow(win *dom.Window) bool {
	ref := weakref.Make(win)
	if _, ok := r.windowSet[ref]; ok {
		return false
	}
	r.windowSet[ref] = struct{}{}
	r.windows = append(r.windows, ref)
	return true
}

// addShadowRoot unconditionally registers root.
func (r *registry) addShadowRoot(root *dom.ShadowRoot) {
	r.shadowRoots = append(r.shadowRoots, weakref.Make(root))
}

// forEachLiveWindow invokes fn for every window still alive.
func (r *registry) forEachLiveWindow(fn func(*dom.Window)) {
	for _, ref := range r.windows {
		if win := ref.Deref(); win != nil {
			fn(win)
		}
	}
}

// forEachLiveRoot invokes fn for every shadow root still alive.
func (r *registry) forEachLiveRoot(fn func(*dom.ShadowRoot)) {
	for _, ref := range r.shadowRoots {
		if root := ref.Deref(); root != nil {
			fn(root)
		}
	}
}

// hasTargets reports whether at least one live window or shadow root is
// registered. The periodic snapshot loop is pointless without one.
func (r *registry) hasTargets() bool {
	for _, ref := range r.windows {
		if ref.Deref() != nil {
			return true
		}
	}
	for _, ref := range r.shadowRoots {
		if ref.Deref() != nil {
			return true
		}
	}
	return false
}

// liveCounts returns the number of live windows and shadow roots.
func (r *registry) liveCounts() (windows, roots int) {
	for _, ref := range r.windows {
		if ref.Deref() != nil {
			windows++
		}
	}
	for _, ref := range r.shadowRoots {
		if ref.Deref() != nil {
			roots++
		}
	}
	return windows, roots
}

// resetShadowRoots clears shadow-root tracking only.
func (r *registry) resetShadowRoots() {
	r.shadowRoots = nil
}

// reset clears all tracking.
func (r *registry) reset() {
	r.windows = nil
	r.windowSet = make(map[weakref.Ref[dom.Window]]struct{})
	r.shadowRoots = nil
}
