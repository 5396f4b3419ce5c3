// observer.go — Attachment seam for the external mutation observers.
// The DOM/2D/WebGL instrumentation that detects individual canvas calls
// lives outside this package; it reports through the IntakeFunc handed to it
// here. Each attachment returns a restore handler collected for Reset.
package canvas

import "github.com/ScreebApp/rrweb/internal/dom"

// Observers holds the host's observer attachment hooks. Either hook may be
// nil. A hook is invoked once per newly registered target (unless
// manual-snapshot mode is configured) and returns a restore func that
// detaches the observer; nil restore funcs are ignored.
type Observers struct {
	Window     func(win *dom.Window, intake IntakeFunc) (restore func())
	ShadowRoot func(root *dom.ShadowRoot, intake IntakeFunc) (restore func())
}
