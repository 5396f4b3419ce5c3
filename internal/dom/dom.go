// dom.go — Host-page object model observed by the capture subsystem.
// Windows, documents, shadow roots, and canvases are constructed and owned by
// the embedding host; this package never extends their lifetime.
package dom

import (
	"errors"
	"image"

	"github.com/ScreebApp/rrweb/internal/types"
)

// ErrSecurity is returned by Window.Document for cross-origin windows.
// Callers treat it as "no document available", never as a failure.
var ErrSecurity = errors.New("dom: cross-origin document access denied")

// Canvas models one observed <canvas> element. Fields reflect the element's
// state as reported by the host's instrumentation layer.
type Canvas struct {
	Width  int
	Height int

	// Kind is the rendering context the element was observed with.
	Kind types.ContextKind

	// PreserveDrawingBuffer mirrors the WebGL context attribute. When false,
	// the color buffer must be cleared immediately before readback or the
	// capture may see stale contents.
	PreserveDrawingBuffer bool

	// Classes and Selectors describe the element for block-predicate
	// matching: the element's class list and the CSS selectors it matches.
	Classes   []string
	Selectors []string

	// CaptureBitmap reads back the canvas contents. Nil for canvases the
	// host cannot capture. Called off the capture thread; may be slow.
	CaptureBitmap func() (*image.RGBA, error)

	// ClearColorBuffer clears the WebGL color buffer. Nil for 2D canvases.
	ClearColorBuffer func()
}

// HasClass reports whether the element's class list contains class.
func (c *Canvas) HasClass(class string) bool {
	for _, cl := range c.Classes {
		if cl == class {
			return true
		}
	}
	return false
}

// MatchesSelector reports whether the element matches the CSS selector.
func (c *Canvas) MatchesSelector(selector string) bool {
	for _, s := range c.Selectors {
		if s == selector {
			return true
		}
	}
	return false
}

// Document models one browser document and the canvases reachable from it.
type Document struct {
	canvases []*Canvas
}

// NewDocument creates a document containing the given canvases.
func NewDocument(canvases ...*Canvas) *Document {
	return &Document{canvases: canvases}
}

// AddCanvas appends a canvas to the document.
func (d *Document) AddCanvas(c *Canvas) {
	d.canvases = append(d.canvases, c)
}

// Canvases returns the document's canvas elements in DOM order.
func (d *Document) Canvases() []*Canvas {
	out := make([]*Canvas, len(d.canvases))
	copy(out, d.canvases)
	return out
}

// ShadowRoot models one shadow root and the canvases reachable from it.
type ShadowRoot struct {
	canvases []*Canvas
}

// NewShadowRoot creates a shadow root containing the given canvases.
func NewShadowRoot(canvases ...*Canvas) *ShadowRoot {
	return &ShadowRoot{canvases: canvases}
}

// AddCanvas appends a canvas to the shadow root.
func (r *ShadowRoot) AddCanvas(c *Canvas) {
	r.canvases = append(r.canvases, c)
}

// Canvases returns the shadow root's canvas elements in DOM order.
func (r *ShadowRoot) Canvases() []*Canvas {
	out := make([]*Canvas, len(r.canvases))
	copy(out, r.canvases)
	return out
}

// Window models one browser window. A cross-origin window denies document
// access with ErrSecurity, matching the browser's same-origin policy.
type Window struct {
	doc         *Document
	crossOrigin bool
}

// NewWindow creates a same-origin window over doc.
func NewWindow(doc *Document) *Window {
	return &Window{doc: doc}
}

// NewCrossOriginWindow creates a window whose document is inaccessible.
func NewCrossOriginWindow() *Window {
	return &Window{crossOrigin: true}
}

// Document returns the window's document, or ErrSecurity for cross-origin
// windows.
func (w *Window) Document() (*Document, error) {
	if w.crossOrigin {
		return nil, ErrSecurity
	}
	return w.doc, nil
}
