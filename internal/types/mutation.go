// mutation.go — Canvas mutation commands, records, and emitted events.
package types

// ContextKind identifies which rendering context a canvas mutation was
// observed on. The zero value is the 2D context.
type ContextKind int

const (
	Context2D ContextKind = iota
	ContextWebGL
	ContextWebGL2
)

// String returns the context name as reported by HTMLCanvasElement.getContext.
func (k ContextKind) String() string {
	switch k {
	case Context2D:
		return "2d"
	case ContextWebGL:
		return "webgl"
	case ContextWebGL2:
		return "webgl2"
	default:
		return "unknown"
	}
}

// IsWebGL reports whether the kind is one of the WebGL contexts.
func (k ContextKind) IsWebGL() bool {
	return k == ContextWebGL || k == ContextWebGL2
}

// MutationCommand is a single replayable canvas API call: the property
// (method or setter name) and its arguments.
type MutationCommand struct {
	Property string `json:"property" cbor:"property"`
	Args     []any  `json:"args" cbor:"args"`
}

// MutationRecord is one intake-side mutation: a command tagged with the
// context kind it was observed on. The tag is stripped at flush time — an
// emitted event carries a single kind for all of its commands.
type MutationRecord struct {
	Type    ContextKind
	Command MutationCommand
}

// CanvasMutationEvent is one emitted mutation-with-commands event for the
// consuming recording pipeline. ID is the stable numeric id assigned by the
// identity mirror. Commands preserve intake order for the canvas.
type CanvasMutationEvent struct {
	ID       int               `json:"id" cbor:"id"`
	Type     ContextKind       `json:"type" cbor:"type"`
	Commands []MutationCommand `json:"commands" cbor:"commands"`
}

// ImagePayload carries an encoded snapshot image inside a drawImage command
// argument. Replay decodes Base64 (media type in Type) back into a bitmap.
type ImagePayload struct {
	Base64 string `json:"base64" cbor:"base64"`
	Type   string `json:"type" cbor:"type"`
}
