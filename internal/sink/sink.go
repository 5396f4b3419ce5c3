// sink.go — Frame sink handing emitted events to the consuming pipeline.
// Events are serialized as deterministic CBOR, optionally zstd-compressed,
// and written length-prefixed onto an io.Writer. The stream opens with a
// header frame carrying a session id so downstream storage can key captures.
package sink

import (
	"encoding/binary"
	"fmt"
	"io"
	"reflect"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/ScreebApp/rrweb/internal/types"
)

// Compression names recorded in the stream header. Protocol constants —
// changing them breaks stream compatibility.
const (
	CompressionNone = "none"
	CompressionZstd = "zstd"
)

// maxFrameSize rejects absurd frames on the read side before allocating.
const maxFrameSize = 64 << 20

// encMode is the CBOR encoder configured with Core Deterministic Encoding
// (RFC 8949 §4.2): sorted map keys, smallest integer encoding. Same logical
// event always produces identical bytes.
var encMode cbor.EncMode

// decMode accepts standard CBOR and ignores unknown fields for forward
// compatibility.
var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("sink: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		// Command args decode into any-typed values; map[string]any keeps
		// them compatible with encoding/json and the rest of the pipeline.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("sink: CBOR decoder initialization failed: " + err.Error())
	}
}

// StreamHeader is the first frame of every capture stream.
type StreamHeader struct {
	Version     int    `cbor:"version"`
	SessionID   string `cbor:"session_id"`
	CreatedAt   int64  `cbor:"created_at"` // unix seconds
	Compression string `cbor:"compression"`
}

// FrameSink serializes emitted canvas mutation events onto a writer.
// Thread-safe: emit may be called from the flush path and the worker reply
// path concurrently.
type FrameSink struct {
	mu        sync.Mutex
	w         io.Writer
	enc       *zstd.Encoder // nil when compression is disabled
	sessionID string
	frames    int64
	closed    bool
}

// New creates a FrameSink over w and writes the stream header. The header is
// never compressed so readers can parse it before knowing the codec.
func New(w io.Writer, compress bool) (*FrameSink, error) {
	s := &FrameSink{
		w:         w,
		sessionID: uuid.NewString(),
	}
	compression := CompressionNone
	if compress {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("sink: creating zstd encoder: %w", err)
		}
		s.enc = enc
		compression = CompressionZstd
	}
	header := StreamHeader{
		Version:     1,
		SessionID:   s.sessionID,
		CreatedAt:   time.Now().Unix(),
		Compression: compression,
	}
	payload, err := encMode.Marshal(header)
	if err != nil {
		return nil, fmt.Errorf("sink: encoding stream header: %w", err)
	}
	if err := writeFrame(w, payload); err != nil {
		return nil, fmt.Errorf("sink: writing stream header: %w", err)
	}
	return s, nil
}

// SessionID returns the stream's session id.
func (s *FrameSink) SessionID() string { return s.sessionID }

// Frames returns the number of event frames written so far.
func (s *FrameSink) Frames() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Write serializes one event as a frame.
func (s *FrameSink) Write(ev types.CanvasMutationEvent) error {
	payload, err := encMode.Marshal(ev)
	if err != nil {
		return fmt.Errorf("sink: encoding event id %d: %w", ev.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("sink: write after close")
	}
	if s.enc != nil {
		payload = s.enc.EncodeAll(payload, nil)
	}
	if err := writeFrame(s.w, payload); err != nil {
		return fmt.Errorf("sink: writing event id %d: %w", ev.ID, err)
	}
	s.frames++
	return nil
}

// Bind adapts the sink to the Manager's emit callback. Write failures are
// forwarded to onError instead of propagating into the capture path.
func (s *FrameSink) Bind(onError func(error)) func(types.CanvasMutationEvent) {
	return func(ev types.CanvasMutationEvent) {
		if err := s.Write(ev); err != nil && onError != nil {
			onError(err)
		}
	}
}

// Close releases the compressor. It does not close the underlying writer.
// Safe to call multiple times.
func (s *FrameSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.enc != nil {
		s.enc.Close()
		s.enc = nil
	}
	return nil
}

// writeFrame writes one length-prefixed frame: 4-byte big-endian payload
// length, then the payload.
func writeFrame(w io.Writer, payload []byte) error {
	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(payload)))
	if _, err := w.Write(prefix[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}
