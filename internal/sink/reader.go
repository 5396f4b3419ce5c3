// reader.go — Read side of the capture stream framing.
// The consuming pipeline uses FrameReader to replay a stream produced by
// FrameSink: header first, then one event per frame.
package sink

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/ScreebApp/rrweb/internal/types"
)

// FrameReader decodes a capture stream written by FrameSink.
type FrameReader struct {
	r      io.Reader
	dec    *zstd.Decoder // nil when the stream is uncompressed
	header StreamHeader
}

// NewReader parses the stream header and prepares the payload codec.
func NewReader(r io.Reader) (*FrameReader, error) {
	payload, err := readFrame(r)
	if err != nil {
		return nil, fmt.Errorf("sink: reading stream header: %w", err)
	}
	fr := &FrameReader{r: r}
	if err := decMode.Unmarshal(payload, &fr.header); err != nil {
		return nil, fmt.Errorf("sink: decoding stream header: %w", err)
	}
	switch fr.header.Compression {
	case CompressionNone:
	case CompressionZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("sink: creating zstd decoder: %w", err)
		}
		fr.dec = dec
	default:
		return nil, fmt.Errorf("sink: unknown compression %q", fr.header.Compression)
	}
	return fr, nil
}

// Header returns the parsed stream header.
func (fr *FrameReader) Header() StreamHeader { return fr.header }

// Next reads one event frame. Returns io.EOF at the clean end of stream.
func (fr *FrameReader) Next() (types.CanvasMutationEvent, error) {
	var ev types.CanvasMutationEvent
	payload, err := readFrame(fr.r)
	if err != nil {
		return ev, err
	}
	if fr.dec != nil {
		payload, err = fr.dec.DecodeAll(payload, nil)
		if err != nil {
			return ev, fmt.Errorf("sink: decompressing frame: %w", err)
		}
	}
	if err := decMode.Unmarshal(payload, &ev); err != nil {
		return ev, fmt.Errorf("sink: decoding event frame: %w", err)
	}
	return ev, nil
}

// Close releases the decompressor. It does not close the underlying reader.
func (fr *FrameReader) Close() {
	if fr.dec != nil {
		fr.dec.Close()
		fr.dec = nil
	}
}

// readFrame reads one length-prefixed frame.
func readFrame(r io.Reader) ([]byte, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(prefix[:])
	if n > maxFrameSize {
		return nil, fmt.Errorf("sink: frame of %d bytes exceeds limit", n)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("sink: truncated frame: %w", err)
	}
	return payload, nil
}
