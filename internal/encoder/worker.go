// worker.go — Off-thread snapshot encode worker.
// Encoding runs on its own goroutine with no shared mutable state: requests
// and responses cross the boundary by message passing only, and ownership of
// the bitmap transfers with the request.
package encoder

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"sync"

	xdraw "golang.org/x/image/draw"

	"github.com/ScreebApp/rrweb/internal/types"
)

const (
	// queueDepth bounds the request and response channels. Posting to a full
	// queue fails fast instead of blocking the capture thread.
	queueDepth = 16

	defaultJPEGQuality = 0.92
)

// Worker encodes captured bitmaps off the capture thread. Create with New,
// stop with Terminate. A terminated Worker rejects further requests.
type Worker struct {
	requests  chan types.EncodeRequest
	responses chan types.EncodeResponse
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a Worker and starts its encode goroutine.
func New() *Worker {
	w := &Worker{
		requests:  make(chan types.EncodeRequest, queueDepth),
		responses: make(chan types.EncodeResponse, queueDepth),
		done:      make(chan struct{}),
	}
	go w.run()
	return w
}

// Post hands one request to the worker. It never blocks: the return value is
// false when the worker is terminated or its queue is full, and the caller
// keeps ownership of the bitmap in that case.
func (w *Worker) Post(req types.EncodeRequest) bool {
	select {
	case <-w.done:
		return false
	default:
	}
	select {
	case w.requests <- req:
		return true
	case <-w.done:
		return false
	default:
		return false
	}
}

// Responses returns the reply channel. The channel is closed when the worker
// terminates.
func (w *Worker) Responses() <-chan types.EncodeResponse {
	return w.responses
}

// Terminate stops the encode goroutine and closes the response channel.
// In-queue requests are discarded. Safe to call multiple times.
func (w *Worker) Terminate() {
	w.closeOnce.Do(func() { close(w.done) })
}

func (w *Worker) run() {
	defer close(w.responses)
	for {
		select {
		case <-w.done:
			return
		case req := <-w.requests:
			resp := encode(req)
			select {
			case w.responses <- resp:
			case <-w.done:
				return
			}
		}
	}
}

// encode produces the reply for one request. Failures yield a reply with an
// empty Base64 so the orchestrator can clear in-flight state for the id.
// Width and Height echo the request: replay draws at the canvas's captured
// size even when the payload was downscaled.
func encode(req types.EncodeRequest) types.EncodeResponse {
	resp := types.EncodeResponse{
		ID:     req.ID,
		Width:  req.Width,
		Height: req.Height,
	}
	if req.Bitmap == nil {
		return resp
	}

	img := downscale(req.Bitmap, req.MaxSize)

	var buf bytes.Buffer
	mediaType := req.Options.Type
	switch mediaType {
	case types.ImageJPEG:
		quality := req.Options.Quality
		if quality <= 0 || quality > 1 {
			quality = defaultJPEGQuality
		}
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: int(quality * 100)}); err != nil {
			return resp
		}
	case "", types.ImagePNG:
		mediaType = types.ImagePNG
		if err := png.Encode(&buf, img); err != nil {
			return resp
		}
	default:
		return resp
	}

	resp.Base64 = base64.StdEncoding.EncodeToString(buf.Bytes())
	resp.Type = mediaType
	return resp
}

// downscale caps the bitmap's longest side at maxSize, preserving aspect
// ratio. maxSize <= 0 disables scaling.
func downscale(src *image.RGBA, maxSize int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxSize <= 0 || (w <= maxSize && h <= maxSize) {
		return src
	}
	scale := float64(maxSize) / float64(w)
	if h > w {
		scale = float64(maxSize) / float64(h)
	}
	dw := max(1, int(float64(w)*scale))
	dh := max(1, int(float64(h)*scale))
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
	return dst
}

// String describes the worker for debug output.
func (w *Worker) String() string {
	select {
	case <-w.done:
		return "encoder.Worker(terminated)"
	default:
		return fmt.Sprintf("encoder.Worker(queue=%d)", len(w.requests))
	}
}
