// worker.go — Encode worker protocol types.
// The worker boundary is strictly message passing: ownership of the bitmap
// payload transfers with the request, never shared.
package types

import "image"

// Media types accepted by EncodeOptions.Type.
const (
	ImagePNG  = "image/png"
	ImageJPEG = "image/jpeg"
)

// EncodeOptions selects the snapshot image format. Quality applies to JPEG
// only, in the 0..1 range (canvas toDataURL convention).
type EncodeOptions struct {
	Type    string  `json:"type" yaml:"type"`
	Quality float64 `json:"quality" yaml:"quality"`
}

// EncodeRequest asks the worker to encode one captured bitmap.
//
// Ownership of Bitmap transfers with the message; the sender must not read
// or mutate it after posting. Width and Height are the canvas element's
// dimensions at capture time and are echoed back unchanged so replay draws
// at full size even when the payload was downscaled.
type EncodeRequest struct {
	ID      int
	Bitmap  *image.RGBA
	Width   int
	Height  int
	Options EncodeOptions
	MaxSize int // longest-side cap for the encoded payload, 0 = no scaling
}

// EncodeResponse is the worker's reply for one request. An empty Base64
// signals a non-fatal encode failure for that id: the canvas stays eligible
// for the next snapshot cycle and nothing is emitted.
type EncodeResponse struct {
	ID     int
	Base64 string
	Type   string
	Width  int
	Height int
}
