package config

import (
	"strings"
	"testing"
	"time"

	"github.com/ScreebApp/rrweb/internal/types"
)

// TestDefaultOptions verifies Default applies the documented defaults.
func TestDefaultOptions(t *testing.T) {
	t.Parallel()
	opts := Default()

	if !opts.Sampling.All && opts.Sampling.FPS != 0 {
		t.Errorf("Expected zero sampling, got %+v", opts.Sampling)
	}
	if opts.SnapshotFPS() != DefaultSnapshotFPS {
		t.Errorf("Expected fps default %d, got %d", DefaultSnapshotFPS, opts.SnapshotFPS())
	}
	if opts.SnapshotInterval() != 500 {
		t.Errorf("Expected 500ms snapshot interval, got %d", opts.SnapshotInterval())
	}
	if opts.Encode.Type != types.ImagePNG {
		t.Errorf("Expected png default, got %q", opts.Encode.Type)
	}
	if opts.Encode.Quality != DefaultImageQuality {
		t.Errorf("Expected quality default %v, got %v", DefaultImageQuality, opts.Encode.Quality)
	}
	if opts.EventLogCapacity != DefaultEventLogCapacity {
		t.Errorf("Expected event log capacity %d, got %d", DefaultEventLogCapacity, opts.EventLogCapacity)
	}
	if opts.FrameInterval != DefaultFrameInterval {
		t.Errorf("Expected frame interval %v, got %v", DefaultFrameInterval, opts.FrameInterval)
	}
}

// TestParseSamplingAll verifies the "all" scalar.
func TestParseSamplingAll(t *testing.T) {
	t.Parallel()
	opts, err := Parse([]byte("sampling: all\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !opts.Sampling.All {
		t.Errorf("Expected sampling all, got %+v", opts.Sampling)
	}
	if opts.SnapshotFPS() != DefaultSnapshotFPS {
		t.Errorf("Expected fps %d for sampling all, got %d", DefaultSnapshotFPS, opts.SnapshotFPS())
	}
}

// TestParseSamplingFPS verifies numeric sampling and interval math.
func TestParseSamplingFPS(t *testing.T) {
	t.Parallel()
	opts, err := Parse([]byte("sampling: 4\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if opts.Sampling.All || opts.Sampling.FPS != 4 {
		t.Errorf("Expected fps 4, got %+v", opts.Sampling)
	}
	if opts.SnapshotInterval() != 250 {
		t.Errorf("Expected 250ms interval, got %d", opts.SnapshotInterval())
	}
}

// TestParseFullOptions verifies a representative options file.
func TestParseFullOptions(t *testing.T) {
	t.Parallel()
	input := `
sampling: 2
block_class: rr-block
block_selector: ".private canvas"
unblock_selector: ".allow"
encode:
  type: image/jpeg
  quality: 0.8
max_snapshot_size: 1024
manual_snapshot: true
pending_cap: 500
event_log_capacity: 64
frame_interval: 32ms
`
	opts, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if opts.BlockClass != "rr-block" || opts.UnblockSelector != ".allow" {
		t.Errorf("Unexpected block config: %+v", opts)
	}
	if opts.Encode.Type != types.ImageJPEG || opts.Encode.Quality != 0.8 {
		t.Errorf("Unexpected encode config: %+v", opts.Encode)
	}
	if opts.MaxSnapshotSize != 1024 || !opts.ManualSnapshot || opts.PendingCap != 500 {
		t.Errorf("Unexpected options: %+v", opts)
	}
	if opts.FrameInterval != 32*time.Millisecond {
		t.Errorf("Expected 32ms frame interval, got %v", opts.FrameInterval)
	}
}

// TestParseRejectsBadInput verifies unknown fields and out-of-range values
// fail loudly.
func TestParseRejectsBadInput(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"unknown field", "samplign: all\n", "field samplign not found"},
		{"negative fps", "sampling: -1\n", "fps must be positive"},
		{"bad sampling scalar", "sampling: sometimes\n", "sampling"},
		{"bad encode type", "encode:\n  type: image/webp\n", "unsupported encode type"},
		{"quality out of range", "encode:\n  quality: 1.5\n", "outside 0..1"},
		{"negative pending cap", "pending_cap: -2\n", "pending_cap"},
		{"negative max size", "max_snapshot_size: -1\n", "max_snapshot_size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(tt.input))
			if err == nil {
				t.Fatalf("Expected error for %q", tt.input)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
