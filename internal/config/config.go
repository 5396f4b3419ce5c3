// config.go — Capture options and YAML loading.
// Options are loaded from a single explicit file path; there are no fallbacks
// or automatic discovery, so configuration stays deterministic and auditable.
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ScreebApp/rrweb/internal/types"
)

// Defaults applied by Validate.
const (
	DefaultSnapshotFPS      = 2
	DefaultEventLogCapacity = 256
	DefaultFrameInterval    = 16 * time.Millisecond
	DefaultImageQuality     = 0.92
)

// Sampling selects between per-frame mutation recording ("all") and
// fps-limited periodic snapshotting (a number). The zero value means "all".
type Sampling struct {
	All bool
	FPS int
}

// UnmarshalYAML accepts the scalar "all" or a positive integer fps.
func (s *Sampling) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err == nil && raw == "all" {
		*s = Sampling{All: true}
		return nil
	}
	var fps int
	if err := value.Decode(&fps); err != nil {
		return fmt.Errorf("config: sampling must be \"all\" or an integer fps: %w", err)
	}
	if fps <= 0 {
		return fmt.Errorf("config: sampling fps must be positive, got %d", fps)
	}
	*s = Sampling{FPS: fps}
	return nil
}

// MarshalYAML renders the sampling value back to its scalar form.
func (s Sampling) MarshalYAML() (any, error) {
	if s.All {
		return "all", nil
	}
	return s.FPS, nil
}

// Options configures one capture Manager.
type Options struct {
	// Sampling picks the capture mode: "all" records every mutation and
	// flushes per frame; a numeric fps takes periodic full-frame snapshots.
	Sampling Sampling `yaml:"sampling"`

	// Block predicate inputs. An element carrying BlockClass or matching
	// BlockSelector is excluded from capture unless it matches
	// UnblockSelector.
	BlockClass      string `yaml:"block_class"`
	BlockSelector   string `yaml:"block_selector"`
	UnblockSelector string `yaml:"unblock_selector"`

	// Encode configures the snapshot image format handed to the worker.
	Encode types.EncodeOptions `yaml:"encode"`

	// MaxSnapshotSize caps the longest side of encoded snapshot payloads.
	// 0 disables scaling.
	MaxSnapshotSize int `yaml:"max_snapshot_size"`

	// ManualSnapshot disables observer attachment and periodic loops;
	// snapshots happen only via the Manager's Snapshot call.
	ManualSnapshot bool `yaml:"manual_snapshot"`

	// PendingCap bounds each canvas's pending mutation queue. When the cap
	// is hit, the oldest records for that canvas are dropped. 0 = unbounded,
	// which preserves completeness at the cost of unbounded memory during
	// long freezes.
	PendingCap int `yaml:"pending_cap"`

	// EventLogCapacity sizes the ring of recently emitted events retained
	// for cursor reads.
	EventLogCapacity int `yaml:"event_log_capacity"`

	// FrameInterval is the tick interval of the default frame scheduler.
	FrameInterval time.Duration `yaml:"frame_interval"`
}

// Default returns the options used when no file is given.
func Default() Options {
	opts := Options{}
	_ = opts.Validate() // defaults are always valid
	return opts
}

// Validate applies defaults and rejects out-of-range values.
func (o *Options) Validate() error {
	if o.Encode.Type == "" {
		o.Encode.Type = types.ImagePNG
	}
	if o.Encode.Type != types.ImagePNG && o.Encode.Type != types.ImageJPEG {
		return fmt.Errorf("config: unsupported encode type %q", o.Encode.Type)
	}
	if o.Encode.Quality == 0 {
		o.Encode.Quality = DefaultImageQuality
	}
	if o.Encode.Quality < 0 || o.Encode.Quality > 1 {
		return fmt.Errorf("config: encode quality %v outside 0..1", o.Encode.Quality)
	}
	if o.MaxSnapshotSize < 0 {
		return fmt.Errorf("config: max_snapshot_size must be >= 0, got %d", o.MaxSnapshotSize)
	}
	if o.PendingCap < 0 {
		return fmt.Errorf("config: pending_cap must be >= 0, got %d", o.PendingCap)
	}
	if o.EventLogCapacity <= 0 {
		o.EventLogCapacity = DefaultEventLogCapacity
	}
	if o.FrameInterval <= 0 {
		o.FrameInterval = DefaultFrameInterval
	}
	return nil
}

// SnapshotFPS returns the effective snapshot rate: the configured numeric
// rate, or DefaultSnapshotFPS when sampling is "all" or unset.
func (o *Options) SnapshotFPS() int {
	if o.Sampling.All || o.Sampling.FPS <= 0 {
		return DefaultSnapshotFPS
	}
	return o.Sampling.FPS
}

// SnapshotInterval returns the minimum milliseconds between snapshots
// (1000/fps), used by the pipeline's self-throttle.
func (o *Options) SnapshotInterval() int64 {
	return int64(1000 / o.SnapshotFPS())
}

// Load reads options from a YAML file. Unknown fields are rejected so typos
// fail loudly instead of silently falling back to defaults.
func Load(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates YAML option bytes.
func Parse(data []byte) (Options, error) {
	var opts Options
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&opts); err != nil {
		return Options{}, fmt.Errorf("config: parsing options: %w", err)
	}
	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}
