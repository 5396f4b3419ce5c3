// main.go — Entry point for the rrweb-capture stream tool.
// Records a synthetic capture session to a stream file, or inspects an
// existing one. The synthetic session exercises the full capture pipeline
// (intake, flush, snapshot, encode) against an in-process page model, which
// makes the binary double as an end-to-end smoke check for the stream format.
//
// Usage: rrweb-capture <command> [--flags]
//
// Exit codes:
//   0 = success
//   1 = error
//   2 = usage error (missing args, invalid flags)
package main

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"time"

	"github.com/ScreebApp/rrweb/internal/canvas"
	"github.com/ScreebApp/rrweb/internal/config"
	"github.com/ScreebApp/rrweb/internal/dom"
	"github.com/ScreebApp/rrweb/internal/sink"
	"github.com/ScreebApp/rrweb/internal/types"
)

// version is set at build time via -ldflags.
var version = "1.0.0"

const usageText = `rrweb-capture — canvas capture stream tool

Usage:
  rrweb-capture <command> [--flags]

Commands:
  record     Record a synthetic capture session to a stream file
  inspect    Print the header and events of a stream file

Flags:
  --config <path>     YAML capture options (record; default: built-in defaults)
  --out <path>        Output stream file (record; default: session.rrwebcap)
  --in <path>         Input stream file (inspect)
  --compress          Compress stream frames with zstd (record)
  --frames <n>        Synthetic frames to record (record; default: 10)
  --version           Show version
  --help              Show this help

Examples:
  rrweb-capture record --out demo.rrwebcap --compress
  rrweb-capture record --config capture.yaml --frames 60
  rrweb-capture inspect --in demo.rrwebcap
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

// run is the main entry point, separated for testability.
// Returns the exit code.
func run(args []string, out io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usageText)
		return 2
	}
	for _, arg := range args {
		if arg == "--version" || arg == "-v" {
			fmt.Fprintf(out, "rrweb-capture %s\n", version)
			return 0
		}
		if arg == "--help" || arg == "-h" {
			fmt.Fprint(out, usageText)
			return 0
		}
	}

	command := args[0]
	remaining := args[1:]

	switch command {
	case "record":
		return runRecord(remaining, out)
	case "inspect":
		return runInspect(remaining, out)
	case "help":
		fmt.Fprint(out, usageText)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q. Valid commands: record, inspect\n", command)
		return 2
	}
}

// runRecord drives a Manager over a synthetic page and streams the emitted
// events to a file.
func runRecord(args []string, out io.Writer) int {
	configPath, args := extractFlag(args, "--config")
	outPath, args := extractFlag(args, "--out")
	framesStr, args := extractFlag(args, "--frames")
	compress, args := extractBool(args, "--compress")
	if len(args) > 0 {
		fmt.Fprintf(os.Stderr, "Error: unexpected argument %q\n", args[0])
		return 2
	}
	if outPath == "" {
		outPath = "session.rrwebcap"
	}
	frames := 10
	if framesStr != "" {
		if frames = parseInt(framesStr); frames <= 0 {
			fmt.Fprintf(os.Stderr, "Error: --frames must be a positive integer, got %q\n", framesStr)
			return 2
		}
	}

	opts := config.Default()
	if configPath != "" {
		var err error
		if opts, err = config.Load(configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 2
		}
	}

	f, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: create output: %v\n", err)
		return 1
	}
	defer f.Close()

	s, err := sink.New(f, compress)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: open stream: %v\n", err)
		return 1
	}

	m, err := canvas.NewManager(opts, canvas.Deps{
		Emit: s.Bind(func(err error) {
			fmt.Fprintf(os.Stderr, "Warning: stream write: %v\n", err)
		}),
		OnError: func(err error) {
			fmt.Fprintf(os.Stderr, "Warning: capture: %v\n", err)
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer m.Reset()

	page := newSyntheticPage()
	m.Mirror().Add(page.canvas)
	m.AddWindow(page.window)

	interval := opts.FrameInterval
	for i := 0; i < frames; i++ {
		page.draw(m, i)
		m.FlushAll()
		time.Sleep(interval)
	}
	before := s.Frames()
	m.Snapshot(nil, true)
	// Wait for the encode worker's reply to land before closing the stream.
	deadline := time.Now().Add(5 * time.Second)
	for s.Frames() == before && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if err := s.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: close stream: %v\n", err)
		return 1
	}

	st := m.Stats()
	fmt.Fprintf(out, "session %s: %d frames, %d events -> %s\n",
		s.SessionID(), st.FramesSeen, s.Frames(), outPath)
	return 0
}

// runInspect prints a stream file's header and events.
func runInspect(args []string, out io.Writer) int {
	inPath, args := extractFlag(args, "--in")
	if inPath == "" && len(args) > 0 {
		inPath, args = args[0], args[1:]
	}
	if len(args) > 0 {
		fmt.Fprintf(os.Stderr, "Error: unexpected argument %q\n", args[0])
		return 2
	}
	if inPath == "" {
		fmt.Fprint(os.Stderr, "Error: missing --in <path>\n")
		return 2
	}

	f, err := os.Open(inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: open stream: %v\n", err)
		return 1
	}
	defer f.Close()

	r, err := sink.NewReader(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: read stream: %v\n", err)
		return 1
	}
	defer r.Close()

	h := r.Header()
	fmt.Fprintf(out, "session %s (v%d, compression=%s, created %s)\n",
		h.SessionID, h.Version, h.Compression, time.Unix(h.CreatedAt, 0).Format(time.RFC3339))

	count := 0
	for {
		ev, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: frame %d: %v\n", count, err)
			return 1
		}
		count++
		fmt.Fprintf(out, "  event %d: canvas %d (%s), %d commands\n",
			count, ev.ID, ev.Type, len(ev.Commands))
		for _, cmd := range ev.Commands {
			fmt.Fprintf(out, "    %s%s\n", cmd.Property, summarizeArgs(cmd.Args))
		}
	}
	fmt.Fprintf(out, "%d events\n", count)
	return 0
}

// summarizeArgs renders command args compactly, eliding image payloads.
func summarizeArgs(args []any) string {
	s := "("
	for i, a := range args {
		if i > 0 {
			s += ", "
		}
		switch v := a.(type) {
		case map[string]any:
			if b, ok := v["base64"].(string); ok {
				s += fmt.Sprintf("<%v, %d bytes>", v["type"], len(b))
				continue
			}
			s += fmt.Sprintf("%v", v)
		default:
			s += fmt.Sprintf("%v", v)
		}
	}
	return s + ")"
}

// extractFlag removes a flag and its value from args, returning the value and
// remaining args.
func extractFlag(args []string, flag string) (string, []string) {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			val := args[i+1]
			remaining := make([]string, 0, len(args)-2)
			remaining = append(remaining, args[:i]...)
			remaining = append(remaining, args[i+2:]...)
			return val, remaining
		}
	}
	return "", args
}

// extractBool removes a boolean flag from args.
func extractBool(args []string, flag string) (bool, []string) {
	for i, a := range args {
		if a == flag {
			return true, append(args[:i:i], args[i+1:]...)
		}
	}
	return false, args
}

// parseInt parses a string as a positive integer, returning 0 on failure.
func parseInt(s string) int {
	if s == "" {
		return 0
	}
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}

// syntheticPage is the in-process page model the record command drives.
type syntheticPage struct {
	window *dom.Window
	canvas *dom.Canvas
}

func newSyntheticPage() *syntheticPage {
	c := &dom.Canvas{Width: 320, Height: 240}
	c.CaptureBitmap = captureChecker(c)
	return &syntheticPage{
		window: dom.NewWindow(dom.NewDocument(c)),
		canvas: c,
	}
}

// captureChecker returns a capture source rendering a checkerboard at the
// canvas's current size.
func captureChecker(c *dom.Canvas) func() (*image.RGBA, error) {
	return func() (*image.RGBA, error) {
		img := image.NewRGBA(image.Rect(0, 0, c.Width, c.Height))
		for y := 0; y < c.Height; y++ {
			for x := 0; x < c.Width; x++ {
				if (x/16+y/16)%2 == 0 {
					img.Set(x, y, color.RGBA{R: 230, G: 230, B: 230, A: 255})
				} else {
					img.Set(x, y, color.RGBA{R: 60, G: 60, B: 60, A: 255})
				}
			}
		}
		return img, nil
	}
}

// draw feeds one frame's worth of mutations through intake.
func (p *syntheticPage) draw(m *canvas.Manager, frame int) {
	m.Intake(p.canvas, types.MutationRecord{Command: types.MutationCommand{
		Property: "fillStyle", Args: []any{fmt.Sprintf("hsl(%d, 70%%, 50%%)", frame*36%360)},
	}})
	m.Intake(p.canvas, types.MutationRecord{Command: types.MutationCommand{
		Property: "fillRect", Args: []any{frame * 10 % 320, frame * 8 % 240, 40, 40},
	}})
}
