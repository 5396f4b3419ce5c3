package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

// TestParseInt verifies positive-integer parsing.
func TestParseInt(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want int
	}{
		{"10", 10},
		{"0", 0},
		{"", 0},
		{"-3", 0},
		{"12x", 0},
	}
	for _, tt := range tests {
		if got := parseInt(tt.in); got != tt.want {
			t.Errorf("parseInt(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

// TestExtractFlag verifies flag-value extraction leaves other args intact.
func TestExtractFlag(t *testing.T) {
	t.Parallel()
	val, rest := extractFlag([]string{"--out", "a.bin", "--compress"}, "--out")
	if val != "a.bin" || len(rest) != 1 || rest[0] != "--compress" {
		t.Errorf("Unexpected extraction: val=%q rest=%v", val, rest)
	}
	val, rest = extractFlag([]string{"--compress"}, "--out")
	if val != "" || len(rest) != 1 {
		t.Errorf("Expected absent flag to leave args alone, got val=%q rest=%v", val, rest)
	}
}

// TestExtractBool verifies boolean flag extraction.
func TestExtractBool(t *testing.T) {
	t.Parallel()
	on, rest := extractBool([]string{"--compress", "--frames", "3"}, "--compress")
	if !on || len(rest) != 2 {
		t.Errorf("Unexpected extraction: on=%v rest=%v", on, rest)
	}
	on, rest = extractBool([]string{"--frames", "3"}, "--compress")
	if on || len(rest) != 2 {
		t.Errorf("Expected absent flag unset, got on=%v rest=%v", on, rest)
	}
}

// TestSummarizeArgs verifies image payloads are elided.
func TestSummarizeArgs(t *testing.T) {
	t.Parallel()
	got := summarizeArgs([]any{1, 2, map[string]any{"base64": "aGVsbG8=", "type": "image/png"}})
	if !strings.Contains(got, "image/png") || strings.Contains(got, "aGVsbG8=") {
		t.Errorf("Expected elided payload, got %q", got)
	}
}

// TestRunUsage verifies usage errors exit with code 2.
func TestRunUsage(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	if code := run(nil, &out); code != 2 {
		t.Errorf("Expected exit 2 for no args, got %d", code)
	}
	if code := run([]string{"bogus"}, &out); code != 2 {
		t.Errorf("Expected exit 2 for unknown command, got %d", code)
	}
	if code := run([]string{"inspect"}, &out); code != 2 {
		t.Errorf("Expected exit 2 for inspect without input, got %d", code)
	}
	if code := run([]string{"--help"}, &out); code != 0 {
		t.Errorf("Expected exit 0 for help, got %d", code)
	}
}

// TestRecordInspectRoundTrip records a short synthetic session and inspects
// the resulting stream.
func TestRecordInspectRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "session.rrwebcap")

	var out bytes.Buffer
	code := run([]string{"record", "--out", path, "--frames", "3", "--compress"}, &out)
	if code != 0 {
		t.Fatalf("Expected record to succeed, got exit %d (%s)", code, out.String())
	}
	if !strings.Contains(out.String(), "session ") {
		t.Errorf("Expected session summary, got %q", out.String())
	}

	out.Reset()
	code = run([]string{"inspect", "--in", path}, &out)
	if code != 0 {
		t.Fatalf("Expected inspect to succeed, got exit %d (%s)", code, out.String())
	}
	text := out.String()
	if !strings.Contains(text, "compression=zstd") {
		t.Errorf("Expected compressed stream header, got %q", text)
	}
	if !strings.Contains(text, "fillRect") || !strings.Contains(text, "drawImage") {
		t.Errorf("Expected incremental and snapshot events, got %q", text)
	}
}
