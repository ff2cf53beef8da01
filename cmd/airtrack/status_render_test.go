package main

import (
	"strings"
	"testing"
)

func TestRenderStatusLine(t *testing.T) {
	line := renderStatusLine("Device", statusOK, "hw:1,0", false)
	if !strings.Contains(line, "Device:") || !strings.Contains(line, "[OK] hw:1,0") {
		t.Fatalf("unexpected line: %q", line)
	}
	if strings.Contains(line, ansiGreen) {
		t.Fatalf("expected no color codes, got %q", line)
	}

	colored := renderStatusLine("Device", statusError, "", true)
	if !strings.HasPrefix(colored, ansiRed) || !strings.HasSuffix(colored, ansiReset) {
		t.Fatalf("expected red wrapping, got %q", colored)
	}
	if !strings.Contains(colored, "[ERROR]") {
		t.Fatalf("expected error label, got %q", colored)
	}
}

func TestRenderStatusLineLive(t *testing.T) {
	line := renderStatusLine("State", statusLive, "Recording", true)
	if !strings.HasPrefix(line, ansiRed) || !strings.HasSuffix(line, ansiReset) {
		t.Fatalf("expected red wrapping for an open microphone, got %q", line)
	}
	if !strings.Contains(line, "[LIVE] Recording") {
		t.Fatalf("expected live tag, got %q", line)
	}
}

func TestRecorderStateKind(t *testing.T) {
	cases := map[string]statusKind{
		"recording": statusLive,
		"paused":    statusWarn,
		"stopped":   statusOK,
		"idle":      statusInfo,
	}
	for state, want := range cases {
		if got := recorderStateKind(state); got != want {
			t.Errorf("recorderStateKind(%q) = %d, want %d", state, got, want)
		}
	}
}

func TestRenderSectionHeader(t *testing.T) {
	lines := renderSectionHeader("Recorder", false)
	if len(lines) != 2 {
		t.Fatalf("expected header and rule, got %d lines", len(lines))
	}
	if lines[0] != "== Recorder ==" {
		t.Fatalf("unexpected header: %q", lines[0])
	}
	if len(lines[1]) != len(lines[0]) {
		t.Fatalf("rule length %d does not match header length %d", len(lines[1]), len(lines[0]))
	}
}

func TestStatusLabel(t *testing.T) {
	cases := map[string]string{
		"pending_upload": "Pending Upload",
		"recording":      "Recording",
		"":               "Unknown",
		"  failed  ":     "Failed",
	}
	for input, want := range cases {
		if got := statusLabel(input); got != want {
			t.Errorf("statusLabel(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestFormatElapsed(t *testing.T) {
	if got := formatElapsed(95); got != "1:35" {
		t.Fatalf("formatElapsed(95) = %q", got)
	}
	if got := formatElapsed(-3); got != "0:00" {
		t.Fatalf("formatElapsed(-3) = %q", got)
	}
}
