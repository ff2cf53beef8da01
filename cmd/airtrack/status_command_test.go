package main

import (
	"testing"
)

func TestStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "== Daemon ==")
	requireContains(t, out, "stopped")
	requireContains(t, out, "== Recorder ==")
	requireContains(t, out, "Idle")
	requireContains(t, out, "== Presence ==")
	requireContains(t, out, "Disconnected")
	requireContains(t, out, "== Uploads ==")
}

func TestRecordPauseWhenIdleFails(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"record", "pause"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected pause to fail while idle")
	}
}

func TestDialErrorWhenDaemonMissing(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"status"}, env.socketPath+".missing", env.configPath)
	if err == nil {
		t.Fatal("expected dial failure for missing socket")
	}
	requireContains(t, err.Error(), "connect to daemon")
}
