package main

import (
	"context"
	"path/filepath"
	"testing"

	"airtrack/internal/testsupport"
)

func TestUploadsListAndRetry(t *testing.T) {
	env := setupCLITestEnv(t)

	audioPath := filepath.Join(env.cfg.Paths.StagingDir, "pending.wav")
	testsupport.WriteFile(t, audioPath, 128)
	staged := testsupport.StageRecording(t, env.store, 4, audioPath, 6.2)
	ctx := context.Background()
	if ok, err := env.store.MarkUploading(ctx, staged.ID); err != nil || !ok {
		t.Fatalf("MarkUploading: ok=%v err=%v", ok, err)
	}
	if err := env.store.MarkFailed(ctx, staged.ID, "connection refused"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	out, _, err := runCLI(t, []string{"uploads", "list"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("uploads list: %v", err)
	}
	requireContains(t, out, staged.ID)
	requireContains(t, out, "break 4")
	requireContains(t, out, "Failed")
	requireContains(t, out, "connection refused")

	out, _, err = runCLI(t, []string{"uploads", "retry"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("uploads retry: %v", err)
	}
	requireContains(t, out, "Queued 1 upload(s) for retry")

	out, _, err = runCLI(t, []string{"uploads", "list", "--status", "pending_upload"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("uploads list pending: %v", err)
	}
	requireContains(t, out, "Pending Upload")

	out, _, err = runCLI(t, []string{"uploads", "retry"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("uploads retry (none failed): %v", err)
	}
	requireContains(t, out, "No failed uploads to retry")
}

func TestUploadsListEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"uploads", "list"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("uploads list: %v", err)
	}
	requireContains(t, out, "No staged recordings")
}
