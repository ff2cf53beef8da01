package daemon_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"airtrack/internal/daemon"
	"airtrack/internal/services/traffic"
	"airtrack/internal/takes"
	"airtrack/internal/testsupport"
)

type fakeTraffic struct {
	mu     sync.Mutex
	nextID int64
	takes  map[int64][]traffic.Take
}

func newFakeTraffic() *fakeTraffic {
	return &fakeTraffic{nextID: 1, takes: make(map[int64][]traffic.Take)}
}

func (f *fakeTraffic) UploadTake(ctx context.Context, breakID int64, filename string, wav []byte) (*traffic.Take, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	take := traffic.Take{
		ID:         f.nextID,
		BreakID:    breakID,
		TakeNumber: len(f.takes[breakID]) + 1,
		Filename:   filename,
		CreatedAt:  time.Now().UTC(),
	}
	f.nextID++
	f.takes[breakID] = append(f.takes[breakID], take)
	return &take, nil
}

func (f *fakeTraffic) UploadStandalone(ctx context.Context, filename string, wav []byte) (*traffic.Take, error) {
	return f.UploadTake(ctx, 0, filename, wav)
}

func (f *fakeTraffic) ListTakes(ctx context.Context, breakID int64) ([]traffic.Take, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]traffic.Take(nil), f.takes[breakID]...), nil
}

func (f *fakeTraffic) SelectTake(ctx context.Context, takeID int64) error { return nil }

func (f *fakeTraffic) DeleteTake(ctx context.Context, takeID int64) error { return nil }

func newTestDaemon(t *testing.T) (*daemon.Daemon, *fakeTraffic, *takes.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	client := newFakeTraffic()
	d, err := daemon.NewWithClient(cfg, store, nil, client)
	if err != nil {
		t.Fatalf("NewWithClient failed: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d, client, store
}

func TestDaemonStartStop(t *testing.T) {
	d, _, _ := newTestDaemon(t)
	ctx := context.Background()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second Start to be rejected")
	}

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected running status")
	}
	if status.PID == 0 {
		t.Fatal("expected PID in status")
	}

	d.Stop()
	if d.Status(ctx).Running {
		t.Fatal("expected stopped status")
	}
	// Stop is idempotent.
	d.Stop()
}

func TestDaemonTakeListServesMirror(t *testing.T) {
	d, client, store := newTestDaemon(t)
	ctx := context.Background()

	client.takes[7] = []traffic.Take{
		{ID: 1, BreakID: 7, TakeNumber: 1, Filename: "a.wav"},
		{ID: 2, BreakID: 7, TakeNumber: 2, Filename: "b.wav", IsSelected: true},
	}

	list, err := d.TakeList(ctx, 7)
	if err != nil {
		t.Fatalf("TakeList failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 takes, got %d", len(list))
	}

	// The mirror retains the refreshed rows.
	mirrored, err := store.ListByBreak(ctx, 7)
	if err != nil {
		t.Fatalf("ListByBreak failed: %v", err)
	}
	if len(mirrored) != 2 || !mirrored[1].IsSelected {
		t.Fatalf("unexpected mirror contents: %#v", mirrored)
	}
}

func TestDaemonUploadRetry(t *testing.T) {
	d, _, store := newTestDaemon(t)
	ctx := context.Background()

	rec := testsupport.StageRecording(t, store, 7, "/nonexistent/take.wav", 2)
	if _, err := store.MarkUploading(ctx, rec.ID); err != nil {
		t.Fatalf("MarkUploading failed: %v", err)
	}
	if err := store.MarkFailed(ctx, rec.ID, "backend down"); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}

	moved, err := d.UploadRetry(ctx, nil)
	if err != nil {
		t.Fatalf("UploadRetry failed: %v", err)
	}
	if moved != 1 {
		t.Fatalf("expected one recording retried, got %d", moved)
	}
}

func TestDaemonPresenceUnconfigured(t *testing.T) {
	d, _, _ := newTestDaemon(t)
	if err := d.PresenceReconnect(context.Background()); err == nil {
		t.Fatal("expected error when presence is not configured")
	}
}
