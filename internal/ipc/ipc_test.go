package ipc_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"airtrack/internal/daemon"
	"airtrack/internal/ipc"
	"airtrack/internal/logging"
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

func (f *fakeTraffic) UploadTake(_ context.Context, breakID int64, filename string, _ []byte) (*traffic.Take, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	take := traffic.Take{
		ID:         f.nextID,
		BreakID:    breakID,
		TakeNumber: len(f.takes[breakID]) + 1,
		Filename:   filename,
	}
	f.nextID++
	f.takes[breakID] = append(f.takes[breakID], take)
	return &take, nil
}

func (f *fakeTraffic) UploadStandalone(ctx context.Context, filename string, wav []byte) (*traffic.Take, error) {
	return f.UploadTake(ctx, 0, filename, wav)
}

func (f *fakeTraffic) ListTakes(_ context.Context, breakID int64) ([]traffic.Take, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]traffic.Take(nil), f.takes[breakID]...), nil
}

func (f *fakeTraffic) SelectTake(_ context.Context, takeID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for breakID, list := range f.takes {
		for i := range list {
			list[i].IsSelected = list[i].ID == takeID
		}
		f.takes[breakID] = list
	}
	return nil
}

func (f *fakeTraffic) DeleteTake(_ context.Context, takeID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for breakID, list := range f.takes {
		kept := list[:0]
		for _, take := range list {
			if take.ID != takeID {
				kept = append(kept, take)
			}
		}
		f.takes[breakID] = kept
	}
	return nil
}

// stubArecord installs an arecord that reports a single capture PCM so the
// device list RPC has something to return.
func stubArecord(t *testing.T, dir string) {
	t.Helper()
	binDir := filepath.Join(dir, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatalf("mkdir bin: %v", err)
	}
	script := "#!/bin/sh\nprintf 'default\\n    Default Audio Device\\n'\n"
	if err := os.WriteFile(filepath.Join(binDir, "arecord"), []byte(script), 0o755); err != nil {
		t.Fatalf("write arecord stub: %v", err)
	}
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func TestIPCServerClient(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	stubArecord(t, testsupport.BaseDir(cfg))

	client := newFakeTraffic()
	client.takes[7] = []traffic.Take{
		{ID: 10, BreakID: 7, TakeNumber: 1, Filename: "take1.wav", IsSelected: true},
		{ID: 11, BreakID: 7, TakeNumber: 2, Filename: "take2.wav"},
	}
	client.nextID = 12

	logger := logging.NewNop()
	d, err := daemon.NewWithClient(cfg, store, logger, client)
	if err != nil {
		t.Fatalf("daemon.NewWithClient: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	socket := filepath.Join(cfg.Paths.LogDir, "airtrackd.sock")
	srv, err := ipc.NewServer(ctx, socket, d, logger)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(func() {
		srv.Close()
	})

	time.Sleep(50 * time.Millisecond)

	rpc, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() {
		rpc.Close()
	})

	status, err := rpc.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if status.Running {
		t.Fatal("expected daemon to report not running before Start")
	}
	if status.RecorderState != "idle" {
		t.Fatalf("expected idle recorder, got %s", status.RecorderState)
	}
	if !strings.HasSuffix(status.TakeDBPath, "takes.db") {
		t.Fatalf("unexpected take db path: %s", status.TakeDBPath)
	}

	listResp, err := rpc.TakeList(7)
	if err != nil {
		t.Fatalf("TakeList failed: %v", err)
	}
	if len(listResp.Takes) != 2 {
		t.Fatalf("expected 2 takes, got %d", len(listResp.Takes))
	}
	if !listResp.Takes[0].IsSelected || listResp.Takes[1].IsSelected {
		t.Fatalf("unexpected selection flags: %#v", listResp.Takes)
	}

	if _, err := rpc.TakeList(0); err == nil {
		t.Fatal("expected TakeList to reject break id 0")
	}

	selectResp, err := rpc.TakeSelect(11)
	if err != nil {
		t.Fatalf("TakeSelect failed: %v", err)
	}
	if !selectResp.Selected {
		t.Fatal("expected selection to be acknowledged")
	}
	listResp, err = rpc.TakeList(7)
	if err != nil {
		t.Fatalf("TakeList after select failed: %v", err)
	}
	for _, take := range listResp.Takes {
		if take.IsSelected != (take.ID == 11) {
			t.Fatalf("selection did not move to take 11: %#v", listResp.Takes)
		}
	}

	deleteResp, err := rpc.TakeDelete(10)
	if err != nil {
		t.Fatalf("TakeDelete failed: %v", err)
	}
	if !deleteResp.Deleted {
		t.Fatal("expected deletion to be acknowledged")
	}
	listResp, err = rpc.TakeList(7)
	if err != nil {
		t.Fatalf("TakeList after delete failed: %v", err)
	}
	if len(listResp.Takes) != 1 || listResp.Takes[0].ID != 11 {
		t.Fatalf("expected only take 11 to remain, got %#v", listResp.Takes)
	}

	devices, err := rpc.DeviceList()
	if err != nil {
		t.Fatalf("DeviceList failed: %v", err)
	}
	if len(devices.Devices) != 1 || devices.Devices[0].ID != "default" {
		t.Fatalf("unexpected device list: %#v", devices.Devices)
	}

	if _, err := rpc.RecordPause(); err == nil {
		t.Fatal("expected RecordPause to fail when idle")
	}
	if _, err := rpc.RecordSave(7); err == nil {
		t.Fatal("expected RecordSave to fail with no candidate audio")
	}

	audioPath := filepath.Join(cfg.Paths.StagingDir, "stuck.wav")
	testsupport.WriteFile(t, audioPath, 64)
	staged := testsupport.StageRecording(t, store, 7, audioPath, 2.5)
	if ok, err := store.MarkUploading(context.Background(), staged.ID); err != nil || !ok {
		t.Fatalf("MarkUploading: ok=%v err=%v", ok, err)
	}
	if err := store.MarkFailed(context.Background(), staged.ID, "backend down"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	uploads, err := rpc.UploadList([]string{string(takes.StagedFailed)})
	if err != nil {
		t.Fatalf("UploadList failed: %v", err)
	}
	if len(uploads.Recordings) != 1 || uploads.Recordings[0].ID != staged.ID {
		t.Fatalf("expected one failed recording, got %#v", uploads.Recordings)
	}
	if uploads.Recordings[0].ErrorMessage != "backend down" {
		t.Fatalf("unexpected error message: %q", uploads.Recordings[0].ErrorMessage)
	}

	retryResp, err := rpc.UploadRetry(nil)
	if err != nil {
		t.Fatalf("UploadRetry failed: %v", err)
	}
	if retryResp.Updated != 1 {
		t.Fatalf("expected 1 recording retried, got %d", retryResp.Updated)
	}
	uploads, err = rpc.UploadList([]string{string(takes.StagedPending)})
	if err != nil {
		t.Fatalf("UploadList pending failed: %v", err)
	}
	if len(uploads.Recordings) != 1 {
		t.Fatalf("expected retried recording to be pending, got %#v", uploads.Recordings)
	}

	reconnect, err := rpc.PresenceReconnect()
	if err != nil {
		t.Fatalf("PresenceReconnect RPC failed: %v", err)
	}
	if reconnect.Connected {
		t.Fatal("expected reconnect to fail without a configured presence channel")
	}
	if reconnect.Message == "" {
		t.Fatal("expected reconnect failure message")
	}
}
