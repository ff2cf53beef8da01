package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"airtrack/internal/config"
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

type cliTestEnv struct {
	cfg        *config.Config
	store      *takes.Store
	daemon     *daemon.Daemon
	traffic    *fakeTraffic
	server     *ipc.Server
	socketPath string
	configPath string
	cancel     context.CancelFunc
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())

	configPath := filepath.Join(homeDir, ".config", "airtrack", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, cfg)

	store := testsupport.MustOpenStore(t, cfg)
	client := newFakeTraffic()

	logger := logging.NewNop()
	d, err := daemon.NewWithClient(cfg, store, logger, client)
	if err != nil {
		t.Fatalf("daemon.NewWithClient: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	socketPath := filepath.Join(cfg.Paths.LogDir, "cli.sock")
	srv, err := ipc.NewServer(ctx, socketPath, d, logger)
	if err != nil {
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	env := &cliTestEnv{
		cfg:        cfg,
		store:      store,
		daemon:     d,
		traffic:    client,
		server:     srv,
		socketPath: socketPath,
		configPath: configPath,
		cancel:     cancel,
	}

	t.Cleanup(func() {
		cancel()
		srv.Close()
		d.Close()
	})

	return env
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--socket", socket}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\nstaging_dir = %q\nlog_dir = %q\nprefs_path = %q\napi_bind = %q\n\n[traffic]\nbase_url = %q\napi_token = %q\n",
		cfg.Paths.StagingDir,
		cfg.Paths.LogDir,
		cfg.Paths.PrefsPath,
		cfg.Paths.APIBind,
		cfg.Traffic.BaseURL,
		cfg.Traffic.APIToken,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
