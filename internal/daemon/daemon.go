package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"airtrack/internal/capture"
	"airtrack/internal/config"
	"airtrack/internal/deps"
	"airtrack/internal/logging"
	"airtrack/internal/media"
	"airtrack/internal/prefs"
	"airtrack/internal/preflight"
	"airtrack/internal/presence"
	"airtrack/internal/recorder"
	"airtrack/internal/services/traffic"
	"airtrack/internal/takes"
	"airtrack/internal/trim"
	"airtrack/internal/uploader"
)

// Daemon coordinates the background services and enforces single-instance
// execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *takes.Store
	client   recorder.TrafficAPI
	recorder *recorder.Recorder
	uploader *uploader.Worker
	channel  *presence.Channel
	monitor  *capture.Monitor
	logPath  string

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc

	apiServer *apiServer
}

// Status represents daemon runtime information.
type Status struct {
	Running        bool
	PID            int
	Recorder       recorder.Status
	Presence       presence.Status
	Collaborators  []presence.Collaborator
	StagedHealth   takes.HealthSummary
	TakeDBPath     string
	LockFilePath   string
	Dependencies   []deps.Status
	Preflight      []preflight.Result
	MonitorRunning bool
}

// New constructs a daemon with initialized dependencies. The traffic client
// defaults to the HTTP implementation; tests inject a fake through NewWithClient.
func New(cfg *config.Config, store *takes.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	return NewWithClient(cfg, store, logger, traffic.NewClient(cfg))
}

// NewWithClient constructs a daemon around the provided traffic client.
func NewWithClient(cfg *config.Config, store *takes.Store, logger *slog.Logger, client recorder.TrafficAPI) (*Daemon, error) {
	if cfg == nil || store == nil || client == nil {
		return nil, errors.New("daemon requires config, store, and traffic client")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	provider := capture.NewALSAProvider(cfg, logger)
	session := capture.NewSession(provider, provider.Format(), logger,
		capture.WithOnFinalized(func(audio media.Audio) {
			logger.Info("recording finalized",
				logging.String(logging.FieldEventType, "capture_finalized"),
				logging.Float64("duration_seconds", audio.Seconds()),
				logging.Int("bytes", len(audio.Data)))
		}))
	preferences := prefs.NewStore(cfg.Paths.PrefsPath, logger)
	rec := recorder.New(cfg, session, client, store, preferences, logger)

	var channel *presence.Channel
	if cfg.Collaboration.URL != "" {
		channel = presence.NewChannel(presence.SettingsFromConfig(cfg), logger)
	}

	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		client:   client,
		recorder: rec,
		channel:  channel,
		logPath:  filepath.Join(cfg.Paths.LogDir, "airtrack.log"),
		lockPath: filepath.Join(cfg.Paths.LogDir, "airtrackd.lock"),
	}
	d.lock = flock.New(d.lockPath)
	d.monitor = capture.NewMonitor(logger, d.handleDeviceEvent)

	if uploadClient, ok := client.(uploader.TrafficAPI); ok {
		d.uploader = uploader.NewWorker(cfg, store, uploadClient, logger)
	}
	d.apiServer = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start launches the background services and acquires the daemon lock.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another airtrack daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	if d.uploader != nil {
		if err := d.uploader.Start(d.ctx); err != nil {
			_ = d.lock.Unlock()
			d.cancel()
			d.ctx = nil
			d.cancel = nil
			return fmt.Errorf("start uploader: %w", err)
		}
	}

	if d.channel != nil {
		if err := d.channel.Connect(d.ctx); err != nil {
			// Presence is best effort; the channel retries on its own.
			d.logger.Warn("presence connect failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "presence_connect_failed"),
				logging.String(logging.FieldImpact, "collaborator status unavailable until reconnect"))
		}
	}

	if err := d.monitor.Start(d.ctx); err != nil {
		d.logger.Warn("device monitor unavailable",
			logging.Error(err),
			logging.String(logging.FieldEventType, "device_monitor_failed"),
			logging.String(logging.FieldErrorHint, "hotplug events will not be observed"))
	}

	if d.apiServer != nil {
		if err := d.apiServer.start(d.ctx); err != nil {
			d.logger.Warn("http api unavailable", logging.Error(err))
		}
	}

	d.running.Store(true)
	d.logger.Info("airtrack daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if err := d.recorder.Discard(); err != nil {
		d.logger.Warn("failed to reset recording session", logging.Error(err))
	}
	if d.apiServer != nil {
		d.apiServer.stop()
	}
	d.monitor.Stop()
	if d.channel != nil {
		d.channel.Disconnect()
	}
	if d.uploader != nil {
		d.uploader.Stop()
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("airtrack daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Recorder exposes the recording orchestrator.
func (d *Daemon) Recorder() *recorder.Recorder {
	return d.recorder
}

// RecordStart begins a recording session on the given (or resolved) device.
func (d *Daemon) RecordStart(ctx context.Context, deviceID string) error {
	for _, result := range preflight.RunAll(ctx, d.cfg) {
		if !result.Passed {
			return fmt.Errorf("preflight %s: %s", result.Name, result.Detail)
		}
	}
	return d.recorder.Start(ctx, deviceID)
}

// RecordPause suspends the running session.
func (d *Daemon) RecordPause() error { return d.recorder.Pause() }

// RecordResume continues a paused session.
func (d *Daemon) RecordResume() error { return d.recorder.Resume() }

// RecordStop finalizes the session and returns the captured duration.
func (d *Daemon) RecordStop() (float64, error) {
	audio, err := d.recorder.Stop()
	if err != nil {
		return 0, err
	}
	return audio.Seconds(), nil
}

// RecordReset discards candidate audio and returns the session to idle.
func (d *Daemon) RecordReset() error { return d.recorder.Discard() }

// RecordTrim applies or clears the trim range on the candidate audio.
func (d *Daemon) RecordTrim(start, end time.Duration, clear bool) error {
	if clear {
		d.recorder.ClearTrim()
		return nil
	}
	return d.recorder.SetTrim(trim.Range{Start: start, End: end})
}

// RecordSave uploads the candidate as a take for the break (or standalone
// when breakID is zero).
func (d *Daemon) RecordSave(ctx context.Context, breakID int64) (*traffic.Take, error) {
	if breakID > 0 {
		return d.recorder.Save(ctx, breakID)
	}
	return d.recorder.SaveStandalone(ctx)
}

// CandidateDuration reports the duration a save would upload.
func (d *Daemon) CandidateDuration() (float64, bool, error) {
	audio, ok, err := d.recorder.Candidate()
	if err != nil || !ok {
		return 0, ok, err
	}
	return audio.Seconds(), true, nil
}

// TakeList refreshes the mirror for a break from the backend and returns it.
// When the backend is unreachable the mirror's last known rows are returned.
func (d *Daemon) TakeList(ctx context.Context, breakID int64) ([]*takes.Take, error) {
	if err := d.recorder.RefreshTakes(ctx, breakID); err != nil {
		d.logger.Warn("take refresh failed, serving mirror",
			logging.Error(err),
			logging.String(logging.FieldEventType, "mirror_refresh_failed"),
			logging.Int64(logging.FieldBreakID, breakID))
	}
	return d.store.ListByBreak(ctx, breakID)
}

// TakeSelect moves the break's selection to the given take.
func (d *Daemon) TakeSelect(ctx context.Context, takeID int64) error {
	return d.recorder.SelectTake(ctx, takeID)
}

// TakeDelete removes a take remotely and from the mirror.
func (d *Daemon) TakeDelete(ctx context.Context, takeID int64) error {
	return d.recorder.DeleteTake(ctx, takeID)
}

// Publish pushes a take to the playout system.
func (d *Daemon) Publish(ctx context.Context, takeID int64) error {
	publisher, ok := d.client.(interface {
		PushToLibreTime(ctx context.Context, takeID int64) error
	})
	if !ok {
		return errors.New("traffic client does not support playout publishing")
	}
	return publisher.PushToLibreTime(ctx, takeID)
}

// DeviceList enumerates available capture devices.
func (d *Daemon) DeviceList(ctx context.Context) ([]capture.Device, error) {
	return d.recorder.Devices(ctx)
}

// StagedList returns staged recordings, optionally filtered by status.
func (d *Daemon) StagedList(ctx context.Context, statuses ...takes.StagedStatus) ([]*takes.StagedRecording, error) {
	return d.store.ListStaged(ctx, statuses...)
}

// UploadRetry moves failed staged recordings back to pending.
func (d *Daemon) UploadRetry(ctx context.Context, ids []string) (int64, error) {
	return d.store.RetryFailed(ctx, ids...)
}

// PresenceReconnect forces an immediate reconnect attempt, resetting the
// backoff schedule.
func (d *Daemon) PresenceReconnect(ctx context.Context) error {
	if d.channel == nil {
		return errors.New("presence channel not configured")
	}
	return d.channel.Reconnect(ctx)
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:        d.running.Load(),
		PID:            os.Getpid(),
		Recorder:       d.recorder.Status(),
		TakeDBPath:     filepath.Join(d.cfg.Paths.LogDir, "takes.db"),
		LockFilePath:   d.lockPath,
		Dependencies:   preflight.CheckSystemDeps(d.cfg),
		MonitorRunning: d.monitor.Running(),
	}
	if d.channel != nil {
		status.Presence = d.channel.Status()
		status.Collaborators = d.channel.Collaborators().Snapshot()
	} else {
		status.Presence = presence.StatusDisconnected
	}
	if health, err := d.store.Health(ctx); err == nil {
		status.StagedHealth = health
	}
	return status
}

func (d *Daemon) handleDeviceEvent(event capture.DeviceEvent) {
	d.logger.Info("sound device change",
		logging.String(logging.FieldEventType, "device_hotplug"),
		logging.String("action", event.Action),
		logging.String("devpath", event.DevPath))
}

// format is referenced by the API server to report capture settings.
func (d *Daemon) captureFormat() media.Format {
	format := media.DefaultFormat
	if d.cfg != nil {
		format.SampleRate = d.cfg.Capture.SampleRate
		format.Channels = d.cfg.Capture.Channels
	}
	return format
}
