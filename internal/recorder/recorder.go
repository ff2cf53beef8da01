package recorder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"airtrack/internal/capture"
	"airtrack/internal/config"
	"airtrack/internal/logging"
	"airtrack/internal/media"
	"airtrack/internal/prefs"
	"airtrack/internal/services"
	"airtrack/internal/services/traffic"
	"airtrack/internal/takes"
	"airtrack/internal/trim"
)

// TrafficAPI is the subset of the traffic client the recorder depends on.
type TrafficAPI interface {
	UploadTake(ctx context.Context, breakID int64, filename string, wav []byte) (*traffic.Take, error)
	UploadStandalone(ctx context.Context, filename string, wav []byte) (*traffic.Take, error)
	ListTakes(ctx context.Context, breakID int64) ([]traffic.Take, error)
	SelectTake(ctx context.Context, takeID int64) error
	DeleteTake(ctx context.Context, takeID int64) error
}

// Recorder coordinates a capture session, the trim editor, and take
// persistence. One recorder serves one operator; all methods are safe for
// concurrent use.
type Recorder struct {
	cfg     *config.Config
	session *capture.Session
	client  TrafficAPI
	store   *takes.Store
	prefs   *prefs.Store
	logger  *slog.Logger

	mu        sync.Mutex
	candidate *media.Audio
	trimRange *trim.Range
	device    string
}

// New assembles a recorder from its collaborators.
func New(cfg *config.Config, session *capture.Session, client TrafficAPI, store *takes.Store, preferences *prefs.Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Recorder{
		cfg:     cfg,
		session: session,
		client:  client,
		store:   store,
		prefs:   preferences,
		logger:  logging.NewComponentLogger(logger, "recorder"),
	}
}

// Devices enumerates the capture devices currently available.
func (r *Recorder) Devices(ctx context.Context) ([]capture.Device, error) {
	return r.session.EnumerateDevices(ctx)
}

// ResolveDevice picks the device to record from. An explicit ID wins; next
// comes the persisted preference if that device is still attached; otherwise
// the first enumerated device is used.
func (r *Recorder) ResolveDevice(ctx context.Context, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	devices, err := r.session.EnumerateDevices(ctx)
	if err != nil {
		return "", err
	}
	if len(devices) == 0 {
		return "", services.Wrap(services.ErrNoDevices, "recorder", "resolve device", "no capture devices detected", nil)
	}

	if preferred, ok := r.prefs.SelectedDevice(); ok {
		for _, device := range devices {
			if device.ID == preferred {
				return preferred, nil
			}
		}
		r.logger.Info("preferred device not attached, falling back",
			logging.String(logging.FieldEventType, "device_fallback"),
			logging.String(logging.FieldDevice, preferred),
			logging.String("fallback", devices[0].ID))
	}

	return devices[0].ID, nil
}

// Start begins recording from the resolved device. A successful start
// persists the device choice for future sessions and discards any candidate
// audio left over from a previous take.
func (r *Recorder) Start(ctx context.Context, deviceID string) error {
	resolved, err := r.ResolveDevice(ctx, deviceID)
	if err != nil {
		return err
	}

	if err := r.session.Start(ctx, resolved); err != nil {
		return err
	}

	r.mu.Lock()
	r.candidate = nil
	r.trimRange = nil
	r.device = resolved
	r.mu.Unlock()

	if err := r.prefs.SetSelectedDevice(resolved); err != nil {
		r.logger.Warn("failed to persist device preference",
			logging.String(logging.FieldEventType, "prefs_save_failed"),
			logging.Error(err),
			logging.String(logging.FieldImpact, "device choice will not survive a restart"))
	}

	r.logger.Info("recording started",
		logging.String(logging.FieldEventType, "record_start"),
		logging.String(logging.FieldDevice, resolved))
	return nil
}

// Pause suspends the running session without releasing the device.
func (r *Recorder) Pause() error {
	return r.session.Pause()
}

// Resume continues a paused session.
func (r *Recorder) Resume() error {
	return r.session.Resume()
}

// Stop finalizes the session and keeps the audio as the save candidate.
func (r *Recorder) Stop() (media.Audio, error) {
	audio, err := r.session.Stop()
	if err != nil {
		return media.Audio{}, err
	}

	r.mu.Lock()
	r.candidate = &audio
	r.trimRange = nil
	r.mu.Unlock()

	r.logger.Info("recording stopped",
		logging.String(logging.FieldEventType, "record_stop"),
		logging.Float64("seconds", audio.Seconds()))
	return audio, nil
}

// Discard drops the candidate audio and returns the session to idle.
func (r *Recorder) Discard() error {
	if err := r.session.Reset(); err != nil {
		return err
	}

	r.mu.Lock()
	r.candidate = nil
	r.trimRange = nil
	r.mu.Unlock()
	return nil
}

// SetTrim applies a trim range to the candidate. The original audio is kept,
// so a later SetTrim replaces the previous range rather than compounding it.
func (r *Recorder) SetTrim(tr trim.Range) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.candidate == nil {
		return services.Wrap(services.ErrInvalidRange, "recorder", "set trim", "no finalized audio to trim", nil)
	}
	if err := tr.Validate(r.candidate.Duration()); err != nil {
		return err
	}
	r.trimRange = &tr
	return nil
}

// ClearTrim restores the untrimmed candidate.
func (r *Recorder) ClearTrim() {
	r.mu.Lock()
	r.trimRange = nil
	r.mu.Unlock()
}

// Candidate returns the audio a Save call would upload, with any trim range
// applied, and reports whether a candidate exists.
func (r *Recorder) Candidate() (media.Audio, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.candidateLocked()
}

func (r *Recorder) candidateLocked() (media.Audio, bool, error) {
	if r.candidate == nil {
		return media.Audio{}, false, nil
	}
	if r.trimRange == nil {
		return *r.candidate, true, nil
	}
	trimmed, err := trim.Trim(*r.candidate, *r.trimRange)
	if err != nil {
		return media.Audio{}, false, err
	}
	return trimmed, true, nil
}

// Save uploads the candidate as a new take for the break, then refreshes the
// local mirror from the backend. On upload failure the audio is written to
// the staging directory and recorded for retry; the candidate survives so the
// operator loses nothing.
func (r *Recorder) Save(ctx context.Context, breakID int64) (*traffic.Take, error) {
	return r.save(ctx, breakID)
}

// SaveStandalone uploads the candidate as a recording with no target break.
func (r *Recorder) SaveStandalone(ctx context.Context) (*traffic.Take, error) {
	return r.save(ctx, 0)
}

func (r *Recorder) save(ctx context.Context, breakID int64) (*traffic.Take, error) {
	r.mu.Lock()
	audio, ok, err := r.candidateLocked()
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "recorder", "save", "no finalized audio to save", nil)
	}

	wav, err := media.EncodeWAV(audio)
	if err != nil {
		return nil, fmt.Errorf("encode wav: %w", err)
	}
	filename := takeFilename(breakID)

	var take *traffic.Take
	if breakID > 0 {
		take, err = r.client.UploadTake(ctx, breakID, filename, wav)
	} else {
		take, err = r.client.UploadStandalone(ctx, filename, wav)
	}
	if err != nil {
		if stageErr := r.stageForRetry(ctx, breakID, filename, wav, audio.Seconds()); stageErr != nil {
			r.logger.Error("failed to stage recording after upload failure",
				logging.String(logging.FieldEventType, "stage_failed"),
				logging.Error(stageErr),
				logging.String(logging.FieldImpact, "audio survives only in memory"))
		}
		return nil, err
	}

	r.mu.Lock()
	r.candidate = nil
	r.trimRange = nil
	r.mu.Unlock()

	if breakID > 0 {
		if refreshErr := r.RefreshTakes(ctx, breakID); refreshErr != nil {
			r.logger.Warn("take uploaded but mirror refresh failed",
				logging.String(logging.FieldEventType, "mirror_refresh_failed"),
				logging.Int64(logging.FieldBreakID, breakID),
				logging.Error(refreshErr))
		}
	}

	r.logger.Info("take saved",
		logging.String(logging.FieldEventType, "take_saved"),
		logging.Int64(logging.FieldBreakID, breakID),
		logging.Int64(logging.FieldTakeID, takeIDOf(take)))
	return take, nil
}

func (r *Recorder) stageForRetry(ctx context.Context, breakID int64, filename string, wav []byte, seconds float64) error {
	if err := r.cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure staging dir: %w", err)
	}
	path := filepath.Join(r.cfg.Paths.StagingDir, filename)
	if err := os.WriteFile(path, wav, 0o644); err != nil {
		return fmt.Errorf("write staged audio: %w", err)
	}
	if _, err := r.store.Stage(ctx, breakID, path, seconds); err != nil {
		return err
	}
	r.logger.Info("upload failed, recording staged for retry",
		logging.String(logging.FieldEventType, "upload_staged"),
		logging.Int64(logging.FieldBreakID, breakID),
		logging.String("path", path))
	return nil
}

// RefreshTakes replaces the local mirror for a break with the backend's
// current take list.
func (r *Recorder) RefreshTakes(ctx context.Context, breakID int64) error {
	remote, err := r.client.ListTakes(ctx, breakID)
	if err != nil {
		return err
	}
	fresh := make([]takes.Take, 0, len(remote))
	for _, take := range remote {
		fresh = append(fresh, takes.Take{
			ID:              take.ID,
			BreakID:         take.BreakID,
			TakeNumber:      take.TakeNumber,
			Filename:        take.Filename,
			IsSelected:      take.IsSelected,
			DurationSeconds: take.DurationSeconds,
			CreatedAt:       take.CreatedAt,
		})
	}
	return r.store.ReplaceForBreak(ctx, breakID, fresh)
}

// SelectTake asks the backend to move the break's selection and mirrors the
// result locally.
func (r *Recorder) SelectTake(ctx context.Context, takeID int64) error {
	if err := r.client.SelectTake(ctx, takeID); err != nil {
		return err
	}
	if err := r.store.MarkSelected(ctx, takeID); err != nil {
		r.logger.Warn("selection saved remotely but mirror update failed",
			logging.String(logging.FieldEventType, "mirror_refresh_failed"),
			logging.Int64(logging.FieldTakeID, takeID),
			logging.Error(err))
	}
	return nil
}

// DeleteTake removes a take on the backend and from the mirror. Deleting the
// selected take leaves the break unselected until the operator picks again.
func (r *Recorder) DeleteTake(ctx context.Context, takeID int64) error {
	if err := r.client.DeleteTake(ctx, takeID); err != nil {
		return err
	}
	if _, err := r.store.RemoveTake(ctx, takeID); err != nil {
		r.logger.Warn("take deleted remotely but mirror update failed",
			logging.String(logging.FieldEventType, "mirror_refresh_failed"),
			logging.Int64(logging.FieldTakeID, takeID),
			logging.Error(err))
	}
	return nil
}

// Status reports a snapshot of the recorder for status surfaces.
type Status struct {
	State          capture.State
	Device         string
	ElapsedSeconds int
	HasCandidate   bool
	TrimApplied    bool
}

// Status returns the current session and candidate state.
func (r *Recorder) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Status{
		State:          r.session.State(),
		Device:         r.device,
		ElapsedSeconds: r.session.Elapsed(),
		HasCandidate:   r.candidate != nil,
		TrimApplied:    r.trimRange != nil,
	}
}

func takeFilename(breakID int64) string {
	stamp := time.Now().UTC().Format("20060102T150405")
	if breakID > 0 {
		return fmt.Sprintf("break%d_%s.wav", breakID, stamp)
	}
	return fmt.Sprintf("standalone_%s.wav", stamp)
}

func takeIDOf(take *traffic.Take) int64 {
	if take == nil {
		return 0
	}
	return take.ID
}
