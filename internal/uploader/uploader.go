package uploader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"airtrack/internal/config"
	"airtrack/internal/logging"
	"airtrack/internal/services/traffic"
	"airtrack/internal/takes"
)

// TrafficAPI is the subset of the traffic client the uploader depends on.
type TrafficAPI interface {
	UploadTake(ctx context.Context, breakID int64, filename string, wav []byte) (*traffic.Take, error)
	UploadStandalone(ctx context.Context, filename string, wav []byte) (*traffic.Take, error)
	ListTakes(ctx context.Context, breakID int64) ([]traffic.Take, error)
}

// Worker drains staged recordings in the background, retrying failed uploads
// until they land or the operator removes them.
type Worker struct {
	cfg           *config.Config
	store         *takes.Store
	client        TrafficAPI
	logger        *slog.Logger
	pollInterval  time.Duration
	retryInterval time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewWorker constructs an upload worker.
func NewWorker(cfg *config.Config, store *takes.Store, client TrafficAPI, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Worker{
		cfg:           cfg,
		store:         store,
		client:        client,
		logger:        logging.NewComponentLogger(logger, "uploader"),
		pollInterval:  time.Duration(cfg.Workflow.UploadPollInterval) * time.Second,
		retryInterval: time.Duration(cfg.Workflow.UploadRetryInterval) * time.Second,
	}
}

// Start begins background processing.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("uploader already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.running = true
	w.wg.Add(1)
	w.mu.Unlock()

	go w.run(runCtx)
	return nil
}

// Stop terminates background processing and waits for completion.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	cancel := w.cancel
	w.running = false
	w.cancel = nil
	w.mu.Unlock()

	cancel()
	w.wg.Wait()
}

// Running reports whether the worker loop is active.
func (w *Worker) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		rec, err := w.store.NextPending(ctx)
		if err != nil {
			w.logger.Error("failed to fetch next staged recording",
				logging.Error(err),
				logging.String(logging.FieldEventType, "staged_fetch_failed"),
				logging.String(logging.FieldErrorHint, "check take database access"))
			w.sleep(ctx, w.retryInterval)
			continue
		}
		if rec == nil {
			w.sleep(ctx, w.pollInterval)
			continue
		}

		if err := w.uploadOne(ctx, rec); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			w.sleep(ctx, w.retryInterval)
		}
	}
}

// ProcessOnce drains one staged recording synchronously. The CLI retry
// command uses it so the operator sees the outcome immediately.
func (w *Worker) ProcessOnce(ctx context.Context) (bool, error) {
	rec, err := w.store.NextPending(ctx)
	if err != nil {
		return false, err
	}
	if rec == nil {
		return false, nil
	}
	return true, w.uploadOne(ctx, rec)
}

func (w *Worker) uploadOne(ctx context.Context, rec *takes.StagedRecording) error {
	claimed, err := w.store.MarkUploading(ctx, rec.ID)
	if err != nil {
		return fmt.Errorf("claim staged recording: %w", err)
	}
	if !claimed {
		return nil
	}

	wav, err := os.ReadFile(rec.AudioPath)
	if err != nil {
		// The file is gone; the row can never succeed.
		markErr := w.store.MarkFailed(ctx, rec.ID, fmt.Sprintf("staged audio unreadable: %v", err))
		if markErr != nil {
			w.logger.Error("failed to record missing staged audio",
				logging.Error(markErr),
				logging.String(logging.FieldEventType, "staged_update_failed"))
		}
		w.logger.Error("staged audio unreadable",
			logging.Error(err),
			logging.String(logging.FieldEventType, "staged_audio_missing"),
			logging.String("path", rec.AudioPath),
			logging.String(logging.FieldErrorHint, "the file may have been cleaned up manually"))
		return err
	}

	filename := filepath.Base(rec.AudioPath)
	var take *traffic.Take
	if rec.Standalone() {
		take, err = w.client.UploadStandalone(ctx, filename, wav)
	} else {
		take, err = w.client.UploadTake(ctx, rec.BreakID, filename, wav)
	}
	if err != nil {
		if markErr := w.store.MarkFailed(ctx, rec.ID, err.Error()); markErr != nil {
			w.logger.Error("failed to record upload failure",
				logging.Error(markErr),
				logging.String(logging.FieldEventType, "staged_update_failed"))
		}
		w.logger.Warn("staged upload failed, will retry",
			logging.Error(err),
			logging.String(logging.FieldEventType, "staged_upload_failed"),
			logging.Int64(logging.FieldBreakID, rec.BreakID),
			logging.Int("attempts", rec.Attempts+1))
		return err
	}

	if err := w.store.MarkUploaded(ctx, rec.ID, takeIDOf(take)); err != nil {
		return fmt.Errorf("record uploaded state: %w", err)
	}
	if err := os.Remove(rec.AudioPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		w.logger.Warn("failed to remove staged audio after upload",
			logging.Error(err),
			logging.String("path", rec.AudioPath))
	}

	if !rec.Standalone() {
		if err := w.refreshMirror(ctx, rec.BreakID); err != nil {
			w.logger.Warn("staged upload landed but mirror refresh failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "mirror_refresh_failed"),
				logging.Int64(logging.FieldBreakID, rec.BreakID))
		}
	}

	w.logger.Info("staged recording uploaded",
		logging.String(logging.FieldEventType, "staged_upload_ok"),
		logging.Int64(logging.FieldBreakID, rec.BreakID),
		logging.Int64(logging.FieldTakeID, takeIDOf(take)))
	return nil
}

func (w *Worker) refreshMirror(ctx context.Context, breakID int64) error {
	remote, err := w.client.ListTakes(ctx, breakID)
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
	return w.store.ReplaceForBreak(ctx, breakID, fresh)
}

func (w *Worker) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		d = time.Second
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

func takeIDOf(take *traffic.Take) int64 {
	if take == nil {
		return 0
	}
	return take.ID
}
