package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"airtrack/internal/config"
	"airtrack/internal/logging"
	"airtrack/internal/takes"
)

// apiServer exposes a small read-only HTTP surface for dashboards and
// scripts. Mutations stay on the IPC socket.
type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	if cfg == nil || d == nil {
		return nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil
	}

	mux := http.NewServeMux()
	srv := &apiServer{
		bind:   bind,
		logger: logger,
		daemon: d,
	}

	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/takes", srv.handleTakes)
	mux.HandleFunc("/api/staged", srv.handleStaged)
	mux.HandleFunc("/api/devices", srv.handleDevices)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// Addr returns the bound listener address, or "" before start.
func (s *apiServer) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String(logging.FieldComponent, "api"))
}

type statusPayload struct {
	Running        bool                   `json:"running"`
	PID            int                    `json:"pid"`
	RecorderState  string                 `json:"recorder_state"`
	Device         string                 `json:"device"`
	ElapsedSeconds int                    `json:"elapsed_seconds"`
	HasCandidate   bool                   `json:"has_candidate"`
	Presence       string                 `json:"presence"`
	Collaborators  []collaboratorPayload  `json:"collaborators,omitempty"`
	Staged         map[string]int         `json:"staged"`
	SampleRate     int                    `json:"sample_rate"`
	Channels       int                    `json:"channels"`
	Dependencies   []dependencyPayload    `json:"dependencies,omitempty"`
}

type collaboratorPayload struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

type dependencyPayload struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
	Detail    string `json:"detail,omitempty"`
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status(r.Context())
	format := s.daemon.captureFormat()

	payload := statusPayload{
		Running:        status.Running,
		PID:            status.PID,
		RecorderState:  string(status.Recorder.State),
		Device:         status.Recorder.Device,
		ElapsedSeconds: status.Recorder.ElapsedSeconds,
		HasCandidate:   status.Recorder.HasCandidate,
		Presence:       string(status.Presence),
		SampleRate:     format.SampleRate,
		Channels:       format.Channels,
		Staged: map[string]int{
			"total":     status.StagedHealth.Total,
			"pending":   status.StagedHealth.Pending,
			"uploading": status.StagedHealth.Uploading,
			"uploaded":  status.StagedHealth.Uploaded,
			"failed":    status.StagedHealth.Failed,
		},
	}
	for _, collaborator := range status.Collaborators {
		payload.Collaborators = append(payload.Collaborators, collaboratorPayload{
			UserID:   collaborator.UserID,
			Username: collaborator.Username,
		})
	}
	for _, dep := range status.Dependencies {
		payload.Dependencies = append(payload.Dependencies, dependencyPayload{
			Name:      dep.Name,
			Available: dep.Available,
			Detail:    dep.Detail,
		})
	}
	s.writeJSON(w, http.StatusOK, payload)
}

type takePayload struct {
	ID              int64   `json:"id"`
	BreakID         int64   `json:"break_id"`
	TakeNumber      int     `json:"take_number"`
	Filename        string  `json:"filename"`
	IsSelected      bool    `json:"is_selected"`
	DurationSeconds float64 `json:"duration_seconds"`
}

func (s *apiServer) handleTakes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	breakID, err := strconv.ParseInt(r.URL.Query().Get("break_id"), 10, 64)
	if err != nil || breakID <= 0 {
		s.writeError(w, http.StatusBadRequest, "break_id query parameter required")
		return
	}
	list, err := s.daemon.TakeList(r.Context(), breakID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	payload := make([]takePayload, 0, len(list))
	for _, take := range list {
		payload = append(payload, takePayload{
			ID:              take.ID,
			BreakID:         take.BreakID,
			TakeNumber:      take.TakeNumber,
			Filename:        take.Filename,
			IsSelected:      take.IsSelected,
			DurationSeconds: take.DurationSeconds,
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"takes": payload})
}

type stagedPayload struct {
	ID              string  `json:"id"`
	BreakID         int64   `json:"break_id"`
	Status          string  `json:"status"`
	DurationSeconds float64 `json:"duration_seconds"`
	Attempts        int     `json:"attempts"`
	ErrorMessage    string  `json:"error_message,omitempty"`
}

func (s *apiServer) handleStaged(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var statuses []takes.StagedStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, ok := takes.ParseStagedStatus(raw)
		if !ok {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", raw))
			return
		}
		statuses = append(statuses, parsed)
	}
	list, err := s.daemon.StagedList(r.Context(), statuses...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	payload := make([]stagedPayload, 0, len(list))
	for _, rec := range list {
		payload = append(payload, stagedPayload{
			ID:              rec.ID,
			BreakID:         rec.BreakID,
			Status:          string(rec.Status),
			DurationSeconds: rec.DurationSeconds,
			Attempts:        rec.Attempts,
			ErrorMessage:    rec.ErrorMessage,
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"staged": payload})
}

func (s *apiServer) handleDevices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	devices, err := s.daemon.DeviceList(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	type devicePayload struct {
		ID    string `json:"id"`
		Label string `json:"label"`
	}
	payload := make([]devicePayload, 0, len(devices))
	for _, device := range devices {
		payload = append(payload, devicePayload{ID: device.ID, Label: device.Label})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"devices": payload})
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Warn("failed to encode api response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
