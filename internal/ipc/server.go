package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"time"

	"log/slog"
	"sync"

	"airtrack/internal/daemon"
	"airtrack/internal/logging"
	"airtrack/internal/services"
	"airtrack/internal/services/traffic"
	"airtrack/internal/takes"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName("Airtrack", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually before restarting airtrackd"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String(logging.FieldComponent, "ipc"))
}

func convertTake(take *takes.Take) TakeInfo {
	return TakeInfo{
		ID:              take.ID,
		BreakID:         take.BreakID,
		TakeNumber:      take.TakeNumber,
		Filename:        take.Filename,
		IsSelected:      take.IsSelected,
		DurationSeconds: take.DurationSeconds,
	}
}

func convertTrafficTake(take *traffic.Take) TakeInfo {
	return TakeInfo{
		ID:              take.ID,
		BreakID:         take.BreakID,
		TakeNumber:      take.TakeNumber,
		Filename:        take.Filename,
		IsSelected:      take.IsSelected,
		DurationSeconds: take.DurationSeconds,
	}
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.PID = status.PID
	resp.RecorderState = string(status.Recorder.State)
	resp.Device = status.Recorder.Device
	resp.ElapsedSeconds = status.Recorder.ElapsedSeconds
	resp.HasCandidate = status.Recorder.HasCandidate
	resp.TrimApplied = status.Recorder.TrimApplied
	resp.Presence = string(status.Presence)
	resp.StagedPending = status.StagedHealth.Pending
	resp.StagedFailed = status.StagedHealth.Failed
	resp.TakeDBPath = status.TakeDBPath
	resp.LockPath = status.LockFilePath
	for _, collaborator := range status.Collaborators {
		resp.Collaborators = append(resp.Collaborators, CollaboratorInfo{
			UserID:   collaborator.UserID,
			Username: collaborator.Username,
		})
	}
	for _, dep := range status.Dependencies {
		resp.Dependencies = append(resp.Dependencies, DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		})
	}
	return nil
}

func (s *service) RecordStart(req RecordStartRequest, resp *RecordStartResponse) error {
	s.log().Debug("record start requested", logging.String(logging.FieldDevice, req.DeviceID))
	if err := s.daemon.RecordStart(s.ctx, req.DeviceID); err != nil {
		resp.Started = false
		resp.Message = err.Error()
		return nil
	}
	resp.Started = true
	resp.Message = "recording started"
	s.log().Info("recording started via IPC",
		logging.String(logging.FieldEventType, "record_start"))
	return nil
}

func (s *service) RecordPause(_ RecordPauseRequest, resp *RecordPauseResponse) error {
	if err := s.daemon.RecordPause(); err != nil {
		return err
	}
	resp.Paused = true
	return nil
}

func (s *service) RecordResume(_ RecordResumeRequest, resp *RecordResumeResponse) error {
	if err := s.daemon.RecordResume(); err != nil {
		return err
	}
	resp.Resumed = true
	return nil
}

func (s *service) RecordStop(_ RecordStopRequest, resp *RecordStopResponse) error {
	seconds, err := s.daemon.RecordStop()
	if err != nil {
		return err
	}
	resp.Stopped = true
	resp.DurationSeconds = seconds
	s.log().Info("recording stopped via IPC",
		logging.String(logging.FieldEventType, "record_stop"),
		logging.Float64("duration_seconds", seconds))
	return nil
}

func (s *service) RecordReset(_ RecordResetRequest, resp *RecordResetResponse) error {
	if err := s.daemon.RecordReset(); err != nil {
		return err
	}
	resp.Reset = true
	return nil
}

func (s *service) RecordTrim(req RecordTrimRequest, resp *RecordTrimResponse) error {
	start := time.Duration(req.StartMillis) * time.Millisecond
	end := time.Duration(req.EndMillis) * time.Millisecond
	if err := s.daemon.RecordTrim(start, end, req.Clear); err != nil {
		return err
	}
	seconds, ok, err := s.daemon.CandidateDuration()
	if err != nil {
		return err
	}
	if ok {
		resp.DurationSeconds = seconds
	}
	return nil
}

func (s *service) RecordSave(req RecordSaveRequest, resp *RecordSaveResponse) error {
	s.log().Debug("record save requested", logging.Int64(logging.FieldBreakID, req.BreakID))
	take, err := s.daemon.RecordSave(s.ctx, req.BreakID)
	if err != nil {
		if errors.Is(err, services.ErrUploadFailed) || errors.Is(err, services.ErrConnectionLost) {
			resp.Saved = false
			resp.Staged = true
			resp.Detail = err.Error()
			return nil
		}
		return err
	}
	resp.Saved = true
	if take != nil {
		resp.Take = convertTrafficTake(take)
	}
	s.log().Info("take saved via IPC",
		logging.String(logging.FieldEventType, "take_saved"),
		logging.Int64(logging.FieldBreakID, req.BreakID))
	return nil
}

func (s *service) TakeList(req TakeListRequest, resp *TakeListResponse) error {
	if req.BreakID <= 0 {
		return fmt.Errorf("invalid break id %d", req.BreakID)
	}
	list, err := s.daemon.TakeList(s.ctx, req.BreakID)
	if err != nil {
		return err
	}
	resp.Takes = make([]TakeInfo, 0, len(list))
	for _, take := range list {
		if take == nil {
			continue
		}
		resp.Takes = append(resp.Takes, convertTake(take))
	}
	return nil
}

func (s *service) TakeSelect(req TakeSelectRequest, resp *TakeSelectResponse) error {
	if req.TakeID <= 0 {
		return fmt.Errorf("invalid take id %d", req.TakeID)
	}
	if err := s.daemon.TakeSelect(s.ctx, req.TakeID); err != nil {
		return err
	}
	resp.Selected = true
	s.log().Info("take selected via IPC",
		logging.String(logging.FieldEventType, "take_selected"),
		logging.Int64(logging.FieldTakeID, req.TakeID))
	return nil
}

func (s *service) TakeDelete(req TakeDeleteRequest, resp *TakeDeleteResponse) error {
	if req.TakeID <= 0 {
		return fmt.Errorf("invalid take id %d", req.TakeID)
	}
	if err := s.daemon.TakeDelete(s.ctx, req.TakeID); err != nil {
		return err
	}
	resp.Deleted = true
	s.log().Info("take deleted via IPC",
		logging.String(logging.FieldEventType, "take_deleted"),
		logging.Int64(logging.FieldTakeID, req.TakeID))
	return nil
}

func (s *service) Publish(req PublishRequest, resp *PublishResponse) error {
	if req.TakeID <= 0 {
		return fmt.Errorf("invalid take id %d", req.TakeID)
	}
	if err := s.daemon.Publish(s.ctx, req.TakeID); err != nil {
		return err
	}
	resp.Published = true
	s.log().Info("take published via IPC",
		logging.String(logging.FieldEventType, "take_published"),
		logging.Int64(logging.FieldTakeID, req.TakeID))
	return nil
}

func (s *service) DeviceList(_ DeviceListRequest, resp *DeviceListResponse) error {
	devices, err := s.daemon.DeviceList(s.ctx)
	if err != nil {
		return err
	}
	resp.Devices = make([]DeviceInfo, 0, len(devices))
	for _, device := range devices {
		resp.Devices = append(resp.Devices, DeviceInfo{ID: device.ID, Label: device.Label})
	}
	return nil
}

func (s *service) UploadList(req UploadListRequest, resp *UploadListResponse) error {
	statuses := make([]takes.StagedStatus, 0, len(req.Statuses))
	for _, status := range req.Statuses {
		parsed, ok := takes.ParseStagedStatus(status)
		if !ok {
			continue
		}
		statuses = append(statuses, parsed)
	}
	recordings, err := s.daemon.StagedList(s.ctx, statuses...)
	if err != nil {
		return err
	}
	resp.Recordings = make([]StagedInfo, 0, len(recordings))
	for _, recording := range recordings {
		if recording == nil {
			continue
		}
		resp.Recordings = append(resp.Recordings, StagedInfo{
			ID:              recording.ID,
			BreakID:         recording.BreakID,
			Status:          string(recording.Status),
			DurationSeconds: recording.DurationSeconds,
			Attempts:        recording.Attempts,
			ErrorMessage:    recording.ErrorMessage,
			AudioPath:       recording.AudioPath,
		})
	}
	return nil
}

func (s *service) UploadRetry(req UploadRetryRequest, resp *UploadRetryResponse) error {
	s.log().Debug("upload retry requested", logging.Int("recording_count", len(req.IDs)))
	updated, err := s.daemon.UploadRetry(s.ctx, req.IDs)
	if err != nil {
		return err
	}
	resp.Updated = updated
	s.log().Info("staged recordings retried",
		logging.String(logging.FieldEventType, "upload_retry"),
		logging.Int64("updated_count", updated))
	return nil
}

func (s *service) PresenceReconnect(_ PresenceReconnectRequest, resp *PresenceReconnectResponse) error {
	s.log().Debug("presence reconnect requested")
	if err := s.daemon.PresenceReconnect(s.ctx); err != nil {
		resp.Connected = false
		resp.Message = err.Error()
		return nil
	}
	resp.Connected = true
	resp.Message = "presence channel connected"
	return nil
}
