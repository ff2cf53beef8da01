package capture

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"airtrack/internal/logging"
	"airtrack/internal/media"
)

// State is the lifecycle of a recording session.
type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
	StatePaused    State = "paused"
	StateStopped   State = "stopped"
)

// ErrSessionActive is returned when Start is called while a recording is in
// progress. Serialization is enforced here rather than at the interaction
// layer so misuse cannot leave two device streams open.
var ErrSessionActive = errors.New("recording session already active")

// ErrInvalidTransition is returned for pause/resume calls outside the states
// that allow them.
var ErrInvalidTransition = errors.New("invalid session state transition")

// SessionOption configures optional Session behavior.
type SessionOption func(*Session)

// WithTickInterval overrides the elapsed-time tick period. Production code
// uses the one-second default; tests shorten it.
func WithTickInterval(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.tickInterval = d
		}
	}
}

// WithOnFinalized registers a callback fired with the finalized audio after
// a successful Stop.
func WithOnFinalized(fn func(media.Audio)) SessionOption {
	return func(s *Session) {
		s.onFinalized = fn
	}
}

// Session owns at most one open capture stream and moves through
// idle → recording ⇄ paused → stopped → idle (via Reset). Stop and Reset
// always release the device; both are safe no-ops when nothing is open.
type Session struct {
	provider     Provider
	format       media.Format
	logger       *slog.Logger
	tickInterval time.Duration
	onFinalized  func(media.Audio)

	mu        sync.Mutex
	state     State
	stream    Stream
	chunks    [][]byte
	byteCount int
	elapsed   int
	finalized *media.Audio
	stopTick  chan struct{}
	readDone  chan struct{}
}

// NewSession constructs a session over the given device provider.
func NewSession(provider Provider, format media.Format, logger *slog.Logger, opts ...SessionOption) *Session {
	s := &Session{
		provider:     provider,
		format:       format,
		logger:       logging.NewComponentLogger(logger, "capture"),
		tickInterval: time.Second,
		state:        StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnumerateDevices lists the available audio input devices.
func (s *Session) EnumerateDevices(ctx context.Context) ([]Device, error) {
	return s.provider.Devices(ctx)
}

// Start opens a capture stream on the given device (or the provider default
// when deviceID is empty) and begins buffering chunks. Valid only from idle
// or stopped.
func (s *Session) Start(ctx context.Context, deviceID string) error {
	s.mu.Lock()
	if s.state == StateRecording || s.state == StatePaused {
		s.mu.Unlock()
		return ErrSessionActive
	}
	s.mu.Unlock()

	stream, err := s.provider.Open(ctx, deviceID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.state == StateRecording || s.state == StatePaused {
		// Lost the race against a concurrent Start.
		s.mu.Unlock()
		_ = stream.Close()
		return ErrSessionActive
	}
	s.stream = stream
	s.state = StateRecording
	s.chunks = nil
	s.byteCount = 0
	s.elapsed = 0
	s.finalized = nil
	s.stopTick = make(chan struct{})
	s.readDone = make(chan struct{})
	stopTick := s.stopTick
	readDone := s.readDone
	s.mu.Unlock()

	go s.readLoop(stream, readDone)
	go s.tickLoop(stopTick)

	s.logger.Info("recording started", logging.String(logging.FieldDevice, deviceID))
	return nil
}

// Pause suspends chunk buffering and the elapsed tick. Valid only while
// recording.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRecording {
		return ErrInvalidTransition
	}
	s.state = StatePaused
	return nil
}

// Resume restarts chunk buffering. Valid only while paused.
func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePaused {
		return ErrInvalidTransition
	}
	s.state = StateRecording
	return nil
}

// Stop flushes buffered chunks into finalized audio, releases the device
// stream, and transitions to stopped. Stopping an idle or already-stopped
// session is a no-op returning the prior finalized audio, if any.
func (s *Session) Stop() (media.Audio, error) {
	s.mu.Lock()
	if s.state != StateRecording && s.state != StatePaused {
		var existing media.Audio
		if s.finalized != nil {
			existing = *s.finalized
		}
		s.mu.Unlock()
		return existing, nil
	}

	stream := s.stream
	readDone := s.readDone
	close(s.stopTick)
	s.stream = nil
	s.stopTick = nil
	s.readDone = nil
	s.state = StateStopped
	s.mu.Unlock()

	err := stream.Close()
	if readDone != nil {
		<-readDone
	}

	s.mu.Lock()
	data := make([]byte, 0, s.byteCount)
	for _, chunk := range s.chunks {
		data = append(data, chunk...)
	}
	s.chunks = nil
	s.byteCount = 0
	audio := media.Audio{Format: s.format, Data: data}
	s.finalized = &audio
	elapsed := s.elapsed
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("capture stream close reported error", logging.Error(err))
	}
	s.logger.Info("recording stopped",
		logging.Int("elapsed_seconds", elapsed),
		logging.Int("bytes", len(data)))

	if s.onFinalized != nil {
		s.onFinalized(audio)
	}
	return audio, nil
}

// Reset stops any active capture, discards finalized audio, zeroes the
// elapsed counter, and returns the session to idle.
func (s *Session) Reset() error {
	if _, err := s.Stop(); err != nil {
		return err
	}
	s.mu.Lock()
	s.state = StateIdle
	s.finalized = nil
	s.chunks = nil
	s.byteCount = 0
	s.elapsed = 0
	s.mu.Unlock()
	return nil
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Elapsed returns the whole seconds spent recording, excluding paused time.
func (s *Session) Elapsed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsed
}

// Buffered returns the number of PCM bytes captured so far.
func (s *Session) Buffered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byteCount
}

// Finalized returns the audio produced by the last Stop, if any.
func (s *Session) Finalized() (media.Audio, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalized == nil {
		return media.Audio{}, false
	}
	return *s.finalized, true
}

func (s *Session) readLoop(stream Stream, done chan struct{}) {
	defer close(done)
	for chunk := range stream.Chunks() {
		s.mu.Lock()
		// While paused the stream stays open but chunks are not buffered.
		if s.state == StateRecording {
			buffered := make([]byte, len(chunk))
			copy(buffered, chunk)
			s.chunks = append(s.chunks, buffered)
			s.byteCount += len(buffered)
		}
		s.mu.Unlock()
	}
}

func (s *Session) tickLoop(stop chan struct{}) {
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.state == StateRecording {
				s.elapsed++
			}
			s.mu.Unlock()
		}
	}
}
