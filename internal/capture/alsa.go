package capture

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"airtrack/internal/config"
	"airtrack/internal/logging"
	"airtrack/internal/media"
	"airtrack/internal/services"
)

// ALSAProvider enumerates and opens audio input devices through the ALSA
// capture binary (arecord by default).
type ALSAProvider struct {
	binary      string
	format      media.Format
	chunkMillis int
	logger      *slog.Logger
}

// NewALSAProvider builds a provider from capture configuration.
func NewALSAProvider(cfg *config.Config, logger *slog.Logger) *ALSAProvider {
	binary := "arecord"
	format := media.DefaultFormat
	chunkMillis := 250
	if cfg != nil {
		if cfg.Capture.Binary != "" {
			binary = cfg.Capture.Binary
		}
		format.SampleRate = cfg.Capture.SampleRate
		format.Channels = cfg.Capture.Channels
		chunkMillis = cfg.Capture.ChunkMillis
	}
	return &ALSAProvider{
		binary:      binary,
		format:      format,
		chunkMillis: chunkMillis,
		logger:      logging.NewComponentLogger(logger, "alsa"),
	}
}

// Format returns the PCM layout the provider captures in.
func (p *ALSAProvider) Format() media.Format {
	return p.format
}

// Devices lists capture PCMs as reported by `arecord -L`.
func (p *ALSAProvider) Devices(ctx context.Context) ([]Device, error) {
	cmd := exec.CommandContext(ctx, p.binary, "-L")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if isPermissionFailure(stderr.String()) {
			return nil, services.Wrap(services.ErrPermissionDenied, "alsa", "enumerate", stderr.String(), err)
		}
		return nil, services.Wrap(services.ErrDeviceUnavailable, "alsa", "enumerate", stderr.String(), err)
	}

	devices := parseDeviceList(stdout.String())
	if len(devices) == 0 {
		return nil, services.Wrap(services.ErrNoDevices, "alsa", "enumerate", "no capture PCMs reported", nil)
	}
	return devices, nil
}

// Open starts a capture process on the given device and streams raw PCM
// chunks from its stdout. An empty deviceID opens the ALSA default device.
func (p *ALSAProvider) Open(ctx context.Context, deviceID string) (Stream, error) {
	if deviceID != "" {
		devices, err := p.Devices(ctx)
		if err != nil {
			return nil, err
		}
		if !deviceKnown(devices, deviceID) {
			return nil, services.Wrap(services.ErrDeviceUnavailable, "alsa", "open", fmt.Sprintf("device %q no longer exists", deviceID), nil)
		}
	}

	args := []string{"-q", "-t", "raw", "-f", "S16_LE",
		"-r", strconv.Itoa(p.format.SampleRate),
		"-c", strconv.Itoa(p.format.Channels),
	}
	if deviceID != "" {
		args = append(args, "-D", deviceID)
	}

	cmd := exec.Command(p.binary, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("capture stdout pipe: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, services.Wrap(services.ErrDeviceUnavailable, "alsa", "open", stderr.String(), err)
	}

	chunkSize := p.format.BytesPerSecond() * p.chunkMillis / 1000
	if chunkSize <= 0 {
		chunkSize = 4096
	}

	stream := &processStream{
		cmd:    cmd,
		out:    make(chan []byte, 8),
		logger: p.logger,
	}
	go stream.readLoop(stdout, chunkSize)
	return stream, nil
}

type processStream struct {
	cmd    *exec.Cmd
	out    chan []byte
	logger *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

func (s *processStream) Chunks() <-chan []byte {
	return s.out
}

func (s *processStream) Close() error {
	s.closeOnce.Do(func() {
		if s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
		err := s.cmd.Wait()
		// Kill produces an expected non-zero exit; only report real failures.
		if err != nil && !strings.Contains(err.Error(), "killed") {
			s.closeErr = err
		}
	})
	return s.closeErr
}

func (s *processStream) readLoop(r io.Reader, chunkSize int) {
	defer close(s.out)
	buf := make([]byte, chunkSize)
	for {
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			s.out <- chunk
		}
		if err != nil {
			return
		}
	}
}

// parseDeviceList extracts capture PCM names from `arecord -L` output.
// Device names start at column zero; the following indented line carries the
// human-readable description.
func parseDeviceList(output string) []Device {
	var devices []Device
	scanner := bufio.NewScanner(strings.NewReader(output))
	var current *Device
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, " ") && !strings.HasPrefix(line, "\t") {
			name := strings.TrimSpace(line)
			if name == "null" || name == "" {
				current = nil
				continue
			}
			devices = append(devices, Device{ID: name, Label: name})
			current = &devices[len(devices)-1]
			continue
		}
		if current != nil && current.Label == current.ID {
			current.Label = strings.TrimSpace(line)
		}
	}
	return devices
}

func deviceKnown(devices []Device, id string) bool {
	for _, d := range devices {
		if d.ID == id {
			return true
		}
	}
	return false
}

func isPermissionFailure(stderr string) bool {
	lowered := strings.ToLower(stderr)
	return strings.Contains(lowered, "permission denied") || strings.Contains(lowered, "operation not permitted")
}
