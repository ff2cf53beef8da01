package capture

import "context"

// Device identifies an audio input device available for capture.
type Device struct {
	ID    string
	Label string
}

// Stream delivers encoded audio chunks from an open capture device. The
// Chunks channel is closed when the device stops producing data or Close is
// called. Close releases the underlying device and is idempotent.
type Stream interface {
	Chunks() <-chan []byte
	Close() error
}

// Provider abstracts the host audio capability set: enumerate input devices,
// open one for chunked reading, and release it again. Implementations report
// services.ErrPermissionDenied, services.ErrNoDevices, and
// services.ErrDeviceUnavailable so callers can classify failures.
type Provider interface {
	Devices(ctx context.Context) ([]Device, error)
	Open(ctx context.Context, deviceID string) (Stream, error)
}
