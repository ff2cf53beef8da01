package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPermissionDenied marks capture-device access refusals. Not retried
	// automatically; the user must grant access and retry.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrDeviceUnavailable marks a capture device that no longer exists.
	ErrDeviceUnavailable = errors.New("device unavailable")
	// ErrNoDevices marks an enumeration that found no capture devices.
	ErrNoDevices = errors.New("no capture devices found")
	// ErrInvalidRange marks trim bounds that fall outside the source audio.
	ErrInvalidRange = errors.New("invalid range")
	// ErrUploadFailed marks a network or storage error while saving a take.
	// The finalized audio is retained so the upload can be retried.
	ErrUploadFailed = errors.New("upload failed")
	// ErrConnectionLost marks a presence channel drop.
	ErrConnectionLost = errors.New("connection lost")
	// ErrNotFound marks a missing take, break, or staged recording.
	ErrNotFound = errors.New("not found")
	// ErrConfiguration marks unusable configuration.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrUploadFailed
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
