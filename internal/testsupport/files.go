package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile creates a file of the requested size whose first bytes look
// like a RIFF/WAVE header. Staged-recording tests need audio files that
// exist on disk with a plausible shape, not files that decode.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	payload := make([]byte, size)
	copy(payload, "RIFF")
	if size > 8 {
		copy(payload[8:], "WAVE")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
