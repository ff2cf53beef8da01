package takes

import (
	"strings"
	"time"
)

// Take mirrors one recorded voice take as the backend last reported it. The
// backend owns selection; the mirror is refreshed after every mutating call
// and never updated optimistically.
type Take struct {
	ID              int64
	BreakID         int64
	TakeNumber      int
	Filename        string
	IsSelected      bool
	DurationSeconds float64
	CreatedAt       time.Time
	SyncedAt        time.Time
}

// StagedStatus is the lifecycle of a staged recording awaiting upload.
type StagedStatus string

const (
	StagedPending   StagedStatus = "pending_upload"
	StagedUploading StagedStatus = "uploading"
	StagedUploaded  StagedStatus = "uploaded"
	StagedFailed    StagedStatus = "failed"
)

var allStagedStatuses = []StagedStatus{
	StagedPending,
	StagedUploading,
	StagedUploaded,
	StagedFailed,
}

var stagedStatusSet = func() map[StagedStatus]struct{} {
	set := make(map[StagedStatus]struct{}, len(allStagedStatuses))
	for _, status := range allStagedStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// ParseStagedStatus converts a string into a known StagedStatus.
func ParseStagedStatus(value string) (StagedStatus, bool) {
	normalized := StagedStatus(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := stagedStatusSet[normalized]
	return normalized, ok
}

// StagedRecording is finalized audio retained on disk until its upload
// succeeds. A failed upload keeps the row (and the file) so the user can
// retry without re-recording.
type StagedRecording struct {
	ID              string
	BreakID         int64
	AudioPath       string
	DurationSeconds float64
	Status          StagedStatus
	ErrorMessage    string
	Attempts        int
	UploadedTakeID  int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Standalone reports whether the recording has no target break.
func (r StagedRecording) Standalone() bool {
	return r.BreakID == 0
}

// HealthSummary describes aggregated staged-recording counts.
type HealthSummary struct {
	Total     int
	Pending   int
	Uploading int
	Uploaded  int
	Failed    int
}
