package ipc

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// CollaboratorInfo describes one presence-channel participant.
type CollaboratorInfo struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// DependencyStatus describes availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail"`
}

// StatusResponse represents combined daemon status information.
type StatusResponse struct {
	Running        bool               `json:"running"`
	PID            int                `json:"pid"`
	RecorderState  string             `json:"recorder_state"`
	Device         string             `json:"device"`
	ElapsedSeconds int                `json:"elapsed_seconds"`
	HasCandidate   bool               `json:"has_candidate"`
	TrimApplied    bool               `json:"trim_applied"`
	Presence       string             `json:"presence"`
	Collaborators  []CollaboratorInfo `json:"collaborators"`
	StagedPending  int                `json:"staged_pending"`
	StagedFailed   int                `json:"staged_failed"`
	TakeDBPath     string             `json:"take_db_path"`
	LockPath       string             `json:"lock_path"`
	Dependencies   []DependencyStatus `json:"dependencies"`
}

// RecordStartRequest begins a capture session. An empty device ID lets the
// daemon resolve one from the persisted preference.
type RecordStartRequest struct {
	DeviceID string `json:"device_id"`
}

// RecordStartResponse reports the session start outcome.
type RecordStartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// RecordPauseRequest suspends the running session.
type RecordPauseRequest struct{}

// RecordPauseResponse acknowledges the pause.
type RecordPauseResponse struct {
	Paused bool `json:"paused"`
}

// RecordResumeRequest continues a paused session.
type RecordResumeRequest struct{}

// RecordResumeResponse acknowledges the resume.
type RecordResumeResponse struct {
	Resumed bool `json:"resumed"`
}

// RecordStopRequest finalizes the running session.
type RecordStopRequest struct{}

// RecordStopResponse carries the captured duration.
type RecordStopResponse struct {
	Stopped         bool    `json:"stopped"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// RecordResetRequest discards candidate audio and returns to idle.
type RecordResetRequest struct{}

// RecordResetResponse acknowledges the reset.
type RecordResetResponse struct {
	Reset bool `json:"reset"`
}

// RecordTrimRequest applies (or clears) the trim range on candidate audio.
// Bounds are in milliseconds from the start of the recording.
type RecordTrimRequest struct {
	StartMillis int64 `json:"start_millis"`
	EndMillis   int64 `json:"end_millis"`
	Clear       bool  `json:"clear"`
}

// RecordTrimResponse carries the effective candidate duration after the
// trim change.
type RecordTrimResponse struct {
	DurationSeconds float64 `json:"duration_seconds"`
}

// RecordSaveRequest uploads the candidate as a take. BreakID zero saves a
// standalone recording.
type RecordSaveRequest struct {
	BreakID int64 `json:"break_id"`
}

// RecordSaveResponse reports the saved take.
type RecordSaveResponse struct {
	Saved  bool     `json:"saved"`
	Staged bool     `json:"staged"`
	Detail string   `json:"detail"`
	Take   TakeInfo `json:"take"`
}

// TakeInfo mirrors one backend take over the wire.
type TakeInfo struct {
	ID              int64   `json:"id"`
	BreakID         int64   `json:"break_id"`
	TakeNumber      int     `json:"take_number"`
	Filename        string  `json:"filename"`
	IsSelected      bool    `json:"is_selected"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// TakeListRequest fetches takes for a break.
type TakeListRequest struct {
	BreakID int64 `json:"break_id"`
}

// TakeListResponse contains the break's takes.
type TakeListResponse struct {
	Takes []TakeInfo `json:"takes"`
}

// TakeSelectRequest moves the break selection to a take.
type TakeSelectRequest struct {
	TakeID int64 `json:"take_id"`
}

// TakeSelectResponse acknowledges the selection.
type TakeSelectResponse struct {
	Selected bool `json:"selected"`
}

// TakeDeleteRequest removes a take.
type TakeDeleteRequest struct {
	TakeID int64 `json:"take_id"`
}

// TakeDeleteResponse acknowledges the deletion.
type TakeDeleteResponse struct {
	Deleted bool `json:"deleted"`
}

// PublishRequest pushes a take to the playout system.
type PublishRequest struct {
	TakeID int64 `json:"take_id"`
}

// PublishResponse acknowledges the publish.
type PublishResponse struct {
	Published bool `json:"published"`
}

// DeviceInfo describes one capture device.
type DeviceInfo struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// DeviceListRequest enumerates capture devices.
type DeviceListRequest struct{}

// DeviceListResponse contains available capture devices.
type DeviceListResponse struct {
	Devices []DeviceInfo `json:"devices"`
}

// StagedInfo mirrors one staged recording over the wire.
type StagedInfo struct {
	ID              string  `json:"id"`
	BreakID         int64   `json:"break_id"`
	Status          string  `json:"status"`
	DurationSeconds float64 `json:"duration_seconds"`
	Attempts        int     `json:"attempts"`
	ErrorMessage    string  `json:"error_message"`
	AudioPath       string  `json:"audio_path"`
}

// UploadListRequest filters staged recordings by status. Empty means all.
type UploadListRequest struct {
	Statuses []string `json:"statuses"`
}

// UploadListResponse contains staged recordings.
type UploadListResponse struct {
	Recordings []StagedInfo `json:"recordings"`
}

// UploadRetryRequest retries failed staged recordings. Empty list means all
// failed recordings.
type UploadRetryRequest struct {
	IDs []string `json:"ids"`
}

// UploadRetryResponse reports number of retried recordings.
type UploadRetryResponse struct {
	Updated int64 `json:"updated"`
}

// PresenceReconnectRequest forces an immediate presence reconnect.
type PresenceReconnectRequest struct{}

// PresenceReconnectResponse reports the reconnect outcome.
type PresenceReconnectResponse struct {
	Connected bool   `json:"connected"`
	Message   string `json:"message"`
}
