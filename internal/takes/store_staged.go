package takes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const stagedColumns = "id, break_id, audio_path, duration_seconds, status, error_message, attempts, uploaded_take_id, created_at, updated_at"

// Stage records finalized audio that still needs to reach the backend. The
// returned recording starts in the pending state.
func (s *Store) Stage(ctx context.Context, breakID int64, audioPath string, durationSeconds float64) (*StagedRecording, error) {
	if audioPath == "" {
		return nil, errors.New("audio path is empty")
	}
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)
	id := uuid.NewString()

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO staged_recordings (
            id, break_id, audio_path, duration_seconds, status,
            error_message, attempts, uploaded_take_id, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		breakID,
		audioPath,
		durationSeconds,
		StagedPending,
		nil,
		0,
		0,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert staged recording: %w", err)
	}

	return s.GetStaged(ctx, id)
}

// GetStaged fetches a staged recording by identifier.
func (s *Store) GetStaged(ctx context.Context, id string) (*StagedRecording, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+stagedColumns+` FROM staged_recordings WHERE id = ?`, id)
	rec, err := scanStaged(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get staged recording: %w", err)
	}
	return rec, nil
}

// NextPending returns the oldest staged recording awaiting upload.
func (s *Store) NextPending(ctx context.Context) (*StagedRecording, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+stagedColumns+` FROM staged_recordings WHERE status = ? ORDER BY created_at LIMIT 1`,
		StagedPending,
	)
	rec, err := scanStaged(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next pending: %w", err)
	}
	return rec, nil
}

// ListStaged returns staged recordings filtered by status set (or all when no
// status is provided), oldest first.
func (s *Store) ListStaged(ctx context.Context, statuses ...StagedStatus) ([]*StagedRecording, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + stagedColumns + ` FROM staged_recordings`
	orderClause := ` ORDER BY created_at`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list staged recordings: %w", err)
	}
	defer rows.Close()

	var recs []*StagedRecording
	for rows.Next() {
		rec, err := scanStaged(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// MarkUploading claims a pending or failed recording for an upload attempt.
// It reports false when another worker already claimed the row.
func (s *Store) MarkUploading(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE staged_recordings
         SET status = ?, attempts = attempts + 1, updated_at = ?
         WHERE id = ? AND status IN (?, ?)`,
		StagedUploading,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		StagedPending,
		StagedFailed,
	)
	if err != nil {
		return false, fmt.Errorf("mark uploading: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// MarkUploaded records a successful upload and the take the backend created.
func (s *Store) MarkUploaded(ctx context.Context, id string, takeID int64) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE staged_recordings
         SET status = ?, uploaded_take_id = ?, error_message = NULL, updated_at = ?
         WHERE id = ?`,
		StagedUploaded,
		takeID,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("mark uploaded: %w", err)
	}
	return nil
}

// MarkFailed records an upload failure. The staged audio stays on disk so the
// recording can be retried.
func (s *Store) MarkFailed(ctx context.Context, id string, message string) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE staged_recordings
         SET status = ?, error_message = ?, updated_at = ?
         WHERE id = ?`,
		StagedFailed,
		nullableString(message),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

// RetryFailed moves failed recordings back to pending for reprocessing. With
// no identifiers it retries every failed recording.
func (s *Store) RetryFailed(ctx context.Context, ids ...string) (int64, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	if len(ids) == 0 {
		res, err := s.db.ExecContext(
			ctx,
			`UPDATE staged_recordings
            SET status = ?, error_message = NULL, updated_at = ?
            WHERE status = ?`,
			StagedPending,
			timestamp,
			StagedFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed recordings: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+3)
	args = append(args, StagedPending, timestamp)
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, StagedFailed)
	query := `UPDATE staged_recordings
        SET status = ?, error_message = NULL, updated_at = ?
        WHERE id IN (` + placeholders + `) AND status = ?`
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry selected recordings: %w", err)
	}
	return res.RowsAffected()
}

// RemoveStaged deletes a staged recording row. Callers remove the audio file
// separately once the row is gone.
func (s *Store) RemoveStaged(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM staged_recordings WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete staged recording: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ClearUploaded removes recordings whose uploads completed.
func (s *Store) ClearUploaded(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM staged_recordings WHERE status = ?`, StagedUploaded)
	if err != nil {
		return 0, fmt.Errorf("clear uploaded: %w", err)
	}
	return res.RowsAffected()
}

// Health aggregates staged-recording state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM staged_recordings GROUP BY status`)
	if err != nil {
		return HealthSummary{}, fmt.Errorf("staged stats: %w", err)
	}
	defer rows.Close()

	health := HealthSummary{}
	for rows.Next() {
		var status StagedStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return HealthSummary{}, err
		}
		health.Total += count
		switch status {
		case StagedPending:
			health.Pending += count
		case StagedUploading:
			health.Uploading += count
		case StagedUploaded:
			health.Uploaded += count
		case StagedFailed:
			health.Failed += count
		}
	}
	return health, rows.Err()
}

func scanStaged(scanner interface{ Scan(dest ...any) error }) (*StagedRecording, error) {
	var (
		id             string
		breakID        sql.NullInt64
		audioPath      string
		duration       sql.NullFloat64
		statusStr      string
		errorMessage   sql.NullString
		attempts       sql.NullInt64
		uploadedTakeID sql.NullInt64
		createdRaw     sql.NullString
		updatedRaw     sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&breakID,
		&audioPath,
		&duration,
		&statusStr,
		&errorMessage,
		&attempts,
		&uploadedTakeID,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	rec := &StagedRecording{
		ID:              id,
		BreakID:         breakID.Int64,
		AudioPath:       audioPath,
		DurationSeconds: duration.Float64,
		Status:          StagedStatus(statusStr),
		ErrorMessage:    errorMessage.String,
		Attempts:        int(attempts.Int64),
		UploadedTakeID:  uploadedTakeID.Int64,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		rec.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		rec.UpdatedAt = updated
	}
	return rec, nil
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
