package takes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const takeColumns = "id, break_id, take_number, filename, is_selected, duration_seconds, created_at, synced_at"

// ReplaceForBreak replaces the mirrored takes for a break with a fresh
// backend snapshot. The swap happens in one transaction so readers never see
// a partially refreshed break.
func (s *Store) ReplaceForBreak(ctx context.Context, breakID int64, fresh []Take) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM takes WHERE break_id = ?`, breakID); err != nil {
		return fmt.Errorf("clear break takes: %w", err)
	}

	syncedAt := time.Now().UTC().Format(time.RFC3339Nano)
	for _, take := range fresh {
		_, err := tx.ExecContext(
			ctx,
			`INSERT INTO takes (
                id, break_id, take_number, filename, is_selected,
                duration_seconds, created_at, synced_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			take.ID,
			breakID,
			take.TakeNumber,
			nullableString(take.Filename),
			boolToInt(take.IsSelected),
			take.DurationSeconds,
			nullableTimeValue(take.CreatedAt),
			syncedAt,
		)
		if err != nil {
			return fmt.Errorf("insert take %d: %w", take.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	return nil
}

// ListByBreak returns the mirrored takes for a break ordered by take number.
func (s *Store) ListByBreak(ctx context.Context, breakID int64) ([]*Take, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+takeColumns+` FROM takes WHERE break_id = ? ORDER BY take_number`,
		breakID,
	)
	if err != nil {
		return nil, fmt.Errorf("list takes: %w", err)
	}
	defer rows.Close()

	var takes []*Take
	for rows.Next() {
		take, err := scanTake(rows)
		if err != nil {
			return nil, err
		}
		takes = append(takes, take)
	}
	return takes, rows.Err()
}

// GetTake fetches a mirrored take by identifier.
func (s *Store) GetTake(ctx context.Context, id int64) (*Take, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+takeColumns+` FROM takes WHERE id = ?`, id)
	take, err := scanTake(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get take: %w", err)
	}
	return take, nil
}

// MarkSelected records the backend's new selection locally. Selection is
// exclusive within a break, so the previous holder is cleared in the same
// transaction.
func (s *Store) MarkSelected(ctx context.Context, takeID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin select tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var breakID int64
	row := tx.QueryRowContext(ctx, `SELECT break_id FROM takes WHERE id = ?`, takeID)
	if err := row.Scan(&breakID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("take %d not mirrored", takeID)
		}
		return fmt.Errorf("resolve break: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE takes SET is_selected = 0 WHERE break_id = ?`, breakID); err != nil {
		return fmt.Errorf("clear selection: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE takes SET is_selected = 1 WHERE id = ?`, takeID); err != nil {
		return fmt.Errorf("set selection: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit selection: %w", err)
	}
	return nil
}

// SelectedForBreak returns the currently selected take for a break, or nil
// when no take holds the selection.
func (s *Store) SelectedForBreak(ctx context.Context, breakID int64) (*Take, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+takeColumns+` FROM takes WHERE break_id = ? AND is_selected = 1 LIMIT 1`,
		breakID,
	)
	take, err := scanTake(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("selected take: %w", err)
	}
	return take, nil
}

// RemoveTake deletes a mirrored take. Deleting the selected take leaves the
// break with no selection until the backend reports a new one.
func (s *Store) RemoveTake(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM takes WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete take: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

func scanTake(scanner interface{ Scan(dest ...any) error }) (*Take, error) {
	var (
		id         int64
		breakID    int64
		takeNumber int
		filename   sql.NullString
		isSelected sql.NullInt64
		duration   sql.NullFloat64
		createdRaw sql.NullString
		syncedRaw  sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&breakID,
		&takeNumber,
		&filename,
		&isSelected,
		&duration,
		&createdRaw,
		&syncedRaw,
	); err != nil {
		return nil, err
	}

	take := &Take{
		ID:              id,
		BreakID:         breakID,
		TakeNumber:      takeNumber,
		Filename:        filename.String,
		DurationSeconds: duration.Float64,
	}
	if isSelected.Valid {
		take.IsSelected = isSelected.Int64 != 0
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		take.CreatedAt = created
	}
	if synced, err := parseTimeString(syncedRaw.String); err == nil {
		take.SyncedAt = synced
	}
	return take, nil
}

func nullableTimeValue(value time.Time) any {
	if value.IsZero() {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}
