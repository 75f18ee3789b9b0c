package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/panel-ledger/internal/common"
	"github.com/Veraticus/panel-ledger/internal/model"
)

const actionColumns = `id, player_id, player_name, action_type, action_detail,
	item_name, item_quantity, target_player_id, target_player_name,
	admin_id, admin_name, warning_count, reason, amount, fee,
	timestamp, raw_text`

// ReclassifyRun is the audit row written after each reclassification run.
type ReclassifyRun struct {
	StartedAt time.Time
	Types     []model.ActionType
	Duration  time.Duration
	ID        int64
	Total     int
	Changed   int
	Unchanged int
	Errors    int
	Batches   int
	DryRun    bool
}

// InsertAction stores rec unless the same line was already recorded at the
// same time. inserted reports whether a new row was written.
func (s *SQLiteStorage) InsertAction(ctx context.Context, rec *model.ActionRecord) (int64, bool, error) {
	if err := validateContext(ctx); err != nil {
		return 0, false, err
	}
	if err := validateAction(rec); err != nil {
		return 0, false, err
	}

	hash := rec.Hash()
	result, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO actions (
			player_id, player_name, action_type, action_detail,
			item_name, item_quantity, target_player_id, target_player_name,
			admin_id, admin_name, warning_count, reason, amount, fee,
			timestamp, raw_text, line_hash
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullString(rec.ActorID),
		nullString(rec.ActorName),
		string(rec.ActionType),
		nullString(rec.Detail),
		nullString(rec.ItemName),
		nullInt(rec.ItemQuantity),
		nullString(rec.TargetID),
		nullString(rec.TargetName),
		nullString(rec.AdminID),
		nullString(rec.AdminName),
		nullString(rec.WarningCount),
		nullString(rec.Reason),
		nullInt64(rec.Amount),
		nullInt64(rec.Fee),
		rec.ObservedAt.UTC(),
		rec.RawText,
		hash,
	)
	if err != nil {
		return 0, false, fmt.Errorf("failed to insert action: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		var id int64
		if err := s.db.QueryRowContext(ctx, `SELECT id FROM actions WHERE line_hash = ?`, hash).Scan(&id); err != nil {
			return 0, false, fmt.Errorf("failed to find existing action: %w", err)
		}
		return id, false, nil
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, false, fmt.Errorf("failed to get inserted id: %w", err)
	}
	return id, true, nil
}

// FetchRecordsByTypes returns up to limit actions of the given types with id
// greater than afterID, in id order.
func (s *SQLiteStorage) FetchRecordsByTypes(ctx context.Context, types []model.ActionType, afterID int64, limit int) ([]model.StoredAction, error) {
	if err := validateFetch(ctx, types, limit); err != nil {
		return nil, err
	}
	return fetchRecordsByTypes(ctx, s.db, types, afterID, limit)
}

func fetchRecordsByTypes(ctx context.Context, q queryer, types []model.ActionType, afterID int64, limit int) ([]model.StoredAction, error) {
	placeholders := make([]string, len(types))
	args := make([]any, 0, len(types)+2)
	for i, t := range types {
		placeholders[i] = "?"
		args = append(args, string(t))
	}
	args = append(args, afterID, limit)

	// #nosec G201 - only placeholders are interpolated
	query := fmt.Sprintf(`SELECT %s FROM actions
		WHERE action_type IN (%s) AND id > ?
		ORDER BY id
		LIMIT ?`, actionColumns, strings.Join(placeholders, ", "))

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query actions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanActions(rows)
}

// UpdateActionFields overwrites the classification of an action. The raw
// text and observation time are never touched.
func (s *SQLiteStorage) UpdateActionFields(ctx context.Context, id int64, rec *model.ActionRecord) error {
	if err := validateUpdate(ctx, rec); err != nil {
		return err
	}
	return updateActionFields(ctx, s.db, id, rec)
}

func updateActionFields(ctx context.Context, q queryer, id int64, rec *model.ActionRecord) error {
	result, err := q.ExecContext(ctx, `
		UPDATE actions SET
			player_id = ?, player_name = ?, action_type = ?, action_detail = ?,
			item_name = ?, item_quantity = ?, target_player_id = ?, target_player_name = ?,
			admin_id = ?, admin_name = ?, warning_count = ?, reason = ?,
			amount = ?, fee = ?
		WHERE id = ?`,
		nullString(rec.ActorID),
		nullString(rec.ActorName),
		string(rec.ActionType),
		nullString(rec.Detail),
		nullString(rec.ItemName),
		nullInt(rec.ItemQuantity),
		nullString(rec.TargetID),
		nullString(rec.TargetName),
		nullString(rec.AdminID),
		nullString(rec.AdminName),
		nullString(rec.WarningCount),
		nullString(rec.Reason),
		nullInt64(rec.Amount),
		nullInt64(rec.Fee),
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to update action %d: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("action %d: %w", id, common.ErrNotFound)
	}
	return nil
}

// GetAction retrieves a single action by id.
func (s *SQLiteStorage) GetAction(ctx context.Context, id int64) (*model.StoredAction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+actionColumns+` FROM actions WHERE id = ?`, id)
	action, err := scanAction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("action %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get action: %w", err)
	}
	return action, nil
}

// CountActionsByType returns the number of stored actions per type.
func (s *SQLiteStorage) CountActionsByType(ctx context.Context) (map[model.ActionType]int, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT action_type, COUNT(*) FROM actions GROUP BY action_type`)
	if err != nil {
		return nil, fmt.Errorf("failed to count actions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[model.ActionType]int)
	for rows.Next() {
		var actionType string
		var count int
		if err := rows.Scan(&actionType, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[model.ActionType(actionType)] = count
	}
	return counts, rows.Err()
}

// ListActionsByPlayer returns the newest actions where playerID is the actor or the target.
func (s *SQLiteStorage) ListActionsByPlayer(ctx context.Context, playerID string, limit int) ([]model.StoredAction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(playerID, "playerID"); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+actionColumns+` FROM actions
		WHERE player_id = ? OR target_player_id = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`, playerID, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query player actions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanActions(rows)
}

// RecordReclassifyRun stores the audit row for a finished run.
func (s *SQLiteStorage) RecordReclassifyRun(ctx context.Context, run ReclassifyRun) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	types := make([]string, len(run.Types))
	for i, t := range run.Types {
		types[i] = string(t)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO reclassify_runs (
			started_at, duration_ms, action_types, dry_run,
			total, changed, unchanged, errors, batches
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.StartedAt.UTC(),
		run.Duration.Milliseconds(),
		strings.Join(types, ","),
		run.DryRun,
		run.Total,
		run.Changed,
		run.Unchanged,
		run.Errors,
		run.Batches,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to record reclassify run: %w", err)
	}
	return result.LastInsertId()
}

// ListReclassifyRuns returns the most recent runs first.
func (s *SQLiteStorage) ListReclassifyRuns(ctx context.Context, limit int) ([]ReclassifyRun, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, duration_ms, action_types, dry_run,
			total, changed, unchanged, errors, batches
		FROM reclassify_runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query reclassify runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []ReclassifyRun
	for rows.Next() {
		var run ReclassifyRun
		var durationMS int64
		var types string
		if err := rows.Scan(&run.ID, &run.StartedAt, &durationMS, &types, &run.DryRun,
			&run.Total, &run.Changed, &run.Unchanged, &run.Errors, &run.Batches); err != nil {
			return nil, fmt.Errorf("failed to scan reclassify run: %w", err)
		}
		run.Duration = time.Duration(durationMS) * time.Millisecond
		for _, t := range strings.Split(types, ",") {
			if t != "" {
				run.Types = append(run.Types, model.ActionType(t))
			}
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAction(row rowScanner) (*model.StoredAction, error) {
	var action model.StoredAction
	var actionType string
	var actorID, actorName, detail, itemName sql.NullString
	var targetID, targetName, adminID, adminName sql.NullString
	var warningCount, reason sql.NullString
	var itemQuantity, amount, fee sql.NullInt64

	err := row.Scan(
		&action.ID, &actorID, &actorName, &actionType, &detail,
		&itemName, &itemQuantity, &targetID, &targetName,
		&adminID, &adminName, &warningCount, &reason, &amount, &fee,
		&action.ObservedAt, &action.RawText,
	)
	if err != nil {
		return nil, err
	}

	action.ActionType = model.ActionType(actionType)
	action.ActorID = stringPtr(actorID)
	action.ActorName = stringPtr(actorName)
	action.Detail = stringPtr(detail)
	action.ItemName = stringPtr(itemName)
	action.TargetID = stringPtr(targetID)
	action.TargetName = stringPtr(targetName)
	action.AdminID = stringPtr(adminID)
	action.AdminName = stringPtr(adminName)
	action.WarningCount = stringPtr(warningCount)
	action.Reason = stringPtr(reason)
	action.Amount = int64Ptr(amount)
	action.Fee = int64Ptr(fee)
	if itemQuantity.Valid {
		qty := int(itemQuantity.Int64)
		action.ItemQuantity = &qty
	}
	return &action, nil
}

func scanActions(rows *sql.Rows) ([]model.StoredAction, error) {
	var actions []model.StoredAction
	for rows.Next() {
		action, err := scanAction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan action: %w", err)
		}
		actions = append(actions, *action)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate actions: %w", err)
	}
	return actions, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func int64Ptr(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64
	return &v
}
