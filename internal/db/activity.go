package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/j-veylop/bidmanager-cli/internal/models"
)

const timestampLayout = "2006-01-02 15:04:05.000"

// RecordActivity appends a row to the ledger and sets a.ID.
func (db *DB) RecordActivity(ctx context.Context, a *models.Activity) error {
	query := `
		INSERT INTO activity (
			timestamp, command, action, query_id, method, path, bytes, duration_ms, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now()
	}

	result, err := db.ExecContext(ctx, query,
		a.Timestamp.UTC().Format(timestampLayout),
		a.Command,
		a.Action,
		a.QueryID,
		nullString(a.Method),
		nullString(a.Path),
		a.Bytes,
		a.DurationMs,
		nullString(a.Error),
	)
	if err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}

	id, err := result.LastInsertId()
	if err == nil {
		a.ID = id
	}

	return nil
}

// RecentActivity returns up to limit rows, newest first. A non-zero queryID
// restricts the result to that query.
func (db *DB) RecentActivity(ctx context.Context, limit int, queryID int64) ([]models.Activity, error) {
	query := `
		SELECT id, timestamp, command, action, query_id, method, path, bytes, duration_ms, error
		FROM activity
		WHERE (? = 0 OR query_id = ?)
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`

	rows, err := db.QueryContext(ctx, query, queryID, queryID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var activities []models.Activity
	for rows.Next() {
		var a models.Activity
		var ts string
		var method, path, errStr sql.NullString

		if err := rows.Scan(&a.ID, &ts, &a.Command, &a.Action, &a.QueryID,
			&method, &path, &a.Bytes, &a.DurationMs, &errStr); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}

		a.Timestamp, err = time.Parse(timestampLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("invalid activity timestamp %q: %w", ts, err)
		}
		a.Method = method.String
		a.Path = path.String
		a.Error = errStr.String
		activities = append(activities, a)
	}

	return activities, rows.Err()
}

// nullString converts an empty string to a NULL value.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
