package db

import (
	"context"
	"database/sql"
	"fmt"
)

// HourLog represents a row in the hour_logs table: one logged
// hour block [Hour, Hour+1) on a calendar day. Day carries no
// time-of-day component. CategoryID nil means the hour exists
// but is unlogged; Rating nil means no rating was recorded.
type HourLog struct {
	ID         int64  `json:"id"`
	Day        string `json:"day"` // ISO date YYYY-MM-DD
	Hour       int    `json:"hour"`
	CategoryID *int64 `json:"category_id"`
	Rating     *int   `json:"rating"`
	Notes      string `json:"notes"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

const logCols = `id, day, hour, category_id, rating, notes,
	created_at, updated_at`

func scanLogRow(rs rowScanner) (HourLog, error) {
	var l HourLog
	err := rs.Scan(
		&l.ID, &l.Day, &l.Hour, &l.CategoryID, &l.Rating,
		&l.Notes, &l.CreatedAt, &l.UpdatedAt,
	)
	return l, err
}

// SaveLog upserts an hour log keyed on (day, hour). The store
// guarantees at most one log per hour slot; saving over an
// existing slot replaces its category, rating, and notes.
// Returns the row ID.
func (db *DB) SaveLog(ctx context.Context, l HourLog) (int64, error) {
	if l.Hour < 0 || l.Hour > 23 {
		return 0, fmt.Errorf("hour %d out of range", l.Hour)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	res, err := db.writer.ExecContext(ctx, `
		INSERT INTO hour_logs (day, hour, category_id, rating, notes)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (day, hour) DO UPDATE SET
			category_id = excluded.category_id,
			rating = excluded.rating,
			notes = excluded.notes,
			updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')`,
		l.Day, l.Hour, l.CategoryID, l.Rating, l.Notes)
	if err != nil {
		return 0, fmt.Errorf("saving log %s/%d: %w", l.Day, l.Hour, err)
	}
	id, err := res.LastInsertId()
	if err != nil || id == 0 {
		// Upsert over an existing row may not report an insert ID.
		return db.logID(ctx, l.Day, l.Hour)
	}
	return id, nil
}

func (db *DB) logID(ctx context.Context, day string, hour int) (int64, error) {
	var id int64
	err := db.writer.QueryRowContext(ctx,
		`SELECT id FROM hour_logs WHERE day = ? AND hour = ?`,
		day, hour).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("resolving log id: %w", err)
	}
	return id, nil
}

// GetLog returns the log at (day, hour), or ErrNotFound.
func (db *DB) GetLog(ctx context.Context, day string, hour int) (HourLog, error) {
	row := db.reader.QueryRowContext(ctx,
		`SELECT `+logCols+` FROM hour_logs WHERE day = ? AND hour = ?`,
		day, hour)
	l, err := scanLogRow(row)
	if err == sql.ErrNoRows {
		return HourLog{}, ErrNotFound
	}
	if err != nil {
		return HourLog{}, fmt.Errorf("fetching log: %w", err)
	}
	return l, nil
}

// LogsBetween returns logs with day in [from, to), ordered by
// (day, hour) ascending. Bounds are ISO date strings; the range
// compare is lexical, which is correct for that layout.
func (db *DB) LogsBetween(ctx context.Context, from, to string) ([]HourLog, error) {
	rows, err := db.reader.QueryContext(ctx,
		`SELECT `+logCols+` FROM hour_logs
		 WHERE day >= ? AND day < ?
		 ORDER BY day, hour`,
		from, to)
	if err != nil {
		return nil, fmt.Errorf("querying logs: %w", err)
	}
	defer rows.Close()

	var logs []HourLog
	for rows.Next() {
		l, err := scanLogRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning log: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating logs: %w", err)
	}
	return logs, nil
}

// AllLogs returns every log ordered by (day, hour) ascending,
// the shape the CSV exporter expects.
func (db *DB) AllLogs(ctx context.Context) ([]HourLog, error) {
	rows, err := db.reader.QueryContext(ctx,
		`SELECT `+logCols+` FROM hour_logs ORDER BY day, hour`)
	if err != nil {
		return nil, fmt.Errorf("querying logs: %w", err)
	}
	defer rows.Close()

	var logs []HourLog
	for rows.Next() {
		l, err := scanLogRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning log: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating logs: %w", err)
	}
	return logs, nil
}

// DeleteLog removes the log at (day, hour).
func (db *DB) DeleteLog(ctx context.Context, day string, hour int) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	res, err := db.writer.ExecContext(ctx,
		`DELETE FROM hour_logs WHERE day = ? AND hour = ?`, day, hour)
	if err != nil {
		return fmt.Errorf("deleting log: %w", err)
	}
	return requireRow(res)
}
