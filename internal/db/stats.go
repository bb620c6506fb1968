package db

import (
	"context"
	"fmt"
)

// Stats holds journal-wide counts.
type Stats struct {
	GroupCount    int    `json:"group_count"`
	CategoryCount int    `json:"category_count"`
	LogCount      int    `json:"log_count"`
	DaysLogged    int    `json:"days_logged"`
	FirstDay      string `json:"first_day,omitempty"`
	LastDay       string `json:"last_day,omitempty"`
}

// GetStats returns aggregate counts over the whole journal.
func (db *DB) GetStats(ctx context.Context) (Stats, error) {
	const query = `
		SELECT
			(SELECT count(*) FROM groups),
			(SELECT count(*) FROM categories),
			(SELECT count(*) FROM hour_logs),
			(SELECT count(DISTINCT day) FROM hour_logs),
			COALESCE((SELECT min(day) FROM hour_logs), ''),
			COALESCE((SELECT max(day) FROM hour_logs), '')`

	var s Stats
	err := db.reader.QueryRowContext(ctx, query).Scan(
		&s.GroupCount,
		&s.CategoryCount,
		&s.LogCount,
		&s.DaysLogged,
		&s.FirstDay,
		&s.LastDay,
	)
	if err != nil {
		return Stats{}, fmt.Errorf("fetching stats: %w", err)
	}
	return s, nil
}
