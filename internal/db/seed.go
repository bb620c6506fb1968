package db

import (
	"context"
	"database/sql"
	"fmt"
)

// defaultGroup is one seed group with its child categories.
type defaultGroup struct {
	name       string
	color      string
	categories []defaultCategory
}

type defaultCategory struct {
	name string
	icon string
}

// defaultCatalog is the first-launch catalog. Icon tags are
// opaque to the store; the presentation layer maps them.
var defaultCatalog = []defaultGroup{
	{"Work", "#34C759", []defaultCategory{
		{"Deep Work", "chevron.left.forwardslash.chevron.right"},
		{"Planning", "calendar"},
		{"Writing", "pencil.line"},
		{"Research", "magnifyingglass"},
		{"Content Creation", "video.fill"},
		{"Communications", "envelope.fill"},
		{"Marketing", "megaphone.fill"},
	}},
	{"Health", "#FF9500", []defaultCategory{
		{"Exercise", "figure.run"},
		{"Sleep", "moon.fill"},
		{"Meals", "fork.knife"},
		{"Walk", "figure.walk"},
		{"Meditation", "figure.mind.and.body"},
		{"Hygiene", "drop.fill"},
	}},
	{"Growth", "#AF52DE", []defaultCategory{
		{"Reading", "book.fill"},
		{"Learning", "graduationcap.fill"},
		{"Courses", "desktopcomputer"},
		{"Skill Practice", "hammer.fill"},
	}},
	{"Relationship", "#FF2D55", []defaultCategory{
		{"Partner Time", "heart.fill"},
		{"Date Night", "heart.circle.fill"},
	}},
	{"Family", "#007AFF", []defaultCategory{
		{"Family Time", "house.fill"},
		{"Kids", "figure.and.child.holdinghands"},
		{"Parents", "person.2.fill"},
	}},
	{"Social", "#5AC8FA", []defaultCategory{
		{"Friends", "person.2.fill"},
		{"Networking", "network"},
		{"Community", "person.3.fill"},
	}},
	{"Leisure", "#FFCC00", []defaultCategory{
		{"Entertainment", "tv.fill"},
		{"Social Media", "iphone"},
		{"Gaming", "gamecontroller.fill"},
		{"Hobbies", "paintpalette.fill"},
	}},
	{"Personal", "#8E8E93", []defaultCategory{
		{"Chores", "sparkles"},
		{"Errands", "cart.fill"},
		{"Travel", "car.fill"},
		{"Finances", "dollarsign.circle.fill"},
	}},
}

// Seed populates the default catalog on first launch. It is
// idempotent: a non-empty groups table means the user already
// has a catalog and nothing is written.
func (db *DB) Seed(ctx context.Context) (bool, error) {
	seeded := false
	err := db.Update(func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx,
			`SELECT count(*) FROM groups`).Scan(&count); err != nil {
			return fmt.Errorf("counting groups: %w", err)
		}
		if count > 0 {
			return nil
		}

		for gi, g := range defaultCatalog {
			res, err := tx.ExecContext(ctx,
				`INSERT INTO groups (name, color, sort_order)
				 VALUES (?, ?, ?)`,
				g.name, g.color, gi)
			if err != nil {
				return fmt.Errorf("seeding group %s: %w", g.name, err)
			}
			gid, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("group id for %s: %w", g.name, err)
			}
			for ci, c := range g.categories {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO categories (name, icon, sort_order, group_id)
					 VALUES (?, ?, ?, ?)`,
					c.name, c.icon, ci, gid); err != nil {
					return fmt.Errorf("seeding category %s: %w", c.name, err)
				}
			}
		}
		seeded = true
		return nil
	})
	return seeded, err
}

// DeleteAll wipes logs, categories, and groups.
func (db *DB) DeleteAll(ctx context.Context) error {
	return db.Update(func(tx *sql.Tx) error {
		for _, stmt := range []string{
			`DELETE FROM hour_logs`,
			`DELETE FROM categories`,
			`DELETE FROM groups`,
		} {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("wiping data: %w", err)
			}
		}
		return nil
	})
}

// Reset wipes all data and reseeds the default catalog.
func (db *DB) Reset(ctx context.Context) error {
	if err := db.DeleteAll(ctx); err != nil {
		return err
	}
	_, err := db.Seed(ctx)
	return err
}
