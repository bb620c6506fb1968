package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a group, category, or log lookup
// matches no row.
var ErrNotFound = errors.New("not found")

// Group represents a row in the groups table. A group owns its
// categories: deleting it deletes them (FK cascade).
type Group struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	SortOrder int    `json:"sort_order"`
}

// Category represents a row in the categories table. GroupID is
// nil for an ungrouped category, a transitional state while the
// user reorganizes settings.
type Category struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Icon      string `json:"icon"`
	SortOrder int    `json:"sort_order"`
	GroupID   *int64 `json:"group_id"`
}

// Catalog is a read-only snapshot of the group/category
// hierarchy, used as the lookup table for reports and export.
type Catalog struct {
	Groups     []Group
	Categories []Category
}

// GroupByID returns the group with the given ID, or nil.
func (c Catalog) GroupByID(id int64) *Group {
	for i := range c.Groups {
		if c.Groups[i].ID == id {
			return &c.Groups[i]
		}
	}
	return nil
}

// CategoryByID returns the category with the given ID, or nil.
func (c Catalog) CategoryByID(id int64) *Category {
	for i := range c.Categories {
		if c.Categories[i].ID == id {
			return &c.Categories[i]
		}
	}
	return nil
}

// CategoryByName returns the first category with the given name,
// or nil. Names are matched exactly.
func (c Catalog) CategoryByName(name string) *Category {
	for i := range c.Categories {
		if c.Categories[i].Name == name {
			return &c.Categories[i]
		}
	}
	return nil
}

// GetCatalog returns all groups and categories ordered by sort
// order then name, so callers see a deterministic hierarchy.
func (db *DB) GetCatalog(ctx context.Context) (Catalog, error) {
	var cat Catalog

	rows, err := db.reader.QueryContext(ctx,
		`SELECT id, name, color, sort_order FROM groups
		 ORDER BY sort_order, name`)
	if err != nil {
		return cat, fmt.Errorf("querying groups: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.ID, &g.Name, &g.Color, &g.SortOrder); err != nil {
			return cat, fmt.Errorf("scanning group: %w", err)
		}
		cat.Groups = append(cat.Groups, g)
	}
	if err := rows.Err(); err != nil {
		return cat, fmt.Errorf("iterating groups: %w", err)
	}

	crows, err := db.reader.QueryContext(ctx,
		`SELECT id, name, icon, sort_order, group_id FROM categories
		 ORDER BY sort_order, name`)
	if err != nil {
		return cat, fmt.Errorf("querying categories: %w", err)
	}
	defer crows.Close()
	for crows.Next() {
		var c Category
		if err := crows.Scan(
			&c.ID, &c.Name, &c.Icon, &c.SortOrder, &c.GroupID,
		); err != nil {
			return cat, fmt.Errorf("scanning category: %w", err)
		}
		cat.Categories = append(cat.Categories, c)
	}
	if err := crows.Err(); err != nil {
		return cat, fmt.Errorf("iterating categories: %w", err)
	}
	return cat, nil
}

// InsertGroup inserts a group and returns its ID.
func (db *DB) InsertGroup(ctx context.Context, g Group) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	res, err := db.writer.ExecContext(ctx,
		`INSERT INTO groups (name, color, sort_order) VALUES (?, ?, ?)`,
		g.Name, g.Color, g.SortOrder)
	if err != nil {
		return 0, fmt.Errorf("inserting group: %w", err)
	}
	return res.LastInsertId()
}

// UpdateGroup updates a group's name, color, and sort order.
func (db *DB) UpdateGroup(ctx context.Context, g Group) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	res, err := db.writer.ExecContext(ctx,
		`UPDATE groups SET name = ?, color = ?, sort_order = ? WHERE id = ?`,
		g.Name, g.Color, g.SortOrder, g.ID)
	if err != nil {
		return fmt.Errorf("updating group: %w", err)
	}
	return requireRow(res)
}

// DeleteGroup removes a group. Its categories are deleted by the
// FK cascade, which in turn nullifies any logs referencing them.
func (db *DB) DeleteGroup(ctx context.Context, id int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	res, err := db.writer.ExecContext(ctx,
		`DELETE FROM groups WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting group: %w", err)
	}
	return requireRow(res)
}

// InsertCategory inserts a category and returns its ID.
func (db *DB) InsertCategory(ctx context.Context, c Category) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	res, err := db.writer.ExecContext(ctx,
		`INSERT INTO categories (name, icon, sort_order, group_id)
		 VALUES (?, ?, ?, ?)`,
		c.Name, c.Icon, c.SortOrder, c.GroupID)
	if err != nil {
		return 0, fmt.Errorf("inserting category: %w", err)
	}
	return res.LastInsertId()
}

// UpdateCategory updates a category, including moving it between
// groups (or to nil, ungrouping it).
func (db *DB) UpdateCategory(ctx context.Context, c Category) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	res, err := db.writer.ExecContext(ctx,
		`UPDATE categories
		 SET name = ?, icon = ?, sort_order = ?, group_id = ?
		 WHERE id = ?`,
		c.Name, c.Icon, c.SortOrder, c.GroupID, c.ID)
	if err != nil {
		return fmt.Errorf("updating category: %w", err)
	}
	return requireRow(res)
}

// DeleteCategory removes a category. Hour logs referencing it
// survive with a nullified category (FK SET NULL).
func (db *DB) DeleteCategory(ctx context.Context, id int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	res, err := db.writer.ExecContext(ctx,
		`DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting category: %w", err)
	}
	return requireRow(res)
}

// requireRow converts a zero-row update/delete into ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
