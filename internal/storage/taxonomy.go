package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"bilancio/internal/core"
	"bilancio/internal/store"
)

func (r *SQLiteRepository) ListSources(ctx context.Context) ([]core.Source, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM income_sources ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var out []core.Source
	for rows.Next() {
		var s core.Source
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListGroups returns groups with their subgroups attached.
func (r *SQLiteRepository) ListGroups(ctx context.Context) ([]core.Group, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT g.id, g.name, s.id, s.name
		FROM expense_groups g
		LEFT JOIN expense_subgroups s ON s.group_id = g.id
		ORDER BY g.id, s.id`)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var out []core.Group
	for rows.Next() {
		var (
			gid     int64
			gname   string
			subID   sql.NullInt64
			subName sql.NullString
		)
		if err := rows.Scan(&gid, &gname, &subID, &subName); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		if len(out) == 0 || out[len(out)-1].ID != gid {
			out = append(out, core.Group{ID: gid, Name: gname})
		}
		if subID.Valid {
			g := &out[len(out)-1]
			g.Subgroups = append(g.Subgroups, core.Subgroup{ID: subID.Int64, GroupID: gid, Name: subName.String})
		}
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) AddSource(ctx context.Context, name string) (int64, error) {
	return r.insertNamed(ctx, `INSERT INTO income_sources (name) VALUES (?)`, "source", name)
}

func (r *SQLiteRepository) AddGroup(ctx context.Context, name string) (int64, error) {
	return r.insertNamed(ctx, `INSERT INTO expense_groups (name) VALUES (?)`, "group", name)
}

func (r *SQLiteRepository) AddSubgroup(ctx context.Context, groupID int64, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, core.ErrEmptyName
	}
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM expense_groups WHERE id = ?)`, groupID).Scan(&exists); err != nil {
		return 0, fmt.Errorf("check group %d: %w", groupID, err)
	}
	if !exists {
		return 0, fmt.Errorf("group %d: %w", groupID, store.ErrNotFound)
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO expense_subgroups (group_id, name) VALUES (?, ?)`, groupID, name)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("subgroup %q: %w", name, store.ErrDuplicateKey)
		}
		return 0, fmt.Errorf("insert subgroup: %w", err)
	}
	return res.LastInsertId()
}

func (r *SQLiteRepository) HasTaxonomy(ctx context.Context) (bool, error) {
	var present bool
	err := r.db.QueryRowContext(ctx, `SELECT
		EXISTS(SELECT 1 FROM income_sources) OR EXISTS(SELECT 1 FROM expense_groups)`).Scan(&present)
	if err != nil {
		return false, fmt.Errorf("check taxonomy: %w", err)
	}
	return present, nil
}

func (r *SQLiteRepository) insertNamed(ctx context.Context, query, what, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, core.ErrEmptyName
	}
	res, err := r.db.ExecContext(ctx, query, name)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%s %q: %w", what, name, store.ErrDuplicateKey)
		}
		return 0, fmt.Errorf("insert %s: %w", what, err)
	}
	return res.LastInsertId()
}
