// Package storage persists declarations and taxonomy in SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"bilancio/internal/core"
	applog "bilancio/internal/log"
	"bilancio/internal/store"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Ensure interface conformance
var (
	_ store.Store    = (*SQLiteRepository)(nil)
	_ store.Taxonomy = (*SQLiteRepository)(nil)
)

const budgetColumns = `id, year, month, type, source_id, group_id, subgroup_id, amount,
	mode, is_recurrent, installments_total, installment_index`

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.Info("SQLite store ready",
		applog.FieldComponent, applog.ComponentStorage,
		"path", dbPath)
	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanDeclaration reads one budgets row, folding the legacy recurrence flag
// into the mode.
func scanDeclaration(row rowScanner) (core.Declaration, error) {
	var (
		d           core.Declaration
		typ         string
		mode        sql.NullString
		isRecurrent int
	)
	err := row.Scan(&d.ID, &d.Year, &d.Month, &typ,
		&d.Dimension.SourceID, &d.Dimension.GroupID, &d.Dimension.SubgroupID,
		&d.Amount, &mode, &isRecurrent, &d.InstallmentsTotal, &d.InstallmentIndex)
	if err != nil {
		return core.Declaration{}, err
	}
	d.Type = core.BudgetType(typ)
	d.Mode = core.NormalizeMode(mode.String, isRecurrent != 0)
	if d.Mode != core.Installment {
		d.InstallmentsTotal, d.InstallmentIndex = 0, 0
	}
	return d, nil
}

func (r *SQLiteRepository) queryDeclarations(ctx context.Context, query string, args ...any) ([]core.Declaration, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Declaration
	for rows.Next() {
		d, err := scanDeclaration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]core.Declaration, error) {
	decls, err := r.queryDeclarations(ctx,
		`SELECT `+budgetColumns+` FROM budgets ORDER BY year, month, id`)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return decls, nil
}

func (r *SQLiteRepository) ListMonth(ctx context.Context, ym core.YearMonth) ([]core.Declaration, error) {
	decls, err := r.queryDeclarations(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE year = ? AND month = ? ORDER BY id`,
		ym.Year, ym.Month)
	if err != nil {
		return nil, fmt.Errorf("list budgets for %s: %w", ym, err)
	}
	return decls, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (core.Declaration, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE id = ?`, id)
	d, err := scanDeclaration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Declaration{}, store.ErrNotFound
	}
	if err != nil {
		return core.Declaration{}, fmt.Errorf("get budget %d: %w", id, err)
	}
	return d, nil
}

func (r *SQLiteRepository) GetByKey(ctx context.Context, ym core.YearMonth, key core.SeriesKey) (core.Declaration, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+budgetColumns+` FROM budgets
		WHERE year = ? AND month = ? AND type = ? AND source_id = ? AND group_id = ? AND subgroup_id = ?`,
		ym.Year, ym.Month, string(key.Type), key.SourceID, key.GroupID, key.SubgroupID)
	d, err := scanDeclaration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Declaration{}, store.ErrNotFound
	}
	if err != nil {
		return core.Declaration{}, fmt.Errorf("get budget %s at %s: %w", key, ym, err)
	}
	return d, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertDeclaration(ctx context.Context, db execer, d core.Declaration) (int64, error) {
	key := d.Key()
	res, err := db.ExecContext(ctx, `INSERT INTO budgets
		(year, month, type, source_id, group_id, subgroup_id, amount,
		 mode, is_recurrent, installments_total, installment_index)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.Year, d.Month, string(key.Type), key.SourceID, key.GroupID, key.SubgroupID,
		d.Amount.StringFixed(2), string(d.Mode), boolToInt(d.Mode == core.Recurring),
		d.InstallmentsTotal, d.InstallmentIndex)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%s at %s: %w", key, d.YearMonth(), store.ErrDuplicateKey)
		}
		return 0, err
	}
	return res.LastInsertId()
}

func (r *SQLiteRepository) Add(ctx context.Context, d core.Declaration) (int64, error) {
	id, err := insertDeclaration(ctx, r.db, d)
	if err != nil {
		if store.IsDuplicate(err) {
			return 0, err
		}
		return 0, fmt.Errorf("insert budget: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) Update(ctx context.Context, id int64, p store.Patch) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	cur, err := scanDeclaration(tx.QueryRowContext(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load budget %d: %w", id, err)
	}

	next := p.Apply(cur)
	_, err = tx.ExecContext(ctx, `UPDATE budgets SET
		amount = ?, mode = ?, is_recurrent = ?, installments_total = ?, installment_index = ?,
		updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		next.Amount.StringFixed(2), string(next.Mode), boolToInt(next.Mode == core.Recurring),
		next.InstallmentsTotal, next.InstallmentIndex, id)
	if err != nil {
		return fmt.Errorf("update budget %d: %w", id, err)
	}
	return tx.Commit()
}

// BulkDelete removes ids in one transaction. Unknown ids are ignored.
func (r *SQLiteRepository) BulkDelete(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `DELETE FROM budgets WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("prepare delete: %w", err)
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			return fmt.Errorf("delete budget %d: %w", id, err)
		}
	}
	return tx.Commit()
}

// Replace clears the budgets table and inserts decls in one transaction.
// Nothing changes if any row is rejected.
func (r *SQLiteRepository) Replace(ctx context.Context, decls []core.Declaration) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM budgets`); err != nil {
		return fmt.Errorf("clear budgets: %w", err)
	}
	for i, d := range decls {
		if _, err := insertDeclaration(ctx, tx, d); err != nil {
			return fmt.Errorf("insert row %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}

	slog.InfoContext(ctx, "Budgets replaced",
		applog.FieldComponent, applog.ComponentStorage,
		applog.FieldOperation, applog.OpImport,
		"count", len(decls))
	return nil
}

// Reset removes every declaration.
func (r *SQLiteRepository) Reset(ctx context.Context) error {
	return r.Replace(ctx, nil)
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
