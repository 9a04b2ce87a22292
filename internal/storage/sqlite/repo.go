package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"propclean/internal/storage"
)

// maxBindVars keeps multi-value statements under SQLite's default variable
// limit (999 in older builds). Batches larger than this are chunked.
const maxBindVars = 900

// Repo implements storage.Repository for SQLite.
//
// Key design points vs Postgres:
//   - Column introspection goes through PRAGMA table_info.
//   - ALTER TABLE DROP COLUMN requires SQLite >= 3.35; modernc.org/sqlite
//     ships a current engine, so this is safe here.
//   - Everything is stored with TEXT/INTEGER affinity; canonical sale dates
//     are written as "YYYY-MM-DD" strings.
type Repo struct {
	db *sql.DB
}

func init() {
	storage.Register("sqlite", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Close() { _ = r.db.Close() }

// EnsureTable creates the table when missing. Startup stays idempotent:
// re-running against an existing table is a no-op.
func (r *Repo) EnsureTable(ctx context.Context, spec storage.TableSpec) error {
	ddl, err := buildCreateTableSQL(spec)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", spec.Name, err)
	}
	return nil
}

func (r *Repo) Columns(ctx context.Context, table string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, sqlIdent(table)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notNull    int
			defaultVal any
			pk         int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &defaultVal, &pk); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// AddColumn adds a column unless it already exists.
//
// SQLite has no ADD COLUMN IF NOT EXISTS, so existence is checked via
// PRAGMA first. The window between check and ALTER is irrelevant for the
// single-writer batch model.
func (r *Repo) AddColumn(ctx context.Context, table string, col storage.ColumnSpec) error {
	has, err := r.hasColumn(ctx, table, col.Name)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = r.db.ExecContext(ctx, fmt.Sprintf(
		`ALTER TABLE %s ADD COLUMN %s %s`, sqlIdent(table), sqlIdent(col.Name), col.Type,
	))
	if err != nil {
		return fmt.Errorf("add column %s.%s: %w", table, col.Name, err)
	}
	return nil
}

// DropColumns drops each named column that exists. Absent columns are
// skipped so the prune stage can rerun on an already-pruned table.
func (r *Repo) DropColumns(ctx context.Context, table string, names []string) error {
	for _, name := range names {
		has, err := r.hasColumn(ctx, table, name)
		if err != nil {
			return err
		}
		if !has {
			continue
		}
		if _, err := r.db.ExecContext(ctx, fmt.Sprintf(
			`ALTER TABLE %s DROP COLUMN %s`, sqlIdent(table), sqlIdent(name),
		)); err != nil {
			return fmt.Errorf("drop column %s.%s: %w", table, name, err)
		}
	}
	return nil
}

func (r *Repo) hasColumn(ctx context.Context, table, name string) (bool, error) {
	cols, err := r.Columns(ctx, table)
	if err != nil {
		return false, err
	}
	for _, c := range cols {
		if strings.EqualFold(c, name) {
			return true, nil
		}
	}
	return false, nil
}

func (r *Repo) SelectColumns(ctx context.Context, table string, columns []string) ([][]any, error) {
	if err := r.requireColumns(ctx, table, columns); err != nil {
		return nil, err
	}

	q := fmt.Sprintf(`SELECT %s FROM %s`, joinIdentList(columns), sqlIdent(table))
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out [][]any
	for rows.Next() {
		vals := make([]any, len(columns))
		scan := make([]any, len(columns))
		for i := range vals {
			scan[i] = &vals[i]
		}
		if err := rows.Scan(scan...); err != nil {
			return nil, err
		}
		out = append(out, vals)
	}
	return out, rows.Err()
}

// requireColumns maps missing scan columns to storage.ColumnNotFoundError
// up front, instead of surfacing the driver's string-y "no such column".
func (r *Repo) requireColumns(ctx context.Context, table string, columns []string) error {
	have, err := r.Columns(ctx, table)
	if err != nil {
		return err
	}
	set := make(map[string]bool, len(have))
	for _, c := range have {
		set[strings.ToLower(c)] = true
	}
	for _, c := range columns {
		if !set[strings.ToLower(c)] {
			return &storage.ColumnNotFoundError{Table: table, Column: c}
		}
	}
	return nil
}

// UpdateByKey applies all updates in one transaction through a prepared
// statement. Each input row is [key, set values...].
func (r *Repo) UpdateByKey(ctx context.Context, table, keyColumn string, setColumns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	setParts := make([]string, 0, len(setColumns))
	for _, c := range setColumns {
		setParts = append(setParts, fmt.Sprintf("%s = ?", sqlIdent(c)))
	}
	q := fmt.Sprintf(
		`UPDATE %s SET %s WHERE %s = ?`,
		sqlIdent(table), strings.Join(setParts, ", "), sqlIdent(keyColumn),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var affected int64
	for _, row := range rows {
		if len(row) != len(setColumns)+1 {
			return 0, fmt.Errorf("sqlite: update row has %d values, want %d", len(row), len(setColumns)+1)
		}
		args := make([]any, 0, len(row))
		args = append(args, row[1:]...)
		args = append(args, row[0])

		res, err := stmt.ExecContext(ctx, args...)
		if err != nil {
			return 0, err
		}
		n, _ := res.RowsAffected()
		affected += n
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return affected, nil
}

// DeleteByKeys deletes in one transaction, chunking the IN list to stay
// under the bind-variable limit. A mid-run failure rolls everything back, so
// the dedupe stage never leaves a partially deleted table.
func (r *Repo) DeleteByKeys(ctx context.Context, table, keyColumn string, keys []any) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var affected int64
	for start := 0; start < len(keys); start += maxBindVars {
		end := start + maxBindVars
		if end > len(keys) {
			end = len(keys)
		}
		chunk := keys[start:end]

		ph := strings.TrimRight(strings.Repeat("?,", len(chunk)), ",")
		q := fmt.Sprintf(
			`DELETE FROM %s WHERE %s IN (%s)`,
			sqlIdent(table), sqlIdent(keyColumn), ph,
		)
		res, err := tx.ExecContext(ctx, q, chunk...)
		if err != nil {
			return 0, err
		}
		n, _ := res.RowsAffected()
		affected += n
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return affected, nil
}

func (r *Repo) InsertRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	rowsPerChunk := maxBindVars / len(columns)
	if rowsPerChunk < 1 {
		rowsPerChunk = 1
	}

	placeholders := "(" + strings.TrimRight(strings.Repeat("?,", len(columns)), ",") + ")"

	var affected int64
	for start := 0; start < len(rows); start += rowsPerChunk {
		end := start + rowsPerChunk
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		var b strings.Builder
		b.WriteString("INSERT INTO ")
		b.WriteString(sqlIdent(table))
		b.WriteString(" (")
		b.WriteString(joinIdentList(columns))
		b.WriteString(") VALUES ")

		args := make([]any, 0, len(chunk)*len(columns))
		for i, row := range chunk {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(placeholders)
			args = append(args, row...)
		}

		res, err := r.db.ExecContext(ctx, b.String(), args...)
		if err != nil {
			return affected, err
		}
		n, _ := res.RowsAffected()
		affected += n
	}
	return affected, nil
}

func buildCreateTableSQL(t storage.TableSpec) (string, error) {
	if strings.TrimSpace(t.Name) == "" {
		return "", fmt.Errorf("table name is empty")
	}

	var parts []string

	if t.PrimaryKey != nil {
		pkType := strings.TrimSpace(strings.ToLower(t.PrimaryKey.Type))

		// Translate common postgres/mssql-ish pk types into sqlite semantics.
		// "INTEGER PRIMARY KEY" is special in sqlite: it becomes the rowid and auto-generates values.
		switch pkType {
		case "serial", "bigserial":
			parts = append(parts, fmt.Sprintf(`%s INTEGER PRIMARY KEY AUTOINCREMENT`, sqlIdent(t.PrimaryKey.Name)))
		case "int identity", "integer identity", "identity":
			parts = append(parts, fmt.Sprintf(`%s INTEGER PRIMARY KEY AUTOINCREMENT`, sqlIdent(t.PrimaryKey.Name)))
		default:
			parts = append(parts, fmt.Sprintf(`%s %s PRIMARY KEY`, sqlIdent(t.PrimaryKey.Name), t.PrimaryKey.Type))
		}
	}

	for _, c := range t.Columns {
		col := fmt.Sprintf("%s %s", sqlIdent(c.Name), c.Type)
		nullable := true
		if c.Nullable != nil {
			nullable = *c.Nullable
		}
		if !nullable {
			col += " NOT NULL"
		}
		parts = append(parts, col)
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n);", sqlIdent(t.Name), strings.Join(parts, ",\n  ")), nil
}

func sqlIdent(id string) string {
	// SQLite supports "quoted identifiers"
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

func joinIdentList(columns []string) string {
	out := make([]string, 0, len(columns))
	for _, c := range columns {
		out = append(out, sqlIdent(c))
	}
	return strings.Join(out, ", ")
}
