package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"propclean/internal/storage"
)

// maxParams stays safely under SQL Server's 2100 parameter limit per
// statement. Larger workloads are chunked.
const maxParams = 2000

// Repo implements storage.Repository for Microsoft SQL Server.
//
// This implementation supports:
//   - Column introspection via INFORMATION_SCHEMA.COLUMNS.
//   - Idempotent column add/drop (existence-checked, since older SQL Server
//     versions lack ADD/DROP COLUMN IF [NOT] EXISTS).
//   - Batched per-row updates through a prepared statement in one transaction.
//   - Chunked IN-list deletes in one transaction.
//
// Note on driver registration:
//   - This package intentionally does NOT blank-import a SQL Server driver.
//     The application must register the "sqlserver" driver elsewhere
//     (internal/storage/all does this).
type Repo struct {
	db *sql.DB
}

func init() {
	storage.Register("mssql", New)
}

// New constructs a Repo using database/sql and the "sqlserver" driver.
//
// The caller must ensure a SQL Server driver is registered with database/sql
// under the name "sqlserver" before calling New. If not, sql.Open will fail.
//
// This method validates connectivity via PingContext.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
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
	rows, err := r.db.QueryContext(ctx, `
		SELECT COLUMN_NAME
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_NAME = @p1
		ORDER BY ORDINAL_POSITION`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (r *Repo) AddColumn(ctx context.Context, table string, col storage.ColumnSpec) error {
	has, err := r.hasColumn(ctx, table, col.Name)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = r.db.ExecContext(ctx, fmt.Sprintf(
		`ALTER TABLE %s ADD %s %s`, msIdent(table), msIdent(col.Name), col.Type,
	))
	if err != nil {
		return fmt.Errorf("add column %s.%s: %w", table, col.Name, err)
	}
	return nil
}

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
			`ALTER TABLE %s DROP COLUMN %s`, msIdent(table), msIdent(name),
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

	q := fmt.Sprintf(`SELECT %s FROM %s`, joinIdentList(columns), msIdent(table))
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

func (r *Repo) UpdateByKey(ctx context.Context, table, keyColumn string, setColumns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	setParts := make([]string, 0, len(setColumns))
	for i, c := range setColumns {
		setParts = append(setParts, fmt.Sprintf("%s = @p%d", msIdent(c), i+1))
	}
	q := fmt.Sprintf(
		`UPDATE %s SET %s WHERE %s = @p%d`,
		msIdent(table), strings.Join(setParts, ", "), msIdent(keyColumn), len(setColumns)+1,
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
			return 0, fmt.Errorf("mssql: update row has %d values, want %d", len(row), len(setColumns)+1)
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
	for start := 0; start < len(keys); start += maxParams {
		end := start + maxParams
		if end > len(keys) {
			end = len(keys)
		}
		chunk := keys[start:end]

		ph := make([]string, 0, len(chunk))
		for i := range chunk {
			ph = append(ph, fmt.Sprintf("@p%d", i+1))
		}
		q := fmt.Sprintf(
			`DELETE FROM %s WHERE %s IN (%s)`,
			msIdent(table), msIdent(keyColumn), strings.Join(ph, ", "),
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

	rowsPerChunk := maxParams / len(columns)
	if rowsPerChunk < 1 {
		rowsPerChunk = 1
	}

	var affected int64
	for start := 0; start < len(rows); start += rowsPerChunk {
		end := start + rowsPerChunk
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		var b strings.Builder
		b.WriteString("INSERT INTO ")
		b.WriteString(msIdent(table))
		b.WriteString(" (")
		b.WriteString(joinIdentList(columns))
		b.WriteString(") VALUES ")

		args := make([]any, 0, len(chunk)*len(columns))
		n := 1
		for i, row := range chunk {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString("(")
			for j := range columns {
				if j > 0 {
					b.WriteString(", ")
				}
				fmt.Fprintf(&b, "@p%d", n)
				n++
				args = append(args, row[j])
			}
			b.WriteString(")")
		}

		res, err := r.db.ExecContext(ctx, b.String(), args...)
		if err != nil {
			return affected, err
		}
		rn, _ := res.RowsAffected()
		affected += rn
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
		switch pkType {
		case "serial", "bigserial", "int identity", "integer identity", "identity":
			parts = append(parts, fmt.Sprintf(`%s INT IDENTITY(1,1) PRIMARY KEY`, msIdent(t.PrimaryKey.Name)))
		default:
			parts = append(parts, fmt.Sprintf(`%s %s PRIMARY KEY`, msIdent(t.PrimaryKey.Name), t.PrimaryKey.Type))
		}
	}
	for _, c := range t.Columns {
		col := fmt.Sprintf("%s %s", msIdent(c.Name), c.Type)
		nullable := true
		if c.Nullable != nil {
			nullable = *c.Nullable
		}
		if !nullable {
			col += " NOT NULL"
		}
		parts = append(parts, col)
	}

	return fmt.Sprintf(
		"IF OBJECT_ID(N'%s', N'U') IS NULL CREATE TABLE %s (\n  %s\n);",
		t.Name, msIdent(t.Name), strings.Join(parts, ",\n  "),
	), nil
}

func msIdent(id string) string {
	return `[` + strings.ReplaceAll(id, `]`, `]]`) + `]`
}

func joinIdentList(columns []string) string {
	out := make([]string, 0, len(columns))
	for _, c := range columns {
		out = append(out, msIdent(c))
	}
	return strings.Join(out, ", ")
}
