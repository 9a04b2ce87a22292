package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"propclean/internal/storage"
)

/*
Repo implements storage.Repository for Postgres.

It provides:
  - Column introspection via information_schema.
  - Idempotent column add/drop using IF NOT EXISTS / IF EXISTS.
  - Batched per-row updates using pgx.Batch inside one transaction.
  - Set-based deletes using = ANY($1).

Behavior matches the SQLite and MSSQL implementations.
*/
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new Postgres-backed Repo.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Repo{pool: pool}, nil
}

// Close closes the connection pool.
func (r *Repo) Close() {
	r.pool.Close()
}

func (r *Repo) EnsureTable(ctx context.Context, spec storage.TableSpec) error {
	ddl, err := buildCreateTableSQL(spec)
	if err != nil {
		return err
	}
	if _, err := r.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", spec.Name, err)
	}
	return nil
}

func (r *Repo) Columns(ctx context.Context, table string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_name = $1
		ORDER BY ordinal_position`, table)
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
	_, err := r.pool.Exec(ctx, fmt.Sprintf(
		`ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s`,
		pgIdent(table), pgIdent(col.Name), col.Type,
	))
	if err != nil {
		return fmt.Errorf("add column %s.%s: %w", table, col.Name, err)
	}
	return nil
}

func (r *Repo) DropColumns(ctx context.Context, table string, names []string) error {
	for _, name := range names {
		if _, err := r.pool.Exec(ctx, fmt.Sprintf(
			`ALTER TABLE %s DROP COLUMN IF EXISTS %s`, pgIdent(table), pgIdent(name),
		)); err != nil {
			return fmt.Errorf("drop column %s.%s: %w", table, name, err)
		}
	}
	return nil
}

func (r *Repo) SelectColumns(ctx context.Context, table string, columns []string) ([][]any, error) {
	if err := r.requireColumns(ctx, table, columns); err != nil {
		return nil, err
	}

	q := fmt.Sprintf(`SELECT %s FROM %s`, joinIdentList(columns), pgIdent(table))
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out [][]any
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
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

// UpdateByKey queues one UPDATE per row into a pgx.Batch and sends the whole
// batch in a single transaction. One round trip per batch instead of one per
// row makes a real difference on remote databases.
func (r *Repo) UpdateByKey(ctx context.Context, table, keyColumn string, setColumns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	q := buildUpdateSQL(table, keyColumn, setColumns)

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, row := range rows {
		if len(row) != len(setColumns)+1 {
			return 0, fmt.Errorf("postgres: update row has %d values, want %d", len(row), len(setColumns)+1)
		}
		args := make([]any, 0, len(row))
		args = append(args, row[1:]...)
		args = append(args, row[0])
		batch.Queue(q, args...)
	}

	br := tx.SendBatch(ctx, batch)
	var affected int64
	for range rows {
		cmd, err := br.Exec()
		if err != nil {
			_ = br.Close()
			return 0, err
		}
		affected += cmd.RowsAffected()
	}
	if err := br.Close(); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return affected, nil
}

func (r *Repo) DeleteByKeys(ctx context.Context, table, keyColumn string, keys []any) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}

	// Keys are passed as text and compared against keyColumn::text so the
	// same call shape works for integer and string unique ids.
	textKeys := make([]string, 0, len(keys))
	for _, k := range keys {
		textKeys = append(textKeys, storage.NormalizeKey(k))
	}

	q := fmt.Sprintf(
		`DELETE FROM %s WHERE %s::text = ANY($1)`,
		pgIdent(table), pgIdent(keyColumn),
	)
	cmd, err := r.pool.Exec(ctx, q, textKeys)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *Repo) InsertRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	sql, args := buildInsertSQL(table, columns, rows)
	cmd, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

// buildUpdateSQL constructs the per-row UPDATE statement.
//
// Why this exists:
//   - It is pure and deterministic, so we can unit test placeholder numbering
//     without a database.
func buildUpdateSQL(table, keyColumn string, setColumns []string) string {
	setParts := make([]string, 0, len(setColumns))
	for i, c := range setColumns {
		setParts = append(setParts, fmt.Sprintf("%s = $%d", pgIdent(c), i+1))
	}
	return fmt.Sprintf(
		`UPDATE %s SET %s WHERE %s = $%d`,
		pgIdent(table), strings.Join(setParts, ", "), pgIdent(keyColumn), len(setColumns)+1,
	)
}

// buildInsertSQL constructs a single multi-row INSERT statement and its args.
//
// Constraints:
//   - rows must have the same length as columns for every row.
//   - columns must be non-empty.
func buildInsertSQL(table string, columns []string, rows [][]any) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(pgIdent(table))
	b.WriteString(" (")

	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(pgIdent(c))
	}
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(columns))
	n := 1
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j := range columns {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", n)
			n++
			args = append(args, row[j])
		}
		b.WriteString(")")
	}

	return b.String(), args
}

func buildCreateTableSQL(t storage.TableSpec) (string, error) {
	if strings.TrimSpace(t.Name) == "" {
		return "", fmt.Errorf("table name is empty")
	}

	var parts []string
	if t.PrimaryKey != nil {
		parts = append(parts, fmt.Sprintf(`%s %s PRIMARY KEY`, pgIdent(t.PrimaryKey.Name), t.PrimaryKey.Type))
	}
	for _, c := range t.Columns {
		col := fmt.Sprintf("%s %s", pgIdent(c.Name), c.Type)
		nullable := true
		if c.Nullable != nil {
			nullable = *c.Nullable
		}
		if !nullable {
			col += " NOT NULL"
		}
		parts = append(parts, col)
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n);", pgIdent(t.Name), strings.Join(parts, ",\n  ")), nil
}

func pgIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

func joinIdentList(columns []string) string {
	out := make([]string, 0, len(columns))
	for _, c := range columns {
		out = append(out, pgIdent(c))
	}
	return strings.Join(out, ", ")
}
