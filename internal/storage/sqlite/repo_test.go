package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"propclean/internal/storage"
)

func boolPtr(v bool) *bool { return &v }

func testRepo(t *testing.T) storage.Repository {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db")
	repo, err := New(context.Background(), storage.Config{Kind: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(repo.Close)
	return repo
}

func salesSpec() storage.TableSpec {
	return storage.TableSpec{
		Name: "sales",
		Columns: []storage.ColumnSpec{
			{Name: "unique_id", Type: "integer", Nullable: boolPtr(false)},
			{Name: "parcel_id", Type: "text"},
			{Name: "property_address", Type: "text"},
			{Name: "sale_date", Type: "text"},
			{Name: "sale_price", Type: "integer"},
		},
	}
}

func TestBuildCreateTableSQL(t *testing.T) {
	t.Parallel()

	ddl, err := buildCreateTableSQL(salesSpec())
	if err != nil {
		t.Fatalf("buildCreateTableSQL: %v", err)
	}
	if !strings.Contains(ddl, `CREATE TABLE IF NOT EXISTS "sales"`) {
		t.Fatalf("missing CREATE TABLE: %q", ddl)
	}
	if !strings.Contains(ddl, `"unique_id" integer NOT NULL`) {
		t.Fatalf("missing NOT NULL column: %q", ddl)
	}

	if _, err := buildCreateTableSQL(storage.TableSpec{Name: "  "}); err == nil {
		t.Fatalf("expected error for empty table name")
	}
}

func TestRepo_EnsureTableIdempotent(t *testing.T) {
	t.Parallel()

	repo := testRepo(t)
	ctx := context.Background()

	if err := repo.EnsureTable(ctx, salesSpec()); err != nil {
		t.Fatalf("first EnsureTable: %v", err)
	}
	if err := repo.EnsureTable(ctx, salesSpec()); err != nil {
		t.Fatalf("second EnsureTable: %v", err)
	}

	cols, err := repo.Columns(ctx, "sales")
	if err != nil {
		t.Fatalf("Columns: %v", err)
	}
	if len(cols) != 5 || cols[0] != "unique_id" {
		t.Fatalf("unexpected columns: %v", cols)
	}
}

func TestRepo_AddAndDropColumns(t *testing.T) {
	t.Parallel()

	repo := testRepo(t)
	ctx := context.Background()
	if err := repo.EnsureTable(ctx, salesSpec()); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}

	col := storage.ColumnSpec{Name: "sale_date_clean", Type: "text"}
	if err := repo.AddColumn(ctx, "sales", col); err != nil {
		t.Fatalf("AddColumn: %v", err)
	}
	// Re-adding must be a no-op, not an error.
	if err := repo.AddColumn(ctx, "sales", col); err != nil {
		t.Fatalf("AddColumn rerun: %v", err)
	}

	if err := repo.DropColumns(ctx, "sales", []string{"sale_date", "no_such_column"}); err != nil {
		t.Fatalf("DropColumns: %v", err)
	}
	// Dropping again must be a no-op.
	if err := repo.DropColumns(ctx, "sales", []string{"sale_date"}); err != nil {
		t.Fatalf("DropColumns rerun: %v", err)
	}

	cols, err := repo.Columns(ctx, "sales")
	if err != nil {
		t.Fatalf("Columns: %v", err)
	}
	for _, c := range cols {
		if c == "sale_date" {
			t.Fatalf("sale_date not dropped: %v", cols)
		}
	}
}

func TestRepo_UpdateDeleteRoundTrip(t *testing.T) {
	t.Parallel()

	repo := testRepo(t)
	ctx := context.Background()
	if err := repo.EnsureTable(ctx, salesSpec()); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}

	n, err := repo.InsertRows(ctx, "sales",
		[]string{"unique_id", "parcel_id", "property_address", "sale_date", "sale_price"},
		[][]any{
			{int64(1), "p1", "1802 STEWART PL, NASHVILLE", "April 9, 2013", int64(132000)},
			{int64(2), "p1", nil, "April 9, 2013", int64(132000)},
			{int64(3), "p2", "123 MAIN ST, NASHVILLE", "June 3, 2015", int64(255000)},
		})
	if err != nil {
		t.Fatalf("InsertRows: %v", err)
	}
	if n != 3 {
		t.Fatalf("inserted %d rows, want 3", n)
	}

	n, err = repo.UpdateByKey(ctx, "sales", "unique_id",
		[]string{"property_address"},
		[][]any{{int64(2), "1802 STEWART PL, NASHVILLE"}})
	if err != nil {
		t.Fatalf("UpdateByKey: %v", err)
	}
	if n != 1 {
		t.Fatalf("updated %d rows, want 1", n)
	}

	rows, err := repo.SelectColumns(ctx, "sales", []string{"unique_id", "property_address"})
	if err != nil {
		t.Fatalf("SelectColumns: %v", err)
	}
	for _, row := range rows {
		if storage.NormalizeKey(row[0]) == "2" && storage.NormalizeKey(row[1]) != "1802 STEWART PL, NASHVILLE" {
			t.Fatalf("row 2 not updated: %v", row)
		}
	}

	n, err = repo.DeleteByKeys(ctx, "sales", "unique_id", []any{int64(2), int64(3)})
	if err != nil {
		t.Fatalf("DeleteByKeys: %v", err)
	}
	if n != 2 {
		t.Fatalf("deleted %d rows, want 2", n)
	}

	rows, err = repo.SelectColumns(ctx, "sales", []string{"unique_id"})
	if err != nil {
		t.Fatalf("SelectColumns after delete: %v", err)
	}
	if len(rows) != 1 || storage.NormalizeKey(rows[0][0]) != "1" {
		t.Fatalf("unexpected survivors: %v", rows)
	}
}

func TestRepo_SelectMissingColumn(t *testing.T) {
	t.Parallel()

	repo := testRepo(t)
	ctx := context.Background()
	if err := repo.EnsureTable(ctx, salesSpec()); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}

	_, err := repo.SelectColumns(ctx, "sales", []string{"unique_id", "owner_address"})
	var cnf *storage.ColumnNotFoundError
	if !errors.As(err, &cnf) {
		t.Fatalf("expected ColumnNotFoundError, got %v", err)
	}
	if cnf.Column != "owner_address" {
		t.Fatalf("wrong column in error: %v", cnf)
	}
}
