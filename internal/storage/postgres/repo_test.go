package postgres

import (
	"strings"
	"testing"

	"propclean/internal/storage"
)

func TestBuildUpdateSQL_PlaceholderNumbering(t *testing.T) {
	t.Parallel()

	got := buildUpdateSQL("sales", "unique_id", []string{"property_street", "property_city"})
	want := `UPDATE "sales" SET "property_street" = $1, "property_city" = $2 WHERE "unique_id" = $3`
	if got != want {
		t.Fatalf("buildUpdateSQL:\n got  %s\n want %s", got, want)
	}
}

func TestBuildInsertSQL_MultiRow(t *testing.T) {
	t.Parallel()

	sql, args := buildInsertSQL("sales",
		[]string{"unique_id", "parcel_id"},
		[][]any{
			{int64(1), "p1"},
			{int64(2), "p2"},
		})

	want := `INSERT INTO "sales" ("unique_id", "parcel_id") VALUES ($1, $2), ($3, $4)`
	if sql != want {
		t.Fatalf("buildInsertSQL:\n got  %s\n want %s", sql, want)
	}
	if len(args) != 4 {
		t.Fatalf("args len=%d want 4", len(args))
	}
	if args[2] != int64(2) || args[3] != "p2" {
		t.Fatalf("arg order wrong: %v", args)
	}
}

func TestBuildCreateTableSQL_NullabilityAndQuoting(t *testing.T) {
	t.Parallel()

	no := false
	ddl, err := buildCreateTableSQL(storage.TableSpec{
		Name: "sales",
		Columns: []storage.ColumnSpec{
			{Name: "unique_id", Type: "bigint", Nullable: &no},
			{Name: "parcel_id", Type: "text"},
		},
	})
	if err != nil {
		t.Fatalf("buildCreateTableSQL: %v", err)
	}

	wantParts := []string{
		`CREATE TABLE IF NOT EXISTS "sales"`,
		`"unique_id" bigint NOT NULL`,
		`"parcel_id" text`,
	}
	for _, p := range wantParts {
		if !strings.Contains(ddl, p) {
			t.Fatalf("ddl missing %q:\n%s", p, ddl)
		}
	}

	if _, err := buildCreateTableSQL(storage.TableSpec{}); err == nil {
		t.Fatalf("expected error for empty table name")
	}
}
