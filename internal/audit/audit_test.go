package audit

import (
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"propclean/internal/storage"
	_ "propclean/internal/storage/sqlite"
)

func strPtr(s string) *string { return &s }

func TestRecorder_FlushPersistsOperations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo, err := storage.New(ctx, storage.Config{
		Kind: "sqlite",
		DSN:  filepath.Join(t.TempDir(), "audit.db"),
	})
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	defer repo.Close()

	rec, err := New(ctx, repo, "cleaning_audit", zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rec.Record(Operation{
		Stage:  "address_imputer",
		Column: "property_address",
		RowID:  "43076",
		Old:    nil,
		New:    "1802 STEWART PL, NASHVILLE",
		Reason: "imputed_from_parcel_group",
	})
	rec.Record(Operation{
		Stage:  "flag_normalizer",
		Column: "sold_as_vacant",
		RowID:  "43077",
		Old:    strPtr("Y"),
		New:    "Yes",
		Reason: "label_rewrite",
	})

	if err := rec.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	// Second flush with an empty buffer must be a no-op.
	if err := rec.Flush(ctx); err != nil {
		t.Fatalf("empty Flush: %v", err)
	}

	rows, err := repo.SelectColumns(ctx, "cleaning_audit",
		[]string{"run_id", "stage", "row_identifier", "old_value", "new_value"})
	if err != nil {
		t.Fatalf("SelectColumns: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("audit rows=%d want 2", len(rows))
	}

	// Both rows share the recorder's run id.
	if storage.NormalizeKey(rows[0][0]) != storage.NormalizeKey(rows[1][0]) {
		t.Fatalf("run ids differ: %v vs %v", rows[0][0], rows[1][0])
	}

	// The imputed row carried a NULL old value.
	for _, row := range rows {
		if storage.NormalizeKey(row[2]) == "43076" && row[3] != nil {
			t.Fatalf("expected NULL old_value for imputed row, got %v", row[3])
		}
	}
}

func TestNopRecorder(t *testing.T) {
	t.Parallel()

	rec := Nop()
	rec.Record(Operation{Stage: "x"})
	if err := rec.Flush(context.Background()); err != nil {
		t.Fatalf("nop Flush: %v", err)
	}
}
