package mssql

import (
	"strings"
	"testing"

	"propclean/internal/storage"
)

func TestBuildCreateTableSQL_IdentityTranslation(t *testing.T) {
	t.Parallel()

	ddl, err := buildCreateTableSQL(storage.TableSpec{
		Name:       "sales",
		PrimaryKey: &storage.PrimaryKeySpec{Name: "unique_id", Type: "serial"},
		Columns: []storage.ColumnSpec{
			{Name: "parcel_id", Type: "nvarchar(64)"},
		},
	})
	if err != nil {
		t.Fatalf("buildCreateTableSQL: %v", err)
	}

	if !strings.Contains(ddl, "[unique_id] INT IDENTITY(1,1) PRIMARY KEY") {
		t.Fatalf("serial pk not translated to IDENTITY:\n%s", ddl)
	}
	if !strings.Contains(ddl, "IF OBJECT_ID(N'sales', N'U') IS NULL") {
		t.Fatalf("ddl not guarded for existing table:\n%s", ddl)
	}
}

func TestMsIdent_EscapesBrackets(t *testing.T) {
	t.Parallel()

	if got := msIdent("weird]name"); got != "[weird]]name]" {
		t.Fatalf("msIdent=%q", got)
	}
}
