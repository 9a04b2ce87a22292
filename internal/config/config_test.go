package config

import (
	"encoding/json"
	"testing"
)

func TestApplyDefaults(t *testing.T) {
	t.Parallel()

	p := Pipeline{
		Storage: Storage{Kind: "sqlite", DSN: "file.db"},
		Audit:   Audit{Enabled: true},
	}
	p.ApplyDefaults()

	if p.Table.Name != "sales" {
		t.Fatalf("table name default: %q", p.Table.Name)
	}
	if p.Runtime.BatchSize != DefaultBatchSize {
		t.Fatalf("batch size default: %d", p.Runtime.BatchSize)
	}
	if p.Audit.Table != DefaultAuditTable {
		t.Fatalf("audit table default: %q", p.Audit.Table)
	}
	if p.Table.Columns.UniqueID != "unique_id" || p.Table.Columns.OwnerState != "owner_state" {
		t.Fatalf("column defaults not applied: %+v", p.Table.Columns)
	}
}

func TestApplyDefaults_KeepsOverrides(t *testing.T) {
	t.Parallel()

	p := Pipeline{Table: Table{Name: "nashville", Columns: Columns{UniqueID: "UniqueID"}}}
	p.ApplyDefaults()

	if p.Table.Name != "nashville" {
		t.Fatalf("override lost: %q", p.Table.Name)
	}
	if p.Table.Columns.UniqueID != "UniqueID" {
		t.Fatalf("column override lost: %q", p.Table.Columns.UniqueID)
	}
	if p.Table.Columns.ParcelID != "parcel_id" {
		t.Fatalf("default not applied next to override: %q", p.Table.Columns.ParcelID)
	}
}

func TestValidatePipeline_TableDriven(t *testing.T) {
	t.Parallel()

	valid := func() Pipeline {
		p := Pipeline{Storage: Storage{Kind: "sqlite", DSN: "file.db"}}
		p.ApplyDefaults()
		return p
	}

	tests := []struct {
		name     string
		mutate   func(*Pipeline)
		wantErrs bool
	}{
		{name: "valid", mutate: func(p *Pipeline) {}, wantErrs: false},
		{name: "missing_kind", mutate: func(p *Pipeline) { p.Storage.Kind = "" }, wantErrs: true},
		{name: "unknown_kind", mutate: func(p *Pipeline) { p.Storage.Kind = "oracle" }, wantErrs: true},
		{name: "missing_dsn", mutate: func(p *Pipeline) { p.Storage.DSN = "" }, wantErrs: true},
		{
			name:     "prune_without_split",
			mutate:   func(p *Pipeline) { p.Stages.Disabled = []string{"address_splitter"} },
			wantErrs: true,
		},
		{
			name: "prune_and_split_both_disabled_ok",
			mutate: func(p *Pipeline) {
				p.Stages.Disabled = []string{"address_splitter", "date_normalizer", "column_pruner"}
			},
			wantErrs: false,
		},
		{
			name:     "unknown_disabled_stage_is_warning_only",
			mutate:   func(p *Pipeline) { p.Stages.Disabled = []string{"no_such_stage"} },
			wantErrs: false,
		},
		{
			name:     "loader_without_path",
			mutate:   func(p *Pipeline) { p.Loader = &Loader{} },
			wantErrs: true,
		},
		{
			name: "audit_table_collides_with_sales",
			mutate: func(p *Pipeline) {
				p.Audit = Audit{Enabled: true, Table: "sales"}
			},
			wantErrs: true,
		},
		{
			name: "strict_splitter_with_pruner_is_warning_only",
			mutate: func(p *Pipeline) {
				p.Stages.Options = map[string]Options{
					"address_splitter": {"strict_property": true},
				}
			},
			wantErrs: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid()
			tt.mutate(&p)
			issues := ValidatePipeline(p)
			if got := HasErrors(issues); got != tt.wantErrs {
				t.Fatalf("HasErrors=%v want %v; issues=%+v", got, tt.wantErrs, issues)
			}
		})
	}
}

func TestOptions_Coercion(t *testing.T) {
	t.Parallel()

	var o Options
	if err := json.Unmarshal([]byte(`{
		"has_header": true,
		"comma": ";",
		"batch": 42,
		"batch_as_string": "42",
		"header_map": {"UniqueID ": "unique_id"}
	}`), &o); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !o.Bool("has_header", false) {
		t.Fatalf("Bool coercion failed")
	}
	if o.Bool("missing", true) != true {
		t.Fatalf("Bool default not used")
	}
	if o.Rune("comma", ',') != ';' {
		t.Fatalf("Rune coercion failed")
	}
	if o.Rune("missing", ',') != ',' {
		t.Fatalf("Rune default not used")
	}
	// JSON numbers decode as float64; Int must still coerce.
	if o.Int("batch", 0) != 42 {
		t.Fatalf("Int coercion from float64 failed")
	}
	if o.Int("batch_as_string", 0) != 42 {
		t.Fatalf("Int coercion from string failed")
	}
	if m := o.StringMap("header_map"); m["UniqueID "] != "unique_id" {
		t.Fatalf("StringMap coercion failed: %v", m)
	}
	if o.Any("missing") != nil {
		t.Fatalf("Any for missing key must be nil")
	}
}

func TestStageOptions(t *testing.T) {
	t.Parallel()

	p := Pipeline{
		Stages: Stages{
			Options: map[string]Options{
				"address_splitter": {"strict_property": true},
			},
		},
	}

	if !p.StageOptions("address_splitter").Bool("strict_property", false) {
		t.Fatalf("stage option not returned")
	}
	// Unconfigured stages get an empty, usable bag.
	if p.StageOptions("deduplicator").Bool("anything", true) != true {
		t.Fatalf("missing stage options must fall back to defaults")
	}
}
