package config

import "fmt"

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a single validation finding. Path points into the JSON document
// using dotted notation.
type Issue struct {
	Severity Severity
	Path     string
	Message  string
}

var knownKinds = map[string]bool{
	"sqlite":   true,
	"postgres": true,
	"mssql":    true,
}

// ValidatePipeline checks a decoded pipeline config and returns all findings.
// Call ApplyDefaults first; validation assumes defaults are in place.
//
// Errors make the config unusable; warnings flag likely mistakes that do not
// block a run.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	errf := func(path, format string, a ...any) {
		issues = append(issues, Issue{Severity: SeverityError, Path: path, Message: fmt.Sprintf(format, a...)})
	}
	warnf := func(path, format string, a ...any) {
		issues = append(issues, Issue{Severity: SeverityWarning, Path: path, Message: fmt.Sprintf(format, a...)})
	}

	if p.Storage.Kind == "" {
		errf("storage.kind", "must be set")
	} else if !knownKinds[p.Storage.Kind] {
		errf("storage.kind", "unknown backend %q (want sqlite, postgres or mssql)", p.Storage.Kind)
	}
	if p.Storage.DSN == "" {
		errf("storage.dsn", "must be set")
	}

	if p.Table.Name == "" {
		errf("table.name", "must be set")
	}

	known := map[string]bool{}
	for _, n := range StageNames {
		known[n] = true
	}
	for i, d := range p.Stages.Disabled {
		if !known[d] {
			warnf(fmt.Sprintf("stages.disabled[%d]", i), "unknown stage %q", d)
		}
	}
	if p.StageDisabled("address_splitter") && !p.StageDisabled("column_pruner") {
		// Pruning the compound columns without splitting them first loses data.
		errf("stages.disabled", "column_pruner requires address_splitter; disable both or neither")
	}
	if p.StageDisabled("date_normalizer") && !p.StageDisabled("column_pruner") {
		errf("stages.disabled", "column_pruner requires date_normalizer; disable both or neither")
	}

	for name := range p.Stages.Options {
		if !known[name] {
			warnf("stages.options", "unknown stage %q", name)
		}
	}
	if p.StageOptions("address_splitter").Bool("strict_property", false) && !p.StageDisabled("column_pruner") {
		// A malformed address is left unsplit under strict mode; pruning the
		// compound column afterwards would lose it.
		warnf("stages.options.address_splitter", "strict_property with column_pruner enabled can drop unsplit addresses")
	}

	if p.Loader != nil && p.Loader.Path == "" {
		errf("loader.path", "must be set when loader is configured")
	}

	if p.Audit.Enabled && p.Audit.Table == "" {
		errf("audit.table", "must be set when audit is enabled")
	}
	if p.Audit.Enabled && p.Audit.Table == p.Table.Name {
		errf("audit.table", "must differ from table.name")
	}

	return issues
}

// HasErrors reports whether any issue is severity error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}
