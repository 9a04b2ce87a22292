// TableSpec types live here so backend packages can consume them without
// importing the pipeline.
package storage

import "fmt"

type TableSpec struct {
	Name       string          `json:"name"`
	PrimaryKey *PrimaryKeySpec `json:"primary_key,omitempty"`
	Columns    []ColumnSpec    `json:"columns"`
}

type PrimaryKeySpec struct {
	Name string `json:"name"`
	Type string `json:"type"` // e.g. serial / int identity, etc
}

type ColumnSpec struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable *bool  `json:"nullable,omitempty"`
}

// ColumnNotFoundError reports a reference to a column absent from the table's
// schema. Backends map their driver-specific "no such column" conditions into
// this type so callers can branch with errors.As.
//
// Note: DropColumns treats absence as a no-op and never returns this error;
// it exists for scan paths that genuinely require the column.
type ColumnNotFoundError struct {
	Table  string
	Column string
}

func (e *ColumnNotFoundError) Error() string {
	return fmt.Sprintf("storage: column %s.%s not found", e.Table, e.Column)
}
