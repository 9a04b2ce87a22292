package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"propclean/internal/audit"
)

// valueString renders a scanned cell as text. Backends disagree on scan
// representations (string vs []byte vs time.Time), so every stage goes
// through this before comparing or parsing.
func valueString(v any) (s string, null bool) {
	switch t := v.(type) {
	case nil:
		return "", true
	case string:
		return t, false
	case []byte:
		return string(t), false
	case time.Time:
		return t.Format("2006-01-02 15:04:05"), false
	default:
		return fmt.Sprint(t), false
	}
}

// blank reports whether a scanned cell is NULL or whitespace-only.
func blank(v any) bool {
	s, null := valueString(v)
	return null || strings.TrimSpace(s) == ""
}

// oldValue converts a scanned cell to the audit trail's prior-value form.
func oldValue(v any) *string {
	s, null := valueString(v)
	if null {
		return nil
	}
	return &s
}

// keyLess orders unique row ids numerically when both sides parse as
// integers, lexically otherwise. Determines imputation donors and
// deduplication survivors, so it must be total and deterministic.
func keyLess(a, b string) bool {
	ai, aerr := strconv.ParseInt(a, 10, 64)
	bi, berr := strconv.ParseInt(b, 10, 64)
	if aerr == nil && berr == nil {
		return ai < bi
	}
	return a < b
}

func auditOp(stage, column, rowID string, old *string, newValue, reason string) audit.Operation {
	return audit.Operation{
		Stage:  stage,
		Column: column,
		RowID:  rowID,
		Old:    old,
		New:    newValue,
		Reason: reason,
	}
}

func hasColumn(cols []string, name string) bool {
	for _, c := range cols {
		if c == name {
			return true
		}
	}
	return false
}

// applyUpdates sends per-row updates to the backend in BatchSize chunks.
// Each chunk is one transaction; rows within a chunk share setColumns.
func applyUpdates(ctx context.Context, env Env, setColumns []string, rows [][]any) (int64, error) {
	var total int64
	for start := 0; start < len(rows); start += env.BatchSize {
		end := min(start+env.BatchSize, len(rows))
		n, err := env.Repo.UpdateByKey(ctx, env.Table, env.Columns.UniqueID, setColumns, rows[start:end])
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
