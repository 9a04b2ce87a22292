package storage

import (
	"fmt"
	"strings"
)

// NormalizeKey converts a scanned key value to a canonical string form,
// suitable for in-memory grouping keys (e.g. a parcel id like
// "081 07 0 128.00" or a unique row id like "23416").
//
// Callers must not assume a particular underlying scan type for keys; this
// helper keeps group indexes consistent across backends ([]byte vs string,
// int64 vs int).
func NormalizeKey(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case int64:
		return fmt.Sprintf("%d", t)
	case []byte:
		return strings.TrimSpace(string(t))
	case int:
		return fmt.Sprintf("%d", t)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
