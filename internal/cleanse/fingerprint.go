package cleanse

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// fingerprintSeparator joins field components in the canonical string.
// ASCII Unit Separator cannot occur in the source columns, so fields can
// never bleed into each other.
const fingerprintSeparator = "\x1f"

// Fingerprint computes a deterministic SHA-256 hash over the given values in
// order. It is used as the natural-key fingerprint for deduplication:
// records sharing a fingerprint are duplicates of the same sale observation.
//
// Canonicalization rules:
//   - nil is encoded as a single NUL byte so missing differs from empty.
//   - Strings and []byte are trimmed at the edges before hashing, matching
//     how the cleaning stages compare values.
//   - Common scalar types are converted without fmt.Sprint.
//   - time.Time is encoded as RFC3339Nano in UTC.
//
// Output is a lowercase hex string of length 64.
func Fingerprint(values ...any) string {
	var b strings.Builder
	b.Grow(len(values) * 20)

	for i, v := range values {
		if i > 0 {
			b.WriteString(fingerprintSeparator)
		}
		appendCanonicalValue(&b, v)
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// appendCanonicalValue appends a stable representation of v. Scan values from
// database/sql and pgx arrive as string, []byte, int64, float64, bool,
// time.Time or nil; everything else falls back to fmt.Sprint.
func appendCanonicalValue(b *strings.Builder, v any) {
	switch t := v.(type) {
	case nil:
		b.WriteByte('\x00')

	case string:
		b.WriteString(strings.TrimSpace(t))

	case []byte:
		b.WriteString(strings.TrimSpace(string(t)))

	case bool:
		if t {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}

	case int:
		b.WriteString(strconv.Itoa(t))
	case int32:
		b.WriteString(strconv.FormatInt(int64(t), 10))
	case int64:
		b.WriteString(strconv.FormatInt(t, 10))

	case float32:
		b.WriteString(strconv.FormatFloat(float64(t), 'g', -1, 32))
	case float64:
		b.WriteString(strconv.FormatFloat(t, 'g', -1, 64))

	case time.Time:
		tt := t
		if !tt.IsZero() {
			tt = tt.UTC()
		}
		b.WriteString(tt.Format(time.RFC3339Nano))

	default:
		b.WriteString(strings.TrimSpace(fmt.Sprint(t)))
	}
}
