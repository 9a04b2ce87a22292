package cleanse

import (
	"strings"
	"time"
)

// DateLayout is the canonical calendar-date form written to the derived
// sale-date column. No time-of-day component survives normalization.
const DateLayout = "2006-01-02"

// saleDateLayouts are the raw forms observed in property-sale exports, tried
// in order. The spreadsheet-style "January 2, 2006" form is the most common
// in the source data, so it goes first.
var saleDateLayouts = []string{
	"January 2, 2006",
	"Jan 2, 2006",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02",
	"1/2/2006 15:04:05",
	"1/2/2006",
}

// ParseSaleDate normalizes a free-form sale-date value into DateLayout form.
//
// Behavior:
//   - Input may carry a time-of-day component; it is discarded.
//   - Parsing is pure and total over valid inputs: the same input always maps
//     to the same output, and reapplying to an already-canonical value is the
//     identity (DateLayout is itself an accepted layout).
//
// Errors:
//   - Returns *MalformedDateError when no accepted layout matches. Callers
//     are expected to skip the record, not abort the run.
func ParseSaleDate(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", &MalformedDateError{Value: raw}
	}

	for _, layout := range saleDateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.Format(DateLayout), nil
		}
	}
	return "", &MalformedDateError{Value: raw}
}
