package cleanse

import "fmt"

// MalformedDateError reports a raw sale-date value that none of the accepted
// layouts could parse.
//
// Policy:
//   - This fails the single record, never the batch. The DateNormalizer stage
//     counts and logs the record and leaves its derived column null.
type MalformedDateError struct {
	Value string
}

func (e *MalformedDateError) Error() string {
	return fmt.Sprintf("cleanse: malformed sale date %q", e.Value)
}

// MalformedAddressError reports a non-null compound address with no delimiter
// where the schema expects at least one.
//
// The default split policy is permissive (a delimiterless address degrades to
// street-only), so this error is only produced when a caller opts into strict
// splitting.
type MalformedAddressError struct {
	Value string
}

func (e *MalformedAddressError) Error() string {
	return fmt.Sprintf("cleanse: address %q has no delimiter", e.Value)
}
