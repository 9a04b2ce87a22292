package cleanse

import "strings"

// PropertyAddressParts is the decomposition of a "STREET, CITY" compound.
type PropertyAddressParts struct {
	Street string
	City   string
}

// OwnerAddressParts is the decomposition of a "STREET, CITY, STATE" compound.
type OwnerAddressParts struct {
	Street string
	City   string
	State  string
}

// SplitPropertyAddress decomposes a "STREET, CITY" compound at the first
// comma. The street part is everything before it, the city part everything
// after; both are trimmed at the delimiter only, so the parts are an exact
// substring partition of the source.
//
// Edge cases:
//   - A delimiterless address is a benign degenerate case: street = whole
//     string, city = "".
//   - Empty input yields empty parts. Callers decide whether blank means null.
func SplitPropertyAddress(addr string) PropertyAddressParts {
	street, city, found := strings.Cut(addr, ",")
	if !found {
		return PropertyAddressParts{Street: strings.TrimSpace(addr)}
	}
	return PropertyAddressParts{
		Street: strings.TrimSpace(street),
		City:   strings.TrimSpace(city),
	}
}

// SplitOwnerAddress decomposes a "STREET, CITY, STATE" compound by taking
// segments from the right: state is the last comma-delimited segment, city
// the second-to-last, and street is everything before that, rejoined if it
// itself contained commas.
//
// Edge cases:
//   - Two segments degrade to street + city, state = "".
//   - One segment degrades to street only.
func SplitOwnerAddress(addr string) OwnerAddressParts {
	if strings.TrimSpace(addr) == "" {
		return OwnerAddressParts{}
	}

	rest, state, found := cutLast(addr)
	if !found {
		return OwnerAddressParts{Street: strings.TrimSpace(addr)}
	}

	street, city, found := cutLast(rest)
	if !found {
		return OwnerAddressParts{
			Street: strings.TrimSpace(rest),
			City:   strings.TrimSpace(state),
		}
	}

	return OwnerAddressParts{
		Street: strings.TrimSpace(street),
		City:   strings.TrimSpace(city),
		State:  strings.TrimSpace(state),
	}
}

// SplitPropertyAddressStrict is SplitPropertyAddress with the permissive
// degenerate case turned into an error: a non-blank address without a comma
// returns a *MalformedAddressError instead of a street-only result.
func SplitPropertyAddressStrict(addr string) (PropertyAddressParts, error) {
	if strings.TrimSpace(addr) != "" && !strings.Contains(addr, ",") {
		return PropertyAddressParts{}, &MalformedAddressError{Value: addr}
	}
	return SplitPropertyAddress(addr), nil
}

// cutLast splits s around the last comma.
func cutLast(s string) (before, after string, found bool) {
	i := strings.LastIndex(s, ",")
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+1:], true
}
