package config

import (
	"unicode/utf8"

	"github.com/spf13/cast"
)

// Options is a loosely typed option bag, decoded straight from JSON.
// Accessors coerce values to the requested type and fall back to the given
// default when the key is absent or the value cannot be coerced.
//
// JSON numbers arrive as float64 and booleans sometimes arrive as strings in
// hand-written configs; cast handles both without per-call ceremony.
type Options map[string]any

// Any returns the raw value, or nil when absent.
func (o Options) Any(key string) any {
	if o == nil {
		return nil
	}
	return o[key]
}

func (o Options) Bool(key string, def bool) bool {
	v, ok := o[key]
	if !ok {
		return def
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return def
	}
	return b
}

func (o Options) Int(key string, def int) int {
	v, ok := o[key]
	if !ok {
		return def
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return def
	}
	return n
}

func (o Options) String(key string, def string) string {
	v, ok := o[key]
	if !ok {
		return def
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return def
	}
	return s
}

// Rune returns the first rune of the value's string form. Useful for CSV
// separators written as one-character strings in JSON.
func (o Options) Rune(key string, def rune) rune {
	s := o.String(key, "")
	if s == "" {
		return def
	}
	r, _ := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return def
	}
	return r
}

// StringMap returns a map[string]string, or an empty map when absent or not
// coercible.
func (o Options) StringMap(key string) map[string]string {
	v, ok := o[key]
	if !ok {
		return map[string]string{}
	}
	m, err := cast.ToStringMapStringE(v)
	if err != nil {
		return map[string]string{}
	}
	return m
}
