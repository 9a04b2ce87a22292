package cleanse

import (
	"testing"
	"time"
)

func TestFingerprint_Deterministic(t *testing.T) {
	t.Parallel()

	a := Fingerprint("081 07 0 128.00", "1802 STEWART PL, NASHVILLE", int64(132000), "April 9, 2013", "20130412-0036474")
	b := Fingerprint("081 07 0 128.00", "1802 STEWART PL, NASHVILLE", int64(132000), "April 9, 2013", "20130412-0036474")
	if a != b {
		t.Fatalf("same inputs produced different fingerprints: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("fingerprint length=%d want 64", len(a))
	}
}

func TestFingerprint_FieldSensitivity(t *testing.T) {
	t.Parallel()

	base := Fingerprint("p1", "addr", int64(100), "2013-04-09", "ref")

	if got := Fingerprint("p1", "addr", int64(101), "2013-04-09", "ref"); got == base {
		t.Fatalf("price change did not change fingerprint")
	}
	if got := Fingerprint("p1", "addr", int64(100), "2013-04-10", "ref"); got == base {
		t.Fatalf("date change did not change fingerprint")
	}
}

func TestFingerprint_NilVsEmpty(t *testing.T) {
	t.Parallel()

	withNil := Fingerprint("p1", nil, int64(100), "d", "r")
	withEmpty := Fingerprint("p1", "", int64(100), "d", "r")
	if withNil == withEmpty {
		t.Fatalf("nil and empty string must fingerprint differently")
	}
}

func TestFingerprint_ScanTypeEquivalence(t *testing.T) {
	t.Parallel()

	// Drivers disagree about TEXT scanning ([]byte vs string) and about edge
	// whitespace; the canonical form must not.
	asString := Fingerprint("p1", "addr ", int64(100))
	asBytes := Fingerprint("p1", []byte(" addr"), int64(100))
	if asString != asBytes {
		t.Fatalf("string/[]byte values must canonicalize identically")
	}
}

func TestFingerprint_TimeUTC(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("X", 3600)
	utc := Fingerprint(time.Date(2013, 4, 9, 13, 0, 0, 0, time.UTC))
	zoned := Fingerprint(time.Date(2013, 4, 9, 14, 0, 0, 0, loc))
	if utc != zoned {
		t.Fatalf("equal instants in different zones must fingerprint identically")
	}
}
