package storage

import (
	"context"
	"strings"
	"testing"
)

func TestNew_EmptyKindErrors(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{})
	if err == nil || !strings.Contains(err.Error(), "missing Kind") {
		t.Fatalf("expected missing Kind error, got %v", err)
	}
}

func TestNew_UnknownKindErrors(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{Kind: "no-such-backend"})
	if err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Fatalf("expected unsupported kind error, got %v", err)
	}
}

func TestRegister_GuardsAgainstMisuse(t *testing.T) {
	// Not parallel: mutates the package-level registry.

	mustPanic := func(name string, fn func()) {
		t.Helper()
		defer func() {
			if recover() == nil {
				t.Fatalf("%s: expected panic", name)
			}
		}()
		fn()
	}

	mustPanic("empty kind", func() {
		Register("", func(ctx context.Context, cfg Config) (Repository, error) { return nil, nil })
	})
	mustPanic("nil factory", func() {
		Register("test-kind-nilf", nil)
	})

	Register("test-kind-dup", func(ctx context.Context, cfg Config) (Repository, error) { return nil, nil })
	mustPanic("duplicate kind", func() {
		Register("test-kind-dup", func(ctx context.Context, cfg Config) (Repository, error) { return nil, nil })
	})
}

func TestNormalizeKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   any
		want string
	}{
		{name: "nil", in: nil, want: ""},
		{name: "string_trimmed", in: "  081 07 0 128.00 ", want: "081 07 0 128.00"},
		{name: "bytes", in: []byte(" 23416"), want: "23416"},
		{name: "int64", in: int64(23416), want: "23416"},
		{name: "int", in: 7, want: "7"},
		{name: "float_fallback", in: 1.5, want: "1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeKey(tt.in); got != tt.want {
				t.Fatalf("NormalizeKey(%v)=%q want %q", tt.in, got, tt.want)
			}
		})
	}
}
