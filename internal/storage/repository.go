package storage

import (
	"context"
	"fmt"
	"sync"
)

// Config is the minimal configuration needed to create a repository.
//
// When to use:
//   - Use Config when constructing a Repository via New.
//
// Edge cases:
//   - Kind must be non-empty and must match a registered backend kind.
//   - DSN is passed through to the backend factory; validation is backend-specific.
//
// Errors:
//   - New returns an error if Kind is empty or unsupported.
type Config struct {
	Kind string
	DSN  string
}

// Repository is a backend-agnostic interface over the single sales table the
// cleaning pipeline reads from and writes back to.
//
// IMPORTANT: This interface is intentionally minimal and focused on the
// operations the cleaning stages need: full-column scans, batched updates
// keyed by the unique row id, delete-by-keys, and column add/drop. Each
// backend implements these semantics in its own idiomatic way (Postgres
// ALTER ... IF EXISTS, SQLite PRAGMA table_info, MSSQL INFORMATION_SCHEMA).
type Repository interface {
	// Close releases any backend resources (connections, prepared statements, etc).
	Close()

	// EnsureTable creates the table if it does not exist.
	// Used by the loader and by tests; the cleaning stages assume the table pre-exists.
	EnsureTable(ctx context.Context, spec TableSpec) error

	// Columns reports the table's current column names, in schema order.
	Columns(ctx context.Context, table string) ([]string, error)

	// AddColumn adds a column to the table. Adding a column that already
	// exists is a no-op, so stages can rerun safely.
	AddColumn(ctx context.Context, table string, col ColumnSpec) error

	// DropColumns removes the named columns. A column that is already absent
	// is a no-op, not an error.
	DropColumns(ctx context.Context, table string, names []string) error

	// SelectColumns scans the given columns for every row in the table.
	// Values arrive as driver-native scan types (string, []byte, int64,
	// float64, nil); callers must not assume one representation.
	SelectColumns(ctx context.Context, table string, columns []string) ([][]any, error)

	// UpdateByKey applies per-row updates in a single transaction.
	// Each row is [key, set values...] where the set values align with
	// setColumns and key matches keyColumn. Returns rows affected.
	UpdateByKey(ctx context.Context, table, keyColumn string, setColumns []string, rows [][]any) (int64, error)

	// DeleteByKeys deletes all rows whose keyColumn value is in keys,
	// in a single transaction. Returns rows deleted.
	DeleteByKeys(ctx context.Context, table, keyColumn string, keys []any) (int64, error)

	// InsertRows bulk-inserts rows. Used by the loader and the audit trail.
	InsertRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)
}

// ---- backend factories (registry mirrors the storage kinds in config) ----

type factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a backend under a kind (e.g. "postgres", "sqlite").
//
// When to use:
//   - Call Register from an init() function in a backend package.
//   - The `kind` string becomes the lookup key used by New.
//
// Edge cases:
//   - kind must be non-empty.
//   - f must be non-nil.
//   - Registering the same kind more than once panics. This is intentional to
//     fail fast and avoid ambiguous backend selection.
//
// Panics:
//   - If kind is empty.
//   - If f is nil.
//   - If kind is already registered.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}

	factories[kind] = f
}

// New constructs a Repository using the registered backend factory.
//
// Edge cases:
//   - If cfg.Kind is empty, New returns an error.
//   - If cfg.Kind is not registered, New returns an error.
//
// Concurrency:
//   - Safe for concurrent use with Register. New takes a read lock while
//     selecting the factory.
//
// Errors:
//   - Returns an error if cfg.Kind is empty or unsupported.
//   - Returns whatever error the registered factory returns.
func New(ctx context.Context, cfg Config) (Repository, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing Kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}
