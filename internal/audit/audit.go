// Package audit records what the cleaning pipeline changed: one row per
// rewritten value or deleted record, tagged with a run id so multiple runs
// over the same table stay distinguishable.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"propclean/internal/storage"
)

// Operation is a single recorded change.
type Operation struct {
	Stage  string
	Column string
	RowID  string
	Old    *string // nil when the prior value was NULL
	New    string
	Reason string // e.g. "imputed_from_parcel_group", "duplicate_of_23416"
}

// Recorder accepts operations during a stage and persists them on Flush.
//
// Implementations are not safe for concurrent use; the pipeline runs stages
// sequentially and flushes between them.
type Recorder interface {
	Record(op Operation)
	Flush(ctx context.Context) error
}

// Nop returns a Recorder that drops everything. Used when auditing is
// disabled so stages never nil-check.
func Nop() Recorder { return nopRecorder{} }

type nopRecorder struct{}

func (nopRecorder) Record(Operation)            {}
func (nopRecorder) Flush(context.Context) error { return nil }

var auditColumns = []string{
	"run_id", "stage", "column_name", "row_identifier",
	"old_value", "new_value", "reason", "recorded_at",
}

type recorder struct {
	repo   storage.Repository
	table  string
	runID  string
	logger *zap.Logger
	now    func() time.Time

	buf []Operation
}

// New creates a persisting Recorder and ensures the audit table exists.
// Each Recorder carries a fresh run id.
func New(ctx context.Context, repo storage.Repository, table string, logger *zap.Logger) (Recorder, error) {
	spec := storage.TableSpec{
		Name: table,
		Columns: []storage.ColumnSpec{
			{Name: "run_id", Type: "text"},
			{Name: "stage", Type: "text"},
			{Name: "column_name", Type: "text"},
			{Name: "row_identifier", Type: "text"},
			{Name: "old_value", Type: "text"},
			{Name: "new_value", Type: "text"},
			{Name: "reason", Type: "text"},
			{Name: "recorded_at", Type: "text"},
		},
	}
	if err := repo.EnsureTable(ctx, spec); err != nil {
		return nil, fmt.Errorf("audit: ensure table %s: %w", table, err)
	}

	return &recorder{
		repo:   repo,
		table:  table,
		runID:  uuid.New().String(),
		logger: logger,
		now:    time.Now,
	}, nil
}

func (r *recorder) Record(op Operation) {
	r.buf = append(r.buf, op)
}

// Flush inserts all buffered operations and clears the buffer. Called by the
// pipeline after each stage so a stage failure loses at most that stage's
// audit rows, never earlier ones.
func (r *recorder) Flush(ctx context.Context) error {
	if len(r.buf) == 0 {
		return nil
	}

	at := r.now().UTC().Format(time.RFC3339)
	rows := make([][]any, 0, len(r.buf))
	for _, op := range r.buf {
		var old any
		if op.Old != nil {
			old = *op.Old
		}
		rows = append(rows, []any{
			r.runID, op.Stage, op.Column, op.RowID,
			old, op.New, op.Reason, at,
		})
	}

	n, err := r.repo.InsertRows(ctx, r.table, auditColumns, rows)
	if err != nil {
		return fmt.Errorf("audit: insert operations: %w", err)
	}

	r.logger.Info("recorded cleaning operations",
		zap.String("run_id", r.runID),
		zap.Int64("count", n))

	r.buf = r.buf[:0]
	return nil
}
