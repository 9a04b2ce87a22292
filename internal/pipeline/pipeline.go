// Package pipeline orchestrates the cleaning stages over the sales table.
//
// Control flows strictly in stage order; each stage reads and mutates the
// same table in place and no stage depends on another's intermediate output
// except through the shared table state. Every stage is idempotent, so a
// failed run can simply be re-run.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"propclean/internal/audit"
	"propclean/internal/config"
	"propclean/internal/metrics"
	"propclean/internal/storage"
)

// Result reports what a stage did.
type Result struct {
	RowsRead      int
	RowsUpdated   int
	RowsDeleted   int
	RowsMalformed int
}

// Env is the shared execution environment handed to every stage.
type Env struct {
	Repo      storage.Repository
	Table     string
	Columns   config.Columns
	BatchSize int
	Audit     audit.Recorder
	Logger    *zap.Logger
}

// Stage is one step of the cleaning pipeline.
//
// Contract:
//   - Run must be idempotent: re-running against an already-cleaned table
//     is a no-op.
//   - Destructive writes must go through a single repository call so the
//     backend applies them in one transaction.
//   - Per-record data problems (e.g. an unparseable date) are counted in
//     Result.RowsMalformed, not returned as errors; errors abort the run.
type Stage interface {
	Name() string
	Run(ctx context.Context, env Env) (Result, error)
}

// Runner executes stages in order with logging, metrics and audit flushes.
type Runner struct {
	Env    Env
	Stages []Stage
}

func allStages() []Stage {
	return []Stage{
		&DateNormalizer{},
		&AddressImputer{},
		&AddressSplitter{},
		&FlagNormalizer{},
		&Deduplicator{},
		&ColumnPruner{},
	}
}

// Stage names must stay in lockstep with config.StageNames, which is what
// validation checks disabled-stage entries against.
func init() {
	all := allStages()
	if len(all) != len(config.StageNames) {
		panic("pipeline: stage list out of sync with config.StageNames")
	}
	for i, s := range all {
		if s.Name() != config.StageNames[i] {
			panic(fmt.Sprintf("pipeline: stage %d is %q, config says %q", i, s.Name(), config.StageNames[i]))
		}
	}
}

// NewRunner builds a Runner with the standard six stages, honoring the
// config's disabled list and per-stage options.
func NewRunner(env Env, cfg config.Pipeline) *Runner {
	all := allStages()

	stages := make([]Stage, 0, len(all))
	for _, s := range all {
		if cfg.StageDisabled(s.Name()) {
			continue
		}
		if sp, ok := s.(*AddressSplitter); ok {
			sp.Strict = cfg.StageOptions(s.Name()).Bool("strict_property", false)
		}
		stages = append(stages, s)
	}
	return &Runner{Env: env, Stages: stages}
}

// Run executes all stages. The first stage error stops the run; earlier
// stages' effects stay committed (each stage is individually retryable).
func (r *Runner) Run(ctx context.Context) error {
	logger := r.Env.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	env := r.Env
	env.Logger = logger
	if env.Audit == nil {
		env.Audit = audit.Nop()
	}
	if env.BatchSize <= 0 {
		env.BatchSize = config.DefaultBatchSize
	}

	for _, s := range r.Stages {
		start := time.Now()
		res, err := s.Run(ctx, env)
		dur := time.Since(start)

		status := "ok"
		if err != nil {
			status = "error"
		}
		metrics.IncCounter(metrics.StageTotal, 1, metrics.Labels{"stage": s.Name(), "status": status})
		metrics.ObserveHistogram(metrics.StageDurationSeconds, dur.Seconds(), metrics.Labels{"stage": s.Name(), "status": status})

		if err != nil {
			logger.Error("stage failed",
				zap.String("stage", s.Name()),
				zap.Duration("duration", dur.Truncate(time.Millisecond)),
				zap.Error(err))
			return fmt.Errorf("stage %s: %w", s.Name(), err)
		}

		metrics.IncCounter(metrics.RowsTotal, float64(res.RowsRead), metrics.Labels{"kind": "read"})
		metrics.IncCounter(metrics.RowsTotal, float64(res.RowsUpdated), metrics.Labels{"kind": "updated"})
		metrics.IncCounter(metrics.RowsTotal, float64(res.RowsDeleted), metrics.Labels{"kind": "deleted"})
		metrics.IncCounter(metrics.RowsTotal, float64(res.RowsMalformed), metrics.Labels{"kind": "malformed"})

		if err := env.Audit.Flush(ctx); err != nil {
			return fmt.Errorf("stage %s: %w", s.Name(), err)
		}

		logger.Info("stage complete",
			zap.String("stage", s.Name()),
			zap.Duration("duration", dur.Truncate(time.Millisecond)),
			zap.Int("rows_read", res.RowsRead),
			zap.Int("rows_updated", res.RowsUpdated),
			zap.Int("rows_deleted", res.RowsDeleted),
			zap.Int("rows_malformed", res.RowsMalformed))
	}
	return nil
}
