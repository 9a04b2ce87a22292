package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"propclean/internal/cleanse"
	"propclean/internal/storage"
)

// DateNormalizer parses the free-form sale date column into a dedicated
// ISO-format column. The raw column is left untouched; ColumnPruner drops it
// at the end of the pipeline.
type DateNormalizer struct{}

func (*DateNormalizer) Name() string { return "date_normalizer" }

func (*DateNormalizer) Run(ctx context.Context, env Env) (Result, error) {
	var res Result
	cols, err := env.Repo.Columns(ctx, env.Table)
	if err != nil {
		return res, err
	}

	if !hasColumn(cols, env.Columns.SaleDate) {
		// Raw column already pruned by a previous complete run.
		if hasColumn(cols, env.Columns.SaleDateClean) {
			env.Logger.Info("raw sale date column absent, nothing to normalize",
				zap.String("column", env.Columns.SaleDate))
			return res, nil
		}
		return res, &storage.ColumnNotFoundError{Table: env.Table, Column: env.Columns.SaleDate}
	}

	if err := env.Repo.AddColumn(ctx, env.Table, storage.ColumnSpec{
		Name: env.Columns.SaleDateClean,
		Type: "date",
	}); err != nil {
		return res, err
	}

	rows, err := env.Repo.SelectColumns(ctx, env.Table,
		[]string{env.Columns.UniqueID, env.Columns.SaleDate, env.Columns.SaleDateClean})
	if err != nil {
		return res, err
	}
	res.RowsRead = len(rows)

	var updates [][]any
	for _, row := range rows {
		uid := storage.NormalizeKey(row[0])
		raw, rawNull := valueString(row[1])
		if rawNull || blank(row[1]) {
			continue
		}

		parsed, err := cleanse.ParseSaleDate(raw)
		if err != nil {
			var malformed *cleanse.MalformedDateError
			if !errors.As(err, &malformed) {
				return res, err
			}
			res.RowsMalformed++
			env.Logger.Warn("unparseable sale date left NULL",
				zap.String("row_id", uid),
				zap.String("value", malformed.Value))
			continue
		}

		// Skip rows whose clean value already canonicalizes to the same
		// date; this is what makes re-runs no-ops.
		if cur, curNull := valueString(row[2]); !curNull {
			if canon, err := cleanse.ParseSaleDate(cur); err == nil && canon == parsed {
				continue
			}
		}

		updates = append(updates, []any{row[0], parsed})
		env.Audit.Record(auditOp("date_normalizer", env.Columns.SaleDateClean, uid, oldValue(row[2]), parsed, "normalized_from_raw"))
	}

	n, err := applyUpdates(ctx, env, []string{env.Columns.SaleDateClean}, updates)
	res.RowsUpdated = int(n)
	if err != nil {
		return res, fmt.Errorf("update %s: %w", env.Columns.SaleDateClean, err)
	}
	return res, nil
}
