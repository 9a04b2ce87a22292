package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"propclean/internal/cleanse"
	"propclean/internal/storage"
)

// FlagNormalizer rewrites the mixed "Y"/"N"/"Yes"/"No" vacancy flag to the
// spelled-out form in place.
type FlagNormalizer struct{}

func (*FlagNormalizer) Name() string { return "flag_normalizer" }

func (*FlagNormalizer) Run(ctx context.Context, env Env) (Result, error) {
	var res Result
	cols, err := env.Repo.Columns(ctx, env.Table)
	if err != nil {
		return res, err
	}
	if !hasColumn(cols, env.Columns.SoldAsVacant) {
		env.Logger.Info("vacancy flag column absent, nothing to normalize",
			zap.String("column", env.Columns.SoldAsVacant))
		return res, nil
	}

	rows, err := env.Repo.SelectColumns(ctx, env.Table,
		[]string{env.Columns.UniqueID, env.Columns.SoldAsVacant})
	if err != nil {
		return res, err
	}
	res.RowsRead = len(rows)

	var updates [][]any
	for _, row := range rows {
		cur, null := valueString(row[1])
		if null {
			continue
		}
		normalized := cleanse.NormalizeVacantFlag(cur)
		if normalized == cur {
			continue
		}
		uid := storage.NormalizeKey(row[0])
		updates = append(updates, []any{row[0], normalized})
		env.Audit.Record(auditOp("flag_normalizer", env.Columns.SoldAsVacant, uid,
			oldValue(row[1]), normalized, "flag_expanded"))
	}

	n, err := applyUpdates(ctx, env, []string{env.Columns.SoldAsVacant}, updates)
	res.RowsUpdated = int(n)
	if err != nil {
		return res, fmt.Errorf("normalize %s: %w", env.Columns.SoldAsVacant, err)
	}
	return res, nil
}
