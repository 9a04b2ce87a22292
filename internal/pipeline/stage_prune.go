package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ColumnPruner drops the raw columns once their cleaned replacements exist:
// the free-form sale date, the two compound address columns, and the unused
// tax district column.
type ColumnPruner struct{}

func (*ColumnPruner) Name() string { return "column_pruner" }

func (*ColumnPruner) Run(ctx context.Context, env Env) (Result, error) {
	var res Result
	cols, err := env.Repo.Columns(ctx, env.Table)
	if err != nil {
		return res, err
	}

	// Refuse to drop a raw column whose replacements are missing; that
	// would destroy data an earlier (disabled or failed) stage never
	// carried over.
	guards := []struct {
		raw      string
		requires []string
	}{
		{env.Columns.SaleDate, []string{env.Columns.SaleDateClean}},
		{env.Columns.PropertyAddress, []string{env.Columns.PropertyStreet, env.Columns.PropertyCity}},
		{env.Columns.OwnerAddress, []string{env.Columns.OwnerStreet, env.Columns.OwnerCity, env.Columns.OwnerState}},
	}

	var drop []string
	for _, g := range guards {
		if !hasColumn(cols, g.raw) {
			continue
		}
		for _, req := range g.requires {
			if !hasColumn(cols, req) {
				return res, fmt.Errorf("refusing to drop %s: replacement column %s missing", g.raw, req)
			}
		}
		drop = append(drop, g.raw)
	}
	if hasColumn(cols, env.Columns.TaxDistrict) {
		drop = append(drop, env.Columns.TaxDistrict)
	}

	if len(drop) == 0 {
		return res, nil
	}
	if err := env.Repo.DropColumns(ctx, env.Table, drop); err != nil {
		return res, fmt.Errorf("drop columns: %w", err)
	}
	for _, name := range drop {
		env.Audit.Record(auditOp("column_pruner", name, "", nil, "", "column_pruned"))
	}
	env.Logger.Info("raw columns dropped", zap.Strings("columns", drop))
	return res, nil
}
