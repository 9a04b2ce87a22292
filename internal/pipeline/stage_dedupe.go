package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"propclean/internal/cleanse"
	"propclean/internal/config"
	"propclean/internal/storage"
)

// Deduplicator deletes repeated sale records. Two rows are duplicates when
// parcel, address, price, date and legal reference all match; the row with
// the lowest unique id in each group survives.
type Deduplicator struct{}

func (*Deduplicator) Name() string { return "deduplicator" }

type dedupeRow struct {
	uid string
	key any // raw scanned key value, passed back to DeleteByKeys
}

func (*Deduplicator) Run(ctx context.Context, env Env) (Result, error) {
	var res Result
	cols, err := env.Repo.Columns(ctx, env.Table)
	if err != nil {
		return res, err
	}

	keyCols, err := dedupeKeyColumns(cols, env.Columns)
	if err != nil {
		return res, err
	}

	rows, err := env.Repo.SelectColumns(ctx, env.Table,
		append([]string{env.Columns.UniqueID}, keyCols...))
	if err != nil {
		return res, err
	}
	res.RowsRead = len(rows)

	groups := make(map[string][]dedupeRow)
	for _, row := range rows {
		fp := cleanse.Fingerprint(row[1:]...)
		groups[fp] = append(groups[fp], dedupeRow{
			uid: storage.NormalizeKey(row[0]),
			key: row[0],
		})
	}

	var victims []any
	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		survivor := group[0]
		for _, r := range group[1:] {
			if keyLess(r.uid, survivor.uid) {
				survivor = r
			}
		}
		for _, r := range group {
			if r.uid == survivor.uid {
				continue
			}
			victims = append(victims, r.key)
			env.Audit.Record(auditOp("deduplicator", "", r.uid, nil, "",
				fmt.Sprintf("duplicate_of_%s", survivor.uid)))
		}
	}

	if len(victims) == 0 {
		return res, nil
	}
	n, err := env.Repo.DeleteByKeys(ctx, env.Table, env.Columns.UniqueID, victims)
	res.RowsDeleted = int(n)
	if err != nil {
		return res, fmt.Errorf("delete duplicates: %w", err)
	}
	env.Logger.Info("duplicates removed", zap.Int64("rows", n))
	return res, nil
}

// dedupeKeyColumns picks the identity columns present in the current schema.
// A fully cleaned table no longer has the raw date and compound address
// columns, so the cleaned equivalents stand in for them on re-runs.
func dedupeKeyColumns(cols []string, c config.Columns) ([]string, error) {
	key := []string{c.ParcelID}

	switch {
	case hasColumn(cols, c.PropertyAddress):
		key = append(key, c.PropertyAddress)
	case hasColumn(cols, c.PropertyStreet) && hasColumn(cols, c.PropertyCity):
		key = append(key, c.PropertyStreet, c.PropertyCity)
	default:
		return nil, &storage.ColumnNotFoundError{Column: c.PropertyAddress}
	}

	key = append(key, c.SalePrice)

	switch {
	case hasColumn(cols, c.SaleDate):
		key = append(key, c.SaleDate)
	case hasColumn(cols, c.SaleDateClean):
		key = append(key, c.SaleDateClean)
	default:
		return nil, &storage.ColumnNotFoundError{Column: c.SaleDate}
	}

	return append(key, c.LegalReference), nil
}
