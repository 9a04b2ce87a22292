package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"propclean/internal/cleanse"
	"propclean/internal/storage"
)

// AddressImputer fills NULL property addresses from other rows of the same
// parcel. A parcel identifies a physical plot, so any populated address on
// the parcel is the right value for its address-less siblings.
type AddressImputer struct{}

func (*AddressImputer) Name() string { return "address_imputer" }

type addressDonor struct {
	uid  string
	addr string
}

func (*AddressImputer) Run(ctx context.Context, env Env) (Result, error) {
	var res Result
	cols, err := env.Repo.Columns(ctx, env.Table)
	if err != nil {
		return res, err
	}
	if !hasColumn(cols, env.Columns.PropertyAddress) {
		env.Logger.Info("property address column absent, nothing to impute",
			zap.String("column", env.Columns.PropertyAddress))
		return res, nil
	}

	rows, err := env.Repo.SelectColumns(ctx, env.Table,
		[]string{env.Columns.UniqueID, env.Columns.ParcelID, env.Columns.PropertyAddress})
	if err != nil {
		return res, err
	}
	res.RowsRead = len(rows)

	// One pass to elect a donor per parcel: the populated row with the
	// lowest unique id, so repeated runs always pick the same source.
	donors := make(map[string]addressDonor)
	for _, row := range rows {
		parcel := storage.NormalizeKey(row[1])
		if parcel == "" || blank(row[2]) {
			continue
		}
		uid := storage.NormalizeKey(row[0])
		addr, _ := valueString(row[2])
		if cur, ok := donors[parcel]; !ok || keyLess(uid, cur.uid) {
			donors[parcel] = addressDonor{uid: uid, addr: addr}
		}
	}

	var updates [][]any
	for _, row := range rows {
		if !blank(row[2]) {
			continue
		}
		parcel := storage.NormalizeKey(row[1])
		donor, ok := donors[parcel]
		if !ok {
			// No populated sibling; the address stays NULL.
			continue
		}
		uid := storage.NormalizeKey(row[0])
		updates = append(updates, []any{row[0], donor.addr})
		env.Audit.Record(auditOp("address_imputer", env.Columns.PropertyAddress, uid,
			oldValue(row[2]), donor.addr, fmt.Sprintf("imputed_from_row_%s", donor.uid)))
	}

	n, err := applyUpdates(ctx, env, []string{env.Columns.PropertyAddress}, updates)
	res.RowsUpdated = int(n)
	if err != nil {
		return res, fmt.Errorf("impute %s: %w", env.Columns.PropertyAddress, err)
	}
	return res, nil
}

// AddressSplitter decomposes the compound property and owner address columns
// into per-part columns. The compound columns survive until ColumnPruner.
//
// Strict makes a delimiterless property address a malformed record (counted
// and left unsplit) instead of the default street-only reading. Set via the
// "strict_property" stage option.
type AddressSplitter struct {
	Strict bool
}

func (*AddressSplitter) Name() string { return "address_splitter" }

func (s *AddressSplitter) Run(ctx context.Context, env Env) (Result, error) {
	var res Result
	cols, err := env.Repo.Columns(ctx, env.Table)
	if err != nil {
		return res, err
	}

	splitProperty := hasColumn(cols, env.Columns.PropertyAddress)
	splitOwner := hasColumn(cols, env.Columns.OwnerAddress)
	if !splitProperty && !splitOwner {
		env.Logger.Info("compound address columns absent, nothing to split")
		return res, nil
	}

	// Select list layout: uid, then [source, parts...] per enabled side.
	selectCols := []string{env.Columns.UniqueID}
	var setCols []string
	if splitProperty {
		selectCols = append(selectCols, env.Columns.PropertyAddress,
			env.Columns.PropertyStreet, env.Columns.PropertyCity)
		setCols = append(setCols, env.Columns.PropertyStreet, env.Columns.PropertyCity)
	}
	if splitOwner {
		selectCols = append(selectCols, env.Columns.OwnerAddress,
			env.Columns.OwnerStreet, env.Columns.OwnerCity, env.Columns.OwnerState)
		setCols = append(setCols, env.Columns.OwnerStreet, env.Columns.OwnerCity, env.Columns.OwnerState)
	}
	for _, name := range setCols {
		if err := env.Repo.AddColumn(ctx, env.Table, storage.ColumnSpec{Name: name, Type: "text"}); err != nil {
			return res, err
		}
	}

	rows, err := env.Repo.SelectColumns(ctx, env.Table, selectCols)
	if err != nil {
		return res, err
	}
	res.RowsRead = len(rows)

	var updates [][]any
	for _, row := range rows {
		uid := storage.NormalizeKey(row[0])
		var desired []any
		changed := false
		i := 1
		record := func(column string, current any, want any) {
			desired = append(desired, want)
			ws, wNull := valueString(want)
			cs, cNull := valueString(current)
			if wNull == cNull && ws == cs {
				return
			}
			changed = true
			newStr := ""
			if !wNull {
				newStr = ws
			}
			env.Audit.Record(auditOp("address_splitter", column, uid,
				oldValue(current), newStr, "split_from_compound"))
		}

		if splitProperty {
			malformed := false
			if s.Strict && !blank(row[i]) {
				src, _ := valueString(row[i])
				if _, err := cleanse.SplitPropertyAddressStrict(src); err != nil {
					malformed = true
					res.RowsMalformed++
					env.Logger.Warn("address without delimiter left unsplit",
						zap.String("row_id", uid),
						zap.String("value", src))
				}
			}
			if malformed {
				// Keep current derived values so nothing changes.
				record(env.Columns.PropertyStreet, row[i+1], row[i+1])
				record(env.Columns.PropertyCity, row[i+2], row[i+2])
			} else {
				parts := splitOrEmpty(row[i], func(addr string) (string, string, string) {
					p := cleanse.SplitPropertyAddress(addr)
					return p.Street, p.City, ""
				})
				record(env.Columns.PropertyStreet, row[i+1], parts[0])
				record(env.Columns.PropertyCity, row[i+2], parts[1])
			}
			i += 3
		}
		if splitOwner {
			parts := splitOrEmpty(row[i], func(addr string) (string, string, string) {
				p := cleanse.SplitOwnerAddress(addr)
				return p.Street, p.City, p.State
			})
			record(env.Columns.OwnerStreet, row[i+1], parts[0])
			record(env.Columns.OwnerCity, row[i+2], parts[1])
			record(env.Columns.OwnerState, row[i+3], parts[2])
		}

		if changed {
			updates = append(updates, append([]any{row[0]}, desired...))
		}
	}

	n, err := applyUpdates(ctx, env, setCols, updates)
	res.RowsUpdated = int(n)
	if err != nil {
		return res, fmt.Errorf("split addresses: %w", err)
	}
	return res, nil
}

// splitOrEmpty applies split to a non-blank source cell and maps each empty
// part to NULL. A NULL or blank source yields three NULLs.
func splitOrEmpty(source any, split func(string) (string, string, string)) [3]any {
	var out [3]any
	if blank(source) {
		return out
	}
	s, _ := valueString(source)
	a, b, c := split(s)
	for i, part := range []string{a, b, c} {
		if part != "" {
			out[i] = part
		}
	}
	return out
}
