// Package loader seeds the sales table from a CSV export. It exists for
// first-time setup and for tests; the cleaning pipeline itself never loads
// data.
package loader

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"propclean/internal/config"
	"propclean/internal/storage"
)

// Result reports what a load did.
type Result struct {
	RowsInserted int64
	BadLines     int
	Skipped      bool
}

// rawColumn pairs a config column accessor with its storage type.
type rawColumn struct {
	name string
	typ  string
}

// rawColumns is the schema of an unclean sales table, in load order.
func rawColumns(c config.Columns) []rawColumn {
	return []rawColumn{
		{c.UniqueID, "integer"},
		{c.ParcelID, "text"},
		{c.SaleDate, "text"},
		{c.SalePrice, "numeric"},
		{c.PropertyAddress, "text"},
		{c.OwnerAddress, "text"},
		{c.SoldAsVacant, "text"},
		{c.LegalReference, "text"},
		{c.TaxDistrict, "text"},
	}
}

// Load creates the sales table if needed and bulk-inserts the CSV at
// cfg.Loader.Path. A table that already holds rows is left alone unless the
// "force" loader option is set.
//
// Loader options (cfg.Loader.Options):
//   - has_header (bool, default true)
//   - comma (string, default ",")
//   - trim_space (bool, default true)
//   - lazy_quotes (bool, default false)
//   - header_map (map of source header -> column name)
//   - encoding ("", "utf-8", "windows-1252", "latin-1")
//   - force (bool, default false)
func Load(ctx context.Context, repo storage.Repository, cfg config.Pipeline, logger *zap.Logger) (Result, error) {
	var res Result
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Loader == nil || cfg.Loader.Path == "" {
		return res, fmt.Errorf("loader: no loader.path configured")
	}
	opt := cfg.Loader.Options

	cols := rawColumns(cfg.Table.Columns)
	spec := storage.TableSpec{Name: cfg.Table.Name}
	names := make([]string, len(cols))
	for i, c := range cols {
		spec.Columns = append(spec.Columns, storage.ColumnSpec{Name: c.name, Type: c.typ})
		names[i] = c.name
	}
	if err := repo.EnsureTable(ctx, spec); err != nil {
		return res, fmt.Errorf("loader: ensure table: %w", err)
	}

	if !opt.Bool("force", false) {
		existing, err := repo.SelectColumns(ctx, cfg.Table.Name, []string{cfg.Table.Columns.UniqueID})
		if err != nil {
			return res, fmt.Errorf("loader: probe table: %w", err)
		}
		if len(existing) > 0 {
			logger.Info("table already populated, skipping load",
				zap.String("table", cfg.Table.Name),
				zap.Int("rows", len(existing)))
			res.Skipped = true
			return res, nil
		}
	}

	f, err := os.Open(cfg.Loader.Path)
	if err != nil {
		return res, fmt.Errorf("loader: %w", err)
	}
	defer f.Close()

	reader, err := decodeReader(f, opt.String("encoding", ""))
	if err != nil {
		return res, err
	}

	cr := csv.NewReader(reader)
	cr.Comma = opt.Rune("comma", ',')
	cr.ReuseRecord = true
	cr.LazyQuotes = opt.Bool("lazy_quotes", false)
	cr.FieldsPerRecord = -1

	trim := opt.Bool("trim_space", true)
	hm := opt.StringMap("header_map")

	// colIx maps each target column to its source field index, -1 when the
	// source file lacks it.
	colIx := make([]int, len(names))
	for i := range colIx {
		colIx[i] = -1
	}

	line := 0
	readRec := func() ([]string, error) {
		line++
		return cr.Read()
	}

	if opt.Bool("has_header", true) {
		hdr, err := readRec()
		if err != nil {
			return res, fmt.Errorf("loader: read header: %w", err)
		}
		srcToIdx := make(map[string]int, len(hdr))
		for i, h := range hdr {
			h = strings.TrimSpace(h)
			if i == 0 {
				h = strings.TrimPrefix(h, "\uFEFF")
			}
			if mapped, ok := hm[h]; ok {
				h = mapped
			} else {
				h = strings.ReplaceAll(strings.ToLower(h), " ", "_")
			}
			srcToIdx[h] = i
		}
		for t, target := range names {
			if si, ok := srcToIdx[target]; ok {
				colIx[t] = si
			}
		}
	} else {
		for i := range names {
			colIx[i] = i
		}
	}

	batchSize := cfg.Runtime.BatchSize
	if batchSize <= 0 {
		batchSize = config.DefaultBatchSize
	}

	batch := make([][]any, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := repo.InsertRows(ctx, cfg.Table.Name, names, batch)
		res.RowsInserted += n
		batch = batch[:0]
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		default:
		}

		rec, err := readRec()
		if err == io.EOF {
			break
		}
		if err != nil {
			res.BadLines++
			logger.Warn("bad csv line skipped", zap.Int("line", line), zap.Error(err))
			continue
		}

		row := make([]any, len(cols))
		for t, c := range cols {
			si := colIx[t]
			if si < 0 || si >= len(rec) {
				continue
			}
			v := rec[si]
			if trim {
				v = strings.TrimSpace(v)
			}
			if v == "" {
				continue
			}
			row[t] = coerce(v, c.typ)
		}
		batch = append(batch, row)

		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return res, fmt.Errorf("loader: insert: %w", err)
			}
		}
	}
	if err := flush(); err != nil {
		return res, fmt.Errorf("loader: insert: %w", err)
	}

	logger.Info("load complete",
		zap.String("table", cfg.Table.Name),
		zap.Int64("rows", res.RowsInserted),
		zap.Int("bad_lines", res.BadLines))
	return res, nil
}

// decodeReader wraps r with a charset decoder when the source file is not
// UTF-8. Spreadsheet exports of the reference dataset are Windows-1252.
func decodeReader(r io.Reader, encoding string) (io.Reader, error) {
	switch strings.ToLower(encoding) {
	case "", "utf-8", "utf8":
		return r, nil
	case "windows-1252", "cp1252":
		return transform.NewReader(r, charmap.Windows1252.NewDecoder()), nil
	case "latin-1", "iso-8859-1":
		return transform.NewReader(r, charmap.ISO8859_1.NewDecoder()), nil
	default:
		return nil, fmt.Errorf("loader: unsupported encoding %q", encoding)
	}
}

// coerce converts a CSV field to a typed value for numeric columns so every
// backend stores real numbers, not digit strings.
func coerce(v, typ string) any {
	switch typ {
	case "integer":
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	case "numeric":
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return v
}
