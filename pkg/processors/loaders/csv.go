package loaders

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"

	"go.uber.org/zap"

	"github.com/wehubfusion/textprep/pkg/config"
	"github.com/wehubfusion/textprep/pkg/item"
	"github.com/wehubfusion/textprep/pkg/step"
)

// CSV reads items from a delimited file with a header row.
type CSV struct {
	base
	path      string
	columns   config.Columns
	delimiter rune
}

// NewCSV creates the csv loader.
func NewCSV(cfg config.LoaderConfig, deps step.Deps) (step.Loader, error) {
	if cfg.FilePath == "" {
		return nil, step.NewConstructionError(cfg.Type, "file_path is required")
	}
	if cfg.Columns == nil || cfg.Columns.ID == "" || cfg.Columns.Data == "" {
		return nil, step.NewConstructionError(cfg.Type, "columns must name the id and data columns")
	}
	delimiter := ','
	if cfg.Delimiter != "" {
		delimiter = []rune(cfg.Delimiter)[0]
	}
	return &CSV{
		base:      newBase(cfg, deps),
		path:      cfg.FilePath,
		columns:   *cfg.Columns,
		delimiter: delimiter,
	}, nil
}

// Items implements step.Loader. When source is an io.Reader it is read
// instead of the configured file.
func (l *CSV) Items(ctx context.Context, source interface{}) iter.Seq2[*item.Item, error] {
	return func(yield func(*item.Item, error) bool) {
		r, ok := source.(io.Reader)
		if !ok {
			f, err := os.Open(l.path)
			if err != nil {
				l.Logger().Error("error opening csv file", zap.String("path", l.path), zap.Error(err))
				yield(nil, l.loaderError(err))
				return
			}
			defer f.Close()
			r = f
			l.Logger().Info("loading items from csv file", zap.String("path", l.path))
		}

		reader := csv.NewReader(r)
		reader.Comma = l.delimiter
		reader.FieldsPerRecord = -1
		reader.ReuseRecord = true

		header, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = errors.New("file has no header row")
			}
			yield(nil, l.loaderError(err))
			return
		}
		index, err := l.columnIndex(header)
		if err != nil {
			yield(nil, l.loaderError(err))
			return
		}

		for row := 1; ; row++ {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			record, err := reader.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				if !yield(nil, fmt.Errorf("%w: csv row %d: %v", item.ErrMalformedItem, row, err)) {
					return
				}
				continue
			}
			if err != nil {
				yield(nil, l.loaderError(err))
				return
			}

			it, err := l.build(l.rowRecord(record, index))
			if err != nil {
				err = fmt.Errorf("csv row %d: %w", row, err)
			}
			if !yield(it, err) {
				return
			}
		}
	}
}

// columnIndex maps every configured column onto its header position.
func (l *CSV) columnIndex(header []string) (map[string]int, error) {
	positions := make(map[string]int, len(header))
	for i, name := range header {
		if _, dup := positions[name]; !dup {
			positions[name] = i
		}
	}

	wanted := append([]string{l.columns.ID, l.columns.Data}, l.columns.AdditionalColumns...)
	index := make(map[string]int, len(wanted))
	for _, name := range wanted {
		pos, ok := positions[name]
		if !ok {
			return nil, fmt.Errorf("column %q not found in header", name)
		}
		index[name] = pos
	}
	return index, nil
}

// rowRecord shapes a csv row into a record for item.Build. Cells missing
// from a short row are left out, so a row without its data cell is
// rejected as malformed.
func (l *CSV) rowRecord(row []string, index map[string]int) map[string]interface{} {
	record := make(map[string]interface{}, len(index))
	cell := func(name string) (string, bool) {
		pos := index[name]
		if pos >= len(row) {
			return "", false
		}
		return row[pos], true
	}

	if v, ok := cell(l.columns.ID); ok {
		record["id"] = v
	}
	if v, ok := cell(l.columns.Data); ok {
		record["data"] = v
	}
	for _, name := range l.columns.AdditionalColumns {
		if v, ok := cell(name); ok {
			record[name] = v
		}
	}
	return record
}

var _ step.Loader = (*CSV)(nil)
