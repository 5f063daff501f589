package datasource

import (
	"context"
	"fmt"

	"github.com/vanderheijden86/hierslicer/pkg/debug"
	"github.com/vanderheijden86/hierslicer/pkg/metrics"
	"github.com/vanderheijden86/hierslicer/pkg/model"
)

// Load detects the type of the file at path and loads its table. query is
// only used for SQLite sources.
func Load(ctx context.Context, path, query string, columns []model.Column) (*model.Table, DataSource, error) {
	source, err := DetectSource(path)
	if err != nil {
		return nil, DataSource{}, err
	}
	source.Query = query
	source.Columns = columns

	table, err := LoadFromSource(ctx, source)
	if err != nil {
		return nil, source, err
	}
	return table, source, nil
}

// LoadFromSource loads a table from a specific DataSource, dispatching to
// the appropriate reader based on source type. Configured columns are
// overlaid on the detected ones.
func LoadFromSource(ctx context.Context, source DataSource) (*model.Table, error) {
	defer metrics.Timer(metrics.TableLoad)()

	var (
		table *model.Table
		err   error
	)
	switch source.Type {
	case SourceTypeSQLite:
		reader, rerr := NewSQLiteReader(source)
		if rerr != nil {
			return nil, fmt.Errorf("failed to open SQLite source %s: %w", source.Path, rerr)
		}
		defer reader.Close()
		table, err = reader.LoadTable(ctx, source.Query)

	case SourceTypeCSV:
		table, err = LoadCSV(source.Path)

	case SourceTypeJSONL:
		table, err = LoadJSONL(source.Path, ParseOptions{})

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, source.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", source.Path, err)
	}

	table.Columns = applyColumns(table.Columns, source.Columns)
	debug.Event("datasource: loaded", "path", source.Path, "columns", len(table.Columns), "rows", len(table.Rows))
	return table, nil
}
