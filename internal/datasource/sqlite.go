package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/hierslicer/pkg/model"
)

// SQLiteReader provides read access to a SQLite database holding the
// hierarchy table.
type SQLiteReader struct {
	db   *sql.DB
	path string
}

// NewSQLiteReader opens a SQLite database for reading
func NewSQLiteReader(source DataSource) (*SQLiteReader, error) {
	if source.Type != SourceTypeSQLite {
		return nil, fmt.Errorf("source is not SQLite: %s", source.Type)
	}

	// Open in read-only mode
	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(5000)", source.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Set pragmas for read performance
	pragmas := []string{
		"PRAGMA cache_size = -64000", // 64MB cache
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		// Non-fatal: a read-only connection may refuse some pragmas
		_, _ = db.Exec(pragma)
	}

	return &SQLiteReader{
		db:   db,
		path: source.Path,
	}, nil
}

// Close closes the database connection
func (r *SQLiteReader) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// FirstTable returns the name of the first user table, alphabetically.
func (r *SQLiteReader) FirstTable(ctx context.Context) (string, error) {
	var name string
	err := r.db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name LIMIT 1`,
	).Scan(&name)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("database %s has no tables", r.path)
	}
	if err != nil {
		return "", fmt.Errorf("listing tables: %w", err)
	}
	return name, nil
}

// LoadTable runs query and returns its result as a hierarchy table. The
// selected columns become the levels, in select order. An empty query reads
// every column of the first table.
func (r *SQLiteReader) LoadTable(ctx context.Context, query string) (*model.Table, error) {
	if strings.TrimSpace(query) == "" {
		name, err := r.FirstTable(ctx)
		if err != nil {
			return nil, err
		}
		query = fmt.Sprintf(`SELECT * FROM "%s"`, strings.ReplaceAll(name, `"`, `""`))
	}

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("reading column types: %w", err)
	}
	table := &model.Table{Columns: make([]model.Column, len(colTypes))}
	for i, ct := range colTypes {
		table.Columns[i] = model.Column{
			Name: ct.Name(),
			Type: model.ParseColumnType(baseTypeName(ct.DatabaseTypeName())),
		}
	}

	for rows.Next() {
		cells := make([]any, len(colTypes))
		ptrs := make([]any, len(colTypes))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		for i, c := range cells {
			cells[i] = normalizeCell(c)
		}
		table.Rows = append(table.Rows, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return table, nil
}

// baseTypeName strips a size suffix such as VARCHAR(20) -> VARCHAR.
func baseTypeName(s string) string {
	if i := strings.IndexByte(s, '('); i >= 0 {
		s = s[:i]
	}
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "VARCHAR", "CHAR", "CLOB", "TEXT", "":
		return "text"
	}
	return s
}

func normalizeCell(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case time.Time:
		return x.UTC()
	}
	return v
}
