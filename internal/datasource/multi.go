package datasource

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/hierslicer/pkg/debug"
	"github.com/vanderheijden86/hierslicer/pkg/model"
)

// maxParallelLoads caps concurrent loads (file descriptors, SQLite handles).
const maxParallelLoads = 8

// Request names a source to load.
type Request struct {
	Name    string
	Path    string
	Query   string
	Columns []model.Column
}

// LoadResult is the outcome of loading one Request.
type LoadResult struct {
	Name   string
	Source DataSource
	Table  *model.Table
	Err    error
}

// LoadAll loads every request concurrently. A failing source does not stop the
// others; its error is kept in its result. Results keep the request order.
func LoadAll(ctx context.Context, reqs []Request) ([]LoadResult, error) {
	results := make([]LoadResult, len(reqs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelLoads)

	for i, req := range reqs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = LoadResult{Name: req.Name, Err: err}
				return nil
			}
			table, source, err := Load(ctx, req.Path, req.Query, req.Columns)
			results[i] = LoadResult{Name: req.Name, Source: source, Table: table, Err: err}
			if err != nil {
				debug.Log("datasource: %s failed: %v", req.Name, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
