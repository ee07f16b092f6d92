// Package app wires the configured grids, their shared selections, and the
// API server from the loaded configuration.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"duck-grid/internal/api"
	"duck-grid/internal/colmap"
	"duck-grid/internal/config"
	"duck-grid/internal/engine"
	"duck-grid/internal/facet"
	"duck-grid/internal/selection"
	"duck-grid/internal/table"
)

// Deps holds the external dependencies that main() must provide: the open
// DuckDB handle, the loaded config, and the root logger.
type Deps struct {
	Cfg    *config.Config
	DB     *sql.DB
	Logger *slog.Logger
}

// App holds the fully-wired application.
type App struct {
	Engine *engine.DuckDB
	Server *api.Server

	grids      map[string]*api.Grid
	selections map[string]*selection.Selection
}

// New builds every grid declared in the config file, connects it, and
// registers it with the API server. Grids naming the same selection
// cross-filter each other.
func New(ctx context.Context, deps Deps) (*App, error) {
	eng := engine.NewDuckDB(deps.DB, deps.Logger)
	a := &App{
		Engine:     eng,
		Server:     api.NewServer(deps.Logger),
		grids:      make(map[string]*api.Grid),
		selections: make(map[string]*selection.Selection),
	}
	a.Server.QueryTimeout = deps.Cfg.QueryTimeout

	if deps.Cfg.GridsFile == "" {
		return a, nil
	}
	grids, err := colmap.LoadFile(deps.Cfg.GridsFile)
	if err != nil {
		return nil, err
	}
	for name, gf := range grids {
		if err := a.addGrid(ctx, deps, name, gf); err != nil {
			return nil, fmt.Errorf("grid %q: %w", name, err)
		}
	}
	return a, nil
}

func (a *App) addGrid(ctx context.Context, deps Deps, name string, gf colmap.GridFile) error {
	client, err := table.NewClient(table.Options{
		Name:           name,
		Engine:         a.Engine,
		Columns:        gf.Columns,
		Source:         table.NamedSource{Name: gf.Source},
		Filter:         a.selection(gf.Filter),
		RowSelection:   a.selection(gf.RowSelection),
		RowKeyColumn:   gf.RowKey,
		Highlight:      gf.Highlight,
		SubmitOnChange: true,
		Logger:         deps.Logger,
	})
	if err != nil {
		return err
	}
	if err := client.Connect(ctx); err != nil {
		return err
	}
	reg := facet.NewRegistry(client, a.Engine, deps.Logger)
	reg.Debounce = deps.Cfg.FacetDebounce
	reg.Guard = a.Server.Locker()
	g := &api.Grid{
		Client: client,
		Facets: reg,
	}
	a.grids[name] = g
	a.Server.RegisterGrid(name, g)
	return nil
}

// selection returns the shared selection for name, creating it on first use.
// An empty name means the grid is not wired to that bus.
func (a *App) selection(name string) *selection.Selection {
	if name == "" {
		return nil
	}
	if sel, ok := a.selections[name]; ok {
		return sel
	}
	sel := selection.New(name)
	a.selections[name] = sel
	a.Server.RegisterSelection(sel)
	return sel
}

// Close disconnects every grid.
func (a *App) Close() {
	for _, g := range a.grids {
		g.Client.Disconnect()
		g.Facets.Disconnect()
	}
}
