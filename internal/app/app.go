// Package app provides application-level wiring for the compile service.
package app

import (
	"database/sql"
	"log/slog"
	"time"

	"planql/internal/catalog"
	"planql/internal/compiler"
	"planql/internal/config"
	"planql/internal/metricdef"
	"planql/internal/repository"
	"planql/internal/service"
)

// Deps holds the external dependencies that main() must provide: config,
// the history database handle, and the logger.
type Deps struct {
	Cfg       *config.Config
	HistoryDB *sql.DB // nil disables history recording
	Logger    *slog.Logger
	Now       func() time.Time // nil means time.Now
}

// App holds the fully-wired application.
type App struct {
	Catalog  *catalog.Store
	Metrics  *metricdef.Registry
	Compiler *compiler.Compiler
	Compile  *service.CompileService
}

// New loads the catalog and metric configuration and wires the compiler
// and services from the provided deps.
func New(deps Deps) (*App, error) {
	store, err := catalog.NewStore(deps.Cfg.CatalogPath)
	if err != nil {
		return nil, err
	}

	registry, err := metricdef.LoadFile(deps.Cfg.MetricsPath)
	if err != nil {
		return nil, err
	}

	comp := compiler.New(registry, compiler.Options{DefaultLimit: deps.Cfg.DefaultLimit}, deps.Now)

	var history service.HistoryStore
	if deps.HistoryDB != nil {
		history = repository.NewCompileHistoryRepo(deps.HistoryDB)
	}

	return &App{
		Catalog:  store,
		Metrics:  registry,
		Compiler: comp,
		Compile:  service.NewCompileService(store, comp, history, deps.Logger),
	}, nil
}
