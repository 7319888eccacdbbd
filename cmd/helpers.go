package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/coverage-planner/internal/config"
	"github.com/sells-group/coverage-planner/internal/milp"
	"github.com/sells-group/coverage-planner/internal/milp/cbc"
	"github.com/sells-group/coverage-planner/internal/milp/highs"
	"github.com/sells-group/coverage-planner/internal/model"
	"github.com/sells-group/coverage-planner/internal/store"
)

// solverBackend maps the configured backend name to an implementation.
func solverBackend(c config.SolverConfig) (milp.Backend, error) {
	switch c.Backend {
	case "highs":
		return highs.New(c.Binary), nil
	case "cbc":
		return cbc.New(c.Binary), nil
	case "enum":
		return milp.Enumerate{}, nil
	}
	return nil, eris.Wrapf(model.ErrConfiguration, "cmd: unknown solver backend %q", c.Backend)
}

func solverOptions(c config.SolverConfig) milp.Options {
	return milp.Options{
		TimeLimit:    time.Duration(c.TimeLimitSecs) * time.Second,
		GapTolerance: c.GapTolerance,
		Threads:      c.Threads,
		WorkDir:      c.WorkDir,
		KeepFiles:    c.KeepFiles,
	}
}

// openStore opens the configured plan store and runs migrations.
func openStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite":
		st, err = store.NewSQLite(cfg.Store.Path)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Wrapf(model.ErrConfiguration, "cmd: unknown store driver %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}
