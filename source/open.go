package source

import (
	"context"
	"fmt"

	"github.com/ftahirops/airtop/config"
	"github.com/ftahirops/airtop/engine"
	"github.com/ftahirops/airtop/model"
)

// Open returns a factory for the configured source and a function that
// releases the shared connection.
func Open(cfg config.Config) (engine.SourceFactory, func() error, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, err
	}

	switch cfg.Source {
	case config.SourceInflux:
		client := NewInfluxClient(cfg.Influx)
		factory := func(scale model.TimeScale) (engine.Source, error) {
			return NewInflux(client, cfg, scale, loc), nil
		}
		return factory, func() error { client.Close(); return nil }, nil

	case config.SourceSQLite:
		db, err := OpenDB(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		factory := func(scale model.TimeScale) (engine.Source, error) {
			return NewSQLite(db, scale, cfg.Refresh(), loc), nil
		}
		return factory, db.Close, nil

	case config.SourcePostgres:
		pool, err := OpenPool(context.Background(), cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		factory := func(scale model.TimeScale) (engine.Source, error) {
			return NewPostgres(pool, cfg, scale), nil
		}
		return factory, func() error { pool.Close(); return nil }, nil

	case config.SourceDemo:
		factory := func(scale model.TimeScale) (engine.Source, error) {
			return NewDemo(scale, cfg.MaxValue, loc, WithRefresh(cfg.Refresh())), nil
		}
		return factory, func() error { return nil }, nil
	}
	return nil, nil, fmt.Errorf("unknown source %q", cfg.Source)
}
