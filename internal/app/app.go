// Package app wires configuration into the chat model, warehouse, question
// generator, SQL agent and pipeline shared by the binaries.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/querystudio/querystudio/internal/api"
	"github.com/querystudio/querystudio/internal/config"
	"github.com/querystudio/querystudio/internal/export"
	"github.com/querystudio/querystudio/internal/generator"
	"github.com/querystudio/querystudio/internal/llm"
	"github.com/querystudio/querystudio/internal/observability"
	"github.com/querystudio/querystudio/internal/pipeline"
	s3store "github.com/querystudio/querystudio/internal/storage/s3"
	"github.com/querystudio/querystudio/internal/text2sql"
	"github.com/querystudio/querystudio/internal/warehouse"
)

type App struct {
	Config    config.Config
	Logger    *slog.Logger
	Model     llm.ChatModel
	Warehouse *warehouse.Warehouse
	Generator *generator.Generator
	Agent     *text2sql.Agent
	Pipeline  *pipeline.Pipeline
	// Store is nil unless export is enabled.
	Store *s3store.Store
}

func Build(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = observability.Discard()
	}

	model, err := llm.New(cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("initialize chat model: %w", err)
	}

	gen, err := generator.New(model,
		generator.WithMaxRetries(cfg.Generator.MaxRetries),
		generator.WithTemperature(cfg.Model.Temperature),
		generator.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("initialize question generator: %w", err)
	}

	wh, err := warehouse.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect warehouse: %w", err)
	}

	agent, err := text2sql.New(ctx, model, wh,
		text2sql.WithTimeout(cfg.Agent.Timeout),
		text2sql.WithMaxIterations(cfg.Agent.MaxIterations),
		text2sql.WithEnforceSchema(cfg.Agent.EnforceSchema),
		text2sql.WithTemperature(cfg.Model.Temperature),
		text2sql.WithDialect(dialectFor(cfg.Warehouse.Driver)),
		text2sql.WithLogger(logger),
	)
	if err != nil {
		_ = wh.Close()
		return nil, fmt.Errorf("initialize sql agent: %w", err)
	}

	a := &App{
		Config:    cfg,
		Logger:    logger,
		Model:     model,
		Warehouse: wh,
		Generator: gen,
		Agent:     agent,
	}

	var exporter pipeline.Exporter
	if cfg.Export.Enabled {
		store, err := s3store.New(ctx, cfg.ObjectStore)
		if err != nil {
			_ = wh.Close()
			return nil, fmt.Errorf("initialize object store: %w", err)
		}
		exp, err := export.New(store, logger)
		if err != nil {
			_ = wh.Close()
			return nil, err
		}
		a.Store = store
		exporter = exp
	}

	a.Pipeline, err = pipeline.New(gen, agent, exporter, logger)
	if err != nil {
		_ = wh.Close()
		return nil, err
	}
	return a, nil
}

// Readiness checks the model settings, the warehouse and, when export is
// enabled, the object store bucket.
func (a *App) Readiness() api.ReadinessCheck {
	checks := []api.ReadinessCheck{
		api.CheckModelConfig(a.Config),
		a.Warehouse.Ping,
	}
	if a.Store != nil {
		checks = append(checks, a.Store.Ping)
	}
	return api.CombineReadinessChecks(checks...)
}

func (a *App) Close() error {
	if a == nil || a.Warehouse == nil {
		return nil
	}
	return a.Warehouse.Close()
}

func dialectFor(driver string) string {
	if driver == config.DriverDuckDB {
		return "duckdb"
	}
	return "postgresql"
}
