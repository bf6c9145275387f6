// Package di provides dependency injection wiring and initialization.
package di

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/aristath/lossdash/internal/clients/simulation"
	"github.com/aristath/lossdash/internal/config"
	"github.com/aristath/lossdash/internal/database"
	"github.com/aristath/lossdash/internal/modules/charts"
	"github.com/aristath/lossdash/internal/modules/dashboard"
	"github.com/aristath/lossdash/internal/modules/runs"
	"github.com/aristath/lossdash/internal/scheduler"
)

// Wire initializes all dependencies and returns a fully configured container
// Order of operations:
// 1. Open the run database
// 2. Create the run repository
// 3. Create client and services, restoring the latest stored run
// 4. Register jobs (not started)
func Wire(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Container, error) {
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, err
	}

	// Step 1: Databases
	runsDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "runs.db"),
		Profile: database.ProfileCache,
		Name:    "runs",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize databases: %w", err)
	}
	container := &Container{RunsDB: runsDB}

	// Step 2: Repositories
	if err := runsDB.Migrate(ctx, runs.Schema); err != nil {
		container.Close()
		return nil, fmt.Errorf("failed to initialize repositories: %w", err)
	}
	container.RunRepo = runs.NewRepository(runsDB.Conn(), cfg.RunTTL)

	// Step 3: Services
	container.SimulationClient = simulation.NewClient(cfg.SimulationURL, cfg.SimulationTimeout, log)
	container.ChartService = charts.NewService(charts.NewBoard(), charts.Options{}, log)
	container.DashboardService = dashboard.NewService(
		container.SimulationClient,
		container.ChartService,
		container.RunRepo,
		log,
	)

	latest, err := container.RunRepo.Latest(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load latest run, starting empty")
	} else {
		container.DashboardService.Restore(latest)
	}

	// Step 4: Jobs
	container.Scheduler = scheduler.New(log)
	container.CleanupJob = runs.NewCleanupJob(container.RunRepo, log)
	if err := container.Scheduler.AddJob(cfg.CleanupSchedule, container.CleanupJob); err != nil {
		container.Close()
		return nil, fmt.Errorf("failed to register jobs: %w", err)
	}
	if cfg.RefreshSchedule != "" {
		container.RefreshJob = scheduler.NewRefreshJob(container.DashboardService, cfg.SimulationTimeout, log)
		if err := container.Scheduler.AddJob(cfg.RefreshSchedule, container.RefreshJob); err != nil {
			container.Close()
			return nil, fmt.Errorf("failed to register jobs: %w", err)
		}
	}

	log.Info().Msg("Dependency injection wiring completed successfully")
	return container, nil
}
