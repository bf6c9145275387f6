package di

import (
	"github.com/aristath/lossdash/internal/clients/simulation"
	"github.com/aristath/lossdash/internal/database"
	"github.com/aristath/lossdash/internal/modules/charts"
	"github.com/aristath/lossdash/internal/modules/dashboard"
	"github.com/aristath/lossdash/internal/modules/runs"
	"github.com/aristath/lossdash/internal/scheduler"
)

// Container holds every long-lived dependency of the server
type Container struct {
	// Databases
	RunsDB *database.DB

	// Repositories
	RunRepo *runs.Repository

	// Clients
	SimulationClient *simulation.Client

	// Services
	ChartService     *charts.Service
	DashboardService *dashboard.Service

	// Background jobs
	Scheduler  *scheduler.Scheduler
	CleanupJob *runs.CleanupJob
	RefreshJob *scheduler.RefreshJob // nil when no refresh schedule is configured
}

// Close releases the databases
func (c *Container) Close() error {
	if c.RunsDB != nil {
		return c.RunsDB.Close()
	}
	return nil
}
