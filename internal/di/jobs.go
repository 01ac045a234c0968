package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/simplainvest/wealthboard/internal/clientdata"
	"github.com/simplainvest/wealthboard/internal/config"
	"github.com/simplainvest/wealthboard/internal/modules/dashboard"
	"github.com/simplainvest/wealthboard/internal/scheduler"
)

// Maintenance schedules
const (
	CleanupSchedule     = "@daily"
	MaintenanceSchedule = "@hourly"
)

// RegisterJobs registers the periodic jobs on the scheduler
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil || container.Scheduler == nil {
		return nil, fmt.Errorf("container must have an initialized scheduler")
	}

	instances := &JobInstances{
		DashboardRefresh:    dashboard.NewRefreshJob(container.DashboardService, cfg.RefreshTimeout(), log),
		CacheCleanup:        clientdata.NewCleanupJob(container.ClientDataRepo, log),
		DatabaseMaintenance: scheduler.NewDatabaseMaintenanceJob(container.CacheDB, log),
	}

	if err := container.Scheduler.AddJob(cfg.RefreshSchedule, instances.DashboardRefresh); err != nil {
		return nil, err
	}
	if err := container.Scheduler.AddJob(CleanupSchedule, instances.CacheCleanup); err != nil {
		return nil, err
	}
	if err := container.Scheduler.AddJob(MaintenanceSchedule, instances.DatabaseMaintenance); err != nil {
		return nil, err
	}

	log.Info().
		Str("refresh_schedule", cfg.RefreshSchedule).
		Str("cleanup_schedule", CleanupSchedule).
		Str("maintenance_schedule", MaintenanceSchedule).
		Msg("Jobs registered")
	return instances, nil
}
