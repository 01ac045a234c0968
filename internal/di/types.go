// Package di provides dependency injection type definitions.
//
// The Container holds every long-lived dependency of the process and is the
// single place where they are created and closed.
package di

import (
	"github.com/simplainvest/wealthboard/internal/clientdata"
	"github.com/simplainvest/wealthboard/internal/clients/wealthfeed"
	"github.com/simplainvest/wealthboard/internal/database"
	"github.com/simplainvest/wealthboard/internal/events"
	"github.com/simplainvest/wealthboard/internal/modules/dashboard"
	"github.com/simplainvest/wealthboard/internal/modules/series"
	"github.com/simplainvest/wealthboard/internal/scheduler"
)

// Container holds all application dependencies
type Container struct {
	// Databases
	CacheDB *database.DB

	// Repositories
	ClientDataRepo *clientdata.Repository

	// Clients
	FeedClient *wealthfeed.Client

	// Events
	EventBus     *events.Bus
	EventManager *events.Manager

	// Services
	Normalizer       *series.Normalizer
	RangeStore       *dashboard.RangeStore
	Activity         dashboard.Activity
	DashboardService *dashboard.Service

	// Scheduling
	Scheduler *scheduler.Scheduler
}

// JobInstances holds the registered jobs for manual triggering
type JobInstances struct {
	DashboardRefresh    scheduler.Job
	CacheCleanup        scheduler.Job
	DatabaseMaintenance scheduler.Job
}
