package server

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/simplainvest/wealthboard/internal/events"
	"github.com/simplainvest/wealthboard/internal/modules/dashboard"
)

// StatusMonitor periodically checks the age of the dashboard snapshot and
// emits an error event when it goes stale
type StatusMonitor struct {
	eventManager *events.Manager
	dashboard    *dashboard.Service
	maxAge       time.Duration
	log          zerolog.Logger

	now       func() time.Time
	stop      chan struct{}
	stopOnce  sync.Once
	lastStale bool
}

// NewStatusMonitor creates a new status monitor
func NewStatusMonitor(
	eventManager *events.Manager,
	dashboardService *dashboard.Service,
	maxAge time.Duration,
	log zerolog.Logger,
) *StatusMonitor {
	return &StatusMonitor{
		eventManager: eventManager,
		dashboard:    dashboardService,
		maxAge:       maxAge,
		log:          log.With().Str("component", "status_monitor").Logger(),
		now:          time.Now,
		stop:         make(chan struct{}),
	}
}

// Start begins periodic status monitoring
func (m *StatusMonitor) Start(interval time.Duration) {
	go m.monitor(interval)
}

// Stop ends monitoring
func (m *StatusMonitor) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *StatusMonitor) monitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.checkFreshness()
		}
	}
}

// checkFreshness emits once per transition into the stale state
func (m *StatusMonitor) checkFreshness() {
	if m.dashboard == nil {
		return
	}
	snap := m.dashboard.Snapshot()
	if snap == nil {
		return
	}

	age := m.now().Sub(snap.RefreshedAt)
	stale := age > m.maxAge
	if stale == m.lastStale {
		return
	}
	m.lastStale = stale

	if !stale {
		m.log.Info().Msg("Dashboard data is fresh again")
		return
	}

	m.log.Warn().Dur("age", age).Msg("Dashboard data is stale")
	if m.eventManager != nil {
		m.eventManager.EmitError("status_monitor", fmt.Errorf("dashboard data is %s old", age.Round(time.Second)), map[string]interface{}{
			"snapshot_id":  snap.ID,
			"refreshed_at": snap.RefreshedAt.Format(time.RFC3339),
		})
	}
}
