package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/simplainvest/wealthboard/internal/database"
	"github.com/simplainvest/wealthboard/internal/modules/dashboard"
	"github.com/simplainvest/wealthboard/internal/scheduler"
)

// SystemHandlers handles system status endpoints
type SystemHandlers struct {
	log       zerolog.Logger
	dataDir   string
	cacheDB   *database.DB
	dashboard *dashboard.Service
	scheduler *scheduler.Scheduler
	startedAt time.Time
}

// NewSystemHandlers creates a new system handlers instance. Every dependency
// except the logger may be nil.
func NewSystemHandlers(
	log zerolog.Logger,
	dataDir string,
	cacheDB *database.DB,
	dashboardService *dashboard.Service,
	sched *scheduler.Scheduler,
) *SystemHandlers {
	return &SystemHandlers{
		log:       log.With().Str("handler", "system").Logger(),
		dataDir:   dataDir,
		cacheDB:   cacheDB,
		dashboard: dashboardService,
		scheduler: sched,
		startedAt: time.Now(),
	}
}

// SystemStatusResponse represents the system status
type SystemStatusResponse struct {
	Status        string            `json:"status"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	CPUPercent    float64           `json:"cpu_percent"`
	MemoryPercent float64           `json:"memory_percent"`
	Goroutines    int               `json:"goroutines"`
	SnapshotID    string            `json:"snapshot_id,omitempty"`
	LastRefresh   string            `json:"last_refresh,omitempty"`
	Stale         map[string]bool   `json:"stale,omitempty"`
	FeedErrors    map[string]string `json:"feed_errors,omitempty"`
	ScheduledJobs int               `json:"scheduled_jobs"`
	CacheDB       string            `json:"cache_db"`
}

// DatabaseStatsResponse represents cache database statistics
type DatabaseStatsResponse struct {
	Name        string          `json:"name"`
	Path        string          `json:"path"`
	Stats       *database.Stats `json:"stats,omitempty"`
	LastChecked string          `json:"last_checked"`
}

// DiskUsageResponse represents disk usage statistics
type DiskUsageResponse struct {
	DataDirMB float64 `json:"data_dir_mb"`
}

// Status values
const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
	StatusStarting = "starting"
)

// GetSystemStatusSnapshot returns the current system status
func (h *SystemHandlers) GetSystemStatusSnapshot() SystemStatusResponse {
	cpuPercent, memPercent := h.getSystemStats()

	response := SystemStatusResponse{
		Status:        StatusStarting,
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		Goroutines:    runtime.NumGoroutine(),
	}
	if h.scheduler != nil {
		response.ScheduledJobs = h.scheduler.Entries()
	}
	response.CacheDB = h.checkCacheDB()

	if h.dashboard == nil {
		return response
	}
	snap := h.dashboard.Snapshot()
	if snap == nil {
		return response
	}

	response.Status = StatusHealthy
	response.SnapshotID = snap.ID
	response.LastRefresh = snap.RefreshedAt.Format(time.RFC3339)
	response.Stale = snap.Stale
	response.FeedErrors = snap.Errors
	if len(snap.Errors) > 0 {
		response.Status = StatusDegraded
	}
	for _, stale := range snap.Stale {
		if stale {
			response.Status = StatusDegraded
		}
	}
	if response.CacheDB == cacheDBUnavailable {
		response.Status = StatusDegraded
	}
	return response
}

// Cache database states reported by the status endpoint
const (
	cacheDBOK          = "ok"
	cacheDBUnavailable = "unavailable"
	cacheDBDisabled    = "disabled"
)

func (h *SystemHandlers) checkCacheDB() string {
	if h.cacheDB == nil {
		return cacheDBDisabled
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := h.cacheDB.QuickCheck(ctx); err != nil {
		h.log.Warn().Err(err).Msg("Cache database check failed")
		return cacheDBUnavailable
	}
	return cacheDBOK
}

// HandleSystemStatus returns the system status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")
	h.writeJSON(w, http.StatusOK, h.GetSystemStatusSnapshot())
}

// HandleDatabaseStats returns cache database statistics
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	if h.cacheDB == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "cache database not configured"})
		return
	}

	stats, err := h.cacheDB.GetStats()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get database stats")
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	h.writeJSON(w, http.StatusOK, DatabaseStatsResponse{
		Name:        h.cacheDB.Name(),
		Path:        h.cacheDB.Path(),
		Stats:       stats,
		LastChecked: time.Now().Format(time.RFC3339),
	})
}

// HandleDiskUsage returns disk usage statistics
func (h *SystemHandlers) HandleDiskUsage(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, DiskUsageResponse{
		DataDirMB: h.getDirSize(h.dataDir),
	})
}

// getDirSize calculates total size of a directory in MB
func (h *SystemHandlers) getDirSize(dirPath string) float64 {
	var totalSize int64

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})
	if err != nil {
		h.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}

	return float64(totalSize) / 1024 / 1024
}

// getSystemStats samples CPU over 100ms and reads memory usage
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
