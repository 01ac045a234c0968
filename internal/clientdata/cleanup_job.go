package clientdata

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// CleanupJob sweeps expired rows out of every cache table. A failing table
// does not stop the sweep of the others.
type CleanupJob struct {
	repo *Repository
	log  zerolog.Logger

	mu   sync.Mutex
	last map[string]int64
}

// NewCleanupJob creates a cache cleanup job
func NewCleanupJob(repo *Repository, log zerolog.Logger) *CleanupJob {
	return &CleanupJob{
		repo: repo,
		log:  log.With().Str("job", "cache_cleanup").Logger(),
	}
}

// Name returns the job name
func (j *CleanupJob) Name() string {
	return "cache_cleanup"
}

// Run deletes expired rows table by table
func (j *CleanupJob) Run() error {
	deleted := make(map[string]int64, len(AllTables))
	counts := zerolog.Dict()
	var total int64
	var errs []error

	for _, table := range AllTables {
		n, err := j.repo.DeleteExpired(table)
		if err != nil {
			j.log.Error().Err(err).Str("table", table).Msg("Failed to sweep cache table")
			errs = append(errs, err)
			continue
		}
		deleted[table] = n
		counts.Int64(table, n)
		total += n
	}

	j.mu.Lock()
	j.last = deleted
	j.mu.Unlock()

	if total > 0 {
		j.log.Info().Dict("deleted", counts).Int64("total", total).Msg("Expired cache entries removed")
	}
	return errors.Join(errs...)
}

// LastDeleted returns the per-table counts of the latest run
func (j *CleanupJob) LastDeleted() map[string]int64 {
	j.mu.Lock()
	defer j.mu.Unlock()

	out := make(map[string]int64, len(j.last))
	for k, v := range j.last {
		out[k] = v
	}
	return out
}
