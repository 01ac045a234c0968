package dashboard

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// RefreshJob reloads the dashboard on the scheduler
type RefreshJob struct {
	svc     *Service
	timeout time.Duration
	log     zerolog.Logger
}

// NewRefreshJob creates the periodic refresh job. Each run is bounded by
// timeout.
func NewRefreshJob(svc *Service, timeout time.Duration, log zerolog.Logger) *RefreshJob {
	return &RefreshJob{
		svc:     svc,
		timeout: timeout,
		log:     log.With().Str("job", "dashboard_refresh").Logger(),
	}
}

// Run executes one refresh
func (j *RefreshJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	snap, err := j.svc.RefreshAll(ctx)
	if errors.Is(err, ErrSuperseded) {
		j.log.Debug().Msg("Refresh superseded by a newer request")
		return nil
	}
	if err != nil {
		return err
	}

	j.log.Debug().Str("snapshot_id", snap.ID).Msg("Scheduled refresh completed")
	return nil
}

// Name returns the job name
func (j *RefreshJob) Name() string {
	return "dashboard_refresh"
}
