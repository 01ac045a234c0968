package scheduler

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/simplainvest/wealthboard/internal/database"
)

// walTruncateFrames is the WAL size, in frames, above which the checkpoint
// also truncates the log file
const walTruncateFrames = 1000

// DatabaseMaintenanceJob checks the integrity of a SQLite database and
// checkpoints its write-ahead log
type DatabaseMaintenanceJob struct {
	db  *database.DB
	log zerolog.Logger
}

// NewDatabaseMaintenanceJob creates a maintenance job for db
func NewDatabaseMaintenanceJob(db *database.DB, log zerolog.Logger) *DatabaseMaintenanceJob {
	return &DatabaseMaintenanceJob{
		db:  db,
		log: log.With().Str("job", "database_maintenance").Logger(),
	}
}

// Name returns the job name
func (j *DatabaseMaintenanceJob) Name() string {
	return "database_maintenance"
}

// Run executes the integrity check, then the checkpoint
func (j *DatabaseMaintenanceJob) Run() error {
	if j.db == nil {
		j.log.Warn().Msg("Database not initialized, skipping")
		return nil
	}

	if err := checkIntegrity(j.db.Conn()); err != nil {
		j.log.Error().Err(err).Str("database", j.db.Name()).Msg("Database integrity check failed")
		return fmt.Errorf("database %s is corrupted: %w", j.db.Name(), err)
	}

	frames, err := checkpoint(j.db.Conn(), "PASSIVE")
	if err != nil {
		j.log.Warn().Err(err).Str("database", j.db.Name()).Msg("Failed to checkpoint WAL")
		return nil
	}

	if frames > walTruncateFrames {
		j.log.Warn().
			Str("database", j.db.Name()).
			Int("wal_frames", frames).
			Msg("WAL file is large, truncating")
		if _, err := checkpoint(j.db.Conn(), "TRUNCATE"); err != nil {
			j.log.Warn().Err(err).Str("database", j.db.Name()).Msg("Failed to truncate WAL")
		}
		return nil
	}

	j.log.Debug().
		Str("database", j.db.Name()).
		Int("wal_frames", frames).
		Msg("Database maintenance completed")
	return nil
}

// checkIntegrity runs SQLite's PRAGMA quick_check
func checkIntegrity(conn *sql.DB) error {
	var result string
	if err := conn.QueryRow("PRAGMA quick_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check returned: %s", result)
	}
	return nil
}

// checkpoint returns the number of frames in the WAL. PRAGMA wal_checkpoint
// returns: busy, log, checkpointed.
func checkpoint(conn *sql.DB, mode string) (int, error) {
	var busy, frames, checkpointed int
	if err := conn.QueryRow("PRAGMA wal_checkpoint("+mode+")").Scan(&busy, &frames, &checkpointed); err != nil {
		return 0, err
	}
	return frames, nil
}
