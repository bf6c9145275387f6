package runs

import (
	"context"

	"github.com/rs/zerolog"
)

// CleanupJob removes expired runs. It is scheduled daily.
type CleanupJob struct {
	repo *Repository
	log  zerolog.Logger
}

// NewCleanupJob creates a new run cleanup job.
func NewCleanupJob(repo *Repository, log zerolog.Logger) *CleanupJob {
	return &CleanupJob{
		repo: repo,
		log:  log.With().Str("job", "run_cleanup").Logger(),
	}
}

// Run deletes every expired run.
func (j *CleanupJob) Run() error {
	deleted, err := j.repo.DeleteExpired(context.Background())
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to delete expired runs")
		return err
	}

	if deleted > 0 {
		j.log.Info().Int64("deleted", deleted).Msg("Cleaned up expired runs")
	}
	return nil
}

// Name returns the job name for scheduling and logging.
func (j *CleanupJob) Name() string {
	return "run_cleanup"
}
