package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/lossdash/internal/modules/dashboard"
)

// Runner starts a simulation run.
type Runner interface {
	Run(ctx context.Context) (dashboard.Status, error)
}

// RefreshJob triggers a simulation run. It is skipped while another run is
// in flight.
type RefreshJob struct {
	runner  Runner
	timeout time.Duration
	log     zerolog.Logger
}

// NewRefreshJob creates a refresh job. A zero timeout leaves the run
// unbounded.
func NewRefreshJob(runner Runner, timeout time.Duration, log zerolog.Logger) *RefreshJob {
	return &RefreshJob{
		runner:  runner,
		timeout: timeout,
		log:     log.With().Str("job", "simulation_refresh").Logger(),
	}
}

// Run executes one refresh.
func (j *RefreshJob) Run() error {
	ctx := context.Background()
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	status, err := j.runner.Run(ctx)
	if errors.Is(err, dashboard.ErrRunInProgress) {
		j.log.Debug().Msg("Run already in flight, skipping refresh")
		return nil
	}
	if err != nil {
		return err
	}

	j.log.Info().Str("run_id", status.RunID).Msg("Scheduled refresh completed")
	return nil
}

// Name returns the job name for scheduling and logging.
func (j *RefreshJob) Name() string {
	return "simulation_refresh"
}
