// Package charts turns simulated portfolio losses into chart views and
// rendered chart surfaces.
package charts

import (
	"github.com/rs/zerolog"

	"github.com/aristath/lossdash/internal/domain"
)

// Options controls chart geometry.
type Options struct {
	HistogramBins int
	Width         int
	Height        int
}

// Service builds the four chart views for a run and keeps them on a board
type Service struct {
	board *Board
	opts  Options
	log   zerolog.Logger
}

// NewService creates a new charts service
func NewService(board *Board, opts Options, log zerolog.Logger) *Service {
	if opts.HistogramBins <= 0 {
		opts.HistogramBins = DefaultHistogramBins
	}
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	return &Service{
		board: board,
		opts:  opts,
		log:   log.With().Str("service", "charts").Logger(),
	}
}

// Build derives the four views and the formatted summary without touching
// the board.
func (s *Service) Build(result *domain.SimulationResult) (map[Kind]View, Summary) {
	return BuildViews(result.Losses, s.opts.HistogramBins), Summarize(result)
}

// Draw derives every view from the run's losses and replaces the live chart
// handles, destroying the previous run's surfaces. It returns the formatted
// summary for the run.
func (s *Service) Draw(runID string, result *domain.SimulationResult) Summary {
	views, summary := s.Build(result)
	for _, kind := range Kinds {
		s.board.Replace(NewHandle(runID, views[kind], s.opts.Width, s.opts.Height))
	}

	s.log.Debug().
		Str("run_id", runID).
		Int("losses", len(result.Losses)).
		Int("cdf_points", views[KindCDF].Len()).
		Int("line_points", views[KindLine].Len()).
		Msg("Charts redrawn")

	return summary
}

// Handle returns the live chart handle for a kind.
func (s *Service) Handle(kind Kind) (*Handle, bool) {
	return s.board.Get(kind)
}

// Options returns the effective chart geometry.
func (s *Service) Options() Options {
	return s.opts
}
