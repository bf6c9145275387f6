// Package dashboard drives the run cycle: fetch a simulation, redraw the
// charts and expose the resulting page state.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/lossdash/internal/domain"
	"github.com/aristath/lossdash/internal/modules/charts"
	"github.com/aristath/lossdash/internal/modules/runs"
)

// ErrRunInProgress is returned when a run is requested while another is
// still waiting on the simulator.
var ErrRunInProgress = errors.New("simulation run already in progress")

// State is the page state of the dashboard.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateFailed  State = "failed"
)

// Fetcher retrieves one simulation result.
type Fetcher interface {
	RunSimulation(ctx context.Context) (*domain.SimulationResult, error)
}

// RunStore persists successful runs.
type RunStore interface {
	Save(ctx context.Context, rec runs.Record) error
}

// Status is a snapshot of what the page shows.
type Status struct {
	State          State           `json:"state"`
	Loading        bool            `json:"loading"`
	ControlEnabled bool            `json:"control_enabled"`
	ResultsVisible bool            `json:"results_visible"`
	RunID          string          `json:"run_id,omitempty"`
	FetchedAt      *time.Time      `json:"fetched_at,omitempty"`
	Summary        *charts.Summary `json:"summary,omitempty"`
}

// Service owns the dashboard state. Only one simulator request is in flight
// at a time.
type Service struct {
	fetcher Fetcher
	charts  *charts.Service
	store   RunStore
	log     zerolog.Logger

	mu     sync.RWMutex
	status Status

	subsMu  sync.Mutex
	subs    map[int]chan Status
	nextSub int

	now   func() time.Time
	newID func() string
}

// NewService creates the dashboard service. store may be nil.
func NewService(fetcher Fetcher, chartService *charts.Service, store RunStore, log zerolog.Logger) *Service {
	return &Service{
		fetcher: fetcher,
		charts:  chartService,
		store:   store,
		log:     log.With().Str("service", "dashboard").Logger(),
		status: Status{
			State:          StateIdle,
			ControlEnabled: true,
		},
		subs:  make(map[int]chan Status),
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Status returns the current page state.
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Run fetches a new simulation and redraws every chart. While the request is
// outstanding the control is disabled and results are hidden. A failed fetch
// re-enables the control and leaves results hidden; it is not retried.
func (s *Service) Run(ctx context.Context) (Status, error) {
	s.mu.Lock()
	if s.status.State == StateLoading {
		current := s.status
		s.mu.Unlock()
		return current, ErrRunInProgress
	}
	s.status.State = StateLoading
	s.status.Loading = true
	s.status.ControlEnabled = false
	s.status.ResultsVisible = false
	loading := s.status
	s.mu.Unlock()
	s.publish(loading)

	started := s.now()
	result, err := s.fetcher.RunSimulation(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Simulation run failed")

		s.mu.Lock()
		s.status.State = StateFailed
		s.status.Loading = false
		s.status.ControlEnabled = true
		s.status.ResultsVisible = false
		failed := s.status
		s.mu.Unlock()
		s.publish(failed)

		return failed, fmt.Errorf("failed to run simulation: %w", err)
	}

	rec := runs.Record{
		ID:        s.newID(),
		FetchedAt: s.now().UTC(),
		Result:    result,
	}
	ready := s.show(rec)

	s.log.Info().
		Str("run_id", rec.ID).
		Int("num_simulations", result.NumSimulations).
		Dur("duration", s.now().Sub(started)).
		Msg("Simulation run rendered")

	if s.store != nil {
		// History is kept even when the caller has gone away.
		if err := s.store.Save(context.WithoutCancel(ctx), rec); err != nil {
			s.log.Warn().Err(err).Str("run_id", rec.ID).Msg("Failed to store run")
		}
	}

	return ready, nil
}

// Restore shows a previously stored run without contacting the simulator.
// It is ignored while a run is in flight.
func (s *Service) Restore(rec *runs.Record) bool {
	if rec == nil || rec.Result == nil {
		return false
	}

	s.mu.RLock()
	busy := s.status.State == StateLoading
	s.mu.RUnlock()
	if busy {
		return false
	}

	s.show(*rec)
	s.log.Info().Str("run_id", rec.ID).Time("fetched_at", rec.FetchedAt).Msg("Restored previous run")
	return true
}

func (s *Service) show(rec runs.Record) Status {
	summary := s.charts.Draw(rec.ID, rec.Result)
	fetchedAt := rec.FetchedAt

	s.mu.Lock()
	s.status = Status{
		State:          StateReady,
		ControlEnabled: true,
		ResultsVisible: true,
		RunID:          rec.ID,
		FetchedAt:      &fetchedAt,
		Summary:        &summary,
	}
	ready := s.status
	s.mu.Unlock()
	s.publish(ready)

	return ready
}

// Subscribe returns a channel that receives every state transition and a
// function that ends the subscription. Slow subscribers miss updates rather
// than block the run.
func (s *Service) Subscribe() (<-chan Status, func()) {
	ch := make(chan Status, 16)

	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, id)
			s.subsMu.Unlock()
			close(ch)
		})
	}
}

func (s *Service) publish(status Status) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	for _, ch := range s.subs {
		select {
		case ch <- status:
		default:
			s.log.Debug().Str("state", string(status.State)).Msg("Subscriber full, dropping update")
		}
	}
}
