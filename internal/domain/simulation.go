// Package domain holds the simulation payload shared by the client, charts and run storage.
package domain

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// SimulationResult is the payload returned by the simulator's /run-simulation endpoint.
// It is immutable for the lifetime of a render cycle and replaced on the next run.
type SimulationResult struct {
	NumSimulations int       `json:"num_simulations" msgpack:"num_simulations"`
	MeanLoss       float64   `json:"mean_loss" msgpack:"mean_loss"`
	MedianLoss     float64   `json:"median_loss" msgpack:"median_loss"`
	StdLoss        float64   `json:"std_loss" msgpack:"std_loss"`
	VaR95          float64   `json:"var_95" msgpack:"var_95"`
	VaR99          float64   `json:"var_99" msgpack:"var_99"`
	MinLoss        *float64  `json:"min_loss,omitempty" msgpack:"min_loss,omitempty"`
	MaxLoss        *float64  `json:"max_loss,omitempty" msgpack:"max_loss,omitempty"`
	Losses         []float64 `json:"losses" msgpack:"losses"`
}

// Validate rejects payloads that cannot describe a simulation run.
func (r *SimulationResult) Validate() error {
	if r.NumSimulations < 0 {
		return fmt.Errorf("invalid num_simulations: %d", r.NumSimulations)
	}
	return nil
}

// Range returns the smallest and largest loss. The simulator's min_loss/max_loss
// fields win when present; otherwise they are derived from Losses.
// ok is false when neither source has a value.
func (r *SimulationResult) Range() (lo, hi float64, ok bool) {
	if r.MinLoss != nil && r.MaxLoss != nil {
		return *r.MinLoss, *r.MaxLoss, true
	}
	if len(r.Losses) == 0 {
		return 0, 0, false
	}
	lo, hi = floats.Min(r.Losses), floats.Max(r.Losses)
	if r.MinLoss != nil {
		lo = *r.MinLoss
	}
	if r.MaxLoss != nil {
		hi = *r.MaxLoss
	}
	return lo, hi, true
}
