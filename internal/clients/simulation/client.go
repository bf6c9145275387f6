// Package simulation provides the HTTP client for the external Monte Carlo simulator.
package simulation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/lossdash/internal/domain"
)

// RunPath is the simulator endpoint that runs a simulation and returns its results.
const RunPath = "/run-simulation"

// Client fetches precomputed simulation results from the simulator service.
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a simulator client. A zero timeout means requests wait
// until the simulator answers or the caller's context is cancelled.
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		log:     log.With().Str("client", "simulator").Logger(),
	}
}

// RunSimulation performs a single GET against the simulator and decodes the
// result. There is no retry; failures are returned to the caller.
func (c *Client) RunSimulation(ctx context.Context) (*domain.SimulationResult, error) {
	url := c.baseURL + RunPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.log.Debug().Str("url", url).Msg("Requesting simulation")
	start := time.Now()

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("simulator request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("simulator returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result domain.SimulationResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse simulator response: %w", err)
	}
	if err := result.Validate(); err != nil {
		return nil, fmt.Errorf("invalid simulator response: %w", err)
	}

	c.log.Info().
		Int("num_simulations", result.NumSimulations).
		Int("losses", len(result.Losses)).
		Dur("elapsed", time.Since(start)).
		Msg("Simulation fetched")

	return &result, nil
}
