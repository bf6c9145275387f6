package di

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/lossdash/internal/config"
	"github.com/aristath/lossdash/internal/modules/dashboard"
)

func testConfig(t *testing.T, simulatorURL string) *config.Config {
	return &config.Config{
		SimulationURL:   simulatorURL,
		DataDir:         t.TempDir(),
		RunTTL:          time.Hour,
		CleanupSchedule: "0 0 3 * * *",
		Port:            8080,
	}
}

func simulator() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"num_simulations":3,"mean_loss":2,"median_loss":2,"std_loss":1,"var_95":3,"var_99":3,"losses":[1,2,3]}`))
	}))
}

func TestWire(t *testing.T) {
	sim := simulator()
	defer sim.Close()

	log := zerolog.New(nil).Level(zerolog.Disabled)
	container, err := Wire(context.Background(), testConfig(t, sim.URL), log)
	require.NoError(t, err)
	defer container.Close()

	assert.NotNil(t, container.RunRepo)
	assert.NotNil(t, container.DashboardService)
	assert.Nil(t, container.RefreshJob)
	assert.Equal(t, 1, container.Scheduler.Entries())
	assert.Equal(t, dashboard.StateIdle, container.DashboardService.Status().State)
}

func TestWire_RestoresLatestRun(t *testing.T) {
	sim := simulator()
	defer sim.Close()

	log := zerolog.New(nil).Level(zerolog.Disabled)
	cfg := testConfig(t, sim.URL)

	first, err := Wire(context.Background(), cfg, log)
	require.NoError(t, err)
	status, err := first.DashboardService.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Wire(context.Background(), cfg, log)
	require.NoError(t, err)
	defer second.Close()

	restored := second.DashboardService.Status()
	assert.Equal(t, dashboard.StateReady, restored.State)
	assert.Equal(t, status.RunID, restored.RunID)
}

func TestWire_RefreshSchedule(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)

	cfg := testConfig(t, "http://localhost:5000")
	cfg.RefreshSchedule = "0 */5 * * * *"
	container, err := Wire(context.Background(), cfg, log)
	require.NoError(t, err)
	defer container.Close()

	assert.NotNil(t, container.RefreshJob)
	assert.Equal(t, 2, container.Scheduler.Entries())

	cfg = testConfig(t, "http://localhost:5000")
	cfg.RefreshSchedule = "whenever"
	_, err = Wire(context.Background(), cfg, log)
	assert.Error(t, err)
}
