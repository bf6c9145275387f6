package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulationResult_DecodesSimulatorPayload(t *testing.T) {
	payload := `{
		"num_simulations": 4,
		"mean_loss": 2500.5,
		"median_loss": 2000,
		"std_loss": 1118.03,
		"min_loss": 1000,
		"max_loss": 4000,
		"var_95": 4000,
		"var_99": 4000,
		"losses": [1000, 2000, 3000, 4000]
	}`

	var result SimulationResult
	require.NoError(t, json.Unmarshal([]byte(payload), &result))

	assert.Equal(t, 4, result.NumSimulations)
	assert.Equal(t, 2500.5, result.MeanLoss)
	assert.Equal(t, 4000.0, result.VaR99)
	assert.Len(t, result.Losses, 4)
	require.NotNil(t, result.MinLoss)
	assert.Equal(t, 1000.0, *result.MinLoss)
}

func TestSimulationResult_RangeDerivedFromLosses(t *testing.T) {
	result := SimulationResult{Losses: []float64{30, 10, 20}}

	lo, hi, ok := result.Range()

	require.True(t, ok)
	assert.Equal(t, 10.0, lo)
	assert.Equal(t, 30.0, hi)
}

func TestSimulationResult_RangePrefersPayloadFields(t *testing.T) {
	lo, hi := 5.0, 50.0
	result := SimulationResult{MinLoss: &lo, MaxLoss: &hi, Losses: []float64{10, 20}}

	gotLo, gotHi, ok := result.Range()

	require.True(t, ok)
	assert.Equal(t, 5.0, gotLo)
	assert.Equal(t, 50.0, gotHi)
}

func TestSimulationResult_RangeEmpty(t *testing.T) {
	result := SimulationResult{}

	_, _, ok := result.Range()

	assert.False(t, ok)
}

func TestSimulationResult_Validate(t *testing.T) {
	assert.NoError(t, (&SimulationResult{NumSimulations: 0}).Validate())
	assert.Error(t, (&SimulationResult{NumSimulations: -1}).Validate())
}
