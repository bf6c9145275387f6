package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"github.com/aristath/lossdash/internal/modules/charts"
	"github.com/aristath/lossdash/internal/modules/dashboard"
)

type fakeRunner struct {
	status  dashboard.Status
	err     error
	updates chan dashboard.Status
}

func (f *fakeRunner) Run(ctx context.Context) (dashboard.Status, error) {
	return f.status, f.err
}

func (f *fakeRunner) Status() dashboard.Status {
	return f.status
}

func (f *fakeRunner) Subscribe() (<-chan dashboard.Status, func()) {
	if f.updates == nil {
		f.updates = make(chan dashboard.Status, 4)
	}
	return f.updates, func() {}
}

func readyStatus() dashboard.Status {
	return dashboard.Status{
		State:          dashboard.StateReady,
		ControlEnabled: true,
		ResultsVisible: true,
		RunID:          "run-1",
		Summary:        &charts.Summary{MeanLoss: "$1.2K", NumSimulations: "1,000"},
	}
}

func TestHandleRun(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)

	tests := []struct {
		name           string
		runner         *fakeRunner
		expectedStatus int
		validate       func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name:           "success",
			runner:         &fakeRunner{status: readyStatus()},
			expectedStatus: http.StatusOK,
			validate: func(t *testing.T, w *httptest.ResponseRecorder) {
				var response map[string]interface{}
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))

				data := response["data"].(map[string]interface{})
				assert.Equal(t, "ready", data["state"])
				assert.Equal(t, "run-1", data["run_id"])
				summary := data["summary"].(map[string]interface{})
				assert.Equal(t, "$1.2K", summary["mean_loss"])
				assert.NotNil(t, response["metadata"])
			},
		},
		{
			name: "run in flight",
			runner: &fakeRunner{
				status: dashboard.Status{State: dashboard.StateLoading, Loading: true},
				err:    dashboard.ErrRunInProgress,
			},
			expectedStatus: http.StatusConflict,
			validate: func(t *testing.T, w *httptest.ResponseRecorder) {
				assert.Contains(t, w.Body.String(), `"state":"loading"`)
			},
		},
		{
			name: "simulator failure has empty body",
			runner: &fakeRunner{
				status: dashboard.Status{State: dashboard.StateFailed, ControlEnabled: true},
				err:    errors.New("failed to run simulation: boom"),
			},
			expectedStatus: http.StatusBadGateway,
			validate: func(t *testing.T, w *httptest.ResponseRecorder) {
				assert.Empty(t, w.Body.String())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHandler(tt.runner, logger)
			req := httptest.NewRequest("POST", "/api/simulation/run", nil)
			w := httptest.NewRecorder()

			handler.HandleRun(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.validate != nil {
				tt.validate(t, w)
			}
		})
	}
}

func TestHandleGetState(t *testing.T) {
	handler := NewHandler(&fakeRunner{status: dashboard.Status{State: dashboard.StateIdle, ControlEnabled: true}},
		zerolog.New(nil).Level(zerolog.Disabled))

	req := httptest.NewRequest("GET", "/api/simulation/state", nil)
	w := httptest.NewRecorder()
	handler.HandleGetState(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var response struct {
		Data dashboard.Status `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, dashboard.StateIdle, response.Data.State)
	assert.True(t, response.Data.ControlEnabled)
	assert.Nil(t, response.Data.Summary)
}

func TestHandleStream(t *testing.T) {
	runner := &fakeRunner{
		status:  dashboard.Status{State: dashboard.StateIdle, ControlEnabled: true},
		updates: make(chan dashboard.Status, 4),
	}
	handler := NewHandler(runner, zerolog.New(nil).Level(zerolog.Disabled))

	router := chi.NewRouter()
	router.Route("/api", handler.RegisterStreamRoutes)
	server := httptest.NewServer(router)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/simulation/stream"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	read := func() dashboard.Status {
		msgType, data, err := conn.Read(ctx)
		require.NoError(t, err)
		assert.Equal(t, websocket.MessageText, msgType)
		var status dashboard.Status
		require.NoError(t, json.Unmarshal(data, &status))
		return status
	}

	assert.Equal(t, dashboard.StateIdle, read().State)

	runner.updates <- dashboard.Status{State: dashboard.StateLoading, Loading: true}
	runner.updates <- readyStatus()

	assert.Equal(t, dashboard.StateLoading, read().State)
	ready := read()
	assert.Equal(t, dashboard.StateReady, ready.State)
	assert.Equal(t, "run-1", ready.RunID)
}

func TestRegisterRoutes(t *testing.T) {
	handler := NewHandler(&fakeRunner{}, zerolog.New(nil).Level(zerolog.Disabled))
	router := chi.NewRouter()

	assert.NotPanics(t, func() {
		handler.RegisterRoutes(router)
		handler.RegisterStreamRoutes(router)
	})

	var patterns []string
	_ = chi.Walk(router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		patterns = append(patterns, method+" "+route)
		return nil
	})
	assert.Contains(t, patterns, "POST /simulation/run")
	assert.Contains(t, patterns, "GET /simulation/state")
	assert.Contains(t, patterns, "GET /simulation/stream")
}
