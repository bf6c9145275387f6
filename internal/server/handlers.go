package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/lossdash/internal/modules/charts"
	"github.com/aristath/lossdash/internal/modules/dashboard"
)

type statTile struct {
	Label string
	Value string
}

type chartTile struct {
	Kind    charts.Kind
	Title   string
	Src     string
	HasData bool
	Width   int
	Height  int
}

type pageData struct {
	Status dashboard.Status
	Stats  []statTile
	Charts []chartTile
}

func (s *Server) buildPage() pageData {
	status := s.dashboard.Status()
	data := pageData{Status: status}

	if status.Summary != nil {
		data.Stats = []statTile{
			{"Mean Loss", status.Summary.MeanLoss},
			{"Median Loss", status.Summary.MedianLoss},
			{"VaR (95%)", status.Summary.VaR95},
			{"VaR (99%)", status.Summary.VaR99},
			{"Std Deviation", status.Summary.StdLoss},
			{"Simulations", status.Summary.NumSimulations},
		}
	}

	opts := s.charts.Options()
	for _, kind := range charts.Kinds {
		handle, ok := s.charts.Handle(kind)
		if !ok {
			continue
		}
		view := handle.View()
		data.Charts = append(data.Charts, chartTile{
			Kind:    kind,
			Title:   view.Title,
			Src:     "/api/charts/" + string(kind) + ".png?run=" + handle.RunID(),
			HasData: view.Len() > 0,
			Width:   opts.Width,
			Height:  opts.Height,
		})
	}

	return data
}

// handleDashboard renders the dashboard page
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.page.Execute(&buf, s.buildPage()); err != nil {
		s.log.Error().Err(err).Msg("Failed to render dashboard page")
		http.Error(w, "Dashboard not available", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(buf.Bytes()); err != nil {
		s.log.Error().Err(err).Msg("Failed to write dashboard response")
	}
}

// handleRunForm handles POST /run from the page without scripting.
// The outcome is visible on the page it redirects to.
func (s *Server) handleRunForm(w http.ResponseWriter, r *http.Request) {
	if _, err := s.dashboard.Run(r.Context()); err != nil && !errors.Is(err, dashboard.ErrRunInProgress) {
		// Logged by the dashboard service
		s.log.Debug().Err(err).Msg("Form run did not complete")
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleListRuns handles GET /api/runs
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		http.Error(w, "Run history is disabled", http.StatusServiceUnavailable)
		return
	}

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	entries, err := s.runs.List(r.Context(), limit)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list runs")
		http.Error(w, "Failed to list runs", http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"runs":  entries,
			"count": len(entries),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	cpuPercent, ramPercent := s.getSystemStats()

	response := map[string]interface{}{
		"status":         "healthy",
		"service":        "lossdash",
		"uptime_seconds": int(time.Since(s.started).Seconds()),
		"state":          s.dashboard.Status().State,
		"cpu_percent":    cpuPercent,
		"ram_percent":    ramPercent,
	}

	status := http.StatusOK
	if s.runsDB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.runsDB.QuickCheck(ctx); err != nil {
			s.log.Warn().Err(err).Msg("Run store health check failed")
			response["status"] = "degraded"
			response["runs_db"] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			response["runs_db"] = "ok"
		}
	}

	s.writeJSON(w, status, response)
}

// getSystemStats returns CPU and RAM usage percentages, sampling CPU over 100ms
func (s *Server) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
