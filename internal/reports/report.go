// Package reports renders a simulation run to chart files on disk, prints its
// summary table and publishes the files to an S3-compatible bucket.
package reports

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/aristath/lossdash/internal/domain"
	"github.com/aristath/lossdash/internal/modules/charts"
)

// Options controls where and how charts are written.
type Options struct {
	OutDir string
	Format charts.Format
	Width  int
	Height int
	Bins   int
}

// Report lists the files written for one run.
type Report struct {
	RunID   string
	Files   []string
	Skipped []charts.Kind // kinds with nothing to draw
}

// Write renders every chart kind for the result into opts.OutDir as
// <runID>-<kind>.<format>.
func Write(runID string, result *domain.SimulationResult, opts Options) (*Report, error) {
	if opts.Format == "" {
		opts.Format = charts.FormatPNG
	}
	if err := os.MkdirAll(opts.OutDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	report := &Report{RunID: runID}
	views := charts.BuildViews(result.Losses, opts.Bins)
	for _, kind := range charts.Kinds {
		data, err := charts.Render(views[kind], opts.Format, opts.Width, opts.Height)
		if errors.Is(err, charts.ErrEmptyView) {
			report.Skipped = append(report.Skipped, kind)
			continue
		}
		if err != nil {
			return nil, err
		}

		path := filepath.Join(opts.OutDir, fmt.Sprintf("%s-%s.%s", runID, kind, opts.Format))
		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", path, err)
		}
		report.Files = append(report.Files, path)
	}

	return report, nil
}

// WriteSummary prints the run's statistics as a two-column table.
func WriteSummary(w io.Writer, result *domain.SimulationResult) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Statistic", "Value"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.SetAutoWrapText(false)

	table.Append([]string{"Simulations", charts.FormatCount(result.NumSimulations)})
	table.Append([]string{"Mean Loss", charts.FormatAmount(result.MeanLoss)})
	table.Append([]string{"Median Loss", charts.FormatAmount(result.MedianLoss)})
	table.Append([]string{"Std Deviation", charts.FormatAmount(result.StdLoss)})
	table.Append([]string{"VaR (95%)", charts.FormatAmount(result.VaR95)})
	table.Append([]string{"VaR (99%)", charts.FormatAmount(result.VaR99)})
	if lo, hi, ok := result.Range(); ok {
		table.Append([]string{"Min Loss", charts.FormatAmount(lo)})
		table.Append([]string{"Max Loss", charts.FormatAmount(hi)})
	}

	table.Render()
}

func contentType(path string) string {
	format, err := charts.ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		return "application/octet-stream"
	}
	return format.ContentType()
}
