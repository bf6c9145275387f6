// Command lossreport runs one simulation, prints its summary table and writes
// the four loss charts to disk, optionally publishing them to a bucket.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aristath/lossdash/internal/clients/simulation"
	"github.com/aristath/lossdash/internal/config"
	"github.com/aristath/lossdash/internal/modules/charts"
	"github.com/aristath/lossdash/internal/reports"
	"github.com/aristath/lossdash/pkg/logger"
)

// RunArgs are the inputs of one report run
type RunArgs struct {
	SimulationURL string
	Timeout       time.Duration
	OutDir        string
	Format        string
	Width         int
	Height        int
	Bins          int
	Publish       bool
	Report        config.ReportConfig
}

// RunResult describes what a report run produced
type RunResult struct {
	RunID     string
	Files     []string
	Published []string
}

func newRootCmd(cfg *config.Config, log zerolog.Logger, out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "lossreport",
		Short:         "Render Monte Carlo loss simulation reports",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch one simulation and write its charts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			url, _ := flags.GetString("url")
			timeout, _ := flags.GetDuration("timeout")
			outDir, _ := flags.GetString("out")
			format, _ := flags.GetString("format")
			width, _ := flags.GetInt("width")
			height, _ := flags.GetInt("height")
			bins, _ := flags.GetInt("bins")
			publish, _ := flags.GetBool("publish")

			result, err := Run(cmd.Context(), RunArgs{
				SimulationURL: url,
				Timeout:       timeout,
				OutDir:        outDir,
				Format:        format,
				Width:         width,
				Height:        height,
				Bins:          bins,
				Publish:       publish,
				Report:        cfg.Report,
			}, out, log)
			if err != nil {
				return err
			}

			for _, f := range result.Files {
				fmt.Fprintf(out, "wrote %s\n", f)
			}
			for _, key := range result.Published {
				fmt.Fprintf(out, "published s3://%s/%s\n", cfg.Report.Bucket, key)
			}
			return nil
		},
	}

	runCmd.Flags().String("url", cfg.SimulationURL, "Simulator base URL")
	runCmd.Flags().Duration("timeout", cfg.SimulationTimeout, "Simulator request timeout (0 = none)")
	runCmd.Flags().String("out", "reports", "Directory to write the charts to")
	runCmd.Flags().String("format", string(charts.FormatPNG), "Chart format: png or svg")
	runCmd.Flags().Int("width", charts.DefaultWidth, "Chart width in pixels")
	runCmd.Flags().Int("height", charts.DefaultHeight, "Chart height in pixels")
	runCmd.Flags().Int("bins", charts.DefaultHistogramBins, "Histogram bin count")
	runCmd.Flags().Bool("publish", false, "Upload the charts to REPORT_BUCKET")

	root.AddCommand(runCmd)
	return root
}

// Run fetches one simulation, prints the summary table to out and writes the
// charts. Nothing is retried.
func Run(ctx context.Context, args RunArgs, out io.Writer, log zerolog.Logger) (RunResult, error) {
	format, err := charts.ParseFormat(args.Format)
	if err != nil {
		return RunResult{}, err
	}
	if args.Publish && !args.Report.Enabled() {
		return RunResult{}, fmt.Errorf("--publish requires REPORT_BUCKET")
	}

	client := simulation.NewClient(args.SimulationURL, args.Timeout, log)
	result, err := client.RunSimulation(ctx)
	if err != nil {
		return RunResult{}, err
	}

	runID := uuid.NewString()
	reports.WriteSummary(out, result)

	report, err := reports.Write(runID, result, reports.Options{
		OutDir: args.OutDir,
		Format: format,
		Width:  args.Width,
		Height: args.Height,
		Bins:   args.Bins,
	})
	if err != nil {
		return RunResult{}, err
	}
	for _, kind := range report.Skipped {
		log.Warn().Str("kind", string(kind)).Msg("Chart has no data, skipped")
	}

	runResult := RunResult{RunID: runID, Files: report.Files}
	if !args.Publish {
		return runResult, nil
	}

	publisher, err := reports.NewS3Publisher(ctx, args.Report, log)
	if err != nil {
		return runResult, err
	}
	runResult.Published, err = publisher.Publish(ctx, report)
	return runResult, err
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
		Output: os.Stderr,
	})

	if err := newRootCmd(cfg, log, os.Stdout).ExecuteContext(context.Background()); err != nil {
		log.Error().Err(err).Msg("Report failed")
		os.Exit(1)
	}
}
