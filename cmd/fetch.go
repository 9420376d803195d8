package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/bnema/sentinel-tiles-cli/internal/adapters/render/summary"
	"github.com/bnema/sentinel-tiles-cli/internal/application"
	"github.com/bnema/sentinel-tiles-cli/internal/domain"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const maxListedFailures = 10

type fetchOptions struct {
	aoiPath    string
	start      string
	end        string
	outputRoot string
	asJSON     bool
}

func newFetchCmd(app *app) *cobra.Command {
	var opts fetchOptions

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Search, filter and download Sentinel-1 tiles for an area of interest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFetch(cmd, app, opts)
		},
	}

	cmd.Flags().StringVar(&opts.aoiPath, "aoi", "", "GeoJSON file with the area of interest")
	cmd.Flags().StringVar(&opts.start, "start", "", "First acquisition date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.end, "end", "", "Last acquisition date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.outputRoot, "out", "", "Output root directory")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Render the run report as JSON")
	for _, name := range []string{"aoi", "start", "end", "out"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func runFetch(cmd *cobra.Command, app *app, opts fetchOptions) error {
	dateRange, err := domain.ParseDateRange(opts.start, opts.end)
	if err != nil {
		return err
	}
	outputRoot, err := filepath.Abs(opts.outputRoot)
	if err != nil {
		return fmt.Errorf("resolve output root: %w", err)
	}

	// Logs and the spinner share stderr.
	errOut := zapcore.Lock(zapcore.AddSync(cmd.ErrOrStderr()))
	rt, err := app.newRuntime(errOut)
	if err != nil {
		return err
	}
	defer func() { _ = rt.logger.Sync() }()

	req := application.RunRequest{AOIPath: opts.aoiPath, Range: dateRange, OutputRoot: outputRoot}

	var prepared application.Prepared
	prepare := func(ctx context.Context, onProgress func(application.SearchProgress)) error {
		run := req
		run.OnSearchProgress = onProgress
		var prepareErr error
		prepared, prepareErr = rt.pipeline.Prepare(ctx, run)
		return prepareErr
	}
	if opts.asJSON {
		err = prepare(cmd.Context(), nil)
	} else {
		err = runCatalogSpinner(cmd.Context(), errOut, dateRange, prepare)
	}
	if err != nil {
		return err
	}

	report := rt.pipeline.Download(cmd.Context(), prepared)

	if path := app.cfg.MetricsPath; path != "" {
		if err := rt.metrics.WriteTextfile(path); err != nil {
			rt.logger.Warn("write metrics textfile", zap.String("path", path), zap.Error(err))
		}
	}

	return writeReport(cmd, app, report, outputRoot, opts.asJSON)
}

func writeReport(cmd *cobra.Command, app *app, report application.RunReport, outputRoot string, asJSON bool) error {
	if asJSON {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	}

	rendered := app.summaryRenderer(report, summary.RenderOptions{
		OutputRoot:  outputRoot,
		MaxFailures: maxListedFailures,
		Width:       terminalWidth(cmd.OutOrStdout()),
	})

	_, err := fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}

// terminalWidth is 0 when w is not a terminal.
func terminalWidth(w io.Writer) int {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok || !term.IsTerminal(f.Fd()) {
		return 0
	}
	width, _, err := term.GetSize(f.Fd())
	if err != nil {
		return 0
	}
	return width
}
