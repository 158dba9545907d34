package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/clinviz/studyflow/pkg/layout"
	"github.com/clinviz/studyflow/pkg/usdm"
)

// layoutCommand creates the layout command for positioning timelines.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output  string
		noCache bool
		refresh bool
	)
	opts := c.pipelineOptions()

	cmd := &cobra.Command{
		Use:   "layout [timelines.json]",
		Short: "Compute node positions for extracted timelines",
		Long: `Compute node positions for extracted timelines.

The layout command takes a timelines JSON file (produced by 'load') and walks
each timeline into a positioned layout: the main chain on a horizontal
centerline, conditional branches staggered above it, and timing marks below.
The output is a layout.json file consumed by the 'render' command.

Spacing defaults can be overridden with flags or in the config file.

Results are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayout(cmd.Context(), args[0], output, noCache, refresh, opts.Layout)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.layout.json)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the cache and recompute")

	cmd.Flags().Float64Var(&opts.Layout.HorizontalSpacing, "hspacing", opts.Layout.HorizontalSpacing, "horizontal spacing between columns")
	cmd.Flags().Float64Var(&opts.Layout.VerticalSpacing, "vspacing", opts.Layout.VerticalSpacing, "vertical spacing to the timing row")
	cmd.Flags().Float64Var(&opts.Layout.BranchRowHeight, "branch-row", opts.Layout.BranchRowHeight, "vertical spacing per branch stagger row")

	return cmd
}

// runLayout loads the timelines, positions them, and writes output.
func (c *CLI) runLayout(ctx context.Context, input, output string, noCache, refresh bool, layoutOpts layout.Options) error {
	timelines, err := usdm.ReadTimelinesFile(input)
	if err != nil {
		return fmt.Errorf("load timelines %s: %w", input, err)
	}

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	opts := c.pipelineOptions()
	opts.Input = input
	opts.Layout = layoutOpts
	opts.Refresh = refresh

	spinner := newSpinnerWithContext(ctx, "Computing layout...")
	spinner.Start()

	layouts, report, cacheHit, err := runner.LayoutWithCacheInfo(ctx, timelines, opts)
	if err != nil {
		spinner.StopWithError("Layout failed")
		return fmt.Errorf("compute layout: %w", err)
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	outputPath := output
	if outputPath == "" {
		base := strings.TrimSuffix(input, filepath.Ext(input))
		base = strings.TrimSuffix(base, ".timelines")
		outputPath = base + ".layout.json"
	}

	if err := layout.WriteFile(layouts, outputPath); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}

	nodeCount := 0
	for i := range layouts {
		nodeCount += len(layouts[i].Nodes)
	}

	printSuccess("Layout complete")
	printFile(outputPath)
	printStats(len(layouts), nodeCount, cacheHit)
	printDiagnostics(report.Messages())
	if skipped := len(timelines) - len(layouts); skipped > 0 {
		printWarning("%d timeline(s) skipped due to structural errors", skipped)
	}
	printNewline()
	printNextStep("Render", "studyflow render "+input)

	return nil
}
