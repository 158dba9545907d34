package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/clinviz/studyflow/pkg/pipeline"
	"github.com/clinviz/studyflow/pkg/timeline"
)

// renderCommand creates the render command for producing diagram files.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		formatsStr  string
		output      string
		design      string
		title       string
		detailed    bool
		interactive bool
		noCache     bool
		refresh     bool
	)
	opts := c.pipelineOptions()

	cmd := &cobra.Command{
		Use:   "render [study.json]",
		Short: "Render schedule timelines to diagram files",
		Long: `Render schedule timelines to diagram files.

The render command runs the complete load, layout, and render pipeline on a
USDM study definition, an authored YAML file, or an extracted timelines JSON
file. Output formats:

  html   interactive D3 page with all timelines (default)
  svg    one static image per timeline
  png    one raster image per timeline (via Graphviz)
  dot    one Graphviz source file per timeline
  json   positioned layout data

With --interactive, a picker narrows a multi-timeline study down to one
timeline before rendering.

Results are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formats, err := pipeline.ParseFormats(formatsStr)
			if err != nil {
				return err
			}
			opts.Input = args[0]
			opts.Design = design
			opts.Formats = formats
			opts.Title = title
			opts.Detailed = detailed
			opts.Refresh = refresh
			return c.runRender(cmd.Context(), opts, output, noCache, interactive)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (single artifact) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): html (default), svg, png, dot, json (comma-separated)")
	cmd.Flags().StringVarP(&design, "design", "d", "", "study design selector: index or id (default: first design)")
	cmd.Flags().StringVar(&title, "title", "", "page title for HTML output")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "include node descriptions in DOT labels")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "pick one timeline interactively")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the cache and re-render")

	return cmd
}

// runRender executes the pipeline and writes the rendered artifacts.
func (c *CLI) runRender(ctx context.Context, opts pipeline.Options, output string, noCache, interactive bool) error {
	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	var result *pipeline.Result
	if interactive {
		result, err = c.renderInteractive(ctx, runner, opts)
	} else {
		spinner := newSpinnerWithContext(ctx, "Rendering timelines...")
		spinner.Start()
		result, err = runner.Execute(ctx, opts)
		if err != nil {
			spinner.StopWithError("Render failed")
			return err
		}
		spinner.Stop()
	}
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	paths, err := writeArtifacts(result.Artifacts, opts.Input, output)
	if err != nil {
		return err
	}

	printSuccess("Render complete")
	for _, p := range paths {
		printFile(p)
	}
	allHit := result.CacheInfo.LoadHit && result.CacheInfo.LayoutHit && result.CacheInfo.RenderHit
	printStats(result.Stats.TimelineCount, result.Stats.NodeCount, allHit)
	printDiagnostics(result.Report.Messages())

	return nil
}

// renderInteractive loads first, lets the user pick a timeline, and renders
// only that timeline.
func (c *CLI) renderInteractive(ctx context.Context, runner *pipeline.Runner, opts pipeline.Options) (*pipeline.Result, error) {
	timelines, design, report, err := runner.Load(ctx, opts)
	if err != nil {
		return nil, err
	}
	printDiagnostics(report.Messages())

	selected, err := selectTimeline(timelines)
	if err != nil {
		return nil, err
	}

	result := &pipeline.Result{Report: &timeline.Report{}}
	result.Design = design
	result.Timelines = []timeline.Timeline{*selected}
	result.Stats.TimelineCount = 1
	result.Stats.NodeCount = len(selected.Nodes)

	layouts, layoutReport, layoutHit, err := runner.LayoutWithCacheInfo(ctx, result.Timelines, opts)
	if err != nil {
		return nil, err
	}
	result.Layouts = layouts
	result.Report.Merge(layoutReport)
	result.CacheInfo.LayoutHit = layoutHit

	artifacts, renderHit, err := runner.RenderWithCacheInfo(ctx, layouts, opts)
	if err != nil {
		return nil, err
	}
	result.Artifacts = artifacts
	result.CacheInfo.LoadHit = true
	result.CacheInfo.RenderHit = renderHit

	return result, nil
}

// writeArtifacts writes rendered artifacts next to the input (or to the
// --output base) and returns the written paths in deterministic order.
func writeArtifacts(artifacts map[string][]byte, input, output string) ([]string, error) {
	base := output
	if base == "" {
		base = strings.TrimSuffix(input, filepath.Ext(input))
		base = strings.TrimSuffix(base, ".timelines")
	} else {
		base = strings.TrimSuffix(base, filepath.Ext(base))
	}

	names := make([]string, 0, len(artifacts))
	for name := range artifacts {
		names = append(names, name)
	}
	sort.Strings(names)

	// Single artifact with an explicit --output keeps the exact path.
	if len(names) == 1 && output != "" && filepath.Ext(output) != "" {
		if err := os.WriteFile(output, artifacts[names[0]], 0644); err != nil {
			return nil, fmt.Errorf("write %s: %w", output, err)
		}
		return []string{output}, nil
	}

	var paths []string
	for _, name := range names {
		path := artifactPath(base, name)
		if err := os.WriteFile(path, artifacts[name], 0644); err != nil {
			return nil, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// artifactPath maps an artifact name ("html", "svg:tl-1") to a file path.
func artifactPath(base, name string) string {
	format, timelineID, found := strings.Cut(name, ":")
	if found {
		return base + "-" + sanitizeFilename(timelineID) + "." + format
	}
	return base + "." + format
}

// sanitizeFilename replaces path separators in timeline IDs.
func sanitizeFilename(s string) string {
	s = strings.ReplaceAll(s, string(filepath.Separator), "-")
	return strings.ReplaceAll(s, "/", "-")
}
