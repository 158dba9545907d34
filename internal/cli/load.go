package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/clinviz/studyflow/pkg/usdm"
)

// loadCommand creates the load command for extracting timelines.
func (c *CLI) loadCommand() *cobra.Command {
	var (
		design  string
		output  string
		noCache bool
		refresh bool
	)

	cmd := &cobra.Command{
		Use:   "load [study.json]",
		Short: "Extract schedule timelines from a USDM study definition",
		Long: `Extract schedule timelines from a USDM study definition.

The load command reads a USDM wrapper document (or a hand-authored YAML
timeline file) and writes the extracted timelines as a JSON file. That file
is the input for the 'layout' command, and can be inspected or edited by hand.

Wrapper documents can carry several study designs; use --design to pick one
by index or id. Results are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLoad(cmd.Context(), args[0], design, output, noCache, refresh)
		},
	}

	cmd.Flags().StringVarP(&design, "design", "d", "", "study design selector: index or id (default: first design)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.timelines.json)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the cache and reload")

	return cmd
}

// runLoad extracts timelines and writes the intermediate file.
func (c *CLI) runLoad(ctx context.Context, input, design, output string, noCache, refresh bool) error {
	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	opts := c.pipelineOptions()
	opts.Input = input
	opts.Design = design
	opts.Refresh = refresh

	prog := newProgress(c.Logger)
	timelines, designInfo, report, cacheHit, err := runner.LoadWithCacheInfo(ctx, opts)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Extracted %d timelines", len(timelines)))

	outputPath := output
	if outputPath == "" {
		base := strings.TrimSuffix(input, filepath.Ext(input))
		outputPath = base + ".timelines.json"
	}

	if err := usdm.WriteTimelinesFile(timelines, outputPath); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}

	nodeCount := 0
	for i := range timelines {
		nodeCount += len(timelines[i].Nodes)
	}

	printSuccess("Load complete")
	printFile(outputPath)
	if designInfo != nil {
		printDetail("design %s (%d in document)", designInfo.Name, designInfo.Count)
	}
	printStats(len(timelines), nodeCount, cacheHit)
	printDiagnostics(report.Messages())
	printNewline()
	printNextStep("Layout", "studyflow layout "+outputPath)

	return nil
}
