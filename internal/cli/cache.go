package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage cached pipeline results",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand. The file cache
// shards entries into one subdirectory per pipeline stage, so clearing can
// report what was removed per stage.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove cached timelines, layouts, and rendered artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := cacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}

			stages, err := os.ReadDir(dir)
			if os.IsNotExist(err) {
				printInfo("Cache is empty")
				return nil
			}
			if err != nil {
				return err
			}

			total := 0
			var bytes int64
			perStage := make(map[string]int)
			for _, stage := range stages {
				if !stage.IsDir() {
					continue
				}
				stageDir := filepath.Join(dir, stage.Name())
				entries, err := os.ReadDir(stageDir)
				if err != nil {
					continue
				}
				for _, entry := range entries {
					path := filepath.Join(stageDir, entry.Name())
					if info, err := entry.Info(); err == nil {
						bytes += info.Size()
					}
					if err := os.Remove(path); err == nil {
						total++
						perStage[stage.Name()]++
					}
				}
				_ = os.Remove(stageDir)
			}

			if total == 0 {
				printInfo("Cache is empty")
				return nil
			}

			printSuccess("Cleared %d cached entries (%s)", total, formatBytes(bytes))
			names := make([]string, 0, len(perStage))
			for name := range perStage {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				printDetail("%s: %d", name, perStage[name])
			}
			printDetail("Directory: %s", dir)
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := cacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fmt.Println(dir)
			return nil
		},
	}
}

// formatBytes renders a byte count at a human scale.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMG"[exp])
}
