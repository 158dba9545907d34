// Package cli implements the studyflow command-line interface.
//
// This package provides commands for loading USDM study definitions,
// computing timeline layouts, rendering them in several formats, and serving
// a live preview. The CLI is built using cobra and supports verbose logging
// via the charmbracelet/log library.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/clinviz/studyflow/pkg/buildinfo"
	"github.com/clinviz/studyflow/pkg/cache"
	"github.com/clinviz/studyflow/pkg/pipeline"
)

// appName is the application name used for directories and display.
const appName = "studyflow"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config *Config
}

// New creates a new CLI instance with a default logger and the user's
// configuration file (if one exists).
func New(w io.Writer, level log.Level) *CLI {
	cfg, err := LoadConfig("")
	c := &CLI{
		Logger: newLogger(w, level),
		Config: cfg,
	}
	if err != nil {
		c.Logger.Warn("ignoring config file", "err", err)
	}
	return c
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "studyflow",
		Short:        "Studyflow visualizes USDM schedule timelines",
		Long:         `Studyflow is a CLI tool for turning USDM study definitions into schedule timeline diagrams, making the flow of visits, decisions, and timing constraints visible.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	// Register all subcommands
	root.AddCommand(c.loadCommand())
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.previewCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use. The cache backend and
// key namespace come from the config file unless caching is disabled.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	store, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	var keyer cache.Keyer
	if ns := c.Config.Cache.Namespace; ns != "" {
		keyer = cache.NewScopedKeyer(nil, ns+":")
	}
	return pipeline.NewRunner(store, keyer, c.Logger), nil
}

func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch c.Config.Cache.Backend {
	case CacheBackendNone:
		return cache.NewNullCache(), nil
	case CacheBackendRedis:
		return cache.NewRedisCache(ctx, c.Config.Cache.RedisAddr)
	default:
		dir, err := cacheDir()
		if err != nil {
			c.Logger.Warn("caching disabled: cannot resolve cache directory", "err", err)
			return cache.NewNullCache(), nil
		}
		return cache.NewFileCache(dir)
	}
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/studyflow/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// pipelineOptions builds pipeline options seeded from the config file.
func (c *CLI) pipelineOptions() pipeline.Options {
	opts := pipeline.Options{
		Layout: c.Config.LayoutOptions(),
		Logger: c.Logger,
	}
	return opts
}
