package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/clinviz/studyflow/pkg/pipeline"
)

// previewCommand creates the preview command serving a live HTML preview.
func (c *CLI) previewCommand() *cobra.Command {
	var (
		addr    string
		design  string
		title   string
		noCache bool
	)
	opts := c.pipelineOptions()

	cmd := &cobra.Command{
		Use:   "preview [study.json]",
		Short: "Serve a live HTML preview of the timelines",
		Long: `Serve a live HTML preview of the timelines.

The preview command runs a local HTTP server that renders the input on every
page load, so edits to the source file show up on refresh. Responses are sent
with no-store headers to keep the browser from caching stale pages.

Endpoints:

  /            the rendered HTML page
  /api/status  pipeline stats and diagnostics as JSON`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Input = args[0]
			opts.Design = design
			opts.Title = title
			opts.Formats = []string{pipeline.FormatHTML}
			return c.runPreview(cmd.Context(), opts, addr, noCache)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "localhost:8917", "listen address")
	cmd.Flags().StringVarP(&design, "design", "d", "", "study design selector: index or id (default: first design)")
	cmd.Flags().StringVar(&title, "title", "", "page title")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable pipeline caching")

	return cmd
}

// runPreview serves the preview until the context is cancelled.
func (c *CLI) runPreview(ctx context.Context, opts pipeline.Options, addr string, noCache bool) error {
	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(noStore)

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		result, err := runner.Execute(req.Context(), opts)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(result.Artifacts[pipeline.FormatHTML])
	})

	r.Get("/api/status", func(w http.ResponseWriter, req *http.Request) {
		result, err := runner.Execute(req.Context(), opts)
		w.Header().Set("Content-Type", "application/json")
		if err != nil {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}
		_ = json.NewEncoder(w).Encode(statusResponse(result))
	})

	srv := &http.Server{
		Addr:        addr,
		Handler:     r,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	printSuccess("Preview running")
	printDetail("http://%s", addr)
	printDetail("Ctrl+C to stop")

	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}

// noStore disables browser caching so file edits show on reload.
func noStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// statusResponse summarizes a pipeline run for the status endpoint.
func statusResponse(result *pipeline.Result) map[string]any {
	return map[string]any{
		"timelines":   result.Stats.TimelineCount,
		"nodes":       result.Stats.NodeCount,
		"layouts":     len(result.Layouts),
		"diagnostics": result.Report.Messages(),
		"cache": map[string]bool{
			"load":   result.CacheInfo.LoadHit,
			"layout": result.CacheInfo.LayoutHit,
			"render": result.CacheInfo.RenderHit,
		},
	}
}
