package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/clinviz/studyflow/pkg/cache"
	"github.com/clinviz/studyflow/pkg/errors"
	"github.com/clinviz/studyflow/pkg/layout"
	"github.com/clinviz/studyflow/pkg/timeline"
	"github.com/clinviz/studyflow/pkg/usdm"
)

// Runner encapsulates pipeline execution with caching.
// The CLI and the preview server both use this to avoid duplicating caching
// logic.
//
// The Runner is stateless except for the cache and logger; multiple
// goroutines can safely use the same Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// stageEnvelope carries a stage result plus its diagnostics through the
// cache, so a cache hit replays the same warnings a fresh run would produce.
type stageEnvelope[T any] struct {
	Payload     T                     `json:"payload"`
	Diagnostics []timeline.Diagnostic `json:"diagnostics,omitempty"`
}

// Execute runs the complete load → layout → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	r.applyLogger(&opts)

	result := &Result{
		Report:    &timeline.Report{},
		Artifacts: make(map[string][]byte),
	}

	// Stage 1: Load
	loadStart := time.Now()
	timelines, design, loadReport, loadHit, err := r.LoadWithCacheInfo(ctx, opts)
	if err != nil {
		return nil, err
	}
	result.Timelines = timelines
	result.Design = design
	result.Report.Merge(loadReport)
	result.Stats.LoadTime = time.Since(loadStart)
	result.Stats.TimelineCount = len(timelines)
	for i := range timelines {
		result.Stats.NodeCount += len(timelines[i].Nodes)
	}
	result.CacheInfo.LoadHit = loadHit

	if data, err := usdm.MarshalTimelines(timelines); err == nil {
		result.TimelinesHash = cache.Hash(data)
	}

	r.Logger.Info("loaded timelines",
		"timelines", len(timelines),
		"nodes", result.Stats.NodeCount,
		"duration", result.Stats.LoadTime)

	// Stage 2: Layout
	layoutStart := time.Now()
	layouts, layoutReport, layoutHit, err := r.LayoutWithCacheInfo(ctx, timelines, opts)
	if err != nil {
		return nil, err
	}
	result.Layouts = layouts
	result.Report.Merge(layoutReport)
	result.Stats.LayoutTime = time.Since(layoutStart)
	result.CacheInfo.LayoutHit = layoutHit

	r.Logger.Info("computed layouts",
		"layouts", len(layouts),
		"duration", result.Stats.LayoutTime)

	// Stage 3: Render
	renderStart := time.Now()
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, layouts, opts)
	if err != nil {
		return nil, err
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"artifacts", len(artifacts),
		"duration", result.Stats.RenderTime)

	return result, nil
}

// loadPayload is the cached form of the load stage: the extracted timelines
// plus the design selection that produced them.
type loadPayload struct {
	Timelines []timeline.Timeline `json:"timelines"`
	Design    *usdm.DesignInfo    `json:"design,omitempty"`
}

// LoadWithCacheInfo loads timelines with caching and returns cache hit info.
func (r *Runner) LoadWithCacheInfo(ctx context.Context, opts Options) ([]timeline.Timeline, *usdm.DesignInfo, *timeline.Report, bool, error) {
	if err := opts.ValidateForLoad(); err != nil {
		return nil, nil, nil, false, err
	}
	r.applyLogger(&opts)

	// Key on the input bytes, so edits to the source invalidate the entry.
	raw, err := os.ReadFile(opts.Input)
	if err != nil {
		return nil, nil, nil, false, errors.Wrap(errors.ErrCodeFileNotFound, err, "read %s", opts.Input)
	}
	cacheKey := r.Keyer.DocumentKey(cache.Hash(raw), opts.DocumentKeyOpts())

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			var env stageEnvelope[loadPayload]
			if err := json.Unmarshal(data, &env); err == nil {
				return env.Payload.Timelines, env.Payload.Design, &timeline.Report{Diagnostics: env.Diagnostics}, true, nil
			}
		}
	}

	timelines, design, report, err := Load(opts)
	if err != nil {
		return nil, nil, nil, false, err
	}

	env := stageEnvelope[loadPayload]{
		Payload:     loadPayload{Timelines: timelines, Design: design},
		Diagnostics: report.Diagnostics,
	}
	if data, err := json.Marshal(env); err == nil {
		_ = r.Cache.Set(ctx, cacheKey, data, cache.TTLTimelines)
	}

	return timelines, design, report, false, nil
}

// Load is a convenience wrapper that discards the cache hit info.
func (r *Runner) Load(ctx context.Context, opts Options) ([]timeline.Timeline, *usdm.DesignInfo, *timeline.Report, error) {
	timelines, design, report, _, err := r.LoadWithCacheInfo(ctx, opts)
	return timelines, design, report, err
}

// LayoutWithCacheInfo computes layouts with caching and returns cache hit info.
func (r *Runner) LayoutWithCacheInfo(ctx context.Context, timelines []timeline.Timeline, opts Options) ([]layout.Layout, *timeline.Report, bool, error) {
	opts.SetLayoutDefaults()
	r.applyLogger(&opts)

	data, err := usdm.MarshalTimelines(timelines)
	if err != nil {
		return nil, nil, false, errors.Wrap(errors.ErrCodeInternal, err, "serialize timelines for cache key")
	}
	cacheKey := r.Keyer.LayoutKey(cache.Hash(data), opts.LayoutKeyOpts())

	if !opts.Refresh {
		if cached, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			var env stageEnvelope[[]layout.Layout]
			if err := json.Unmarshal(cached, &env); err == nil {
				return env.Payload, &timeline.Report{Diagnostics: env.Diagnostics}, true, nil
			}
		}
	}

	layouts, report := GenerateLayouts(timelines, opts)

	env := stageEnvelope[[]layout.Layout]{Payload: layouts, Diagnostics: report.Diagnostics}
	if encoded, err := json.Marshal(env); err == nil {
		_ = r.Cache.Set(ctx, cacheKey, encoded, cache.TTLLayout)
	}

	return layouts, report, false, nil
}

// GenerateLayouts is a convenience wrapper that discards the cache hit info.
func (r *Runner) GenerateLayouts(ctx context.Context, timelines []timeline.Timeline, opts Options) ([]layout.Layout, *timeline.Report, error) {
	layouts, report, _, err := r.LayoutWithCacheInfo(ctx, timelines, opts)
	return layouts, report, err
}

// RenderWithCacheInfo renders artifacts with caching and returns cache hit info.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, layouts []layout.Layout, opts Options) (map[string][]byte, bool, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}
	r.applyLogger(&opts)

	layoutData, err := layout.Marshal(layouts)
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeInternal, err, "serialize layouts for cache key")
	}
	layoutHash := cache.Hash(layoutData)

	names := artifactNames(layouts, opts)

	// Try to get every artifact from cache.
	if !opts.Refresh {
		artifacts := make(map[string][]byte, len(names))
		allCached := true
		for _, name := range names {
			cacheKey := r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(name))
			if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
				artifacts[name] = data
			} else {
				allCached = false
				break
			}
		}
		if allCached && len(artifacts) == len(names) {
			return artifacts, true, nil
		}
	}

	rendered, err := RenderFromLayouts(ctx, layouts, opts)
	if err != nil {
		return nil, false, err
	}

	for name, data := range rendered {
		cacheKey := r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(name))
		_ = r.Cache.Set(ctx, cacheKey, data, cache.TTLArtifact)
	}

	return rendered, false, nil
}

// Render is a convenience wrapper that discards the cache hit info.
func (r *Runner) Render(ctx context.Context, layouts []layout.Layout, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, layouts, opts)
	return artifacts, err
}

// artifactNames lists the artifact names a render of these layouts produces.
func artifactNames(layouts []layout.Layout, opts Options) []string {
	multi := len(layouts) > 1
	var names []string
	for _, format := range opts.Formats {
		switch format {
		case FormatHTML, FormatJSON:
			names = append(names, format)
		default:
			for i := range layouts {
				names = append(names, ArtifactName(format, layouts[i].TimelineID, multi))
			}
		}
	}
	return names
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
