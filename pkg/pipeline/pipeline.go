// Package pipeline provides the core timeline visualization pipeline.
//
// This package implements the complete load → layout → render pipeline that
// can be used by the CLI and the preview server. By centralizing this logic,
// we ensure consistent behavior across all entry points.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Load: Read a USDM wrapper (or authored YAML / intermediate JSON) and
//     extract its schedule timelines
//  2. Layout: Walk each timeline into a flow and compute node positions
//  3. Render: Generate output in various formats (HTML, SVG, PNG, DOT, JSON)
//
// Each stage can be run independently or as part of the complete pipeline.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    Input:   "study.json",
//	    Formats: []string{"html"},
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	page := result.Artifacts["html"]
package pipeline

import (
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/clinviz/studyflow/pkg/cache"
	"github.com/clinviz/studyflow/pkg/errors"
	"github.com/clinviz/studyflow/pkg/layout"
	"github.com/clinviz/studyflow/pkg/timeline"
	"github.com/clinviz/studyflow/pkg/usdm"
)

// Format constants for output formats.
const (
	FormatHTML = "html"
	FormatSVG  = "svg"
	FormatPNG  = "png"
	FormatDOT  = "dot"
	FormatJSON = "json"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatHTML: true,
	FormatSVG:  true,
	FormatPNG:  true,
	FormatDOT:  true,
	FormatJSON: true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the visualization pipeline.
// This struct supports JSON serialization for preview-server requests.
type Options struct {
	// Load options
	Input   string `json:"input"`
	Design  string `json:"design,omitempty"` // design selector: empty, index, or id
	Refresh bool   `json:"refresh,omitempty"`

	// Layout options
	Layout layout.Options `json:"layout,omitempty"`

	// Render options
	Formats  []string `json:"formats,omitempty"`
	Title    string   `json:"title,omitempty"`
	Detailed bool     `json:"detailed,omitempty"` // include descriptions in DOT labels

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Timelines are the extracted timeline models.
	Timelines []timeline.Timeline

	// Design records the study design selection, nil for inputs without a
	// design level.
	Design *usdm.DesignInfo

	// TimelinesHash is the content hash of the extracted timelines.
	TimelinesHash string

	// Layouts are the positioned timelines, one per extracted timeline that
	// survived the flow build.
	Layouts []layout.Layout

	// Report collects every diagnostic raised while loading and building.
	Report *timeline.Report

	// Artifacts contains rendered outputs keyed by artifact name
	// (see ArtifactName).
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	TimelineCount int
	NodeCount     int
	LoadTime      time.Duration
	LayoutTime    time.Duration
	RenderTime    time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	LoadHit   bool // Whether extracted timelines came from cache
	LayoutHit bool // Whether layouts came from cache
	RenderHit bool // Whether all artifacts came from cache
}

// ArtifactName names one rendered artifact. Page-level formats (html, json)
// cover all timelines in one artifact; per-timeline formats are suffixed with
// the timeline ID when more than one timeline is rendered.
func ArtifactName(format, timelineID string, multi bool) string {
	if format == FormatHTML || format == FormatJSON || !multi {
		return format
	}
	return format + ":" + timelineID
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat,
			"invalid format: %q (must be one of: html, svg, png, dot, json)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ParseFormats splits a comma-separated format list and validates it.
func ParseFormats(s string) ([]string, error) {
	if s == "" {
		return nil, nil
	}
	var formats []string
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(strings.ToLower(f))
		if f == "" {
			continue
		}
		formats = append(formats, f)
	}
	if err := ValidateFormats(formats); err != nil {
		return nil, err
	}
	return formats, nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults for the
// full pipeline. This method is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForLoad(); err != nil {
		return err
	}
	o.SetLayoutDefaults()
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForLoad checks required fields for loading.
func (o *Options) ValidateForLoad() error {
	if o.Input == "" {
		return errors.New(errors.ErrCodeInvalidInput, "input is required")
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return nil
}

// SetLayoutDefaults fills zero-valued spacing fields.
func (o *Options) SetLayoutDefaults() {
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// SetRenderDefaults sets default values for rendering.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatHTML}
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForRender validates and sets defaults for rendering.
func (o *Options) ValidateForRender() error {
	o.SetRenderDefaults()
	return ValidateFormats(o.Formats)
}

// DocumentKeyOpts returns cache key options for the load stage.
func (o *Options) DocumentKeyOpts() cache.DocumentKeyOpts {
	sel := parseSelector(o.Design)
	return cache.DocumentKeyOpts{
		DesignID:    sel.ID,
		DesignIndex: sel.Index,
	}
}

// LayoutKeyOpts returns cache key options for layout computation.
func (o *Options) LayoutKeyOpts() cache.LayoutKeyOpts {
	return cache.LayoutKeyOpts{
		HorizontalSpacing: o.Layout.HorizontalSpacing,
		VerticalSpacing:   o.Layout.VerticalSpacing,
		BranchRowHeight:   o.Layout.BranchRowHeight,
	}
}

// ArtifactKeyOpts returns cache key options for one rendered artifact.
func (o *Options) ArtifactKeyOpts(artifact string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format:   artifact,
		Title:    o.Title,
		Detailed: o.Detailed,
	}
}
