// Package cache provides content-addressed caching for the pipeline stages.
//
// Keys are derived from content hashes, so a cache hit means the exact same
// input, selector, and options were processed before. Backends cover local
// CLI usage (FileCache), shared deployments (RedisCache), and disabled
// caching (NullCache).
package cache

import (
	"context"
	"time"
)

// TTLs per pipeline stage. Extracted timelines and layouts are cheap to
// rebuild; rendered artifacts are kept longer because rasterization is the
// slow step.
const (
	TTLTimelines = 24 * time.Hour
	TTLLayout    = 24 * time.Hour
	TTLArtifact  = 7 * 24 * time.Hour
)

// Cache is the backend interface shared by all stores.
// A missing key is (nil, false, nil), never an error.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Keyer generates cache keys for the pipeline stages.
type Keyer interface {
	// DocumentKey keys extracted timelines by source document hash and
	// design selector.
	DocumentKey(docHash string, opts DocumentKeyOpts) string
	// LayoutKey keys positioned layouts by timelines hash and spacing options.
	LayoutKey(timelinesHash string, opts LayoutKeyOpts) string
	// ArtifactKey keys rendered artifacts by layout hash and output format.
	ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string
}

// DocumentKeyOpts captures everything besides the document bytes that
// changes which timelines come out of the load stage.
type DocumentKeyOpts struct {
	DesignID    string `json:"design_id,omitempty"`
	DesignIndex int    `json:"design_index,omitempty"`
}

// LayoutKeyOpts captures the spacing options that shape a layout.
type LayoutKeyOpts struct {
	HorizontalSpacing float64 `json:"horizontal_spacing,omitempty"`
	VerticalSpacing   float64 `json:"vertical_spacing,omitempty"`
	BranchRowHeight   float64 `json:"branch_row_height,omitempty"`
}

// ArtifactKeyOpts captures the rendering options that shape an artifact.
type ArtifactKeyOpts struct {
	Format   string `json:"format"`
	Title    string `json:"title,omitempty"`
	Detailed bool   `json:"detailed,omitempty"`
}

// DefaultKeyer is the standard key generator.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard key generator.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// DocumentKey generates a key for extracted timelines.
func (k *DefaultKeyer) DocumentKey(docHash string, opts DocumentKeyOpts) string {
	return hashKey("timelines", docHash, opts)
}

// LayoutKey generates a key for positioned layouts.
func (k *DefaultKeyer) LayoutKey(timelinesHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", timelinesHash, opts)
}

// ArtifactKey generates a key for rendered artifacts.
func (k *DefaultKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", layoutHash, opts)
}

// Ensure DefaultKeyer implements Keyer.
var _ Keyer = (*DefaultKeyer)(nil)
