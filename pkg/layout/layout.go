// Package layout turns built timeline flows into positioned, serializable
// layouts consumed by the renderers.
package layout

import (
	"encoding/json"
	"fmt"
	"os"
)

// =============================================================================
// Options - Spacing Constants
// =============================================================================

// Options controls the spacing arithmetic of the layout.
// Zero-value fields are replaced by defaults; use DefaultOptions for the
// canonical spacing.
type Options struct {
	HorizontalSpacing float64 `json:"horizontal_spacing,omitempty" bson:"horizontal_spacing,omitempty"`
	VerticalSpacing   float64 `json:"vertical_spacing,omitempty" bson:"vertical_spacing,omitempty"`
	BranchRowHeight   float64 `json:"branch_row_height,omitempty" bson:"branch_row_height,omitempty"`
	MarginLeft        float64 `json:"margin_left,omitempty" bson:"margin_left,omitempty"`
	MarginTop         float64 `json:"margin_top,omitempty" bson:"margin_top,omitempty"`
	MarginRight       float64 `json:"margin_right,omitempty" bson:"margin_right,omitempty"`
	MarginBottom      float64 `json:"margin_bottom,omitempty" bson:"margin_bottom,omitempty"`
	NodeRadius        float64 `json:"node_radius,omitempty" bson:"node_radius,omitempty"`
}

// DefaultOptions returns the canonical spacing used by the renderers.
func DefaultOptions() Options {
	return Options{
		HorizontalSpacing: 250,
		VerticalSpacing:   150,
		BranchRowHeight:   120,
		MarginLeft:        50,
		MarginTop:         50,
		MarginRight:       50,
		MarginBottom:      200,
		NodeRadius:        40,
	}
}

// withDefaults fills zero-valued fields from DefaultOptions.
func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.HorizontalSpacing == 0 {
		o.HorizontalSpacing = def.HorizontalSpacing
	}
	if o.VerticalSpacing == 0 {
		o.VerticalSpacing = def.VerticalSpacing
	}
	if o.BranchRowHeight == 0 {
		o.BranchRowHeight = def.BranchRowHeight
	}
	if o.MarginLeft == 0 {
		o.MarginLeft = def.MarginLeft
	}
	if o.MarginTop == 0 {
		o.MarginTop = def.MarginTop
	}
	if o.MarginRight == 0 {
		o.MarginRight = def.MarginRight
	}
	if o.MarginBottom == 0 {
		o.MarginBottom = def.MarginBottom
	}
	if o.NodeRadius == 0 {
		o.NodeRadius = def.NodeRadius
	}
	return o
}

// =============================================================================
// Layout - Positioned Timeline
// =============================================================================

// Node is a positioned timeline node.
type Node struct {
	ID          string  `json:"id" bson:"id"`
	Label       string  `json:"label,omitempty" bson:"label,omitempty"`
	Description string  `json:"description,omitempty" bson:"description,omitempty"`
	Kind        string  `json:"kind" bson:"kind"` // "entry", "exit", "activity", "decision"
	X           float64 `json:"x" bson:"x"`
	Y           float64 `json:"y" bson:"y"`
	Column      int     `json:"column" bson:"column"`
	Row         int     `json:"row" bson:"row"` // 0 = main chain, >0 = orphan stagger row
	Orphan      bool    `json:"orphan,omitempty" bson:"orphan,omitempty"`
}

// Edge is a classified edge between two positioned nodes.
type Edge struct {
	From  string `json:"from" bson:"from"`
	To    string `json:"to" bson:"to"`
	Class string `json:"class" bson:"class"` // "main", "conditional", "timing"
	Label string `json:"label,omitempty" bson:"label,omitempty"`
}

// TimingMark is a positioned timing-relationship marker placed below the
// centerline at the horizontal midpoint of its endpoints.
type TimingMark struct {
	ID          string  `json:"id" bson:"id"`
	Label       string  `json:"label,omitempty" bson:"label,omitempty"`
	Type        string  `json:"type,omitempty" bson:"type,omitempty"`
	From        string  `json:"from" bson:"from"`
	To          string  `json:"to" bson:"to"`
	Value       string  `json:"value,omitempty" bson:"value,omitempty"`
	ValueLabel  string  `json:"value_label,omitempty" bson:"value_label,omitempty"`
	WindowLabel string  `json:"window_label,omitempty" bson:"window_label,omitempty"`
	Anchor      bool    `json:"anchor,omitempty" bson:"anchor,omitempty"` // fixed-reference marker
	X           float64 `json:"x" bson:"x"`
	Y           float64 `json:"y" bson:"y"`
}

// Layout is the positioned form of one timeline, ready for rendering.
// It is derived, never persisted beyond intermediate files, and self-contained:
// rendering needs no access to the source timeline.
type Layout struct {
	TimelineID     string  `json:"timeline_id" bson:"timeline_id"`
	Name           string  `json:"name,omitempty" bson:"name,omitempty"`
	EntryCondition string  `json:"entry_condition,omitempty" bson:"entry_condition,omitempty"`
	Width          float64 `json:"width" bson:"width"`
	Height         float64 `json:"height" bson:"height"`
	Centerline     float64 `json:"centerline" bson:"centerline"`
	NodeRadius     float64 `json:"node_radius" bson:"node_radius"`

	Nodes   []Node       `json:"nodes" bson:"nodes"`
	Edges   []Edge       `json:"edges,omitempty" bson:"edges,omitempty"`
	Timings []TimingMark `json:"timings,omitempty" bson:"timings,omitempty"`

	// Warnings lists the formatted diagnostics collected while building this
	// timeline, surfaced by the HTML renderer.
	Warnings []string `json:"warnings,omitempty" bson:"warnings,omitempty"`
}

// Node returns the positioned node with the given ID, or nil.
func (l *Layout) Node(id string) *Node {
	for i := range l.Nodes {
		if l.Nodes[i].ID == id {
			return &l.Nodes[i]
		}
	}
	return nil
}

// =============================================================================
// Serialization API
// =============================================================================

// Marshal serializes layouts to pretty-printed JSON bytes.
// Output ordering is deterministic: it follows the slice order.
func Marshal(layouts []Layout) ([]byte, error) {
	return json.MarshalIndent(layouts, "", "  ")
}

// Unmarshal deserializes JSON bytes into layouts.
func Unmarshal(data []byte) ([]Layout, error) {
	var layouts []Layout
	if err := json.Unmarshal(data, &layouts); err != nil {
		return nil, fmt.Errorf("unmarshal layouts: %w", err)
	}
	return layouts, nil
}

// WriteFile writes layouts to a JSON file.
func WriteFile(layouts []Layout, path string) error {
	data, err := Marshal(layouts)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadFile reads layouts from a JSON file.
func ReadFile(path string) ([]Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Unmarshal(data)
}
