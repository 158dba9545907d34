// Package timeline defines the in-memory model for USDM schedule timelines
// and the flow builder that turns a timeline into a positioned graph.
//
// A Timeline is a set of typed nodes connected by an unconditional default-next
// pointer, plus optional conditional branches on decision nodes and optional
// timing relationships between node pairs. The Build function walks this
// structure and classifies every node (main chain vs. orphan) and every edge
// (main, conditional, timing) without ever panicking on malformed input:
// integrity problems are collected in a Report instead.
package timeline

import (
	"errors"
	"fmt"
)

var (
	// ErrNoEntry is returned by [Timeline.Entry] when the entry reference
	// does not resolve to a node in the timeline.
	ErrNoEntry = errors.New("entry node not found")
)

// Kind is the closed set of node kinds appearing in a schedule timeline.
// Every site that branches on Kind must handle all four values.
type Kind int

const (
	// KindActivity is a scheduled activity instance (visits, procedures).
	KindActivity Kind = iota
	// KindDecision is a scheduled decision instance carrying conditional branches.
	KindDecision
	// KindEntry marks the node the timeline's entry reference points at.
	KindEntry
	// KindExit is a timeline exit point. Exit nodes have no default-next pointer.
	KindExit
)

// String returns the lowercase name used in serialized layouts and CSS classes.
func (k Kind) String() string {
	switch k {
	case KindDecision:
		return "decision"
	case KindEntry:
		return "entry"
	case KindExit:
		return "exit"
	default:
		return "activity"
	}
}

// ParseKind converts a serialized kind name back to a Kind.
// Returns false for unrecognized names.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "activity":
		return KindActivity, true
	case "decision":
		return KindDecision, true
	case "entry":
		return KindEntry, true
	case "exit":
		return KindExit, true
	}
	return KindActivity, false
}

// MarshalText implements encoding.TextMarshaler so Kind serializes as its name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, ok := ParseKind(string(text))
	if !ok {
		return fmt.Errorf("unknown node kind %q", text)
	}
	*k = parsed
	return nil
}

// Branch is one named alternative path out of a decision node.
type Branch struct {
	Condition string `json:"condition,omitempty" bson:"condition,omitempty"`
	TargetID  string `json:"target_id" bson:"target_id"`
}

// Node is one scheduled point in a timeline.
type Node struct {
	ID          string `json:"id" bson:"id"`
	Label       string `json:"label,omitempty" bson:"label,omitempty"`
	Description string `json:"description,omitempty" bson:"description,omitempty"`
	Kind        Kind   `json:"kind" bson:"kind"`

	// DefaultNextID references the node that follows on the unconditional path.
	// Empty for exit nodes and for chain-terminating nodes.
	DefaultNextID string `json:"default_next_id,omitempty" bson:"default_next_id,omitempty"`

	// Branches lists the conditional targets of a decision node in declared order.
	Branches []Branch `json:"branches,omitempty" bson:"branches,omitempty"`
}

// DisplayLabel returns the label if set, otherwise the ID.
func (n *Node) DisplayLabel() string {
	if n.Label != "" {
		return n.Label
	}
	return n.ID
}

// Timing is a declared temporal constraint between two nodes
// (e.g., "2 weeks after randomization").
type Timing struct {
	ID          string `json:"id" bson:"id"`
	Label       string `json:"label,omitempty" bson:"label,omitempty"`
	Type        string `json:"type,omitempty" bson:"type,omitempty"`
	FromID      string `json:"from_id" bson:"from_id"`
	ToID        string `json:"to_id" bson:"to_id"`
	Value       string `json:"value,omitempty" bson:"value,omitempty"`
	ValueLabel  string `json:"value_label,omitempty" bson:"value_label,omitempty"`
	WindowLabel string `json:"window_label,omitempty" bson:"window_label,omitempty"`

	// FixedReference marks an anchor timing tied to an absolute reference
	// point rather than a relative offset.
	FixedReference bool `json:"fixed_reference,omitempty" bson:"fixed_reference,omitempty"`
}

// Timeline is a named collection of nodes plus the timing relationships
// declared between them. It is constructed once from a parsed document and
// treated as read-only by the builder.
type Timeline struct {
	ID   string `json:"id" bson:"id"`
	Name string `json:"name,omitempty" bson:"name,omitempty"`

	// EntryID references the node that starts the main chain.
	EntryID string `json:"entry_id" bson:"entry_id"`

	// EntryCondition is the free-text precondition for entering this timeline.
	EntryCondition string `json:"entry_condition,omitempty" bson:"entry_condition,omitempty"`

	Nodes   []Node   `json:"nodes" bson:"nodes"`
	Timings []Timing `json:"timings,omitempty" bson:"timings,omitempty"`
}

// DisplayName returns the name if set, otherwise the ID.
func (t *Timeline) DisplayName() string {
	if t.Name != "" {
		return t.Name
	}
	return t.ID
}

// Entry returns the entry node, or ErrNoEntry if the entry reference
// does not resolve.
func (t *Timeline) Entry() (*Node, error) {
	for i := range t.Nodes {
		if t.Nodes[i].ID == t.EntryID {
			return &t.Nodes[i], nil
		}
	}
	return nil, ErrNoEntry
}
