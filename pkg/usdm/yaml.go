package usdm

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/clinviz/studyflow/pkg/timeline"
)

// =============================================================================
// YAML Authoring Format
// =============================================================================

// yamlDocument is the hand-authored timeline file shape: either a single
// timeline or a list under "timelines".
type yamlDocument struct {
	Timelines    []yamlTimeline `yaml:"timelines"`
	yamlTimeline `yaml:",inline"`
}

type yamlTimeline struct {
	ID             string       `yaml:"id"`
	Name           string       `yaml:"name"`
	Entry          string       `yaml:"entry"`
	EntryCondition string       `yaml:"entryCondition"`
	Nodes          []yamlNode   `yaml:"nodes"`
	Timings        []yamlTiming `yaml:"timings"`
}

type yamlNode struct {
	ID          string       `yaml:"id"`
	Kind        string       `yaml:"kind"`
	Label       string       `yaml:"label"`
	Description string       `yaml:"description"`
	Next        string       `yaml:"next"`
	Branches    []yamlBranch `yaml:"branches"`
}

type yamlBranch struct {
	Condition string `yaml:"condition"`
	Target    string `yaml:"target"`
}

type yamlTiming struct {
	ID     string `yaml:"id"`
	Label  string `yaml:"label"`
	From   string `yaml:"from"`
	To     string `yaml:"to"`
	Value  string `yaml:"value"`
	Window string `yaml:"window"`
	Anchor bool   `yaml:"anchor"`
}

// LoadYAML reads a hand-authored YAML timeline file. The format mirrors the
// extracted model and exists for quick authoring and tests: a single timeline
// at the top level, or several under a "timelines" key.
func LoadYAML(path string) ([]timeline.Timeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return DecodeYAML(data)
}

// DecodeYAML decodes YAML timeline bytes.
func DecodeYAML(data []byte) ([]timeline.Timeline, error) {
	var doc yamlDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	raw := doc.Timelines
	if len(raw) == 0 && len(doc.Nodes) > 0 {
		raw = []yamlTimeline{doc.yamlTimeline}
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("no timelines in document")
	}

	timelines := make([]timeline.Timeline, 0, len(raw))
	for i := range raw {
		tl, err := yamlToTimeline(&raw[i])
		if err != nil {
			return nil, err
		}
		timelines = append(timelines, tl)
	}
	return timelines, nil
}

func yamlToTimeline(y *yamlTimeline) (timeline.Timeline, error) {
	tl := timeline.Timeline{
		ID:             y.ID,
		Name:           y.Name,
		EntryID:        y.Entry,
		EntryCondition: y.EntryCondition,
	}
	if tl.EntryID == "" && len(y.Nodes) > 0 {
		tl.EntryID = y.Nodes[0].ID
	}

	for _, n := range y.Nodes {
		kind, ok := timeline.ParseKind(n.Kind)
		if !ok && n.Kind != "" {
			return timeline.Timeline{}, fmt.Errorf("timeline %s: node %s: unknown kind %q", y.ID, n.ID, n.Kind)
		}
		node := timeline.Node{
			ID:            n.ID,
			Label:         n.Label,
			Description:   n.Description,
			Kind:          kind,
			DefaultNextID: n.Next,
		}
		for _, b := range n.Branches {
			node.Branches = append(node.Branches, timeline.Branch{Condition: b.Condition, TargetID: b.Target})
		}
		tl.Nodes = append(tl.Nodes, node)
	}

	for _, t := range y.Timings {
		tl.Timings = append(tl.Timings, timeline.Timing{
			ID:             t.ID,
			Label:          t.Label,
			FromID:         t.From,
			ToID:           t.To,
			Value:          t.Value,
			ValueLabel:     t.Value,
			WindowLabel:    t.Window,
			FixedReference: t.Anchor,
		})
	}

	return tl, nil
}
