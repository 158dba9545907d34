package svg

import (
	"strings"
	"testing"

	"github.com/clinviz/studyflow/pkg/layout"
)

func fixtureLayout() *layout.Layout {
	return &layout.Layout{
		TimelineID: "tl-1",
		Name:       "Main Timeline",
		Width:      800,
		Height:     500,
		Centerline: 170,
		NodeRadius: 40,
		Nodes: []layout.Node{
			{ID: "E", Label: "Start", Kind: "entry", X: 50, Y: 170},
			{ID: "D", Label: "Eligible?", Kind: "decision", X: 300, Y: 170},
			{ID: "O", Label: "Early Term", Kind: "activity", X: 550, Y: 50, Row: 1, Orphan: true},
			{ID: "X", Label: "Exit", Kind: "exit", X: 550, Y: 170},
		},
		Edges: []layout.Edge{
			{From: "E", To: "D", Class: "main"},
			{From: "D", To: "X", Class: "main"},
			{From: "D", To: "O", Class: "conditional", Label: "Not eligible"},
		},
		Timings: []layout.TimingMark{
			{ID: "T1", From: "E", To: "D", ValueLabel: "7 days", WindowLabel: "+/- 1 day", X: 175, Y: 320},
			{ID: "T2", From: "E", To: "E", ValueLabel: "Day 0", Anchor: true, X: 50, Y: 320},
		},
	}
}

func TestRenderBytes(t *testing.T) {
	data, err := RenderBytes(fixtureLayout())
	if err != nil {
		t.Fatalf("RenderBytes: %v", err)
	}
	out := string(data)

	for _, want := range []string{
		"<svg",
		"</svg>",
		"Main Timeline",
		"Start",
		"Eligible?",
		"Not eligible",
		"7 days",
		"+/- 1 day",
		"Day 0",
		"stroke-dasharray:6,4", // conditional edge
		"<polygon",             // decision diamond
	} {
		if !strings.Contains(out, want) {
			t.Errorf("SVG missing %q", want)
		}
	}
}

func TestRenderOrphanColor(t *testing.T) {
	data, err := RenderBytes(fixtureLayout())
	if err != nil {
		t.Fatalf("RenderBytes: %v", err)
	}
	if !strings.Contains(string(data), colorOrphan) {
		t.Error("orphan node not rendered in orphan color")
	}
}

func TestRenderDeterministic(t *testing.T) {
	l := fixtureLayout()
	a, _ := RenderBytes(l)
	b, _ := RenderBytes(l)
	if string(a) != string(b) {
		t.Error("SVG output differs between runs")
	}
}
