package dot

import (
	"strings"
	"testing"

	"github.com/clinviz/studyflow/pkg/layout"
)

func fixtureLayout() *layout.Layout {
	return &layout.Layout{
		TimelineID: "tl-1",
		Name:       "Main Timeline",
		Nodes: []layout.Node{
			{ID: "E", Label: "Start", Kind: "entry"},
			{ID: "D", Label: "Eligible?", Kind: "decision"},
			{ID: "A", Label: "Treatment", Description: "54 mg daily", Kind: "activity"},
			{ID: "O", Label: "Early Term", Kind: "activity", Orphan: true},
			{ID: "X", Label: "Exit", Kind: "exit"},
		},
		Edges: []layout.Edge{
			{From: "E", To: "D", Class: "main"},
			{From: "D", To: "A", Class: "main"},
			{From: "D", To: "O", Class: "conditional", Label: "Not eligible"},
			{From: "A", To: "X", Class: "main"},
		},
		Timings: []layout.TimingMark{
			{ID: "T1", Label: "Dosing", From: "E", To: "A", ValueLabel: "7 days"},
		},
	}
}

func TestToDOT(t *testing.T) {
	dot := ToDOT(fixtureLayout(), Options{})

	for _, want := range []string{
		"digraph G {",
		"rankdir=LR;",
		`label="Main Timeline";`,
		`"E" [label="Start", shape=ellipse, style=filled, fillcolor=lightgreen];`,
		`"D" [label="Eligible?", shape=diamond`,
		`"X" [label="Exit", shape=ellipse, style=filled, fillcolor=lightcoral];`,
		`"E" -> "D";`,
		`"D" -> "O" [style=dashed, label="Not eligible", fontsize=11];`,
		`"timing-T1"`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
}

func TestToDOTDetailed(t *testing.T) {
	dot := ToDOT(fixtureLayout(), Options{Detailed: true})
	if !strings.Contains(dot, "Treatment\\n54 mg daily") {
		t.Errorf("detailed DOT missing description:\n%s", dot)
	}
}

func TestToDOTOrphanStyling(t *testing.T) {
	dot := ToDOT(fixtureLayout(), Options{})
	if !strings.Contains(dot, "color=grey40") {
		t.Errorf("orphan node missing grey outline:\n%s", dot)
	}
}

func TestToDOTDeterministic(t *testing.T) {
	l := fixtureLayout()
	if ToDOT(l, Options{}) != ToDOT(l, Options{}) {
		t.Error("DOT output differs between runs")
	}
}
