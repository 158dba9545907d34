package html

import (
	"strings"
	"testing"

	"github.com/clinviz/studyflow/pkg/layout"
)

func fixtureLayouts() []layout.Layout {
	return []layout.Layout{
		{
			TimelineID:     "tl-1",
			Name:           "Main Timeline",
			EntryCondition: "Consent signed",
			Width:          800,
			Height:         500,
			NodeRadius:     40,
			Nodes: []layout.Node{
				{ID: "E", Label: "Start", Kind: "entry", X: 50, Y: 170},
				{ID: "X", Label: "Exit", Kind: "exit", X: 300, Y: 170},
			},
			Edges:    []layout.Edge{{From: "E", To: "X", Class: "main"}},
			Warnings: []string{"warning: node orphaned"},
		},
		{
			TimelineID: "tl-2",
			Name:       "Sub Timeline",
			Width:      400,
			Height:     300,
			NodeRadius: 40,
			Nodes:      []layout.Node{{ID: "A", Kind: "activity", X: 50, Y: 100}},
		},
	}
}

func TestRenderBytes(t *testing.T) {
	data, err := RenderBytes(fixtureLayouts(), Options{})
	if err != nil {
		t.Fatalf("RenderBytes: %v", err)
	}
	out := string(data)

	for _, want := range []string{
		"<!DOCTYPE html>",
		"<title>Main Timeline</title>",
		"d3.v7.min.js",
		`"timeline_id":"tl-1"`,
		`"timeline_id":"tl-2"`,
		`"warnings":["warning: node orphaned"]`,
		"drawTimeline(l)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("HTML missing %q", want)
		}
	}
}

func TestRenderTitleOverride(t *testing.T) {
	data, err := RenderBytes(fixtureLayouts(), Options{Title: "Study X"})
	if err != nil {
		t.Fatalf("RenderBytes: %v", err)
	}
	if !strings.Contains(string(data), "<title>Study X</title>") {
		t.Error("title override not applied")
	}
}

func TestRenderEscapesScriptTerminator(t *testing.T) {
	layouts := fixtureLayouts()
	layouts[0].Nodes[0].Description = "bad </script> text"

	data, err := RenderBytes(layouts, Options{})
	if err != nil {
		t.Fatalf("RenderBytes: %v", err)
	}
	if strings.Contains(string(data), "bad </script>") {
		t.Error("embedded JSON can terminate the script block")
	}
}

func TestRenderEmpty(t *testing.T) {
	if _, err := RenderBytes(nil, Options{}); err == nil {
		t.Error("rendering zero layouts should fail")
	}
}
