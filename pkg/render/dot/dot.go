// Package dot renders timeline layouts as Graphviz DOT and rasterized
// variants. Unlike the HTML and SVG renderers, positions are delegated to
// Graphviz; only node identity, shape, and edge classes carry over.
package dot

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/clinviz/studyflow/pkg/layout"
)

// Options configures DOT rendering.
type Options struct {
	// Detailed includes node descriptions in labels.
	Detailed bool
}

// ToDOT converts a positioned layout to Graphviz DOT. The resulting DOT
// string can be rendered with [RenderSVG] or [RenderPNG].
//
// Node shape follows the node kind: ellipses for entry and exit points,
// diamonds for decisions, rounded boxes for activities. Conditional edges
// are dashed and labeled with their condition.
func ToDOT(l *layout.Layout, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.6;\n")
	buf.WriteString("  nodesep=0.4;\n")
	if l.Name != "" {
		fmt.Fprintf(&buf, "  label=%q;\n", l.Name)
		buf.WriteString("  labelloc=t;\n")
	}
	buf.WriteString("\n")

	for _, n := range l.Nodes {
		attrs := nodeAttrs(n, opts.Detailed)
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range l.Edges {
		attrs := edgeAttrs(e)
		if len(attrs) > 0 {
			fmt.Fprintf(&buf, "  %q -> %q [%s];\n", e.From, e.To, strings.Join(attrs, ", "))
		} else {
			fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
		}
	}

	for _, tm := range l.Timings {
		id := "timing-" + tm.ID
		fmt.Fprintf(&buf, "  %q [label=%q, shape=note, fontsize=11, fillcolor=lightyellow, style=filled];\n", id, timingLabel(tm))
		fmt.Fprintf(&buf, "  %q -> %q [style=dotted, arrowhead=none];\n", tm.From, id)
		fmt.Fprintf(&buf, "  %q -> %q [style=dotted];\n", id, tm.To)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeAttrs(n layout.Node, detailed bool) []string {
	label := n.Label
	if label == "" {
		label = n.ID
	}
	if detailed && n.Description != "" {
		label += "\n" + n.Description
	}

	attrs := []string{fmt.Sprintf("label=%q", label)}
	switch n.Kind {
	case "entry":
		attrs = append(attrs, "shape=ellipse", "style=filled", "fillcolor=lightgreen")
	case "exit":
		attrs = append(attrs, "shape=ellipse", "style=filled", "fillcolor=lightcoral")
	case "decision":
		attrs = append(attrs, "shape=diamond", "style=filled", "fillcolor=lightgoldenrod")
	default:
		attrs = append(attrs, "shape=box", "style=\"rounded,filled\"", "fillcolor=white")
	}
	if n.Orphan {
		attrs = append(attrs, "color=grey40")
	}
	return attrs
}

func edgeAttrs(e layout.Edge) []string {
	var attrs []string
	if e.Class == "conditional" {
		attrs = append(attrs, "style=dashed")
	}
	if e.Label != "" {
		attrs = append(attrs, fmt.Sprintf("label=%q", e.Label), "fontsize=11")
	}
	return attrs
}

func timingLabel(tm layout.TimingMark) string {
	parts := []string{}
	if tm.Label != "" {
		parts = append(parts, tm.Label)
	}
	if tm.ValueLabel != "" {
		parts = append(parts, tm.ValueLabel)
	}
	if tm.WindowLabel != "" {
		parts = append(parts, tm.WindowLabel)
	}
	if len(parts) == 0 {
		parts = append(parts, tm.ID)
	}
	return strings.Join(parts, "\n")
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	return render(ctx, dot, graphviz.SVG)
}

// RenderPNG renders a DOT graph to PNG using Graphviz.
func RenderPNG(ctx context.Context, dot string) ([]byte, error) {
	return render(ctx, dot, graphviz.PNG)
}

func render(ctx context.Context, dot string, format graphviz.Format) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
