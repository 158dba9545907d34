// Package html renders timeline layouts as a self-contained interactive HTML
// page. The page embeds the layout JSON and draws it client-side with D3, so
// one artifact carries both the picture and the data it came from.
package html

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"text/template"

	"github.com/clinviz/studyflow/pkg/layout"
)

// Options configures HTML rendering.
type Options struct {
	// Title overrides the page title. Defaults to the first timeline name.
	Title string
}

type pageData struct {
	Title      string
	LayoutJSON string
}

// Render writes an HTML page for the given layouts. All timelines share one
// page, each drawn in its own section with its warnings panel underneath.
func Render(layouts []layout.Layout, opts Options, w io.Writer) error {
	if len(layouts) == 0 {
		return fmt.Errorf("no layouts to render")
	}

	data, err := json.Marshal(layouts)
	if err != nil {
		return fmt.Errorf("marshal layouts: %w", err)
	}
	// A "</script>" inside embedded JSON would terminate the script block.
	data = bytes.ReplaceAll(data, []byte("</"), []byte(`<\/`))

	title := opts.Title
	if title == "" {
		title = layouts[0].Name
	}
	if title == "" {
		title = "Schedule Timeline"
	}

	return pageTemplate.Execute(w, pageData{
		Title:      title,
		LayoutJSON: string(data),
	})
}

// RenderBytes renders layouts to HTML bytes.
func RenderBytes(layouts []layout.Layout, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := Render(layouts, opts, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<script src="https://d3js.org/d3.v7.min.js"></script>
<style>
  body { font-family: -apple-system, "Segoe UI", sans-serif; margin: 0; background: #fafafa; color: #263238; }
  h1 { font-size: 22px; margin: 24px 32px 8px; }
  h2 { font-size: 17px; margin: 24px 32px 4px; }
  .entry-condition { margin: 0 32px 8px; font-size: 13px; color: #546e7a; font-style: italic; }
  .timeline { display: block; margin: 0 24px; }
  .node { stroke: #455a64; stroke-width: 2; cursor: pointer; }
  .node.entry { fill: #4caf50; }
  .node.exit { fill: #e57373; }
  .node.activity { fill: #64b5f6; }
  .node.decision { fill: #ffb74d; }
  .node.orphan { fill: #b0bec5; }
  .node:hover { stroke-width: 4; }
  .node-label { font-size: 13px; text-anchor: middle; }
  .edge { stroke: #546e7a; stroke-width: 2; fill: none; }
  .edge.conditional { stroke: #ff8f00; stroke-dasharray: 6,4; }
  .edge-label { font-size: 11px; font-style: italic; text-anchor: middle; fill: #ff8f00; }
  .timing-line { stroke: #8d6e63; stroke-width: 2; }
  .timing-stem { stroke: #8d6e63; stroke-width: 1; stroke-dasharray: 2,3; }
  .timing-anchor { fill: #8d6e63; }
  .timing-label { font-size: 12px; text-anchor: middle; fill: #8d6e63; }
  .timing-window { font-size: 10px; text-anchor: middle; fill: #8d6e63; }
  .warnings { margin: 4px 32px 16px; padding: 10px 14px; background: #fff8e1; border-left: 4px solid #ffb300; font-size: 13px; }
  .warnings ul { margin: 4px 0 0; padding-left: 18px; }
  .tooltip { position: absolute; pointer-events: none; background: #263238; color: #eceff1;
    padding: 6px 10px; border-radius: 4px; font-size: 12px; max-width: 320px; opacity: 0; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<div id="timelines"></div>
<div class="tooltip" id="tooltip"></div>
<script>
const layouts = {{.LayoutJSON}};
const container = d3.select("#timelines");
const tooltip = d3.select("#tooltip");

for (const l of layouts) {
  drawTimeline(l);
}

function drawTimeline(l) {
  if (layouts.length > 1) {
    container.append("h2").text(l.name || l.timeline_id);
  }
  if (l.entry_condition) {
    container.append("p").attr("class", "entry-condition").text("Entry: " + l.entry_condition);
  }

  const svg = container.append("svg")
    .attr("class", "timeline")
    .attr("viewBox", "0 0 " + l.width + " " + l.height)
    .attr("width", l.width)
    .attr("height", l.height);

  const byId = {};
  for (const n of l.nodes) byId[n.id] = n;

  for (const e of (l.edges || [])) {
    const a = byId[e.from], b = byId[e.to];
    if (!a || !b) continue;
    svg.append("line")
      .attr("class", "edge " + e.class)
      .attr("x1", a.x).attr("y1", a.y)
      .attr("x2", b.x).attr("y2", b.y);
    if (e.label) {
      svg.append("text")
        .attr("class", "edge-label")
        .attr("x", (a.x + b.x) / 2)
        .attr("y", (a.y + b.y) / 2 - 6)
        .text(e.label);
    }
  }

  for (const t of (l.timings || [])) {
    const a = byId[t.from], b = byId[t.to];
    if (a) svg.append("line").attr("class", "timing-stem")
      .attr("x1", a.x).attr("y1", a.y).attr("x2", t.x).attr("y2", t.y - 10);
    if (b && t.to !== t.from) svg.append("line").attr("class", "timing-stem")
      .attr("x1", b.x).attr("y1", b.y).attr("x2", t.x).attr("y2", t.y - 10);
    if (t.anchor) {
      svg.append("circle").attr("class", "timing-anchor")
        .attr("cx", t.x).attr("cy", t.y - 4).attr("r", 5);
    } else {
      svg.append("line").attr("class", "timing-line")
        .attr("x1", t.x - 20).attr("y1", t.y - 4)
        .attr("x2", t.x + 20).attr("y2", t.y - 4);
    }
    svg.append("text").attr("class", "timing-label")
      .attr("x", t.x).attr("y", t.y + 14)
      .text(t.value_label || t.label || "");
    if (t.window_label) {
      svg.append("text").attr("class", "timing-window")
        .attr("x", t.x).attr("y", t.y + 30)
        .text(t.window_label);
    }
  }

  for (const n of l.nodes) {
    const cls = "node " + n.kind + (n.orphan ? " orphan" : "");
    let shape;
    if (n.kind === "decision") {
      const r = l.node_radius;
      const pts = [[n.x, n.y - r], [n.x + r, n.y], [n.x, n.y + r], [n.x - r, n.y]];
      shape = svg.append("polygon")
        .attr("class", cls)
        .attr("points", pts.map(p => p.join(",")).join(" "));
    } else {
      shape = svg.append("circle")
        .attr("class", cls)
        .attr("cx", n.x).attr("cy", n.y).attr("r", l.node_radius);
    }
    shape
      .on("mousemove", ev => showTooltip(ev, n))
      .on("mouseleave", hideTooltip);

    svg.append("text")
      .attr("class", "node-label")
      .attr("x", n.x).attr("y", n.y + l.node_radius + 18)
      .text(n.label || n.id);
  }

  if (l.warnings && l.warnings.length > 0) {
    const panel = container.append("div").attr("class", "warnings");
    panel.append("strong").text("Diagnostics");
    const list = panel.append("ul");
    for (const w of l.warnings) list.append("li").text(w);
  }
}

function showTooltip(ev, n) {
  let html = "<strong>" + (n.label || n.id) + "</strong><br>" + n.kind;
  if (n.description) html += "<br>" + n.description;
  tooltip.html(html)
    .style("left", (ev.pageX + 12) + "px")
    .style("top", (ev.pageY + 12) + "px")
    .style("opacity", 1);
}

function hideTooltip() {
  tooltip.style("opacity", 0);
}
</script>
</body>
</html>
`))
