// Package svg renders timeline layouts as static SVG images using the
// positions computed by the layout stage.
package svg

import (
	"bytes"
	"fmt"
	"io"
	"math"

	svgo "github.com/ajstarks/svgo"

	"github.com/clinviz/studyflow/pkg/layout"
)

// Node and edge colors, matching the HTML renderer palette.
const (
	colorEntry       = "#4caf50"
	colorExit        = "#e57373"
	colorActivity    = "#64b5f6"
	colorDecision    = "#ffb74d"
	colorOrphan      = "#b0bec5"
	colorEdge        = "#546e7a"
	colorConditional = "#ff8f00"
	colorTiming      = "#8d6e63"
	colorText        = "#263238"
)

// Render writes one layout as a standalone SVG document.
func Render(l *layout.Layout, w io.Writer) error {
	buf := &bytes.Buffer{}
	canvas := svgo.New(buf)

	width, height := px(l.Width), px(l.Height)
	canvas.Start(width, height)
	canvas.Rect(0, 0, width, height, "fill:#fafafa")

	if l.Name != "" {
		canvas.Text(px(l.Width/2), 28, l.Name,
			"text-anchor:middle;font-size:20px;font-family:sans-serif;font-weight:bold;fill:"+colorText)
	}
	if l.EntryCondition != "" {
		canvas.Text(px(l.Width/2), 48, "Entry: "+l.EntryCondition,
			"text-anchor:middle;font-size:12px;font-family:sans-serif;fill:"+colorText)
	}

	drawEdges(canvas, l)
	drawTimings(canvas, l)
	drawNodes(canvas, l)

	canvas.End()
	_, err := w.Write(buf.Bytes())
	return err
}

// RenderBytes renders one layout to SVG bytes.
func RenderBytes(l *layout.Layout) ([]byte, error) {
	var buf bytes.Buffer
	if err := Render(l, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func drawEdges(canvas *svgo.SVG, l *layout.Layout) {
	for _, e := range l.Edges {
		from, to := l.Node(e.From), l.Node(e.To)
		if from == nil || to == nil {
			continue
		}
		style := fmt.Sprintf("stroke:%s;stroke-width:2;fill:none", colorEdge)
		if e.Class == "conditional" {
			style = fmt.Sprintf("stroke:%s;stroke-width:2;stroke-dasharray:6,4;fill:none", colorConditional)
		}
		canvas.Line(px(from.X), px(from.Y), px(to.X), px(to.Y), style)

		if e.Label != "" {
			midX, midY := (from.X+to.X)/2, (from.Y+to.Y)/2
			canvas.Text(px(midX), px(midY)-6, e.Label,
				"text-anchor:middle;font-size:11px;font-style:italic;font-family:sans-serif;fill:"+colorConditional)
		}
	}
}

func drawNodes(canvas *svgo.SVG, l *layout.Layout) {
	r := px(l.NodeRadius)
	for _, n := range l.Nodes {
		x, y := px(n.X), px(n.Y)
		fill := nodeFill(n)
		switch n.Kind {
		case "decision":
			xs := []int{x, x + r, x, x - r}
			ys := []int{y - r, y, y + r, y}
			canvas.Polygon(xs, ys, "fill:"+fill+";stroke:#455a64;stroke-width:2")
		default:
			canvas.Circle(x, y, r, "fill:"+fill+";stroke:#455a64;stroke-width:2")
		}

		label := n.Label
		if label == "" {
			label = n.ID
		}
		canvas.Text(x, y+r+18, label,
			"text-anchor:middle;font-size:13px;font-family:sans-serif;fill:"+colorText)
	}
}

func drawTimings(canvas *svgo.SVG, l *layout.Layout) {
	for _, tm := range l.Timings {
		from, to := l.Node(tm.From), l.Node(tm.To)
		x, y := px(tm.X), px(tm.Y)

		// Dotted stems from both endpoints down to the mark.
		stem := fmt.Sprintf("stroke:%s;stroke-width:1;stroke-dasharray:2,3", colorTiming)
		if from != nil {
			canvas.Line(px(from.X), px(from.Y), x, y-10, stem)
		}
		if to != nil && tm.To != tm.From {
			canvas.Line(px(to.X), px(to.Y), x, y-10, stem)
		}

		if tm.Anchor {
			// Anchored timings get a solid marker instead of a range bracket.
			canvas.Circle(x, y-4, 5, "fill:"+colorTiming)
		} else {
			canvas.Line(x-20, y-4, x+20, y-4, "stroke:"+colorTiming+";stroke-width:2")
		}

		text := tm.ValueLabel
		if text == "" {
			text = tm.Label
		}
		canvas.Text(x, y+14, text,
			"text-anchor:middle;font-size:12px;font-family:sans-serif;fill:"+colorTiming)
		if tm.WindowLabel != "" {
			canvas.Text(x, y+30, tm.WindowLabel,
				"text-anchor:middle;font-size:10px;font-family:sans-serif;fill:"+colorTiming)
		}
	}
}

func nodeFill(n layout.Node) string {
	if n.Orphan {
		return colorOrphan
	}
	switch n.Kind {
	case "entry":
		return colorEntry
	case "exit":
		return colorExit
	case "decision":
		return colorDecision
	default:
		return colorActivity
	}
}

func px(v float64) int {
	return int(math.Round(v))
}
