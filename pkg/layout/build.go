package layout

import (
	"github.com/clinviz/studyflow/pkg/timeline"
)

// Build assigns coordinates to a built flow and aggregates the result into a
// self-contained Layout.
//
// Main-chain nodes sit on the centerline with x derived from their column.
// Orphans are staggered above the centerline by their stagger row. Timing
// markers sit below the centerline at the horizontal midpoint of their
// endpoints. Canvas dimensions are derived in the same pass so callers can
// size a drawing surface without re-reading the data.
func Build(flow *timeline.Flow, opts Options) Layout {
	opts = opts.withDefaults()

	// The centerline leaves room above for the highest stagger row so orphans
	// stay on canvas.
	centerline := opts.MarginTop + float64(flow.MaxStagger)*opts.BranchRowHeight

	l := Layout{
		TimelineID:     flow.Timeline.ID,
		Name:           flow.Timeline.DisplayName(),
		EntryCondition: flow.Timeline.EntryCondition,
		Centerline:     centerline,
		NodeRadius:     opts.NodeRadius,
	}
	if !flow.Report.Empty() {
		l.Warnings = flow.Report.Messages()
	}

	index := make(map[string]*timeline.Node, len(flow.Timeline.Nodes))
	for i := range flow.Timeline.Nodes {
		index[flow.Timeline.Nodes[i].ID] = &flow.Timeline.Nodes[i]
	}

	placed := make(map[string]bool)
	place := func(id string) {
		src, ok := index[id]
		if !ok || placed[id] {
			return
		}
		placed[id] = true
		col := flow.Columns[id]
		row := flow.Stagger[id]
		l.Nodes = append(l.Nodes, Node{
			ID:          id,
			Label:       src.DisplayLabel(),
			Description: src.Description,
			Kind:        src.Kind.String(),
			X:           opts.MarginLeft + float64(col)*opts.HorizontalSpacing,
			Y:           centerline - float64(row)*opts.BranchRowHeight,
			Column:      col,
			Row:         row,
			Orphan:      row > 0,
		})
	}

	// Deterministic ordering: main chain first, then orphans in the source
	// declaration order.
	for _, id := range flow.Main {
		place(id)
	}
	for i := range flow.Timeline.Nodes {
		id := flow.Timeline.Nodes[i].ID
		if flow.IsOrphan(id) {
			place(id)
		}
	}

	for _, e := range flow.Edges {
		l.Edges = append(l.Edges, Edge{From: e.From, To: e.To, Class: e.Class, Label: e.Label})
	}

	timingY := centerline + opts.VerticalSpacing
	for _, tm := range flow.Timings {
		from := l.Node(tm.FromID)
		to := l.Node(tm.ToID)
		if from == nil || to == nil {
			continue
		}
		label := tm.ValueLabel
		if label == "" {
			label = tm.Value
		}
		l.Timings = append(l.Timings, TimingMark{
			ID:          tm.ID,
			Label:       tm.Label,
			Type:        tm.Type,
			From:        tm.FromID,
			To:          tm.ToID,
			Value:       tm.Value,
			ValueLabel:  label,
			WindowLabel: tm.WindowLabel,
			Anchor:      tm.FixedReference,
			X:           (from.X + to.X) / 2,
			Y:           timingY,
		})
	}

	l.Width = float64(flow.MaxColumn+1)*opts.HorizontalSpacing + opts.MarginLeft + opts.MarginRight
	l.Height = centerline + 2*opts.NodeRadius + opts.VerticalSpacing + opts.MarginBottom
	return l
}

// BuildAll builds every timeline in the slice, skipping structurally broken
// ones. Diagnostics from skipped timelines are merged into the returned
// report so callers can tell which timeline failed and why. Diagnostics for
// successfully built timelines travel inside each Layout's Warnings.
func BuildAll(timelines []timeline.Timeline, opts Options) ([]Layout, *timeline.Report) {
	report := &timeline.Report{}
	layouts := make([]Layout, 0, len(timelines))
	for i := range timelines {
		flow, r := timeline.Build(&timelines[i])
		if flow == nil {
			report.Merge(r)
			continue
		}
		layouts = append(layouts, Build(flow, opts))
	}
	return layouts, report
}
