package timeline

// Edge classes in a built flow.
const (
	// EdgeMain is an unconditional default-next edge, including the edge a
	// branch chain uses to rejoin the main chain.
	EdgeMain = "main"
	// EdgeConditional is an edge from a decision node to one of its branch targets.
	EdgeConditional = "conditional"
	// EdgeTiming is a temporal constraint edge drawn between timing endpoints.
	EdgeTiming = "timing"
)

// Edge is one classified directed edge in a built flow.
type Edge struct {
	From  string `json:"from" bson:"from"`
	To    string `json:"to" bson:"to"`
	Class string `json:"class" bson:"class"`
	Label string `json:"label,omitempty" bson:"label,omitempty"`
}

// Flow is the classified graph produced by Build: the main chain in order,
// column assignments for every placed node, stagger rows for orphans, and
// every surviving edge. Coordinates are assigned later by the layout package.
type Flow struct {
	Timeline *Timeline

	// Main lists the node IDs on the main chain in walk order.
	// The column of Main[i] is i.
	Main []string

	// Columns maps every placed node (main chain and orphans) to its column.
	Columns map[string]int

	// Stagger maps orphan node IDs to their vertical stagger row (>= 1).
	// Nodes on the main chain are absent from this map.
	Stagger map[string]int

	// Edges holds all main and conditional edges in discovery order.
	Edges []Edge

	// Timings holds the timing relationships whose endpoints both resolved
	// to placed nodes. Unresolvable relationships are dropped with a warning.
	Timings []Timing

	// MaxColumn is the highest assigned column, 0 for a single-node flow.
	MaxColumn int

	// MaxStagger is the highest assigned stagger row, 0 when there are no orphans.
	MaxStagger int

	Report *Report
}

// IsOrphan reports whether the node was reached only through conditional
// branches and never appears on the main chain.
func (f *Flow) IsOrphan(id string) bool {
	_, ok := f.Stagger[id]
	return ok
}

// NodeCount returns the number of placed nodes (main chain plus orphans).
func (f *Flow) NodeCount() int { return len(f.Columns) }

// Build walks a timeline and produces its Flow. It never panics on malformed
// input: duplicate IDs, dangling references, and cycles are collected in the
// returned report and processing continues with a best-effort partial graph.
//
// Build returns a nil Flow only for structural failures (the entry reference
// does not resolve), in which case the report says why. The input timeline is
// not mutated, so calling Build twice yields an identical Flow.
func Build(t *Timeline) (*Flow, *Report) {
	report := &Report{}

	// Graph assembly: id index preserving input order, with last-writer-wins
	// on duplicates.
	index := make(map[string]*Node, len(t.Nodes))
	order := make([]string, 0, len(t.Nodes))
	for i := range t.Nodes {
		n := &t.Nodes[i]
		if n.ID == "" {
			report.Warnf(DiagUnresolvedRef, "", "node without id at position %d ignored", i)
			continue
		}
		if _, dup := index[n.ID]; dup {
			report.Warnf(DiagDuplicateID, n.ID, "node id appears more than once; keeping the last occurrence")
		} else {
			order = append(order, n.ID)
		}
		index[n.ID] = n
	}

	entry, ok := index[t.EntryID]
	if t.EntryID == "" || !ok {
		report.Errorf(DiagNoEntry, t.EntryID, "entry %q does not resolve; timeline %q skipped", t.EntryID, t.DisplayName())
		return nil, report
	}

	flow := &Flow{
		Timeline: t,
		Columns:  make(map[string]int),
		Stagger:  make(map[string]int),
		Report:   report,
	}

	b := &builder{index: index, flow: flow, report: report, cycleSeen: make(map[string]bool)}
	b.walkMain(entry)
	b.discoverBranches()
	b.markUnreachable(order)
	b.resolveTimings(t.Timings)

	for _, col := range flow.Columns {
		if col > flow.MaxColumn {
			flow.MaxColumn = col
		}
	}
	for _, row := range flow.Stagger {
		if row > flow.MaxStagger {
			flow.MaxStagger = row
		}
	}

	return flow, report
}

type builder struct {
	index     map[string]*Node
	flow      *Flow
	report    *Report
	cycleSeen map[string]bool // cycle points already reported
}

// walkMain follows default-next pointers from the entry node, assigning
// columns by chain position. The walk stops on a missing pointer, an
// unresolvable pointer, or a revisit (cycle).
func (b *builder) walkMain(entry *Node) {
	cur := entry
	for {
		b.flow.Columns[cur.ID] = len(b.flow.Main)
		b.flow.Main = append(b.flow.Main, cur.ID)

		if cur.DefaultNextID == "" {
			return
		}
		next, ok := b.index[cur.DefaultNextID]
		if !ok {
			b.report.Warnf(DiagUnresolvedRef, cur.ID, "default next %q does not resolve; edge dropped", cur.DefaultNextID)
			return
		}
		if b.onMain(next.ID) {
			b.reportCycle(next.ID, cur.ID)
			return
		}
		b.flow.Edges = append(b.flow.Edges, Edge{From: cur.ID, To: next.ID, Class: EdgeMain})
		cur = next
	}
}

// discoverBranches processes decision nodes in main-chain order and their
// branches in declared order. Each branch whose target is not already placed
// spawns a secondary walk; its nodes become orphans sharing one stagger row.
// The stagger row increases per spawned branch and resets per decision node.
func (b *builder) discoverBranches() {
	for _, id := range b.flow.Main {
		decision := b.index[id]
		if decision.Kind != KindDecision || len(decision.Branches) == 0 {
			continue
		}

		stagger := 0
		for _, br := range decision.Branches {
			target, ok := b.index[br.TargetID]
			if br.TargetID == "" || !ok {
				b.report.Warnf(DiagUnresolvedRef, decision.ID, "branch target %q does not resolve; edge dropped", br.TargetID)
				continue
			}
			b.flow.Edges = append(b.flow.Edges, Edge{From: decision.ID, To: target.ID, Class: EdgeConditional, Label: br.Condition})

			if b.onMain(target.ID) {
				continue
			}
			if b.flow.IsOrphan(target.ID) {
				// Already claimed by an earlier branch: first discovery wins,
				// only the conditional edge is added.
				continue
			}
			stagger++
			b.walkSecondary(target, stagger, b.flow.Columns[decision.ID]+1)
		}
	}
}

// walkSecondary follows default-next pointers from a branch target until the
// chain terminates, rejoins an already-placed node, or cycles. Every node
// visited becomes an orphan on the given stagger row, with columns continuing
// past the branching decision.
func (b *builder) walkSecondary(head *Node, stagger, startCol int) {
	local := make(map[string]bool)
	cur := head
	col := startCol
	for {
		b.flow.Stagger[cur.ID] = stagger
		b.flow.Columns[cur.ID] = col
		local[cur.ID] = true
		col++

		if cur.DefaultNextID == "" {
			return
		}
		next, ok := b.index[cur.DefaultNextID]
		if !ok {
			b.report.Warnf(DiagUnresolvedRef, cur.ID, "default next %q does not resolve; edge dropped", cur.DefaultNextID)
			return
		}
		if local[next.ID] {
			b.reportCycle(next.ID, cur.ID)
			return
		}
		b.flow.Edges = append(b.flow.Edges, Edge{From: cur.ID, To: next.ID, Class: EdgeMain})
		if b.onMain(next.ID) || b.flow.IsOrphan(next.ID) {
			// Rejoin stops the walk without erroring.
			return
		}
		cur = next
	}
}

// markUnreachable warns about nodes never reached by any walk.
// They are excluded from layout.
func (b *builder) markUnreachable(order []string) {
	for _, id := range order {
		if _, placed := b.flow.Columns[id]; !placed {
			b.report.Warnf(DiagUnreachable, id, "node not reachable from entry; excluded from layout")
		}
	}
}

// resolveTimings keeps timing relationships whose endpoints are both placed
// and drops the rest with a warning. A dropped timing never blocks placement
// of the structural graph.
func (b *builder) resolveTimings(timings []Timing) {
	for _, tm := range timings {
		_, fromOK := b.flow.Columns[tm.FromID]
		_, toOK := b.flow.Columns[tm.ToID]
		if !fromOK || !toOK {
			b.report.Warnf(DiagUnresolvedRef, tm.ID, "timing %s→%s has an unresolved endpoint; relationship dropped", tm.FromID, tm.ToID)
			continue
		}
		b.flow.Timings = append(b.flow.Timings, tm)
	}
}

func (b *builder) onMain(id string) bool {
	_, placed := b.flow.Columns[id]
	_, orphan := b.flow.Stagger[id]
	return placed && !orphan
}

// reportCycle records a cycle error once per distinct cycle point.
func (b *builder) reportCycle(at, from string) {
	if b.cycleSeen[at] {
		return
	}
	b.cycleSeen[at] = true
	b.report.Warnf(DiagCycle, at, "chain revisits %s (via %s); walk truncated", at, from)
}
