package timeline

import (
	"reflect"
	"testing"
)

// chain builds a linear timeline a0→a1→...→a(n-1) with an entry head and exit tail.
func chain(ids ...string) *Timeline {
	t := &Timeline{ID: "tl", Name: "Test", EntryID: ids[0]}
	for i, id := range ids {
		n := Node{ID: id, Kind: KindActivity}
		if i == 0 {
			n.Kind = KindEntry
		}
		if i == len(ids)-1 {
			n.Kind = KindExit
		} else {
			n.DefaultNextID = ids[i+1]
		}
		t.Nodes = append(t.Nodes, n)
	}
	return t
}

func TestBuildSingleChain(t *testing.T) {
	tl := chain("E", "A1", "A2", "A3", "X")

	flow, report := Build(tl)
	if flow == nil {
		t.Fatalf("Build returned nil flow: %v", report.Messages())
	}
	if !report.Empty() {
		t.Errorf("unexpected diagnostics: %v", report.Messages())
	}

	want := []string{"E", "A1", "A2", "A3", "X"}
	if !reflect.DeepEqual(flow.Main, want) {
		t.Errorf("Main = %v, want %v", flow.Main, want)
	}
	for i, id := range want {
		if flow.Columns[id] != i {
			t.Errorf("Columns[%s] = %d, want %d", id, flow.Columns[id], i)
		}
	}
	if len(flow.Stagger) != 0 {
		t.Errorf("Stagger = %v, want empty", flow.Stagger)
	}
	if got := len(flow.Edges); got != 4 {
		t.Errorf("edges = %d, want 4", got)
	}
	if flow.MaxColumn != 4 {
		t.Errorf("MaxColumn = %d, want 4", flow.MaxColumn)
	}
}

func TestBuildCycle(t *testing.T) {
	tl := &Timeline{
		ID:      "tl",
		EntryID: "A",
		Nodes: []Node{
			{ID: "A", Kind: KindEntry, DefaultNextID: "B"},
			{ID: "B", Kind: KindActivity, DefaultNextID: "A"},
		},
	}

	flow, report := Build(tl)
	if flow == nil {
		t.Fatalf("Build returned nil flow: %v", report.Messages())
	}

	if got := len(flow.Main); got != 2 {
		t.Errorf("main chain length = %d, want 2", got)
	}
	if got := report.Count(DiagCycle); got != 1 {
		t.Errorf("cycle diagnostics = %d, want 1", got)
	}
	// The repeating edge B→A is reported, not emitted.
	if got := len(flow.Edges); got != 1 {
		t.Errorf("edges = %d, want 1", got)
	}
}

func TestBuildDanglingBranch(t *testing.T) {
	tl := &Timeline{
		ID:      "tl",
		EntryID: "E",
		Nodes: []Node{
			{ID: "E", Kind: KindEntry, DefaultNextID: "D"},
			{ID: "D", Kind: KindDecision, DefaultNextID: "X", Branches: []Branch{
				{Condition: "positive", TargetID: "missing"},
			}},
			{ID: "X", Kind: KindExit},
		},
	}

	flow, report := Build(tl)
	if flow == nil {
		t.Fatalf("Build returned nil flow: %v", report.Messages())
	}

	if got := report.Count(DiagUnresolvedRef); got != 1 {
		t.Errorf("unresolved reference diagnostics = %d, want 1", got)
	}
	for _, e := range flow.Edges {
		if e.To == "missing" {
			t.Errorf("edge to missing target was emitted: %+v", e)
		}
	}
	// The decision node is still placed.
	if col, ok := flow.Columns["D"]; !ok || col != 1 {
		t.Errorf("Columns[D] = %d (ok=%v), want 1", col, ok)
	}
}

func TestBuildBranchRejoin(t *testing.T) {
	// Entry→A1→D1→A2→Exit with D1 branching to O1→A2 (rejoin).
	tl := &Timeline{
		ID:      "tl",
		Name:    "Scenario",
		EntryID: "E",
		Nodes: []Node{
			{ID: "E", Kind: KindEntry, DefaultNextID: "A1"},
			{ID: "A1", Kind: KindActivity, DefaultNextID: "D1"},
			{ID: "D1", Kind: KindDecision, DefaultNextID: "A2", Branches: []Branch{
				{Condition: "otherwise", TargetID: "O1"},
			}},
			{ID: "A2", Kind: KindActivity, DefaultNextID: "X"},
			{ID: "X", Kind: KindExit},
			{ID: "O1", Kind: KindActivity, DefaultNextID: "A2"},
		},
	}

	flow, report := Build(tl)
	if flow == nil {
		t.Fatalf("Build returned nil flow: %v", report.Messages())
	}
	if !report.Empty() {
		t.Errorf("unexpected diagnostics: %v", report.Messages())
	}

	wantMain := []string{"E", "A1", "D1", "A2", "X"}
	if !reflect.DeepEqual(flow.Main, wantMain) {
		t.Errorf("Main = %v, want %v", flow.Main, wantMain)
	}
	if !flow.IsOrphan("O1") {
		t.Error("O1 should be an orphan")
	}
	if got := len(flow.Stagger); got != 1 {
		t.Errorf("orphan count = %d, want 1", got)
	}
	if flow.Stagger["O1"] != 1 {
		t.Errorf("Stagger[O1] = %d, want 1", flow.Stagger["O1"])
	}
	// Orphan columns continue past the branching decision.
	if flow.Columns["O1"] != 3 {
		t.Errorf("Columns[O1] = %d, want 3", flow.Columns["O1"])
	}

	var main, conditional int
	for _, e := range flow.Edges {
		switch e.Class {
		case EdgeMain:
			main++
		case EdgeConditional:
			conditional++
		}
	}
	// 4 main chain edges, 1 conditional D1→O1, 1 main rejoin O1→A2.
	if main != 5 {
		t.Errorf("main edges = %d, want 5", main)
	}
	if conditional != 1 {
		t.Errorf("conditional edges = %d, want 1", conditional)
	}
	if len(flow.Timings) != 0 {
		t.Errorf("timings = %d, want 0", len(flow.Timings))
	}

	// Reachability accounting: main chain + orphans covers every placed node.
	if got := len(flow.Main) + len(flow.Stagger); got != flow.NodeCount() {
		t.Errorf("main+orphans = %d, want %d", got, flow.NodeCount())
	}
}

func TestBuildDuplicateID(t *testing.T) {
	tl := &Timeline{
		ID:      "tl",
		EntryID: "E",
		Nodes: []Node{
			{ID: "E", Kind: KindEntry, DefaultNextID: "A"},
			{ID: "A", Kind: KindActivity, Label: "first", DefaultNextID: "X"},
			{ID: "A", Kind: KindActivity, Label: "second", DefaultNextID: "X"},
			{ID: "X", Kind: KindExit},
		},
	}

	flow, report := Build(tl)
	if flow == nil {
		t.Fatalf("Build returned nil flow: %v", report.Messages())
	}
	if got := report.Count(DiagDuplicateID); got != 1 {
		t.Errorf("duplicate id diagnostics = %d, want 1", got)
	}
	// Last occurrence wins in the index; the chain still walks through it.
	if col := flow.Columns["A"]; col != 1 {
		t.Errorf("Columns[A] = %d, want 1", col)
	}
}

func TestBuildUnreachable(t *testing.T) {
	tl := chain("E", "A", "X")
	tl.Nodes = append(tl.Nodes, Node{ID: "lost", Kind: KindActivity})

	flow, report := Build(tl)
	if flow == nil {
		t.Fatalf("Build returned nil flow: %v", report.Messages())
	}
	if got := report.Count(DiagUnreachable); got != 1 {
		t.Errorf("unreachable diagnostics = %d, want 1", got)
	}
	if _, placed := flow.Columns["lost"]; placed {
		t.Error("unreachable node was placed")
	}
}

func TestBuildStructuralFailure(t *testing.T) {
	tests := []struct {
		name string
		tl   *Timeline
	}{
		{
			name: "EmptyEntry",
			tl:   &Timeline{ID: "tl", Nodes: []Node{{ID: "A", Kind: KindActivity}}},
		},
		{
			name: "UnresolvedEntry",
			tl:   &Timeline{ID: "tl", EntryID: "nope", Nodes: []Node{{ID: "A", Kind: KindActivity}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flow, report := Build(tt.tl)
			if flow != nil {
				t.Errorf("Build = %+v, want nil flow", flow)
			}
			if !report.HasErrors() {
				t.Error("report should contain a structural error")
			}
			if got := report.Count(DiagNoEntry); got != 1 {
				t.Errorf("no-entry diagnostics = %d, want 1", got)
			}
		})
	}
}

func TestBuildStaggerPerDecision(t *testing.T) {
	// Two decisions, each with branches to distinct orphans. The stagger row
	// increments per branch and resets at the next decision.
	tl := &Timeline{
		ID:      "tl",
		EntryID: "E",
		Nodes: []Node{
			{ID: "E", Kind: KindEntry, DefaultNextID: "D1"},
			{ID: "D1", Kind: KindDecision, DefaultNextID: "D2", Branches: []Branch{
				{Condition: "a", TargetID: "O1"},
				{Condition: "b", TargetID: "O2"},
			}},
			{ID: "D2", Kind: KindDecision, DefaultNextID: "X", Branches: []Branch{
				{Condition: "c", TargetID: "O3"},
			}},
			{ID: "X", Kind: KindExit},
			{ID: "O1", Kind: KindActivity},
			{ID: "O2", Kind: KindActivity},
			{ID: "O3", Kind: KindActivity},
		},
	}

	flow, report := Build(tl)
	if flow == nil {
		t.Fatalf("Build returned nil flow: %v", report.Messages())
	}

	if flow.Stagger["O1"] != 1 || flow.Stagger["O2"] != 2 {
		t.Errorf("Stagger O1/O2 = %d/%d, want 1/2", flow.Stagger["O1"], flow.Stagger["O2"])
	}
	if flow.Stagger["O3"] != 1 {
		t.Errorf("Stagger[O3] = %d, want 1 (reset per decision)", flow.Stagger["O3"])
	}
	if flow.MaxStagger != 2 {
		t.Errorf("MaxStagger = %d, want 2", flow.MaxStagger)
	}
}

func TestBuildOrphanFirstDiscoveryWins(t *testing.T) {
	// Both decisions branch to the same orphan. The first discovery keeps its
	// placement; the later branch adds only the conditional edge.
	tl := &Timeline{
		ID:      "tl",
		EntryID: "E",
		Nodes: []Node{
			{ID: "E", Kind: KindEntry, DefaultNextID: "D1"},
			{ID: "D1", Kind: KindDecision, DefaultNextID: "D2", Branches: []Branch{
				{Condition: "a", TargetID: "O"},
			}},
			{ID: "D2", Kind: KindDecision, DefaultNextID: "X", Branches: []Branch{
				{Condition: "b", TargetID: "O"},
			}},
			{ID: "X", Kind: KindExit},
			{ID: "O", Kind: KindActivity},
		},
	}

	flow, report := Build(tl)
	if flow == nil {
		t.Fatalf("Build returned nil flow: %v", report.Messages())
	}

	// Placed by D1: column after D1, stagger 1.
	if flow.Columns["O"] != 2 {
		t.Errorf("Columns[O] = %d, want 2", flow.Columns["O"])
	}
	if flow.Stagger["O"] != 1 {
		t.Errorf("Stagger[O] = %d, want 1", flow.Stagger["O"])
	}

	conditional := 0
	for _, e := range flow.Edges {
		if e.Class == EdgeConditional && e.To == "O" {
			conditional++
		}
	}
	if conditional != 2 {
		t.Errorf("conditional edges to O = %d, want 2", conditional)
	}
}

func TestBuildTimings(t *testing.T) {
	tl := chain("E", "A1", "A2", "X")
	tl.Timings = []Timing{
		{ID: "T1", FromID: "A1", ToID: "A2", Value: "P7D", ValueLabel: "7 days"},
		{ID: "T2", FromID: "A1", ToID: "ghost", Value: "P1D"},
	}

	flow, report := Build(tl)
	if flow == nil {
		t.Fatalf("Build returned nil flow: %v", report.Messages())
	}

	if got := len(flow.Timings); got != 1 {
		t.Fatalf("resolved timings = %d, want 1", got)
	}
	if flow.Timings[0].ID != "T1" {
		t.Errorf("resolved timing = %s, want T1", flow.Timings[0].ID)
	}
	if got := report.Count(DiagUnresolvedRef); got != 1 {
		t.Errorf("unresolved reference diagnostics = %d, want 1", got)
	}
}

func TestBuildIdempotent(t *testing.T) {
	tl := &Timeline{
		ID:      "tl",
		EntryID: "E",
		Nodes: []Node{
			{ID: "E", Kind: KindEntry, DefaultNextID: "D"},
			{ID: "D", Kind: KindDecision, DefaultNextID: "X", Branches: []Branch{
				{Condition: "a", TargetID: "O1"},
				{Condition: "b", TargetID: "O2"},
			}},
			{ID: "X", Kind: KindExit},
			{ID: "O1", Kind: KindActivity, DefaultNextID: "X"},
			{ID: "O2", Kind: KindActivity},
		},
		Timings: []Timing{{ID: "T1", FromID: "E", ToID: "X"}},
	}

	first, firstReport := Build(tl)
	second, secondReport := Build(tl)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated builds differ:\nfirst:  %+v\nsecond: %+v", first, second)
	}
	if !reflect.DeepEqual(firstReport, secondReport) {
		t.Errorf("repeated build reports differ: %v vs %v", firstReport.Messages(), secondReport.Messages())
	}
}
