package usdm

import (
	"github.com/clinviz/studyflow/pkg/timeline"
	"github.com/clinviz/studyflow/pkg/usdm/reference"
)

// ResolveReferences rewrites embedded usdm:ref and usdm:tag markup in node
// labels and descriptions using the document's instance index. Resolution
// warnings are recorded against the owning node; unresolvable markers are
// replaced with a visible placeholder rather than dropped.
func (d *Document) ResolveReferences(timelines []timeline.Timeline, report *timeline.Report) {
	r := reference.New(d, reference.DefaultMaxDepth)
	for i := range timelines {
		tl := &timelines[i]
		for j := range tl.Nodes {
			n := &tl.Nodes[j]
			dict := d.dictionaryOf(n.ID)
			n.Label = d.resolveText(r, n.Label, dict, n.ID, report)
			n.Description = d.resolveText(r, n.Description, dict, n.ID, report)
		}
		for j := range tl.Timings {
			tm := &tl.Timings[j]
			tm.Label = d.resolveText(r, tm.Label, d.dictionaryOf(tm.ID), tm.ID, report)
		}
	}
}

func (d *Document) resolveText(r *reference.Resolver, text, dictionaryID, ownerID string, report *timeline.Report) string {
	res := r.Resolve(text, dictionaryID)
	for _, w := range res.Warnings {
		report.Warnf(timeline.DiagBadReference, ownerID, "%s", w)
	}
	return res.Text
}

// dictionaryOf returns the dictionaryId attribute of the identified instance,
// scoping usdm:tag lookups to the owner's parameter dictionary.
func (d *Document) dictionaryOf(id string) string {
	obj, ok := d.Instance(id)
	if !ok {
		return ""
	}
	dict, _ := obj["dictionaryId"].(string)
	return dict
}
