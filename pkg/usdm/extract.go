package usdm

import (
	"strconv"

	"github.com/clinviz/studyflow/pkg/errors"
	"github.com/clinviz/studyflow/pkg/timeline"
)

// Instance type names used by USDM documents.
const (
	instanceTypeActivity = "ScheduledActivityInstance"
	instanceTypeDecision = "ScheduledDecisionInstance"
)

// DesignSelector names the study design to process. Selection is always
// explicit: a zero selector means "the design at index 0", and the caller is
// told how many designs exist so silently ignored data is visible.
type DesignSelector struct {
	// ID selects a design by its identifier. Takes precedence over Index.
	ID string
	// Index selects a design by position across all study versions.
	Index int
}

// ParseDesignSelector interprets a CLI selector string: empty selects index 0,
// a number selects by index, anything else selects by id.
func ParseDesignSelector(s string) DesignSelector {
	if s == "" {
		return DesignSelector{}
	}
	if idx, err := strconv.Atoi(s); err == nil {
		return DesignSelector{Index: idx}
	}
	return DesignSelector{ID: s}
}

// Designs returns every study design across all versions, in document order.
func (d *Document) Designs() []StudyDesign {
	var designs []StudyDesign
	for _, v := range d.Wrapper.Study.Versions {
		designs = append(designs, v.StudyDesigns...)
	}
	return designs
}

// SelectDesign resolves the selector against the document's study designs.
// Returns ErrCodeInvalidDocument when the document carries no designs and
// ErrCodeDesignNotFound when the selector misses.
func (d *Document) SelectDesign(sel DesignSelector) (*StudyDesign, error) {
	designs := d.Designs()
	if len(designs) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidDocument, "document contains no study designs")
	}
	if sel.ID != "" {
		for i := range designs {
			if designs[i].ID == sel.ID {
				return &designs[i], nil
			}
		}
		return nil, errors.New(errors.ErrCodeDesignNotFound, "study design %q not found (%d designs present)", sel.ID, len(designs))
	}
	if sel.Index < 0 || sel.Index >= len(designs) {
		return nil, errors.New(errors.ErrCodeDesignNotFound, "study design index %d out of range (%d designs present)", sel.Index, len(designs))
	}
	return &designs[sel.Index], nil
}

// Extract converts every schedule timeline of the design into the timeline
// model. Loader-level integrity problems (unknown instance types) are
// recorded in report; structural problems are left to the flow builder.
func Extract(design *StudyDesign, report *timeline.Report) []timeline.Timeline {
	timelines := make([]timeline.Timeline, 0, len(design.ScheduleTimelines))
	for i := range design.ScheduleTimelines {
		timelines = append(timelines, extractTimeline(&design.ScheduleTimelines[i], report))
	}
	return timelines
}

func extractTimeline(raw *ScheduleTimeline, report *timeline.Report) timeline.Timeline {
	tl := timeline.Timeline{
		ID:             raw.ID,
		Name:           displayName(raw),
		EntryID:        raw.EntryID,
		EntryCondition: raw.EntryCondition,
	}

	exits := make(map[string]bool)
	for i := range raw.Instances {
		inst := &raw.Instances[i]
		n := timeline.Node{
			ID:            inst.ID,
			Label:         instanceLabel(inst),
			Description:   inst.Description,
			Kind:          instanceKind(inst, report),
			DefaultNextID: inst.DefaultConditionID,
		}
		if inst.ID == raw.EntryID {
			n.Kind = timeline.KindEntry
		}
		for _, ca := range inst.ConditionAssignments {
			n.Branches = append(n.Branches, timeline.Branch{
				Condition: ca.Condition,
				TargetID:  ca.ConditionTargetID,
			})
		}

		// A chain-terminating instance pointing at a timeline exit gets a
		// synthesized exit node appended after it.
		if inst.DefaultConditionID == "" && inst.TimelineExitID != "" {
			n.DefaultNextID = inst.TimelineExitID
			exits[inst.TimelineExitID] = true
		}

		tl.Nodes = append(tl.Nodes, n)
	}

	for _, ex := range raw.Exits {
		if ex.ID != "" {
			exits[ex.ID] = true
		}
	}
	// Deterministic order: exits in first-reference order over instances,
	// then declared exits.
	for i := range raw.Instances {
		id := raw.Instances[i].TimelineExitID
		if id != "" && exits[id] {
			tl.Nodes = append(tl.Nodes, exitNode(id))
			delete(exits, id)
		}
	}
	for _, e := range raw.Exits {
		if exits[e.ID] {
			tl.Nodes = append(tl.Nodes, exitNode(e.ID))
			delete(exits, e.ID)
		}
	}

	for i := range raw.Timings {
		rt := &raw.Timings[i]
		timingType := ""
		if rt.Type != nil {
			timingType = rt.Type.Decode
		}
		tl.Timings = append(tl.Timings, timeline.Timing{
			ID:             rt.ID,
			Label:          rt.Label,
			Type:           timingType,
			FromID:         rt.RelativeFromScheduledInstanceID,
			ToID:           rt.RelativeToScheduledInstanceID,
			Value:          rt.Value,
			ValueLabel:     rt.ValueLabel,
			WindowLabel:    rt.WindowLabel,
			FixedReference: rt.IsFixedReference(),
		})
	}

	return tl
}

func exitNode(id string) timeline.Node {
	return timeline.Node{
		ID:          id,
		Label:       "Exit",
		Description: "Timeline Exit",
		Kind:        timeline.KindExit,
	}
}

// instanceKind maps the free-text instance type onto the closed kind set.
// Unknown types load as activities so the node stays visible, with a warning.
func instanceKind(inst *ScheduledInstance, report *timeline.Report) timeline.Kind {
	switch inst.InstanceType {
	case instanceTypeActivity:
		return timeline.KindActivity
	case instanceTypeDecision:
		return timeline.KindDecision
	default:
		report.Warnf(timeline.DiagUnknownKind, inst.ID, "unknown instance type %q; treated as activity", inst.InstanceType)
		return timeline.KindActivity
	}
}

func instanceLabel(inst *ScheduledInstance) string {
	if inst.Label != "" {
		return inst.Label
	}
	return inst.Name
}

func displayName(raw *ScheduleTimeline) string {
	if raw.Label != "" {
		return raw.Label
	}
	return raw.Name
}
