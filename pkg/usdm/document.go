// Package usdm loads USDM (Unified Study Definitions Model) wrapper documents
// and extracts their schedule timelines into the timeline model.
//
// The package reads the subset of the USDM shape the timeline visualizer
// needs: study versions, study designs, schedule timelines with their
// scheduled instances, condition assignments, exits, and timings. Everything
// else in the document is retained only in the generic instance index used
// for embedded-reference resolution.
package usdm

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
)

// =============================================================================
// Wrapper Document Shape
// =============================================================================

// Wrapper is the top-level USDM wrapper document.
type Wrapper struct {
	Study       Study  `json:"study"`
	USDMVersion string `json:"usdmVersion,omitempty"`
}

// Study is the root study object.
type Study struct {
	ID       string         `json:"id"`
	Name     string         `json:"name,omitempty"`
	Label    string         `json:"label,omitempty"`
	Versions []StudyVersion `json:"versions"`
}

// StudyVersion is one versioned definition of the study.
type StudyVersion struct {
	ID           string        `json:"id"`
	StudyDesigns []StudyDesign `json:"studyDesigns"`
}

// StudyDesign holds the schedule timelines of one study design.
type StudyDesign struct {
	ID                string             `json:"id"`
	Name              string             `json:"name,omitempty"`
	Label             string             `json:"label,omitempty"`
	ScheduleTimelines []ScheduleTimeline `json:"scheduleTimelines"`
}

// DisplayName returns the label, name, or ID, in that preference order.
func (d *StudyDesign) DisplayName() string {
	if d.Label != "" {
		return d.Label
	}
	if d.Name != "" {
		return d.Name
	}
	return d.ID
}

// ScheduleTimeline is one raw schedule timeline.
type ScheduleTimeline struct {
	ID             string              `json:"id"`
	Name           string              `json:"name,omitempty"`
	Label          string              `json:"label,omitempty"`
	EntryCondition string              `json:"entryCondition,omitempty"`
	EntryID        string              `json:"entryId"`
	Instances      []ScheduledInstance `json:"instances"`
	Exits          []ScheduleExit      `json:"exits,omitempty"`
	Timings        []RawTiming         `json:"timings,omitempty"`
}

// ScheduledInstance is one raw scheduled activity or decision instance.
type ScheduledInstance struct {
	ID                   string                `json:"id"`
	Name                 string                `json:"name,omitempty"`
	Label                string                `json:"label,omitempty"`
	Description          string                `json:"description,omitempty"`
	InstanceType         string                `json:"instanceType"`
	DefaultConditionID   string                `json:"defaultConditionId,omitempty"`
	TimelineExitID       string                `json:"timelineExitId,omitempty"`
	ConditionAssignments []ConditionAssignment `json:"conditionAssignments,omitempty"`
}

// ConditionAssignment is one conditional branch of a decision instance.
type ConditionAssignment struct {
	Condition         string `json:"condition"`
	ConditionTargetID string `json:"conditionTargetId"`
}

// ScheduleExit is a declared timeline exit point.
type ScheduleExit struct {
	ID string `json:"id"`
}

// Code is a coded concept (C-code plus its decode).
type Code struct {
	Code   string `json:"code"`
	Decode string `json:"decode,omitempty"`
}

// fixedReferenceCode is the CDISC concept code marking a timing anchored to
// an absolute reference point.
const fixedReferenceCode = "C201358"

// RawTiming is one raw timing relationship.
type RawTiming struct {
	ID                              string `json:"id"`
	Name                            string `json:"name,omitempty"`
	Label                           string `json:"label,omitempty"`
	Type                            *Code  `json:"type,omitempty"`
	Value                           string `json:"value,omitempty"`
	ValueLabel                      string `json:"valueLabel,omitempty"`
	WindowLabel                     string `json:"windowLabel,omitempty"`
	WindowLower                     string `json:"windowLower,omitempty"`
	WindowUpper                     string `json:"windowUpper,omitempty"`
	RelativeFromScheduledInstanceID string `json:"relativeFromScheduledInstanceId"`
	RelativeToScheduledInstanceID   string `json:"relativeToScheduledInstanceId"`
}

// IsFixedReference reports whether the timing is anchored to an absolute
// reference point rather than a relative offset.
func (t *RawTiming) IsFixedReference() bool {
	return t.Type != nil && t.Type.Code == fixedReferenceCode
}

// =============================================================================
// Document - Loaded Wrapper Plus Instance Index
// =============================================================================

// Document is a loaded wrapper plus the generic instance index used for
// embedded-reference resolution.
type Document struct {
	Wrapper *Wrapper

	// ContentHashable raw bytes of the source file, for cache keys.
	Raw []byte

	index map[string]map[string]any
}

// Load reads and decodes a USDM wrapper document. A fresh UUID is assigned as
// the study identifier, matching the loader behavior the rest of the pipeline
// expects, so the document identity never depends on the input file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Decode(data)
}

// Decode decodes wrapper bytes into a Document.
func Decode(data []byte) (*Document, error) {
	var w Wrapper
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode wrapper: %w", err)
	}
	w.Study.ID = uuid.NewString()

	doc := &Document{
		Wrapper: &w,
		Raw:     data,
		index:   make(map[string]map[string]any),
	}

	// Generic index over every identified object in the document, for
	// cross-reference lookups outside the typed shape.
	var generic any
	if err := json.Unmarshal(data, &generic); err == nil {
		indexInstances(generic, doc.index)
	}

	return doc, nil
}

// Instance returns the raw object with the given id anywhere in the document.
func (d *Document) Instance(id string) (map[string]any, bool) {
	obj, ok := d.index[id]
	return obj, ok
}

// Attribute returns the string form of an attribute of the identified
// instance. Returns false if the instance or the attribute is missing.
func (d *Document) Attribute(id, attribute string) (string, bool) {
	obj, ok := d.index[id]
	if !ok {
		return "", false
	}
	v, ok := obj[attribute]
	if !ok || v == nil {
		return "", false
	}
	switch s := v.(type) {
	case string:
		return s, true
	default:
		return fmt.Sprintf("%v", v), true
	}
}

// TagText resolves a dictionary tag to its reference text via the
// dictionary's parameter maps. Returns false if the dictionary or the tag
// is missing.
func (d *Document) TagText(dictionaryID, tag string) (string, bool) {
	dict, ok := d.index[dictionaryID]
	if !ok {
		return "", false
	}
	maps, ok := dict["parameterMaps"].([]any)
	if !ok {
		return "", false
	}
	for _, m := range maps {
		pm, ok := m.(map[string]any)
		if !ok {
			continue
		}
		if pm["tag"] == tag {
			if ref, ok := pm["reference"].(string); ok {
				return ref, true
			}
		}
	}
	return "", false
}

// indexInstances walks the decoded document and indexes every object
// carrying a string "id".
func indexInstances(v any, index map[string]map[string]any) {
	switch node := v.(type) {
	case map[string]any:
		if id, ok := node["id"].(string); ok && id != "" {
			index[id] = node
		}
		for _, child := range node {
			indexInstances(child, index)
		}
	case []any:
		for _, child := range node {
			indexInstances(child, index)
		}
	}
}
