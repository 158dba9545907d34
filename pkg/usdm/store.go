package usdm

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/clinviz/studyflow/pkg/timeline"
)

// =============================================================================
// Timeline Serialization API
// =============================================================================

// MarshalTimelines serializes extracted timelines to pretty-printed JSON.
// This is the intermediate format between the load and layout stages.
func MarshalTimelines(timelines []timeline.Timeline) ([]byte, error) {
	return json.MarshalIndent(timelines, "", "  ")
}

// UnmarshalTimelines deserializes intermediate timeline JSON.
func UnmarshalTimelines(data []byte) ([]timeline.Timeline, error) {
	var timelines []timeline.Timeline
	if err := json.Unmarshal(data, &timelines); err != nil {
		return nil, fmt.Errorf("unmarshal timelines: %w", err)
	}
	return timelines, nil
}

// WriteTimelinesFile writes extracted timelines to a JSON file.
func WriteTimelinesFile(timelines []timeline.Timeline, path string) error {
	data, err := MarshalTimelines(timelines)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadTimelinesFile reads extracted timelines from a JSON file.
func ReadTimelinesFile(path string) ([]timeline.Timeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return UnmarshalTimelines(data)
}

// DesignInfo records which study design a load selected and how many
// designs the document offered, so a default selection never hides data.
type DesignInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Count int    `json:"count"`
}

// LoadTimelines reads timelines from any supported input: a hand-authored
// YAML file, an intermediate timelines JSON file, or a full USDM wrapper
// (using the given design selector). The returned DesignInfo is nil for
// non-wrapper inputs, which carry no design level.
func LoadTimelines(path string, sel DesignSelector, report *timeline.Report) ([]timeline.Timeline, *DesignInfo, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		timelines, err := LoadYAML(path)
		return timelines, nil, err
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("read %s: %w", path, err)
		}
		// Intermediate files are a JSON array; wrapper documents are an object.
		if trimmed := strings.TrimSpace(string(data)); strings.HasPrefix(trimmed, "[") {
			timelines, err := UnmarshalTimelines(data)
			return timelines, nil, err
		}
		doc, err := Decode(data)
		if err != nil {
			return nil, nil, err
		}
		design, err := doc.SelectDesign(sel)
		if err != nil {
			return nil, nil, err
		}
		timelines := Extract(design, report)
		doc.ResolveReferences(timelines, report)
		info := &DesignInfo{
			ID:    design.ID,
			Name:  design.DisplayName(),
			Count: len(doc.Designs()),
		}
		return timelines, info, nil
	}
}
