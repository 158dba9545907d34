package usdm

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/clinviz/studyflow/pkg/timeline"
)

const refWrapperJSON = `{
	"study": {
		"id": "ignored",
		"versions": [
			{
				"id": "sv-1",
				"studyDesigns": [
					{
						"id": "sd-1",
						"scheduleTimelines": [
							{
								"id": "tl-1",
								"name": "Main",
								"entryId": "si-1",
								"instances": [
									{
										"id": "si-1",
										"label": "Screening",
										"instanceType": "ScheduledActivityInstance",
										"defaultConditionId": "si-2"
									},
									{
										"id": "si-2",
										"label": "Dose <usdm:tag name=\"dose\"/>",
										"description": "See <usdm:ref id=\"si-1\" attribute=\"label\"/> results",
										"instanceType": "ScheduledActivityInstance",
										"dictionaryId": "dict-1",
										"timelineExitId": "ex-1"
									}
								]
							}
						]
					}
				]
			}
		],
		"dictionaries": [
			{
				"id": "dict-1",
				"parameterMaps": [
					{"tag": "dose", "reference": "54 mg"}
				]
			}
		]
	}
}`

func TestResolveReferencesOnLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "study.json")
	if err := os.WriteFile(path, []byte(refWrapperJSON), 0644); err != nil {
		t.Fatal(err)
	}

	report := &timeline.Report{}
	timelines, _, err := LoadTimelines(path, DesignSelector{}, report)
	if err != nil {
		t.Fatalf("LoadTimelines: %v", err)
	}
	if len(timelines) != 1 {
		t.Fatalf("timelines = %d, want 1", len(timelines))
	}

	byID := make(map[string]timeline.Node)
	for _, n := range timelines[0].Nodes {
		byID[n.ID] = n
	}

	if got := byID["si-2"].Label; got != "Dose 54 mg" {
		t.Errorf("tag label = %q, want %q", got, "Dose 54 mg")
	}
	if got := byID["si-2"].Description; got != "See Screening results" {
		t.Errorf("ref description = %q, want %q", got, "See Screening results")
	}
	if !report.Empty() {
		t.Errorf("clean resolution should leave no diagnostics: %v", report.Messages())
	}
}

func TestResolveReferencesMissingTarget(t *testing.T) {
	broken := strings.Replace(refWrapperJSON, `id=\"si-1\"`, `id=\"si-9\"`, 1)
	path := filepath.Join(t.TempDir(), "study.json")
	if err := os.WriteFile(path, []byte(broken), 0644); err != nil {
		t.Fatal(err)
	}

	report := &timeline.Report{}
	timelines, _, err := LoadTimelines(path, DesignSelector{}, report)
	if err != nil {
		t.Fatalf("LoadTimelines: %v", err)
	}

	var desc string
	for _, n := range timelines[0].Nodes {
		if n.ID == "si-2" {
			desc = n.Description
		}
	}
	if !strings.Contains(desc, "<missing reference>") {
		t.Errorf("description = %q, want a placeholder", desc)
	}
	if got := report.Count(timeline.DiagBadReference); got != 1 {
		t.Errorf("bad reference diagnostics = %d, want 1", got)
	}
}
