package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/clinviz/studyflow/pkg/cache"
	"github.com/clinviz/studyflow/pkg/errors"
)

const yamlInput = `
id: tl-test
name: Test Timeline
entry: E
nodes:
  - id: E
    kind: entry
    label: Start
    next: D
  - id: D
    kind: decision
    label: Eligible?
    next: A
    branches:
      - condition: Not eligible
        target: O
  - id: A
    kind: activity
    label: Treatment
    next: X
  - id: O
    kind: activity
    label: Early Term
  - id: X
    kind: exit
    label: Done
timings:
  - id: T1
    from: E
    to: A
    value: 7 days
`

func writeInput(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "timeline.yaml")
	if err := os.WriteFile(path, []byte(yamlInput), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestValidateFormats(t *testing.T) {
	if err := ValidateFormats([]string{"html", "svg", "png", "dot", "json"}); err != nil {
		t.Errorf("valid formats rejected: %v", err)
	}
	if err := ValidateFormat("pdf"); err == nil {
		t.Error("pdf should be rejected")
	}
}

func TestParseFormats(t *testing.T) {
	formats, err := ParseFormats("html, SVG ,json")
	if err != nil {
		t.Fatalf("ParseFormats: %v", err)
	}
	if len(formats) != 3 || formats[1] != "svg" {
		t.Errorf("formats = %v", formats)
	}

	if _, err := ParseFormats("html,bogus"); err == nil {
		t.Error("bogus format should be rejected")
	}
}

func TestArtifactName(t *testing.T) {
	if got := ArtifactName("html", "tl-1", true); got != "html" {
		t.Errorf("html artifact = %s", got)
	}
	if got := ArtifactName("svg", "tl-1", false); got != "svg" {
		t.Errorf("single svg artifact = %s", got)
	}
	if got := ArtifactName("svg", "tl-1", true); got != "svg:tl-1" {
		t.Errorf("multi svg artifact = %s", got)
	}
}

func TestOptionsValidation(t *testing.T) {
	opts := Options{}
	if err := opts.ValidateAndSetDefaults(); err == nil {
		t.Error("empty input should be rejected")
	}

	opts = Options{Input: "study.json"}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults: %v", err)
	}
	if len(opts.Formats) != 1 || opts.Formats[0] != FormatHTML {
		t.Errorf("default formats = %v, want [html]", opts.Formats)
	}
}

func TestExecute(t *testing.T) {
	runner := NewRunner(nil, nil, nil)
	defer runner.Close()

	result, err := runner.Execute(context.Background(), Options{
		Input:   writeInput(t),
		Formats: []string{FormatHTML, FormatJSON, FormatSVG, FormatDOT},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if result.Stats.TimelineCount != 1 {
		t.Errorf("timelines = %d, want 1", result.Stats.TimelineCount)
	}
	if result.Stats.NodeCount != 5 {
		t.Errorf("nodes = %d, want 5", result.Stats.NodeCount)
	}
	if len(result.Layouts) != 1 {
		t.Fatalf("layouts = %d, want 1", len(result.Layouts))
	}
	if result.TimelinesHash == "" {
		t.Error("timelines hash not set")
	}
	if result.Design != nil {
		t.Errorf("authored YAML input should carry no design info, got %+v", result.Design)
	}

	for _, name := range []string{"html", "json", "svg", "dot"} {
		if len(result.Artifacts[name]) == 0 {
			t.Errorf("artifact %s missing", name)
		}
	}
	if !strings.Contains(string(result.Artifacts["dot"]), "digraph G") {
		t.Error("dot artifact malformed")
	}
}

func TestExecuteCacheHits(t *testing.T) {
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	runner := NewRunner(c, nil, nil)
	defer runner.Close()

	opts := Options{Input: writeInput(t), Formats: []string{FormatJSON}}
	ctx := context.Background()

	first, err := runner.Execute(ctx, opts)
	if err != nil {
		t.Fatalf("first Execute: %v", err)
	}
	if first.CacheInfo.LoadHit || first.CacheInfo.LayoutHit || first.CacheInfo.RenderHit {
		t.Errorf("first run should miss everywhere: %+v", first.CacheInfo)
	}

	second, err := runner.Execute(ctx, opts)
	if err != nil {
		t.Fatalf("second Execute: %v", err)
	}
	if !second.CacheInfo.LoadHit || !second.CacheInfo.LayoutHit || !second.CacheInfo.RenderHit {
		t.Errorf("second run should hit everywhere: %+v", second.CacheInfo)
	}
	if string(first.Artifacts["json"]) != string(second.Artifacts["json"]) {
		t.Error("cached artifact differs from fresh artifact")
	}

	// Refresh bypasses the cache.
	opts.Refresh = true
	third, err := runner.Execute(ctx, opts)
	if err != nil {
		t.Fatalf("third Execute: %v", err)
	}
	if third.CacheInfo.LoadHit {
		t.Error("refresh run should not hit the load cache")
	}
}

func TestExecuteMissingInput(t *testing.T) {
	runner := NewRunner(nil, nil, nil)
	defer runner.Close()

	_, err := runner.Execute(context.Background(), Options{
		Input: filepath.Join(t.TempDir(), "absent.json"),
	})
	if err == nil {
		t.Fatal("missing input should fail")
	}
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("error code = %s, want %s", errors.GetCode(err), errors.ErrCodeFileNotFound)
	}
}

func TestExecuteUnknownFormat(t *testing.T) {
	runner := NewRunner(nil, nil, nil)
	defer runner.Close()

	_, err := runner.Execute(context.Background(), Options{
		Input:   writeInput(t),
		Formats: []string{"tiff"},
	})
	if err == nil {
		t.Error("unknown format should fail")
	}
}
