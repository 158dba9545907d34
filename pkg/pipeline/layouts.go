package pipeline

import (
	"github.com/clinviz/studyflow/pkg/layout"
	"github.com/clinviz/studyflow/pkg/timeline"
)

// GenerateLayouts builds each timeline into a flow and positions it. Timelines
// that fail structurally are skipped; their diagnostics are merged into the
// returned report, and per-timeline warnings travel inside each layout.
func GenerateLayouts(timelines []timeline.Timeline, opts Options) ([]layout.Layout, *timeline.Report) {
	opts.SetLayoutDefaults()

	layouts, report := layout.BuildAll(timelines, opts.Layout)

	opts.Logger.Debug("computed layouts",
		"timelines", len(timelines),
		"layouts", len(layouts),
		"skipped", len(timelines)-len(layouts))

	return layouts, report
}
