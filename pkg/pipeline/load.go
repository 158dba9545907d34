package pipeline

import (
	"github.com/clinviz/studyflow/pkg/timeline"
	"github.com/clinviz/studyflow/pkg/usdm"
)

// parseSelector interprets the Options.Design string.
func parseSelector(s string) usdm.DesignSelector {
	return usdm.ParseDesignSelector(s)
}

// Load reads the input and extracts its timelines. The input can be a USDM
// wrapper document, an intermediate timelines JSON file, or an authored YAML
// file; loader diagnostics land in the returned report. Design info is nil
// for inputs without a design level.
func Load(opts Options) ([]timeline.Timeline, *usdm.DesignInfo, *timeline.Report, error) {
	if err := opts.ValidateForLoad(); err != nil {
		return nil, nil, nil, err
	}

	report := &timeline.Report{}
	timelines, design, err := usdm.LoadTimelines(opts.Input, parseSelector(opts.Design), report)
	if err != nil {
		return nil, nil, nil, err
	}

	opts.Logger.Debug("loaded timelines",
		"input", opts.Input,
		"timelines", len(timelines),
		"diagnostics", len(report.Diagnostics))

	return timelines, design, report, nil
}
