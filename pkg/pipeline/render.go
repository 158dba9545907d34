package pipeline

import (
	"context"

	"github.com/clinviz/studyflow/pkg/errors"
	"github.com/clinviz/studyflow/pkg/layout"
	"github.com/clinviz/studyflow/pkg/render/dot"
	"github.com/clinviz/studyflow/pkg/render/html"
	"github.com/clinviz/studyflow/pkg/render/svg"
)

// RenderFromLayouts renders the requested formats from positioned layouts.
// HTML and JSON produce one artifact covering every timeline; SVG, PNG, and
// DOT produce one artifact per timeline.
func RenderFromLayouts(ctx context.Context, layouts []layout.Layout, opts Options) (map[string][]byte, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, err
	}
	if len(layouts) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidTimeline, "no layouts to render")
	}

	multi := len(layouts) > 1
	artifacts := make(map[string][]byte)

	for _, format := range opts.Formats {
		switch format {
		case FormatHTML:
			data, err := html.RenderBytes(layouts, html.Options{Title: opts.Title})
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeInternal, err, "render html")
			}
			artifacts[FormatHTML] = data

		case FormatJSON:
			data, err := layout.Marshal(layouts)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeInternal, err, "render json")
			}
			artifacts[FormatJSON] = data

		case FormatSVG:
			for i := range layouts {
				data, err := svg.RenderBytes(&layouts[i])
				if err != nil {
					return nil, errors.Wrap(errors.ErrCodeInternal, err, "render svg %s", layouts[i].TimelineID)
				}
				artifacts[ArtifactName(FormatSVG, layouts[i].TimelineID, multi)] = data
			}

		case FormatDOT:
			for i := range layouts {
				src := dot.ToDOT(&layouts[i], dot.Options{Detailed: opts.Detailed})
				artifacts[ArtifactName(FormatDOT, layouts[i].TimelineID, multi)] = []byte(src)
			}

		case FormatPNG:
			for i := range layouts {
				src := dot.ToDOT(&layouts[i], dot.Options{Detailed: opts.Detailed})
				data, err := dot.RenderPNG(ctx, src)
				if err != nil {
					return nil, errors.Wrap(errors.ErrCodeInternal, err, "render png %s", layouts[i].TimelineID)
				}
				artifacts[ArtifactName(FormatPNG, layouts[i].TimelineID, multi)] = data
			}

		default:
			return nil, ValidateFormat(format)
		}
	}

	return artifacts, nil
}
