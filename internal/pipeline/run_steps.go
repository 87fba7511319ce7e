package pipeline

import (
	"context"

	"github.com/jackzampolin/papercast/internal/items"
	"github.com/jackzampolin/papercast/internal/partition"
	"github.com/jackzampolin/papercast/internal/stages/annotate"
	"github.com/jackzampolin/papercast/internal/stages/authors"
	"github.com/jackzampolin/papercast/internal/stages/classify"
	"github.com/jackzampolin/papercast/internal/stages/extract"
	"github.com/jackzampolin/papercast/internal/stages/filter"
	"github.com/jackzampolin/papercast/internal/stages/normalize"
	"github.com/jackzampolin/papercast/internal/stages/reposition"
	"github.com/jackzampolin/papercast/internal/stages/summarize"
	"github.com/jackzampolin/papercast/internal/stages/synth"
)

func (rn *run) rasterize(ctx context.Context) error {
	pages, err := rn.svc.Rasterizer.Rasterize(ctx, rn.pdfPath, rn.doc.Pages)
	if err != nil {
		return err
	}
	rn.pages = pages
	rn.log.Info("pages rendered", "pages", len(pages))
	return nil
}

// partition adds the document's text layer to each page. It is optional
// context for extraction, so a failure only costs that context.
func (rn *run) partition(ctx context.Context) error {
	if rn.svc.Partitioner == nil {
		return nil
	}
	elements, err := rn.svc.Partitioner.Partition(ctx, rn.doc.Data, rn.doc.Name)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rn.log.Warn("partitioning failed, extracting from images only", "error", err)
		return nil
	}
	text := partition.ByPage(elements)
	for i := range rn.pages {
		rn.pages[i].RawText = text[rn.pages[i].Number]
	}
	rn.log.Info("document partitioned", "elements", len(elements), "pages_with_text", len(text))
	return nil
}

func (rn *run) extract(ctx context.Context) error {
	list, err := extract.Run(ctx, rn.env, rn.pages)
	if err != nil {
		return err
	}
	rn.list = list
	return nil
}

func (rn *run) classify(ctx context.Context) error {
	return classify.Run(ctx, rn.env, rn.pages, rn.list)
}

func (rn *run) annotate(ctx context.Context) error {
	return annotate.Run(ctx, rn.env, rn.list)
}

func (rn *run) summarize(ctx context.Context) error {
	list, err := summarize.Run(ctx, rn.env, rn.pages, rn.list)
	if err != nil {
		return err
	}
	rn.list = list
	return nil
}

func (rn *run) authors(ctx context.Context) error {
	res, list, err := authors.Run(ctx, rn.env, rn.pages, rn.list, rn.opts.Authors)
	if err != nil {
		return err
	}
	rn.byline = res
	rn.list = list
	if res.Title != "" {
		rn.out.Title = res.Title
	}
	rn.out.Authors = res.Line
	return nil
}

func (rn *run) filter(_ context.Context) error {
	doc := items.NewDoc(rn.list)
	st := filter.Run(doc, filter.Options{Method: rn.method})
	rn.list = doc.Items()
	rn.log.Info("filter complete",
		"dropped", st.Dropped,
		"end_marker", st.EndMarker,
		"pre_abstract", st.PreAbstract,
		"duplicate_headings", st.DupHeadings,
		"items", len(rn.list))
	return nil
}

func (rn *run) normalize(ctx context.Context) error {
	_, err := normalize.Run(ctx, rn.env, rn.list, rn.opts.Normalize)
	return err
}

func (rn *run) reposition(_ context.Context) error {
	doc := items.NewDoc(rn.list)
	if _, err := reposition.Run(doc, rn.log); err != nil {
		return err
	}
	rn.list = doc.Items()
	return nil
}

func (rn *run) synth(ctx context.Context) error {
	s := &synth.Synthesizer{
		Speech:       rn.svc.Speech,
		Tools:        rn.svc.Tools,
		Logger:       rn.log,
		ProseVoice:   rn.opts.ProseVoice,
		SummaryVoice: rn.opts.SummaryVoice,
		MaxChars:     rn.opts.MaxChars,
		PauseCue:     rn.opts.PauseCue,
		MarkupPauses: rn.opts.MarkupPauses,
		BatchSize:    rn.opts.BatchSize,
		Retries:      rn.opts.Retries,
	}
	res, err := s.Run(ctx, rn.list, rn.workDir)
	if err != nil {
		return err
	}
	rn.result = res
	rn.out.Segments = res.Segments
	rn.out.TOC = res.TOC
	rn.out.Duration = res.Duration
	return nil
}
