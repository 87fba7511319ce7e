// Package authors derives the paper title and a spoken author line from the
// first pages, and applies them to the item list.
package authors

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackzampolin/papercast/internal/items"
	"github.com/jackzampolin/papercast/internal/stages"
)

// Stage is the stage name used in logs and call records.
const Stage = "authors"

// Defaults for Options.
const (
	DefaultPages = 5
	DefaultCap   = 5
)

// Options tunes author extraction.
type Options struct {
	// Pages is how many leading pages are sent.
	Pages int
	// Cap is the author count above which only the first group is named.
	Cap int
}

// Author is one author and their affiliation.
type Author struct {
	Name        string `json:"author_name"`
	Affiliation string `json:"affiliation"`
}

// Result is the extracted title and the narration line built from authors.
type Result struct {
	Title   string
	Authors []Author
	Line    string
}

type reply struct {
	Title   string   `json:"title"`
	Authors []Author `json:"authors"`
}

// Run extracts the title and authors and rewrites the title and author items
// of list. The returned list has at most one main title and one author item.
func Run(ctx context.Context, env *stages.Env, pages []items.Page, list []*items.Item, opts Options) (*Result, []*items.Item, error) {
	log := env.Log(Stage)
	if opts.Pages <= 0 {
		opts.Pages = DefaultPages
	}
	if opts.Cap <= 0 {
		opts.Cap = DefaultCap
	}

	lead := pages
	if len(lead) > opts.Pages {
		lead = lead[:opts.Pages]
	}
	imgs := make([][]byte, 0, len(lead))
	for _, p := range lead {
		if len(p.Image) > 0 {
			imgs = append(imgs, p.Image)
		}
	}

	var r reply
	err := env.Complete(ctx, stages.Call{
		Stage:     Stage,
		SystemKey: SystemPromptKey,
		UserKey:   UserPromptKey,
		Data: struct {
			Pages int
			Hints []string
		}{len(lead), hints(list, opts.Pages)},
		Schema:    Schema,
		Images:    imgs,
		MaxTokens: 2048,
	}, &r)
	if err != nil {
		return nil, nil, fmt.Errorf("title and authors: %w", err)
	}

	res := &Result{
		Title:   strings.TrimSpace(r.Title),
		Authors: cleanAuthors(r.Authors),
	}
	res.Line = Line(res.Authors, opts.Cap)
	out := Apply(list, res)
	if res.Title == "" {
		res.Title = firstTitle(out)
	}
	log.Info("title and authors extracted", "title", res.Title, "authors", len(res.Authors))
	return res, out, nil
}

func hints(list []*items.Item, pages int) []string {
	var out []string
	for _, it := range list {
		if it.Page > pages {
			break
		}
		if it.Type == items.TypeMainTitle || it.Type == items.TypeAuthorInfo {
			out = append(out, strings.TrimSpace(it.Content))
		}
	}
	return out
}

func cleanAuthors(in []Author) []Author {
	out := make([]Author, 0, len(in))
	for _, a := range in {
		a.Name = strings.TrimSpace(a.Name)
		a.Affiliation = strings.TrimSpace(a.Affiliation)
		if a.Name != "" {
			out = append(out, a)
		}
	}
	return out
}

type group struct {
	affiliation string
	names       []string
}

func groupByAffiliation(authors []Author) []group {
	var groups []group
	index := make(map[string]int)
	for _, a := range authors {
		key := strings.ToLower(a.Affiliation)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, group{affiliation: a.Affiliation})
		}
		groups[i].names = append(groups[i].names, a.Name)
	}
	return groups
}

// Line builds the spoken author line. Authors are grouped by affiliation in
// first-seen order. Above cap authors, the total is stated and only the first
// group is named.
func Line(authors []Author, limit int) string {
	if len(authors) == 0 {
		return ""
	}
	groups := groupByAffiliation(authors)
	if len(authors) > limit {
		return fmt.Sprintf("This paper has %d authors, including %s.", len(authors), groupPhrase(groups[0]))
	}
	parts := make([]string, len(groups))
	for i, g := range groups {
		parts[i] = groupPhrase(g)
	}
	return "By " + strings.Join(parts, "; and ") + "."
}

func groupPhrase(g group) string {
	names := joinNames(g.names)
	if g.affiliation == "" {
		return names
	}
	return names + " from " + g.affiliation
}

func joinNames(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	case 2:
		return names[0] + " and " + names[1]
	}
	return strings.Join(names[:len(names)-1], ", ") + ", and " + names[len(names)-1]
}

// Apply writes res into list: the first author item takes the author line and
// later ones are dropped, duplicate main titles are dropped, and a missing
// title or author item is inserted at the front.
func Apply(list []*items.Item, res *Result) []*items.Item {
	out := make([]*items.Item, 0, len(list)+2)
	var title, author *items.Item
	for _, it := range list {
		switch it.Type {
		case items.TypeMainTitle:
			if title != nil {
				continue
			}
			title = it
			if res.Title != "" {
				it.Content = res.Title
			}
		case items.TypeAuthorInfo:
			if author != nil {
				continue
			}
			author = it
			if res.Line != "" {
				it.Content = res.Line
			}
		}
		out = append(out, it)
	}

	page := 1
	if len(list) > 0 {
		page = list[0].Page
	}
	doc := items.NewDoc(out)
	if author == nil && res.Line != "" {
		at := 0
		if title != nil {
			at = doc.IndexOf(title) + 1
		}
		doc.Insert(at, items.New(items.TypeAuthorInfo, res.Line, page))
	}
	if title == nil && res.Title != "" {
		doc.Insert(0, items.New(items.TypeMainTitle, res.Title, page))
	}
	return doc.Items()
}

func firstTitle(list []*items.Item) string {
	for _, it := range list {
		if it.Type == items.TypeMainTitle {
			return strings.TrimSpace(it.Content)
		}
	}
	return ""
}
