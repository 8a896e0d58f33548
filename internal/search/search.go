// Package search provides search functionality over the content of a Hexo project.
package search

import (
	"cmp"
	"context"
	"log/slog"
	"regexp"
	"runtime"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/rhamdeew/hex-tool/internal/content"
)

const (
	defaultContextLines = 2
	defaultLimit        = 15
	maxLimit            = 100
)

// Fields a match can be found in.
const (
	FieldTitle      = "title"
	FieldTags       = "tags"
	FieldCategories = "categories"
	FieldBody       = "body"
)

var (
	// ErrEmptyQuery is returned when the query is blank.
	ErrEmptyQuery = errors.New("search query cannot be empty")
	// ErrInvalidPattern is returned when a regex query does not compile.
	ErrInvalidPattern = errors.New("invalid regex pattern")
)

// Lister lists the entities of a kind.
type Lister interface {
	List(kind content.Kind) ([]content.Entity, error)
}

type (
	// Params controls a search.
	Params struct {
		Query         string         `json:"query"`
		Kinds         []content.Kind `json:"kinds,omitempty"`
		UseRegex      bool           `json:"useRegex,omitempty"`
		CaseSensitive bool           `json:"caseSensitive,omitempty"`
		ContextLines  int            `json:"contextLines,omitempty"`
		Limit         int            `json:"limit,omitempty"`
		Offset        int            `json:"offset,omitempty"`
	}

	// Match is a single hit inside an entity. Line is set for body matches
	// and counts from the first body line.
	Match struct {
		Field   string `json:"field"`
		Line    int    `json:"line,omitempty"`
		Context string `json:"context"`
	}

	// Result holds the matches for one entity.
	Result struct {
		ID      string       `json:"id"`
		Kind    content.Kind `json:"kind"`
		Title   string       `json:"title"`
		Matches []Match      `json:"matches"`
	}
)

// Service searches the entities returned by a Lister.
type Service struct {
	entities Lister
	logger   *slog.Logger
}

// New creates a new search Service.
func New(entities Lister, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		entities: entities,
		logger:   logger.With("component", "search"),
	}
}

// Search matches params.Query against the title, tags, categories and body
// of every entity of the requested kinds (all kinds when none are given).
// Results keep listing order: kinds in the order requested, newest first
// within a kind. It returns the page selected by Offset and Limit and the
// total number of matching entities.
func (s *Service) Search(ctx context.Context, params Params) ([]Result, int, error) {
	pattern, err := compile(params)
	if err != nil {
		return nil, 0, err
	}

	contextLines := params.ContextLines
	if contextLines <= 0 {
		contextLines = defaultContextLines
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	limit = min(limit, maxLimit)
	offset := max(params.Offset, 0)

	entities, err := s.collect(params.Kinds)
	if err != nil {
		return nil, 0, err
	}

	// Each worker writes only its own slot, so order survives the fan-out.
	found := make([]*Result, len(entities))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(runtime.NumCPU(), 1))
	for i, e := range entities {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if matches := matchEntity(e, pattern, contextLines); len(matches) > 0 {
				found[i] = &Result{ID: e.ID, Kind: e.Kind, Title: e.Title, Matches: matches}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, errors.Wrap(err, "searching")
	}

	all := make([]Result, 0, len(found))
	for _, r := range found {
		if r != nil {
			all = append(all, *r)
		}
	}

	total := len(all)
	s.logger.Debug("search finished", "query", params.Query, "entities", len(entities), "matched", total)

	if offset >= total {
		return []Result{}, total, nil
	}
	return all[offset:min(offset+limit, total)], total, nil
}

func compile(params Params) (*regexp.Regexp, error) {
	query := params.Query
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if !params.UseRegex {
		query = regexp.QuoteMeta(query)
	}
	if !params.CaseSensitive {
		query = "(?i)" + query
	}
	re, err := regexp.Compile(query)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "invalid regex pattern"), ErrInvalidPattern)
	}
	return re, nil
}

func (s *Service) collect(kinds []content.Kind) ([]content.Entity, error) {
	if len(kinds) == 0 {
		kinds = content.Kinds
	}
	var (
		out  []content.Entity
		seen []content.Kind
	)
	for _, kind := range kinds {
		if slices.Contains(seen, kind) {
			continue
		}
		seen = append(seen, kind)
		entities, err := s.entities.List(kind)
		if err != nil {
			return nil, err
		}
		out = append(out, entities...)
	}
	return out, nil
}

func matchEntity(e content.Entity, pattern *regexp.Regexp, contextLines int) []Match {
	var matches []Match

	if pattern.MatchString(e.Title) {
		matches = append(matches, Match{Field: FieldTitle, Context: e.Title})
	}
	for _, tag := range e.Frontmatter.Tags {
		if pattern.MatchString(tag) {
			matches = append(matches, Match{Field: FieldTags, Context: tag})
		}
	}
	for _, category := range e.Frontmatter.Categories {
		if pattern.MatchString(category) {
			matches = append(matches, Match{Field: FieldCategories, Context: category})
		}
	}

	lines := strings.Split(e.Content, "\n")
	for lineNum, line := range lines {
		if !pattern.MatchString(line) {
			continue
		}
		start := max(lineNum-contextLines, 0)
		end := min(lineNum+contextLines+1, len(lines))
		matches = append(matches, Match{
			Field:   FieldBody,
			Line:    lineNum + 1,
			Context: strings.Join(lines[start:end], "\n"),
		})
	}

	return matches
}

type (
	// Term is a tag or category with the entities that use it.
	Term struct {
		Name     string   `json:"name"`
		Count    int      `json:"count"`
		Entities []string `json:"entities"`
	}

	// Taxonomy aggregates the tags and categories of a project.
	Taxonomy struct {
		Tags       []Term `json:"tags"`
		Categories []Term `json:"categories"`
	}
)

// Taxonomy counts tag and category usage across the given kinds (all kinds
// when none are given). Terms are ordered by count, then name.
func (s *Service) Taxonomy(kinds ...content.Kind) (Taxonomy, error) {
	entities, err := s.collect(kinds)
	if err != nil {
		return Taxonomy{}, err
	}

	tags := make(map[string][]string)
	categories := make(map[string][]string)
	for _, e := range entities {
		for _, tag := range uniqueNonEmpty(e.Frontmatter.Tags) {
			tags[tag] = append(tags[tag], e.ID)
		}
		for _, category := range uniqueNonEmpty(e.Frontmatter.Categories) {
			categories[category] = append(categories[category], e.ID)
		}
	}

	return Taxonomy{
		Tags:       terms(tags),
		Categories: terms(categories),
	}, nil
}

func uniqueNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

func terms(m map[string][]string) []Term {
	out := make([]Term, 0, len(m))
	for name, ids := range m {
		out = append(out, Term{Name: name, Count: len(ids), Entities: ids})
	}
	slices.SortFunc(out, func(a, b Term) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}
