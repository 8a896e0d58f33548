package search

import (
	"context"
	"fmt"
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/rhamdeew/hex-tool/internal/content"
	"github.com/rhamdeew/hex-tool/internal/frontmatter"
	"github.com/rhamdeew/hex-tool/internal/logging"
)

type fakeLister struct {
	byKind map[content.Kind][]content.Entity
	err    error
}

func (f *fakeLister) List(kind content.Kind) ([]content.Entity, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byKind[kind], nil
}

func entity(kind content.Kind, id, title, body string, tags, categories []string) content.Entity {
	return content.Entity{
		ID:      id,
		Kind:    kind,
		Title:   title,
		Content: body,
		Frontmatter: frontmatter.Frontmatter{
			Title:      title,
			Tags:       tags,
			Categories: categories,
		},
	}
}

func setupTestService(t *testing.T, entities ...content.Entity) *Service {
	t.Helper()
	l := &fakeLister{byKind: map[content.Kind][]content.Entity{}}
	for _, e := range entities {
		l.byKind[e.Kind] = append(l.byKind[e.Kind], e)
	}
	return New(l, logging.NewDiscard())
}

func TestService_Search(t *testing.T) {
	ctx := context.Background()

	t.Run("finds matching body", func(t *testing.T) {
		svc := setupTestService(t,
			entity(content.KindPost, "source/_posts/one.md", "One", "This contains searchterm.", nil, nil),
			entity(content.KindPost, "source/_posts/two.md", "Two", "No match here.", nil, nil),
			entity(content.KindPage, "source/about.md", "About", "Also has searchterm.", nil, nil),
		)

		results, total, err := svc.Search(ctx, Params{Query: "searchterm"})
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if total != 2 || len(results) != 2 {
			t.Fatalf("Search() returned %d results (total %d), want 2", len(results), total)
		}
		if results[0].ID != "source/_posts/one.md" || results[1].ID != "source/about.md" {
			t.Errorf("results out of order: %s, %s", results[0].ID, results[1].ID)
		}
		if results[1].Kind != content.KindPage {
			t.Errorf("Kind = %q, want page", results[1].Kind)
		}
	})

	t.Run("matches title tags and categories", func(t *testing.T) {
		svc := setupTestService(t,
			entity(content.KindPost, "p.md", "Go tips", "nothing", []string{"golang", "tips"}, []string{"Go"}),
		)

		results, _, err := svc.Search(ctx, Params{Query: "go"})
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(results) != 1 {
			t.Fatalf("results = %d, want 1", len(results))
		}

		var fields []string
		for _, m := range results[0].Matches {
			fields = append(fields, m.Field)
		}
		want := []string{FieldTitle, FieldTags, FieldCategories}
		if fmt.Sprint(fields) != fmt.Sprint(want) {
			t.Errorf("fields = %v, want %v", fields, want)
		}
	})

	t.Run("case insensitive by default", func(t *testing.T) {
		svc := setupTestService(t, entity(content.KindPost, "p.md", "P", "This contains KEYWORD.", nil, nil))

		results, _, err := svc.Search(ctx, Params{Query: "keyword"})
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(results) != 1 {
			t.Errorf("results = %d, want 1", len(results))
		}
	})

	t.Run("case sensitive when specified", func(t *testing.T) {
		svc := setupTestService(t, entity(content.KindPost, "p.md", "P", "This contains KEYWORD.", nil, nil))

		results, _, err := svc.Search(ctx, Params{Query: "keyword", CaseSensitive: true})
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(results) != 0 {
			t.Errorf("results = %d, want 0", len(results))
		}
	})

	t.Run("returns context lines", func(t *testing.T) {
		body := "line1\nline2\nline3 keyword\nline4\nline5\nline6"
		svc := setupTestService(t, entity(content.KindPost, "p.md", "P", body, nil, nil))

		results, _, err := svc.Search(ctx, Params{Query: "keyword", ContextLines: 1})
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(results) != 1 || len(results[0].Matches) != 1 {
			t.Fatalf("expected 1 result with 1 match, got %+v", results)
		}
		m := results[0].Matches[0]
		if m.Line != 3 {
			t.Errorf("Line = %d, want 3", m.Line)
		}
		if m.Context != "line2\nline3 keyword\nline4" {
			t.Errorf("Context = %q", m.Context)
		}
	})

	t.Run("regex search", func(t *testing.T) {
		svc := setupTestService(t, entity(content.KindPost, "p.md", "P", "foo123bar\nfoo456bar", nil, nil))

		results, _, err := svc.Search(ctx, Params{Query: "foo[0-9]+bar", UseRegex: true})
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(results) != 1 || len(results[0].Matches) != 2 {
			t.Fatalf("expected 1 result with 2 matches, got %+v", results)
		}
	})

	t.Run("literal search escapes regex characters", func(t *testing.T) {
		svc := setupTestService(t, entity(content.KindPost, "p.md", "P", "price is $5 (approx)", nil, nil))

		results, _, err := svc.Search(ctx, Params{Query: "$5 (approx)"})
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(results) != 1 {
			t.Errorf("results = %d, want 1", len(results))
		}
	})

	t.Run("filters by kind", func(t *testing.T) {
		svc := setupTestService(t,
			entity(content.KindPost, "post.md", "P", "keyword", nil, nil),
			entity(content.KindDraft, "draft.md", "D", "keyword", nil, nil),
		)

		results, total, err := svc.Search(ctx, Params{Query: "keyword", Kinds: []content.Kind{content.KindDraft, content.KindDraft}})
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if total != 1 || results[0].ID != "draft.md" {
			t.Errorf("got %+v (total %d), want only draft.md", results, total)
		}
	})

	t.Run("pagination with offset", func(t *testing.T) {
		var entities []content.Entity
		for i := range 5 {
			entities = append(entities, entity(content.KindPost, fmt.Sprintf("%d.md", i), "P", "keyword here", nil, nil))
		}
		svc := setupTestService(t, entities...)

		results, total, err := svc.Search(ctx, Params{Query: "keyword", Limit: 2, Offset: 2})
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if total != 5 {
			t.Errorf("total = %d, want 5", total)
		}
		if len(results) != 2 || results[0].ID != "2.md" || results[1].ID != "3.md" {
			t.Errorf("results = %+v, want 2.md and 3.md", results)
		}

		results, total, err = svc.Search(ctx, Params{Query: "keyword", Offset: 10})
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if total != 5 || results == nil || len(results) != 0 {
			t.Errorf("offset past end: results = %v, total = %d", results, total)
		}
	})

	t.Run("empty query returns error", func(t *testing.T) {
		svc := setupTestService(t)

		_, _, err := svc.Search(ctx, Params{Query: "  "})
		if !errors.Is(err, ErrEmptyQuery) {
			t.Errorf("err = %v, want ErrEmptyQuery", err)
		}
	})

	t.Run("invalid regex returns error", func(t *testing.T) {
		svc := setupTestService(t)

		_, _, err := svc.Search(ctx, Params{Query: "[invalid", UseRegex: true})
		if !errors.Is(err, ErrInvalidPattern) {
			t.Errorf("err = %v, want ErrInvalidPattern", err)
		}
	})

	t.Run("lister error is returned", func(t *testing.T) {
		boom := errors.New("boom")
		svc := New(&fakeLister{err: boom}, logging.NewDiscard())

		_, _, err := svc.Search(ctx, Params{Query: "x"})
		if !errors.Is(err, boom) {
			t.Errorf("err = %v, want boom", err)
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		svc := setupTestService(t, entity(content.KindPost, "p.md", "P", "keyword", nil, nil))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, _, err := svc.Search(ctx, Params{Query: "keyword"})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	})
}

func TestService_Taxonomy(t *testing.T) {
	svc := setupTestService(t,
		entity(content.KindPost, "a.md", "A", "", []string{"go", "web", "go"}, []string{"Dev"}),
		entity(content.KindPost, "b.md", "B", "", []string{"web"}, []string{"Dev", " "}),
		entity(content.KindDraft, "c.md", "C", "", []string{"go", "rust"}, nil),
	)

	tax, err := svc.Taxonomy()
	if err != nil {
		t.Fatalf("Taxonomy() error = %v", err)
	}

	got := fmt.Sprint(tax.Tags)
	want := fmt.Sprint([]Term{
		{Name: "go", Count: 2, Entities: []string{"a.md", "c.md"}},
		{Name: "web", Count: 2, Entities: []string{"a.md", "b.md"}},
		{Name: "rust", Count: 1, Entities: []string{"c.md"}},
	})
	if got != want {
		t.Errorf("Tags = %s, want %s", got, want)
	}
	if len(tax.Categories) != 1 || tax.Categories[0].Name != "Dev" || tax.Categories[0].Count != 2 {
		t.Errorf("Categories = %+v", tax.Categories)
	}

	posts, err := svc.Taxonomy(content.KindPost)
	if err != nil {
		t.Fatalf("Taxonomy(post) error = %v", err)
	}
	if len(posts.Tags) != 2 {
		t.Errorf("post tags = %+v, want go and web", posts.Tags)
	}

	empty, err := setupTestService(t).Taxonomy()
	if err != nil {
		t.Fatalf("Taxonomy() error = %v", err)
	}
	if empty.Tags == nil || empty.Categories == nil {
		t.Error("empty taxonomy should have non-nil slices")
	}
}
