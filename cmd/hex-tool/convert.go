package main

import (
	"bytes"
	"encoding/json"
	"maps"
	"math"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/rhamdeew/hex-tool/internal/content"
	"github.com/rhamdeew/hex-tool/internal/frontmatter"
	"github.com/rhamdeew/hex-tool/internal/uri"
)

// defaultServerPort is the port hexo server listens on without -p.
const defaultServerPort = 4000

func toFrontmatterData(fm frontmatter.Frontmatter) FrontmatterData {
	d := FrontmatterData{
		Title:        fm.Title,
		Date:         fm.Date,
		Tags:         nonNil(fm.Tags),
		Categories:   nonNil(fm.Categories),
		Permalink:    fm.Permalink,
		ListImage:    fm.ListImage,
		ListImageAlt: fm.ListImageAlt,
		MainImage:    fm.MainImage,
		MainImageAlt: fm.MainImageAlt,
	}
	if fm.Custom.Len() > 0 {
		d.Custom = fm.Custom.Map()
	}
	return d
}

// fromFrontmatterData converts wire frontmatter back. Custom keys present in
// existing keep their position, and keep their stored value when the client
// sent it back unchanged; new keys follow in sorted order.
func fromFrontmatterData(d FrontmatterData, existing *frontmatter.Fields) frontmatter.Frontmatter {
	return frontmatter.Frontmatter{
		Title:        d.Title,
		Date:         d.Date,
		Tags:         nonNil(d.Tags),
		Categories:   nonNil(d.Categories),
		Permalink:    d.Permalink,
		ListImage:    d.ListImage,
		ListImageAlt: d.ListImageAlt,
		MainImage:    d.MainImage,
		MainImageAlt: d.MainImageAlt,
		Custom:       mergeCustom(existing, d.Custom),
	}
}

func mergeCustom(existing *frontmatter.Fields, in map[string]any) *frontmatter.Fields {
	out := frontmatter.NewFields()
	for key, old := range existing.All() {
		v, ok := in[key]
		if !ok {
			continue
		}
		if sameJSON(plain(key, old), v) {
			out.Set(key, old)
		} else {
			out.Set(key, fromJSON(v))
		}
	}
	for _, key := range slices.Sorted(maps.Keys(in)) {
		if _, ok := out.Get(key); !ok {
			out.Set(key, fromJSON(in[key]))
		}
	}
	return out
}

// plain converts a stored value to the form it has in tool output.
func plain(key string, v any) any {
	f := frontmatter.NewFields()
	f.Set(key, v)
	return f.Map()[key]
}

func sameJSON(a, b any) bool {
	ab, errA := json.Marshal(a)
	bb, errB := json.Marshal(b)
	return errA == nil && errB == nil && bytes.Equal(ab, bb)
}

// fromJSON undoes the float widening of JSON numbers so integers are
// written back as integers, and turns objects into ordered fields.
func fromJSON(v any) any {
	switch vv := v.(type) {
	case float64:
		if vv == math.Trunc(vv) && math.Abs(vv) < 1<<53 {
			return int64(vv)
		}
		return vv
	case []any:
		items := make([]any, len(vv))
		for i, item := range vv {
			items[i] = fromJSON(item)
		}
		return items
	case map[string]any:
		out := frontmatter.NewFields()
		for _, key := range slices.Sorted(maps.Keys(vv)) {
			out.Set(key, fromJSON(vv[key]))
		}
		return out
	default:
		return v
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func toEntityOutput(e content.Entity, previewURL string) EntityOutput {
	return EntityOutput{
		ID:          e.ID,
		Kind:        string(e.Kind),
		Title:       e.Title,
		Date:        e.Date,
		Content:     e.Content,
		Frontmatter: toFrontmatterData(e.Frontmatter),
		FilePath:    e.FilePath,
		CreatedAt:   e.CreatedAt,
		ModifiedAt:  e.ModifiedAt,
		PreviewURL:  previewURL,
	}
}

func toEntitySummary(e content.Entity) EntitySummary {
	return EntitySummary{
		ID:         e.ID,
		Kind:       string(e.Kind),
		Title:      e.Title,
		Date:       e.Date,
		Tags:       nonNil(e.Frontmatter.Tags),
		Categories: nonNil(e.Frontmatter.Categories),
		CreatedAt:  e.CreatedAt,
		ModifiedAt: e.ModifiedAt,
	}
}

// previewURL is where the preview server serves e. Drafts are not served
// and get no URL.
func (ws *workspace) previewURL(e content.Entity, port int) string {
	if port <= 0 {
		port = defaultServerPort
	}
	slug := strings.TrimSuffix(filepath.Base(e.FilePath), filepath.Ext(e.FilePath))
	base := ws.previewBase(port)

	switch e.Kind {
	case content.KindPost:
		date, ok := frontmatter.ParseDate(e.Date)
		if !ok {
			date = time.Unix(e.ModifiedAt, 0)
		}
		return uri.PreviewURL(base, ws.site.Permalink, uri.Target{
			Slug:       slug,
			Title:      e.Title,
			Date:       date,
			Categories: e.Frontmatter.Categories,
			Permalink:  deref(e.Frontmatter.Permalink),
		})
	case content.KindPage:
		return uri.PreviewURL(base, ":title.html", uri.Target{
			Slug:      slug,
			Permalink: deref(e.Frontmatter.Permalink),
		})
	default:
		return ""
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
