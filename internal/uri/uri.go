// Package uri builds preview URLs for Hexo content.
package uri

import (
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultCategory is used for :category when an entity has none.
const DefaultCategory = "uncategorized"

// Target describes the entity a URL is built for.
type Target struct {
	// Slug is the file name without extension, relative to the kind's
	// directory.
	Slug string
	// Title is the frontmatter title.
	Title      string
	Date       time.Time
	Categories []string
	// Permalink overrides the pattern when set.
	Permalink string
}

var tokenPattern = regexp.MustCompile(`:([a-z_]+)`)

// PreviewURL expands a Hexo permalink pattern such as ":year/:month/:day/:title/"
// for t and joins it to base. An explicit t.Permalink wins over the pattern,
// and is returned unchanged when it is already an absolute URL. Unknown
// tokens are left as they are. Each path segment is escaped.
func PreviewURL(base, pattern string, t Target) string {
	var p string
	if t.Permalink != "" {
		if u, err := url.Parse(t.Permalink); err == nil && u.IsAbs() {
			return t.Permalink
		}
		p = t.Permalink
	} else {
		p = expand(pattern, t)
	}

	return strings.TrimSuffix(base, "/") + "/" + escapePath(strings.TrimPrefix(p, "/"))
}

func expand(pattern string, t Target) string {
	category := DefaultCategory
	if len(t.Categories) > 0 && strings.TrimSpace(t.Categories[0]) != "" {
		category = strings.TrimSpace(t.Categories[0])
	}

	values := map[string]string{
		"year":       strconv.Itoa(t.Date.Year()),
		"month":      twoDigits(int(t.Date.Month())),
		"i_month":    strconv.Itoa(int(t.Date.Month())),
		"day":        twoDigits(t.Date.Day()),
		"i_day":      strconv.Itoa(t.Date.Day()),
		"hour":       twoDigits(t.Date.Hour()),
		"minute":     twoDigits(t.Date.Minute()),
		"second":     twoDigits(t.Date.Second()),
		"title":      t.Slug,
		"name":       path.Base(t.Slug),
		"post_title": t.Title,
		"category":   category,
	}

	return tokenPattern.ReplaceAllStringFunc(pattern, func(tok string) string {
		if v, ok := values[tok[1:]]; ok {
			return v
		}
		return tok
	})
}

func twoDigits(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

// escapePath escapes each segment, keeping slashes as slashes.
func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
