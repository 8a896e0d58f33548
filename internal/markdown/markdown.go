// Package markdown renders entity bodies and inspects their links.
package markdown

import (
	"bytes"

	"github.com/cockroachdb/errors"
	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
)

// Render converts a markdown body (frontmatter already removed) to HTML.
// Raw HTML in the body is omitted.
func Render(body string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(body), &buf); err != nil {
		return "", errors.Wrap(err, "rendering markdown")
	}
	return buf.String(), nil
}

// ImageRefs returns the destinations of all images in body, in document
// order and without duplicates. Reference-style images are resolved.
func ImageRefs(body string) []string {
	src := []byte(body)
	root := md.Parser().Parse(text.NewReader(src))

	seen := make(map[string]bool)
	refs := make([]string, 0)
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		if img, ok := n.(*gmast.Image); ok {
			dest := string(img.Destination)
			if dest != "" && !seen[dest] {
				seen[dest] = true
				refs = append(refs, dest)
			}
		}
		return gmast.WalkContinue, nil
	})
	return refs
}
