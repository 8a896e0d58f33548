package frontmatter

import (
	"bytes"
	"fmt"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

const delimiter = "---"

// YAML keys of the recognized frontmatter fields.
const (
	KeyTitle        = "title"
	KeyDate         = "date"
	KeyTags         = "tags"
	KeyCategories   = "categories"
	KeyPermalink    = "permalink"
	KeyListImage    = "listImage"
	KeyListImageAlt = "listImageAlt"
	KeyMainImage    = "mainImage"
	KeyMainImageAlt = "mainImageAlt"
)

var knownKeys = []string{
	KeyTitle, KeyDate, KeyTags, KeyCategories, KeyPermalink,
	KeyListImage, KeyListImageAlt, KeyMainImage, KeyMainImageAlt,
}

// IsKnownKey reports whether key is decoded into a dedicated Frontmatter field.
func IsKnownKey(key string) bool {
	return slices.Contains(knownKeys, key)
}

// Sentinel errors returned by Parse and Serialize.
var (
	// ErrNotFrontmatter indicates the document does not begin with a delimiter line.
	ErrNotFrontmatter = errors.New("no frontmatter found")

	// ErrMalformedFrontmatter indicates the closing delimiter line is missing.
	ErrMalformedFrontmatter = errors.New("malformed frontmatter: missing closing delimiter")

	// ErrInvalidMetadata indicates the metadata block could not be decoded or encoded.
	ErrInvalidMetadata = errors.New("invalid metadata")
)

func invalidMetadata(format string, args ...any) error {
	return errors.Mark(errors.Newf("invalid metadata: %s", fmt.Sprintf(format, args...)), ErrInvalidMetadata)
}

type (
	// Frontmatter is the metadata block of a Hexo document.
	Frontmatter struct {
		Title        string   `json:"title"`
		Date         string   `json:"date"`
		Tags         []string `json:"tags"`
		Categories   []string `json:"categories"`
		Permalink    *string  `json:"permalink,omitempty"`
		ListImage    *string  `json:"listImage,omitempty"`
		ListImageAlt *string  `json:"listImageAlt,omitempty"`
		MainImage    *string  `json:"mainImage,omitempty"`
		MainImageAlt *string  `json:"mainImageAlt,omitempty"`
		// Custom holds unrecognized top-level keys in document order.
		Custom *Fields `json:"-"`
	}

	// Document is a parsed content file.
	Document struct {
		Frontmatter Frontmatter
		Body        string
	}
)

// Equal reports whether two frontmatter blocks hold the same values.
// Nil and empty lists compare equal.
func (fm Frontmatter) Equal(other Frontmatter) bool {
	return fm.Title == other.Title &&
		fm.Date == other.Date &&
		slices.Equal(fm.Tags, other.Tags) &&
		slices.Equal(fm.Categories, other.Categories) &&
		optionalEqual(fm.Permalink, other.Permalink) &&
		optionalEqual(fm.ListImage, other.ListImage) &&
		optionalEqual(fm.ListImageAlt, other.ListImageAlt) &&
		optionalEqual(fm.MainImage, other.MainImage) &&
		optionalEqual(fm.MainImageAlt, other.MainImageAlt) &&
		fm.Custom.Equal(other.Custom)
}

// Clone returns a deep copy.
func (fm Frontmatter) Clone() Frontmatter {
	out := fm
	out.Tags = slices.Clone(fm.Tags)
	out.Categories = slices.Clone(fm.Categories)
	out.Permalink = cloneOptional(fm.Permalink)
	out.ListImage = cloneOptional(fm.ListImage)
	out.ListImageAlt = cloneOptional(fm.ListImageAlt)
	out.MainImage = cloneOptional(fm.MainImage)
	out.MainImageAlt = cloneOptional(fm.MainImageAlt)
	out.Custom = fm.Custom.Clone()
	return out
}

// Equal reports whether two documents have equal frontmatter and body.
func (d Document) Equal(other Document) bool {
	return d.Body == other.Body && d.Frontmatter.Equal(other.Frontmatter)
}

// Parse splits raw into frontmatter and body.
//
// raw must start with a "---" line, and the metadata ends at the next "---"
// line. The body is everything after the closing line with surrounding
// whitespace trimmed.
func Parse(raw string) (Document, error) {
	raw = strings.TrimPrefix(raw, "\ufeff")

	first, rest, more := strings.Cut(raw, "\n")
	if !isDelimiter(first) {
		return Document{}, ErrNotFrontmatter
	}
	if !more {
		return Document{}, ErrMalformedFrontmatter
	}

	meta, body, ok := splitClosing(rest)
	if !ok {
		return Document{}, ErrMalformedFrontmatter
	}

	fm, err := decodeMetadata(meta)
	if err != nil {
		return Document{}, err
	}

	return Document{
		Frontmatter: fm,
		Body:        strings.TrimSpace(body),
	}, nil
}

// Serialize renders doc as delimiter line, metadata, delimiter line, blank
// line and body. Recognized fields come first in a fixed order, followed by
// custom fields in their stored order.
func Serialize(doc Document) (string, error) {
	root, err := metadataNode(doc.Frontmatter)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	buf.WriteString(delimiter + "\n")

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := encodeNode(enc, root); err != nil {
		return "", err
	}

	buf.WriteString(delimiter + "\n")
	if doc.Body != "" {
		buf.WriteString("\n")
		buf.WriteString(doc.Body)
		if !strings.HasSuffix(doc.Body, "\n") {
			buf.WriteString("\n")
		}
	}

	return buf.String(), nil
}

func encodeNode(enc *yaml.Encoder, node *yaml.Node) (err error) {
	// yaml.v3 panics on some unsupported values instead of returning an error
	defer func() {
		if r := recover(); r != nil {
			err = invalidMetadata("encoding: %v", r)
		}
	}()

	if err := enc.Encode(node); err != nil {
		_ = enc.Close()
		return errors.Mark(errors.Wrap(err, "encoding frontmatter"), ErrInvalidMetadata)
	}
	if err := enc.Close(); err != nil {
		return errors.Mark(errors.Wrap(err, "encoding frontmatter"), ErrInvalidMetadata)
	}
	return nil
}

func isDelimiter(line string) bool {
	return strings.TrimRight(line, " \t\r") == delimiter
}

// splitClosing finds the closing delimiter line in s and returns the text
// before it and the text after it.
func splitClosing(s string) (meta, body string, ok bool) {
	offset := 0
	for {
		line, _, more := strings.Cut(s[offset:], "\n")
		if isDelimiter(line) {
			end := offset + len(line)
			if more {
				end++
			}
			return s[:offset], s[end:], true
		}
		if !more {
			return "", "", false
		}
		offset += len(line) + 1
	}
}

func optionalEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func cloneOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
