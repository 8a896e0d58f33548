// Package content turns Hexo content files into posts, pages and drafts.
//
// An [Entity] is a parsed document plus where it came from: its identity
// (the path relative to the project root), its absolute file path and its
// timestamps. Entities are values; [Entity.Edit] returns a new one and the
// caller decides when to write it back.
package content

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/rhamdeew/hex-tool/internal/filesystem"
	"github.com/rhamdeew/hex-tool/internal/frontmatter"
)

// Kind distinguishes the three content types. They share one structure and
// differ only in the directory they live in.
type Kind string

const (
	KindPost  Kind = "post"
	KindPage  Kind = "page"
	KindDraft Kind = "draft"
)

// Kinds lists every content kind.
var Kinds = []Kind{KindPost, KindPage, KindDraft}

// ParseKind converts a tool argument to a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindPost, KindPage, KindDraft:
		return k, nil
	case "posts":
		return KindPost, nil
	case "pages":
		return KindPage, nil
	case "drafts":
		return KindDraft, nil
	default:
		return "", errors.Newf("unknown content kind %q (want post, page or draft)", s)
	}
}

var (
	// ErrIO indicates a read, write or metadata failure.
	ErrIO = errors.New("io error")
	// ErrNotFound indicates the entity or image does not exist.
	ErrNotFound = errors.New("not found")
	// ErrExists indicates the target file is already present.
	ErrExists = errors.New("already exists")
	// ErrImageInUse indicates an image is still referenced by content.
	ErrImageInUse = errors.New("image is in use")
)

func ioError(err error, format string, args ...any) error {
	if errors.Is(err, filesystem.ErrNotFound) {
		err = errors.Mark(err, ErrNotFound)
	}
	return errors.Mark(errors.Wrapf(err, format, args...), ErrIO)
}

// Entity is a post, page or draft.
type Entity struct {
	ID          string                  `json:"id"`
	Kind        Kind                    `json:"kind"`
	Title       string                  `json:"title"`
	Date        string                  `json:"date"`
	Content     string                  `json:"content"`
	Frontmatter frontmatter.Frontmatter `json:"frontmatter"`
	FilePath    string                  `json:"filePath"`
	// CreatedAt and ModifiedAt are Unix seconds, 0 when unknown. Creation
	// time is best effort: many filesystems do not record it and report the
	// modification time instead.
	CreatedAt  int64 `json:"createdAt"`
	ModifiedAt int64 `json:"modifiedAt"`
}

// Edit returns a copy of e with new metadata and body. Identity, path and
// timestamps are kept.
func (e Entity) Edit(fm frontmatter.Frontmatter, body string) Entity {
	out := e
	out.Frontmatter = fm.Clone()
	out.Title = fm.Title
	out.Date = fm.Date
	out.Content = strings.TrimSpace(body)
	return out
}

// Document returns the entity's frontmatter and body as a codec document.
func (e Entity) Document() frontmatter.Document {
	return frontmatter.Document{Frontmatter: e.Frontmatter, Body: e.Content}
}

// ToMarkdown serializes the entity's frontmatter and body. Identity and
// timestamps are not part of the file.
func ToMarkdown(e Entity) (string, error) {
	return frontmatter.Serialize(e.Document())
}

// FileReader is the file access the Loader needs.
type FileReader interface {
	Read(path string) ([]byte, error)
	Timestamps(path string) (filesystem.Times, error)
}

// Loader builds entities from files.
type Loader struct {
	files FileReader
}

// NewLoader creates a Loader reading through files.
func NewLoader(files FileReader) *Loader {
	return &Loader{files: files}
}

// Load reads and parses path. The ID is path relative to projectRoot with
// forward slashes, or the absolute path when path is outside projectRoot.
// Read and stat failures are wrapped with ErrIO; codec errors are returned
// unchanged.
func (l *Loader) Load(kind Kind, path, projectRoot string) (Entity, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Entity{}, ioError(err, "resolving %s", path)
	}

	raw, err := l.files.Read(absPath)
	if err != nil {
		return Entity{}, ioError(err, "reading %s", path)
	}

	doc, err := frontmatter.Parse(string(raw))
	if err != nil {
		return Entity{}, err
	}

	ts, err := l.files.Timestamps(absPath)
	if err != nil {
		return Entity{}, ioError(err, "reading metadata of %s", path)
	}

	return Entity{
		ID:          Identity(absPath, projectRoot),
		Kind:        kind,
		Title:       doc.Frontmatter.Title,
		Date:        doc.Frontmatter.Date,
		Content:     doc.Body,
		Frontmatter: doc.Frontmatter,
		FilePath:    absPath,
		CreatedAt:   unixOrZero(ts.Created),
		ModifiedAt:  unixOrZero(ts.Modified),
	}, nil
}

// Identity derives an entity ID from its path.
func Identity(path, projectRoot string) string {
	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}
	absRoot, err := filepath.Abs(projectRoot)
	if err != nil || projectRoot == "" {
		return absPath
	}

	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return absPath
	}
	return filepath.ToSlash(rel)
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
