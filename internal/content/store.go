package content

import (
	"cmp"
	"log/slog"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/rhamdeew/hex-tool/internal/filesystem"
	"github.com/rhamdeew/hex-tool/internal/frontmatter"
	"github.com/rhamdeew/hex-tool/internal/hexo"
	"github.com/rhamdeew/hex-tool/internal/pathfilter"
)

// DateLayout is the format Hexo writes into new documents.
const DateLayout = "2006-01-02 15:04:05"

// Store reads and writes the entities of one Hexo project.
type Store struct {
	project *hexo.Project
	files   *filesystem.Service
	loader  *Loader
	logger  *slog.Logger
	now     func() time.Time
}

// NewStore creates a Store for project.
func NewStore(project *hexo.Project, files *filesystem.Service, logger *slog.Logger) *Store {
	if files == nil {
		files = filesystem.New(project.Root(), nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		project: project,
		files:   files,
		loader:  NewLoader(files),
		logger:  logger.With("component", "content"),
		now:     time.Now,
	}
}

// Project returns the project the store works on.
func (s *Store) Project() *hexo.Project {
	return s.project
}

// Dir returns the directory holding entities of kind.
func (s *Store) Dir(kind Kind) string {
	switch kind {
	case KindPage:
		return s.project.PagesDir()
	case KindDraft:
		return s.project.DraftsDir()
	default:
		return s.project.PostsDir()
	}
}

// List returns the entities of kind, newest first. Files that cannot be
// read or parsed are logged and skipped.
func (s *Store) List(kind Kind) ([]Entity, error) {
	paths, err := s.files.ListTopLevel(s.Dir(kind), pathfilter.Markdown())
	if err != nil {
		return nil, ioError(err, "listing %ss", kind)
	}

	entities := make([]Entity, 0, len(paths))
	for _, path := range paths {
		e, err := s.loader.Load(kind, path, s.project.Root())
		if err != nil {
			s.logger.Warn("skipping unreadable content file", "path", path, "error", err)
			continue
		}
		entities = append(entities, e)
	}

	SortNewestFirst(entities)
	return entities, nil
}

// SortNewestFirst orders entities by frontmatter date, falling back to the
// file modification time, newest first. Ties are broken by ID.
func SortNewestFirst(entities []Entity) {
	slices.SortStableFunc(entities, func(a, b Entity) int {
		if c := cmp.Compare(sortTime(b), sortTime(a)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

func sortTime(e Entity) int64 {
	if t, ok := frontmatter.ParseDate(e.Date); ok {
		return t.Unix()
	}
	return e.ModifiedAt
}

// Get loads the entity with the given ID. The ID must name a file inside the
// kind's directory.
func (s *Store) Get(kind Kind, id string) (Entity, error) {
	path, err := s.pathFor(kind, id)
	if err != nil {
		return Entity{}, err
	}
	if !s.files.Exists(path) {
		return Entity{}, errors.Wrapf(ErrNotFound, "%s %s", kind, id)
	}
	return s.loader.Load(kind, path, s.project.Root())
}

// pathFor resolves an entity ID and checks that it belongs to kind.
func (s *Store) pathFor(kind Kind, id string) (string, error) {
	path, err := s.files.ResolvePath(id)
	if err != nil {
		return "", err
	}
	if filepath.Dir(path) != s.Dir(kind) {
		return "", errors.Newf("%s is not a %s", id, kind)
	}
	if !pathfilter.Markdown().HasAllowedExtension(path) {
		return "", errors.Newf("%s is not a markdown file", id)
	}
	return path, nil
}

// Save writes e to disk and returns the entity as read back. The target is
// resolved from e.ID so callers cannot write outside the project.
func (s *Store) Save(e Entity) (Entity, error) {
	path, err := s.pathFor(e.Kind, e.ID)
	if err != nil {
		return Entity{}, err
	}

	md, err := ToMarkdown(e)
	if err != nil {
		return Entity{}, err
	}
	if err := s.files.Write(path, []byte(md)); err != nil {
		return Entity{}, ioError(err, "saving %s", e.ID)
	}

	s.logger.Info("saved entity", "id", e.ID, "kind", e.Kind)
	return s.loader.Load(e.Kind, path, s.project.Root())
}

// Create writes a new, empty entity titled title. The file name is derived
// from the title; ErrExists is returned if it is taken.
func (s *Store) Create(kind Kind, title string) (Entity, error) {
	dir := s.Dir(kind)
	path := filepath.Join(dir, Slugify(title)+".md")
	if s.files.Exists(path) {
		id := Identity(path, s.project.Root())
		return Entity{}, errors.Wrapf(ErrExists, "%s %s", kind, id)
	}

	fm := frontmatter.Frontmatter{
		Title:      title,
		Date:       s.now().Format(DateLayout),
		Tags:       []string{},
		Categories: []string{},
	}
	md, err := frontmatter.Serialize(frontmatter.Document{Frontmatter: fm})
	if err != nil {
		return Entity{}, err
	}
	if err := s.files.Write(path, []byte(md)); err != nil {
		return Entity{}, ioError(err, "creating %s", path)
	}

	s.logger.Info("created entity", "path", path, "kind", kind)
	return s.loader.Load(kind, path, s.project.Root())
}

// Delete removes the entity file.
func (s *Store) Delete(kind Kind, id string) error {
	path, err := s.pathFor(kind, id)
	if err != nil {
		return err
	}
	if err := s.files.Remove(path); err != nil {
		return ioError(err, "deleting %s", id)
	}
	s.logger.Info("deleted entity", "id", id, "kind", kind)
	return nil
}

// Publish moves a draft into the posts directory and stamps it with the
// current date when it has none.
func (s *Store) Publish(id string) (Entity, error) {
	draft, err := s.Get(KindDraft, id)
	if err != nil {
		return Entity{}, err
	}

	target := filepath.Join(s.project.PostsDir(), filepath.Base(draft.FilePath))
	if err := s.files.Rename(draft.FilePath, target); err != nil {
		if errors.Is(err, filesystem.ErrExists) {
			return Entity{}, errors.Wrapf(ErrExists, "post %s", Identity(target, s.project.Root()))
		}
		return Entity{}, ioError(err, "publishing %s", id)
	}

	post, err := s.loader.Load(KindPost, target, s.project.Root())
	if err != nil {
		return Entity{}, err
	}
	if post.Date != "" {
		return post, nil
	}

	fm := post.Frontmatter.Clone()
	fm.Date = s.now().Format(DateLayout)
	return s.Save(post.Edit(fm, post.Content))
}

// uniqueName returns name, or name with a numeric suffix, such that no file
// of that name exists in dir.
func (s *Store) uniqueName(dir, name string) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	candidate := name
	for i := 1; s.files.Exists(filepath.Join(dir, candidate)); i++ {
		candidate = stem + "-" + strconv.Itoa(i) + ext
	}
	return candidate
}
