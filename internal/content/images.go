package content

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/rhamdeew/hex-tool/internal/markdown"
	"github.com/rhamdeew/hex-tool/internal/pathfilter"
)

// Image is a file under source/images.
type Image struct {
	Name       string `json:"name"`
	ID         string `json:"id"`
	URL        string `json:"url"`
	FilePath   string `json:"filePath"`
	Size       int64  `json:"size"`
	ModifiedAt int64  `json:"modifiedAt"`
	// UsedBy lists the IDs of entities that reference the image.
	UsedBy []string `json:"usedBy"`
}

// ListImages returns the images of the project sorted by name, each with the
// entities that reference it.
func (s *Store) ListImages() ([]Image, error) {
	paths, err := s.files.ListTopLevel(s.project.ImagesDir(), pathfilter.Images())
	if err != nil {
		return nil, ioError(err, "listing images")
	}

	usage := s.imageUsage()
	images := make([]Image, 0, len(paths))
	for _, p := range paths {
		img, err := s.image(p)
		if err != nil {
			s.logger.Warn("skipping unreadable image", "path", p, "error", err)
			continue
		}
		img.UsedBy = append(img.UsedBy, usage[img.URL]...)
		images = append(images, img)
	}
	return images, nil
}

func (s *Store) image(p string) (Image, error) {
	info, err := s.files.Stat(p)
	if err != nil {
		return Image{}, ioError(err, "stat %s", p)
	}
	name := filepath.Base(p)
	return Image{
		Name:       name,
		ID:         Identity(p, s.project.Root()),
		URL:        imageURL(name),
		FilePath:   p,
		Size:       info.Size(),
		ModifiedAt: unixOrZero(info.ModTime()),
		UsedBy:     []string{},
	}, nil
}

// imageURL is the site path Hexo serves an image under.
func imageURL(name string) string {
	return "/images/" + name
}

// imageUsage maps image URLs to the IDs of the entities referencing them,
// through markdown image syntax or the image frontmatter fields.
func (s *Store) imageUsage() map[string][]string {
	usage := make(map[string][]string)
	for _, kind := range Kinds {
		entities, err := s.List(kind)
		if err != nil {
			s.logger.Warn("scanning image references", "kind", kind, "error", err)
			continue
		}
		for _, e := range entities {
			refs := markdown.ImageRefs(e.Content)
			for _, opt := range []*string{e.Frontmatter.ListImage, e.Frontmatter.MainImage} {
				if opt != nil && *opt != "" {
					refs = append(refs, *opt)
				}
			}

			seen := make(map[string]bool)
			for _, ref := range refs {
				url := normalizeImageRef(ref)
				if url == "" || seen[url] {
					continue
				}
				seen[url] = true
				usage[url] = append(usage[url], e.ID)
			}
		}
	}
	return usage
}

// normalizeImageRef maps a reference to its /images/<name> URL, or "" when
// it does not point into the images directory.
func normalizeImageRef(ref string) string {
	ref = strings.TrimSpace(ref)
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	if strings.Contains(ref, "://") {
		return ""
	}
	ref = path.Clean("/" + strings.TrimPrefix(ref, "/"))
	if path.Dir(ref) != "/images" {
		return ""
	}
	return ref
}

// CopyImage copies src into the images directory under a name that does not
// collide with an existing image.
func (s *Store) CopyImage(src string) (Image, error) {
	if !pathfilter.Images().HasAllowedExtension(src) {
		return Image{}, errors.Newf("%s is not a supported image type", filepath.Base(src))
	}

	dir := s.project.ImagesDir()
	if err := s.files.EnsureDir(dir); err != nil {
		return Image{}, ioError(err, "creating images directory")
	}

	name := s.uniqueName(dir, filepath.Base(src))
	dst := filepath.Join(dir, name)
	if err := s.files.Copy(src, dst, false); err != nil {
		return Image{}, ioError(err, "copying %s", src)
	}

	s.logger.Info("copied image", "src", src, "name", name)
	return s.image(dst)
}

// DeleteImage removes an image by file name. Images still referenced by
// content are kept unless force is set.
func (s *Store) DeleteImage(name string, force bool) error {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) {
		return errors.Newf("invalid image name %q", name)
	}

	p := filepath.Join(s.project.ImagesDir(), name)
	if !s.files.Exists(p) {
		return errors.Wrapf(ErrNotFound, "image %s", name)
	}

	if !force {
		if users := s.imageUsage()[imageURL(name)]; len(users) > 0 {
			return errors.Wrapf(ErrImageInUse, "%s is referenced by %s", name, strings.Join(users, ", "))
		}
	}

	if err := s.files.Remove(p); err != nil {
		return ioError(err, "deleting image %s", name)
	}
	s.logger.Info("deleted image", "name", name, "forced", force)
	return nil
}
