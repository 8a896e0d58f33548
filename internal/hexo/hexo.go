// Package hexo locates the parts of a Hexo project on disk.
package hexo

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// ConfigFile is the site configuration file at the project root.
const ConfigFile = "_config.yml"

// ErrNotHexoProject is returned when a directory lacks _config.yml or source/.
var ErrNotHexoProject = errors.New("not a hexo project")

// Project is a validated Hexo project root.
type Project struct {
	root string
}

// Open validates root and returns the project.
func Open(root string) (*Project, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving %s", root)
	}
	if err := Validate(abs); err != nil {
		return nil, err
	}
	return &Project{root: abs}, nil
}

// Validate checks that root holds a _config.yml file and a source directory.
func Validate(root string) error {
	info, err := os.Stat(filepath.Join(root, ConfigFile))
	if err != nil || info.IsDir() {
		return errors.Wrapf(ErrNotHexoProject, "%s: %s not found", root, ConfigFile)
	}

	info, err = os.Stat(filepath.Join(root, "source"))
	if err != nil || !info.IsDir() {
		return errors.Wrapf(ErrNotHexoProject, "%s: source/ directory not found", root)
	}
	return nil
}

// Root returns the absolute project root.
func (p *Project) Root() string { return p.root }

// ConfigPath returns the path of _config.yml.
func (p *Project) ConfigPath() string { return filepath.Join(p.root, ConfigFile) }

// SourceDir returns the source directory.
func (p *Project) SourceDir() string { return filepath.Join(p.root, "source") }

// PostsDir returns the directory of published posts.
func (p *Project) PostsDir() string { return filepath.Join(p.SourceDir(), "_posts") }

// DraftsDir returns the directory of drafts.
func (p *Project) DraftsDir() string { return filepath.Join(p.SourceDir(), "_drafts") }

// PagesDir returns the directory holding top-level pages.
func (p *Project) PagesDir() string { return p.SourceDir() }

// ImagesDir returns the directory for uploaded images.
func (p *Project) ImagesDir() string { return filepath.Join(p.SourceDir(), "images") }

// SiteConfig holds the _config.yml settings the editor uses.
type SiteConfig struct {
	Title         string `yaml:"title" json:"title"`
	Subtitle      string `yaml:"subtitle" json:"subtitle,omitempty"`
	Author        string `yaml:"author" json:"author,omitempty"`
	Language      string `yaml:"language" json:"language,omitempty"`
	URL           string `yaml:"url" json:"url"`
	Root          string `yaml:"root" json:"root"`
	Permalink     string `yaml:"permalink" json:"permalink"`
	SourceDir     string `yaml:"source_dir" json:"sourceDir"`
	PublicDir     string `yaml:"public_dir" json:"publicDir"`
	NewPostName   string `yaml:"new_post_name" json:"newPostName"`
	DefaultLayout string `yaml:"default_layout" json:"defaultLayout"`
	Theme         string `yaml:"theme" json:"theme,omitempty"`

	// Raw is the whole decoded file.
	Raw map[string]any `yaml:"-" json:"-"`
}

// Hexo's defaults for settings missing from _config.yml.
const (
	DefaultPermalink   = ":year/:month/:day/:title/"
	DefaultNewPostName = ":title.md"
	DefaultLayout      = "post"
)

// LoadSiteConfig reads _config.yml, filling Hexo's defaults for unset keys.
func (p *Project) LoadSiteConfig() (SiteConfig, error) {
	data, err := os.ReadFile(p.ConfigPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return SiteConfig{}, errors.Wrapf(ErrNotHexoProject, "%s not found", p.ConfigPath())
		}
		return SiteConfig{}, errors.Wrapf(err, "reading %s", ConfigFile)
	}

	var cfg SiteConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return SiteConfig{}, errors.Wrapf(err, "parsing %s", ConfigFile)
	}
	if err := yaml.Unmarshal(data, &cfg.Raw); err != nil {
		return SiteConfig{}, errors.Wrapf(err, "parsing %s", ConfigFile)
	}
	if cfg.Raw == nil {
		cfg.Raw = map[string]any{}
	}

	if cfg.Root == "" {
		cfg.Root = "/"
	}
	if cfg.Permalink == "" {
		cfg.Permalink = DefaultPermalink
	}
	if cfg.SourceDir == "" {
		cfg.SourceDir = "source"
	}
	if cfg.PublicDir == "" {
		cfg.PublicDir = "public"
	}
	if cfg.NewPostName == "" {
		cfg.NewPostName = DefaultNewPostName
	}
	if cfg.DefaultLayout == "" {
		cfg.DefaultLayout = DefaultLayout
	}

	return cfg, nil
}
