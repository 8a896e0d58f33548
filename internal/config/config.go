package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/rhamdeew/hex-tool/internal/filesystem"
)

// AppName is the application name used for config file naming.
const AppName = "hex-tool"

// MaxRecentProjects bounds Config.RecentProjects.
const MaxRecentProjects = 10

// Config represents the top-level configuration structure.
type Config struct {
	Version          int       `mapstructure:"version" yaml:"version" json:"version"`
	LastProjectPath  string    `mapstructure:"last_project_path" yaml:"last_project_path" json:"lastProjectPath"`
	RecentProjects   []string  `mapstructure:"recent_projects" yaml:"recent_projects" json:"recentProjects"`
	UILanguage       string    `mapstructure:"ui_language" yaml:"ui_language" json:"uiLanguage"`
	Theme            string    `mapstructure:"theme" yaml:"theme" json:"theme"`
	AutoSaveEnabled  bool      `mapstructure:"auto_save_enabled" yaml:"auto_save_enabled" json:"autoSaveEnabled"`
	AutoSaveInterval int       `mapstructure:"auto_save_interval" yaml:"auto_save_interval" json:"autoSaveInterval"`
	EditorFontSize   int       `mapstructure:"editor_font_size" yaml:"editor_font_size" json:"editorFontSize"`
	EditorLineHeight float64   `mapstructure:"editor_line_height" yaml:"editor_line_height" json:"editorLineHeight"`
	Generator        Generator `mapstructure:"generator" yaml:"generator" json:"generator"`
	Log              Log       `mapstructure:"log" yaml:"log" json:"log"`
}

// Generator configures how the hexo binary is invoked.
type Generator struct {
	// Command is the executable, e.g. "hexo" or "npx".
	Command string `mapstructure:"command" yaml:"command" json:"command"`
	// Args are inserted before the verb, e.g. ["hexo"] when Command is "npx".
	Args       []string `mapstructure:"args" yaml:"args" json:"args"`
	ServerPort int      `mapstructure:"server_port" yaml:"server_port" json:"serverPort"`
	// RunTimeout bounds one-shot commands, as a Go duration string.
	RunTimeout string `mapstructure:"run_timeout" yaml:"run_timeout" json:"runTimeout"`
}

// Timeout parses RunTimeout, falling back to DefaultRunTimeout.
func (g Generator) Timeout() time.Duration {
	d, err := time.ParseDuration(g.RunTimeout)
	if err != nil || d <= 0 {
		return DefaultRunTimeout
	}
	return d
}

// Log configures the logger.
type Log struct {
	Level  string `mapstructure:"level" yaml:"level" json:"level"`
	Format string `mapstructure:"format" yaml:"format" json:"format"`
}

// DefaultRunTimeout bounds one-shot generator commands when unset.
const DefaultRunTimeout = 5 * time.Minute

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Version:          1,
		RecentProjects:   []string{},
		UILanguage:       "en",
		Theme:            "auto",
		AutoSaveEnabled:  true,
		AutoSaveInterval: 30,
		EditorFontSize:   16,
		EditorLineHeight: 1.5,
		Generator: Generator{
			Command:    "hexo",
			Args:       []string{},
			ServerPort: 4000,
			RunTimeout: DefaultRunTimeout.String(),
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/hex-tool/config.yaml.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("version", d.Version)
	v.SetDefault("last_project_path", d.LastProjectPath)
	v.SetDefault("recent_projects", d.RecentProjects)
	v.SetDefault("ui_language", d.UILanguage)
	v.SetDefault("theme", d.Theme)
	v.SetDefault("auto_save_enabled", d.AutoSaveEnabled)
	v.SetDefault("auto_save_interval", d.AutoSaveInterval)
	v.SetDefault("editor_font_size", d.EditorFontSize)
	v.SetDefault("editor_line_height", d.EditorLineHeight)
	v.SetDefault("generator.command", d.Generator.Command)
	v.SetDefault("generator.args", d.Generator.Args)
	v.SetDefault("generator.server_port", d.Generator.ServerPort)
	v.SetDefault("generator.run_timeout", d.Generator.RunTimeout)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// Store holds the loaded configuration and writes changes back to disk.
// It is safe for concurrent use.
type Store struct {
	mu   sync.Mutex
	path string
	cfg  Config
}

// Load reads the configuration file.
// If path is empty the default location is used and a missing file yields
// the defaults. An explicit path that does not exist is an error.
func Load(path string) (*Store, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("HEX_TOOL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
		switch {
		case missing && explicit:
			return nil, errors.Wrapf(err, "config file not found at %s", path)
		case !missing:
			return nil, errors.Wrap(err, "reading config file")
		}
	}

	cfg := Default()
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshaling config")
	}
	if cfg.RecentProjects == nil {
		cfg.RecentProjects = []string{}
	}
	if cfg.Generator.Args == nil {
		cfg.Generator.Args = []string{}
	}

	return &Store{path: path, cfg: cfg}, nil
}

// Path returns the file the store saves to.
func (s *Store) Path() string {
	return s.path
}

// Get returns a copy of the current configuration.
func (s *Store) Get() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.clone()
}

// Save replaces the configuration and writes it to disk.
func (s *Store) Save(cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(cfg.clone())
}

// Update applies fn to a copy of the configuration and saves the result.
func (s *Store) Update(fn func(*Config)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg := s.cfg.clone()
	fn(&cfg)
	return s.save(cfg)
}

// AddRecentProject records path as the last opened project and moves it to
// the front of the recent list.
func (s *Store) AddRecentProject(path string) error {
	return s.Update(func(c *Config) {
		c.LastProjectPath = path
		c.RecentProjects = addRecent(c.RecentProjects, path)
	})
}

func addRecent(recent []string, path string) []string {
	out := make([]string, 0, MaxRecentProjects)
	out = append(out, path)
	for _, p := range recent {
		if p != path && len(out) < MaxRecentProjects {
			out = append(out, p)
		}
	}
	return out
}

func (s *Store) save(cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "marshaling config")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return errors.Wrap(err, "creating config directory")
	}
	if err := filesystem.WriteFileAtomic(s.path, data, 0o600); err != nil {
		return errors.Wrapf(err, "writing %s", s.path)
	}
	s.cfg = cfg
	return nil
}

func (c Config) clone() Config {
	out := c
	out.RecentProjects = slices.Clone(c.RecentProjects)
	out.Generator.Args = slices.Clone(c.Generator.Args)
	if out.RecentProjects == nil {
		out.RecentProjects = []string{}
	}
	if out.Generator.Args == nil {
		out.Generator.Args = []string{}
	}
	return out
}
