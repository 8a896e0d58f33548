package config

import (
	"slices"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/rhamdeew/hex-tool/internal/logging"
)

// Themes lists the accepted values of Config.Theme.
var Themes = []string{"auto", "light", "dark"}

// Validate reports every invalid setting in c.
func (c Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, errors.Newf(format, args...))
	}

	if strings.TrimSpace(c.UILanguage) == "" {
		add("ui_language must not be empty")
	}
	if !slices.Contains(Themes, c.Theme) {
		add("theme %q must be one of %s", c.Theme, strings.Join(Themes, ", "))
	}
	if c.AutoSaveInterval < 0 || (c.AutoSaveEnabled && c.AutoSaveInterval == 0) {
		add("auto_save_interval %d must be positive when auto save is enabled", c.AutoSaveInterval)
	}
	if c.EditorFontSize < 6 || c.EditorFontSize > 72 {
		add("editor_font_size %d must be between 6 and 72", c.EditorFontSize)
	}
	if c.EditorLineHeight <= 0 || c.EditorLineHeight > 5 {
		add("editor_line_height %g must be between 0 and 5", c.EditorLineHeight)
	}
	if len(c.RecentProjects) > MaxRecentProjects {
		add("recent_projects holds %d entries, at most %d allowed", len(c.RecentProjects), MaxRecentProjects)
	}

	if strings.TrimSpace(c.Generator.Command) == "" {
		add("generator.command must not be empty")
	}
	if c.Generator.ServerPort < 0 || c.Generator.ServerPort > 65535 {
		add("generator.server_port %d is out of range", c.Generator.ServerPort)
	}
	if c.Generator.RunTimeout != "" {
		if d, err := time.ParseDuration(c.Generator.RunTimeout); err != nil || d <= 0 {
			add("generator.run_timeout %q must be a positive duration such as 5m", c.Generator.RunTimeout)
		}
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, errors.Wrap(err, "log.level"))
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		errs = append(errs, errors.Wrap(err, "log.format"))
	}

	return errors.Join(errs...)
}
