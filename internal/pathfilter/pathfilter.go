// Package pathfilter decides which files inside a Hexo project are visible
// to the content tools.
package pathfilter

import (
	"regexp"
	"strings"
)

// Config extends the default filter rules.
type Config struct {
	IgnoredPatterns   []string
	AllowedExtensions []string
}

var (
	// MarkdownExtensions are the content file extensions Hexo renders.
	MarkdownExtensions = []string{".md", ".markdown"}

	// ImageExtensions are the files listed under source/images.
	ImageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg", ".bmp", ".ico", ".avif"}
)

var defaultIgnoredPatterns = []string{
	".git/**",
	"node_modules/**",
	"public/**",
	".deploy_git/**",
	".DS_Store",
	"**/.DS_Store",
	"Thumbs.db",
	"**/Thumbs.db",
}

var extensionPattern = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

// PathFilter filters allowed paths and file types.
type PathFilter struct {
	ignored           []*regexp.Regexp
	allowedExtensions []string
}

// New creates a PathFilter. Without allowed extensions every file type passes.
func New(cfg *Config) *PathFilter {
	patterns := defaultIgnoredPatterns
	var exts []string
	if cfg != nil {
		patterns = append(append([]string{}, patterns...), cfg.IgnoredPatterns...)
		exts = append(exts, cfg.AllowedExtensions...)
	}

	pf := &PathFilter{allowedExtensions: exts}
	for _, p := range patterns {
		if re, err := globToRegexp(p); err == nil {
			pf.ignored = append(pf.ignored, re)
		}
	}
	return pf
}

// Markdown returns a filter for content files.
func Markdown() *PathFilter {
	return New(&Config{AllowedExtensions: MarkdownExtensions})
}

// Images returns a filter for image files.
func Images() *PathFilter {
	return New(&Config{AllowedExtensions: ImageExtensions})
}

// globToRegexp converts a glob pattern to an anchored regex.
func globToRegexp(pattern string) (*regexp.Regexp, error) {
	normalizedPattern := strings.ReplaceAll(pattern, "\\", "/")

	regexPattern := regexp.QuoteMeta(normalizedPattern)
	regexPattern = strings.ReplaceAll(regexPattern, `/\*\*/`, "/(.*/)?")
	regexPattern = strings.ReplaceAll(regexPattern, `\*\*/`, "(.*/)?")
	regexPattern = strings.ReplaceAll(regexPattern, `\*\*`, ".*")
	regexPattern = strings.ReplaceAll(regexPattern, `\*`, "[^/]*")
	regexPattern = strings.ReplaceAll(regexPattern, `\?`, "[^/]")

	return regexp.Compile("^" + regexPattern + "$")
}

// IsAllowed checks a slash or backslash separated path relative to the
// project root.
func (pf *PathFilter) IsAllowed(path string) bool {
	normalizedPath := strings.TrimPrefix(strings.ReplaceAll(path, "\\", "/"), "./")

	for _, re := range pf.ignored {
		if re.MatchString(normalizedPath) {
			return false
		}
	}

	if len(pf.allowedExtensions) > 0 && isFile(normalizedPath) {
		return pf.HasAllowedExtension(normalizedPath)
	}

	return true
}

// HasAllowedExtension reports whether name ends in one of the allowed
// extensions, ignoring case.
func (pf *PathFilter) HasAllowedExtension(name string) bool {
	if len(pf.allowedExtensions) == 0 {
		return true
	}
	lower := strings.ToLower(name)
	for _, ext := range pf.allowedExtensions {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

// isFile determines if a path represents a file (has a valid extension).
func isFile(path string) bool {
	if strings.HasSuffix(path, "/") {
		return false
	}

	lastComponent := path
	if i := strings.LastIndex(path, "/"); i != -1 {
		lastComponent = path[i+1:]
	}

	// No dot, or dot at the start (like .gitignore)
	lastDotIndex := strings.LastIndex(lastComponent, ".")
	if lastDotIndex <= 0 {
		return false
	}

	extension := lastComponent[lastDotIndex+1:]
	if len(extension) < 1 || len(extension) > 10 {
		return false
	}
	return extensionPattern.MatchString(extension)
}

// FilterPaths filters a slice of paths to only include allowed ones.
func (pf *PathFilter) FilterPaths(paths []string) []string {
	var allowed []string
	for _, path := range paths {
		if pf.IsAllowed(path) {
			allowed = append(allowed, path)
		}
	}
	return allowed
}
