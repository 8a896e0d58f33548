package main

import (
	"log/slog"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/rhamdeew/hex-tool/internal/config"
	"github.com/rhamdeew/hex-tool/internal/content"
	"github.com/rhamdeew/hex-tool/internal/filesystem"
	"github.com/rhamdeew/hex-tool/internal/hexo"
	"github.com/rhamdeew/hex-tool/internal/search"
	"github.com/rhamdeew/hex-tool/internal/supervisor"
)

var errNoProject = errors.New("no hexo project is open; call open_project first")

// app holds the services the tools work on. The open project can be
// switched at runtime; the supervisor and config outlive it.
type app struct {
	config     *config.Store
	supervisor *supervisor.Supervisor
	logger     *slog.Logger

	mu      sync.RWMutex
	project *workspace
}

// workspace is everything bound to one open project.
type workspace struct {
	project *hexo.Project
	site    hexo.SiteConfig
	store   *content.Store
	search  *search.Service
}

func newApp(cfgStore *config.Store, logger *slog.Logger) *app {
	gen := cfgStore.Get().Generator
	return &app{
		config: cfgStore,
		supervisor: supervisor.New(supervisor.Options{
			Command:    gen.Command,
			Args:       gen.Args,
			ServerPort: gen.ServerPort,
			RunTimeout: gen.Timeout(),
			Logger:     logger,
		}),
		logger: logger,
	}
}

// openProject validates root as a Hexo project, makes it current and
// records it in the recent projects list.
func (a *app) openProject(root string) (*workspace, error) {
	project, err := hexo.Open(root)
	if err != nil {
		return nil, err
	}
	site, err := project.LoadSiteConfig()
	if err != nil {
		return nil, err
	}

	files := filesystem.New(project.Root(), nil)
	store := content.NewStore(project, files, a.logger)
	ws := &workspace{
		project: project,
		site:    site,
		store:   store,
		search:  search.New(store, a.logger),
	}

	a.mu.Lock()
	a.project = ws
	a.mu.Unlock()

	if err := a.config.AddRecentProject(project.Root()); err != nil {
		a.logger.Warn("recording recent project", "error", err)
	}
	a.logger.Info("opened project", "root", project.Root(), "title", site.Title)
	return ws, nil
}

func (a *app) workspace() (*workspace, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.project == nil {
		return nil, errNoProject
	}
	return a.project, nil
}

// projectRoot resolves an optional tool argument to a project root,
// defaulting to the open project.
func (a *app) projectRoot(path string) (string, error) {
	if path == "" {
		ws, err := a.workspace()
		if err != nil {
			return "", err
		}
		return ws.project.Root(), nil
	}
	root, err := filepath.Abs(path)
	if err != nil {
		return "", errors.Wrapf(err, "resolving %s", path)
	}
	if err := hexo.Validate(root); err != nil {
		return "", err
	}
	return root, nil
}

// previewBase is the address of the local preview server.
func (ws *workspace) previewBase(port int) string {
	return "http://localhost:" + strconv.Itoa(port) + ws.site.Root
}
