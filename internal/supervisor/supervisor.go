package supervisor

import (
	"context"
	"log/slog"
	"maps"
	"os"
	"os/exec"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultCommand is the generator executable.
	DefaultCommand = "hexo"

	// DefaultTailLines is the number of output lines kept per server.
	DefaultTailLines = 200

	// stopWait bounds how long Stop waits for a killed server to be reaped.
	stopWait = 5 * time.Second

	// pipeWait bounds how long output copying may outlive the process.
	pipeWait = 2 * time.Second
)

// ServerID identifies a running server. It is the project root the server
// was started for.
type ServerID = string

// Options configures a Supervisor.
type Options struct {
	// Command is the generator executable. Defaults to DefaultCommand.
	Command string
	// Args are placed before the verb, e.g. ["hexo"] when Command is "npx".
	Args []string
	// ServerPort is passed to the server verb as -p when positive.
	ServerPort int
	// RunTimeout bounds one-shot commands. Zero disables the timeout.
	RunTimeout time.Duration
	// TailLines is the number of output lines kept per server.
	TailLines int
	Logger    *slog.Logger
}

// Supervisor starts and tracks generator processes.
type Supervisor struct {
	opts   Options
	logger *slog.Logger

	mu      sync.Mutex
	servers map[ServerID]*server
	// pending reserves IDs whose process is being spawned.
	pending map[ServerID]struct{}
}

type server struct {
	id        ServerID
	cmd       *exec.Cmd
	args      []string
	startedAt time.Time
	output    *tail
	stdout    *lineWriter
	stderr    *lineWriter
	// done is closed once the process has been reaped.
	done    chan struct{}
	waitErr error
}

// Status describes a registered server.
type Status struct {
	ID        ServerID  `json:"id"`
	PID       int       `json:"pid"`
	Command   []string  `json:"command"`
	StartedAt time.Time `json:"startedAt"`
	Uptime    string    `json:"uptime"`
	Output    []string  `json:"output"`
}

// New returns a Supervisor with an empty registry.
func New(opts Options) *Supervisor {
	if opts.Command == "" {
		opts.Command = DefaultCommand
	}
	if opts.TailLines <= 0 {
		opts.TailLines = DefaultTailLines
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Supervisor{
		opts:    opts,
		logger:  opts.Logger.With("component", "supervisor"),
		servers: make(map[ServerID]*server),
		pending: make(map[ServerID]struct{}),
	}
}

// Start launches the preview server for projectRoot and returns its ID.
//
// The server outlives ctx; ctx only aborts a start that has not spawned yet.
// Start fails with ErrAlreadyRunning if a server is registered or starting
// for the project, and with ErrSpawnFailed if the process cannot be
// launched, in which case the registry is unchanged.
func (s *Supervisor) Start(ctx context.Context, projectRoot string) (ServerID, error) {
	id := projectRoot

	s.mu.Lock()
	_, running := s.servers[id]
	_, starting := s.pending[id]
	if running || starting {
		s.mu.Unlock()
		return "", errors.Wrapf(ErrAlreadyRunning, "project %s", projectRoot)
	}
	s.pending[id] = struct{}{}
	s.mu.Unlock()

	release := func() {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
	}

	if err := ctx.Err(); err != nil {
		release()
		return "", errors.Wrap(err, "starting server")
	}

	args := s.serverArgs()
	srv := &server{
		id:     id,
		args:   append([]string{s.opts.Command}, args...),
		output: newTail(s.opts.TailLines),
		done:   make(chan struct{}),
	}
	logger := s.logger.With("server", id)
	srv.stdout = newLineWriter("stdout", logger, srv.output)
	srv.stderr = newLineWriter("stderr", logger, srv.output)

	cmd := exec.Command(s.opts.Command, args...)
	cmd.Dir = projectRoot
	cmd.Stdin = nil
	cmd.Stdout = srv.stdout
	cmd.Stderr = srv.stderr
	cmd.WaitDelay = pipeWait
	configureProcess(cmd)

	if err := cmd.Start(); err != nil {
		release()
		logger.Warn("server spawn failed", "command", srv.args, "error", err)
		return "", errors.Mark(errors.Wrapf(err, "starting %s in %s", s.opts.Command, projectRoot), ErrSpawnFailed)
	}
	srv.cmd = cmd
	srv.startedAt = time.Now()

	s.mu.Lock()
	delete(s.pending, id)
	s.servers[id] = srv
	s.mu.Unlock()

	logger.Info("server started", "pid", cmd.Process.Pid, "command", srv.args)
	go s.watch(srv)

	return id, nil
}

// watch reaps the server process and drops it from the registry if it
// exits on its own.
func (s *Supervisor) watch(srv *server) {
	srv.waitErr = srv.cmd.Wait()
	srv.stdout.flush()
	srv.stderr.flush()
	close(srv.done)

	s.mu.Lock()
	current, ok := s.servers[srv.id]
	if ok && current == srv {
		delete(s.servers, srv.id)
	}
	s.mu.Unlock()

	if ok && current == srv {
		s.logger.Info("server exited", "server", srv.id, "exitCode", srv.cmd.ProcessState.ExitCode(), "error", srv.waitErr)
	}
}

// Stop terminates the server registered under id.
//
// The entry is removed before the kill. If the kill fails the entry is
// restored and ErrKillFailed is returned, so the server stays visible and
// the stop can be retried.
func (s *Supervisor) Stop(id ServerID) error {
	s.mu.Lock()
	srv, ok := s.servers[id]
	if ok {
		delete(s.servers, id)
	}
	s.mu.Unlock()
	if !ok {
		return errors.Wrapf(ErrServerNotFound, "server %s", id)
	}

	if err := srv.kill(); err != nil {
		s.mu.Lock()
		_, taken := s.servers[id]
		_, starting := s.pending[id]
		if !taken && !starting && !srv.exited() {
			s.servers[id] = srv
		}
		s.mu.Unlock()
		s.logger.Error("server kill failed", "server", id, "error", err)
		return errors.Mark(errors.Wrapf(err, "stopping server %s", id), ErrKillFailed)
	}

	select {
	case <-srv.done:
	case <-time.After(stopWait):
		s.logger.Warn("server not reaped after kill", "server", id, "pid", srv.cmd.Process.Pid)
	}
	s.logger.Info("server stopped", "server", id)
	return nil
}

// IsRunning reports whether a server is registered for projectRoot.
func (s *Supervisor) IsRunning(projectRoot string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.servers[projectRoot]
	return ok
}

// Status returns the state of the server registered for projectRoot.
func (s *Supervisor) Status(projectRoot string) (Status, bool) {
	s.mu.Lock()
	srv, ok := s.servers[projectRoot]
	s.mu.Unlock()
	if !ok {
		return Status{}, false
	}
	return srv.status(), true
}

// List returns the status of every registered server, ordered by ID.
func (s *Supervisor) List() []Status {
	s.mu.Lock()
	ids := slices.Sorted(maps.Keys(s.servers))
	servers := make([]*server, 0, len(ids))
	for _, id := range ids {
		servers = append(servers, s.servers[id])
	}
	s.mu.Unlock()

	out := make([]Status, 0, len(servers))
	for _, srv := range servers {
		out = append(out, srv.status())
	}
	return out
}

// Shutdown kills every registered server and waits for them to be reaped
// or for ctx to end.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	servers := slices.Collect(maps.Values(s.servers))
	clear(s.servers)
	s.mu.Unlock()

	if len(servers) == 0 {
		return nil
	}
	s.logger.Info("shutting down servers", "count", len(servers))

	g, ctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		g.Go(func() error {
			if err := srv.kill(); err != nil {
				return errors.Mark(errors.Wrapf(err, "stopping server %s", srv.id), ErrKillFailed)
			}
			select {
			case <-srv.done:
				return nil
			case <-ctx.Done():
				return errors.Wrapf(ctx.Err(), "waiting for server %s", srv.id)
			}
		})
	}
	return g.Wait()
}

func (s *Supervisor) serverArgs() []string {
	args := append(slices.Clone(s.opts.Args), "server")
	if s.opts.ServerPort > 0 {
		args = append(args, "-p", strconv.Itoa(s.opts.ServerPort))
	}
	return args
}

// killProcess is replaceable so tests can force a kill failure.
var killProcess = killProcessGroup

func (srv *server) kill() error {
	// A reaped pid may already belong to another process group.
	if srv.exited() {
		return nil
	}
	err := killProcess(srv.cmd.Process)
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

func (srv *server) exited() bool {
	select {
	case <-srv.done:
		return true
	default:
		return false
	}
}

func (srv *server) status() Status {
	return Status{
		ID:        srv.id,
		PID:       srv.cmd.Process.Pid,
		Command:   slices.Clone(srv.args),
		StartedAt: srv.startedAt,
		Uptime:    time.Since(srv.startedAt).Round(time.Second).String(),
		Output:    srv.output.snapshot(),
	}
}
