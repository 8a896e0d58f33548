package supervisor

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhamdeew/hex-tool/internal/logging"
)

// fakeHexo stands in for the generator. The server verb prints a banner and
// blocks; other verbs exercise exit codes and output streams.
const fakeHexo = `#!/bin/sh
case "$1" in
  server)
    echo "INFO  Hexo is running at http://localhost:$3/"
    if [ -n "$FAKE_HEXO_EXIT" ]; then exit 3; fi
    exec sleep 60
    ;;
  generate)
    echo "INFO  Start processing"
    echo "ERROR Render failed" >&2
    exit 1
    ;;
  clean)
    pwd
    ;;
  hang)
    echo "starting"
    sleep 60
    ;;
  *)
    echo "unknown command $1" >&2
    exit 2
    ;;
esac
`

func newTestSupervisor(t *testing.T, opts Options) *Supervisor {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake generator is a shell script")
	}

	if opts.Command == "" {
		opts.Command = filepath.Join(t.TempDir(), "hexo")
		require.NoError(t, os.WriteFile(opts.Command, []byte(fakeHexo), 0o755))
	}
	opts.Logger = logging.NewDiscard()

	s := New(opts)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s
}

func TestStartStop(t *testing.T) {
	s := newTestSupervisor(t, Options{ServerPort: 4001})
	root := t.TempDir()

	assert.False(t, s.IsRunning(root))

	id, err := s.Start(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, root, id)
	assert.True(t, s.IsRunning(root))

	_, err = s.Start(context.Background(), root)
	assert.True(t, errors.Is(err, ErrAlreadyRunning), "got %v", err)

	require.NoError(t, s.Stop(id))
	assert.False(t, s.IsRunning(root))

	err = s.Stop(id)
	assert.True(t, errors.Is(err, ErrServerNotFound), "got %v", err)

	// The project can be served again once stopped.
	_, err = s.Start(context.Background(), root)
	require.NoError(t, err)
	assert.True(t, s.IsRunning(root))
}

func TestStopKillFailure(t *testing.T) {
	s := newTestSupervisor(t, Options{})
	root := t.TempDir()

	_, err := s.Start(context.Background(), root)
	require.NoError(t, err)

	killProcess = func(*os.Process) error { return errors.New("operation not permitted") }
	t.Cleanup(func() { killProcess = killProcessGroup })

	err = s.Stop(root)
	assert.True(t, errors.Is(err, ErrKillFailed), "got %v", err)
	assert.True(t, s.IsRunning(root))

	killProcess = killProcessGroup
	require.NoError(t, s.Stop(root))
	assert.False(t, s.IsRunning(root))
}

func TestStopAfterExitSkipsKill(t *testing.T) {
	s := newTestSupervisor(t, Options{})
	root := t.TempDir()

	_, err := s.Start(context.Background(), root)
	require.NoError(t, err)

	s.mu.Lock()
	srv := s.servers[root]
	s.mu.Unlock()
	require.NoError(t, killProcessGroup(srv.cmd.Process))
	<-srv.done

	called := false
	killProcess = func(*os.Process) error {
		called = true
		return errors.New("signalled a reaped pid")
	}
	t.Cleanup(func() { killProcess = killProcessGroup })

	require.NoError(t, srv.kill())
	assert.False(t, called)
}

func TestStopUnknown(t *testing.T) {
	s := newTestSupervisor(t, Options{})

	err := s.Stop("/no/such/project")
	assert.True(t, errors.Is(err, ErrServerNotFound), "got %v", err)
}

func TestStartSpawnFailure(t *testing.T) {
	s := newTestSupervisor(t, Options{Command: filepath.Join(t.TempDir(), "missing")})
	root := t.TempDir()

	_, err := s.Start(context.Background(), root)
	assert.True(t, errors.Is(err, ErrSpawnFailed), "got %v", err)
	assert.False(t, s.IsRunning(root))
	assert.Empty(t, s.List())
	assert.Empty(t, s.pending)
}

func TestStartCanceledContext(t *testing.T) {
	s := newTestSupervisor(t, Options{})
	root := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Start(ctx, root)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
	assert.False(t, s.IsRunning(root))
}

func TestStartConcurrent(t *testing.T) {
	s := newTestSupervisor(t, Options{})
	root := t.TempDir()

	const n = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		started int
		refused int
	)
	for range n {
		wg.Go(func() {
			_, err := s.Start(context.Background(), root)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				started++
			case errors.Is(err, ErrAlreadyRunning):
				refused++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
	wg.Wait()

	assert.Equal(t, 1, started)
	assert.Equal(t, n-1, refused)
	assert.Len(t, s.List(), 1)
}

func TestStatusOutput(t *testing.T) {
	s := newTestSupervisor(t, Options{ServerPort: 4002})
	root := t.TempDir()

	_, err := s.Start(context.Background(), root)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		st, ok := s.Status(root)
		return ok && len(st.Output) > 0
	}, 5*time.Second, 20*time.Millisecond)

	st, ok := s.Status(root)
	require.True(t, ok)
	assert.Equal(t, root, st.ID)
	assert.Positive(t, st.PID)
	assert.Equal(t, []string{s.opts.Command, "server", "-p", "4002"}, st.Command)
	assert.Equal(t, "[stdout] INFO  Hexo is running at http://localhost:4002/", st.Output[0])

	_, ok = s.Status(t.TempDir())
	assert.False(t, ok)
}

func TestServerExitPrunesRegistry(t *testing.T) {
	t.Setenv("FAKE_HEXO_EXIT", "1")
	s := newTestSupervisor(t, Options{})
	root := t.TempDir()

	_, err := s.Start(context.Background(), root)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return !s.IsRunning(root) }, 5*time.Second, 20*time.Millisecond)

	err = s.Stop(root)
	assert.True(t, errors.Is(err, ErrServerNotFound), "got %v", err)
}

func TestShutdown(t *testing.T) {
	s := newTestSupervisor(t, Options{})
	roots := []string{t.TempDir(), t.TempDir(), t.TempDir()}
	for _, root := range roots {
		_, err := s.Start(context.Background(), root)
		require.NoError(t, err)
	}
	require.Len(t, s.List(), len(roots))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	for _, root := range roots {
		assert.False(t, s.IsRunning(root))
	}
	assert.Empty(t, s.List())
	assert.NoError(t, s.Shutdown(ctx))
}

func TestRunNonZeroExit(t *testing.T) {
	s := newTestSupervisor(t, Options{})

	res, err := s.Run(context.Background(), t.TempDir(), "generate")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, 1, res.ExitCode)
	assert.Equal(t, "INFO  Start processing\n", res.Stdout)
	assert.Equal(t, "ERROR Render failed\n", res.Stderr)
}

func TestRunSuccess(t *testing.T) {
	s := newTestSupervisor(t, Options{})
	root := t.TempDir()

	res, err := s.Run(context.Background(), root, "clean")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 0, res.ExitCode)
	assert.Empty(t, res.Stderr)

	// Runs in the project root.
	want, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(filepath.Clean(res.Stdout[:len(res.Stdout)-1]))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRunVerbIsSingleArgument(t *testing.T) {
	s := newTestSupervisor(t, Options{})

	res, err := s.Run(context.Background(), t.TempDir(), "generate --watch")
	require.NoError(t, err)
	assert.Equal(t, 2, res.ExitCode)
	assert.Equal(t, "unknown command generate --watch\n", res.Stderr)
}

func TestRunPrefixArgs(t *testing.T) {
	s := newTestSupervisor(t, Options{})
	s.opts.Args = []string{"clean"}

	// The verb follows the prefix, so the script sees "clean" first.
	res, err := s.Run(context.Background(), t.TempDir(), "generate")
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestRunTimeout(t *testing.T) {
	s := newTestSupervisor(t, Options{RunTimeout: 300 * time.Millisecond})

	start := time.Now()
	res, err := s.Run(context.Background(), t.TempDir(), "hang")
	assert.True(t, errors.Is(err, ErrTimedOut), "got %v", err)
	assert.Less(t, time.Since(start), 10*time.Second)
	assert.False(t, res.Success)
	assert.Equal(t, "starting\n", res.Stdout)
}

func TestRunCanceled(t *testing.T) {
	s := newTestSupervisor(t, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)

	_, err := s.Run(ctx, t.TempDir(), "hang")
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
	assert.False(t, errors.Is(err, ErrTimedOut))
}

func TestRunSpawnFailure(t *testing.T) {
	s := newTestSupervisor(t, Options{Command: filepath.Join(t.TempDir(), "missing")})

	_, err := s.Run(context.Background(), t.TempDir(), "generate")
	assert.True(t, errors.Is(err, ErrSpawnFailed), "got %v", err)
}

func TestRunEmptyVerb(t *testing.T) {
	s := newTestSupervisor(t, Options{})

	_, err := s.Run(context.Background(), t.TempDir(), "  ")
	assert.Error(t, err)
}

func TestTail(t *testing.T) {
	tl := newTail(3)
	for _, line := range []string{"a", "b", "c", "d", "e"} {
		tl.add(line)
	}
	assert.Equal(t, []string{"c", "d", "e"}, tl.snapshot())
}

func TestLineWriter(t *testing.T) {
	tl := newTail(10)
	w := newLineWriter("stderr", logging.NewDiscard(), tl)

	_, err := w.Write([]byte("one\r\ntw"))
	require.NoError(t, err)
	_, err = w.Write([]byte("o\nthree"))
	require.NoError(t, err)
	assert.Equal(t, []string{"[stderr] one", "[stderr] two"}, tl.snapshot())

	w.flush()
	assert.Equal(t, []string{"[stderr] one", "[stderr] two", "[stderr] three"}, tl.snapshot())
}
