package supervisor

import (
	"bytes"
	"context"
	"os/exec"
	"slices"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// Result is the outcome of a one-shot command.
type Result struct {
	Success    bool   `json:"success"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	ExitCode   int    `json:"exitCode"`
	DurationMS int64  `json:"durationMs"`
}

// Run executes the generator with verb as its only argument in projectRoot
// and waits for it to finish.
//
// A non-zero exit is reported through Result, not as an error. Run fails
// with ErrSpawnFailed if the process cannot be launched, and with
// ErrTimedOut if it exceeds the configured timeout, in which case the
// returned Result holds the output captured so far.
func (s *Supervisor) Run(ctx context.Context, projectRoot, verb string) (Result, error) {
	verb = strings.TrimSpace(verb)
	if verb == "" {
		return Result{}, errors.New("verb is required")
	}

	if s.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.RunTimeout)
		defer cancel()
	}

	args := append(slices.Clone(s.opts.Args), verb)
	logger := s.logger.With("project", projectRoot, "verb", verb)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.opts.Command, args...)
	cmd.Dir = projectRoot
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = pipeWait
	configureProcess(cmd)
	cmd.Cancel = func() error { return killProcess(cmd.Process) }

	logger.Debug("running command", "command", append([]string{s.opts.Command}, args...))
	start := time.Now()
	err := cmd.Run()

	result := Result{
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		ExitCode:   -1,
		DurationMS: time.Since(start).Milliseconds(),
	}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
		result.Success = cmd.ProcessState.Success()
	}

	switch {
	case err == nil:
	case cmd.Process == nil:
		if ctx.Err() != nil {
			return result, s.contextError(ctx, verb)
		}
		logger.Warn("command spawn failed", "error", err)
		return result, errors.Mark(errors.Wrapf(err, "running %s %s", s.opts.Command, verb), ErrSpawnFailed)
	case ctx.Err() != nil:
		result.Success = false
		logger.Warn("command killed", "error", ctx.Err(), "duration", time.Since(start))
		return result, s.contextError(ctx, verb)
	}

	logger.Info("command finished", "exitCode", result.ExitCode, "duration", time.Since(start))
	return result, nil
}

func (s *Supervisor) contextError(ctx context.Context, verb string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.Wrapf(ErrTimedOut, "%s %s after %s", s.opts.Command, verb, s.opts.RunTimeout)
	}
	return errors.Wrapf(ctx.Err(), "running %s %s", s.opts.Command, verb)
}
