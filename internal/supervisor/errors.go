package supervisor

import "github.com/cockroachdb/errors"

// Sentinel errors. Returned errors wrap one of these with detail.
var (
	// ErrSpawnFailed indicates the generator could not be started.
	ErrSpawnFailed = errors.New("process spawn failed")

	// ErrKillFailed indicates a server could not be terminated. The server
	// stays registered so the stop can be retried.
	ErrKillFailed = errors.New("process kill failed")

	// ErrAlreadyRunning indicates a server is registered, or being started,
	// for the project.
	ErrAlreadyRunning = errors.New("server already running")

	// ErrServerNotFound indicates no server is registered under the ID.
	ErrServerNotFound = errors.New("server not found")

	// ErrTimedOut indicates a one-shot command exceeded its timeout and was
	// killed.
	ErrTimedOut = errors.New("command timed out")
)
