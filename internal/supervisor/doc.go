// Package supervisor runs the hexo generator for a project.
//
// Long-running preview servers are tracked in a registry keyed by project
// root, with at most one server per project. One-shot commands such as
// generate or clean run to completion and report their output and exit
// code; a non-zero exit is a result, not an error.
//
// A Supervisor is safe for concurrent use. Its lock guards only the
// registry and is never held while a process is spawned or killed. Servers
// still running when the host exits are terminated by [Supervisor.Shutdown].
package supervisor
