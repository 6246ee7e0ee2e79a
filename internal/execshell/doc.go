// Package execshell runs external commands under a wall-clock budget.
//
// Engine launches a command through a ProcessLauncher, drains the child's
// error stream with readiness multiplexing so the child never blocks on a full
// pipe, kills the child's process group when the optional deadline expires, and
// classifies the exit status. Every failure is a LaunchError, a TimeoutError or
// an ExecutionFailedError; success is reported as a nil error.
package execshell
