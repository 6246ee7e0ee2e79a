// Package ui formats command lifecycle events as human-readable console messages.
//
// ConsoleCommandEventLogger plugs into the execshell engine as an observer so
// the operator sees each external command start and finish while structured
// telemetry keeps flowing through the engine's own logger.
package ui
