// Package orchestrator implements the fan-out/fan-in core. One lookup task
// is published onto the shared task stream, a request-scoped window is opened
// over the shared result stream, and records tagged with the request's
// correlation ID are collected until the expected count arrives or the
// deadline passes. Whatever arrived is reduced to a success, partial, or
// timeout outcome with a per-origin breakdown.
package orchestrator
