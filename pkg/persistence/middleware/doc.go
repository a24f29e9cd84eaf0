// Package middleware decorates a ports.StateStore with cross-cutting behavior
// such as tracing.
package middleware
