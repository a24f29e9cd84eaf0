// Package static provides in-process collaborators for demos and tests:
// a keyword classifier and a prompt-list component.
package static
