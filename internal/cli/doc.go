// Package cli holds the logic behind the relay commands: wiring an App for
// the HTTP server and driving an interactive chat against a Router.
package cli
