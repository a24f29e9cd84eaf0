// Package registry holds the static mapping from component id to TurnProcessor.
package registry
