// Package input holds the hygiene rules applied to utterances and session ids
// before they reach the router.
package input
