// Package mcp exposes the router to MCP hosts as the tools send_utterance,
// get_session and reset_session, plus the relay://triggers resource.
package mcp
