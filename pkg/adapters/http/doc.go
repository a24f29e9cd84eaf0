// Package http is the HTTP transport of the router.
//
// POST /input takes {"user_input": "..."} and answers {"response": "..."}.
// The session comes from the X-Session-ID header or the relay_session cookie;
// a new one is minted when neither is present. Errors are JSON
// {"error": kind, "message": text} with a status that depends on the kind.
package http
