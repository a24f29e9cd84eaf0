// Package process runs local commands as conversational components.
//
// Only commands registered on the Runner can execute. Each turn starts the
// command once, writes {"session_id","user_input"} to its stdin and reads
// {"reply","done"} from its stdout; anything else on stdout becomes the
// reply verbatim. The session id is also exported as RELAY_SESSION_ID.
package process
