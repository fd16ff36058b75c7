// Package transport runs the per-connection websocket loop.
//
// Every accepted connection gets a fresh session in the registry and two
// goroutines: a reader that parses inbound messages and hands them over a
// channel, and the loop that owns the session, calls the classifier pipeline
// and writes replies. Closing the connection, or shutting the handler down,
// stops both and removes the session.
//
// Inbound text messages are JSON envelopes:
//
//	{"type": "frame", "data": "<base64 or data URL image>"}
//	{"type": "reset"}
//	{"type": "check"}
//
// Binary messages carry raw image bytes and are treated as frames. Malformed
// messages and undecodable frames are dropped without a reply.
package transport
