// Package session holds the per-connection typing state and the registry
// that maps connection identities to sessions.
//
// A Session owns one stability window, the time of its last commit and the
// committed text. It is driven by exactly one goroutine (the connection loop
// that created it) and performs no locking of its own.
//
// The Registry is the only structure shared between connections. It is split
// into independently locked shards so that connections opening and closing
// concurrently do not contend on a single mutex, and its locks guard only the
// index, never the sessions themselves.
package session
