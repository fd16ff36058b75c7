// Package domain holds the sentinel errors shared by the server, its
// configuration layer and the CLI.
package domain
