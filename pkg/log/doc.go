// Package log provides the logging abstraction used across signtype.
//
// Components depend on the Logger interface rather than on a concrete
// logging library. The zerolog adapter is what the signtype binary wires in;
// the no-op logger keeps tests and embedded deployments quiet.
//
// # Usage
//
//	logger := log.NewZerologAdapterWithLogger(zerolog.New(os.Stderr))
//	sessions := log.With(logger, log.String("component", "registry"))
//	sessions.Info("session opened", log.String("session_id", id))
//
// # Version
//
// Current version: 1.1.0
// Minimum compatible version: 1.0.0
package log
