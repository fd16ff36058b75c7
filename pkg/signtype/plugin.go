package signtype

import (
	"context"

	"github.com/bft-labs/signtype/pkg/classifier"
	"github.com/bft-labs/signtype/pkg/log"
	"github.com/bft-labs/signtype/pkg/session"
)

// Plugin extends a Server. Plugins are initialized in registration order when
// the server starts and shut down in reverse order when it stops.
type Plugin interface {
	Name() string
	Initialize(ctx context.Context, cfg PluginConfig) error
	Shutdown(ctx context.Context) error
}

// PluginConfig gives a plugin access to the server's classification and
// session machinery.
type PluginConfig struct {
	Logger log.Logger

	// Pipeline decodes and classifies frames with the server's classifier.
	Pipeline *classifier.Pipeline

	// Sessions is the server's session registry.
	Sessions *session.Registry

	// Commit records a commit produced by the plugin the same way connection
	// commits are recorded: events, journal and metrics.
	Commit func(c session.Commit)
}
