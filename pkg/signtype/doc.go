// Package signtype provides an embeddable sign typing server.
//
// Clients stream camera frames over a websocket. Each frame is classified
// into a label from a fixed vocabulary, and a label is committed into the
// connection's text once it has filled the whole stability window and the
// commit cooldown has elapsed. The delete label removes the last character
// and the idle label never commits.
//
// # Basic Usage
//
//	cfg := signtype.DefaultConfig()
//	cfg.Classifier = signtype.ClassifierRemote
//	cfg.ClassifierURL = "http://127.0.0.1:9000/classify"
//
//	srv, err := signtype.New(cfg, signtype.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	if err := srv.Start(ctx); err != nil {
//	    return err
//	}
//	defer srv.Stop()
//
// # Routes
//
//   - GET /         server info
//   - GET /health   health probe
//   - GET /metrics  Prometheus metrics
//   - Config.WSPath websocket endpoint (default /ws/detect)
//
// When Config.GRPCHealthAddr is set the server also exposes the standard
// grpc.health.v1 service, SERVING while the server is Running.
//
// # Event Handling
//
// Implement [EventHandler], or embed [BaseEventHandler], and pass it with
// [WithEventHandler] to observe state changes, sessions and commits.
//
// # Plugins
//
// A [Plugin] is initialized on Start with a [PluginConfig] giving it the
// classifier pipeline and the session registry, and is shut down on Stop.
// plugins/framewatcher feeds image files from a directory through a session.
//
// # Version
//
// Current version: 1.0.0
//
// Use [ModuleVersions] to get versions of all sub-modules.
package signtype
