package framewatcher

import "github.com/bft-labs/signtype/pkg/signtype"

// WithFrameWatcher returns a signtype Option that feeds image files dropped
// into cfg.Dir through the server's classifier and a dedicated session.
//
// Usage:
//
//	srv, err := signtype.New(cfg,
//	    framewatcher.WithFrameWatcher(framewatcher.Config{
//	        Dir:           "/var/spool/frames",
//	        DebounceDelay: 50 * time.Millisecond,
//	    }),
//	)
func WithFrameWatcher(cfg Config) signtype.Option {
	return signtype.WithPlugin(New(cfg))
}
