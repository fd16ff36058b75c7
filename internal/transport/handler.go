package transport

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/bft-labs/signtype/internal/spelling"
	"github.com/bft-labs/signtype/internal/telemetry"
	"github.com/bft-labs/signtype/pkg/classifier"
	"github.com/bft-labs/signtype/pkg/log"
	"github.com/bft-labs/signtype/pkg/session"
)

// Defaults for Config fields left zero.
const (
	DefaultReadTimeout     = 60 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
	DefaultMaxMessageBytes = 8 << 20
)

// Config tunes connection handling.
type Config struct {
	// ReadTimeout closes a connection that sends nothing for this long.
	ReadTimeout time.Duration

	WriteTimeout time.Duration

	// MaxMessageBytes caps the size of one inbound message.
	MaxMessageBytes int64
}

func (c *Config) setDefaults() {
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.MaxMessageBytes <= 0 {
		c.MaxMessageBytes = DefaultMaxMessageBytes
	}
}

// Observer is notified of session lifecycle and commits. Calls for one
// session come from that session's loop goroutine.
type Observer interface {
	SessionOpened(id string)
	SessionClosed(id string, err error)
	Committed(c session.Commit)
}

type noopObserver struct{}

func (noopObserver) SessionOpened(string)        {}
func (noopObserver) SessionClosed(string, error) {}
func (noopObserver) Committed(session.Commit)    {}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithRecorder sets the telemetry recorder.
func WithRecorder(r *telemetry.Recorder) Option {
	return func(h *Handler) {
		h.recorder = r
	}
}

// WithObserver sets the session observer.
func WithObserver(o Observer) Option {
	return func(h *Handler) {
		if o != nil {
			h.observer = o
		}
	}
}

// WithDictionary sets the dictionary used for check messages.
func WithDictionary(d *spelling.Dictionary) Option {
	return func(h *Handler) {
		if d != nil {
			h.dict = d
		}
	}
}

// Handler upgrades HTTP requests to websocket connections and serves them.
type Handler struct {
	cfg       Config
	registry  *session.Registry
	pipeline  *classifier.Pipeline
	dict      *spelling.Dictionary
	recorder  *telemetry.Recorder
	observer  Observer
	logger    log.Logger
	validator *envelopeValidator
	upgrader  websocket.Upgrader

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a handler serving sessions from registry through pipeline.
func New(cfg Config, registry *session.Registry, pipeline *classifier.Pipeline, opts ...Option) (*Handler, error) {
	cfg.setDefaults()
	validator, err := newEnvelopeValidator()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &Handler{
		cfg:       cfg,
		registry:  registry,
		pipeline:  pipeline,
		dict:      spelling.Default(),
		observer:  noopObserver{},
		validator: validator,
		upgrader: websocket.Upgrader{
			// Browsers connect from arbitrary dev origins.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = log.With(h.logger, log.String("component", "transport"))
	return h, nil
}

// ServeHTTP upgrades the request and runs the connection loop until the
// connection closes or the handler shuts down.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.ctx.Err() != nil {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error response.
		h.logger.Debug("websocket upgrade failed", log.Err(err))
		return
	}

	h.wg.Add(1)
	defer h.wg.Done()

	h.serve(h.ctx, conn, uuid.NewString())
}

// Shutdown stops every connection loop and waits for them to release their
// sessions, or for ctx to be done. New connections are refused afterwards.
func (h *Handler) Shutdown(ctx context.Context) error {
	h.cancel()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Registry returns the session registry.
func (h *Handler) Registry() *session.Registry {
	return h.registry
}

// errShutdown is reported to observers for connections closed by Shutdown.
var errShutdown = errors.New("server shutting down")
