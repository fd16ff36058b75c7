package signtype

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/bft-labs/signtype/internal/domain"
	"github.com/bft-labs/signtype/internal/journal"
	"github.com/bft-labs/signtype/internal/spelling"
	"github.com/bft-labs/signtype/internal/telemetry"
	"github.com/bft-labs/signtype/internal/transport"
	"github.com/bft-labs/signtype/pkg/classifier"
	"github.com/bft-labs/signtype/pkg/lifecycle"
	"github.com/bft-labs/signtype/pkg/log"
	"github.com/bft-labs/signtype/pkg/session"
	"github.com/bft-labs/signtype/pkg/vocab"
)

// Server is the sign typing server. Use New to create one, Start to bind its
// listeners and Stop to shut it down.
type Server struct {
	config   Config
	opts     options
	logger   log.Logger
	vocab    *vocab.Vocabulary
	dict     *spelling.Dictionary
	pipeline *classifier.Pipeline
	registry *session.Registry
	metrics  *prometheus.Registry
	recorder *telemetry.Recorder
	events   EventHandler
	plugins  []Plugin
	mux      *http.ServeMux

	lifecycle *lifecycle.DefaultManager

	// transport and journalW are read from connection loops while Stop
	// holds mu.
	transport atomic.Pointer[transport.Handler]
	journalW  atomic.Pointer[journal.Writer]

	mu         sync.RWMutex
	cancel     context.CancelFunc
	runDone    chan struct{}
	httpServer *http.Server
	httpAddr   net.Addr
	grpcServer *grpc.Server
	grpcAddr   net.Addr
	health     *health.Server
	journal    *journal.Store
}

// New creates a server in StateStopped. It loads the vocabulary and the
// dictionary and builds the classifier pipeline, but binds nothing.
func New(cfg Config, opts ...Option) (*Server, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := validateModuleVersions(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.NewNoopLogger()
	}
	if o.registry == nil {
		o.registry = prometheus.NewRegistry()
	}
	if o.journalPath != "" {
		cfg.JournalPath = o.journalPath
	}

	v, err := loadVocabulary(cfg)
	if err != nil {
		return nil, err
	}
	dict, err := loadDictionary(cfg, o.dictionary)
	if err != nil {
		return nil, err
	}

	inner := o.classifier
	if inner == nil {
		inner, err = buildClassifier(cfg, v)
		if err != nil {
			return nil, err
		}
	}
	pipeline, err := classifier.NewPipeline(
		classifier.NewGuard(inner, v, cfg.Session.IdleToken, o.logger), cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create classifier pipeline: %w", err)
	}

	metrics, err := telemetry.NewMetrics(o.registry)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	var sessOpts []session.Option
	if o.clock != nil {
		sessOpts = append(sessOpts, session.WithClock(o.clock))
	}

	s := &Server{
		config:   cfg,
		opts:     o,
		logger:   o.logger,
		vocab:    v,
		dict:     dict,
		pipeline: pipeline,
		registry: session.NewRegistry(cfg.Session, o.logger, sessOpts...),
		metrics:  o.registry,
		recorder: telemetry.NewRecorder(metrics, o.logger),
		events:   o.eventHandler,
		plugins:  o.plugins,
	}
	if s.events == nil {
		s.events = BaseEventHandler{}
	}
	s.lifecycle = lifecycle.NewManager(o.logger, stateEmitter{handler: s.events})

	t, err := s.newTransport()
	if err != nil {
		return nil, err
	}
	s.transport.Store(t)
	s.mux = s.routes()
	return s, nil
}

func loadVocabulary(cfg Config) (*vocab.Vocabulary, error) {
	v := vocab.Default()
	if cfg.VocabularyFile != "" {
		var err error
		if v, err = vocab.Load(cfg.VocabularyFile); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
		}
	}
	if err := v.Validate(cfg.Session.IdleToken, cfg.Session.DeleteToken); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}
	return v, nil
}

func loadDictionary(cfg Config, words []string) (*spelling.Dictionary, error) {
	switch {
	case len(words) > 0:
		return spelling.NewDictionary(words), nil
	case cfg.DictionaryFile != "":
		d, err := spelling.Load(cfg.DictionaryFile)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
		}
		return d, nil
	default:
		return spelling.Default(), nil
	}
}

func buildClassifier(cfg Config, v *vocab.Vocabulary) (classifier.Classifier, error) {
	switch cfg.Classifier {
	case ClassifierRemote:
		return classifier.NewRemote(cfg.ClassifierURL, cfg.ClassifierTimeout,
			classifier.WithInputSize(cfg.InputSize)), nil
	default:
		if !v.Contains(cfg.StaticLabel) {
			return nil, fmt.Errorf("%w: static label %q not in vocabulary", domain.ErrInvalidConfig, cfg.StaticLabel)
		}
		return classifier.NewStatic(cfg.StaticLabel), nil
	}
}

func (s *Server) newTransport() (*transport.Handler, error) {
	return transport.New(transport.Config{
		ReadTimeout:     s.config.ReadTimeout,
		MaxMessageBytes: s.config.MaxMessageBytes,
	}, s.registry, s.pipeline,
		transport.WithLogger(s.logger),
		transport.WithRecorder(s.recorder),
		transport.WithObserver(&observer{s: s}),
		transport.WithDictionary(s.dict),
	)
}

// Start binds the listeners, initializes plugins and begins serving. It
// returns once the server is Running. Cancelling ctx stops the server.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lifecycle.CanStart() {
		return domain.ErrAlreadyRunning
	}
	if err := s.lifecycle.TransitionTo(StateStarting, "Start() called"); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	if err := s.startLocked(runCtx, done); err != nil {
		cancel()
		s.releaseLocked(context.Background())
		_ = s.lifecycle.TransitionTo(StateCrashed, err.Error())
		return err
	}
	s.cancel = cancel
	s.runDone = done

	if err := s.lifecycle.TransitionTo(StateRunning, "listeners bound"); err != nil {
		return err
	}
	if s.health != nil {
		s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	}

	go s.stopOnCancel(ctx, done)
	return nil
}

// stopOnCancel stops the run identified by done when ctx ends first.
func (s *Server) stopOnCancel(ctx context.Context, done chan struct{}) {
	select {
	case <-done:
		return
	case <-ctx.Done():
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runDone != done || !s.lifecycle.CanStop() {
		return
	}
	if err := s.stopLocked("context cancelled"); err != nil {
		s.logger.Error("shutdown after context cancellation failed", log.Err(err))
	}
}

func (s *Server) startLocked(ctx context.Context, done chan struct{}) error {
	if s.transport.Load() == nil {
		t, err := s.newTransport()
		if err != nil {
			return err
		}
		s.transport.Store(t)
	}

	if s.config.JournalPath != "" {
		store, err := journal.Open(s.config.JournalPath)
		if err != nil {
			return err
		}
		s.journal = store
		s.journalW.Store(journal.NewWriter(store, journal.DefaultBufferSize, s.logger))
	}

	ln, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.config.ListenAddr, err)
	}
	s.httpAddr = ln.Addr()
	s.httpServer = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var grpcLn net.Listener
	if s.config.GRPCHealthAddr != "" {
		if grpcLn, err = net.Listen("tcp", s.config.GRPCHealthAddr); err != nil {
			_ = ln.Close()
			return fmt.Errorf("listen on %s: %w", s.config.GRPCHealthAddr, err)
		}
		s.grpcAddr = grpcLn.Addr()
		s.health = health.NewServer()
		s.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		s.grpcServer = grpc.NewServer()
		healthpb.RegisterHealthServer(s.grpcServer, s.health)
	}

	pluginCfg := PluginConfig{
		Logger:   s.logger,
		Pipeline: s.pipeline,
		Sessions: s.registry,
		Commit:   s.recordCommit,
	}
	for i, p := range s.plugins {
		if err := p.Initialize(ctx, pluginCfg); err != nil {
			s.logger.Error("plugin initialization failed",
				log.String("plugin", p.Name()), log.Err(err))
			s.shutdownPlugins(context.Background(), s.plugins[:i])
			_ = ln.Close()
			if grpcLn != nil {
				_ = grpcLn.Close()
			}
			return fmt.Errorf("plugin %s: %w", p.Name(), err)
		}
		s.logger.Info("plugin initialized", log.String("plugin", p.Name()))
	}

	g := new(errgroup.Group)
	httpServer := s.httpServer
	g.Go(func() error {
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if grpcLn != nil {
		grpcServer := s.grpcServer
		g.Go(func() error {
			if err := grpcServer.Serve(grpcLn); err != nil {
				return fmt.Errorf("grpc health server: %w", err)
			}
			return nil
		})
	}
	s.lifecycle.Go(func() {
		if err := g.Wait(); err != nil {
			s.logger.Error("listener failed", log.Err(err))
			go s.crashRun(done, err)
		}
	})

	s.logger.Info("server listening",
		log.String("addr", s.httpAddr.String()),
		log.String("ws_path", s.config.WSPath))
	return nil
}

// Stop closes every connection, shuts the listeners and plugins down and
// flushes the journal. Returns ErrShutdownTimeout if workers outlive
// lifecycle.ShutdownTimeout.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lifecycle.CanStop() {
		return domain.ErrNotRunning
	}
	return s.stopLocked("Stop() called")
}

func (s *Server) stopLocked(reason string) error {
	if err := s.lifecycle.TransitionTo(StateStopping, reason); err != nil {
		return err
	}
	if s.runDone != nil {
		close(s.runDone)
		s.runDone = nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), lifecycle.ShutdownTimeout)
	defer cancel()

	if s.health != nil {
		s.health.Shutdown()
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.shutdownPlugins(ctx, s.plugins)
	s.releaseLocked(ctx)

	err := s.lifecycle.WaitWithTimeout(lifecycle.ShutdownTimeout)
	if err != nil {
		_ = s.lifecycle.TransitionTo(StateCrashed, "shutdown timeout")
		return domain.ErrShutdownTimeout
	}
	_ = s.lifecycle.TransitionTo(StateStopped, "graceful shutdown")
	return nil
}

// crashRun tears down the run identified by done after a listener failed
// and leaves the server Crashed.
func (s *Server) crashRun(done chan struct{}, cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runDone != done || s.lifecycle.State() != StateRunning {
		return
	}
	close(s.runDone)
	s.runDone = nil

	ctx, cancel := context.WithTimeout(context.Background(), lifecycle.ShutdownTimeout)
	defer cancel()

	if s.health != nil {
		s.health.Shutdown()
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.shutdownPlugins(ctx, s.plugins)
	s.releaseLocked(ctx)
	if err := s.lifecycle.WaitWithTimeout(lifecycle.ShutdownTimeout); err != nil {
		s.logger.Warn("workers outlived crash teardown", log.Err(err))
	}
	_ = s.lifecycle.TransitionTo(StateCrashed, cause.Error())
}

// releaseLocked tears down whatever startLocked created.
func (s *Server) releaseLocked(ctx context.Context) {
	if t := s.transport.Swap(nil); t != nil {
		if err := t.Shutdown(ctx); err != nil {
			s.logger.Warn("connections did not close in time", log.Err(err))
		}
	}
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Warn("http shutdown incomplete", log.Err(err))
			_ = s.httpServer.Close()
		}
		s.httpServer = nil
	}
	if s.grpcServer != nil {
		s.grpcServer.GracefulStop()
		s.grpcServer = nil
		s.health = nil
	}
	if w := s.journalW.Swap(nil); w != nil {
		if err := w.Close(ctx); err != nil {
			s.logger.Warn("journal flush incomplete", log.Err(err))
		}
	}
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			s.logger.Warn("failed to close journal", log.Err(err))
		}
		s.journal = nil
	}
}

func (s *Server) shutdownPlugins(ctx context.Context, plugins []Plugin) {
	for i := len(plugins) - 1; i >= 0; i-- {
		p := plugins[i]
		if err := p.Shutdown(ctx); err != nil {
			s.logger.Error("plugin shutdown failed",
				log.String("plugin", p.Name()), log.Err(err))
			continue
		}
		s.logger.Info("plugin shutdown complete", log.String("plugin", p.Name()))
	}
}

// Status returns the current lifecycle state.
func (s *Server) Status() State {
	return s.lifecycle.State()
}

// Handler returns the HTTP handler serving every route. It can be mounted in
// another server or an httptest.Server without calling Start.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Registry returns the session registry.
func (s *Server) Registry() *session.Registry {
	return s.registry
}

// Addr returns the bound HTTP address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.httpAddr
}

// GRPCAddr returns the bound gRPC health address, or nil when disabled.
func (s *Server) GRPCAddr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.grpcAddr
}

// Vocabulary returns the label vocabulary.
func (s *Server) Vocabulary() *vocab.Vocabulary {
	return s.vocab
}

func (s *Server) currentTransport() *transport.Handler {
	return s.transport.Load()
}

// recordCommit feeds a commit into the journal and the event handler.
func (s *Server) recordCommit(c session.Commit) {
	if w := s.journalW.Load(); w != nil {
		w.Record(journal.Entry{
			SessionID:   c.SessionID,
			Kind:        c.Kind,
			Letter:      c.Letter,
			Buffer:      c.Buffer,
			CommittedAt: c.At,
		})
	}
	s.events.OnCommit(c)
}

// observer adapts server events to the transport observer interface.
type observer struct {
	s *Server
}

func (o *observer) SessionOpened(id string) {
	o.s.events.OnSessionOpened(SessionEvent{SessionID: id, At: time.Now()})
}

func (o *observer) SessionClosed(id string, err error) {
	o.s.events.OnSessionClosed(SessionEvent{SessionID: id, At: time.Now(), Err: err})
}

func (o *observer) Committed(c session.Commit) {
	o.s.recordCommit(c)
}

// stateEmitter adapts EventHandler to lifecycle.EventEmitter.
type stateEmitter struct {
	handler EventHandler
}

func (e stateEmitter) OnStateChange(previous, current lifecycle.State, reason string) {
	e.handler.OnStateChange(StateChangeEvent{
		Previous: previous,
		Current:  current,
		Reason:   reason,
	})
}
