// Package framewatcher feeds frames from a directory into a signtype server.
// Every image file created or rewritten in the watched directory is decoded,
// classified and ingested into a session named "watch:<dir>", so a camera or
// capture tool that writes files can drive the same commit logic as a
// websocket client.
package framewatcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/signtype/pkg/classifier"
	"github.com/bft-labs/signtype/pkg/log"
	"github.com/bft-labs/signtype/pkg/session"
	"github.com/bft-labs/signtype/pkg/signtype"
)

// SessionPrefix prefixes the id of the session the watcher ingests into.
const SessionPrefix = "watch:"

// imageExts lists the file extensions treated as frames.
var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
}

// Config holds configuration options for the frame watcher plugin.
type Config struct {
	// Dir is the directory to watch. An empty Dir disables the plugin.
	Dir string

	// DebounceDelay is the delay to wait after the last write to a file
	// before reading it.
	// Default: 50 milliseconds
	DebounceDelay time.Duration

	// QueueSize bounds the number of files waiting to be classified.
	// Default: 64
	QueueSize int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DebounceDelay: 50 * time.Millisecond,
		QueueSize:     64,
	}
}

// Plugin implements the frame watcher.
type Plugin struct {
	mu sync.Mutex

	dir           string
	debounceDelay time.Duration

	// Runtime state
	logger    log.Logger
	pipeline  *classifier.Pipeline
	sessions  *session.Registry
	commit    func(session.Commit)
	sessionID string
	sess      *session.Session
	queue     chan string
	timers    map[string]*time.Timer
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// New creates a new frame watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	def := DefaultConfig()
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = def.DebounceDelay
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	return &Plugin{
		dir:           cfg.Dir,
		debounceDelay: cfg.DebounceDelay,
		queue:         make(chan string, cfg.QueueSize),
		timers:        make(map[string]*time.Timer),
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "framewatcher"
}

// SessionID returns the id of the session frames are ingested into. It is
// empty until the plugin is initialized.
func (p *Plugin) SessionID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sessionID
}

// Initialize creates the watch session and starts the watcher.
func (p *Plugin) Initialize(ctx context.Context, cfg signtype.PluginConfig) error {
	logger := log.With(cfg.Logger, log.String("component", "framewatcher"))
	if p.dir == "" {
		logger.Warn("frame watcher disabled: no directory configured")
		return nil
	}
	if cfg.Pipeline == nil || cfg.Sessions == nil {
		return errors.New("framewatcher: pipeline and sessions are required")
	}

	dir, err := filepath.Abs(p.dir)
	if err != nil {
		return fmt.Errorf("framewatcher: resolve dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("framewatcher: create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("framewatcher: watch %s: %w", dir, err)
	}

	p.mu.Lock()
	p.logger = logger
	p.pipeline = cfg.Pipeline
	p.sessions = cfg.Sessions
	p.commit = cfg.Commit
	p.sessionID = SessionPrefix + dir
	p.sess = cfg.Sessions.Create(p.sessionID)
	p.mu.Unlock()

	// The watcher outlives Initialize's context; Shutdown stops it.
	watchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.cancel = cancel

	p.wg.Add(2)
	go p.watchLoop(watchCtx, watcher)
	go p.processLoop(watchCtx)

	logger.Info("frame watcher started",
		log.String("dir", dir), log.String("session_id", p.sessionID))
	return nil
}

// Shutdown stops the watcher and removes the watch session.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()

	p.mu.Lock()
	for name, t := range p.timers {
		t.Stop()
		delete(p.timers, name)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	p.sessions.Remove(p.sessionID)
	p.logger.Info("frame watcher stopped", log.String("session_id", p.sessionID))
	return nil
}

// watchLoop turns file events into debounced queue entries.
func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !isFrame(event.Name) {
				continue
			}
			p.debounce(ctx, event.Name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("frame watcher error", log.Err(err))
		}
	}
}

// debounce delays enqueueing name until writes to it have settled.
func (p *Plugin) debounce(ctx context.Context, name string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if t, ok := p.timers[name]; ok {
		t.Stop()
	}
	p.timers[name] = time.AfterFunc(p.debounceDelay, func() {
		p.mu.Lock()
		delete(p.timers, name)
		p.mu.Unlock()

		select {
		case p.queue <- name:
		case <-ctx.Done():
		default:
			p.logger.Warn("frame queue full, dropping frame", log.String("file", name))
		}
	})
}

// processLoop ingests queued frames one at a time so the session sees them
// in arrival order.
func (p *Plugin) processLoop(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case name := <-p.queue:
			p.processFile(ctx, name)
		}
	}
}

func (p *Plugin) processFile(ctx context.Context, name string) {
	raw, err := os.ReadFile(name)
	if err != nil {
		p.logger.Warn("frame dropped", log.String("file", name), log.Err(err))
		return
	}

	res, err := p.pipeline.Process(ctx, raw)
	if err != nil {
		p.logger.Warn("frame dropped", log.String("file", name), log.Err(err))
		return
	}
	if ctx.Err() != nil {
		return
	}

	out := p.sess.Ingest(res.Prediction.Label)
	p.logger.Debug("frame classified",
		log.String("file", filepath.Base(name)),
		log.String("label", res.Prediction.Label),
		log.Bool("cached", res.Cached))

	c, ok := out.Commit(p.sessionID)
	if !ok {
		return
	}
	p.logger.Info("commit",
		log.String("session_id", p.sessionID),
		log.String("kind", c.Kind),
		log.String("letter", c.Letter),
		log.String("buffer", c.Buffer))
	if p.commit != nil {
		p.commit(c)
	}
}

func isFrame(name string) bool {
	return imageExts[strings.ToLower(filepath.Ext(name))]
}

// Ensure Plugin implements signtype.Plugin.
var _ signtype.Plugin = (*Plugin)(nil)
