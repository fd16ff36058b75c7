package session

import (
	"hash/fnv"
	"sync"

	"github.com/bft-labs/signtype/pkg/log"
)

const shardCount = 32

type shard struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// Registry maps connection identities to sessions.
type Registry struct {
	cfg    Config
	opts   []Option
	logger log.Logger
	shards [shardCount]shard
}

// NewRegistry creates an empty registry. Sessions created through it use cfg
// and opts.
func NewRegistry(cfg Config, logger log.Logger, opts ...Option) *Registry {
	cfg.SetDefaults()
	r := &Registry{
		cfg:    cfg,
		opts:   opts,
		logger: log.With(logger, log.String("component", "registry")),
	}
	for i := range r.shards {
		r.shards[i].sessions = make(map[string]*Session)
	}
	return r
}

// Create inserts a fresh session for id. An existing entry for id means a
// connection identity was reused; it is logged and replaced.
func (r *Registry) Create(id string) *Session {
	s := New(r.cfg, r.opts...)

	sh := r.shard(id)
	sh.mu.Lock()
	_, existed := sh.sessions[id]
	sh.sessions[id] = s
	sh.mu.Unlock()

	if existed {
		r.logger.Error("duplicate session id, replacing stale session",
			log.String("session_id", id))
	}
	return s
}

// Get returns the session for id.
func (r *Registry) Get(id string) (*Session, bool) {
	sh := r.shard(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	s, ok := sh.sessions[id]
	return s, ok
}

// Remove deletes the session for id. Removing an unknown id is a no-op.
func (r *Registry) Remove(id string) {
	sh := r.shard(id)
	sh.mu.Lock()
	delete(sh.sessions, id)
	sh.mu.Unlock()
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	n := 0
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.RLock()
		n += len(sh.sessions)
		sh.mu.RUnlock()
	}
	return n
}

// Config returns the session configuration shared by all sessions.
func (r *Registry) Config() Config {
	return r.cfg
}

func (r *Registry) shard(id string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return &r.shards[h.Sum32()%shardCount]
}
