package session

import (
	"strings"
	"time"

	"github.com/bft-labs/signtype/pkg/policy"
	"github.com/bft-labs/signtype/pkg/window"
)

// Defaults used when a Config field is left zero.
const (
	DefaultCapacity    = 8
	DefaultInterval    = 10 * time.Second
	DefaultIdleToken   = "nothing"
	DefaultDeleteToken = "del"
)

// Config controls commit behaviour for every session built from it.
type Config struct {
	// Capacity is the stability window size N.
	Capacity int

	// Interval is the minimum time between two commits.
	Interval time.Duration

	IdleToken   string
	DeleteToken string
}

// DefaultConfig returns the stock configuration:
// eight unanimous frames and a ten second cooldown.
func DefaultConfig() Config {
	return Config{
		Capacity:    DefaultCapacity,
		Interval:    DefaultInterval,
		IdleToken:   DefaultIdleToken,
		DeleteToken: DefaultDeleteToken,
	}
}

// SetDefaults fills in a missing capacity and tokens. A zero Interval is
// kept and disables the cooldown.
func (c *Config) SetDefaults() {
	if c.Capacity <= 0 {
		c.Capacity = DefaultCapacity
	}
	if c.Interval < 0 {
		c.Interval = 0
	}
	if c.IdleToken == "" {
		c.IdleToken = DefaultIdleToken
	}
	if c.DeleteToken == "" {
		c.DeleteToken = DefaultDeleteToken
	}
}

// Clock returns the current time. Readings must carry a monotonic component
// (time.Now does) for cooldowns to be immune to wall clock steps.
type Clock func() time.Time

// Option configures a Session.
type Option func(*Session)

// WithClock replaces time.Now as the session clock.
func WithClock(clock Clock) Option {
	return func(s *Session) {
		if clock != nil {
			s.now = clock
		}
	}
}

// Result is the observable outcome of one Ingest call.
type Result struct {
	// Current is the label that was just ingested.
	Current string

	// Stable and StableCount describe the window majority.
	Stable      string
	StableCount int

	// Remaining is the cooldown left, in whole seconds rounded up.
	Remaining int

	Accepted bool
	Deleted  bool

	// AcceptedLetter is the upper-cased letter appended on Accept.
	AcceptedLetter string

	// Buffer is the text after the commit. It is only populated, and
	// HasBuffer only true, when Accepted or Deleted is set.
	Buffer    string
	HasBuffer bool

	// CommittedAt is the clock reading the commit was stamped with.
	CommittedAt time.Time
}

// Commit kinds.
const (
	KindAccept = "accept"
	KindDelete = "delete"
)

// Commit describes one committed edit of a session's text.
type Commit struct {
	SessionID string
	Kind      string
	Letter    string
	Buffer    string
	At        time.Time
}

// Commit returns the edit described by r, if one fired.
func (r Result) Commit(sessionID string) (Commit, bool) {
	c := Commit{SessionID: sessionID, Buffer: r.Buffer, At: r.CommittedAt}
	switch {
	case r.Accepted:
		c.Kind = KindAccept
		c.Letter = r.AcceptedLetter
	case r.Deleted:
		c.Kind = KindDelete
	default:
		return Commit{}, false
	}
	return c, true
}

// Committed reports whether the ingest changed the text buffer state.
func (r Result) Committed() bool {
	return r.Accepted || r.Deleted
}

// Session is the mutable state of one connection.
type Session struct {
	cfg        Config
	window     *window.Window
	lastCommit time.Time
	text       []string
	now        Clock
}

// New creates a session whose cooldown starts now.
func New(cfg Config, opts ...Option) *Session {
	cfg.SetDefaults()
	s := &Session{
		cfg:    cfg,
		window: window.New(cfg.Capacity),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lastCommit = s.now()
	return s
}

// Ingest pushes label into the window and applies the commit policy.
func (s *Session) Ingest(label string) Result {
	s.window.Push(label)
	stable, count := s.window.MajorityOr(s.cfg.IdleToken)

	now := s.now()
	d := policy.Decide(policy.Input{
		Label:       stable,
		Count:       count,
		Capacity:    s.window.Cap(),
		Now:         now,
		LastCommit:  s.lastCommit,
		Interval:    s.cfg.Interval,
		DeleteToken: s.cfg.DeleteToken,
		IdleToken:   s.cfg.IdleToken,
	})

	res := Result{
		Current:     label,
		Stable:      stable,
		StableCount: count,
		Remaining:   d.Remaining,
	}

	switch d.Action {
	case policy.Accept:
		letter := strings.ToUpper(d.Label)
		s.text = append(s.text, letter)
		s.lastCommit = now
		res.Accepted = true
		res.AcceptedLetter = letter
	case policy.Delete:
		if len(s.text) > 0 {
			s.text = s.text[:len(s.text)-1]
		}
		s.lastCommit = now
		res.Deleted = true
	default:
		return res
	}

	res.Buffer = s.Text()
	res.HasBuffer = true
	res.CommittedAt = now
	return res
}

// Reset clears the window and the text and restarts the cooldown.
func (s *Session) Reset() {
	s.window.Reset()
	s.text = s.text[:0]
	s.lastCommit = s.now()
}

// Text returns the committed characters joined together.
func (s *Session) Text() string {
	return strings.Join(s.text, "")
}

// WindowLen returns the number of labels in the stability window.
func (s *Session) WindowLen() int {
	return s.window.Len()
}

// LastCommit returns the time of the last commit or reset.
func (s *Session) LastCommit() time.Time {
	return s.lastCommit
}

// Config returns the session configuration with defaults applied.
func (s *Session) Config() Config {
	return s.cfg
}
