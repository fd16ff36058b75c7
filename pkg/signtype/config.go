package signtype

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bft-labs/signtype/internal/domain"
	"github.com/bft-labs/signtype/internal/transport"
	"github.com/bft-labs/signtype/pkg/classifier"
	"github.com/bft-labs/signtype/pkg/session"
)

// Classifier kinds accepted by Config.Classifier.
const (
	ClassifierStatic = "static"
	ClassifierRemote = "remote"
)

// Defaults applied by Config.SetDefaults.
const (
	DefaultListenAddr        = "0.0.0.0:8000"
	DefaultWSPath            = "/ws/detect"
	DefaultClassifierTimeout = 2 * time.Second
	DefaultCacheSize         = 256
)

// Config holds the server configuration. It is fixed once New returns.
type Config struct {
	// ListenAddr is the HTTP listen address. Use port 0 for an ephemeral port.
	ListenAddr string

	// WSPath is the websocket endpoint path.
	WSPath string

	// VocabularyFile lists the classifier labels, one per line. Empty uses
	// the built-in A-Z, del, nothing vocabulary.
	VocabularyFile string

	// Session holds the stability window size, the commit interval and the
	// idle and delete tokens.
	Session session.Config

	// Classifier selects the built-in classifier when none is injected with
	// WithClassifier: "static" or "remote".
	Classifier        string
	ClassifierURL     string
	ClassifierTimeout time.Duration

	// StaticLabel is reported by the static classifier. Defaults to the idle
	// token.
	StaticLabel string

	// InputSize is the square edge frames are resized to before a remote call.
	InputSize int

	// CacheSize bounds the classifier result cache. Zero disables it.
	CacheSize int

	ReadTimeout     time.Duration
	MaxMessageBytes int64

	// JournalPath enables the SQLite commit journal.
	JournalPath string

	// DictionaryFile replaces the built-in spelling dictionary.
	DictionaryFile string

	// GRPCHealthAddr enables the gRPC health service on this address.
	GRPCHealthAddr string
}

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() Config {
	var cfg Config
	cfg.SetDefaults()
	cfg.CacheSize = DefaultCacheSize
	return cfg
}

// SetDefaults fills zero fields. CacheSize is left alone since zero disables
// the cache.
func (c *Config) SetDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.WSPath == "" {
		c.WSPath = DefaultWSPath
	}
	if c.Session == (session.Config{}) {
		c.Session = session.DefaultConfig()
	}
	c.Session.SetDefaults()
	if c.Classifier == "" {
		c.Classifier = ClassifierStatic
	}
	if c.ClassifierTimeout <= 0 {
		c.ClassifierTimeout = DefaultClassifierTimeout
	}
	if c.StaticLabel == "" {
		c.StaticLabel = c.Session.IdleToken
	}
	if c.InputSize <= 0 {
		c.InputSize = classifier.DefaultInputSize
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = transport.DefaultReadTimeout
	}
	if c.MaxMessageBytes <= 0 {
		c.MaxMessageBytes = transport.DefaultMaxMessageBytes
	}
}

// Validate checks the configuration. Errors wrap domain.ErrInvalidConfig.
func (c Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", domain.ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	if !strings.HasPrefix(c.WSPath, "/") {
		return invalid("ws path %q must start with /", c.WSPath)
	}
	if c.Session.Capacity <= 0 {
		return invalid("stability frames must be positive")
	}
	if c.Session.Interval < 0 {
		return invalid("commit interval must not be negative")
	}
	if c.Session.IdleToken == c.Session.DeleteToken {
		return invalid("idle and delete tokens must differ")
	}
	if c.CacheSize < 0 {
		return invalid("cache size must not be negative")
	}

	switch c.Classifier {
	case ClassifierStatic:
	case ClassifierRemote:
		if c.ClassifierURL == "" {
			return invalid("remote classifier requires a classifier url")
		}
		u, err := url.Parse(c.ClassifierURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return invalid("classifier url %q must be an absolute http(s) url", c.ClassifierURL)
		}
	default:
		return invalid("unknown classifier %q", c.Classifier)
	}
	return nil
}
