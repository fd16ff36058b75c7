package cliconfig

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/signtype/internal/transport"
	"github.com/bft-labs/signtype/pkg/classifier"
	"github.com/bft-labs/signtype/pkg/session"
	"github.com/bft-labs/signtype/pkg/signtype"
)

// Config holds CLI configuration for signtype.
type Config struct {
	ListenAddr     string
	WSPath         string
	VocabularyFile string

	StabilityFrames int
	CommitInterval  time.Duration
	IdleToken       string
	DeleteToken     string

	Classifier        string
	ClassifierURL     string
	ClassifierTimeout time.Duration
	StaticLabel       string
	InputSize         int
	CacheSize         int

	ReadTimeout     time.Duration
	MaxMessageBytes int

	JournalPath    string
	DictionaryFile string
	WatchDir       string
	GRPCHealthAddr string

	LogLevel  string
	LogFormat string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		ListenAddr:        signtype.DefaultListenAddr,
		WSPath:            signtype.DefaultWSPath,
		StabilityFrames:   session.DefaultCapacity,
		CommitInterval:    session.DefaultInterval,
		IdleToken:         session.DefaultIdleToken,
		DeleteToken:       session.DefaultDeleteToken,
		Classifier:        signtype.ClassifierStatic,
		ClassifierTimeout: signtype.DefaultClassifierTimeout,
		InputSize:         classifier.DefaultInputSize,
		CacheSize:         signtype.DefaultCacheSize,
		ReadTimeout:       transport.DefaultReadTimeout,
		MaxMessageBytes:   transport.DefaultMaxMessageBytes,
		LogLevel:          "info",
		LogFormat:         FormatConsole,
	}
}

// Validate checks the configuration for errors and normalizes values.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen-addr is required")
	}
	if c.WSPath == "" || c.WSPath[0] != '/' {
		return fmt.Errorf("ws-path must start with /")
	}
	if c.StabilityFrames <= 0 {
		return fmt.Errorf("stability frames must be positive")
	}
	if c.CommitInterval < 0 {
		return fmt.Errorf("commit interval must not be negative")
	}
	if c.IdleToken == "" || c.DeleteToken == "" {
		return fmt.Errorf("idle-token and delete-token are required")
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("cache size must not be negative")
	}

	c.Classifier = strings.ToLower(c.Classifier)
	switch c.Classifier {
	case signtype.ClassifierStatic:
	case signtype.ClassifierRemote:
		if c.ClassifierURL == "" {
			return fmt.Errorf("classifier-url is required for the remote classifier")
		}
	default:
		return fmt.Errorf("unknown classifier %q", c.Classifier)
	}

	// Ensure no trailing slash
	c.ClassifierURL = strings.TrimRight(c.ClassifierURL, "/")

	c.LogFormat = strings.ToLower(c.LogFormat)
	if c.LogFormat != FormatConsole && c.LogFormat != FormatJSON {
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}

// ToServerConfig maps the CLI configuration onto signtype.Config.
func (c Config) ToServerConfig() signtype.Config {
	return signtype.Config{
		ListenAddr:     c.ListenAddr,
		WSPath:         c.WSPath,
		VocabularyFile: c.VocabularyFile,
		Session: session.Config{
			Capacity:    c.StabilityFrames,
			Interval:    c.CommitInterval,
			IdleToken:   c.IdleToken,
			DeleteToken: c.DeleteToken,
		},
		Classifier:        c.Classifier,
		ClassifierURL:     c.ClassifierURL,
		ClassifierTimeout: c.ClassifierTimeout,
		StaticLabel:       c.StaticLabel,
		InputSize:         c.InputSize,
		CacheSize:         c.CacheSize,
		ReadTimeout:       c.ReadTimeout,
		MaxMessageBytes:   int64(c.MaxMessageBytes),
		JournalPath:       c.JournalPath,
		DictionaryFile:    c.DictionaryFile,
		GRPCHealthAddr:    c.GRPCHealthAddr,
	}
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setIntPtr sets an int value from a pointer, zero included.
func (s *configSetter) setIntPtr(flag string, value *int, dst *int) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setIntFromString parses a string to int and sets the destination if valid.
// Negative values are rejected; zero is applied only when allowZero is set.
func (s *configSetter) setIntFromString(flag, value string, allowZero bool, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i < 0 || (i == 0 && !allowZero) {
		return nil
	}
	*dst = i
	return nil
}
