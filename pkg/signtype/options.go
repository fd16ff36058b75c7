package signtype

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/signtype/pkg/classifier"
	"github.com/bft-labs/signtype/pkg/log"
	"github.com/bft-labs/signtype/pkg/session"
)

// Option configures optional behavior of a Server.
type Option func(*options)

type options struct {
	logger       log.Logger
	classifier   classifier.Classifier
	eventHandler EventHandler
	plugins      []Plugin
	registry     *prometheus.Registry
	clock        session.Clock
	dictionary   []string
	journalPath  string
}

// WithLogger sets the logger. If not provided, a no-op logger is used.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithClassifier injects the classifier, replacing the one selected by
// Config.Classifier. Its output is still guarded against the vocabulary.
func WithClassifier(c classifier.Classifier) Option {
	return func(o *options) {
		o.classifier = c
	}
}

// WithEventHandler sets a handler for server events.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithPlugin registers a plugin to be initialized when the server starts.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}

// WithMetricsRegistry registers the server collectors on reg and serves reg
// on /metrics. By default each server gets its own registry.
func WithMetricsRegistry(reg *prometheus.Registry) Option {
	return func(o *options) {
		o.registry = reg
	}
}

// WithClock replaces time.Now as the clock used for commit cooldowns.
func WithClock(clock session.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithDictionary replaces the spelling dictionary with words.
func WithDictionary(words []string) Option {
	return func(o *options) {
		o.dictionary = words
	}
}

// WithJournal enables the commit journal at path, overriding
// Config.JournalPath.
func WithJournal(path string) Option {
	return func(o *options) {
		o.journalPath = path
	}
}
