package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// FileConfig mirrors Config but uses strings for durations to make TOML and
// YAML friendly. CacheSize is a pointer so an explicit zero disables the cache.
type FileConfig struct {
	ListenAddr        string `toml:"listen_addr" yaml:"listen_addr"`
	WSPath            string `toml:"ws_path" yaml:"ws_path"`
	VocabularyFile    string `toml:"vocabulary_file" yaml:"vocabulary_file"`
	StabilityFrames   int    `toml:"stability_frames" yaml:"stability_frames"`
	CommitInterval    string `toml:"commit_interval" yaml:"commit_interval"`
	IdleToken         string `toml:"idle_token" yaml:"idle_token"`
	DeleteToken       string `toml:"delete_token" yaml:"delete_token"`
	Classifier        string `toml:"classifier" yaml:"classifier"`
	ClassifierURL     string `toml:"classifier_url" yaml:"classifier_url"`
	ClassifierTimeout string `toml:"classifier_timeout" yaml:"classifier_timeout"`
	StaticLabel       string `toml:"static_label" yaml:"static_label"`
	InputSize         int    `toml:"input_size" yaml:"input_size"`
	CacheSize         *int   `toml:"cache_size" yaml:"cache_size"`
	ReadTimeout       string `toml:"read_timeout" yaml:"read_timeout"`
	MaxMessageBytes   int    `toml:"max_message_bytes" yaml:"max_message_bytes"`
	JournalPath       string `toml:"journal_path" yaml:"journal_path"`
	DictionaryFile    string `toml:"dictionary_file" yaml:"dictionary_file"`
	WatchDir          string `toml:"watch_dir" yaml:"watch_dir"`
	GRPCHealthAddr    string `toml:"grpc_health_addr" yaml:"grpc_health_addr"`
	LogLevel          string `toml:"log_level" yaml:"log_level"`
	LogFormat         string `toml:"log_format" yaml:"log_format"`
}

// LoadFileConfig reads and parses a config file from the given path. Files
// ending in .yaml or .yml are decoded as YAML, everything else as TOML.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &fc)
	default:
		err = toml.Unmarshal(b, &fc)
	}
	if err != nil {
		return fc, fmt.Errorf("parse %s: %w", path, err)
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.signtype/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".signtype", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("listen-addr", fc.ListenAddr, &cfg.ListenAddr)
	s.setString("ws-path", fc.WSPath, &cfg.WSPath)
	s.setString("vocabulary-file", fc.VocabularyFile, &cfg.VocabularyFile)
	s.setString("idle-token", fc.IdleToken, &cfg.IdleToken)
	s.setString("delete-token", fc.DeleteToken, &cfg.DeleteToken)
	s.setString("classifier", fc.Classifier, &cfg.Classifier)
	s.setString("classifier-url", fc.ClassifierURL, &cfg.ClassifierURL)
	s.setString("static-label", fc.StaticLabel, &cfg.StaticLabel)
	s.setString("journal", fc.JournalPath, &cfg.JournalPath)
	s.setString("dictionary-file", fc.DictionaryFile, &cfg.DictionaryFile)
	s.setString("watch-dir", fc.WatchDir, &cfg.WatchDir)
	s.setString("grpc-health-addr", fc.GRPCHealthAddr, &cfg.GRPCHealthAddr)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("log-format", fc.LogFormat, &cfg.LogFormat)

	if err := s.setDuration("commit-interval", fc.CommitInterval, &cfg.CommitInterval); err != nil {
		return err
	}
	if err := s.setDuration("classifier-timeout", fc.ClassifierTimeout, &cfg.ClassifierTimeout); err != nil {
		return err
	}
	if err := s.setDuration("read-timeout", fc.ReadTimeout, &cfg.ReadTimeout); err != nil {
		return err
	}

	s.setInt("stability-frames", fc.StabilityFrames, &cfg.StabilityFrames)
	s.setInt("input-size", fc.InputSize, &cfg.InputSize)
	s.setInt("max-message-bytes", fc.MaxMessageBytes, &cfg.MaxMessageBytes)
	s.setIntPtr("cache-size", fc.CacheSize, &cfg.CacheSize)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
