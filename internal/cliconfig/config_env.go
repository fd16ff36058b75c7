package cliconfig

import "os"

// EnvPrefix prefixes every environment variable read by ApplyEnvConfig.
const EnvPrefix = "SIGNTYPE_"

// ApplyEnvConfig applies SIGNTYPE_* environment variables to cfg. Values
// override the config file but never a flag that was set explicitly.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)
	env := func(name string) string { return os.Getenv(EnvPrefix + name) }

	s.setString("listen-addr", env("LISTEN_ADDR"), &cfg.ListenAddr)
	s.setString("ws-path", env("WS_PATH"), &cfg.WSPath)
	s.setString("vocabulary-file", env("VOCABULARY_FILE"), &cfg.VocabularyFile)
	s.setString("idle-token", env("IDLE_TOKEN"), &cfg.IdleToken)
	s.setString("delete-token", env("DELETE_TOKEN"), &cfg.DeleteToken)
	s.setString("classifier", env("CLASSIFIER"), &cfg.Classifier)
	s.setString("classifier-url", env("CLASSIFIER_URL"), &cfg.ClassifierURL)
	s.setString("static-label", env("STATIC_LABEL"), &cfg.StaticLabel)
	s.setString("journal", env("JOURNAL_PATH"), &cfg.JournalPath)
	s.setString("dictionary-file", env("DICTIONARY_FILE"), &cfg.DictionaryFile)
	s.setString("watch-dir", env("WATCH_DIR"), &cfg.WatchDir)
	s.setString("grpc-health-addr", env("GRPC_HEALTH_ADDR"), &cfg.GRPCHealthAddr)
	s.setString("log-level", env("LOG_LEVEL"), &cfg.LogLevel)
	s.setString("log-format", env("LOG_FORMAT"), &cfg.LogFormat)

	if err := s.setDuration("commit-interval", env("COMMIT_INTERVAL"), &cfg.CommitInterval); err != nil {
		return err
	}
	if err := s.setDuration("classifier-timeout", env("CLASSIFIER_TIMEOUT"), &cfg.ClassifierTimeout); err != nil {
		return err
	}
	if err := s.setDuration("read-timeout", env("READ_TIMEOUT"), &cfg.ReadTimeout); err != nil {
		return err
	}

	if err := s.setIntFromString("stability-frames", env("STABILITY_FRAMES"), false, &cfg.StabilityFrames); err != nil {
		return err
	}
	if err := s.setIntFromString("input-size", env("INPUT_SIZE"), false, &cfg.InputSize); err != nil {
		return err
	}
	if err := s.setIntFromString("max-message-bytes", env("MAX_MESSAGE_BYTES"), false, &cfg.MaxMessageBytes); err != nil {
		return err
	}
	if err := s.setIntFromString("cache-size", env("CACHE_SIZE"), true, &cfg.CacheSize); err != nil {
		return err
	}
	return nil
}
