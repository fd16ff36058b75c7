package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/signtype/internal/cliconfig"
	logAdapter "github.com/bft-labs/signtype/pkg/log"
	"github.com/bft-labs/signtype/pkg/signtype"
	"github.com/bft-labs/signtype/plugins/framewatcher"
)

const longHelp = `Turn a stream of per-frame sign classifications into committed text.

Clients connect over a websocket, send camera frames, and receive a prediction
for every frame. A letter is committed once it holds steady for a full
stability window and the commit cooldown has elapsed; a held delete sign
removes the last letter.

Configure via file ($HOME/.signtype/config.toml), SIGNTYPE_* env, or flags.`

var exampleUsage = strings.TrimSpace(`
  signtype --listen-addr :8000 --classifier remote --classifier-url http://model:9000/predict
  signtype --config ./signtype.yaml --journal ./commits.db
  signtype stats --journal ./commits.db --since 2026-01-01
  signtype vocab --vocabulary-file ./class_order.txt
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "signtype:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:           "signtype",
		Short:         "Stabilize streaming sign classifications into committed text",
		Long:          longHelp,
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := resolveConfig(cmd, &cfg, cfgPath); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	f := root.Flags()
	f.StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.signtype/config.toml)")
	f.StringVar(&cfg.ListenAddr, "listen-addr", cfg.ListenAddr, "HTTP listen address")
	f.StringVar(&cfg.WSPath, "ws-path", cfg.WSPath, "websocket endpoint path")
	f.StringVar(&cfg.VocabularyFile, "vocabulary-file", cfg.VocabularyFile, "label list, one per line (default: A-Z, del, nothing)")

	f.IntVar(&cfg.StabilityFrames, "stability-frames", cfg.StabilityFrames, "consecutive identical frames required to commit")
	f.DurationVar(&cfg.CommitInterval, "commit-interval", cfg.CommitInterval, "minimum time between commits (0 disables the cooldown)")
	f.StringVar(&cfg.IdleToken, "idle-token", cfg.IdleToken, "label meaning no sign")
	f.StringVar(&cfg.DeleteToken, "delete-token", cfg.DeleteToken, "label meaning delete the last letter")

	f.StringVar(&cfg.Classifier, "classifier", cfg.Classifier, "classifier backend: static or remote")
	f.StringVar(&cfg.ClassifierURL, "classifier-url", cfg.ClassifierURL, "prediction endpoint for the remote classifier")
	f.DurationVar(&cfg.ClassifierTimeout, "classifier-timeout", cfg.ClassifierTimeout, "remote classifier request timeout")
	f.StringVar(&cfg.StaticLabel, "static-label", cfg.StaticLabel, "label reported by the static classifier (default: idle token)")
	f.IntVar(&cfg.InputSize, "input-size", cfg.InputSize, "square edge frames are resized to before a remote call")
	f.IntVar(&cfg.CacheSize, "cache-size", cfg.CacheSize, "classifier result cache entries (0 disables)")

	f.DurationVar(&cfg.ReadTimeout, "read-timeout", cfg.ReadTimeout, "websocket idle read timeout")
	f.IntVar(&cfg.MaxMessageBytes, "max-message-bytes", cfg.MaxMessageBytes, "largest accepted websocket message")

	f.StringVar(&cfg.JournalPath, "journal", cfg.JournalPath, "SQLite commit journal path (optional)")
	f.StringVar(&cfg.DictionaryFile, "dictionary-file", cfg.DictionaryFile, "spelling dictionary, one word per line (optional)")
	f.StringVar(&cfg.WatchDir, "watch-dir", cfg.WatchDir, "directory whose image files are fed as frames (optional)")
	f.StringVar(&cfg.GRPCHealthAddr, "grpc-health-addr", cfg.GRPCHealthAddr, "gRPC health service address (optional)")

	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	f.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: console or json")

	root.AddCommand(newStatsCmd(), newVocabCmd())
	return root
}

// resolveConfig layers the config file and SIGNTYPE_* env under the flags
// set on cmd, then validates the result.
func resolveConfig(cmd *cobra.Command, cfg *cliconfig.Config, cfgPath string) error {
	cfgFile := cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgPath != "" && !cliconfig.FileExists(cfgPath) {
		return fmt.Errorf("config file %s not found", cfgPath)
	}
	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(cfg, fc, changed); err != nil {
			return err
		}
	}

	if err := cliconfig.ApplyEnvConfig(cfg, changed); err != nil {
		return err
	}
	return cfg.Validate()
}

// crashWatcher closes crashed when the server transitions to Crashed.
type crashWatcher struct {
	signtype.BaseEventHandler
	crashed chan struct{}
}

func (w *crashWatcher) OnStateChange(e signtype.StateChangeEvent) {
	if e.Current == signtype.StateCrashed {
		select {
		case <-w.crashed:
		default:
			close(w.crashed)
		}
	}
}

func serve(ctx context.Context, cfg cliconfig.Config) error {
	log, err := cliconfig.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	log.Info().Interface("config", cfg).Msg("configuration")

	watcher := &crashWatcher{crashed: make(chan struct{})}
	opts := []signtype.Option{
		signtype.WithLogger(logAdapter.NewZerologAdapterWithLogger(log)),
		signtype.WithEventHandler(watcher),
	}
	if cfg.WatchDir != "" {
		fw := framewatcher.DefaultConfig()
		fw.Dir = cfg.WatchDir
		opts = append(opts, framewatcher.WithFrameWatcher(fw))
	}

	srv, err := signtype.New(cfg.ToServerConfig(), opts...)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	log.Info().Str("addr", srv.Addr().String()).Str("ws_path", cfg.WSPath).Msg("listening")

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("received signal, stopping")
	case <-watcher.crashed:
		log.Error().Msg("server crashed")
		return fmt.Errorf("server crashed")
	}

	if err := srv.Stop(); err != nil {
		return fmt.Errorf("stop server: %w", err)
	}
	return nil
}
