// Command threadwatch reports on the replies to an account's recent posts
// once they are old enough for the conversation to have settled.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ibeckermayer/threadwatch/internal/app"
	"github.com/ibeckermayer/threadwatch/internal/config"
	"github.com/ibeckermayer/threadwatch/internal/feed"
	"github.com/ibeckermayer/threadwatch/internal/metrics"
	"github.com/ibeckermayer/threadwatch/internal/store"
)

// globals are the persistent flags shared by every subcommand.
type globals struct {
	configPath string
	verbose    bool
	logger     *zap.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:   "threadwatch",
		Short: "Harvest and summarize replies to an account's settled posts",
		Long: `threadwatch checks an account's recent posts, picks those old enough for the
reply thread to have settled, harvests their replies through the bird CLI and
prints one plain-text report per post. Processed posts are remembered in a
local state file so each post is reported exactly once.

Run without a subcommand to perform a single run.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if g.logger != nil {
				return nil
			}
			cfg := zap.NewProductionConfig()
			if g.verbose {
				cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			logger, err := cfg.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			g.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if g.logger != nil {
				_ = g.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, g)
		},
	}

	root.PersistentFlags().StringVar(&g.configPath, "config", "", "config file (default: <user config dir>/threadwatch/config.toml)")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newRunCmd(g),
		newSendCmd(g),
		newWatchCmd(g),
		newStateCmd(g),
		newHistoryCmd(g),
		newConfigCmd(g),
		newCacheCmd(g),
	)
	return root
}

func (g *globals) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (g *globals) stateFile(cfg *config.Config) (*store.StateFile, error) {
	path, err := cfg.StatePath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve state path: %w", err)
	}
	return store.NewStateFile(path), nil
}

// buildApp wires the pipeline from config. The returned cleanup closes the
// archive when one is configured.
func (g *globals) buildApp(cfg *config.Config, m *metrics.Metrics) (*app.App, func(), error) {
	state, err := g.stateFile(cfg)
	if err != nil {
		return nil, nil, err
	}

	deps := app.Deps{
		Feed:    feed.NewBird(cfg.Feed.Command, cfg.Handle, nil, g.logger),
		State:   state,
		Metrics: m,
		Logger:  g.logger,
	}
	cleanup := func() {}

	if cfg.Archive.Path != "" {
		archive, err := store.OpenArchive(cfg.Archive.Path)
		if err != nil {
			return nil, nil, err
		}
		deps.Archive = archive
		cleanup = func() { _ = archive.Close() }
	}

	if cfg.Cache.Steps {
		steps, err := stepCache()
		if err != nil {
			g.logger.Warn("step cache disabled", zap.Error(err))
		} else {
			deps.Steps = steps
		}
	}

	return app.New(cfg, deps), cleanup, nil
}

// stepCache opens the debug snapshot cache under the user cache directory.
func stepCache() (*store.StepCache, error) {
	dir, err := config.CacheDir()
	if err != nil {
		return nil, err
	}
	return store.NewStepCache(filepath.Join(dir, "steps")), nil
}

// newMetrics registers collectors on a fresh registry so they can be served
// without the Go runtime collectors the default registry carries.
func newMetrics() (*metrics.Metrics, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return metrics.New(reg), reg
}
