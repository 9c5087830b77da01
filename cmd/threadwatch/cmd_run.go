package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ibeckermayer/threadwatch/internal/config"
	"github.com/ibeckermayer/threadwatch/internal/metrics"
	"github.com/ibeckermayer/threadwatch/internal/notifier"
	"github.com/ibeckermayer/threadwatch/internal/scheduler"
)

func newRunCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Perform one run and print the reports",
		Long: `Performs one run: checks bird authentication, reads the timeline, selects
eligible posts and prints their reports to stdout, separated by a rule.

Nothing is printed when no post is eligible. A failure prints a short
diagnostic instead of reports and leaves the processed set untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, g)
		},
	}
}

func runOnce(cmd *cobra.Command, g *globals) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	m, _ := newMetrics()
	a, cleanup, err := g.buildApp(cfg, m)
	if err != nil {
		return err
	}
	defer cleanup()

	out, err := a.Execute(cmd.Context())
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), out)
}

func newSendCmd(g *globals) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Perform one run and deliver the output to chat",
		Long: `Performs one run and, when it produced output, splits it into chunks of at
most notify.max_chars characters and sends every chunk to every configured
target through the notify command, e.g.

  clawdbot message send --channel telegram --target <target> --message <chunk>

Diagnostics are delivered the same way as reports.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			m, _ := newMetrics()
			n, err := notifier.NewFromConfig(cfg.Notify, m, g.logger)
			if err != nil {
				return err
			}
			a, cleanup, err := g.buildApp(cfg, m)
			if err != nil {
				return err
			}
			defer cleanup()

			out, err := a.Execute(cmd.Context())
			if err != nil {
				return err
			}
			if dryRun {
				return n.Preview(cmd.OutOrStdout(), out)
			}
			_, err = n.Deliver(cmd.Context(), out)
			return err
		},
	}

	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "print the chunks instead of sending them")
	return cmd
}

func newWatchCmd(g *globals) *cobra.Command {
	var now bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run on the configured cron schedule until interrupted",
		Long: `Runs the pipeline on schedule.cron in schedule.timezone. A firing is skipped
while the previous run is still going. With schedule.deliver the output is
sent to the notify targets, otherwise it is printed to stdout.

When metrics.addr is set, Prometheus metrics are served on /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			return watch(cmd.Context(), cmd.OutOrStdout(), g, cfg, now)
		},
	}

	cmd.Flags().BoolVar(&now, "now", false, "also run once immediately")
	return cmd
}

func watch(ctx context.Context, stdout io.Writer, g *globals, cfg *config.Config, now bool) error {
	m, reg := newMetrics()
	a, cleanup, err := g.buildApp(cfg, m)
	if err != nil {
		return err
	}
	defer cleanup()

	var n *notifier.Notifier
	if cfg.Schedule.Deliver {
		if n, err = notifier.NewFromConfig(cfg.Notify, m, g.logger); err != nil {
			return err
		}
	}

	job := func(ctx context.Context) error {
		out, err := a.Execute(ctx)
		if err != nil {
			return err
		}
		if n != nil {
			_, err = n.Deliver(ctx, out)
			return err
		}
		return writeOutput(stdout, out)
	}

	sched, err := scheduler.New(cfg.Schedule.Timezone, g.logger)
	if err != nil {
		return err
	}
	if err := sched.AddJob("monitor", cfg.Schedule.Cron, job); err != nil {
		return err
	}

	var srv *http.Server
	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(reg))
		srv = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			g.logger.Info("serving metrics", zap.String("addr", cfg.Metrics.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				g.logger.Error("metrics server failed", zap.Error(err))
			}
		}()
	}

	if now {
		_ = sched.RunNow("monitor", job)
	}

	sched.Start()
	for _, j := range sched.ListJobs() {
		g.logger.Info("next run", zap.String("job", j.Name), zap.Time("at", j.NextRun))
	}

	<-ctx.Done()

	<-sched.Stop().Done()
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
	return nil
}

func writeOutput(w io.Writer, out string) error {
	if out == "" {
		return nil
	}
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	_, err := fmt.Fprint(w, out)
	return err
}
