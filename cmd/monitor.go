package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/CyberFFarm/Helios-Cron/configuration"
	"github.com/CyberFFarm/Helios-Cron/monitor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func newMonitorCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "monitor",
		Short: "Print the report of the cron job",
		Long: `Prints the wallet balance, the recent events of the target contract and
the cron precompile, and the estimate of the next execution.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			s, err := opts.open(ctx, false, configuration.MonitorRequires...)
			if err != nil {
				return err
			}
			defer s.close()

			reporter := monitor.NewReporter(s.settings, s.client, s.sender.From(), s.logger)
			report := reporter.Generate(ctx)

			fmt.Fprintln(cmd.OutOrStdout(), report.Render())

			// the partial report is still the result
			if err := report.Err(); err != nil {
				s.logger.Warn("some sections of the report failed", "error", err)
			}
			return nil
		},
	}
}

type watchFlags struct {
	interval    time.Duration
	metricsAddr string
}

func newWatchCmd(opts *options) *cobra.Command {
	flags := &watchFlags{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the wallet balance and the blocks until interrupted",
		Long: `Polls the wallet balance and the block height every POLL_INTERVAL seconds.
The decreasing balance is reported as the possible cron execution.

With --metrics-addr the prometheus metrics are served on /metrics
and the state of the last poll on /healthz.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd, opts, flags)
		},
	}

	cmd.Flags().DurationVar(&flags.interval, "interval", 0, "poll interval (default POLL_INTERVAL)")
	cmd.Flags().StringVar(&flags.metricsAddr, "metrics-addr", "", "address of the metrics server, for example :9102")

	return cmd
}

// runWatch polls until the command is interrupted. The interruption is the
// normal way to stop, so it is not an error, even during the start.
func runWatch(cmd *cobra.Command, opts *options, flags *watchFlags) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	s, err := opts.open(ctx, false, configuration.MonitorRequires...)
	if err != nil {
		return err
	}
	defer s.close()

	watcher := monitor.NewWatcher(s.settings, s.client, s.sender.From(), s.logger)
	if flags.interval > 0 {
		watcher.Interval = flags.interval
	}

	var serverErr chan error
	if flags.metricsAddr != "" {
		// bind before watching, so the busy address fails the command
		listener, err := monitor.Listen(flags.metricsAddr)
		if err != nil {
			return err
		}

		registry := prometheus.NewRegistry()
		watcher.SetMetrics(monitor.NewMetrics(registry))
		router := monitor.NewRouter(registry, watcher.Health)

		serverErr = make(chan error, 1)
		go func() {
			err := monitor.ServeListener(ctx, listener, router, s.logger)
			if err != nil {
				// the watcher stops with the server
				cancel()
			}
			serverErr <- err
		}()
	}

	runErr := watcher.Run(ctx)
	cancel()

	if serverErr != nil {
		if err := <-serverErr; err != nil {
			return err
		}
	}
	if cmd.Context().Err() != nil {
		return nil
	}
	return runErr
}
