package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/tenantq/pkg/config"
	"github.com/dmitrymomot/tenantq/pkg/environment"
	"github.com/dmitrymomot/tenantq/pkg/monitor"
	"github.com/dmitrymomot/tenantq/pkg/queue"
)

// newRootCommand builds the mscluster command. Applications embedding the
// cluster pass their task handlers; the bare binary registers none.
func newRootCommand(handlers ...queue.Handler) *cobra.Command {
	var (
		envFiles    []string
		runOnce     bool
		monitorAddr string
	)

	rootCmd := &cobra.Command{
		Use:           "mscluster",
		Short:         "Run the tenant aware task cluster",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if len(envFiles) == 0 {
				return nil
			}
			return config.LoadEnv(envFiles...)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cmd.ErrOrStderr(), handlers...)
			if err != nil {
				return err
			}
			defer a.close()

			ctx = environment.WithContext(ctx, a.env)
			if monitorAddr != "" {
				a.monitor.Addr = monitorAddr
			}

			if runOnce {
				return drainOnce(ctx, a.cluster)
			}
			return serve(ctx, a)
		},
	}

	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "Environment files to load before reading configuration")
	rootCmd.Flags().BoolVar(&runOnce, "run-once", false, "Process the queued tasks, then exit")
	rootCmd.Flags().StringVar(&monitorAddr, "monitor-addr", "", "Serve health and stats on this address (overrides MONITOR_ADDR)")

	rootCmd.AddCommand(newInfoCommand(handlers...))

	return rootCmd
}

// drainOnce starts the cluster, waits until the queue is empty and nothing is
// running, then stops it.
func drainOnce(ctx context.Context, c *queue.Cluster) error {
	if err := c.Start(ctx); err != nil {
		return err
	}
	drainErr := c.Drain(ctx)
	if errors.Is(drainErr, context.Canceled) {
		drainErr = nil
	}
	return errors.Join(drainErr, c.Stop())
}

func serve(ctx context.Context, a *app) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(a.cluster.Run(ctx))

	if a.monitor.Addr != "" {
		srv := monitor.NewServer(a.monitor, a.logger)
		handler := a.monitorHandler()
		g.Go(func() error {
			return srv.Run(ctx, handler)
		})
	}

	return g.Wait()
}
