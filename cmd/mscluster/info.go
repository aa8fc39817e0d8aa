package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/tenantq/pkg/queue"
)

func newInfoCommand(handlers ...queue.Handler) *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show queue size and cluster configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, cmd.ErrOrStderr(), handlers...)
			if err != nil {
				return err
			}
			defer a.close()

			stat, err := a.cluster.Stat(ctx)
			if err != nil {
				return err
			}

			rows := infoRows(a, stat)
			if !plain {
				plain = !isTerminal(os.Stdout)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Setting", "Value"},
				rows,
				[]columnAlignment{alignLeft, alignRight},
				plain,
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "Render without borders")
	return cmd
}

func infoRows(a *app, stat queue.Stat) [][]string {
	database := "disabled"
	if a.cfg.Database != "" {
		database = "postgres"
	}
	return [][]string{
		{"Cluster", stat.Name},
		{"Host", stat.Host},
		{"Environment", string(a.env)},
		{"Broker", a.cfg.Broker},
		{"Database", database},
		{"Queue size", strconv.Itoa(stat.QueueSize)},
		{"Workers", strconv.Itoa(stat.Workers)},
		{"Poll interval", a.queue.PollInterval.String()},
		{"Timeout", a.queue.Timeout.String()},
		{"Cache TTL", a.queue.CacheTTL.String()},
		{"Scheduler interval", a.queue.SchedulerInterval.String()},
		{"Save results", strconv.FormatBool(a.queue.SaveResults)},
	}
}
