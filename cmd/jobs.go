package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/CyberFFarm/Helios-Cron/configuration"
	"github.com/CyberFFarm/Helios-Cron/db"
	"github.com/spf13/cobra"
)

func newJobsCmd(opts *options) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List the registered cron jobs and the deployments from the ledger",
		Long:  `Requires DATABASE_DSN, the ledger is filled by the deploy and create commands.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if limit < 1 {
				return fmt.Errorf("%w: --limit must be positive", configuration.ErrInvalid)
			}

			config, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if !db.Enabled(config) {
				return fmt.Errorf("%w: %s", configuration.ErrMissing, db.DSN)
			}

			database, err := db.OpenFromConfig(ctx, config, opts.logger)
			if err != nil {
				return fmt.Errorf("db.OpenFromConfig: %w", err)
			}
			defer database.Close()

			jobs, err := database.CronJobs(ctx, limit)
			if err != nil {
				return err
			}
			deployments, err := database.Deployments(ctx, limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CRON JOBS")
			fmt.Fprintln(w, "CREATED\tTARGET\tMETHOD\tFREQUENCY\tEXPIRATION\tTX")
			for _, job := range jobs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
					job.CreatedAt.Format("2006-01-02 15:04"), job.Target, job.Method, job.Frequency, job.ExpirationBlock, job.TxHash)
			}
			fmt.Fprintln(w)
			fmt.Fprintln(w, "DEPLOYMENTS")
			fmt.Fprintln(w, "DEPLOYED\tADDRESS\tCHAIN\tBLOCK\tTX")
			for _, deployment := range deployments {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
					deployment.DeployedAt.Format("2006-01-02 15:04"), deployment.Address, deployment.ChainID, deployment.BlockNumber, deployment.TxHash)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "the amount of rows")

	return cmd
}
