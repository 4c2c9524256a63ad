package cmd

import (
	"fmt"

	"github.com/CyberFFarm/Helios-Cron/blockchain/evm/util"
	"github.com/CyberFFarm/Helios-Cron/configuration"
	"github.com/CyberFFarm/Helios-Cron/cron"
	"github.com/CyberFFarm/Helios-Cron/db"
	"github.com/spf13/cobra"
)

func newCreateCmd(opts *options) *cobra.Command {
	var jobFile string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register the cron job of TARGET_CONTRACT",
		Long: `Checks that the wallet can pay the deposit, then registers the cron job
in the cron precompile. The registration is retried MAX_RETRIES times.

The job file overrides the scheduled method, its parameters, its abi and the frequency.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			s, err := opts.open(ctx, true, configuration.CreateRequires...)
			if err != nil {
				return err
			}
			defer s.close()

			manager, err := cron.NewManager(s.settings, s.client, s.sender, s.logger)
			if err != nil {
				return err
			}

			if jobFile != "" {
				manifest, err := cron.LoadManifest(jobFile)
				if err != nil {
					return fmt.Errorf("%w: %v", configuration.ErrInvalid, err)
				}
				manager.SetManifest(manifest)
			}

			result, err := manager.CreateWithRetry(ctx)
			if err != nil {
				return err
			}

			if s.database != nil {
				row := db.NewCronJob(s.sender.From(), result)
				if err := s.database.InsertCronJob(ctx, row); err != nil {
					s.logger.Warn("failed to store the cron job in the ledger", "error", err)
				}
			}

			schedule := cron.NextExecution(result.Block.Current, result.Job.Frequency, s.settings.BlockTime)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "cron job registered\n")
			fmt.Fprintf(out, "tx:         %s\n", result.TxHash.Hex())
			fmt.Fprintf(out, "target:     %s.%s\n", result.Job.Target.Hex(), result.Job.Method)
			fmt.Fprintf(out, "frequency:  every %d blocks (%s)\n", result.Job.Frequency, util.FormatBlocks(result.Job.Frequency, s.settings.BlockTime))
			fmt.Fprintf(out, "expiration: block %d\n", result.Job.ExpirationBlock)
			fmt.Fprintf(out, "next run:   in %d blocks, about %d minutes\n", schedule.BlocksLeft, schedule.Minutes)
			fmt.Fprintf(out, "\nnext: run `helios-cron monitor` or `helios-cron watch`\n")

			return nil
		},
	}

	cmd.Flags().StringVar(&jobFile, "job-file", "", "yaml file overriding the scheduled call")

	return cmd
}
