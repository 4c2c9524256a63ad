package cmd

import (
	"fmt"

	"github.com/CyberFFarm/Helios-Cron/configuration"
	"github.com/CyberFFarm/Helios-Cron/contracts"
	"github.com/CyberFFarm/Helios-Cron/db"
	"github.com/CyberFFarm/Helios-Cron/deploy"
	"github.com/CyberFFarm/Helios-Cron/env"
	"github.com/spf13/cobra"
)

type deployFlags struct {
	artifact    string
	compiler    string
	noEnvUpdate bool
}

func newDeployCmd(opts *options) *cobra.Command {
	flags := &deployFlags{}

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy the scheduled contract",
		Long: `Compiles the embedded TickContract with solc, or loads the compiled
artifact, deploys it and writes the deployment record into DEPLOYMENT_FILE.
The address is written as TARGET_CONTRACT into the existing .env file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDeploy(cmd, opts, flags)
		},
	}

	cmd.Flags().StringVar(&flags.artifact, "artifact", "", "compiled contract json with abi and bytecode")
	cmd.Flags().StringVar(&flags.compiler, "solc", deploy.DefaultCompiler, "solc binary")
	cmd.Flags().BoolVar(&flags.noEnvUpdate, "no-env-update", false, "don't write TARGET_CONTRACT into .env")

	return cmd
}

func runDeploy(cmd *cobra.Command, opts *options, flags *deployFlags) error {
	ctx := cmd.Context()

	s, err := opts.open(ctx, true, configuration.DeployRequires...)
	if err != nil {
		return err
	}
	defer s.close()

	// the compilation is not worth it for the wallet that can't pay
	deployer := deploy.New(s.settings, s.client, s.sender, s.logger)
	if _, err := deployer.CheckBalance(ctx); err != nil {
		return err
	}

	var artifact *deploy.Artifact
	if flags.artifact != "" {
		s.logger.Info("loading the artifact", "path", flags.artifact)
		artifact, err = deploy.LoadArtifact(flags.artifact)
	} else {
		s.logger.Info("compiling the contract", "contract", contracts.Name, "compiler", flags.compiler)
		artifact, err = deploy.Compile(ctx, flags.compiler, contracts.FileName, contracts.Name, contracts.Source)
	}
	if err != nil {
		return err
	}

	record, info, err := deployer.Deploy(ctx, artifact)
	if err != nil {
		return err
	}

	if !flags.noEnvUpdate {
		updated, err := deploy.UpdateEnv(env.DefaultFile, record.Address)
		if err != nil {
			s.logger.Warn("failed to update the .env file", "error", err)
		} else if updated {
			s.logger.Info(".env updated", "key", configuration.TargetContract, "value", record.Address)
		}
	}

	if s.database != nil {
		if err := s.database.InsertDeployment(ctx, db.NewDeployment(record)); err != nil {
			s.logger.Warn("failed to store the deployment in the ledger", "error", err)
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "contract: %s\n", record.Address)
	fmt.Fprintf(out, "tx:       %s\n", record.TxHash)
	fmt.Fprintf(out, "block:    %d\n", record.BlockNumber)
	if info != nil {
		fmt.Fprintf(out, "ticks:    %s\n", info.TickCount)
		fmt.Fprintf(out, "owner:    %s\n", info.Owner.Hex())
	}
	fmt.Fprintf(out, "\nnext: set %s=%s and run `helios-cron create`\n", configuration.TargetContract, record.Address)

	return nil
}
