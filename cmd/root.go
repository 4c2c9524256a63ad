// Package cmd defines the commands of the helios-cron executable.
//
// Every command loads the configuration, connects to the node with the
// wallet of PRIVATE_KEY, runs one workflow and exits.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/CyberFFarm/Helios-Cron/blockchain/evm/client"
	"github.com/CyberFFarm/Helios-Cron/blockchain/evm/transaction"
	"github.com/CyberFFarm/Helios-Cron/configuration"
	"github.com/CyberFFarm/Helios-Cron/db"
	"github.com/CyberFFarm/Helios-Cron/log"
	"github.com/CyberFFarm/Helios-Cron/security/vault"
	"github.com/spf13/cobra"
)

// Version is set by the linker
var Version = "dev"

// options shared by all commands
type options struct {
	envPaths []string
	logLevel string
	logger   *log.Logger
	dial     func(ctx context.Context, url string) (*client.Client, error)
}

func newOptions(logger *log.Logger) *options {
	return &options{
		logger: logger,
		dial:   client.Dial,
	}
}

// session is the environment of one workflow
type session struct {
	logger   *log.Logger
	config   *configuration.Config
	settings configuration.Settings
	client   *client.Client
	sender   *transaction.Sender
	database *db.Database
}

// loadConfig reads the environment files.
// The --log-level flag applies from the start, LOG_LEVEL once the files are read.
func (o *options) loadConfig() (*configuration.Config, error) {
	if o.logLevel != "" {
		if err := o.setLevel(o.logLevel); err != nil {
			return nil, err
		}
	}

	config, err := configuration.New(o.logger, o.envPaths...)
	if err != nil {
		return nil, fmt.Errorf("configuration.New: %w", err)
	}

	if o.logLevel != "" {
		config.Set(configuration.LogLevel, o.logLevel)
	} else if err := o.setLevel(config.GetString(configuration.LogLevel)); err != nil {
		return nil, err
	}
	// the children copy the level when they are created
	config.SetLogger(o.logger)

	return config, nil
}

func (o *options) setLevel(level string) error {
	if err := o.logger.SetLevel(level); err != nil {
		return fmt.Errorf("%w: %s: %v", configuration.ErrInvalid, configuration.LogLevel, err)
	}
	return nil
}

// open validates the configuration and connects to the node.
// The private key is read from the vault if it's not set.
// The ledger is opened only if the workflow writes to it.
func (o *options) open(ctx context.Context, withLedger bool, required ...string) (*session, error) {
	config, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	if _, err := vault.LoadPrivateKey(ctx, config, o.logger); err != nil {
		return nil, fmt.Errorf("vault.LoadPrivateKey: %w", err)
	}

	settings, err := config.Settings(required...)
	if err != nil {
		return nil, err
	}

	signer, err := transaction.NewSigner(settings.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", configuration.ErrInvalid, configuration.PrivateKey, err)
	}

	o.logger.Debug("connecting to the node", "rpc", settings.RPCURL)
	c, err := o.dial(ctx, settings.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("client.Dial: %w", err)
	}

	s := &session{
		logger:   o.logger,
		config:   config,
		settings: settings,
		client:   c,
		sender:   transaction.NewSender(c.Backend(), signer, o.logger),
	}

	if withLedger {
		database, err := db.OpenFromConfig(ctx, config, o.logger)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("db.OpenFromConfig: %w", err)
		}
		s.database = database
	}

	return s, nil
}

func (s *session) close() {
	s.client.Close()
	if s.database != nil {
		if err := s.database.Close(); err != nil {
			s.logger.Warn("failed to close the database", "error", err)
		}
	}
}

// newRootCmd creates the command tree. The options are shared by all commands.
func newRootCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "helios-cron",
		Short: "Operator toolkit of the Helios cron jobs",
		Long: `helios-cron deploys the scheduled contract, registers the cron job
in the cron precompile and monitors the wallet paying for its executions.

The configuration is read from the environment and the .env file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringArrayVar(&opts.envPaths, "env", nil, "additional .env file, can be repeated")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error (default LOG_LEVEL)")

	cmd.AddCommand(
		newDeployCmd(opts),
		newCreateCmd(opts),
		newMonitorCmd(opts),
		newWatchCmd(opts),
		newJobsCmd(opts),
		newVersionCmd(),
	)

	return cmd
}

// Execute runs the command of the arguments and returns the exit code.
func Execute() int {
	logger, err := log.New("helios", log.WithTimestamp)
	if err != nil {
		fmt.Fprintf(os.Stderr, "log.New: %v\n", err)
		return ExitFailed
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(newOptions(logger))
	if err := root.ExecuteContext(ctx); err != nil {
		logger.Error("command failed", "error", err)
		printHint(root.ErrOrStderr(), err)
		return exitCode(err)
	}
	return ExitOK
}
