package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"

	"github.com/CyberFFarm/Helios-Cron/blockchain/evm/transaction"
	"github.com/CyberFFarm/Helios-Cron/configuration"
	"github.com/CyberFFarm/Helios-Cron/cron"
	"github.com/CyberFFarm/Helios-Cron/deploy"
	"github.com/CyberFFarm/Helios-Cron/security/vault"
	"github.com/charmbracelet/lipgloss"
)

// Exit codes of the process
const (
	ExitOK     = 0
	ExitFailed = 1
	ExitConfig = 2
)

var hintStyle = lipgloss.NewStyle().
	Border(lipgloss.NormalBorder(), false, false, false, true).
	BorderForeground(lipgloss.Color("214")).
	PaddingLeft(1)

// exitCode of the failed workflow. The configuration errors are fatal.
func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, configuration.ErrMissing),
		errors.Is(err, configuration.ErrInvalid),
		errors.Is(err, vault.ErrNoCredentials):
		return ExitConfig
	default:
		return ExitFailed
	}
}

// hint returns the advice for the known failures, or an empty string.
func hint(err error) string {
	switch {
	case errors.Is(err, cron.ErrInsufficientBalance), errors.Is(err, deploy.ErrInsufficientBalance):
		return "Insufficient balance. Get the test tokens from the Helios faucet, or lower DEPOSIT."
	case errors.Is(err, configuration.ErrMissing):
		return "Missing configuration. Set the variables in .env, or pass the file with --env."
	case errors.Is(err, configuration.ErrInvalid):
		return "Invalid configuration. PRIVATE_KEY must be 0x followed by 64 hex characters,\nthe addresses 0x followed by 40 hex characters."
	case errors.Is(err, vault.ErrNoCredentials):
		return "Set VAULT_TOKEN, or VAULT_APPROLE_ROLE_ID and VAULT_APPROLE_SECRET_ID, or PRIVATE_KEY."
	case errors.Is(err, deploy.ErrCompilerMissing):
		return "The solc compiler is not installed. Install it, pass its path with --solc,\nor pass the compiled contract with --artifact."
	case errors.Is(err, deploy.ErrNoCode):
		return "The deployment has no code. Check the bytecode of the artifact."
	case errors.Is(err, transaction.ErrReverted):
		return "The transaction reverted. Check the job parameters, the target contract and the gas limit."
	case isListen(err):
		return "Can not serve the metrics. Pass the free address with --metrics-addr."
	case isConnectivity(err):
		return "Can not reach the node. Check RPC_URL and the network connection."
	default:
		return ""
	}
}

// isListen is true for the failure to bind the local address.
func isListen(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "listen"
}

func isConnectivity(err error) bool {
	var opErr *net.OpError
	var urlErr *url.Error
	var dnsErr *net.DNSError
	return errors.As(err, &opErr) ||
		errors.As(err, &urlErr) ||
		errors.As(err, &dnsErr) ||
		errors.Is(err, context.DeadlineExceeded)
}

func printHint(w io.Writer, err error) {
	advice := hint(err)
	if advice == "" {
		return
	}
	fmt.Fprintln(w, hintStyle.Render(advice))
}
