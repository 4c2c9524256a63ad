// helios-cron is the operator toolkit of the Helios cron jobs.
//
// The commands:
//   - deploy the scheduled contract
//   - create the cron job in the cron precompile
//   - monitor the job once
//   - watch the wallet continuously
//   - jobs lists the ledger of the registrations
//
// Run `helios-cron --help` for the flags.
package main

import (
	"os"

	"github.com/CyberFFarm/Helios-Cron/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
