// Package monitor reports the state of the cron job: once as the report,
// or continuously by watching the wallet balance and the block height.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/CyberFFarm/Helios-Cron/blockchain/evm/client"
	"github.com/CyberFFarm/Helios-Cron/blockchain/evm/event"
	"github.com/CyberFFarm/Helios-Cron/blockchain/evm/util"
	"github.com/CyberFFarm/Helios-Cron/configuration"
	"github.com/CyberFFarm/Helios-Cron/cron"
	"github.com/CyberFFarm/Helios-Cron/log"
	"github.com/charmbracelet/lipgloss"
	eth_common "github.com/ethereum/go-ethereum/common"
)

// The block windows of the reports
const (
	ActivityLookback uint64 = 1000
	ActivityKeep            = 5
	CronLookback     uint64 = 500
	RecentLookback   uint64 = 100
	RecentKeep              = 3

	// ImminentBlocks before the execution the watcher warns about it.
	ImminentBlocks uint64 = 10
)

const timeLayout = "2006-01-02 15:04:05"

// Report is the one time state of the cron job.
// The failed section keeps its error, the other sections are still filled.
type Report struct {
	GeneratedAt time.Time
	Wallet      eth_common.Address
	Frequency   uint64
	BlockTime   float64

	Balance    *big.Int
	BalanceErr error

	Target    event.Activity
	TargetErr error

	Cron    event.Activity
	CronErr error

	Schedule    cron.Schedule
	ScheduleErr error
}

// Err joins the errors of the sections
func (report *Report) Err() error {
	return errors.Join(report.BalanceErr, report.TargetErr, report.CronErr, report.ScheduleErr)
}

// Reporter generates the reports of one wallet and its target contract.
type Reporter struct {
	settings configuration.Settings
	client   *client.Client
	wallet   eth_common.Address
	logger   *log.Logger
}

// NewReporter returns the reporter
func NewReporter(settings configuration.Settings, c *client.Client, wallet eth_common.Address, parent *log.Logger) *Reporter {
	return &Reporter{
		settings: settings,
		client:   c,
		wallet:   wallet,
		logger:   parent.Child("monitor"),
	}
}

// Generate queries every section of the report.
func (r *Reporter) Generate(ctx context.Context) *Report {
	report := &Report{
		GeneratedAt: time.Now(),
		Wallet:      r.wallet,
		Frequency:   r.settings.Frequency,
		BlockTime:   r.settings.BlockTime,
	}

	r.logger.Debug("checking the wallet balance", "wallet", r.wallet.Hex())
	report.Balance, report.BalanceErr = r.client.Balance(ctx, r.wallet)

	r.logger.Debug("checking the target contract activity", "target", r.settings.TargetContract.Hex())
	report.Target, report.TargetErr = event.Recent(ctx, r.client, r.settings.TargetContract, ActivityLookback, ActivityKeep)

	r.logger.Debug("checking the cron system", "precompile", r.settings.CronAddress.Hex())
	report.Cron, report.CronErr = event.Recent(ctx, r.client, r.settings.CronAddress, CronLookback, 0)

	r.logger.Debug("estimating the next execution")
	current, err := r.client.RecentBlockNumber(ctx)
	if err != nil {
		report.ScheduleErr = err
	} else {
		report.Schedule = cron.NextExecution(current, r.settings.Frequency, r.settings.BlockTime)
	}

	for _, sectionErr := range []error{report.BalanceErr, report.TargetErr, report.CronErr, report.ScheduleErr} {
		if sectionErr != nil {
			r.logger.Warn("report section failed", "error", sectionErr)
		}
	}

	return report
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	keyStyle     = lipgloss.NewStyle().Faint(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	boxStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
)

func line(key string, value interface{}) string {
	return fmt.Sprintf("  %s %v", keyStyle.Render(key+":"), value)
}

// Render draws the report for the terminal.
func (report *Report) Render() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Cron job report"))
	b.WriteString("\n\n")

	b.WriteString(sectionStyle.Render("Wallet"))
	b.WriteString("\n")
	b.WriteString(line("address", report.Wallet.Hex()) + "\n")
	if report.BalanceErr != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("  balance check failed: %v", report.BalanceErr)) + "\n")
	} else {
		b.WriteString(line("balance", util.FormatEther(report.Balance)+" HLS") + "\n")
	}
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("Target contract"))
	b.WriteString("\n")
	if report.TargetErr != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("  activity check failed: %v", report.TargetErr)) + "\n")
	} else {
		target := report.Target
		b.WriteString(line("address", target.Address.Hex()) + "\n")
		b.WriteString(line("blocks", fmt.Sprintf("%d - %d", target.FromBlock, target.ToBlock)) + "\n")
		if target.Empty() {
			b.WriteString(warnStyle.Render(fmt.Sprintf("  no activity in the last %d blocks", ActivityLookback)) + "\n")
		} else {
			b.WriteString(line("events", target.Count) + "\n")
			for _, summary := range target.Latest {
				b.WriteString(fmt.Sprintf("    block %d: %s\n", summary.BlockNumber, summary.Timestamp.Local().Format(timeLayout)))
			}
		}
	}
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("Cron system"))
	b.WriteString("\n")
	if report.CronErr != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("  cron system check failed: %v", report.CronErr)) + "\n")
	} else {
		b.WriteString(line(fmt.Sprintf("events in the last %d blocks", CronLookback), report.Cron.Count) + "\n")
	}
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("Next execution"))
	b.WriteString("\n")
	if report.ScheduleErr != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("  estimation failed: %v", report.ScheduleErr)) + "\n")
	} else {
		schedule := report.Schedule
		b.WriteString(line("current block", schedule.Current) + "\n")
		b.WriteString(line("frequency", fmt.Sprintf("every %d blocks", report.Frequency)) + "\n")
		b.WriteString(line("blocks left", schedule.BlocksLeft) + "\n")
		b.WriteString(line("estimate", fmt.Sprintf("in about %d minutes", schedule.Minutes)) + "\n")
	}
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("Tips"))
	b.WriteString("\n")
	b.WriteString("  - run the report regularly to follow the job\n")
	b.WriteString("  - the decreasing wallet balance means the job is executed\n")
	b.WriteString("  - search the target contract in the block explorer for its transactions")

	return boxStyle.Render(b.String())
}
