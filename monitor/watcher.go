package monitor

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/CyberFFarm/Helios-Cron/blockchain/evm/client"
	"github.com/CyberFFarm/Helios-Cron/blockchain/evm/event"
	"github.com/CyberFFarm/Helios-Cron/blockchain/evm/util"
	"github.com/CyberFFarm/Helios-Cron/configuration"
	"github.com/CyberFFarm/Helios-Cron/cron"
	"github.com/CyberFFarm/Helios-Cron/log"
	eth_common "github.com/ethereum/go-ethereum/common"
)

// Observation is the outcome of one poll, compared to the previous poll.
type Observation struct {
	Time           time.Time
	Balance        *big.Int
	Block          uint64
	PreviousBlock  uint64
	Spent          *big.Int // set if the balance decreased
	BlocksAdvanced uint64
	Schedule       cron.Schedule
	Imminent       bool // the next execution is within ImminentBlocks
}

// BalanceDecreased is the hint that the cron job was executed.
func (o Observation) BalanceDecreased() bool {
	return o.Spent != nil
}

// Watcher polls the wallet balance and the block height with the fixed interval.
// The polls don't overlap, and the failed poll doesn't stop the watcher.
type Watcher struct {
	settings configuration.Settings
	client   *client.Client
	wallet   eth_common.Address
	logger   *log.Logger
	metrics  *Metrics

	// Interval between the polls, POLL_INTERVAL by default
	Interval time.Duration

	started     bool
	lastBalance *big.Int
	lastBlock   uint64

	mu      sync.RWMutex
	lastErr error
}

// NewWatcher returns the watcher of the wallet
func NewWatcher(settings configuration.Settings, c *client.Client, wallet eth_common.Address, parent *log.Logger) *Watcher {
	return &Watcher{
		settings: settings,
		client:   c,
		wallet:   wallet,
		logger:   parent.Child("watch"),
		Interval: settings.PollInterval,
	}
}

// SetMetrics enables the metrics
func (w *Watcher) SetMetrics(metrics *Metrics) {
	w.metrics = metrics
}

// Start prints the recent activity of the target contract, then records
// the initial balance and block.
func (w *Watcher) Start(ctx context.Context) error {
	w.RecentTransactions(ctx)

	w.logger.Info("starting the watcher",
		"wallet", w.wallet.Hex(),
		"target", w.settings.TargetContract.Hex(),
		"frequency", w.settings.Frequency,
		"interval", w.Interval,
	)

	balance, err := w.client.Balance(ctx, w.wallet)
	if err != nil {
		return err
	}
	block, err := w.client.RecentBlockNumber(ctx)
	if err != nil {
		return err
	}

	w.lastBalance = balance
	w.lastBlock = block
	w.started = true

	w.logger.Info("initial state",
		"balance", util.FormatEther(balance)+" HLS",
		"block", block,
	)
	return nil
}

// RecentTransactions logs the target contract events of the last RecentLookback blocks.
// The failure is logged only.
func (w *Watcher) RecentTransactions(ctx context.Context) {
	activity, err := event.Recent(ctx, w.client, w.settings.TargetContract, RecentLookback, RecentKeep)
	if err != nil {
		w.logger.Error("failed to check the recent transactions", "error", err)
		return
	}

	if activity.Empty() {
		w.logger.Warn("no contract transactions in the recent blocks", "blocks", RecentLookback)
		return
	}

	w.logger.Info("recent contract transactions", "count", activity.Count)
	for _, summary := range activity.Latest {
		w.logger.Info("transaction", "block", summary.BlockNumber, "time", summary.Timestamp.Local().Format(timeLayout))
	}
}

// Poll reads the balance and the block, and compares them with the last poll.
// The first poll of the watcher that wasn't started only records the state.
func (w *Watcher) Poll(ctx context.Context) (Observation, error) {
	observation, err := w.poll(ctx)

	w.mu.Lock()
	w.lastErr = err
	w.mu.Unlock()

	if err != nil {
		w.metrics.pollFailed()
		return Observation{}, err
	}
	w.metrics.observe(observation)
	return observation, nil
}

func (w *Watcher) poll(ctx context.Context) (Observation, error) {
	balance, err := w.client.Balance(ctx, w.wallet)
	if err != nil {
		return Observation{}, err
	}
	block, err := w.client.RecentBlockNumber(ctx)
	if err != nil {
		return Observation{}, err
	}

	observation := Observation{
		Time:          time.Now(),
		Balance:       balance,
		Block:         block,
		PreviousBlock: w.lastBlock,
		Schedule:      cron.NextExecution(block, w.settings.Frequency, w.settings.BlockTime),
	}
	observation.Imminent = observation.Schedule.BlocksLeft <= ImminentBlocks

	if w.started {
		if balance.Cmp(w.lastBalance) < 0 {
			observation.Spent = new(big.Int).Sub(w.lastBalance, balance)
		}
		if block > w.lastBlock {
			observation.BlocksAdvanced = block - w.lastBlock
		}
	}

	w.lastBalance = balance
	w.lastBlock = block
	w.started = true

	return observation, nil
}

func (w *Watcher) report(observation Observation) {
	at := observation.Time.Format("15:04:05")

	if observation.BalanceDecreased() {
		w.logger.Info("balance decreased",
			"at", at,
			"spent", util.FormatEther(observation.Spent)+" HLS",
			"balance", util.FormatEther(observation.Balance)+" HLS",
		)
		w.logger.Info("possible cron execution")
	}

	if observation.BlocksAdvanced > 0 {
		w.logger.Info("block update",
			"at", at,
			"from", observation.PreviousBlock,
			"to", observation.Block,
			"advanced", observation.BlocksAdvanced,
			"blocks_left", observation.Schedule.BlocksLeft,
			"minutes_left", observation.Schedule.Minutes,
		)
		if observation.Imminent {
			w.logger.Warn("the cron job executes soon", "blocks_left", observation.Schedule.BlocksLeft)
		}
	}
}

// Health returns the error of the last poll
func (w *Watcher) Health() error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastErr
}

// Run starts the watcher, then polls until the context is cancelled.
// The first poll happens immediately.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.Start(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		observation, err := w.Poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			w.logger.Error("poll failed", "error", err)
		} else {
			w.report(observation)
		}

		select {
		case <-ctx.Done():
			w.logger.Info("watcher stopped")
			return nil
		case <-ticker.C:
		}
	}

	w.logger.Info("watcher stopped")
	return nil
}
