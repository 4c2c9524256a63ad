package monitor

import (
	"math/big"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics of the watcher
type Metrics struct {
	WalletBalance        prometheus.Gauge
	BlockHeight          prometheus.Gauge
	BlocksUntilExecution prometheus.Gauge
	BalanceDecreases     prometheus.Counter
	PollErrors           prometheus.Counter
}

// NewMetrics registers the collectors. Panics if they are already registered.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)

	return &Metrics{
		WalletBalance: factory.NewGauge(prometheus.GaugeOpts{
			Name: "helios_cron_wallet_balance_wei",
			Help: "Balance of the wallet paying for the cron job.",
		}),
		BlockHeight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "helios_cron_block_height",
			Help: "Most recent block number seen by the watcher.",
		}),
		BlocksUntilExecution: factory.NewGauge(prometheus.GaugeOpts{
			Name: "helios_cron_blocks_until_execution",
			Help: "Estimated blocks left until the next cron execution.",
		}),
		BalanceDecreases: factory.NewCounter(prometheus.CounterOpts{
			Name: "helios_cron_balance_decreases_total",
			Help: "Number of polls that saw the wallet balance decrease.",
		}),
		PollErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "helios_cron_poll_errors_total",
			Help: "Number of failed polls.",
		}),
	}
}

func (m *Metrics) observe(observation Observation) {
	if m == nil {
		return
	}
	balance, _ := new(big.Float).SetInt(observation.Balance).Float64()
	m.WalletBalance.Set(balance)
	m.BlockHeight.Set(float64(observation.Block))
	m.BlocksUntilExecution.Set(float64(observation.Schedule.BlocksLeft))
	if observation.BalanceDecreased() {
		m.BalanceDecreases.Inc()
	}
}

func (m *Metrics) pollFailed() {
	if m == nil {
		return
	}
	m.PollErrors.Inc()
}
