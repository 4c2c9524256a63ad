package monitor

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/CyberFFarm/Helios-Cron/blockchain/evm/client"
	"github.com/CyberFFarm/Helios-Cron/blockchain/evm/evmtest"
	"github.com/CyberFFarm/Helios-Cron/blockchain/evm/transaction"
	"github.com/CyberFFarm/Helios-Cron/configuration"
	"github.com/CyberFFarm/Helios-Cron/log"
	eth_common "github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
)

// failingBackend fails the calls made first by every section
type failingBackend struct {
	client.Backend
}

func (failingBackend) BalanceAt(context.Context, eth_common.Address, *big.Int) (*big.Int, error) {
	return nil, errors.New("node unavailable")
}

func (failingBackend) BlockNumber(context.Context) (uint64, error) {
	return 0, errors.New("node unavailable")
}

type TestMonitorSuite struct {
	suite.Suite
	ctx      context.Context
	chain    *evmtest.Chain
	client   *client.Client
	sender   *transaction.Sender
	settings configuration.Settings
	ticker   eth_common.Address
}

func (suite *TestMonitorSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.chain = evmtest.New(suite.T(), evmtest.Ether(10))
	suite.client = client.NewWithBackend(suite.chain.Client)

	signer, err := transaction.NewSigner(suite.chain.KeyHex)
	suite.Require().NoError(err)
	suite.sender = transaction.NewSender(suite.chain.Client, signer, log.Discard())

	tx, err := suite.sender.Send(suite.ctx, transaction.Request{Data: eth_common.FromHex(evmtest.TickerBytecode)})
	suite.Require().NoError(err)
	suite.chain.Commit()
	receipt, err := suite.chain.Client.TransactionReceipt(suite.ctx, tx.Hash())
	suite.Require().NoError(err)
	suite.ticker = receipt.ContractAddress

	suite.settings = configuration.Settings{
		CronAddress:    eth_common.HexToAddress("0x0000000000000000000000000000000000000830"),
		TargetContract: suite.ticker,
		Frequency:      300,
		BlockTime:      1.2,
		PollInterval:   10 * time.Millisecond,
	}
}

// tick sends the call to the ticker and seals the block
func (suite *TestMonitorSuite) tick() {
	_, err := suite.sender.Send(suite.ctx, transaction.Request{To: &suite.ticker, GasLimit: 100_000})
	suite.Require().NoError(err)
	suite.chain.Commit()
}

func (suite *TestMonitorSuite) TestReport() {
	for i := 0; i < 7; i++ {
		suite.tick()
	}

	reporter := NewReporter(suite.settings, suite.client, suite.chain.Address, log.Discard())
	report := reporter.Generate(suite.ctx)
	suite.Require().NoError(report.Err())

	suite.Equal(-1, report.Balance.Cmp(evmtest.Ether(10)))
	suite.Equal(7, report.Target.Count)
	suite.Len(report.Target.Latest, ActivityKeep)
	suite.Zero(report.Cron.Count)
	suite.Empty(report.Cron.Latest)

	head, err := suite.client.RecentBlockNumber(suite.ctx)
	suite.Require().NoError(err)
	suite.Equal(head, report.Schedule.Current)
	suite.Equal(300-head%300, report.Schedule.BlocksLeft)

	rendered := report.Render()
	suite.Contains(rendered, "Cron job report")
	suite.Contains(rendered, suite.chain.Address.Hex())
	suite.Contains(rendered, suite.ticker.Hex())
	suite.Contains(rendered, "every 300 blocks")
}

func (suite *TestMonitorSuite) TestReportWithoutActivity() {
	suite.settings.TargetContract = eth_common.HexToAddress("0x1111111111111111111111111111111111111111")

	report := NewReporter(suite.settings, suite.client, suite.chain.Address, log.Discard()).Generate(suite.ctx)
	suite.Require().NoError(report.Err())
	suite.True(report.Target.Empty())
	suite.Contains(report.Render(), "no activity in the last 1000 blocks")
}

func (suite *TestMonitorSuite) TestReportSectionsFail() {
	broken := client.NewWithBackend(failingBackend{})

	report := NewReporter(suite.settings, broken, suite.chain.Address, log.Discard()).Generate(suite.ctx)
	suite.Require().Error(report.Err())
	suite.Error(report.BalanceErr)
	suite.Error(report.TargetErr)
	suite.Error(report.CronErr)
	suite.Error(report.ScheduleErr)

	rendered := report.Render()
	suite.Contains(rendered, "balance check failed")
	suite.Contains(rendered, "estimation failed")
}

func (suite *TestMonitorSuite) TestPoll() {
	watcher := NewWatcher(suite.settings, suite.client, suite.chain.Address, log.Discard())
	suite.Require().NoError(watcher.Start(suite.ctx))

	// nothing changed
	observation, err := watcher.Poll(suite.ctx)
	suite.Require().NoError(err)
	suite.False(observation.BalanceDecreased())
	suite.Zero(observation.BlocksAdvanced)

	// the wallet pays for the gas
	suite.tick()
	suite.chain.Commit()

	observation, err = watcher.Poll(suite.ctx)
	suite.Require().NoError(err)
	suite.True(observation.BalanceDecreased())
	suite.Equal(1, observation.Spent.Sign())
	suite.Equal(uint64(2), observation.BlocksAdvanced)
	suite.Equal(observation.Block-2, observation.PreviousBlock)
	suite.False(observation.Imminent)

	// unchanged since the last poll
	observation, err = watcher.Poll(suite.ctx)
	suite.Require().NoError(err)
	suite.False(observation.BalanceDecreased())
}

func (suite *TestMonitorSuite) TestPollWithoutStart() {
	watcher := NewWatcher(suite.settings, suite.client, suite.chain.Address, log.Discard())

	suite.tick()
	observation, err := watcher.Poll(suite.ctx)
	suite.Require().NoError(err)
	// the first poll only records the state
	suite.False(observation.BalanceDecreased())
	suite.Zero(observation.BlocksAdvanced)
}

func (suite *TestMonitorSuite) TestImminent() {
	suite.settings.Frequency = 5
	watcher := NewWatcher(suite.settings, suite.client, suite.chain.Address, log.Discard())

	observation, err := watcher.Poll(suite.ctx)
	suite.Require().NoError(err)
	suite.LessOrEqual(observation.Schedule.BlocksLeft, uint64(5))
	suite.True(observation.Imminent)
}

func (suite *TestMonitorSuite) TestPollMetrics() {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	watcher := NewWatcher(suite.settings, suite.client, suite.chain.Address, log.Discard())
	watcher.SetMetrics(metrics)
	suite.Require().NoError(watcher.Start(suite.ctx))

	suite.tick()
	observation, err := watcher.Poll(suite.ctx)
	suite.Require().NoError(err)

	suite.Equal(float64(observation.Block), testutil.ToFloat64(metrics.BlockHeight))
	suite.Equal(float64(observation.Schedule.BlocksLeft), testutil.ToFloat64(metrics.BlocksUntilExecution))
	suite.Equal(float64(1), testutil.ToFloat64(metrics.BalanceDecreases))
	suite.Greater(testutil.ToFloat64(metrics.WalletBalance), float64(0))

	broken := NewWatcher(suite.settings, client.NewWithBackend(failingBackend{}), suite.chain.Address, log.Discard())
	broken.SetMetrics(metrics)
	_, err = broken.Poll(suite.ctx)
	suite.Require().Error(err)
	suite.Require().Error(broken.Health())
	suite.Equal(float64(1), testutil.ToFloat64(metrics.PollErrors))

	count, err := testutil.GatherAndCount(registry)
	suite.Require().NoError(err)
	suite.Equal(5, count)
}

func (suite *TestMonitorSuite) TestRun() {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	watcher := NewWatcher(suite.settings, suite.client, suite.chain.Address, log.Discard())
	watcher.SetMetrics(metrics)

	ctx, cancel := context.WithCancel(suite.ctx)
	done := make(chan error, 1)
	go func() {
		done <- watcher.Run(ctx)
	}()

	suite.chain.AutoCommit(suite.T(), 10*time.Millisecond)
	suite.Eventually(func() bool {
		return testutil.ToFloat64(metrics.BlockHeight) > 3
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		suite.Require().NoError(err)
	case <-time.After(5 * time.Second):
		suite.Fail("the watcher didn't stop")
	}
	suite.NoError(watcher.Health())
}

func (suite *TestMonitorSuite) TestRunStartFails() {
	watcher := NewWatcher(suite.settings, client.NewWithBackend(failingBackend{}), suite.chain.Address, log.Discard())
	suite.Require().Error(watcher.Run(suite.ctx))
}

func TestMonitor(t *testing.T) {
	suite.Run(t, new(TestMonitorSuite))
}
