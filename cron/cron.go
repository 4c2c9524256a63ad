// Package cron registers the recurring call of a smartcontract method
// in the cron precompile.
//
// Before the registration the wallet balance is checked against the deposit
// and the gas of the registration. The job expires after the configured
// amount of weeks.
package cron

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/CyberFFarm/Helios-Cron/blockchain/evm/abi"
	"github.com/CyberFFarm/Helios-Cron/blockchain/evm/client"
	"github.com/CyberFFarm/Helios-Cron/blockchain/evm/transaction"
	"github.com/CyberFFarm/Helios-Cron/blockchain/evm/util"
	"github.com/CyberFFarm/Helios-Cron/configuration"
	"github.com/CyberFFarm/Helios-Cron/log"
	"github.com/CyberFFarm/Helios-Cron/retry"
	eth_common "github.com/ethereum/go-ethereum/common"
	eth_types "github.com/ethereum/go-ethereum/core/types"
)

// GasBuffer is added to the job gas limit for the registration transaction.
const GasBuffer uint64 = 50_000

// ErrInsufficientBalance is returned when the wallet can't pay the deposit and the gas.
var ErrInsufficientBalance = errors.New("insufficient balance")

// InsufficientBalanceError keeps the amounts of the failed balance check.
type InsufficientBalanceError struct {
	Required *big.Int
	Balance  *big.Int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("%s: need at least %s HLS, the balance is %s HLS",
		ErrInsufficientBalance, util.FormatEther(e.Required), util.FormatEther(e.Balance))
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}

// BalanceCheck is the result of the successful balance check
type BalanceCheck struct {
	Balance  *big.Int
	Deposit  *big.Int
	GasCost  *big.Int
	Required *big.Int
}

// Result of the registration
type Result struct {
	TxHash  eth_common.Hash
	Receipt *eth_types.Receipt
	Job     Job
	Block   BlockInfo
}

// Manager registers the jobs of one wallet.
type Manager struct {
	settings   configuration.Settings
	client     *client.Client
	sender     *transaction.Sender
	precompile *abi.Abi
	manifest   *Manifest
	logger     *log.Logger
}

// NewManager returns the manager sending the registrations with the sender.
func NewManager(settings configuration.Settings, c *client.Client, sender *transaction.Sender, parent *log.Logger) (*Manager, error) {
	precompile, err := Precompile()
	if err != nil {
		return nil, fmt.Errorf("cron.Precompile: %w", err)
	}

	return &Manager{
		settings:   settings,
		client:     c,
		sender:     sender,
		precompile: precompile,
		logger:     parent.Child("cron"),
	}, nil
}

// SetManifest overrides the scheduled call.
func (m *Manager) SetManifest(manifest *Manifest) {
	m.manifest = manifest
}

// CheckBalance verifies that the wallet can pay the deposit with the
// gas of the registration.
func (m *Manager) CheckBalance(ctx context.Context) (BalanceCheck, error) {
	m.logger.Info("checking the wallet balance")

	balance, err := m.client.Balance(ctx, m.sender.From())
	if err != nil {
		return BalanceCheck{}, fmt.Errorf("balance check: %w", err)
	}

	gas := new(big.Int).SetUint64(m.settings.GasLimit + GasBuffer)
	gasCost := new(big.Int).Mul(m.settings.GasPrice, gas)
	required := new(big.Int).Add(m.settings.Deposit, gasCost)

	m.logger.Info("wallet",
		"address", m.sender.From().Hex(),
		"balance", util.FormatEther(balance)+" HLS",
		"deposit", m.settings.DepositAmount+" HLS",
		"gas", util.FormatEther(gasCost)+" HLS",
		"required", util.FormatEther(required)+" HLS",
	)

	if balance.Cmp(required) < 0 {
		return BalanceCheck{}, &InsufficientBalanceError{Required: required, Balance: balance}
	}

	m.logger.Info("balance check passed")
	return BalanceCheck{
		Balance:  balance,
		Deposit:  new(big.Int).Set(m.settings.Deposit),
		GasCost:  gasCost,
		Required: required,
	}, nil
}

// BlockInfo returns the current block and the block the job would expire.
func (m *Manager) BlockInfo(ctx context.Context) (BlockInfo, error) {
	current, err := m.client.RecentBlockNumber(ctx)
	if err != nil {
		return BlockInfo{}, fmt.Errorf("block info: %w", err)
	}

	return BlockInfo{
		Current:    current,
		Expiration: ExpirationBlock(current, m.settings.ValidityWeeks, m.settings.BlockTime),
	}, nil
}

// Job returns the registration arguments expiring at the given block.
func (m *Manager) Job(expiration uint64) (Job, error) {
	job := Job{
		Target:          m.settings.TargetContract,
		Method:          m.settings.TargetMethod,
		Params:          []string{},
		Frequency:       m.settings.Frequency,
		ExpirationBlock: expiration,
		GasLimit:        m.settings.GasLimit,
		MaxGasPrice:     new(big.Int).Set(m.settings.GasPrice),
		Deposit:         new(big.Int).Set(m.settings.Deposit),
	}

	if m.manifest != nil {
		if m.manifest.Method != "" {
			job.Method = m.manifest.Method
		}
		if m.manifest.Params != nil {
			job.Params = m.manifest.Params
		}
		if m.manifest.Frequency > 0 {
			job.Frequency = m.manifest.Frequency
		}
		job.ABI = m.manifest.ABI
	}

	if job.ABI == "" {
		raw, err := abi.MinimalJSON(job.Method)
		if err != nil {
			return Job{}, fmt.Errorf("abi.MinimalJSON: %w", err)
		}
		job.ABI = raw
	}

	return job, nil
}

func (m *Manager) logJobDetails(job Job, info BlockInfo) {
	blockTime := m.settings.BlockTime
	m.logger.Info("job details",
		"target", job.Target.Hex(),
		"method", job.Method,
		"frequency", fmt.Sprintf("every %d blocks (~%s)", job.Frequency, util.FormatBlocks(job.Frequency, blockTime)),
		"deposit", util.FormatEther(job.Deposit)+" HLS",
		"gas_limit", job.GasLimit,
		"gas_price", util.FormatGwei(job.MaxGasPrice)+" gwei",
		"current_block", info.Current,
		"expiration_block", info.Expiration,
		"validity", util.FormatBlocks(info.Validity(), blockTime),
	)
}

// Create registers the job: checks the balance, sends the createCron
// transaction and waits until it's mined.
func (m *Manager) Create(ctx context.Context) (*Result, error) {
	m.logger.Info("creating the cron job")

	if _, err := m.CheckBalance(ctx); err != nil {
		return nil, err
	}

	info, err := m.BlockInfo(ctx)
	if err != nil {
		return nil, err
	}

	job, err := m.Job(info.Expiration)
	if err != nil {
		return nil, err
	}
	m.logJobDetails(job, info)

	data, err := m.precompile.Pack(CreateMethod, job.Args()...)
	if err != nil {
		return nil, fmt.Errorf("precompile.Pack: %w", err)
	}

	cronAddress := m.settings.CronAddress
	tx, err := m.sender.Send(ctx, transaction.Request{
		To:       &cronAddress,
		Data:     data,
		GasLimit: job.GasLimit + GasBuffer,
		GasPrice: job.MaxGasPrice,
	})
	if err != nil {
		return nil, fmt.Errorf("sender.Send: %w", err)
	}
	m.logger.Info("transaction status", "status", "PENDING", "hash", tx.Hash().Hex())

	m.logger.Info("waiting for the confirmation")
	receipt, err := m.sender.Wait(ctx, tx)
	if errors.Is(err, transaction.ErrReverted) {
		m.logger.Error("transaction status", "status", "FAILED", "hash", tx.Hash().Hex())
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("sender.Wait: %w", err)
	}

	m.logger.Info("transaction status", "status", "SUCCESS", "hash", tx.Hash().Hex(), "block", receipt.BlockNumber.Uint64())
	m.logger.Info("cron job registered")

	return &Result{
		TxHash:  tx.Hash(),
		Receipt: receipt,
		Job:     job,
		Block:   info,
	}, nil
}

// CreateWithRetry calls Create up to MAX_RETRIES times.
// If all attempts fail, the error of the last one is returned.
func (m *Manager) CreateWithRetry(ctx context.Context) (*Result, error) {
	attempts := m.settings.MaxRetries
	notify := func(err error, attempt int, next time.Duration) {
		m.logger.Warn("create attempt failed",
			"attempt", fmt.Sprintf("%d/%d", attempt, attempts),
			"error", err,
			"retry_in", next,
		)
	}

	result, err := retry.DoWithData(ctx, attempts, m.settings.RetryDelay, notify, m.Create)
	if err != nil {
		m.logger.Error("all attempts failed", "attempts", attempts, "error", err)
		return nil, err
	}
	return result, nil
}
