// Package deploy publishes the scheduled smartcontract.
//
// The contract is compiled by solc or loaded from the artifact file,
// deployed by the configured wallet and then verified by reading its state.
// The deployment is recorded in the json file, and the address is written
// into the .env file for the next workflows.
package deploy

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
	"github.com/CyberFFarm/Helios-Cron/env"
	"github.com/CyberFFarm/Helios-Cron/log"
	eth_common "github.com/ethereum/go-ethereum/common"
)

var (
	// ErrInsufficientBalance is returned when the wallet has less than MinBalance.
	ErrInsufficientBalance = errors.New("insufficient balance for the deployment")
	// ErrNoCode is returned when the deployed address has no code.
	ErrNoCode = errors.New("contract address has no code")
)

// InfoMethod is called to verify the deployment, if the contract has it.
const InfoMethod = "getContractInfo"

// MinBalance is the least balance to start the deployment: 0.01 HLS
var MinBalance = big.NewInt(10_000_000_000_000_000)

// ContractInfo is the state of the deployed contract.
type ContractInfo struct {
	TickCount *big.Int
	Paused    bool
	Owner     eth_common.Address
}

// Deployer deploys the artifacts with the wallet of the sender.
type Deployer struct {
	settings configuration.Settings
	client   *client.Client
	sender   *transaction.Sender
	logger   *log.Logger
	now      func() time.Time
}

// New returns the deployer
func New(settings configuration.Settings, c *client.Client, sender *transaction.Sender, parent *log.Logger) *Deployer {
	return &Deployer{
		settings: settings,
		client:   c,
		sender:   sender,
		logger:   parent.Child("deploy"),
		now:      time.Now,
	}
}

// Deploy publishes the artifact, verifies it and saves the deployment record
// into the DEPLOYMENT_FILE.
func (d *Deployer) Deploy(ctx context.Context, artifact *Artifact) (*Record, *ContractInfo, error) {
	if err := artifact.Validate(); err != nil {
		return nil, nil, err
	}

	deployer := d.sender.From()
	d.logger.Info("deploying the contract", "deployer", deployer.Hex(), "network", d.settings.RPCURL)

	if _, err := d.CheckBalance(ctx); err != nil {
		return nil, nil, err
	}

	chainID, err := d.client.ChainID(ctx)
	if err != nil {
		return nil, nil, err
	}

	// the gas is estimated by the sender, and the price is suggested by the node
	tx, err := d.sender.Send(ctx, transaction.Request{Data: artifact.Code()})
	if err != nil {
		return nil, nil, fmt.Errorf("sender.Send: %w", err)
	}
	fee := new(big.Int).Mul(tx.GasPrice(), new(big.Int).SetUint64(tx.Gas()))
	d.logger.Info("deployment sent",
		"hash", tx.Hash().Hex(),
		"gas", tx.Gas(),
		"max_fee", util.FormatEther(fee)+" HLS",
	)

	d.logger.Info("waiting for the confirmation")
	receipt, err := d.sender.Wait(ctx, tx)
	if err != nil {
		return nil, nil, fmt.Errorf("sender.Wait: %w", err)
	}
	address := receipt.ContractAddress
	d.logger.Info("contract deployed", "address", address.Hex(), "block", receipt.BlockNumber.Uint64())

	info, err := d.Verify(ctx, address, artifact)
	if err != nil {
		return nil, nil, err
	}

	record := &Record{
		Address:     address.Hex(),
		TxHash:      tx.Hash().Hex(),
		DeployedAt:  d.now().UTC(),
		Network:     d.settings.RPCURL,
		Deployer:    deployer.Hex(),
		ChainID:     chainID.Uint64(),
		BlockNumber: receipt.BlockNumber.Uint64(),
		ABI:         artifact.ABI,
	}
	if d.settings.DeploymentFile != "" {
		if err := record.Save(d.settings.DeploymentFile); err != nil {
			return nil, nil, err
		}
		d.logger.Info("deployment record saved", "path", d.settings.DeploymentFile)
	}

	return record, info, nil
}

// CheckBalance returns the balance of the deployer, or ErrInsufficientBalance
// if it's below MinBalance.
func (d *Deployer) CheckBalance(ctx context.Context) (*big.Int, error) {
	balance, err := d.client.Balance(ctx, d.sender.From())
	if err != nil {
		return nil, err
	}
	d.logger.Info("deployer balance", "balance", util.FormatEther(balance)+" HLS")
	if balance.Cmp(MinBalance) < 0 {
		return balance, fmt.Errorf("%w: need at least %s HLS, the balance is %s HLS",
			ErrInsufficientBalance, util.FormatEther(MinBalance), util.FormatEther(balance))
	}
	return balance, nil
}

// Verify checks that the address has the code, then reads the contract info
// if the interface has the getContractInfo method. Otherwise the info is nil.
func (d *Deployer) Verify(ctx context.Context, address eth_common.Address, artifact *Artifact) (*ContractInfo, error) {
	d.logger.Info("verifying the deployment", "address", address.Hex())

	code, err := d.client.Code(ctx, address)
	if err != nil {
		return nil, err
	}
	if len(code) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoCode, address.Hex())
	}

	contractAbi, err := abi.New(artifact.ABI)
	if err != nil {
		return nil, err
	}
	if !contractAbi.HasMethod(InfoMethod) {
		d.logger.Warn("contract has no info method, skipping the state check", "method", InfoMethod)
		return nil, nil
	}

	outputs, err := contractAbi.Call(ctx, d.client.Backend(), address, InfoMethod)
	if err != nil {
		return nil, err
	}
	info, err := contractInfo(outputs)
	if err != nil {
		return nil, err
	}

	d.logger.Info("contract verified",
		"tick_count", info.TickCount.String(),
		"owner", info.Owner.Hex(),
		"paused", info.Paused,
	)
	return info, nil
}

func contractInfo(outputs []interface{}) (*ContractInfo, error) {
	if len(outputs) < 5 {
		return nil, fmt.Errorf("%s returned %d values, expected 5", InfoMethod, len(outputs))
	}

	tickCount, ok := outputs[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s tick count is %T", InfoMethod, outputs[0])
	}
	paused, ok := outputs[3].(bool)
	if !ok {
		return nil, fmt.Errorf("%s paused flag is %T", InfoMethod, outputs[3])
	}
	owner, ok := outputs[4].(eth_common.Address)
	if !ok {
		return nil, fmt.Errorf("%s owner is %T", InfoMethod, outputs[4])
	}

	return &ContractInfo{TickCount: tickCount, Paused: paused, Owner: owner}, nil
}

// UpdateEnv sets TARGET_CONTRACT in the existing .env file.
// Returns false if there is no file.
func UpdateEnv(path string, address string) (bool, error) {
	updated, err := env.SetKey(path, configuration.TargetContract, address)
	if err != nil {
		return false, fmt.Errorf("env.SetKey: %w", err)
	}
	return updated, nil
}
