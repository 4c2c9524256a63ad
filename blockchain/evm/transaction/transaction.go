// Package transaction signs, broadcasts and waits for the legacy transactions.
package transaction

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/CyberFFarm/Helios-Cron/blockchain/evm/client"
	"github.com/CyberFFarm/Helios-Cron/log"
	"github.com/ethereum/go-ethereum"
	eth_common "github.com/ethereum/go-ethereum/common"
	eth_types "github.com/ethereum/go-ethereum/core/types"
)

// ErrReverted is returned when the transaction was mined with the failed status.
var ErrReverted = errors.New("transaction reverted")

const (
	// DefaultPollInterval between the receipt requests
	DefaultPollInterval = time.Second
	// DefaultGasBuffer is added to the estimated gas.
	DefaultGasBuffer uint64 = 50_000
)

// Request describes the transaction to send.
// The zero fields are filled from the node.
type Request struct {
	To       *eth_common.Address // nil deploys a contract
	Data     []byte
	Value    *big.Int
	GasLimit uint64   // estimated when zero
	GasPrice *big.Int // suggested by the node when nil
}

// Sender submits the transactions of one wallet.
type Sender struct {
	backend client.Backend
	signer  *Signer
	logger  *log.Logger

	PollInterval time.Duration
	GasBuffer    uint64
}

// NewSender returns the sender with the default poll interval and gas buffer.
func NewSender(backend client.Backend, signer *Signer, parent *log.Logger) *Sender {
	return &Sender{
		backend:      backend,
		signer:       signer,
		logger:       parent.Child("transaction"),
		PollInterval: DefaultPollInterval,
		GasBuffer:    DefaultGasBuffer,
	}
}

// From is the address of the wallet sending the transactions.
func (s *Sender) From() eth_common.Address {
	return s.signer.Address()
}

// Send signs and broadcasts the transaction. It doesn't wait for the mining.
func (s *Sender) Send(ctx context.Context, req Request) (*eth_types.Transaction, error) {
	from := s.signer.Address()

	chainID, err := s.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("provider chain id: %w", err)
	}

	nonce, err := s.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("provider pending nonce of %s: %w", from.Hex(), err)
	}

	gasPrice := req.GasPrice
	if gasPrice == nil {
		gasPrice, err = s.backend.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("provider gas price: %w", err)
		}
	}

	value := req.Value
	if value == nil {
		value = big.NewInt(0)
	}

	gasLimit := req.GasLimit
	if gasLimit == 0 {
		estimated, err := s.backend.EstimateGas(ctx, ethereum.CallMsg{
			From:     from,
			To:       req.To,
			GasPrice: gasPrice,
			Value:    value,
			Data:     req.Data,
		})
		if err != nil {
			return nil, fmt.Errorf("provider estimate gas: %w", err)
		}
		gasLimit = estimated + s.GasBuffer
		s.logger.Debug("estimated gas", "estimated", estimated, "limit", gasLimit)
	}

	tx := eth_types.NewTx(&eth_types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gasLimit,
		To:       req.To,
		Value:    value,
		Data:     req.Data,
	})

	signed, err := s.signer.Sign(tx, chainID)
	if err != nil {
		return nil, fmt.Errorf("signer.Sign: %w", err)
	}

	if err := s.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("provider send transaction: %w", err)
	}

	s.logger.Debug("transaction sent", "hash", signed.Hash().Hex(), "nonce", nonce, "gas", gasLimit)
	return signed, nil
}

// Wait polls the receipt until the transaction is mined or the context is cancelled.
// The failed receipt is returned along with ErrReverted.
func (s *Sender) Wait(ctx context.Context, tx *eth_types.Transaction) (*eth_types.Receipt, error) {
	ticker := time.NewTicker(s.PollInterval)
	defer ticker.Stop()

	for {
		receipt, err := s.backend.TransactionReceipt(ctx, tx.Hash())
		if err == nil {
			if receipt.Status == eth_types.ReceiptStatusFailed {
				return receipt, fmt.Errorf("%w: %s in block %d", ErrReverted, tx.Hash().Hex(), receipt.BlockNumber.Uint64())
			}
			return receipt, nil
		}

		if errors.Is(err, ethereum.NotFound) {
			s.logger.Debug("transaction not yet mined", "hash", tx.Hash().Hex())
		} else {
			s.logger.Debug("receipt retrieval failed", "hash", tx.Hash().Hex(), "error", err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
