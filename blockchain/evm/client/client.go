// The EVM blockchain client
// Any reply from the node is validated, then returned as the go-ethereum type.
package client

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	eth_common "github.com/ethereum/go-ethereum/common"
	eth_types "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Backend is the part of the node API used by the toolkit.
// Implemented by *ethclient.Client and by the simulated chain.
type Backend interface {
	ethereum.BlockNumberReader
	ethereum.ChainIDReader
	ethereum.ChainStateReader
	ethereum.LogFilterer
	ethereum.GasPricer
	ethereum.GasEstimator
	ethereum.TransactionSender
	ethereum.ContractCaller

	HeaderByNumber(ctx context.Context, number *big.Int) (*eth_types.Header, error)
	PendingNonceAt(ctx context.Context, account eth_common.Address) (uint64, error)
	TransactionReceipt(ctx context.Context, txHash eth_common.Hash) (*eth_types.Receipt, error)
}

type closer interface {
	Close()
}

// Client is bound to one node.
type Client struct {
	backend Backend
}

// Dial connects to the node. The url is http, https, ws or wss.
func Dial(ctx context.Context, url string) (*Client, error) {
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to blockchain at %s: %w", url, err)
	}

	return NewWithBackend(client), nil
}

// NewWithBackend wraps the already connected backend.
func NewWithBackend(backend Backend) *Client {
	return &Client{backend: backend}
}

// Backend returns the underlying connection for the transaction senders and the contract calls.
func (c *Client) Backend() Backend {
	return c.backend
}

// Close releases the connection if the backend holds one.
func (c *Client) Close() {
	if backend, ok := c.backend.(closer); ok {
		backend.Close()
	}
}

//////////////////////////////////////////////////////////
//
// Blockchain related functions
//
/////////////////////////////////////////////////////////

// ChainID returns the chain id used for the transaction signatures
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	chainID, err := c.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("provider chain id: %w", err)
	}
	return chainID, nil
}

// Balance returns the latest balance of the account in wei
func (c *Client) Balance(ctx context.Context, address eth_common.Address) (*big.Int, error) {
	balance, err := c.backend.BalanceAt(ctx, address, nil)
	if err != nil {
		return nil, fmt.Errorf("provider balance of %s: %w", address.Hex(), err)
	}
	return balance, nil
}

// RecentBlockNumber returns the most recent block number from blockchain
func (c *Client) RecentBlockNumber(ctx context.Context) (uint64, error) {
	blockNumber, err := c.backend.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("provider block number: %w", err)
	}

	return blockNumber, nil
}

// BlockTimestamp returns the block timestamp in unix seconds
func (c *Client) BlockTimestamp(ctx context.Context, blockNumber uint64) (uint64, error) {
	header, err := c.backend.HeaderByNumber(ctx, new(big.Int).SetUint64(blockNumber))
	if err != nil {
		return 0, fmt.Errorf("provider header of block %d: %w", blockNumber, err)
	}

	return header.Time, nil
}

// Code returns the deployed bytecode. Empty for accounts without a contract.
func (c *Client) Code(ctx context.Context, address eth_common.Address) ([]byte, error) {
	code, err := c.backend.CodeAt(ctx, address, nil)
	if err != nil {
		return nil, fmt.Errorf("provider code of %s: %w", address.Hex(), err)
	}
	return code, nil
}

// BlockRangeLogs returns the logs of the addresses for the inclusive block range.
// Without addresses, the logs of every contract are returned.
func (c *Client) BlockRangeLogs(ctx context.Context, from uint64, to uint64, addresses []eth_common.Address) ([]eth_types.Log, error) {
	if from > to {
		return nil, fmt.Errorf("invalid block range: from %d is after to %d", from, to)
	}

	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: addresses,
	}

	rawLogs, err := c.backend.FilterLogs(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("client.FilterLogs blocks %d-%d: %w", from, to, err)
	}
	return rawLogs, nil
}
