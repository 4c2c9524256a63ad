// Package evmtest runs an in-memory chain for the tests of the packages
// talking to the blockchain.
package evmtest

import (
	"crypto/ecdsa"
	"encoding/hex"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
)

// ChainID of the simulated chain
const ChainID = 1337

// Contract bytecodes deployed in the tests.
const (
	// TickerBytecode emits an empty log on every call and returns 160 zero bytes.
	// The output decodes as the zero getContractInfo() tuple.
	TickerBytecode = "0x600a600c600039600a6000f360006000a060a06000f3"
	// RevertBytecode reverts every call.
	RevertBytecode = "0x6005600c60003960056000f360006000fd"
)

// TickerABI describes the ticker contract.
const TickerABI = `[
	{"name":"tick","type":"function","inputs":[],"outputs":[],"stateMutability":"nonpayable"},
	{"name":"getContractInfo","type":"function","inputs":[],"outputs":[
		{"name":"tickCount","type":"uint256"},
		{"name":"lastTickBlock","type":"uint256"},
		{"name":"lastTickTime","type":"uint256"},
		{"name":"paused","type":"bool"},
		{"name":"owner","type":"address"}
	],"stateMutability":"view"}
]`

// Chain is the simulated chain with one funded account.
type Chain struct {
	Backend *simulated.Backend
	Client  simulated.Client
	Key     *ecdsa.PrivateKey
	KeyHex  string // 0x prefixed
	Address common.Address

	mu sync.Mutex
}

// Ether converts the whole tokens into wei.
func Ether(amount int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(amount), big.NewInt(1e18))
}

// New starts the chain. The account gets the balance in the genesis.
// The chain is closed when the test ends.
func New(t testing.TB, balance *big.Int) *Chain {
	t.Helper()

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("crypto.GenerateKey: %v", err)
	}
	address := crypto.PubkeyToAddress(key.PublicKey)

	backend := simulated.NewBackend(types.GenesisAlloc{
		address: {Balance: balance},
	})
	t.Cleanup(func() {
		_ = backend.Close()
	})

	return &Chain{
		Backend: backend,
		Client:  backend.Client(),
		Key:     key,
		KeyHex:  "0x" + hex.EncodeToString(crypto.FromECDSA(key)),
		Address: address,
	}
}

// Commit seals a block with the pending transactions.
func (c *Chain) Commit() common.Hash {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Backend.Commit()
}

// CommitN seals n blocks.
func (c *Chain) CommitN(n int) {
	for i := 0; i < n; i++ {
		c.Commit()
	}
}

// AutoCommit seals a block every interval until the returned function is
// called or the test ends. Used by the tests that wait for the receipts.
func (c *Chain) AutoCommit(t testing.TB, interval time.Duration) func() {
	t.Helper()

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				c.Commit()
			}
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			close(done)
			<-stopped
		})
	}
	t.Cleanup(stop)
	return stop
}
