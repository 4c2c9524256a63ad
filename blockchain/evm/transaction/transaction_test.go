package transaction

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/CyberFFarm/Helios-Cron/blockchain/evm/evmtest"
	"github.com/CyberFFarm/Helios-Cron/log"
	eth_common "github.com/ethereum/go-ethereum/common"
	eth_types "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/suite"
)

type TestTransactionSuite struct {
	suite.Suite
	chain  *evmtest.Chain
	sender *Sender
	ctx    context.Context
}

func (suite *TestTransactionSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.chain = evmtest.New(suite.T(), evmtest.Ether(10))

	signer, err := NewSigner(suite.chain.KeyHex)
	suite.Require().NoError(err)
	suite.Equal(suite.chain.Address, signer.Address())

	suite.sender = NewSender(suite.chain.Client, signer, log.Discard())
	suite.sender.PollInterval = 10 * time.Millisecond
	suite.chain.AutoCommit(suite.T(), 20*time.Millisecond)
}

// sendAndWait sends the transaction and waits for its receipt.
func (suite *TestTransactionSuite) sendAndWait(req Request) (*eth_types.Transaction, *eth_types.Receipt, error) {
	tx, err := suite.sender.Send(suite.ctx, req)
	if err != nil {
		return nil, nil, err
	}
	receipt, err := suite.sender.Wait(suite.ctx, tx)
	return tx, receipt, err
}

func (suite *TestTransactionSuite) TestSigner() {
	// the prefix is optional
	signer, err := NewSigner(suite.chain.KeyHex[2:])
	suite.Require().NoError(err)
	suite.Equal(suite.chain.Address, signer.Address())

	_, err = NewSigner("0x1234")
	suite.Require().Error(err)
}

func (suite *TestTransactionSuite) TestTransfer() {
	to := eth_common.HexToAddress("0x1111111111111111111111111111111111111111")
	value := big.NewInt(12345)

	tx, receipt, err := suite.sendAndWait(Request{To: &to, Value: value})
	suite.Require().NoError(err)
	suite.Equal(eth_types.ReceiptStatusSuccessful, receipt.Status)
	suite.Equal(tx.Hash(), receipt.TxHash)
	suite.Equal(uint8(eth_types.LegacyTxType), tx.Type())
	suite.Equal(uint64(0), tx.Nonce())

	balance, err := suite.chain.Client.BalanceAt(suite.ctx, to, nil)
	suite.Require().NoError(err)
	suite.Equal(value.String(), balance.String())

	// the next transaction takes the next nonce
	tx, _, err = suite.sendAndWait(Request{To: &to, Value: value})
	suite.Require().NoError(err)
	suite.Equal(uint64(1), tx.Nonce())
}

func (suite *TestTransactionSuite) TestGasParameters() {
	to := eth_common.HexToAddress("0x1111111111111111111111111111111111111111")
	gasPrice := big.NewInt(2_000_000_000)

	// explicit limit and price are used as is
	tx, err := suite.sender.Send(suite.ctx, Request{To: &to, GasLimit: 70_000, GasPrice: gasPrice})
	suite.Require().NoError(err)
	suite.Equal(uint64(70_000), tx.Gas())
	suite.Equal(gasPrice.String(), tx.GasPrice().String())
	_, err = suite.sender.Wait(suite.ctx, tx)
	suite.Require().NoError(err)

	// estimated transfer costs 21000, plus the buffer
	tx, err = suite.sender.Send(suite.ctx, Request{To: &to})
	suite.Require().NoError(err)
	suite.Equal(21_000+DefaultGasBuffer, tx.Gas())
	_, err = suite.sender.Wait(suite.ctx, tx)
	suite.Require().NoError(err)
}

func (suite *TestTransactionSuite) TestDeploy() {
	_, receipt, err := suite.sendAndWait(Request{Data: eth_common.FromHex(evmtest.TickerBytecode)})
	suite.Require().NoError(err)
	suite.NotEqual(eth_common.Address{}, receipt.ContractAddress)

	code, err := suite.chain.Client.CodeAt(suite.ctx, receipt.ContractAddress, nil)
	suite.Require().NoError(err)
	suite.NotEmpty(code)
}

func (suite *TestTransactionSuite) TestReverted() {
	_, receipt, err := suite.sendAndWait(Request{Data: eth_common.FromHex(evmtest.RevertBytecode)})
	suite.Require().NoError(err)
	contract := receipt.ContractAddress

	// the estimation fails for the reverting call
	_, err = suite.sender.Send(suite.ctx, Request{To: &contract})
	suite.Require().Error(err)

	// with the explicit gas limit the transaction is mined as failed
	tx, receipt, err := suite.sendAndWait(Request{To: &contract, GasLimit: 100_000})
	suite.Require().ErrorIs(err, ErrReverted)
	suite.Contains(err.Error(), tx.Hash().Hex())
	suite.Require().NotNil(receipt)
	suite.Equal(eth_types.ReceiptStatusFailed, receipt.Status)
}

func (suite *TestTransactionSuite) TestWaitCancelled() {
	ctx, cancel := context.WithTimeout(suite.ctx, 50*time.Millisecond)
	defer cancel()

	// never broadcast, so never mined
	to := eth_common.HexToAddress("0x1111111111111111111111111111111111111111")
	tx := eth_types.NewTx(&eth_types.LegacyTx{Nonce: 100, To: &to, Gas: 21_000, GasPrice: big.NewInt(1)})

	_, err := suite.sender.Wait(ctx, tx)
	suite.Require().ErrorIs(err, context.DeadlineExceeded)
}

func TestTransaction(t *testing.T) {
	suite.Run(t, new(TestTransactionSuite))
}
