package client

import (
	"context"
	"testing"

	"github.com/CyberFFarm/Helios-Cron/blockchain/evm/evmtest"
	eth_common "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/suite"
)

type TestClientSuite struct {
	suite.Suite
	chain  *evmtest.Chain
	client *Client
	ctx    context.Context
}

func (suite *TestClientSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.chain = evmtest.New(suite.T(), evmtest.Ether(10))
	suite.client = NewWithBackend(suite.chain.Client)
}

func (suite *TestClientSuite) TestChainID() {
	chainID, err := suite.client.ChainID(suite.ctx)
	suite.Require().NoError(err)
	suite.Equal(int64(evmtest.ChainID), chainID.Int64())
}

func (suite *TestClientSuite) TestBalance() {
	balance, err := suite.client.Balance(suite.ctx, suite.chain.Address)
	suite.Require().NoError(err)
	suite.Equal(evmtest.Ether(10).String(), balance.String())

	// unknown accounts have nothing
	balance, err = suite.client.Balance(suite.ctx, eth_common.HexToAddress("0x1111111111111111111111111111111111111111"))
	suite.Require().NoError(err)
	suite.Zero(balance.Sign())
}

func (suite *TestClientSuite) TestBlocks() {
	start, err := suite.client.RecentBlockNumber(suite.ctx)
	suite.Require().NoError(err)

	suite.chain.CommitN(3)

	recent, err := suite.client.RecentBlockNumber(suite.ctx)
	suite.Require().NoError(err)
	suite.Equal(start+3, recent)

	first, err := suite.client.BlockTimestamp(suite.ctx, start+1)
	suite.Require().NoError(err)
	last, err := suite.client.BlockTimestamp(suite.ctx, recent)
	suite.Require().NoError(err)
	suite.GreaterOrEqual(last, first)

	// the block doesn't exist yet
	_, err = suite.client.BlockTimestamp(suite.ctx, recent+100)
	suite.Require().Error(err)
}

func (suite *TestClientSuite) TestCode() {
	code, err := suite.client.Code(suite.ctx, suite.chain.Address)
	suite.Require().NoError(err)
	suite.Empty(code)
}

func (suite *TestClientSuite) TestBlockRangeLogs() {
	suite.chain.CommitN(2)

	logs, err := suite.client.BlockRangeLogs(suite.ctx, 0, 2, []eth_common.Address{suite.chain.Address})
	suite.Require().NoError(err)
	suite.Empty(logs)

	_, err = suite.client.BlockRangeLogs(suite.ctx, 2, 1, nil)
	suite.Require().Error(err)
}

func TestClient(t *testing.T) {
	suite.Run(t, new(TestClientSuite))
}
