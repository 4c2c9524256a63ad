package deploy

import (
	"context"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/CyberFFarm/Helios-Cron/blockchain/evm/client"
	"github.com/CyberFFarm/Helios-Cron/blockchain/evm/evmtest"
	"github.com/CyberFFarm/Helios-Cron/blockchain/evm/transaction"
	"github.com/CyberFFarm/Helios-Cron/configuration"
	"github.com/CyberFFarm/Helios-Cron/log"
	eth_common "github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/suite"
)

type TestDeploySuite struct {
	suite.Suite
	ctx      context.Context
	chain    *evmtest.Chain
	deployer *Deployer
	settings configuration.Settings
	artifact *Artifact
}

func (suite *TestDeploySuite) SetupTest() {
	suite.ctx = context.Background()
	suite.settings = configuration.Settings{
		RPCURL:         "http://127.0.0.1:8545",
		DeploymentFile: filepath.Join(suite.T().TempDir(), "deployment.json"),
	}
	suite.artifact = &Artifact{
		ABI:      json.RawMessage(evmtest.TickerABI),
		Bytecode: evmtest.TickerBytecode,
	}
	suite.newChain(evmtest.Ether(10))
}

func (suite *TestDeploySuite) newChain(balance *big.Int) {
	suite.chain = evmtest.New(suite.T(), balance)
	suite.chain.AutoCommit(suite.T(), 20*time.Millisecond)

	signer, err := transaction.NewSigner(suite.chain.KeyHex)
	suite.Require().NoError(err)
	sender := transaction.NewSender(suite.chain.Client, signer, log.Discard())
	sender.PollInterval = 10 * time.Millisecond

	suite.deployer = New(suite.settings, client.NewWithBackend(suite.chain.Client), sender, log.Discard())
	suite.deployer.now = func() time.Time {
		return time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	}
}

func (suite *TestDeploySuite) TestDeploy() {
	record, info, err := suite.deployer.Deploy(suite.ctx, suite.artifact)
	suite.Require().NoError(err)

	suite.True(eth_common.IsHexAddress(record.Address))
	suite.Equal(suite.chain.Address.Hex(), record.Deployer)
	suite.Equal(uint64(evmtest.ChainID), record.ChainID)
	suite.Equal("http://127.0.0.1:8545", record.Network)
	suite.NotZero(record.BlockNumber)

	// the ticker replies with the zero state
	suite.Require().NotNil(info)
	suite.Zero(info.TickCount.Sign())
	suite.False(info.Paused)

	raw, err := os.ReadFile(suite.settings.DeploymentFile)
	suite.Require().NoError(err)
	var saved Record
	suite.Require().NoError(json.Unmarshal(raw, &saved))
	suite.Equal(record.Address, saved.Address)
	suite.Equal(record.TxHash, saved.TxHash)
	suite.True(record.DeployedAt.Equal(saved.DeployedAt))
	suite.JSONEq(evmtest.TickerABI, string(saved.ABI))

	suite.Contains(string(raw), "\n  \"address\": ")
	suite.Contains(string(raw), `"deployedAt": "2025-07-01T12:00:00Z"`)
}

func (suite *TestDeploySuite) TestInsufficientBalance() {
	suite.newChain(big.NewInt(9_999_999_999_999_999))

	_, _, err := suite.deployer.Deploy(suite.ctx, suite.artifact)
	suite.Require().ErrorIs(err, ErrInsufficientBalance)
	suite.Contains(err.Error(), "0.01 HLS")

	_, err = os.Stat(suite.settings.DeploymentFile)
	suite.True(os.IsNotExist(err))

	balance, err := suite.deployer.CheckBalance(suite.ctx)
	suite.Require().ErrorIs(err, ErrInsufficientBalance)
	suite.Equal("9999999999999999", balance.String())
}

func (suite *TestDeploySuite) TestCheckBalance() {
	balance, err := suite.deployer.CheckBalance(suite.ctx)
	suite.Require().NoError(err)
	suite.True(balance.Cmp(MinBalance) >= 0)
}

func (suite *TestDeploySuite) TestNoCode() {
	// the creation code returns nothing
	empty := &Artifact{ABI: suite.artifact.ABI, Bytecode: "0x00"}

	_, _, err := suite.deployer.Deploy(suite.ctx, empty)
	suite.Require().ErrorIs(err, ErrNoCode)
}

func (suite *TestDeploySuite) TestWithoutInfoMethod() {
	artifact := &Artifact{
		ABI:      json.RawMessage(`[{"name":"tick","type":"function","inputs":[],"outputs":[],"stateMutability":"nonpayable"}]`),
		Bytecode: evmtest.TickerBytecode,
	}

	record, info, err := suite.deployer.Deploy(suite.ctx, artifact)
	suite.Require().NoError(err)
	suite.Nil(info)
	suite.NotEmpty(record.Address)
}

func (suite *TestDeploySuite) TestInvalidArtifact() {
	_, _, err := suite.deployer.Deploy(suite.ctx, &Artifact{ABI: suite.artifact.ABI})
	suite.Require().Error(err)

	_, _, err = suite.deployer.Deploy(suite.ctx, &Artifact{Bytecode: evmtest.TickerBytecode})
	suite.Require().Error(err)
}

func (suite *TestDeploySuite) TestUpdateEnv() {
	dir := suite.T().TempDir()
	path := filepath.Join(dir, ".env")

	// no file, nothing to update
	updated, err := UpdateEnv(path, "0x1111111111111111111111111111111111111111")
	suite.Require().NoError(err)
	suite.False(updated)

	suite.Require().NoError(os.WriteFile(path, []byte("PRIVATE_KEY=0xabc\nTARGET_CONTRACT=0x2222222222222222222222222222222222222222\n"), 0o600))
	updated, err = UpdateEnv(path, "0x1111111111111111111111111111111111111111")
	suite.Require().NoError(err)
	suite.True(updated)

	values, err := godotenv.Read(path)
	suite.Require().NoError(err)
	suite.Equal("0x1111111111111111111111111111111111111111", values[configuration.TargetContract])
	suite.Equal("0xabc", values[configuration.PrivateKey])
}

func TestDeploy(t *testing.T) {
	suite.Run(t, new(TestDeploySuite))
}
