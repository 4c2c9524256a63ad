package cron

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
)

type TestManifestSuite struct {
	suite.Suite
}

func (suite *TestManifestSuite) TestParse() {
	manifest, err := ParseManifest(strings.NewReader(`
method: poke
params: ["1", "two"]
frequency: 600
`))
	suite.Require().NoError(err)
	suite.Equal("poke", manifest.Method)
	suite.Equal([]string{"1", "two"}, manifest.Params)
	suite.Equal(uint64(600), manifest.Frequency)
	suite.Empty(manifest.ABI)

	// an empty file overrides nothing
	manifest, err = ParseManifest(strings.NewReader(""))
	suite.Require().NoError(err)
	suite.Equal(Manifest{}, *manifest)
}

func (suite *TestManifestSuite) TestUnknownField() {
	_, err := ParseManifest(strings.NewReader("methd: poke\n"))
	suite.Require().Error(err)
}

func (suite *TestManifestSuite) TestABI() {
	abi := `[{"name":"poke","type":"function","inputs":[],"outputs":[],"stateMutability":"nonpayable"}]`

	_, err := ParseManifest(strings.NewReader("method: poke\nabi: '" + abi + "'\n"))
	suite.Require().NoError(err)

	// the method is missing in the interface
	_, err = ParseManifest(strings.NewReader("method: tick\nabi: '" + abi + "'\n"))
	suite.Require().Error(err)

	// the abi without the method
	_, err = ParseManifest(strings.NewReader("abi: '" + abi + "'\n"))
	suite.Require().Error(err)

	_, err = ParseManifest(strings.NewReader("method: poke\nabi: 'not json'\n"))
	suite.Require().Error(err)
}

func (suite *TestManifestSuite) TestLoad() {
	path := filepath.Join(suite.T().TempDir(), "job.yaml")
	suite.Require().NoError(os.WriteFile(path, []byte("method: poke\n"), 0o600))

	manifest, err := LoadManifest(path)
	suite.Require().NoError(err)
	suite.Equal("poke", manifest.Method)

	_, err = LoadManifest(filepath.Join(suite.T().TempDir(), "missing.yaml"))
	suite.Require().Error(err)
}

func TestManifest(t *testing.T) {
	suite.Run(t, new(TestManifestSuite))
}
