package deploy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/CyberFFarm/Helios-Cron/blockchain/evm/abi"
	eth_common "github.com/ethereum/go-ethereum/common"
)

// ErrCompilerMissing is returned when the solc binary is not found.
var ErrCompilerMissing = errors.New("solc compiler not found")

// DefaultCompiler is looked up in the PATH
const DefaultCompiler = "solc"

// Artifact is the compiled contract.
type Artifact struct {
	ABI      json.RawMessage `json:"abi"`
	Bytecode string          `json:"bytecode"` // 0x prefixed creation code
}

// Code returns the creation bytecode.
func (artifact *Artifact) Code() []byte {
	return eth_common.FromHex(artifact.Bytecode)
}

// Validate checks that the artifact has the interface and the code.
func (artifact *Artifact) Validate() error {
	if len(artifact.ABI) == 0 {
		return fmt.Errorf("artifact has no abi")
	}
	if _, err := abi.New(artifact.ABI); err != nil {
		return fmt.Errorf("artifact abi: %w", err)
	}
	if len(artifact.Code()) == 0 {
		return fmt.Errorf("artifact has no bytecode")
	}
	return nil
}

// The bytecode is either the hex string or the object of the foundry artifacts.
type rawArtifact struct {
	ABI      json.RawMessage `json:"abi"`
	Bytecode json.RawMessage `json:"bytecode"`
}

// LoadArtifact reads the {"abi", "bytecode"} json file.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("os.ReadFile: %w", err)
	}

	var raw rawArtifact
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("json.Unmarshal(%s): %w", path, err)
	}

	bytecode, err := decodeBytecode(raw.Bytecode)
	if err != nil {
		return nil, fmt.Errorf("artifact %s: %w", path, err)
	}

	artifact := &Artifact{ABI: raw.ABI, Bytecode: bytecode}
	if err := artifact.Validate(); err != nil {
		return nil, fmt.Errorf("artifact %s: %w", path, err)
	}
	return artifact, nil
}

func decodeBytecode(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}

	var code string
	if err := json.Unmarshal(raw, &code); err == nil {
		return withPrefix(code), nil
	}

	var object struct {
		Object string `json:"object"`
	}
	if err := json.Unmarshal(raw, &object); err != nil {
		return "", fmt.Errorf("bytecode is neither a string nor an object: %w", err)
	}
	return withPrefix(object.Object), nil
}

func withPrefix(code string) string {
	if code == "" || strings.HasPrefix(code, "0x") {
		return code
	}
	return "0x" + code
}

// solc --combined-json output
type combinedOutput struct {
	Contracts map[string]struct {
		ABI json.RawMessage `json:"abi"`
		Bin string          `json:"bin"`
	} `json:"contracts"`
}

// Compile compiles the contract with the solc binary.
// The source is written into a temporary directory first.
func Compile(ctx context.Context, compiler string, fileName string, contract string, source []byte) (*Artifact, error) {
	if compiler == "" {
		compiler = DefaultCompiler
	}
	binary, err := exec.LookPath(compiler)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCompilerMissing, compiler, err)
	}

	dir, err := os.MkdirTemp("", "helios-cron-solc")
	if err != nil {
		return nil, fmt.Errorf("os.MkdirTemp: %w", err)
	}
	defer os.RemoveAll(dir)

	sourcePath := filepath.Join(dir, fileName)
	if err := os.WriteFile(sourcePath, source, 0o600); err != nil {
		return nil, fmt.Errorf("os.WriteFile: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, "--combined-json", "abi,bin", sourcePath)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("solc failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	var output combinedOutput
	if err := json.Unmarshal(stdout.Bytes(), &output); err != nil {
		return nil, fmt.Errorf("json.Unmarshal(solc output): %w", err)
	}

	for name, compiled := range output.Contracts {
		if !strings.HasSuffix(name, ":"+contract) {
			continue
		}

		contractAbi, err := decodeCombinedAbi(compiled.ABI)
		if err != nil {
			return nil, err
		}
		artifact := &Artifact{ABI: contractAbi, Bytecode: withPrefix(compiled.Bin)}
		if err := artifact.Validate(); err != nil {
			return nil, fmt.Errorf("compiled %s: %w", contract, err)
		}
		return artifact, nil
	}

	return nil, fmt.Errorf("solc output has no contract %s", contract)
}

// The older solc versions print the abi as a json string.
func decodeCombinedAbi(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '"' {
		return trimmed, nil
	}

	var unquoted string
	if err := json.Unmarshal(trimmed, &unquoted); err != nil {
		return nil, fmt.Errorf("json.Unmarshal(abi): %w", err)
	}
	return json.RawMessage(unquoted), nil
}
