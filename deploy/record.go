package deploy

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Record of the deployment, written once as the indented json.
type Record struct {
	Address     string          `json:"address"`
	TxHash      string          `json:"txHash"`
	DeployedAt  time.Time       `json:"deployedAt"`
	Network     string          `json:"network"`
	Deployer    string          `json:"deployer"`
	ChainID     uint64          `json:"chainId"`
	BlockNumber uint64          `json:"blockNumber"`
	ABI         json.RawMessage `json:"abi"`
}

// Save writes the record into the file, replacing the previous one.
func (record *Record) Save(path string) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("json.MarshalIndent: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("os.WriteFile(%s): %w", path, err)
	}
	return nil
}
