package cron

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/CyberFFarm/Helios-Cron/blockchain/evm/abi"
	"gopkg.in/yaml.v3"
)

// Manifest overrides the scheduled call described by the environment.
// The empty fields keep the values of the environment.
//
//	method: tick
//	params: []
//	frequency: 600
//	abi: '[{"name":"tick","type":"function","inputs":[],"outputs":[],"stateMutability":"nonpayable"}]'
type Manifest struct {
	Method    string   `yaml:"method"`
	Params    []string `yaml:"params"`
	ABI       string   `yaml:"abi"`
	Frequency uint64   `yaml:"frequency"`
}

// LoadManifest reads the yaml file.
func LoadManifest(path string) (*Manifest, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("os.Open: %w", err)
	}
	defer file.Close()

	manifest, err := ParseManifest(file)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return manifest, nil
}

// ParseManifest decodes the yaml. The unknown fields are rejected.
func ParseManifest(reader io.Reader) (*Manifest, error) {
	decoder := yaml.NewDecoder(reader)
	decoder.KnownFields(true)

	var manifest Manifest
	if err := decoder.Decode(&manifest); err != nil {
		if errors.Is(err, io.EOF) {
			return &manifest, nil
		}
		return nil, fmt.Errorf("yaml.Decode: %w", err)
	}

	if err := manifest.Validate(); err != nil {
		return nil, err
	}
	return &manifest, nil
}

// Validate checks that the given interface has the scheduled method.
func (manifest *Manifest) Validate() error {
	if manifest.ABI == "" {
		return nil
	}
	if manifest.Method == "" {
		return fmt.Errorf("the abi is set without the method")
	}

	parsed, err := abi.New([]byte(manifest.ABI))
	if err != nil {
		return fmt.Errorf("abi: %w", err)
	}
	if !parsed.HasMethod(manifest.Method) {
		return fmt.Errorf("the abi has no method %s", manifest.Method)
	}
	return nil
}
