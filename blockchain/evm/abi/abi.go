// Package abi is the wrapper over the go-ethereum's smartcontract interface.
// It keeps the raw json along with the parsed interface, so the json could be
// stored in the deployment record or registered in the cron job.
package abi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	eth_common "github.com/ethereum/go-ethereum/common"
)

// Abi is the parsed smartcontract interface
type Abi struct {
	raw      json.RawMessage
	geth_abi abi.ABI // interface
}

// New parses the json interface.
func New(raw []byte) (*Abi, error) {
	geth_abi, err := abi.JSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("abi.JSON: %w", err)
	}

	return &Abi{
		raw:      append(json.RawMessage(nil), raw...),
		geth_abi: geth_abi,
	}, nil
}

// Raw returns the json as it was given
func (a *Abi) Raw() json.RawMessage {
	return a.raw
}

// Returns an abi.Method from geth
func (a *Abi) GetMethod(method string) (*abi.Method, error) {
	m, ok := a.geth_abi.Methods[method]
	if !ok {
		return nil, fmt.Errorf("method %s not found in abi", method)
	}

	return &m, nil
}

// HasMethod returns true if the interface has the method
func (a *Abi) HasMethod(method string) bool {
	_, ok := a.geth_abi.Methods[method]
	return ok
}

// Pack encodes the method call with the arguments.
func (a *Abi) Pack(method string, args ...interface{}) ([]byte, error) {
	data, err := a.geth_abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("abi.Pack(%s): %w", method, err)
	}
	return data, nil
}

// Unpack decodes the outputs of the method.
func (a *Abi) Unpack(method string, data []byte) ([]interface{}, error) {
	outputs, err := a.geth_abi.Unpack(method, data)
	if err != nil {
		return nil, fmt.Errorf("abi.Unpack(%s): %w", method, err)
	}
	return outputs, nil
}

// Call executes the read only method on the latest state and returns the decoded outputs.
func (a *Abi) Call(ctx context.Context, caller ethereum.ContractCaller, to eth_common.Address, method string, args ...interface{}) ([]interface{}, error) {
	data, err := a.Pack(method, args...)
	if err != nil {
		return nil, err
	}

	reply, err := caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("provider call %s on %s: %w", method, to.Hex(), err)
	}

	return a.Unpack(method, reply)
}

// DecodeInput returns the method name and its arguments from the transaction data.
//
// The arguments are returned as map of argument name => value
func (a *Abi) DecodeInput(data []byte) (string, map[string]interface{}, error) {
	inputs := map[string]interface{}{}

	if len(data) < 4 {
		return "", inputs, fmt.Errorf("transaction data has no method signature")
	}

	// recover Method from signature and ABI
	method, err := a.geth_abi.MethodById(data[:4])
	if err != nil {
		return "", inputs, fmt.Errorf("failed to find a method by its signature: %w", err)
	}

	err = method.Inputs.UnpackIntoMap(inputs, data[4:])
	if err != nil {
		return method.Name, inputs, fmt.Errorf("failed to parse method input parameters into map: %w", err)
	}

	return method.Name, inputs, nil
}

type minimalMethod struct {
	Name            string     `json:"name"`
	Type            string     `json:"type"`
	Inputs          []struct{} `json:"inputs"`
	Outputs         []struct{} `json:"outputs"`
	StateMutability string     `json:"stateMutability"`
}

// MinimalJSON describes argument-less, non payable methods.
// The cron precompile needs only the interface of the scheduled method.
func MinimalJSON(methods ...string) (string, error) {
	entries := make([]minimalMethod, len(methods))
	for i, name := range methods {
		entries[i] = minimalMethod{
			Name:            name,
			Type:            "function",
			Inputs:          []struct{}{},
			Outputs:         []struct{}{},
			StateMutability: "nonpayable",
		}
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("json.Marshal: %w", err)
	}
	return string(data), nil
}
