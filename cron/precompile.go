package cron

import (
	"github.com/CyberFFarm/Helios-Cron/blockchain/evm/abi"
)

// CreateMethod registers the job in the precompile.
const CreateMethod = "createCron"

// PrecompileABI is the part of the cron precompile interface used to register the jobs.
const PrecompileABI = `[{
	"name": "createCron",
	"type": "function",
	"stateMutability": "nonpayable",
	"inputs": [
		{"internalType": "address", "name": "contractAddress", "type": "address"},
		{"internalType": "string", "name": "abi", "type": "string"},
		{"internalType": "string", "name": "methodName", "type": "string"},
		{"internalType": "string[]", "name": "params", "type": "string[]"},
		{"internalType": "uint64", "name": "frequency", "type": "uint64"},
		{"internalType": "uint64", "name": "expirationBlock", "type": "uint64"},
		{"internalType": "uint64", "name": "gasLimit", "type": "uint64"},
		{"internalType": "uint256", "name": "maxGasPrice", "type": "uint256"},
		{"internalType": "uint256", "name": "amountToDeposit", "type": "uint256"}
	],
	"outputs": [{"internalType": "bool", "name": "success", "type": "bool"}]
}]`

// Precompile returns the parsed interface of the cron precompile.
func Precompile() (*abi.Abi, error) {
	return abi.New([]byte(PrecompileABI))
}
