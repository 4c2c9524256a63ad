// Package contracts embeds the smartcontract scheduled by the cron job.
package contracts

import (
	_ "embed"
)

// Name of the contract in the source file
const Name = "TickContract"

// FileName of the source
const FileName = "TickContract.sol"

// Source of the contract, compiled by solc on deploy.
//
//go:embed TickContract.sol
var Source []byte
