package cron

import (
	"math/big"

	"github.com/CyberFFarm/Helios-Cron/blockchain/evm/util"
	eth_common "github.com/ethereum/go-ethereum/common"
)

// Job is the set of createCron arguments.
type Job struct {
	Target          eth_common.Address
	ABI             string // interface of the scheduled method
	Method          string
	Params          []string
	Frequency       uint64 // blocks between the executions
	ExpirationBlock uint64
	GasLimit        uint64   // of each execution
	MaxGasPrice     *big.Int // wei
	Deposit         *big.Int // wei
}

// Args returns the createCron arguments in their order.
func (job Job) Args() []interface{} {
	params := job.Params
	if params == nil {
		params = []string{}
	}

	return []interface{}{
		job.Target,
		job.ABI,
		job.Method,
		params,
		job.Frequency,
		job.ExpirationBlock,
		job.GasLimit,
		job.MaxGasPrice,
		job.Deposit,
	}
}

// BlockInfo is the block the job is registered at, and the block it expires.
type BlockInfo struct {
	Current    uint64
	Expiration uint64
}

// Validity is the amount of blocks the job lives.
func (info BlockInfo) Validity() uint64 {
	return info.Expiration - info.Current
}

// ExpirationBlock adds the weeks of blocks to the current block.
func ExpirationBlock(current uint64, weeks uint64, blockTime float64) uint64 {
	return current + util.BlocksPerWeek(blockTime)*weeks
}

// Schedule is the estimate of the next execution.
type Schedule struct {
	Current    uint64
	BlocksLeft uint64
	Minutes    int64 // rounded to the closest minute
}

// NextExecution estimates when the job runs next, assuming it runs
// on the blocks divisible by the frequency.
func NextExecution(current uint64, frequency uint64, blockTime float64) Schedule {
	if frequency == 0 {
		return Schedule{Current: current}
	}

	blocksLeft := frequency - current%frequency
	return Schedule{
		Current:    current,
		BlocksLeft: blocksLeft,
		Minutes:    util.MinutesFor(blocksLeft, blockTime),
	}
}
