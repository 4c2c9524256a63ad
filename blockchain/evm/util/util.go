// Package util converts between wei and human amounts,
// and between block counts and wall clock estimates.
package util

import (
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	etherDecimals int32 = 18
	gweiDecimals  int32 = 9

	// DefaultBlockTime is the average block time of the chain in seconds.
	DefaultBlockTime = 1.2
)

// ParseEther converts the amount of whole tokens, like "0.02", into wei.
func ParseEther(value string) (*big.Int, error) {
	return parseUnits(value, etherDecimals)
}

// ParseGwei converts the amount of gwei, like "2", into wei.
func ParseGwei(value string) (*big.Int, error) {
	return parseUnits(value, gweiDecimals)
}

func parseUnits(value string, decimals int32) (*big.Int, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return nil, fmt.Errorf("decimal.NewFromString(%q): %w", value, err)
	}
	if amount.IsNegative() {
		return nil, fmt.Errorf("amount %q is negative", value)
	}

	scaled := amount.Shift(decimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("amount %q has more than %d decimals", value, decimals)
	}

	return scaled.BigInt(), nil
}

// FormatEther converts wei to whole tokens without trailing zeros.
func FormatEther(wei *big.Int) string {
	return formatUnits(wei, etherDecimals)
}

// FormatGwei converts wei to gwei without trailing zeros.
func FormatGwei(wei *big.Int) string {
	return formatUnits(wei, gweiDecimals)
}

func formatUnits(wei *big.Int, decimals int32) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, -decimals).String()
}

// BlocksToDuration estimates how long the given amount of blocks take.
func BlocksToDuration(blocks uint64, blockTime float64) time.Duration {
	return time.Duration(float64(blocks) * blockTime * float64(time.Second))
}

// FormatBlocks prints the rough time the blocks take: "2d 3h", "4h 10m" or "6m".
func FormatBlocks(blocks uint64, blockTime float64) string {
	seconds := float64(blocks) * blockTime
	minutes := int64(math.Floor(seconds / 60))
	hours := minutes / 60
	days := hours / 24

	if days > 0 {
		return fmt.Sprintf("%dd %dh", days, hours%24)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes%60)
	}
	return fmt.Sprintf("%dm", minutes)
}

// BlocksPerWeek is the amount of blocks produced in a week.
func BlocksPerWeek(blockTime float64) uint64 {
	return uint64(math.Floor(7 * 24 * 60 * 60 / blockTime))
}

// MinutesFor rounds the time of the blocks to the closest minute.
func MinutesFor(blocks uint64, blockTime float64) int64 {
	return int64(math.Round(BlocksToDuration(blocks, blockTime).Minutes()))
}
