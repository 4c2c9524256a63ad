// Package event summarizes the recent logs of a smartcontract.
package event

import (
	"context"
	"fmt"
	"time"

	"github.com/CyberFFarm/Helios-Cron/blockchain/evm/client"
	eth_common "github.com/ethereum/go-ethereum/common"
	eth_types "github.com/ethereum/go-ethereum/core/types"
)

// Summary is the log reduced to the place and the time it happened
type Summary struct {
	BlockNumber uint64
	TxHash      eth_common.Hash
	LogIndex    uint
	Timestamp   time.Time
}

// Activity of the address in the inclusive block range
type Activity struct {
	Address   eth_common.Address
	FromBlock uint64
	ToBlock   uint64
	Count     int       // all logs in the range
	Latest    []Summary // the most recent logs, oldest first
}

// Empty returns true if the address emitted nothing in the range
func (a Activity) Empty() bool {
	return a.Count == 0
}

// Recent returns the activity of the address over the last lookback blocks,
// with up to keep of the latest logs summarized.
func Recent(ctx context.Context, c *client.Client, address eth_common.Address, lookback uint64, keep int) (Activity, error) {
	head, err := c.RecentBlockNumber(ctx)
	if err != nil {
		return Activity{}, err
	}

	return Range(ctx, c, address, FromBlock(head, lookback), head, keep)
}

// Range returns the activity of the address in the given blocks.
func Range(ctx context.Context, c *client.Client, address eth_common.Address, from uint64, to uint64, keep int) (Activity, error) {
	logs, err := c.BlockRangeLogs(ctx, from, to, []eth_common.Address{address})
	if err != nil {
		return Activity{}, err
	}

	activity := Activity{
		Address:   address,
		FromBlock: from,
		ToBlock:   to,
		Count:     len(logs),
	}

	latest := logs
	if keep >= 0 && len(latest) > keep {
		latest = latest[len(latest)-keep:]
	}

	summaries, err := Summarize(ctx, c, latest)
	if err != nil {
		return Activity{}, err
	}
	activity.Latest = summaries

	return activity, nil
}

// Summarize attaches the block timestamps to the logs.
// The block header is requested once for the logs of the same block.
func Summarize(ctx context.Context, c *client.Client, logs []eth_types.Log) ([]Summary, error) {
	timestamps := make(map[uint64]uint64)
	summaries := make([]Summary, len(logs))

	for i, raw := range logs {
		timestamp, ok := timestamps[raw.BlockNumber]
		if !ok {
			var err error
			timestamp, err = c.BlockTimestamp(ctx, raw.BlockNumber)
			if err != nil {
				return nil, fmt.Errorf("log %d: %w", i, err)
			}
			timestamps[raw.BlockNumber] = timestamp
		}

		summaries[i] = Summary{
			BlockNumber: raw.BlockNumber,
			TxHash:      raw.TxHash,
			LogIndex:    raw.Index,
			Timestamp:   time.Unix(int64(timestamp), 0).UTC(),
		}
	}

	return summaries, nil
}

// FromBlock is the first block of the lookback window ending at head.
func FromBlock(head uint64, lookback uint64) uint64 {
	if lookback >= head {
		return 0
	}
	return head - lookback
}
