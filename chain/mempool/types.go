package mempool

import (
	"time"
)

// FeeEstimates represents fee estimates for different confirmation targets
// in sat/vB, as returned by /v1/fees/recommended.
type FeeEstimates struct {
	FastestFee  int64 `json:"fastestFee"`  // Next block
	HalfHourFee int64 `json:"halfHourFee"` // ~3 blocks
	HourFee     int64 `json:"hourFee"`     // ~6 blocks
	EconomyFee  int64 `json:"economyFee"`  // ~12 blocks
	MinimumFee  int64 `json:"minimumFee"`  // Minimum relay fee
}

// forTarget maps a confirmation target in blocks to an estimate.
func (f *FeeEstimates) forTarget(confTarget uint32) int64 {
	switch {
	case confTarget <= 1:
		return f.FastestFee
	case confTarget <= 3:
		return f.HalfHourFee
	case confTarget <= 6:
		return f.HourFee
	case confTarget <= 12:
		return f.EconomyFee
	default:
		return f.MinimumFee
	}
}

// cacheEntry is a cache entry with TTL.
type cacheEntry struct {
	fees      FeeEstimates
	expiresAt time.Time
}
