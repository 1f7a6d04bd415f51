package mempool

import (
	"context"
	"fmt"
	"time"

	"github.com/lightningnetwork/lnd/lnwallet/chainfee"
)

// DefaultFeeCacheTTL is how long fetched fee estimates are reused.
const DefaultFeeCacheTTL = time.Minute

// FeeEstimator turns mempool.space recommended fees into fee rates for a
// confirmation target.
type FeeEstimator struct {
	client *Client
	cache  *feeCache
}

// NewFeeEstimator creates a fee estimator backed by the given client.
func NewFeeEstimator(client *Client, ttl time.Duration) *FeeEstimator {
	if ttl <= 0 {
		ttl = DefaultFeeCacheTTL
	}

	return &FeeEstimator{
		client: client,
		cache:  newFeeCache(ttl),
	}
}

// EstimateFeeRate returns the fee rate for confirmation within confTarget
// blocks. The result never drops below the relay floor.
func (f *FeeEstimator) EstimateFeeRate(ctx context.Context,
	confTarget uint32) (chainfee.SatPerKWeight, error) {

	fees, ok := f.cache.get()
	if !ok {
		fresh, err := f.client.GetFeeEstimates(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to get fee estimates: %w", err)
		}

		f.cache.set(*fresh)
		fees = *fresh
	}

	satPerVByte := fees.forTarget(confTarget)

	// 1 vB = 4 weight units, so sat/vB * 1000 / 4 = sat/kW.
	feeRate := chainfee.SatPerKWeight(satPerVByte * 1000 / 4)
	if feeRate < chainfee.FeePerKwFloor {
		log.Debugf("Fee rate %v below floor, using %v", feeRate,
			chainfee.FeePerKwFloor)

		feeRate = chainfee.FeePerKwFloor
	}

	log.Debugf("Estimated fee rate for %d blocks: %v (%d sat/vB)",
		confTarget, feeRate, satPerVByte)

	return feeRate, nil
}

// Invalidate drops cached estimates so the next call hits the API.
func (f *FeeEstimator) Invalidate() {
	f.cache.invalidate()
}
