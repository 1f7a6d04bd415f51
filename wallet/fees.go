package wallet

import (
	"context"

	"github.com/lightningnetwork/lnd/lnwallet/chainfee"
)

// FeeEstimator provides fee rates for a confirmation target.
type FeeEstimator interface {
	// EstimateFeeRate returns the fee rate needed to confirm within
	// confTarget blocks.
	EstimateFeeRate(ctx context.Context,
		confTarget uint32) (chainfee.SatPerKWeight, error)
}

// StaticFeeEstimator always returns the same fee rate.
type StaticFeeEstimator chainfee.SatPerKWeight

// EstimateFeeRate returns the static fee rate.
func (s StaticFeeEstimator) EstimateFeeRate(context.Context,
	uint32) (chainfee.SatPerKWeight, error) {

	return chainfee.SatPerKWeight(s), nil
}
