package wallet

const (
	// DefaultConfTarget is the default confirmation target in blocks.
	DefaultConfTarget = 6

	// DefaultMinConfs is the default minimum confirmations for coin
	// selection.
	DefaultMinConfs = 1
)

// Config holds the configuration for the request builder.
type Config struct {
	// FeeEstimator provides the fee rate for new requests.
	FeeEstimator FeeEstimator

	// ConfTarget is the confirmation target used for fee estimation.
	// Default: 6
	ConfTarget uint32

	// MinConfs is the minimum confirmations for coin selection.
	// Default: 1
	MinConfs int32
}

// DefaultConfig returns a default configuration.
func DefaultConfig(feeEstimator FeeEstimator) *Config {
	return &Config{
		FeeEstimator: feeEstimator,
		ConfTarget:   DefaultConfTarget,
		MinConfs:     DefaultMinConfs,
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.FeeEstimator == nil {
		return ErrFeeEstimatorRequired
	}

	if c.ConfTarget == 0 {
		c.ConfTarget = DefaultConfTarget
	}

	if c.MinConfs < 0 {
		c.MinConfs = 0
	}

	return nil
}
