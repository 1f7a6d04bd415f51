package wallet

import "errors"

var (
	// ErrNoSuchPocket is returned when the wallet has no funding pocket
	// for the requested coin type.
	ErrNoSuchPocket = errors.New("no pocket for coin type")

	// ErrPocketExists is returned when a second pocket is added for a
	// coin type.
	ErrPocketExists = errors.New("pocket already exists for coin type")

	// ErrInsufficientFunds is returned when the pocket's spendable funds
	// cannot cover the amount plus the fee.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrDustOutput is returned when the amount to send is below the dust
	// limit for the destination script.
	ErrDustOutput = errors.New("amount is dust")

	// ErrInvalidAmount is returned for zero or negative amounts.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrSigningCredentials is returned by signers when the credentials
	// needed to authorize a spend are wrong or missing.
	ErrSigningCredentials = errors.New("signing credentials rejected")

	// ErrFeeEstimatorRequired is returned when the wallet is configured
	// without a fee source.
	ErrFeeEstimatorRequired = errors.New("fee estimator is required")
)
