package coins

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/shopspring/decimal"
)

var (
	// ErrEmptyAmount is returned when parsing an empty amount string.
	ErrEmptyAmount = errors.New("empty amount")

	// ErrInvalidAmount is returned when an amount string is not a plain
	// decimal number.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrAmountPrecision is returned when an amount has more fractional
	// digits than the coin type supports.
	ErrAmountPrecision = errors.New("amount has too many decimal places")

	// ErrAmountRange is returned when an amount exceeds the coin's
	// maximum supply.
	ErrAmountRange = errors.New("amount out of range")
)

var maxUnits = decimal.NewFromInt(btcutil.MaxSatoshi)

// ParseAmount parses a decimal amount in whole coins, e.g. "0.5", into the
// coin's smallest unit. Negative amounts parse successfully; deciding
// whether they are acceptable is left to the caller.
func (c *CoinType) ParseAmount(text string) (btcutil.Amount, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, ErrEmptyAmount
	}

	// Exponent notation is accepted by decimal but never produced by
	// wallets or typed by users.
	if strings.ContainsAny(text, "eE") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, text)
	}

	d, err := decimal.NewFromString(text)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, text)
	}

	units := d.Shift(c.Decimals)
	if !units.IsInteger() {
		return 0, fmt.Errorf("%w: %q allows %d", ErrAmountPrecision,
			text, c.Decimals)
	}

	if units.Abs().GreaterThan(maxUnits) {
		return 0, fmt.Errorf("%w: %q", ErrAmountRange, text)
	}

	return btcutil.Amount(units.IntPart()), nil
}

// FormatAmount renders an amount in whole coins without trailing zeros,
// the inverse of ParseAmount.
func (c *CoinType) FormatAmount(amt btcutil.Amount) string {
	return decimal.New(int64(amt), -c.Decimals).String()
}
