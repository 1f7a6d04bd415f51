// Package payuri resolves payment URIs and manually entered fields into a
// payment target.
//
// The accepted URI format follows BIP-21:
//
//	<scheme>:<address>[?amount=<decimal>][&label=<text>][&message=<text>]
//
// Resolution is pure and may be invoked from any goroutine.
package payuri

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/lightninglabs/sendcoins/coins"
)

var (
	// ErrMissingAddress is returned when a URI carries no address.
	ErrMissingAddress = errors.New("missing address")

	// ErrUnsupportedScheme is returned when the URI scheme does not match
	// the coin type.
	ErrUnsupportedScheme = errors.New("unsupported scheme")

	// ErrRequiredParam is returned for unknown req- parameters, which
	// BIP-21 obliges us to reject.
	ErrRequiredParam = errors.New("unsupported required parameter")
)

// PaymentTarget is where and how much to pay.
type PaymentTarget struct {
	// Address is the destination address.
	Address btcutil.Address

	// Amount is the requested amount, nil if the URI did not carry one.
	Amount *btcutil.Amount

	// Label is an optional name for the recipient.
	Label string

	// Message is an optional free-form note.
	Message string
}

// ParseError describes why a payment URI could not be resolved.
type ParseError struct {
	// Input is the raw string that failed to resolve.
	Input string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying cause.
func (e *ParseError) Unwrap() error {
	return e.Err
}

func parseErr(input string, format string, args ...interface{}) error {
	return &ParseError{Input: input, Err: fmt.Errorf(format, args...)}
}

// Resolve parses a payment URI, or a bare address, for the given coin type.
// A URI without an address is always an error.
func Resolve(raw string, coin *coins.CoinType) (*PaymentTarget, error) {
	input := strings.TrimSpace(raw)
	if input == "" {
		return nil, &ParseError{Input: raw, Err: ErrMissingAddress}
	}

	scheme, rest, hasScheme := strings.Cut(input, ":")
	if !hasScheme {
		return resolveAddress(raw, input, coin)
	}

	if !strings.EqualFold(scheme, coin.URIScheme) {
		return nil, parseErr(raw, "%w %q for %s", ErrUnsupportedScheme,
			scheme, coin.Name)
	}

	// Some wallets emit bitcoin://addr.
	rest = strings.TrimPrefix(rest, "//")

	addrPart, query, _ := strings.Cut(rest, "?")
	addrStr, err := url.PathUnescape(addrPart)
	if err != nil {
		return nil, parseErr(raw, "bad address encoding: %w", err)
	}

	params, err := url.ParseQuery(query)
	if err != nil {
		return nil, parseErr(raw, "bad query: %w", err)
	}

	target := &PaymentTarget{}
	for key, values := range params {
		if len(values) > 1 {
			return nil, parseErr(raw, "duplicate parameter %q", key)
		}
		value := values[0]

		switch key {
		case "amount":
			amt, err := coin.ParseAmount(value)
			if err != nil {
				return nil, parseErr(raw, "bad amount: %w", err)
			}
			if amt < 0 {
				return nil, parseErr(raw, "negative amount %q",
					value)
			}
			target.Amount = &amt

		case "label":
			target.Label = value

		case "message":
			target.Message = value

		default:
			if strings.HasPrefix(key, "req-") {
				return nil, parseErr(raw, "%w %q",
					ErrRequiredParam, key)
			}
		}
	}

	if strings.TrimSpace(addrStr) == "" {
		return nil, &ParseError{Input: raw, Err: ErrMissingAddress}
	}

	target.Address, err = coin.DecodeAddress(addrStr)
	if err != nil {
		return nil, parseErr(raw, "bad address: %w", err)
	}

	return target, nil
}

func resolveAddress(raw, addrStr string, coin *coins.CoinType) (
	*PaymentTarget, error) {

	addr, err := coin.DecodeAddress(addrStr)
	if err != nil {
		return nil, parseErr(raw, "bad address: %w", err)
	}

	return &PaymentTarget{Address: addr}, nil
}

// Encode renders a target as a payment URI for the coin type.
func Encode(target *PaymentTarget, coin *coins.CoinType) string {
	var b strings.Builder
	b.WriteString(coin.URIScheme)
	b.WriteByte(':')
	if target.Address != nil {
		b.WriteString(target.Address.String())
	}

	sep := byte('?')
	add := func(key, value string) {
		b.WriteByte(sep)
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(value))
		sep = '&'
	}

	if target.Amount != nil {
		add("amount", coin.FormatAmount(*target.Amount))
	}
	if target.Label != "" {
		add("label", target.Label)
	}
	if target.Message != "" {
		add("message", target.Message)
	}

	return b.String()
}
