package coins

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
)

var (
	// ErrUnknownCoin is returned when a coin type lookup fails.
	ErrUnknownCoin = errors.New("unknown coin type")

	// ErrWrongNetwork is returned when an address decodes but belongs to
	// a different network than the coin type.
	ErrWrongNetwork = errors.New("address is for a different network")
)

// AddressDecoder turns an address string into an address for one coin
// type. Format rules live entirely behind this interface.
type AddressDecoder interface {
	// DecodeAddress decodes the given string or returns an error if it
	// is not a valid address for the coin type.
	DecodeAddress(addr string) (btcutil.Address, error)
}

// CoinType describes a coin the send flow can pay in.
type CoinType struct {
	// ID is the registry key, e.g. "bitcoin" or "bitcoin-testnet".
	ID string

	// Name is the human readable coin name.
	Name string

	// Symbol is the ticker symbol.
	Symbol string

	// URIScheme is the payment URI scheme (without the colon).
	URIScheme string

	// Decimals is the number of fractional digits in one whole coin.
	Decimals int32

	// Params are the chain parameters addresses are decoded under.
	Params *chaincfg.Params

	// Decoder overrides address decoding. If nil, addresses are decoded
	// with btcutil under Params.
	Decoder AddressDecoder
}

// String returns the coin type ID.
func (c *CoinType) String() string {
	return c.ID
}

// DecodeAddress decodes an address string for this coin type.
func (c *CoinType) DecodeAddress(addr string) (btcutil.Address, error) {
	if c.Decoder != nil {
		return c.Decoder.DecodeAddress(addr)
	}

	return NewParamsDecoder(c.Params).DecodeAddress(addr)
}

// ParamsDecoder decodes addresses with btcutil for a single network.
type ParamsDecoder struct {
	params *chaincfg.Params
}

// NewParamsDecoder returns a decoder for the given network.
func NewParamsDecoder(params *chaincfg.Params) *ParamsDecoder {
	return &ParamsDecoder{params: params}
}

// DecodeAddress implements AddressDecoder.
func (d *ParamsDecoder) DecodeAddress(addr string) (btcutil.Address, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("empty address")
	}

	decoded, err := btcutil.DecodeAddress(addr, d.params)
	if err != nil {
		return nil, fmt.Errorf("unable to decode address: %w", err)
	}

	// DecodeAddress accepts base58 addresses of any network sharing the
	// same version bytes, so the network has to be checked separately.
	if !decoded.IsForNet(d.params) {
		return nil, fmt.Errorf("%w: %s", ErrWrongNetwork, d.params.Name)
	}

	return decoded, nil
}

var (
	// Bitcoin is bitcoin on mainnet.
	Bitcoin = &CoinType{
		ID:        "bitcoin",
		Name:      "Bitcoin",
		Symbol:    "BTC",
		URIScheme: "bitcoin",
		Decimals:  8,
		Params:    &chaincfg.MainNetParams,
	}

	// BitcoinTestnet is bitcoin on testnet3.
	BitcoinTestnet = &CoinType{
		ID:        "bitcoin-testnet",
		Name:      "Bitcoin Testnet",
		Symbol:    "tBTC",
		URIScheme: "bitcoin",
		Decimals:  8,
		Params:    &chaincfg.TestNet3Params,
	}

	// BitcoinSignet is bitcoin on the default signet.
	BitcoinSignet = &CoinType{
		ID:        "bitcoin-signet",
		Name:      "Bitcoin Signet",
		Symbol:    "sBTC",
		URIScheme: "bitcoin",
		Decimals:  8,
		Params:    &chaincfg.SigNetParams,
	}

	// BitcoinRegtest is bitcoin on a local regression test network.
	BitcoinRegtest = &CoinType{
		ID:        "bitcoin-regtest",
		Name:      "Bitcoin Regtest",
		Symbol:    "rBTC",
		URIScheme: "bitcoin",
		Decimals:  8,
		Params:    &chaincfg.RegressionNetParams,
	}
)

var registry = map[string]*CoinType{
	Bitcoin.ID:        Bitcoin,
	BitcoinTestnet.ID: BitcoinTestnet,
	BitcoinSignet.ID:  BitcoinSignet,
	BitcoinRegtest.ID: BitcoinRegtest,
}

// Lookup returns the registered coin type with the given ID.
func Lookup(id string) (*CoinType, error) {
	coin, ok := registry[strings.ToLower(id)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCoin, id)
	}

	return coin, nil
}

// ForNetwork maps a network name as used on the command line to a coin
// type.
func ForNetwork(network string) (*CoinType, error) {
	switch network {
	case "mainnet":
		return Bitcoin, nil
	case "testnet":
		return BitcoinTestnet, nil
	case "signet":
		return BitcoinSignet, nil
	case "regtest":
		return BitcoinRegtest, nil
	default:
		return nil, fmt.Errorf("%w: network %q", ErrUnknownCoin, network)
	}
}

// IDs returns the registered coin type IDs in sorted order.
func IDs() []string {
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return ids
}
