package coins

import (
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/stretchr/testify/require"
)

const (
	mainnetP2WPKH = "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4"
	testnetP2WPKH = "tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx"
)

// TestParseAmount tests decimal amount parsing into satoshis.
func TestParseAmount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		text    string
		want    btcutil.Amount
		wantErr error
	}{
		{name: "whole coin", text: "1", want: 100_000_000},
		{name: "trailing zero", text: "1.0", want: 100_000_000},
		{name: "half", text: "0.5", want: 50_000_000},
		{name: "one satoshi", text: "0.00000001", want: 1},
		{name: "surrounding space", text: " 2.5 ", want: 250_000_000},
		{name: "zero", text: "0", want: 0},
		{name: "negative", text: "-1", want: -100_000_000},
		{name: "empty", text: "", wantErr: ErrEmptyAmount},
		{name: "letters", text: "abc", wantErr: ErrInvalidAmount},
		{name: "exponent", text: "1e3", wantErr: ErrInvalidAmount},
		{
			name:    "too precise",
			text:    "0.000000001",
			wantErr: ErrAmountPrecision,
		},
		{
			name:    "above supply",
			text:    "21000001",
			wantErr: ErrAmountRange,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			amt, err := Bitcoin.ParseAmount(tt.text)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.want, amt)
		})
	}
}

// TestFormatAmount tests that formatting is the inverse of parsing.
func TestFormatAmount(t *testing.T) {
	t.Parallel()

	require.Equal(t, "1", Bitcoin.FormatAmount(100_000_000))
	require.Equal(t, "0.5", Bitcoin.FormatAmount(50_000_000))
	require.Equal(t, "0.00000001", Bitcoin.FormatAmount(1))

	for _, amt := range []btcutil.Amount{1, 546, 12_345_678, 2_100_000} {
		parsed, err := Bitcoin.ParseAmount(Bitcoin.FormatAmount(amt))
		require.NoError(t, err)
		require.Equal(t, amt, parsed)
	}
}

// TestDecodeAddress tests network-aware address decoding.
func TestDecodeAddress(t *testing.T) {
	t.Parallel()

	addr, err := Bitcoin.DecodeAddress(mainnetP2WPKH)
	require.NoError(t, err)
	require.Equal(t, mainnetP2WPKH, addr.EncodeAddress())

	addr, err = BitcoinTestnet.DecodeAddress(testnetP2WPKH)
	require.NoError(t, err)
	require.Equal(t, testnetP2WPKH, addr.EncodeAddress())

	_, err = Bitcoin.DecodeAddress(testnetP2WPKH)
	require.Error(t, err)

	_, err = Bitcoin.DecodeAddress("")
	require.Error(t, err)

	_, err = Bitcoin.DecodeAddress("not-an-address")
	require.Error(t, err)
}

// TestLookup tests the coin type registry.
func TestLookup(t *testing.T) {
	t.Parallel()

	coin, err := Lookup("BITCOIN-testnet")
	require.NoError(t, err)
	require.Same(t, BitcoinTestnet, coin)

	_, err = Lookup("dogecoin")
	require.ErrorIs(t, err, ErrUnknownCoin)

	coin, err = ForNetwork("regtest")
	require.NoError(t, err)
	require.Same(t, BitcoinRegtest, coin)

	_, err = ForNetwork("simnet")
	require.ErrorIs(t, err, ErrUnknownCoin)

	require.Equal(t, []string{
		"bitcoin", "bitcoin-regtest", "bitcoin-signet",
		"bitcoin-testnet",
	}, IDs())
}
