package payuri

import (
	"errors"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/lightninglabs/sendcoins/coins"
	"github.com/stretchr/testify/require"
)

const mainnetAddr = "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4"

// plainAddress is an address that is whatever string it was given.
type plainAddress string

func (a plainAddress) String() string                 { return string(a) }
func (a plainAddress) EncodeAddress() string          { return string(a) }
func (a plainAddress) ScriptAddress() []byte          { return []byte(a) }
func (a plainAddress) IsForNet(*chaincfg.Params) bool { return true }

type plainDecoder struct{}

func (plainDecoder) DecodeAddress(addr string) (btcutil.Address, error) {
	if addr == "bad" {
		return nil, errors.New("undecodable")
	}
	return plainAddress(addr), nil
}

var testCoin = &coins.CoinType{
	ID:        "coin",
	Name:      "Test Coin",
	URIScheme: "coin",
	Decimals:  8,
	Decoder:   plainDecoder{},
}

// TestResolve tests payment URI resolution.
func TestResolve(t *testing.T) {
	t.Parallel()

	amt := func(a btcutil.Amount) *btcutil.Amount { return &a }

	tests := []struct {
		name    string
		raw     string
		want    *PaymentTarget
		wantErr error
	}{
		{
			name: "address amount label",
			raw:  "coin:addr2?amount=1.0&label=Bob",
			want: &PaymentTarget{
				Address: plainAddress("addr2"),
				Amount:  amt(100_000_000),
				Label:   "Bob",
			},
		},
		{
			name: "address only",
			raw:  "coin:addr1",
			want: &PaymentTarget{Address: plainAddress("addr1")},
		},
		{
			name: "upper case scheme with slashes",
			raw:  "COIN://addr1?message=lunch%20money",
			want: &PaymentTarget{
				Address: plainAddress("addr1"),
				Message: "lunch money",
			},
		},
		{
			name: "bare address",
			raw:  "  addr3 ",
			want: &PaymentTarget{Address: plainAddress("addr3")},
		},
		{
			name: "unknown optional param ignored",
			raw:  "coin:addr1?somethingnew=1",
			want: &PaymentTarget{Address: plainAddress("addr1")},
		},
		{
			name:    "missing address",
			raw:     "coin:?amount=1",
			wantErr: ErrMissingAddress,
		},
		{
			name:    "empty input",
			raw:     "   ",
			wantErr: ErrMissingAddress,
		},
		{
			name:    "other scheme",
			raw:     "litecoin:addr1",
			wantErr: ErrUnsupportedScheme,
		},
		{
			name:    "required param",
			raw:     "coin:addr1?req-somethingnew=1",
			wantErr: ErrRequiredParam,
		},
		{
			name:    "bad amount",
			raw:     "coin:addr1?amount=lots",
			wantErr: coins.ErrInvalidAmount,
		},
		{
			name: "negative amount",
			raw:  "coin:addr1?amount=-1",
		},
		{
			name: "duplicate amount",
			raw:  "coin:addr1?amount=1&amount=2",
		},
		{
			name: "undecodable address",
			raw:  "coin:bad",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			target, err := Resolve(tt.raw, testCoin)
			if tt.want == nil {
				require.Error(t, err)
				require.Nil(t, target)

				var parseErr *ParseError
				require.ErrorAs(t, err, &parseErr)
				require.Equal(t, tt.raw, parseErr.Input)

				if tt.wantErr != nil {
					require.ErrorIs(t, err, tt.wantErr)
				}
				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.want, target)
		})
	}
}

// TestResolveRealAddress tests resolution with btcutil address decoding.
func TestResolveRealAddress(t *testing.T) {
	t.Parallel()

	target, err := Resolve(
		"bitcoin:"+mainnetAddr+"?amount=0.001", coins.Bitcoin,
	)
	require.NoError(t, err)
	require.Equal(t, mainnetAddr, target.Address.EncodeAddress())
	require.Equal(t, btcutil.Amount(100_000), *target.Amount)

	_, err = Resolve("bitcoin:"+mainnetAddr, coins.BitcoinTestnet)
	require.Error(t, err)
}

// TestEncodeRoundTrip tests that encoded targets resolve to themselves.
func TestEncodeRoundTrip(t *testing.T) {
	t.Parallel()

	amount := btcutil.Amount(12_345)
	targets := []*PaymentTarget{
		{Address: plainAddress("addr1")},
		{Address: plainAddress("addr2"), Amount: &amount},
		{
			Address: plainAddress("addr3"),
			Amount:  &amount,
			Label:   "Bob & Alice",
			Message: "rent=paid?",
		},
	}

	for _, target := range targets {
		uri := Encode(target, testCoin)

		resolved, err := Resolve(uri, testCoin)
		require.NoError(t, err, uri)
		require.Equal(t, target, resolved, uri)
	}

	require.Equal(
		t, "coin:addr2?amount=0.00012345",
		Encode(targets[1], testCoin),
	)
}
