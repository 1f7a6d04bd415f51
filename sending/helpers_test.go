package sending

import (
	"errors"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/lightninglabs/sendcoins/coins"
)

// plainAddress is an address that is whatever string it was given.
type plainAddress string

func (a plainAddress) String() string                 { return string(a) }
func (a plainAddress) EncodeAddress() string          { return string(a) }
func (a plainAddress) ScriptAddress() []byte          { return []byte(a) }
func (a plainAddress) IsForNet(*chaincfg.Params) bool { return true }

// plainDecoder accepts every address starting with "addr".
type plainDecoder struct{}

func (plainDecoder) DecodeAddress(addr string) (btcutil.Address, error) {
	if len(addr) < 4 || addr[:4] != "addr" {
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

func amt(a btcutil.Amount) *btcutil.Amount {
	return &a
}
