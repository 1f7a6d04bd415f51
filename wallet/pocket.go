package wallet

import (
	"context"
	"sync"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/wallet/txsizes"
	"github.com/lightninglabs/sendcoins/coins"
)

// Utxo is a spendable output held by a pocket.
type Utxo struct {
	// OutPoint identifies the output.
	OutPoint wire.OutPoint

	// TxOut carries the value and the script being spent.
	TxOut *wire.TxOut

	// Confirmations is the number of blocks confirming the output.
	Confirmations int64
}

// Value returns the output's value.
func (u *Utxo) Value() btcutil.Amount {
	return btcutil.Amount(u.TxOut.Value)
}

// Pocket is a coin-type scoped source of funds.
type Pocket interface {
	// CoinType returns the coin type this pocket holds.
	CoinType() *coins.CoinType

	// ListUnspent returns the outputs with at least minConfs
	// confirmations that are currently free to spend.
	ListUnspent(ctx context.Context, minConfs int32) ([]*Utxo, error)

	// ChangeScriptSize returns the size of the scripts ChangeScript
	// produces.
	ChangeScriptSize() int

	// ChangeScript returns a fresh script to receive change on.
	ChangeScript(ctx context.Context) ([]byte, error)
}

// MemoryPocket is a Pocket over a fixed set of outputs. It is used for
// watch-only previews and in tests.
type MemoryPocket struct {
	coin         *coins.CoinType
	changeScript []byte

	mu    sync.Mutex
	utxos []*Utxo
}

// NewMemoryPocket creates a pocket holding the given outputs, paying change
// to changeScript.
func NewMemoryPocket(coin *coins.CoinType, changeScript []byte,
	utxos ...*Utxo) *MemoryPocket {

	return &MemoryPocket{
		coin:         coin,
		changeScript: changeScript,
		utxos:        utxos,
	}
}

// AddUtxo adds an output to the pocket.
func (p *MemoryPocket) AddUtxo(utxo *Utxo) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.utxos = append(p.utxos, utxo)
}

// CoinType returns the coin type this pocket holds.
func (p *MemoryPocket) CoinType() *coins.CoinType {
	return p.coin
}

// ListUnspent returns the outputs with at least minConfs confirmations.
func (p *MemoryPocket) ListUnspent(_ context.Context,
	minConfs int32) ([]*Utxo, error) {

	p.mu.Lock()
	defer p.mu.Unlock()

	utxos := make([]*Utxo, 0, len(p.utxos))
	for _, utxo := range p.utxos {
		if utxo.Confirmations < int64(minConfs) {
			continue
		}
		utxos = append(utxos, utxo)
	}

	return utxos, nil
}

// ChangeScriptSize returns the size of the change script.
func (p *MemoryPocket) ChangeScriptSize() int {
	return len(p.changeScript)
}

// ChangeScript returns the pocket's change script.
func (p *MemoryPocket) ChangeScript(context.Context) ([]byte, error) {
	return p.changeScript, nil
}

// ScriptSizeForAddress returns the output script size for an address type,
// or P2WPKH's size when the type is unknown.
func ScriptSizeForAddress(addr btcutil.Address) int {
	switch addr.(type) {
	case *btcutil.AddressPubKeyHash:
		return txsizes.P2PKHPkScriptSize

	case *btcutil.AddressScriptHash:
		return txsizes.NestedP2WPKHPkScriptSize

	case *btcutil.AddressTaproot:
		return txsizes.P2TRPkScriptSize

	default:
		return txsizes.P2WPKHPkScriptSize
	}
}

// inputKind buckets spendable scripts the way the size estimator counts
// them.
type inputKind uint8

const (
	inputUnknown inputKind = iota
	inputP2PKH
	inputP2TR
	inputP2WPKH
	inputNestedP2WPKH
)

func classifyInput(pkScript []byte) inputKind {
	switch {
	case txscript.IsPayToWitnessPubKeyHash(pkScript):
		return inputP2WPKH

	case txscript.IsPayToTaproot(pkScript):
		return inputP2TR

	case txscript.IsPayToPubKeyHash(pkScript):
		return inputP2PKH

	// P2SH outputs held by a wallet are assumed to be nested P2WPKH.
	case txscript.IsPayToScriptHash(pkScript):
		return inputNestedP2WPKH

	default:
		return inputUnknown
	}
}
