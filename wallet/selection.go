package wallet

import (
	"fmt"
	"sort"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/wallet/txrules"
	"github.com/btcsuite/btcwallet/wallet/txsizes"
)

// coinSelection is the result of selecting inputs for a single payment.
type coinSelection struct {
	inputs []*Utxo
	total  btcutil.Amount
	fee    btcutil.Amount
	change btcutil.Amount
}

// inputCounts tallies selected inputs per script kind.
type inputCounts struct {
	p2pkh, p2tr, p2wpkh, nested int
}

func (c *inputCounts) add(kind inputKind) {
	switch kind {
	case inputP2PKH:
		c.p2pkh++
	case inputP2TR:
		c.p2tr++
	case inputP2WPKH:
		c.p2wpkh++
	case inputNestedP2WPKH:
		c.nested++
	}
}

func (c *inputCounts) vsize(outputs []*wire.TxOut, changeScriptSize int) int {
	return txsizes.EstimateVirtualSize(
		c.p2pkh, c.p2tr, c.p2wpkh, c.nested, outputs, changeScriptSize,
	)
}

// selectCoins picks the largest outputs first until they cover the payment
// output plus the fee at feePerKvB. Change below the dust limit is left to
// the miner.
func selectCoins(utxos []*Utxo, payment *wire.TxOut,
	feePerKvB btcutil.Amount, changeScriptSize int) (*coinSelection,
	error) {

	eligible := make([]*Utxo, 0, len(utxos))
	var available btcutil.Amount
	for _, utxo := range utxos {
		if classifyInput(utxo.TxOut.PkScript) == inputUnknown {
			log.Debugf("Skipping %v with unsupported script",
				utxo.OutPoint)
			continue
		}

		eligible = append(eligible, utxo)
		available += utxo.Value()
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].Value() > eligible[j].Value()
	})

	var (
		outputs = []*wire.TxOut{payment}
		amount  = btcutil.Amount(payment.Value)
		counts  inputCounts
		sel     = &coinSelection{}
		needed  = amount
		change  = wire.NewTxOut(0, changeTemplate(changeScriptSize))
	)
	for _, utxo := range eligible {
		sel.inputs = append(sel.inputs, utxo)
		sel.total += utxo.Value()
		counts.add(classifyInput(utxo.TxOut.PkScript))

		vsize := counts.vsize(outputs, changeScriptSize)
		fee := txrules.FeeForSerializeSize(feePerKvB, vsize)
		needed = amount + fee
		if sel.total < needed {
			continue
		}

		change.Value = int64(sel.total - needed)
		if txrules.IsDustOutput(change, txrules.DefaultRelayFeePerKb) {
			// Without a change output the whole remainder is fee,
			// which always covers the smaller transaction.
			sel.fee = sel.total - amount
			sel.change = 0

			return sel, nil
		}

		sel.fee = fee
		sel.change = btcutil.Amount(change.Value)

		return sel, nil
	}

	return nil, fmt.Errorf("%w: need %v, have %v", ErrInsufficientFunds,
		needed, available)
}

// changeTemplate returns a stand-in change script of the given size for dust
// checks. P2WPKH and P2TR sized scripts are shaped as witness programs so
// they get the witness discount.
func changeTemplate(size int) []byte {
	script := make([]byte, size)

	switch size {
	case txsizes.P2WPKHPkScriptSize:
		script[0] = txscript.OP_0
		script[1] = txscript.OP_DATA_20

	case txsizes.P2TRPkScriptSize:
		script[0] = txscript.OP_1
		script[1] = txscript.OP_DATA_32
	}

	return script
}
