package wallet

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightninglabs/sendcoins/coins"
	"github.com/lightningnetwork/lnd/lnwallet/chainfee"
)

// SendRequest is an unsigned spend paying a single destination.
type SendRequest struct {
	// Coin is the coin type being spent.
	Coin *coins.CoinType

	// Destination is the address being paid.
	Destination btcutil.Address

	// Amount is the value paid to Destination.
	Amount btcutil.Amount

	// Fee is the absolute fee of the transaction.
	Fee btcutil.Amount

	// FeeRate is the fee rate the transaction was built for.
	FeeRate chainfee.SatPerKWeight

	// Packet is the unsigned transaction with its previous outputs.
	Packet *psbt.Packet

	// ChangeIndex is the index of the change output, -1 if there is
	// none.
	ChangeIndex int32
}

// Outpoints returns the outputs the request spends.
func (r *SendRequest) Outpoints() []wire.OutPoint {
	outpoints := make([]wire.OutPoint, 0, len(r.Packet.UnsignedTx.TxIn))
	for _, txIn := range r.Packet.UnsignedTx.TxIn {
		outpoints = append(outpoints, txIn.PreviousOutPoint)
	}

	return outpoints
}

// Change returns the change amount, zero if there is no change output.
func (r *SendRequest) Change() btcutil.Amount {
	if r.ChangeIndex < 0 {
		return 0
	}

	return btcutil.Amount(r.Packet.UnsignedTx.TxOut[r.ChangeIndex].Value)
}

// Encode returns the unsigned packet as base64.
func (r *SendRequest) Encode() (string, error) {
	return r.Packet.B64Encode()
}
