package wallet

import (
	"context"
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/wallet/txrules"
	"github.com/davecgh/go-spew/spew"
	"github.com/lightninglabs/sendcoins/coins"
)

// Wallet builds unsigned send requests from its pockets. Building never
// locks outputs; the signer is responsible for that.
type Wallet struct {
	cfg *Config

	pockets map[string]Pocket
	mu      sync.RWMutex
}

// New creates a new Wallet.
func New(cfg *Config) (*Wallet, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Wallet{
		cfg:     cfg,
		pockets: make(map[string]Pocket),
	}, nil
}

// AddPocket registers the funding pocket for the pocket's coin type.
func (w *Wallet) AddPocket(pocket Pocket) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := pocket.CoinType().ID
	if _, ok := w.pockets[id]; ok {
		return fmt.Errorf("%w: %s", ErrPocketExists, id)
	}

	w.pockets[id] = pocket

	return nil
}

// Pocket returns the pocket for a coin type.
func (w *Wallet) Pocket(coin *coins.CoinType) (Pocket, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	pocket, ok := w.pockets[coin.ID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchPocket, coin.ID)
	}

	return pocket, nil
}

// Balance returns the spendable balance of the coin type's pocket.
func (w *Wallet) Balance(ctx context.Context,
	coin *coins.CoinType) (btcutil.Amount, error) {

	pocket, err := w.Pocket(coin)
	if err != nil {
		return 0, err
	}

	utxos, err := pocket.ListUnspent(ctx, w.cfg.MinConfs)
	if err != nil {
		return 0, fmt.Errorf("failed to list unspent: %w", err)
	}

	var balance btcutil.Amount
	for _, utxo := range utxos {
		balance += utxo.Value()
	}

	return balance, nil
}

// CreateSendRequest builds an unsigned transaction paying amount to
// destination from the coin type's pocket.
func (w *Wallet) CreateSendRequest(ctx context.Context, coin *coins.CoinType,
	destination btcutil.Address, amount btcutil.Amount) (*SendRequest,
	error) {

	if amount <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, amount)
	}

	pocket, err := w.Pocket(coin)
	if err != nil {
		return nil, err
	}

	destScript, err := txscript.PayToAddrScript(destination)
	if err != nil {
		return nil, fmt.Errorf("failed to create output script: %w", err)
	}

	payment := wire.NewTxOut(int64(amount), destScript)
	if txrules.IsDustOutput(payment, txrules.DefaultRelayFeePerKb) {
		return nil, fmt.Errorf("%w: %v to %v", ErrDustOutput, amount,
			destination)
	}

	feeRate, err := w.cfg.FeeEstimator.EstimateFeeRate(
		ctx, w.cfg.ConfTarget,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to estimate fee: %w", err)
	}

	utxos, err := pocket.ListUnspent(ctx, w.cfg.MinConfs)
	if err != nil {
		return nil, fmt.Errorf("failed to list unspent: %w", err)
	}

	feePerKvB := btcutil.Amount(feeRate.FeePerKVByte())

	sel, err := selectCoins(
		utxos, payment, feePerKvB, pocket.ChangeScriptSize(),
	)
	if err != nil {
		return nil, err
	}

	outputs := []*wire.TxOut{payment}
	changeIndex := int32(-1)
	if sel.change > 0 {
		changeScript, err := pocket.ChangeScript(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get change script: %w",
				err)
		}

		outputs = append(outputs, wire.NewTxOut(
			int64(sel.change), changeScript,
		))
		changeIndex = 1
	}

	outpoints := make([]*wire.OutPoint, 0, len(sel.inputs))
	sequences := make([]uint32, 0, len(sel.inputs))
	for _, utxo := range sel.inputs {
		outpoint := utxo.OutPoint
		outpoints = append(outpoints, &outpoint)
		sequences = append(sequences, wire.MaxTxInSequenceNum)
	}

	packet, err := psbt.New(outpoints, outputs, 2, 0, sequences)
	if err != nil {
		return nil, fmt.Errorf("failed to create PSBT: %w", err)
	}

	for i, utxo := range sel.inputs {
		packet.Inputs[i].WitnessUtxo = utxo.TxOut
		packet.Inputs[i].SighashType = txscript.SigHashAll
	}

	log.Debugf("Built %s request: %v to %v, %d inputs, fee %v at %v, "+
		"change %v", coin.ID, amount, destination, len(sel.inputs),
		sel.fee, feeRate, sel.change)
	log.Tracef("Unsigned tx: %v", newLogClosure(func() string {
		return spew.Sdump(packet.UnsignedTx)
	}))

	return &SendRequest{
		Coin:        coin,
		Destination: destination,
		Amount:      amount,
		Fee:         sel.fee,
		FeeRate:     feeRate,
		Packet:      packet,
		ChangeIndex: changeIndex,
	}, nil
}
