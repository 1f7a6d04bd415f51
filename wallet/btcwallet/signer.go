package btcwallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/waddrmgr"
	"github.com/lightninglabs/sendcoins/wallet"
)

// keySource looks up the private key controlling an address.
type keySource interface {
	PrivKeyForAddress(addr btcutil.Address) (*btcec.PrivateKey, error)
}

// SignAndPublish unlocks the wallet, signs every input of the request,
// publishes the transaction and locks the wallet again. The inputs stay
// leased after a successful publish so later requests do not pick them
// before the wallet learns about the spend.
func (w *Wallet) SignAndPublish(ctx context.Context,
	req *wallet.SendRequest) error {

	keys, err := w.signingKeys()
	if err != nil {
		return err
	}

	outpoints := req.Outpoints()
	if err := w.leases.Lease(outpoints, w.cfg.LeaseDuration); err != nil {
		return fmt.Errorf("unable to reserve inputs: %w", err)
	}

	published := false
	defer func() {
		if published {
			return
		}
		if err := w.leases.Release(outpoints); err != nil {
			log.Warnf("Unable to release inputs: %v", err)
		}
	}()

	pass, err := w.cfg.Passphrase(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", wallet.ErrSigningCredentials, err)
	}

	tx, err := w.signUnlocked(keys, pass, req.Packet)
	if err != nil {
		return err
	}

	txid, err := w.cfg.Broadcaster.BroadcastTransaction(ctx, tx)
	if err != nil {
		return fmt.Errorf("failed to publish transaction: %w", err)
	}
	published = true

	log.Infof("Published %v paying %v to %v (fee %v)", txid, req.Amount,
		req.Destination, req.Fee)

	return nil
}

// signUnlocked signs the packet while the wallet is unlocked.
func (w *Wallet) signUnlocked(keys unlocker, pass []byte,
	packet *psbt.Packet) (*wire.MsgTx, error) {

	w.signMu.Lock()
	defer w.signMu.Unlock()

	if err := keys.Unlock(pass, nil); err != nil {
		if IsCredentialError(err) {
			return nil, fmt.Errorf("%w: %w",
				wallet.ErrSigningCredentials, err)
		}

		return nil, fmt.Errorf("failed to unlock wallet: %w", err)
	}
	defer keys.Lock()

	return signPacket(packet, keys, w.cfg.NetParams)
}

// unlocker is the part of the wallet needed to sign.
type unlocker interface {
	keySource

	Unlock(passphrase []byte, lock <-chan time.Time) error
	Lock()
}

// IsCredentialError reports whether err is an address manager error caused
// by a wrong passphrase or a locked wallet.
func IsCredentialError(err error) bool {
	var mgrErr waddrmgr.ManagerError
	if !errors.As(err, &mgrErr) {
		return false
	}

	switch mgrErr.ErrorCode {
	case waddrmgr.ErrWrongPassphrase, waddrmgr.ErrLocked:
		return true
	default:
		return false
	}
}

// signPacket signs all P2WPKH inputs of the packet, then finalizes and
// extracts the transaction.
func signPacket(packet *psbt.Packet, keys keySource,
	params *chaincfg.Params) (*wire.MsgTx, error) {

	tx := packet.UnsignedTx
	if len(packet.Inputs) != len(tx.TxIn) {
		return nil, fmt.Errorf("%w: %d inputs for %d txins",
			ErrInvalidPsbt, len(packet.Inputs), len(tx.TxIn))
	}

	prevOuts := make(map[wire.OutPoint]*wire.TxOut, len(tx.TxIn))
	for i, txIn := range tx.TxIn {
		if packet.Inputs[i].WitnessUtxo == nil {
			return nil, fmt.Errorf("%w: missing witness UTXO for "+
				"input %d", ErrInvalidPsbt, i)
		}
		prevOuts[txIn.PreviousOutPoint] = packet.Inputs[i].WitnessUtxo
	}

	fetcher := txscript.NewMultiPrevOutFetcher(prevOuts)
	sigHashes := txscript.NewTxSigHashes(tx, fetcher)

	updater, err := psbt.NewUpdater(packet)
	if err != nil {
		return nil, fmt.Errorf("failed to create updater: %w", err)
	}

	for i := range packet.Inputs {
		prevOut := packet.Inputs[i].WitnessUtxo
		if !txscript.IsPayToWitnessPubKeyHash(prevOut.PkScript) {
			return nil, fmt.Errorf("%w: input %d", ErrUnsupportedScript,
				i)
		}

		_, addrs, _, err := txscript.ExtractPkScriptAddrs(
			prevOut.PkScript, params,
		)
		if err != nil || len(addrs) == 0 {
			return nil, fmt.Errorf("failed to extract address for "+
				"input %d: %v", i, err)
		}

		privKey, err := keys.PrivKeyForAddress(addrs[0])
		if err != nil {
			if IsCredentialError(err) {
				return nil, fmt.Errorf("%w: %w",
					wallet.ErrSigningCredentials, err)
			}

			return nil, fmt.Errorf("%w: %w: %v for input %d",
				wallet.ErrSigningCredentials, ErrKeyNotFound,
				err, i)
		}

		sig, err := txscript.RawTxInWitnessSignature(
			tx, sigHashes, i, prevOut.Value, prevOut.PkScript,
			txscript.SigHashAll, privKey,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to sign input %d: %w", i,
				err)
		}

		outcome, err := updater.Sign(
			i, sig, privKey.PubKey().SerializeCompressed(), nil,
			nil,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to add signature for "+
				"input %d: %w", i, err)
		}
		if outcome != psbt.SignSuccesful {
			return nil, fmt.Errorf("%w: signature for input %d "+
				"rejected (%d)", ErrInvalidPsbt, i, outcome)
		}
	}

	if err := psbt.MaybeFinalizeAll(packet); err != nil {
		return nil, fmt.Errorf("failed to finalize: %w", err)
	}

	signed, err := psbt.Extract(packet)
	if err != nil {
		return nil, fmt.Errorf("failed to extract: %w", err)
	}

	return signed, nil
}
