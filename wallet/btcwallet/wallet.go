package btcwallet

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	base "github.com/btcsuite/btcwallet/wallet"
	"github.com/btcsuite/btcwallet/wallet/txsizes"
	"github.com/btcsuite/btcwallet/waddrmgr"
	"github.com/btcsuite/btcwallet/walletdb"
	"github.com/lightninglabs/sendcoins/coins"
	"github.com/lightninglabs/sendcoins/wallet"
	"github.com/lightningnetwork/lnd/ticker"

	// Register the bdb walletdb driver.
	_ "github.com/btcsuite/btcwallet/walletdb/bdb"
)

// waddrmgrNamespaceKey is the bucket holding the address manager.
var waddrmgrNamespaceKey = []byte("waddrmgr")

// maxConfs bounds ListUnspent from above.
const maxConfs = 9999999

// Wallet is an on-disk btcwallet used as a funding pocket and as the signer
// for requests built from it. Key creation and chain sync are left to other
// tools; Wallet only opens an existing wallet.
type Wallet struct {
	cfg *Config

	loader *base.Loader
	wallet *base.Wallet
	keys   unlocker
	leases *leaseManager

	// signMu serializes unlock, sign and lock.
	signMu sync.Mutex

	quit chan struct{}
	wg   sync.WaitGroup

	mu sync.RWMutex
}

// A compile time check to ensure Wallet can fund send requests.
var _ wallet.Pocket = (*Wallet)(nil)

// Open loads the existing wallet in cfg.DBDir.
func Open(cfg *Config) (*Wallet, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	loader := base.NewLoader(
		cfg.NetParams, cfg.DBDir, true, cfg.DBTimeout, 0,
	)

	exists, err := loader.WalletExists()
	if err != nil {
		return nil, fmt.Errorf("failed to check if wallet exists: %w",
			err)
	}
	if !exists {
		return nil, fmt.Errorf("%w in %s", ErrWalletNotFound, cfg.DBDir)
	}

	w, err := loader.OpenExistingWallet(cfg.PublicPass, false)
	if err != nil {
		return nil, fmt.Errorf("failed to open wallet: %w", err)
	}

	log.Infof("Opened %s wallet in %s", cfg.Coin.ID, cfg.DBDir)

	bw := &Wallet{
		cfg:    cfg,
		loader: loader,
		wallet: w,
		keys:   w,
		leases: newLeaseManager(cfg.Clock),
		quit:   make(chan struct{}),
	}

	bw.wg.Add(1)
	go func() {
		defer bw.wg.Done()

		bw.leases.expireLoop(
			ticker.New(cfg.LeaseCleanupInterval), bw.quit,
		)
	}()

	return bw, nil
}

// Create creates a new wallet in cfg.DBDir from seed, encrypting private
// keys with privPass. The wallet is left closed; use Open to load it.
func Create(cfg *Config, privPass, seed []byte, birthday time.Time) error {
	switch {
	case cfg.NetParams == nil:
		return ErrInvalidNetParams

	case cfg.DBDir == "":
		return ErrDBDirRequired

	case len(privPass) == 0:
		return ErrPassphraseRequired

	case len(seed) == 0:
		return ErrSeedRequired
	}

	if err := os.MkdirAll(cfg.DBDir, 0700); err != nil {
		return fmt.Errorf("failed to create wallet directory: %w", err)
	}

	loader := base.NewLoader(
		cfg.NetParams, cfg.DBDir, true, cfg.DBTimeout, 0,
	)

	exists, err := loader.WalletExists()
	if err != nil {
		return fmt.Errorf("failed to check if wallet exists: %w", err)
	}
	if exists {
		return fmt.Errorf("%w in %s", ErrWalletExists, cfg.DBDir)
	}

	_, err = loader.CreateNewWallet(cfg.PublicPass, privPass, seed, birthday)
	if err != nil {
		return fmt.Errorf("failed to create wallet: %w", err)
	}

	log.Infof("Created %s wallet in %s", cfg.NetParams.Name, cfg.DBDir)

	return loader.UnloadWallet()
}

// Close unloads the wallet and closes its database.
func (w *Wallet) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.wallet == nil {
		return nil
	}

	close(w.quit)
	w.wg.Wait()

	w.wallet = nil
	w.keys = nil
	if err := w.loader.UnloadWallet(); err != nil {
		return fmt.Errorf("failed to unload wallet: %w", err)
	}

	return nil
}

func (w *Wallet) loaded() (*base.Wallet, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.wallet == nil {
		return nil, ErrWalletNotLoaded
	}

	return w.wallet, nil
}

func (w *Wallet) signingKeys() (unlocker, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.keys == nil {
		return nil, ErrWalletNotLoaded
	}

	return w.keys, nil
}

// CoinType returns the coin type this wallet holds.
func (w *Wallet) CoinType() *coins.CoinType {
	return w.cfg.Coin
}

// ListUnspent returns spendable outputs with at least minConfs
// confirmations that are not leased.
func (w *Wallet) ListUnspent(_ context.Context,
	minConfs int32) ([]*wallet.Utxo, error) {

	bw, err := w.loaded()
	if err != nil {
		return nil, err
	}

	w.leases.CleanupExpired()

	unspent, err := bw.ListUnspent(minConfs, maxConfs, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list unspent: %w", err)
	}

	utxos := make([]*wallet.Utxo, 0, len(unspent))
	for _, u := range unspent {
		if !u.Spendable {
			continue
		}

		txHash, err := chainhash.NewHashFromStr(u.TxID)
		if err != nil {
			return nil, fmt.Errorf("bad txid %q: %w", u.TxID, err)
		}

		outpoint := wire.OutPoint{Hash: *txHash, Index: u.Vout}
		if w.leases.IsLeased(outpoint) {
			log.Tracef("Skipping leased output %v", outpoint)
			continue
		}

		amt, err := btcutil.NewAmount(u.Amount)
		if err != nil {
			return nil, fmt.Errorf("bad amount for %v: %w",
				outpoint, err)
		}

		pkScript, err := hex.DecodeString(u.ScriptPubKey)
		if err != nil {
			return nil, fmt.Errorf("bad script for %v: %w",
				outpoint, err)
		}

		utxos = append(utxos, &wallet.Utxo{
			OutPoint:      outpoint,
			TxOut:         wire.NewTxOut(int64(amt), pkScript),
			Confirmations: u.Confirmations,
		})
	}

	return utxos, nil
}

// ChangeScriptSize returns the script size of the configured key scope's
// change addresses.
func (w *Wallet) ChangeScriptSize() int {
	schema, ok := waddrmgr.ScopeAddrMap[w.cfg.KeyScope]
	if !ok {
		return txsizes.P2WPKHPkScriptSize
	}

	switch schema.InternalAddrType {
	case waddrmgr.PubKeyHash:
		return txsizes.P2PKHPkScriptSize
	case waddrmgr.NestedWitnessPubKey:
		return txsizes.NestedP2WPKHPkScriptSize
	case waddrmgr.TaprootPubKey:
		return txsizes.P2TRPkScriptSize
	default:
		return txsizes.P2WPKHPkScriptSize
	}
}

// ChangeScript derives the next internal address of the configured account
// and returns its output script. The address manager is used directly so
// no chain backend is needed.
func (w *Wallet) ChangeScript(context.Context) ([]byte, error) {
	bw, err := w.loaded()
	if err != nil {
		return nil, err
	}

	scopedMgr, err := bw.Manager.FetchScopedKeyManager(w.cfg.KeyScope)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch key scope %v: %w",
			w.cfg.KeyScope, err)
	}

	var addr btcutil.Address
	err = walletdb.Update(bw.Database(), func(tx walletdb.ReadWriteTx) error {
		ns := tx.ReadWriteBucket(waddrmgrNamespaceKey)

		addrs, err := scopedMgr.NextInternalAddresses(
			ns, w.cfg.Account, 1,
		)
		if err != nil {
			return err
		}

		addr = addrs[0].Address()

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to derive change address: %w",
			err)
	}

	log.Debugf("Derived change address %v", addr)

	return txscript.PayToAddrScript(addr)
}
