package btcwallet

import (
	"context"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightninglabs/sendcoins/coins"
	"github.com/lightninglabs/sendcoins/wallet"
	"github.com/stretchr/testify/require"
)

// TestConfig_Validation tests configuration validation.
func TestConfig_Validation(t *testing.T) {
	t.Parallel()

	valid := func() *Config {
		cfg := DefaultConfig(coins.BitcoinTestnet)
		cfg.DBDir = "/tmp/wallet"
		cfg.Broadcaster = &mockBroadcaster{}
		cfg.Passphrase = func(context.Context) ([]byte, error) {
			return testPass, nil
		}
		return cfg
	}

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{
			name:   "valid config",
			modify: func(*Config) {},
		},
		{
			name:    "missing net params",
			modify:  func(c *Config) { c.NetParams = nil },
			wantErr: ErrInvalidNetParams,
		},
		{
			name: "net params do not match coin",
			modify: func(c *Config) {
				c.NetParams = &chaincfg.MainNetParams
			},
			wantErr: ErrInvalidNetParams,
		},
		{
			name:    "missing coin",
			modify:  func(c *Config) { c.Coin = nil },
			wantErr: ErrCoinRequired,
		},
		{
			name:    "missing wallet dir",
			modify:  func(c *Config) { c.DBDir = "" },
			wantErr: ErrDBDirRequired,
		},
		{
			name:    "missing broadcaster",
			modify:  func(c *Config) { c.Broadcaster = nil },
			wantErr: ErrBroadcasterRequired,
		},
		{
			name:    "missing passphrase",
			modify:  func(c *Config) { c.Passphrase = nil },
			wantErr: ErrPassphraseRequired,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

// TestOpenMissingWallet tests that Open never creates a wallet.
func TestOpenMissingWallet(t *testing.T) {
	t.Parallel()

	h := newSignerHarness(t)

	_, err := Open(h.wallet.cfg)
	require.ErrorIs(t, err, ErrWalletNotFound)
}

// TestOpenExistingWallet tests the pocket over a real btcwallet database.
func TestOpenExistingWallet(t *testing.T) {
	t.Parallel()

	h := newSignerHarness(t)
	cfg := h.wallet.cfg

	seed, err := hdkeychain.GenerateSeed(hdkeychain.RecommendedSeedLen)
	require.NoError(t, err)

	require.NoError(t, Create(cfg, testPass, seed, time.Now()))

	err = Create(cfg, testPass, seed, time.Now())
	require.ErrorIs(t, err, ErrWalletExists)

	w, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, w.Close())
	})

	require.Same(t, coins.BitcoinRegtest, w.CoinType())

	ctx := context.Background()
	utxos, err := w.ListUnspent(ctx, 0)
	require.NoError(t, err)
	require.Empty(t, utxos)

	script, err := w.ChangeScript(ctx)
	require.NoError(t, err)
	require.True(t, txscript.IsPayToWitnessPubKeyHash(script))
	require.Len(t, script, w.ChangeScriptSize())

	// Change addresses are never reused.
	next, err := w.ChangeScript(ctx)
	require.NoError(t, err)
	require.NotEqual(t, script, next)

	// Funds sent to a change address can be signed for.
	pocket := wallet.NewMemoryPocket(coins.BitcoinRegtest, next,
		&wallet.Utxo{
			TxOut:         wire.NewTxOut(80_000, script),
			Confirmations: 1,
		},
	)
	builder, err := wallet.New(wallet.DefaultConfig(
		wallet.StaticFeeEstimator(1_000),
	))
	require.NoError(t, err)
	require.NoError(t, builder.AddPocket(pocket))

	req, err := builder.CreateSendRequest(
		ctx, coins.BitcoinRegtest, h.fundingAddr, 50_000,
	)
	require.NoError(t, err)

	tx, err := w.signUnlocked(w.keys, testPass, req.Packet)
	require.NoError(t, err)
	requireValidTx(t, tx, prevOutsOf(req))

	_, err = w.signUnlocked(w.keys, []byte("wrong"), req.Packet)
	require.ErrorIs(t, err, wallet.ErrSigningCredentials)
}

// TestCreateValidation tests wallet creation argument checks.
func TestCreateValidation(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig(coins.BitcoinRegtest)
	seed := make([]byte, hdkeychain.RecommendedSeedLen)

	err := Create(cfg, testPass, seed, time.Now())
	require.ErrorIs(t, err, ErrDBDirRequired)

	cfg.DBDir = t.TempDir()
	err = Create(cfg, nil, seed, time.Now())
	require.ErrorIs(t, err, ErrPassphraseRequired)

	err = Create(cfg, testPass, nil, time.Now())
	require.ErrorIs(t, err, ErrSeedRequired)

	_, err = Open(cfg)
	require.Error(t, err)
}
