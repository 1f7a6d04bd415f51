package btcwallet

import (
	"context"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	base "github.com/btcsuite/btcwallet/wallet"
	"github.com/btcsuite/btcwallet/waddrmgr"
	"github.com/lightninglabs/sendcoins/coins"
	"github.com/lightningnetwork/lnd/clock"
)

// Broadcaster publishes signed transactions.
type Broadcaster interface {
	// BroadcastTransaction publishes tx and returns its txid.
	BroadcastTransaction(ctx context.Context,
		tx *wire.MsgTx) (*chainhash.Hash, error)
}

// PassphraseFunc returns the private passphrase needed to sign. It is called
// once per signing attempt.
type PassphraseFunc func(ctx context.Context) ([]byte, error)

// Config holds the configuration for the btcwallet-backed pocket and
// signer.
type Config struct {
	// NetParams is the network parameters (mainnet, testnet, etc.)
	NetParams *chaincfg.Params

	// Coin is the coin type the wallet holds. Its params must match
	// NetParams.
	Coin *coins.CoinType

	// DBDir is the directory holding wallet.db.
	DBDir string

	// PublicPass is the public passphrase for the wallet.
	PublicPass []byte

	// Passphrase provides the private passphrase when signing.
	Passphrase PassphraseFunc

	// Broadcaster publishes signed transactions.
	Broadcaster Broadcaster

	// Account is the account funds are spent from and change is sent to.
	// Default: 0
	Account uint32

	// KeyScope is the key scope change addresses are derived from.
	// Default: BIP0084 (native SegWit)
	KeyScope waddrmgr.KeyScope

	// LeaseDuration is how long outputs stay reserved after a spend is
	// published.
	// Default: 1 hour
	LeaseDuration time.Duration

	// LeaseCleanupInterval is how often expired leases are dropped.
	// Default: 5 minutes
	LeaseCleanupInterval time.Duration

	// DBTimeout is the timeout for opening the wallet database.
	// Default: 60 seconds
	DBTimeout time.Duration

	// Clock is the time source for leases.
	Clock clock.Clock
}

// DefaultConfig returns a default configuration for the given coin type.
func DefaultConfig(coin *coins.CoinType) *Config {
	return &Config{
		NetParams:     coin.Params,
		Coin:          coin,
		PublicPass:    []byte(base.InsecurePubPassphrase),
		KeyScope:      waddrmgr.KeyScopeBIP0084,
		LeaseDuration:        time.Hour,
		LeaseCleanupInterval: 5 * time.Minute,
		DBTimeout:            60 * time.Second,
		Clock:                clock.NewDefaultClock(),
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.NetParams == nil {
		return ErrInvalidNetParams
	}

	if c.Coin == nil {
		return ErrCoinRequired
	}

	if c.Coin.Params != nil && c.Coin.Params.Net != c.NetParams.Net {
		return ErrInvalidNetParams
	}

	if c.DBDir == "" {
		return ErrDBDirRequired
	}

	if c.Broadcaster == nil {
		return ErrBroadcasterRequired
	}

	if c.Passphrase == nil {
		return ErrPassphraseRequired
	}

	if c.Clock == nil {
		c.Clock = clock.NewDefaultClock()
	}

	if c.LeaseCleanupInterval <= 0 {
		c.LeaseCleanupInterval = 5 * time.Minute
	}

	return nil
}
