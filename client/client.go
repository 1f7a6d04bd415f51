// Package client wires the send flow's components into one embeddable
// unit.
package client

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/lightninglabs/sendcoins/chain/mempool"
	"github.com/lightninglabs/sendcoins/coins"
	"github.com/lightninglabs/sendcoins/journal"
	"github.com/lightninglabs/sendcoins/payuri"
	"github.com/lightninglabs/sendcoins/sending"
	"github.com/lightninglabs/sendcoins/wallet"
	"github.com/lightninglabs/sendcoins/wallet/btcwallet"
	"github.com/lightningnetwork/lnd/lnwallet/chainfee"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ErrMempoolURLRequired is returned for networks without a public
	// mempool.space instance.
	ErrMempoolURLRequired = errors.New("mempool url required")

	// ErrPassphraseRequired is returned when no passphrase source is
	// configured.
	ErrPassphraseRequired = errors.New("passphrase source required")

	// ErrJournalDisabled is returned when reading history without a
	// journal.
	ErrJournalDisabled = errors.New("journal disabled")
)

// mempoolURLs are the public mempool.space APIs per network.
var mempoolURLs = map[string]string{
	"mainnet": "https://mempool.space/api",
	"testnet": "https://mempool.space/testnet/api",
	"signet":  "https://mempool.space/signet/api",
}

// Config holds client configuration.
type Config struct {
	// Network is the network to send on: mainnet, testnet, signet or
	// regtest.
	Network string

	// WalletDir is the directory holding the btcwallet database.
	WalletDir string

	// JournalPath is the send journal database. Empty disables the
	// journal.
	JournalPath string

	// MempoolURL overrides the network's mempool.space API URL.
	MempoolURL string

	// ConfTarget is the confirmation target fees are estimated for.
	// Default: 6
	ConfTarget uint32

	// MinConfs is the minimum number of confirmations of spent outputs.
	// Default: 1
	MinConfs int32

	// FeeRate fixes the fee rate instead of estimating it. Zero
	// estimates.
	FeeRate chainfee.SatPerKWeight

	// Passphrase provides the wallet's private passphrase when signing.
	Passphrase btcwallet.PassphraseFunc

	// Registerer receives the send metrics. Optional.
	Registerer prometheus.Registerer

	// Lang selects the message language, e.g. "de".
	// Default: English
	Lang string
}

// Client is the send flow for embedding in Go applications.
type Client struct {
	cfg  *Config
	coin *coins.CoinType

	mempool   *mempool.Client
	btcWallet *btcwallet.Wallet
	builder   *wallet.Wallet
	journal   *journal.Store
	metrics   *sending.Metrics
	messages  *sending.Messages

	mu      sync.RWMutex
	stopped bool
}

// New opens the wallet and journal and connects the fee and broadcast
// backend.
func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config required")
	}

	coin, err := coins.ForNetwork(cfg.Network)
	if err != nil {
		return nil, err
	}

	if cfg.Passphrase == nil {
		return nil, ErrPassphraseRequired
	}

	messages, err := sending.NewMessages(cfg.Lang)
	if err != nil {
		return nil, err
	}

	mempoolCfg := mempool.DefaultConfig()
	switch {
	case cfg.MempoolURL != "":
		mempoolCfg.BaseURL = cfg.MempoolURL

	case mempoolURLs[cfg.Network] != "":
		mempoolCfg.BaseURL = mempoolURLs[cfg.Network]

	default:
		return nil, fmt.Errorf("%w for %s", ErrMempoolURLRequired,
			cfg.Network)
	}
	mempoolClient := mempool.NewClient(mempoolCfg)

	var fees wallet.FeeEstimator = mempool.NewFeeEstimator(
		mempoolClient, mempool.DefaultFeeCacheTTL,
	)
	if cfg.FeeRate > 0 {
		fees = wallet.StaticFeeEstimator(cfg.FeeRate)
	}

	walletCfg := wallet.DefaultConfig(fees)
	if cfg.ConfTarget > 0 {
		walletCfg.ConfTarget = cfg.ConfTarget
	}
	if cfg.MinConfs > 0 {
		walletCfg.MinConfs = cfg.MinConfs
	}
	builder, err := wallet.New(walletCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}

	btcCfg := btcwallet.DefaultConfig(coin)
	btcCfg.DBDir = cfg.WalletDir
	btcCfg.Broadcaster = mempoolClient
	btcCfg.Passphrase = cfg.Passphrase
	btcWallet, err := btcwallet.Open(btcCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open wallet: %w", err)
	}

	if err := builder.AddPocket(btcWallet); err != nil {
		_ = btcWallet.Close()
		return nil, fmt.Errorf("failed to add pocket: %w", err)
	}

	var store *journal.Store
	if cfg.JournalPath != "" {
		store, err = journal.Open(journal.DefaultConfig(
			filepath.Clean(cfg.JournalPath),
		))
		if err != nil {
			_ = btcWallet.Close()
			return nil, fmt.Errorf("failed to open journal: %w", err)
		}
	}

	var metrics *sending.Metrics
	if cfg.Registerer != nil {
		metrics, err = sending.NewMetrics(cfg.Registerer)
		if err != nil {
			_ = btcWallet.Close()
			if store != nil {
				_ = store.Close()
			}
			return nil, fmt.Errorf("failed to register metrics: %w",
				err)
		}
	}

	return &Client{
		cfg:       cfg,
		coin:      coin,
		mempool:   mempoolClient,
		btcWallet: btcWallet,
		builder:   builder,
		journal:   store,
		metrics:   metrics,
		messages:  messages,
	}, nil
}

// Coin returns the coin type the client sends.
func (c *Client) Coin() *coins.CoinType {
	return c.coin
}

// Messages returns the client's message renderer.
func (c *Client) Messages() *sending.Messages {
	return c.messages
}

// activeWallet returns the request builder until the client is stopped.
func (c *Client) activeWallet() sending.RequestBuilder {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.stopped {
		return nil
	}

	return c.builder
}

// NewOrchestrator creates a send orchestrator driving view. The scanner is
// optional.
func (c *Client) NewOrchestrator(view sending.View,
	scanner sending.Scanner) (*sending.Orchestrator, error) {

	cfg := &sending.Config{
		Coin:     c.coin,
		Wallets:  sending.WalletProviderFunc(c.activeWallet),
		Signer:   c.btcWallet,
		Scanner:  scanner,
		View:     view,
		Metrics:  c.metrics,
		Messages: c.messages,
	}

	// A nil *journal.Store must not end up in the interface.
	if c.journal != nil {
		cfg.Journal = c.journal
	}

	return sending.New(cfg)
}

// Balance returns the spendable balance.
func (c *Client) Balance(ctx context.Context) (btcutil.Amount, error) {
	return c.builder.Balance(ctx, c.coin)
}

// PrepareSend resolves a payment URI or address and builds an unsigned
// request for it. amount overrides the URI's amount when positive.
func (c *Client) PrepareSend(ctx context.Context, uri string,
	amount btcutil.Amount) (*wallet.SendRequest, error) {

	target, err := payuri.Resolve(uri, c.coin)
	if err != nil {
		return nil, err
	}

	if amount <= 0 {
		if target.Amount == nil {
			return nil, fmt.Errorf("%w: no amount given",
				wallet.ErrInvalidAmount)
		}
		amount = *target.Amount
	}

	return c.builder.CreateSendRequest(ctx, c.coin, target.Address, amount)
}

// History returns the most recent send attempts, newest first.
func (c *Client) History(ctx context.Context,
	limit int) ([]*journal.Attempt, error) {

	if c.journal == nil {
		return nil, ErrJournalDisabled
	}

	return c.journal.List(ctx, limit)
}

// PendingAttempts returns journaled attempts that never got an outcome,
// e.g. because the process died while signing.
func (c *Client) PendingAttempts(ctx context.Context) ([]*journal.Attempt,
	error) {

	if c.journal == nil {
		return nil, ErrJournalDisabled
	}

	return c.journal.Pending(ctx)
}

// Stop closes the wallet and journal. Orchestrators created from the client
// see no active wallet afterwards.
func (c *Client) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return nil
	}
	c.stopped = true

	var errs []error
	if err := c.btcWallet.Close(); err != nil {
		errs = append(errs, err)
	}
	if c.journal != nil {
		if err := c.journal.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
