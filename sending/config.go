package sending

import (
	"context"
	"errors"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/lightninglabs/sendcoins/coins"
	"github.com/lightninglabs/sendcoins/wallet"
)

var (
	// ErrCoinRequired is returned when no coin type is configured.
	ErrCoinRequired = errors.New("coin type required")

	// ErrWalletProviderRequired is returned when no wallet provider is
	// configured.
	ErrWalletProviderRequired = errors.New("wallet provider required")

	// ErrSignerRequired is returned when no signer is configured.
	ErrSignerRequired = errors.New("signer required")

	// ErrViewRequired is returned when no view is configured.
	ErrViewRequired = errors.New("view required")

	// ErrScanCancelled is returned by scanners when the user backed out.
	ErrScanCancelled = errors.New("scan cancelled")

	// ErrRequestInFlight is returned when a second request is started
	// while one is pending.
	ErrRequestInFlight = errors.New("send request already in flight")

	// ErrAlreadyRunning is returned when Run is called twice.
	ErrAlreadyRunning = errors.New("orchestrator already running")

	// ErrStopped is returned by calls made after Stop.
	ErrStopped = errors.New("orchestrator stopped")
)

// RequestBuilder builds unsigned send requests. *wallet.Wallet implements
// it.
type RequestBuilder interface {
	CreateSendRequest(ctx context.Context, coin *coins.CoinType,
		destination btcutil.Address,
		amount btcutil.Amount) (*wallet.SendRequest, error)
}

// WalletProvider returns the wallet to build requests with.
type WalletProvider interface {
	// ActiveWallet returns the loaded wallet, nil if none is loaded.
	ActiveWallet() RequestBuilder
}

// WalletProviderFunc adapts a function to WalletProvider.
type WalletProviderFunc func() RequestBuilder

// ActiveWallet calls f.
func (f WalletProviderFunc) ActiveWallet() RequestBuilder {
	return f()
}

// StaticWallet is a WalletProvider that always returns the same wallet.
func StaticWallet(builder RequestBuilder) WalletProvider {
	return WalletProviderFunc(func() RequestBuilder {
		return builder
	})
}

// Signer authorizes, signs and publishes a request.
type Signer interface {
	SignAndPublish(ctx context.Context, req *wallet.SendRequest) error
}

// Scanner reads a payment URI from an external source such as a camera or
// a file. A user cancellation returns ErrScanCancelled.
type Scanner interface {
	Scan(ctx context.Context) (string, error)
}

// View is the presentation container. Its methods are only ever called
// from the orchestrator's goroutine.
type View interface {
	// SetFields replaces the displayed address, amount and label.
	SetFields(address, amount, label string)

	// ShowMessage shows a transient message.
	ShowMessage(msg string)

	// RequestFocus moves input focus.
	RequestFocus(field Field)

	// SetControls enables or disables the confirm and scan controls.
	SetControls(confirmEnabled, scanEnabled bool)
}

// Journal records send attempts.
type Journal interface {
	// Begin records a new attempt and returns its ID.
	Begin(ctx context.Context, coinID, destination string,
		amount btcutil.Amount) (int64, error)

	// Finish records the attempt's terminal outcome.
	Finish(ctx context.Context, id int64, outcome, detail string) error
}

// StateObserver is called on every state transition.
type StateObserver func(from, to SendState)

const (
	// DefaultBuildTimeout bounds building a request.
	DefaultBuildTimeout = 30 * time.Second

	// DefaultSignTimeout bounds the signer.
	DefaultSignTimeout = 5 * time.Minute

	// DefaultScanTimeout bounds a scan.
	DefaultScanTimeout = 2 * time.Minute
)

// Config holds the orchestrator's collaborators.
type Config struct {
	// Coin is the coin type being sent.
	Coin *coins.CoinType

	// Wallets provides the wallet requests are built with.
	Wallets WalletProvider

	// Signer signs and publishes built requests.
	Signer Signer

	// Scanner reads payment URIs. Optional.
	Scanner Scanner

	// View receives display updates.
	View View

	// Journal records attempts. Optional.
	Journal Journal

	// Observer is told about state transitions. Optional.
	Observer StateObserver

	// Metrics records attempts. Optional.
	Metrics *Metrics

	// Messages renders user facing text.
	// Default: English
	Messages *Messages

	// BuildTimeout bounds building a request.
	// Default: 30 seconds
	BuildTimeout time.Duration

	// SignTimeout bounds the signer.
	// Default: 5 minutes
	SignTimeout time.Duration

	// ScanTimeout bounds a scan.
	// Default: 2 minutes
	ScanTimeout time.Duration

	// QueueSize is the event queue's buffer size before it spills to
	// memory.
	// Default: 16
	QueueSize int
}

// Validate validates the configuration and fills in defaults.
func (c *Config) Validate() error {
	if c.Coin == nil {
		return ErrCoinRequired
	}
	if c.Wallets == nil {
		return ErrWalletProviderRequired
	}
	if c.Signer == nil {
		return ErrSignerRequired
	}
	if c.View == nil {
		return ErrViewRequired
	}

	if c.Messages == nil {
		messages, err := NewMessages("en")
		if err != nil {
			return err
		}
		c.Messages = messages
	}
	if c.BuildTimeout <= 0 {
		c.BuildTimeout = DefaultBuildTimeout
	}
	if c.SignTimeout <= 0 {
		c.SignTimeout = DefaultSignTimeout
	}
	if c.ScanTimeout <= 0 {
		c.ScanTimeout = DefaultScanTimeout
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 16
	}

	return nil
}
