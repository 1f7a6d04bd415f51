package sending

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"

	"github.com/lightninglabs/sendcoins/chain/mempool"
	"github.com/lightninglabs/sendcoins/wallet"
	"github.com/lightninglabs/sendcoins/wallet/btcwallet"
)

// ErrorKind is the user facing category of a failed send.
type ErrorKind uint8

const (
	// KindInsufficientFunds means the pocket cannot cover amount and
	// fee.
	KindInsufficientFunds ErrorKind = iota

	// KindNoSuchPocket means the wallet holds no pocket for the coin.
	KindNoSuchPocket

	// KindSigningCredential means the signer rejected the credentials.
	KindSigningCredential

	// KindNetwork means an I/O failure talking to the network.
	KindNetwork

	// KindUnknownFatal is any failure not covered above. It is never
	// shown as a message and stops the orchestrator.
	KindUnknownFatal
)

// String returns the kind's journal and metrics label.
func (k ErrorKind) String() string {
	switch k {
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindNoSuchPocket:
		return "no_such_pocket"
	case KindSigningCredential:
		return "signing_credential"
	case KindNetwork:
		return "network"
	case KindUnknownFatal:
		return "unknown_fatal"
	default:
		return fmt.Sprintf("ErrorKind(%d)", uint8(k))
	}
}

// Classify maps a builder or signer failure to its kind. The checks are
// ordered; the first match wins.
func Classify(err error) ErrorKind {
	switch {
	case errors.Is(err, wallet.ErrInsufficientFunds):
		return KindInsufficientFunds

	case errors.Is(err, wallet.ErrNoSuchPocket):
		return KindNoSuchPocket

	case isCredentialError(err):
		return KindSigningCredential

	case isNetworkError(err):
		return KindNetwork

	default:
		return KindUnknownFatal
	}
}

func isCredentialError(err error) bool {
	return errors.Is(err, wallet.ErrSigningCredentials) ||
		btcwallet.IsCredentialError(err)
}

// isNetworkError matches I/O failures. context.DeadlineExceeded satisfies
// net.Error and is matched as well.
func isNetworkError(err error) bool {
	var netErr net.Error
	switch {
	case errors.As(err, &netErr):
		return true

	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return true

	case errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET):

		return true

	case errors.Is(err, mempool.ErrRequestFailed):
		return true

	default:
		return false
	}
}

// buildFailure returns the outcome label and template for a request the
// wallet could not build.
func buildFailure(err error) (string, string) {
	if errors.Is(err, wallet.ErrDustOutput) {
		return outcomeDustAmount, MsgDustAmount
	}

	kind := Classify(err)
	if msg, ok := MessageForKind(kind); ok {
		return kind.String(), msg
	}

	return outcomeBuildFailed, MsgBuildFailed
}

// FatalError is returned by Run when the signer failed for a reason that
// could not be classified.
type FatalError struct {
	// RequestID is the request that failed.
	RequestID uint64

	// Err is the unclassified cause.
	Err error
}

// Error implements the error interface.
func (e *FatalError) Error() string {
	return fmt.Sprintf("unclassified failure for send request %d: %v",
		e.RequestID, e.Err)
}

// Unwrap returns the unclassified cause.
func (e *FatalError) Unwrap() error {
	return e.Err
}
