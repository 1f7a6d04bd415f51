package sending

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/lightninglabs/sendcoins/wallet"
)

// SendState is the lifecycle state of the send screen.
type SendState uint8

const (
	// StateInput accepts edits, scans and confirmation.
	StateInput SendState = iota

	// StatePreparation is entered on confirm while the request is built.
	StatePreparation

	// StateSending waits for the signer's outcome.
	StateSending

	// StateSent is the terminal state after a successful send.
	StateSent

	// StateFailed is the terminal state after a failed send.
	StateFailed
)

// String returns a human readable name for the state.
func (s SendState) String() string {
	switch s {
	case StateInput:
		return "INPUT"
	case StatePreparation:
		return "PREPARATION"
	case StateSending:
		return "SENDING"
	case StateSent:
		return "SENT"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("SendState(%d)", uint8(s))
	}
}

// Field identifies an input control of the view.
type Field uint8

const (
	// FieldNone means no control should take focus.
	FieldNone Field = iota

	// FieldAddress is the destination address input.
	FieldAddress

	// FieldAmount is the amount input.
	FieldAmount

	// FieldConfirm is the confirm control.
	FieldConfirm
)

// String returns a human readable name for the field.
func (f Field) String() string {
	switch f {
	case FieldNone:
		return "none"
	case FieldAddress:
		return "address"
	case FieldAmount:
		return "amount"
	case FieldConfirm:
		return "confirm"
	default:
		return fmt.Sprintf("Field(%d)", uint8(f))
	}
}

// PendingRequest is the single send in flight between confirmation and its
// outcome.
type PendingRequest struct {
	// ID identifies the request to its signing outcome.
	ID uint64

	// Destination is the address being paid.
	Destination btcutil.Address

	// Amount is the value being paid.
	Amount btcutil.Amount

	// Label is the recipient label, if any.
	Label string

	// Request is the unsigned request, nil until built.
	Request *wallet.SendRequest

	// JournalID is the journal entry recording this attempt, zero when
	// no journal is configured.
	JournalID int64
}

// SigningOutcome is the signer's single answer for a request.
type SigningOutcome struct {
	// RequestID is the ID of the request the outcome belongs to.
	RequestID uint64

	// Err is nil on success.
	Err error
}

// Success reports whether the request was signed and published.
func (o SigningOutcome) Success() bool {
	return o.Err == nil
}

// Snapshot is a copy of the orchestrator's state.
type Snapshot struct {
	// State is the current lifecycle state.
	State SendState

	// Address is the resolved destination, nil if none.
	Address btcutil.Address

	// Amount is the accepted amount, nil if none.
	Amount *btcutil.Amount

	// Label is the recipient label.
	Label string

	// Pending is a copy of the request in flight, nil if none.
	Pending *PendingRequest

	// ConfirmEnabled reports whether confirm is currently accepted.
	ConfirmEnabled bool

	// ScanEnabled reports whether a scan may be started.
	ScanEnabled bool

	// Deferred is the number of scan results waiting for INPUT.
	Deferred int
}
