package sending

import (
	"context"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/lightninglabs/sendcoins/wallet"
)

// handoff owns the single pending request and delivers the signer's
// outcome back to the event loop. It is only used from the loop.
type handoff struct {
	signer  Signer
	timeout time.Duration

	// post delivers an event to the loop and reports whether it was
	// accepted.
	post func(event) bool

	nextID  uint64
	pending *PendingRequest
}

func newHandoff(signer Signer, timeout time.Duration,
	post func(event) bool) *handoff {

	return &handoff{
		signer:  signer,
		timeout: timeout,
		post:    post,
	}
}

// begin creates the pending request.
func (h *handoff) begin(dest btcutil.Address, amount btcutil.Amount,
	label string) (*PendingRequest, error) {

	if h.pending != nil {
		return nil, ErrRequestInFlight
	}

	h.nextID++
	h.pending = &PendingRequest{
		ID:          h.nextID,
		Destination: dest,
		Amount:      amount,
		Label:       label,
	}

	return h.pending, nil
}

// dispatch hands the built request to the signer in its own goroutine.
// The signer is not cancelled when the orchestrator stops; its late outcome
// is dropped by post.
func (h *handoff) dispatch(req *wallet.SendRequest) {
	pending := h.pending
	pending.Request = req

	go func() {
		ctx, cancel := context.WithTimeout(
			context.Background(), h.timeout,
		)
		defer cancel()

		err := h.signer.SignAndPublish(ctx, req)

		outcome := SigningOutcome{RequestID: pending.ID, Err: err}
		if !h.post(&signingOutcomeEvent{outcome: outcome}) {
			log.Infof("Discarded outcome for request %d after "+
				"shutdown: %v", pending.ID, err)
		}
	}()
}

// resolve matches an outcome to the pending request and releases it.
func (h *handoff) resolve(outcome SigningOutcome) (*PendingRequest, bool) {
	if h.pending == nil || h.pending.ID != outcome.RequestID {
		return nil, false
	}

	pending := h.pending
	h.pending = nil

	return pending, true
}

// abandon releases a pending request that was never dispatched.
func (h *handoff) abandon() *PendingRequest {
	pending := h.pending
	h.pending = nil

	return pending
}

// current returns the pending request, nil if none.
func (h *handoff) current() *PendingRequest {
	return h.pending
}
