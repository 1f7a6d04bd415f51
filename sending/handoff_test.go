package sending

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lightninglabs/sendcoins/wallet"
	"github.com/stretchr/testify/require"
)

type funcSigner func(context.Context, *wallet.SendRequest) error

func (f funcSigner) SignAndPublish(ctx context.Context,
	req *wallet.SendRequest) error {

	return f(ctx, req)
}

// TestHandoff tests that only one request is pending at a time and that
// outcomes are matched by ID.
func TestHandoff(t *testing.T) {
	t.Parallel()

	signErr := errors.New("nope")
	signer := funcSigner(func(context.Context, *wallet.SendRequest) error {
		return signErr
	})

	events := make(chan event, 1)
	h := newHandoff(signer, time.Second, func(ev event) bool {
		events <- ev
		return true
	})

	first, err := h.begin(plainAddress("addr1"), 5, "Bob")
	require.NoError(t, err)
	require.Equal(t, uint64(1), first.ID)

	_, err = h.begin(plainAddress("addr2"), 5, "")
	require.ErrorIs(t, err, ErrRequestInFlight)

	req := &wallet.SendRequest{}
	h.dispatch(req)
	require.Same(t, req, h.current().Request)

	var ev event
	select {
	case ev = <-events:
	case <-time.After(5 * time.Second):
		t.Fatal("no outcome posted")
	}

	outcome := ev.(*signingOutcomeEvent).outcome
	require.Equal(t, first.ID, outcome.RequestID)
	require.False(t, outcome.Success())

	_, ok := h.resolve(SigningOutcome{RequestID: 7})
	require.False(t, ok)
	require.NotNil(t, h.current())

	pending, ok := h.resolve(outcome)
	require.True(t, ok)
	require.Same(t, first, pending)
	require.Nil(t, h.current())

	// Outcomes are never matched twice.
	_, ok = h.resolve(outcome)
	require.False(t, ok)

	second, err := h.begin(plainAddress("addr2"), 5, "")
	require.NoError(t, err)
	require.Equal(t, uint64(2), second.ID)
	require.Same(t, second, h.abandon())
	require.Nil(t, h.current())
}
