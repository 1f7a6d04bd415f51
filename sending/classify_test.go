package sending

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"testing"

	"github.com/btcsuite/btcwallet/waddrmgr"
	"github.com/lightninglabs/sendcoins/chain/mempool"
	"github.com/lightninglabs/sendcoins/wallet"
	"github.com/stretchr/testify/require"
)

// TestClassify tests the mapping of failures to error kinds.
func TestClassify(t *testing.T) {
	t.Parallel()

	wrap := func(err error) error {
		return fmt.Errorf("unable to send: %w", err)
	}

	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{
			name: "insufficient funds",
			err:  wrap(wallet.ErrInsufficientFunds),
			want: KindInsufficientFunds,
		},
		{
			name: "no pocket",
			err:  wrap(wallet.ErrNoSuchPocket),
			want: KindNoSuchPocket,
		},
		{
			name: "signing credentials",
			err:  wrap(wallet.ErrSigningCredentials),
			want: KindSigningCredential,
		},
		{
			name: "wrong passphrase",
			err: wrap(waddrmgr.ManagerError{
				ErrorCode: waddrmgr.ErrWrongPassphrase,
			}),
			want: KindSigningCredential,
		},
		{
			name: "other manager error",
			err: wrap(waddrmgr.ManagerError{
				ErrorCode: waddrmgr.ErrDatabase,
			}),
			want: KindUnknownFatal,
		},
		{
			name: "dial failure",
			err: wrap(&net.OpError{
				Op:  "dial",
				Net: "tcp",
				Err: syscall.ECONNREFUSED,
			}),
			want: KindNetwork,
		},
		{
			name: "connection reset",
			err:  wrap(syscall.ECONNRESET),
			want: KindNetwork,
		},
		{
			name: "eof",
			err:  wrap(io.ErrUnexpectedEOF),
			want: KindNetwork,
		},
		{
			name: "deadline",
			err:  wrap(context.DeadlineExceeded),
			want: KindNetwork,
		},
		{
			name: "mempool unreachable",
			err:  wrap(mempool.ErrRequestFailed),
			want: KindNetwork,
		},
		{
			name: "broadcast rejected",
			err:  wrap(mempool.ErrRejected),
			want: KindUnknownFatal,
		},
		{
			name: "funds before network",
			err: fmt.Errorf("%w: %w", wallet.ErrInsufficientFunds,
				mempool.ErrRequestFailed),
			want: KindInsufficientFunds,
		},
		{
			name: "unknown",
			err:  errors.New("disk on fire"),
			want: KindUnknownFatal,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

// TestMessageForKind tests that each recoverable kind has one template and
// fatal failures have none.
func TestMessageForKind(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for _, kind := range []ErrorKind{
		KindInsufficientFunds, KindNoSuchPocket,
		KindSigningCredential, KindNetwork,
	} {
		msg, ok := MessageForKind(kind)
		require.True(t, ok, kind.String())
		require.False(t, seen[msg], msg)
		seen[msg] = true
	}

	_, ok := MessageForKind(KindUnknownFatal)
	require.False(t, ok)
}

// TestFatalError tests that the cause of a fatal error stays reachable.
func TestFatalError(t *testing.T) {
	t.Parallel()

	cause := errors.New("disk on fire")
	var err error = &FatalError{RequestID: 3, Err: cause}

	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "request 3")
}

// TestBuildFailure tests that every build failure maps to a template.
func TestBuildFailure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		outcome string
		msg     string
	}{
		{
			name:    "dust",
			err:     fmt.Errorf("build: %w", wallet.ErrDustOutput),
			outcome: outcomeDustAmount,
			msg:     MsgDustAmount,
		},
		{
			name:    "insufficient funds",
			err:     wallet.ErrInsufficientFunds,
			outcome: KindInsufficientFunds.String(),
			msg:     MsgNotEnoughMoney,
		},
		{
			name:    "network",
			err:     mempool.ErrRequestFailed,
			outcome: KindNetwork.String(),
			msg:     MsgNetworkError,
		},
		{
			name:    "invalid amount",
			err:     wallet.ErrInvalidAmount,
			outcome: outcomeBuildFailed,
			msg:     MsgBuildFailed,
		},
		{
			name:    "unclassified",
			err:     errors.New("bad script"),
			outcome: outcomeBuildFailed,
			msg:     MsgBuildFailed,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			outcome, msg := buildFailure(tt.err)
			require.Equal(t, tt.outcome, outcome)
			require.Equal(t, tt.msg, msg)
		})
	}
}
