package btcwallet

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/waddrmgr"
	"github.com/lightninglabs/sendcoins/chain/mempool"
	"github.com/lightninglabs/sendcoins/coins"
	"github.com/lightninglabs/sendcoins/wallet"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/lnwallet/chainfee"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testPass = []byte("hunter2")

// fakeKeys is an unlocker over in-memory keys.
type fakeKeys struct {
	pass     []byte
	keys     map[string]*btcec.PrivateKey
	unlocked bool
}

func (f *fakeKeys) Unlock(pass []byte, _ <-chan time.Time) error {
	if !bytes.Equal(pass, f.pass) {
		return waddrmgr.ManagerError{
			ErrorCode:   waddrmgr.ErrWrongPassphrase,
			Description: "invalid passphrase for master private key",
		}
	}
	f.unlocked = true

	return nil
}

func (f *fakeKeys) Lock() {
	f.unlocked = false
}

func (f *fakeKeys) PrivKeyForAddress(
	addr btcutil.Address) (*btcec.PrivateKey, error) {

	if !f.unlocked {
		return nil, waddrmgr.ManagerError{ErrorCode: waddrmgr.ErrLocked}
	}

	key, ok := f.keys[addr.EncodeAddress()]
	if !ok {
		return nil, waddrmgr.ManagerError{
			ErrorCode: waddrmgr.ErrAddressNotFound,
		}
	}

	return key, nil
}

type mockBroadcaster struct {
	mock.Mock
}

func (m *mockBroadcaster) BroadcastTransaction(ctx context.Context,
	tx *wire.MsgTx) (*chainhash.Hash, error) {

	args := m.Called(ctx, tx)
	hash, _ := args.Get(0).(*chainhash.Hash)

	return hash, args.Error(1)
}

type signerHarness struct {
	wallet      *Wallet
	keys        *fakeKeys
	broadcaster *mockBroadcaster
	clock       *clock.TestClock
	fundingAddr btcutil.Address
}

func newSignerHarness(t *testing.T) *signerHarness {
	t.Helper()

	privKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	addr, err := btcutil.NewAddressWitnessPubKeyHash(
		btcutil.Hash160(privKey.PubKey().SerializeCompressed()),
		&chaincfg.RegressionNetParams,
	)
	require.NoError(t, err)

	keys := &fakeKeys{
		pass: testPass,
		keys: map[string]*btcec.PrivateKey{
			addr.EncodeAddress(): privKey,
		},
	}

	broadcaster := &mockBroadcaster{}
	testClock := clock.NewTestClock(testTime)

	cfg := DefaultConfig(coins.BitcoinRegtest)
	cfg.DBDir = t.TempDir()
	cfg.Broadcaster = broadcaster
	cfg.Clock = testClock
	cfg.Passphrase = func(context.Context) ([]byte, error) {
		return testPass, nil
	}
	require.NoError(t, cfg.Validate())

	return &signerHarness{
		wallet: &Wallet{
			cfg:    cfg,
			keys:   keys,
			leases: newLeaseManager(testClock),
		},
		keys:        keys,
		broadcaster: broadcaster,
		clock:       testClock,
		fundingAddr: addr,
	}
}

// buildRequest builds a request spending two outputs paying to the
// harness's funding address.
func (h *signerHarness) buildRequest(t *testing.T) *wallet.SendRequest {
	t.Helper()

	script, err := txscript.PayToAddrScript(h.fundingAddr)
	require.NoError(t, err)

	pocket := wallet.NewMemoryPocket(
		coins.BitcoinRegtest, script,
		&wallet.Utxo{
			OutPoint:      wire.OutPoint{Hash: chainhash.Hash{1}},
			TxOut:         wire.NewTxOut(60_000, script),
			Confirmations: 1,
		},
		&wallet.Utxo{
			OutPoint:      wire.OutPoint{Hash: chainhash.Hash{2}},
			TxOut:         wire.NewTxOut(50_000, script),
			Confirmations: 1,
		},
	)

	builder, err := wallet.New(wallet.DefaultConfig(
		wallet.StaticFeeEstimator(chainfee.FeePerKwFloor),
	))
	require.NoError(t, err)
	require.NoError(t, builder.AddPocket(pocket))

	dest, err := btcutil.NewAddressWitnessPubKeyHash(
		make([]byte, 20), &chaincfg.RegressionNetParams,
	)
	require.NoError(t, err)

	req, err := builder.CreateSendRequest(
		context.Background(), coins.BitcoinRegtest, dest, 100_000,
	)
	require.NoError(t, err)
	require.Len(t, req.Packet.Inputs, 2)

	return req
}

// requireValidTx executes every input script of tx.
func requireValidTx(t *testing.T, tx *wire.MsgTx,
	prevOuts map[wire.OutPoint]*wire.TxOut) {

	t.Helper()

	fetcher := txscript.NewMultiPrevOutFetcher(prevOuts)
	sigHashes := txscript.NewTxSigHashes(tx, fetcher)
	for i, txIn := range tx.TxIn {
		prevOut := prevOuts[txIn.PreviousOutPoint]
		vm, err := txscript.NewEngine(
			prevOut.PkScript, tx, i, txscript.StandardVerifyFlags,
			nil, sigHashes, prevOut.Value, fetcher,
		)
		require.NoError(t, err)
		require.NoError(t, vm.Execute(), "input %d", i)
	}
}

func prevOutsOf(req *wallet.SendRequest) map[wire.OutPoint]*wire.TxOut {
	prevOuts := make(map[wire.OutPoint]*wire.TxOut)
	for i, txIn := range req.Packet.UnsignedTx.TxIn {
		prevOuts[txIn.PreviousOutPoint] = req.Packet.Inputs[i].WitnessUtxo
	}

	return prevOuts
}

// TestSignAndPublish tests the signing round trip.
func TestSignAndPublish(t *testing.T) {
	t.Parallel()

	h := newSignerHarness(t)
	req := h.buildRequest(t)
	prevOuts := prevOutsOf(req)

	var published *wire.MsgTx
	txid := chainhash.Hash{0xee}
	h.broadcaster.On("BroadcastTransaction", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			published = args.Get(1).(*wire.MsgTx)
		}).
		Return(&txid, nil).Once()

	err := h.wallet.SignAndPublish(context.Background(), req)
	require.NoError(t, err)
	h.broadcaster.AssertExpectations(t)

	require.NotNil(t, published)
	requireValidTx(t, published, prevOuts)

	// The wallet is locked again.
	require.False(t, h.keys.unlocked)

	// The spent outputs stay leased until the lease runs out.
	for _, op := range req.Outpoints() {
		require.True(t, h.wallet.leases.IsLeased(op))
	}
	err = h.wallet.SignAndPublish(context.Background(), req)
	require.ErrorIs(t, err, ErrUTXOLeased)

	h.clock.SetTime(testTime.Add(h.wallet.cfg.LeaseDuration))
	for _, op := range req.Outpoints() {
		require.False(t, h.wallet.leases.IsLeased(op))
	}
}

// TestSignAndPublishWrongPassphrase tests that a bad passphrase is reported
// as a credential error and frees the inputs.
func TestSignAndPublishWrongPassphrase(t *testing.T) {
	t.Parallel()

	h := newSignerHarness(t)
	h.wallet.cfg.Passphrase = func(context.Context) ([]byte, error) {
		return []byte("wrong"), nil
	}
	req := h.buildRequest(t)

	err := h.wallet.SignAndPublish(context.Background(), req)
	require.ErrorIs(t, err, wallet.ErrSigningCredentials)
	require.True(t, IsCredentialError(err))
	h.broadcaster.AssertNumberOfCalls(t, "BroadcastTransaction", 0)

	require.Empty(t, h.wallet.leases.Leased())
}

// TestSignAndPublishPassphraseUnavailable tests a failing passphrase
// source.
func TestSignAndPublishPassphraseUnavailable(t *testing.T) {
	t.Parallel()

	h := newSignerHarness(t)
	h.wallet.cfg.Passphrase = func(context.Context) ([]byte, error) {
		return nil, errors.New("prompt closed")
	}
	req := h.buildRequest(t)

	err := h.wallet.SignAndPublish(context.Background(), req)
	require.ErrorIs(t, err, wallet.ErrSigningCredentials)
	require.Empty(t, h.wallet.leases.Leased())
}

// TestSignAndPublishUnknownKey tests inputs the wallet holds no key for.
func TestSignAndPublishUnknownKey(t *testing.T) {
	t.Parallel()

	h := newSignerHarness(t)
	req := h.buildRequest(t)
	h.keys.keys = nil

	err := h.wallet.SignAndPublish(context.Background(), req)
	require.ErrorIs(t, err, wallet.ErrSigningCredentials)
	require.ErrorIs(t, err, ErrKeyNotFound)
	require.False(t, h.keys.unlocked)
}

// TestSignAndPublishBroadcastFails tests that a failed publish frees the
// inputs and keeps the cause.
func TestSignAndPublishBroadcastFails(t *testing.T) {
	t.Parallel()

	h := newSignerHarness(t)
	req := h.buildRequest(t)

	h.broadcaster.On("BroadcastTransaction", mock.Anything, mock.Anything).
		Return(nil, mempool.ErrRequestFailed).Once()

	err := h.wallet.SignAndPublish(context.Background(), req)
	require.ErrorIs(t, err, mempool.ErrRequestFailed)
	require.Empty(t, h.wallet.leases.Leased())
}

// TestSignAndPublishClosed tests signing after the wallet was closed.
func TestSignAndPublishClosed(t *testing.T) {
	t.Parallel()

	h := newSignerHarness(t)
	req := h.buildRequest(t)
	h.wallet.keys = nil

	err := h.wallet.SignAndPublish(context.Background(), req)
	require.ErrorIs(t, err, ErrWalletNotLoaded)
}

// TestSignPacketUnsupportedScript tests that only P2WPKH inputs are signed.
func TestSignPacketUnsupportedScript(t *testing.T) {
	t.Parallel()

	h := newSignerHarness(t)
	req := h.buildRequest(t)
	req.Packet.Inputs[1].WitnessUtxo = wire.NewTxOut(
		50_000, append([]byte{txscript.OP_1, txscript.OP_DATA_32},
			make([]byte, 32)...),
	)
	h.keys.unlocked = true

	_, err := signPacket(req.Packet, h.keys, &chaincfg.RegressionNetParams)
	require.ErrorIs(t, err, ErrUnsupportedScript)

	req.Packet.Inputs[1].WitnessUtxo = nil
	_, err = signPacket(req.Packet, h.keys, &chaincfg.RegressionNetParams)
	require.ErrorIs(t, err, ErrInvalidPsbt)
}
