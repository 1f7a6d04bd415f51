package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/lightninglabs/sendcoins/coins"
	"github.com/lightninglabs/sendcoins/sending"
	"github.com/lightninglabs/sendcoins/wallet"
	"github.com/lightningnetwork/lnd/lnwallet/chainfee"
	"github.com/stretchr/testify/require"
)

// TestParseAndSetDebugLevels tests debug level parsing.
func TestParseAndSetDebugLevels(t *testing.T) {
	require.NoError(t, parseAndSetDebugLevels("debug"))
	require.NoError(t, parseAndSetDebugLevels("SEND=trace,MPOL=info"))

	require.Error(t, parseAndSetDebugLevels("loud"))
	require.Error(t, parseAndSetDebugLevels("SEND"))
	require.Error(t, parseAndSetDebugLevels("FOO=debug"))
	require.Error(t, parseAndSetDebugLevels("SEND=loud"))
	require.Error(t, parseAndSetDebugLevels("SEND=debug,JRNL"))

	require.Contains(t, supportedSubsystems(), "JRNL")
	require.NoError(t, parseAndSetDebugLevels(defaultDebugLevel))
}

// TestValidateConfig tests derived paths and network checks.
func TestValidateConfig(t *testing.T) {
	home := t.TempDir()

	cfg := defaultConfig()
	cfg.HomeDir = home
	cfg.Network = "regtest"

	validated, err := validateConfig(cfg)
	require.NoError(t, err)
	require.Equal(
		t, filepath.Join(home, "regtest", "wallet"),
		validated.WalletDir,
	)
	require.Equal(
		t, filepath.Join(home, "regtest", "journal.db"),
		validated.Journal,
	)
	require.DirExists(t, filepath.Join(home, "regtest"))

	cfg.Journal = "none"
	validated, err = validateConfig(cfg)
	require.NoError(t, err)
	require.Empty(t, validated.Journal)

	cfg.Network = "simnet"
	_, err = validateConfig(cfg)
	require.ErrorIs(t, err, coins.ErrUnknownCoin)

	cfg.FeeRate = 10
	require.Equal(t, chainfee.SatPerKWeight(2500), cfg.feeRate())
}

// TestFileScanner tests reading scanned URIs from a file.
func TestFileScanner(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "scan.txt")
	scanner := &fileScanner{path: path}

	_, err := scanner.Scan(context.Background())
	require.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0600))
	_, err = scanner.Scan(context.Background())
	require.ErrorIs(t, err, sending.ErrScanCancelled)

	require.NoError(t, os.WriteFile(
		path, []byte("bitcoin:addr?amount=1\n"), 0600,
	))
	uri, err := scanner.Scan(context.Background())
	require.NoError(t, err)
	require.Equal(t, "bitcoin:addr?amount=1", uri)
}

type noSigner struct{}

func (noSigner) SignAndPublish(context.Context, *wallet.SendRequest) error {
	return nil
}

// TestReadCommands tests driving an orchestrator from command lines.
func TestReadCommands(t *testing.T) {
	t.Parallel()

	coin := coins.BitcoinRegtest
	addr, err := btcutil.NewAddressWitnessPubKeyHash(
		make([]byte, 20), coin.Params,
	)
	require.NoError(t, err)

	var out bytes.Buffer
	view := &terminalView{out: &out}

	o, err := sending.New(&sending.Config{
		Coin: coin,
		Wallets: sending.WalletProviderFunc(
			func() sending.RequestBuilder { return nil },
		),
		Signer: noSigner{},
		View:   view,
	})
	require.NoError(t, err)

	runErr := make(chan error, 1)
	go func() {
		runErr <- o.Run(context.Background())
	}()

	in := strings.NewReader(strings.Join([]string{
		"to " + addr.EncodeAddress(),
		"amount 0.001",
		"",
		"status",
		"uri bitcoin:?amount=1",
		"status",
		"bogus",
		"quit",
		"confirm",
	}, "\n"))

	require.NoError(t, readCommands(
		context.Background(), in, coin, o, view,
	))
	o.Stop()
	require.NoError(t, <-runErr)

	view.mu.Lock()
	output := out.String()
	view.mu.Unlock()

	require.Contains(t, output, "state: INPUT  to: "+addr.EncodeAddress()+
		"  amount: 0.001 BTC")
	require.Contains(t, output, "confirm: true")
	require.Contains(t, output, "** Could not read payment request: "+
		"missing address")
	require.Contains(t, output, "Commands:")

	// Nothing after quit is applied.
	require.NotContains(t, output, "fields cleared")
}
