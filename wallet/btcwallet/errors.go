package btcwallet

import "errors"

var (
	// ErrInvalidNetParams is returned when network parameters are
	// missing or do not match the coin type.
	ErrInvalidNetParams = errors.New("invalid network parameters")

	// ErrCoinRequired is returned when no coin type is configured.
	ErrCoinRequired = errors.New("coin type is required")

	// ErrDBDirRequired is returned when no wallet directory is
	// configured.
	ErrDBDirRequired = errors.New("wallet directory is required")

	// ErrBroadcasterRequired is returned when no broadcaster is
	// configured.
	ErrBroadcasterRequired = errors.New("broadcaster is required")

	// ErrPassphraseRequired is returned when no passphrase source is
	// configured.
	ErrPassphraseRequired = errors.New("passphrase source is required")

	// ErrWalletNotFound is returned when no wallet exists in the
	// configured directory.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrWalletExists is returned when creating a wallet over an
	// existing one.
	ErrWalletExists = errors.New("wallet already exists")

	// ErrSeedRequired is returned when creating a wallet without a seed.
	ErrSeedRequired = errors.New("seed is required")

	// ErrWalletNotLoaded is returned when the wallet has been closed.
	ErrWalletNotLoaded = errors.New("wallet not loaded")

	// ErrKeyNotFound is returned when the wallet holds no key for an
	// input being signed.
	ErrKeyNotFound = errors.New("key not found")

	// ErrInvalidPsbt is returned when a packet lacks the data needed to
	// sign it.
	ErrInvalidPsbt = errors.New("invalid PSBT")

	// ErrUnsupportedScript is returned for inputs the signer cannot sign.
	ErrUnsupportedScript = errors.New("unsupported input script")

	// ErrUTXOLeased is returned when an output is already leased.
	ErrUTXOLeased = errors.New("UTXO is leased")

	// ErrUTXONotLeased is returned when releasing an output that is not
	// leased.
	ErrUTXONotLeased = errors.New("UTXO is not leased")
)
