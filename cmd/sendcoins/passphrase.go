package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/lightninglabs/sendcoins/wallet/btcwallet"
	"golang.org/x/term"
)

// passphraseEnv names the environment variable read instead of prompting.
const passphraseEnv = "SENDCOINS_PASSPHRASE"

var errPassphraseMismatch = errors.New("passphrases do not match")

// readPassphrase reads a passphrase from the environment or, without one,
// from the terminal without echo.
func readPassphrase(prompt string) ([]byte, error) {
	if pass, ok := os.LookupEnv(passphraseEnv); ok {
		return []byte(pass), nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("stdin is not a terminal, set %s",
			passphraseEnv)
	}

	fmt.Fprint(os.Stderr, prompt)
	pass, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("unable to read passphrase: %w", err)
	}

	return pass, nil
}

// readNewPassphrase reads a new passphrase twice.
func readNewPassphrase() ([]byte, error) {
	pass, err := readPassphrase("New wallet passphrase: ")
	if err != nil {
		return nil, err
	}

	if _, ok := os.LookupEnv(passphraseEnv); ok {
		return pass, nil
	}

	confirm, err := readPassphrase("Confirm passphrase: ")
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(pass, confirm) {
		return nil, errPassphraseMismatch
	}

	return pass, nil
}

// promptPassphrase asks for the passphrase each time signing needs it.
func promptPassphrase(context.Context) ([]byte, error) {
	return readPassphrase("Wallet passphrase: ")
}

// cachedPassphrase asks once and returns the same passphrase afterwards.
// It is used when stdin is also read for commands.
func cachedPassphrase() (btcwallet.PassphraseFunc, error) {
	pass, err := readPassphrase("Wallet passphrase: ")
	if err != nil {
		return nil, err
	}

	return func(context.Context) ([]byte, error) {
		return append([]byte(nil), pass...), nil
	}, nil
}
