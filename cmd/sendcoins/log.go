package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/btcsuite/btclog"
	"github.com/lightninglabs/sendcoins/chain/mempool"
	"github.com/lightninglabs/sendcoins/journal"
	"github.com/lightninglabs/sendcoins/sending"
	"github.com/lightninglabs/sendcoins/wallet"
	"github.com/lightninglabs/sendcoins/wallet/btcwallet"
)

// Subsystem is the logging code of the command itself.
const Subsystem = "SNDC"

var (
	backendLog = btclog.NewBackend(os.Stderr)

	log = backendLog.Logger(Subsystem)

	// subsystemLoggers maps each subsystem to its logger.
	subsystemLoggers = map[string]btclog.Logger{
		Subsystem: log,
	}
)

func init() {
	addSubLogger(sending.Subsystem, sending.UseLogger)
	addSubLogger(wallet.Subsystem, wallet.UseLogger)
	addSubLogger(btcwallet.Subsystem, btcwallet.UseLogger)
	addSubLogger(mempool.Subsystem, mempool.UseLogger)
	addSubLogger(journal.Subsystem, journal.UseLogger)

	setLogLevels(btclog.LevelWarn)
}

func addSubLogger(subsystem string, useLogger func(btclog.Logger)) {
	logger := backendLog.Logger(subsystem)
	subsystemLoggers[subsystem] = logger
	useLogger(logger)
}

func setLogLevels(level btclog.Level) {
	for _, logger := range subsystemLoggers {
		logger.SetLevel(level)
	}
}

// supportedSubsystems returns the sorted subsystem codes.
func supportedSubsystems() []string {
	subsystems := make([]string, 0, len(subsystemLoggers))
	for subsystem := range subsystemLoggers {
		subsystems = append(subsystems, subsystem)
	}
	sort.Strings(subsystems)

	return subsystems
}

// parseAndSetDebugLevels applies a debug level string. It is either a single
// level for all subsystems, e.g. "debug", or a comma separated list of
// subsystem=level pairs, e.g. "SEND=debug,MPOL=trace".
func parseAndSetDebugLevels(debugLevel string) error {
	if !strings.ContainsAny(debugLevel, "=,") {
		level, ok := btclog.LevelFromString(debugLevel)
		if !ok {
			return fmt.Errorf("invalid debug level %q", debugLevel)
		}
		setLogLevels(level)

		return nil
	}

	for _, pair := range strings.Split(debugLevel, ",") {
		subsystem, levelStr, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("invalid subsystem level %q, want "+
				"<subsystem>=<level>", pair)
		}

		logger, ok := subsystemLoggers[subsystem]
		if !ok {
			return fmt.Errorf("unknown subsystem %q, supported: %v",
				subsystem, strings.Join(supportedSubsystems(), " "))
		}

		level, ok := btclog.LevelFromString(levelStr)
		if !ok {
			return fmt.Errorf("invalid debug level %q", levelStr)
		}
		logger.SetLevel(level)
	}

	return nil
}
