package main

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/jessevdk/go-flags"
	"github.com/lightninglabs/sendcoins/coins"
	"github.com/lightningnetwork/lnd/lnwallet/chainfee"
	"github.com/urfave/cli"
)

const (
	defaultConfigFilename  = "sendcoins.conf"
	defaultWalletDirname   = "wallet"
	defaultJournalFilename = "journal.db"
	defaultNetwork         = "mainnet"
	defaultDebugLevel      = "warn"
)

var (
	defaultHomeDir    = btcutil.AppDataDir("sendcoins", false)
	defaultConfigFile = filepath.Join(defaultHomeDir, defaultConfigFilename)
)

// config is the command's configuration. It is read from the config file
// first, then overridden by global command line flags.
type config struct {
	HomeDir string `long:"homedir" description:"The base directory for the wallet and journal."`

	Network string `long:"network" description:"The network to send on." choice:"mainnet" choice:"testnet" choice:"signet" choice:"regtest"`

	WalletDir string `long:"walletdir" description:"The btcwallet directory, defaults to <homedir>/<network>/wallet."`

	Journal string `long:"journal" description:"The send journal database, defaults to <homedir>/<network>/journal.db. Set to 'none' to disable."`

	MempoolURL string `long:"mempoolurl" description:"The mempool.space compatible API used for fees and broadcast."`

	DebugLevel string `long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} or <subsystem>=<level>,... pairs."`

	ConfTarget uint32 `long:"conftarget" description:"The confirmation target fees are estimated for."`

	MinConfs int32 `long:"minconfs" description:"The minimum number of confirmations of spent outputs."`

	FeeRate uint64 `long:"feerate" description:"A fixed fee rate in sat/vbyte, skips fee estimation."`

	Lang string `long:"lang" description:"The language of messages, e.g. en or de."`

	MetricsListen string `long:"metricslisten" description:"Serve prometheus metrics on this address during send."`
}

func defaultConfig() config {
	return config{
		HomeDir:    defaultHomeDir,
		Network:    defaultNetwork,
		DebugLevel: defaultDebugLevel,
		ConfTarget: 6,
		MinConfs:   1,
		Lang:       "en",
	}
}

// loadConfig reads the config file named by --configfile, if it exists, and
// applies the global flags on top.
func loadConfig(ctx *cli.Context) (*config, error) {
	cfg := defaultConfig()

	configFile := cleanAndExpandPath(ctx.GlobalString("configfile"))
	if fileExists(configFile) {
		parser := flags.NewParser(&cfg, flags.Default)
		err := flags.NewIniParser(parser).ParseFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("unable to parse %s: %w",
				configFile, err)
		}
	} else if ctx.GlobalIsSet("configfile") {
		return nil, fmt.Errorf("config file %s not found", configFile)
	}

	for flag, target := range map[string]*string{
		"homedir":    &cfg.HomeDir,
		"network":    &cfg.Network,
		"walletdir":  &cfg.WalletDir,
		"journal":    &cfg.Journal,
		"mempoolurl": &cfg.MempoolURL,
		"debuglevel": &cfg.DebugLevel,
		"lang":       &cfg.Lang,
	} {
		if ctx.GlobalIsSet(flag) {
			*target = ctx.GlobalString(flag)
		}
	}

	return validateConfig(cfg)
}

// validateConfig checks the configuration and fills in derived paths.
func validateConfig(cfg config) (*config, error) {
	if _, err := coins.ForNetwork(cfg.Network); err != nil {
		return nil, err
	}

	if err := parseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		return nil, err
	}

	cfg.HomeDir = cleanAndExpandPath(cfg.HomeDir)
	networkDir := filepath.Join(cfg.HomeDir, cfg.Network)

	if cfg.WalletDir == "" {
		cfg.WalletDir = filepath.Join(networkDir, defaultWalletDirname)
	}
	cfg.WalletDir = cleanAndExpandPath(cfg.WalletDir)

	switch cfg.Journal {
	case "none":
		cfg.Journal = ""

	case "":
		if err := os.MkdirAll(networkDir, 0700); err != nil {
			return nil, fmt.Errorf("unable to create %s: %w",
				networkDir, err)
		}
		cfg.Journal = filepath.Join(networkDir, defaultJournalFilename)

	default:
		cfg.Journal = cleanAndExpandPath(cfg.Journal)
	}

	return &cfg, nil
}

// feeRate converts the configured sat/vbyte rate.
func (c *config) feeRate() chainfee.SatPerKWeight {
	return chainfee.SatPerKVByte(c.FeeRate * 1000).FeePerKWeight()
}

// cleanAndExpandPath expands environment variables and a leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	if path == "" {
		return ""
	}

	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		var homeDir string
		u, err := user.Current()
		if err == nil {
			homeDir = u.HomeDir
		} else {
			homeDir = os.Getenv("HOME")
		}

		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but the variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}

func fileExists(name string) bool {
	if _, err := os.Stat(name); err != nil {
		if os.IsNotExist(err) {
			return false
		}
	}
	return true
}
