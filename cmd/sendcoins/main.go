package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli"
)

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[sendcoins] %v\n", err)
	os.Exit(1)
}

func printJSON(resp interface{}) {
	b, err := json.MarshalIndent(resp, "", "    ")
	if err != nil {
		fatal(err)
	}

	fmt.Println(string(b))
}

func main() {
	app := cli.NewApp()
	app.Name = "sendcoins"
	app.Usage = "Prepare, sign and send payments from a btcwallet"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "configfile",
			Value: defaultConfigFile,
			Usage: "path to the config file",
		},
		cli.StringFlag{
			Name:  "homedir",
			Usage: "the base directory for the wallet and journal",
		},
		cli.StringFlag{
			Name:  "network, n",
			Usage: "the network to send on (mainnet, testnet, " +
				"signet, regtest)",
		},
		cli.StringFlag{
			Name:  "walletdir",
			Usage: "the btcwallet directory",
		},
		cli.StringFlag{
			Name:  "journal",
			Usage: "the send journal database, 'none' to disable",
		},
		cli.StringFlag{
			Name:  "mempoolurl",
			Usage: "the mempool.space compatible API",
		},
		cli.StringFlag{
			Name:  "debuglevel",
			Usage: "the logging level or subsystem=level pairs",
		},
		cli.StringFlag{
			Name:  "lang",
			Usage: "the language of messages",
		},
	}
	app.Commands = []cli.Command{
		uriCommand,
		createCommand,
		balanceCommand,
		prepareCommand,
		sendCommand,
		historyCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}
