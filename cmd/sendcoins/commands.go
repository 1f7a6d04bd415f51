package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/lightninglabs/sendcoins/client"
	"github.com/lightninglabs/sendcoins/coins"
	"github.com/lightninglabs/sendcoins/journal"
	"github.com/lightninglabs/sendcoins/payuri"
	"github.com/lightninglabs/sendcoins/wallet/btcwallet"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli"
)

// newClient opens the wallet and journal described by cfg.
func newClient(cfg *config, pass btcwallet.PassphraseFunc,
	reg prometheus.Registerer) (*client.Client, error) {

	clientCfg := &client.Config{
		Network:     cfg.Network,
		WalletDir:   cfg.WalletDir,
		JournalPath: cfg.Journal,
		MempoolURL:  cfg.MempoolURL,
		ConfTarget:  cfg.ConfTarget,
		MinConfs:    cfg.MinConfs,
		Passphrase:  pass,
		Registerer:  reg,
		Lang:        cfg.Lang,
	}
	if cfg.FeeRate > 0 {
		clientCfg.FeeRate = cfg.feeRate()
	}

	return client.New(clientCfg)
}

// coinForConfig returns the coin type of the configured network.
func coinForConfig(ctx *cli.Context) (*config, *coins.CoinType, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, nil, err
	}

	coin, err := coins.ForNetwork(cfg.Network)
	if err != nil {
		return nil, nil, err
	}

	return cfg, coin, nil
}

var uriCommand = cli.Command{
	Name:     "uri",
	Category: "Payments",
	Usage:    "Resolve or encode payment URIs.",
	Subcommands: []cli.Command{
		resolveURICommand,
		encodeURICommand,
	},
}

type targetResp struct {
	Address   string `json:"address"`
	AmountSat int64  `json:"amount_sat,omitempty"`
	Amount    string `json:"amount,omitempty"`
	Label     string `json:"label,omitempty"`
	Message   string `json:"message,omitempty"`
}

var resolveURICommand = cli.Command{
	Name:      "resolve",
	Usage:     "Resolve a payment URI or address.",
	ArgsUsage: "uri",
	Action:    resolveURI,
}

func resolveURI(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.ShowCommandHelp(ctx, "resolve")
	}

	_, coin, err := coinForConfig(ctx)
	if err != nil {
		return err
	}

	target, err := payuri.Resolve(ctx.Args().First(), coin)
	if err != nil {
		return err
	}

	resp := &targetResp{
		Address: target.Address.EncodeAddress(),
		Label:   target.Label,
		Message: target.Message,
	}
	if target.Amount != nil {
		resp.AmountSat = int64(*target.Amount)
		resp.Amount = coin.FormatAmount(*target.Amount)
	}
	printJSON(resp)

	return nil
}

var encodeURICommand = cli.Command{
	Name:  "encode",
	Usage: "Encode a payment URI.",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "address",
			Usage: "the destination address",
		},
		cli.StringFlag{
			Name:  "amount",
			Usage: "the amount in whole coins, e.g. 0.001",
		},
		cli.StringFlag{
			Name:  "label",
			Usage: "an optional recipient label",
		},
		cli.StringFlag{
			Name:  "message",
			Usage: "an optional message",
		},
	},
	Action: encodeURI,
}

func encodeURI(ctx *cli.Context) error {
	_, coin, err := coinForConfig(ctx)
	if err != nil {
		return err
	}

	addr, err := coin.DecodeAddress(ctx.String("address"))
	if err != nil {
		return fmt.Errorf("invalid address: %w", err)
	}

	target := &payuri.PaymentTarget{
		Address: addr,
		Label:   ctx.String("label"),
		Message: ctx.String("message"),
	}
	if ctx.IsSet("amount") {
		amount, err := coin.ParseAmount(ctx.String("amount"))
		if err != nil {
			return err
		}
		target.Amount = &amount
	}

	fmt.Println(payuri.Encode(target, coin))

	return nil
}

var createCommand = cli.Command{
	Name:     "create",
	Category: "Wallet",
	Usage:    "Create a new wallet.",
	Description: `
	Creates a btcwallet in the wallet directory and prints its seed. The
	seed is the only backup of the wallet's keys.
	`,
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "seed",
			Usage: "restore from this hex encoded seed instead of " +
				"generating one",
		},
		cli.Int64Flag{
			Name:  "birthday",
			Usage: "the unix time of the first wallet transaction " +
				"when restoring",
		},
	},
	Action: createWallet,
}

func createWallet(ctx *cli.Context) error {
	cfg, coin, err := coinForConfig(ctx)
	if err != nil {
		return err
	}

	var (
		seed     []byte
		birthday = time.Now()
	)
	if ctx.IsSet("seed") {
		seed, err = hex.DecodeString(ctx.String("seed"))
		if err != nil {
			return fmt.Errorf("invalid seed: %w", err)
		}
		birthday = time.Unix(ctx.Int64("birthday"), 0)
	} else {
		seed, err = hdkeychain.GenerateSeed(
			hdkeychain.RecommendedSeedLen,
		)
		if err != nil {
			return err
		}
	}

	pass, err := readNewPassphrase()
	if err != nil {
		return err
	}

	walletCfg := btcwallet.DefaultConfig(coin)
	walletCfg.DBDir = cfg.WalletDir
	if err := btcwallet.Create(walletCfg, pass, seed, birthday); err != nil {
		return err
	}

	printJSON(struct {
		WalletDir string `json:"wallet_dir"`
		Seed      string `json:"seed"`
	}{
		WalletDir: cfg.WalletDir,
		Seed:      hex.EncodeToString(seed),
	})

	return nil
}

var balanceCommand = cli.Command{
	Name:     "balance",
	Category: "Wallet",
	Usage:    "Show the spendable balance.",
	Action:   balance,
}

func balance(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	c, err := newClient(cfg, promptPassphrase, nil)
	if err != nil {
		return err
	}
	defer c.Stop()

	amount, err := c.Balance(context.Background())
	if err != nil {
		return err
	}

	printJSON(struct {
		BalanceSat int64  `json:"balance_sat"`
		Balance    string `json:"balance"`
	}{
		BalanceSat: int64(amount),
		Balance:    c.Coin().FormatAmount(amount),
	})

	return nil
}

var prepareCommand = cli.Command{
	Name:      "prepare",
	Category:  "Payments",
	Usage:     "Build an unsigned payment without sending it.",
	ArgsUsage: "uri",
	Description: `
	Selects coins and builds an unsigned transaction paying the given URI
	or address. The base64 PSBT is printed for signing elsewhere.
	`,
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "amount",
			Usage: "the amount in whole coins, overrides the URI",
		},
	},
	Action: prepare,
}

func prepare(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.ShowCommandHelp(ctx, "prepare")
	}

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	c, err := newClient(cfg, promptPassphrase, nil)
	if err != nil {
		return err
	}
	defer c.Stop()

	var amount btcutil.Amount
	if ctx.IsSet("amount") {
		amount, err = c.Coin().ParseAmount(ctx.String("amount"))
		if err != nil {
			return err
		}
	}

	req, err := c.PrepareSend(
		context.Background(), ctx.Args().First(), amount,
	)
	if err != nil {
		return err
	}

	packet, err := req.Encode()
	if err != nil {
		return err
	}

	printJSON(struct {
		Destination string `json:"destination"`
		AmountSat   int64  `json:"amount_sat"`
		FeeSat      int64  `json:"fee_sat"`
		SatPerKW    int64  `json:"sat_per_kw"`
		ChangeSat   int64  `json:"change_sat"`
		Inputs      int    `json:"inputs"`
		Psbt        string `json:"psbt"`
	}{
		Destination: req.Destination.EncodeAddress(),
		AmountSat:   int64(req.Amount),
		FeeSat:      int64(req.Fee),
		SatPerKW:    int64(req.FeeRate),
		ChangeSat:   int64(req.Change()),
		Inputs:      len(req.Outpoints()),
		Psbt:        packet,
	})

	return nil
}

var historyCommand = cli.Command{
	Name:     "history",
	Category: "Payments",
	Usage:    "List journaled send attempts.",
	Flags: []cli.Flag{
		cli.IntFlag{
			Name:  "limit",
			Value: 20,
			Usage: "the number of attempts to show, 0 for all",
		},
		cli.BoolFlag{
			Name:  "pending",
			Usage: "only show attempts without an outcome",
		},
	},
	Action: history,
}

type attemptResp struct {
	ID          int64  `json:"id"`
	CoinID      string `json:"coin_id"`
	Destination string `json:"destination"`
	AmountSat   int64  `json:"amount_sat"`
	Outcome     string `json:"outcome,omitempty"`
	Detail      string `json:"detail,omitempty"`
	CreatedAt   string `json:"created_at"`
	FinishedAt  string `json:"finished_at,omitempty"`
}

func history(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	if cfg.Journal == "" {
		return client.ErrJournalDisabled
	}

	store, err := journal.Open(journal.DefaultConfig(cfg.Journal))
	if err != nil {
		return err
	}
	defer store.Close()

	var attempts []*journal.Attempt
	if ctx.Bool("pending") {
		attempts, err = store.Pending(context.Background())
	} else {
		attempts, err = store.List(
			context.Background(), ctx.Int("limit"),
		)
	}
	if err != nil {
		return err
	}

	resp := make([]*attemptResp, 0, len(attempts))
	for _, a := range attempts {
		r := &attemptResp{
			ID:          a.ID,
			CoinID:      a.CoinID,
			Destination: a.Destination,
			AmountSat:   int64(a.Amount),
			Outcome:     a.Outcome,
			Detail:      a.Detail,
			CreatedAt:   a.CreatedAt.UTC().Format(time.RFC3339),
		}
		if !a.Pending() {
			r.FinishedAt = a.FinishedAt.UTC().Format(time.RFC3339)
		}
		resp = append(resp, r)
	}
	printJSON(resp)

	return nil
}
