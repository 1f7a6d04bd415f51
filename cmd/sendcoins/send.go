package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/lightninglabs/sendcoins/coins"
	"github.com/lightninglabs/sendcoins/sending"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli"
	"golang.org/x/sync/errgroup"
)

const sendHelp = `Commands:
  to <address>     set the destination address
  amount <amount>  set the amount in whole coins
  uri <uri>        apply a payment URI
  scan             read a payment URI from the scan file
  confirm          send the payment
  status           show the current state
  quit             exit`

var sendCommand = cli.Command{
	Name:     "send",
	Category: "Payments",
	Usage:    "Interactively prepare, sign and send a payment.",
	Description: `
	Reads commands from stdin and walks a payment from entry to broadcast.
	The wallet passphrase is asked for once up front, or read from the
	SENDCOINS_PASSPHRASE environment variable.
	`,
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "scanfile",
			Usage: "a file the scan command reads a payment URI from",
		},
		cli.StringFlag{
			Name:  "metricslisten",
			Usage: "serve prometheus metrics on this address",
		},
	},
	Action: send,
}

// terminalView prints the orchestrator's updates.
type terminalView struct {
	out io.Writer
	mu  sync.Mutex
}

func (v *terminalView) printf(format string, args ...interface{}) {
	v.mu.Lock()
	defer v.mu.Unlock()

	fmt.Fprintf(v.out, format+"\n", args...)
}

func (v *terminalView) SetFields(address, amount, label string) {
	if address == "" && amount == "" && label == "" {
		v.printf("fields cleared")
		return
	}
	v.printf("to: %s  amount: %s  label: %s", address, amount, label)
}

func (v *terminalView) ShowMessage(msg string) {
	v.printf("** %s", msg)
}

func (v *terminalView) RequestFocus(field sending.Field) {
	v.printf("next: %v", field)
}

func (v *terminalView) SetControls(confirmEnabled, scanEnabled bool) {
	log.Debugf("Controls: confirm=%v scan=%v", confirmEnabled,
		scanEnabled)
}

// fileScanner reads a payment URI from a file, e.g. one written by a QR
// code reader. An empty file counts as a cancelled scan.
type fileScanner struct {
	path string
}

func (s *fileScanner) Scan(context.Context) (string, error) {
	payload, err := os.ReadFile(s.path)
	if err != nil {
		return "", fmt.Errorf("unable to read scan file: %w", err)
	}

	uri := strings.TrimSpace(string(payload))
	if uri == "" {
		return "", sending.ErrScanCancelled
	}

	return uri, nil
}

func send(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	pass, err := cachedPassphrase()
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	c, err := newClient(cfg, pass, registry)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Stop(); err != nil {
			log.Errorf("Unable to stop client: %v", err)
		}
	}()

	if pending, err := c.PendingAttempts(context.Background()); err == nil {
		for _, a := range pending {
			log.Warnf("Attempt %d (%v to %s) has no recorded "+
				"outcome", a.ID, a.Amount, a.Destination)
		}
	}

	var scanner sending.Scanner
	if path := ctx.String("scanfile"); path != "" {
		scanner = &fileScanner{path: cleanAndExpandPath(path)}
	}

	view := &terminalView{out: os.Stdout}
	o, err := c.NewOrchestrator(view, scanner)
	if err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt,
	)
	defer stop()

	// Either side returning ends the whole session.
	runCtx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	g, gCtx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		defer cancel()
		return o.Run(gCtx)
	})
	g.Go(func() error {
		defer cancel()
		defer o.Stop()

		return readCommands(gCtx, os.Stdin, c.Coin(), o, view)
	})

	if addr := ctx.String("metricslisten"); addr != "" {
		serveMetrics(gCtx, g, addr, registry)
	}

	fmt.Println(sendHelp)

	return g.Wait()
}

// readCommands feeds stdin lines to the orchestrator until quit, EOF or
// ctx is done.
func readCommands(ctx context.Context, in io.Reader, coin *coins.CoinType,
	o *sending.Orchestrator, view *terminalView) error {

	lines := make(chan string)
	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		var line string
		select {
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(l)

		case <-ctx.Done():
			return nil
		}

		cmd, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)

		switch cmd {
		case "":

		case "to":
			o.SetAddressText(arg)

		case "amount":
			o.SetAmountText(arg)
			o.AmountFocusLost()

		case "uri":
			o.ApplyScan(arg)

		case "scan":
			o.Scan()

		case "confirm":
			o.Confirm()

		case "status":
			snapCtx, cancel := context.WithTimeout(ctx, time.Second)
			snap, err := o.Snapshot(snapCtx)
			cancel()
			if err != nil {
				return err
			}
			printStatus(view, coin, snap)

		case "quit", "exit":
			return nil

		default:
			view.printf("%s", sendHelp)
		}
	}
}

// printStatus prints a snapshot with amounts formatted the way the amount
// field shows them.
func printStatus(view *terminalView, coin *coins.CoinType,
	snap sending.Snapshot) {

	addr := "-"
	if snap.Address != nil {
		addr = snap.Address.EncodeAddress()
	}
	amount := "-"
	if snap.Amount != nil {
		amount = formatAmount(coin, *snap.Amount)
	}

	view.printf("state: %v  to: %s  amount: %s  label: %s  "+
		"confirm: %v", snap.State, addr, amount, snap.Label,
		snap.ConfirmEnabled)
	if snap.Pending != nil {
		view.printf("pending request %d: %s to %v", snap.Pending.ID,
			formatAmount(coin, snap.Pending.Amount),
			snap.Pending.Destination)
	}
}

func formatAmount(coin *coins.CoinType, amt btcutil.Amount) string {
	return fmt.Sprintf("%s %v", coin.FormatAmount(amt), btcutil.AmountBTC)
}

// serveMetrics serves the registry until ctx is done.
func serveMetrics(ctx context.Context, g *errgroup.Group, addr string,
	registry *prometheus.Registry) {

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(
		registry, promhttp.HandlerOpts{},
	))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g.Go(func() error {
		log.Infof("Serving metrics on %s", addr)

		err := srv.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(
			context.Background(), 5*time.Second,
		)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})
}
