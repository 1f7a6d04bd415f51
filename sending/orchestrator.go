package sending

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/lightninglabs/sendcoins/payuri"
	"github.com/lightningnetwork/lnd/queue"
)

// event is anything the loop handles.
type event interface{}

type addressTextEvent struct {
	text string
}

type amountTextEvent struct {
	text string
}

type amountFocusLostEvent struct{}

type confirmEvent struct{}

type scanRequestEvent struct{}

// scanResultEvent carries a resolved payload, or the reason there is none.
type scanResultEvent struct {
	raw    string
	target *payuri.PaymentTarget
	err    error

	// fromScanner is set when the result ends a scan the loop started.
	fromScanner bool

	// cancelled is set when the scanner returned nothing.
	cancelled bool
}

type signingOutcomeEvent struct {
	outcome SigningOutcome
}

type snapshotEvent struct {
	resp chan Snapshot
}

// Orchestrator drives a payment from entry to a terminal state. All of its
// state is owned by the goroutine running Run; the other methods only post
// events to it and never block on the loop.
type Orchestrator struct {
	cfg *Config

	events  *queue.ConcurrentQueue
	running int32

	// Loop owned state.
	state     SendState
	validator *Validator
	handoff   *handoff
	scanning  bool
	deferred  []*scanResultEvent

	scanCtx    context.Context
	scanCancel context.CancelFunc

	quit     chan struct{}
	stopOnce sync.Once
}

// New creates a new Orchestrator in StateInput. Events posted before Run
// starts are queued and handled in order once it does.
func New(cfg *Config) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	scanCtx, scanCancel := context.WithCancel(context.Background())

	o := &Orchestrator{
		cfg:        cfg,
		events:     queue.NewConcurrentQueue(cfg.QueueSize),
		state:      StateInput,
		validator:  NewValidator(cfg.Coin),
		scanCtx:    scanCtx,
		scanCancel: scanCancel,
		quit:       make(chan struct{}),
	}
	o.handoff = newHandoff(cfg.Signer, cfg.SignTimeout, o.post)
	o.events.Start()

	return o, nil
}

// Run handles events until ctx is done, Stop is called or a send fails for
// an unclassified reason. In the last case the state is left at FAILED and
// a *FatalError is returned.
func (o *Orchestrator) Run(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&o.running, 0, 1) {
		return ErrAlreadyRunning
	}

	log.Infof("Send orchestrator for %s started", o.cfg.Coin.ID)
	o.refreshControls()

	for {
		select {
		case item, ok := <-o.events.ChanOut():
			if !ok {
				return nil
			}

			if err := o.handle(ctx, item); err != nil {
				log.Errorf("Send orchestrator stopping: %v", err)
				o.Stop()

				return err
			}

		case <-ctx.Done():
			o.Stop()
			return nil

		case <-o.quit:
			return nil
		}
	}
}

// Stop ends Run. Events posted afterwards, including late signing outcomes,
// are dropped.
func (o *Orchestrator) Stop() {
	o.stopOnce.Do(func() {
		close(o.quit)
		o.scanCancel()
		o.events.Stop()
	})
}

// post queues an event for the loop. It returns false once stopped.
func (o *Orchestrator) post(ev event) bool {
	select {
	case <-o.quit:
		return false
	default:
	}

	select {
	case o.events.ChanIn() <- ev:
		return true
	case <-o.quit:
		return false
	}
}

func (o *Orchestrator) postOrLog(ev event) {
	if !o.post(ev) {
		log.Debugf("Dropped %T after shutdown", ev)
	}
}

// SetAddressText reports an edit of the address field.
func (o *Orchestrator) SetAddressText(text string) {
	o.postOrLog(&addressTextEvent{text: text})
}

// SetAmountText reports an edit of the amount field.
func (o *Orchestrator) SetAmountText(text string) {
	o.postOrLog(&amountTextEvent{text: text})
}

// AmountFocusLost reports that the amount field lost focus.
func (o *Orchestrator) AmountFocusLost() {
	o.postOrLog(&amountFocusLostEvent{})
}

// Confirm asks to send the current target. It is ignored outside INPUT.
func (o *Orchestrator) Confirm() {
	o.postOrLog(&confirmEvent{})
}

// Scan starts the configured scanner. Its result is applied like
// ApplyScan.
func (o *Orchestrator) Scan() {
	o.postOrLog(&scanRequestEvent{})
}

// ApplyScan resolves a scanned payload on the calling goroutine and queues
// the result for the loop.
func (o *Orchestrator) ApplyScan(raw string) {
	o.postOrLog(o.resolveScan(raw))
}

func (o *Orchestrator) resolveScan(raw string) *scanResultEvent {
	target, err := payuri.Resolve(raw, o.cfg.Coin)

	return &scanResultEvent{raw: raw, target: target, err: err}
}

// Snapshot returns a copy of the current state once every event posted
// before it has been handled.
func (o *Orchestrator) Snapshot(ctx context.Context) (Snapshot, error) {
	resp := make(chan Snapshot, 1)
	if !o.post(&snapshotEvent{resp: resp}) {
		return Snapshot{}, ErrStopped
	}

	select {
	case snap := <-resp:
		return snap, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	case <-o.quit:
		return Snapshot{}, ErrStopped
	}
}

// handle applies one event. A non-nil error stops the loop.
func (o *Orchestrator) handle(ctx context.Context, item interface{}) error {
	switch ev := item.(type) {
	case *addressTextEvent:
		if !o.acceptsInput(ev) {
			return nil
		}
		o.validator.SetAddressText(ev.text)
		o.refreshControls()

	case *amountTextEvent:
		if !o.acceptsInput(ev) {
			return nil
		}
		o.validator.SetAmountText(ev.text)
		o.refreshControls()

	case *amountFocusLostEvent:
		if !o.acceptsInput(ev) {
			return nil
		}
		o.validator.RevalidateAmount()
		o.refreshControls()

	case *confirmEvent:
		return o.handleConfirm(ctx)

	case *scanRequestEvent:
		o.handleScanRequest()

	case *scanResultEvent:
		o.handleScanResult(ev)

	case *signingOutcomeEvent:
		return o.handleOutcome(ctx, ev.outcome)

	case *snapshotEvent:
		ev.resp <- o.snapshot()

	default:
		log.Errorf("Unknown event %T", item)
	}

	return nil
}

func (o *Orchestrator) acceptsInput(ev event) bool {
	if o.state == StateInput {
		return true
	}

	log.Debugf("Ignoring %T in state %v", ev, o.state)

	return false
}

func (o *Orchestrator) handleConfirm(ctx context.Context) error {
	if o.state != StateInput {
		log.Debugf("Ignoring confirm in state %v", o.state)
		return nil
	}

	if !o.validator.EverythingValid(o.state) {
		if o.validator.AddressTextInvalid() {
			o.cfg.View.ShowMessage(
				o.cfg.Messages.Text(MsgInvalidAddress),
			)
		}
		o.cfg.View.RequestFocus(o.validator.FocusFirst(o.state))

		return nil
	}

	target := o.validator.Target()
	pending, err := o.handoff.begin(
		target.Address, *target.Amount, target.Label,
	)
	if err != nil {
		// Confirm is only handled in INPUT, which is never entered
		// while a request is pending.
		return fmt.Errorf("inconsistent state: %w", err)
	}

	o.setState(StatePreparation)
	o.cfg.Metrics.setPending(true)
	o.journalBegin(ctx, pending)

	log.Infof("Preparing request %d: %v to %v (label %q)", pending.ID,
		pending.Amount, pending.Destination, pending.Label)

	builder := o.cfg.Wallets.ActiveWallet()
	if builder == nil {
		log.Infof("No wallet loaded, request %d skipped", pending.ID)

		o.handoff.abandon()
		o.journalFinish(ctx, pending, outcomeSkipped, "no wallet")
		o.cfg.Metrics.observeOutcome(outcomeSkipped)
		o.reset()

		return nil
	}

	buildCtx, cancel := context.WithTimeout(ctx, o.cfg.BuildTimeout)
	req, err := builder.CreateSendRequest(
		buildCtx, o.cfg.Coin, pending.Destination, pending.Amount,
	)
	cancel()
	if err != nil {
		o.handoff.abandon()
		o.failBuild(ctx, pending, fmt.Errorf("unable to build "+
			"request: %w", err))

		return nil
	}

	o.setState(StateSending)
	o.handoff.dispatch(req)

	return nil
}

func (o *Orchestrator) handleOutcome(ctx context.Context,
	outcome SigningOutcome) error {

	pending, ok := o.handoff.resolve(outcome)
	if !ok {
		log.Warnf("Discarding outcome for unknown request %d: %v",
			outcome.RequestID, outcome.Err)
		return nil
	}

	if !outcome.Success() {
		return o.fail(ctx, pending, outcome.Err)
	}

	log.Infof("Request %d sent", pending.ID)

	o.cfg.View.ShowMessage(o.cfg.Messages.Text(MsgSent))
	o.setState(StateSent)
	o.journalFinish(ctx, pending, outcomeSent, "")
	o.cfg.Metrics.observeOutcome(outcomeSent)
	o.reset()

	return nil
}

// fail moves a signed request to FAILED. Classified failures are shown and
// the machine resets; anything else is escalated.
func (o *Orchestrator) fail(ctx context.Context, pending *PendingRequest,
	err error) error {

	kind := Classify(err)

	msg, ok := MessageForKind(kind)
	if !ok {
		o.setState(StateFailed)
		o.journalFinish(ctx, pending, kind.String(), err.Error())
		o.cfg.Metrics.observeOutcome(kind.String())
		o.cfg.Metrics.setPending(false)

		return &FatalError{RequestID: pending.ID, Err: err}
	}

	o.recoverFailed(ctx, pending, kind.String(), msg, err)

	return nil
}

// failBuild moves a request the wallet could not build to FAILED. Nothing
// was handed to the signer, so it is always shown and never escalated.
func (o *Orchestrator) failBuild(ctx context.Context,
	pending *PendingRequest, err error) {

	outcome, msg := buildFailure(err)
	o.recoverFailed(ctx, pending, outcome, msg, err)
}

// recoverFailed records a failed request, shows msg and resets.
func (o *Orchestrator) recoverFailed(ctx context.Context,
	pending *PendingRequest, outcome, msg string, err error) {

	log.Warnf("Request %d failed (%v): %v", pending.ID, outcome, err)

	o.setState(StateFailed)
	o.journalFinish(ctx, pending, outcome, err.Error())
	o.cfg.Metrics.observeOutcome(outcome)

	o.cfg.View.ShowMessage(o.cfg.Messages.Text(msg))
	o.reset()
}

// reset returns to INPUT with a cleared target, then applies scan results
// that arrived in the meantime.
func (o *Orchestrator) reset() {
	o.cfg.Metrics.setPending(false)
	o.validator.Reset()
	o.cfg.View.SetFields("", "", "")
	o.setState(StateInput)
	o.refreshControls()

	deferred := o.deferred
	o.deferred = nil
	for _, ev := range deferred {
		o.handleScanResult(ev)
	}
}

func (o *Orchestrator) handleScanRequest() {
	switch {
	case o.cfg.Scanner == nil:
		log.Warnf("Scan requested without a scanner")
		return

	case o.state != StateInput:
		log.Debugf("Ignoring scan request in state %v", o.state)
		return

	case o.scanning:
		log.Debugf("Scan already running")
		return
	}

	o.scanning = true

	go func() {
		ctx, cancel := context.WithTimeout(o.scanCtx, o.cfg.ScanTimeout)
		defer cancel()

		raw, err := o.cfg.Scanner.Scan(ctx)

		var ev *scanResultEvent
		switch {
		case errors.Is(err, ErrScanCancelled),
			errors.Is(err, context.Canceled):

			ev = &scanResultEvent{cancelled: true}

		case err != nil:
			log.Errorf("Scanner failed: %v", err)
			ev = &scanResultEvent{cancelled: true}

		default:
			ev = o.resolveScan(raw)
		}
		ev.fromScanner = true

		o.postOrLog(ev)
	}()
}

func (o *Orchestrator) handleScanResult(ev *scanResultEvent) {
	if ev.fromScanner {
		o.scanning = false
		ev.fromScanner = false
	}

	switch {
	case ev.cancelled:
		log.Debugf("Scan cancelled")
		return

	// Resolution failures never touch the target, so they are shown
	// whatever the state.
	case ev.err != nil:
		log.Infof("Unable to resolve %q: %v", ev.raw, ev.err)
		o.cfg.View.ShowMessage(
			o.cfg.Messages.Text(MsgURIError, ev.err.Error()),
		)
		return

	case o.state != StateInput:
		log.Debugf("Deferring scan result in state %v", o.state)
		o.deferred = append(o.deferred, ev)
		return
	}

	log.Infof("Got %v (label %q)", ev.target.Address, ev.target.Label)

	o.validator.Apply(ev.target)
	o.cfg.View.SetFields(o.validator.Fields())
	o.cfg.View.RequestFocus(o.validator.FocusFirst(o.state))
	o.refreshControls()
}

func (o *Orchestrator) setState(to SendState) {
	from := o.state
	o.state = to

	log.Debugf("State %v -> %v", from, to)

	if o.cfg.Observer != nil {
		o.cfg.Observer(from, to)
	}
}

func (o *Orchestrator) refreshControls() {
	o.cfg.View.SetControls(
		o.validator.EverythingValid(o.state), o.state == StateInput,
	)
}

func (o *Orchestrator) snapshot() Snapshot {
	target := o.validator.Target()
	snap := Snapshot{
		State:          o.state,
		Address:        target.Address,
		Amount:         target.Amount,
		Label:          target.Label,
		ConfirmEnabled: o.validator.EverythingValid(o.state),
		ScanEnabled:    o.state == StateInput,
		Deferred:       len(o.deferred),
	}
	if pending := o.handoff.current(); pending != nil {
		cp := *pending
		snap.Pending = &cp
	}

	return snap
}

func (o *Orchestrator) journalBegin(ctx context.Context,
	pending *PendingRequest) {

	if o.cfg.Journal == nil {
		return
	}

	id, err := o.cfg.Journal.Begin(
		ctx, o.cfg.Coin.ID, pending.Destination.String(), pending.Amount,
	)
	if err != nil {
		log.Errorf("Unable to journal request %d: %v", pending.ID, err)
		return
	}

	pending.JournalID = id
}

func (o *Orchestrator) journalFinish(ctx context.Context,
	pending *PendingRequest, outcome, detail string) {

	if o.cfg.Journal == nil || pending.JournalID == 0 {
		return
	}

	err := o.cfg.Journal.Finish(ctx, pending.JournalID, outcome, detail)
	if err != nil {
		log.Errorf("Unable to journal outcome of request %d: %v",
			pending.ID, err)
	}
}
