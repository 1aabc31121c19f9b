package sip

import (
	"context"
	"crypto/sha1" //nolint:gosec // transaction key, not a security boundary, RFC 3261 §17.1.3
	"encoding/hex"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/qmuntal/stateless"

	"github.com/ghettovoice/gosip/header"
)

// TransactionState names a state of one of the four RFC 3261 §17 transaction
// state machines. Not every state is valid for every transaction type: see
// [NewInviteClientTransaction], [NewNonInviteClientTransaction],
// [NewInviteServerTransaction] and [NewNonInviteServerTransaction].
type TransactionState string

// Transaction states, RFC 3261 §17 and, for Cancelled, this implementation's
// housekeeping extension (§9 Open Question #2 in DESIGN.md).
const (
	TransactionStateTrying     TransactionState = "Trying"
	TransactionStateCalling    TransactionState = "Calling"
	TransactionStateProceeding TransactionState = "Proceeding"
	TransactionStateCompleted  TransactionState = "Completed"
	TransactionStateConfirmed  TransactionState = "Confirmed"
	TransactionStateCancelled  TransactionState = "Cancelled"
	TransactionStateTerminated TransactionState = "Terminated"
)

// transactionEvent is a stateless.Trigger value driving a transaction's FSM.
type transactionEvent string

const (
	evtRecv1xx      transactionEvent = "recv1xx"
	evtRecv2xx      transactionEvent = "recv2xx"
	evtRecv3xx6xx   transactionEvent = "recv3xx6xx"
	evtRecvAck      transactionEvent = "recvAck"
	evtRecvPrack    transactionEvent = "recvPrack"
	evtRecvCancel   transactionEvent = "recvCancel"
	evtRecvRequest  transactionEvent = "recvRequest"
	evtTimerA       transactionEvent = "timerA"
	evtTimerB       transactionEvent = "timerB"
	evtTimerD       transactionEvent = "timerD"
	evtTimerE       transactionEvent = "timerE"
	evtTimerF       transactionEvent = "timerF"
	evtTimerG       transactionEvent = "timerG"
	evtTimerH       transactionEvent = "timerH"
	evtTimerI       transactionEvent = "timerI"
	evtTimerJ       transactionEvent = "timerJ"
	evtTimerK       transactionEvent = "timerK"
	evtTransportErr transactionEvent = "transportErr"
	evtCancel       transactionEvent = "cancel"
	evtTerminate    transactionEvent = "terminate"
)

// Key identifies a transaction, RFC 3261 §17.1.3 / §17.2.3: the SHA1 digest of
// the top Via branch and the transaction's method. CANCEL shares its INVITE's
// branch, so the method disambiguates the two transactions sharing it.
type Key string

// NewKey computes a transaction [Key] from a top Via branch and method.
func NewKey(branch string, method RequestMethod) Key {
	h := sha1.New() //nolint:gosec
	h.Write([]byte(branch))
	h.Write([]byte{'|'})
	h.Write([]byte(method.ToUpper()))
	return Key(hex.EncodeToString(h.Sum(nil)))
}

// Sender transmits a message on behalf of a transaction. The transport layer
// implements it; transactions never talk to sockets directly.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Transaction is the behavior common to client and server transactions.
type Transaction interface {
	// Key returns the transaction's matching key.
	Key() Key
	// State returns the current FSM state.
	State() TransactionState
	// Origin returns the request that created the transaction.
	Origin() *Request
	// Done is closed when the transaction reaches Terminated.
	Done() <-chan struct{}
	// Errors reports transport or protocol errors encountered by the transaction.
	// It is closed along with Done.
	Errors() <-chan error
	// Terminate forces the transaction to Terminated immediately.
	Terminate()
	// LogValue renders the transaction for structured logging.
	LogValue() slog.Value
}

// transact holds the state shared by all four transaction implementations.
type transact struct {
	key     Key
	origin  *Request
	timings TimingConfig
	sender  Sender
	log     *slog.Logger

	fsm *stateless.StateMachine

	mu         sync.Mutex
	timers     map[transactionEvent]*time.Timer
	retransmit time.Duration

	done     chan struct{}
	doneOnce sync.Once
	errs     chan error
}

// newTransactionFSM builds a [stateless.StateMachine] seeded at the given
// initial state, firing triggers synchronously (transactions are driven by
// at most one event at a time: the owning transport/manager goroutine or a
// single timer callback).
func newTransactionFSM(initial TransactionState) *stateless.StateMachine {
	return stateless.NewStateMachine(initial)
}

// nextRetransmit returns the next unreliable-transport retransmit interval
// after a first interval of T1: 2*T1 on the first call, doubling on each
// call after that and capping at cap once cap > 0, RFC 3261
// §17.1.1.2 (Timer A) / §17.1.2.2 (Timer E).
func (t *transact) nextRetransmit(cap time.Duration) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.retransmit == 0 {
		t.retransmit = t.timings.T1()
	}
	t.retransmit *= 2
	if cap > 0 && t.retransmit > cap {
		t.retransmit = cap
	}
	return t.retransmit
}

func newTransact(key Key, origin *Request, sender Sender, timings TimingConfig, log *slog.Logger) *transact {
	if timings.IsZero() {
		timings = defTimingCfg
	}
	if log == nil {
		log = slog.Default()
	}
	return &transact{
		key:     key,
		origin:  origin,
		timings: timings,
		sender:  sender,
		log:     log.With("transaction", key),
		timers:  make(map[transactionEvent]*time.Timer),
		done:    make(chan struct{}),
		errs:    make(chan error, 4),
	}
}

func (t *transact) Key() Key    { return t.key }
func (t *transact) Origin() *Request { return t.origin }

func (t *transact) State() TransactionState {
	state, err := t.fsm.State(context.Background())
	if err != nil {
		return TransactionStateTerminated
	}
	s, _ := state.(TransactionState)
	return s
}

func (t *transact) Done() <-chan struct{} { return t.done }
func (t *transact) Errors() <-chan error  { return t.errs }

func (t *transact) Terminate() {
	_ = t.fsm.FireCtx(context.Background(), evtTerminate)
}

func (t *transact) reportErr(err error) {
	select {
	case t.errs <- err:
	default:
	}
}

// finish closes Done/Errors exactly once; called from the Terminated OnEntry action.
func (t *transact) finish() {
	t.cancelAllTimers()
	t.doneOnce.Do(func() { close(t.done) })
}

func (t *transact) armTimer(evt transactionEvent, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.timers[evt]; ok {
		existing.Stop()
	}
	t.timers[evt] = time.AfterFunc(d, func() {
		if err := t.fsm.FireCtx(context.Background(), evt); err != nil {
			t.log.Debug("transaction timer fire ignored", "event", evt, "error", err)
		}
	})
}

func (t *transact) cancelTimer(evt transactionEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if timer, ok := t.timers[evt]; ok {
		timer.Stop()
		delete(t.timers, evt)
	}
}

func (t *transact) cancelAllTimers() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for evt, timer := range t.timers {
		timer.Stop()
		delete(t.timers, evt)
	}
}

func (t *transact) send(ctx context.Context, msg Message) error {
	if t.sender == nil {
		return ErrNoTransport
	}
	if err := t.sender.Send(ctx, msg); err != nil {
		t.reportErr(err)
		_ = t.fsm.FireCtx(ctx, evtTransportErr)
		return err
	}
	return nil
}

// actNoop is used for triggers that are valid in a state but cause no
// action and no transition.
func (t *transact) actNoop(context.Context, ...any) error { return nil }

func (t *transact) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("key", string(t.key)),
		slog.String("state", string(t.State())),
	)
}

// hasOption reports whether a token is present in a request's Require or
// Supported header lists, RFC 3262 §3 (100rel negotiation).
func hasOption(req *Request, token string) bool {
	for _, h := range req.GetHeaders("Require") {
		if require, ok := h.(header.Require); ok && slices.Contains(require, token) {
			return true
		}
	}
	for _, h := range req.GetHeaders("Supported") {
		if supported, ok := h.(header.Supported); ok && slices.Contains(supported, token) {
			return true
		}
	}
	return false
}

// TransactionRemoved is emitted by the transaction manager's housekeeping
// sweep once a Terminated transaction has aged out after Timer T6.
type TransactionRemoved struct {
	Key  Key
	Type TransactionType
}

// TransactionType distinguishes the four transaction state machines.
type TransactionType string

const (
	TransactionTypeInviteClient    TransactionType = "invite-client"
	TransactionTypeNonInviteClient TransactionType = "non-invite-client"
	TransactionTypeInviteServer    TransactionType = "invite-server"
	TransactionTypeNonInviteServer TransactionType = "non-invite-server"
)

// T6 is the RFC 3261 §17 housekeeping delay: a Terminated transaction is kept
// around for at least T6 before being swept, in case a retransmission still
// needs to be absorbed.
const T6 = 32 * time.Second
