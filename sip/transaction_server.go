package sip

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/ghettovoice/gosip/header"
)

// Additional transaction events used only on the server side.
const (
	evtSend1xx    transactionEvent = "send1xx"
	evtSend2xx    transactionEvent = "send2xx"
	evtSend3xx6xx transactionEvent = "send3xx6xx"
	evtTimerPrack transactionEvent = "timerPrack"
)

// ServerTransaction is a SIP server transaction, RFC 3261 §17.2.
type ServerTransaction interface {
	Transaction
	// Respond sends a response through the transaction, driving its FSM.
	Respond(ctx context.Context, res *Response) error
}

// InviteServerTransaction implements the INVITE server transaction FSM,
// RFC 3261 §17.2.1, plus RFC 3262 reliable provisional responses and a
// Cancelled state for RFC 3261 §9 cancellation handling.
type InviteServerTransaction struct {
	*transact

	prackSupported bool

	mu              sync.Mutex
	lastFinal       *Response
	lastProvisional *Response
	pendingRSeq     uint32
	lastRSeq        uint32
	pendingProv     *Response
	provisionalSet  bool
}

// NewInviteServerTransaction creates and starts an INVITE server transaction.
// If req's Require or Supported headers include 100rel, the transaction
// negotiates RFC 3262 reliable provisional responses. A 100 Trying is sent
// automatically after [TimingConfig.Time100] unless a provisional has
// already been sent by then.
func NewInviteServerTransaction(ctx context.Context, key Key, req *Request, sender Sender, timings TimingConfig, log *slog.Logger) (*InviteServerTransaction, error) {
	tx := &InviteServerTransaction{
		transact:       newTransact(key, req, sender, timings, log),
		prackSupported: hasOption(req, "100rel"),
	}
	tx.fsm = newTransactionFSM(TransactionStateProceeding)

	tx.fsm.Configure(TransactionStateProceeding).
		InternalTransition(evtRecvRequest, tx.actResendLastResponse).
		InternalTransition(evtSend1xx, tx.actSendProvisional).
		InternalTransition(evtTimerPrack, tx.actRetransmitProvisional).
		InternalTransition(evtRecvPrack, tx.actRecvPrack).
		Permit(evtSend2xx, TransactionStateTerminated).
		Permit(evtSend3xx6xx, TransactionStateCompleted).
		Permit(evtCancel, TransactionStateCancelled).
		Permit(evtTransportErr, TransactionStateTerminated).
		Permit(evtTerminate, TransactionStateTerminated)

	tx.fsm.Configure(TransactionStateCancelled).
		OnEntry(tx.actCancelled).
		Permit(evtSend2xx, TransactionStateTerminated).
		Permit(evtSend3xx6xx, TransactionStateCompleted).
		Permit(evtTerminate, TransactionStateTerminated)

	tx.fsm.Configure(TransactionStateCompleted).
		OnEntry(tx.actCompleted).
		InternalTransition(evtRecvRequest, tx.actResendLastResponse).
		InternalTransition(evtTimerG, tx.actRetransmitFinal).
		Permit(evtRecvAck, TransactionStateConfirmed).
		Permit(evtTimerH, TransactionStateTerminated).
		Permit(evtTransportErr, TransactionStateTerminated).
		Permit(evtTerminate, TransactionStateTerminated)

	tx.fsm.Configure(TransactionStateConfirmed).
		OnEntry(tx.actConfirmed).
		InternalTransition(evtRecvAck, tx.actNoop).
		InternalTransition(evtRecvRequest, tx.actNoop).
		Permit(evtTimerI, TransactionStateTerminated).
		Permit(evtTerminate, TransactionStateTerminated)

	tx.fsm.Configure(TransactionStateTerminated).
		OnEntryFrom(evtTimerH, tx.actTimedOut).
		OnEntry(tx.actTerminated)

	tx.arm100TryingTimer(ctx)
	return tx, nil
}

// arm100TryingTimer schedules the automatic 100 Trying send, RFC 3261
// §17.2.1: fires once, Time100 after creation, unless some other
// provisional has been sent by then.
func (tx *InviteServerTransaction) arm100TryingTimer(ctx context.Context) {
	time.AfterFunc(tx.timings.Time100(), func() {
		tx.mu.Lock()
		sent := tx.provisionalSet
		tx.mu.Unlock()
		if sent || tx.State() != TransactionStateProceeding {
			return
		}
		_ = tx.fsm.FireCtx(ctx, evtSend1xx, NewResponse(100, "Trying", nil, nil))
	})
}

func (tx *InviteServerTransaction) actSendProvisional(ctx context.Context, args ...any) error {
	res := responseFromArgs(args)
	if res == nil {
		return nil
	}
	if err := tx.send(ctx, res); err != nil {
		return err
	}
	tx.mu.Lock()
	tx.provisionalSet = true
	tx.lastProvisional = res
	tx.mu.Unlock()
	return nil
}

// actResendLastResponse retransmits the most recent response sent on a
// duplicate inbound request, RFC 3261 §17.2.1: the final response once one
// exists, otherwise whichever provisional (reliable or not) was sent last.
func (tx *InviteServerTransaction) actResendLastResponse(ctx context.Context, _ ...any) error {
	tx.mu.Lock()
	res := tx.lastFinal
	if res == nil {
		res = tx.pendingProv
	}
	if res == nil {
		res = tx.lastProvisional
	}
	tx.mu.Unlock()
	if res == nil {
		return nil
	}
	return tx.send(ctx, res)
}

func (tx *InviteServerTransaction) actCompleted(ctx context.Context, args ...any) error {
	tx.cancelTimer(evtTimerPrack)
	res := responseFromArgs(args)
	if res != nil {
		tx.mu.Lock()
		tx.lastFinal = res
		tx.mu.Unlock()
		_ = tx.send(ctx, res)
	}
	if tx.origin.Transport() == "UDP" {
		tx.armTimer(evtTimerG, tx.timings.TimeG())
	}
	tx.armTimer(evtTimerH, tx.timings.TimeH())
	return nil
}

func (tx *InviteServerTransaction) actRetransmitFinal(ctx context.Context, _ ...any) error {
	tx.mu.Lock()
	res := tx.lastFinal
	tx.mu.Unlock()
	if res == nil {
		return nil
	}
	if err := tx.send(ctx, res); err != nil {
		return err
	}
	next := tx.nextRetransmit(tx.timings.T2())
	tx.armTimer(evtTimerG, next)
	return nil
}

func (tx *InviteServerTransaction) actConfirmed(context.Context, ...any) error {
	tx.cancelTimer(evtTimerG)
	tx.cancelTimer(evtTimerH)
	d := tx.timings.TimeI()
	if tx.origin.Transport() != "UDP" {
		d = 0
	}
	tx.armTimer(evtTimerI, d)
	return nil
}

func (tx *InviteServerTransaction) actCancelled(context.Context, ...any) error {
	tx.cancelTimer(evtTimerPrack)
	return nil
}

func (tx *InviteServerTransaction) actTimedOut(context.Context, ...any) error {
	tx.reportErr(ErrTransactionTimedOut)
	return nil
}

func (tx *InviteServerTransaction) actTerminated(context.Context, ...any) error {
	tx.finish()
	return nil
}

// Respond sends a response through the transaction, driving its FSM
// according to the response's status class.
func (tx *InviteServerTransaction) Respond(ctx context.Context, res *Response) error {
	switch {
	case res.IsProvisional():
		return tx.fsm.FireCtx(ctx, evtSend1xx, res)
	case res.IsSuccess():
		if err := tx.send(ctx, res); err != nil {
			return err
		}
		return tx.fsm.FireCtx(ctx, evtSend2xx, res)
	default:
		return tx.fsm.FireCtx(ctx, evtSend3xx6xx, res)
	}
}

// RecvRequest delivers a retransmission of the original request (or, in
// Proceeding, a request matched by key while a reliable provisional is
// outstanding) to the transaction, RFC 3261 §17.2.1: it triggers a resend of
// whatever response was last sent.
func (tx *InviteServerTransaction) RecvRequest(ctx context.Context, req *Request) error {
	return tx.fsm.FireCtx(ctx, evtRecvRequest, req)
}

// RecvAck delivers an inbound ACK to the transaction, RFC 3261 §17.2.1: in
// Completed it moves the transaction to Confirmed and arms Timer I.
func (tx *InviteServerTransaction) RecvAck(ctx context.Context, ack *Request) error {
	return tx.fsm.FireCtx(ctx, evtRecvAck, ack)
}

// SendProvisionalReliable sends a non-100 provisional response reliably,
// RFC 3262 §3: it stamps RSeq (a random initial value, then monotonically
// increasing) and a Require: 100rel header, then retransmits with a
// T1-backoff capped at T2 until a matching PRACK arrives. It fails with
// [ErrProvisionalPending] if a previously sent reliable provisional is
// still unacknowledged — a deliberate divergence from the literal
// "overrides the prior" behavior; see DESIGN.md.
func (tx *InviteServerTransaction) SendProvisionalReliable(ctx context.Context, res *Response) error {
	if !tx.prackSupported {
		return NewInvalidArgumentError("peer did not negotiate 100rel")
	}
	if res.StatusCode() == 100 {
		return NewInvalidArgumentError("100 Trying is never sent reliably")
	}

	tx.mu.Lock()
	if tx.pendingRSeq != 0 {
		tx.mu.Unlock()
		return ErrProvisionalPending
	}
	rseq := tx.nextRSeqLocked()
	tx.pendingRSeq = rseq
	tx.pendingProv = res
	tx.mu.Unlock()

	res.AppendHeader(header.RSeq(rseq))
	res.AppendHeader(header.Require{"100rel"})

	if err := tx.fsm.FireCtx(ctx, evtSend1xx, res); err != nil {
		tx.mu.Lock()
		tx.pendingRSeq = 0
		tx.pendingProv = nil
		tx.mu.Unlock()
		return err
	}

	tx.armTimer(evtTimerPrack, tx.timings.T1())
	return nil
}

func (tx *InviteServerTransaction) nextRSeqLocked() uint32 {
	if tx.lastRSeq == 0 {
		// RFC 3262 §3: initial value a random integer in [1, 2^31/2 - 1].
		tx.lastRSeq = uint32(rand.IntN(1<<30-1) + 1) //nolint:gosec
	} else {
		tx.lastRSeq++
	}
	return tx.lastRSeq
}

func (tx *InviteServerTransaction) actRetransmitProvisional(ctx context.Context, _ ...any) error {
	tx.mu.Lock()
	res := tx.pendingProv
	tx.mu.Unlock()
	if res == nil {
		return nil
	}
	if err := tx.send(ctx, res); err != nil {
		return err
	}
	next := tx.nextRetransmit(tx.timings.T2())
	tx.armTimer(evtTimerPrack, next)
	return nil
}

// RecvPrack delivers an inbound PRACK to the transaction for RAck matching,
// RFC 3262 §3. A non-matching RAck is reported via ErrProvisionalNotFound
// and the caller is expected to respond 481 itself; a matching RAck cancels
// the provisional's retransmit timer.
func (tx *InviteServerTransaction) RecvPrack(ctx context.Context, prack *Request) error {
	return tx.fsm.FireCtx(ctx, evtRecvPrack, prack)
}

func (tx *InviteServerTransaction) actRecvPrack(_ context.Context, args ...any) error {
	prack, _ := argAt(args, 0).(*Request)
	if prack == nil {
		return ErrProvisionalNotFound
	}
	racks := prack.GetHeaders("RAck")
	if len(racks) == 0 {
		return ErrProvisionalNotFound
	}
	rack, ok := racks[0].(*header.RAck)
	if !ok {
		return ErrProvisionalNotFound
	}

	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.pendingRSeq == 0 || rack.RSeq != tx.pendingRSeq {
		return ErrProvisionalNotFound
	}
	tx.pendingRSeq = 0
	tx.pendingProv = nil
	tx.cancelTimer(evtTimerPrack)
	return nil
}

// CancelCall drives a Proceeding INVITE server transaction to Cancelled,
// RFC 3261 §9.2: pending retransmits stop, no response is emitted by the
// transaction itself (the 487 Request Terminated is the user agent's job).
func (tx *InviteServerTransaction) CancelCall(ctx context.Context) error {
	return tx.fsm.FireCtx(ctx, evtCancel)
}

func argAt(args []any, i int) any {
	if i < 0 || i >= len(args) {
		return nil
	}
	return args[i]
}

// NonInviteServerTransaction implements the non-INVITE server transaction
// FSM, RFC 3261 §17.2.2: states {Trying, Proceeding, Completed, Terminated}.
type NonInviteServerTransaction struct {
	*transact

	mu        sync.Mutex
	lastFinal *Response
}

// NewNonInviteServerTransaction creates and starts a non-INVITE server
// transaction in the Trying state.
func NewNonInviteServerTransaction(_ context.Context, key Key, req *Request, sender Sender, timings TimingConfig, log *slog.Logger) (*NonInviteServerTransaction, error) {
	tx := &NonInviteServerTransaction{transact: newTransact(key, req, sender, timings, log)}
	tx.fsm = newTransactionFSM(TransactionStateTrying)

	tx.fsm.Configure(TransactionStateTrying).
		InternalTransition(evtRecvRequest, tx.actNoop).
		Permit(evtSend1xx, TransactionStateProceeding).
		Permit(evtSend2xx, TransactionStateCompleted).
		Permit(evtSend3xx6xx, TransactionStateCompleted).
		Permit(evtTransportErr, TransactionStateTerminated).
		Permit(evtTerminate, TransactionStateTerminated)

	tx.fsm.Configure(TransactionStateProceeding).
		InternalTransition(evtRecvRequest, tx.actResendLastResponse).
		InternalTransition(evtSend1xx, tx.actSendProvisional).
		Permit(evtSend2xx, TransactionStateCompleted).
		Permit(evtSend3xx6xx, TransactionStateCompleted).
		Permit(evtTransportErr, TransactionStateTerminated).
		Permit(evtTerminate, TransactionStateTerminated)

	tx.fsm.Configure(TransactionStateCompleted).
		OnEntry(tx.actCompleted).
		InternalTransition(evtRecvRequest, tx.actResendLastResponse).
		Permit(evtTimerJ, TransactionStateTerminated).
		Permit(evtTerminate, TransactionStateTerminated)

	tx.fsm.Configure(TransactionStateTerminated).
		OnEntry(tx.actTerminated)

	return tx, nil
}

// RecvRequest delivers a retransmission of the original request to the
// transaction, RFC 3261 §17.2.2: it triggers a resend of the last response
// sent, once there is one.
func (tx *NonInviteServerTransaction) RecvRequest(ctx context.Context, req *Request) error {
	return tx.fsm.FireCtx(ctx, evtRecvRequest, req)
}

func (tx *NonInviteServerTransaction) actSendProvisional(ctx context.Context, args ...any) error {
	res := responseFromArgs(args)
	if res == nil {
		return nil
	}
	return tx.send(ctx, res)
}

func (tx *NonInviteServerTransaction) actResendLastResponse(ctx context.Context, _ ...any) error {
	tx.mu.Lock()
	res := tx.lastFinal
	tx.mu.Unlock()
	if res == nil {
		return nil
	}
	return tx.send(ctx, res)
}

func (tx *NonInviteServerTransaction) actCompleted(ctx context.Context, args ...any) error {
	res := responseFromArgs(args)
	if res != nil {
		tx.mu.Lock()
		tx.lastFinal = res
		tx.mu.Unlock()
		_ = tx.send(ctx, res)
	}
	d := tx.timings.TimeJ()
	if tx.origin.Transport() != "UDP" {
		d = 0
	}
	tx.armTimer(evtTimerJ, d)
	return nil
}

func (tx *NonInviteServerTransaction) actTerminated(context.Context, ...any) error {
	tx.finish()
	return nil
}

// Respond sends a response through the transaction, driving its FSM
// according to the response's status class.
func (tx *NonInviteServerTransaction) Respond(ctx context.Context, res *Response) error {
	switch {
	case res.IsProvisional():
		return tx.fsm.FireCtx(ctx, evtSend1xx, res)
	case res.IsSuccess():
		return tx.fsm.FireCtx(ctx, evtSend2xx, res)
	default:
		return tx.fsm.FireCtx(ctx, evtSend3xx6xx, res)
	}
}
