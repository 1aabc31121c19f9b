package sip

import (
	"context"
	"log/slog"

	"github.com/ghettovoice/gosip/header"
)

// ClientTransaction is a SIP client transaction, RFC 3261 §17.1.
type ClientTransaction interface {
	Transaction
	// Receive delivers an inbound response matched to this transaction.
	Receive(ctx context.Context, res *Response)
}

// InviteClientTransaction implements the INVITE client transaction FSM,
// RFC 3261 §17.1.1: states {Calling, Proceeding, Completed, Terminated}.
type InviteClientTransaction struct {
	*transact
	ack *Request
}

// NewInviteClientTransaction creates and starts an INVITE client transaction:
// it sends req immediately and, on an unreliable transport, arms Timer A
// (retransmit, doubling) alongside Timer B (overall timeout, 64*T1).
func NewInviteClientTransaction(ctx context.Context, key Key, req *Request, sender Sender, timings TimingConfig, log *slog.Logger) (*InviteClientTransaction, error) {
	tx := &InviteClientTransaction{transact: newTransact(key, req, sender, timings, log)}
	tx.fsm = newTransactionFSM(TransactionStateCalling)

	tx.fsm.Configure(TransactionStateCalling).
		InternalTransition(evtTimerA, tx.actTimerA).
		Permit(evtRecv1xx, TransactionStateProceeding).
		Permit(evtRecv2xx, TransactionStateTerminated).
		Permit(evtRecv3xx6xx, TransactionStateCompleted).
		Permit(evtTimerB, TransactionStateTerminated).
		Permit(evtTransportErr, TransactionStateTerminated).
		Permit(evtTerminate, TransactionStateTerminated)

	tx.fsm.Configure(TransactionStateProceeding).
		Permit(evtRecv2xx, TransactionStateTerminated).
		Permit(evtRecv3xx6xx, TransactionStateCompleted).
		Permit(evtTransportErr, TransactionStateTerminated).
		Permit(evtTerminate, TransactionStateTerminated).
		InternalTransition(evtRecv1xx, tx.actNoop)

	tx.fsm.Configure(TransactionStateCompleted).
		OnEntry(tx.actCompleted).
		InternalTransition(evtRecv3xx6xx, tx.actRetransmitAck).
		Permit(evtTimerD, TransactionStateTerminated).
		Permit(evtTransportErr, TransactionStateTerminated).
		Permit(evtTerminate, TransactionStateTerminated)

	tx.fsm.Configure(TransactionStateTerminated).
		OnEntryFrom(evtTimerB, tx.actTimedOut).
		OnEntry(tx.actTerminated)

	if err := tx.send(ctx, req); err != nil {
		return nil, err
	}
	if req.Transport() == "UDP" {
		tx.armTimer(evtTimerA, tx.timings.TimeA())
	}
	tx.armTimer(evtTimerB, tx.timings.TimeB())
	return tx, nil
}

func (tx *InviteClientTransaction) actTimerA(ctx context.Context, _ ...any) error {
	if err := tx.send(ctx, tx.origin); err != nil {
		return err
	}
	tx.armTimer(evtTimerA, tx.nextRetransmit(0))
	return nil
}

func (tx *InviteClientTransaction) actCompleted(ctx context.Context, args ...any) error {
	tx.cancelTimer(evtTimerA)
	tx.cancelTimer(evtTimerB)
	ack := buildAck(tx.origin, responseFromArgs(args))
	tx.ack = ack
	_ = tx.send(ctx, ack)
	d := tx.timings.TimeI()
	if tx.origin.Transport() == "UDP" {
		d = tx.timings.TimeD()
	}
	tx.armTimer(evtTimerD, d)
	return nil
}

func (tx *InviteClientTransaction) actRetransmitAck(ctx context.Context, _ ...any) error {
	if tx.ack != nil {
		_ = tx.send(ctx, tx.ack)
	}
	return nil
}

func (tx *InviteClientTransaction) actTimedOut(context.Context, ...any) error {
	tx.reportErr(ErrTransactionTimedOut)
	return nil
}

func (tx *InviteClientTransaction) actTerminated(context.Context, ...any) error {
	tx.finish()
	return nil
}

// Receive delivers an inbound response to the transaction.
func (tx *InviteClientTransaction) Receive(ctx context.Context, res *Response) {
	switch {
	case res.IsProvisional():
		_ = tx.fsm.FireCtx(ctx, evtRecv1xx, res)
	case res.IsSuccess():
		_ = tx.fsm.FireCtx(ctx, evtRecv2xx, res)
	default:
		_ = tx.fsm.FireCtx(ctx, evtRecv3xx6xx, res)
	}
}

// NonInviteClientTransaction implements the non-INVITE client transaction
// FSM, RFC 3261 §17.1.2: states {Trying, Proceeding, Completed, Terminated}.
type NonInviteClientTransaction struct {
	*transact
}

// NewNonInviteClientTransaction creates and starts a non-INVITE client
// transaction: it sends req immediately and, on an unreliable transport,
// arms Timer E (retransmit, doubling to T2) alongside Timer F (overall
// timeout, 64*T1).
func NewNonInviteClientTransaction(ctx context.Context, key Key, req *Request, sender Sender, timings TimingConfig, log *slog.Logger) (*NonInviteClientTransaction, error) {
	tx := &NonInviteClientTransaction{transact: newTransact(key, req, sender, timings, log)}
	tx.fsm = newTransactionFSM(TransactionStateTrying)

	tx.fsm.Configure(TransactionStateTrying).
		InternalTransition(evtTimerE, tx.actTimerE).
		Permit(evtRecv1xx, TransactionStateProceeding).
		Permit(evtRecv2xx, TransactionStateCompleted).
		Permit(evtRecv3xx6xx, TransactionStateCompleted).
		Permit(evtTimerF, TransactionStateTerminated).
		Permit(evtTransportErr, TransactionStateTerminated).
		Permit(evtTerminate, TransactionStateTerminated)

	tx.fsm.Configure(TransactionStateProceeding).
		InternalTransition(evtTimerE, tx.actTimerE).
		Permit(evtRecv2xx, TransactionStateCompleted).
		Permit(evtRecv3xx6xx, TransactionStateCompleted).
		Permit(evtTimerF, TransactionStateTerminated).
		Permit(evtTransportErr, TransactionStateTerminated).
		Permit(evtTerminate, TransactionStateTerminated).
		InternalTransition(evtRecv1xx, tx.actNoop)

	tx.fsm.Configure(TransactionStateCompleted).
		OnEntry(tx.actCompleted).
		InternalTransition(evtRecv2xx, tx.actNoop).
		InternalTransition(evtRecv3xx6xx, tx.actNoop).
		Permit(evtTimerK, TransactionStateTerminated).
		Permit(evtTerminate, TransactionStateTerminated)

	tx.fsm.Configure(TransactionStateTerminated).
		OnEntryFrom(evtTimerF, tx.actTimedOut).
		OnEntry(tx.actTerminated)

	if err := tx.send(ctx, req); err != nil {
		return nil, err
	}
	tx.armTimer(evtTimerF, tx.timings.TimeF())
	if req.Transport() == "UDP" {
		tx.armTimer(evtTimerE, tx.timings.TimeE())
	}
	return tx, nil
}

func (tx *NonInviteClientTransaction) actTimerE(ctx context.Context, _ ...any) error {
	if err := tx.send(ctx, tx.origin); err != nil {
		return err
	}
	next := tx.nextRetransmit(tx.timings.T2())
	if tx.State() == TransactionStateProceeding {
		next = tx.timings.T2()
	}
	tx.armTimer(evtTimerE, next)
	return nil
}

func (tx *NonInviteClientTransaction) actCompleted(context.Context, ...any) error {
	tx.cancelTimer(evtTimerE)
	tx.cancelTimer(evtTimerF)
	d := tx.timings.TimeK()
	if tx.origin.Transport() != "UDP" {
		d = 0
	}
	tx.armTimer(evtTimerK, d)
	return nil
}

func (tx *NonInviteClientTransaction) actTimedOut(context.Context, ...any) error {
	tx.reportErr(ErrTransactionTimedOut)
	return nil
}

func (tx *NonInviteClientTransaction) actTerminated(context.Context, ...any) error {
	tx.finish()
	return nil
}

// Receive delivers an inbound response to the transaction.
func (tx *NonInviteClientTransaction) Receive(ctx context.Context, res *Response) {
	switch {
	case res.IsProvisional():
		_ = tx.fsm.FireCtx(ctx, evtRecv1xx, res)
	case res.IsSuccess():
		_ = tx.fsm.FireCtx(ctx, evtRecv2xx, res)
	default:
		_ = tx.fsm.FireCtx(ctx, evtRecv3xx6xx, res)
	}
}

func responseFromArgs(args []any) *Response {
	if len(args) == 0 {
		return nil
	}
	res, _ := args[0].(*Response)
	return res
}

// buildAck builds the ACK request an INVITE client transaction sends on
// receiving a non-2xx final response, RFC 3261 §17.1.1.3: the top Via,
// From, Call-ID and CSeq sequence number of the INVITE, CSeq method ACK,
// and the To of the response being acknowledged (carrying any tag the UAS
// added), routed along the same Route set.
func buildAck(inv *Request, res *Response) *Request {
	ack := NewRequest(ACK, inv.Recipient(), nil, nil)
	ack.SetSipVersion(inv.SipVersion())
	if via, ok := inv.Via(); ok && len(via) > 0 {
		ack.AppendHeader(header.Via{via[0]})
	}
	CopyHeaders("From", inv, ack)
	if res != nil {
		if to, ok := res.To(); ok {
			ack.AppendHeader(to.Clone())
		}
	} else {
		CopyHeaders("To", inv, ack)
	}
	CopyHeaders("Call-ID", inv, ack)
	CopyHeaders("Route", inv, ack)
	if cseq, ok := inv.CSeq(); ok {
		ack.AppendHeader(&header.CSeq{SeqNum: cseq.SeqNum, Method: ACK})
	}
	ack.AppendHeader(header.MaxForwards(70))
	ack.SetDestination(inv.Destination())
	return ack
}
