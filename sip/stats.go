package sip

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ghettovoice/gosip/header"
)

// StatsReport is a point-in-time snapshot produced by [StatsRecorder.Report].
type StatsReport struct {
	Time         time.Time        `json:"time"`
	Transports   []TransportStats `json:"transports"`
	Transactions TransactionStats `json:"transactions"`
}

// TransportStats counts inbound/outbound traffic on one registered transport
// protocol.
type TransportStats struct {
	Proto             TransportProto `json:"proto"`
	RequestsReceived  uint64         `json:"requests_received"`
	RequestsSent      uint64         `json:"requests_sent"`
	ResponsesReceived uint64         `json:"responses_received"`
	ResponsesSent     uint64         `json:"responses_sent"`
	AvgRTT            time.Duration  `json:"avg_rtt"`
	NumRTT            uint64         `json:"num_rtt"`
}

// TransactionStats counts active and lifetime-total transactions per type.
type TransactionStats struct {
	InviteClientTransactions         uint64 `json:"invite_client_transactions"`
	NonInviteClientTransactions      uint64 `json:"non_invite_client_transactions"`
	InviteServerTransactions         uint64 `json:"invite_server_transactions"`
	NonInviteServerTransactions      uint64 `json:"non_invite_server_transactions"`
	InviteClientTransactionsTotal    uint64 `json:"invite_client_transactions_total"`
	NonInviteClientTransactionsTotal uint64 `json:"non_invite_client_transactions_total"`
	InviteServerTransactionsTotal    uint64 `json:"invite_server_transactions_total"`
	NonInviteServerTransactionsTotal uint64 `json:"non_invite_server_transactions_total"`
}

// StatsRecorder aggregates per-transport request/response counters with a
// running average RTT, and active/total transaction counts by type. It
// counts what reaches it through a [Sender] wrapped by
// [StatsRecorder.WrapSender], through [StatsRecorder.RecordInbound] and
// through its Track methods, with no polling; neither [Transport] nor
// [Manager] calls it on its own.
type StatsRecorder struct {
	transports sync.Map // map[TransportProto]*transportCounters

	invClnTxs, ninvClnTxs, invSrvTxs, ninvSrvTxs atomic.Int64
	invClnTxsTotal, ninvClnTxsTotal              atomic.Uint64
	invSrvTxsTotal, ninvSrvTxsTotal              atomic.Uint64
}

type transportCounters struct {
	inReqs, inRess, outReqs, outRess atomic.Uint64
	rttSum, rttNum                   atomic.Uint64
}

func (r *StatsRecorder) counters(proto TransportProto) *transportCounters {
	v, _ := r.transports.LoadOrStore(proto, &transportCounters{})
	return v.(*transportCounters) //nolint:forcetypeassert
}

// Report returns a snapshot of every counter tracked so far. Call it
// periodically; it never resets the underlying counters.
func (r *StatsRecorder) Report() StatsReport {
	report := StatsReport{Time: time.Now()}

	r.transports.Range(func(key, value any) bool {
		proto, ok := key.(TransportProto)
		if !ok {
			return true
		}
		c, ok := value.(*transportCounters)
		if !ok {
			return true
		}

		rttNum := c.rttNum.Load()
		var avgRTT time.Duration
		if rttNum > 0 {
			avgRTT = time.Duration(c.rttSum.Load() / rttNum)
		}

		report.Transports = append(report.Transports, TransportStats{
			Proto:             proto,
			RequestsReceived:  c.inReqs.Load(),
			RequestsSent:      c.outReqs.Load(),
			ResponsesReceived: c.inRess.Load(),
			ResponsesSent:     c.outRess.Load(),
			AvgRTT:            avgRTT,
			NumRTT:            rttNum,
		})
		return true
	})

	report.Transactions = TransactionStats{
		InviteClientTransactions:         clampToUint64(r.invClnTxs.Load()),
		NonInviteClientTransactions:      clampToUint64(r.ninvClnTxs.Load()),
		InviteServerTransactions:         clampToUint64(r.invSrvTxs.Load()),
		NonInviteServerTransactions:      clampToUint64(r.ninvSrvTxs.Load()),
		InviteClientTransactionsTotal:    r.invClnTxsTotal.Load(),
		NonInviteClientTransactionsTotal: r.ninvClnTxsTotal.Load(),
		InviteServerTransactionsTotal:    r.invSrvTxsTotal.Load(),
		NonInviteServerTransactionsTotal: r.ninvSrvTxsTotal.Load(),
	}
	return report
}

func clampToUint64(v int64) uint64 {
	if v <= 0 {
		return 0
	}
	return uint64(v)
}

// WrapSender returns a [Sender] that stamps outbound requests with a
// Timestamp header (RFC 3261 §8.2.6.5) when one isn't already present, and
// counts outbound requests/responses per transport protocol before
// delegating to sender.
func (r *StatsRecorder) WrapSender(sender Sender) Sender {
	return &statsSender{sender: sender, rcdr: r}
}

type statsSender struct {
	sender Sender
	rcdr   *StatsRecorder
}

func (s *statsSender) Send(ctx context.Context, msg Message) error {
	if req, ok := msg.(*Request); ok && len(req.GetHeaders("Timestamp")) == 0 {
		req.AppendHeader(&header.Timestamp{RequestTime: time.Now()})
	}

	if err := s.sender.Send(ctx, msg); err != nil {
		return err
	}

	c := s.rcdr.counters(msg.Transport())
	switch msg.(type) {
	case *Request:
		c.outReqs.Add(1)
	case *Response:
		c.outRess.Add(1)
	}
	return nil
}

// RecordInbound counts an inbound message per transport protocol, and for a
// response whose first Timestamp header carries a non-zero request time,
// folds its round-trip time into the transport's running average. The
// response is not matched against requests sent through this recorder.
// Wire it into [Transport.OnMessage] ahead of the application callback.
func (r *StatsRecorder) RecordInbound(msg Message) {
	c := r.counters(msg.Transport())

	switch m := msg.(type) {
	case *Request:
		c.inReqs.Add(1)
	case *Response:
		c.inRess.Add(1)
		r.recordRTT(c, m)
	}
}

func (r *StatsRecorder) recordRTT(c *transportCounters, res *Response) {
	hdrs := res.GetHeaders("Timestamp")
	if len(hdrs) == 0 {
		return
	}
	ts, ok := hdrs[0].(*header.Timestamp)
	if !ok || ts.RequestTime.IsZero() {
		return
	}

	rtt := time.Since(ts.RequestTime) - ts.ResponseDelay
	if rtt < 0 {
		return
	}
	c.rttNum.Add(1)
	c.rttSum.Add(uint64(rtt))
}

// TrackClientTransaction registers a newly created client transaction of
// typ, incrementing its active and lifetime-total counts, and decrementing
// the active count once the transaction reaches Terminated.
func (r *StatsRecorder) TrackClientTransaction(tx ClientTransaction, typ TransactionType) {
	var active *atomic.Int64
	switch typ {
	case TransactionTypeInviteClient:
		active = &r.invClnTxs
		r.invClnTxsTotal.Add(1)
	case TransactionTypeNonInviteClient:
		active = &r.ninvClnTxs
		r.ninvClnTxsTotal.Add(1)
	default:
		return
	}
	active.Add(1)
	go func() {
		<-tx.Done()
		active.Add(-1)
	}()
}

// TrackServerTransaction registers a newly created server transaction of
// typ, the same way [StatsRecorder.TrackClientTransaction] does for client
// transactions.
func (r *StatsRecorder) TrackServerTransaction(tx ServerTransaction, typ TransactionType) {
	var active *atomic.Int64
	switch typ {
	case TransactionTypeInviteServer:
		active = &r.invSrvTxs
		r.invSrvTxsTotal.Add(1)
	case TransactionTypeNonInviteServer:
		active = &r.ninvSrvTxs
		r.ninvSrvTxsTotal.Add(1)
	default:
		return
	}
	active.Add(1)
	go func() {
		<-tx.Done()
		active.Add(-1)
	}()
}
