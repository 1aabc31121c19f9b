package sip

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// RequestHandler is called with a request that was not matched to any
// existing transaction: a new server transaction just created for it
// (INVITE, non-INVITE, or a CANCEL's own non-INVITE transaction).
type RequestHandler func(ctx context.Context, tx ServerTransaction, req *Request)

// TransactionRemovedHandler is called once a Terminated transaction has been
// swept from the manager after Timer T6.
type TransactionRemovedHandler func(TransactionRemoved)

// inboundServerTransaction is the subset of server transaction behavior the
// manager needs to dispatch duplicate requests, regardless of INVITE/non-INVITE.
type inboundServerTransaction interface {
	Transaction
	RecvRequest(ctx context.Context, req *Request) error
}

// Manager matches inbound requests and responses to transactions, RFC 3261
// §17.1.3 / §17.2.3, creates transactions for unmatched requests, wires
// CANCEL to its INVITE server transaction, and sweeps Terminated
// transactions after Timer T6.
type Manager struct {
	sender  Sender
	timings TimingConfig
	log     *slog.Logger

	mu        sync.Mutex
	clientTxs map[Key]ClientTransaction
	serverTxs map[Key]inboundServerTransaction

	onRequest RequestHandler
	onRemoved TransactionRemovedHandler
}

// NewManager creates a transaction manager sending through sender with the
// given timing configuration.
func NewManager(sender Sender, timings TimingConfig, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		sender:    sender,
		timings:   timings,
		log:       log,
		clientTxs: make(map[Key]ClientTransaction),
		serverTxs: make(map[Key]inboundServerTransaction),
	}
}

// OnRequest registers the callback invoked for a request not matched to any
// existing transaction, after its new server transaction has been created.
func (m *Manager) OnRequest(fn RequestHandler) { m.onRequest = fn }

// OnTransactionRemoved registers the callback invoked after a Terminated
// transaction ages out of the manager's tables.
func (m *Manager) OnTransactionRemoved(fn TransactionRemovedHandler) { m.onRemoved = fn }

func topBranch(msg Message) (string, bool) {
	hop, ok := msg.ViaHop()
	if !ok {
		return "", false
	}
	return hop.Branch()
}

// NewClientTransaction creates and starts a client transaction for req: an
// INVITE client transaction if req is an INVITE, a non-INVITE client
// transaction otherwise. req must carry a top Via with a branch parameter.
func (m *Manager) NewClientTransaction(ctx context.Context, req *Request) (ClientTransaction, error) {
	branch, ok := topBranch(req)
	if !ok {
		return nil, ErrInvalidArgument
	}
	key := NewKey(branch, req.Method())

	var (
		tx  ClientTransaction
		err error
		typ TransactionType
	)
	if req.IsInvite() {
		tx, err = NewInviteClientTransaction(ctx, key, req, m.sender, m.timings, m.log)
		typ = TransactionTypeInviteClient
	} else {
		tx, err = NewNonInviteClientTransaction(ctx, key, req, m.sender, m.timings, m.log)
		typ = TransactionTypeNonInviteClient
	}
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.clientTxs[key] = tx
	m.mu.Unlock()
	go m.watchRemoval(key, tx, typ)
	return tx, nil
}

// HandleRequest dispatches an inbound request: duplicates of an existing
// request are handed to their transaction for retransmission handling, ACKs
// for a non-2xx final response are matched by branch+INVITE and delivered
// directly, CANCEL is matched against its INVITE server transaction, and
// anything else not matched creates a new server transaction and invokes the
// registered [RequestHandler].
func (m *Manager) HandleRequest(ctx context.Context, req *Request) error {
	branch, ok := topBranch(req)
	if !ok {
		return ErrMessageNotMatched
	}

	if req.IsAck() {
		return m.handleAck(ctx, branch, req)
	}
	if req.IsCancel() {
		return m.handleCancel(ctx, branch, req)
	}

	key := NewKey(branch, req.Method())
	m.mu.Lock()
	tx, found := m.serverTxs[key]
	m.mu.Unlock()
	if found {
		return tx.RecvRequest(ctx, req)
	}

	newTx, err := m.newServerTransaction(ctx, key, req)
	if err != nil {
		return err
	}
	if m.onRequest != nil {
		m.onRequest(ctx, newTx.(ServerTransaction), req)
	}
	return nil
}

// handleAck matches an ACK for a non-2xx final response, RFC 3261 §17.1.1.3:
// it shares its INVITE's branch and method INVITE, not ACK. ACKs for a 2xx
// final response are not transaction-matched at all and never reach here
// through the normal dispatch path (the UA core handles them directly).
func (m *Manager) handleAck(ctx context.Context, branch string, ack *Request) error {
	key := NewKey(branch, INVITE)
	m.mu.Lock()
	tx, found := m.serverTxs[key]
	m.mu.Unlock()
	if !found {
		return ErrTransactionNotFound
	}
	invTx, ok := tx.(*InviteServerTransaction)
	if !ok {
		return ErrTransactionNotFound
	}
	return invTx.RecvAck(ctx, ack)
}

// handleCancel matches an inbound CANCEL, RFC 3261 §9.2: a retransmitted
// CANCEL is delivered to its own non-INVITE server transaction; a new one
// drives the matching INVITE server transaction to Cancelled if it is still
// Proceeding, then gets its own non-INVITE server transaction so the core can
// respond to the CANCEL itself.
func (m *Manager) handleCancel(ctx context.Context, branch string, cancel *Request) error {
	cancelKey := NewKey(branch, CANCEL)
	m.mu.Lock()
	if tx, found := m.serverTxs[cancelKey]; found {
		m.mu.Unlock()
		return tx.RecvRequest(ctx, cancel)
	}
	invTx, invFound := m.serverTxs[NewKey(branch, INVITE)]
	m.mu.Unlock()

	newTx, err := m.newServerTransaction(ctx, cancelKey, cancel)
	if err != nil {
		return err
	}

	if invFound {
		if inv, ok := invTx.(*InviteServerTransaction); ok && inv.State() == TransactionStateProceeding {
			_ = inv.CancelCall(ctx)
		}
	}

	if m.onRequest != nil {
		m.onRequest(ctx, newTx.(ServerTransaction), cancel)
	}
	return nil
}

func (m *Manager) newServerTransaction(ctx context.Context, key Key, req *Request) (inboundServerTransaction, error) {
	var (
		tx  inboundServerTransaction
		err error
		typ TransactionType
	)
	if req.IsInvite() {
		tx, err = NewInviteServerTransaction(ctx, key, req, m.sender, m.timings, m.log)
		typ = TransactionTypeInviteServer
	} else {
		tx, err = NewNonInviteServerTransaction(ctx, key, req, m.sender, m.timings, m.log)
		typ = TransactionTypeNonInviteServer
	}
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.serverTxs[key] = tx
	m.mu.Unlock()
	go m.watchRemoval(key, tx, typ)
	return tx, nil
}

// HandleResponse dispatches an inbound response to the client transaction
// matched by branch and CSeq method, RFC 3261 §17.1.3. A response matching no
// transaction is silently discarded, as RFC 3261 prescribes.
func (m *Manager) HandleResponse(ctx context.Context, res *Response) error {
	branch, ok := topBranch(res)
	if !ok {
		return ErrMessageNotMatched
	}
	cseq, ok := res.CSeq()
	if !ok {
		return ErrMessageNotMatched
	}
	key := NewKey(branch, cseq.Method)

	m.mu.Lock()
	tx, found := m.clientTxs[key]
	m.mu.Unlock()
	if !found {
		m.log.DebugContext(ctx, "discarding response matching no transaction", "branch", branch, "method", cseq.Method)
		return ErrTransactionNotFound
	}
	tx.Receive(ctx, res)
	return nil
}

// watchRemoval waits for tx to reach Terminated, then after Timer T6 removes
// it from the manager's tables and reports [TransactionRemoved].
func (m *Manager) watchRemoval(key Key, tx Transaction, typ TransactionType) {
	<-tx.Done()
	time.AfterFunc(T6, func() {
		m.mu.Lock()
		switch typ {
		case TransactionTypeInviteServer, TransactionTypeNonInviteServer:
			delete(m.serverTxs, key)
		default:
			delete(m.clientTxs, key)
		}
		m.mu.Unlock()
		if m.onRemoved != nil {
			m.onRemoved(TransactionRemoved{Key: key, Type: typ})
		}
	})
}

// Close terminates every tracked transaction immediately, without waiting
// for Timer T6.
func (m *Manager) Close() {
	m.mu.Lock()
	clientTxs := make([]ClientTransaction, 0, len(m.clientTxs))
	for _, tx := range m.clientTxs {
		clientTxs = append(clientTxs, tx)
	}
	serverTxs := make([]inboundServerTransaction, 0, len(m.serverTxs))
	for _, tx := range m.serverTxs {
		serverTxs = append(serverTxs, tx)
	}
	m.mu.Unlock()

	for _, tx := range clientTxs {
		tx.Terminate()
	}
	for _, tx := range serverTxs {
		tx.Terminate()
	}
}
