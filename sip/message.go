package sip

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ghettovoice/gosip/header"
	"github.com/ghettovoice/gosip/internal/types"
)

// RequestMethod represents a SIP request method (INVITE, ACK, BYE, ...).
type RequestMethod = types.RequestMethod

// Well-known request methods, RFC 3261 §20 and RFC 3262 (PRACK).
const (
	INVITE    RequestMethod = "INVITE"
	ACK       RequestMethod = "ACK"
	CANCEL    RequestMethod = "CANCEL"
	BYE       RequestMethod = "BYE"
	REGISTER  RequestMethod = "REGISTER"
	OPTIONS   RequestMethod = "OPTIONS"
	SUBSCRIBE RequestMethod = "SUBSCRIBE"
	NOTIFY    RequestMethod = "NOTIFY"
	REFER     RequestMethod = "REFER"
	PRACK     RequestMethod = "PRACK"
	INFO      RequestMethod = "INFO"
	UPDATE    RequestMethod = "UPDATE"
	MESSAGE   RequestMethod = "MESSAGE"
)

// ResponseStatus represents a SIP response status code.
type ResponseStatus = types.ResponseStatus

// Addr is a network address (host, optional port), as used by Via/Contact/Route headers.
type Addr = header.Addr

// Message is the common interface implemented by [Request] and [Response], RFC 3261 §7.
type Message interface {
	fmt.Stringer

	// isMessage seals the interface: only *Request and *Response implement it.
	isMessage()

	// Clone returns a deep copy of the message.
	Clone() Message
	// StartLine returns the Request-Line or Status-Line.
	StartLine() string
	// Short returns a short, loggable description of the message.
	Short() string
	// SipVersion returns the protocol version, normally "SIP/2.0".
	SipVersion() string
	SetSipVersion(version string)

	// Headers returns all headers, in wire order.
	Headers() []header.Header
	// GetHeaders returns the headers with the given canonical or compact name.
	GetHeaders(name string) []header.Header
	// AppendHeader appends a header to the end of the message.
	AppendHeader(h header.Header)
	// PrependHeader inserts a header before any existing header of the same name.
	PrependHeader(h header.Header)
	// RemoveHeader removes all headers with the given name.
	RemoveHeader(name string)

	// Body returns the message body.
	Body() []byte
	// SetBody sets the message body, optionally updating the Content-Length header.
	SetBody(body []byte, setContentLength bool)

	CallID() (header.CallID, bool)
	Via() (header.Via, bool)
	ViaHop() (*header.ViaHop, bool)
	From() (*header.From, bool)
	To() (*header.To, bool)
	CSeq() (*header.CSeq, bool)
	ContentLength() (header.ContentLength, bool)

	// Transport returns the transport protocol named by the top Via header,
	// or DefaultTransport if there is none.
	Transport() header.TransportProto
	// Source returns the address the message was received from, if any.
	Source() Addr
	SetSource(addr Addr)
	// Destination returns the address the message is to be sent to, if any.
	Destination() Addr
	SetDestination(addr Addr)

	// LogValue renders the message for structured logging.
	LogValue() slog.Value
}

// DefaultTransport is used when a message carries no Via header.
const DefaultTransport header.TransportProto = "UDP"

// headerSet stores the headers of a message keyed by lower-cased canonical name,
// preserving first-seen order across names.
type headerSet struct {
	byName map[string][]header.Header
	order  []string
}

func newHeaderSet(hdrs []header.Header) *headerSet {
	hs := &headerSet{byName: make(map[string][]header.Header)}
	for _, h := range hdrs {
		hs.append(h)
	}
	return hs
}

func lname(h header.Header) string { return strings.ToLower(string(h.CanonicName())) }

func (hs *headerSet) append(h header.Header) {
	name := lname(h)
	if _, ok := hs.byName[name]; ok {
		hs.byName[name] = append(hs.byName[name], h)
	} else {
		hs.byName[name] = []header.Header{h}
		hs.order = append(hs.order, name)
	}
}

func (hs *headerSet) prepend(h header.Header) {
	name := lname(h)
	if existing, ok := hs.byName[name]; ok {
		hs.byName[name] = append([]header.Header{h}, existing...)
		return
	}
	hs.byName[name] = []header.Header{h}
	order := make([]string, 0, len(hs.order)+1)
	order = append(order, name)
	hs.order = append(order, hs.order...)
}

func (hs *headerSet) remove(name string) {
	name = strings.ToLower(name)
	delete(hs.byName, name)
	for i, n := range hs.order {
		if n == name {
			hs.order = append(hs.order[:i], hs.order[i+1:]...)
			break
		}
	}
}

func (hs *headerSet) get(name string) []header.Header {
	return hs.byName[strings.ToLower(name)]
}

func (hs *headerSet) all() []header.Header {
	out := make([]header.Header, 0, len(hs.order))
	for _, n := range hs.order {
		out = append(out, hs.byName[n]...)
	}
	return out
}

func (hs *headerSet) clone() *headerSet {
	clone := &headerSet{
		byName: make(map[string][]header.Header, len(hs.byName)),
		order:  append([]string(nil), hs.order...),
	}
	for name, hdrs := range hs.byName {
		cloned := make([]header.Header, len(hdrs))
		for i, h := range hdrs {
			cloned[i] = h.Clone()
		}
		clone.byName[name] = cloned
	}
	return clone
}

func (hs *headerSet) String() string {
	var buf bytes.Buffer
	all := hs.all()
	for i, h := range all {
		buf.WriteString(h.Render(nil))
		if i < len(all)-1 {
			buf.WriteString("\r\n")
		}
	}
	return buf.String()
}

// message holds the state shared by Request and Response.
type message struct {
	hdrs       *headerSet
	sipVersion string
	body       []byte
	src, dest  Addr
}

func newMessage(hdrs []header.Header) message {
	return message{hdrs: newHeaderSet(hdrs), sipVersion: "SIP/2.0"}
}

func (m *message) SipVersion() string          { return m.sipVersion }
func (m *message) SetSipVersion(version string) { m.sipVersion = version }

func (m *message) Headers() []header.Header          { return m.hdrs.all() }
func (m *message) GetHeaders(name string) []header.Header { return m.hdrs.get(name) }
func (m *message) AppendHeader(h header.Header)      { m.hdrs.append(h) }
func (m *message) PrependHeader(h header.Header)     { m.hdrs.prepend(h) }
func (m *message) RemoveHeader(name string)          { m.hdrs.remove(name) }

func (m *message) Body() []byte { return m.body }

func (m *message) SetBody(body []byte, setContentLength bool) {
	m.body = body
	if !setContentLength {
		return
	}
	cl := header.ContentLength(len(body))
	if hdrs := m.hdrs.get("Content-Length"); len(hdrs) > 0 {
		m.hdrs.byName["content-length"][0] = cl
		return
	}
	m.hdrs.append(cl)
}

func (m *message) CallID() (header.CallID, bool) {
	hdrs := m.hdrs.get("Call-ID")
	if len(hdrs) == 0 {
		return "", false
	}
	id, ok := hdrs[0].(header.CallID)
	return id, ok
}

func (m *message) Via() (header.Via, bool) {
	hdrs := m.hdrs.get("Via")
	if len(hdrs) == 0 {
		return nil, false
	}
	via, ok := hdrs[0].(header.Via)
	return via, ok
}

func (m *message) ViaHop() (*header.ViaHop, bool) {
	via, ok := m.Via()
	if !ok || len(via) == 0 {
		return nil, false
	}
	return &via[0], true
}

func (m *message) From() (*header.From, bool) {
	hdrs := m.hdrs.get("From")
	if len(hdrs) == 0 {
		return nil, false
	}
	from, ok := hdrs[0].(*header.From)
	return from, ok
}

func (m *message) To() (*header.To, bool) {
	hdrs := m.hdrs.get("To")
	if len(hdrs) == 0 {
		return nil, false
	}
	to, ok := hdrs[0].(*header.To)
	return to, ok
}

func (m *message) CSeq() (*header.CSeq, bool) {
	hdrs := m.hdrs.get("CSeq")
	if len(hdrs) == 0 {
		return nil, false
	}
	cseq, ok := hdrs[0].(*header.CSeq)
	return cseq, ok
}

func (m *message) ContentLength() (header.ContentLength, bool) {
	hdrs := m.hdrs.get("Content-Length")
	if len(hdrs) == 0 {
		return 0, false
	}
	cl, ok := hdrs[0].(header.ContentLength)
	return cl, ok
}

func (m *message) Transport() header.TransportProto {
	if hop, ok := m.ViaHop(); ok {
		return hop.Transport
	}
	return DefaultTransport
}

func (m *message) Source() Addr          { return m.src }
func (m *message) SetSource(addr Addr)   { m.src = addr }
func (m *message) Destination() Addr     { return m.dest }
func (m *message) SetDestination(addr Addr) { m.dest = addr }

func (m *message) render(startLine string) string {
	var buf bytes.Buffer
	buf.WriteString(startLine)
	buf.WriteString("\r\n")
	buf.WriteString(m.hdrs.String())
	buf.WriteString("\r\n\r\n")
	buf.Write(m.body)
	return buf.String()
}

func (m *message) logAttrs() []slog.Attr {
	attrs := make([]slog.Attr, 0, 5)
	if callID, ok := m.CallID(); ok {
		attrs = append(attrs, slog.String("call_id", string(callID)))
	}
	if cseq, ok := m.CSeq(); ok {
		attrs = append(attrs, slog.String("cseq", cseq.String()))
	}
	if from, ok := m.From(); ok {
		attrs = append(attrs, slog.String("from", from.String()))
	}
	if to, ok := m.To(); ok {
		attrs = append(attrs, slog.String("to", to.String()))
	}
	if !m.src.IsZero() {
		attrs = append(attrs, slog.Any("source", m.src))
	}
	if !m.dest.IsZero() {
		attrs = append(attrs, slog.Any("destination", m.dest))
	}
	return attrs
}

// CopyHeaders copies all headers with the given name from one message to another,
// appending to the destination's existing headers of that name.
func CopyHeaders(name string, from, to Message) {
	for _, h := range from.GetHeaders(name) {
		to.AppendHeader(h.Clone())
	}
}

// PrependCopyHeaders copies all headers with the given name from one message to
// another, prepending them ahead of the destination's existing headers of that name.
func PrependCopyHeaders(name string, from, to Message) {
	for _, h := range from.GetHeaders(name) {
		to.PrependHeader(h.Clone())
	}
}
