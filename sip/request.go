package sip

import (
	"fmt"
	"log/slog"

	"github.com/ghettovoice/gosip/header"
	"github.com/ghettovoice/gosip/uri"
)

// Request represents a SIP request, RFC 3261 §7.1.
type Request struct {
	message
	method    RequestMethod
	recipient uri.URI
}

// NewRequest builds a Request with the given method, Request-URI and headers.
// If body is non-empty, a Content-Length header is added or updated.
func NewRequest(method RequestMethod, recipient uri.URI, hdrs []header.Header, body []byte) *Request {
	req := &Request{message: newMessage(hdrs), method: method, recipient: recipient}
	if len(body) > 0 {
		req.SetBody(body, true)
	}
	return req
}

func (*Request) isMessage() {}

// Method returns the request method.
func (req *Request) Method() RequestMethod { return req.method }

// SetMethod sets the request method.
func (req *Request) SetMethod(method RequestMethod) { req.method = method }

// Recipient returns the Request-URI.
func (req *Request) Recipient() uri.URI { return req.recipient }

// SetRecipient sets the Request-URI.
func (req *Request) SetRecipient(recipient uri.URI) { req.recipient = recipient }

// StartLine renders the Request-Line, RFC 3261 §7.1.
func (req *Request) StartLine() string {
	return fmt.Sprintf("%s %s %s", req.method, req.recipient, req.sipVersion)
}

// String renders the full request, RFC 3261 §7.
func (req *Request) String() string { return req.render(req.StartLine()) }

// Short returns a short, loggable description of the request.
func (req *Request) Short() string {
	return fmt.Sprintf("Request(%s %p)", req.StartLine(), req)
}

// Clone returns a deep copy of the request.
func (req *Request) Clone() Message {
	clone := &Request{
		message:   message{hdrs: req.hdrs.clone(), sipVersion: req.sipVersion, src: req.src, dest: req.dest},
		method:    req.method,
		recipient: req.recipient,
	}
	if req.body != nil {
		clone.body = append([]byte(nil), req.body...)
	}
	return clone
}

// IsInvite reports whether the method is INVITE.
func (req *Request) IsInvite() bool { return req.method == INVITE }

// IsAck reports whether the method is ACK.
func (req *Request) IsAck() bool { return req.method == ACK }

// IsCancel reports whether the method is CANCEL.
func (req *Request) IsCancel() bool { return req.method == CANCEL }

// IsPrack reports whether the method is PRACK, RFC 3262.
func (req *Request) IsPrack() bool { return req.method == PRACK }

// LogValue renders the request for structured logging.
func (req *Request) LogValue() slog.Value {
	attrs := append([]slog.Attr{slog.String("method", string(req.method)), slog.Any("recipient", req.recipient)}, req.logAttrs()...)
	return slog.GroupValue(attrs...)
}
