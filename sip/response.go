package sip

import (
	"fmt"
	"log/slog"

	"github.com/ghettovoice/gosip/header"
)

// Response represents a SIP response, RFC 3261 §7.2.
type Response struct {
	message
	status ResponseStatus
	reason string
}

// NewResponse builds a Response with the given status code, headers and body.
// If reason is empty, the default reason phrase for the status code is used.
func NewResponse(status ResponseStatus, reason string, hdrs []header.Header, body []byte) *Response {
	if reason == "" {
		reason = string(status.Reason())
	}
	res := &Response{message: newMessage(hdrs), status: status, reason: reason}
	if len(body) > 0 {
		res.SetBody(body, true)
	}
	return res
}

func (*Response) isMessage() {}

// StatusCode returns the response status code.
func (res *Response) StatusCode() ResponseStatus { return res.status }

// SetStatusCode sets the response status code.
func (res *Response) SetStatusCode(status ResponseStatus) { res.status = status }

// Reason returns the reason phrase.
func (res *Response) Reason() string { return res.reason }

// SetReason sets the reason phrase.
func (res *Response) SetReason(reason string) { res.reason = reason }

// StartLine renders the Status-Line, RFC 3261 §7.2.
func (res *Response) StartLine() string {
	return fmt.Sprintf("%s %d %s", res.sipVersion, res.status, res.reason)
}

// String renders the full response, RFC 3261 §7.
func (res *Response) String() string { return res.render(res.StartLine()) }

// Short returns a short, loggable description of the response.
func (res *Response) Short() string {
	return fmt.Sprintf("Response(%s %p)", res.StartLine(), res)
}

// Clone returns a deep copy of the response.
func (res *Response) Clone() Message {
	clone := &Response{
		message: message{hdrs: res.hdrs.clone(), sipVersion: res.sipVersion, src: res.src, dest: res.dest},
		status:  res.status,
		reason:  res.reason,
	}
	if res.body != nil {
		clone.body = append([]byte(nil), res.body...)
	}
	return clone
}

// IsProvisional reports whether the status is in the 1xx range.
func (res *Response) IsProvisional() bool { return res.status.IsProvisional() }

// IsSuccess reports whether the status is in the 2xx range.
func (res *Response) IsSuccess() bool { return res.status.IsSuccessful() }

// IsRedirection reports whether the status is in the 3xx range.
func (res *Response) IsRedirection() bool { return res.status.IsRedirection() }

// IsClientError reports whether the status is in the 4xx range.
func (res *Response) IsClientError() bool { return res.status.IsRequestFailure() }

// IsServerError reports whether the status is in the 5xx range.
func (res *Response) IsServerError() bool { return res.status.IsServerFailure() }

// IsGlobalError reports whether the status is in the 6xx range.
func (res *Response) IsGlobalError() bool { return res.status.IsGlobalFailure() }

// IsFinal reports whether the status is final (not 1xx).
func (res *Response) IsFinal() bool { return res.status.IsFinal() }

// IsReliableProvisional reports whether this is a 1xx response that carries an
// RSeq header and is thus subject to RFC 3262 reliable provisional response
// handling (PRACK). 100 Trying is never sent reliably.
func (res *Response) IsReliableProvisional() bool {
	if !res.IsProvisional() || res.status == 100 {
		return false
	}
	_, ok := res.RSeq()
	return ok
}

// RSeq returns the RSeq header, RFC 3262 §7.1.
func (res *Response) RSeq() (header.RSeq, bool) {
	hdrs := res.GetHeaders("RSeq")
	if len(hdrs) == 0 {
		return 0, false
	}
	rseq, ok := hdrs[0].(header.RSeq)
	return rseq, ok
}

// LogValue renders the response for structured logging.
func (res *Response) LogValue() slog.Value {
	attrs := append([]slog.Attr{slog.Any("status", res.status), slog.String("reason", res.reason)}, res.logAttrs()...)
	return slog.GroupValue(attrs...)
}
