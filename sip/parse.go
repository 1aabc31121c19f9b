package sip

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/ghettovoice/gosip/header"
	"github.com/ghettovoice/gosip/uri"
)

// sipVersionPrefix is the start of every Status-Line, RFC 3261 §7.2. A
// Request-Line never begins with it: the method token always comes first.
var sipVersionPrefix = []byte("SIP/")

// ParseMessage parses a complete SIP message — start line, headers and body —
// from raw, RFC 3261 §7. raw is typically the Message field of a [FrameResult]
// returned by [Frame]; ParseMessage does not itself look for the body length,
// it trusts the header block/body split already performed by Frame and simply
// takes whatever bytes follow the blank line as the body.
func ParseMessage(raw []byte) (Message, error) {
	startLine, rest, ok := cutLine(raw)
	if !ok || len(startLine) == 0 {
		return nil, ErrInvalidMessage
	}

	hdrBlock, body := splitHeaderBlock(rest)
	hdrs, err := parseHeaderBlock(hdrBlock)
	if err != nil {
		return nil, err
	}

	if bytes.HasPrefix(startLine, sipVersionPrefix) {
		return parseStatusLine(startLine, hdrs, body)
	}
	return parseRequestLine(startLine, hdrs, body)
}

// cutLine splits raw at its first CRLF, returning the line with the CRLF
// stripped and the remainder that follows it.
func cutLine(raw []byte) (line, rest []byte, ok bool) {
	idx := bytes.Index(raw, []byte("\r\n"))
	if idx < 0 {
		return nil, nil, false
	}
	return raw[:idx], raw[idx+2:], true
}

// splitHeaderBlock splits rest — everything after the start line — into the
// header block and the body, at the first blank line.
func splitHeaderBlock(rest []byte) (hdrBlock, body []byte) {
	idx := bytes.Index(rest, crlfcrlf)
	if idx < 0 {
		return rest, nil
	}
	return rest[:idx], rest[idx+len(crlfcrlf):]
}

// parseHeaderBlock unfolds continuation lines, RFC 3261 §7.3.1, and parses
// each logical header line through the per-header grammar.
func parseHeaderBlock(block []byte) ([]header.Header, error) {
	lines := unfoldHeaderLines(block)
	hdrs := make([]header.Header, 0, len(lines))
	for _, line := range lines {
		h, err := header.Parse(line)
		if err != nil {
			return nil, errorWrapMalformedHeader(err)
		}
		hdrs = append(hdrs, h)
	}
	return hdrs, nil
}

// unfoldHeaderLines splits a header block on CRLF and joins any line
// beginning with SP or HTAB onto the previous line, RFC 3261 §7.3.1.
func unfoldHeaderLines(block []byte) [][]byte {
	raw := bytes.Split(block, []byte("\r\n"))
	lines := make([][]byte, 0, len(raw))
	for _, l := range raw {
		if len(l) == 0 {
			continue
		}
		if (l[0] == ' ' || l[0] == '\t') && len(lines) > 0 {
			last := lines[len(lines)-1]
			last = append(last, ' ')
			last = append(last, bytes.TrimLeft(l, " \t")...)
			lines[len(lines)-1] = last
			continue
		}
		lines = append(lines, append([]byte(nil), l...))
	}
	return lines
}

// parseRequestLine parses a Request-Line, RFC 3261 §7.1: Method SP
// Request-URI SP SIP-Version.
func parseRequestLine(line []byte, hdrs []header.Header, body []byte) (*Request, error) {
	parts := bytes.SplitN(line, []byte(" "), 3)
	if len(parts) != 3 {
		return nil, errorWrapMalformedStartLine(ErrInvalidMessage)
	}
	method := RequestMethod(strings.ToUpper(string(parts[0])))
	u, err := uri.Parse(parts[1])
	if err != nil {
		return nil, errorWrapMalformedURI(err)
	}

	req := NewRequest(method, u, hdrs, body)
	req.SetSipVersion(string(parts[2]))
	return req, nil
}

// parseStatusLine parses a Status-Line, RFC 3261 §7.2: SIP-Version SP
// Status-Code SP Reason-Phrase.
func parseStatusLine(line []byte, hdrs []header.Header, body []byte) (*Response, error) {
	parts := bytes.SplitN(line, []byte(" "), 3)
	if len(parts) < 2 {
		return nil, errorWrapMalformedStartLine(ErrInvalidMessage)
	}
	code, err := strconv.ParseUint(string(parts[1]), 10, 16)
	if err != nil {
		return nil, errorWrapMalformedStartLine(err)
	}
	reason := ""
	if len(parts) == 3 {
		reason = string(parts[2])
	}

	res := NewResponse(ResponseStatus(code), reason, hdrs, body)
	res.SetSipVersion(string(parts[0]))
	return res, nil
}

func errorWrapMalformedHeader(err error) error {
	return NewInvalidArgumentError("malformed header", err)
}

func errorWrapMalformedURI(err error) error {
	return NewInvalidArgumentError("malformed Request-URI", err)
}

func errorWrapMalformedStartLine(err error) error {
	return NewInvalidArgumentError("malformed start line", err)
}
