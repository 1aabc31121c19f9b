package sip

import (
	"bytes"
	"regexp"
	"strconv"
)

// crlfcrlf marks the end of the header block: a blank line after the last header.
var crlfcrlf = []byte("\r\n\r\n")

// reContentLength locates a Content-Length header (or its compact alias "l")
// anywhere in a header block, tolerating arbitrary whitespace around the colon.
// The header name match is case-insensitive; the value is the first contiguous
// run of ASCII digits after the colon.
var reContentLength = regexp.MustCompile(`(?im)^(?:content-length|l)[ \t]*:[ \t]*(\d+)`)

// FrameResult describes one complete SIP message extracted from a stream buffer.
type FrameResult struct {
	// Message is the byte range of the complete message (start line through body).
	Message []byte
	// Skipped is the number of leading whitespace bytes consumed before the
	// message started; SIP over reliable transports uses CRLF as a
	// keep-alive and these bytes must be silently discarded, RFC 3261 §7.5.
	Skipped int
	// Consumed is the total number of bytes consumed from the buffer,
	// Skipped plus len(Message).
	Consumed int
}

// Frame extracts one complete SIP message from buf[s:e], RFC 3261 §7.5 /
// §18.3. It first skips any leading whitespace (space, tab, CR, LF) — stray
// bytes used as NAT keep-alives on stream transports — then locates the end
// of the start line, scans the header block up to the first blank line, and
// reads Content-Length to determine the body length. The complete message
// length is the header block length plus Content-Length; if the buffer does
// not yet hold that many bytes, Frame reports ok=false and consumes nothing,
// so the caller can retry once more data arrives.
//
// A malformed or missing Content-Length is treated as length zero: RFC 3261
// requires it on stream transports, but tolerating its absence lets short
// control messages (e.g. a bare response with no body) still frame cleanly.
// A Content-Length whose digits do not fit a non-negative integer is fatal
// for this framing attempt; the caller should drop the connection.
func Frame(buf []byte, s, e int) (FrameResult, bool, error) {
	if s < 0 || e > len(buf) || s > e {
		return FrameResult{}, false, ErrInvalidMessage
	}

	i := s
	for i < e && isFramingSpace(buf[i]) {
		i++
	}
	skipped := i - s
	if i >= e {
		return FrameResult{}, false, nil
	}

	startLineEnd := bytes.Index(buf[i:e], []byte("\r\n"))
	if startLineEnd < 0 {
		return FrameResult{}, false, nil
	}

	blankLineIdx := bytes.Index(buf[i:e], crlfcrlf)
	if blankLineIdx < 0 {
		return FrameResult{}, false, nil
	}
	headerBlockEnd := blankLineIdx + len(crlfcrlf) // relative to i

	contentLength := 0
	if m := reContentLength.FindSubmatch(buf[i : i+headerBlockEnd]); m != nil {
		n, err := strconv.ParseUint(string(m[1]), 10, 31)
		if err != nil {
			return FrameResult{}, false, errorWrapMalformedContentLength(err)
		}
		contentLength = int(n)
	}

	completeLen := headerBlockEnd + contentLength
	if e-i < completeLen {
		return FrameResult{}, false, nil
	}

	return FrameResult{
		Message:  buf[i : i+completeLen],
		Skipped:  skipped,
		Consumed: skipped + completeLen,
	}, true, nil
}

func isFramingSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}

func errorWrapMalformedContentLength(err error) error {
	return NewInvalidArgumentError("malformed Content-Length", err)
}
