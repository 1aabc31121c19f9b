// Package grammar implements the lexical and syntactic rules of RFC 3261
// (SIP) and RFC 3966 (tel URI) that the header and uri packages build on:
// token classification, quoting, percent-escaping and hand-rolled
// recursive-descent parsing of the header field values and URI forms
// those packages do not want to parse themselves.
package grammar

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

type Error string

func (e Error) Error() string { return string(e) }

func (Error) Grammar() bool { return true }

const (
	ErrNodeNotFound Error = "node not found"
	ErrUnexpectNode Error = "unexpected node"
)

// MustGetNode returns a pointer to the node with the given key, panicking
// if none is found.
func MustGetNode(n *Node, k string) *Node {
	sn, ok := n.GetNode(k)
	if !ok {
		panic(fmt.Errorf("get node %q from node %q: %w", k, n.Key, ErrNodeNotFound))
	}
	return sn
}

// token = 1*(alphanum / "-" / "." / "!" / "%" / "*" / "_" / "+" / "`" / "'" / "~" )
var reToken = regexp.MustCompile(`^[a-zA-Z0-9\-.!%*_+` + "`" + `'~]+$`)

func IsToken[T ~string | ~[]byte](s T) bool {
	return len(s) > 0 && reToken.MatchString(string(s))
}

// hostname/IPv4/IPv6-reference, loosely per RFC 3261 host grammar.
var (
	reHostname = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9\-]*[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9\-]*[a-zA-Z0-9])?)*\.?$`)
	reIPv4     = regexp.MustCompile(`^(25[0-5]|2[0-4][0-9]|1[0-9]{2}|[1-9]?[0-9])(\.(25[0-5]|2[0-4][0-9]|1[0-9]{2}|[1-9]?[0-9])){3}$`)
	reIPv6Ref  = regexp.MustCompile(`^\[[0-9a-fA-F:.]+\]$`)
)

func IsHost[T ~string | ~[]byte](s T) bool {
	if len(s) == 0 {
		return false
	}
	str := string(s)
	return reIPv4.MatchString(str) || reIPv6Ref.MatchString(str) || reHostname.MatchString(str)
}

// quoted-string = SWS DQUOTE *(qdtext / quoted-pair) DQUOTE
var reQuoted = regexp.MustCompile(`^"([^"\\]|\\.)*"$`)

func IsQuoted[T ~string | ~[]byte](s T) bool {
	return len(s) > 0 && reQuoted.MatchString(string(s))
}

func Quote(s string) string {
	return strconv.Quote(s)
}

func Unquote(s string) string {
	qs, err := strconv.Unquote(s)
	if err != nil {
		qs = s
	}
	return qs
}

// phonedigit = DIGIT / visual-separator, visual-separator = "-" / "." / "(" / ")"
var (
	reGlobalNum = regexp.MustCompile(`^\+[0-9\-.()]+$`)
	reLocalNum  = regexp.MustCompile(`^[0-9a-zA-Z*#\-.()]+$`)
)

func IsTelNum[T ~string | ~[]byte](s T) bool {
	if len(s) == 0 {
		return false
	}
	if s[0] == '+' {
		return reGlobalNum.MatchString(string(s))
	}
	return reLocalNum.MatchString(string(s))
}

func IsGlobTelNum[T ~string | ~[]byte](s T) bool {
	return len(s) > 0 && s[0] == '+' && IsTelNum(s)
}

var telVisSepRpl = strings.NewReplacer(" ", "", "-", "", ".", "", "(", "", ")", "")

// CleanTelNum removes all visual separators.
func CleanTelNum[T ~string | ~[]byte](s T) T { return T(telVisSepRpl.Replace(string(s))) }

// pname/pvalue of a tel URI parameter, RFC 3966 section 3.
var reTelParamName = regexp.MustCompile(`^[a-zA-Z0-9\-]+$`)

func IsTelURIParamName[T ~string | ~[]byte](s T) bool {
	return len(s) > 0 && reTelParamName.MatchString(string(s))
}

var reUser = regexp.MustCompile(`^([a-zA-Z0-9\-_.!~*'()&=+$,;?/]|%[0-9a-fA-F]{2})+$`)

func IsUsername[T ~string | ~[]byte](s T) bool {
	return len(s) > 0 && reUser.MatchString(string(s))
}

// IsCharUnreserved reports whether c needs no percent-escaping outside of
// any URI-component-specific reserved set (RFC 2396 unreserved).
func IsCharUnreserved(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	default:
		return strings.IndexByte("-_.!~*'()%", c) >= 0
	}
}

func IsURIUserCharUnreserved(c byte) bool {
	return IsCharUnreserved(c) || strings.IndexByte("&=+$,;?/", c) >= 0
}

func IsURIPasswdCharUnreserved(c byte) bool {
	return IsCharUnreserved(c) || strings.IndexByte("&=+$,", c) >= 0
}

func IsURIParamCharUnreserved(c byte) bool {
	return IsCharUnreserved(c) || strings.IndexByte("[]/:&+$", c) >= 0
}

func IsURIHeaderCharUnreserved(c byte) bool {
	return IsCharUnreserved(c) || strings.IndexByte("[]/?:+$", c) >= 0
}

// Escape percent-encodes every byte of s for which cb reports true.
// A nil cb escapes every byte that is not [IsCharUnreserved].
func Escape[T ~string | ~[]byte](s T, cb func(byte) bool) T {
	if cb == nil {
		cb = func(c byte) bool { return !IsCharUnreserved(c) }
	}

	str := string(s)
	var sb strings.Builder
	sb.Grow(len(str))
	for i := 0; i < len(str); i++ {
		c := str[i]
		if cb(c) {
			fmt.Fprintf(&sb, "%%%02X", c)
		} else {
			sb.WriteByte(c)
		}
	}
	return T(sb.String())
}

var reEscaped = regexp.MustCompile(`%[0-9a-fA-F]{2}`)

// Unescape decodes percent-escaped triplets in s, leaving malformed ones untouched.
func Unescape[T ~string | ~[]byte](s T) T {
	str := string(s)
	if !strings.ContainsRune(str, '%') {
		return s
	}
	out := reEscaped.ReplaceAllStringFunc(str, func(m string) string {
		b, err := strconv.ParseUint(m[1:], 16, 8)
		if err != nil {
			return m
		}
		return string([]byte{byte(b)})
	})
	return T(out)
}
