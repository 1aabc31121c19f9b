package header

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"braces.dev/errtrace"
	"github.com/ghettovoice/gosip/internal/grammar"

	"github.com/ghettovoice/gosip/internal/errorutil"
	"github.com/ghettovoice/gosip/internal/ioutil"
	"github.com/ghettovoice/gosip/internal/util"
)

// RAck represents the RAck header field, RFC 3262 §7.2.
// A UAC carries it on a PRACK request to acknowledge a specific reliable
// provisional response: the response's RSeq, the original request's CSeq
// number, and the original request's method.
type RAck struct {
	RSeq   uint32
	CSeq   uint
	Method RequestMethod
}

// CanonicName returns the canonical name of the header.
func (*RAck) CanonicName() Name { return "RAck" }

// CompactName returns the compact name of the header (RAck has no compact form).
func (*RAck) CompactName() Name { return "RAck" }

// RenderTo writes the header to the provided writer.
func (hdr *RAck) RenderTo(w io.Writer, _ *RenderOptions) (num int, err error) {
	if hdr == nil {
		return 0, nil
	}

	cw := ioutil.GetCountingWriter(w)
	defer ioutil.FreeCountingWriter(cw)
	cw.Fprint(hdr.CanonicName(), ": ")
	cw.Call(hdr.renderValueTo)
	return errtrace.Wrap2(cw.Result())
}

func (hdr *RAck) renderValueTo(w io.Writer) (num int, err error) {
	return errtrace.Wrap2(fmt.Fprint(w, hdr.RSeq, " ", hdr.CSeq, " ", hdr.Method))
}

// Render returns the string representation of the header.
func (hdr *RAck) Render(opts *RenderOptions) string {
	if hdr == nil {
		return ""
	}

	sb := util.GetStringBuilder()
	defer util.FreeStringBuilder(sb)
	hdr.RenderTo(sb, opts) //nolint:errcheck
	return sb.String()
}

// String returns the string representation of the header value.
func (hdr *RAck) String() string { return hdr.RenderValue() }

// RenderValue returns the header value without the name prefix.
func (hdr *RAck) RenderValue() string {
	if hdr == nil {
		return ""
	}

	sb := util.GetStringBuilder()
	defer util.FreeStringBuilder(sb)
	hdr.renderValueTo(sb) //nolint:errcheck
	return sb.String()
}

// Format implements fmt.Formatter for custom formatting of the header.
func (hdr *RAck) Format(f fmt.State, verb rune) {
	switch verb {
	case 's':
		if f.Flag('+') {
			hdr.RenderTo(f, nil) //nolint:errcheck
			return
		}
		fmt.Fprint(f, hdr.String())
		return
	case 'q':
		if f.Flag('+') {
			fmt.Fprint(f, strconv.Quote(hdr.Render(nil)))
			return
		}
		fmt.Fprint(f, strconv.Quote(hdr.String()))
		return
	default:
		type hideMethods RAck
		type RAck hideMethods
		fmt.Fprintf(f, fmt.FormatString(f, verb), (*RAck)(hdr))
		return
	}
}

// Clone returns a copy of the header.
func (hdr *RAck) Clone() Header {
	if hdr == nil {
		return nil
	}
	hdr2 := *hdr
	return &hdr2
}

// Equal compares this header with another for equality.
func (hdr *RAck) Equal(val any) bool {
	var other *RAck
	switch v := val.(type) {
	case RAck:
		other = &v
	case *RAck:
		other = v
	default:
		return false
	}

	if hdr == other {
		return true
	} else if hdr == nil || other == nil {
		return false
	}

	return hdr.RSeq == other.RSeq && hdr.CSeq == other.CSeq && hdr.Method.Equal(other.Method)
}

// IsValid checks whether the header is syntactically valid.
func (hdr *RAck) IsValid() bool {
	return hdr != nil && hdr.RSeq > 0 && hdr.CSeq > 0 && hdr.Method.IsValid()
}

func (hdr *RAck) MarshalJSON() ([]byte, error) {
	return errtrace.Wrap2(ToJSON(hdr))
}

var zeroRAck RAck

func (hdr *RAck) UnmarshalJSON(data []byte) error {
	gh, err := FromJSON(data)
	if err != nil {
		*hdr = zeroRAck
		if errors.Is(err, errNotHeaderJSON) {
			return nil
		}
		return errtrace.Wrap(err)
	}

	h, ok := gh.(*RAck)
	if !ok {
		*hdr = zeroRAck
		return errtrace.Wrap(errorutil.Errorf("unexpected header: got %T, want %T", gh, hdr))
	}

	*hdr = *h
	return nil
}

func buildFromRAckNode(node *grammar.Node) *RAck {
	rseq, _ := strconv.ParseUint(grammar.MustGetNode(node, "response-num").String(), 10, 32)
	cseq, _ := strconv.ParseUint(grammar.MustGetNode(node, "cseq-num").String(), 10, 64)
	return &RAck{
		RSeq:   uint32(rseq),
		CSeq:   uint(cseq),
		Method: RequestMethod(grammar.MustGetNode(node, "Method").String()),
	}
}
