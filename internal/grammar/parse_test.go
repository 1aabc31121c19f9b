package grammar_test

import (
	"errors"
	"testing"

	"github.com/ghettovoice/gosip/internal/grammar"
)

func TestParseSIPURI(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		input  any
		expect string
		err    error
	}{
		{"", "", "", grammar.ErrEmptyInput},
		{"", "abc", "", grammar.ErrMalformedInput},
		{"", "sip:", "", grammar.ErrMalformedInput},
		{"", "qwe:abc", "", grammar.ErrMalformedInput},
		{"", "sip:abc", "sip:abc", nil},
		{"", []byte("sip:abc"), "sip:abc", nil},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			var (
				node *grammar.Node
				err  error
			)
			switch in := c.input.(type) {
			case string:
				node, err = grammar.ParseSIPURI(in)
			case []byte:
				node, err = grammar.ParseSIPURI(in)
			}
			if c.err == nil {
				if got, want := node.String(), c.expect; got != want {
					t.Errorf("grammar.ParseSIPURI(%q) = %q, want %q", c.input, got, want)
				}
				if err != nil {
					t.Errorf("grammar.ParseSIPURI(%q) error = %v, want nil", c.input, err)
				}
			} else {
				if got, want := err, c.err; !errors.Is(got, want) {
					t.Errorf("grammar.ParseSIPURI(%q) error = %v, want %v", c.input, got, want)
				}
			}
		})
	}
}

func TestParseTelURI(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		input      string
		err        error
		globalNum  bool
		wantDigits string
	}{
		{"empty", "", grammar.ErrEmptyInput, false, ""},
		{"no scheme", "+123", grammar.ErrMalformedInput, false, ""},
		{"global", "tel:+1-2-3;phone-context=b.example.com", nil, true, "+1-2-3"},
		{"local", "tel:7042;phone-context=example.com", nil, false, "7042"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			node, err := grammar.ParseTelURI(c.input)
			if c.err != nil {
				if !errors.Is(err, c.err) {
					t.Fatalf("grammar.ParseTelURI(%q) error = %v, want %v", c.input, err, c.err)
				}
				return
			}
			if err != nil {
				t.Fatalf("grammar.ParseTelURI(%q) error = %v, want nil", c.input, err)
			}

			key := "local-number-digits"
			if c.globalNum {
				key = "global-number-digits"
			}
			digits, ok := node.GetNode(key)
			if !ok {
				t.Fatalf("grammar.ParseTelURI(%q) missing %q node", c.input, key)
			}
			if got, want := digits.String(), c.wantDigits; got != want {
				t.Errorf("grammar.ParseTelURI(%q) digits = %q, want %q", c.input, got, want)
			}
			if !node.Contains("context") {
				t.Errorf("grammar.ParseTelURI(%q) missing phone-context node", c.input)
			}
		})
	}
}

func TestParseHostport(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		input    string
		err      error
		wantHost string
		wantPort string
	}{
		{"empty", "", grammar.ErrEmptyInput, "", ""},
		{"host only", "example.com", nil, "example.com", ""},
		{"host and port", "example.com:5060", nil, "example.com", "5060"},
		{"ipv6 with port", "[::1]:5060", nil, "[::1]", "5060"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			node, err := grammar.ParseHostport(c.input)
			if c.err != nil {
				if !errors.Is(err, c.err) {
					t.Fatalf("grammar.ParseHostport(%q) error = %v, want %v", c.input, err, c.err)
				}
				return
			}
			if err != nil {
				t.Fatalf("grammar.ParseHostport(%q) error = %v, want nil", c.input, err)
			}

			host := grammar.MustGetNode(node, "host")
			if got, want := host.String(), c.wantHost; got != want {
				t.Errorf("grammar.ParseHostport(%q) host = %q, want %q", c.input, got, want)
			}
			if port, ok := node.GetNode("port"); ok {
				if got, want := port.String(), c.wantPort; got != want {
					t.Errorf("grammar.ParseHostport(%q) port = %q, want %q", c.input, got, want)
				}
			} else if c.wantPort != "" {
				t.Errorf("grammar.ParseHostport(%q) missing port node, want %q", c.input, c.wantPort)
			}
		})
	}
}

func TestParseMessageHeader(t *testing.T) {
	t.Parallel()

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		if _, err := grammar.ParseMessageHeader(""); !errors.Is(err, grammar.ErrEmptyInput) {
			t.Errorf("grammar.ParseMessageHeader(\"\") error = %v, want %v", err, grammar.ErrEmptyInput)
		}
	})

	t.Run("missing colon", func(t *testing.T) {
		t.Parallel()
		if _, err := grammar.ParseMessageHeader("To"); !errors.Is(err, grammar.ErrMalformedInput) {
			t.Errorf("grammar.ParseMessageHeader(%q) error = %v, want %v", "To", err, grammar.ErrMalformedInput)
		}
	})

	cases := []struct {
		name string
		raw  string
		key  string
	}{
		{"compact to", "t: <sip:bob@example.com>", "To"},
		{"from", "From: \"Alice\" <sip:alice@example.com>;tag=qwerty", "From"},
		{"via", "Via: SIP/2.0/UDP 192.168.0.1:5060;branch=z9hG4bK.abc", "Via"},
		{"contact star", "Contact: *", "Contact"},
		{"cseq", "CSeq: 100 INVITE", "CSeq"},
		{"unknown extension", "X-Custom: qwerty", "extension-header"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			node, err := grammar.ParseMessageHeader(c.raw)
			if err != nil {
				t.Fatalf("grammar.ParseMessageHeader(%q) error = %v, want nil", c.raw, err)
			}
			if got, want := len(node.Children), 1; got != want {
				t.Fatalf("grammar.ParseMessageHeader(%q) top children = %d, want %d", c.raw, got, want)
			}
			alt := node.Children[0]
			if got, want := len(alt.Children), 1; got != want {
				t.Fatalf("grammar.ParseMessageHeader(%q) alt children = %d, want %d", c.raw, got, want)
			}
			concrete := alt.Children[0]
			if got, want := concrete.Key, c.key; got != want {
				t.Errorf("grammar.ParseMessageHeader(%q) concrete key = %q, want %q", c.raw, got, want)
			}
		})
	}
}

func TestParseViaParm(t *testing.T) {
	t.Parallel()

	node, err := grammar.ParseViaParm("SIP/2.0/UDP 192.168.0.1:5060;branch=z9hG4bK.abc;rport")
	if err != nil {
		t.Fatalf("grammar.ParseViaParm() error = %v, want nil", err)
	}

	proto := grammar.MustGetNode(node, "sent-protocol")
	if got, want := proto.Children[0].String(), "SIP"; got != want {
		t.Errorf("protocol name = %q, want %q", got, want)
	}
	if got, want := proto.Children[2].String(), "2.0"; got != want {
		t.Errorf("protocol version = %q, want %q", got, want)
	}
	if got, want := proto.Children[4].String(), "UDP"; got != want {
		t.Errorf("transport = %q, want %q", got, want)
	}

	sentBy := grammar.MustGetNode(node, "sent-by")
	host := grammar.MustGetNode(sentBy, "host")
	if got, want := host.String(), "192.168.0.1"; got != want {
		t.Errorf("host = %q, want %q", got, want)
	}

	params := node.GetNodes("via-params")
	if got, want := len(params), 2; got != want {
		t.Errorf("via-params count = %d, want %d", got, want)
	}
}

func TestParseAcceptRange(t *testing.T) {
	t.Parallel()

	node, err := grammar.ParseAcceptRange("text/plain;q=0.5")
	if err != nil {
		t.Fatalf("grammar.ParseAcceptRange() error = %v, want nil", err)
	}

	mr := grammar.MustGetNode(node, "media-range")
	mt := grammar.MustGetNode(mr, "m-type")
	ms := grammar.MustGetNode(mr, "m-subtype")
	if got, want := mt.String(), "text"; got != want {
		t.Errorf("m-type = %q, want %q", got, want)
	}
	if got, want := ms.String(), "plain"; got != want {
		t.Errorf("m-subtype = %q, want %q", got, want)
	}
	if got, want := len(mr.GetNodes("m-parameter")), 1; got != want {
		t.Errorf("m-parameter count = %d, want %d", got, want)
	}
}
