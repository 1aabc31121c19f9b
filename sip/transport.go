package sip

import (
	"context"
	"log/slog"
	"net"
	"net/netip"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/ghettovoice/gosip/dns"
	"github.com/ghettovoice/gosip/header"
	"github.com/ghettovoice/gosip/uri"
)

// Transport-level size limits.
var (
	// MTU is the datagram size for an unreliable transport. No channel checks
	// outbound messages against it.
	MTU uint = 1500
	// MaxMsgSize sizes the UDP datagram read buffer, the WebSocket read and
	// write buffers, and the initial capacity of a stream connection's
	// reassembly buffer, which grows past it without limit.
	MaxMsgSize uint = 65535
)

// TransportProto names a SIP transport protocol (UDP, TCP, TLS, WS, WSS).
type TransportProto = header.TransportProto

// Well-known transport protocols.
const (
	TransportUDP TransportProto = "UDP"
	TransportTCP TransportProto = "TCP"
	TransportTLS TransportProto = "TLS"
	TransportWS  TransportProto = "WS"
	TransportWSS TransportProto = "WSS"
)

// TransportMetadata describes the static properties of a transport protocol,
// RFC 3261 §18 / RFC 3263 §4.
type TransportMetadata struct {
	Proto       TransportProto
	Network     string
	Reliable    bool
	Secured     bool
	Streamed    bool
	DefaultPort uint16
}

var transportMetadata = map[TransportProto]TransportMetadata{
	TransportUDP: {Proto: TransportUDP, Network: "udp", Reliable: false, Secured: false, Streamed: false, DefaultPort: 5060},
	TransportTCP: {Proto: TransportTCP, Network: "tcp", Reliable: true, Secured: false, Streamed: true, DefaultPort: 5060},
	TransportTLS: {Proto: TransportTLS, Network: "tcp", Reliable: true, Secured: true, Streamed: true, DefaultPort: 5061},
	TransportWS:  {Proto: TransportWS, Network: "tcp", Reliable: true, Secured: false, Streamed: true, DefaultPort: 80},
	TransportWSS: {Proto: TransportWSS, Network: "tcp", Reliable: true, Secured: true, Streamed: true, DefaultPort: 443},
}

// MetadataFor returns the static metadata for a transport protocol.
func MetadataFor(proto TransportProto) (TransportMetadata, bool) {
	md, ok := transportMetadata[proto.ToUpper()]
	return md, ok
}

// DNSResolver is used to resolve a message's destination address, RFC 3263.
// [dns.Resolver] satisfies this interface.
type DNSResolver interface {
	LookupIP(ctx context.Context, network, host string) ([]net.IP, error)
	LookupSRV(ctx context.Context, service, proto, host string) ([]*dns.SRV, error)
	LookupNAPTR(ctx context.Context, host string) ([]*dns.NAPTR, error)
}

// Channel sends and receives messages over one transport protocol. A UDP
// channel listens on one socket; a stream channel (TCP/TLS/WS/WSS) manages a
// pool of connections, dialing on demand and accepting inbound ones.
type Channel interface {
	// Metadata returns the channel's static transport properties.
	Metadata() TransportMetadata
	// LocalAddr returns the address the channel listens on.
	LocalAddr() netip.AddrPort
	// Send transmits msg to raddr, dialing or reusing a connection as needed.
	Send(ctx context.Context, msg Message, raddr netip.AddrPort) error
	// Serve runs the channel's accept/read loop until ctx is done or Close is
	// called, delivering every successfully parsed inbound message to onMessage.
	Serve(ctx context.Context, onMessage func(msg Message, raddr netip.AddrPort)) error
	// Close shuts the channel down, closing its listener and any pooled connections.
	Close() error
}

// Transport dispatches outbound messages to the channel matching their
// transport protocol, resolving a destination address for messages that
// don't already carry one, and routes inbound messages from every channel it
// serves to a single callback. It implements [Sender].
type Transport struct {
	resolver DNSResolver
	log      *slog.Logger

	mu       sync.RWMutex
	channels map[TransportProto]Channel

	onMessage func(ctx context.Context, msg Message, raddr netip.AddrPort)
}

// NewTransport creates a Transport resolving destinations through resolver.
func NewTransport(resolver DNSResolver, log *slog.Logger) *Transport {
	if log == nil {
		log = slog.Default()
	}
	return &Transport{resolver: resolver, log: log, channels: make(map[TransportProto]Channel)}
}

// AddChannel registers a channel for the transport protocol named by its metadata.
func (t *Transport) AddChannel(ch Channel) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.channels[ch.Metadata().Proto] = ch
}

// Channel returns the registered channel for proto, if any.
func (t *Transport) Channel(proto TransportProto) (Channel, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ch, ok := t.channels[proto.ToUpper()]
	return ch, ok
}

// OnMessage registers the callback invoked for every inbound message
// received by any served channel.
func (t *Transport) OnMessage(fn func(ctx context.Context, msg Message, raddr netip.AddrPort)) {
	t.onMessage = fn
}

// Serve runs every registered channel's accept/read loop until ctx is done.
func (t *Transport) Serve(ctx context.Context) error {
	t.mu.RLock()
	chans := make([]Channel, 0, len(t.channels))
	for _, ch := range t.channels {
		chans = append(chans, ch)
	}
	t.mu.RUnlock()

	errs := make(chan error, len(chans))
	for _, ch := range chans {
		go func(ch Channel) {
			errs <- ch.Serve(ctx, func(msg Message, raddr netip.AddrPort) { t.handleInbound(ctx, ch, msg, raddr) })
		}(ch)
	}

	var firstErr error
	for range chans {
		if err := <-errs; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (t *Transport) handleInbound(ctx context.Context, ch Channel, msg Message, raddr netip.AddrPort) {
	if req, ok := msg.(*Request); ok {
		stampReceivedRPort(req, raddr, ch.Metadata().Reliable)
	}
	msg.SetSource(header.HostPort(raddr.Addr().String(), raddr.Port()))
	if t.onMessage != nil {
		t.onMessage(ctx, msg, raddr)
	}
}

// Close closes every registered channel.
func (t *Transport) Close() error {
	t.mu.RLock()
	chans := make([]Channel, 0, len(t.channels))
	for _, ch := range t.channels {
		chans = append(chans, ch)
	}
	t.mu.RUnlock()

	var firstErr error
	for _, ch := range chans {
		if err := ch.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Send resolves msg's destination and transmits it on the matching channel.
// A request with no destination already set is resolved RFC 3263-style
// against its Request-URI; a response is routed back along the top Via per
// RFC 3261 §18.2.2 / RFC 3581 §4. Send implements [Sender].
func (t *Transport) Send(ctx context.Context, msg Message) error {
	proto := msg.Transport()
	ch, ok := t.Channel(proto)
	if !ok {
		return ErrNoTransport
	}

	raddr := msg.Destination()
	var addrPort netip.AddrPort
	if !raddr.IsZero() {
		addrPort = addrPortFromAddr(raddr, ch.Metadata().DefaultPort)
	}

	if !addrPort.IsValid() {
		var err error
		addrPort, err = t.resolve(ctx, msg, ch.Metadata())
		if err != nil {
			return err
		}
	}

	return ch.Send(ctx, msg, addrPort)
}

func (t *Transport) resolve(ctx context.Context, msg Message, md TransportMetadata) (netip.AddrPort, error) {
	switch m := msg.(type) {
	case *Request:
		return t.resolveRequest(ctx, m, md)
	case *Response:
		hop, ok := m.ViaHop()
		if !ok {
			return netip.AddrPort{}, ErrNoTarget
		}
		return firstResponseAddr(ctx, *hop, md, t.resolver)
	default:
		return netip.AddrPort{}, ErrNoTarget
	}
}

// resolveRequest resolves a request's next-hop address, RFC 3263 §4: an
// explicit IP literal is used directly; an explicit port (literal or not)
// skips straight to an A/AAAA lookup at that port; otherwise a SRV lookup
// selects a target by priority/weight, falling back to an A/AAAA lookup at
// the transport's default port if no SRV records exist.
func (t *Transport) resolveRequest(ctx context.Context, req *Request, md TransportMetadata) (netip.AddrPort, error) {
	sipURI, ok := req.Recipient().(*uri.SIP)
	if !ok {
		return netip.AddrPort{}, ErrNoTarget
	}

	host := sipURI.Addr.Host()
	if ip := sipURI.Addr.IP(); ip != nil {
		addr, ok := netip.AddrFromSlice(ip)
		if !ok {
			return netip.AddrPort{}, ErrNoTarget
		}
		port := md.DefaultPort
		if p, ok := sipURI.Addr.Port(); ok {
			port = p
		}
		return netip.AddrPortFrom(addr.Unmap(), port), nil
	}

	if port, ok := sipURI.Addr.Port(); ok {
		return t.lookupHostPort(ctx, host, port)
	}

	if t.resolver != nil {
		service := "sip"
		if md.Secured {
			service = "sips"
		}
		if srvs, err := t.resolver.LookupSRV(ctx, service, md.Network, host); err == nil && len(srvs) > 0 {
			srvs = slices.SortedFunc(slices.Values(srvs), func(a, b *dns.SRV) int {
				switch {
				case a.Priority != b.Priority:
					return int(a.Priority) - int(b.Priority)
				case a.Weight != b.Weight:
					return int(b.Weight) - int(a.Weight)
				default:
					return strings.Compare(a.Target, b.Target)
				}
			})
			for _, srv := range srvs {
				if ap, err := t.lookupHostPort(ctx, srv.Target, srv.Port); err == nil {
					return ap, nil
				}
			}
		}
	}

	return t.lookupHostPort(ctx, host, md.DefaultPort)
}

func (t *Transport) lookupHostPort(ctx context.Context, host string, port uint16) (netip.AddrPort, error) {
	if t.resolver == nil {
		return netip.AddrPort{}, ErrNoTarget
	}
	ips, err := t.resolver.LookupIP(ctx, "ip", host)
	if err != nil || len(ips) == 0 {
		return netip.AddrPort{}, ErrNoTarget
	}
	addr, ok := netip.AddrFromSlice(ips[0])
	if !ok {
		return netip.AddrPort{}, ErrNoTarget
	}
	return netip.AddrPortFrom(addr.Unmap(), port), nil
}

// firstResponseAddr returns the single best candidate address for routing a
// response back along via, RFC 3261 §18.2.2 / RFC 3581 §4: the received
// address (with rport on an unreliable transport, else the Via port or the
// transport's default) takes precedence over a DNS-resolved fallback.
// The teacher's retrieved ResponseAddrs iterates every RFC 3263 §5 fallback
// candidate in turn; this adaptation takes only the first, since a response
// is sent once and the caller has no use for the rest of the sequence.
func firstResponseAddr(ctx context.Context, hop header.ViaHop, md TransportMetadata, resolver DNSResolver) (netip.AddrPort, error) {
	if !hop.Transport.Equal(md.Proto) {
		return netip.AddrPort{}, ErrNoTarget
	}

	if !md.Reliable {
		if maddr, ok := hop.MAddr(); ok {
			if resolver == nil {
				return netip.AddrPort{}, ErrNoTarget
			}
			ips, err := resolver.LookupIP(ctx, "ip", maddr)
			if err != nil || len(ips) == 0 {
				return netip.AddrPort{}, ErrNoTarget
			}
			addr, ok := netip.AddrFromSlice(ips[0])
			if !ok {
				return netip.AddrPort{}, ErrNoTarget
			}
			port := md.DefaultPort
			if p, ok := hop.Addr.Port(); ok {
				port = p
			}
			return netip.AddrPortFrom(addr.Unmap(), port), nil
		}
	}

	if addr, ok := hop.Received(); ok {
		var port uint16
		if !md.Reliable {
			port, _ = hop.RPort()
		}
		if port == 0 {
			if p, ok := hop.Addr.Port(); ok {
				port = p
			} else {
				port = md.DefaultPort
			}
		}
		return netip.AddrPortFrom(addr, port), nil
	}

	if ip := hop.Addr.IP(); ip != nil {
		addr, ok := netip.AddrFromSlice(ip)
		if !ok {
			return netip.AddrPort{}, ErrNoTarget
		}
		port := md.DefaultPort
		if p, ok := hop.Addr.Port(); ok {
			port = p
		}
		return netip.AddrPortFrom(addr.Unmap(), port), nil
	}

	if resolver == nil {
		return netip.AddrPort{}, ErrNoTarget
	}
	port := md.DefaultPort
	if p, ok := hop.Addr.Port(); ok {
		port = p
	}
	ips, err := resolver.LookupIP(ctx, "ip", hop.Addr.Host())
	if err != nil || len(ips) == 0 {
		return netip.AddrPort{}, ErrNoTarget
	}
	addr, ok := netip.AddrFromSlice(ips[0])
	if !ok {
		return netip.AddrPort{}, ErrNoTarget
	}
	return netip.AddrPortFrom(addr.Unmap(), port), nil
}

// stampReceivedRPort stamps the top Via of an inbound request with the
// address it actually arrived from, RFC 3261 §18.2.1 / RFC 3581 §4: a
// `received` param is added whenever the Via's sent-by host doesn't match
// raddr's address, and on an unreliable transport an already-present empty
// `rport` param is filled in with the actual source port.
func stampReceivedRPort(req *Request, raddr netip.AddrPort, reliable bool) {
	via, ok := req.Via()
	if !ok || len(via) == 0 {
		return
	}
	hop := &via[0]
	if hop.Params == nil {
		hop.Params = make(header.Values)
	}

	if hop.Addr.Host() != raddr.Addr().String() {
		hop.Params.Set("received", raddr.Addr().String())
	}
	if !reliable {
		if _, ok := hop.Params.Last("rport"); ok {
			hop.Params.Set("rport", strconv.Itoa(int(raddr.Port())))
		}
	}
}

func addrPortFromAddr(addr header.Addr, defPort uint16) netip.AddrPort {
	ip := addr.IP()
	if ip == nil {
		return netip.AddrPort{}
	}
	a, ok := netip.AddrFromSlice(ip)
	if !ok {
		return netip.AddrPort{}
	}
	port := defPort
	if p, ok := addr.Port(); ok {
		port = p
	}
	return netip.AddrPortFrom(a.Unmap(), port)
}
