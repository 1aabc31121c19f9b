package sip

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"net/netip"
	"sync"
)

// StreamChannel implements [Channel] over a connection-oriented stream
// transport (TCP or TLS), RFC 3261 §18.1/§26.3.3. It accepts inbound
// connections on one listener, dials outbound connections on demand, and
// pools every connection it owns — inbound or outbound — keyed by the
// remote address, so a later Send to an already-connected peer reuses the
// existing connection instead of dialing again.
type StreamChannel struct {
	md       TransportMetadata
	listener net.Listener
	dial     func(ctx context.Context, raddr netip.AddrPort) (net.Conn, error)
	log      *slog.Logger

	mu    sync.Mutex
	conns map[netip.AddrPort]net.Conn

	closeOnce sync.Once
	closed    chan struct{}
}

// ListenTCP opens a TCP listener at laddr and returns a channel serving it.
func ListenTCP(laddr netip.AddrPort, log *slog.Logger) (*StreamChannel, error) {
	ln, err := net.ListenTCP("tcp", net.TCPAddrFromAddrPort(laddr))
	if err != nil {
		return nil, err
	}
	return newStreamChannel(transportMetadata[TransportTCP], ln, func(ctx context.Context, raddr netip.AddrPort) (net.Conn, error) {
		var d net.Dialer
		return d.DialContext(ctx, "tcp", net.TCPAddrFromAddrPort(raddr).String())
	}, log), nil
}

// ListenTLS opens a TLS listener at laddr using cfg and returns a channel serving it.
func ListenTLS(laddr netip.AddrPort, cfg *tls.Config, log *slog.Logger) (*StreamChannel, error) {
	ln, err := tls.Listen("tcp", net.TCPAddrFromAddrPort(laddr).String(), cfg)
	if err != nil {
		return nil, err
	}
	return newStreamChannel(transportMetadata[TransportTLS], ln, func(ctx context.Context, raddr netip.AddrPort) (net.Conn, error) {
		d := tls.Dialer{Config: cfg}
		return d.DialContext(ctx, "tcp", net.TCPAddrFromAddrPort(raddr).String())
	}, log), nil
}

func newStreamChannel(md TransportMetadata, ln net.Listener, dial func(context.Context, netip.AddrPort) (net.Conn, error), log *slog.Logger) *StreamChannel {
	if log == nil {
		log = slog.Default()
	}
	return &StreamChannel{
		md:       md,
		listener: ln,
		dial:     dial,
		log:      log,
		conns:    make(map[netip.AddrPort]net.Conn),
		closed:   make(chan struct{}),
	}
}

func (ch *StreamChannel) Metadata() TransportMetadata { return ch.md }

func (ch *StreamChannel) LocalAddr() netip.AddrPort {
	return ch.listener.Addr().(*net.TCPAddr).AddrPort()
}

// Send writes msg on an existing pooled connection to raddr, dialing a new
// one if none is pooled yet.
func (ch *StreamChannel) Send(ctx context.Context, msg Message, raddr netip.AddrPort) error {
	conn, err := ch.getOrDial(ctx, raddr)
	if err != nil {
		return err
	}
	_, err = conn.Write([]byte(msg.String()))
	if err != nil {
		ch.drop(raddr, conn)
	}
	return err
}

func (ch *StreamChannel) getOrDial(ctx context.Context, raddr netip.AddrPort) (net.Conn, error) {
	ch.mu.Lock()
	if conn, ok := ch.conns[raddr]; ok {
		ch.mu.Unlock()
		return conn, nil
	}
	ch.mu.Unlock()

	conn, err := ch.dial(ctx, raddr)
	if err != nil {
		return nil, err
	}
	ch.track(raddr, conn)
	return conn, nil
}

func (ch *StreamChannel) track(raddr netip.AddrPort, conn net.Conn) {
	ch.mu.Lock()
	ch.conns[raddr] = conn
	ch.mu.Unlock()
}

func (ch *StreamChannel) drop(raddr netip.AddrPort, conn net.Conn) {
	ch.mu.Lock()
	if cur, ok := ch.conns[raddr]; ok && cur == conn {
		delete(ch.conns, raddr)
	}
	ch.mu.Unlock()
	conn.Close()
}

// Serve accepts inbound connections until ctx is done or Close is called,
// and reads every accepted connection concurrently, delivering each complete
// framed message to onMessage. Connections dialed by Send are pooled and
// written to, but are not read.
func (ch *StreamChannel) Serve(ctx context.Context, onMessage func(msg Message, raddr netip.AddrPort)) error {
	go func() {
		<-ctx.Done()
		ch.Close()
	}()

	var wg sync.WaitGroup
	for {
		conn, err := ch.listener.Accept()
		if err != nil {
			wg.Wait()
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		raddr, ok := netAddrToAddrPort(conn.RemoteAddr())
		if !ok {
			conn.Close()
			continue
		}
		ch.track(raddr, conn)

		wg.Add(1)
		go func() {
			defer wg.Done()
			ch.readLoop(ctx, raddr, conn, onMessage)
		}()
	}
}

// readLoop reads from conn until it closes, reassembling framed messages
// from the byte stream with [Frame], RFC 3261 §7.5.
func (ch *StreamChannel) readLoop(ctx context.Context, raddr netip.AddrPort, conn net.Conn, onMessage func(msg Message, raddr netip.AddrPort)) {
	defer ch.drop(raddr, conn)

	buf := make([]byte, 0, MaxMsgSize)
	tmp := make([]byte, 4096)
	for {
		n, err := conn.Read(tmp)
		if n > 0 {
			buf = append(buf, tmp[:n]...)
			buf = ch.drainFrames(ctx, buf, raddr, onMessage)
			if buf == nil {
				// Framing error: the deferred drop closes conn.
				return
			}
		}
		if err != nil {
			return
		}
	}
}

func (ch *StreamChannel) drainFrames(ctx context.Context, buf []byte, raddr netip.AddrPort, onMessage func(msg Message, raddr netip.AddrPort)) []byte {
	for {
		res, ok, err := Frame(buf, 0, len(buf))
		if err != nil {
			ch.log.WarnContext(ctx, "dropping stream connection on framing error", "remote_addr", raddr, "error", err)
			return nil
		}
		if !ok {
			return buf
		}

		msg, err := ParseMessage(res.Message)
		if err != nil {
			ch.log.WarnContext(ctx, "dropping malformed stream message", "remote_addr", raddr, "error", err)
		} else {
			onMessage(msg, raddr)
		}

		buf = buf[res.Consumed:]
		if len(buf) == 0 {
			return buf
		}
	}
}

func (ch *StreamChannel) Close() error {
	var err error
	ch.closeOnce.Do(func() {
		close(ch.closed)
		err = ch.listener.Close()

		ch.mu.Lock()
		conns := make([]net.Conn, 0, len(ch.conns))
		for _, c := range ch.conns {
			conns = append(conns, c)
		}
		ch.conns = make(map[netip.AddrPort]net.Conn)
		ch.mu.Unlock()

		for _, c := range conns {
			c.Close()
		}
	})
	return err
}
