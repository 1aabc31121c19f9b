package sip

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"
)

// WSChannel implements [Channel] over WebSocket, RFC 7118. Unlike TCP/TLS,
// WebSocket is message-framed by the protocol itself — one WebSocket text or
// binary message always carries exactly one complete SIP message, RFC 7118
// §5 — so no [Frame] reassembly is needed on read.
type WSChannel struct {
	md       TransportMetadata
	server   *http.Server
	listener net.Listener
	dialer   *websocket.Dialer
	dialURL  func(raddr netip.AddrPort) string
	log      *slog.Logger

	mu        sync.Mutex
	conns     map[netip.AddrPort]*websocket.Conn
	onMessage func(msg Message, raddr netip.AddrPort)

	closeOnce sync.Once
}

var upgrader = websocket.Upgrader{
	Subprotocols:    []string{"sip"},
	CheckOrigin:     func(*http.Request) bool { return true },
	ReadBufferSize:  int(MaxMsgSize),
	WriteBufferSize: int(MaxMsgSize),
}

// ListenWS opens a plain-text WebSocket listener at laddr.
func ListenWS(laddr netip.AddrPort, log *slog.Logger) (*WSChannel, error) {
	ln, err := net.ListenTCP("tcp", net.TCPAddrFromAddrPort(laddr))
	if err != nil {
		return nil, err
	}
	return newWSChannel(transportMetadata[TransportWS], ln, &websocket.Dialer{Subprotocols: []string{"sip"}},
		func(raddr netip.AddrPort) string { return (&url.URL{Scheme: "ws", Host: raddr.String()}).String() }, log), nil
}

// ListenWSS opens a TLS-secured WebSocket listener at laddr using cfg.
func ListenWSS(laddr netip.AddrPort, cfg *tls.Config, log *slog.Logger) (*WSChannel, error) {
	ln, err := tls.Listen("tcp", net.TCPAddrFromAddrPort(laddr).String(), cfg)
	if err != nil {
		return nil, err
	}
	return newWSChannel(transportMetadata[TransportWSS], ln, &websocket.Dialer{TLSClientConfig: cfg, Subprotocols: []string{"sip"}},
		func(raddr netip.AddrPort) string { return (&url.URL{Scheme: "wss", Host: raddr.String()}).String() }, log), nil
}

func newWSChannel(md TransportMetadata, ln net.Listener, dialer *websocket.Dialer, dialURL func(netip.AddrPort) string, log *slog.Logger) *WSChannel {
	if log == nil {
		log = slog.Default()
	}
	ch := &WSChannel{
		md:       md,
		listener: ln,
		dialer:   dialer,
		dialURL:  dialURL,
		log:      log,
		conns:    make(map[netip.AddrPort]*websocket.Conn),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", ch.handleUpgrade)
	ch.server = &http.Server{Handler: mux}
	return ch
}

func (ch *WSChannel) Metadata() TransportMetadata { return ch.md }

func (ch *WSChannel) LocalAddr() netip.AddrPort {
	return ch.listener.Addr().(*net.TCPAddr).AddrPort()
}

func (ch *WSChannel) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		ch.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	raddr, ok := netAddrToAddrPort(conn.RemoteAddr())
	if !ok {
		conn.Close()
		return
	}
	ch.track(raddr, conn)

	ch.mu.Lock()
	fn := ch.onMessage
	ch.mu.Unlock()
	go ch.readLoop(raddr, conn, fn)
}

func (ch *WSChannel) track(raddr netip.AddrPort, conn *websocket.Conn) {
	ch.mu.Lock()
	ch.conns[raddr] = conn
	ch.mu.Unlock()
}

func (ch *WSChannel) drop(raddr netip.AddrPort, conn *websocket.Conn) {
	ch.mu.Lock()
	if cur, ok := ch.conns[raddr]; ok && cur == conn {
		delete(ch.conns, raddr)
	}
	ch.mu.Unlock()
	conn.Close()
}

// Send writes msg as a single WebSocket text message to raddr, dialing a new
// connection if none is pooled yet.
func (ch *WSChannel) Send(ctx context.Context, msg Message, raddr netip.AddrPort) error {
	ch.mu.Lock()
	conn, ok := ch.conns[raddr]
	fn := ch.onMessage
	ch.mu.Unlock()

	if !ok {
		var err error
		conn, _, err = ch.dialer.DialContext(ctx, ch.dialURL(raddr), nil)
		if err != nil {
			return err
		}
		ch.track(raddr, conn)
		go ch.readLoop(raddr, conn, fn)
	}

	err := conn.WriteMessage(websocket.TextMessage, []byte(msg.String()))
	if err != nil {
		ch.drop(raddr, conn)
	}
	return err
}

func (ch *WSChannel) readLoop(raddr netip.AddrPort, conn *websocket.Conn, onMessage func(msg Message, raddr netip.AddrPort)) {
	defer ch.drop(raddr, conn)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if onMessage == nil {
			continue
		}
		msg, err := ParseMessage(data)
		if err != nil {
			ch.log.Warn("dropping malformed websocket message", "remote_addr", raddr, "error", err)
			continue
		}
		onMessage(msg, raddr)
	}
}

// Serve accepts and upgrades inbound WebSocket connections until ctx is done
// or Close is called.
func (ch *WSChannel) Serve(ctx context.Context, onMessage func(msg Message, raddr netip.AddrPort)) error {
	ch.mu.Lock()
	ch.onMessage = onMessage
	ch.mu.Unlock()

	go func() {
		<-ctx.Done()
		ch.Close()
	}()

	err := ch.server.Serve(ch.listener)
	if ctx.Err() != nil || errors.Is(err, http.ErrServerClosed) || errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func (ch *WSChannel) Close() error {
	var err error
	ch.closeOnce.Do(func() {
		err = ch.server.Close()

		ch.mu.Lock()
		conns := make([]*websocket.Conn, 0, len(ch.conns))
		for _, c := range ch.conns {
			conns = append(conns, c)
		}
		ch.conns = make(map[netip.AddrPort]*websocket.Conn)
		ch.mu.Unlock()

		for _, c := range conns {
			c.Close()
		}
	})
	return err
}
