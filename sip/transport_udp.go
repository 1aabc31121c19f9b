package sip

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/netip"
	"sync"
)

// UDPChannel implements [Channel] over a single UDP socket, RFC 3261 §18.1.
// One datagram carries exactly one message, so no stream framing is needed:
// the whole datagram is handed straight to [ParseMessage].
type UDPChannel struct {
	conn net.PacketConn
	log  *slog.Logger

	closeOnce sync.Once
}

// ListenUDP opens a UDP socket at laddr and returns a channel serving it.
func ListenUDP(laddr netip.AddrPort, log *slog.Logger) (*UDPChannel, error) {
	conn, err := net.ListenUDP("udp", net.UDPAddrFromAddrPort(laddr))
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &UDPChannel{conn: conn, log: log}, nil
}

func (ch *UDPChannel) Metadata() TransportMetadata { return transportMetadata[TransportUDP] }

func (ch *UDPChannel) LocalAddr() netip.AddrPort {
	return ch.conn.LocalAddr().(*net.UDPAddr).AddrPort()
}

// Send writes msg as a single datagram to raddr.
func (ch *UDPChannel) Send(_ context.Context, msg Message, raddr netip.AddrPort) error {
	_, err := ch.conn.WriteTo([]byte(msg.String()), net.UDPAddrFromAddrPort(raddr))
	return err
}

// Serve reads datagrams until ctx is done or Close is called, parsing each
// one independently and delivering it to onMessage. A datagram that fails to
// parse is logged and dropped; it does not stop the read loop, since a
// malformed peer message must not take down the whole channel.
func (ch *UDPChannel) Serve(ctx context.Context, onMessage func(msg Message, raddr netip.AddrPort)) error {
	go func() {
		<-ctx.Done()
		ch.Close()
	}()

	buf := make([]byte, MaxMsgSize)
	for {
		n, addr, err := ch.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		if n == 0 {
			continue
		}

		raddr, ok := netAddrToAddrPort(addr)
		if !ok {
			continue
		}

		msg, err := ParseMessage(buf[:n])
		if err != nil {
			ch.log.WarnContext(ctx, "dropping malformed datagram", "remote_addr", raddr, "error", err)
			continue
		}
		onMessage(msg, raddr)
	}
}

func (ch *UDPChannel) Close() error {
	var err error
	ch.closeOnce.Do(func() { err = ch.conn.Close() })
	return err
}

func netAddrToAddrPort(addr net.Addr) (netip.AddrPort, bool) {
	udpAddr, ok := addr.(*net.UDPAddr)
	if !ok {
		return netip.AddrPort{}, false
	}
	return udpAddr.AddrPort(), true
}
