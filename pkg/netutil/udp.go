package netutil

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/netip"

	"golang.org/x/net/ipv4"
	"golang.org/x/sys/unix"

	"github.com/Soyunomas/lanbeacon/pkg/lan"
)

var (
	ErrSocketClosed        = errors.New("udp socket closed")
	ErrNotBound            = errors.New("udp socket not bound")
	ErrAlreadyBound        = errors.New("udp socket already bound")
	ErrBroadcastNotAllowed = errors.New("udp socket created without broadcast permission")
)

// UDPProvider crea sockets UDP/IPv4 reales del sistema operativo.
//
// Si Interfaces no está vacío, cada envío al broadcast limitado se repite
// también a la dirección de broadcast dirigido de esas interfaces (útil en
// hosts con varias NICs, donde 255.255.255.255 solo sale por la ruta por
// defecto).
type UDPProvider struct {
	Interfaces []string
	Log        *slog.Logger
}

var _ lan.SocketProvider = (*UDPProvider)(nil)

func NewUDPProvider(log *slog.Logger, interfaces ...string) *UDPProvider {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &UDPProvider{Interfaces: interfaces, Log: log}
}

func (p *UDPProvider) CreateDatagramSocket(name string, allowBroadcast bool) (lan.Socket, error) {
	log := p.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	s := &UDPSocket{
		name:           name,
		allowBroadcast: allowBroadcast,
		log:            log.With("socket", name),
	}
	if allowBroadcast && len(p.Interfaces) > 0 {
		fanout, err := BroadcastAddrs(p.Interfaces)
		if err != nil {
			return nil, err
		}
		s.fanout = fanout
		s.log.Debug("Broadcast dirigido activado", "addrs", fanout)
	}
	return s, nil
}

func (p *UDPProvider) LocalBindAddr(port uint16) netip.AddrPort {
	return netip.AddrPortFrom(netip.IPv4Unspecified(), port)
}

func (p *UDPProvider) BroadcastAddr(port uint16) netip.AddrPort {
	return netip.AddrPortFrom(LimitedBroadcast, port)
}

// UDPSocket implementa lan.Socket sobre un *net.UDPConn.
// Las opciones pedidas antes de Bind se aplican en el propio bind; las
// pedidas después se aplican directamente sobre el descriptor.
type UDPSocket struct {
	name           string
	allowBroadcast bool
	log            *slog.Logger

	opts        sockOpts
	nonBlocking bool

	conn   *net.UDPConn
	pconn  *ipv4.PacketConn
	fanout []netip.Addr
	closed bool
}

var _ lan.Socket = (*UDPSocket)(nil)

func (s *UDPSocket) SetReuseAddr() error {
	if s.closed {
		return ErrSocketClosed
	}
	if s.conn != nil {
		return controlFD(s.conn, sockOpts{reuseAddr: true}.apply)
	}
	s.opts.reuseAddr = true
	return nil
}

// SetNonBlocking hace que RecvFrom vuelva de inmediato si no hay datos.
func (s *UDPSocket) SetNonBlocking() error {
	if s.closed {
		return ErrSocketClosed
	}
	s.nonBlocking = true
	return nil
}

func (s *UDPSocket) SetRecvErr() error {
	if s.closed {
		return ErrSocketClosed
	}
	if s.conn != nil {
		return controlFD(s.conn, setRecvErr)
	}
	s.opts.recvErr = true
	return nil
}

func (s *UDPSocket) SetBroadcast() error {
	if s.closed {
		return ErrSocketClosed
	}
	if !s.allowBroadcast {
		return ErrBroadcastNotAllowed
	}
	if s.conn != nil {
		return controlFD(s.conn, sockOpts{broadcast: true}.apply)
	}
	s.opts.broadcast = true
	return nil
}

func (s *UDPSocket) Bind(addr netip.AddrPort) error {
	if s.closed {
		return ErrSocketClosed
	}
	if s.conn != nil {
		return ErrAlreadyBound
	}
	conn, err := listenUDP(addr, s.opts)
	if err != nil {
		return err
	}
	s.conn = conn
	s.pconn = ipv4.NewPacketConn(conn)
	return nil
}

// RecvFrom lee un datagrama. En modo no bloqueante devuelve n == 0 y
// error nil cuando la cola del socket está vacía.
func (s *UDPSocket) RecvFrom(buf []byte) (int, netip.AddrPort, error) {
	if s.closed {
		return 0, netip.AddrPort{}, ErrSocketClosed
	}
	if s.conn == nil {
		return 0, netip.AddrPort{}, ErrNotBound
	}
	if !s.nonBlocking {
		return s.conn.ReadFromUDPAddrPort(buf)
	}

	raw, err := s.conn.SyscallConn()
	if err != nil {
		return 0, netip.AddrPort{}, err
	}

	var (
		n       int
		from    unix.Sockaddr
		recvErr error
	)
	err = raw.Read(func(fd uintptr) bool {
		n, from, recvErr = unix.Recvfrom(int(fd), buf, unix.MSG_DONTWAIT)
		// Nunca esperamos al netpoller.
		return true
	})
	if err != nil {
		return 0, netip.AddrPort{}, err
	}
	if recvErr != nil {
		if errors.Is(recvErr, unix.EAGAIN) || errors.Is(recvErr, unix.EWOULDBLOCK) {
			return 0, netip.AddrPort{}, nil
		}
		return 0, netip.AddrPort{}, recvErr
	}
	return n, addrPortFromSockaddr(from), nil
}

// SendTo envía buf a `to`. Si el destino es el broadcast limitado y hay
// direcciones dirigidas configuradas, se reenvía también a ellas en un
// único WriteBatch; los fallos de ese reenvío solo se registran.
func (s *UDPSocket) SendTo(buf []byte, to netip.AddrPort) (int, error) {
	if s.closed {
		return 0, ErrSocketClosed
	}
	if s.conn == nil {
		return 0, ErrNotBound
	}

	n, err := s.conn.WriteToUDPAddrPort(buf, to)
	if err != nil {
		return n, err
	}

	if to.Addr() == LimitedBroadcast && len(s.fanout) > 0 {
		msgs := make([]ipv4.Message, 0, len(s.fanout))
		for _, a := range s.fanout {
			msgs = append(msgs, ipv4.Message{
				Buffers: [][]byte{buf},
				Addr:    net.UDPAddrFromAddrPort(netip.AddrPortFrom(a, to.Port())),
			})
		}
		if sent, err := s.pconn.WriteBatch(msgs, 0); err != nil {
			s.log.Debug("⚠️ Fallo en broadcast dirigido", "sent", sent, "total", len(msgs), "err", err)
		}
	}
	return n, nil
}

func (s *UDPSocket) Close() error {
	if s.closed {
		return ErrSocketClosed
	}
	s.closed = true
	if s.conn == nil {
		return nil
	}
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("close %s: %w", s.name, err)
	}
	return nil
}

// LocalAddr es la dirección real tras el bind (útil con puerto 0).
func (s *UDPSocket) LocalAddr() netip.AddrPort {
	if s.conn == nil {
		return netip.AddrPort{}
	}
	return s.conn.LocalAddr().(*net.UDPAddr).AddrPort()
}

func addrPortFromSockaddr(sa unix.Sockaddr) netip.AddrPort {
	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		return netip.AddrPortFrom(netip.AddrFrom4(sa.Addr), uint16(sa.Port))
	case *unix.SockaddrInet6:
		return netip.AddrPortFrom(netip.AddrFrom16(sa.Addr).Unmap(), uint16(sa.Port))
	default:
		return netip.AddrPort{}
	}
}
