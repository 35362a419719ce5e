// Package lantest ofrece una LAN simulada en memoria que implementa
// lan.SocketProvider, para probar Session sin tocar sockets reales.
package lantest

import (
	"errors"
	"fmt"
	"net/netip"
	"sync"

	"github.com/Soyunomas/lanbeacon/pkg/lan"
)

var (
	ErrClosed      = errors.New("lantest: socket closed")
	ErrNotBound    = errors.New("lantest: socket not bound")
	ErrAddrInUse   = errors.New("lantest: address already in use")
	ErrWouldBlock  = errors.New("lantest: blocking receive on empty queue")
	ErrNoBroadcast = errors.New("lantest: broadcast not enabled")
)

var broadcastIP = netip.AddrFrom4([4]byte{255, 255, 255, 255})

// Datagram es un paquete que ha pasado por la red simulada.
type Datagram struct {
	From netip.AddrPort
	To   netip.AddrPort
	Data []byte
}

// Network simula un segmento LAN. Cada socket recibe una IP 10.0.0.N.
// Un envío a 255.255.255.255:port llega a todos los sockets enlazados a
// ese puerto, incluido el emisor (como en un broadcast real).
//
// Los campos Fail* permiten inyectar fallos; se leen en cada operación.
type Network struct {
	mu sync.Mutex

	nextHost byte
	sockets  []*Socket
	sent     []Datagram

	opened int
	closed int

	FailCreate    error
	FailBind      error
	FailBroadcast error // error de SetBroadcast
	FailSend      error
	ShortSend     bool
}

var _ lan.SocketProvider = (*Network)(nil)

func NewNetwork() *Network {
	return &Network{nextHost: 1}
}

func (n *Network) CreateDatagramSocket(name string, allowBroadcast bool) (lan.Socket, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.FailCreate != nil {
		return nil, n.FailCreate
	}
	ip := netip.AddrFrom4([4]byte{10, 0, 0, n.nextHost})
	n.nextHost++
	s := &Socket{
		net:            n,
		name:           name,
		ip:             ip,
		allowBroadcast: allowBroadcast,
	}
	n.sockets = append(n.sockets, s)
	n.opened++
	return s, nil
}

func (n *Network) LocalBindAddr(port uint16) netip.AddrPort {
	return netip.AddrPortFrom(netip.IPv4Unspecified(), port)
}

func (n *Network) BroadcastAddr(port uint16) netip.AddrPort {
	return netip.AddrPortFrom(broadcastIP, port)
}

// Inject encola un datagrama crudo en todos los sockets enlazados a port,
// como si lo hubiera enviado un tercero desde from.
func (n *Network) Inject(port uint16, from netip.AddrPort, pkt []byte) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deliver(Datagram{From: from, To: netip.AddrPortFrom(broadcastIP, port), Data: pkt})
}

// deliver requiere n.mu.
func (n *Network) deliver(d Datagram) {
	d.Data = append([]byte(nil), d.Data...)
	n.sent = append(n.sent, d)
	for _, s := range n.sockets {
		if !s.bound || s.closed || s.port != d.To.Port() {
			continue
		}
		if d.To.Addr() == broadcastIP || d.To.Addr() == s.ip {
			s.queue = append(s.queue, d)
		}
	}
}

// Opened es el número total de sockets creados.
func (n *Network) Opened() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.opened
}

// Closed es el número total de sockets cerrados.
func (n *Network) Closed() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.closed
}

// Live es el número de sockets abiertos ahora mismo.
func (n *Network) Live() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.opened - n.closed
}

// Sent devuelve una copia de todo lo que ha circulado por la red.
func (n *Network) Sent() []Datagram {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Datagram(nil), n.sent...)
}

// Socket es un socket de la red simulada.
type Socket struct {
	net  *Network
	name string
	ip   netip.Addr
	port uint16

	allowBroadcast bool
	reuseAddr      bool
	nonBlocking    bool
	recvErr        bool
	broadcast      bool
	bound          bool
	closed         bool

	queue []Datagram
}

var _ lan.Socket = (*Socket)(nil)

func (s *Socket) SetReuseAddr() error {
	s.net.mu.Lock()
	defer s.net.mu.Unlock()
	s.reuseAddr = true
	return nil
}

func (s *Socket) SetNonBlocking() error {
	s.net.mu.Lock()
	defer s.net.mu.Unlock()
	s.nonBlocking = true
	return nil
}

func (s *Socket) SetRecvErr() error {
	s.net.mu.Lock()
	defer s.net.mu.Unlock()
	s.recvErr = true
	return nil
}

func (s *Socket) SetBroadcast() error {
	s.net.mu.Lock()
	defer s.net.mu.Unlock()
	if s.net.FailBroadcast != nil {
		return s.net.FailBroadcast
	}
	if !s.allowBroadcast {
		return ErrNoBroadcast
	}
	s.broadcast = true
	return nil
}

func (s *Socket) Bind(addr netip.AddrPort) error {
	s.net.mu.Lock()
	defer s.net.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.net.FailBind != nil {
		return s.net.FailBind
	}
	for _, o := range s.net.sockets {
		if o == s || !o.bound || o.closed || o.port != addr.Port() {
			continue
		}
		if !o.reuseAddr || !s.reuseAddr {
			return fmt.Errorf("%w: port %d", ErrAddrInUse, addr.Port())
		}
	}
	s.port = addr.Port()
	s.bound = true
	return nil
}

func (s *Socket) RecvFrom(buf []byte) (int, netip.AddrPort, error) {
	s.net.mu.Lock()
	defer s.net.mu.Unlock()

	if s.closed {
		return 0, netip.AddrPort{}, ErrClosed
	}
	if len(s.queue) == 0 {
		if !s.nonBlocking {
			return 0, netip.AddrPort{}, ErrWouldBlock
		}
		return 0, netip.AddrPort{}, nil
	}
	d := s.queue[0]
	s.queue = s.queue[1:]
	return copy(buf, d.Data), d.From, nil
}

func (s *Socket) SendTo(buf []byte, to netip.AddrPort) (int, error) {
	s.net.mu.Lock()
	defer s.net.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}
	if s.net.FailSend != nil {
		return 0, s.net.FailSend
	}
	if to.Addr() == broadcastIP && !s.broadcast {
		return 0, ErrNoBroadcast
	}
	if s.net.ShortSend && len(buf) > 0 {
		return len(buf) - 1, nil
	}
	s.net.deliver(Datagram{From: s.localAddr(), To: to, Data: buf})
	return len(buf), nil
}

func (s *Socket) Close() error {
	s.net.mu.Lock()
	defer s.net.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	s.closed = true
	s.queue = nil
	s.net.closed++
	return nil
}

// Pending es el número de datagramas en cola.
func (s *Socket) Pending() int {
	s.net.mu.Lock()
	defer s.net.mu.Unlock()
	return len(s.queue)
}

// Addr es la dirección IP:puerto del socket en la red simulada.
func (s *Socket) Addr() netip.AddrPort {
	s.net.mu.Lock()
	defer s.net.mu.Unlock()
	return s.localAddr()
}

func (s *Socket) localAddr() netip.AddrPort {
	return netip.AddrPortFrom(s.ip, s.port)
}
