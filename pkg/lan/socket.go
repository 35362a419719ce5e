package lan

import (
	"net/netip"
)

// Socket es el socket UDP que el entorno anfitrión pone a nuestra
// disposición. Las opciones se piden antes de Bind (salvo SetBroadcast,
// que se pide después, igual que en el orden de inicialización del beacon).
type Socket interface {
	SetReuseAddr() error
	SetNonBlocking() error
	// SetRecvErr activa el reporte de errores de recepción (ICMP, etc).
	SetRecvErr() error
	SetBroadcast() error
	Bind(addr netip.AddrPort) error

	// RecvFrom no bloquea: n <= 0 significa "no hay datos ahora".
	RecvFrom(buf []byte) (n int, from netip.AddrPort, err error)
	SendTo(buf []byte, to netip.AddrPort) (int, error)
	Close() error
}

// SocketProvider crea sockets y resuelve las direcciones de la plataforma.
type SocketProvider interface {
	CreateDatagramSocket(name string, allowBroadcast bool) (Socket, error)
	// LocalBindAddr es la dirección "any" de la plataforma con el puerto dado.
	LocalBindAddr(port uint16) netip.AddrPort
	// BroadcastAddr es la dirección de broadcast con el puerto dado.
	BroadcastAddr(port uint16) netip.AddrPort
}
