package lan

import (
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
)

var (
	ErrNoBeacon   = errors.New("lan beacon not initialized")
	ErrShortWrite = errors.New("lan beacon: short write")
)

// beacon es el socket UDP de descubrimiento con sus direcciones cacheadas.
// Pertenece en exclusiva a una Session.
type beacon struct {
	sock          Socket
	listenAddr    netip.AddrPort
	broadcastAddr netip.AddrPort
	log           *slog.Logger
}

// newBeacon crea e inicializa el socket: reuse addr, no bloqueante,
// reporte de errores de recepción, bind al puerto de anuncio y broadcast.
// Si algo falla el socket se cierra y se devuelve el error.
func newBeacon(p SocketProvider, port uint16, log *slog.Logger) (*beacon, error) {
	sock, err := p.CreateDatagramSocket("LANBeacon", true)
	if err != nil {
		return nil, fmt.Errorf("create socket: %w", err)
	}
	if sock == nil {
		return nil, errors.New("create socket: provider returned nil")
	}

	b := &beacon{
		sock:          sock,
		listenAddr:    p.LocalBindAddr(port),
		broadcastAddr: p.BroadcastAddr(port),
		log:           log,
	}

	steps := []struct {
		name string
		fn   func() error
	}{
		{"reuse addr", sock.SetReuseAddr},
		{"non-blocking", sock.SetNonBlocking},
		{"recv err", sock.SetRecvErr},
		{"bind " + b.listenAddr.String(), func() error { return sock.Bind(b.listenAddr) }},
		{"broadcast", sock.SetBroadcast},
	}
	for _, s := range steps {
		if err := s.fn(); err != nil {
			sock.Close()
			return nil, fmt.Errorf("%s: %w", s.name, err)
		}
	}

	log.Debug("LAN beacon listo", "listen", b.listenAddr, "broadcast", b.broadcastAddr)
	return b, nil
}

// broadcast envía el paquete a la dirección de broadcast cacheada.
func (b *beacon) broadcast(pkt []byte) error {
	n, err := b.sock.SendTo(pkt, b.broadcastAddr)
	if err != nil {
		return fmt.Errorf("send to %s: %w", b.broadcastAddr, err)
	}
	if n != len(pkt) {
		return fmt.Errorf("%w: %d/%d bytes", ErrShortWrite, n, len(pkt))
	}
	return nil
}

// receive lee un datagrama sin bloquear. n <= 0 => no hay nada pendiente.
// Los errores de socket se tratan como "sin datos": el siguiente Tick
// volverá a intentarlo.
func (b *beacon) receive(buf []byte) (int, netip.AddrPort) {
	n, from, err := b.sock.RecvFrom(buf)
	if err != nil {
		b.log.Debug("LAN beacon: error de recepción", "err", err)
		return 0, netip.AddrPort{}
	}
	return n, from
}

func (b *beacon) close() {
	if err := b.sock.Close(); err != nil {
		b.log.Debug("LAN beacon: error cerrando socket", "err", err)
	}
}
