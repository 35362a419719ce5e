package netutil

import (
	"context"
	"net"
	"net/netip"
	"syscall"

	"golang.org/x/sys/unix"
)

// sockOpts son las opciones pedidas antes del bind. Se aplican en el
// Control del ListenConfig, antes de que el kernel vea el bind().
type sockOpts struct {
	reuseAddr bool
	broadcast bool
	recvErr   bool
}

func (o sockOpts) apply(fd int) error {
	if o.reuseAddr {
		// SO_REUSEPORT permite que host y cliente compartan el puerto de
		// anuncio en la misma máquina.
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
			return err
		}
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
			return err
		}
	}
	if o.broadcast {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_BROADCAST, 1); err != nil {
			return err
		}
	}
	if o.recvErr {
		if err := setRecvErr(fd); err != nil {
			return err
		}
	}
	return nil
}

// listenUDP crea un UDPConn IPv4 en addr con las opciones ya aplicadas.
func listenUDP(addr netip.AddrPort, opts sockOpts) (*net.UDPConn, error) {
	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var opErr error
			err := c.Control(func(fd uintptr) {
				opErr = opts.apply(int(fd))
			})
			if err != nil {
				return err
			}
			return opErr
		},
	}

	conn, err := lc.ListenPacket(context.Background(), "udp4", addr.String())
	if err != nil {
		return nil, err
	}

	return conn.(*net.UDPConn), nil
}

// controlFD ejecuta fn sobre el descriptor de un socket ya creado.
func controlFD(conn *net.UDPConn, fn func(fd int) error) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var opErr error
	if err := raw.Control(func(fd uintptr) {
		opErr = fn(int(fd))
	}); err != nil {
		return err
	}
	return opErr
}
