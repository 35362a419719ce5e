package netutil

import "golang.org/x/sys/unix"

// setRecvErr activa IP_RECVERR: los errores ICMP llegan por la cola de
// errores del socket en lugar de perderse.
func setRecvErr(fd int) error {
	return unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_RECVERR, 1)
}
