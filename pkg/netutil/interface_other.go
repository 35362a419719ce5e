//go:build !linux

package netutil

import (
	"fmt"
	"net"
	"net/netip"
)

// BroadcastAddrs devuelve las direcciones de broadcast dirigido IPv4 de las
// interfaces indicadas, calculadas desde la máscara de cada dirección.
func BroadcastAddrs(ifaceNames []string) ([]netip.Addr, error) {
	var out []netip.Addr
	for _, name := range ifaceNames {
		iface, err := net.InterfaceByName(name)
		if err != nil {
			return nil, fmt.Errorf("no se encontró interfaz %s: %w", name, err)
		}
		addrs, err := iface.Addrs()
		if err != nil {
			return nil, fmt.Errorf("error listando direcciones de %s: %w", name, err)
		}
		for _, a := range addrs {
			ipNet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			p, ok := prefixFromIPNet(ipNet)
			if !ok {
				continue
			}
			if bcast, ok := DirectedBroadcast(p); ok {
				out = appendUnique(out, bcast)
			}
		}
	}
	return out, nil
}
