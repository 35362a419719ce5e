package netutil

import (
	"fmt"
	"net/netip"

	"github.com/vishvananda/netlink"
)

// BroadcastAddrs devuelve las direcciones de broadcast dirigido IPv4 de las
// interfaces indicadas, leídas del kernel vía netlink. Si la dirección
// trae IFA_BROADCAST se usa tal cual; si no, se calcula desde la máscara.
func BroadcastAddrs(ifaceNames []string) ([]netip.Addr, error) {
	var out []netip.Addr
	for _, name := range ifaceNames {
		link, err := netlink.LinkByName(name)
		if err != nil {
			return nil, fmt.Errorf("no se encontró interfaz %s: %w", name, err)
		}

		addrs, err := netlink.AddrList(link, netlink.FAMILY_V4)
		if err != nil {
			return nil, fmt.Errorf("error listando direcciones de %s: %w", name, err)
		}

		for _, a := range addrs {
			if v4 := a.Broadcast.To4(); v4 != nil && !v4.IsUnspecified() {
				out = appendUnique(out, netip.AddrFrom4([4]byte(v4)))
				continue
			}
			p, ok := prefixFromIPNet(a.IPNet)
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
