package netutil

import (
	"encoding/binary"
	"net"
	"net/netip"
)

// LimitedBroadcast es 255.255.255.255.
var LimitedBroadcast = netip.AddrFrom4([4]byte{255, 255, 255, 255})

func IPToUint32(ip netip.Addr) uint32 {
	if !ip.Is4() && !ip.Is4In6() {
		return 0
	}
	b := ip.Unmap().As4()
	return binary.BigEndian.Uint32(b[:])
}

func Uint32ToIP(nn uint32) netip.Addr {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], nn)
	return netip.AddrFrom4(b)
}

// DirectedBroadcast devuelve la dirección de broadcast de la subred
// (host bits a 1). Las redes /31 y /32 no tienen broadcast.
func DirectedBroadcast(p netip.Prefix) (netip.Addr, bool) {
	addr := p.Addr().Unmap()
	if !p.IsValid() || !addr.Is4() || p.Bits() > 30 {
		return netip.Addr{}, false
	}
	hostMask := ^uint32(0) >> p.Bits()
	return Uint32ToIP(IPToUint32(addr) | hostMask), true
}

// prefixFromIPNet convierte un *net.IPNet IPv4 a netip.Prefix.
func prefixFromIPNet(n *net.IPNet) (netip.Prefix, bool) {
	if n == nil {
		return netip.Prefix{}, false
	}
	v4 := n.IP.To4()
	if v4 == nil {
		return netip.Prefix{}, false
	}
	ones, bits := n.Mask.Size()
	if bits != 32 {
		return netip.Prefix{}, false
	}
	return netip.PrefixFrom(netip.AddrFrom4([4]byte(v4)), ones), true
}

func appendUnique(dst []netip.Addr, a netip.Addr) []netip.Addr {
	for _, x := range dst {
		if x == a {
			return dst
		}
	}
	return append(dst, a)
}
