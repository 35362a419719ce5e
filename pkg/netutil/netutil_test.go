package netutil

import (
	"net/netip"
	"testing"
	"time"

	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIPConversion(t *testing.T) {
	ip := netip.MustParseAddr("192.168.1.10")
	v := IPToUint32(ip)
	assert.Equal(t, uint32(0xC0A8010A), v)
	assert.Equal(t, ip, Uint32ToIP(v))

	assert.Equal(t, v, IPToUint32(netip.MustParseAddr("::ffff:192.168.1.10")))
	assert.Zero(t, IPToUint32(netip.MustParseAddr("fe80::1")))
}

func TestDirectedBroadcast(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
		ok     bool
	}{
		{"192.168.1.10/24", "192.168.1.255", true},
		{"10.1.2.3/8", "10.255.255.255", true},
		{"172.16.5.4/20", "172.16.15.255", true},
		{"10.0.0.1/30", "10.0.0.3", true},
		{"0.0.0.0/0", "255.255.255.255", true},
		{"10.0.0.1/31", "", false},
		{"10.0.0.1/32", "", false},
		{"fe80::1/64", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			got, ok := DirectedBroadcast(netip.MustParsePrefix(tt.prefix))
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, netip.MustParseAddr(tt.want), got)
			}
		})
	}
}

func TestProviderAddresses(t *testing.T) {
	p := NewUDPProvider(nil)
	assert.Equal(t, "0.0.0.0:14001", p.LocalBindAddr(14001).String())
	assert.Equal(t, "255.255.255.255:14001", p.BroadcastAddr(14001).String())
}

func newLoopbackSocket(t *testing.T, p *UDPProvider, port uint16) *UDPSocket {
	t.Helper()
	sock, err := p.CreateDatagramSocket("test", true)
	require.NoError(t, err)
	s := sock.(*UDPSocket)

	require.NoError(t, s.SetReuseAddr())
	require.NoError(t, s.SetNonBlocking())
	require.NoError(t, s.SetRecvErr())
	require.NoError(t, s.Bind(netip.AddrPortFrom(netip.MustParseAddr("127.0.0.1"), port)))
	require.NoError(t, s.SetBroadcast())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestUDPSocketLoopback(t *testing.T) {
	p := NewUDPProvider(slogt.New(t, slogt.Text()))
	rx := newLoopbackSocket(t, p, 0)
	tx := newLoopbackSocket(t, p, 0)

	buf := make([]byte, 512)

	// Cola vacía: no bloquea y no es error.
	n, _, err := rx.RecvFrom(buf)
	require.NoError(t, err)
	assert.Zero(t, n)

	msg := []byte("hola beacon")
	sent, err := tx.SendTo(msg, rx.LocalAddr())
	require.NoError(t, err)
	assert.Equal(t, len(msg), sent)

	var from netip.AddrPort
	require.Eventually(t, func() bool {
		n, from, err = rx.RecvFrom(buf)
		return err == nil && n > 0
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, msg, buf[:n])
	assert.Equal(t, tx.LocalAddr(), from)
}

func TestUDPSocketReusePort(t *testing.T) {
	p := NewUDPProvider(nil)
	first := newLoopbackSocket(t, p, 0)
	port := first.LocalAddr().Port()

	// Con reuse, un segundo socket puede enlazar el mismo puerto.
	second := newLoopbackSocket(t, p, port)
	assert.Equal(t, port, second.LocalAddr().Port())

	// Sin reuse, no.
	sock, err := p.CreateDatagramSocket("plain", false)
	require.NoError(t, err)
	err = sock.Bind(netip.AddrPortFrom(netip.MustParseAddr("127.0.0.1"), port))
	assert.Error(t, err)
	_ = sock.Close()
}

func TestUDPSocketLifecycleErrors(t *testing.T) {
	p := NewUDPProvider(nil)

	sock, err := p.CreateDatagramSocket("nobcast", false)
	require.NoError(t, err)
	assert.ErrorIs(t, sock.SetBroadcast(), ErrBroadcastNotAllowed)

	_, _, err = sock.RecvFrom(make([]byte, 8))
	assert.ErrorIs(t, err, ErrNotBound)
	_, err = sock.SendTo([]byte{1}, p.BroadcastAddr(1))
	assert.ErrorIs(t, err, ErrNotBound)

	require.NoError(t, sock.Close())
	assert.ErrorIs(t, sock.Close(), ErrSocketClosed)
	assert.ErrorIs(t, sock.Bind(p.LocalBindAddr(0)), ErrSocketClosed)
}

func TestBroadcastAddrsUnknownInterface(t *testing.T) {
	_, err := BroadcastAddrs([]string{"no-such-iface0"})
	assert.Error(t, err)

	addrs, err := BroadcastAddrs(nil)
	require.NoError(t, err)
	assert.Empty(t, addrs)
}
