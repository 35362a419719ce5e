package engine

import (
	"context"
	"net/netip"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Soyunomas/lanbeacon/internal/session"
	"github.com/Soyunomas/lanbeacon/pkg/lan"
	"github.com/Soyunomas/lanbeacon/pkg/lan/lantest"
	"github.com/Soyunomas/lanbeacon/pkg/nbo"
)

func testConfig() Config {
	lc := lan.DefaultConfig(42)
	lc.AnnouncePort = 7777
	lc.QueryTimeout = 150 * time.Millisecond
	return Config{LAN: lc, TickInterval: 2 * time.Millisecond}
}

func newEngine(t *testing.T, nw *lantest.Network) *Engine {
	t.Helper()
	e, err := New(testConfig(), nw, slogt.New(t, slogt.Text()), nil)
	require.NoError(t, err)
	return e
}

// startHost lanza Host en segundo plano y espera a que el socket esté
// enlazado. Devuelve una función que lo para y espera a que termine.
func startHost(t *testing.T, nw *lantest.Network, adv *session.Advertisement) func() {
	t.Helper()
	before := nw.Live()

	ctx, cancel := context.WithCancel(context.Background())
	e := newEngine(t, nw)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, e.Host(ctx, adv))
	}()

	require.Eventually(t, func() bool { return nw.Live() > before },
		time.Second, time.Millisecond)

	stop := func() {
		cancel()
		wg.Wait()
	}
	t.Cleanup(stop)
	return stop
}

func TestNewValidates(t *testing.T) {
	cfg := testConfig()
	cfg.LAN.AnnouncePort = 0
	_, err := New(cfg, lantest.NewNetwork(), nil, nil)
	assert.Error(t, err)

	_, err = New(testConfig(), nil, nil, nil)
	assert.ErrorIs(t, err, ErrNilProvider)

	cfg = testConfig()
	cfg.TickInterval = 0
	e, err := New(cfg, lantest.NewNetwork(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultTickInterval, e.cfg.TickInterval)
}

func TestSearchFindsHost(t *testing.T) {
	nw := lantest.NewNetwork()

	adv := session.NewAdvertisement("alice", netip.MustParseAddrPort("10.0.0.1:7000"), 7, 4)
	adv.Settings.Set("MapName", nbo.String("dust"), session.ViaPingOnly)
	stop := startHost(t, nw, adv)

	results, err := newEngine(t, nw).Search(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)

	got := results[0].Advertisement
	assert.Equal(t, adv.SessionID, got.SessionID)
	assert.Equal(t, "alice", got.OwnerName)
	assert.Equal(t, adv.HostAddr, got.HostAddr)
	assert.Equal(t, int32(4), got.NumOpenPublicConnections)
	m, ok := got.Settings.Get("mapname")
	require.True(t, ok)
	assert.Equal(t, nbo.String("dust"), m.Value)
	assert.Positive(t, results[0].Ping)

	stop()
	assert.Zero(t, nw.Live())
}

func TestSearchDedupsBySessionID(t *testing.T) {
	nw := lantest.NewNetwork()

	shared := session.NewAdvertisement("twin", netip.MustParseAddrPort("10.0.0.1:7000"), 1, 2)
	other := session.NewAdvertisement("other", netip.MustParseAddrPort("10.0.0.2:7000"), 1, 2)
	startHost(t, nw, shared)
	startHost(t, nw, shared)
	startHost(t, nw, other)

	results, err := newEngine(t, nw).Search(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)

	owners := []string{results[0].Advertisement.OwnerName, results[1].Advertisement.OwnerName}
	assert.ElementsMatch(t, []string{"twin", "other"}, owners)
}

func TestSearchWithoutHostsTimesOut(t *testing.T) {
	nw := lantest.NewNetwork()
	e := newEngine(t, nw)

	start := time.Now()
	results, err := e.Search(context.Background())
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.GreaterOrEqual(t, time.Since(start), testConfig().LAN.QueryTimeout)
	assert.Zero(t, nw.Live())
}

func TestSearchContextCancelled(t *testing.T) {
	nw := lantest.NewNetwork()
	e := newEngine(t, nw)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Search(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	ctx, cancel = context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = e.Search(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, nw.Live())
}

func TestSearchIgnoresMalformedAdvertisements(t *testing.T) {
	nw := lantest.NewNetwork()

	// Un host "crudo" que responde con basura en el payload.
	raw := lan.NewSession(testConfig().LAN, nw)
	require.NoError(t, raw.Host(func(_ []byte, nonce uint64) {
		pkt, err := raw.CreateHostResponsePacket(nonce, []byte{0xDE, 0xAD})
		if assert.NoError(t, err) {
			assert.NoError(t, raw.BroadcastPacket(pkt))
		}
	}))
	defer raw.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		tick := time.NewTicker(time.Millisecond)
		defer tick.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tick.C:
				raw.Tick(time.Millisecond)
			}
		}
	}()

	results, err := newEngine(t, nw).Search(context.Background())
	cancel()
	<-done

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestHostRejectsBadAdvertisement(t *testing.T) {
	e := newEngine(t, lantest.NewNetwork())

	assert.ErrorIs(t, e.Host(context.Background(), nil), ErrNilAdvertisement)

	big := session.NewAdvertisement(strings.Repeat("x", 600), netip.AddrPort{}, 1, 1)
	assert.ErrorIs(t, e.Host(context.Background(), big), ErrAdvertisementTooLarge)
}

func TestHostBindFailure(t *testing.T) {
	nw := lantest.NewNetwork()
	nw.FailBind = assert.AnError
	e := newEngine(t, nw)

	adv := session.NewAdvertisement("x", netip.AddrPort{}, 1, 1)
	assert.ErrorIs(t, e.Host(context.Background(), adv), assert.AnError)
	assert.Zero(t, nw.Live())
}
