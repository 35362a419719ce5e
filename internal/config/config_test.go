package config

import (
	"net/netip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Soyunomas/lanbeacon/internal/session"
	"github.com/Soyunomas/lanbeacon/pkg/nbo"
	"github.com/Soyunomas/lanbeacon/pkg/protocol"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, protocol.DefaultAnnouncePort, c.AnnouncePort)
	assert.Equal(t, protocol.DefaultQueryTimeout, c.QueryTimeout.Duration)
	assert.Equal(t, protocol.GameIDFromName(DefaultGameName), c.GameID)
	assert.Equal(t, 50*time.Millisecond, c.TickInterval.Duration)

	lc := c.LANConfig()
	require.NoError(t, lc.Validate())
	assert.Equal(t, uint8(protocol.PacketVersion), lc.ProtocolVersion)
	assert.Equal(t, uint8(0xFF), lc.PlatformMask)
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "beacon.toml", `
announce_port = 7777
query_timeout = "2s"
game_id = 42
platform_mask = 1
tick_interval = "10ms"
interfaces = ["eth0"]
owner_name = "alice"
build_id = 99
public_connections = 4

[[settings]]
key = "MapName"
value = "dust"

[[settings]]
key = "MaxScore"
type = "int32"
value = "150"
advertise = "via_online_service_and_ping"
`)

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7777, c.AnnouncePort)
	assert.Equal(t, 2*time.Second, c.QueryTimeout.Duration)
	assert.Equal(t, int32(42), c.GameID)
	assert.Equal(t, []string{"eth0"}, c.Interfaces)

	ec := c.EngineConfig()
	assert.Equal(t, 10*time.Millisecond, ec.TickInterval)
	assert.Equal(t, uint16(7777), ec.LAN.AnnouncePort)
	assert.Equal(t, uint8(1), ec.LAN.PlatformMask)

	adv, err := c.Advertisement(netip.MustParseAddrPort("10.0.0.5:7000"))
	require.NoError(t, err)
	assert.Equal(t, "alice", adv.OwnerName)
	assert.Equal(t, int32(99), adv.BuildID)
	assert.Equal(t, int32(4), adv.NumOpenPublicConnections)

	s, ok := adv.Settings.Get("maxscore")
	require.True(t, ok)
	assert.Equal(t, nbo.Int32(150), s.Value)
	assert.Equal(t, session.ViaOnlineServiceAndPing, s.Advertisement)

	s, ok = adv.Settings.Get("MapName")
	require.True(t, ok)
	assert.Equal(t, nbo.String("dust"), s.Value)
	assert.Equal(t, session.ViaPingOnly, s.Advertisement)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "beacon.yml", `
announce_port: 15000
query_timeout: 750ms
game_name: space-race
debug: true
settings:
  - key: Ranked
    type: bool
    value: "true"
  - key: Seed
    type: blob
    value: "cafe"
`)

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 15000, c.AnnouncePort)
	assert.Equal(t, 750*time.Millisecond, c.QueryTimeout.Duration)
	assert.Equal(t, protocol.GameIDFromName("space-race"), c.GameID)
	assert.True(t, c.Debug)

	adv, err := c.Advertisement(netip.AddrPort{})
	require.NoError(t, err)
	seed, ok := adv.Settings.Get("seed")
	require.True(t, ok)
	assert.Equal(t, nbo.Blob{0xCA, 0xFE}, seed.Value)
}

func TestLoadEmptyYAML(t *testing.T) {
	c, err := Load(writeFile(t, "empty.yaml", ""))
	require.NoError(t, err)
	assert.Equal(t, protocol.DefaultAnnouncePort, c.AnnouncePort)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"unknown extension", "beacon.ini", "announce_port=1"},
		{"unknown toml field", "a.toml", "bogus = 1"},
		{"unknown yaml field", "a.yaml", "bogus: 1"},
		{"port out of range", "a.toml", "announce_port = 70000"},
		{"zero port", "a.toml", "announce_port = 0"},
		{"negative timeout", "a.toml", `query_timeout = "-1s"`},
		{"bad duration", "a.yaml", "query_timeout: soon"},
		{"zero mask", "a.toml", "platform_mask = 0"},
		{"version too big", "a.toml", "protocol_version = 300"},
		{"bad setting type", "a.yaml", "settings: [{key: k, type: complex, value: x}]"},
		{"bad setting value", "a.yaml", "settings: [{key: k, type: int32, value: abc}]"},
		{"empty setting key", "a.yaml", "settings: [{key: '', value: x}]"},
		{"bad advertise", "a.yaml", "settings: [{key: k, value: x, advertise: radio}]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.content))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestGameIDOverridesName(t *testing.T) {
	c, err := Load(writeFile(t, "a.toml", "game_id = 7\ngame_name = \"ignored\""))
	require.NoError(t, err)
	assert.Equal(t, int32(7), c.GameID)
}
