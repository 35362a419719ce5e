package config

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/netip"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/Soyunomas/lanbeacon/internal/engine"
	"github.com/Soyunomas/lanbeacon/internal/session"
	"github.com/Soyunomas/lanbeacon/pkg/lan"
	"github.com/Soyunomas/lanbeacon/pkg/nbo"
	"github.com/Soyunomas/lanbeacon/pkg/protocol"
)

const DefaultGameName = "lanbeacon"

var ErrUnknownFormat = errors.New("unknown config file format (use .toml, .yaml or .yml)")

// Duration acepta "5s", "250ms"... tanto en TOML como en YAML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// SettingConfig es un ajuste de sesión tal y como se escribe en el fichero.
type SettingConfig struct {
	Key       string `toml:"key" yaml:"key"`
	Type      string `toml:"type" yaml:"type"`
	Value     string `toml:"value" yaml:"value"`
	Advertise string `toml:"advertise" yaml:"advertise"`
}

type Config struct {
	AnnouncePort    int      `toml:"announce_port" yaml:"announce_port"`
	QueryTimeout    Duration `toml:"query_timeout" yaml:"query_timeout"`
	ProtocolVersion int      `toml:"protocol_version" yaml:"protocol_version"`
	GameID          int32    `toml:"game_id" yaml:"game_id"`
	GameName        string   `toml:"game_name" yaml:"game_name"`
	PlatformMask    int      `toml:"platform_mask" yaml:"platform_mask"`
	TickInterval    Duration `toml:"tick_interval" yaml:"tick_interval"`
	Interfaces      []string `toml:"interfaces" yaml:"interfaces"`
	MetricsAddr     string   `toml:"metrics_addr" yaml:"metrics_addr"`
	Debug           bool     `toml:"debug" yaml:"debug"`

	// Solo para el modo host.
	OwnerName         string          `toml:"owner_name" yaml:"owner_name"`
	BuildID           int32           `toml:"build_id" yaml:"build_id"`
	PublicConnections int32           `toml:"public_connections" yaml:"public_connections"`
	Settings          []SettingConfig `toml:"settings" yaml:"settings"`
}

// Default devuelve la configuración por defecto (sin fichero).
func Default() *Config {
	return &Config{
		AnnouncePort:      protocol.DefaultAnnouncePort,
		QueryTimeout:      Duration{protocol.DefaultQueryTimeout},
		ProtocolVersion:   int(protocol.PacketVersion),
		GameName:          DefaultGameName,
		PlatformMask:      int(protocol.DefaultPlatformMask),
		TickInterval:      Duration{engine.DefaultTickInterval},
		PublicConnections: 8,
	}
}

// Load lee path (si no está vacío) sobre los valores por defecto, deriva
// el GameID y valida el resultado.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := decode(c, path, data); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	if c.GameID == 0 && c.GameName != "" {
		c.GameID = protocol.GameIDFromName(c.GameName)
	}
	if c.OwnerName == "" {
		c.OwnerName, _ = os.Hostname()
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func decode(c *Config, path string, data []byte) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		return dec.Decode(c)
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	default:
		return ErrUnknownFormat
	}
}

func (c *Config) Validate() error {
	if c.AnnouncePort < 1 || c.AnnouncePort > 65535 {
		return fmt.Errorf("announce_port fuera de rango: %d", c.AnnouncePort)
	}
	if c.QueryTimeout.Duration <= 0 {
		return fmt.Errorf("query_timeout debe ser positivo: %s", c.QueryTimeout)
	}
	if c.ProtocolVersion < 0 || c.ProtocolVersion > 255 {
		return fmt.Errorf("protocol_version fuera de rango: %d", c.ProtocolVersion)
	}
	if c.PlatformMask < 1 || c.PlatformMask > 255 {
		return fmt.Errorf("platform_mask debe estar en 1..255: %d", c.PlatformMask)
	}
	if c.TickInterval.Duration <= 0 {
		return fmt.Errorf("tick_interval debe ser positivo: %s", c.TickInterval)
	}
	if c.PublicConnections < 0 {
		return fmt.Errorf("public_connections negativo: %d", c.PublicConnections)
	}
	for _, s := range c.Settings {
		if _, err := s.variant(); err != nil {
			return fmt.Errorf("setting %q: %w", s.Key, err)
		}
		if _, err := s.advertisement(); err != nil {
			return fmt.Errorf("setting %q: %w", s.Key, err)
		}
	}
	return nil
}

// LANConfig convierte a la configuración del protocolo.
func (c *Config) LANConfig() lan.Config {
	return lan.Config{
		AnnouncePort:    uint16(c.AnnouncePort),
		QueryTimeout:    c.QueryTimeout.Duration,
		ProtocolVersion: uint8(c.ProtocolVersion),
		GameID:          c.GameID,
		PlatformMask:    uint8(c.PlatformMask),
	}
}

func (c *Config) EngineConfig() engine.Config {
	return engine.Config{
		LAN:          c.LANConfig(),
		TickInterval: c.TickInterval.Duration,
	}
}

// Advertisement construye el anuncio del modo host.
func (c *Config) Advertisement(host netip.AddrPort) (*session.Advertisement, error) {
	adv := session.NewAdvertisement(c.OwnerName, host, c.BuildID, c.PublicConnections)
	for _, s := range c.Settings {
		v, err := s.variant()
		if err != nil {
			return nil, fmt.Errorf("setting %q: %w", s.Key, err)
		}
		a, err := s.advertisement()
		if err != nil {
			return nil, fmt.Errorf("setting %q: %w", s.Key, err)
		}
		adv.Settings.Set(s.Key, v, a)
	}
	return adv, nil
}

func (s SettingConfig) advertisement() (session.AdvertisementType, error) {
	if s.Advertise == "" {
		return session.ViaPingOnly, nil
	}
	a, ok := session.ParseAdvertisementType(s.Advertise)
	if !ok {
		return 0, fmt.Errorf("advertise desconocido: %q", s.Advertise)
	}
	return a, nil
}

func (s SettingConfig) variant() (nbo.Variant, error) {
	if s.Key == "" {
		return nil, errors.New("clave vacía")
	}
	switch strings.ToLower(s.Type) {
	case "", "string":
		return nbo.String(s.Value), nil
	case "empty":
		return nbo.Empty{}, nil
	case "int32":
		v, err := strconv.ParseInt(s.Value, 0, 32)
		return nbo.Int32(v), err
	case "uint32":
		v, err := strconv.ParseUint(s.Value, 0, 32)
		return nbo.UInt32(v), err
	case "int64":
		v, err := strconv.ParseInt(s.Value, 0, 64)
		return nbo.Int64(v), err
	case "uint64":
		v, err := strconv.ParseUint(s.Value, 0, 64)
		return nbo.UInt64(v), err
	case "float":
		v, err := strconv.ParseFloat(s.Value, 32)
		return nbo.Float(v), err
	case "double":
		v, err := strconv.ParseFloat(s.Value, 64)
		return nbo.Double(v), err
	case "bool":
		v, err := strconv.ParseBool(s.Value)
		return nbo.Bool(v), err
	case "blob":
		v, err := hex.DecodeString(s.Value)
		return nbo.Blob(v), err
	default:
		return nil, fmt.Errorf("tipo desconocido: %q", s.Type)
	}
}
