package lan

import (
	"errors"
	"fmt"
	"time"

	"github.com/Soyunomas/lanbeacon/pkg/protocol"
)

// Config reemplaza a los singletons de configuración del motor.
// Cada Session recibe la suya; no hay estado global mutable.
type Config struct {
	AnnouncePort    uint16
	QueryTimeout    time.Duration
	ProtocolVersion uint8
	GameID          int32
	PlatformMask    uint8
}

// DefaultConfig devuelve la configuración por defecto para un juego.
func DefaultConfig(gameID int32) Config {
	return Config{
		AnnouncePort:    protocol.DefaultAnnouncePort,
		QueryTimeout:    protocol.DefaultQueryTimeout,
		ProtocolVersion: protocol.PacketVersion,
		GameID:          gameID,
		PlatformMask:    protocol.DefaultPlatformMask,
	}
}

// Validate comprueba que la configuración tenga sentido.
func (c Config) Validate() error {
	if c.AnnouncePort == 0 {
		return errors.New("announce port must be non-zero")
	}
	if c.QueryTimeout <= 0 {
		return fmt.Errorf("query timeout must be positive, got %s", c.QueryTimeout)
	}
	if c.PlatformMask == 0 {
		return errors.New("platform mask 0 would reject every packet")
	}
	return nil
}

// Params devuelve los parámetros de cabecera derivados de la configuración.
func (c Config) Params() protocol.Params {
	return protocol.Params{
		Version:      c.ProtocolVersion,
		GameID:       c.GameID,
		PlatformMask: c.PlatformMask,
	}
}
