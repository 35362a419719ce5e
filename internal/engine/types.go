package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/Soyunomas/lanbeacon/pkg/lan"
)

// DefaultTickInterval es la cadencia con la que se llama a Session.Tick.
const DefaultTickInterval = 50 * time.Millisecond

var (
	ErrAdvertisementTooLarge = errors.New("session advertisement does not fit in a beacon response")
	ErrNilAdvertisement      = errors.New("nil session advertisement")
	ErrNilProvider           = errors.New("nil socket provider")
)

type Config struct {
	LAN          lan.Config
	TickInterval time.Duration
}

func (c Config) Validate() error {
	if err := c.LAN.Validate(); err != nil {
		return fmt.Errorf("lan: %w", err)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %s", c.TickInterval)
	}
	return nil
}
