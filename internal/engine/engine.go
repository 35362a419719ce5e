package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Soyunomas/lanbeacon/internal/session"
	"github.com/Soyunomas/lanbeacon/pkg/lan"
	"github.com/Soyunomas/lanbeacon/pkg/nbo"
	"github.com/Soyunomas/lanbeacon/pkg/protocol"
)

// Engine conduce sesiones LAN con un ticker real. Cada Host o Search usa
// su propia lan.Session, así que un proceso puede anunciar y buscar a la
// vez (ambos sockets comparten puerto gracias a SO_REUSEPORT).
type Engine struct {
	cfg      Config
	provider lan.SocketProvider
	log      *slog.Logger
	metrics  *lan.Metrics
}

func New(cfg Config, provider lan.SocketProvider, log *slog.Logger, metrics *lan.Metrics) (*Engine, error) {
	if cfg.TickInterval == 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, ErrNilProvider
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		cfg:      cfg,
		provider: provider,
		log:      log,
		metrics:  metrics,
	}, nil
}

func (e *Engine) newSession() *lan.Session {
	return lan.NewSession(e.cfg.LAN, e.provider,
		lan.WithLogger(e.log),
		lan.WithMetrics(e.metrics),
	)
}

// Host anuncia adv en la LAN hasta que ctx se cancele.
// Devuelve nil al cancelar el contexto.
func (e *Engine) Host(ctx context.Context, adv *session.Advertisement) error {
	if adv == nil {
		return ErrNilAdvertisement
	}
	w := nbo.NewWriter(protocol.MaxPacketSize - protocol.HeaderSize)
	adv.Encode(w)
	if w.HasOverflow() {
		return ErrAdvertisementTooLarge
	}
	w.Trim()

	s := e.newSession()
	r := &responder{s: s, payload: w.Bytes(), log: e.log}
	if err := s.Host(r.onQuery); err != nil {
		return err
	}
	defer s.Stop()

	e.log.Info("🚀 Anunciando sesión en LAN",
		"id", adv.SessionID,
		"owner", adv.OwnerName,
		"port", e.cfg.LAN.AnnouncePort,
		"game_id", e.cfg.LAN.GameID,
		"payload_bytes", len(r.payload))

	_ = e.tickLoop(ctx, s, nil)

	e.log.Info("🛑 Anuncio detenido", "respuestas", r.answers)
	return nil
}

// Search difunde una consulta con un nonce nuevo y recoge respuestas hasta
// que vence el QueryTimeout. Si ctx se cancela antes, devuelve lo recogido
// junto con ctx.Err().
func (e *Engine) Search(ctx context.Context) ([]session.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	nonce, err := protocol.NewNonce()
	if err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}

	s := e.newSession()
	query, err := s.CreateClientQueryPacket(nonce)
	if err != nil {
		return nil, err
	}

	c := newCollector(e.log)
	if err := s.Search(query, c.onResponse, c.onTimeout); err != nil {
		return nil, err
	}
	defer s.Stop()

	e.log.Info("🔍 Buscando sesiones en LAN",
		"port", e.cfg.LAN.AnnouncePort,
		"game_id", e.cfg.LAN.GameID,
		"timeout", e.cfg.LAN.QueryTimeout)

	err = e.tickLoop(ctx, s, func() bool { return c.timedOut })

	e.log.Info("🏁 Búsqueda terminada", "sesiones", len(c.results))
	return c.results, err
}

// tickLoop llama a s.Tick con el tiempo real transcurrido hasta que ctx se
// cancele (devuelve ctx.Err()) o done sea cierto tras un tick (devuelve nil).
func (e *Engine) tickLoop(ctx context.Context, s *lan.Session, done func() bool) error {
	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			s.Tick(now.Sub(last))
			last = now
			if done != nil && done() {
				return nil
			}
		}
	}
}
