package engine

import (
	"log/slog"
	"time"

	"github.com/Soyunomas/lanbeacon/internal/session"
	"github.com/Soyunomas/lanbeacon/pkg/lan"
	"github.com/Soyunomas/lanbeacon/pkg/nbo"
)

// responder contesta cada consulta válida con el anuncio ya codificado.
type responder struct {
	s       *lan.Session
	payload []byte
	log     *slog.Logger
	answers int
}

func (r *responder) onQuery(_ []byte, clientNonce uint64) {
	pkt, err := r.s.CreateHostResponsePacket(clientNonce, r.payload)
	if err != nil {
		r.log.Warn("⚠️ No se pudo construir la respuesta", "err", err)
		return
	}
	if err := r.s.BroadcastPacket(pkt); err != nil {
		r.log.Warn("⚠️ Fallo enviando respuesta", "nonce", clientNonce, "err", err)
		return
	}
	r.answers++
	r.log.Debug("📣 Consulta respondida", "nonce", clientNonce, "bytes", len(pkt))
}

// collector acumula las respuestas de una búsqueda, una por SessionID.
type collector struct {
	start    time.Time
	log      *slog.Logger
	seen     map[nbo.Guid]struct{}
	results  []session.Result
	timedOut bool
}

func newCollector(log *slog.Logger) *collector {
	return &collector{
		start: time.Now(),
		log:   log,
		seen:  make(map[nbo.Guid]struct{}),
	}
}

func (c *collector) onResponse(payload []byte) {
	adv, err := session.Decode(nbo.NewReader(payload))
	if err != nil {
		c.log.Debug("❌ Anuncio inválido descartado", "err", err)
		return
	}
	if _, dup := c.seen[adv.SessionID]; dup {
		return
	}
	c.seen[adv.SessionID] = struct{}{}

	res := session.Result{Advertisement: adv, Ping: time.Since(c.start)}
	c.results = append(c.results, res)
	c.log.Info("🔗 Sesión encontrada",
		"id", adv.SessionID,
		"owner", adv.OwnerName,
		"host", adv.HostAddr,
		"ping", res.Ping.Round(time.Millisecond))
}

func (c *collector) onTimeout() {
	c.timedOut = true
}
