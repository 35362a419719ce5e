package lan

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Soyunomas/lanbeacon/pkg/nbo"
	"github.com/Soyunomas/lanbeacon/pkg/pool"
	"github.com/Soyunomas/lanbeacon/pkg/protocol"
)

var (
	ErrInvalidQuery   = errors.New("query packet is not a valid query header for this session")
	ErrPacketTooLarge = errors.New("packet exceeds max beacon packet size")
)

// State es el estado del beacon de la sesión.
type State uint8

const (
	StateNotUsingLanBeacon State = iota
	StateHosting
	StateSearching
)

func (s State) String() string {
	switch s {
	case StateNotUsingLanBeacon:
		return "not_using_lan_beacon"
	case StateHosting:
		return "hosting"
	case StateSearching:
		return "searching"
	default:
		return "unknown"
	}
}

// Callbacks invocados de forma síncrona dentro de Tick.
// El slice payload apunta al buffer de recepción: solo es válido durante
// la llamada, hay que copiarlo si se quiere conservar.
type (
	QueryFunc    func(payload []byte, clientNonce uint64)
	ResponseFunc func(payload []byte)
	TimeoutFunc  func()
)

// Option configura una Session.
type Option func(*Session)

// WithLogger fija el logger (por defecto se descarta todo).
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics fija los contadores Prometheus.
func WithMetrics(m *Metrics) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

// Session es la máquina de estados del descubrimiento LAN.
//
// No tiene hilos ni timers propios: todo ocurre dentro de Tick, que el
// llamante debe invocar con regularidad. No es segura para uso concurrente.
type Session struct {
	cfg      Config
	params   protocol.Params
	provider SocketProvider
	log      *slog.Logger
	metrics  *Metrics

	state  State
	beacon *beacon

	// Solo significativos mientras state == StateSearching.
	nonce     uint64
	remaining time.Duration
	timedOut  bool

	onQuery    []QueryFunc
	onResponse []ResponseFunc
	onTimeout  []TimeoutFunc
}

// NewSession crea una sesión sin beacon (StateNotUsingLanBeacon).
func NewSession(cfg Config, provider SocketProvider, opts ...Option) *Session {
	s := &Session{
		cfg:      cfg,
		params:   cfg.Params(),
		provider: provider,
		log:      slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Host empieza a escuchar consultas en el puerto de anuncio.
// Si ya había un beacon activo se para primero.
func (s *Session) Host(onQuery QueryFunc) error {
	s.Stop()

	b, err := newBeacon(s.provider, s.cfg.AnnouncePort, s.log)
	if err != nil {
		return fmt.Errorf("lan host: %w", err)
	}

	s.beacon = b
	if onQuery != nil {
		s.onQuery = append(s.onQuery, onQuery)
	}
	s.state = StateHosting
	return nil
}

// Search difunde la consulta ya codificada y empieza a recoger respuestas.
// El nonce de la consulta pasa a ser el LanNonce de la búsqueda: solo se
// aceptan respuestas que lo reflejen.
func (s *Session) Search(query []byte, onResponse ResponseFunc, onTimeout TimeoutFunc) error {
	s.Stop()

	nonce, ok := protocol.IsValidQueryPacket(query, s.params)
	if !ok {
		return ErrInvalidQuery
	}

	b, err := newBeacon(s.provider, s.cfg.AnnouncePort, s.log)
	if err != nil {
		return fmt.Errorf("lan search: %w", err)
	}

	if err := b.broadcast(query); err != nil {
		s.metrics.sent(false)
		b.close()
		return fmt.Errorf("lan search: %w", err)
	}
	s.metrics.sent(true)

	s.beacon = b
	s.nonce = nonce
	if onResponse != nil {
		s.onResponse = append(s.onResponse, onResponse)
	}
	if onTimeout != nil {
		s.onTimeout = append(s.onTimeout, onTimeout)
	}
	s.state = StateSearching
	s.remaining = s.cfg.QueryTimeout
	s.timedOut = false
	return nil
}

// Stop cierra el beacon, olvida todos los callbacks y vuelve a
// StateNotUsingLanBeacon. Es idempotente.
func (s *Session) Stop() {
	if s.beacon != nil {
		s.beacon.close()
		s.beacon = nil
	}
	s.state = StateNotUsingLanBeacon
	s.nonce = 0
	s.remaining = 0
	s.timedOut = false
	s.onQuery = nil
	s.onResponse = nil
	s.onTimeout = nil
}

// BroadcastPacket envía un paquete crudo por el beacon.
func (s *Session) BroadcastPacket(pkt []byte) error {
	if s.beacon == nil {
		return ErrNoBeacon
	}
	err := s.beacon.broadcast(pkt)
	s.metrics.sent(err == nil)
	if err != nil {
		s.log.Debug("LAN beacon: fallo en broadcast", "err", err)
	}
	return err
}

// Tick vacía todos los datagramas pendientes y, si estamos buscando,
// descuenta dt del tiempo restante. El timeout se dispara una sola vez por
// búsqueda; la sesión sigue en StateSearching hasta que se llame a Stop.
func (s *Session) Tick(dt time.Duration) {
	if s.state == StateNotUsingLanBeacon || s.beacon == nil {
		return
	}
	b := s.beacon

	buf := pool.Get()
	defer pool.Put(buf)

	for {
		n, _ := b.receive(buf[:])
		if n <= 0 {
			break
		}
		if n > len(buf) {
			n = len(buf)
		}
		s.metrics.datagram(s.state)
		s.dispatch(b, buf[:n])

		// Un callback ha parado o reiniciado la sesión.
		if s.beacon != b {
			return
		}
	}

	if s.state != StateSearching || s.timedOut {
		return
	}
	s.remaining -= dt
	if s.remaining > 0 {
		return
	}
	s.timedOut = true
	s.metrics.timeout()
	s.log.Debug("LAN search timeout", "nonce", s.nonce)
	for _, fn := range s.onTimeout {
		fn()
		if s.beacon != b {
			return
		}
	}
}

// dispatch valida el datagrama según el rol actual. Lo inválido se tira
// sin más: el tráfico ajeno en la LAN es normal y no es un error.
func (s *Session) dispatch(b *beacon, pkt []byte) {
	switch s.state {
	case StateHosting:
		nonce, ok := protocol.IsValidQueryPacket(pkt, s.params)
		s.metrics.validated("query", ok)
		if !ok {
			return
		}
		payload := protocol.Payload(pkt)
		for _, fn := range s.onQuery {
			fn(payload, nonce)
			if s.beacon != b {
				return
			}
		}

	case StateSearching:
		ok := protocol.IsValidResponsePacket(pkt, s.params, s.nonce)
		s.metrics.validated("response", ok)
		if !ok {
			return
		}
		payload := protocol.Payload(pkt)
		for _, fn := range s.onResponse {
			fn(payload)
			if s.beacon != b {
				return
			}
		}
	}
}

// CreateClientQueryPacket construye una consulta (solo cabecera) con el
// nonce dado, lista para pasar a Search.
func (s *Session) CreateClientQueryPacket(nonce uint64) ([]byte, error) {
	w := nbo.NewWriter(protocol.HeaderSize)
	protocol.CreateClientQueryHeader(w, s.params, nonce)
	if w.HasOverflow() {
		return nil, ErrPacketTooLarge
	}
	return w.Bytes(), nil
}

// CreateHostResponsePacket construye una respuesta: cabecera con el nonce
// del cliente seguida del payload.
func (s *Session) CreateHostResponsePacket(clientNonce uint64, payload []byte) ([]byte, error) {
	w := nbo.NewWriter(protocol.MaxPacketSize)
	protocol.CreateHostResponseHeader(w, s.params, clientNonce)
	w.WriteBinary(payload)
	if w.HasOverflow() {
		return nil, ErrPacketTooLarge
	}
	w.Trim()
	return w.Bytes(), nil
}

// State devuelve el estado actual.
func (s *Session) State() State {
	return s.state
}

// Nonce devuelve el LanNonce de la búsqueda en curso (0 si no se busca).
func (s *Session) Nonce() uint64 {
	return s.nonce
}

// RemainingQueryTime devuelve lo que queda de la búsqueda en curso.
func (s *Session) RemainingQueryTime() time.Duration {
	return s.remaining
}

func (s *Session) Config() Config {
	return s.cfg
}

func (s *Session) Params() protocol.Params {
	return s.params
}
