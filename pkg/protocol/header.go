package protocol

import (
	"time"

	"github.com/Soyunomas/lanbeacon/pkg/nbo"
)

// Constantes de tamaño y valores por defecto
const (
	HeaderSize    = 16  // 1 Version + 1 Platform + 4 GameID + 2 Tag + 8 Nonce
	MaxPacketSize = 512 // Tamaño máximo de un paquete de descubrimiento

	PacketVersion       uint8 = 1
	DefaultAnnouncePort       = 14001
	DefaultQueryTimeout       = 5 * time.Second
	DefaultPlatformMask uint8 = 0xFF
)

// Etiquetas de tipo de paquete (2 bytes)
var (
	QueryTag    = [2]byte{'S', 'Q'} // Cliente -> broadcast (¿hay partidas?)
	ResponseTag = [2]byte{'S', 'R'} // Host -> cliente (esta es la mía)
)

// Params sustituye a la configuración global del motor: versión, juego y
// máscara de plataforma que ambos extremos deben compartir.
type Params struct {
	Version      uint8
	GameID       int32
	PlatformMask uint8
}

// DefaultParams devuelve unos parámetros con la versión y máscara por defecto.
func DefaultParams(gameID int32) Params {
	return Params{
		Version:      PacketVersion,
		GameID:       gameID,
		PlatformMask: DefaultPlatformMask,
	}
}

// CreateClientQueryHeader escribe la cabecera de una consulta de búsqueda.
func CreateClientQueryHeader(w *nbo.Writer, p Params, nonce uint64) {
	writeHeader(w, p, QueryTag, nonce)
}

// CreateHostResponseHeader escribe la cabecera de una respuesta del host,
// reflejando el nonce del cliente.
func CreateHostResponseHeader(w *nbo.Writer, p Params, clientNonce uint64) {
	writeHeader(w, p, ResponseTag, clientNonce)
}

func writeHeader(w *nbo.Writer, p Params, tag [2]byte, nonce uint64) {
	w.WriteUint8(p.Version).
		WriteUint8(LocalPlatform()).
		WriteInt32(p.GameID).
		WriteUint8(tag[0]).
		WriteUint8(tag[1]).
		WriteUint64(nonce)
}

// IsValidQueryPacket valida una consulta. Las consultas son solo cabecera,
// así que la longitud debe ser exactamente HeaderSize.
// Devuelve el nonce del cliente; en caso de rechazo devuelve (0, false).
func IsValidQueryPacket(pkt []byte, p Params) (clientNonce uint64, ok bool) {
	if len(pkt) != HeaderSize {
		return 0, false
	}
	return validateHeader(pkt, p, QueryTag)
}

// IsValidResponsePacket valida una respuesta: debe traer al menos un byte
// de payload y el nonce tiene que ser el de nuestra búsqueda en curso.
func IsValidResponsePacket(pkt []byte, p Params, expectedNonce uint64) bool {
	if len(pkt) <= HeaderSize {
		return false
	}
	nonce, ok := validateHeader(pkt, p, ResponseTag)
	return ok && nonce == expectedNonce
}

// validateHeader decodifica los campos en orden estricto y corta en el
// primer fallo. Nada de errores: el tráfico ajeno se descarta en silencio.
func validateHeader(pkt []byte, p Params, tag [2]byte) (uint64, bool) {
	r := nbo.NewReader(pkt)

	if r.ReadUint8() != p.Version || r.HasOverflow() {
		return 0, false
	}
	if r.ReadUint8()&p.PlatformMask == 0 || r.HasOverflow() {
		return 0, false
	}
	if r.ReadInt32() != p.GameID || r.HasOverflow() {
		return 0, false
	}
	if r.ReadUint8() != tag[0] || r.ReadUint8() != tag[1] || r.HasOverflow() {
		return 0, false
	}
	nonce := r.ReadUint64()
	if r.HasOverflow() {
		return 0, false
	}
	return nonce, true
}

// Payload devuelve los bytes que siguen a la cabecera (vista sin copia).
func Payload(pkt []byte) []byte {
	if len(pkt) < HeaderSize {
		return nil
	}
	return pkt[HeaderSize:]
}
