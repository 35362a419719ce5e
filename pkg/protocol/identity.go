package protocol

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/blake2s"
)

var littleEndian = binary.NativeEndian.Uint16([]byte{1, 0}) == 1

// LocalPlatform es el byte de plataforma que anunciamos: 1 en máquinas
// little-endian, 0 en big-endian. El receptor lo cruza con su máscara.
func LocalPlatform() uint8 {
	if littleEndian {
		return 1
	}
	return 0
}

// NewNonce genera un nonce aleatorio de 64 bits para una búsqueda.
func NewNonce() (uint64, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("nonce: %w", err)
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

// GameIDFromName deriva un GameID estable a partir del nombre del título
// (primeros 4 bytes de BLAKE2s-256). Dos builds del mismo juego obtienen el
// mismo id sin tener que coordinar un número a mano.
func GameIDFromName(name string) int32 {
	sum := blake2s.Sum256([]byte(name))
	return int32(binary.BigEndian.Uint32(sum[:4]))
}
