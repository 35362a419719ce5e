package nbo

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
)

// Guid son 128 bits expresados como cuatro uint32.
// En el cable se escriben A, B, C, D por separado (no como bloque de 16 bytes).
type Guid struct {
	A, B, C, D uint32
}

// NewGuid genera un Guid aleatorio (UUID v4).
func NewGuid() Guid {
	return GuidFromUUID(uuid.New())
}

// GuidFromUUID interpreta los 16 bytes del UUID como cuatro uint32 big-endian.
func GuidFromUUID(u uuid.UUID) Guid {
	return Guid{
		A: binary.BigEndian.Uint32(u[0:4]),
		B: binary.BigEndian.Uint32(u[4:8]),
		C: binary.BigEndian.Uint32(u[8:12]),
		D: binary.BigEndian.Uint32(u[12:16]),
	}
}

// UUID es la operación inversa de GuidFromUUID.
func (g Guid) UUID() uuid.UUID {
	var u uuid.UUID
	binary.BigEndian.PutUint32(u[0:4], g.A)
	binary.BigEndian.PutUint32(u[4:8], g.B)
	binary.BigEndian.PutUint32(u[8:12], g.C)
	binary.BigEndian.PutUint32(u[12:16], g.D)
	return u
}

// IsValid devuelve false para el Guid cero.
func (g Guid) IsValid() bool {
	return (g.A | g.B | g.C | g.D) != 0
}

func (g Guid) String() string {
	return fmt.Sprintf("%08X%08X%08X%08X", g.A, g.B, g.C, g.D)
}
