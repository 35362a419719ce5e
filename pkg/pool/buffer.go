package pool

import (
	"sync"

	"github.com/Soyunomas/lanbeacon/pkg/protocol"
)

// BufferSize define el tamaño fijo de los buffers de recepción.
// Un paquete de descubrimiento nunca supera protocol.MaxPacketSize; lo que
// llegue más largo se trunca y el validador lo rechazará.
const BufferSize = protocol.MaxPacketSize

// Buff es un alias para el array fijo.
// Usamos un array en lugar de un slice para garantizar localidad de memoria
// y evitar la sobrecarga de la estructura header del slice en el pool.
type Buff [BufferSize]byte

var bPool = sync.Pool{
	New: func() interface{} {
		return new(Buff)
	},
}

// Get obtiene un buffer del pool.
func Get() *Buff {
	return bPool.Get().(*Buff)
}

// Put devuelve un buffer al pool.
// No se limpia: el lector siempre usa la longitud recibida.
func Put(b *Buff) {
	bPool.Put(b)
}
