// Package nbo implementa el códec binario en orden de red (big-endian)
// usado por los paquetes de descubrimiento LAN.
//
// Writer y Reader no devuelven errores por operación: mantienen un flag de
// overflow pegajoso. Una vez activado, todas las operaciones siguientes son
// no-ops y el llamante debe consultar HasOverflow antes de usar el resultado.
package nbo

import (
	"encoding/binary"
	"maps"
	"math"
	"slices"
)

// Writer serializa valores sobre un buffer de capacidad fija.
type Writer struct {
	buf      []byte
	n        int
	overflow bool
}

// NewWriter crea un Writer con capacidad fija. La capacidad no crece nunca.
func NewWriter(capacity int) *Writer {
	if capacity < 0 {
		capacity = 0
	}
	return &Writer{buf: make([]byte, capacity)}
}

// reserve comprueba el espacio ANTES de mutar. Si no cabe, marca overflow
// y devuelve nil para que no haya escrituras parciales.
func (w *Writer) reserve(size int) []byte {
	if w.overflow {
		return nil
	}
	if size < 0 || size > len(w.buf)-w.n {
		w.overflow = true
		return nil
	}
	dst := w.buf[w.n : w.n+size]
	w.n += size
	return dst
}

func (w *Writer) WriteUint8(v uint8) *Writer {
	if dst := w.reserve(1); dst != nil {
		dst[0] = v
	}
	return w
}

func (w *Writer) WriteInt32(v int32) *Writer {
	return w.WriteUint32(uint32(v))
}

func (w *Writer) WriteUint32(v uint32) *Writer {
	if dst := w.reserve(4); dst != nil {
		binary.BigEndian.PutUint32(dst, v)
	}
	return w
}

func (w *Writer) WriteInt64(v int64) *Writer {
	return w.WriteUint64(uint64(v))
}

func (w *Writer) WriteUint64(v uint64) *Writer {
	if dst := w.reserve(8); dst != nil {
		binary.BigEndian.PutUint64(dst, v)
	}
	return w
}

// WriteFloat escribe el patrón de 32 bits IEEE-754.
func (w *Writer) WriteFloat(v float32) *Writer {
	return w.WriteUint32(math.Float32bits(v))
}

// WriteDouble escribe el patrón de 64 bits IEEE-754.
func (w *Writer) WriteDouble(v float64) *Writer {
	return w.WriteUint64(math.Float64bits(v))
}

// WriteString escribe un prefijo int32 big-endian con el número de bytes
// UTF-8 seguido de los bytes. Cadena vacía => longitud 0 y nada más.
// Prefijo y datos se reservan juntos: o entra todo o no entra nada.
func (w *Writer) WriteString(s string) *Writer {
	return w.writeSized([]byte(s))
}

// writeSized escribe int32(len(b)) + b de forma atómica.
func (w *Writer) writeSized(b []byte) *Writer {
	if len(b) > math.MaxInt32 {
		w.overflow = true
		return w
	}
	if dst := w.reserve(4 + len(b)); dst != nil {
		binary.BigEndian.PutUint32(dst, uint32(len(b)))
		copy(dst[4:], b)
	}
	return w
}

// WriteGuid escribe los cuatro componentes A, B, C, D en ese orden.
func (w *Writer) WriteGuid(g Guid) *Writer {
	return w.WriteUint32(g.A).WriteUint32(g.B).WriteUint32(g.C).WriteUint32(g.D)
}

// WriteBinary copia bytes en crudo, sin prefijo de longitud.
func (w *Writer) WriteBinary(b []byte) *Writer {
	if dst := w.reserve(len(b)); dst != nil {
		copy(dst, b)
	}
	return w
}

// SkipAhead avanza el cursor sin escribir (reserva hueco para un fixup).
func (w *Writer) SkipAhead(n int) *Writer {
	w.reserve(n)
	return w
}

// WriteVariant escribe el discriminante de 1 byte y después el payload.
func (w *Writer) WriteVariant(v Variant) *Writer {
	if v == nil {
		v = Empty{}
	}
	w.WriteUint8(uint8(v.Type()))
	switch val := v.(type) {
	case Empty:
	case Int32:
		w.WriteInt32(int32(val))
	case UInt32:
		w.WriteUint32(uint32(val))
	case Int64:
		// Int64 viaja como los 64 bits de un UInt64.
		w.WriteUint64(uint64(val))
	case UInt64:
		w.WriteUint64(uint64(val))
	case Float:
		w.WriteFloat(float32(val))
	case Double:
		w.WriteDouble(float64(val))
	case String:
		w.WriteString(string(val))
	case Blob:
		w.writeSized(val)
	case Bool:
		var b uint8
		if val {
			b = 1
		}
		w.WriteUint8(b)
	}
	return w
}

// WriteKeyValueMap escribe el número de entradas y luego clave + valor.
// Las claves se recorren ordenadas para que la salida sea determinista.
func (w *Writer) WriteKeyValueMap(m KeyValueMap) *Writer {
	if len(m) > math.MaxInt32 {
		w.overflow = true
		return w
	}
	w.WriteInt32(int32(len(m)))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		w.WriteString(k)
		w.WriteVariant(m[k])
	}
	return w
}

// Trim recorta el almacenamiento a los bytes escritos.
func (w *Writer) Trim() {
	w.buf = slices.Clip(w.buf[:w.n])
}

// Bytes devuelve la parte escrita del buffer (sin copia).
func (w *Writer) Bytes() []byte {
	return w.buf[:w.n]
}

// Len es el número de bytes escritos.
func (w *Writer) Len() int {
	return w.n
}

// Cap es la capacidad total del buffer.
func (w *Writer) Cap() int {
	return len(w.buf)
}

func (w *Writer) HasOverflow() bool {
	return w.overflow
}
