package nbo

import (
	"encoding/binary"
	"errors"
	"math"
)

var (
	ErrOverflow           = errors.New("nbo: read past end of buffer")
	ErrUnsupportedVariant = errors.New("nbo: unsupported variant type")
)

// minEntrySize: clave vacía (4) + discriminante (1).
const minEntrySize = 5

// Reader deserializa sobre un slice prestado. No copia el buffer de origen.
type Reader struct {
	buf      []byte
	pos      int
	overflow bool
	err      error
}

func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// fail marca el Reader como fallido de forma pegajosa.
// Solo se conserva el primer error.
func (r *Reader) fail(err error) {
	if err == ErrOverflow {
		r.overflow = true
	}
	if r.err == nil {
		r.err = err
	}
}

// take valida los límites ANTES de leer. Devuelve nil si no hay suficientes
// bytes o si el Reader ya falló.
func (r *Reader) take(size int) []byte {
	if r.err != nil {
		return nil
	}
	if size < 0 || size > len(r.buf)-r.pos {
		r.fail(ErrOverflow)
		return nil
	}
	src := r.buf[r.pos : r.pos+size]
	r.pos += size
	return src
}

func (r *Reader) ReadUint8() uint8 {
	if src := r.take(1); src != nil {
		return src[0]
	}
	return 0
}

func (r *Reader) ReadInt32() int32 {
	return int32(r.ReadUint32())
}

func (r *Reader) ReadUint32() uint32 {
	if src := r.take(4); src != nil {
		return binary.BigEndian.Uint32(src)
	}
	return 0
}

func (r *Reader) ReadInt64() int64 {
	return int64(r.ReadUint64())
}

func (r *Reader) ReadUint64() uint64 {
	if src := r.take(8); src != nil {
		return binary.BigEndian.Uint64(src)
	}
	return 0
}

func (r *Reader) ReadFloat() float32 {
	return math.Float32frombits(r.ReadUint32())
}

func (r *Reader) ReadDouble() float64 {
	return math.Float64frombits(r.ReadUint64())
}

// readSized lee int32 de longitud + bytes. La longitud se valida contra lo
// que queda en el buffer antes de copiar nada.
func (r *Reader) readSized() []byte {
	n := r.ReadInt32()
	if r.err != nil {
		return nil
	}
	if n < 0 || int64(n) > int64(r.Available()) {
		r.fail(ErrOverflow)
		return nil
	}
	if n == 0 {
		return []byte{}
	}
	src := r.take(int(n))
	out := make([]byte, len(src))
	copy(out, src)
	return out
}

// ReadString lee una cadena con prefijo de longitud. Longitud 0 => "".
func (r *Reader) ReadString() string {
	return string(r.readSized())
}

func (r *Reader) ReadGuid() Guid {
	var g Guid
	g.A = r.ReadUint32()
	g.B = r.ReadUint32()
	g.C = r.ReadUint32()
	g.D = r.ReadUint32()
	if r.err != nil {
		return Guid{}
	}
	return g
}

// ReadBinary copia len(dst) bytes en crudo. Si no hay suficientes, dst no
// se toca y se activa el overflow.
func (r *Reader) ReadBinary(dst []byte) {
	if src := r.take(len(dst)); src != nil {
		copy(dst, src)
	}
}

// ReadVariant lee el discriminante y el payload correspondiente.
// Un discriminante desconocido es un error de decodificación recuperable:
// el contenido viene de la red y no es de fiar.
func (r *Reader) ReadVariant() Variant {
	t := VariantType(r.ReadUint8())
	if r.err != nil {
		return nil
	}
	var v Variant
	switch t {
	case TypeEmpty:
		v = Empty{}
	case TypeInt32:
		v = Int32(r.ReadInt32())
	case TypeUInt32:
		v = UInt32(r.ReadUint32())
	case TypeInt64:
		v = Int64(r.ReadUint64())
	case TypeUInt64:
		v = UInt64(r.ReadUint64())
	case TypeFloat:
		v = Float(r.ReadFloat())
	case TypeDouble:
		v = Double(r.ReadDouble())
	case TypeString:
		v = String(r.ReadString())
	case TypeBlob:
		v = Blob(r.readSized())
	case TypeBool:
		v = Bool(r.ReadUint8() != 0)
	default:
		r.fail(ErrUnsupportedVariant)
		return nil
	}
	if r.err != nil {
		return nil
	}
	return v
}

// ReadKeyValueMap lee el número de entradas y las añade a dst.
// El contador se valida contra los bytes restantes para que un paquete
// malicioso no nos haga iterar millones de veces.
func (r *Reader) ReadKeyValueMap(dst KeyValueMap) {
	count := r.ReadInt32()
	if r.err != nil {
		return
	}
	if count < 0 || int64(count)*minEntrySize > int64(r.Available()) {
		r.fail(ErrOverflow)
		return
	}
	for i := int32(0); i < count; i++ {
		k := r.ReadString()
		v := r.ReadVariant()
		if r.err != nil {
			return
		}
		dst[k] = v
	}
}

// SeekTo coloca el cursor en pos. Una posición inválida activa el overflow.
func (r *Reader) SeekTo(pos int) {
	if r.err != nil {
		return
	}
	if pos < 0 || pos > len(r.buf) {
		r.fail(ErrOverflow)
		return
	}
	r.pos = pos
}

// Tell devuelve la posición actual del cursor.
func (r *Reader) Tell() int {
	return r.pos
}

// Available es el número de bytes que quedan por leer.
func (r *Reader) Available() int {
	return len(r.buf) - r.pos
}

func (r *Reader) HasOverflow() bool {
	return r.overflow
}

// Err devuelve el primer fallo (ErrOverflow o ErrUnsupportedVariant).
func (r *Reader) Err() error {
	return r.err
}
