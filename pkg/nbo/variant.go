package nbo

import (
	"fmt"
	"strconv"
)

// VariantType es el discriminante que viaja en el primer byte de un Variant.
type VariantType uint8

// Valores del discriminante en el cable. El orden es parte del protocolo.
const (
	TypeEmpty VariantType = iota
	TypeInt32
	TypeUInt32
	TypeInt64
	TypeUInt64
	TypeDouble
	TypeString
	TypeFloat
	TypeBlob
	TypeBool
)

func (t VariantType) String() string {
	switch t {
	case TypeEmpty:
		return "Empty"
	case TypeInt32:
		return "Int32"
	case TypeUInt32:
		return "UInt32"
	case TypeInt64:
		return "Int64"
	case TypeUInt64:
		return "UInt64"
	case TypeDouble:
		return "Double"
	case TypeString:
		return "String"
	case TypeFloat:
		return "Float"
	case TypeBlob:
		return "Blob"
	case TypeBool:
		return "Bool"
	default:
		return "Unknown(" + strconv.Itoa(int(t)) + ")"
	}
}

// Variant es un valor etiquetado de un mapa clave/valor.
// Es una interfaz sellada: solo los tipos de este paquete la implementan,
// así el tipo concreto ES el discriminante y no pueden desincronizarse.
type Variant interface {
	Type() VariantType
	fmt.Stringer
	sealed()
}

type (
	Empty  struct{}
	Int32  int32
	UInt32 uint32
	Int64  int64
	UInt64 uint64
	Float  float32
	Double float64
	String string
	Blob   []byte
	Bool   bool
)

func (Empty) Type() VariantType  { return TypeEmpty }
func (Int32) Type() VariantType  { return TypeInt32 }
func (UInt32) Type() VariantType { return TypeUInt32 }
func (Int64) Type() VariantType  { return TypeInt64 }
func (UInt64) Type() VariantType { return TypeUInt64 }
func (Float) Type() VariantType  { return TypeFloat }
func (Double) Type() VariantType { return TypeDouble }
func (String) Type() VariantType { return TypeString }
func (Blob) Type() VariantType   { return TypeBlob }
func (Bool) Type() VariantType   { return TypeBool }

func (Empty) sealed()  {}
func (Int32) sealed()  {}
func (UInt32) sealed() {}
func (Int64) sealed()  {}
func (UInt64) sealed() {}
func (Float) sealed()  {}
func (Double) sealed() {}
func (String) sealed() {}
func (Blob) sealed()   {}
func (Bool) sealed()   {}

func (Empty) String() string    { return "" }
func (v Int32) String() string  { return strconv.FormatInt(int64(v), 10) }
func (v UInt32) String() string { return strconv.FormatUint(uint64(v), 10) }
func (v Int64) String() string  { return strconv.FormatInt(int64(v), 10) }
func (v UInt64) String() string { return strconv.FormatUint(uint64(v), 10) }
func (v Float) String() string  { return strconv.FormatFloat(float64(v), 'g', -1, 32) }
func (v Double) String() string { return strconv.FormatFloat(float64(v), 'g', -1, 64) }
func (v String) String() string { return string(v) }
func (v Blob) String() string   { return fmt.Sprintf("%d byte(s)", len(v)) }
func (v Bool) String() string   { return strconv.FormatBool(bool(v)) }

// KeyValueMap es el mapa clave -> Variant tal y como viaja en el cable.
type KeyValueMap map[string]Variant
