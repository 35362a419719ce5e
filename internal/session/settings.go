package session

import (
	"cmp"
	"slices"
	"strings"

	"github.com/Soyunomas/lanbeacon/pkg/nbo"
)

// AdvertisementType indica por qué canales se publica un ajuste.
type AdvertisementType uint8

const (
	DontAdvertise AdvertisementType = iota
	ViaPingOnly
	ViaOnlineService
	ViaOnlineServiceAndPing
)

func (a AdvertisementType) String() string {
	switch a {
	case DontAdvertise:
		return "dont_advertise"
	case ViaPingOnly:
		return "via_ping_only"
	case ViaOnlineService:
		return "via_online_service"
	case ViaOnlineServiceAndPing:
		return "via_online_service_and_ping"
	default:
		return "unknown"
	}
}

// ParseAdvertisementType acepta los nombres de String().
func ParseAdvertisementType(s string) (AdvertisementType, bool) {
	for a := DontAdvertise; a <= ViaOnlineServiceAndPing; a++ {
		if strings.EqualFold(s, a.String()) {
			return a, true
		}
	}
	return DontAdvertise, false
}

// Setting es un ajuste de sesión con su política de publicación.
type Setting struct {
	Key           string
	Value         nbo.Variant
	Advertisement AdvertisementType
}

// Settings es un mapa de ajustes con claves insensibles a mayúsculas.
// Se conserva la grafía de la última escritura.
type Settings struct {
	m map[string]Setting
}

func foldKey(k string) string {
	return strings.ToLower(k)
}

func (s *Settings) Set(key string, value nbo.Variant, adv AdvertisementType) {
	if s.m == nil {
		s.m = make(map[string]Setting)
	}
	if value == nil {
		value = nbo.Empty{}
	}
	s.m[foldKey(key)] = Setting{Key: key, Value: value, Advertisement: adv}
}

func (s *Settings) Get(key string) (Setting, bool) {
	v, ok := s.m[foldKey(key)]
	return v, ok
}

func (s *Settings) Remove(key string) {
	delete(s.m, foldKey(key))
}

func (s *Settings) Len() int {
	return len(s.m)
}

// All devuelve todos los ajustes ordenados por clave.
func (s *Settings) All() []Setting {
	out := make([]Setting, 0, len(s.m))
	for _, v := range s.m {
		out = append(out, v)
	}
	slices.SortFunc(out, func(a, b Setting) int {
		return cmp.Compare(foldKey(a.Key), foldKey(b.Key))
	})
	return out
}

// Advertised devuelve, ordenados por clave, los ajustes que viajan en la
// respuesta LAN (Advertisement >= ViaPingOnly).
func (s *Settings) Advertised() []Setting {
	all := s.All()
	return slices.DeleteFunc(all, func(v Setting) bool {
		return v.Advertisement < ViaPingOnly
	})
}
