package session

import (
	"errors"
	"fmt"
	"net/netip"
	"time"

	"github.com/Soyunomas/lanbeacon/pkg/nbo"
	"github.com/Soyunomas/lanbeacon/pkg/netutil"
)

var ErrMalformed = errors.New("malformed session advertisement")

// Mínimo en el cable por ajuste: longitud de clave (4) + discriminante (1).
const minSettingSize = 5

// Advertisement es lo que un host publica en el payload de sus respuestas.
//
// Formato (orden de red):
//
//	SessionID(16) | OwnerName(str) | HostIP(4) | HostPort(4) | BuildID(4) |
//	NumPublic(4) | NumOpenPublic(4) | NumPrivate(4) | NumOpenPrivate(4) |
//	SettingCount(4) | { Key(str) | Value(variant) }*
type Advertisement struct {
	SessionID nbo.Guid
	OwnerName string
	HostAddr  netip.AddrPort
	BuildID   int32

	NumPublicConnections      int32
	NumOpenPublicConnections  int32
	NumPrivateConnections     int32
	NumOpenPrivateConnections int32

	Settings Settings
}

// NewAdvertisement crea un anuncio con un SessionID nuevo y todas las
// plazas públicas libres.
func NewAdvertisement(owner string, host netip.AddrPort, buildID, publicConnections int32) *Advertisement {
	return &Advertisement{
		SessionID:                nbo.NewGuid(),
		OwnerName:                owner,
		HostAddr:                 host,
		BuildID:                  buildID,
		NumPublicConnections:     publicConnections,
		NumOpenPublicConnections: publicConnections,
	}
}

// Encode escribe el anuncio en w. Solo se incluyen los ajustes publicables
// por ping. Si no cabe, w queda marcado con overflow.
func (a *Advertisement) Encode(w *nbo.Writer) {
	w.WriteGuid(a.SessionID).
		WriteString(a.OwnerName).
		WriteUint32(netutil.IPToUint32(a.HostAddr.Addr())).
		WriteInt32(int32(a.HostAddr.Port())).
		WriteInt32(a.BuildID).
		WriteInt32(a.NumPublicConnections).
		WriteInt32(a.NumOpenPublicConnections).
		WriteInt32(a.NumPrivateConnections).
		WriteInt32(a.NumOpenPrivateConnections)

	settings := a.Settings.Advertised()
	w.WriteInt32(int32(len(settings)))
	for _, s := range settings {
		w.WriteString(s.Key).WriteVariant(s.Value)
	}
}

// Decode lee un anuncio de r.
func Decode(r *nbo.Reader) (*Advertisement, error) {
	a := &Advertisement{
		SessionID: r.ReadGuid(),
		OwnerName: r.ReadString(),
	}
	ip := netutil.Uint32ToIP(r.ReadUint32())
	port := r.ReadInt32()
	a.BuildID = r.ReadInt32()
	a.NumPublicConnections = r.ReadInt32()
	a.NumOpenPublicConnections = r.ReadInt32()
	a.NumPrivateConnections = r.ReadInt32()
	a.NumOpenPrivateConnections = r.ReadInt32()
	count := r.ReadInt32()

	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if port < 0 || port > 0xFFFF {
		return nil, fmt.Errorf("%w: port %d", ErrMalformed, port)
	}
	if count < 0 || int64(count)*minSettingSize > int64(r.Available()) {
		return nil, fmt.Errorf("%w: %d settings in %d bytes", ErrMalformed, count, r.Available())
	}
	a.HostAddr = netip.AddrPortFrom(ip, uint16(port))

	for range count {
		key := r.ReadString()
		value := r.ReadVariant()
		if err := r.Err(); err != nil {
			return nil, fmt.Errorf("%w: setting %q: %w", ErrMalformed, key, err)
		}
		a.Settings.Set(key, value, ViaPingOnly)
	}
	return a, nil
}

// Result es una sesión encontrada por una búsqueda.
type Result struct {
	Advertisement *Advertisement
	// Ping es el tiempo desde el envío de la consulta hasta la respuesta.
	Ping time.Duration
}
