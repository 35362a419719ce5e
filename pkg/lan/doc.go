// Package lan implementa el protocolo de descubrimiento de sesiones en LAN
// sobre broadcast UDP.
//
// Hay dos roles:
//
//   - Host: escucha consultas en el puerto de anuncio y entrega cada consulta
//     válida (con el nonce del cliente) al callback registrado en Host.
//   - Cliente: Search difunde una consulta, entrega cada respuesta válida que
//     refleje su nonce y avisa una vez cuando vence el QueryTimeout.
//
// # Formato de cabecera
//
// Todos los datagramas empiezan con 16 bytes en orden de red:
//
//	Version(1) | Platform(1) | GameID(4) | Tag(2) | Nonce(8)
//
// Las consultas son solo cabecera (exactamente 16 bytes); las respuestas
// llevan al menos un byte de payload. Ver el paquete protocol.
//
// # Modelo de ejecución
//
// Session no tiene goroutines. El llamante invoca Tick periódicamente
// (por ejemplo una vez por frame); Tick vacía el socket sin bloquear,
// valida cada datagrama y llama a los callbacks de forma síncrona. Los
// paquetes inválidos se descartan en silencio.
//
// El socket real lo aporta un SocketProvider (ver netutil.UDPProvider);
// lantest.Network ofrece una LAN simulada en memoria para tests.
package lan
