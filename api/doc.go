// Package api exposes the chess room server over HTTP.
//
// The api package implements:
//   - Read-only REST endpoints for inspecting rooms, users and presets
//   - The websocket endpoint and the SocketHandler that maps client actions
//     onto the room service
//
// Endpoints:
//
//   - GET /api/health - Liveness plus room and connection counts
//   - GET /api/rooms - List live rooms
//   - GET /api/rooms/{id} - One room with its state and board
//   - GET /api/rooms/{id}/moves?from=e2 - Legal target squares for a piece
//   - GET /api/users - Names of connected users
//   - GET /api/configs - Start-position presets
//   - GET /ws?name=ann - Websocket upgrade
//
// Websocket Actions:
//
//	{"action": "joinGame", "room": "r1", "name": "ann"}
//	{"action": "move", "room": "r1", "from": 52, "to": 36, "promotion": "q"}
//	{"action": "leave"}
//
// Every outbound frame is {"room": ..., "event": ..., "data": ...}. Errors
// from REST handlers are returned as {"error": "message"}.
package api
