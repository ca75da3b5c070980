// Package websocket provides the WebSocket transport for chess rooms.
//
// The websocket package implements:
//   - Connection upgrade with a generated connection id and optional display name
//   - A per-connection read pump that decodes actions in arrival order
//   - A per-connection write pump with ping keepalive
//   - Non-blocking targeted and process-wide sends
//
// Architecture:
//
// The Hub keeps a mutex-guarded map of clients keyed by connection id and has
// no run loop. Each client owns a buffered send queue drained by its write
// pump; one queued payload is written as one text frame. A client whose queue
// is full is dropped rather than allowed to stall the sender.
//
// The hub knows nothing about rooms. Decoded actions go to a Handler, which
// is told when a connection opens and when it closes.
//
// Message Protocol:
//
//   - Incoming: {"action": "joinGame", "room": "r1", "name": "ann"}
//   - Incoming: {"action": "move", "room": "r1", "from": 52, "to": 36, "promotion": "q"}
//   - Incoming: {"action": "leave"}
//   - Outgoing: whatever bytes the broadcast layer hands to Send or SendAll
//
// A malformed frame or a handler error is answered with an "error" event to
// that connection only. A panic in the handler is recovered and logged.
//
// Usage:
//
//	hub := websocket.NewHub(logger)
//	hub.SetHandler(handler)
//	router.HandleFunc("/ws", hub.ServeWS)
//
// Connection Lifecycle:
//
// 1. Client connects to /ws?name=<display>
// 2. Connection registered with hub and reported to the handler
// 3. Client sends actions, receives room events
// 4. Read error or close unregisters the client and reports the disconnect
package websocket
