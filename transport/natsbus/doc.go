// Package natsbus mirrors room-wide chess events onto NATS.
//
// A Publisher implements the broadcast tap: every message the coordinator
// sends to a whole room is also published, byte for byte, on the subject
// chess.rooms.<room>.<event>. Room IDs are free text, so separator and
// wildcard characters are replaced with underscores. Unicast messages such
// as invalidMove never reach the bus.
//
// The tap is optional and fire-and-forget; the websocket clients remain the
// source of truth for players.
package natsbus
