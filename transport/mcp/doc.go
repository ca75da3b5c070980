// Package mcp exposes a read-only Model Context Protocol view of the chess room server.
//
// The Client is a thin proxy: every tool calls the REST API and renders the
// response as text, so an MCP session never holds room state and never moves
// pieces. Games are played over the websocket transport only.
//
// MCP Tools:
//   - list_rooms: live rooms with player count, status and side to move
//   - get_room: one room's board drawn with white at the bottom, plus FEN and last move
//   - legal_moves: target squares for the piece on a square (index or algebraic)
//   - list_users: names of connected users
//   - list_configs: start-position presets
//
// Transport Modes:
//
// The server binary mounts the MCP server at POST /mcp and also offers an
// "mcp" subcommand that serves it over stdio against a running API.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
