// Package service provides the room orchestration layer for the chess server.
//
// The service package implements:
//   - Connection bookkeeping and process-wide user lists
//   - Joining and leaving rooms, including switching rooms
//   - Move submission on behalf of a connection
//   - Read-only room inspection for REST and MCP
//   - Saving start-position presets and reloading them from disk
//
// Core Interfaces:
//
// RoomService is the interface every transport uses. Its implementation
// depends on narrow interfaces: SessionStore (session.Manager),
// ConnectionRegistry (registry.Registry), Coordinator (broadcast.Coordinator)
// and ConfigStore (config.Manager).
//
// Architecture:
//
// Membership changes run inside the target session's lock through
// Session.Attach and Session.Detach, so a join, a leave and a move in the
// same room are observed by every member in one order. When the last member
// leaves, the registry drops the session; a join that races with the drop
// retries against a fresh session.
//
// Move rejections are delivered to the proposer by the coordinator and are
// also returned as errors wrapping the session sentinels. RejectionReason maps
// them to the wire reason codes.
//
// Usage:
//
//	svc := service.NewRoomService(manager, reg, coord, rules, configs, logger)
//	state, err := svc.Join(ctx, connID, "r1", "ann")
//	state, err = svc.Move(ctx, connID, service.MoveRequest{From: 52, To: 36})
package service
