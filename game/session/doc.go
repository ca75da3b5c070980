// Package session holds the authoritative game for every room.
//
// The session package implements:
//   - The session store (Manager) mapping room IDs to exactly one Session
//   - Move application against the rules engine with atomic state updates
//   - Ordered publication of join, move, rejection, game over and leave events
//   - Optional JSON snapshots of ongoing games through SessionPersistence
//
// Core Types:
//
// Manager creates sessions lazily on first join, drops them when a room
// empties and restores them from a position. Session owns the position of one
// room. State is an immutable copy handed to readers, and Event is what a
// Session publishes to its Publisher.
//
// Concurrency:
//
// Each Session has its own mutex, which is the single processing point for its
// room. ApplyMove, Attach and Detach run their whole read-validate-write
// sequence and publish the resulting events while holding it, so two moves
// for the same room never interleave and every member sees events in the
// same order. Different rooms never contend. The Manager lock guards only
// the room map and is never held while a session lock is acquired.
//
// A dropped session is marked closed. Operations on a closed session fail
// with ErrSessionClosed so callers can fetch or create a fresh one.
//
// Usage:
//
//	manager := session.NewManager(engine.NewChessRules(), logger)
//
//	sess, _, err := manager.GetOrCreate("r1")
//	if err != nil {
//		return err
//	}
//
//	state, err := sess.ApplyMove(connID, engine.Move{From: 52, To: 36}, publisher)
//	switch {
//	case errors.Is(err, session.ErrInvalidMove):
//		// state is unchanged, the proposer was told why
//	case errors.Is(err, session.ErrGameAlreadyOver):
//	}
//
// Persistence:
//
// NewManagerWithPersistence snapshots every accepted move of an ongoing game.
// Snapshots are removed when the game ends or the room empties, and GetOrCreate
// restores one after an unclean restart. Completed games are never kept.
package session
