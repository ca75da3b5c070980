// Package registry tracks which room each connection belongs to.
//
// A connection is a member of zero or one room, and a room has any number of
// member connections. Joining a second room leaves the first. When the last
// member leaves, the registry tells its Dropper so the room's session can be
// discarded.
//
// The registry also remembers the display name each connection announced,
// which backs the process-wide user list.
//
// All methods are safe for concurrent use. The Dropper is always called after
// the registry lock is released.
package registry
