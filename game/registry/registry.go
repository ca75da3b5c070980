package registry

import (
	"sort"
	"sync"
)

// Dropper discards a room once it has no members.
type Dropper interface {
	Remove(roomID string)
}

type member struct {
	name string
	room string
}

// Registry maps connections to rooms.
type Registry struct {
	dropper Dropper

	mu    sync.RWMutex
	conns map[string]*member
	rooms map[string]map[string]struct{}
}

// New returns an empty registry. dropper may be nil.
func New(dropper Dropper) *Registry {
	return &Registry{
		dropper: dropper,
		conns:   make(map[string]*member),
		rooms:   make(map[string]map[string]struct{}),
	}
}

// Connect records a connection that has not joined a room yet.
func (r *Registry) Connect(connID, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.conns[connID]; ok {
		if name != "" {
			m.name = name
		}
		return
	}
	r.conns[connID] = &member{name: name}
}

// Join places connID in roomID and returns the room it was in before ("" if
// none). Leaving a previous room this way can drop that room's session.
func (r *Registry) Join(connID, roomID, name string) string {
	r.mu.Lock()
	m, ok := r.conns[connID]
	if !ok {
		m = &member{}
		r.conns[connID] = m
	}
	if name != "" {
		m.name = name
	}

	previous := m.room
	if previous == roomID {
		r.mu.Unlock()
		return previous
	}

	emptied := previous != "" && r.removeLocked(connID, previous)
	m.room = roomID
	if r.rooms[roomID] == nil {
		r.rooms[roomID] = make(map[string]struct{})
	}
	r.rooms[roomID][connID] = struct{}{}
	r.mu.Unlock()

	if emptied {
		r.drop(previous)
	}
	return previous
}

// Leave removes connID from its room. It reports the room left and whether
// the room is now empty.
func (r *Registry) Leave(connID string) (string, bool) {
	r.mu.Lock()
	m, ok := r.conns[connID]
	if !ok || m.room == "" {
		r.mu.Unlock()
		return "", false
	}
	roomID := m.room
	m.room = ""
	empty := r.removeLocked(connID, roomID)
	r.mu.Unlock()

	if empty {
		r.drop(roomID)
	}
	return roomID, empty
}

// Disconnect leaves the connection's room and forgets the connection.
func (r *Registry) Disconnect(connID string) (string, bool) {
	roomID, empty := r.Leave(connID)

	r.mu.Lock()
	delete(r.conns, connID)
	r.mu.Unlock()

	return roomID, empty
}

// RoomOf returns the room connID belongs to.
func (r *Registry) RoomOf(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.conns[connID]
	if !ok || m.room == "" {
		return "", false
	}
	return m.room, true
}

// NameOf returns the display name connID announced.
func (r *Registry) NameOf(connID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if m, ok := r.conns[connID]; ok {
		return m.name
	}
	return ""
}

// Members returns the connection IDs in roomID, sorted.
func (r *Registry) Members(roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]string, 0, len(r.rooms[roomID]))
	for connID := range r.rooms[roomID] {
		conns = append(conns, connID)
	}
	sort.Strings(conns)
	return conns
}

// Count returns the number of members in roomID.
func (r *Registry) Count(roomID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[roomID])
}

// occupiedRooms returns the IDs of rooms with at least one member, sorted.
func (r *Registry) occupiedRooms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := make([]string, 0, len(r.rooms))
	for roomID := range r.rooms {
		rooms = append(rooms, roomID)
	}
	sort.Strings(rooms)
	return rooms
}

// Users returns the display names of every connection that announced one, sorted.
func (r *Registry) Users() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]string, 0, len(r.conns))
	for _, m := range r.conns {
		if m.name != "" {
			users = append(users, m.name)
		}
	}
	sort.Strings(users)
	return users
}

// removeLocked deletes connID from roomID and reports whether the room emptied.
func (r *Registry) removeLocked(connID, roomID string) bool {
	conns := r.rooms[roomID]
	delete(conns, connID)
	if len(conns) == 0 {
		delete(r.rooms, roomID)
		return true
	}
	return false
}

func (r *Registry) drop(roomID string) {
	if r.dropper != nil {
		r.dropper.Remove(roomID)
	}
}
