package service

import (
	"context"

	"github.com/wricardo/chess-rooms/game/config"
	"github.com/wricardo/chess-rooms/game/session"
)

// RoomService defines every room operation the transports use
type RoomService interface {
	// Connections
	Connect(ctx context.Context, connID, name string)
	Disconnect(ctx context.Context, connID string)

	// Membership
	Join(ctx context.Context, connID, roomID, name string) (*session.State, error)
	Leave(ctx context.Context, connID string) error

	// Game Operations
	Move(ctx context.Context, connID string, req MoveRequest) (*session.State, error)

	// Inspection
	GetRoom(ctx context.Context, roomID string) (*RoomInfo, error)
	ListRooms(ctx context.Context) ([]*RoomInfo, error)
	ListUsers(ctx context.Context) ([]string, error)
	LegalMoves(ctx context.Context, roomID string, from int) ([]int, error)
	ListConfigs(ctx context.Context) ([]*config.PresetInfo, error)

	// Presets
	SaveConfig(ctx context.Context, id string, preset *config.Preset) (*config.PresetInfo, error)
	RefreshConfigs(ctx context.Context) ([]*config.PresetInfo, error)
}

// SessionStore is the subset of session.Manager the service needs
type SessionStore interface {
	GetOrCreate(roomID string) (*session.Session, bool, error)
	Get(roomID string) (*session.Session, error)
	List() []*session.Session
}

// ConnectionRegistry tracks room membership
type ConnectionRegistry interface {
	Connect(connID, name string)
	Join(connID, roomID, name string) string
	Leave(connID string) (string, bool)
	Disconnect(connID string) (string, bool)
	RoomOf(connID string) (string, bool)
	NameOf(connID string) string
	Count(roomID string) int
	Users() []string
}

// Coordinator publishes session events and out-of-session notices
type Coordinator interface {
	session.Publisher
	Reject(connID, roomID string, err error)
	BroadcastUsers()
}

// ConfigStore lists and stores start-position presets
type ConfigStore interface {
	ListConfigs() ([]*config.PresetInfo, error)
	SaveConfig(id string, preset *config.Preset) error
	RefreshCache()
}

// RejectionReason maps a move error to its wire reason code
func RejectionReason(err error) string {
	return session.RejectionReason(err)
}
