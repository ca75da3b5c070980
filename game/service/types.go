package service

import (
	"time"

	"github.com/wricardo/chess-rooms/game/session"
)

// MoveRequest is a move proposed by a connection
type MoveRequest struct {
	RoomID    string `json:"room"`
	From      int    `json:"from"`
	To        int    `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}

// RoomInfo describes a live room
type RoomInfo struct {
	ID        string        `json:"id"`
	Players   int           `json:"players"`
	State     session.State `json:"state"`
	Board     []string      `json:"board"`
	CreatedAt time.Time     `json:"created_at"`
}
