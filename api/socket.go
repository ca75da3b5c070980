package api

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/wricardo/chess-rooms/game/service"
	"github.com/wricardo/chess-rooms/game/session"
	"github.com/wricardo/chess-rooms/transport/websocket"
)

// ErrUnknownAction is returned for websocket actions the server does not support.
var ErrUnknownAction = errors.New("unknown action")

// Websocket action names.
const (
	ActionJoin  = "joinGame"
	ActionMove  = "move"
	ActionLeave = "leave"
)

// SocketHandler adapts websocket actions to the room service.
type SocketHandler struct {
	service service.RoomService
	logger  *zap.Logger
}

// NewSocketHandler creates the handler the hub dispatches to.
func NewSocketHandler(roomService service.RoomService, logger *zap.Logger) *SocketHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SocketHandler{service: roomService, logger: logger}
}

func (h *SocketHandler) Connect(ctx context.Context, connID, name string) {
	h.service.Connect(ctx, connID, name)
}

func (h *SocketHandler) Disconnect(ctx context.Context, connID string) {
	h.service.Disconnect(ctx, connID)
}

// HandleAction runs one client action. Move rejections are delivered by the
// broadcast layer, so only other failures are returned to the hub.
func (h *SocketHandler) HandleAction(ctx context.Context, connID string, action websocket.Action) error {
	switch action.Action {
	case ActionJoin, "join":
		_, err := h.service.Join(ctx, connID, action.Room, action.Name)
		return err

	case ActionMove:
		req := service.MoveRequest{
			RoomID:    action.Room,
			From:      index(action.From),
			To:        index(action.To),
			Promotion: action.Promotion,
		}
		_, err := h.service.Move(ctx, connID, req)
		if err != nil && session.IsRejection(err) {
			return nil
		}
		return err

	case ActionLeave:
		err := h.service.Leave(ctx, connID)
		if errors.Is(err, session.ErrUnknownRoom) {
			return nil
		}
		return err
	}

	h.logger.Debug("unknown action", zap.String("conn", connID), zap.String("action", action.Action))
	return fmt.Errorf("%w: %q", ErrUnknownAction, action.Action)
}

// index maps a missing square to an index the rules engine rejects.
func index(v *int) int {
	if v == nil {
		return -1
	}
	return *v
}
