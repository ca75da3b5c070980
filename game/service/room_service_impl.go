package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/wricardo/chess-rooms/game/config"
	"github.com/wricardo/chess-rooms/game/engine"
	"github.com/wricardo/chess-rooms/game/session"
)

// maxJoinAttempts bounds retries when a session is dropped between lookup and attach.
const maxJoinAttempts = 5

// roomServiceImpl implements the RoomService interface
type roomServiceImpl struct {
	sessions    SessionStore
	registry    ConnectionRegistry
	coordinator Coordinator
	rules       engine.Rules
	configs     ConfigStore
	logger      *zap.Logger
}

// NewRoomService creates a new room service instance
func NewRoomService(
	sessions SessionStore,
	registry ConnectionRegistry,
	coordinator Coordinator,
	rules engine.Rules,
	configs ConfigStore,
	logger *zap.Logger,
) RoomService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &roomServiceImpl{
		sessions:    sessions,
		registry:    registry,
		coordinator: coordinator,
		rules:       rules,
		configs:     configs,
		logger:      logger,
	}
}

// Connect registers a connection that has not joined a room yet
func (s *roomServiceImpl) Connect(ctx context.Context, connID, name string) {
	s.registry.Connect(connID, name)
	s.logger.Debug("connection registered", zap.String("conn", connID), zap.String("name", name))
	if name != "" {
		s.coordinator.BroadcastUsers()
	}
}

// Join places the connection in roomID, leaving any previous room first
func (s *roomServiceImpl) Join(ctx context.Context, connID, roomID, name string) (*session.State, error) {
	roomID = session.NormalizeRoomID(roomID)
	if err := session.ValidateRoomID(roomID); err != nil {
		return nil, err
	}
	if name == "" {
		name = s.registry.NameOf(connID)
	}

	if prev, ok := s.registry.RoomOf(connID); ok && prev != roomID {
		s.leaveRoom(connID, prev)
	}

	for attempt := 0; attempt < maxJoinAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		sess, created, err := s.sessions.GetOrCreate(roomID)
		if err != nil {
			return nil, err
		}

		state, err := sess.Attach(connID, name, func() bool {
			return s.registry.Join(connID, roomID, name) != roomID
		}, s.coordinator)
		if errors.Is(err, session.ErrSessionClosed) {
			continue
		}
		if err != nil {
			return nil, err
		}

		s.logger.Info("player joined",
			zap.String("room", roomID),
			zap.String("conn", connID),
			zap.String("name", name),
			zap.Bool("created", created),
		)
		s.coordinator.BroadcastUsers()
		return &state, nil
	}

	return nil, fmt.Errorf("join %q: %w", roomID, session.ErrSessionClosed)
}

// Leave removes the connection from its room
func (s *roomServiceImpl) Leave(ctx context.Context, connID string) error {
	roomID, ok := s.registry.RoomOf(connID)
	if !ok {
		return fmt.Errorf("%w: connection has not joined a room", session.ErrUnknownRoom)
	}
	s.leaveRoom(connID, roomID)
	s.coordinator.BroadcastUsers()
	return nil
}

// Disconnect leaves the connection's room and forgets it
func (s *roomServiceImpl) Disconnect(ctx context.Context, connID string) {
	if roomID, ok := s.registry.RoomOf(connID); ok {
		s.leaveRoom(connID, roomID)
	}
	s.registry.Disconnect(connID)
	s.logger.Debug("connection closed", zap.String("conn", connID))
	s.coordinator.BroadcastUsers()
}

// Move applies a move to the room the connection is in
func (s *roomServiceImpl) Move(ctx context.Context, connID string, req MoveRequest) (*session.State, error) {
	roomID, ok := s.registry.RoomOf(connID)
	if !ok || (req.RoomID != "" && session.NormalizeRoomID(req.RoomID) != roomID) {
		err := fmt.Errorf("%w: connection is not in room %q", session.ErrUnknownRoom, req.RoomID)
		s.coordinator.Reject(connID, req.RoomID, err)
		return nil, err
	}

	sess, err := s.sessions.Get(roomID)
	if err != nil {
		err = fmt.Errorf("%w: %v", session.ErrUnknownRoom, err)
		s.coordinator.Reject(connID, roomID, err)
		return nil, err
	}

	state, err := sess.ApplyMove(connID, engine.Move{From: req.From, To: req.To, Promotion: req.Promotion}, s.coordinator)
	if err != nil {
		s.logger.Debug("move rejected",
			zap.String("room", roomID),
			zap.String("conn", connID),
			zap.Int("from", req.From),
			zap.Int("to", req.To),
			zap.String("reason", RejectionReason(err)),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("move applied",
		zap.String("room", roomID),
		zap.String("conn", connID),
		zap.String("move", state.LastMove.UCI),
		zap.String("terminal", string(state.Terminal)),
	)
	return &state, nil
}

// GetRoom describes a live room
func (s *roomServiceImpl) GetRoom(ctx context.Context, roomID string) (*RoomInfo, error) {
	sess, err := s.sessions.Get(roomID)
	if err != nil {
		return nil, err
	}
	return s.roomInfo(sess), nil
}

// ListRooms describes every live room
func (s *roomServiceImpl) ListRooms(ctx context.Context) ([]*RoomInfo, error) {
	sessions := s.sessions.List()
	rooms := make([]*RoomInfo, 0, len(sessions))
	for _, sess := range sessions {
		rooms = append(rooms, s.roomInfo(sess))
	}
	return rooms, nil
}

// ListUsers returns the names of connected users
func (s *roomServiceImpl) ListUsers(ctx context.Context) ([]string, error) {
	return s.registry.Users(), nil
}

// LegalMoves lists the target squares for the piece on from in roomID
func (s *roomServiceImpl) LegalMoves(ctx context.Context, roomID string, from int) ([]int, error) {
	sess, err := s.sessions.Get(roomID)
	if err != nil {
		return nil, err
	}
	state := sess.State()
	if state.IsTerminal() {
		return []int{}, nil
	}
	return s.rules.LegalTargets(state.FEN, from)
}

// ListConfigs returns the available start-position presets
func (s *roomServiceImpl) ListConfigs(ctx context.Context) ([]*config.PresetInfo, error) {
	if s.configs == nil {
		return []*config.PresetInfo{}, nil
	}
	return s.configs.ListConfigs()
}

// SaveConfig validates and stores a start-position preset. Live rooms keep
// their positions; the preset applies to servers started with it.
func (s *roomServiceImpl) SaveConfig(ctx context.Context, id string, preset *config.Preset) (*config.PresetInfo, error) {
	if s.configs == nil {
		return nil, config.ErrNoConfigDir
	}
	if preset == nil {
		return nil, fmt.Errorf("%w: empty preset", config.ErrInvalidConfig)
	}
	if preset.Name == "" {
		preset.Name = id
	}
	if err := s.configs.SaveConfig(id, preset); err != nil {
		return nil, err
	}

	s.logger.Info("preset saved", zap.String("config", id), zap.String("fen", preset.FEN))
	return &config.PresetInfo{
		ConfigID:    id,
		Filename:    id + ".json",
		Name:        preset.Name,
		Description: preset.Description,
		FEN:         preset.FEN,
	}, nil
}

// RefreshConfigs drops cached presets and lists them again from disk
func (s *roomServiceImpl) RefreshConfigs(ctx context.Context) ([]*config.PresetInfo, error) {
	if s.configs != nil {
		s.configs.RefreshCache()
	}
	return s.ListConfigs(ctx)
}

// leaveRoom detaches connID from roomID inside that room's session lock. The
// registry may drop the session while the lock is held; the session is then
// closed and later callers create a fresh one.
func (s *roomServiceImpl) leaveRoom(connID, roomID string) {
	name := s.registry.NameOf(connID)

	sess, err := s.sessions.Get(roomID)
	if err != nil {
		s.registry.Leave(connID)
		return
	}

	sess.Detach(connID, name, func() {
		if _, empty := s.registry.Leave(connID); empty {
			s.logger.Info("room emptied", zap.String("room", roomID))
		}
	}, s.coordinator)
	s.logger.Info("player left", zap.String("room", roomID), zap.String("conn", connID))
}

func (s *roomServiceImpl) roomInfo(sess *session.Session) *RoomInfo {
	state := sess.State()
	board, err := engine.BoardArray(state.FEN)
	if err != nil {
		board = make([]string, engine.BoardSquares)
	}
	return &RoomInfo{
		ID:        sess.ID,
		Players:   s.registry.Count(sess.ID),
		State:     state,
		Board:     board,
		CreatedAt: sess.CreatedAt,
	}
}
