package session

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/wricardo/chess-rooms/game/engine"
)

// MaxRoomIDLength bounds room identifiers.
const MaxRoomIDLength = 64

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrInvalidRoomID        = errors.New("invalid room ID")
)

// ValidateRoomID checks that id is usable as a room key.
func ValidateRoomID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalidRoomID)
	}
	if len(id) > MaxRoomIDLength {
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidRoomID, MaxRoomIDLength)
	}
	for _, r := range id {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: contains control characters", ErrInvalidRoomID)
		}
	}
	return nil
}

// Manager is the session store: it maps room IDs to their one authoritative
// Session. The store lock guards only the map; game state lives behind each
// session's own lock.
type Manager struct {
	rules       engine.Rules
	persistence SessionPersistence
	logger      *zap.Logger
	retain      atomic.Bool

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a session store whose new games start at rules.StartingPosition()
func NewManager(rules engine.Rules, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		rules:    rules,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// NewManagerWithPersistence creates a session store that snapshots ongoing games
func NewManagerWithPersistence(rules engine.Rules, persistence SessionPersistence, logger *zap.Logger) *Manager {
	m := NewManager(rules, logger)
	m.persistence = persistence
	return m
}

// GetOrCreate returns the room's session, creating it when absent. A stored
// snapshot is restored before falling back to the starting position. The
// boolean reports whether a session was created. Snapshots are read without
// holding the store lock.
func (m *Manager) GetOrCreate(roomID string) (*Session, bool, error) {
	if err := ValidateRoomID(roomID); err != nil {
		return nil, false, err
	}
	if sess, err := m.Get(roomID); err == nil {
		return sess, false, nil
	}

	if sess := m.recoverSnapshot(roomID); sess != nil {
		return sess, true, nil
	}

	line := engine.At(m.rules.StartingPosition())
	out, err := m.rules.Evaluate(line.Start)
	if err != nil {
		return nil, false, fmt.Errorf("failed to evaluate starting position: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if sess, ok := m.sessions[roomID]; ok {
		return sess, false, nil
	}
	sess := m.addLocked(Snapshot{RoomID: roomID}, line, out)
	m.logger.Info("session created", zap.String("room", roomID))
	return sess, true, nil
}

// Restore creates a session for roomID at the position fen
func (m *Manager) Restore(roomID, fen string) (*Session, error) {
	if err := ValidateRoomID(roomID); err != nil {
		return nil, err
	}
	return m.restore(Snapshot{RoomID: roomID, FEN: fen}, false)
}

// restore rebuilds the game recorded in snap and adds it to the store. With
// playable set, a finished game is refused with engine.ErrUnplayablePosition.
func (m *Manager) restore(snap Snapshot, playable bool) (*Session, error) {
	line, out, err := m.replay(snap)
	if err != nil {
		return nil, err
	}
	if playable && out.Terminal.IsOver() {
		return nil, fmt.Errorf("%w: game is over: %s", engine.ErrUnplayablePosition, out.Terminal)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[snap.RoomID]; ok {
		return nil, ErrSessionAlreadyExists
	}
	return m.addLocked(snap, line, out), nil
}

// replay evaluates the game recorded in snap. A recorded line that no longer
// reaches snap.FEN is dropped and play continues from the FEN alone.
func (m *Manager) replay(snap Snapshot) (engine.Line, engine.Outcome, error) {
	if snap.Line.Start != "" {
		out, err := m.rules.Replay(snap.Line)
		if err == nil && out.FEN == snap.FEN {
			return snap.Line, out, nil
		}
		m.logger.Warn("discarding recorded moves",
			zap.String("room", snap.RoomID),
			zap.Int("moves", len(snap.Line.Moves)),
			zap.Error(err),
		)
	}
	out, err := m.rules.Evaluate(snap.FEN)
	if err != nil {
		return engine.Line{}, engine.Outcome{}, err
	}
	return engine.At(snap.FEN), out, nil
}

// StoredRooms lists the rooms that have a snapshot on disk.
func (m *Manager) StoredRooms() ([]string, error) {
	if m.persistence == nil {
		return nil, nil
	}
	rooms, err := m.persistence.ListAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	sort.Strings(rooms)
	return rooms, nil
}

// Get retrieves a live session
func (m *Manager) Get(roomID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[roomID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Remove drops the room's session and marks it closed. Callers still holding
// the session observe ErrSessionClosed and retry against a fresh one. The
// snapshot goes first so a concurrent GetOrCreate cannot restore it.
func (m *Manager) Remove(roomID string) {
	sess, err := m.Get(roomID)
	if err != nil {
		return
	}
	if !m.retain.Load() {
		m.deleteSnapshot(roomID)
	}

	m.mu.Lock()
	if m.sessions[roomID] == sess {
		delete(m.sessions, roomID)
		sess.closed.Store(true)
	}
	m.mu.Unlock()

	m.logger.Info("session dropped", zap.String("room", roomID))
}

// List returns the live sessions ordered by room ID
func (m *Manager) List() []*Session {
	m.mu.Lock()
	result := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		result = append(result, sess)
	}
	m.mu.Unlock()

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Count returns the number of live sessions
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close keeps snapshots on disk for rooms that empty from now on, so a
// shutdown that disconnects everyone does not erase ongoing games.
func (m *Manager) Close() {
	m.retain.Store(true)
}

// PruneSnapshots removes snapshot files older than maxAge when the store
// supports it.
func (m *Manager) PruneSnapshots(maxAge time.Duration) int {
	pruner, ok := m.persistence.(interface {
		Prune(time.Duration) (int, error)
	})
	if !ok {
		return 0
	}
	removed, err := pruner.Prune(maxAge)
	if err != nil {
		m.logger.Warn("snapshot prune failed", zap.Error(err))
	}
	return removed
}

func (m *Manager) addLocked(snap Snapshot, line engine.Line, out engine.Outcome) *Session {
	sess := newSession(snap.RoomID, m.rules, line, out)
	sess.state.MoveCount = snap.MoveCount
	sess.state.LastMove = snap.LastMove
	if !snap.CreatedAt.IsZero() {
		sess.CreatedAt = snap.CreatedAt
	}
	if m.persistence != nil {
		sess.onChange = func(state State, line engine.Line) { m.snapshot(sess, state, line) }
	}
	m.sessions[snap.RoomID] = sess
	return sess
}

// recoverSnapshot restores roomID from its snapshot. It returns nil when there
// is none, when the snapshot is unusable, or when another caller created the
// session first.
func (m *Manager) recoverSnapshot(roomID string) *Session {
	if m.persistence == nil || !m.persistence.Exists(roomID) {
		return nil
	}

	snap, err := m.persistence.Load(roomID)
	if err != nil {
		m.logger.Warn("failed to load snapshot", zap.String("room", roomID), zap.Error(err))
		return nil
	}
	snap.RoomID = roomID

	sess, err := m.restore(snap, true)
	if errors.Is(err, ErrSessionAlreadyExists) {
		return nil
	}
	if err != nil {
		m.logger.Warn("discarding unusable snapshot", zap.String("room", roomID), zap.Error(err))
		m.deleteSnapshot(roomID)
		return nil
	}

	m.logger.Info("session restored from snapshot",
		zap.String("room", roomID),
		zap.Int("moves", snap.MoveCount),
	)
	return sess
}

// snapshot runs under the session lock after every accepted move.
func (m *Manager) snapshot(sess *Session, state State, line engine.Line) {
	if state.IsTerminal() {
		m.deleteSnapshot(sess.ID)
		return
	}
	if err := m.persistence.Save(snapshotOf(sess, state, line)); err != nil {
		m.logger.Warn("failed to save snapshot", zap.String("room", sess.ID), zap.Error(err))
	}
}

func (m *Manager) deleteSnapshot(roomID string) {
	if m.persistence == nil {
		return
	}
	if err := m.persistence.Delete(roomID); err != nil && !errors.Is(err, ErrSessionNotFound) {
		m.logger.Warn("failed to delete snapshot", zap.String("room", roomID), zap.Error(err))
	}
}

// NormalizeRoomID trims surrounding whitespace from a client supplied room ID.
func NormalizeRoomID(id string) string {
	return strings.TrimSpace(id)
}
