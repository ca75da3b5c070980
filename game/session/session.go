package session

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wricardo/chess-rooms/game/engine"
)

var (
	// ErrInvalidMove is returned when the rules engine refuses a move.
	ErrInvalidMove = errors.New("invalid move")
	// ErrGameAlreadyOver is returned for moves proposed after a terminal position.
	ErrGameAlreadyOver = errors.New("game already over")
	// ErrUnknownRoom is returned when a connection acts on a room it has not joined.
	ErrUnknownRoom = errors.New("unknown room")
	// ErrSessionClosed is returned when a session was dropped while a caller held it.
	ErrSessionClosed = errors.New("session closed")
)

// RejectionReason maps a move error to the reason code sent to clients.
func RejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrGameAlreadyOver):
		return "game_over"
	case errors.Is(err, ErrUnknownRoom), errors.Is(err, ErrSessionClosed):
		return "unknown_room"
	case errors.Is(err, ErrInvalidMove):
		return "invalid_move"
	}
	return ""
}

// IsRejection reports whether err is a move rejection already delivered to the proposer.
func IsRejection(err error) bool {
	return RejectionReason(err) != ""
}

// AppliedMove records a move accepted into a session.
type AppliedMove struct {
	From      int    `json:"from"`
	To        int    `json:"to"`
	Promotion string `json:"promotion,omitempty"`
	UCI       string `json:"uci"`
}

// State is a consistent copy of a session's game.
type State struct {
	RoomID    string               `json:"room_id"`
	FEN       string               `json:"fen"`
	Turn      engine.Color         `json:"turn"`
	Terminal  engine.TerminalState `json:"terminal"`
	Result    string               `json:"result,omitempty"`
	Method    string               `json:"method,omitempty"`
	MoveCount int                  `json:"move_count"`
	LastMove  *AppliedMove         `json:"last_move,omitempty"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// IsTerminal reports whether the game in this state has ended.
func (s State) IsTerminal() bool {
	return s.Terminal.IsOver()
}

// EventKind names something that happened to a session.
type EventKind string

const (
	JoinAccepted EventKind = "join_accepted"
	MoveApplied  EventKind = "move_applied"
	MoveRejected EventKind = "move_rejected"
	GameEnded    EventKind = "game_ended"
	MemberLeft   EventKind = "member_left"
)

// Event is emitted while the session lock is held, so publishers observe
// events of one room in the order they happened.
type Event struct {
	Kind   EventKind
	RoomID string
	ConnID string
	Name   string
	State  State
	Move   *AppliedMove
	Err    error
	Rejoin bool
}

// Publisher receives session events. Publish must not block on the network.
type Publisher interface {
	Publish(ev Event)
}

// Session is the authoritative game for one room. All mutations go through
// its lock, which is the single ordering point for the room.
type Session struct {
	ID        string
	CreatedAt time.Time

	rules    engine.Rules
	onChange func(State, engine.Line)
	closed   atomic.Bool

	mu    sync.Mutex
	state State
	line  engine.Line
}

func newSession(id string, rules engine.Rules, line engine.Line, out engine.Outcome) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		CreatedAt: now,
		rules:     rules,
		line:      line,
		state: State{
			RoomID:    id,
			FEN:       out.FEN,
			Turn:      out.Turn,
			Terminal:  out.Terminal,
			Result:    out.Result,
			Method:    out.Method,
			UpdatedAt: now,
		},
	}
}

// State returns a snapshot of the current game.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyState()
}

// IsTerminal reports whether the game has ended.
func (s *Session) IsTerminal() bool {
	return s.State().IsTerminal()
}

// ApplyMove validates mv against the game so far and, when legal, replaces
// the position and records the move. The outcome is published to pub before the lock is
// released. A rejection leaves the state untouched.
func (s *Session) ApplyMove(connID string, mv engine.Move, pub Publisher) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return s.reject(connID, fmt.Errorf("%w: %w", ErrUnknownRoom, ErrSessionClosed), pub)
	}
	if s.state.IsTerminal() {
		return s.reject(connID, fmt.Errorf("%w: %s", ErrGameAlreadyOver, s.state.Terminal), pub)
	}

	out, err := s.rules.Apply(s.line, mv)
	if err != nil {
		return s.reject(connID, fmt.Errorf("%w: %v", ErrInvalidMove, err), pub)
	}
	s.line = s.line.Extend(out)

	applied := &AppliedMove{From: mv.From, To: mv.To, Promotion: out.Promotion, UCI: out.UCI}
	s.state = State{
		RoomID:    s.ID,
		FEN:       out.FEN,
		Turn:      out.Turn,
		Terminal:  out.Terminal,
		Result:    out.Result,
		Method:    out.Method,
		MoveCount: s.state.MoveCount + 1,
		LastMove:  applied,
		UpdatedAt: time.Now(),
	}
	if s.onChange != nil {
		s.onChange(s.copyState(), s.line)
	}

	state := s.copyState()
	publish(pub, Event{Kind: MoveApplied, RoomID: s.ID, ConnID: connID, State: state, Move: applied})
	if state.IsTerminal() {
		publish(pub, Event{Kind: GameEnded, RoomID: s.ID, ConnID: connID, State: state, Move: applied})
	}
	return state, nil
}

// Attach runs attach under the session lock and announces the join. attach
// performs the membership change and reports whether the connection is new
// to the room. It fails with ErrSessionClosed if the session was dropped
// before the lock was acquired.
func (s *Session) Attach(connID, name string, attach func() bool, pub Publisher) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return State{}, ErrSessionClosed
	}
	added := attach()

	state := s.copyState()
	publish(pub, Event{Kind: JoinAccepted, RoomID: s.ID, ConnID: connID, Name: name, State: state, Rejoin: !added})
	return state, nil
}

// Detach runs detach under the session lock and announces the departure to
// whoever remains.
func (s *Session) Detach(connID, name string, detach func(), pub Publisher) {
	s.mu.Lock()
	defer s.mu.Unlock()

	detach()
	publish(pub, Event{Kind: MemberLeft, RoomID: s.ID, ConnID: connID, Name: name, State: s.copyState()})
}

func (s *Session) reject(connID string, err error, pub Publisher) (State, error) {
	state := s.copyState()
	publish(pub, Event{Kind: MoveRejected, RoomID: s.ID, ConnID: connID, State: state, Err: err})
	return state, err
}

func (s *Session) copyState() State {
	state := s.state
	if state.LastMove != nil {
		lm := *state.LastMove
		state.LastMove = &lm
	}
	return state
}

func publish(pub Publisher, ev Event) {
	if pub != nil {
		pub.Publish(ev)
	}
}
