package broadcast

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/wricardo/chess-rooms/game/engine"
	"github.com/wricardo/chess-rooms/game/session"
)

// Sender delivers encoded frames to connections without blocking.
type Sender interface {
	Send(connID string, payload []byte) bool
	SendAll(payload []byte)
}

// Membership answers who is in a room and who is online.
type Membership interface {
	Members(roomID string) []string
	Users() []string
}

// Tap receives a copy of every room-wide message.
type Tap interface {
	Publish(roomID, event string, payload []byte) error
}

// Delivery is one message and the connections it goes to.
type Delivery struct {
	To       []string
	Message  Message
	RoomWide bool
}

// Coordinator implements session.Publisher on top of a Sender.
type Coordinator struct {
	sender  Sender
	members Membership
	tap     Tap
	logger  *zap.Logger
}

// NewCoordinator creates a coordinator. logger may be nil.
func NewCoordinator(sender Sender, members Membership, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{sender: sender, members: members, logger: logger}
}

// SetTap mirrors room-wide messages to tap. Call before serving traffic.
func (c *Coordinator) SetTap(tap Tap) {
	c.tap = tap
}

// Publish delivers the messages derived from ev.
func (c *Coordinator) Publish(ev session.Event) {
	for _, d := range c.Plan(ev) {
		c.deliver(d)
	}
}

// Plan computes the deliveries for ev without sending anything.
func (c *Coordinator) Plan(ev session.Event) []Delivery {
	room := ev.RoomID
	msg := func(event string, data any) Message {
		return Message{Room: room, Event: event, Data: data}
	}

	switch ev.Kind {
	case session.JoinAccepted:
		joiner := []string{ev.ConnID}
		out := []Delivery{{To: joiner, Message: msg(EventGameState, NewStatePayload(ev.State))}}
		switch {
		case ev.State.IsTerminal():
			out = append(out, Delivery{To: joiner, Message: msg(EventGameOver, gameOverPayload(ev.State))})
		case ev.State.Terminal == engine.Check:
			out = append(out, Delivery{To: joiner, Message: msg(EventCheck, checkPayload(ev.State))})
		}
		if !ev.Rejoin {
			members := c.members.Members(room)
			if others := without(members, ev.ConnID); len(others) > 0 {
				out = append(out, Delivery{
					To:       others,
					Message:  msg(EventPlayerJoined, PlayerPayload{Name: ev.Name, Players: len(members)}),
					RoomWide: true,
				})
			}
		}
		return out

	case session.MoveApplied:
		members := c.members.Members(room)
		out := []Delivery{
			{To: members, Message: msg(EventMove, ev.Move), RoomWide: true},
			{To: members, Message: msg(EventGameState, NewStatePayload(ev.State)), RoomWide: true},
		}
		if ev.State.Terminal == engine.Check {
			out = append(out, Delivery{To: members, Message: msg(EventCheck, checkPayload(ev.State)), RoomWide: true})
		}
		return out

	case session.GameEnded:
		return []Delivery{{
			To:       c.members.Members(room),
			Message:  msg(EventGameOver, gameOverPayload(ev.State)),
			RoomWide: true,
		}}

	case session.MoveRejected:
		return []Delivery{{To: []string{ev.ConnID}, Message: msg(EventInvalidMove, rejectionPayload(ev.Err, ev.State.FEN))}}

	case session.MemberLeft:
		members := without(c.members.Members(room), ev.ConnID)
		if len(members) == 0 {
			return nil
		}
		return []Delivery{{
			To:       members,
			Message:  msg(EventPlayerLeft, PlayerPayload{Name: ev.Name, Players: len(members)}),
			RoomWide: true,
		}}
	}
	return nil
}

// Reject tells connID its move was refused outside any session, for example
// because it has not joined roomID.
func (c *Coordinator) Reject(connID, roomID string, err error) {
	c.deliver(Delivery{
		To:      []string{connID},
		Message: Message{Room: roomID, Event: EventInvalidMove, Data: rejectionPayload(err, "")},
	})
}

// SendError reports a request-level failure to one connection.
func (c *Coordinator) SendError(connID, message string) {
	c.deliver(Delivery{To: []string{connID}, Message: Message{Event: EventError, Data: ErrorPayload{Message: message}}})
}

// BroadcastUsers sends the online user list to every connection.
func (c *Coordinator) BroadcastUsers() {
	payload, err := json.Marshal(Message{Event: EventUserList, Data: UserListPayload{Users: c.members.Users()}})
	if err != nil {
		c.logger.Error("failed to encode user list", zap.Error(err))
		return
	}
	c.sender.SendAll(payload)
}

func (c *Coordinator) deliver(d Delivery) {
	payload, err := json.Marshal(d.Message)
	if err != nil {
		c.logger.Error("failed to encode message",
			zap.String("room", d.Message.Room),
			zap.String("event", d.Message.Event),
			zap.Error(err),
		)
		return
	}

	for _, connID := range d.To {
		if !c.sender.Send(connID, payload) {
			c.logger.Debug("message not delivered",
				zap.String("conn", connID),
				zap.String("event", d.Message.Event),
			)
		}
	}

	if d.RoomWide && c.tap != nil {
		if err := c.tap.Publish(d.Message.Room, d.Message.Event, payload); err != nil {
			c.logger.Warn("tap publish failed", zap.String("room", d.Message.Room), zap.Error(err))
		}
	}
}

func without(conns []string, connID string) []string {
	out := make([]string, 0, len(conns))
	for _, c := range conns {
		if c != connID {
			out = append(out, c)
		}
	}
	return out
}
