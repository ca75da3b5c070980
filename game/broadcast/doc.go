// Package broadcast turns session events into the messages each connection
// receives.
//
// Coordinator implements session.Publisher. For every event it computes the
// recipients from the connection registry, encodes one JSON envelope per
// message and hands it to a Sender, normally the websocket hub. Room-wide
// messages are also copied to an optional Tap such as the NATS publisher.
//
// Delivery rules:
//   - A join sends gameState to the joiner, plus check or gameOver when the
//     position calls for it, and playerJoined to everyone else in the room.
//   - An accepted move sends move, then gameState, then check when the side
//     to move is in check, to every member including the mover.
//   - A game that just ended is followed by gameOver to the whole room.
//   - A rejected move sends invalidMove to the proposer only.
//   - A departure sends playerLeft to the remaining members.
//
// Sessions publish while holding their lock, so messages for one room leave
// the coordinator in event order. Senders must queue rather than block.
package broadcast
