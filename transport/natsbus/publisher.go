package natsbus

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// DefaultPrefix is the subject prefix room events are published under.
const DefaultPrefix = "chess.rooms"

// ErrClosed is returned when publishing after Close.
var ErrClosed = errors.New("nats publisher closed")

// Conn is the subset of *nats.Conn the publisher uses
type Conn interface {
	Publish(subject string, data []byte) error
	Drain() error
	IsClosed() bool
}

// Publisher mirrors room-wide events onto NATS subjects
type Publisher struct {
	conn   Conn
	prefix string
}

// Connect dials url with reconnect handling logged through logger.
func Connect(url string, logger *zap.Logger) (*nats.Conn, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	nc, err := nats.Connect(url,
		nats.Name("chess-rooms"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", url, err)
	}
	return nc, nil
}

// NewPublisher creates a publisher; an empty prefix means DefaultPrefix.
func NewPublisher(conn Conn, prefix string) *Publisher {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Publisher{conn: conn, prefix: strings.TrimSuffix(prefix, ".")}
}

// Publish sends an already encoded message for roomID.
func (p *Publisher) Publish(roomID, event string, payload []byte) error {
	if p.conn.IsClosed() {
		return ErrClosed
	}
	subject := p.Subject(roomID, event)
	if err := p.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Subject returns <prefix>.<room>.<event> with both tokens made subject safe.
func (p *Publisher) Subject(roomID, event string) string {
	return p.prefix + "." + token(roomID) + "." + token(event)
}

// Close drains pending messages and closes the connection.
func (p *Publisher) Close() error {
	if p.conn.IsClosed() {
		return nil
	}
	return p.conn.Drain()
}

// token replaces characters NATS treats as separators or wildcards.
func token(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, s)
}
