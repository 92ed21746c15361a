package network

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/tolelom/headstats/events"
)

// ErrConnect is returned when a head's event socket cannot be reached.
var ErrConnect = errors.New("connect to head")

const (
	handshakeTimeout = 10 * time.Second
	writeTimeout     = 10 * time.Second
	maxFrameSize     = 32 * 1024 * 1024
)

// TaskExit reports the end of a socket goroutine.
type TaskExit struct {
	Task      string
	Authority string
	Err       error
}

// Socket is a connection to one head's event socket. Inbound frames are
// pushed onto a shared channel; outbound payloads are drained from the
// socket's own outbox.
type Socket struct {
	addr    Address
	conn    *websocket.Conn
	inbound *events.Channel
	outbox  *events.Channel
	logger  *logrus.Entry

	mu     sync.Mutex
	closed bool
}

// Dial connects to addr's websocket URL. tlsCfg may be nil.
func Dial(ctx context.Context, addr Address, inbound *events.Channel, tlsCfg *tls.Config, logger *logrus.Entry) (*Socket, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
		TLSClientConfig:  tlsCfg,
	}
	conn, _, err := dialer.DialContext(ctx, addr.WebsocketURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrConnect, addr.WebsocketURL(), err)
	}
	conn.SetReadLimit(maxFrameSize)
	return &Socket{
		addr:    addr,
		conn:    conn,
		inbound: inbound,
		outbox:  events.NewChannel(),
		logger:  logger.WithField("authority", addr.Authority()),
	}, nil
}

// Outbox returns the channel of outbound Send events.
func (s *Socket) Outbox() *events.Channel { return s.outbox }

// Listen starts the reader and writer goroutines. Each sends a TaskExit on
// report when it stops; report may be nil. A failure in either loop closes
// the socket, which stops the other.
func (s *Socket) Listen(report chan<- TaskExit) {
	go func() {
		err := s.readLoop()
		if err != nil {
			s.Close()
		}
		s.exit(report, "reader", err)
	}()
	go func() {
		err := s.writeLoop()
		if err != nil {
			s.Close()
		}
		s.exit(report, "writer", err)
	}()
}

func (s *Socket) exit(report chan<- TaskExit, task string, err error) {
	if report != nil {
		report <- TaskExit{Task: task, Authority: s.addr.Authority(), Err: err}
	}
}

func (s *Socket) readLoop() error {
	authority := s.addr.Authority()
	for {
		typ, data, err := s.conn.ReadMessage()
		if err != nil {
			if s.isClosed() {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		if typ != websocket.TextMessage {
			continue
		}
		msg, err := DecodeMessage(data)
		if err != nil {
			s.logger.WithError(err).Debug("Skipping frame")
			continue
		}
		if err := s.inbound.Push(events.Received{Message: msg, Authority: authority}); err != nil {
			s.logger.WithError(err).Warn("Dropping frame")
			return err
		}
	}
}

func (s *Socket) writeLoop() error {
	for {
		ev, ok := s.outbox.Recv()
		if !ok {
			return nil
		}
		send, ok := ev.(events.Send)
		if !ok {
			continue
		}
		if err := s.write(send.Payload); err != nil {
			if s.isClosed() {
				return nil
			}
			return fmt.Errorf("write: %w", err)
		}
	}
}

func (s *Socket) write(payload string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("socket %s closed", s.addr.Authority())
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, []byte(payload))
}

func (s *Socket) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close stops both goroutines and terminates the connection.
func (s *Socket) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.outbox.Close()
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	s.conn.Close()
}
