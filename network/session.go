// Package network implements the relay's TCP transport: the server-side
// connection acceptor with its per-connection read loops, and the client
// session used by application instances.
package network

import (
	"fmt"
	"net"
	"sync"

	"github.com/google/uuid"

	"chat-relay/domain"
	"chat-relay/errors"
)

// Session is one live network connection bound to an authenticated user.
// Exactly one Session exists per connected socket; it is created at a
// successful handshake and released when the socket dies, the read loop
// exits, or the server stops.
type Session struct {
	id   uuid.UUID
	user domain.User

	mu     sync.Mutex
	conn   net.Conn
	closed bool
}

func newSession(user domain.User, conn net.Conn) *Session {
	return &Session{id: uuid.New(), user: user, conn: conn}
}

func (s *Session) UserID() int      { return s.user.ID }
func (s *Session) Username() string { return s.user.Username }

// WriteLine writes one encoded line plus the separator as a single Write,
// so concurrent broadcasts never interleave partial frames on the socket.
func (s *Session) WriteLine(line []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.ErrNotConnected
	}
	frame := make([]byte, 0, len(line)+1)
	frame = append(frame, line...)
	frame = append(frame, '\n')
	if _, err := s.conn.Write(frame); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrNotConnected, err)
	}
	return nil
}

// Close is idempotent. Closing the socket is also the cancellation signal
// for the read loop blocked on it.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}
