package network

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/moderation"
	"chat-relay/wire"
)

// maxLineBytes bounds a single wire line; a longer line is a protocol
// violation and kills only the connection that produced it.
const maxLineBytes = 1 << 20

// Server lifecycle states. A server is single-use: once stopped it cannot
// be restarted, a new instance is required.
const (
	stateStopped int32 = iota
	stateStarting
	stateRunning
	stateStopping
	stateTerminated
)

// MessageRouter fans one stamped inbound message out to the connected
// participants of its chat.
type MessageRouter interface {
	Broadcast(message domain.Message) error
}

// ChatServer accepts TCP connections, performs the identity handshake and
// runs one read loop per connection. All failures are scoped to a single
// connection or a single broadcast; nothing a client does can stop the
// acceptor or another client's session.
type ChatServer struct {
	host     string
	port     int
	users    contract.IUserDirectory
	registry contract.IRegistry
	router   MessageRouter
	screen   *moderation.Screen // nil when no blacklist is configured
	log      *slog.Logger

	listener net.Listener
	state    atomic.Int32
	wg       sync.WaitGroup

	// Every accepted socket, including those still in handshake. The
	// registry only knows authenticated sessions, so Stop closes this set
	// to unblock read loops that never sent an identity line.
	connMu sync.Mutex
	conns  map[net.Conn]struct{}
}

func NewChatServer(
	host string,
	port int,
	users contract.IUserDirectory,
	registry contract.IRegistry,
	router MessageRouter,
	screen *moderation.Screen,
	log *slog.Logger,
) *ChatServer {
	return &ChatServer{
		host:     host,
		port:     port,
		users:    users,
		registry: registry,
		router:   router,
		screen:   screen,
		log:      log,
		conns:    make(map[net.Conn]struct{}),
	}
}

// Start opens the listening socket and begins accepting connections. It
// returns once the acceptor is running.
func (s *ChatServer) Start() error {
	if !s.state.CompareAndSwap(stateStopped, stateStarting) {
		return fmt.Errorf("server already started")
	}

	listener, err := net.Listen("tcp", net.JoinHostPort(s.host, strconv.Itoa(s.port)))
	if err != nil {
		s.state.Store(stateStopped)
		return fmt.Errorf("listen on port %d: %w", s.port, err)
	}
	s.listener = listener
	s.state.Store(stateRunning)
	s.log.Info("chat server listening", "addr", listener.Addr().String())

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Addr reports the bound listen address, which differs from the configured
// one when port 0 was requested.
func (s *ChatServer) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop is idempotent. It closes the listener (unblocking the accept loop),
// closes every registered session and every accepted socket (unblocking
// their read loops, handshake included) and waits for all connection
// workers to exit. The server ends in its terminal state and cannot be
// started again.
func (s *ChatServer) Stop() {
	if !s.state.CompareAndSwap(stateRunning, stateStopping) {
		return
	}
	s.log.Info("chat server stopping")
	_ = s.listener.Close()

	for _, session := range s.registry.Snapshot() {
		_ = session.Close()
	}

	// The registry snapshot misses sockets still in handshake and any
	// session registered after the snapshot, so close the raw set too.
	s.connMu.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.connMu.Unlock()

	s.wg.Wait()
	s.state.Store(stateTerminated)
	s.log.Info("chat server stopped")
}

// Run makes the server a supervised worker: start, block until the context
// is done, stop.
func (s *ChatServer) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return nil
}

func (s *ChatServer) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.state.Load() == stateRunning {
				s.log.Error("accept failed", "error", err)
			}
			return
		}
		if !s.track(conn) {
			// Lost the race against Stop; nobody will close it later.
			_ = conn.Close()
			continue
		}
		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

// track records an accepted socket so Stop can close it even before the
// handshake completes. It refuses once shutdown has begun.
func (s *ChatServer) track(conn net.Conn) bool {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.state.Load() != stateRunning {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *ChatServer) untrack(conn net.Conn) {
	s.connMu.Lock()
	delete(s.conns, conn)
	s.connMu.Unlock()
}

// handleConnection owns one socket for its whole life: handshake, registry
// entry, read loop, cleanup.
func (s *ChatServer) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer s.untrack(conn)

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	user, ok := s.handshake(scanner, conn)
	if !ok {
		// Rejected silently: no registry entry, no wire-level response.
		_ = conn.Close()
		return
	}

	session := newSession(user, conn)
	if prev, evicted := s.registry.Put(user.ID, session); evicted {
		// Last connection wins; the superseded socket is closed so its
		// read loop unblocks and its goroutine exits.
		s.log.Warn("displacing prior connection", "user_id", user.ID)
		_ = prev.Close()
	}
	s.log.Info("client connected", "user", user.Username, "user_id", user.ID, "session_id", session.id.String())

	defer func() {
		s.registry.Remove(user.ID, session)
		_ = session.Close()
		s.log.Info("client disconnected", "user", user.Username, "user_id", user.ID)
	}()

	s.readLoop(scanner, session)
}

// handshake reads the single identity line and resolves it against the
// user directory. An unparsable or unknown identifier rejects the
// connection without touching any other session.
func (s *ChatServer) handshake(scanner *bufio.Scanner, conn net.Conn) (domain.User, bool) {
	if !scanner.Scan() {
		return domain.User{}, false
	}
	userID, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil {
		s.log.Warn("handshake rejected: not a numeric identifier", "remote", conn.RemoteAddr().String())
		return domain.User{}, false
	}
	user, err := s.users.UserByID(userID)
	if err != nil {
		s.log.Warn("handshake rejected: unknown user", "user_id", userID, "error", err)
		return domain.User{}, false
	}
	return user, true
}

// readLoop processes lines strictly in arrival order. A malformed line is
// fatal to this connection only; a broadcast failure is reported and the
// loop keeps going.
func (s *ChatServer) readLoop(scanner *bufio.Scanner, session *Session) {
	for scanner.Scan() {
		message, err := wire.Decode(scanner.Bytes())
		if err != nil {
			s.log.Warn("malformed line, dropping connection", "user_id", session.UserID(), "error", err)
			return
		}

		if s.screen != nil {
			if report := s.screen.Inspect(message.Content); len(report.Matches) > 0 {
				// Flag only; delivery stays verbatim.
				s.log.Warn("flagged content",
					"user_id", session.UserID(),
					"chat_id", message.ChatID,
					"words", report.Matches,
					"lang", report.Language)
			}
		}

		// The username always comes from the authenticated connection,
		// never from the client payload.
		message.SenderUsername = session.Username()

		if err := s.router.Broadcast(message); err != nil {
			s.log.Error("broadcast aborted", "chat_id", message.ChatID, "error", err)
		}
	}

	if err := scanner.Err(); err != nil && s.state.Load() == stateRunning {
		s.log.Debug("connection read ended", "user_id", session.UserID(), "error", err)
	}
}
