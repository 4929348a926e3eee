package network

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/wire"
)

// ChatClient is the per-process session a user's application holds: one
// outbound TCP connection, one background receive goroutine, and a handler
// invoked sequentially for every inbound message.
type ChatClient struct {
	host    string
	port    int
	userID  int
	handler contract.MessageHandler
	log     *slog.Logger

	writeMu sync.Mutex // serializes concurrent SendMessage callers
	conn    net.Conn
	active  atomic.Bool
}

func NewChatClient(host string, port int, userID int, handler contract.MessageHandler, log *slog.Logger) *ChatClient {
	return &ChatClient{host: host, port: port, userID: userID, handler: handler, log: log}
}

// Start dials the server, writes the identity handshake line and spawns
// the receive loop. The handshake is not acknowledged by the protocol:
// absence of a rejection is success, and a silently rejected handshake
// surfaces later as end-of-stream on the first read.
func (c *ChatClient) Start() error {
	addr := net.JoinHostPort(c.host, strconv.Itoa(c.port))
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", errors.ErrNotConnected, addr, err)
	}

	if _, err := fmt.Fprintf(conn, "%d\n", c.userID); err != nil {
		_ = conn.Close()
		return fmt.Errorf("%w: handshake write: %v", errors.ErrNotConnected, err)
	}

	c.conn = conn
	c.active.Store(true)
	go c.receiveLoop(conn)
	return nil
}

// SendMessage encodes and writes one line. Concurrent callers are
// serialized so partial lines never interleave on the wire.
func (c *ChatClient) SendMessage(message domain.Message) error {
	if err := message.Validate(); err != nil {
		return err
	}
	line, err := wire.Encode(message)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if !c.active.Load() || c.conn == nil {
		return errors.ErrNotConnected
	}
	frame := append(line, '\n')
	if _, err := c.conn.Write(frame); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrNotConnected, err)
	}
	return nil
}

// Stop is idempotent and safe on a client that never started. It marks the
// session inactive first, so the read failure caused by closing the socket
// is swallowed as the expected shutdown path, then closes the connection
// to unblock the receive loop.
func (c *ChatClient) Stop() {
	c.active.Store(false)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// receiveLoop is the single consumer of the inbound stream for the life of
// the session: handler invocations are sequential and in arrival order. It
// exits silently on normal closure and reports I/O failures only while the
// session is still active.
func (c *ChatClient) receiveLoop(conn net.Conn) {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for scanner.Scan() {
		message, err := wire.Decode(scanner.Bytes())
		if err != nil {
			if c.active.Load() {
				c.log.Error("receive loop: malformed line", "error", err)
			}
			return
		}
		c.handler(message)
	}

	if err := scanner.Err(); err != nil && c.active.Load() {
		c.log.Error("receive loop failed", "error", err)
		return
	}
	c.log.Debug("receive loop closed")
}
