package common

import (
	"bufio"
	"errors"
	"net"
	"sync"

	"github.com/gorilla/websocket"
)

// DefaultGamePort is the TCP port the game server listens on when the
// configuration does not override it.
const DefaultGamePort uint16 = 5656

// MessageConnection is a duplex connection carrying whole protocol frames.
// It abstracts the framed TCP stream and the WebSocket transport so the
// session code is transport-agnostic, and so tests can substitute mocks.
//
// WriteMessage is safe for concurrent use: a broadcast from a peer's
// goroutine and a direct reply from the owning goroutine must never
// interleave mid-frame on the same connection.
type MessageConnection interface {
	// ReadMessage reads one frame, blocking until it arrives
	ReadMessage() (string, error)
	// WriteMessage sends one frame
	WriteMessage(frame string) error
	// Close closes the underlying socket
	Close() error
	// IsClosed reports whether the connection has been closed
	IsClosed() bool
	// RemoteAddr identifies the peer for logging
	RemoteAddr() net.Addr
}

// TCP implementation of MessageConnection, using the length-prefixed
// framing from protocol.go.
type TCPMessageConnection struct {
	socket net.Conn
	reader *bufio.Reader

	writeMutex sync.Mutex

	closedMutex sync.RWMutex
	closed      bool
}

func NewTCPMessageConnection(socket net.Conn) *TCPMessageConnection {
	return &TCPMessageConnection{
		socket: socket,
		reader: bufio.NewReader(socket),
	}
}

func (connection *TCPMessageConnection) ReadMessage() (string, error) {
	return ReadFrame(connection.reader)
}

func (connection *TCPMessageConnection) WriteMessage(frame string) error {
	connection.writeMutex.Lock()
	defer connection.writeMutex.Unlock()

	return WriteFrame(connection.socket, frame)
}

func (connection *TCPMessageConnection) Close() error {
	connection.closedMutex.Lock()
	defer connection.closedMutex.Unlock()

	if connection.closed {
		return errors.New("connection already closed")
	}
	connection.closed = true
	return connection.socket.Close()
}

func (connection *TCPMessageConnection) IsClosed() bool {
	connection.closedMutex.RLock()
	defer connection.closedMutex.RUnlock()

	return connection.closed
}

func (connection *TCPMessageConnection) RemoteAddr() net.Addr {
	return connection.socket.RemoteAddr()
}

// WebSocket implementation of MessageConnection. One text message is one
// frame; the WebSocket layer supplies its own framing, so the length
// prefix is not used on this transport.
type WebsocketMessageConnection struct {
	socket *websocket.Conn

	writeMutex sync.Mutex

	closedMutex sync.RWMutex
	closed      bool
}

func NewWebsocketMessageConnection(socket *websocket.Conn) *WebsocketMessageConnection {
	return &WebsocketMessageConnection{socket: socket}
}

func (connection *WebsocketMessageConnection) ReadMessage() (string, error) {
	_, data, err := connection.socket.ReadMessage()
	if err != nil && websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		connection.closedMutex.Lock()
		connection.closed = true
		connection.closedMutex.Unlock()
	}
	return string(data), err
}

func (connection *WebsocketMessageConnection) WriteMessage(frame string) error {
	connection.writeMutex.Lock()
	defer connection.writeMutex.Unlock()

	return connection.socket.WriteMessage(websocket.TextMessage, []byte(frame))
}

func (connection *WebsocketMessageConnection) Close() error {
	connection.closedMutex.Lock()
	defer connection.closedMutex.Unlock()

	if connection.closed {
		return errors.New("connection already closed")
	}
	connection.closed = true
	return connection.socket.Close()
}

func (connection *WebsocketMessageConnection) IsClosed() bool {
	connection.closedMutex.RLock()
	defer connection.closedMutex.RUnlock()

	return connection.closed
}

func (connection *WebsocketMessageConnection) RemoteAddr() net.Addr {
	return connection.socket.RemoteAddr()
}

// Dialer creates MessageConnections to a remote server, abstracted so the
// client code can be pointed at mocks in tests.
type Dialer interface {
	DialForConnection(address string) (MessageConnection, error)
}

// GameDialer implements Dialer over plain TCP with the game framing.
type GameDialer struct{}

func (dialer *GameDialer) DialForConnection(address string) (MessageConnection, error) {
	socket, err := net.Dial("tcp", address)
	if err != nil {
		return nil, err
	}
	return NewTCPMessageConnection(socket), nil
}

// WebsocketDialer implements Dialer over a WebSocket URL (ws://host/ws).
type WebsocketDialer struct{}

func (dialer *WebsocketDialer) DialForConnection(address string) (MessageConnection, error) {
	socket, _, err := websocket.DefaultDialer.Dial(address, nil)
	if err != nil {
		return nil, err
	}
	return NewWebsocketMessageConnection(socket), nil
}
