package server

import (
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alfredovitale/frogger-server/common"
)

// mockConnection is an in-memory MessageConnection: tests push inbound
// frames for the session to read and collect whatever the session wrote.
type mockConnection struct {
	inbound  chan string
	outbound chan string

	closeOnce   sync.Once
	closedMutex sync.RWMutex
	closed      bool
}

func newMockConnection() *mockConnection {
	return &mockConnection{
		inbound:  make(chan string, 32),
		outbound: make(chan string, 32),
	}
}

func (connection *mockConnection) ReadMessage() (string, error) {
	frame, ok := <-connection.inbound
	if !ok {
		return "", io.EOF
	}
	return frame, nil
}

func (connection *mockConnection) WriteMessage(frame string) error {
	if connection.IsClosed() {
		return errors.New("connection closed")
	}

	select {
	case connection.outbound <- frame:
		return nil
	default:
		return errors.New("outbound buffer full")
	}
}

func (connection *mockConnection) Close() error {
	connection.closedMutex.Lock()
	defer connection.closedMutex.Unlock()

	if connection.closed {
		return errors.New("connection already closed")
	}
	connection.closed = true
	connection.closeOnce.Do(func() { close(connection.inbound) })
	return nil
}

func (connection *mockConnection) IsClosed() bool {
	connection.closedMutex.RLock()
	defer connection.closedMutex.RUnlock()

	return connection.closed
}

func (connection *mockConnection) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0}
}

// push feeds a frame to the session's read loop.
func (connection *mockConnection) push(message common.Message) {
	connection.inbound <- message.Encode()
}

// nextFrame waits for the next frame the session wrote.
func (connection *mockConnection) nextFrame(t *testing.T) string {
	t.Helper()

	select {
	case frame := <-connection.outbound:
		return frame
	case <-time.After(2 * time.Second):
		require.FailNow(t, "timed out waiting for an outbound frame")
		return ""
	}
}

// expectSilence asserts no frame arrives for a short window, used for the
// no-self-echo properties.
func (connection *mockConnection) expectSilence(t *testing.T) {
	t.Helper()

	select {
	case frame := <-connection.outbound:
		require.FailNow(t, "expected no outbound frame", "got %q", frame)
	case <-time.After(100 * time.Millisecond):
	}
}

// fakeAuth is an in-memory AuthService.
type fakeAuth struct {
	mutex sync.Mutex
	users map[string]string
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{users: make(map[string]string)}
}

func (auth *fakeAuth) Register(username, password string) error {
	auth.mutex.Lock()
	defer auth.mutex.Unlock()

	if username == "" || password == "" {
		return errors.New("username and password must not be empty")
	}
	if _, exists := auth.users[username]; exists {
		return errors.New("username is already taken")
	}
	auth.users[username] = password
	return nil
}

func (auth *fakeAuth) Login(username, password string) error {
	auth.mutex.Lock()
	defer auth.mutex.Unlock()

	if stored, exists := auth.users[username]; !exists || stored != password {
		return errors.New("bad credentials")
	}
	return nil
}

// fakeScores is an in-memory ScoreService.
type fakeScores struct {
	mutex sync.Mutex
	wins  map[string]int
}

func newFakeScores() *fakeScores {
	return &fakeScores{wins: make(map[string]int)}
}

func (scores *fakeScores) GetScores() (common.Scores, error) {
	scores.mutex.Lock()
	defer scores.mutex.Unlock()

	result := common.Scores{Entries: []common.ScoreEntry{}}
	for username, wins := range scores.wins {
		result.Entries = append(result.Entries, common.ScoreEntry{Username: username, Wins: wins})
	}
	return result, nil
}

func (scores *fakeScores) RecordWin(username string) error {
	scores.mutex.Lock()
	defer scores.mutex.Unlock()

	scores.wins[username]++
	return nil
}

func (scores *fakeScores) winsFor(username string) int {
	scores.mutex.Lock()
	defer scores.mutex.Unlock()

	return scores.wins[username]
}

// newTestServer builds an unbound server context with fake collaborators.
func newTestServer() (*Server, *fakeAuth, *fakeScores) {
	auth := newFakeAuth()
	scores := newFakeScores()
	srv := NewServer(Config{Secret: "test-secret"}, auth, scores)
	return srv, auth, scores
}
