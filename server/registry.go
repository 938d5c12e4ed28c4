package server

import (
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// ClientRegistry tracks every live session by clientID and doubles as the
// matchmaking pool: a session is waiting iff its lookingForMatch flag is
// set, and that flag is only ever touched while holding the registry
// mutex.
type ClientRegistry struct {
	mutex    sync.Mutex
	sessions map[string]*ClientSession
}

func NewClientRegistry() *ClientRegistry {
	return &ClientRegistry{sessions: make(map[string]*ClientSession)}
}

func (registry *ClientRegistry) Add(session *ClientSession) {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()

	registry.sessions[session.ID()] = session
}

// Remove drops the session from the registry. Removing it also removes it
// from the matchmaking pool, since pool membership is just the flag on the
// session.
func (registry *ClientRegistry) Remove(id string) {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()

	if session, exists := registry.sessions[id]; exists {
		session.lookingForMatch = false
		delete(registry.sessions, id)
	}
}

func (registry *ClientRegistry) Count() int {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()

	return len(registry.sessions)
}

// ClaimOpponent atomically resolves a FIND_MATCH request. If another
// session is waiting, both sessions' flags are cleared inside the same
// critical section and the opponent is returned: the claim is what keeps
// two concurrent requests from pairing with the same opponent twice. If
// nobody is waiting, the caller is marked as waiting and nil is returned.
// A flagged session that already holds a room is never claimed: a room
// member is not in the pool, whatever its flag says.
func (registry *ClientRegistry) ClaimOpponent(caller *ClientSession) *ClientSession {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()

	for _, session := range registry.sessions {
		if session == caller || !session.lookingForMatch || session.currentRoom() != "" {
			continue
		}

		session.lookingForMatch = false
		caller.lookingForMatch = false
		return session
	}

	caller.lookingForMatch = true
	return nil
}

// StopLooking withdraws the caller from the matchmaking pool, used when a
// waiting session starts a single-player match instead.
func (registry *ClientRegistry) StopLooking(caller *ClientSession) {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()

	caller.lookingForMatch = false
}

// CloseAll closes every live connection, used during shutdown so blocked
// read loops unwind.
func (registry *ClientRegistry) CloseAll() {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()

	for _, session := range registry.sessions {
		if err := session.connection.Close(); err != nil {
			log.WithError(err).WithField("client", session.ID()).Debug("Error closing connection during shutdown")
		}
	}
}

// RoomRegistry creates, indexes and retires match rooms.
type RoomRegistry struct {
	mutex sync.Mutex
	rooms map[string]*MatchRoom
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{rooms: make(map[string]*MatchRoom)}
}

// NewRoom constructs an empty room with a fresh id and indexes it.
func (registry *RoomRegistry) NewRoom(capacity int) *MatchRoom {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()

	room := newMatchRoom(uuid.NewString(), capacity)
	registry.rooms[room.ID()] = room
	return room
}

// FindRoomByID returns the room, or nil if it was never created or has
// been retired. Absence is a benign condition: position updates race with
// room teardown by design.
func (registry *RoomRegistry) FindRoomByID(id string) *MatchRoom {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()

	return registry.rooms[id]
}

// Retire removes the room from the index. A retired room with no members
// is unreachable and gets collected.
func (registry *RoomRegistry) Retire(id string) {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()

	delete(registry.rooms, id)
}

func (registry *RoomRegistry) Count() int {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()

	return len(registry.rooms)
}
