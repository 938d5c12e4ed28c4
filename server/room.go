package server

import (
	"fmt"
	"strconv"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/alfredovitale/frogger-server/common"
)

// DuoCapacity is the member limit of a matchmade room; single-player
// matches use a capacity of one.
const (
	DuoCapacity    = 2
	SingleCapacity = 1
)

type roomMember struct {
	session *ClientSession
	x, y    int
}

// MatchRoom holds the live state of one match: up to capacity members in
// join order and each member's last known position. All mutation happens
// under the room mutex, from whichever session goroutine triggers it, so
// every broadcast sees a consistent member list.
type MatchRoom struct {
	id       string
	capacity int

	mutex   sync.Mutex
	members []*roomMember
	started bool
}

func newMatchRoom(id string, capacity int) *MatchRoom {
	return &MatchRoom{id: id, capacity: capacity}
}

func (room *MatchRoom) ID() string {
	return room.id
}

// AddClient adds a session as a member, placing it on the start
// coordinate. Fails without touching existing membership when the room is
// already full.
func (room *MatchRoom) AddClient(session *ClientSession) error {
	room.mutex.Lock()
	defer room.mutex.Unlock()

	if len(room.members) >= room.capacity {
		return fmt.Errorf("room %s is full (%d members)", room.id, room.capacity)
	}

	room.members = append(room.members, &roomMember{
		session: session,
		x:       common.StartX,
		y:       common.StartY,
	})
	session.setRoom(room.id)

	return nil
}

// Start marks the game as running. No dedicated start frame is sent: the
// JOIN_ROOM;SUCCESS response the members just received doubles as the
// start signal.
func (room *MatchRoom) Start() {
	room.mutex.Lock()
	defer room.mutex.Unlock()

	room.started = true
	log.WithFields(log.Fields{
		"room":    room.id,
		"members": len(room.members),
	}).Info("Game started")
}

// Data serializes the room for the JOIN_ROOM response:
// roomID;id1;user1;id2;user2 with empty slots left blank.
func (room *MatchRoom) Data() string {
	room.mutex.Lock()
	defer room.mutex.Unlock()

	data := room.id
	for _, member := range room.members {
		data += common.FieldSeparator + member.session.Data()
	}
	for slot := len(room.members); slot < room.capacity; slot++ {
		data += common.FieldSeparator + common.FieldSeparator
	}
	return data
}

// UpdateClientPosition stores the member's position and relays it to every
// other member, never back to the sender. An unknown member id is a no-op:
// the update may have raced with an eviction.
func (room *MatchRoom) UpdateClientPosition(id string, x, y int) {
	room.mutex.Lock()
	defer room.mutex.Unlock()

	member := room.findMember(id)
	if member == nil {
		log.WithFields(log.Fields{"room": room.id, "client": id}).Debug("Position update from non-member dropped")
		return
	}

	member.x = x
	member.y = y

	room.broadcast(id, common.Message{
		Action: common.ActionUpdateGamePosition,
		Fields: []string{room.id, strconv.Itoa(x), strconv.Itoa(y)},
	})
}

// ResetClientPosition puts the member back on the start coordinate
// (collision recovery) and tells the peers.
func (room *MatchRoom) ResetClientPosition(id string) {
	room.mutex.Lock()
	defer room.mutex.Unlock()

	member := room.findMember(id)
	if member == nil {
		return
	}

	member.x = common.StartX
	member.y = common.StartY

	room.broadcast(id, common.Message{
		Action: common.ActionResetGamePosition,
		Fields: []string{room.id},
	})
}

// OnTimeoutEvent ends the current round: every member goes back to the
// start coordinate and every member is told the round timed out. Nobody
// wins a timed-out round; victories arrive separately as GAME_EVENT_WIN.
func (room *MatchRoom) OnTimeoutEvent() {
	room.mutex.Lock()
	defer room.mutex.Unlock()

	for _, member := range room.members {
		member.x = common.StartX
		member.y = common.StartY
	}

	room.broadcast("", common.Message{
		Action: common.ActionGameEventTimeout,
		Fields: []string{room.id},
	})
}

// OnWin ends the game: the peers are told who won and every member's room
// reference is cleared. Returns false without touching the room when the
// claimed winner is not a member. The caller is responsible for recording
// the score and retiring the room, and must do neither on false.
func (room *MatchRoom) OnWin(winnerID string) bool {
	room.mutex.Lock()
	defer room.mutex.Unlock()

	winner := room.findMember(winnerID)
	if winner == nil {
		return false
	}

	room.broadcast(winnerID, common.Message{
		Action: common.ActionGameEventWin,
		Fields: []string{room.id, winner.session.Username()},
	})

	for _, member := range room.members {
		member.session.setRoom("")
	}
	room.members = nil
	return true
}

// RemoveMember evicts a member, typically because its connection died. Any
// remaining member is notified so it can decide to continue alone or
// abandon. Returns true when the room is empty and should be retired.
func (room *MatchRoom) RemoveMember(id string) bool {
	room.mutex.Lock()
	defer room.mutex.Unlock()

	for index, member := range room.members {
		if member.session.ID() == id {
			room.members = append(room.members[:index], room.members[index+1:]...)
			member.session.setRoom("")
			break
		}
	}

	room.broadcast("", common.Message{
		Action: common.ActionOpponentLeft,
		Fields: []string{room.id},
	})

	return len(room.members) == 0
}

// MemberCount returns the current number of members.
func (room *MatchRoom) MemberCount() int {
	room.mutex.Lock()
	defer room.mutex.Unlock()

	return len(room.members)
}

// findMember returns the member with the given id, or nil. Callers hold
// the room mutex.
func (room *MatchRoom) findMember(id string) *roomMember {
	for _, member := range room.members {
		if member.session.ID() == id {
			return member
		}
	}
	return nil
}

// broadcast sends the message to every member except excludeID. Callers
// hold the room mutex. Write failures are logged only; the failing
// member's own read loop notices the dead connection and evicts it.
func (room *MatchRoom) broadcast(excludeID string, message common.Message) {
	for _, member := range room.members {
		if member.session.ID() == excludeID {
			continue
		}
		member.session.send(message.Encode())
	}
}
