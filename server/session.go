package server

import (
	"strconv"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/alfredovitale/frogger-server/common"
)

// ClientSession owns one connection: its read loop, dispatch, and the
// per-player state. All handling for a connection runs sequentially on
// its own goroutine; handlers never hand work off to another goroutine.
type ClientSession struct {
	id         string
	connection common.MessageConnection
	server     *Server

	// Guarded by the ClientRegistry mutex, never touched directly.
	lookingForMatch bool

	// mutex guards username and roomID, which peer goroutines read
	// during broadcasts and write during pairing.
	mutex    sync.Mutex
	username string
	roomID   string
}

func newClientSession(server *Server, connection common.MessageConnection) *ClientSession {
	return &ClientSession{
		id:         uuid.NewString(),
		connection: connection,
		server:     server,
	}
}

func (session *ClientSession) ID() string {
	return session.id
}

func (session *ClientSession) Username() string {
	session.mutex.Lock()
	defer session.mutex.Unlock()

	return session.username
}

func (session *ClientSession) setUsername(username string) {
	session.mutex.Lock()
	defer session.mutex.Unlock()

	session.username = username
}

// currentRoom is the session's weak reference to its room: a lookup key
// resolved through the RoomRegistry on demand, never an owning pointer.
func (session *ClientSession) currentRoom() string {
	session.mutex.Lock()
	defer session.mutex.Unlock()

	return session.roomID
}

func (session *ClientSession) setRoom(roomID string) {
	session.mutex.Lock()
	defer session.mutex.Unlock()

	session.roomID = roomID
}

// Data serializes the session for room payloads: clientID;username.
func (session *ClientSession) Data() string {
	return session.id + common.FieldSeparator + session.Username()
}

// Run is the session's read loop: one blocking frame read per iteration,
// each decoded action dispatched synchronously on this goroutine. Exits on
// I/O failure or server shutdown, then tears the session down.
func (session *ClientSession) Run() {
	defer session.teardown()

	for session.server.Running() {
		frame, err := session.connection.ReadMessage()
		if err != nil {
			log.WithError(err).WithField("client", session.id).Debug("Read failed, closing session")
			return
		}

		session.dispatch(common.Decode(frame))
	}
}

func (session *ClientSession) dispatch(message common.Message) {
	switch message.Action {
	case common.ActionLoginUser:
		session.onLoginUser(message.Fields)
	case common.ActionRegisterUser:
		session.onRegisterUser(message.Fields)
	case common.ActionFindMatch:
		session.onFindMatch()
	case common.ActionStartSingleMatch:
		session.onStartSingleMatch()
	case common.ActionUpdateGamePosition:
		session.onUpdateGamePosition(message.Fields)
	case common.ActionResetGamePosition:
		session.onResetGamePosition(message.Fields)
	case common.ActionGameEventTimeout:
		session.onGameEventTimeout(message.Fields)
	case common.ActionGameEventWin:
		session.onGameEventWin(message.Fields)
	case common.ActionScores:
		session.onScores()
	case common.ActionInvalid:
		log.WithField("client", session.id).Warn("Invalid action tag received")
	default:
		log.WithFields(log.Fields{
			"client": session.id,
			"action": message.Action,
		}).Warn("Unexpected action received")
	}
}

func (session *ClientSession) onLoginUser(fields []string) {
	if len(fields) < 2 {
		session.sendJSON(common.ActionLoginUser, common.LoginResponse{
			Code:     common.CodeError,
			Message:  "missing username or password",
			ClientID: session.id,
		})
		return
	}

	username, password := fields[0], fields[1]
	response := common.LoginResponse{Code: common.CodeSuccess, ClientID: session.id}

	if err := session.server.Auth.Login(username, password); err != nil {
		response.Code = common.CodeError
		response.Message = err.Error()
	} else {
		session.setUsername(username)

		token, err := session.server.Tokens.Issue(username)
		if err != nil {
			log.WithError(err).WithField("username", username).Error("Failed to issue session token")
		}
		response.Token = token

		log.WithFields(log.Fields{
			"client":   session.id,
			"username": username,
			"address":  session.connection.RemoteAddr(),
		}).Info("Login")
	}

	session.sendJSON(common.ActionLoginUser, response)
}

func (session *ClientSession) onRegisterUser(fields []string) {
	if len(fields) < 2 {
		session.sendJSON(common.ActionRegisterUser, common.RegistrationResponse{
			Code:    common.CodeError,
			Message: "missing username or password",
		})
		return
	}

	response := common.RegistrationResponse{Code: common.CodeSuccess}
	if err := session.server.Auth.Register(fields[0], fields[1]); err != nil {
		response.Code = common.CodeError
		response.Message = err.Error()
	} else {
		log.WithField("username", fields[0]).Info("New registration")
	}

	session.sendJSON(common.ActionRegisterUser, response)
}

func (session *ClientSession) onFindMatch() {
	if roomID := session.currentRoom(); roomID != "" {
		// A member of a live room stays out of the pool until the game
		// ends or the member leaves; pairing it again would strand the
		// first room.
		log.WithFields(log.Fields{"client": session.id, "room": roomID}).Warn("FIND_MATCH from a session already in a room dropped")
		return
	}

	opponent := session.server.Clients.ClaimOpponent(session)
	if opponent == nil {
		// Nobody is waiting. Present ourselves as the one looking for a
		// game and wait for someone else's FIND_MATCH to claim us.
		session.send(common.Message{
			Action: common.ActionFindMatch,
			Fields: []string{string(common.CodeSuccess)},
		}.Encode())
		return
	}

	room := session.server.Rooms.NewRoom(DuoCapacity)
	if err := room.AddClient(session); err != nil {
		log.WithError(err).WithField("room", room.ID()).Error("Failed to join fresh room")
		return
	}
	if err := room.AddClient(opponent); err != nil {
		log.WithError(err).WithField("room", room.ID()).Error("Failed to join opponent to fresh room")
		return
	}

	log.WithFields(log.Fields{
		"room":     room.ID(),
		"client":   session.id,
		"opponent": opponent.ID(),
	}).Info("Match found")

	joined := common.Message{
		Action: common.ActionJoinRoom,
		Fields: []string{string(common.CodeSuccess), room.Data()},
	}.Encode()
	session.send(joined)
	opponent.send(joined)

	room.Start()
}

func (session *ClientSession) onStartSingleMatch() {
	session.server.Clients.StopLooking(session)

	room := session.server.Rooms.NewRoom(SingleCapacity)
	if err := room.AddClient(session); err != nil {
		log.WithError(err).WithField("room", room.ID()).Error("Failed to join fresh room")
		return
	}

	session.send(common.Message{
		Action: common.ActionJoinRoom,
		Fields: []string{string(common.CodeSuccess), room.Data()},
	}.Encode())

	room.Start()
}

func (session *ClientSession) onUpdateGamePosition(fields []string) {
	if len(fields) < 3 {
		log.WithField("client", session.id).Warn("Position update with missing fields dropped")
		return
	}

	x, errX := strconv.Atoi(fields[1])
	y, errY := strconv.Atoi(fields[2])
	if errX != nil || errY != nil {
		log.WithFields(log.Fields{
			"client": session.id,
			"x":      fields[1],
			"y":      fields[2],
		}).Warn("Position update with non-numeric coordinates dropped")
		return
	}

	room := session.server.Rooms.FindRoomByID(fields[0])
	if room == nil {
		log.WithFields(log.Fields{"client": session.id, "room": fields[0]}).Debug("Position update for unknown room dropped")
		return
	}

	room.UpdateClientPosition(session.id, x, y)
}

func (session *ClientSession) onResetGamePosition(fields []string) {
	if len(fields) < 1 {
		return
	}

	room := session.server.Rooms.FindRoomByID(fields[0])
	if room == nil {
		log.WithFields(log.Fields{"client": session.id, "room": fields[0]}).Debug("Position reset for unknown room dropped")
		return
	}

	room.ResetClientPosition(session.id)
}

func (session *ClientSession) onGameEventTimeout(fields []string) {
	if len(fields) < 1 {
		return
	}

	room := session.server.Rooms.FindRoomByID(fields[0])
	if room == nil {
		// The room may have already been retired, not an error.
		return
	}

	room.OnTimeoutEvent()
}

func (session *ClientSession) onGameEventWin(fields []string) {
	if len(fields) < 1 {
		return
	}

	room := session.server.Rooms.FindRoomByID(fields[0])
	if room == nil {
		return
	}

	if !room.OnWin(session.id) {
		log.WithFields(log.Fields{"client": session.id, "room": room.ID()}).Warn("Win claim from a non-member dropped")
		return
	}
	session.server.Rooms.Retire(room.ID())

	if err := session.server.Scores.RecordWin(session.Username()); err != nil {
		log.WithError(err).WithField("username", session.Username()).Error("Failed to record win")
	}
}

func (session *ClientSession) onScores() {
	scores, err := session.server.Scores.GetScores()
	if err != nil {
		log.WithError(err).Error("Failed to load scores")
		scores = common.Scores{Entries: []common.ScoreEntry{}}
	}

	session.sendJSON(common.ActionScores, scores)
}

// send writes one frame. A write failure is fatal for the session: the
// connection is closed so the blocked read loop unwinds and tears down.
func (session *ClientSession) send(frame string) {
	if err := session.connection.WriteMessage(frame); err != nil {
		log.WithError(err).WithField("client", session.id).Debug("Write failed, closing session")
		if !session.connection.IsClosed() {
			session.connection.Close()
		}
	}
}

func (session *ClientSession) sendJSON(action common.Action, payload interface{}) {
	frame, err := common.EncodeJSON(action, payload)
	if err != nil {
		log.WithError(err).WithField("client", session.id).Error("Failed to encode response")
		return
	}
	session.send(frame)
}

// teardown evicts the session from the registries and releases any room
// membership, notifying the peer.
func (session *ClientSession) teardown() {
	session.server.Clients.Remove(session.id)

	if roomID := session.currentRoom(); roomID != "" {
		if room := session.server.Rooms.FindRoomByID(roomID); room != nil {
			if room.RemoveMember(session.id) {
				session.server.Rooms.Retire(roomID)
			}
		}
	}

	if !session.connection.IsClosed() {
		if err := session.connection.Close(); err != nil {
			log.WithError(err).WithField("client", session.id).Debug("Error closing connection")
		}
	}

	log.WithFields(log.Fields{
		"client":  session.id,
		"address": session.connection.RemoteAddr(),
	}).Info("Client disconnected")
}
