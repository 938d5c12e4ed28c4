package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alfredovitale/frogger-server/common"
)

// GameClient is a headless connection speaking the game protocol. The
// graphical client owns rendering and input; this type is the connection
// boundary it drives.
type GameClient struct {
	connection common.MessageConnection
}

// Connect dials the server and returns a connected client.
func Connect(dialer common.Dialer, address string) (*GameClient, error) {
	connection, err := dialer.DialForConnection(address)
	if err != nil {
		return nil, err
	}
	return &GameClient{connection: connection}, nil
}

func (client *GameClient) Close() error {
	return client.connection.Close()
}

// Send writes one message, fire-and-forget.
func (client *GameClient) Send(message common.Message) error {
	return client.connection.WriteMessage(message.Encode())
}

// Receive blocks for the next inbound message. The raw frame is returned
// alongside the decoded message so JSON payloads can be parsed from it.
func (client *GameClient) Receive() (common.Message, string, error) {
	raw, err := client.connection.ReadMessage()
	if err != nil {
		return common.Message{}, "", err
	}
	return common.Decode(raw), raw, nil
}

// await reads until a message with one of the wanted actions arrives,
// discarding anything else (broadcasts from an ongoing game, typically).
func (client *GameClient) await(wanted ...common.Action) (common.Message, string, error) {
	for {
		message, raw, err := client.Receive()
		if err != nil {
			return common.Message{}, "", err
		}
		for _, action := range wanted {
			if message.Action == action {
				return message, raw, nil
			}
		}
	}
}

// decodePayload parses the JSON document following the action tag of a
// structured response frame.
func decodePayload(raw string, out interface{}) error {
	index := strings.Index(raw, common.FieldSeparator)
	if index < 0 {
		return fmt.Errorf("frame %q has no payload", raw)
	}
	return json.Unmarshal([]byte(raw[index+1:]), out)
}

// Login authenticates and returns the server's response payload.
func (client *GameClient) Login(username, password string) (common.LoginResponse, error) {
	err := client.Send(common.Message{
		Action: common.ActionLoginUser,
		Fields: []string{username, password},
	})
	if err != nil {
		return common.LoginResponse{}, err
	}

	_, raw, err := client.await(common.ActionLoginUser)
	if err != nil {
		return common.LoginResponse{}, err
	}

	var response common.LoginResponse
	return response, decodePayload(raw, &response)
}

// Register creates an account and returns the server's response payload.
func (client *GameClient) Register(username, password string) (common.RegistrationResponse, error) {
	err := client.Send(common.Message{
		Action: common.ActionRegisterUser,
		Fields: []string{username, password},
	})
	if err != nil {
		return common.RegistrationResponse{}, err
	}

	_, raw, err := client.await(common.ActionRegisterUser)
	if err != nil {
		return common.RegistrationResponse{}, err
	}

	var response common.RegistrationResponse
	return response, decodePayload(raw, &response)
}

// FindMatch requests matchmaking. The reply is either FIND_MATCH;SUCCESS
// (we wait) or JOIN_ROOM;SUCCESS;... (paired immediately); when waiting,
// the JOIN_ROOM arrives later through Receive.
func (client *GameClient) FindMatch() (common.Message, error) {
	err := client.Send(common.Message{Action: common.ActionFindMatch})
	if err != nil {
		return common.Message{}, err
	}

	message, _, err := client.await(common.ActionFindMatch, common.ActionJoinRoom)
	return message, err
}

// StartSingleMatch creates a single-player room and returns the JOIN_ROOM
// message.
func (client *GameClient) StartSingleMatch() (common.Message, error) {
	err := client.Send(common.Message{Action: common.ActionStartSingleMatch})
	if err != nil {
		return common.Message{}, err
	}

	message, _, err := client.await(common.ActionJoinRoom)
	return message, err
}

// SendPosition relays the player's position to its room, fire-and-forget.
func (client *GameClient) SendPosition(roomID string, x, y int) error {
	return client.Send(common.Message{
		Action: common.ActionUpdateGamePosition,
		Fields: []string{roomID, fmt.Sprintf("%d", x), fmt.Sprintf("%d", y)},
	})
}

// ResetPosition reports a collision reset, fire-and-forget.
func (client *GameClient) ResetPosition(roomID string) error {
	return client.Send(common.Message{
		Action: common.ActionResetGamePosition,
		Fields: []string{roomID},
	})
}

// ReportTimeout signals the round timer expired, fire-and-forget.
func (client *GameClient) ReportTimeout(roomID string) error {
	return client.Send(common.Message{
		Action: common.ActionGameEventTimeout,
		Fields: []string{roomID},
	})
}

// ReportWin signals the player reached the far side, fire-and-forget.
func (client *GameClient) ReportWin(roomID string) error {
	return client.Send(common.Message{
		Action: common.ActionGameEventWin,
		Fields: []string{roomID},
	})
}

// Scores fetches the leaderboard over the game protocol.
func (client *GameClient) Scores() (common.Scores, error) {
	err := client.Send(common.Message{Action: common.ActionScores})
	if err != nil {
		return common.Scores{}, err
	}

	_, raw, err := client.await(common.ActionScores)
	if err != nil {
		return common.Scores{}, err
	}

	var scores common.Scores
	return scores, decodePayload(raw, &scores)
}
