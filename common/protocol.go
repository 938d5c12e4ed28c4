package common

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// FieldSeparator divides the action tag and the fields of a text frame.
// Field values must not contain it; the protocol defines no escaping.
const FieldSeparator = ";"

// MaxFramePayload is the largest payload the length-prefixed framing can
// carry. The prefix is an unsigned 16-bit big-endian byte count, matching
// the framing the original Java client produces with writeUTF.
const MaxFramePayload = 0xFFFF

// Action identifies the type of a protocol message. Unknown or empty tags
// decode to ActionInvalid rather than an error so a misbehaving client can
// never push a parse failure past the codec.
type Action uint8

const (
	ActionInvalid Action = iota
	ActionLoginUser
	ActionRegisterUser
	ActionFindMatch
	ActionStartSingleMatch
	ActionUpdateGamePosition
	ActionResetGamePosition
	ActionGameEventTimeout
	ActionGameEventWin
	ActionScores
	ActionJoinRoom
	ActionOpponentLeft
)

var actionTags = map[Action]string{
	ActionLoginUser:          "LOGIN_USER",
	ActionRegisterUser:       "REGISTER_USER",
	ActionFindMatch:          "FIND_MATCH",
	ActionStartSingleMatch:   "START_SINGLE_MATCH_REQUEST",
	ActionUpdateGamePosition: "UPDATE_GAME_POSITION_REQUEST",
	ActionResetGamePosition:  "RESET_GAME_POSITION_REQUEST",
	ActionGameEventTimeout:   "GAME_EVENT_TIMEOUT",
	ActionGameEventWin:       "GAME_EVENT_WIN",
	ActionScores:             "SCORES",
	ActionJoinRoom:           "JOIN_ROOM",
	ActionOpponentLeft:       "OPPONENT_LEFT",
}

var tagActions = func() map[string]Action {
	m := make(map[string]Action, len(actionTags))
	for action, tag := range actionTags {
		m[tag] = action
	}
	return m
}()

func (a Action) String() string {
	if tag, ok := actionTags[a]; ok {
		return tag
	}
	return "INVALID"
}

// ParseAction maps a wire tag to its Action, falling back to ActionInvalid
// for anything it doesn't recognize.
func ParseAction(tag string) Action {
	if action, ok := tagActions[tag]; ok {
		return action
	}
	return ActionInvalid
}

// Message is one decoded protocol frame: the action tag and the fields
// that followed it.
type Message struct {
	Action Action
	Fields []string
}

// Encode renders the message as a text frame: the action tag and every
// field joined by the separator.
func (m Message) Encode() string {
	if len(m.Fields) == 0 {
		return m.Action.String() + FieldSeparator
	}
	return m.Action.String() + FieldSeparator + strings.Join(m.Fields, FieldSeparator)
}

// Decode parses a raw text frame into a Message. Trailing empty fields are
// dropped, because clients terminate field-less frames with a bare
// separator ("FIND_MATCH;"). Decode never fails; garbage decodes to
// ActionInvalid with the raw fields preserved for logging.
func Decode(raw string) Message {
	parts := strings.Split(raw, FieldSeparator)
	for len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	if len(parts) == 0 {
		return Message{Action: ActionInvalid}
	}
	return Message{
		Action: ParseAction(parts[0]),
		Fields: parts[1:],
	}
}

// EncodeJSON renders a response frame whose single field is a JSON
// document: "ACTION;{...}". Login, registration and scores responses use
// this shape so their free-text messages cannot collide with the field
// separator.
func EncodeJSON(action Action, payload interface{}) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding %s response: %w", action, err)
	}
	return action.String() + FieldSeparator + string(data), nil
}

// WriteFrame writes one length-prefixed frame: a 16-bit big-endian byte
// count followed by the UTF-8 payload.
func WriteFrame(w io.Writer, payload string) error {
	if len(payload) > MaxFramePayload {
		return fmt.Errorf("frame payload of %d bytes exceeds maximum of %d", len(payload), MaxFramePayload)
	}

	buf := make([]byte, 2+len(payload))
	binary.BigEndian.PutUint16(buf[0:2], uint16(len(payload)))
	copy(buf[2:], payload)

	_, err := w.Write(buf)
	return err
}

// ReadFrame reads one length-prefixed frame, blocking until a complete
// frame arrives or the stream errors.
func ReadFrame(r io.Reader) (string, error) {
	header := make([]byte, 2)
	if _, err := io.ReadFull(r, header); err != nil {
		return "", err
	}

	length := binary.BigEndian.Uint16(header)
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return "", err
	}

	return string(payload), nil
}
