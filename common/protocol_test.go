package common

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func TestFraming(t *testing.T) {
	suite.Run(t, new(FramingTestSuite))
}

func TestDecode(t *testing.T) {
	cases := []struct {
		name   string
		raw    string
		action Action
		fields []string
	}{
		{"login", "LOGIN_USER;alice;secret", ActionLoginUser, []string{"alice", "secret"}},
		{"field-less with trailing separator", "FIND_MATCH;", ActionFindMatch, nil},
		{"field-less bare", "SCORES", ActionScores, nil},
		{"position update", "UPDATE_GAME_POSITION_REQUEST;room-1;120;80", ActionUpdateGamePosition, []string{"room-1", "120", "80"}},
		{"unknown tag", "EXPLODE;now", ActionInvalid, []string{"now"}},
		{"empty frame", "", ActionInvalid, nil},
		{"separators only", ";;;", ActionInvalid, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			message := Decode(tc.raw)
			assert.Equal(t, tc.action, message.Action)
			if len(tc.fields) == 0 {
				assert.Empty(t, message.Fields)
			} else {
				assert.Equal(t, tc.fields, message.Fields)
			}
		})
	}
}

func TestEncode(t *testing.T) {
	assert.Equal(t, "LOGIN_USER;alice;secret", Message{ActionLoginUser, []string{"alice", "secret"}}.Encode())
	assert.Equal(t, "FIND_MATCH;", Message{Action: ActionFindMatch}.Encode(), "Field-less messages keep a trailing separator")
}

// Every wire tag must survive a parse roundtrip, and garbage must fail
// closed into ActionInvalid.
func TestParseAction(t *testing.T) {
	for action, tag := range actionTags {
		assert.Equal(t, action, ParseAction(tag))
	}

	assert.Equal(t, ActionInvalid, ParseAction(""))
	assert.Equal(t, ActionInvalid, ParseAction("INVALID"))
	assert.Equal(t, ActionInvalid, ParseAction("login_user"))
}

// The tag of a JSON response frame must stay parseable even when the
// payload's message contains the field separator.
func TestEncodeJSON(t *testing.T) {
	frame, err := EncodeJSON(ActionLoginUser, LoginResponse{
		Code:     CodeError,
		Message:  "something; went wrong",
		ClientID: "client-1",
	})
	require.NoError(t, err)

	message := Decode(frame)
	assert.Equal(t, ActionLoginUser, message.Action)

	var response LoginResponse
	payload := frame[strings.Index(frame, FieldSeparator)+1:]
	require.NoError(t, json.Unmarshal([]byte(payload), &response))
	assert.Equal(t, "something; went wrong", response.Message)
	assert.Equal(t, "client-1", response.ClientID)
}

// Test suite for the length-prefixed framing
type FramingTestSuite struct {
	suite.Suite

	testFramePayload string
	testFrameBytes   []byte
}

func (ts *FramingTestSuite) SetupSuite() {
	ts.testFramePayload = "FIND_MATCH;"
	// 2-byte big-endian length (11) followed by the payload bytes
	ts.testFrameBytes = []byte{0x00, 0x0B, 'F', 'I', 'N', 'D', '_', 'M', 'A', 'T', 'C', 'H', ';'}
}

// Compares a written frame against the pre-encoded expected bytes
func (ts *FramingTestSuite) TestWrite() {
	buf := new(bytes.Buffer)
	require.NoError(ts.T(), WriteFrame(buf, ts.testFramePayload))

	assert.Equal(ts.T(), ts.testFrameBytes, buf.Bytes(), "Written frame must match the expected length-prefixed encoding")
}

// Reads the pre-encoded bytes back and checks the payload survives
func (ts *FramingTestSuite) TestRead() {
	payload, err := ReadFrame(bytes.NewReader(ts.testFrameBytes))
	require.NoError(ts.T(), err)

	assert.Equal(ts.T(), ts.testFramePayload, payload, "Read payload must match the original payload")
}

// Several frames on one stream must come back in order and intact
func (ts *FramingTestSuite) TestStreamOrdering() {
	frames := []string{"LOGIN_USER;alice;secret", "FIND_MATCH;", "UPDATE_GAME_POSITION_REQUEST;room-1;120;80"}

	buf := new(bytes.Buffer)
	for _, frame := range frames {
		require.NoError(ts.T(), WriteFrame(buf, frame))
	}

	for _, expected := range frames {
		payload, err := ReadFrame(buf)
		require.NoError(ts.T(), err)
		assert.Equal(ts.T(), expected, payload)
	}
}

// A truncated stream must surface a read error, not a partial frame
func (ts *FramingTestSuite) TestTruncated() {
	_, err := ReadFrame(bytes.NewReader(ts.testFrameBytes[:5]))
	assert.Error(ts.T(), err, "Reading a truncated frame should return an error")
}

// Oversized payloads must be rejected before anything hits the wire
func (ts *FramingTestSuite) TestOversized() {
	buf := new(bytes.Buffer)
	err := WriteFrame(buf, strings.Repeat("x", MaxFramePayload+1))

	assert.Error(ts.T(), err, "Writing a payload above the length-prefix maximum should return an error")
	assert.Zero(ts.T(), buf.Len(), "Nothing should be written when the payload is oversized")
}
