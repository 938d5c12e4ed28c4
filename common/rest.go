package common

// SoftwareName is the name of this software
const SoftwareName = "frogger-server"

// SoftwareVersion is the version of this software
const SoftwareVersion = "v1.0.0"

// APIVersion is the version of the REST control API
const APIVersion uint = 1

// InfoResponse is the JSON response to the /info REST method
type InfoResponse struct {
	Software string `json:"software"`
	Version  string `json:"version"`
	API      uint   `json:"apiVersion"`
}

// Code is the outcome marker carried by every structured response.
type Code string

const (
	CodeSuccess Code = "SUCCESS"
	CodeError   Code = "ERROR"
)

// LoginResponse is the JSON payload of a LOGIN_USER response. Token is a
// signed session token the client may present later to resume its
// identity; it is empty when the login failed.
type LoginResponse struct {
	Code     Code   `json:"code"`
	Message  string `json:"message"`
	ClientID string `json:"clientId"`
	Token    string `json:"token,omitempty"`
}

// RegistrationResponse is the JSON payload of a REGISTER_USER response.
type RegistrationResponse struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

// ScoreEntry is one leaderboard row.
type ScoreEntry struct {
	Username string `json:"username"`
	Wins     int    `json:"wins"`
}

// Scores is the JSON payload of a SCORES response and of the /scores REST
// method.
type Scores struct {
	Entries []ScoreEntry `json:"scores"`
}

// Board geometry shared by the server's room logic and the game client.
// The playfield is a grid of lanes; the frog starts centered on the
// bottom lane.
const (
	BoardWidth  = 800
	BoardHeight = 600
	LaneHeight  = 40
	FrogSize    = 39

	StartX = BoardWidth / 2
	StartY = BoardHeight - FrogSize
)
