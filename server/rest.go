package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/alfredovitale/frogger-server/common"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// controlRouter builds the REST control API: server info, the public
// leaderboard, and the WebSocket variant of the game protocol.
func (server *Server) controlRouter() *mux.Router {
	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/info", server.handleInfo).Methods("GET")
	router.HandleFunc("/scores", server.handleScores).Methods("GET")
	router.HandleFunc("/ws", server.handleWebsocket)
	return router
}

// Returns server information such as the software version and REST API version
func (server *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	data, _ := json.Marshal(common.InfoResponse{
		Software: common.SoftwareName,
		Version:  common.SoftwareVersion,
		API:      common.APIVersion,
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Returns the leaderboard as JSON.
// HTTP Responses:
//   - 500 Internal Server Error: the score store failed
//   - 200 OK: success, returns a Scores struct (JSON)
func (server *Server) handleScores(w http.ResponseWriter, r *http.Request) {
	scores, err := server.Scores.GetScores()
	if err != nil {
		log.WithError(err).Error("Failed to load scores for /scores")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	data, err := json.Marshal(scores)
	if err != nil {
		log.WithError(err).Error("Failed to encode response json for /scores")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Upgrades the connection and runs the game protocol over it, one text
// message per frame. A valid session token in the query string
// pre-authenticates the session with the username it was issued for.
func (server *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	var username string
	if token := r.URL.Query().Get("token"); token != "" {
		verified, ok := server.Tokens.Verify(token)
		if !ok {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		username = verified
	}

	socket, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	go server.handleConnection(common.NewWebsocketMessageConnection(socket), username)
}
