package server

import (
	"fmt"
	"net"
	"net/http"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"

	"github.com/alfredovitale/frogger-server/common"
)

// Config is the server configuration, loaded from the [server] section of
// the ini file.
type Config struct {
	GameAddress string // host:port for the framed TCP game protocol
	HTTPAddress string // host:port for the REST control API and /ws
	Secret      string // HMAC secret used for signing session tokens
	Database    string // path to the SQLite database file
}

// LoadConfig reads the server configuration from an ini file.
func LoadConfig(file *ini.File) (Config, error) {
	section := file.Section("server")

	port := section.Key("port").MustUint(uint(common.DefaultGamePort))
	httpPort := section.Key("httpPort").MustUint(8080)

	secretKey, err := section.GetKey("secret")
	if err != nil {
		return Config{}, fmt.Errorf("server secret missing from configuration: %w", err)
	}

	return Config{
		GameAddress: fmt.Sprintf(":%d", port),
		HTTPAddress: fmt.Sprintf(":%d", httpPort),
		Secret:      secretKey.String(),
		Database:    section.Key("database").MustString("frogger.db"),
	}, nil
}

// Server is the explicitly constructed context holding all process-wide
// state: the registries, the collaborator services and the running flag.
// It is passed to every connection handler instead of living in package
// globals.
type Server struct {
	Clients *ClientRegistry
	Rooms   *RoomRegistry
	Auth    AuthService
	Scores  ScoreService
	Tokens  *TokenAuthority

	config       Config
	running      atomic.Bool
	gameListener net.Listener
	httpListener net.Listener
	httpServer   *http.Server
}

// NewServer wires a server context. Nothing is bound until Start.
func NewServer(config Config, auth AuthService, scores ScoreService) *Server {
	server := &Server{
		Clients: NewClientRegistry(),
		Rooms:   NewRoomRegistry(),
		Auth:    auth,
		Scores:  scores,
		Tokens:  NewTokenAuthority([]byte(config.Secret)),
		config:  config,
	}
	server.running.Store(true)
	return server
}

// Running reports whether the server is accepting and serving. Connection
// loops poll it between blocking reads, making shutdown cooperative.
func (server *Server) Running() bool {
	return server.running.Load()
}

// Start binds the game listener and the HTTP control server and begins
// accepting connections. It returns once both are listening.
func (server *Server) Start() error {
	listener, err := net.Listen("tcp", server.config.GameAddress)
	if err != nil {
		return fmt.Errorf("binding game listener on %s: %w", server.config.GameAddress, err)
	}
	server.gameListener = listener

	httpListener, err := net.Listen("tcp", server.config.HTTPAddress)
	if err != nil {
		listener.Close()
		return fmt.Errorf("binding control listener on %s: %w", server.config.HTTPAddress, err)
	}
	server.httpListener = httpListener
	server.httpServer = &http.Server{Handler: server.controlRouter()}

	go server.acceptLoop()
	go func() {
		err := server.httpServer.Serve(httpListener)
		if err != nil && err != http.ErrServerClosed {
			log.WithError(err).WithField("addr", httpListener.Addr().String()).Error("Control server stopped")
		}
	}()

	log.WithFields(log.Fields{
		"gameAddr": listener.Addr().String(),
		"httpAddr": httpListener.Addr().String(),
	}).Info("Server is listening")

	return nil
}

// GameAddr returns the bound address of the game listener.
func (server *Server) GameAddr() net.Addr {
	return server.gameListener.Addr()
}

// HTTPAddr returns the bound address of the REST control listener.
func (server *Server) HTTPAddr() net.Addr {
	return server.httpListener.Addr()
}

// Shutdown stops accepting and closes every live connection so the
// session loops unwind. Blocked reads end with a connection error, which
// each loop treats as its exit signal.
func (server *Server) Shutdown() {
	if !server.running.CompareAndSwap(true, false) {
		return
	}

	log.Info("Shutting down")

	if server.gameListener != nil {
		if err := server.gameListener.Close(); err != nil {
			log.WithError(err).Debug("Error closing game listener")
		}
	}
	if server.httpServer != nil {
		server.httpServer.Close()
	}
	server.Clients.CloseAll()
}

// acceptLoop accepts raw connections and spawns one session goroutine per
// connection.
func (server *Server) acceptLoop() {
	for server.Running() {
		socket, err := server.gameListener.Accept()
		if err != nil {
			if server.Running() {
				log.WithError(err).Error("Accept failed")
				continue
			}
			return
		}

		go server.handleConnection(common.NewTCPMessageConnection(socket), "")
	}
}

// handleConnection registers a session for the connection and runs its
// read loop on the calling goroutine. A non-empty username comes from a
// verified session token and pre-authenticates the session.
func (server *Server) handleConnection(connection common.MessageConnection, username string) {
	session := newClientSession(server, connection)
	if username != "" {
		session.setUsername(username)
	}

	server.Clients.Add(session)

	log.WithFields(log.Fields{
		"client":  session.ID(),
		"address": connection.RemoteAddr(),
	}).Info("Client connected")

	session.Run()
}
