package client

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/alfredovitale/frogger-server/common"
)

// RunClient is the main method for running the interactive client, a
// command-line harness for poking at a running server.
func RunClient() {
	log.Info("Client ready for commands. Type \"help\" for a list.")
	scanner := bufio.NewScanner(os.Stdin)

	var game *GameClient

	for {
		fmt.Print("> ")

		if !scanner.Scan() {
			break
		}
		exploded := strings.Fields(scanner.Text())
		if len(exploded) == 0 {
			continue
		}

		switch exploded[0] {
		case "help":
			fmt.Println("probe [url] | connect [host:port] | register [user] [pass] | login [user] [pass]")
			fmt.Println("find | single | pos [room] [x] [y] | reset [room] | win [room] | scores | recv | quit")

		case "probe":
			// probe [url]: hit the REST control API before connecting
			if len(exploded) < 2 {
				log.Error("Usage: \"probe [URL]\"")
				continue
			}
			rest := newRestClient(exploded[1])
			info, err := rest.fetchInfo()
			if err != nil {
				log.WithError(err).Error("Probe failed")
				continue
			}
			log.WithFields(log.Fields{
				"software": info.Software,
				"version":  info.Version,
				"api":      info.API,
			}).Info("Server is up")
			scores, err := rest.fetchScores()
			if err != nil {
				log.WithError(err).Warn("Failed to fetch leaderboard")
				continue
			}
			for _, entry := range scores.Entries {
				fmt.Printf("%s\t%d\n", entry.Username, entry.Wins)
			}

		case "connect":
			if len(exploded) < 2 {
				log.Error("Usage: \"connect [host:port]\"")
				continue
			}
			connected, err := Connect(new(common.GameDialer), exploded[1])
			if err != nil {
				log.WithError(err).Error("Failed to connect")
				continue
			}
			game = connected
			log.WithField("address", exploded[1]).Info("Connected")

		case "register":
			if game == nil || len(exploded) < 3 {
				log.Error("Connect first; usage: \"register [username] [password]\"")
				continue
			}
			response, err := game.Register(exploded[1], exploded[2])
			reportOutcome("register", string(response.Code), response.Message, err)

		case "login":
			if game == nil || len(exploded) < 3 {
				log.Error("Connect first; usage: \"login [username] [password]\"")
				continue
			}
			response, err := game.Login(exploded[1], exploded[2])
			reportOutcome("login", string(response.Code), response.Message, err)

		case "find":
			if game == nil {
				log.Error("Connect first")
				continue
			}
			message, err := game.FindMatch()
			if err != nil {
				log.WithError(err).Error("Matchmaking failed")
				continue
			}
			log.WithField("reply", message.Encode()).Info("Matchmaking response")

		case "single":
			if game == nil {
				log.Error("Connect first")
				continue
			}
			message, err := game.StartSingleMatch()
			if err != nil {
				log.WithError(err).Error("Single match failed")
				continue
			}
			log.WithField("reply", message.Encode()).Info("Joined room")

		case "pos":
			if game == nil || len(exploded) < 4 {
				log.Error("Connect first; usage: \"pos [room] [x] [y]\"")
				continue
			}
			x, errX := strconv.Atoi(exploded[2])
			y, errY := strconv.Atoi(exploded[3])
			if errX != nil || errY != nil {
				log.Error("x and y must be integers")
				continue
			}
			if err := game.SendPosition(exploded[1], x, y); err != nil {
				log.WithError(err).Error("Failed to send position")
			}

		case "reset":
			if game == nil || len(exploded) < 2 {
				log.Error("Connect first; usage: \"reset [room]\"")
				continue
			}
			if err := game.ResetPosition(exploded[1]); err != nil {
				log.WithError(err).Error("Failed to send reset")
			}

		case "win":
			if game == nil || len(exploded) < 2 {
				log.Error("Connect first; usage: \"win [room]\"")
				continue
			}
			if err := game.ReportWin(exploded[1]); err != nil {
				log.WithError(err).Error("Failed to send win")
			}

		case "scores":
			if game == nil {
				log.Error("Connect first")
				continue
			}
			scores, err := game.Scores()
			if err != nil {
				log.WithError(err).Error("Failed to fetch scores")
				continue
			}
			for _, entry := range scores.Entries {
				fmt.Printf("%s\t%d\n", entry.Username, entry.Wins)
			}

		case "recv":
			if game == nil {
				log.Error("Connect first")
				continue
			}
			_, raw, err := game.Receive()
			if err != nil {
				log.WithError(err).Error("Receive failed")
				continue
			}
			fmt.Println(raw)

		case "quit":
			if game != nil {
				game.Close()
			}
			return

		default:
			log.WithField("command", exploded[0]).Error("Unknown command")
		}
	}
}

func reportOutcome(what, code, message string, err error) {
	if err != nil {
		log.WithError(err).Errorf("Failed to %s", what)
		return
	}
	log.WithFields(log.Fields{"code": code, "message": message}).Infof("%s response", what)
}
