package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/alfredovitale/frogger-server/client"
	"github.com/alfredovitale/frogger-server/common"
	"github.com/alfredovitale/frogger-server/server"

	log "github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"
)

func main() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})
	log.SetLevel(log.DebugLevel)

	if len(os.Args) > 1 && os.Args[1] == "-server" {
		log.WithFields(log.Fields{
			"software": common.SoftwareName,
			"version":  common.SoftwareVersion,
			"mode":     "server",
		}).Info("Starting...")

		runServer()
	} else {
		log.WithFields(log.Fields{
			"software": common.SoftwareName,
			"version":  common.SoftwareVersion,
			"mode":     "client",
		}).Info("Starting...")

		client.RunClient()
	}
}

func runServer() {
	config, err := server.LoadConfig(loadConfigFile())
	if err != nil {
		log.WithError(err).Error("Invalid configuration")
		panic(err)
	}

	store, err := server.OpenStore(config.Database)
	if err != nil {
		log.WithError(err).WithField("database", config.Database).Error("Failed to open database")
		panic(err)
	}
	defer store.Close()

	srv := server.NewServer(config, store, store)
	if err := srv.Start(); err != nil {
		log.WithError(err).Error("Failed to start server")
		panic(err)
	}

	// Block until interrupted, then shut down cooperatively.
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	<-signals

	srv.Shutdown()
}

func loadConfigFile() *ini.File {
	var configLocation string = "server.ini"
	if os.Getenv("SERVER_CONFIG") != "" {
		configLocation = os.Getenv("SERVER_CONFIG")
	}

	file, err := ini.Load(configLocation)
	if err != nil {
		log.WithField("config", configLocation).WithError(err).Error("Failed to load configuration file.")
		panic(err)
	}

	return file
}
