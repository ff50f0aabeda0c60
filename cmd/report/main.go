package main

import (
	"context"
	"flag"
	"os"

	"f0oster/zbxsync/config"
	"f0oster/zbxsync/database"
	"f0oster/zbxsync/logging"
	"f0oster/zbxsync/web"
)

func main() {
	configName := flag.String("config", "settings.env", "Path to the environment config file")
	addr := flag.String("addr", "", "Listen address (overrides REPORT_ADDR)")
	flag.Parse()

	cfg, err := config.LoadEnvConfig(*configName)
	if err != nil {
		logging.Default().Fatal().Err(err).Msg("loading configuration failed")
	}
	logging.Setup(cfg.LogLevel)
	log := logging.Default()

	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is required for the report server")
	}
	listen := cfg.ReportAddr
	if *addr != "" {
		listen = *addr
	}

	ctx := context.Background()
	db := database.NewDatabase(cfg.DatabaseURL)
	if err := db.Connect(ctx); err != nil {
		log.Fatal().Err(err).Msg("connecting to run-history store failed")
	}
	defer db.Close()

	server := web.NewServer(database.NewRecorder(db), listen)
	if err := server.Start(); err != nil {
		log.Error().Err(err).Msg("report server stopped")
		os.Exit(1)
	}
}
