package main

import (
	"context"
	"flag"

	"reliefledger/internal/config"
	"reliefledger/pkg/database"
	"reliefledger/pkg/logger"
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Config{Env: "development"}).Fatal().Err(err).Msg("failed to load configuration")
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	arguments := flag.Args()
	if len(arguments) == 0 {
		arguments = []string{"up"}
	}
	command := arguments[0]
	args := arguments[1:]

	if err := database.RunMigrations(context.Background(), cfg.DB.ConnectionString(), command, args...); err != nil {
		log.Fatal().Err(err).Str("command", command).Msg("migration failed")
	}

	log.Info().Str("command", command).Msg("goose success")
}
