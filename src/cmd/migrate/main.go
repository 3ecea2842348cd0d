package main

import (
	"flag"
	"log/slog"
	"os"

	"freightapi/src/helper/env"
	"freightapi/src/infra/postgres"
)

// migrate applies (up) or reverts (down -steps N) the embedded schema migrations.
func main() {
	steps := flag.Int("steps", 1, "number of migrations to revert with the down command")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := postgres.ConnectionConfig{
		Host:     env.MustGetString("DB_HOST"),
		Port:     env.GetString("DB_PORT", "5432"),
		DBName:   env.MustGetString("DB_NAME"),
		Username: env.MustGetString("DB_USER"),
		Password: env.MustGetString("DB_PASSWORD"),
	}

	command := flag.Arg(0)
	if command == "" {
		command = "up"
	}

	var err error
	switch command {
	case "up":
		err = postgres.RunMigrations(logger, cfg)
	case "down":
		err = postgres.RollbackMigrations(logger, cfg, *steps)
	default:
		logger.Error("Unknown command, expected up or down", "command", command)
		os.Exit(2)
	}

	if err != nil {
		logger.Error("Migration failed", "command", command, "error", err)
		os.Exit(1)
	}
}
