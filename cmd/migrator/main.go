package main

import (
	"errors"
	"flag"
	"log/slog"
	"os"

	"SpotExchange/internal/config"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func main() {
	var migrationsPath string
	flag.StringVar(&migrationsPath, "migrations", "migrations", "path to migrations directory")

	cfg := config.MustLoad()

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	m, err := migrate.New("file://"+migrationsPath, cfg.PostgresCfg.ConnString())
	if err != nil {
		log.Error("failed to create migrator", "error", err)
		panic(err)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("no migrations to apply")
			return
		}
		log.Error("failed to apply migrations", "error", err)
		panic(err)
	}

	log.Info("migrations applied")
}
