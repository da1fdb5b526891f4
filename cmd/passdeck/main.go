package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/passdeck/passdeck/internal/app"
	log "github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "passdeck.yaml", "path to the config file")
	migrateOnly := flag.Bool("migrate", false, "run migrations and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *migrateOnly {
		if err := app.Migrate(ctx, *configPath); err != nil {
			log.WithError(err).Fatal("migration failed")
		}
		return
	}

	if err := app.RunServer(ctx, *configPath); err != nil {
		log.WithError(err).Error("server exited with error")
		os.Exit(1)
	}
}
