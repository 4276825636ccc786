package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/splax/accounts/internal/app/migrate"
	"github.com/splax/accounts/pkg/config"
	"github.com/splax/accounts/pkg/logger"
)

func main() {
	command := flag.String("command", "up", "migrate command (up|status|down|version)")
	timeout := flag.Duration("timeout", time.Minute, "command timeout")
	target := flag.Int64("target", 0, "target version for down command (optional)")
	flag.Parse()

	log := logger.New("migrate", slog.LevelInfo)
	cfg, err := config.LoadAPIConfig()
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	runner, err := migrate.Open(ctx, cfg.DatabaseURL, cfg.MigrationsDir, log)
	if err != nil {
		log.Error("failed to configure migration runner", "error", err)
		os.Exit(1)
	}
	defer runner.Close()

	switch *command {
	case "up":
		err = runner.Ensure(ctx)
	case "status":
		_, err = runner.Status(ctx)
	case "down":
		err = runner.Down(ctx, *target)
	case "version":
		var version int64
		version, err = runner.Version(ctx)
		if err == nil {
			log.Info("schema version", "version", version)
		}
	default:
		log.Error("unsupported command", "command", *command)
		os.Exit(1)
	}
	if err != nil {
		log.Error("migration command failed", "command", *command, "error", err)
		os.Exit(1)
	}

	log.Info("migration command completed", "command", *command)
}
