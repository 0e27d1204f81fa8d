// Command migrate applies or lists the price database migrations without
// starting the server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gasfinder-server/internal/config"
	"gasfinder-server/internal/db"
	"gasfinder-server/internal/logging"
	"gasfinder-server/internal/migrate"

	"github.com/joho/godotenv"
)

var version = "dev"

const usage = `usage: %s <command>
  up      apply pending migrations
  status  list pending migrations
`

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, ".env error: %v\n", err)
		os.Exit(1)
	}

	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, usage, os.Args[0])
		os.Exit(2)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stderr, cfg, version, "gasfinder-migrate")
	slog.SetDefault(logger)

	if err := run(context.Background(), cfg, logger, os.Args[1]); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger, command string) error {
	switch command {
	case "up", "status":
	default:
		return fmt.Errorf("unknown command %q", command)
	}

	conn, err := db.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(conn); closeErr != nil {
			logger.Error("db close", "err", closeErr)
		}
	}()

	if command == "up" {
		if err := migrate.Run(ctx, conn); err != nil {
			return err
		}
		fmt.Println("migrations applied")
		return nil
	}

	pending, err := migrate.Pending(ctx, conn)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		fmt.Println("up to date")
		return nil
	}
	for _, name := range pending {
		fmt.Println("pending", name)
	}
	return nil
}
