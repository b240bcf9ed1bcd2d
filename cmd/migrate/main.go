package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"airwatch/internal/config"
	"airwatch/internal/db"
	"airwatch/internal/logging"
	"airwatch/internal/migrate"
)

const usage = `usage: %s <command>
  migrate  apply pending schema migrations
  status   list migrations not yet applied
`

func main() {
	os.Exit(run(context.Background(), os.Args, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		fmt.Fprintf(stderr, usage, args[0])
		return 2
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(stderr, "config error: %v\n", err)
		return 1
	}
	logger := logging.New(cfg, "dev", "migrate")

	conn, err := db.Open(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(stderr, "db open: %v\n", err)
		return 1
	}
	defer func() {
		if closeErr := db.Close(conn); closeErr != nil {
			slog.Error("db close", "err", closeErr)
		}
	}()

	switch args[1] {
	case "migrate":
		if err := migrate.Run(ctx, conn); err != nil {
			fmt.Fprintf(stderr, "migrate: %v\n", err)
			return 1
		}
		fmt.Fprintln(stdout, "migrations applied")
	case "status":
		pending, err := migrate.Pending(ctx, conn)
		if err != nil {
			fmt.Fprintf(stderr, "status: %v\n", err)
			return 1
		}
		if len(pending) == 0 {
			fmt.Fprintln(stdout, "up to date")
			return 0
		}
		for _, name := range pending {
			fmt.Fprintln(stdout, "pending", name)
		}
	default:
		fmt.Fprintf(stderr, "unknown command: %s\n", args[1])
		fmt.Fprintf(stderr, usage, args[0])
		return 2
	}
	return 0
}
