// Command tools manages a writable development copy of the climate database.
//
//	tools migrate
//	tools seed <measurements.csv> <stations.csv>
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"climate-server/internal/config"
	"climate-server/internal/db"
	"climate-server/internal/migrate"
)

const usage = `usage: %s <command>
  migrate                                  apply pending schema migrations
  seed <measurements.csv> <stations.csv>   migrate, then load CSV exports
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, usage, os.Args[0])
		os.Exit(1)
	}

	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	cfg.SQLiteReadOnly = false

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[1], err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, args []string, out io.Writer) error {
	switch args[0] {
	case "migrate", "seed":
	default:
		return errors.New("unknown command (want migrate or seed)")
	}
	if args[0] == "seed" && len(args) != 3 {
		return errors.New("want 2 arguments: <measurements.csv> <stations.csv>")
	}

	conn, err := db.Open(cfg, slog.Default())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(conn); closeErr != nil {
			slog.Error("db close", "err", closeErr)
		}
	}()

	if err := migrate.Run(ctx, conn.DB); err != nil {
		return err
	}
	if args[0] == "migrate" {
		_, err := fmt.Fprintln(out, "migrations applied")
		return err
	}

	measurements, err := seedFile(ctx, conn.DB, args[1], migrate.SeedMeasurements)
	if err != nil {
		return err
	}
	stations, err := seedFile(ctx, conn.DB, args[2], migrate.SeedStations)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "seeded %d measurements, %d stations\n", measurements, stations)
	return err
}

func seedFile(ctx context.Context, conn *sql.DB, path string, load func(context.Context, *sql.DB, io.Reader) (int, error)) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()

	n, err := load(ctx, conn, f)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	return n, nil
}
