// Command export-csv dumps one user's transactions as CSV, for backups
// and offline analysis without going through the HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"expenseio/internal/config"
	"expenseio/internal/core"
	"expenseio/internal/export"
	"expenseio/internal/storage"
)

func main() {
	_ = godotenv.Load()

	var (
		dbPath   = flag.String("db", "", "path to the SQLite database (default: SQLITE_DB_PATH)")
		email    = flag.String("user", "", "email of the account to export (required)")
		out      = flag.String("o", "", "output file (default: stdout)")
		month    = flag.String("month", "", "restrict to one YYYY-MM month")
		category = flag.String("category", "", "restrict to one category")
		search   = flag.String("search", "", "substring match on description")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	if *email == "" {
		fmt.Fprintln(os.Stderr, "usage: export-csv -user EMAIL [-db PATH] [-o FILE]")
		os.Exit(2)
	}

	path := *dbPath
	if path == "" {
		path = config.Load().SQLiteDBPath
	}

	q := core.Query{Search: *search, Category: *category, Month: *month}
	if err := run(path, *email, *out, q); err != nil {
		fmt.Fprintln(os.Stderr, "export-csv:", err)
		os.Exit(1)
	}
}

func run(dbPath, email, outPath string, q core.Query) error {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer repo.Close()

	ctx := context.Background()
	u, err := repo.UserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("user %s: %w", email, err)
	}

	txs, err := repo.ListTransactions(ctx, u.ID)
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}
	txs = core.Filter(txs, q)

	var w io.Writer = os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	return export.WriteCSV(w, txs)
}
