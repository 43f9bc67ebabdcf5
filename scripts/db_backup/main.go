package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/garnizeh/rentops/internal/config"
	"github.com/garnizeh/rentops/internal/db"
)

func main() {
	configPath := flag.String("config", "", "Path to config YAML file")
	out := flag.String("out", "", "Backup file (default <database>.bak)")
	flag.Parse()

	ctx := context.Background()
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	src := db.SQLitePath(cfg.Database.DSN)
	if cfg.Database.Driver != string(db.SQLite) || src == "" {
		fmt.Fprintln(os.Stderr, "Backup error: only file-backed sqlite databases are supported")
		os.Exit(1)
	}
	dst := *out
	if dst == "" {
		dst = src + ".bak"
	}
	// VACUUM INTO refuses to overwrite
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Backup error: %v\n", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, db.SQLite, cfg.Database.DSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Backup error: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := database.Backup(ctx, dst); err != nil {
		fmt.Fprintf(os.Stderr, "Backup error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Database backup written to %s.\n", dst)
}
