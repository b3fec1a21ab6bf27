package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"tasktree/internal/config"
	"tasktree/internal/db"
	"tasktree/internal/logging"
	"tasktree/internal/ui"
)

// Version information set via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-v") {
		fmt.Printf("tasktree %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	fs := flag.NewFlagSet("tasktree", flag.ExitOnError)
	cfg, err := config.Load(fs, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath, err = db.DefaultPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error resolving database path: %v\n", err)
			os.Exit(1)
		}
	}

	database, err := db.New(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing database: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	// Logging is best-effort: the UI still runs without it.
	var log *logging.SessionLogger
	if cfg.LogDir != "" {
		log, err = logging.NewSessionLogger(cfg.LogDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: session logging disabled: %v\n", err)
		}
	}
	defer log.Close()
	log.Event("startup", map[string]any{"db": dbPath, "version": version})

	app := ui.NewApp(database, log, cfg.PageSize)
	p := tea.NewProgram(app, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running application: %v\n", err)
		os.Exit(1)
	}
}
