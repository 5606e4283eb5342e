// Package db locates and opens the workspace SQLite database.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const (
	workspaceDir       = ".taskboard"
	databaseFile       = "taskboard.db"
	defaultBusyTimeout = 5 * time.Second
)

type Config struct {
	Workspace string
	// BusyTimeout bounds how long a writer waits on a locked database.
	BusyTimeout time.Duration
}

func workspaceRoot(workspace string) string {
	if workspace == "" {
		return "."
	}
	return workspace
}

// EnsureWorkspace creates the .taskboard directory and returns its path.
func EnsureWorkspace(workspace string) (string, error) {
	dir := filepath.Join(workspaceRoot(workspace), workspaceDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create workspace %s: %w", dir, err)
	}
	return dir, nil
}

// Open opens the database in WAL mode. Saves run on background goroutines, so
// writers wait out each other's locks instead of failing with SQLITE_BUSY.
func Open(cfg Config) (*sql.DB, error) {
	dir, err := EnsureWorkspace(cfg.Workspace)
	if err != nil {
		return nil, err
	}
	timeout := cfg.BusyTimeout
	if timeout <= 0 {
		timeout = defaultBusyTimeout
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)",
		filepath.Join(dir, databaseFile), timeout.Milliseconds())
	return sql.Open("sqlite", dsn)
}

// Path returns the database file of a workspace.
func Path(workspace string) string {
	return filepath.Join(workspaceRoot(workspace), workspaceDir, databaseFile)
}
