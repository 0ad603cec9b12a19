// Package db opens the portal's embedded SQLite store. All portal state
// lives in a .genesis directory inside the workspace, next to the uploaded
// spec documents.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const (
	dataDir   = ".genesis"
	storeFile = "genesis.db"
)

type Config struct {
	Workspace string
}

// Path returns where the store lives (or would live) for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, dataDir, storeFile)
}

// Open creates the workspace data directory if needed and opens the store.
// Foreign keys are enforced: project rows reference their tenant and
// creator, and spec files, dialogue and tasks cascade with their project.
func Open(cfg Config) (*sql.DB, error) {
	path := Path(cfg.Workspace)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=foreign_keys(1)", path)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return conn, nil
}
