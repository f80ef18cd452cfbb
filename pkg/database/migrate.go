package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Direction selects which half of a migration pair is applied
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// ParseDirection validates a migration direction flag
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(s)) {
	case Up:
		return Up, nil
	case Down:
		return Down, nil
	default:
		return "", fmt.Errorf("invalid migration direction %q: want up or down", s)
	}
}

// MigrationFiles lists the NNN_name.<direction>.sql files in dir.
// Up migrations are returned in ascending order, down migrations descending.
func MigrationFiles(dir string, direction Direction) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*."+string(direction)+".sql"))
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}
	sort.Strings(files)
	if direction == Down {
		for i, j := 0, len(files)-1; i < j; i, j = i+1, j-1 {
			files[i], files[j] = files[j], files[i]
		}
	}
	return files, nil
}

// Migrate applies every migration file of the given direction in order,
// each inside its own transaction. It returns the applied file names.
func Migrate(ctx context.Context, db *sqlx.DB, dir string, direction Direction) ([]string, error) {
	files, err := MigrationFiles(dir, direction)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no %s migrations found in %s", direction, dir)
	}

	applied := make([]string, 0, len(files))
	for _, path := range files {
		content, err := os.ReadFile(path)
		if err != nil {
			return applied, fmt.Errorf("failed to read migration %s: %w", path, err)
		}

		tx, err := db.BeginTxx(ctx, nil)
		if err != nil {
			return applied, fmt.Errorf("failed to begin migration %s: %w", path, err)
		}
		if _, err := tx.ExecContext(ctx, string(content)); err != nil {
			tx.Rollback()
			return applied, fmt.Errorf("failed to execute migration %s: %w", path, err)
		}
		if err := tx.Commit(); err != nil {
			return applied, fmt.Errorf("failed to commit migration %s: %w", path, err)
		}
		applied = append(applied, filepath.Base(path))
	}
	return applied, nil
}
